// Package mock provides an in-memory mock implementation of [claim.Submitter]
// for use in unit tests.
//
// The mock records every call and returns the configured results. It is safe
// for concurrent use.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/woohoo/pkg/claim"
)

// Compile-time interface assertion.
var _ claim.Submitter = (*Submitter)(nil)

// Submitter is a mock implementation of [claim.Submitter].
type Submitter struct {
	mu sync.Mutex

	// ClaimResult is returned by [Submitter.ClaimReward].
	ClaimResult claim.ClaimRecord

	// ClaimError is returned by [Submitter.ClaimReward].
	ClaimError error

	// AttemptResult is returned by [Submitter.SubmitAttempt].
	AttemptResult claim.AttemptResult

	// AttemptError is returned by [Submitter.SubmitAttempt].
	AttemptError error

	// ClaimCalls records all ClaimReward requests.
	ClaimCalls []claim.ClaimRequest

	// AttemptCalls records all SubmitAttempt requests.
	AttemptCalls []claim.AttemptRequest
}

// ClaimReward implements [claim.Submitter].
func (s *Submitter) ClaimReward(_ context.Context, req claim.ClaimRequest) (claim.ClaimRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ClaimCalls = append(s.ClaimCalls, req)
	return s.ClaimResult, s.ClaimError
}

// SubmitAttempt implements [claim.Submitter].
func (s *Submitter) SubmitAttempt(_ context.Context, req claim.AttemptRequest) (claim.AttemptResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.AttemptCalls = append(s.AttemptCalls, req)
	return s.AttemptResult, s.AttemptError
}

// Claims returns a copy of the recorded claim requests.
func (s *Submitter) Claims() []claim.ClaimRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]claim.ClaimRequest(nil), s.ClaimCalls...)
}

// Attempts returns a copy of the recorded attempt requests.
func (s *Submitter) Attempts() []claim.AttemptRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]claim.AttemptRequest(nil), s.AttemptCalls...)
}

// SetClaimError replaces ClaimError under the lock.
func (s *Submitter) SetClaimError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ClaimError = err
}
