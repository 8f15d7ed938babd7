// Package claim is the boundary to the external reward API.
//
// The challenge hands its final result to a [Submitter]: either a claim
// (name, phone, score, tier) that the backend turns into a redeemable
// [ClaimRecord], or an anonymous attempt record. [Client] is the HTTP
// implementation; [ValidateClaim] and [NormalizePhone] run locally before
// any request is sent.
package claim

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrWong99/woohoo/pkg/loudness"
)

var (
	// ErrInvalidPhone is returned when a phone number does not reduce to
	// exactly ten digits.
	ErrInvalidPhone = errors.New("claim: please enter a valid 10-digit phone number")

	// ErrInvalidClaim is returned by ValidateClaim for any other bad field.
	ErrInvalidClaim = errors.New("claim: invalid claim")

	// ErrSubmissionFailed matches every error returned by a Submitter call
	// that reached the network stage.
	ErrSubmissionFailed = errors.New("claim: submission failed")
)

// ClaimRequest is the body of a reward claim.
type ClaimRequest struct {
	Name        string        `json:"name"`
	PhoneNumber string        `json:"phoneNumber"`
	Score       int           `json:"score"`
	Reward      loudness.Tier `json:"reward"`
}

// AttemptRequest records an attempt without personal data.
type AttemptRequest struct {
	PeakLoudness int    `json:"peakLoudness"`
	DurationMs   int64  `json:"durationMs"`
	SessionID    string `json:"sessionId"`
}

// AttemptResult is the backend's classification of an attempt.
type AttemptResult struct {
	Reward  loudness.Tier `json:"reward"`
	Message string        `json:"message,omitempty"`
}

// ClaimRecord is the backend's view of a claimed reward. It is read-only on
// this side.
type ClaimRecord struct {
	ID          string        `json:"_id"`
	Name        string        `json:"name"`
	PhoneNumber string        `json:"phoneNumber"`
	UniqueKey   string        `json:"uniqueKey"`
	Score       int           `json:"score"`
	Reward      loudness.Tier `json:"reward"`
	IsClaimed   bool          `json:"isClaimed"`
	ClaimedAt   *time.Time    `json:"claimedAt,omitempty"`
	ActiveUntil *time.Time    `json:"activeUntil,omitempty"`
}

// Submitter delivers results to the reward backend.
type Submitter interface {
	// ClaimReward registers a reward for a named player.
	ClaimReward(ctx context.Context, req ClaimRequest) (ClaimRecord, error)

	// SubmitAttempt records an anonymous attempt.
	SubmitAttempt(ctx context.Context, req AttemptRequest) (AttemptResult, error)
}

// SubmissionError describes a failed Submitter call. It always matches
// [ErrSubmissionFailed] with errors.Is.
type SubmissionError struct {
	// Op is the backend operation, e.g. "claim-reward".
	Op string

	// StatusCode is the HTTP status, or 0 when no response was received.
	StatusCode int

	// Message is the backend's message field, or a generic description.
	Message string

	// Err is the underlying transport or breaker error, if any.
	Err error
}

func (e *SubmissionError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("claim: %s: status %d: %s", e.Op, e.StatusCode, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("claim: %s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("claim: %s: %s", e.Op, e.Message)
	}
}

func (e *SubmissionError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrSubmissionFailed}
	}
	return []error{ErrSubmissionFailed, e.Err}
}

// Rejected reports whether the backend answered with a 4xx status, meaning
// the request itself was refused and a retry elsewhere would not help.
func (e *SubmissionError) Rejected() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// UserMessage returns the text to show a player for err.
func UserMessage(err error) string {
	var se *SubmissionError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	if errors.Is(err, ErrInvalidPhone) {
		return "Please enter a valid 10-digit phone number."
	}
	return "Failed to submit"
}
