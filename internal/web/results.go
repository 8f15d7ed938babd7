package web

import (
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/MrWong99/woohoo/internal/challenge"
)

// resultStore keeps finished attempts claimable for a bounded time, keyed
// by session ID. Expired entries are dropped lazily and by Sweep.
type resultStore struct {
	clock clockwork.Clock

	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]storedResult
}

type storedResult struct {
	res      challenge.Result
	expires  time.Time
	claiming bool
}

var (
	errUnknownSession  = errors.New("web: unknown or expired session")
	errClaimInProgress = errors.New("web: claim already in flight")
)

func newResultStore(clock clockwork.Clock, ttl time.Duration) *resultStore {
	return &resultStore{
		clock:   clock,
		ttl:     ttl,
		entries: make(map[string]storedResult),
	}
}

// SetTTL changes the lifetime of entries stored from now on.
func (s *resultStore) SetTTL(ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ttl = ttl
}

func (s *resultStore) Put(res challenge.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[res.SessionID] = storedResult{res: res, expires: s.clock.Now().Add(s.ttl)}
}

func (s *resultStore) Get(id string) (challenge.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return challenge.Result{}, false
	}
	if !e.claiming && !s.clock.Now().Before(e.expires) {
		delete(s.entries, id)
		return challenge.Result{}, false
	}
	return e.res, true
}

// Reserve marks the entry for id as being claimed. Only one caller holds
// the reservation at a time; others get errClaimInProgress until Release or
// Delete. A reserved entry does not expire.
func (s *resultStore) Reserve(id string) (challenge.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return challenge.Result{}, errUnknownSession
	}
	if e.claiming {
		return challenge.Result{}, errClaimInProgress
	}
	if !s.clock.Now().Before(e.expires) {
		delete(s.entries, id)
		return challenge.Result{}, errUnknownSession
	}
	e.claiming = true
	s.entries[id] = e
	return e.res, nil
}

// Release gives up a reservation so the entry can be claimed again. The
// original expiry is kept.
func (s *resultStore) Release(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[id]; ok {
		e.claiming = false
		s.entries[id] = e
	}
}

func (s *resultStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
}

// Sweep drops expired entries and returns how many remain.
func (s *resultStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	for id, e := range s.entries {
		if !e.claiming && !now.Before(e.expires) {
			delete(s.entries, id)
		}
	}
	return len(s.entries)
}

func (s *resultStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
