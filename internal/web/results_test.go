package web

import (
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/MrWong99/woohoo/internal/challenge"
)

func TestResultStore_Expiry(t *testing.T) {
	t.Parallel()

	fc := clockwork.NewFakeClock()
	s := newResultStore(fc, time.Minute)
	s.Put(challenge.Result{SessionID: "a", Peak: 700})

	fc.Advance(59 * time.Second)
	if res, ok := s.Get("a"); !ok || res.Peak != 700 {
		t.Fatalf("Get before expiry = %+v, %v", res, ok)
	}

	fc.Advance(time.Second)
	if _, ok := s.Get("a"); ok {
		t.Error("Get returned an expired result")
	}
	if s.Len() != 0 {
		t.Errorf("Len = %d, want 0 after lazy expiry", s.Len())
	}
}

func TestResultStore_SweepAndTTL(t *testing.T) {
	t.Parallel()

	fc := clockwork.NewFakeClock()
	s := newResultStore(fc, time.Minute)
	s.Put(challenge.Result{SessionID: "old"})
	s.SetTTL(time.Hour)
	s.Put(challenge.Result{SessionID: "new"})

	fc.Advance(2 * time.Minute)
	if n := s.Sweep(); n != 1 {
		t.Fatalf("Sweep = %d, want 1", n)
	}
	if _, ok := s.Get("new"); !ok {
		t.Error("entry stored with the longer TTL was swept")
	}

	s.Delete("new")
	if s.Len() != 0 {
		t.Errorf("Len = %d after Delete", s.Len())
	}
}

func TestResultStore_Reserve(t *testing.T) {
	t.Parallel()

	fc := clockwork.NewFakeClock()
	s := newResultStore(fc, time.Minute)
	s.Put(challenge.Result{SessionID: "a", Peak: 700})

	if _, err := s.Reserve("missing"); !errors.Is(err, errUnknownSession) {
		t.Errorf("Reserve(missing) = %v, want errUnknownSession", err)
	}
	res, err := s.Reserve("a")
	if err != nil || res.Peak != 700 {
		t.Fatalf("Reserve = %+v, %v", res, err)
	}
	if _, err := s.Reserve("a"); !errors.Is(err, errClaimInProgress) {
		t.Errorf("second Reserve = %v, want errClaimInProgress", err)
	}

	// A reservation outlives the TTL so an in-flight claim can still fail
	// back into the store.
	fc.Advance(2 * time.Minute)
	if n := s.Sweep(); n != 1 {
		t.Errorf("Sweep = %d, want reserved entry kept", n)
	}

	s.Release("a")
	if _, err := s.Reserve("a"); !errors.Is(err, errUnknownSession) {
		t.Errorf("Reserve after release past expiry = %v, want errUnknownSession", err)
	}
}

func TestResultStore_ReleaseAllowsRetry(t *testing.T) {
	t.Parallel()

	s := newResultStore(clockwork.NewFakeClock(), time.Minute)
	s.Put(challenge.Result{SessionID: "a"})
	if _, err := s.Reserve("a"); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	s.Release("a")
	if _, err := s.Reserve("a"); err != nil {
		t.Errorf("Reserve after Release: %v", err)
	}
}
