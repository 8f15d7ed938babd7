// Package resilience provides the circuit breaker and endpoint failover used
// in front of the reward API.
//
// [CircuitBreaker] is a classic three-state breaker
// (closed → open → half-open) that stops the challenge from hammering an
// unreachable backend while a player waits. [FallbackGroup] tries a primary
// and zero or more fallback endpoints, each behind its own breaker.
//
// Errors that say the backend is healthy but refused the request (bad
// input, duplicate claim) can be excluded from failure accounting with
// [CircuitBreakerConfig.IsFailure].
//
// All types are safe for concurrent use.
package resilience

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// ErrCircuitOpen is returned by [CircuitBreaker.Execute] when the breaker is in
// the open state and the reset timeout has not yet elapsed.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State represents the current operating mode of a [CircuitBreaker].
type State int

const (
	// StateClosed forwards every call.
	StateClosed State = iota

	// StateOpen rejects calls with [ErrCircuitOpen] until the reset timeout
	// elapses.
	StateOpen

	// StateHalfOpen lets a limited number of probe calls through. Enough
	// successes close the breaker; any failure re-opens it.
	StateHalfOpen
)

// String returns the human-readable name of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig holds tuning knobs for a [CircuitBreaker].
type CircuitBreakerConfig struct {
	// Name is a human-readable label used in log messages and metrics.
	Name string

	// MaxFailures is the number of consecutive failures in the closed state
	// before the breaker opens. Default: 5.
	MaxFailures int

	// ResetTimeout is how long the breaker stays open before transitioning to
	// half-open. Default: 30s.
	ResetTimeout time.Duration

	// HalfOpenMax is the number of successful probes needed in the half-open
	// state before the breaker closes. Default: 3.
	HalfOpenMax int

	// IsFailure reports whether err counts against the breaker. Nil counts
	// every non-nil error. Context cancellation never counts.
	IsFailure func(err error) bool

	// OnStateChange, if set, is called after every transition. It runs
	// without the breaker lock held.
	OnStateChange func(name string, from, to State)

	// Clock defaults to the wall clock.
	Clock clockwork.Clock
}

// CircuitBreaker implements the three-state circuit breaker pattern.
// It is safe for concurrent use from multiple goroutines.
type CircuitBreaker struct {
	name          string
	maxFailures   int
	resetTimeout  time.Duration
	halfOpenMax   int
	isFailure     func(error) bool
	onStateChange func(string, State, State)
	clock         clockwork.Clock

	mu              sync.Mutex
	state           State
	consecutiveFail int
	lastFailure     time.Time
	halfOpenCalls   int
	halfOpenOK      int
}

// NewCircuitBreaker creates a [CircuitBreaker] with the supplied configuration.
// Zero-value config fields are replaced with defaults.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.HalfOpenMax <= 0 {
		cfg.HalfOpenMax = 3
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return &CircuitBreaker{
		name:          cfg.Name,
		maxFailures:   cfg.MaxFailures,
		resetTimeout:  cfg.ResetTimeout,
		halfOpenMax:   cfg.HalfOpenMax,
		isFailure:     cfg.IsFailure,
		onStateChange: cfg.OnStateChange,
		clock:         cfg.Clock,
		state:         StateClosed,
	}
}

// Name returns the configured label.
func (cb *CircuitBreaker) Name() string { return cb.name }

// Execute runs fn if the breaker allows it. In the open state it returns
// [ErrCircuitOpen] without calling fn. In the half-open state at most
// HalfOpenMax probes are in flight at once. A context that is already done
// short-circuits without touching the breaker.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cb.mu.Lock()
	var notify func()
	switch cb.state {
	case StateOpen:
		if cb.clock.Since(cb.lastFailure) < cb.resetTimeout {
			cb.mu.Unlock()
			return ErrCircuitOpen
		}
		notify = cb.transitionLocked(StateHalfOpen)
		cb.halfOpenCalls = 0
		cb.halfOpenOK = 0
		slog.Info("circuit breaker transitioning to half-open", "name", cb.name)

	case StateHalfOpen:
		if cb.halfOpenCalls-cb.halfOpenOK >= cb.halfOpenMax {
			cb.mu.Unlock()
			return ErrCircuitOpen
		}
	}

	inHalfOpen := cb.state == StateHalfOpen
	if inHalfOpen {
		cb.halfOpenCalls++
	}
	cb.mu.Unlock()
	runNotify(notify)

	err := fn(ctx)

	cb.mu.Lock()
	switch {
	case err == nil || !cb.counts(err):
		notify = cb.recordSuccess(inHalfOpen)
	default:
		notify = cb.recordFailure(inHalfOpen)
	}
	cb.mu.Unlock()
	runNotify(notify)

	return err
}

func (cb *CircuitBreaker) counts(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if cb.isFailure == nil {
		return true
	}
	return cb.isFailure(err)
}

// recordFailure handles failure accounting. Must be called with cb.mu held.
func (cb *CircuitBreaker) recordFailure(inHalfOpen bool) func() {
	cb.lastFailure = cb.clock.Now()

	if inHalfOpen {
		cb.consecutiveFail = cb.maxFailures
		if cb.state == StateOpen {
			return nil
		}
		slog.Warn("circuit breaker re-opened from half-open", "name", cb.name)
		return cb.transitionLocked(StateOpen)
	}

	cb.consecutiveFail++
	if cb.state == StateClosed && cb.consecutiveFail >= cb.maxFailures {
		slog.Warn("circuit breaker opened",
			"name", cb.name,
			"consecutive_failures", cb.consecutiveFail)
		return cb.transitionLocked(StateOpen)
	}
	return nil
}

// recordSuccess handles success accounting. Must be called with cb.mu held.
func (cb *CircuitBreaker) recordSuccess(inHalfOpen bool) func() {
	if !inHalfOpen {
		cb.consecutiveFail = 0
		return nil
	}
	if cb.state != StateHalfOpen {
		return nil
	}
	cb.halfOpenOK++
	if cb.halfOpenOK < cb.halfOpenMax {
		return nil
	}
	cb.consecutiveFail = 0
	cb.halfOpenCalls = 0
	cb.halfOpenOK = 0
	slog.Info("circuit breaker closed after successful probes", "name", cb.name)
	return cb.transitionLocked(StateClosed)
}

// transitionLocked switches state and returns the notification to run once
// the lock is released.
func (cb *CircuitBreaker) transitionLocked(to State) func() {
	from := cb.state
	cb.state = to
	if cb.onStateChange == nil || from == to {
		return nil
	}
	fn, name := cb.onStateChange, cb.name
	return func() { fn(name, from, to) }
}

func runNotify(fn func()) {
	if fn != nil {
		fn()
	}
}

// State returns the current [State] of the breaker. If the breaker is open and
// the reset timeout has elapsed, the returned state is [StateHalfOpen] (the
// actual transition happens on the next [CircuitBreaker.Execute] call).
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen && cb.clock.Since(cb.lastFailure) >= cb.resetTimeout {
		return StateHalfOpen
	}
	return cb.state
}

// Reset manually forces the breaker back to [StateClosed], clearing all failure
// counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	cb.consecutiveFail = 0
	cb.halfOpenCalls = 0
	cb.halfOpenOK = 0
	notify := cb.transitionLocked(StateClosed)
	cb.mu.Unlock()

	runNotify(notify)
	slog.Info("circuit breaker manually reset", "name", cb.name)
}
