// Package challenge runs the scream challenge end to end: it wires a
// capture session to the score engine, classifies the final peak, and hands
// the result to the reward API.
//
// A [Runner] allows one attempt at a time. Only attempts that ran the full
// capture window produce a stored result; that result survives failed
// submissions so the player can retry the claim without screaming again.
package challenge

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/attribute"

	"github.com/MrWong99/woohoo/internal/observe"
	"github.com/MrWong99/woohoo/pkg/audio"
	"github.com/MrWong99/woohoo/pkg/capture"
	"github.com/MrWong99/woohoo/pkg/claim"
	"github.com/MrWong99/woohoo/pkg/loudness"
)

var (
	// ErrSessionActive is returned by Run while another attempt is running.
	ErrSessionActive = errors.New("challenge: a session is already active")

	// ErrNoSubmitter is returned by Claim and SubmitAttempt when the runner
	// has no reward API configured.
	ErrNoSubmitter = errors.New("challenge: no reward API configured")

	// ErrClaimInProgress is returned by Claim while another claim for the
	// same session is being submitted.
	ErrClaimInProgress = errors.New("challenge: a claim for this attempt is already in flight")

	// ErrIncomplete is returned by Run when the capture stopped before the
	// window elapsed.
	ErrIncomplete = errors.New("challenge: attempt did not complete")
)

// DefaultDisplayMax is the score that fills a meter to 100 %.
const DefaultDisplayMax = 1300

// Config tunes a [Runner].
type Config struct {
	// Capture configures each session. Its Domain is overridden to match the
	// strategy.
	Capture capture.Config

	// Strategy is a [loudness.StrategyByName] name. Default: "rms".
	Strategy string

	// DisplayMax is the meter's visual maximum. Default: [DefaultDisplayMax].
	DisplayMax int
}

// Hooks receive live progress from [Runner.Run]. They run on the capture
// goroutine and must return quickly. Nil hooks are skipped.
type Hooks struct {
	// OnStart is called once the microphone is live.
	OnStart func(sessionID string)

	// OnReading is called for every snapshot.
	OnReading func(loudness.Reading)

	// OnCountdown is called once per second with the whole seconds left.
	OnCountdown func(remaining int)
}

// Option configures a [Runner].
type Option func(*Runner)

// WithClock replaces the wall clock for the runner and its sessions.
func WithClock(c clockwork.Clock) Option {
	return func(r *Runner) { r.clock = c }
}

// WithMetrics records attempt and submission metrics. Default:
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithSessionIDs replaces the session ID generator.
func WithSessionIDs(fn func() string) Option {
	return func(r *Runner) { r.newID = fn }
}

// Runner orchestrates attempts against one capture source. It is safe for
// concurrent use, but Run admits a single attempt at a time.
type Runner struct {
	cfg      Config
	strategy loudness.Strategy
	src      capture.Source
	clock    clockwork.Clock
	metrics  *observe.Metrics
	newID    func() string
	claims   *Claimer

	mu       sync.Mutex
	active   bool
	last     *Result
	claiming map[string]bool
}

// NewRunner creates a runner reading from src. submitter may be nil, in
// which case Claim and SubmitAttempt return [ErrNoSubmitter].
func NewRunner(src capture.Source, submitter claim.Submitter, cfg Config, opts ...Option) (*Runner, error) {
	if src == nil {
		return nil, errors.New("challenge: capture source must not be nil")
	}
	strategy, err := loudness.StrategyByName(cfg.Strategy)
	if err != nil {
		return nil, fmt.Errorf("challenge: %w", err)
	}
	cfg.Capture.Domain = strategy.Domain()
	if err := cfg.Capture.Validate(); err != nil {
		return nil, fmt.Errorf("challenge: capture config: %w", err)
	}
	if cfg.DisplayMax <= 0 {
		cfg.DisplayMax = DefaultDisplayMax
	}

	r := &Runner{
		cfg:      cfg,
		strategy: strategy,
		src:      src,
		clock:    clockwork.NewRealClock(),
		newID:    uuid.NewString,
	}
	for _, o := range opts {
		o(r)
	}
	if r.metrics == nil {
		r.metrics = observe.DefaultMetrics()
	}
	r.claims = NewClaimer(submitter, r.clock, r.metrics)
	return r, nil
}

// Strategy returns the active scoring strategy.
func (r *Runner) Strategy() loudness.Strategy { return r.strategy }

// DisplayMax returns the meter's visual maximum.
func (r *Runner) DisplayMax() int { return r.cfg.DisplayMax }

// Run performs one attempt and blocks until the capture window elapses,
// ctx is cancelled, or the stream fails. Cancelling ctx stops the capture.
//
// A completed attempt is returned with a nil error and becomes [Runner.Last].
// Otherwise the partial result is returned together with the open error, the
// stream error, or [ErrIncomplete] wrapping ctx.Err().
func (r *Runner) Run(ctx context.Context, hooks Hooks) (Result, error) {
	r.mu.Lock()
	if r.active {
		r.mu.Unlock()
		return Result{}, ErrSessionActive
	}
	r.active = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.active = false
		r.mu.Unlock()
	}()

	ctx, span := observe.StartSpan(ctx, "challenge.run")
	defer span.End()

	res := Result{SessionID: r.newID(), Strategy: r.strategy.Name()}
	span.SetAttributes(
		attribute.String("session_id", res.SessionID),
		attribute.String("strategy", res.Strategy),
	)
	log := observe.SessionLogger(ctx, res.SessionID)

	engine := loudness.NewEngine(r.strategy)
	timeDomain := r.strategy.Domain() == audio.DomainTime
	var peakRMS float64

	sess := capture.New(r.src, r.cfg.Capture, capture.WithClock(r.clock))
	sess.OnSample(func(s capture.Sample) {
		reading := engine.Feed(s.Data)
		if timeDomain {
			peakRMS = max(peakRMS, loudness.RMS(s.Data))
		}
		if hooks.OnReading != nil {
			hooks.OnReading(reading)
		}
	})
	if hooks.OnCountdown != nil {
		sess.OnCountdown(hooks.OnCountdown)
	}

	if err := sess.Start(ctx); err != nil {
		kind := captureErrorKind(err)
		r.metrics.RecordCaptureError(ctx, kind)
		observe.Fail(span, err, kind)
		log.Warn("challenge: capture failed to start", "kind", kind, "err", err)
		res.Reason = sess.StopReason()
		return res, err
	}

	r.metrics.ActiveSessions.Add(ctx, 1)
	defer r.metrics.ActiveSessions.Add(context.WithoutCancel(ctx), -1)

	res.StartedAt = sess.StartTime()
	if hooks.OnStart != nil {
		hooks.OnStart(res.SessionID)
	}
	log.Info("challenge: capture started", "strategy", res.Strategy, "duration", sess.Duration())

	select {
	case <-sess.Done():
	case <-ctx.Done():
		_ = sess.Stop()
	}

	// The session goroutine has exited; engine and peakRMS are ours again.
	out := engine.Result()
	res.Peak = out.Peak
	res.Tier = out.Tier
	res.Samples = out.Samples
	res.PeakRMS = peakRMS
	if timeDomain {
		res.DBFS = loudness.DBFS(peakRMS)
	}
	res.Duration = min(r.clock.Since(res.StartedAt), sess.Duration())
	res.Reason = sess.StopReason()

	mctx := context.WithoutCancel(ctx)
	r.metrics.RecordAttempt(mctx, res.Strategy, res.Reason.String(), string(res.Tier), res.Peak, res.Duration.Seconds())
	span.SetAttributes(
		attribute.Int("peak", res.Peak),
		attribute.String("tier", string(res.Tier)),
		attribute.String("reason", res.Reason.String()),
	)

	switch res.Reason {
	case capture.StopTimeout:
		r.mu.Lock()
		stored := res
		r.last = &stored
		r.mu.Unlock()
		log.Info("challenge: attempt finished",
			"peak", res.Peak,
			"tier", res.Tier,
			"samples", res.Samples,
			"dbfs", res.DBFS,
		)
		return res, nil

	case capture.StopError:
		err := sess.Err()
		r.metrics.RecordCaptureError(mctx, "stream_lost")
		observe.Fail(span, err, "stream lost")
		log.Warn("challenge: capture stream lost", "err", err)
		return res, err

	default:
		cause := ctx.Err()
		if cause == nil {
			cause = context.Canceled
		}
		log.Info("challenge: attempt cancelled", "peak", res.Peak)
		return res, fmt.Errorf("%w: %w", ErrIncomplete, cause)
	}
}

func captureErrorKind(err error) string {
	switch {
	case errors.Is(err, capture.ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, capture.ErrDeviceUnavailable):
		return "device_unavailable"
	case errors.Is(err, capture.ErrStopped), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "open_failed"
	}
}

// Last returns the most recent completed attempt that has not been claimed
// or reset.
func (r *Runner) Last() (Result, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last == nil {
		return Result{}, false
	}
	return *r.last, true
}

// Reset discards the stored result so the next attempt starts clean.
func (r *Runner) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = nil
}

// Claim submits res as a reward claim for the named player. Validation
// errors are returned before any network call. Concurrent claims for one
// session fail with [ErrClaimInProgress]. On success the stored result for
// the same session is cleared; on failure it is kept for a retry.
func (r *Runner) Claim(ctx context.Context, res Result, name, phone string) (claim.ClaimRecord, error) {
	r.mu.Lock()
	if r.claiming[res.SessionID] {
		r.mu.Unlock()
		return claim.ClaimRecord{}, ErrClaimInProgress
	}
	if r.claiming == nil {
		r.claiming = make(map[string]bool)
	}
	r.claiming[res.SessionID] = true
	r.mu.Unlock()

	rec, err := r.claims.Claim(ctx, res, name, phone)

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.claiming, res.SessionID)
	if err != nil {
		return claim.ClaimRecord{}, err
	}
	if r.last != nil && r.last.SessionID == res.SessionID {
		r.last = nil
	}
	return rec, nil
}

// SubmitAttempt records res anonymously with the reward API.
func (r *Runner) SubmitAttempt(ctx context.Context, res Result) (claim.AttemptResult, error) {
	return r.claims.SubmitAttempt(ctx, res)
}
