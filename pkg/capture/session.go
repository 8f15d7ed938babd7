package capture

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/MrWong99/woohoo/pkg/audio"
)

// State is the lifecycle stage of a [Session].
type State int

const (
	StateIdle State = iota
	StateCapturing
	StateStopped
)

// String returns a lowercase name for logs.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCapturing:
		return "capturing"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// StopReason records why a session left [StateCapturing].
type StopReason int

const (
	StopNone StopReason = iota
	// StopTimeout means the capture window elapsed.
	StopTimeout
	// StopCancelled means Stop or Cancel was called.
	StopCancelled
	// StopError means the source failed to open or the stream ended early.
	StopError
)

// String returns a lowercase name for logs and metrics.
func (r StopReason) String() string {
	switch r {
	case StopNone:
		return "none"
	case StopTimeout:
		return "timeout"
	case StopCancelled:
		return "cancelled"
	case StopError:
		return "error"
	default:
		return "unknown"
	}
}

// Option configures a [Session].
type Option func(*Session)

// WithClock replaces the wall clock. Tests pass a [clockwork.FakeClock].
func WithClock(c clockwork.Clock) Option {
	return func(s *Session) {
		s.clock = c
	}
}

// Session is a single timed capture. Create one per attempt with [New];
// a stopped session cannot be restarted.
type Session struct {
	src   Source
	cfg   Config
	clock clockwork.Clock

	onSample    func(Sample)
	onCountdown func(remaining int)

	mu          sync.Mutex
	state       State
	reason      StopReason
	err         error
	starting    bool
	loopRunning bool
	startTime   time.Time

	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	doneOnce sync.Once
}

// New creates an idle session reading from src. cfg is completed with
// defaults; call [Config.Validate] first to surface configuration errors.
func New(src Source, cfg Config, opts ...Option) *Session {
	s := &Session{
		src:    src,
		cfg:    cfg.withDefaults(),
		clock:  clockwork.NewRealClock(),
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// OnSample registers the per-tick callback. Must be called before Start.
// Callbacks run on the session goroutine and must not call [Session.Stop];
// use [Session.Cancel] instead.
func (s *Session) OnSample(fn func(Sample)) { s.onSample = fn }

// OnCountdown registers the once-per-second callback reporting the whole
// seconds remaining. The first call happens as soon as capture begins.
func (s *Session) OnCountdown(fn func(remaining int)) { s.onCountdown = fn }

// Config returns the effective configuration.
func (s *Session) Config() Config { return s.cfg }

// Start opens the source and begins capturing. It blocks only while the
// source is opening. ctx bounds the open; use Stop to end the capture.
//
// A failed open moves the session straight to [StateStopped] and returns
// the source error. If Stop was called while the source was opening, the
// fresh stream is closed and [ErrStopped] is returned.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	switch {
	case s.starting || s.state == StateCapturing:
		s.mu.Unlock()
		return ErrAlreadyStarted
	case s.state == StateStopped:
		s.mu.Unlock()
		return ErrStopped
	}
	s.starting = true
	s.mu.Unlock()

	stream, err := s.src.Open(ctx)

	s.mu.Lock()
	s.starting = false
	if err != nil {
		s.stopLocked(StopError, err)
		s.mu.Unlock()
		s.markDone()
		return fmt.Errorf("capture: open source: %w", err)
	}
	if s.stopRequested() {
		s.stopLocked(StopCancelled, nil)
		s.mu.Unlock()
		closeStream(stream)
		s.markDone()
		return ErrStopped
	}

	g, err := newGraph(s.cfg, stream.SampleRate())
	if err != nil {
		s.stopLocked(StopError, err)
		s.mu.Unlock()
		closeStream(stream)
		s.markDone()
		return err
	}

	s.startTime = s.clock.Now()
	s.state = StateCapturing
	s.loopRunning = true

	// Timers start only once the stream is live so that a slow permission
	// prompt does not eat into the capture window.
	t := timers{
		frame:     s.clock.NewTicker(s.cfg.FrameInterval),
		countdown: s.clock.NewTicker(time.Second),
		hardStop:  s.clock.NewTimer(s.cfg.Duration),
	}
	s.mu.Unlock()

	slog.Debug("capture: session started",
		"duration", s.cfg.Duration,
		"domain", s.cfg.Domain,
		"sampleRate", stream.SampleRate(),
	)

	go s.loop(stream, g, t)
	return nil
}

type timers struct {
	frame     clockwork.Ticker
	countdown clockwork.Ticker
	hardStop  clockwork.Timer
}

func (t timers) stop() {
	t.frame.Stop()
	t.countdown.Stop()
	t.hardStop.Stop()
}

func (s *Session) loop(stream Stream, g *graph, t timers) {
	reason := StopCancelled
	var streamErr error
	defer func() {
		s.release(stream, g, t, reason, streamErr)
	}()

	frames := stream.Frames()
	s.emitCountdown(s.remaining())

	for {
		select {
		case <-s.stopCh:
			return

		case <-t.hardStop.Chan():
			reason = StopTimeout
			return

		case f, ok := <-frames:
			if !ok {
				reason, streamErr = StopError, streamError(stream)
				return
			}
			g.push(f)

		case <-t.frame.Chan():
			if !drain(frames, g) {
				reason, streamErr = StopError, streamError(stream)
				return
			}
			if s.stopRequested() {
				return
			}
			if s.onSample != nil {
				s.onSample(Sample{
					Domain:  s.cfg.Domain,
					Data:    g.snapshot(),
					Elapsed: s.clock.Since(s.startTime),
				})
			}

		case <-t.countdown.Chan():
			remaining := s.remaining()
			s.emitCountdown(remaining)
			if remaining <= 0 {
				reason = StopTimeout
				return
			}
		}
	}
}

// drain feeds every frame already queued into the graph. It reports false
// when the stream has ended.
func drain(frames <-chan audio.AudioFrame, g *graph) bool {
	for {
		select {
		case f, ok := <-frames:
			if !ok {
				return false
			}
			g.push(f)
		default:
			return true
		}
	}
}

func (s *Session) emitCountdown(remaining int) {
	if s.onCountdown == nil || s.stopRequested() {
		return
	}
	s.onCountdown(remaining)
}

// remaining returns the whole seconds left in the capture window, rounded
// up and never negative.
func (s *Session) remaining() int {
	left := s.cfg.Duration - s.clock.Since(s.startTime)
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left.Seconds()))
}

// release is the single teardown path once the loop has run.
func (s *Session) release(stream Stream, g *graph, t timers, reason StopReason, err error) {
	t.stop()
	g.disconnect()
	closeStream(stream)

	s.mu.Lock()
	s.stopLocked(reason, err)
	s.loopRunning = false
	s.mu.Unlock()

	s.requestStop()
	s.markDone()

	slog.Debug("capture: session stopped", "reason", reason, "err", err)
}

// Cancel asks the session to stop without waiting. Safe from callbacks and
// from any state.
func (s *Session) Cancel() {
	s.requestStop()

	s.mu.Lock()
	idle := s.state == StateIdle && !s.starting
	if idle {
		s.stopLocked(StopCancelled, nil)
	}
	s.mu.Unlock()

	if idle {
		s.markDone()
	}
}

// Stop ends the session and, if capture was running, waits until the loop
// has released the stream so that no callback fires after Stop returns.
// Calling Stop more than once is safe. It must not be called from a
// sample or countdown callback.
func (s *Session) Stop() error {
	s.Cancel()

	s.mu.Lock()
	running := s.loopRunning
	s.mu.Unlock()
	if running {
		<-s.done
	}
	return nil
}

// Done is closed after the session has fully stopped and released its
// resources.
func (s *Session) Done() <-chan struct{} { return s.done }

// Err returns the error that stopped the session: the open error, or the
// stream error when the stream ended mid-capture. It is nil after a
// timeout or an explicit stop.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// State returns the current lifecycle stage.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// StopReason returns why the session stopped, or StopNone while running.
func (s *Session) StopReason() StopReason {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

// StartTime returns the clock reading when capture became live, or the
// zero time before that.
func (s *Session) StartTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startTime
}

// Duration returns the configured capture window.
func (s *Session) Duration() time.Duration { return s.cfg.Duration }

// stopLocked records the terminal state. The first recorded reason wins.
// Caller must hold s.mu.
func (s *Session) stopLocked(reason StopReason, err error) {
	s.state = StateStopped
	if s.reason == StopNone {
		s.reason = reason
		s.err = err
	}
}

func (s *Session) requestStop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

func (s *Session) stopRequested() bool {
	select {
	case <-s.stopCh:
		return true
	default:
		return false
	}
}

func (s *Session) markDone() {
	s.doneOnce.Do(func() { close(s.done) })
}

func closeStream(stream Stream) {
	if err := stream.Close(); err != nil {
		slog.Warn("capture: failed to close stream", "err", err)
	}
}

func streamError(stream Stream) error {
	if err := stream.Err(); err != nil {
		return fmt.Errorf("capture: stream ended: %w", err)
	}
	return fmt.Errorf("capture: stream ended: %w", ErrDeviceUnavailable)
}
