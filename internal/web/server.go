// Package web serves the browser edition of the scream challenge.
//
// Routes:
//
//   - GET /ws/scream: WebSocket; one attempt per connection. The browser
//     streams microphone PCM and receives countdown, reading, and result
//     messages.
//   - POST /api/claim: claims the reward for a finished attempt.
//   - GET /healthz, GET /readyz: liveness and readiness.
//   - GET /metrics: Prometheus scrape endpoint.
//
// Finished attempts are kept server-side for a bounded time so the claim
// carries the score the server measured, not one reported by the client.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/woohoo/internal/challenge"
	"github.com/MrWong99/woohoo/internal/health"
	"github.com/MrWong99/woohoo/internal/observe"
	"github.com/MrWong99/woohoo/internal/resilience"
	"github.com/MrWong99/woohoo/pkg/capture"
	"github.com/MrWong99/woohoo/pkg/claim"
	"github.com/MrWong99/woohoo/pkg/loudness"
)

const (
	// DefaultResultTTL is how long a finished attempt stays claimable.
	DefaultResultTTL = 15 * time.Minute

	sweepInterval   = time.Minute
	shutdownTimeout = 5 * time.Second
)

// Config tunes a [Server]. It can be replaced at runtime with
// [Server.Update].
type Config struct {
	// Challenge configures every attempt.
	Challenge challenge.Config

	// ResultTTL bounds how long a finished attempt can be claimed.
	// Default: [DefaultResultTTL].
	ResultTTL time.Duration

	// AllowedOrigins are extra WebSocket origin patterns. The request host
	// is always accepted.
	AllowedOrigins []string

	// SubmitAttempts records every finished attempt with the reward API in
	// the background.
	SubmitAttempts bool
}

// Validate checks the challenge settings.
func (c Config) Validate() error {
	strategy, err := loudness.StrategyByName(c.Challenge.Strategy)
	if err != nil {
		return fmt.Errorf("web: %w", err)
	}
	cc := c.Challenge.Capture
	cc.Domain = strategy.Domain()
	if err := cc.Validate(); err != nil {
		return fmt.Errorf("web: capture config: %w", err)
	}
	if c.ResultTTL < 0 {
		return fmt.Errorf("web: result ttl %v must not be negative", c.ResultTTL)
	}
	return nil
}

// Option configures a [Server].
type Option func(*Server)

// WithClock replaces the wall clock for attempts and result expiry.
func WithClock(c clockwork.Clock) Option {
	return func(s *Server) { s.clock = c }
}

// WithMetrics replaces [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithSessionIDs replaces the session ID generator.
func WithSessionIDs(fn func() string) Option {
	return func(s *Server) { s.newID = fn }
}

// WithMetricsHandler replaces the handler behind GET /metrics. The default
// serves the global Prometheus registry.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metricsHandler = h }
}

// WithReadinessChecks adds checks to /readyz next to the reward API check.
func WithReadinessChecks(checks ...health.Checker) Option {
	return func(s *Server) { s.checks = append(s.checks, checks...) }
}

// Server owns the HTTP routes and the per-session state. It is safe for
// concurrent use.
type Server struct {
	clock          clockwork.Clock
	metrics        *observe.Metrics
	metricsHandler http.Handler
	newID          func() string
	checks         []health.Checker
	results        *resultStore

	mu        sync.RWMutex
	cfg       Config
	submitter claim.Submitter
	claimer   *challenge.Claimer
}

// New creates a server. submitter may be nil, in which case claims answer
// 503.
func New(cfg Config, submitter claim.Submitter, opts ...Option) (*Server, error) {
	if cfg.ResultTTL == 0 {
		cfg.ResultTTL = DefaultResultTTL
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Server{
		clock: clockwork.NewRealClock(),
		cfg:   cfg,
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	if s.metricsHandler == nil {
		s.metricsHandler = promhttp.Handler()
	}
	s.results = newResultStore(s.clock, cfg.ResultTTL)
	s.SetSubmitter(submitter)
	return s, nil
}

// Update swaps the challenge settings, result TTL and attempt submission.
// Running attempts keep the settings they started with.
func (s *Server) Update(cfg Config) error {
	if cfg.ResultTTL == 0 {
		cfg.ResultTTL = DefaultResultTTL
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.cfg.Challenge = cfg.Challenge
	s.cfg.ResultTTL = cfg.ResultTTL
	s.cfg.SubmitAttempts = cfg.SubmitAttempts
	s.mu.Unlock()
	s.results.SetTTL(cfg.ResultTTL)
	return nil
}

// SetSubmitter replaces the reward API client.
func (s *Server) SetSubmitter(submitter claim.Submitter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitter = submitter
	s.claimer = challenge.NewClaimer(submitter, s.clock, s.metrics)
}

func (s *Server) snapshot() (Config, *challenge.Claimer) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg, s.claimer
}

// claimHealthy reports whether the reward API has a usable endpoint. A
// submitter without breakers is always healthy.
func (s *Server) claimHealthy() bool {
	s.mu.RLock()
	sub := s.submitter
	s.mu.RUnlock()
	if h, ok := sub.(interface{ Healthy() bool }); ok {
		return h.Healthy()
	}
	return true
}

// openEndpoints lists reward API endpoints whose circuit is open, sorted.
func (s *Server) openEndpoints() []string {
	s.mu.RLock()
	sub := s.submitter
	s.mu.RUnlock()
	b, ok := sub.(interface {
		BreakerStates() map[string]resilience.State
	})
	if !ok {
		return nil
	}
	var open []string
	for name, state := range b.BreakerStates() {
		if state == resilience.StateOpen {
			open = append(open, name)
		}
	}
	slices.Sort(open)
	return open
}

// Handler returns the routes wrapped in the observe middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws/scream", s.handleScream)
	mux.HandleFunc("POST /api/claim", s.handleClaim)
	mux.Handle("GET /metrics", s.metricsHandler)

	checks := append([]health.Checker{health.Breaker("claim_api", s.claimHealthy, s.openEndpoints)}, s.checks...)
	health.New(checks...).Register(mux)

	return observe.Middleware(s.metrics)(mux)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully. Attempts in flight are cancelled with ctx. When certFile is
// non-empty the listener serves TLS.
func (s *Server) Serve(ctx context.Context, ln net.Listener, certFile, keyFile string) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if certFile != "" {
			err = srv.ServeTLS(ln, certFile, keyFile)
		} else {
			err = srv.Serve(ln)
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		s.sweep(gctx)
		return nil
	})

	slog.Info("web: listening", "addr", ln.Addr().String(), "tls", certFile != "")
	return g.Wait()
}

func (s *Server) sweep(ctx context.Context) {
	ticker := s.clock.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if n := s.results.Sweep(); n > 0 {
				slog.Debug("web: claimable results", "count", n)
			}
		}
	}
}

func (s *Server) runnerOptions() []challenge.Option {
	opts := []challenge.Option{
		challenge.WithClock(s.clock),
		challenge.WithMetrics(s.metrics),
	}
	if s.newID != nil {
		opts = append(opts, challenge.WithSessionIDs(s.newID))
	}
	return opts
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("web: write response", "err", err)
	}
}

// captureMessage is the player-facing text for a failed attempt.
func captureMessage(err error) string {
	switch {
	case errors.Is(err, capture.ErrPermissionDenied):
		return "Microphone access was denied. Allow microphone access and try again."
	case errors.Is(err, capture.ErrDeviceUnavailable):
		return "No microphone is available. Check your device and try again."
	case errors.Is(err, challenge.ErrIncomplete):
		return "The attempt was interrupted. Please try again."
	default:
		return "Something went wrong. Please try again."
	}
}
