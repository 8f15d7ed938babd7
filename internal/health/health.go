// Package health serves the liveness and readiness probes.
//
//   - /healthz answers 200 while the process can serve HTTP.
//   - /readyz answers 200 only when every registered [Checker] passes.
//
// Both reply with JSON: a top-level "status" of "ok" or "fail" and, for
// /readyz, one entry per check under "checks".
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultCheckTimeout bounds a check that sets no Timeout of its own.
const DefaultCheckTimeout = 5 * time.Second

// Checker is a named readiness check.
type Checker struct {
	// Name labels the check in the response, e.g. "claim_api".
	Name string

	// Check returns nil when the dependency is usable. It must respect
	// context cancellation.
	Check func(ctx context.Context) error

	// Timeout overrides [DefaultCheckTimeout] when positive.
	Timeout time.Duration
}

func (c Checker) run(ctx context.Context) checkResult {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultCheckTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	err := c.Check(ctx)
	res := checkResult{Status: "ok", LatencyMS: time.Since(start).Milliseconds()}
	if err != nil {
		res.Status, res.Error = "fail", err.Error()
	}
	return res
}

type checkResult struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

type report struct {
	Status string                 `json:"status"`
	Checks map[string]checkResult `json:"checks,omitempty"`
}

// Handler serves the probes. The checker list is fixed at construction.
type Handler struct {
	checkers []Checker
}

// New creates a [Handler] for the given readiness checks.
func New(checkers ...Checker) *Handler {
	return &Handler{checkers: append([]Checker(nil), checkers...)}
}

// Healthz always reports ok.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, report{Status: "ok"})
}

// Readyz runs every check concurrently and reports 503 if any failed.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	rep := report{Status: "ok", Checks: make(map[string]checkResult, len(h.checkers))}
	var mu sync.Mutex

	var g errgroup.Group
	for _, c := range h.checkers {
		g.Go(func() error {
			res := c.run(r.Context())
			mu.Lock()
			rep.Checks[c.Name] = res
			if res.Status != "ok" {
				rep.Status = "fail"
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	status := http.StatusOK
	if rep.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, rep)
}

// Register adds GET /healthz and GET /readyz to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
