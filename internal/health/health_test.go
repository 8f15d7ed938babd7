package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func pass(context.Context) error { return nil }

func decode(t *testing.T, rec *httptest.ResponseRecorder) report {
	t.Helper()
	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	var rep report
	if err := json.NewDecoder(rec.Body).Decode(&rep); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return rep
}

func TestHealthz(t *testing.T) {
	t.Parallel()
	h := New(Checker{Name: "claim_api", Check: func(context.Context) error { return errors.New("down") }})

	rec := httptest.NewRecorder()
	h.Healthz(rec, httptest.NewRequest("GET", "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if rep := decode(t, rec); rep.Status != "ok" || rep.Checks != nil {
		t.Errorf("report = %+v, want bare ok", rep)
	}
}

func TestReadyz(t *testing.T) {
	t.Parallel()

	fail := func(context.Context) error { return errors.New("circuit open") }
	tests := []struct {
		name       string
		checkers   []Checker
		wantStatus int
		want       map[string]string
	}{
		{
			name:       "no checkers",
			wantStatus: http.StatusOK,
			want:       map[string]string{},
		},
		{
			name:       "all pass",
			checkers:   []Checker{{Name: "claim_api", Check: pass}, {Name: "config", Check: pass}},
			wantStatus: http.StatusOK,
			want:       map[string]string{"claim_api": "ok", "config": "ok"},
		},
		{
			name:       "one fails",
			checkers:   []Checker{{Name: "claim_api", Check: fail}, {Name: "config", Check: pass}},
			wantStatus: http.StatusServiceUnavailable,
			want:       map[string]string{"claim_api": "fail", "config": "ok"},
		},
		{
			name:       "all fail",
			checkers:   []Checker{{Name: "claim_api", Check: fail}, {Name: "config", Check: fail}},
			wantStatus: http.StatusServiceUnavailable,
			want:       map[string]string{"claim_api": "fail", "config": "fail"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := httptest.NewRecorder()
			New(tt.checkers...).Readyz(rec, httptest.NewRequest("GET", "/readyz", nil))
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			rep := decode(t, rec)
			wantOverall := "ok"
			if tt.wantStatus != http.StatusOK {
				wantOverall = "fail"
			}
			if rep.Status != wantOverall {
				t.Errorf("status field = %q, want %q", rep.Status, wantOverall)
			}
			if len(rep.Checks) != len(tt.want) {
				t.Fatalf("checks = %+v, want %v", rep.Checks, tt.want)
			}
			for name, want := range tt.want {
				got := rep.Checks[name]
				if got.Status != want {
					t.Errorf("%s = %q, want %q", name, got.Status, want)
				}
				if want == "fail" && got.Error != "circuit open" {
					t.Errorf("%s error = %q", name, got.Error)
				}
			}
		})
	}
}

func TestReadyz_CheckTimeout(t *testing.T) {
	t.Parallel()
	h := New(Checker{
		Name:    "claim_api",
		Timeout: 20 * time.Millisecond,
		Check: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	})

	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest("GET", "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
	if got := decode(t, rec).Checks["claim_api"].Error; got != context.DeadlineExceeded.Error() {
		t.Errorf("error = %q, want deadline exceeded", got)
	}
}

func TestReadyz_RequestCancelled(t *testing.T) {
	t.Parallel()
	h := New(Checker{Name: "slow", Check: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest("GET", "/readyz", nil).WithContext(ctx))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestReadyz_ChecksRunConcurrently(t *testing.T) {
	t.Parallel()

	// Each check waits for the other; sequential evaluation would time out.
	a, b := make(chan struct{}), make(chan struct{})
	wait := func(mine, other chan struct{}) func(context.Context) error {
		return func(ctx context.Context) error {
			close(mine)
			select {
			case <-other:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	h := New(
		Checker{Name: "a", Check: wait(a, b), Timeout: time.Second},
		Checker{Name: "b", Check: wait(b, a), Timeout: time.Second},
	)

	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest("GET", "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestRegister(t *testing.T) {
	t.Parallel()
	mux := http.NewServeMux()
	New(Checker{Name: "config", Check: pass}).Register(mux)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want %d", path, rec.Code, http.StatusOK)
		}
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("POST", "/readyz", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /readyz = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}

func TestBreaker(t *testing.T) {
	t.Parallel()

	open := func() []string { return []string{"https://a.example.com", "https://b.example.com"} }
	tests := []struct {
		name    string
		healthy func() bool
		open    func() []string
		wantErr string
	}{
		{"not configured", nil, nil, ""},
		{"closed", func() bool { return true }, open, ""},
		{"open", func() bool { return false }, nil, "circuit open"},
		{"open with endpoints", func() bool { return false }, open, "circuit open: https://a.example.com, https://b.example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := Breaker("claim_api", tt.healthy, tt.open)
			if c.Name != "claim_api" {
				t.Errorf("Name = %q", c.Name)
			}
			err := c.Check(context.Background())
			switch {
			case tt.wantErr == "" && err != nil:
				t.Errorf("Check() = %v, want nil", err)
			case tt.wantErr != "" && (err == nil || err.Error() != tt.wantErr):
				t.Errorf("Check() = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfigLoaded(t *testing.T) {
	t.Parallel()

	loaded := false
	c := ConfigLoaded(func() bool { return loaded })
	if err := c.Check(context.Background()); err == nil {
		t.Error("expected failure before load")
	}
	loaded = true
	if err := c.Check(context.Background()); err != nil {
		t.Errorf("Check() after load = %v", err)
	}
	if err := ConfigLoaded(nil).Check(context.Background()); err == nil {
		t.Error("nil loader should fail")
	}
}
