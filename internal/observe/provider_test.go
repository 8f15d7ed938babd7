package observe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
)

func TestInitProvider(t *testing.T) {
	prevMP, prevTP := otel.GetMeterProvider(), otel.GetTracerProvider()
	t.Cleanup(func() {
		otel.SetMeterProvider(prevMP)
		otel.SetTracerProvider(prevTP)
	})

	tests := []struct {
		name     string
		registry *prometheus.Registry
		want     []string
		wantNot  []string
	}{
		{
			name: "default registry",
			want: []string{"woohoo_challenge_attempts_total", "go_goroutines"},
		},
		{
			name:     "caller registry",
			registry: prometheus.NewRegistry(),
			want:     []string{"woohoo_challenge_attempts_total"},
			wantNot:  []string{"go_goroutines"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			p, err := InitProvider(ctx, ProviderConfig{ServiceVersion: "test", Registry: tt.registry})
			if err != nil {
				t.Fatalf("InitProvider: %v", err)
			}
			defer func() {
				if err := p.Shutdown(ctx); err != nil {
					t.Errorf("Shutdown: %v", err)
				}
			}()

			p.Metrics.RecordAttempt(ctx, "rms", "timeout", "5_day", 1015, 10)

			rec := httptest.NewRecorder()
			p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			body := rec.Body.String()
			for _, w := range tt.want {
				if !strings.Contains(body, w) {
					t.Errorf("scrape missing %q", w)
				}
			}
			for _, w := range tt.wantNot {
				if strings.Contains(body, w) {
					t.Errorf("scrape unexpectedly contains %q", w)
				}
			}

			if _, span := StartSpan(ctx, "probe"); !span.SpanContext().IsValid() {
				t.Error("global tracer provider was not installed")
			}
		})
	}
}
