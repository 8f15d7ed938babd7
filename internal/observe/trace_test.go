package observe

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// useTestTracer installs an in-memory tracer provider as the global one for
// the duration of the test.
func useTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return exp
}

// captureLogs routes the default logger into a buffer for the duration of
// the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestCorrelationID(t *testing.T) {
	useTestTracer(t)

	if got := CorrelationID(context.Background()); got != "" {
		t.Errorf("CorrelationID(background) = %q, want empty", got)
	}

	seen := make(map[string]bool)
	for range 20 {
		ctx, span := StartSpan(context.Background(), "challenge.run")
		cid := CorrelationID(ctx)
		span.End()

		if len(cid) != 32 || strings.Trim(cid, "0123456789abcdef") != "" {
			t.Fatalf("correlation ID %q is not 32 hex digits", cid)
		}
		if seen[cid] {
			t.Fatalf("duplicate correlation ID %s", cid)
		}
		seen[cid] = true
	}
}

func TestFail(t *testing.T) {
	exp := useTestTracer(t)

	_, span := StartSpan(context.Background(), "challenge.run")
	Fail(span, errors.New("microphone unplugged"), "stream lost")
	span.End()

	spans := exp.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("recorded %d spans, want 1", len(spans))
	}
	got := spans[0]
	if got.Status.Code != codes.Error || got.Status.Description != "stream lost" {
		t.Errorf("status = %+v, want error %q", got.Status, "stream lost")
	}
	if len(got.Events) != 1 || got.Events[0].Name != "exception" {
		t.Errorf("events = %+v, want one exception event", got.Events)
	}
}

func TestSessionLogger(t *testing.T) {
	useTestTracer(t)

	tests := []struct {
		name      string
		withSpan  bool
		sessionID string
		want      []string
		wantNot   []string
	}{
		{
			name:      "span and session",
			withSpan:  true,
			sessionID: "session-1",
			want:      []string{"trace_id=", "span_id=", "session_id=session-1"},
		},
		{
			name:      "session only",
			sessionID: "session-2",
			want:      []string{"session_id=session-2"},
			wantNot:   []string{"trace_id="},
		},
		{
			name:    "neither",
			wantNot: []string{"trace_id=", "session_id="},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureLogs(t)
			ctx := context.Background()
			if tt.withSpan {
				c, s := StartSpan(ctx, "scream")
				defer s.End()
				ctx = c
			}

			SessionLogger(ctx, tt.sessionID).Info("challenge: attempt finished")

			out := buf.String()
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("log %q missing %q", out, w)
				}
			}
			for _, w := range tt.wantNot {
				if strings.Contains(out, w) {
					t.Errorf("log %q unexpectedly contains %q", out, w)
				}
			}
		})
	}
}
