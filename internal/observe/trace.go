package observe

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracerName is the instrumentation scope name for the woohoo tracer.
const tracerName = "github.com/MrWong99/woohoo"

// Tracer returns the package-level [trace.Tracer] for woohoo. It uses the
// globally registered [trace.TracerProvider].
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartSpan starts a new span and returns the updated context and span. The
// caller must call span.End() when done.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, opts...)
}

// Fail records err on span and marks it failed with the given short status
// description, e.g. "permission_denied".
func Fail(span trace.Span, err error, status string) {
	span.RecordError(err)
	span.SetStatus(codes.Error, status)
}

// CorrelationID extracts the trace ID from the OTel span context in ctx, or
// "" when there is none. The web server echoes it as X-Correlation-ID so a
// player's bug report can be matched to logs.
func CorrelationID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}

// Logger returns the default logger enriched with trace_id and span_id from
// ctx. Without an active span it is [slog.Default] unchanged.
func Logger(ctx context.Context) *slog.Logger {
	l := slog.Default()
	sc := trace.SpanContextFromContext(ctx)
	if sc.HasTraceID() {
		l = l.With(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	return l
}

// SessionLogger is [Logger] with a session_id attribute. An empty id is
// omitted.
func SessionLogger(ctx context.Context, sessionID string) *slog.Logger {
	l := Logger(ctx)
	if sessionID != "" {
		l = l.With(slog.String("session_id", sessionID))
	}
	return l
}
