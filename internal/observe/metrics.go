// Package observe provides application-wide observability primitives for
// woohoo: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all woohoo metrics.
const meterName = "github.com/MrWong99/woohoo"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use.
type Metrics struct {
	// --- Challenge ---

	// Attempts counts finished capture sessions. Attributes:
	//   attribute.String("strategy", ...), attribute.String("reason", ...)
	Attempts metric.Int64Counter

	// PeakScore records each attempt's peak score.
	PeakScore metric.Int64Histogram

	// Rewards counts classified tiers. Attribute: attribute.String("tier", ...)
	Rewards metric.Int64Counter

	// CaptureDuration tracks how long each capture actually ran.
	CaptureDuration metric.Float64Histogram

	// CaptureErrors counts sessions that never captured or died early.
	// Attribute: attribute.String("kind", ...)
	CaptureErrors metric.Int64Counter

	// ActiveSessions tracks the number of live capture sessions.
	ActiveSessions metric.Int64UpDownCounter

	// --- Reward API ---

	// Submissions counts reward API calls. Attributes:
	//   attribute.String("op", ...), attribute.String("status", ...)
	Submissions metric.Int64Counter

	// SubmissionDuration tracks reward API latency by op.
	SubmissionDuration metric.Float64Histogram

	// BreakerTransitions counts circuit breaker state changes. Attributes:
	//   attribute.String("endpoint", ...), attribute.String("to", ...)
	BreakerTransitions metric.Int64Counter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks request latency by mux route. Attributes:
	//   attribute.String("method", ...), attribute.String("route", ...),
	//   attribute.String("status", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets (seconds) fit reward API round trips.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// captureBuckets (seconds) fit the fixed capture window and early exits.
var captureBuckets = []float64{
	0.5, 1, 2, 4, 6, 8, 9, 10, 11,
}

// scoreBuckets line up with the reward tier thresholds.
var scoreBuckets = []float64{
	0, 350, 600, 850, 1200, 1600, 2000, 2555,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Attempts, err = m.Int64Counter("woohoo.challenge.attempts",
		metric.WithDescription("Finished capture sessions by strategy and stop reason."),
	); err != nil {
		return nil, err
	}
	if met.PeakScore, err = m.Int64Histogram("woohoo.challenge.peak_score",
		metric.WithDescription("Peak score per attempt."),
		metric.WithExplicitBucketBoundaries(scoreBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Rewards, err = m.Int64Counter("woohoo.challenge.rewards",
		metric.WithDescription("Classified reward tiers."),
	); err != nil {
		return nil, err
	}
	if met.CaptureDuration, err = m.Float64Histogram("woohoo.capture.duration",
		metric.WithDescription("Wall time of each capture session."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(captureBuckets...),
	); err != nil {
		return nil, err
	}
	if met.CaptureErrors, err = m.Int64Counter("woohoo.capture.errors",
		metric.WithDescription("Capture failures by kind."),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("woohoo.active_sessions",
		metric.WithDescription("Number of live capture sessions."),
	); err != nil {
		return nil, err
	}

	if met.Submissions, err = m.Int64Counter("woohoo.claim.submissions",
		metric.WithDescription("Reward API calls by operation and status."),
	); err != nil {
		return nil, err
	}
	if met.SubmissionDuration, err = m.Float64Histogram("woohoo.claim.duration",
		metric.WithDescription("Reward API latency by operation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.BreakerTransitions, err = m.Int64Counter("woohoo.claim.breaker_transitions",
		metric.WithDescription("Circuit breaker state changes by endpoint and target state."),
	); err != nil {
		return nil, err
	}

	if met.HTTPRequestDuration, err = m.Float64Histogram("woohoo.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordAttempt records one finished capture session.
func (m *Metrics) RecordAttempt(ctx context.Context, strategy, reason, tier string, peak int, seconds float64) {
	m.Attempts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("strategy", strategy),
		attribute.String("reason", reason),
	))
	m.PeakScore.Record(ctx, int64(peak), metric.WithAttributes(attribute.String("strategy", strategy)))
	m.Rewards.Add(ctx, 1, metric.WithAttributes(attribute.String("tier", tier)))
	m.CaptureDuration.Record(ctx, seconds)
}

// RecordCaptureError records a capture failure of the given kind.
func (m *Metrics) RecordCaptureError(ctx context.Context, kind string) {
	m.CaptureErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordSubmission records one reward API call.
func (m *Metrics) RecordSubmission(ctx context.Context, op, status string, seconds float64) {
	m.Submissions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("status", status),
	))
	m.SubmissionDuration.Record(ctx, seconds, metric.WithAttributes(attribute.String("op", op)))
}

// RecordBreakerTransition records a circuit breaker state change.
func (m *Metrics) RecordBreakerTransition(ctx context.Context, endpoint, to string) {
	m.BreakerTransitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("endpoint", endpoint),
		attribute.String("to", to),
	))
}
