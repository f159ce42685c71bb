// Package observe provides observability primitives for Parlano:
// OpenTelemetry metrics, tracing helpers, and trace-enriched logging.
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

// meterName is the instrumentation scope name used for all Parlano metrics.
const meterName = "github.com/parlano/parlano"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// AttemptScore distributes the 0–100 accuracy scores of completed
	// practice attempts.
	AttemptScore metric.Int64Histogram

	// STTDuration tracks speech-to-text transcription latency.
	STTDuration metric.Float64Histogram

	// Attempts counts completed practice attempts. Use with attributes:
	//   attribute.String("grade", ...), attribute.String("tier", ...)
	Attempts metric.Int64Counter

	// PhrasesGenerated counts phrases produced by the LLM generator.
	PhrasesGenerated metric.Int64Counter

	// ProviderErrors counts provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// ActiveSessions tracks the number of practice sessions in flight.
	ActiveSessions metric.Int64UpDownCounter
}

// scoreBuckets covers the 0–100 accuracy score range.
var scoreBuckets = []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// STT round trips.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.AttemptScore, err = m.Int64Histogram("parlano.attempt.score",
		metric.WithDescription("Accuracy scores of completed practice attempts."),
		metric.WithExplicitBucketBoundaries(scoreBuckets...),
	); err != nil {
		return nil, err
	}
	if met.STTDuration, err = m.Float64Histogram("parlano.stt.duration",
		metric.WithDescription("Latency of speech-to-text transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Attempts, err = m.Int64Counter("parlano.attempts",
		metric.WithDescription("Total completed practice attempts by grade and difficulty tier."),
	); err != nil {
		return nil, err
	}
	if met.PhrasesGenerated, err = m.Int64Counter("parlano.phrases.generated",
		metric.WithDescription("Total phrases produced by the LLM generator."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("parlano.provider.errors",
		metric.WithDescription("Total provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("parlano.active_sessions",
		metric.WithDescription("Number of practice sessions in flight."),
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

// RecordAttempt records one completed practice attempt: the score histogram
// sample plus the attempt counter with grade and tier attributes.
func (m *Metrics) RecordAttempt(ctx context.Context, score int, grade, tier string) {
	m.AttemptScore.Record(ctx, int64(score))
	m.Attempts.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("grade", grade),
			attribute.String("tier", tier),
		),
	)
}

// RecordProviderError records a provider error counter increment.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}
