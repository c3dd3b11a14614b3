// Package observe provides the observability primitives for classlite:
// OpenTelemetry metrics, tracing, trace-aware structured logging and HTTP
// middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API and exposed to
// Prometheus through the exporter bridge set up by [InitProvider]. Core
// packages accept a nil *Metrics and skip recording in that case; tests
// should build their own instance with [NewMetrics] and a ManualReader.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all classlite metrics.
const meterName = "github.com/andukdahacker/classlite-sub004"

// Highlight commit modes used as the "mode" attribute.
const (
	ModeDebounced = "debounced"
	ModeImmediate = "immediate"
)

// Metrics holds all OpenTelemetry instruments for the application. The
// instruments handle their own synchronisation.
type Metrics struct {
	// AnchorValidations counts anchor classifications. Attribute: status.
	AnchorValidations metric.Int64Counter

	// SegmentDuration tracks how long building segments and paragraphs takes.
	SegmentDuration metric.Float64Histogram

	// SegmentCount records the number of segments produced per build.
	SegmentCount metric.Int64Histogram

	// HighlightCommits counts committed highlight changes. Attribute: mode.
	HighlightCommits metric.Int64Counter

	// HighlightSuperseded counts debounced writes cancelled by a later write
	// before they could commit.
	HighlightSuperseded metric.Int64Counter

	// ActiveReviews tracks open review sessions.
	ActiveReviews metric.Int64UpDownCounter

	// HTTPRequestDuration tracks request latency. Attributes: method, route.
	HTTPRequestDuration metric.Float64Histogram
}

// segmentBuckets are histogram boundaries (seconds) for in-memory
// segmentation, which normally finishes well under a millisecond.
var segmentBuckets = []float64{
	0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1,
}

// NewMetrics creates all instruments on the given [metric.MeterProvider].
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.AnchorValidations, err = m.Int64Counter("classlite.anchor.validations",
		metric.WithDescription("Anchor classifications by resulting status."),
	); err != nil {
		return nil, err
	}
	if met.SegmentDuration, err = m.Float64Histogram("classlite.segment.duration",
		metric.WithDescription("Time spent building segments and paragraphs."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(segmentBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SegmentCount, err = m.Int64Histogram("classlite.segment.count",
		metric.WithDescription("Segments produced per build."),
	); err != nil {
		return nil, err
	}
	if met.HighlightCommits, err = m.Int64Counter("classlite.highlight.commits",
		metric.WithDescription("Committed highlight changes by mode."),
	); err != nil {
		return nil, err
	}
	if met.HighlightSuperseded, err = m.Int64Counter("classlite.highlight.superseded",
		metric.WithDescription("Debounced highlight writes cancelled before commit."),
	); err != nil {
		return nil, err
	}
	if met.ActiveReviews, err = m.Int64UpDownCounter("classlite.review.active_sessions",
		metric.WithDescription("Number of open review sessions."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("classlite.http.request.duration",
		metric.WithDescription("HTTP request latency by method and route."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call from [otel.GetMeterProvider]. Panics if instrument creation
// fails, which does not happen with the global provider.
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

// RecordAnchorValidation counts one classification. Safe on a nil receiver.
func (m *Metrics) RecordAnchorValidation(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.AnchorValidations.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// RecordSegmentation records the duration (seconds) and size of one build.
// Safe on a nil receiver.
func (m *Metrics) RecordSegmentation(ctx context.Context, seconds float64, segments int) {
	if m == nil {
		return
	}
	m.SegmentDuration.Record(ctx, seconds)
	m.SegmentCount.Record(ctx, int64(segments))
}

// RecordHighlightCommit counts one committed highlight change. Safe on a nil
// receiver.
func (m *Metrics) RecordHighlightCommit(ctx context.Context, mode string) {
	if m == nil {
		return
	}
	m.HighlightCommits.Add(ctx, 1, metric.WithAttributes(attribute.String("mode", mode)))
}

// RecordHighlightSuperseded counts one cancelled debounced write. Safe on a
// nil receiver.
func (m *Metrics) RecordHighlightSuperseded(ctx context.Context) {
	if m == nil {
		return
	}
	m.HighlightSuperseded.Add(ctx, 1)
}

// AddActiveReviews adjusts the open-session gauge. Safe on a nil receiver.
func (m *Metrics) AddActiveReviews(ctx context.Context, delta int64) {
	if m == nil {
		return
	}
	m.ActiveReviews.Add(ctx, delta)
}
