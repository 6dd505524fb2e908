package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricResolutionsTotal   = "gitorigin.resolutions.total"
	metricResolutionDuration = "gitorigin.resolution.duration.seconds"
	metricRenameHops         = "gitorigin.resolution.hops"
	metricQueriesTotal       = "gitorigin.queries.total"
)

var hopBucketBoundaries = []float64{0, 1, 2, 3, 5, 10, 25}

// ResolverMetrics records creation-date resolutions. It satisfies
// history.Recorder.
type ResolverMetrics struct {
	resolutions metric.Int64Counter
	duration    metric.Float64Histogram
	hops        metric.Int64Histogram
	queries     metric.Int64Counter
}

// NewResolverMetrics creates resolver instruments from the given meter.
func NewResolverMetrics(mt metric.Meter) (*ResolverMetrics, error) {
	resolutions, err := mt.Int64Counter(metricResolutionsTotal,
		metric.WithDescription("Resolutions by outcome"),
		metric.WithUnit("{resolution}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricResolutionsTotal, err)
	}

	duration, err := mt.Float64Histogram(metricResolutionDuration,
		metric.WithDescription("Resolution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricResolutionDuration, err)
	}

	hops, err := mt.Int64Histogram(metricRenameHops,
		metric.WithDescription("Renames followed per resolution"),
		metric.WithUnit("{hop}"),
		metric.WithExplicitBucketBoundaries(hopBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRenameHops, err)
	}

	queries, err := mt.Int64Counter(metricQueriesTotal,
		metric.WithDescription("History queries by operation"),
		metric.WithUnit("{query}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricQueriesTotal, err)
	}

	return &ResolverMetrics{
		resolutions: resolutions,
		duration:    duration,
		hops:        hops,
		queries:     queries,
	}, nil
}

// RecordResolution records one finished resolution.
// Safe to call on a nil receiver (no-op).
func (rm *ResolverMetrics) RecordResolution(ctx context.Context, status string, hops int, duration time.Duration) {
	if rm == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String(attrStatus, status))

	rm.resolutions.Add(ctx, 1, attrs)
	rm.duration.Record(ctx, duration.Seconds(), attrs)
	rm.hops.Record(ctx, int64(hops), attrs)
}

// RecordQuery counts one history query.
func (rm *ResolverMetrics) RecordQuery(ctx context.Context, op string) {
	if rm == nil {
		return
	}

	rm.queries.Add(ctx, 1, metric.WithAttributes(attribute.String(attrOp, op)))
}
