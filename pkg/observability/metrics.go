package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricToolCallsTotal    = "gitorigin.mcp.calls.total"
	metricToolCallDuration  = "gitorigin.mcp.call.duration.seconds"
	metricToolCallsFailed   = "gitorigin.mcp.calls.failed"
	metricToolCallsInflight = "gitorigin.mcp.calls.inflight"

	attrOp     = "op"
	attrTool   = "tool"
	attrStatus = "status"

	statusOK    = "ok"
	statusError = "error"
)

// durationBucketBoundaries spans 1ms to 60s: a resolution runs a handful of
// history queries, each bounded by the size of the repository.
var durationBucketBoundaries = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// ToolMetrics counts MCP tool calls by tool and outcome.
type ToolMetrics struct {
	calls    metric.Int64Counter
	duration metric.Float64Histogram
	failed   metric.Int64Counter
	inflight metric.Int64UpDownCounter
}

// NewToolMetrics creates the tool call instruments from mt.
func NewToolMetrics(mt metric.Meter) (*ToolMetrics, error) {
	calls, err := mt.Int64Counter(metricToolCallsTotal,
		metric.WithDescription("MCP tool calls by tool and status"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricToolCallsTotal, err)
	}

	duration, err := mt.Float64Histogram(metricToolCallDuration,
		metric.WithDescription("MCP tool call duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricToolCallDuration, err)
	}

	failed, err := mt.Int64Counter(metricToolCallsFailed,
		metric.WithDescription("MCP tool calls that returned an error result"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricToolCallsFailed, err)
	}

	inflight, err := mt.Int64UpDownCounter(metricToolCallsInflight,
		metric.WithDescription("MCP tool calls in progress"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricToolCallsInflight, err)
	}

	return &ToolMetrics{calls: calls, duration: duration, failed: failed, inflight: inflight}, nil
}

// StartCall marks a call to tool as in progress. The returned function ends
// it and records its duration and outcome.
func (tm *ToolMetrics) StartCall(ctx context.Context, tool string) func(failed bool) {
	start := time.Now()
	toolAttr := metric.WithAttributes(attribute.String(attrTool, tool))

	tm.inflight.Add(ctx, 1, toolAttr)

	return func(failed bool) {
		tm.inflight.Add(ctx, -1, toolAttr)

		status := statusOK
		if failed {
			status = statusError

			tm.failed.Add(ctx, 1, toolAttr)
		}

		attrs := metric.WithAttributes(attribute.String(attrTool, tool), attribute.String(attrStatus, status))

		tm.calls.Add(ctx, 1, attrs)
		tm.duration.Record(ctx, time.Since(start).Seconds(), attrs)
	}
}
