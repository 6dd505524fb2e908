package observability_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Sumatoshi-tech/gitorigin/pkg/history"
	"github.com/Sumatoshi-tech/gitorigin/pkg/observability"
)

func jsonLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()

	var records []map[string]any

	for line := range strings.Lines(buf.String()) {
		var record map[string]any

		require.NoError(t, json.Unmarshal([]byte(line), &record))

		records = append(records, record)
	}

	return records
}

func TestTracingHandler_HopLogsCarryResolveSpan(t *testing.T) {
	t.Parallel()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	t.Cleanup(func() { require.NoError(t, tp.Shutdown(context.Background())) })

	var buf bytes.Buffer

	cfg := observability.DefaultConfig()
	cfg.ServiceVersion = "1.4.0"
	cfg.Environment = "ci"

	inner := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(observability.NewTracingHandler(inner, cfg))

	resolver := history.NewResolver(renamedOnce{}, history.Options{Logger: logger, Tracer: tp.Tracer("gitorigin")})

	_, _, err := resolver.Resolve(context.Background(), "new.go")
	require.NoError(t, err)

	var resolveSpan tracetest.SpanStub

	for _, span := range exporter.GetSpans() {
		if span.Name == "history.resolve" {
			resolveSpan = span
		}
	}

	records := jsonLines(t, &buf)
	require.NotEmpty(t, records)

	hop := records[0]
	assert.Equal(t, "following rename", hop["msg"])
	assert.Equal(t, resolveSpan.SpanContext.TraceID().String(), hop["trace_id"])
	assert.Equal(t, resolveSpan.SpanContext.SpanID().String(), hop["span_id"])
	assert.Equal(t, "gitorigin", hop["service"])
	assert.Equal(t, "1.4.0", hop["version"])
	assert.Equal(t, "ci", hop["env"])
	assert.Equal(t, "cli", hop["mode"])
}

func TestTracingHandler_WithoutSpan(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	cfg := observability.DefaultConfig()
	cfg.Mode = observability.ModeMCP

	inner := slog.NewJSONHandler(&buf, nil)
	logger := slog.New(observability.NewTracingHandler(inner, cfg))

	logger.InfoContext(context.Background(), "not under version control", "path", "missing.go")

	records := jsonLines(t, &buf)
	require.Len(t, records, 1)

	assert.NotContains(t, records[0], "trace_id")
	assert.NotContains(t, records[0], "version")
	assert.NotContains(t, records[0], "env")
	assert.Equal(t, "mcp", records[0]["mode"])
	assert.Equal(t, "missing.go", records[0]["path"])
}

func TestTracingHandler_GroupsAndAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	inner := slog.NewJSONHandler(&buf, nil)
	logger := slog.New(observability.NewTracingHandler(inner, observability.DefaultConfig()))

	logger.With("repo", "/src/app").WithGroup("hop").Info("following rename", "from", "old.go", "to", "new.go")

	records := jsonLines(t, &buf)
	require.Len(t, records, 1)

	assert.Equal(t, "gitorigin", records[0]["service"])
	assert.Equal(t, "/src/app", records[0]["repo"])

	hop, ok := records[0]["hop"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"from": "old.go", "to": "new.go"}, hop)
}

func TestTracingHandler_RespectsLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	inner := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelError})
	logger := slog.New(observability.NewTracingHandler(inner, observability.DefaultConfig()))

	logger.Info("not under version control")
	logger.Error("unexpected change record")

	records := jsonLines(t, &buf)
	require.Len(t, records, 1)
	assert.Equal(t, "unexpected change record", records[0]["msg"])
}
