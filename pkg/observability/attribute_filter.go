package observability

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// exportedNamespaces are the span attribute namespaces gitorigin emits:
// history.* from the resolver, batch.* from ResolveAll, mcp.* from tool
// calls and error.* from failures. Anything else is dropped before export,
// since attributes added by instrumented libraries may carry file contents.
var exportedNamespaces = []string{
	"history.",
	"batch.",
	"mcp.",
	"error.",
}

// exportable reports whether key belongs to one of exportedNamespaces.
func exportable(key attribute.Key) bool {
	for _, ns := range exportedNamespaces {
		if strings.HasPrefix(string(key), ns) {
			return true
		}
	}

	return false
}

// spanAttributeFilter hands spans to the exporting processor with only
// exportable attributes.
type spanAttributeFilter struct {
	next    sdktrace.SpanProcessor
	logger  *slog.Logger
	dropped sync.Map
}

// NewAttributeFilter wraps next so that exported spans keep only gitorigin's
// attribute namespaces. Each dropped key is logged once at debug level when
// logger is non-nil.
func NewAttributeFilter(next sdktrace.SpanProcessor, logger *slog.Logger) sdktrace.SpanProcessor {
	return &spanAttributeFilter{next: next, logger: logger}
}

func (f *spanAttributeFilter) OnStart(parent context.Context, s sdktrace.ReadWriteSpan) {
	f.next.OnStart(parent, s)
}

// OnEnd passes a read-only view of s with the foreign attributes removed.
func (f *spanAttributeFilter) OnEnd(s sdktrace.ReadOnlySpan) {
	f.next.OnEnd(&exportView{ReadOnlySpan: s, filter: f})
}

func (f *spanAttributeFilter) Shutdown(ctx context.Context) error {
	err := f.next.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("span filter shutdown: %w", err)
	}

	return nil
}

func (f *spanAttributeFilter) ForceFlush(ctx context.Context) error {
	err := f.next.ForceFlush(ctx)
	if err != nil {
		return fmt.Errorf("span filter flush: %w", err)
	}

	return nil
}

func (f *spanAttributeFilter) noteDropped(span string, key attribute.Key) {
	if f.logger == nil {
		return
	}

	if _, seen := f.dropped.LoadOrStore(key, struct{}{}); seen {
		return
	}

	f.logger.Debug("span attribute not exported", "span", span, "key", string(key))
}

type exportView struct {
	sdktrace.ReadOnlySpan

	filter *spanAttributeFilter
}

func (v *exportView) Attributes() []attribute.KeyValue {
	all := v.ReadOnlySpan.Attributes()
	kept := make([]attribute.KeyValue, 0, len(all))

	for _, kv := range all {
		if !exportable(kv.Key) {
			v.filter.noteDropped(v.Name(), kv.Key)

			continue
		}

		kept = append(kept, kv)
	}

	return kept
}
