package history

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"
)

// ErrNoQuerierFactory is returned by ResolveAll when BatchOptions.NewQuerier is nil.
var ErrNoQuerierFactory = errors.New("batch: querier factory is required")

// QuerierFactory opens a Querier for one worker. The returned release
// function is called when the worker finishes.
type QuerierFactory func() (Querier, func(), error)

// BatchOptions configures ResolveAll.
type BatchOptions struct {
	// Workers is the number of parallel resolvers. Zero uses the CPU count.
	Workers int
	// NewQuerier is called once per worker; queriers are never shared.
	NewQuerier QuerierFactory
	// Resolver configures every worker's Resolver.
	Resolver Options
}

// BatchResult is the outcome for one input path.
type BatchResult struct {
	Path     string
	Creation Creation
	Found    bool
	Err      error
}

// ResolveAll resolves every path and returns results in input order.
// A failure to resolve one path is stored in its BatchResult; only querier
// setup failures and context cancellation abort the batch.
func ResolveAll(ctx context.Context, paths []string, opts BatchOptions) ([]BatchResult, error) {
	if opts.NewQuerier == nil {
		return nil, ErrNoQuerierFactory
	}

	results := make([]BatchResult, len(paths))
	if len(paths) == 0 {
		return results, nil
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	workers = min(workers, len(paths))

	tracer := opts.Resolver.Tracer
	if tracer == nil {
		tracer = nooptrace.NewTracerProvider().Tracer("")
	}

	ctx, span := tracer.Start(ctx, spanPrefix+"batch", trace.WithAttributes(
		attribute.Int("batch.paths", len(paths)),
		attribute.Int("batch.workers", workers),
	))
	defer span.End()

	group, groupCtx := errgroup.WithContext(ctx)
	jobs := make(chan int)

	group.Go(func() error {
		defer close(jobs)

		for idx := range paths {
			select {
			case jobs <- idx:
			case <-groupCtx.Done():
				return groupCtx.Err()
			}
		}

		return nil
	})

	for range workers {
		group.Go(func() error {
			return runBatchWorker(groupCtx, paths, results, jobs, opts)
		})
	}

	err := group.Wait()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return nil, err
	}

	failures := 0

	for _, res := range results {
		if res.Err != nil {
			failures++
		}
	}

	span.SetAttributes(attribute.Int("batch.failures", failures))

	return results, nil
}

func runBatchWorker(ctx context.Context, paths []string, results []BatchResult, jobs <-chan int, opts BatchOptions) error {
	// libgit2 handles are bound to the thread that opened them.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	querier, release, err := opts.NewQuerier()
	if err != nil {
		return fmt.Errorf("open querier: %w", err)
	}

	if release != nil {
		defer release()
	}

	resolver := NewResolver(querier, opts.Resolver)

	for idx := range jobs {
		err := ctx.Err()
		if err != nil {
			return err
		}

		creation, found, resolveErr := resolver.Resolve(ctx, paths[idx])
		results[idx] = BatchResult{
			Path:     paths[idx],
			Creation: creation,
			Found:    found,
			Err:      resolveErr,
		}
	}

	return nil
}
