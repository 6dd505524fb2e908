package history

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"
)

// DefaultDateFormat yields the four-digit year, as used in copyright headers.
const DefaultDateFormat = "%Y"

// Resolution outcomes reported to a Recorder.
const (
	StatusFound     = "found"
	StatusUntracked = "untracked"
	StatusError     = "error"
)

// Query operation names reported to a Recorder and used in span names.
const (
	OpCommitsTouching = "commits_touching"
	OpChangeRecord    = "change_record"
	OpCommitDate      = "commit_date"
)

const spanPrefix = "history."

// Recorder receives resolution measurements.
type Recorder interface {
	RecordResolution(ctx context.Context, status string, hops int, duration time.Duration)
	RecordQuery(ctx context.Context, op string)
}

// Options configures a Resolver. Zero values select defaults.
type Options struct {
	// DateFormat is a strftime-style format. Empty means DefaultDateFormat.
	DateFormat string
	// MaxHops bounds the number of renames followed. Zero means unlimited.
	MaxHops int
	// Logger receives debug traces of each hop. Nil discards them.
	Logger *slog.Logger
	// Tracer creates one span per resolution and per query. Nil disables tracing.
	Tracer trace.Tracer
	// Metrics records outcomes. Nil disables metrics.
	Metrics Recorder
}

// Resolver finds file creation dates through renames.
// It holds no per-call state and is safe for concurrent use when its Querier is.
type Resolver struct {
	querier Querier
	format  string
	maxHops int
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics Recorder
}

// NewResolver creates a Resolver backed by querier.
func NewResolver(querier Querier, opts Options) *Resolver {
	format := opts.DateFormat
	if format == "" {
		format = DefaultDateFormat
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	tracer := opts.Tracer
	if tracer == nil {
		tracer = nooptrace.NewTracerProvider().Tracer("")
	}

	return &Resolver{
		querier: querier,
		format:  format,
		maxHops: opts.MaxHops,
		logger:  logger,
		tracer:  tracer,
		metrics: opts.Metrics,
	}
}

// Resolve returns where path entered the repository, searching from HEAD.
// The boolean is false, with a nil error, when path has no history at all.
func (r *Resolver) Resolve(ctx context.Context, path string) (Creation, bool, error) {
	return r.ResolveFrom(ctx, path, "")
}

// ResolveFrom is Resolve with the history search bounded to commits
// reachable from from. An empty from searches from HEAD.
func (r *Resolver) ResolveFrom(ctx context.Context, path string, from CommitID) (Creation, bool, error) {
	if path == "" {
		return Creation{}, false, ErrEmptyPath
	}

	start := time.Now()

	ctx, span := r.tracer.Start(ctx, spanPrefix+"resolve", trace.WithAttributes(
		attribute.String("history.path", path),
		attribute.String("history.from", string(from)),
	))
	defer span.End()

	creation, found, err := r.walk(ctx, path, from)

	status := StatusFound

	switch {
	case err != nil:
		status = StatusError

		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.logger.DebugContext(ctx, "resolution failed", "path", path, "error", err)
	case !found:
		status = StatusUntracked

		r.logger.DebugContext(ctx, "not under version control", "path", path)
	default:
		span.SetAttributes(
			attribute.String("history.commit", string(creation.Commit)),
			attribute.Int("history.hops", len(creation.Hops)),
		)
	}

	if r.metrics != nil {
		r.metrics.RecordResolution(ctx, status, len(creation.Hops), time.Since(start))
	}

	return creation, found, err
}

func (r *Resolver) walk(ctx context.Context, path string, boundary CommitID) (Creation, bool, error) {
	current := path
	seen := make(map[CommitID]struct{})

	var hops []Hop

	for {
		commits, err := r.commitsTouching(ctx, current, boundary)
		if err != nil {
			return Creation{}, false, fmt.Errorf("list commits touching %s: %w", current, err)
		}

		if len(commits) == 0 {
			if len(hops) == 0 {
				return Creation{}, false, nil
			}

			return Creation{}, false, fmt.Errorf("%w: %s at %s", ErrRenameSourceMissing, current, boundary)
		}

		earliest := commits[0]

		raw, err := r.changeRecord(ctx, earliest, current)
		if err != nil {
			return Creation{}, false, fmt.Errorf("change record for %s at %s: %w", current, earliest, err)
		}

		rec, ok := ParseChangeRecord(raw)
		if !ok || rec.Path != current {
			return Creation{}, false, &MalformedRecordError{Path: current, Commit: earliest, Raw: raw}
		}

		if rec.Type == Renamed {
			if _, dup := seen[earliest]; dup {
				return Creation{}, false, fmt.Errorf("%w: %s revisited at %s", ErrRenameCycle, rec.Source, earliest)
			}

			if r.maxHops > 0 && len(hops) >= r.maxHops {
				return Creation{}, false, fmt.Errorf("%w: %d", ErrTooManyHops, r.maxHops)
			}

			seen[earliest] = struct{}{}
			hops = append(hops, Hop{Commit: earliest, From: rec.Source, To: current})

			r.logger.DebugContext(ctx, "following rename",
				"commit", earliest, "from", rec.Source, "to", current, "similarity", rec.Similarity)

			current = rec.Source
			boundary = earliest

			continue
		}

		date, err := r.commitDate(ctx, earliest, current)
		if err != nil {
			return Creation{}, false, fmt.Errorf("commit date of %s: %w", earliest, err)
		}

		return Creation{
			Path:   path,
			Origin: current,
			Commit: earliest,
			Change: rec.Type,
			Date:   date,
			Hops:   hops,
		}, true, nil
	}
}

func (r *Resolver) commitsTouching(ctx context.Context, path string, boundary CommitID) ([]CommitID, error) {
	ctx, span := r.startQuery(ctx, OpCommitsTouching, path)
	defer span.End()

	commits, err := r.querier.CommitsTouching(ctx, path, boundary)
	endQuery(span, err)

	return commits, err
}

func (r *Resolver) changeRecord(ctx context.Context, commit CommitID, path string) (string, error) {
	ctx, span := r.startQuery(ctx, OpChangeRecord, path)
	defer span.End()

	raw, err := r.querier.ChangeRecord(ctx, commit, path)
	endQuery(span, err)

	return raw, err
}

func (r *Resolver) commitDate(ctx context.Context, commit CommitID, path string) (string, error) {
	ctx, span := r.startQuery(ctx, OpCommitDate, path)
	defer span.End()

	date, err := r.querier.CommitDate(ctx, commit, path, r.format)
	endQuery(span, err)

	return date, err
}

func (r *Resolver) startQuery(ctx context.Context, op, path string) (context.Context, trace.Span) {
	if r.metrics != nil {
		r.metrics.RecordQuery(ctx, op)
	}

	return r.tracer.Start(ctx, spanPrefix+op, trace.WithAttributes(attribute.String("history.path", path)))
}

func endQuery(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
