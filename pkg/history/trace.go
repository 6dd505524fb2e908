package history

import (
	"context"
	"log/slog"
	"strings"
)

// TraceQuerier wraps a Querier and writes every query, its raw output and
// any error to logger. The trace is a debugging side channel; results pass
// through unchanged.
func TraceQuerier(inner Querier, logger *slog.Logger) Querier {
	if logger == nil {
		return inner
	}

	return &tracingQuerier{inner: inner, logger: logger}
}

type tracingQuerier struct {
	inner  Querier
	logger *slog.Logger
}

func (tq *tracingQuerier) CommitsTouching(ctx context.Context, path string, boundary CommitID) ([]CommitID, error) {
	tq.logger.InfoContext(ctx, "query", "op", OpCommitsTouching, "path", path, "boundary", string(boundary))

	commits, err := tq.inner.CommitsTouching(ctx, path, boundary)
	if err != nil {
		tq.logError(ctx, OpCommitsTouching, err)

		return nil, err
	}

	ids := make([]string, len(commits))
	for i, c := range commits {
		ids[i] = string(c)
	}

	tq.logger.InfoContext(ctx, "output", "op", OpCommitsTouching, "count", len(commits), "commits", strings.Join(ids, " "))

	return commits, nil
}

func (tq *tracingQuerier) ChangeRecord(ctx context.Context, commit CommitID, path string) (string, error) {
	tq.logger.InfoContext(ctx, "query", "op", OpChangeRecord, "commit", string(commit), "path", path)

	raw, err := tq.inner.ChangeRecord(ctx, commit, path)
	if err != nil {
		tq.logError(ctx, OpChangeRecord, err)

		return "", err
	}

	tq.logger.InfoContext(ctx, "output", "op", OpChangeRecord, "raw", raw)

	return raw, nil
}

func (tq *tracingQuerier) CommitDate(ctx context.Context, commit CommitID, path, format string) (string, error) {
	tq.logger.InfoContext(ctx, "query", "op", OpCommitDate, "commit", string(commit), "path", path, "format", format)

	date, err := tq.inner.CommitDate(ctx, commit, path, format)
	if err != nil {
		tq.logError(ctx, OpCommitDate, err)

		return "", err
	}

	tq.logger.InfoContext(ctx, "output", "op", OpCommitDate, "date", date)

	return date, nil
}

func (tq *tracingQuerier) logError(ctx context.Context, op string, err error) {
	tq.logger.ErrorContext(ctx, "error", "op", op, "error", err)
}
