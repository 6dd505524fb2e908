package gitlib

import (
	"context"
	"fmt"
	"slices"

	"github.com/lestrrat-go/strftime"

	"github.com/Sumatoshi-tech/gitorigin/pkg/history"
)

// Querier answers history queries from a libgit2 repository.
// It is not safe for concurrent use; open one Repository per goroutine.
type Querier struct {
	repo *Repository
}

var _ history.Querier = (*Querier)(nil)

// NewQuerier creates a Querier over repo.
func NewQuerier(repo *Repository) *Querier {
	return &Querier{repo: repo}
}

// CommitsTouching lists commits touching path, earliest first. The walk
// starts at boundary, or at HEAD when boundary is empty.
func (q *Querier) CommitsTouching(ctx context.Context, path string, boundary history.CommitID) ([]history.CommitID, error) {
	start, ok, err := q.start(boundary)
	if err != nil || !ok {
		return nil, err
	}

	hashes, err := q.repo.PathHistory(ctx, start, path)
	if err != nil {
		return nil, fmt.Errorf("path history of %s: %w", path, err)
	}

	slices.Reverse(hashes)

	commits := make([]history.CommitID, len(hashes))
	for i, h := range hashes {
		commits[i] = history.CommitID(h.String())
	}

	return commits, nil
}

// ChangeRecord returns the name-status line for path in commit, or an empty
// string when the commit did not touch path. The commit must be a full hash
// as returned by CommitsTouching.
func (q *Querier) ChangeRecord(_ context.Context, commit history.CommitID, path string) (string, error) {
	hash, err := ParseHash(string(commit))
	if err != nil {
		return "", err
	}

	change, found, err := q.repo.PathChangeAt(hash, path)
	if err != nil || !found {
		return "", err
	}

	return change.NameStatus(), nil
}

// CommitDate formats the committer date of commit in the committer's own
// time zone, as `git log --date=format:` does.
func (q *Querier) CommitDate(_ context.Context, commit history.CommitID, _, format string) (string, error) {
	hash, err := ParseHash(string(commit))
	if err != nil {
		return "", err
	}

	c, err := q.repo.LookupCommit(hash)
	if err != nil {
		return "", err
	}
	defer c.Free()

	formatted, err := strftime.Format(format, c.Committer().When)
	if err != nil {
		return "", fmt.Errorf("format date with %q: %w", format, err)
	}

	return formatted, nil
}

func (q *Querier) start(boundary history.CommitID) (Hash, bool, error) {
	if boundary != "" {
		hash, err := q.repo.ResolveRevision(string(boundary))
		if err != nil {
			return Hash{}, false, err
		}

		return hash, true, nil
	}

	unborn, err := q.repo.HeadUnborn()
	if err != nil {
		return Hash{}, false, err
	}

	if unborn {
		return Hash{}, false, nil
	}

	head, err := q.repo.Head()
	if err != nil {
		return Hash{}, false, err
	}

	return head, true, nil
}
