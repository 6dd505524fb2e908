package history_test

import (
	"context"
	"strings"
	"sync"

	"github.com/Sumatoshi-tech/gitorigin/pkg/history"
)

// fakeCommit is one commit of a linear scripted history. Records are
// name-status lines ("A\tpath", "R100\told\tnew", "D\tpath", ...).
type fakeCommit struct {
	id      history.CommitID
	date    string
	records []string
}

// fakeRepo answers Querier calls from a linear history, oldest commit first.
type fakeRepo struct {
	commits []fakeCommit

	mu    sync.Mutex
	calls map[string]int
	err   map[string]error
}

func newFakeRepo(commits ...fakeCommit) *fakeRepo {
	return &fakeRepo{
		commits: commits,
		calls:   make(map[string]int),
		err:     make(map[string]error),
	}
}

func (f *fakeRepo) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.calls[op]
}

func (f *fakeRepo) record(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls[op]++

	return f.err[op]
}

func (f *fakeRepo) CommitsTouching(_ context.Context, path string, boundary history.CommitID) ([]history.CommitID, error) {
	err := f.record(history.OpCommitsTouching)
	if err != nil {
		return nil, err
	}

	last := len(f.commits) - 1

	if boundary != "" {
		last = -1

		for i, c := range f.commits {
			if c.id == boundary {
				last = i
			}
		}
	}

	var out []history.CommitID

	for i := 0; i <= last; i++ {
		if touches(f.commits[i], path) {
			out = append(out, f.commits[i].id)
		}
	}

	return out, nil
}

func (f *fakeRepo) ChangeRecord(_ context.Context, commit history.CommitID, path string) (string, error) {
	err := f.record(history.OpChangeRecord)
	if err != nil {
		return "", err
	}

	for _, c := range f.commits {
		if c.id != commit {
			continue
		}

		for _, rec := range c.records {
			fields := strings.Split(rec, "\t")
			if fields[len(fields)-1] == path {
				return rec, nil
			}
		}
	}

	return "", nil
}

func (f *fakeRepo) CommitDate(_ context.Context, commit history.CommitID, _, format string) (string, error) {
	err := f.record(history.OpCommitDate)
	if err != nil {
		return "", err
	}

	for _, c := range f.commits {
		if c.id == commit {
			if format == "%Y" {
				return c.date[:4], nil
			}

			return c.date, nil
		}
	}

	return "", nil
}

func touches(c fakeCommit, path string) bool {
	for _, rec := range c.records {
		fields := strings.Split(rec, "\t")
		for _, f := range fields[1:] {
			if f == path {
				return true
			}
		}
	}

	return false
}

// scriptedQuerier returns canned answers keyed by path and commit.
type scriptedQuerier struct {
	touching map[string][]history.CommitID
	records  map[string]string
	dates    map[history.CommitID]string
}

func (s *scriptedQuerier) CommitsTouching(_ context.Context, path string, _ history.CommitID) ([]history.CommitID, error) {
	return s.touching[path], nil
}

func (s *scriptedQuerier) ChangeRecord(_ context.Context, commit history.CommitID, path string) (string, error) {
	return s.records[string(commit)+":"+path], nil
}

func (s *scriptedQuerier) CommitDate(_ context.Context, commit history.CommitID, _, _ string) (string, error) {
	return s.dates[commit], nil
}
