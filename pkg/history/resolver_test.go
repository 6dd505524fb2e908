package history_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/gitorigin/pkg/history"
)

const actionlogsController = "administrator/components/com_actionlogs/src/Controller/ActionlogsController.php"

func TestResolve_NeverRenamed(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo(
		fakeCommit{id: "c1", date: "2005-09-01", records: []string{"A\tindex.php"}},
		fakeCommit{id: "c2", date: "2012-01-01", records: []string{"M\tindex.php"}},
	)

	creation, found, err := history.NewResolver(repo, history.Options{}).Resolve(context.Background(), "index.php")
	require.NoError(t, err)
	require.True(t, found)

	assert.Equal(t, "2005", creation.Date)
	assert.Equal(t, history.CommitID("c1"), creation.Commit)
	assert.Equal(t, history.Added, creation.Change)
	assert.Equal(t, "index.php", creation.Origin)
	assert.Empty(t, creation.Hops)
}

func TestResolve_SingleRename(t *testing.T) {
	t.Parallel()

	const oldPath = "administrator/components/com_actionlogs/controllers/actionlogs.php"

	repo := newFakeRepo(
		fakeCommit{id: "c1", date: "2018-05-15", records: []string{"A\t" + oldPath}},
		fakeCommit{id: "c2", date: "2018-09-01", records: []string{"M\t" + oldPath}},
		fakeCommit{id: "c3", date: "2019-04-02", records: []string{"R087\t" + oldPath + "\t" + actionlogsController}},
		fakeCommit{id: "c4", date: "2020-01-01", records: []string{"M\t" + actionlogsController}},
	)

	resolver := history.NewResolver(repo, history.Options{})

	creation, found, err := resolver.Resolve(context.Background(), actionlogsController)
	require.NoError(t, err)
	require.True(t, found)

	assert.Equal(t, "2018", creation.Date)
	assert.Equal(t, oldPath, creation.Origin)
	assert.Equal(t, history.CommitID("c1"), creation.Commit)
	require.Len(t, creation.Hops, 1)
	assert.Equal(t, history.Hop{Commit: "c3", From: oldPath, To: actionlogsController}, creation.Hops[0])

	fromRename, found, err := resolver.ResolveFrom(context.Background(), oldPath, "c3")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, creation.Date, fromRename.Date)
	assert.Equal(t, creation.Commit, fromRename.Commit)
}

func TestResolve_OldPathReusedAfterRename(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo(
		fakeCommit{id: "c1", date: "2010-01-01", records: []string{"A\tlib/old.go"}},
		fakeCommit{id: "c2", date: "2015-01-01", records: []string{"R100\tlib/old.go\tlib/new.go"}},
		fakeCommit{id: "c3", date: "2021-01-01", records: []string{"A\tlib/old.go"}},
	)

	resolver := history.NewResolver(repo, history.Options{})

	creation, found, err := resolver.Resolve(context.Background(), "lib/new.go")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "2010", creation.Date)

	reused, found, err := resolver.Resolve(context.Background(), "lib/old.go")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "2010", reused.Date, "unbounded search sees the earliest use of the path")
}

func TestResolve_Untracked(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo(fakeCommit{id: "c1", date: "2005-01-01", records: []string{"A\tindex.php"}})

	creation, found, err := history.NewResolver(repo, history.Options{}).Resolve(context.Background(), "missing.php")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, history.Creation{}, creation)
	assert.Equal(t, 0, repo.count(history.OpChangeRecord))
}

func TestResolve_RenameChain(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo(
		fakeCommit{id: "c1", date: "2007-02-03", records: []string{"A\ta.txt"}},
		fakeCommit{id: "c2", date: "2009-01-01", records: []string{"R100\ta.txt\tb.txt"}},
		fakeCommit{id: "c3", date: "2011-01-01", records: []string{"R090\tb.txt\tc.txt"}},
		fakeCommit{id: "c4", date: "2013-01-01", records: []string{"R075\tc.txt\td.txt"}},
	)

	creation, found, err := history.NewResolver(repo, history.Options{}).Resolve(context.Background(), "d.txt")
	require.NoError(t, err)
	require.True(t, found)

	assert.Equal(t, "2007", creation.Date)
	assert.Equal(t, "a.txt", creation.Origin)
	require.Len(t, creation.Hops, 3)
	assert.Equal(t, "c.txt", creation.Hops[0].From)
	assert.Equal(t, "a.txt", creation.Hops[2].From)
	assert.Equal(t, 4, repo.count(history.OpCommitsTouching))
	assert.Equal(t, 1, repo.count(history.OpCommitDate))
}

func TestResolve_CopyTerminates(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo(
		fakeCommit{id: "c1", date: "2006-01-01", records: []string{"A\tsrc.php"}},
		fakeCommit{id: "c2", date: "2014-06-01", records: []string{"C080\tsrc.php\tdst.php"}},
	)

	creation, found, err := history.NewResolver(repo, history.Options{}).Resolve(context.Background(), "dst.php")
	require.NoError(t, err)
	require.True(t, found)

	assert.Equal(t, "2014", creation.Date)
	assert.Equal(t, history.Copied, creation.Change)
	assert.Equal(t, "dst.php", creation.Origin)
	assert.Empty(t, creation.Hops)
}

func TestResolve_Idempotent(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo(
		fakeCommit{id: "c1", date: "2011-01-01", records: []string{"A\tWebApplication.php"}},
		fakeCommit{id: "c2", date: "2013-01-01", records: []string{"R100\tWebApplication.php\tlibraries/src/WebApplication.php"}},
	)

	resolver := history.NewResolver(repo, history.Options{})

	first, _, err := resolver.Resolve(context.Background(), "libraries/src/WebApplication.php")
	require.NoError(t, err)

	second, _, err := resolver.Resolve(context.Background(), "libraries/src/WebApplication.php")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestResolve_CustomDateFormat(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo(fakeCommit{id: "c1", date: "2005-09-01", records: []string{"A\tindex.php"}})

	creation, _, err := history.NewResolver(repo, history.Options{DateFormat: "%Y-%m-%d"}).
		Resolve(context.Background(), "index.php")
	require.NoError(t, err)
	assert.Equal(t, "2005-09-01", creation.Date)
}

func TestResolve_MalformedRecord(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		records []string
	}{
		{name: "modified", records: []string{"M\tfile.php"}},
		{name: "type change", records: []string{"T\tfile.php"}},
		{name: "empty", records: nil},
		{name: "added under another path", records: []string{"A\tfile*.php"}},
		{name: "renamed into another path", records: []string{"R100\told.php\tfile2.php"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			q := &scriptedQuerier{
				touching: map[string][]history.CommitID{"file.php": {"c1"}},
				records:  map[string]string{},
			}
			if len(tt.records) > 0 {
				q.records["c1:file.php"] = tt.records[0]
			}

			_, found, err := history.NewResolver(q, history.Options{}).Resolve(context.Background(), "file.php")
			require.Error(t, err)
			assert.False(t, found)
			require.ErrorIs(t, err, history.ErrMalformedChangeRecord)

			var malformed *history.MalformedRecordError
			require.ErrorAs(t, err, &malformed)
			assert.Equal(t, "file.php", malformed.Path)
			assert.Equal(t, history.CommitID("c1"), malformed.Commit)
		})
	}
}

func TestResolve_DeletionIsMalformed(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo(
		fakeCommit{id: "c1", date: "2005-01-01", records: []string{"D\tghost.php"}},
	)

	_, _, err := history.NewResolver(repo, history.Options{}).Resolve(context.Background(), "ghost.php")
	require.ErrorIs(t, err, history.ErrMalformedChangeRecord)
}

func TestResolve_RenameCycle(t *testing.T) {
	t.Parallel()

	q := &scriptedQuerier{
		touching: map[string][]history.CommitID{"a": {"c1"}, "b": {"c1"}},
		records: map[string]string{
			"c1:a": "R100\tb\ta",
			"c1:b": "R100\ta\tb",
		},
	}

	_, found, err := history.NewResolver(q, history.Options{}).Resolve(context.Background(), "a")
	require.ErrorIs(t, err, history.ErrRenameCycle)
	assert.False(t, found)
}

func TestResolve_MaxHops(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo(
		fakeCommit{id: "c1", date: "2001-01-01", records: []string{"A\ta"}},
		fakeCommit{id: "c2", date: "2002-01-01", records: []string{"R100\ta\tb"}},
		fakeCommit{id: "c3", date: "2003-01-01", records: []string{"R100\tb\tc"}},
	)

	_, _, err := history.NewResolver(repo, history.Options{MaxHops: 1}).Resolve(context.Background(), "c")
	require.ErrorIs(t, err, history.ErrTooManyHops)

	creation, _, err := history.NewResolver(repo, history.Options{MaxHops: 2}).Resolve(context.Background(), "c")
	require.NoError(t, err)
	assert.Equal(t, "2001", creation.Date)
}

func TestResolve_RenameSourceMissing(t *testing.T) {
	t.Parallel()

	q := &scriptedQuerier{
		touching: map[string][]history.CommitID{"new": {"c2"}},
		records:  map[string]string{"c2:new": "R100\told\tnew"},
	}

	_, found, err := history.NewResolver(q, history.Options{}).Resolve(context.Background(), "new")
	require.ErrorIs(t, err, history.ErrRenameSourceMissing)
	assert.False(t, found)
}

func TestResolve_EmptyPath(t *testing.T) {
	t.Parallel()

	_, _, err := history.NewResolver(newFakeRepo(), history.Options{}).Resolve(context.Background(), "")
	require.ErrorIs(t, err, history.ErrEmptyPath)
}

func TestResolve_PropagatesQuerierError(t *testing.T) {
	t.Parallel()

	errBoom := errors.New("repository unavailable")

	for _, op := range []string{history.OpCommitsTouching, history.OpChangeRecord, history.OpCommitDate} {
		t.Run(op, func(t *testing.T) {
			t.Parallel()

			repo := newFakeRepo(fakeCommit{id: "c1", date: "2005-01-01", records: []string{"A\tindex.php"}})
			repo.err[op] = errBoom

			_, found, err := history.NewResolver(repo, history.Options{}).Resolve(context.Background(), "index.php")
			require.ErrorIs(t, err, errBoom)
			assert.False(t, found)
			assert.Equal(t, 1, repo.count(op), "failed queries are not retried")
		})
	}
}

type recordedResolution struct {
	status string
	hops   int
}

type memoryRecorder struct {
	mu          sync.Mutex
	resolutions []recordedResolution
	queries     map[string]int
}

func (m *memoryRecorder) RecordResolution(_ context.Context, status string, hops int, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.resolutions = append(m.resolutions, recordedResolution{status: status, hops: hops})
}

func (m *memoryRecorder) RecordQuery(_ context.Context, op string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.queries == nil {
		m.queries = make(map[string]int)
	}

	m.queries[op]++
}

func TestResolve_RecordsMetrics(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo(
		fakeCommit{id: "c1", date: "2005-01-01", records: []string{"A\ta"}},
		fakeCommit{id: "c2", date: "2006-01-01", records: []string{"R100\ta\tb"}},
		fakeCommit{id: "c3", date: "2007-01-01", records: []string{"M\tc"}},
	)
	rec := &memoryRecorder{}
	resolver := history.NewResolver(repo, history.Options{Metrics: rec})

	_, _, err := resolver.Resolve(context.Background(), "b")
	require.NoError(t, err)

	_, _, err = resolver.Resolve(context.Background(), "nope")
	require.NoError(t, err)

	_, _, err = resolver.Resolve(context.Background(), "c")
	require.Error(t, err)

	assert.Equal(t, []recordedResolution{
		{status: history.StatusFound, hops: 1},
		{status: history.StatusUntracked, hops: 0},
		{status: history.StatusError, hops: 0},
	}, rec.resolutions)
	assert.Equal(t, 4, rec.queries[history.OpCommitsTouching])
	assert.Equal(t, 3, rec.queries[history.OpChangeRecord])
	assert.Equal(t, 1, rec.queries[history.OpCommitDate])
}
