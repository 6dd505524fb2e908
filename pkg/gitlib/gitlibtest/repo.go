// Package gitlibtest builds throwaway git repositories with controlled commit
// dates for tests.
package gitlibtest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	git2go "github.com/libgit2/git2go/v34"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/gitorigin/pkg/gitlib"
)

// Repo is a non-bare repository in a temporary directory.
type Repo struct {
	t      testing.TB
	Path   string
	native *git2go.Repository
}

// NewRepo initializes an empty repository freed on test cleanup.
func NewRepo(t testing.TB) *Repo {
	t.Helper()

	dir := t.TempDir()

	repo, err := git2go.InitRepository(dir, false)
	require.NoError(t, err)

	t.Cleanup(repo.Free)

	return &Repo{t: t, Path: dir, native: repo}
}

// Date returns noon UTC on January 15th of year.
func Date(year int) time.Time {
	return time.Date(year, time.January, 15, 12, 0, 0, 0, time.UTC)
}

// Write creates or overwrites a file in the working directory.
func (r *Repo) Write(name, content string) {
	r.t.Helper()

	path := filepath.Join(r.Path, filepath.FromSlash(name))

	err := os.MkdirAll(filepath.Dir(path), 0o755)
	require.NoError(r.t, err)

	err = os.WriteFile(path, []byte(content), 0o644)
	require.NoError(r.t, err)
}

// Move renames a file in the working directory.
func (r *Repo) Move(from, to string) {
	r.t.Helper()

	dst := filepath.Join(r.Path, filepath.FromSlash(to))

	err := os.MkdirAll(filepath.Dir(dst), 0o755)
	require.NoError(r.t, err)

	err = os.Rename(filepath.Join(r.Path, filepath.FromSlash(from)), dst)
	require.NoError(r.t, err)
}

// Remove deletes a file from the working directory.
func (r *Repo) Remove(name string) {
	r.t.Helper()

	err := os.Remove(filepath.Join(r.Path, filepath.FromSlash(name)))
	require.NoError(r.t, err)
}

// Commit stages the working directory and commits it on top of HEAD.
func (r *Repo) Commit(message string, when time.Time) gitlib.Hash {
	r.t.Helper()

	var parents []gitlib.Hash

	unborn, err := r.native.IsHeadUnborn()
	require.NoError(r.t, err)

	if !unborn {
		head, headErr := r.native.Head()
		require.NoError(r.t, headErr)

		parents = append(parents, gitlib.HashFromOid(head.Target()))

		head.Free()
	}

	return r.create("HEAD", message, when, parents)
}

// Merge commits the working directory with HEAD and other as parents.
func (r *Repo) Merge(message string, when time.Time, other gitlib.Hash) gitlib.Hash {
	r.t.Helper()

	head, err := r.native.Head()
	require.NoError(r.t, err)

	defer head.Free()

	return r.create("HEAD", message, when, []gitlib.Hash{gitlib.HashFromOid(head.Target()), other})
}

// Detached commits the working directory with explicit parents, leaving
// HEAD where it is.
func (r *Repo) Detached(message string, when time.Time, parents ...gitlib.Hash) gitlib.Hash {
	r.t.Helper()

	return r.create("", message, when, parents)
}

func (r *Repo) create(ref, message string, when time.Time, parentHashes []gitlib.Hash) gitlib.Hash {
	r.t.Helper()

	index, err := r.native.Index()
	require.NoError(r.t, err)

	defer index.Free()

	err = index.AddAll([]string{"*"}, git2go.IndexAddDefault, nil)
	require.NoError(r.t, err)

	err = index.UpdateAll([]string{"*"}, nil)
	require.NoError(r.t, err)

	err = index.Write()
	require.NoError(r.t, err)

	treeID, err := index.WriteTree()
	require.NoError(r.t, err)

	tree, err := r.native.LookupTree(treeID)
	require.NoError(r.t, err)

	defer tree.Free()

	parents := make([]*git2go.Commit, 0, len(parentHashes))

	for _, hash := range parentHashes {
		parent, lookupErr := r.native.LookupCommit(hash.ToOid())
		require.NoError(r.t, lookupErr)

		parents = append(parents, parent)
	}

	sig := &git2go.Signature{
		Name:  "Test User",
		Email: "test@example.com",
		When:  when,
	}

	oid, err := r.native.CreateCommit(ref, sig, sig, message, tree, parents...)
	require.NoError(r.t, err)

	for _, parent := range parents {
		parent.Free()
	}

	return gitlib.HashFromOid(oid)
}
