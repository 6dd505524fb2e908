package gitlib

import (
	"errors"
	"fmt"

	git2go "github.com/libgit2/git2go/v34"
)

// ErrBareRepository is returned by Workdir for repositories without a work tree.
var ErrBareRepository = errors.New("repository has no working directory")

// Repository wraps a libgit2 repository.
type Repository struct {
	repo *git2go.Repository
}

// OpenRepository opens the git repository containing path, searching parent
// directories like the git command does.
func OpenRepository(path string) (*Repository, error) {
	repo, err := git2go.OpenRepositoryExtended(path, 0, "")
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}

	return &Repository{repo: repo}, nil
}

// Workdir returns the root of the working tree with a trailing slash.
func (r *Repository) Workdir() (string, error) {
	if r.repo.IsBare() {
		return "", ErrBareRepository
	}

	return r.repo.Workdir(), nil
}

// Free releases the repository resources.
func (r *Repository) Free() {
	if r.repo != nil {
		r.repo.Free()
		r.repo = nil
	}
}

// HeadUnborn reports whether HEAD points at a branch with no commits yet.
func (r *Repository) HeadUnborn() (bool, error) {
	unborn, err := r.repo.IsHeadUnborn()
	if err != nil {
		return false, fmt.Errorf("check HEAD: %w", err)
	}

	return unborn, nil
}

// Head returns the commit HEAD points at.
func (r *Repository) Head() (Hash, error) {
	ref, err := r.repo.Head()
	if err != nil {
		return Hash{}, fmt.Errorf("get HEAD: %w", err)
	}
	defer ref.Free()

	return HashFromOid(ref.Target()), nil
}

// ResolveRevision resolves a revision expression (hash, ref name, "HEAD~2",
// annotated tag) to the commit it designates.
func (r *Repository) ResolveRevision(rev string) (Hash, error) {
	obj, err := r.repo.RevparseSingle(rev)
	if err != nil {
		return Hash{}, fmt.Errorf("resolve revision %q: %w", rev, err)
	}
	defer obj.Free()

	commit, err := obj.Peel(git2go.ObjectCommit)
	if err != nil {
		return Hash{}, fmt.Errorf("peel %q to commit: %w", rev, err)
	}
	defer commit.Free()

	return HashFromOid(commit.Id()), nil
}

// LookupCommit returns the commit with the given hash.
func (r *Repository) LookupCommit(hash Hash) (*Commit, error) {
	commit, err := r.repo.LookupCommit(hash.ToOid())
	if err != nil {
		return nil, fmt.Errorf("lookup commit %s: %w", hash, err)
	}

	return &Commit{commit: commit, repo: r}, nil
}
