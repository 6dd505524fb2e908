package gitlib

import (
	"errors"
	"fmt"
	"time"

	git2go "github.com/libgit2/git2go/v34"
)

// ErrParentNotFound is returned when the requested parent commit is not found.
var ErrParentNotFound = errors.New("parent commit not found")

// Signature represents a git committer signature.
type Signature struct {
	Name  string
	Email string
	// When carries the signer's own UTC offset.
	When time.Time
}

// Commit wraps a libgit2 commit.
type Commit struct {
	commit *git2go.Commit
	repo   *Repository
}

// Hash returns the commit hash.
func (c *Commit) Hash() Hash {
	return HashFromOid(c.commit.Id())
}

// Committer returns the commit committer.
func (c *Commit) Committer() Signature {
	return signatureOf(c.commit.Committer())
}

func signatureOf(sig *git2go.Signature) Signature {
	return Signature{
		Name:  sig.Name,
		Email: sig.Email,
		When:  sig.When,
	}
}

// NumParents returns the number of parent commits.
func (c *Commit) NumParents() int {
	return int(c.commit.ParentCount())
}

// Parent returns the nth parent commit.
func (c *Commit) Parent(n int) (*Commit, error) {
	parent := c.commit.Parent(uint(n))
	if parent == nil {
		return nil, ErrParentNotFound
	}

	return &Commit{commit: parent, repo: c.repo}, nil
}

// ParentHash returns the hash of the nth parent.
func (c *Commit) ParentHash(n int) Hash {
	return HashFromOid(c.commit.ParentId(uint(n)))
}

// Tree returns the tree associated with this commit.
func (c *Commit) Tree() (*git2go.Tree, error) {
	tree, err := c.commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("get commit tree: %w", err)
	}

	return tree, nil
}

// Entry is the state of one path in a commit's tree.
type Entry struct {
	Hash    Hash
	Mode    git2go.Filemode
	Present bool
}

// Same reports whether two entries are identical, treating two absent
// entries as equal.
func (e Entry) Same(other Entry) bool {
	if !e.Present || !other.Present {
		return e.Present == other.Present
	}

	return e.Hash == other.Hash && e.Mode == other.Mode
}

// EntryAt returns the state of path in the commit's tree.
func (c *Commit) EntryAt(path string) (Entry, error) {
	tree, err := c.Tree()
	if err != nil {
		return Entry{}, err
	}
	defer tree.Free()

	entry, err := tree.EntryByPath(path)
	if err != nil {
		if git2go.IsErrorCode(err, git2go.ErrorCodeNotFound) {
			return Entry{}, nil
		}

		return Entry{}, fmt.Errorf("entry by path %s: %w", path, err)
	}

	return Entry{Hash: HashFromOid(entry.Id), Mode: entry.Filemode, Present: true}, nil
}

// Free releases the commit resources.
func (c *Commit) Free() {
	if c.commit != nil {
		c.commit.Free()
		c.commit = nil
	}
}
