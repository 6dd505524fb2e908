package gitlib

import (
	"fmt"
	"strings"

	git2go "github.com/libgit2/git2go/v34"
)

// PathChange is one delta of a commit's first-parent diff.
type PathChange struct {
	Status     git2go.Delta
	OldPath    string
	NewPath    string
	Similarity int
}

// Fields returns the name-status columns: the status code with its
// similarity score, then the old path for renames and copies, then the path.
func (pc PathChange) Fields() []string {
	switch pc.Status {
	case git2go.DeltaAdded:
		return []string{"A", pc.NewPath}
	case git2go.DeltaDeleted:
		return []string{"D", pc.OldPath}
	case git2go.DeltaModified:
		return []string{"M", pc.NewPath}
	case git2go.DeltaTypeChange:
		return []string{"T", pc.NewPath}
	case git2go.DeltaRenamed:
		return []string{fmt.Sprintf("R%03d", pc.Similarity), pc.OldPath, pc.NewPath}
	case git2go.DeltaCopied:
		return []string{fmt.Sprintf("C%03d", pc.Similarity), pc.OldPath, pc.NewPath}
	case git2go.DeltaUnmodified, git2go.DeltaIgnored, git2go.DeltaUntracked,
		git2go.DeltaUnreadable, git2go.DeltaConflicted:
		return []string{"X", pc.NewPath}
	}

	return []string{"X", pc.NewPath}
}

// NameStatus renders the change the way `git show --name-status` does, for
// example "A\tpath" or "R087\told\tnew". When a path holds a tab or a
// newline the fields are NUL terminated instead, as with `-z`.
func (pc PathChange) NameStatus() string {
	fields := pc.Fields()

	for _, field := range fields[1:] {
		if strings.ContainsAny(field, "\t\n") {
			return strings.Join(fields, "\x00") + "\x00"
		}
	}

	return strings.Join(fields, "\t")
}

// PathChangeAt diffs the commit against its first parent (the empty tree for
// a root commit) with rename and copy detection and returns the delta that
// produced path. The boolean is false when the commit did not touch path.
func (r *Repository) PathChangeAt(hash Hash, path string) (PathChange, bool, error) {
	commit, err := r.LookupCommit(hash)
	if err != nil {
		return PathChange{}, false, err
	}
	defer commit.Free()

	newTree, err := commit.Tree()
	if err != nil {
		return PathChange{}, false, err
	}
	defer newTree.Free()

	var oldTree *git2go.Tree

	if commit.NumParents() > 0 {
		parent, parentErr := commit.Parent(0)
		if parentErr != nil {
			return PathChange{}, false, parentErr
		}
		defer parent.Free()

		oldTree, err = parent.Tree()
		if err != nil {
			return PathChange{}, false, err
		}
		defer oldTree.Free()
	}

	diff, err := r.diffWithRenames(oldTree, newTree)
	if err != nil {
		return PathChange{}, false, err
	}

	defer func() {
		// Free errors are non-actionable in cleanup.
		_ = diff.Free()
	}()

	numDeltas, err := diff.NumDeltas()
	if err != nil {
		return PathChange{}, false, fmt.Errorf("get num deltas: %w", err)
	}

	for i := range numDeltas {
		delta, deltaErr := diff.Delta(i)
		if deltaErr != nil {
			return PathChange{}, false, fmt.Errorf("get delta: %w", deltaErr)
		}

		produced := delta.NewFile.Path == path
		if delta.Status == git2go.DeltaDeleted {
			produced = delta.OldFile.Path == path
		}

		if !produced {
			continue
		}

		return PathChange{
			Status:     delta.Status,
			OldPath:    delta.OldFile.Path,
			NewPath:    delta.NewFile.Path,
			Similarity: int(delta.Similarity),
		}, true, nil
	}

	return PathChange{}, false, nil
}

func (r *Repository) diffWithRenames(oldTree, newTree *git2go.Tree) (*git2go.Diff, error) {
	opts, err := git2go.DefaultDiffOptions()
	if err != nil {
		return nil, fmt.Errorf("get diff options: %w", err)
	}

	diff, err := r.repo.DiffTreeToTree(oldTree, newTree, &opts)
	if err != nil {
		return nil, fmt.Errorf("diff trees: %w", err)
	}

	findOpts, err := git2go.DefaultDiffFindOptions()
	if err != nil {
		_ = diff.Free()

		return nil, fmt.Errorf("get find options: %w", err)
	}

	findOpts.Flags |= git2go.DiffFindRenames | git2go.DiffFindCopies

	err = diff.FindSimilar(&findOpts)
	if err != nil {
		_ = diff.Free()

		return nil, fmt.Errorf("find renames: %w", err)
	}

	return diff, nil
}
