package gitlib

import (
	"container/heap"
	"context"
	"fmt"
	"time"
)

// PathHistory lists the commits reachable from start that touched path,
// newest first, the way `git log <start> -- <path>` does with default history
// simplification: a commit touches path when its entry differs from every
// parent, and when some parent holds the same entry only that parent's
// history is followed.
func (r *Repository) PathHistory(ctx context.Context, start Hash, path string) ([]Hash, error) {
	walk := &pathWalk{
		repo:    r,
		path:    path,
		entries: make(map[Hash]Entry),
		queued:  make(map[Hash]struct{}),
	}

	err := walk.push(start)
	if err != nil {
		return nil, err
	}

	var touched []Hash

	for walk.queue.Len() > 0 {
		ctxErr := ctx.Err()
		if ctxErr != nil {
			return nil, ctxErr
		}

		next, ok := heap.Pop(&walk.queue).(walkItem)
		if !ok {
			continue
		}

		touches, err := walk.visit(next.hash)
		if err != nil {
			return nil, err
		}

		if touches {
			touched = append(touched, next.hash)
		}
	}

	return touched, nil
}

type pathWalk struct {
	repo    *Repository
	path    string
	entries map[Hash]Entry
	queued  map[Hash]struct{}
	queue   walkQueue
}

// visit decides whether the commit touched the path and enqueues the parents
// whose history stays relevant.
func (w *pathWalk) visit(hash Hash) (bool, error) {
	commit, err := w.repo.LookupCommit(hash)
	if err != nil {
		return false, err
	}
	defer commit.Free()

	own, err := w.entry(commit)
	if err != nil {
		return false, err
	}

	numParents := commit.NumParents()
	if numParents == 0 {
		return own.Present, nil
	}

	parents := make([]Hash, numParents)

	for i := range numParents {
		parents[i] = commit.ParentHash(i)

		parentEntry, entryErr := w.entryOf(parents[i])
		if entryErr != nil {
			return false, entryErr
		}

		if parentEntry.Same(own) {
			return false, w.push(parents[i])
		}
	}

	for _, parent := range parents {
		err = w.push(parent)
		if err != nil {
			return false, err
		}
	}

	return true, nil
}

func (w *pathWalk) push(hash Hash) error {
	if _, seen := w.queued[hash]; seen {
		return nil
	}

	commit, err := w.repo.LookupCommit(hash)
	if err != nil {
		return err
	}
	defer commit.Free()

	w.queued[hash] = struct{}{}
	heap.Push(&w.queue, walkItem{hash: hash, when: commit.Committer().When, seq: len(w.queued)})

	return nil
}

func (w *pathWalk) entryOf(hash Hash) (Entry, error) {
	if cached, ok := w.entries[hash]; ok {
		return cached, nil
	}

	commit, err := w.repo.LookupCommit(hash)
	if err != nil {
		return Entry{}, err
	}
	defer commit.Free()

	return w.entry(commit)
}

func (w *pathWalk) entry(commit *Commit) (Entry, error) {
	hash := commit.Hash()
	if cached, ok := w.entries[hash]; ok {
		return cached, nil
	}

	entry, err := commit.EntryAt(w.path)
	if err != nil {
		return Entry{}, fmt.Errorf("read %s at %s: %w", w.path, hash, err)
	}

	w.entries[hash] = entry

	return entry, nil
}

type walkItem struct {
	hash Hash
	when time.Time
	seq  int
}

// walkQueue pops the most recently committed item first; ties go to the
// item queued first.
type walkQueue []walkItem

func (q walkQueue) Len() int { return len(q) }

func (q walkQueue) Less(i, j int) bool {
	if !q[i].when.Equal(q[j].when) {
		return q[i].when.After(q[j].when)
	}

	return q[i].seq < q[j].seq
}

func (q walkQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *walkQueue) Push(x any) {
	item, ok := x.(walkItem)
	if ok {
		*q = append(*q, item)
	}
}

func (q *walkQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]

	return item
}
