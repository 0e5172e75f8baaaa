package git

import (
	"io"

	"github.com/csulmone/libgit2sharp/plumbing"
	"github.com/csulmone/libgit2sharp/plumbing/object"
	"github.com/csulmone/libgit2sharp/plumbing/revwalk"
)

// CommitLog is a commit history query bound to a repository. It holds only
// the query description: every call to Iter resolves the boundaries and runs
// a fresh walk, so changes to the repository between iterations show up in
// the next one, and concurrent iterations do not interfere.
type CommitLog struct {
	r *Repository
	o *LogOptions
}

// Iter starts a new iteration of the query. Boundary resolution failures
// surface here, before any commit is yielded; storage failures during the
// walk itself surface from Next. The caller owns the returned iterator and
// must Close it unless it is drained.
func (l *CommitLog) Iter() (object.CommitIter, error) {
	since := l.o.Since
	if len(since) == 0 {
		head, err := l.r.Head()
		if err != nil {
			return nil, err
		}

		since = []Boundary{Ref(head)}
	}

	start, err := l.r.resolveBoundaries(since)
	if err != nil {
		return nil, err
	}

	stop, err := l.r.resolveBoundaries(l.o.Until)
	if err != nil {
		return nil, err
	}

	return revwalk.New(l.r.Storer, revwalk.Options{
		Since:       start,
		Until:       stop,
		Order:       l.o.Order,
		FirstParent: l.o.FirstParent,
	}), nil
}

// ForEach runs one iteration of the query, calling cb for every commit.
// Returning storer.ErrStop from cb finishes the iteration early without
// error.
func (l *CommitLog) ForEach(cb func(*object.Commit) error) error {
	iter, err := l.Iter()
	if err != nil {
		return err
	}

	return iter.ForEach(cb)
}

// Count runs one iteration of the query and returns the number of commits it
// yields. The whole reachable set is still traversed, only the per-commit
// work is skipped.
func (l *CommitLog) Count() (int, error) {
	iter, err := l.Iter()
	if err != nil {
		return 0, err
	}

	defer iter.Close()

	var n int
	for {
		_, err := iter.Next()
		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			return 0, err
		}

		n++
	}
}

// Hashes runs one iteration of the query and returns every commit id in
// order. Reversed queries materialize anyway; for the streaming orders this
// is a convenience that trades laziness for a slice.
func (l *CommitLog) Hashes() ([]plumbing.Hash, error) {
	iter, err := l.Iter()
	if err != nil {
		return nil, err
	}

	defer iter.Close()

	var hashes []plumbing.Hash
	for {
		c, err := iter.Next()
		if err == io.EOF {
			return hashes, nil
		}
		if err != nil {
			return nil, err
		}

		hashes = append(hashes, c.Hash)
	}
}
