package revwalk

import (
	"io"

	"github.com/csulmone/libgit2sharp/plumbing/object"
	"github.com/csulmone/libgit2sharp/plumbing/storer"
)

// streamIter pulls commits straight off the frontier, loading parents only
// as the caller consumes the walk. Only unlimited time ordered walks can
// stream like this: with no stopping points every popped node is final.
type streamIter struct {
	w      *walker
	seeded bool
	closed bool
	err    error
}

func (iter *streamIter) Next() (*object.Commit, error) {
	if iter.closed {
		return nil, io.EOF
	}
	if iter.err != nil {
		return nil, iter.err
	}

	if !iter.seeded {
		iter.seeded = true
		if err := iter.w.seed(); err != nil {
			iter.err = err
			return nil, err
		}
	}

	n, err := iter.w.step()
	if err != nil {
		if err != io.EOF {
			iter.err = err
		}
		return nil, err
	}

	return n.commit, nil
}

func (iter *streamIter) ForEach(cb func(*object.Commit) error) error {
	return forEachCommit(iter, cb)
}

// Close aborts the walk and releases its state. Further calls to Next return
// io.EOF.
func (iter *streamIter) Close() {
	iter.closed = true
	iter.w.release()
}

// limitIter materializes the whole walk before yielding anything: stopping
// points, topological order and reversal are all defined over the complete
// sequence, so emission starts only once every reachable commit has settled.
type limitIter struct {
	w     *walker
	order Sort

	resolved bool
	commits  []*object.Commit
	pos      int
	closed   bool
	err      error
}

func (iter *limitIter) Next() (*object.Commit, error) {
	if iter.closed {
		return nil, io.EOF
	}
	if iter.err != nil {
		return nil, iter.err
	}

	if !iter.resolved {
		if err := iter.resolve(); err != nil {
			iter.err = err
			return nil, err
		}
	}

	if iter.pos >= len(iter.commits) {
		return nil, io.EOF
	}

	c := iter.commits[iter.pos]
	iter.pos++

	return c, nil
}

// resolve seeds the walk, runs it to exhaustion and applies the requested
// order to the surviving commits.
func (iter *limitIter) resolve() error {
	iter.resolved = true

	if err := iter.w.seed(); err != nil {
		return err
	}

	commits, err := iter.w.exhaust()
	if err != nil {
		return err
	}

	if iter.order.IsTopological() {
		commits = iter.w.topoSort(commits)
	}
	if iter.order.IsReverse() {
		reverse(commits)
	}

	iter.commits = commits
	iter.w.release()

	return nil
}

func (iter *limitIter) ForEach(cb func(*object.Commit) error) error {
	return forEachCommit(iter, cb)
}

// Close aborts the walk and releases its state. Further calls to Next return
// io.EOF.
func (iter *limitIter) Close() {
	iter.closed = true
	iter.commits = nil
	iter.w.release()
}

func reverse(commits []*object.Commit) {
	for i, j := 0, len(commits)-1; i < j; i, j = i+1, j-1 {
		commits[i], commits[j] = commits[j], commits[i]
	}
}

func forEachCommit(iter object.CommitIter, cb func(*object.Commit) error) error {
	defer iter.Close()
	for {
		c, err := iter.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		if err := cb(c); err != nil {
			if err == storer.ErrStop {
				return nil
			}

			return err
		}
	}
}
