// Package revwalk implements walks over the commit graph, roughly equivalent
// to the history side of git-rev-list: a walk enumerates the commits
// reachable from a set of starting points, excluding every commit reachable
// from a set of stopping points, in time or topological order, optionally
// reversed.
package revwalk

import (
	"fmt"
	"io"

	"github.com/csulmone/libgit2sharp/plumbing"
	"github.com/csulmone/libgit2sharp/plumbing/object"
	"github.com/csulmone/libgit2sharp/plumbing/storer"
)

// TraversalError is returned when a commit reached by an in-progress walk
// cannot be loaded from storage. Commits already emitted are not retracted,
// the walk just stops.
type TraversalError struct {
	Hash plumbing.Hash
	Err  error
}

// NewTraversalError returns a new TraversalError for the given hash, or nil
// if err is nil.
func NewTraversalError(h plumbing.Hash, err error) *TraversalError {
	if err == nil {
		return nil
	}

	return &TraversalError{Hash: h, Err: err}
}

func (e *TraversalError) Error() string {
	return fmt.Sprintf("traversal stopped at %s: %s", e.Hash, e.Err)
}

func (e *TraversalError) Unwrap() error {
	return e.Err
}

// Options describes a single walk over the commit graph.
type Options struct {
	// Since are the starting commits. An empty set walks nothing.
	Since []plumbing.Hash
	// Until are the stopping commits. Everything reachable from any of them,
	// themselves included, is excluded from the walk.
	Until []plumbing.Hash
	// Order is the emission order. Callers are expected to pass a Valid
	// combination, any base bits outside SortTopological count as SortTime.
	Order Sort
	// FirstParent makes the walk follow only the first parent of each merge.
	// Exclusion marks still travel through every parent.
	FirstParent bool
}

// limited reports whether the walk must resolve completely before emitting
// anything: stopping points can mark a reached commit excluded at any moment
// before the frontier drains, and the topological and reversed orders are
// defined over the complete sequence.
func (o Options) limited() bool {
	return len(o.Until) > 0 || o.Order.IsTopological() || o.Order.IsReverse()
}

// New returns an iterator over the commits selected by o, reading them from
// s. The walk is lazy: no commit is loaded until the first call to Next,
// and unlimited time-ordered walks keep loading only as they are consumed.
// Two iterators over the same Options are independent walks.
func New(s storer.EncodedObjectStorer, o Options) object.CommitIter {
	if o.limited() {
		return &limitIter{w: newWalker(s, o), order: o.Order}
	}

	return &streamIter{w: newWalker(s, o)}
}

// node carries the traversal state of a single commit. All mutable walk
// state lives here, keyed by hash in the walker arena, so the shared commit
// values are never written to.
type node struct {
	commit *object.Commit
	seq    int

	uninteresting bool
	expanded      bool
}

// walker owns the reachability state of one traversal: the arena of
// discovered nodes, the time ordered frontier, and the exclusion marks for
// hashes that have not been discovered yet.
type walker struct {
	s storer.EncodedObjectStorer
	o Options

	nodes    map[plumbing.Hash]*node
	stained  map[plumbing.Hash]bool
	frontier *nodeHeap
	seq      int
}

func newWalker(s storer.EncodedObjectStorer, o Options) *walker {
	return &walker{
		s:        s,
		o:        o,
		nodes:    make(map[plumbing.Hash]*node),
		stained:  make(map[plumbing.Hash]bool),
		frontier: newNodeHeap(),
	}
}

// seed discovers the boundary commits. Stopping points are stained first so
// a starting point that is also a stopping point comes out excluded and a
// stop set covering the start set walks to an empty result.
func (w *walker) seed() error {
	for _, h := range w.o.Until {
		w.stained[h] = true
	}

	for _, h := range w.o.Since {
		if _, err := w.discover(h); err != nil {
			return err
		}
	}

	for _, h := range w.o.Until {
		if _, err := w.discover(h); err != nil {
			return err
		}
	}

	return nil
}

// discover returns the node for h, loading the commit and scheduling it on
// the frontier on first sight.
func (w *walker) discover(h plumbing.Hash) (*node, error) {
	if n, ok := w.nodes[h]; ok {
		return n, nil
	}

	c, err := object.GetCommit(w.s, h)
	if err != nil {
		return nil, NewTraversalError(h, err)
	}

	n := &node{commit: c, seq: w.seq, uninteresting: w.stained[h]}
	w.seq++
	w.nodes[h] = n
	w.frontier.Push(n)

	return n, nil
}

// step pops the newest node off the frontier and expands it. It returns
// io.EOF once the frontier is empty.
func (w *walker) step() (*node, error) {
	n, ok := w.frontier.Pop()
	if !ok {
		return nil, io.EOF
	}

	if err := w.expand(n); err != nil {
		return nil, err
	}

	return n, nil
}

// expand enqueues the parents of n. Excluded nodes always expand through
// every parent, even on first-parent walks, so that exclusion reaches the
// common ancestors behind every merge.
func (w *walker) expand(n *node) error {
	if n.expanded {
		return nil
	}
	n.expanded = true

	parents := n.commit.ParentHashes
	if !n.uninteresting {
		parents = w.walkedParents(n.commit)
	}

	for _, h := range parents {
		p, err := w.discover(h)
		if err != nil {
			return err
		}

		if n.uninteresting {
			w.markUninteresting(p)
		}
	}

	return nil
}

// markUninteresting stamps n excluded and cascades the mark through every
// already expanded ancestor. Parents that have not been discovered yet are
// stained instead, so they come out excluded if another path reaches them
// later.
func (w *walker) markUninteresting(n *node) {
	stack := []*node{n}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if n.uninteresting {
			continue
		}
		n.uninteresting = true

		if !n.expanded {
			// Parents are marked when the frontier expands it.
			continue
		}

		for _, h := range n.commit.ParentHashes {
			if p, ok := w.nodes[h]; ok {
				stack = append(stack, p)
			} else {
				w.stained[h] = true
			}
		}
	}
}

// exhaust runs the walk to completion and returns the surviving commits in
// frontier pop order. An exclusion mark can land on an already collected
// candidate at any point before the frontier drains, histories with skewed
// clocks deliver them late, so filtering waits until the very end.
func (w *walker) exhaust() ([]*object.Commit, error) {
	var candidates []*node
	for {
		n, err := w.step()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		if !n.uninteresting {
			candidates = append(candidates, n)
		}
	}

	commits := make([]*object.Commit, 0, len(candidates))
	for _, n := range candidates {
		if !n.uninteresting {
			commits = append(commits, n.commit)
		}
	}

	return commits, nil
}

// topoSort reorders commits so that every commit precedes all of its parents
// present in the result. A commit is released once all of its children in
// the result have been emitted, in-degree bookkeeping on the subgraph the
// walk traversed, and releases go through a fresh time ordered heap so
// unconstrained ties stay close to time order.
func (w *walker) topoSort(commits []*object.Commit) []*object.Commit {
	included := make(map[plumbing.Hash]bool, len(commits))
	for _, c := range commits {
		included[c.Hash] = true
	}

	inCounts := make(map[plumbing.Hash]int, len(commits))
	for _, c := range commits {
		for _, h := range w.walkedParents(c) {
			if included[h] {
				inCounts[h]++
			}
		}
	}

	ready := newNodeHeap()
	for _, c := range commits {
		if inCounts[c.Hash] == 0 {
			ready.Push(w.nodes[c.Hash])
		}
	}

	out := make([]*object.Commit, 0, len(commits))
	for {
		n, ok := ready.Pop()
		if !ok {
			break
		}
		out = append(out, n.commit)

		for _, h := range w.walkedParents(n.commit) {
			if !included[h] {
				continue
			}

			inCounts[h]--
			if inCounts[h] == 0 {
				ready.Push(w.nodes[h])
			}
		}
	}

	return out
}

// walkedParents returns the parent edges the walk follows out of c: every
// parent normally, only the first on first-parent walks.
func (w *walker) walkedParents(c *object.Commit) []plumbing.Hash {
	if w.o.FirstParent && len(c.ParentHashes) > 1 {
		return c.ParentHashes[:1]
	}

	return c.ParentHashes
}

// release drops the arena and the frontier so an abandoned walk frees its
// state without waiting for exhaustion.
func (w *walker) release() {
	w.nodes = nil
	w.stained = nil
	w.frontier.Clear()
}
