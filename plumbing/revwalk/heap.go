package revwalk

import (
	"github.com/emirpasic/gods/trees/binaryheap"
)

// commitTimeComparator orders walk nodes by descending commit time, breaking
// ties by ascending discovery sequence so that walks over histories with
// colliding timestamps stay deterministic.
func commitTimeComparator(a, b interface{}) int {
	left := a.(*node)
	right := b.(*node)

	lw := left.commit.Committer.When
	rw := right.commit.Committer.When
	switch {
	case rw.Before(lw):
		return -1
	case lw.Before(rw):
		return 1
	}

	switch {
	case left.seq < right.seq:
		return -1
	case left.seq > right.seq:
		return 1
	}

	return 0
}

// nodeHeap is a priority frontier over walk nodes, newest commit first.
type nodeHeap struct {
	*binaryheap.Heap
}

func newNodeHeap() *nodeHeap {
	return &nodeHeap{binaryheap.NewWith(commitTimeComparator)}
}

// Push adds a node to the frontier.
func (h *nodeHeap) Push(n *node) {
	h.Heap.Push(n)
}

// Pop removes and returns the newest node on the frontier, or nil and false
// if the frontier is empty.
func (h *nodeHeap) Pop() (*node, bool) {
	v, ok := h.Heap.Pop()
	if !ok {
		return nil, false
	}

	return v.(*node), true
}
