package storage

import (
	"github.com/csulmone/libgit2sharp/plumbing/storer"
)

// Storer is a generic storage of objects and references for a particular
// repository. This package contains two implementations, a filesystem based
// implementation (such as `.git`) and a memory implementation being ephemeral.
type Storer interface {
	storer.EncodedObjectStorer
	storer.ReferenceStorer
}
