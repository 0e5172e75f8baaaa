package git

import (
	"errors"
	"fmt"

	"github.com/csulmone/libgit2sharp/plumbing/revwalk"
)

var (
	// ErrInvalidQuery is the base error for malformed queries; every
	// validation failure below matches it through errors.Is.
	ErrInvalidQuery = errors.New("invalid query")

	ErrNilOptions         = fmt.Errorf("%w: nil options", ErrInvalidQuery)
	ErrNilBoundary        = fmt.Errorf("%w: nil boundary", ErrInvalidQuery)
	ErrEmptyRevision      = fmt.Errorf("%w: empty revision", ErrInvalidQuery)
	ErrInvalidSortMode    = fmt.Errorf("%w: invalid sort mode", ErrInvalidQuery)
	ErrInvalidGlobPattern = fmt.Errorf("%w: malformed glob pattern", ErrInvalidQuery)
)

// Sort modes for LogOptions. SortTime and SortTopological are mutually
// exclusive base orders, SortReverse combines with either.
const (
	SortTime        = revwalk.SortTime
	SortTopological = revwalk.SortTopological
	SortReverse     = revwalk.SortReverse
)

// LogOptions describes a commit history query.
type LogOptions struct {
	// Since is the set of boundaries the walk starts from; every commit
	// reachable from any of them belongs to the result. When empty, the
	// walk starts at the commit HEAD points to.
	Since []Boundary

	// Until is the set of boundaries the walk stops at; every commit
	// reachable from any of them is excluded from the result, even when
	// also reachable from Since.
	Until []Boundary

	// Order is the output ordering discipline. The zero value is SortTime,
	// descending committer time.
	Order revwalk.Sort

	// FirstParent follows only the first parent of each merge commit when
	// expanding history. Exclusion through Until still considers every
	// parent.
	FirstParent bool
}

// Validate validates the fields. It only checks the shape of the query;
// whether the boundaries resolve against the repository is checked when the
// query is iterated.
func (o *LogOptions) Validate() error {
	if !o.Order.Valid() {
		return ErrInvalidSortMode
	}

	for _, boundaries := range [][]Boundary{o.Since, o.Until} {
		for _, b := range boundaries {
			if err := validateBoundary(b); err != nil {
				return err
			}
		}
	}

	return nil
}
