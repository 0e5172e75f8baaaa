package revwalk

// Sort describes the order in which a walk emits commits. SortTime and
// SortTopological are mutually exclusive base disciplines and SortReverse is
// a modifier that may be combined with either. The zero value sorts by time.
type Sort uint8

const (
	// SortTime emits commits by descending commit time. Commits sharing the
	// same commit time come out in discovery order.
	SortTime Sort = 1 << iota
	// SortTopological emits every commit strictly before any of its parents.
	// Ties not constrained by ancestry fall back to time order.
	SortTopological
	// SortReverse inverts the complete sequence produced by the base
	// discipline. It forces the walk to materialize before emitting.
	SortReverse
)

const sortMask = SortTime | SortTopological | SortReverse

// Valid reports whether s is a well formed combination: no unknown bits and
// at most one base discipline.
func (s Sort) Valid() bool {
	if s&^sortMask != 0 {
		return false
	}

	return s&(SortTime|SortTopological) != (SortTime | SortTopological)
}

// IsReverse reports whether the SortReverse modifier is set.
func (s Sort) IsReverse() bool {
	return s&SortReverse != 0
}

// IsTopological reports whether the base discipline is topological.
func (s Sort) IsTopological() bool {
	return s&SortTopological != 0
}

func (s Sort) String() string {
	if !s.Valid() {
		return "invalid"
	}

	base := "time"
	if s.IsTopological() {
		base = "topological"
	}

	if s.IsReverse() {
		return base + "|reverse"
	}

	return base
}
