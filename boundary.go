package git

import (
	"errors"
	"fmt"
	"strings"

	"github.com/csulmone/libgit2sharp/plumbing"
	"github.com/csulmone/libgit2sharp/plumbing/object"
	"github.com/csulmone/libgit2sharp/plumbing/storer"

	"github.com/bmatcuk/doublestar/v4"
)

// Boundary selects the commits where a history walk starts or stops. The
// possible shapes are fixed: values are built with Exact, Rev, Ref, Tag,
// Glob and All.
type Boundary interface {
	isBoundary()
}

type exactBoundary plumbing.Hash

func (exactBoundary) isBoundary() {}

// Exact selects an object by its full hash. The object must exist; annotated
// tags are peeled to the commit they designate.
func Exact(h plumbing.Hash) Boundary { return exactBoundary(h) }

type revBoundary plumbing.Revision

func (revBoundary) isBoundary() {}

// Rev selects the object a revision resolves to: a full or abbreviated hash,
// HEAD, or a branch, tag or remote name. See Repository.ResolveRevision.
func Rev(rev plumbing.Revision) Boundary { return revBoundary(rev) }

type refBoundary struct{ ref *plumbing.Reference }

func (refBoundary) isBoundary() {}

// Ref selects the commit a reference points at, chasing symbolic references
// through the repository first.
func Ref(ref *plumbing.Reference) Boundary { return refBoundary{ref} }

type tagBoundary struct{ tag *object.Tag }

func (tagBoundary) isBoundary() {}

// Tag selects the commit an annotated tag designates, peeling through any
// chain of tags. A tag that designates a tree or a blob selects no commits
// at all.
func Tag(tag *object.Tag) Boundary { return tagBoundary{tag} }

type globBoundary string

func (globBoundary) isBoundary() {}

// Glob selects the commits pointed at by every reference whose name matches
// the pattern. A pattern lacking a leading "refs/" has it prepended, and a
// pattern without any wildcard selects the whole hierarchy beneath it, as if
// it ended in "/*".
func Glob(pattern string) Boundary { return globBoundary(pattern) }

type allBoundary struct{}

func (allBoundary) isBoundary() {}

// All selects the commits pointed at by every reference in the repository,
// including HEAD. Symbolic references without a resolvable target, such as
// HEAD on a branch with no commits yet, are skipped.
func All() Boundary { return allBoundary{} }

// validateBoundary checks the shape of a single boundary, without touching
// the repository.
func validateBoundary(b Boundary) error {
	switch v := b.(type) {
	case nil:
		return ErrNilBoundary
	case revBoundary:
		if v == "" {
			return ErrEmptyRevision
		}
	case globBoundary:
		if !doublestar.ValidatePattern(normalizeGlob(string(v))) {
			return ErrInvalidGlobPattern
		}
	case refBoundary:
		if v.ref == nil {
			return ErrNilBoundary
		}
	case tagBoundary:
		if v.tag == nil {
			return ErrNilBoundary
		}
	}

	return nil
}

// resolveBoundaries expands boundaries into the union of the commits they
// select, deduplicated, preserving first-seen order.
func (r *Repository) resolveBoundaries(boundaries []Boundary) ([]plumbing.Hash, error) {
	var hashes []plumbing.Hash
	seen := make(map[plumbing.Hash]bool)

	for _, b := range boundaries {
		resolved, err := r.resolveBoundary(b)
		if err != nil {
			return nil, err
		}

		for _, h := range resolved {
			if seen[h] {
				continue
			}

			seen[h] = true
			hashes = append(hashes, h)
		}
	}

	return hashes, nil
}

// resolveBoundary is the single dispatch over the boundary shapes.
func (r *Repository) resolveBoundary(b Boundary) ([]plumbing.Hash, error) {
	switch v := b.(type) {
	case exactBoundary:
		return r.peelToCommits(plumbing.Hash(v), false)
	case revBoundary:
		h, err := r.ResolveRevision(plumbing.Revision(v))
		if err != nil {
			return nil, err
		}

		return r.peelToCommits(*h, false)
	case refBoundary:
		return r.commitsFromRef(v.ref)
	case tagBoundary:
		return r.peelToCommits(v.tag.Target, true)
	case globBoundary:
		return r.commitsFromGlob(normalizeGlob(string(v)))
	case allBoundary:
		return r.commitsFromGlob("")
	}

	return nil, fmt.Errorf("%w: unsupported boundary %T", ErrInvalidQuery, b)
}

// peelToCommits resolves h to the commits it designates, peeling through any
// chain of annotated tags. When peeled is true, h was already reached
// through a tag, so a terminal tree or blob designates no commits instead of
// being an error.
func (r *Repository) peelToCommits(h plumbing.Hash, peeled bool) ([]plumbing.Hash, error) {
	for {
		obj, err := r.Storer.EncodedObject(plumbing.AnyObject, h)
		if err != nil {
			return nil, err
		}

		switch obj.Type() {
		case plumbing.CommitObject:
			return []plumbing.Hash{h}, nil
		case plumbing.TagObject:
			tag, err := object.DecodeTag(r.Storer, obj)
			if err != nil {
				return nil, err
			}

			h = tag.Target
			peeled = true
		default:
			if peeled {
				return nil, nil
			}

			return nil, fmt.Errorf("%s is a %s: %w", h, obj.Type(), object.ErrUnsupportedObject)
		}
	}
}

// commitsFromRef selects the commits an explicitly supplied reference points
// at. A reference whose chain or target cannot be resolved is corrupted.
func (r *Repository) commitsFromRef(ref *plumbing.Reference) ([]plumbing.Hash, error) {
	resolved := ref
	if ref.Type() == plumbing.SymbolicReference {
		var err error
		resolved, err = storer.ResolveReference(r.Storer, ref.Name())
		if err != nil {
			return nil, fmt.Errorf("reference %s: %w", ref.Name(), plumbing.ErrCorruptedReference)
		}
	}

	hashes, err := r.peelToCommits(resolved.Hash(), false)
	if errors.Is(err, plumbing.ErrObjectNotFound) {
		return nil, fmt.Errorf("reference %s: %w", ref.Name(), plumbing.ErrCorruptedReference)
	}

	return hashes, err
}

// commitsFromGlob selects the commits pointed at by every reference matching
// the pattern; the empty pattern matches every reference. Unborn symbolic
// references are skipped, the commits behind a matched reference must exist.
func (r *Repository) commitsFromGlob(pattern string) ([]plumbing.Hash, error) {
	iter, err := r.Storer.IterReferences()
	if err != nil {
		return nil, err
	}

	defer iter.Close()

	var hashes []plumbing.Hash
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		if pattern != "" {
			ok, err := doublestar.Match(pattern, ref.Name().String())
			if err != nil {
				return fmt.Errorf("%w: %q", ErrInvalidGlobPattern, pattern)
			}

			if !ok {
				return nil
			}
		}

		if ref.Type() == plumbing.SymbolicReference {
			var err error
			ref, err = storer.ResolveReference(r.Storer, ref.Name())
			if err == plumbing.ErrReferenceNotFound {
				return nil
			}

			if err != nil {
				return err
			}
		}

		resolved, err := r.peelToCommits(ref.Hash(), false)
		if errors.Is(err, plumbing.ErrObjectNotFound) {
			return fmt.Errorf("reference %s: %w", ref.Name(), plumbing.ErrCorruptedReference)
		}

		if err != nil {
			return err
		}

		hashes = append(hashes, resolved...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return hashes, nil
}

// normalizeGlob expands a reference glob the way git interprets --glob
// patterns.
func normalizeGlob(pattern string) string {
	if !strings.HasPrefix(pattern, "refs/") {
		pattern = "refs/" + pattern
	}

	if !strings.ContainsAny(pattern, "*?[") {
		pattern += "/*"
	}

	return pattern
}
