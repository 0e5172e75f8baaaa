package git

import (
	"errors"
	"fmt"
	"strings"

	"github.com/csulmone/libgit2sharp/plumbing"
	"github.com/csulmone/libgit2sharp/plumbing/object"
	"github.com/csulmone/libgit2sharp/plumbing/storer"
	"github.com/csulmone/libgit2sharp/storage"
)

var (
	// ErrRepositoryNotExists is returned when opening a storage with no
	// repository in it.
	ErrRepositoryNotExists = errors.New("repository does not exist")
	// ErrRepositoryAlreadyExists is returned by Init on an already
	// initialized storage.
	ErrRepositoryAlreadyExists = errors.New("repository already exists")
	// ErrAmbiguousObjectName is returned when an abbreviated hash matches
	// more than one object.
	ErrAmbiguousObjectName = errors.New("ambiguous object name")
)

// Repository answers commit history queries against a Storer.
type Repository struct {
	Storer storage.Storer
}

// Init creates an empty repository on the given storage and returns it: the
// storage skeleton is initialized when the backend requires it and HEAD is
// created pointing at the default branch.
func Init(s storage.Storer) (*Repository, error) {
	if err := initStorer(s); err != nil {
		return nil, err
	}

	_, err := s.Reference(plumbing.HEAD)
	if err == nil {
		return nil, ErrRepositoryAlreadyExists
	}

	if err != plumbing.ErrReferenceNotFound {
		return nil, err
	}

	h := plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.Master)
	if err := s.SetReference(h); err != nil {
		return nil, err
	}

	return &Repository{Storer: s}, nil
}

func initStorer(s storage.Storer) error {
	i, ok := s.(storer.Initializer)
	if !ok {
		return nil
	}

	return i.Init()
}

// Open opens a repository from an initialized storage, failing with
// ErrRepositoryNotExists when the storage holds no HEAD reference.
func Open(s storage.Storer) (*Repository, error) {
	_, err := s.Reference(plumbing.HEAD)
	if err == plumbing.ErrReferenceNotFound {
		return nil, ErrRepositoryNotExists
	}

	if err != nil {
		return nil, err
	}

	return &Repository{Storer: s}, nil
}

// Head returns the reference where HEAD is pointing to, chasing any chain of
// symbolic references down to a hash reference.
func (r *Repository) Head() (*plumbing.Reference, error) {
	return storer.ResolveReference(r.Storer, plumbing.HEAD)
}

// Reference returns the reference for a given reference name. If resolved is
// true, any symbolic reference is chased to its final hash reference.
func (r *Repository) Reference(name plumbing.ReferenceName, resolved bool) (*plumbing.Reference, error) {
	if resolved {
		return storer.ResolveReference(r.Storer, name)
	}

	return r.Storer.Reference(name)
}

// References returns an unsorted iterator over all the references of the
// repository.
func (r *Repository) References() (storer.ReferenceIter, error) {
	return r.Storer.IterReferences()
}

// CommitObject returns the commit with the given hash.
func (r *Repository) CommitObject(h plumbing.Hash) (*object.Commit, error) {
	return object.GetCommit(r.Storer, h)
}

// TagObject returns the annotated tag with the given hash.
func (r *Repository) TagObject(h plumbing.Hash) (*object.Tag, error) {
	return object.GetTag(r.Storer, h)
}

// Log returns the commit history query described by o. The query is lazy,
// nothing is resolved or walked until the returned CommitLog is iterated.
// Malformed queries are rejected here; resolution failures surface when the
// query is iterated.
func (r *Repository) Log(o *LogOptions) (*CommitLog, error) {
	if o == nil {
		return nil, ErrNilOptions
	}

	if err := o.Validate(); err != nil {
		return nil, err
	}

	return &CommitLog{r: r, o: o}, nil
}

// ResolveRevision resolves a revision to its corresponding hash. It accepts
// a full hash, an abbreviated hash of at least 4 digits, HEAD, and short or
// full reference names, expanded the same way git rev-parse expands them.
func (r *Repository) ResolveRevision(in plumbing.Revision) (*plumbing.Hash, error) {
	rev := in.String()
	if rev == "" {
		return nil, ErrEmptyRevision
	}

	if plumbing.IsHash(rev) {
		h := plumbing.NewHash(rev)
		if err := r.Storer.HasEncodedObject(h); err != nil {
			return nil, err
		}

		return &h, nil
	}

	for _, rule := range plumbing.RefRevParseRules {
		ref, err := r.expandRef(plumbing.ReferenceName(fmt.Sprintf(rule, rev)))
		if err == plumbing.ErrReferenceNotFound {
			continue
		}

		if err != nil {
			return nil, err
		}

		h := ref.Hash()
		return &h, nil
	}

	if isAbbreviatedHash(rev) {
		return r.expandPartialHash(rev)
	}

	return nil, plumbing.ErrReferenceNotFound
}

// expandRef reads a reference by its exact name and chases any symbolic
// chain. A reference that exists but cannot be chased to a hash is
// corrupted.
func (r *Repository) expandRef(name plumbing.ReferenceName) (*plumbing.Reference, error) {
	ref, err := r.Storer.Reference(name)
	if err != nil {
		return nil, err
	}

	if ref.Type() == plumbing.HashReference {
		return ref, nil
	}

	resolved, err := storer.ResolveReference(r.Storer, name)
	if err != nil {
		return nil, fmt.Errorf("reference %s: %w", name, plumbing.ErrCorruptedReference)
	}

	return resolved, nil
}

// expandPartialHash scans the commit and tag objects for the unique one
// whose hash starts with the given prefix. Trees and blobs never name a
// revision, so they neither match nor make a prefix ambiguous.
func (r *Repository) expandPartialHash(prefix string) (*plumbing.Hash, error) {
	var found *plumbing.Hash
	for _, t := range []plumbing.ObjectType{plumbing.CommitObject, plumbing.TagObject} {
		iter, err := r.Storer.IterEncodedObjects(t)
		if err != nil {
			return nil, err
		}

		err = iter.ForEach(func(obj plumbing.EncodedObject) error {
			h := obj.Hash()
			if !strings.HasPrefix(h.String(), prefix) {
				return nil
			}

			if found != nil {
				return fmt.Errorf("%s: %w", prefix, ErrAmbiguousObjectName)
			}

			found = &h
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	if found == nil {
		return nil, plumbing.ErrObjectNotFound
	}

	return found, nil
}

func isAbbreviatedHash(rev string) bool {
	if len(rev) < 4 || len(rev) >= 40 {
		return false
	}

	for _, b := range []byte(rev) {
		if b >= '0' && b <= '9' || b >= 'a' && b <= 'f' {
			continue
		}

		return false
	}

	return true
}
