package git

import (
	"fmt"
	"time"

	"github.com/csulmone/libgit2sharp/plumbing"
	"github.com/csulmone/libgit2sharp/plumbing/object"
	"github.com/csulmone/libgit2sharp/storage/memory"

	"github.com/stretchr/testify/suite"
)

var testEpoch = time.Date(2016, 9, 21, 21, 10, 0, 0, time.UTC)

// fabricated tree hash shared by every synthetic commit; trees are never read
// by a history query.
var testTree = plumbing.NewHash("eba74343e2f15d62adedfd8c883ee0262b5c8021")

// BaseSuite owns an in-memory repository and helpers to populate it with
// synthetic commits, tags and references.
type BaseSuite struct {
	suite.Suite

	s    *memory.Storage
	repo *Repository
}

func (s *BaseSuite) SetupTest() {
	s.s = memory.NewStorage()

	var err error
	s.repo, err = Init(s.s)
	s.Require().NoError(err)
}

// commit stores a synthetic commit dated minute minutes after testEpoch and
// returns its hash.
func (s *BaseSuite) commit(minute int, message string, parents ...plumbing.Hash) plumbing.Hash {
	sig := object.Signature{
		Name:  "Joan Mera",
		Email: "joan@example.com",
		When:  testEpoch.Add(time.Duration(minute) * time.Minute),
	}

	c := &object.Commit{
		Author:       sig,
		Committer:    sig,
		Message:      message,
		TreeHash:     testTree,
		ParentHashes: parents,
	}

	obj := s.s.NewEncodedObject()
	s.Require().NoError(c.Encode(obj))

	h, err := s.s.SetEncodedObject(obj)
	s.Require().NoError(err)

	return h
}

// chain stores n commits one minute apart, each the single parent of the
// next, and returns their hashes from root to tip.
func (s *BaseSuite) chain(n int) []plumbing.Hash {
	hashes := make([]plumbing.Hash, 0, n)
	for i := 0; i < n; i++ {
		var parents []plumbing.Hash
		if i > 0 {
			parents = append(parents, hashes[i-1])
		}

		hashes = append(hashes, s.commit(i, fmt.Sprintf("commit %d\n", i), parents...))
	}

	return hashes
}

// tag stores an annotated tag on target and returns it decoded from storage.
func (s *BaseSuite) tag(name string, target plumbing.Hash, targetType plumbing.ObjectType) *object.Tag {
	t := &object.Tag{
		Name: name,
		Tagger: object.Signature{
			Name:  "Joan Mera",
			Email: "joan@example.com",
			When:  testEpoch,
		},
		Message:    name + "\n",
		TargetType: targetType,
		Target:     target,
	}

	obj := s.s.NewEncodedObject()
	s.Require().NoError(t.Encode(obj))

	h, err := s.s.SetEncodedObject(obj)
	s.Require().NoError(err)

	stored, err := object.GetTag(s.s, h)
	s.Require().NoError(err)

	return stored
}

// branch points refs/heads/<name> at h.
func (s *BaseSuite) branch(name string, h plumbing.Hash) plumbing.ReferenceName {
	ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName(name), h)
	s.Require().NoError(s.s.SetReference(ref))

	return ref.Name()
}

// checkout points master at h; HEAD already targets master since Init.
func (s *BaseSuite) checkout(h plumbing.Hash) {
	s.Require().NoError(s.s.SetReference(plumbing.NewHashReference(plumbing.Master, h)))
}

func reversed(hashes []plumbing.Hash) []plumbing.Hash {
	out := make([]plumbing.Hash, len(hashes))
	for i, h := range hashes {
		out[len(hashes)-1-i] = h
	}

	return out
}

// storeTree stores a minimal tree object so tags can target a non-commit.
func (s *BaseSuite) storeTree() plumbing.Hash {
	obj := s.s.NewEncodedObject()
	obj.SetType(plumbing.TreeObject)

	w, err := obj.Writer()
	s.Require().NoError(err)
	s.Require().NoError(w.Close())

	h, err := s.s.SetEncodedObject(obj)
	s.Require().NoError(err)

	return h
}
