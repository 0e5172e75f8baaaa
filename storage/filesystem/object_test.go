package filesystem

import (
	"io"
	"testing"

	"github.com/csulmone/libgit2sharp/plumbing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/suite"
)

func TestObjectStorageSuite(t *testing.T) {
	suite.Run(t, new(ObjectStorageSuite))
}

type ObjectStorageSuite struct {
	suite.Suite
	fs  billy.Filesystem
	sto *Storage
}

func (s *ObjectStorageSuite) SetupTest() {
	s.fs = memfs.New()
	s.sto = NewStorage(s.fs)
}

func (s *ObjectStorageSuite) store(t plumbing.ObjectType, content string) plumbing.Hash {
	obj := s.sto.NewEncodedObject()
	obj.SetType(t)
	obj.SetSize(int64(len(content)))

	w, err := obj.Writer()
	s.NoError(err)
	_, err = w.Write([]byte(content))
	s.NoError(err)
	s.NoError(w.Close())

	h, err := s.sto.SetEncodedObject(obj)
	s.NoError(err)
	return h
}

func (s *ObjectStorageSuite) TestSetEncodedObjectAndEncodedObject() {
	h := s.store(plumbing.BlobObject, "Hello, World!\n")
	s.Equal("8ab686eafeb1f44702738c8b0f24f2567c36da6d", h.String())

	_, err := s.fs.Stat(s.fs.Join("objects", "8a", "b686eafeb1f44702738c8b0f24f2567c36da6d"))
	s.NoError(err)

	obj, err := s.sto.EncodedObject(plumbing.BlobObject, h)
	s.NoError(err)
	s.Equal(h, obj.Hash())
	s.Equal(plumbing.BlobObject, obj.Type())
	s.Equal(int64(14), obj.Size())

	r, err := obj.Reader()
	s.NoError(err)
	content, err := io.ReadAll(r)
	s.NoError(err)
	s.Equal("Hello, World!\n", string(content))
	s.NoError(r.Close())
}

func (s *ObjectStorageSuite) TestEncodedObjectAny() {
	h := s.store(plumbing.CommitObject, "fake commit")

	obj, err := s.sto.EncodedObject(plumbing.AnyObject, h)
	s.NoError(err)
	s.Equal(h, obj.Hash())
}

func (s *ObjectStorageSuite) TestEncodedObjectTypeMismatch() {
	h := s.store(plumbing.BlobObject, "foo")

	obj, err := s.sto.EncodedObject(plumbing.CommitObject, h)
	s.ErrorIs(err, plumbing.ErrObjectNotFound)
	s.Nil(obj)
}

func (s *ObjectStorageSuite) TestEncodedObjectNotFound() {
	h := plumbing.NewHash("dea7ce680b0bdcea389d7022a52b62d01f53f991")

	obj, err := s.sto.EncodedObject(plumbing.AnyObject, h)
	s.ErrorIs(err, plumbing.ErrObjectNotFound)
	s.Nil(obj)
}

func (s *ObjectStorageSuite) TestHasEncodedObject() {
	h := s.store(plumbing.BlobObject, "foo")

	s.NoError(s.sto.HasEncodedObject(h))
	s.ErrorIs(
		s.sto.HasEncodedObject(plumbing.NewHash("dea7ce680b0bdcea389d7022a52b62d01f53f991")),
		plumbing.ErrObjectNotFound,
	)
}

func (s *ObjectStorageSuite) TestSetEncodedObjectInvalidType() {
	obj := s.sto.NewEncodedObject()
	obj.SetType(plumbing.InvalidObject)

	_, err := s.sto.SetEncodedObject(obj)
	s.ErrorIs(err, plumbing.ErrInvalidType)
}

func (s *ObjectStorageSuite) TestCachedObjectSurvivesRemoval() {
	h := s.store(plumbing.BlobObject, "foo")

	_, err := s.sto.EncodedObject(plumbing.BlobObject, h)
	s.NoError(err)

	s.NoError(s.fs.Remove(s.sto.objectPath(h)))

	obj, err := s.sto.EncodedObject(plumbing.BlobObject, h)
	s.NoError(err)
	s.Equal(h, obj.Hash())
	s.NoError(s.sto.HasEncodedObject(h))
}

func (s *ObjectStorageSuite) TestCacheDisabled() {
	sto := NewStorageWithOptions(s.fs, Options{MaxCachedObjects: -1})

	obj := sto.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	obj.SetSize(3)
	w, err := obj.Writer()
	s.NoError(err)
	_, err = w.Write([]byte("foo"))
	s.NoError(err)
	s.NoError(w.Close())

	h, err := sto.SetEncodedObject(obj)
	s.NoError(err)

	_, err = sto.EncodedObject(plumbing.BlobObject, h)
	s.NoError(err)

	s.NoError(s.fs.Remove(sto.objectPath(h)))

	_, err = sto.EncodedObject(plumbing.BlobObject, h)
	s.ErrorIs(err, plumbing.ErrObjectNotFound)
}

func (s *ObjectStorageSuite) TestIterEncodedObjects() {
	blob := s.store(plumbing.BlobObject, "foo")
	commit := s.store(plumbing.CommitObject, "fake commit")

	iter, err := s.sto.IterEncodedObjects(plumbing.BlobObject)
	s.NoError(err)

	obj, err := iter.Next()
	s.NoError(err)
	s.Equal(blob, obj.Hash())

	_, err = iter.Next()
	s.ErrorIs(err, io.EOF)
	iter.Close()

	iter, err = s.sto.IterEncodedObjects(plumbing.AnyObject)
	s.NoError(err)

	var hashes []plumbing.Hash
	err = iter.ForEach(func(obj plumbing.EncodedObject) error {
		hashes = append(hashes, obj.Hash())
		return nil
	})
	s.NoError(err)
	s.ElementsMatch([]plumbing.Hash{blob, commit}, hashes)
}

func (s *ObjectStorageSuite) TestIterEncodedObjectsSkipsStrayFiles() {
	blob := s.store(plumbing.BlobObject, "foo")

	err := util.WriteFile(s.fs, s.fs.Join("objects", "tmp_obj_123456"), []byte("leftover"), 0644)
	s.NoError(err)
	s.NoError(s.fs.MkdirAll(s.fs.Join("objects", "pack"), 0755))
	s.NoError(s.fs.MkdirAll(s.fs.Join("objects", "info"), 0755))

	iter, err := s.sto.IterEncodedObjects(plumbing.AnyObject)
	s.NoError(err)

	var hashes []plumbing.Hash
	err = iter.ForEach(func(obj plumbing.EncodedObject) error {
		hashes = append(hashes, obj.Hash())
		return nil
	})
	s.NoError(err)
	s.Equal([]plumbing.Hash{blob}, hashes)
}

func (s *ObjectStorageSuite) TestIterEncodedObjectsEmpty() {
	iter, err := s.sto.IterEncodedObjects(plumbing.AnyObject)
	s.NoError(err)

	_, err = iter.Next()
	s.ErrorIs(err, io.EOF)
}

func (s *ObjectStorageSuite) TestInit() {
	s.NoError(s.sto.Init())

	for _, path := range []string{"objects/info", "objects/pack", "refs/heads", "refs/tags"} {
		fi, err := s.fs.Stat(path)
		s.NoError(err)
		s.True(fi.IsDir())
	}

	s.NoError(s.sto.Init())
}

func (s *ObjectStorageSuite) TestFilesystem() {
	s.Equal(s.fs, s.sto.Filesystem())
}
