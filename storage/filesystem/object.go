package filesystem

import (
	"io"
	"os"
	"sync"

	"github.com/csulmone/libgit2sharp/plumbing"
	"github.com/csulmone/libgit2sharp/plumbing/format/objfile"
	"github.com/csulmone/libgit2sharp/plumbing/storer"
	"github.com/csulmone/libgit2sharp/utils/ioutil"

	"github.com/go-git/go-billy/v5"
	"github.com/golang/groupcache/lru"
)

const (
	objectsPath     = "objects"
	infoPath        = "info"
	packPath        = "pack"
	tmpObjectPrefix = "tmp_obj_"
)

// ObjectStorage is an implementation of storer.EncodedObjectStorer that keeps
// each object as a zlib compressed loose object file, fanned out over one
// directory per leading hash byte (this is, `objects/aa/bbcc...`).
type ObjectStorage struct {
	fs    billy.Filesystem
	cache *objectCache
}

func newObjectStorage(fs billy.Filesystem, ops Options) ObjectStorage {
	return ObjectStorage{
		fs:    fs,
		cache: newObjectCache(ops.MaxCachedObjects),
	}
}

// NewEncodedObject returns a new plumbing.EncodedObject, to be saved later by
// SetEncodedObject.
func (s *ObjectStorage) NewEncodedObject() plumbing.EncodedObject {
	return &plumbing.MemoryObject{}
}

// SetEncodedObject saves an object into the storage, the object should be
// fully written to before set it.
func (s *ObjectStorage) SetEncodedObject(o plumbing.EncodedObject) (h plumbing.Hash, err error) {
	if !o.Type().Valid() {
		return plumbing.ZeroHash, plumbing.ErrInvalidType
	}

	ow, err := newObjectWriter(s.fs)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	defer ioutil.CheckClose(ow, &err)

	or, err := o.Reader()
	if err != nil {
		return plumbing.ZeroHash, err
	}

	defer ioutil.CheckClose(or, &err)

	if err = ow.WriteHeader(o.Type(), o.Size()); err != nil {
		return plumbing.ZeroHash, err
	}

	if _, err = io.Copy(ow, or); err != nil {
		return plumbing.ZeroHash, err
	}

	return ow.Hash(), err
}

// objectWriter writes a loose object to a temp file, on Close the file is
// renamed to its fan-out location, named after the hash of the written
// content.
type objectWriter struct {
	objfile.Writer
	fs billy.Filesystem
	f  billy.File
}

func newObjectWriter(fs billy.Filesystem) (*objectWriter, error) {
	f, err := fs.TempFile(objectsPath, tmpObjectPrefix)
	if err != nil {
		return nil, err
	}

	return &objectWriter{
		Writer: (*objfile.NewWriter(f)),
		fs:     fs,
		f:      f,
	}, nil
}

func (w *objectWriter) Close() error {
	if err := w.Writer.Close(); err != nil {
		return err
	}

	if err := w.f.Close(); err != nil {
		return err
	}

	return w.save()
}

func (w *objectWriter) save() error {
	hex := w.Hash().String()
	file := w.fs.Join(objectsPath, hex[0:2], hex[2:])

	return w.fs.Rename(w.f.Name(), file)
}

// HasEncodedObject returns nil if the object exists, without actually
// reading the object data from storage.
func (s *ObjectStorage) HasEncodedObject(h plumbing.Hash) error {
	if _, ok := s.cache.get(h); ok {
		return nil
	}

	if _, err := s.fs.Stat(s.objectPath(h)); err != nil {
		if os.IsNotExist(err) {
			return plumbing.ErrObjectNotFound
		}

		return err
	}

	return nil
}

// EncodedObject returns the object with the given hash, by searching for it in
// the loose object directories. If the object is found but does not have the
// requested type, plumbing.ErrObjectNotFound is returned.
func (s *ObjectStorage) EncodedObject(t plumbing.ObjectType, h plumbing.Hash) (plumbing.EncodedObject, error) {
	obj, ok := s.cache.get(h)
	if !ok {
		var err error
		obj, err = s.getFromUnpacked(h)
		if err != nil {
			return nil, err
		}

		s.cache.add(h, obj)
	}

	if plumbing.AnyObject != t && obj.Type() != t {
		return nil, plumbing.ErrObjectNotFound
	}

	return obj, nil
}

func (s *ObjectStorage) getFromUnpacked(h plumbing.Hash) (obj plumbing.EncodedObject, err error) {
	f, err := s.fs.Open(s.objectPath(h))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, plumbing.ErrObjectNotFound
		}

		return nil, err
	}

	defer ioutil.CheckClose(f, &err)

	r, err := objfile.NewReader(f)
	if err != nil {
		return nil, err
	}

	defer ioutil.CheckClose(r, &err)

	t, size, err := r.Header()
	if err != nil {
		return nil, err
	}

	obj = s.NewEncodedObject()
	obj.SetType(t)
	obj.SetSize(size)

	w, err := obj.Writer()
	if err != nil {
		return nil, err
	}

	defer ioutil.CheckClose(w, &err)

	_, err = io.Copy(w, r)
	return obj, err
}

// IterEncodedObjects returns an iterator for all the objects of the given
// type in the storage. Objects of other types found while scanning the
// object directories are skipped.
func (s *ObjectStorage) IterEncodedObjects(t plumbing.ObjectType) (storer.EncodedObjectIter, error) {
	hashes, err := s.objectHashes()
	if err != nil {
		return nil, err
	}

	return &objectsIter{s: s, t: t, h: hashes}, nil
}

// objectHashes scans the fan-out directories and returns the hashes of every
// loose object found.
func (s *ObjectStorage) objectHashes() ([]plumbing.Hash, error) {
	files, err := s.fs.ReadDir(objectsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, err
	}

	var hashes []plumbing.Hash
	for _, f := range files {
		if !f.IsDir() || len(f.Name()) != 2 || !isHex(f.Name()) {
			continue
		}

		base := f.Name()
		objects, err := s.fs.ReadDir(s.fs.Join(objectsPath, base))
		if err != nil {
			return nil, err
		}

		for _, o := range objects {
			if o.IsDir() || !isHex(o.Name()) {
				continue
			}

			hashes = append(hashes, plumbing.NewHash(base+o.Name()))
		}
	}

	return hashes, nil
}

func (s *ObjectStorage) objectPath(h plumbing.Hash) string {
	hex := h.String()
	return s.fs.Join(objectsPath, hex[0:2], hex[2:])
}

func isHex(s string) bool {
	for _, b := range []byte(s) {
		if isNum(b) || isHexAlpha(b) {
			continue
		}

		return false
	}

	return true
}

func isNum(b byte) bool {
	return b >= '0' && b <= '9'
}

func isHexAlpha(b byte) bool {
	return b >= 'a' && b <= 'f' || b >= 'A' && b <= 'F'
}

type objectsIter struct {
	s *ObjectStorage
	t plumbing.ObjectType
	h []plumbing.Hash
}

func (iter *objectsIter) Next() (plumbing.EncodedObject, error) {
	for len(iter.h) != 0 {
		obj, err := iter.s.EncodedObject(plumbing.AnyObject, iter.h[0])
		iter.h = iter.h[1:]

		if err != nil {
			return nil, err
		}

		if iter.t == plumbing.AnyObject || iter.t == obj.Type() {
			return obj, nil
		}
	}

	return nil, io.EOF
}

func (iter *objectsIter) ForEach(cb func(plumbing.EncodedObject) error) error {
	return storer.ForEachIterator(iter, cb)
}

func (iter *objectsIter) Close() {
	iter.h = []plumbing.Hash{}
}

// objectCache holds decoded objects keyed by hash, the instances are shared
// between readers. A nil cache is valid and caches nothing.
type objectCache struct {
	mutex sync.Mutex
	lru   *lru.Cache
}

func newObjectCache(maxEntries int) *objectCache {
	if maxEntries <= 0 {
		return nil
	}

	return &objectCache{lru: lru.New(maxEntries)}
}

func (c *objectCache) get(h plumbing.Hash) (plumbing.EncodedObject, bool) {
	if c == nil {
		return nil, false
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	v, ok := c.lru.Get(h)
	if !ok {
		return nil, false
	}

	return v.(plumbing.EncodedObject), true
}

func (c *objectCache) add(h plumbing.Hash, obj plumbing.EncodedObject) {
	if c == nil {
		return
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.lru.Add(h, obj)
}
