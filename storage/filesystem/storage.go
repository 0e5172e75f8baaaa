// Package filesystem is a storage backend base on filesystems
package filesystem

import (
	"os"

	"github.com/go-git/go-billy/v5"
)

// Storage is an implementation of storage.Storer that stores data on disk in the
// standard git format (this is, the .git directory). Zero values of this type
// are not safe to use, see the NewStorage function below.
type Storage struct {
	fs billy.Filesystem

	ObjectStorage
	ReferenceStorage
}

// Options holds configuration for the storage.
type Options struct {
	// MaxCachedObjects is the max number of decoded objects held in memory.
	// When zero, DefaultMaxCachedObjects is used. A negative value disables
	// the cache.
	MaxCachedObjects int
}

// DefaultMaxCachedObjects is the cache capacity used by NewStorage.
const DefaultMaxCachedObjects = 96

// NewStorage returns a new Storage backed by a given `fs.Filesystem` rooted at
// the .git directory.
func NewStorage(fs billy.Filesystem) *Storage {
	return NewStorageWithOptions(fs, Options{})
}

// NewStorageWithOptions returns a new Storage with extra options.
func NewStorageWithOptions(fs billy.Filesystem, ops Options) *Storage {
	if ops.MaxCachedObjects == 0 {
		ops.MaxCachedObjects = DefaultMaxCachedObjects
	}

	return &Storage{
		fs: fs,

		ObjectStorage:    newObjectStorage(fs, ops),
		ReferenceStorage: ReferenceStorage{fs: fs},
	}
}

// Filesystem returns the underlying filesystem
func (s *Storage) Filesystem() billy.Filesystem {
	return s.fs
}

// Init creates the standard directory skeleton, it is not an error to call it
// on an already initialized storage.
func (s *Storage) Init() error {
	mustExists := []string{
		s.fs.Join(objectsPath, infoPath),
		s.fs.Join(objectsPath, packPath),
		s.fs.Join(refsPath, "heads"),
		s.fs.Join(refsPath, "tags"),
	}

	for _, path := range mustExists {
		if err := s.fs.MkdirAll(path, os.ModeDir|os.ModePerm); err != nil {
			return err
		}
	}

	return nil
}
