package vfs

import (
	"os"

	"github.com/spf13/afero"

	"github.com/5l1v3r1/plaso/errors"
	"github.com/5l1v3r1/plaso/pathspec"
)

// DirectorySource is a source rooted at an OS directory or single file.
// It carries no snapshot stores.
type DirectorySource struct {
	root string
	spec *pathspec.PathSpec
}

// NewDirectorySource validates and wraps an OS path as a source. A path
// that does not exist is a configuration error, reported before any queue
// activity begins.
func NewDirectorySource(root string) (*DirectorySource, error) {
	if root == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "DirectorySource", "NewDirectorySource", "source path")
	}
	if _, err := os.Stat(root); err != nil {
		return nil, errors.WrapInvalid(errors.ErrSourceNotFound, "DirectorySource", "NewDirectorySource", root)
	}
	return &DirectorySource{
		root: root,
		spec: pathspec.New(pathspec.TypeOS, root),
	}, nil
}

// PathSpec addresses the source itself.
func (s *DirectorySource) PathSpec() *pathspec.PathSpec { return s.spec }

// FileSystem opens the primary file system of the source. For a single
// file the file system is rooted at the containing directory.
func (s *DirectorySource) FileSystem() (FileSystem, error) {
	info, err := os.Stat(s.root)
	if err != nil {
		return nil, errors.WrapTransient(errors.ErrUnableToOpenFS, "DirectorySource", "FileSystem", s.root)
	}
	if info.IsDir() {
		return NewOSFileSystem(s.root), nil
	}
	return NewOSFileSystem(""), nil
}

// SnapshotStoreCount reports zero; OS directories have no snapshot stores.
func (s *DirectorySource) SnapshotStoreCount() (int, error) { return 0, nil }

// OpenSnapshotStore always fails for OS directories.
func (s *DirectorySource) OpenSnapshotStore(int) (FileSystem, error) {
	return nil, errors.WrapInvalid(errors.ErrSnapshotsUnsupported, "DirectorySource", "OpenSnapshotStore", s.root)
}

// MemorySource is a source over in-memory file systems, with optional
// snapshot stores. Used by tests and by image layers that materialize
// their contents into an afero.Fs.
type MemorySource struct {
	spec     *pathspec.PathSpec
	primary  afero.Fs
	specType pathspec.Type
	stores   []afero.Fs
}

// NewMemorySource wraps a primary in-memory file system. Entries address
// themselves as image entries nested under spec.
func NewMemorySource(spec *pathspec.PathSpec, primary afero.Fs) *MemorySource {
	return &MemorySource{
		spec:     spec,
		primary:  primary,
		specType: pathspec.TypeImage,
	}
}

// AddSnapshotStore appends one snapshot store file system. Stores are
// indexed zero-based in the order added.
func (s *MemorySource) AddSnapshotStore(store afero.Fs) {
	s.stores = append(s.stores, store)
}

// PathSpec addresses the source itself.
func (s *MemorySource) PathSpec() *pathspec.PathSpec { return s.spec }

// FileSystem opens the primary file system of the source.
func (s *MemorySource) FileSystem() (FileSystem, error) {
	return NewAferoFileSystem(s.primary, s.specType, s.spec), nil
}

// SnapshotStoreCount reports the number of snapshot stores.
func (s *MemorySource) SnapshotStoreCount() (int, error) {
	return len(s.stores), nil
}

// OpenSnapshotStore opens one snapshot store by zero-based index.
func (s *MemorySource) OpenSnapshotStore(index int) (FileSystem, error) {
	if index < 0 || index >= len(s.stores) {
		return nil, errors.WrapInvalid(errors.ErrStoreOutOfRange, "MemorySource", "OpenSnapshotStore", s.spec.Location)
	}
	return NewSnapshotFileSystem(s.stores[index], index, s.spec), nil
}
