package vfs

import (
	"github.com/5l1v3r1/plaso/errors"
	"github.com/5l1v3r1/plaso/pathspec"
)

// Context resolves path specifications back to file entries against one
// source. Each worker owns a private Context; the file system handles it
// caches are not safe for concurrent use.
type Context struct {
	source Source

	primary  FileSystem
	snapshot map[int]FileSystem
}

// NewContext returns a resolver context over a source.
func NewContext(source Source) *Context {
	return &Context{
		source:   source,
		snapshot: make(map[int]FileSystem),
	}
}

// OpenFileEntry resolves a path specification to a file entry. Archive
// specs are resolved by first opening the parent container, recursively.
func (c *Context) OpenFileEntry(spec *pathspec.PathSpec) (FileEntry, error) {
	if spec == nil {
		return nil, errors.WrapInvalid(errors.ErrPathNotFound, "Context", "OpenFileEntry", "nil path spec")
	}

	switch spec.Type {
	// OS and image specs both carry locations relative to the source
	// root, so both resolve through the source's primary file system.
	case pathspec.TypeOS, pathspec.TypeImage:
		fs, err := c.primaryFileSystem()
		if err != nil {
			return nil, err
		}
		return fs.OpenEntry(spec.Location)

	case pathspec.TypeSnapshot:
		fs, err := c.snapshotFileSystem(spec.StoreIndex)
		if err != nil {
			return nil, err
		}
		return fs.OpenEntry(spec.Location)

	case pathspec.TypeArchive:
		container, err := c.OpenFileEntry(spec.Parent)
		if err != nil {
			return nil, err
		}
		return OpenArchiveMember(container, spec.Location)
	}

	return nil, errors.WrapInvalid(errors.ErrPathNotFound, "Context", "OpenFileEntry", string(spec.Type))
}

func (c *Context) primaryFileSystem() (FileSystem, error) {
	if c.primary == nil {
		fs, err := c.source.FileSystem()
		if err != nil {
			return nil, err
		}
		c.primary = fs
	}
	return c.primary, nil
}

func (c *Context) snapshotFileSystem(index int) (FileSystem, error) {
	if fs, ok := c.snapshot[index]; ok {
		return fs, nil
	}
	fs, err := c.source.OpenSnapshotStore(index)
	if err != nil {
		return nil, err
	}
	c.snapshot[index] = fs
	return fs, nil
}
