package vfs

import (
	"hash/fnv"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"

	"github.com/spf13/afero"

	"github.com/5l1v3r1/plaso/errors"
	"github.com/5l1v3r1/plaso/pathspec"
)

// AferoFS maps any afero.Fs onto the FileSystem interface. The specType
// and container spec determine how entries address themselves: an OS
// directory produces plain OS specs, a mounted image produces IMAGE specs
// nested under the image's own spec, a snapshot store produces VSS specs
// carrying the store index.
type AferoFS struct {
	fs         afero.Fs
	specType   pathspec.Type
	container  *pathspec.PathSpec
	storeIndex int
}

// NewOSFileSystem wraps a directory of the operating system's file system.
func NewOSFileSystem(root string) *AferoFS {
	return &AferoFS{
		fs:         afero.NewBasePathFs(afero.NewOsFs(), root),
		specType:   pathspec.TypeOS,
		storeIndex: -1,
	}
}

// NewAferoFileSystem wraps an arbitrary afero.Fs. Entries address
// themselves with the given spec type, nested under container when one is
// given.
func NewAferoFileSystem(backing afero.Fs, specType pathspec.Type, container *pathspec.PathSpec) *AferoFS {
	return &AferoFS{
		fs:         backing,
		specType:   specType,
		container:  container,
		storeIndex: -1,
	}
}

// NewSnapshotFileSystem wraps one snapshot store of a source. The store
// index is zero-based.
func NewSnapshotFileSystem(backing afero.Fs, storeIndex int, container *pathspec.PathSpec) *AferoFS {
	return &AferoFS{
		fs:         backing,
		specType:   pathspec.TypeSnapshot,
		container:  container,
		storeIndex: storeIndex,
	}
}

// RootEntry returns the root directory entry.
func (a *AferoFS) RootEntry() (FileEntry, error) {
	return a.OpenEntry("/")
}

// OpenEntry opens the entry at a location inside this file system.
func (a *AferoFS) OpenEntry(location string) (FileEntry, error) {
	location = path.Clean("/" + location)

	info, isLink, err := a.lstat(location)
	if err != nil {
		return nil, errors.WrapTransient(errors.ErrUnableToOpen, "AferoFS", "OpenEntry", location)
	}

	return &aferoEntry{
		fs:       a,
		location: location,
		info:     info,
		link:     isLink,
	}, nil
}

// lstat stats without following links when the backing store supports it.
func (a *AferoFS) lstat(location string) (fs.FileInfo, bool, error) {
	if lstater, ok := a.fs.(afero.Lstater); ok {
		info, lstatCalled, err := lstater.LstatIfPossible(location)
		if err != nil {
			return nil, false, err
		}
		isLink := lstatCalled && info.Mode()&os.ModeSymlink != 0
		return info, isLink, nil
	}
	info, err := a.fs.Stat(location)
	return info, false, err
}

// entrySpec builds the path specification for an entry location.
func (a *AferoFS) entrySpec(location string, inode uint64) *pathspec.PathSpec {
	var spec *pathspec.PathSpec
	switch a.specType {
	case pathspec.TypeSnapshot:
		spec = pathspec.NewSnapshot(location, a.storeIndex, a.container)
	default:
		spec = pathspec.NewWithParent(a.specType, location, a.container)
	}
	if inode != 0 {
		spec = spec.WithInode(inode)
	}
	return spec
}

// aferoEntry implements FileEntry over an afero.Fs entry.
type aferoEntry struct {
	fs       *AferoFS
	location string
	info     fs.FileInfo
	link     bool
}

func (e *aferoEntry) Name() string {
	return path.Base(e.location)
}

func (e *aferoEntry) PathSpec() *pathspec.PathSpec {
	return e.fs.entrySpec(e.location, e.inode())
}

func (e *aferoEntry) IsFile() bool      { return e.info.Mode().IsRegular() }
func (e *aferoEntry) IsDirectory() bool { return e.info.IsDir() }
func (e *aferoEntry) IsLink() bool      { return e.link }

func (e *aferoEntry) IsDevice() bool {
	return e.info.Mode()&os.ModeDevice != 0
}

// IsAllocated is always true for afero-backed stores; unallocated entries
// only exist on forensic image layers.
func (e *aferoEntry) IsAllocated() bool { return true }

// inode returns the backing inode when the store exposes one, falling back
// to a stable synthetic value derived from the location. The synthetic
// value keeps inode-keyed structures (snapshot deduplication, event
// enrichment) usable over stores without real inodes.
func (e *aferoEntry) inode() uint64 {
	if ino, ok := sysInode(e.info); ok {
		return ino
	}
	h := fnv.New64a()
	_, _ = io.WriteString(h, e.location)
	return h.Sum64()
}

func (e *aferoEntry) Stat() (Stat, error) {
	st := Stat{
		Size:      e.info.Size(),
		Inode:     e.inode(),
		Allocated: true,
	}

	mtime := e.info.ModTime()
	st.MTime = mtime.Unix()
	st.MTimeNano = int64(mtime.Nanosecond())

	if atime, atimeNano, ctime, ctimeNano, ok := sysTimes(e.info); ok {
		st.ATime = atime
		st.ATimeNano = atimeNano
		st.CTime = ctime
		st.CTimeNano = ctimeNano
	} else {
		// Stores without full stat report the modification time for the
		// access and change times as well.
		st.ATime, st.ATimeNano = st.MTime, st.MTimeNano
		st.CTime, st.CTimeNano = st.MTime, st.MTimeNano
	}
	return st, nil
}

func (e *aferoEntry) SubEntries() ([]FileEntry, error) {
	if !e.info.IsDir() {
		return nil, nil
	}

	infos, err := afero.ReadDir(e.fs.fs, e.location)
	if err != nil {
		return nil, errors.WrapTransient(err, "AferoFS", "SubEntries", e.location)
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Name() < infos[j].Name() })

	entries := make([]FileEntry, 0, len(infos))
	for _, info := range infos {
		childLocation := path.Join(e.location, info.Name())
		_, isLink, err := e.fs.lstat(childLocation)
		if err != nil {
			// A child that cannot be statted is skipped, not fatal.
			continue
		}
		entries = append(entries, &aferoEntry{
			fs:       e.fs,
			location: childLocation,
			info:     info,
			link:     isLink,
		})
	}
	return entries, nil
}

func (e *aferoEntry) Open() (io.ReadCloser, error) {
	f, err := e.fs.fs.Open(e.location)
	if err != nil {
		return nil, errors.WrapTransient(errors.ErrUnableToOpen, "AferoFS", "Open", e.location)
	}
	return f, nil
}
