// Package vfs defines the virtual file system boundary the pipeline
// collects from: file systems, file entries with stat information, path
// searching, and sources with volume snapshot stores.
//
// The pipeline only depends on the interfaces here. The bundled
// implementation maps any afero.Fs onto them, which covers plain OS
// directories, single files and in-memory fixtures; image mounting layers
// plug in behind the same interfaces.
package vfs

import (
	"io"

	"github.com/5l1v3r1/plaso/pathspec"
)

// Stat carries the metadata of one file entry. Timestamps are split into
// seconds and a nanosecond remainder because snapshot deduplication
// fingerprints both parts.
type Stat struct {
	Size  int64
	Inode uint64

	ATime      int64
	ATimeNano  int64
	MTime      int64
	MTimeNano  int64
	CTime      int64
	CTimeNano  int64
	CrTime     int64
	CrTimeNano int64

	Allocated bool
}

// FileEntry is one file, directory or link inside a file system.
type FileEntry interface {
	// Name returns the base name of the entry.
	Name() string

	// PathSpec returns the path specification addressing this entry.
	PathSpec() *pathspec.PathSpec

	IsFile() bool
	IsDirectory() bool
	IsLink() bool
	IsDevice() bool

	// IsAllocated reports whether the entry is allocated; deleted-but-
	// recoverable entries on forensic images report false and are skipped
	// by the collector.
	IsAllocated() bool

	// Stat returns the entry metadata.
	Stat() (Stat, error)

	// SubEntries lists the children of a directory entry.
	SubEntries() ([]FileEntry, error)

	// Open returns a reader over the entry's bytes.
	Open() (io.ReadCloser, error)
}

// FileSystem is one openable file system layer.
type FileSystem interface {
	// RootEntry returns the root directory entry.
	RootEntry() (FileEntry, error)

	// OpenEntry opens the entry at a location inside this file system.
	OpenEntry(location string) (FileEntry, error)
}

// Source is something the pipeline can collect from: a directory, a single
// file, or a mounted image that may carry volume snapshot stores.
type Source interface {
	// PathSpec addresses the source itself.
	PathSpec() *pathspec.PathSpec

	// FileSystem opens the primary file system of the source.
	FileSystem() (FileSystem, error)

	// SnapshotStoreCount reports how many volume snapshot stores the
	// source carries; zero for sources without snapshot support.
	SnapshotStoreCount() (int, error)

	// OpenSnapshotStore opens the file system of one snapshot store.
	// The index is zero-based.
	OpenSnapshotStore(index int) (FileSystem, error)
}

// FindSpec describes one path to locate. The location is rooted at "/" and
// resolved segment by segment; a segment may be a regular expression when
// SegmentsAreRegex is set.
type FindSpec struct {
	Location         string
	CaseSensitive    bool
	SegmentsAreRegex bool
}

// Searcher resolves find specifications against a file system. Both
// filtered collection and preprocessing plugins depend on it.
type Searcher interface {
	// Find returns the path specifications of all entries matching any of
	// the find specs, in discovery order.
	Find(findSpecs []FindSpec) ([]*pathspec.PathSpec, error)

	// OpenFileEntry opens an entry previously returned by Find.
	OpenFileEntry(spec *pathspec.PathSpec) (FileEntry, error)
}
