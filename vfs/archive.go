package vfs

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"io"
	"path"
	"strings"

	"github.com/5l1v3r1/plaso/errors"
	"github.com/5l1v3r1/plaso/pathspec"
)

// ArchiveFormat identifies a recognized archive container format.
type ArchiveFormat string

// Recognized container formats.
const (
	ArchiveZip  ArchiveFormat = "zip"
	ArchiveTar  ArchiveFormat = "tar"
	ArchiveGzip ArchiveFormat = "gzip"
)

// ArchiveHeaderSize is how many leading bytes DetectArchive needs; the tar
// magic sits at offset 257.
const ArchiveHeaderSize = 262

// DetectArchive matches the leading bytes of a file against the container
// magic table: zip ("PK\x03\x04" at 0), tar ("ustar" at 257) and gzip
// ("\x1f\x8b" at 0).
func DetectArchive(header []byte) (ArchiveFormat, bool) {
	if len(header) >= 4 && bytes.Equal(header[:4], []byte{'P', 'K', 0x03, 0x04}) {
		return ArchiveZip, true
	}
	if len(header) >= 2 && header[0] == 0x1f && header[1] == 0x8b {
		return ArchiveGzip, true
	}
	if len(header) >= 262 && bytes.Equal(header[257:262], []byte("ustar")) {
		return ArchiveTar, true
	}
	return "", false
}

// ArchiveMembers lists the file members of a recognized container as
// nested path specifications under the container's own spec. Directory
// members are skipped; the members themselves are walked again by the
// caller's depth-bounded recursion, not here.
func ArchiveMembers(entry FileEntry, format ArchiveFormat) ([]*pathspec.PathSpec, error) {
	data, err := readAll(entry)
	if err != nil {
		return nil, err
	}

	parent := entry.PathSpec()
	var members []*pathspec.PathSpec

	switch format {
	case ArchiveZip:
		reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return nil, errors.WrapTransient(err, "Archive", "ArchiveMembers", "zip open")
		}
		for _, member := range reader.File {
			if member.FileInfo().IsDir() {
				continue
			}
			location := path.Clean("/" + member.Name)
			members = append(members, pathspec.NewWithParent(pathspec.TypeArchive, location, parent))
		}

	case ArchiveTar:
		reader := tar.NewReader(bytes.NewReader(data))
		for {
			header, err := reader.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				return nil, errors.WrapTransient(err, "Archive", "ArchiveMembers", "tar read")
			}
			if header.Typeflag != tar.TypeReg {
				continue
			}
			location := path.Clean("/" + header.Name)
			members = append(members, pathspec.NewWithParent(pathspec.TypeArchive, location, parent))
		}

	case ArchiveGzip:
		members = append(members, pathspec.NewWithParent(
			pathspec.TypeArchive, gzipMemberLocation(parent.Location), parent))

	default:
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Archive", "ArchiveMembers", string(format))
	}

	return members, nil
}

// OpenArchiveMember resolves one member of a container entry by location.
func OpenArchiveMember(container FileEntry, location string) (FileEntry, error) {
	data, err := readAll(container)
	if err != nil {
		return nil, err
	}

	header := data
	if len(header) > ArchiveHeaderSize {
		header = header[:ArchiveHeaderSize]
	}
	format, ok := DetectArchive(header)
	if !ok {
		return nil, errors.WrapTransient(errors.ErrUnableToOpen, "Archive", "OpenArchiveMember", location)
	}

	parent := container.PathSpec()

	switch format {
	case ArchiveZip:
		reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return nil, errors.WrapTransient(err, "Archive", "OpenArchiveMember", "zip open")
		}
		for _, member := range reader.File {
			if path.Clean("/"+member.Name) != location {
				continue
			}
			rc, err := member.Open()
			if err != nil {
				return nil, errors.WrapTransient(err, "Archive", "OpenArchiveMember", location)
			}
			memberData, err := io.ReadAll(rc)
			rc.Close()
			if err != nil {
				return nil, errors.WrapTransient(err, "Archive", "OpenArchiveMember", location)
			}
			return newArchiveEntry(location, memberData, member.Modified.Unix(), parent), nil
		}

	case ArchiveTar:
		reader := tar.NewReader(bytes.NewReader(data))
		for {
			header, err := reader.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				return nil, errors.WrapTransient(err, "Archive", "OpenArchiveMember", "tar read")
			}
			if path.Clean("/"+header.Name) != location {
				continue
			}
			memberData, err := io.ReadAll(reader)
			if err != nil {
				return nil, errors.WrapTransient(err, "Archive", "OpenArchiveMember", location)
			}
			return newArchiveEntry(location, memberData, header.ModTime.Unix(), parent), nil
		}

	case ArchiveGzip:
		if location == gzipMemberLocation(parent.Location) {
			reader, err := gzip.NewReader(bytes.NewReader(data))
			if err != nil {
				return nil, errors.WrapTransient(err, "Archive", "OpenArchiveMember", "gzip open")
			}
			memberData, err := io.ReadAll(reader)
			reader.Close()
			if err != nil {
				return nil, errors.WrapTransient(err, "Archive", "OpenArchiveMember", location)
			}
			modTime := reader.Header.ModTime.Unix()
			return newArchiveEntry(location, memberData, modTime, parent), nil
		}
	}

	return nil, errors.WrapTransient(errors.ErrPathNotFound, "Archive", "OpenArchiveMember", location)
}

// gzipMemberLocation names the single member of a gzip stream after the
// container's full location with the .gz suffix stripped, so members of
// containers in subdirectories stay resolvable.
func gzipMemberLocation(containerLocation string) string {
	name := strings.TrimSuffix(containerLocation, ".gz")
	return path.Clean("/" + name)
}

func readAll(entry FileEntry) ([]byte, error) {
	rc, err := entry.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, errors.WrapTransient(err, "Archive", "readAll", entry.Name())
	}
	return data, nil
}

// archiveEntry is a file entry over an extracted archive member.
type archiveEntry struct {
	location string
	data     []byte
	mtime    int64
	spec     *pathspec.PathSpec
}

func newArchiveEntry(location string, data []byte, mtime int64, parent *pathspec.PathSpec) *archiveEntry {
	return &archiveEntry{
		location: location,
		data:     data,
		mtime:    mtime,
		spec:     pathspec.NewWithParent(pathspec.TypeArchive, location, parent),
	}
}

func (e *archiveEntry) Name() string                 { return path.Base(e.location) }
func (e *archiveEntry) PathSpec() *pathspec.PathSpec { return e.spec }
func (e *archiveEntry) IsFile() bool                 { return true }
func (e *archiveEntry) IsDirectory() bool            { return false }
func (e *archiveEntry) IsLink() bool                 { return false }
func (e *archiveEntry) IsDevice() bool               { return false }
func (e *archiveEntry) IsAllocated() bool            { return true }

func (e *archiveEntry) Stat() (Stat, error) {
	return Stat{
		Size:      int64(len(e.data)),
		MTime:     e.mtime,
		ATime:     e.mtime,
		CTime:     e.mtime,
		Allocated: true,
	}, nil
}

func (e *archiveEntry) SubEntries() ([]FileEntry, error) { return nil, nil }

func (e *archiveEntry) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(e.data)), nil
}
