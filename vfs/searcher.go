package vfs

import (
	"regexp"
	"strings"

	"github.com/5l1v3r1/plaso/errors"
	"github.com/5l1v3r1/plaso/pathspec"
)

// FileSystemSearcher resolves find specifications against one file system
// by walking locations segment by segment from the root.
type FileSystemSearcher struct {
	fs FileSystem
}

// NewSearcher returns a searcher over a file system.
func NewSearcher(fs FileSystem) *FileSystemSearcher {
	return &FileSystemSearcher{fs: fs}
}

// Find returns the path specifications of every entry matching any of the
// find specs. A spec that matches nothing contributes no results and no
// error.
func (s *FileSystemSearcher) Find(findSpecs []FindSpec) ([]*pathspec.PathSpec, error) {
	var found []*pathspec.PathSpec
	for _, findSpec := range findSpecs {
		matches, err := s.findOne(findSpec)
		if err != nil {
			return nil, err
		}
		found = append(found, matches...)
	}
	return found, nil
}

// OpenFileEntry opens an entry previously located by Find.
func (s *FileSystemSearcher) OpenFileEntry(spec *pathspec.PathSpec) (FileEntry, error) {
	return s.fs.OpenEntry(spec.Location)
}

func (s *FileSystemSearcher) findOne(findSpec FindSpec) ([]*pathspec.PathSpec, error) {
	segments := splitLocation(findSpec.Location)
	if len(segments) == 0 {
		return nil, errors.WrapInvalid(errors.ErrPathNotFound, "Searcher", "Find", "empty location")
	}

	root, err := s.fs.RootEntry()
	if err != nil {
		return nil, err
	}

	frontier := []FileEntry{root}
	for depth, segment := range segments {
		match, err := segmentMatcher(segment, findSpec)
		if err != nil {
			return nil, err
		}

		last := depth == len(segments)-1
		var next []FileEntry
		for _, entry := range frontier {
			children, err := entry.SubEntries()
			if err != nil {
				continue
			}
			for _, child := range children {
				if !match(child.Name()) {
					continue
				}
				if last || child.IsDirectory() {
					next = append(next, child)
				}
			}
		}
		frontier = next
		if len(frontier) == 0 {
			return nil, nil
		}
	}

	specs := make([]*pathspec.PathSpec, 0, len(frontier))
	for _, entry := range frontier {
		specs = append(specs, entry.PathSpec())
	}
	return specs, nil
}

func segmentMatcher(segment string, findSpec FindSpec) (func(string) bool, error) {
	if findSpec.SegmentsAreRegex {
		pattern := "^(?:" + segment + ")$"
		if !findSpec.CaseSensitive {
			pattern = "(?i)" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, errors.WrapInvalid(err, "Searcher", "Find", segment)
		}
		return re.MatchString, nil
	}
	if findSpec.CaseSensitive {
		return func(name string) bool { return name == segment }, nil
	}
	return func(name string) bool { return strings.EqualFold(name, segment) }, nil
}

func splitLocation(location string) []string {
	var segments []string
	for _, segment := range strings.Split(location, "/") {
		if segment != "" {
			segments = append(segments, segment)
		}
	}
	return segments
}
