package collector

import (
	"bufio"
	"log/slog"
	"regexp"
	"strings"

	"github.com/spf13/afero"

	"github.com/5l1v3r1/plaso/errors"
	"github.com/5l1v3r1/plaso/vfs"
)

// LoadFilterFile reads a filter file: one path pattern per line, blank
// lines and #-prefixed comment lines ignored.
func LoadFilterFile(fsys afero.Fs, path string) ([]string, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, errors.WrapInvalid(errors.ErrSourceNotFound, "collector", "LoadFilterFile", path)
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.WrapTransient(err, "collector", "LoadFilterFile", path)
	}
	return patterns, nil
}

// BuildFindSpecs turns filter patterns into find specs. Pattern segments
// are regular expressions. Patterns that are not rooted at "/" or that do
// not compile are logged and skipped, never fatal.
func BuildFindSpecs(logger *slog.Logger, patterns []string) []vfs.FindSpec {
	var findSpecs []vfs.FindSpec
	for _, pattern := range patterns {
		if !strings.HasPrefix(pattern, "/") {
			logger.Warn("skipping filter pattern, not rooted at /", "pattern", pattern)
			continue
		}
		if !segmentsCompile(pattern) {
			logger.Warn("skipping filter pattern, invalid regex segment", "pattern", pattern)
			continue
		}
		findSpecs = append(findSpecs, vfs.FindSpec{
			Location:         pattern,
			CaseSensitive:    true,
			SegmentsAreRegex: true,
		})
	}
	return findSpecs
}

func segmentsCompile(pattern string) bool {
	for _, segment := range strings.Split(pattern, "/") {
		if segment == "" {
			continue
		}
		if _, err := regexp.Compile("^(?:" + segment + ")$"); err != nil {
			return false
		}
	}
	return true
}
