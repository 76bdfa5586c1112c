// Package testutil provides shared fixtures for pipeline tests: canned
// source trees and log content with known, stable timestamps.
package testutil

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

// FixtureMTime is the modification time applied to fixture files. Syslog
// test content anchors its year on it.
var FixtureMTime = time.Date(2012, time.June, 1, 0, 0, 0, 0, time.UTC)

// SyslogContent is a two-line syslog file producing two events with
// ascending timestamps.
const SyslogContent = "Mar  7 12:24:01 acserver sshd[1337]: session opened for user root\n" +
	"Mar  7 12:24:03 acserver sshd[1337]: session closed for user root\n"

// BinaryContent is unparseable by every bundled parser except filestat.
var BinaryContent = []byte{0x00, 0x01, 0x02, 0x03, 0x7f}

// PasswdContent is a minimal /etc/passwd with two accounts.
const PasswdContent = "root:x:0:0:root:/root:/bin/bash\n" +
	"dfir:x:1000:1000:Analyst:/home/dfir:/bin/zsh\n"

// NewSourceTree builds an in-memory Linux-flavored source tree: system
// files for preprocessing plus a parseable log and an unparseable binary.
func NewSourceTree(t *testing.T) afero.Fs {
	t.Helper()

	fs := afero.NewMemMapFs()
	files := map[string][]byte{
		"/etc/hostname":  []byte("acserver\n"),
		"/etc/timezone":  []byte("UTC\n"),
		"/etc/passwd":    []byte(PasswdContent),
		"/var/log/a.log": []byte(SyslogContent),
		"/var/b.bin":     BinaryContent,
	}
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, name, content, 0o644))
		require.NoError(t, fs.Chtimes(name, FixtureMTime, FixtureMTime))
	}
	return fs
}
