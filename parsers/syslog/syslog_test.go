package syslog

import (
	"context"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/5l1v3r1/plaso/errors"
	"github.com/5l1v3r1/plaso/event"
	"github.com/5l1v3r1/plaso/knowledge"
	"github.com/5l1v3r1/plaso/pathspec"
	"github.com/5l1v3r1/plaso/vfs"
)

func logEntry(t *testing.T, content string, mtime time.Time) vfs.FileEntry {
	t.Helper()
	backing := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(backing, "/var/log/syslog", []byte(content), 0o644))
	require.NoError(t, backing.Chtimes("/var/log/syslog", mtime, mtime))
	fs := vfs.NewAferoFileSystem(backing, pathspec.TypeImage, nil)
	entry, err := fs.OpenEntry("/var/log/syslog")
	require.NoError(t, err)
	return entry
}

func TestParseLines(t *testing.T) {
	content := "Mar  7 12:24:01 acserver sshd[1337]: session opened for user root\n" +
		"Mar  7 12:24:03 acserver cron: job started\n"
	mtime := time.Date(2012, time.June, 1, 0, 0, 0, 0, time.UTC)

	events, err := New().Parse(context.Background(), knowledge.NewBase(), logEntry(t, content, mtime))
	require.NoError(t, err)
	require.Len(t, events, 2)

	first := events[0]
	assert.Equal(t,
		event.TimestampFromTime(time.Date(2012, time.March, 7, 12, 24, 1, 0, time.UTC)),
		first.Timestamp)
	assert.Equal(t, event.DescWrittenToLog, first.TimestampDesc)
	assert.Equal(t, "acserver", first.Hostname)
	assert.Equal(t, "[sshd, pid: 1337] session opened for user root", first.Description)
	assert.Equal(t, "sshd", first.Attributes.GetString("reporter"))
	assert.Equal(t, int64(1337), first.Attributes.GetInt("pid"))

	assert.Equal(t, "[cron] job started", events[1].Description)
	assert.False(t, events[1].Attributes.Has("pid"))
}

func TestParseUsesKnowledgeBaseTimezone(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	kb := knowledge.NewBase()
	kb.SetTimezone(loc)

	content := "Mar  7 12:00:00 host proc: hi\n"
	mtime := time.Date(2012, time.June, 1, 0, 0, 0, 0, time.UTC)

	events, err := New().Parse(context.Background(), kb, logEntry(t, content, mtime))
	require.NoError(t, err)
	require.Len(t, events, 1)
	want := time.Date(2012, time.March, 7, 12, 0, 0, 0, loc)
	assert.Equal(t, event.TimestampFromTime(want), events[0].Timestamp)
}

func TestParseYearRollsOverAtDecember(t *testing.T) {
	content := "Dec 31 23:59:59 host proc: old year\n" +
		"Jan  1 00:00:01 host proc: new year\n"
	mtime := time.Date(2012, time.January, 2, 0, 0, 0, 0, time.UTC)

	events, err := New().Parse(context.Background(), knowledge.NewBase(), logEntry(t, content, mtime))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, 2012, events[0].Time().Year())
	assert.Equal(t, 2013, events[1].Time().Year())
}

func TestParseRejectsWrongFormat(t *testing.T) {
	mtime := time.Date(2012, time.June, 1, 0, 0, 0, 0, time.UTC)

	_, err := New().Parse(context.Background(), knowledge.NewBase(),
		logEntry(t, "\x00\x01binary junk", mtime))
	require.Error(t, err)
	assert.True(t, errors.IsWrongFormat(err))

	_, err = New().Parse(context.Background(), knowledge.NewBase(), logEntry(t, "", mtime))
	require.Error(t, err)
	assert.True(t, errors.IsWrongFormat(err))
}

func TestParseSkipsMalformedTailLines(t *testing.T) {
	content := "Mar  7 12:24:01 host proc: fine\n" +
		"not a syslog line\n" +
		"Mar  7 12:24:05 host proc: also fine\n"
	mtime := time.Date(2012, time.June, 1, 0, 0, 0, 0, time.UTC)

	events, err := New().Parse(context.Background(), knowledge.NewBase(), logEntry(t, content, mtime))
	require.NoError(t, err)
	assert.Len(t, events, 2)
}
