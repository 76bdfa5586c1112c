package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/5l1v3r1/plaso/event"
)

func sampleEvent() *event.Event {
	ev := event.New(1331718000000000, event.DescLastWritten, "LOG", "Syslog", "session opened")
	ev.Filename = "/var/log/a.log"
	ev.DisplayName = "OS:/var/log/a.log"
	ev.Parser = "syslog"
	ev.Hostname = "acserver"
	ev.Username = "root"
	ev.Inode = 4711
	ev.SetAttribute("pid", event.Int(1337))
	return ev
}

func TestFieldContainsMatches(t *testing.T) {
	tests := []struct {
		name      string
		field     string
		substring string
		want      bool
	}{
		{"filename hit", FieldFilename, "a.log", true},
		{"filename miss", FieldFilename, "b.bin", false},
		{"case folded", FieldHostname, "ACSERVER", true},
		{"parser", FieldParser, "sys", true},
		{"inode rendered", FieldInode, "4711", true},
		{"attribute fallback", "pid", "1337", true},
		{"unknown attribute", "nope", "x", false},
	}

	ev := sampleEvent()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f, err := NewFieldContains(tc.field, tc.substring)
			require.NoError(t, err)
			assert.Equal(t, tc.want, f.Matches(ev))
		})
	}
}

func TestFieldContainsCaseSensitive(t *testing.T) {
	f := &FieldContains{Field: FieldHostname, Substring: "ACSERVER", CaseSensitive: true}
	assert.False(t, f.Matches(sampleEvent()))
	f.Substring = "acserver"
	assert.True(t, f.Matches(sampleEvent()))
}

func TestNewFieldContainsValidation(t *testing.T) {
	_, err := NewFieldContains("", "x")
	require.Error(t, err)
	_, err = NewFieldContains("filename", "")
	require.Error(t, err)
}

func TestAny(t *testing.T) {
	miss, err := NewFieldContains(FieldFilename, "b.bin")
	require.NoError(t, err)
	hit, err := NewFieldContains(FieldUsername, "root")
	require.NoError(t, err)

	assert.False(t, Any{}.Matches(sampleEvent()))
	assert.False(t, Any{miss}.Matches(sampleEvent()))
	assert.True(t, Any{miss, hit}.Matches(sampleEvent()))
}

func TestMatchesNilEvent(t *testing.T) {
	f, err := NewFieldContains(FieldFilename, "a")
	require.NoError(t, err)
	assert.False(t, f.Matches(nil))
}
