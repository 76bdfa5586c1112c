// Package filestat implements the file system metadata parser. It applies
// to every file entry and emits one event per distinct stat timestamp,
// collapsing timestamp kinds that share the same value into a single
// event.
package filestat

import (
	"context"
	"strings"

	"github.com/5l1v3r1/plaso/event"
	"github.com/5l1v3r1/plaso/knowledge"
	"github.com/5l1v3r1/plaso/vfs"
)

// ParserName is the registry name of the parser.
const ParserName = "filestat"

// Parser emits stat timestamp events for any file entry.
type Parser struct{}

// New creates the file stat parser.
func New() *Parser { return &Parser{} }

// Name returns the registry name of the parser.
func (p *Parser) Name() string { return ParserName }

// timestampKind pairs one stat timestamp with its timeline description.
// Order fixes both the collapsing priority and the label rendering.
var timestampKinds = []struct {
	label string
	desc  string
	value func(vfs.Stat) (int64, int64)
}{
	{"mtime", event.DescLastWritten, func(s vfs.Stat) (int64, int64) { return s.MTime, s.MTimeNano }},
	{"atime", event.DescLastAccess, func(s vfs.Stat) (int64, int64) { return s.ATime, s.ATimeNano }},
	{"ctime", event.DescMetadataChange, func(s vfs.Stat) (int64, int64) { return s.CTime, s.CTimeNano }},
	{"crtime", event.DescCreation, func(s vfs.Stat) (int64, int64) { return s.CrTime, s.CrTimeNano }},
}

// Parse emits one event per distinct stat timestamp. Timestamps with the
// same value collapse into one event whose description lists every
// collapsed kind; the timestamp description comes from the highest
// priority kind. Zero timestamps are skipped entirely.
func (p *Parser) Parse(_ context.Context, _ *knowledge.Base, entry vfs.FileEntry) ([]*event.Event, error) {
	st, err := entry.Stat()
	if err != nil {
		return nil, err
	}

	type group struct {
		desc   string
		labels []string
	}
	groups := make(map[int64]*group)
	var order []int64

	for _, kind := range timestampKinds {
		sec, nano := kind.value(st)
		if sec == 0 && nano == 0 {
			continue
		}
		timestamp := sec*1_000_000 + nano/1_000
		g, ok := groups[timestamp]
		if !ok {
			g = &group{desc: kind.desc}
			groups[timestamp] = g
			order = append(order, timestamp)
		}
		g.labels = append(g.labels, kind.label)
	}

	events := make([]*event.Event, 0, len(order))
	for _, timestamp := range order {
		g := groups[timestamp]
		ev := event.New(timestamp, g.desc, "FILE", "File stat", strings.Join(g.labels, "/"))
		ev.Parser = ParserName
		ev.Inode = st.Inode
		ev.SetAttribute("size", event.Int(st.Size))
		events = append(events, ev)
	}
	return events, nil
}
