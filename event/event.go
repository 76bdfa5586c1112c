// Package event defines the extracted event type that flows from parser
// plugins through the worker pool to the storage layer, together with the
// tagged-union attribute values plugins attach to it.
package event

import (
	"time"

	"github.com/5l1v3r1/plaso/pathspec"
)

// Timestamp-kind labels describing what a timestamp means. Parsers pick the
// label matching the artifact semantics; file system metadata uses the
// combined labels produced by the filestat parser.
const (
	DescLastWritten    = "Content Modification Time"
	DescLastAccess     = "Last Access Time"
	DescCreation       = "Creation Time"
	DescMetadataChange = "Metadata Modification Time"
	DescFileDownloaded = "File Downloaded"
	DescLastVisited    = "Last Visited Time"
	DescWrittenToLog   = "Content Written To Log"
)

// Well-known attribute names consumed by the worker's enrichment step.
const (
	AttrUserSID  = "user_sid"
	AttrUserUID  = "user_uid"
	AttrUsername = "username"
)

// Event is one artifact observation extracted by a parser plugin.
//
// The producing parser sets Timestamp, TimestampDesc, the descriptions, the
// source classification and Attributes. The worker enriches DisplayName,
// Hostname, Username, Inode, Parser and PathSpec before the event reaches
// the storage queue. Events are treated as immutable once queued.
type Event struct {
	// Timestamp is microseconds since the epoch, always UTC. An event
	// without a resolvable timestamp is dropped by the parser, never queued.
	Timestamp int64 `json:"timestamp"`

	// TimestampDesc labels what the timestamp means, e.g. "Last Access Time".
	TimestampDesc string `json:"timestamp_desc"`

	// Description is the short human-readable description; DescriptionLong
	// carries the full rendering when the parser produces one.
	Description     string `json:"description"`
	DescriptionLong string `json:"description_long,omitempty"`

	// SourceShort and SourceLong classify the artifact source, e.g.
	// "LOG" / "Syslog" or "FILE" / "File stat".
	SourceShort string `json:"source_short"`
	SourceLong  string `json:"source_long"`

	// Filename is the mount-relative path of the originating file.
	Filename string `json:"filename,omitempty"`

	// DisplayName is the portable rendering "TYPE:/relative/path" composed
	// by the worker from the path spec type indicator.
	DisplayName string `json:"display_name,omitempty"`

	// Parser names the plugin that produced the event.
	Parser string `json:"parser,omitempty"`

	// Hostname and Username are filled from the knowledge base when the
	// parser did not set them.
	Hostname string `json:"hostname,omitempty"`
	Username string `json:"username,omitempty"`

	// Inode of the originating file entry, zero when unknown.
	Inode uint64 `json:"inode,omitempty"`

	// PathSpec addresses the originating file.
	PathSpec *pathspec.PathSpec `json:"pathspec,omitempty"`

	// Attributes carries parser-specific named facts.
	Attributes Map `json:"attributes,omitempty"`
}

// New creates an event with its mandatory fields set.
func New(timestamp int64, timestampDesc, sourceShort, sourceLong, description string) *Event {
	return &Event{
		Timestamp:     timestamp,
		TimestampDesc: timestampDesc,
		SourceShort:   sourceShort,
		SourceLong:    sourceLong,
		Description:   description,
		Attributes:    make(Map),
	}
}

// TimestampFromTime converts a time to the canonical microsecond UTC
// representation.
func TimestampFromTime(t time.Time) int64 {
	return t.UTC().UnixMicro()
}

// Time returns the event timestamp as a time.Time in UTC.
func (e *Event) Time() time.Time {
	return time.UnixMicro(e.Timestamp).UTC()
}

// SetAttribute attaches a named fact, allocating the map on first use.
func (e *Event) SetAttribute(name string, value Value) {
	if e.Attributes == nil {
		e.Attributes = make(Map)
	}
	e.Attributes[name] = value
}
