// Package filter provides the event exclusion predicates applied by
// workers before events reach the storage queue. An event whose enriched
// form matches the configured filter is dropped.
package filter

import (
	"strconv"
	"strings"

	"github.com/5l1v3r1/plaso/errors"
	"github.com/5l1v3r1/plaso/event"
)

// Filter reports whether an event matches an exclusion predicate.
type Filter interface {
	Matches(ev *event.Event) bool
}

// Well-known field names accepted by FieldContains.
const (
	FieldFilename      = "filename"
	FieldDisplayName   = "display_name"
	FieldParser        = "parser"
	FieldHostname      = "hostname"
	FieldUsername      = "username"
	FieldSourceShort   = "source_short"
	FieldSourceLong    = "source_long"
	FieldDescription   = "description"
	FieldTimestampDesc = "timestamp_desc"
	FieldInode         = "inode"
)

// FieldContains matches events whose named field contains a substring.
// Field names outside the well-known set are looked up in the event's
// extra attributes. Matching is case-insensitive unless CaseSensitive is
// set.
type FieldContains struct {
	Field         string
	Substring     string
	CaseSensitive bool
}

// NewFieldContains validates and builds a field-substring filter.
func NewFieldContains(field, substring string) (*FieldContains, error) {
	if field == "" {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "FieldContains", "NewFieldContains", "field name")
	}
	if substring == "" {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "FieldContains", "NewFieldContains", "substring")
	}
	return &FieldContains{Field: field, Substring: substring}, nil
}

// Matches reports whether the event's field contains the substring.
func (f *FieldContains) Matches(ev *event.Event) bool {
	if ev == nil {
		return false
	}
	value, ok := fieldValue(ev, f.Field)
	if !ok {
		return false
	}
	if f.CaseSensitive {
		return strings.Contains(value, f.Substring)
	}
	return strings.Contains(strings.ToLower(value), strings.ToLower(f.Substring))
}

// Any matches when any member filter matches. An empty Any matches
// nothing.
type Any []Filter

// Matches reports whether any member filter matches the event.
func (a Any) Matches(ev *event.Event) bool {
	for _, f := range a {
		if f.Matches(ev) {
			return true
		}
	}
	return false
}

func fieldValue(ev *event.Event, field string) (string, bool) {
	switch field {
	case FieldFilename:
		return ev.Filename, true
	case FieldDisplayName:
		return ev.DisplayName, true
	case FieldParser:
		return ev.Parser, true
	case FieldHostname:
		return ev.Hostname, true
	case FieldUsername:
		return ev.Username, true
	case FieldSourceShort:
		return ev.SourceShort, true
	case FieldSourceLong:
		return ev.SourceLong, true
	case FieldDescription:
		return ev.Description, true
	case FieldTimestampDesc:
		return ev.TimestampDesc, true
	case FieldInode:
		return strconv.FormatUint(ev.Inode, 10), true
	}
	value, ok := ev.Attributes[field]
	if !ok {
		return "", false
	}
	return value.Text(), true
}
