// Package syslog implements a parser for classic BSD syslog text files:
// "Mmm dd hh:mm:ss host reporter[pid]: body". Lines carry no year, so the
// parser anchors on the file's modification year and rolls the year
// forward when the month wraps from December to January.
package syslog

import (
	"bufio"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/5l1v3r1/plaso/errors"
	"github.com/5l1v3r1/plaso/event"
	"github.com/5l1v3r1/plaso/knowledge"
	"github.com/5l1v3r1/plaso/vfs"
)

// ParserName is the registry name of the parser.
const ParserName = "syslog"

// maxLineBytes bounds a single syslog line; longer lines are malformed and
// skipped by the scanner.
const maxLineBytes = 1 << 20

var linePattern = regexp.MustCompile(
	`^([A-Z][a-z]{2}) {1,2}(\d{1,2}) (\d{2}):(\d{2}):(\d{2}) (\S+) ([^\s\[:]+)(?:\[(\d+)\])?: (.*)$`)

var months = map[string]time.Month{
	"Jan": time.January, "Feb": time.February, "Mar": time.March,
	"Apr": time.April, "May": time.May, "Jun": time.June,
	"Jul": time.July, "Aug": time.August, "Sep": time.September,
	"Oct": time.October, "Nov": time.November, "Dec": time.December,
}

// Parser extracts events from syslog-formatted text files.
type Parser struct{}

// New creates the syslog parser.
func New() *Parser { return &Parser{} }

// Name returns the registry name of the parser.
func (p *Parser) Name() string { return ParserName }

// Parse extracts one event per well-formed line. The first non-empty line
// decides format recognition; a file whose first line does not match the
// grammar is rejected with ErrWrongFormat. Malformed lines after the first
// are skipped.
func (p *Parser) Parse(ctx context.Context, kb *knowledge.Base, entry vfs.FileEntry) ([]*event.Event, error) {
	rc, err := entry.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	year := baseYear(entry)
	location := kb.Timezone()

	scanner := bufio.NewScanner(rc)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	var events []*event.Event
	first := true
	var lastMonth time.Month

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, errors.WrapTransient(err, "Syslog", "Parse", "canceled")
		}

		line := scanner.Text()
		if line == "" {
			continue
		}

		fields := linePattern.FindStringSubmatch(line)
		if fields == nil {
			if first {
				return nil, errors.WrapInvalid(errors.ErrWrongFormat, "Syslog", "Parse", entry.Name())
			}
			continue
		}
		first = false

		month := months[fields[1]]
		if month == 0 {
			continue
		}
		if lastMonth == time.December && month == time.January {
			year++
		}
		lastMonth = month

		day, _ := strconv.Atoi(fields[2])
		hour, _ := strconv.Atoi(fields[3])
		minute, _ := strconv.Atoi(fields[4])
		second, _ := strconv.Atoi(fields[5])

		when := time.Date(year, month, day, hour, minute, second, 0, location)

		hostname := fields[6]
		reporter := fields[7]
		pid := fields[8]
		body := fields[9]

		description := fmt.Sprintf("[%s] %s", reporter, body)
		if pid != "" {
			description = fmt.Sprintf("[%s, pid: %s] %s", reporter, pid, body)
		}

		ev := event.New(event.TimestampFromTime(when), event.DescWrittenToLog, "LOG", "Syslog", description)
		ev.Parser = ParserName
		ev.Hostname = hostname
		ev.SetAttribute("reporter", event.String(reporter))
		ev.SetAttribute("body", event.String(body))
		if pid != "" {
			if n, err := strconv.ParseInt(pid, 10, 64); err == nil {
				ev.SetAttribute("pid", event.Int(n))
			}
		}
		events = append(events, ev)
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.WrapTransient(err, "Syslog", "Parse", entry.Name())
	}
	if first {
		// Empty files are not syslog files.
		return nil, errors.WrapInvalid(errors.ErrWrongFormat, "Syslog", "Parse", entry.Name())
	}
	return events, nil
}

// baseYear anchors the yearless syslog timestamps on the file's
// modification year, falling back to the current year when the entry
// carries no usable stat.
func baseYear(entry vfs.FileEntry) int {
	if st, err := entry.Stat(); err == nil && st.MTime > 0 {
		return time.Unix(st.MTime, 0).UTC().Year()
	}
	return time.Now().UTC().Year()
}
