// Package sqlitestore persists extracted events into a SQLite timeline
// database. Events are written in arrival order; reads return them sorted
// by timestamp, which is where the timeline ordering is established.
package sqlitestore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"crawshaw.io/sqlite"

	"github.com/5l1v3r1/plaso/errors"
	"github.com/5l1v3r1/plaso/event"
	"github.com/5l1v3r1/plaso/pathspec"
	"github.com/5l1v3r1/plaso/queue"
)

const schema = `CREATE TABLE IF NOT EXISTS events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp INTEGER NOT NULL,
	timestamp_desc TEXT,
	source TEXT,
	sourcetype TEXT,
	description TEXT,
	filename TEXT,
	display_name TEXT,
	parser TEXT,
	hostname TEXT,
	username TEXT,
	inode INTEGER,
	pathspec TEXT,
	extra TEXT
)`

const timestampIndex = `CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events (timestamp)`

// Store is a SQLite-backed event store. Safe for concurrent use; writes
// serialize on an internal mutex.
type Store struct {
	mu     sync.Mutex
	conn   *sqlite.Conn
	closed bool
}

// Open creates or opens a timeline database.
func Open(path string) (*Store, error) {
	conn, err := sqlite.OpenConn(path, 0)
	if err != nil {
		return nil, errors.WrapFatal(err, "Store", "Open", path)
	}

	store := &Store{conn: conn}
	for _, query := range []string{schema, timestampIndex} {
		if err := store.exec(query); err != nil {
			conn.Close()
			return nil, err
		}
	}
	return store, nil
}

// Close finalizes the connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.conn.Close(); err != nil {
		return errors.WrapTransient(err, "Store", "Close", "close connection")
	}
	return nil
}

// Write persists one event.
func (s *Store) Write(ev *event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.WrapInvalid(errors.ErrQueueClosed, "Store", "Write", "store closed")
	}

	var specJSON []byte
	if ev.PathSpec != nil {
		var err error
		specJSON, err = json.Marshal(ev.PathSpec)
		if err != nil {
			return errors.WrapInvalid(err, "Store", "Write", "encode pathspec")
		}
	}
	var extraJSON []byte
	if len(ev.Attributes) > 0 {
		var err error
		extraJSON, err = json.Marshal(ev.Attributes)
		if err != nil {
			return errors.WrapInvalid(err, "Store", "Write", "encode attributes")
		}
	}

	stmt, err := s.conn.Prepare(`INSERT INTO events
		(timestamp, timestamp_desc, source, sourcetype, description, filename,
		 display_name, parser, hostname, username, inode, pathspec, extra)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.WrapTransient(err, "Store", "Write", "prepare insert")
	}

	stmt.BindInt64(1, ev.Timestamp)
	stmt.BindText(2, ev.TimestampDesc)
	stmt.BindText(3, ev.SourceShort)
	stmt.BindText(4, ev.SourceLong)
	stmt.BindText(5, ev.Description)
	stmt.BindText(6, ev.Filename)
	stmt.BindText(7, ev.DisplayName)
	stmt.BindText(8, ev.Parser)
	stmt.BindText(9, ev.Hostname)
	stmt.BindText(10, ev.Username)
	stmt.BindInt64(11, int64(ev.Inode))
	stmt.BindText(12, string(specJSON))
	stmt.BindText(13, string(extraJSON))

	if _, err := stmt.Step(); err != nil {
		stmt.Finalize()
		return errors.WrapTransient(err, "Store", "Write", "insert event")
	}
	return stmt.Finalize()
}

// Count reports the number of stored events.
func (s *Store) Count() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stmt, err := s.conn.Prepare(`SELECT COUNT(*) AS n FROM events`)
	if err != nil {
		return 0, errors.WrapTransient(err, "Store", "Count", "prepare count")
	}
	hasRow, err := stmt.Step()
	if err != nil || !hasRow {
		stmt.Finalize()
		return 0, errors.WrapTransient(err, "Store", "Count", "step count")
	}
	count := stmt.GetInt64("n")
	return count, stmt.Finalize()
}

// ReadSorted streams all events in timeline order: ascending timestamp,
// insertion order as the tiebreak. The callback may stop iteration by
// returning an error.
func (s *Store) ReadSorted(fn func(*event.Event) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stmt, err := s.conn.Prepare(`SELECT timestamp, timestamp_desc, source, sourcetype,
		description, filename, display_name, parser, hostname, username, inode,
		pathspec, extra FROM events ORDER BY timestamp ASC, id ASC`)
	if err != nil {
		return errors.WrapTransient(err, "Store", "ReadSorted", "prepare select")
	}

	for {
		hasRow, err := stmt.Step()
		if err != nil {
			stmt.Finalize()
			return errors.WrapTransient(err, "Store", "ReadSorted", "step select")
		}
		if !hasRow {
			break
		}

		ev := &event.Event{
			Timestamp:     stmt.GetInt64("timestamp"),
			TimestampDesc: stmt.GetText("timestamp_desc"),
			SourceShort:   stmt.GetText("source"),
			SourceLong:    stmt.GetText("sourcetype"),
			Description:   stmt.GetText("description"),
			Filename:      stmt.GetText("filename"),
			DisplayName:   stmt.GetText("display_name"),
			Parser:        stmt.GetText("parser"),
			Hostname:      stmt.GetText("hostname"),
			Username:      stmt.GetText("username"),
			Inode:         uint64(stmt.GetInt64("inode")),
		}
		if specJSON := stmt.GetText("pathspec"); specJSON != "" {
			var spec pathspec.PathSpec
			if err := json.Unmarshal([]byte(specJSON), &spec); err == nil {
				ev.PathSpec = &spec
			}
		}
		if extraJSON := stmt.GetText("extra"); extraJSON != "" {
			var attrs event.Map
			if err := json.Unmarshal([]byte(extraJSON), &attrs); err == nil {
				ev.Attributes = attrs
			}
		}

		if err := fn(ev); err != nil {
			stmt.Finalize()
			return err
		}
	}
	return stmt.Finalize()
}

func (s *Store) exec(query string) error {
	stmt, err := s.conn.Prepare(query)
	if err != nil {
		return errors.WrapFatal(err, "Store", "exec", fmt.Sprintf("prepare %.32q", query))
	}
	if _, err := stmt.Step(); err != nil {
		stmt.Finalize()
		return errors.WrapFatal(err, "Store", "exec", fmt.Sprintf("step %.32q", query))
	}
	return stmt.Finalize()
}

// emptyPollInterval is the retry pause when the storage queue is
// momentarily empty on a non-blocking backend.
const emptyPollInterval = 10 * time.Millisecond

// Consume drains the storage queue into the store until the end-of-input
// sentinel. As the only consumer of the storage queue it does not put the
// sentinel back. Returns the number of events written.
func (s *Store) Consume(ctx context.Context, logger *slog.Logger, q queue.Queue[*event.Event]) (int64, error) {
	var written int64
	for {
		ev, err := q.Pop(ctx)
		switch {
		case err == nil:

		case errors.Is(err, errors.ErrEndOfInput):
			return written, nil

		case errors.Is(err, errors.ErrQueueEmpty):
			select {
			case <-ctx.Done():
				return written, errors.WrapTransient(ctx.Err(), "Store", "Consume", "canceled")
			case <-time.After(emptyPollInterval):
			}
			continue

		default:
			return written, err
		}

		if err := s.Write(ev); err != nil {
			logger.Error("failed to store event", "filename", ev.Filename, "error", err)
			return written, err
		}
		written++
	}
}
