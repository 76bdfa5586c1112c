// Package worker implements the consumer side of the pipeline. Each worker
// pops path specifications from the collection queue, resolves them
// through its private VFS context, runs every registered parser against
// the entry, enriches the resulting events and pushes them onto the
// storage queue.
//
// A worker that pops the end-of-input sentinel signals it again before
// terminating so the remaining workers also observe it.
package worker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/5l1v3r1/plaso/errors"
	"github.com/5l1v3r1/plaso/event"
	"github.com/5l1v3r1/plaso/filter"
	"github.com/5l1v3r1/plaso/knowledge"
	"github.com/5l1v3r1/plaso/metric"
	"github.com/5l1v3r1/plaso/parsers"
	"github.com/5l1v3r1/plaso/pathspec"
	"github.com/5l1v3r1/plaso/queue"
	"github.com/5l1v3r1/plaso/vfs"
)

// maxContainerDepth bounds nested archive expansion. A gzip inside a zip
// inside a tar is the deepest nesting that is still expanded.
const maxContainerDepth = 3

// emptyPollInterval is the retry pause when popping from a non-blocking
// queue that is momentarily empty.
const emptyPollInterval = 10 * time.Millisecond

// Status is a point-in-time snapshot of one worker.
type Status struct {
	WorkerID       int    `json:"worker_id"`
	ConsumedPaths  int64  `json:"consumed_paths"`
	ProducedEvents int64  `json:"produced_events"`
	CurrentFile    string `json:"current_file,omitempty"`
	Running        bool   `json:"running"`
}

// Worker processes path specifications into events.
type Worker struct {
	id       int
	logger   *slog.Logger
	resolver *vfs.Context
	registry *parsers.Registry
	kb       *knowledge.Base
	filter   filter.Filter
	metrics  *metric.Metrics

	mountPrefix string

	in  queue.Queue[*pathspec.PathSpec]
	out queue.Queue[*event.Event]

	consumed atomic.Int64
	produced atomic.Int64
	running  atomic.Bool
	current  atomic.Value
}

// New creates a worker. The resolver context must be private to this
// worker; filter may be nil for unfiltered extraction.
func New(id int, logger *slog.Logger, resolver *vfs.Context, registry *parsers.Registry,
	kb *knowledge.Base, flt filter.Filter,
	in queue.Queue[*pathspec.PathSpec], out queue.Queue[*event.Event]) *Worker {

	w := &Worker{
		id:       id,
		logger:   logger.With("component", "worker", "worker_id", id),
		resolver: resolver,
		registry: registry,
		kb:       kb,
		filter:   flt,
		in:       in,
		out:      out,
	}
	w.current.Store("")
	return w
}

// SetMetrics attaches pipeline instrumentation. Call before Run; nil
// disables instrumentation.
func (w *Worker) SetMetrics(m *metric.Metrics) {
	w.metrics = m
}

// SetMountPrefix configures the mount point stripped from OS paths when
// composing display names, so outputs stay portable across mount points.
func (w *Worker) SetMountPrefix(prefix string) {
	w.mountPrefix = strings.TrimSuffix(prefix, "/")
}

// Status reports a snapshot of the worker's progress.
func (w *Worker) Status() Status {
	current, _ := w.current.Load().(string)
	return Status{
		WorkerID:       w.id,
		ConsumedPaths:  w.consumed.Load(),
		ProducedEvents: w.produced.Load(),
		CurrentFile:    current,
		Running:        w.running.Load(),
	}
}

// Run consumes the collection queue until the end-of-input sentinel or
// cancellation. Parse failures are isolated per path; only queue failures
// terminate the worker.
func (w *Worker) Run(ctx context.Context) error {
	w.running.Store(true)
	defer w.running.Store(false)
	defer w.current.Store("")

	for {
		spec, err := w.in.Pop(ctx)
		switch {
		case err == nil:

		case errors.Is(err, errors.ErrEndOfInput):
			// Put the sentinel back for the other consumers.
			if signalErr := w.in.SignalEndOfInput(ctx); signalErr != nil {
				return signalErr
			}
			return nil

		case errors.Is(err, errors.ErrQueueEmpty):
			select {
			case <-ctx.Done():
				return errors.WrapTransient(ctx.Err(), "Worker", "Run", "canceled")
			case <-time.After(emptyPollInterval):
			}
			continue

		case ctx.Err() != nil:
			return errors.WrapTransient(ctx.Err(), "Worker", "Run", "canceled")

		default:
			return err
		}

		w.consumed.Add(1)
		w.current.Store(spec.Location)

		if err := w.ParseFile(ctx, spec); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, errors.ErrQueueClosed) {
				return err
			}
			w.logger.Warn("unable to process path", "location", spec.Location, "error", err)
		}
	}
}

// ParseFile resolves one path specification and extracts its events. The
// entry is also sniffed for known container formats; members of a
// recognized container are processed recursively up to the depth bound.
func (w *Worker) ParseFile(ctx context.Context, spec *pathspec.PathSpec) error {
	entry, err := w.resolver.OpenFileEntry(spec)
	if err != nil {
		return err
	}
	return w.processEntry(ctx, entry, containerDepth(spec))
}

func (w *Worker) processEntry(ctx context.Context, entry vfs.FileEntry, depth int) error {
	spec := entry.PathSpec()

	for _, parser := range w.registry.All() {
		if err := ctx.Err(); err != nil {
			return errors.WrapTransient(err, "Worker", "processEntry", "canceled")
		}

		start := time.Now()
		events, err := parser.Parse(ctx, w.kb, entry)
		if w.metrics != nil {
			w.metrics.RecordParseDuration(parser.Name(), time.Since(start))
		}
		if err != nil {
			if errors.IsWrongFormat(err) {
				w.logger.Debug("parser rejected file", "parser", parser.Name(), "location", spec.Location)
			} else {
				w.logger.Warn("parser failed", "parser", parser.Name(), "location", spec.Location, "error", err)
				if w.metrics != nil {
					w.metrics.RecordParserError(parser.Name())
				}
			}
			continue
		}

		for _, ev := range events {
			w.enrich(ev, parser.Name(), entry)
			if w.filter != nil && w.filter.Matches(ev) {
				if w.metrics != nil {
					w.metrics.RecordEventFiltered()
				}
				continue
			}
			if err := w.out.Push(ctx, ev); err != nil {
				return err
			}
			w.produced.Add(1)
			if w.metrics != nil {
				w.metrics.RecordEventExtracted(parser.Name())
			}
		}
	}

	return w.expandContainer(ctx, entry, depth)
}

// expandContainer sniffs the entry for a known container magic and
// processes its members.
func (w *Worker) expandContainer(ctx context.Context, entry vfs.FileEntry, depth int) error {
	if !entry.IsFile() {
		return nil
	}
	if depth >= maxContainerDepth {
		w.logger.Debug("container depth bound reached, not expanding",
			"location", entry.PathSpec().Location)
		return nil
	}

	format, ok := sniffContainer(entry)
	if !ok {
		return nil
	}

	members, err := vfs.ArchiveMembers(entry, format)
	if err != nil {
		w.logger.Warn("unable to list container members",
			"location", entry.PathSpec().Location, "error", err)
		return nil
	}

	for _, memberSpec := range members {
		member, err := vfs.OpenArchiveMember(entry, memberSpec.Location)
		if err != nil {
			w.logger.Warn("unable to open container member",
				"location", memberSpec.Location, "error", err)
			continue
		}
		if err := w.processEntry(ctx, member, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// sniffContainer reads the leading bytes of the entry and matches them
// against the container magic table.
func sniffContainer(entry vfs.FileEntry) (vfs.ArchiveFormat, bool) {
	rc, err := entry.Open()
	if err != nil {
		return "", false
	}
	defer rc.Close()

	header := make([]byte, vfs.ArchiveHeaderSize)
	n, err := io.ReadFull(rc, header)
	if err != nil && err != io.ErrUnexpectedEOF {
		return "", false
	}
	return vfs.DetectArchive(header[:n])
}

// enrich fills the contextual fields of an extracted event.
func (w *Worker) enrich(ev *event.Event, parserName string, entry vfs.FileEntry) {
	spec := entry.PathSpec()

	ev.PathSpec = spec
	ev.Filename = spec.Location
	ev.DisplayName = w.displayName(spec)
	if ev.Parser == "" {
		ev.Parser = parserName
	}
	if ev.Hostname == "" {
		ev.Hostname = w.kb.Hostname()
	}
	if ev.Username == "" {
		if identifier, ok := accountIdentifier(ev); ok {
			ev.Username = w.kb.UsernameByIdentifier(identifier)
		}
	}
	if ev.Inode == 0 {
		if st, err := entry.Stat(); err == nil {
			ev.Inode = st.Inode
		}
	}
}

// accountIdentifier extracts the SID or UID attribute a parser recorded.
func accountIdentifier(ev *event.Event) (string, bool) {
	for _, name := range []string{event.AttrUserSID, event.AttrUserUID} {
		value, ok := ev.Attributes[name]
		if !ok {
			continue
		}
		return value.Text(), true
	}
	return "", false
}

// displayName renders the path with its origin layer: "OS:/var/log/x" for
// plain files, "VSS2:/var/log/x" for the second snapshot store. A
// configured mount prefix is stripped from OS paths first.
func (w *Worker) displayName(spec *pathspec.PathSpec) string {
	if spec.Type == pathspec.TypeSnapshot {
		return fmt.Sprintf("VSS%d:%s", spec.StoreIndex+1, spec.Location)
	}

	location := spec.Location
	if spec.Type == pathspec.TypeOS && w.mountPrefix != "" {
		if trimmed := strings.TrimPrefix(location, w.mountPrefix); trimmed != location {
			if !strings.HasPrefix(trimmed, "/") {
				trimmed = "/" + trimmed
			}
			location = trimmed
		}
	}
	return fmt.Sprintf("%s:%s", spec.Type, location)
}

// containerDepth counts the archive layers already present in a spec, so
// members arriving through the queue keep the global depth bound.
func containerDepth(spec *pathspec.PathSpec) int {
	depth := 0
	for s := spec; s != nil; s = s.Parent {
		if s.Type == pathspec.TypeArchive {
			depth++
		}
	}
	return depth
}
