// Package collector implements the producer side of the pipeline: it walks
// a source breadth-first and emits one path specification per discovered
// file onto the collection queue, ending with the end-of-input sentinel.
//
// When snapshot stores are collected, files already seen on the primary
// volume are deduplicated by a timestamp fingerprint keyed on inode, so a
// store only contributes entries that actually differ.
package collector

import (
	"context"
	"crypto/md5"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/time/rate"

	"github.com/5l1v3r1/plaso/errors"
	"github.com/5l1v3r1/plaso/pathspec"
	"github.com/5l1v3r1/plaso/queue"
	"github.com/5l1v3r1/plaso/vfs"
)

// orphanDirectory is the NTFS lost-and-found directory; its contents are
// recovered fragments, not part of the live tree.
const orphanDirectory = "$OrphanFiles"

// Options configures one collection run.
type Options struct {
	// EmitDirectories also queues directory entries so their metadata
	// becomes part of the timeline.
	EmitDirectories bool

	// Snapshots walks the source's volume snapshot stores after the
	// primary volume.
	Snapshots bool

	// SnapshotStores selects specific stores by their one-based store
	// number. Empty means every store. Numbers are validated against the
	// store count after translation to zero-based indices.
	SnapshotStores []int

	// FilterPatterns switches to targeted collection: only paths matching
	// these rooted patterns are emitted, the tree is not walked.
	FilterPatterns []string

	// RatePerSecond throttles emission; zero means unthrottled.
	RatePerSecond float64
}

// Collector walks one source and produces path specifications.
type Collector struct {
	logger  *slog.Logger
	source  vfs.Source
	queue   queue.Queue[*pathspec.PathSpec]
	opts    Options
	limiter *rate.Limiter

	produced atomic.Int64

	// dedup maps inode to the timestamp fingerprints already emitted.
	dedup map[uint64]map[string]struct{}
}

// New creates a collector feeding the collection queue.
func New(logger *slog.Logger, source vfs.Source, q queue.Queue[*pathspec.PathSpec], opts Options) *Collector {
	c := &Collector{
		logger: logger.With("component", "collector"),
		source: source,
		queue:  q,
		opts:   opts,
		dedup:  make(map[uint64]map[string]struct{}),
	}
	if opts.RatePerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), 1)
	}
	return c
}

// ProducedCount reports how many path specifications have been queued.
func (c *Collector) ProducedCount() int64 {
	return c.produced.Load()
}

// Run performs the collection. The end-of-input sentinel is signaled on
// every exit path, including cancellation and failure, so consumers always
// terminate.
func (c *Collector) Run(ctx context.Context) (err error) {
	defer func() {
		if signalErr := c.queue.SignalEndOfInput(ctx); signalErr != nil {
			c.logger.Error("failed to signal end of input", "error", signalErr)
			if err == nil {
				err = signalErr
			}
		}
	}()

	primary, fsErr := c.source.FileSystem()
	if fsErr != nil {
		return errors.WrapFatal(fsErr, "Collector", "Run", "open source file system")
	}

	stores, storeErr := c.selectSnapshotStores()
	if storeErr != nil {
		return storeErr
	}

	if len(c.opts.FilterPatterns) > 0 {
		if err := c.collectFiltered(ctx, primary); err != nil {
			return err
		}
		for _, index := range stores {
			store, err := c.source.OpenSnapshotStore(index)
			if err != nil {
				c.logger.Warn("unable to open snapshot store, skipping",
					"store_index", index, "error", err)
				continue
			}
			if err := c.collectFiltered(ctx, store); err != nil {
				return err
			}
		}
		return nil
	}

	if err := c.walk(ctx, primary, c.opts.Snapshots); err != nil {
		return err
	}
	for _, index := range stores {
		store, err := c.source.OpenSnapshotStore(index)
		if err != nil {
			c.logger.Warn("unable to open snapshot store, skipping",
				"store_index", index, "error", err)
			continue
		}
		c.logger.Info("collecting snapshot store", "store_index", index)
		if err := c.walk(ctx, store, true); err != nil {
			return err
		}
	}
	return nil
}

// selectSnapshotStores translates the configured one-based store numbers
// to zero-based indices and validates them against the source.
func (c *Collector) selectSnapshotStores() ([]int, error) {
	if !c.opts.Snapshots {
		return nil, nil
	}

	count, err := c.source.SnapshotStoreCount()
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}

	if len(c.opts.SnapshotStores) == 0 {
		indices := make([]int, count)
		for i := range indices {
			indices[i] = i
		}
		return indices, nil
	}

	indices := make([]int, 0, len(c.opts.SnapshotStores))
	for _, number := range c.opts.SnapshotStores {
		index := number - 1
		if index < 0 || index >= count {
			return nil, errors.WrapInvalid(errors.ErrStoreOutOfRange, "Collector", "selectSnapshotStores",
				fmt.Sprintf("store number %d of %d", number, count))
		}
		indices = append(indices, index)
	}
	return indices, nil
}

// walk traverses one file system breadth-first.
func (c *Collector) walk(ctx context.Context, fs vfs.FileSystem, dedup bool) error {
	root, err := fs.RootEntry()
	if err != nil {
		return errors.WrapFatal(err, "Collector", "walk", "open root entry")
	}

	frontier := []vfs.FileEntry{root}
	for len(frontier) > 0 {
		if err := ctx.Err(); err != nil {
			return errors.WrapTransient(err, "Collector", "walk", "canceled")
		}

		entry := frontier[0]
		frontier = frontier[1:]

		children, err := entry.SubEntries()
		if err != nil {
			c.logger.Warn("unable to list directory", "location", entry.PathSpec().Location, "error", err)
			continue
		}

		for _, child := range children {
			if child.IsLink() || child.IsDevice() {
				continue
			}
			if child.IsDirectory() {
				if child.Name() == orphanDirectory {
					continue
				}
				if c.opts.EmitDirectories {
					if err := c.push(ctx, child.PathSpec()); err != nil {
						return err
					}
				}
				frontier = append(frontier, child)
				continue
			}
			if !child.IsFile() || !child.IsAllocated() {
				continue
			}
			if dedup && c.seenBefore(child) {
				continue
			}
			if err := c.push(ctx, child.PathSpec()); err != nil {
				return err
			}
		}
	}
	return nil
}

// collectFiltered resolves the filter patterns against one file system and
// emits only the matches.
func (c *Collector) collectFiltered(ctx context.Context, fs vfs.FileSystem) error {
	findSpecs := BuildFindSpecs(c.logger, c.opts.FilterPatterns)
	if len(findSpecs) == 0 {
		c.logger.Warn("no usable filter patterns, nothing collected")
		return nil
	}

	searcher := vfs.NewSearcher(fs)
	specs, err := searcher.Find(findSpecs)
	if err != nil {
		return err
	}
	for _, spec := range specs {
		if err := ctx.Err(); err != nil {
			return errors.WrapTransient(err, "Collector", "collectFiltered", "canceled")
		}
		if err := c.push(ctx, spec); err != nil {
			return err
		}
	}
	return nil
}

func (c *Collector) push(ctx context.Context, spec *pathspec.PathSpec) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return errors.WrapTransient(err, "Collector", "push", "throttle wait")
		}
	}
	if err := c.queue.Push(ctx, spec); err != nil {
		return err
	}
	c.produced.Add(1)
	return nil
}

// seenBefore records the entry's timestamp fingerprint and reports whether
// the same inode already produced an identical fingerprint on an earlier
// volume. Entries without a usable stat are never deduplicated away.
func (c *Collector) seenBefore(entry vfs.FileEntry) bool {
	st, err := entry.Stat()
	if err != nil || st.Inode == 0 {
		return false
	}

	hash := timestampHash(st)
	hashes, ok := c.dedup[st.Inode]
	if !ok {
		c.dedup[st.Inode] = map[string]struct{}{hash: {}}
		return false
	}
	if _, dup := hashes[hash]; dup {
		return true
	}
	hashes[hash] = struct{}{}
	return false
}

// timestampHash fingerprints the four stat timestamps including their
// nanosecond remainders.
func timestampHash(st vfs.Stat) string {
	h := md5.New()
	fmt.Fprintf(h, "atime:%d.%d", st.ATime, st.ATimeNano)
	fmt.Fprintf(h, "crtime:%d.%d", st.CrTime, st.CrTimeNano)
	fmt.Fprintf(h, "mtime:%d.%d", st.MTime, st.MTimeNano)
	fmt.Fprintf(h, "ctime:%d.%d", st.CTime, st.CTimeNano)
	return fmt.Sprintf("%x", h.Sum(nil))
}
