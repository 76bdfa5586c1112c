// Package engine wires the pipeline together and drives one extraction
// session: preprocessing, collection, the worker pool and the storage
// writer, connected by queues.
//
// Two execution modes exist. With the memory queue backend the stages run
// sequentially in one goroutine, which is the debuggable single-process
// mode. Any other backend runs the stages concurrently: the collector
// produces while the workers consume and the storage writer drains.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/5l1v3r1/plaso/collector"
	"github.com/5l1v3r1/plaso/config"
	"github.com/5l1v3r1/plaso/errors"
	"github.com/5l1v3r1/plaso/event"
	"github.com/5l1v3r1/plaso/filter"
	"github.com/5l1v3r1/plaso/knowledge"
	"github.com/5l1v3r1/plaso/metric"
	"github.com/5l1v3r1/plaso/parsers"
	"github.com/5l1v3r1/plaso/pathspec"
	"github.com/5l1v3r1/plaso/preprocess"
	"github.com/5l1v3r1/plaso/queue"
	"github.com/5l1v3r1/plaso/storage/sqlitestore"
	"github.com/5l1v3r1/plaso/vfs"
	"github.com/5l1v3r1/plaso/worker"
)

// monitorInterval is how often the engine refreshes gauge metrics while a
// session runs.
const monitorInterval = 500 * time.Millisecond

// Result summarizes one finished extraction session.
type Result struct {
	SessionID      string        `json:"session_id"`
	Platform       string        `json:"platform,omitempty"`
	PathsCollected int64         `json:"paths_collected"`
	EventsStored   int64         `json:"events_stored"`
	Duration       time.Duration `json:"duration"`
}

// Status is a point-in-time snapshot of a running session.
type Status struct {
	SessionID      string          `json:"session_id"`
	PathsCollected int64           `json:"paths_collected"`
	Workers        []worker.Status `json:"workers"`
}

// Engine runs extraction sessions.
type Engine struct {
	logger   *slog.Logger
	cfg      *config.Config
	registry *parsers.Registry
	metrics  *metric.Metrics

	mu        sync.Mutex
	running   bool
	sessionID string
	collector *collector.Collector
	workers   []*worker.Worker
}

// New creates an engine. metrics may be nil to run without
// instrumentation.
func New(logger *slog.Logger, cfg *config.Config, registry *parsers.Registry, metrics *metric.Metrics) *Engine {
	return &Engine{
		logger:   logger.With("component", "engine"),
		cfg:      cfg,
		registry: registry,
		metrics:  metrics,
	}
}

// Status reports a snapshot of the running session.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	status := Status{SessionID: e.sessionID}
	if e.collector != nil {
		status.PathsCollected = e.collector.ProducedCount()
	}
	for _, w := range e.workers {
		status.Workers = append(status.Workers, w.Status())
	}
	return status
}

// Run executes one extraction session to completion. Only one session may
// run at a time.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return nil, errors.WrapInvalid(errors.ErrAlreadyStarted, "Engine", "Run", "session already running")
	}
	e.running = true
	e.sessionID = uuid.NewString()
	sessionID := e.sessionID
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.running = false
		e.collector = nil
		e.workers = nil
		e.mu.Unlock()
	}()

	start := time.Now()
	logger := e.logger.With("session_id", sessionID)
	logger.Info("starting extraction session", "source", e.cfg.Source.Path)

	source, err := vfs.NewDirectorySource(e.cfg.Source.Path)
	if err != nil {
		return nil, err
	}

	kb := knowledge.NewBase()
	e.preprocess(ctx, logger, source, kb)

	store, err := sqlitestore.Open(e.cfg.Storage.DatabasePath)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	flt, err := e.buildFilter()
	if err != nil {
		return nil, err
	}

	opts, err := e.collectorOptions()
	if err != nil {
		return nil, err
	}

	collectionQ, storageQ, err := e.buildQueues(ctx)
	if err != nil {
		return nil, err
	}
	defer collectionQ.Close()
	defer storageQ.Close()

	coll := collector.New(logger, source, collectionQ, opts)
	workerCount := e.cfg.WorkerCount()
	workers := make([]*worker.Worker, workerCount)
	for i := range workers {
		workers[i] = worker.New(i, logger, vfs.NewContext(source), e.registry, kb, flt, collectionQ, storageQ)
		workers[i].SetMetrics(e.metrics)
		workers[i].SetMountPrefix(e.cfg.Source.MountPath)
	}

	e.mu.Lock()
	e.collector = coll
	e.workers = workers
	e.mu.Unlock()

	var stored int64
	if e.cfg.Queue.Backend == config.QueueMemory {
		stored, err = e.runSequential(ctx, logger, coll, workers, storageQ, store)
	} else {
		stored, err = e.runParallel(ctx, logger, coll, workers, collectionQ, storageQ, store)
	}
	if err != nil {
		return nil, err
	}

	result := &Result{
		SessionID:      sessionID,
		Platform:       kb.Platform(),
		PathsCollected: coll.ProducedCount(),
		EventsStored:   stored,
		Duration:       time.Since(start),
	}
	logger.Info("extraction session finished",
		"paths", result.PathsCollected, "events", result.EventsStored, "duration", result.Duration)
	return result, nil
}

// preprocess fills the knowledge base. Failures are logged and the session
// continues with defaults; extraction without source facts is degraded,
// not impossible.
func (e *Engine) preprocess(ctx context.Context, logger *slog.Logger, source vfs.Source, kb *knowledge.Base) {
	fs, err := source.FileSystem()
	if err != nil {
		logger.Warn("preprocessing skipped, source file system unavailable", "error", err)
		return
	}
	runner := preprocess.NewRunner(logger, preprocess.StockPlugins())
	if err := runner.Run(ctx, vfs.NewSearcher(fs), kb); err != nil {
		logger.Warn("preprocessing incomplete", "error", err)
	}
}

// runSequential executes the stages one after another on the calling
// goroutine.
func (e *Engine) runSequential(ctx context.Context, logger *slog.Logger, coll *collector.Collector,
	workers []*worker.Worker, storageQ queue.Queue[*event.Event], store *sqlitestore.Store) (int64, error) {

	collectErr := coll.Run(ctx)
	if collectErr != nil {
		logger.Error("collection failed", "error", collectErr)
	}

	var workerErr error
	for _, w := range workers {
		if err := w.Run(ctx); err != nil && workerErr == nil {
			workerErr = err
		}
	}

	// The storage writer observes end of input even when a stage failed.
	if err := storageQ.SignalEndOfInput(context.WithoutCancel(ctx)); err != nil {
		return 0, err
	}

	stored, consumeErr := store.Consume(ctx, logger, storageQ)
	e.recordFinalMetrics(coll, stored)

	switch {
	case collectErr != nil:
		return stored, collectErr
	case workerErr != nil:
		return stored, workerErr
	default:
		return stored, consumeErr
	}
}

// runParallel executes the stages concurrently: the collector produces
// while the worker pool consumes; the storage writer drains the worker
// output and finishes when, after every worker has exited, the sentinel is
// signaled on the storage queue.
func (e *Engine) runParallel(ctx context.Context, logger *slog.Logger, coll *collector.Collector,
	workers []*worker.Worker, collectionQ queue.Queue[*pathspec.PathSpec],
	storageQ queue.Queue[*event.Event], store *sqlitestore.Store) (int64, error) {

	monitorCtx, stopMonitor := context.WithCancel(ctx)
	defer stopMonitor()
	go e.monitor(monitorCtx, workers, collectionQ, storageQ)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return coll.Run(gctx)
	})

	pool, poolCtx := errgroup.WithContext(gctx)
	for _, w := range workers {
		w := w
		pool.Go(func() error {
			return w.Run(poolCtx)
		})
	}

	g.Go(func() error {
		poolErr := pool.Wait()
		// Cancellation still propagates end of input so the storage
		// writer terminates instead of blocking forever.
		if err := storageQ.SignalEndOfInput(context.WithoutCancel(ctx)); err != nil {
			logger.Error("failed to signal end of input to storage", "error", err)
			if poolErr == nil {
				poolErr = err
			}
		}
		return poolErr
	})

	var stored int64
	g.Go(func() error {
		var err error
		stored, err = store.Consume(gctx, logger, storageQ)
		return err
	})

	err := g.Wait()
	e.recordFinalMetrics(coll, stored)
	return stored, err
}

// monitor refreshes the gauge metrics while the session runs.
func (e *Engine) monitor(ctx context.Context, workers []*worker.Worker,
	collectionQ queue.Queue[*pathspec.PathSpec], storageQ queue.Queue[*event.Event]) {

	if e.metrics == nil {
		return
	}

	ticker := time.NewTicker(monitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		running := 0
		for _, w := range workers {
			if w.Status().Running {
				running++
			}
		}
		e.metrics.WorkersRunning.Set(float64(running))

		if depth, err := collectionQ.Len(); err == nil {
			e.metrics.RecordQueueDepth("collection", depth)
		}
		if depth, err := storageQ.Len(); err == nil {
			e.metrics.RecordQueueDepth("storage", depth)
		}
	}
}

// recordFinalMetrics settles the counters after a session so short runs
// are measured even when no monitor tick fired. Extraction counters are
// recorded live by the workers.
func (e *Engine) recordFinalMetrics(coll *collector.Collector, stored int64) {
	if e.metrics == nil {
		return
	}
	e.metrics.WorkersRunning.Set(0)
	e.metrics.RecordQueueDepth("collection", 0)
	e.metrics.RecordQueueDepth("storage", 0)
	e.metrics.PathsCollected.Add(float64(coll.ProducedCount()))
	e.metrics.EventsStored.Add(float64(stored))
}

// buildFilter creates the configured event exclusion filter, nil when
// unfiltered.
func (e *Engine) buildFilter() (filter.Filter, error) {
	if e.cfg.Filter == nil {
		return nil, nil
	}
	flt, err := filter.NewFieldContains(e.cfg.Filter.Field, e.cfg.Filter.Substring)
	if err != nil {
		return nil, err
	}
	flt.CaseSensitive = e.cfg.Filter.CaseSensitive
	return flt, nil
}

// collectorOptions translates the source configuration, loading the filter
// file when one is configured.
func (e *Engine) collectorOptions() (collector.Options, error) {
	opts := collector.Options{
		EmitDirectories: e.cfg.Source.EmitDirectories,
		Snapshots:       e.cfg.Source.Snapshots,
		SnapshotStores:  e.cfg.Source.SnapshotStores,
		RatePerSecond:   e.cfg.Source.RatePerSecond,
	}
	if e.cfg.Source.FilterFile != "" {
		patterns, err := collector.LoadFilterFile(afero.NewOsFs(), e.cfg.Source.FilterFile)
		if err != nil {
			return opts, err
		}
		opts.FilterPatterns = patterns
	}
	return opts, nil
}

// buildQueues creates the collection and storage queues for the configured
// backend.
func (e *Engine) buildQueues(ctx context.Context) (queue.Queue[*pathspec.PathSpec], queue.Queue[*event.Event], error) {
	switch e.cfg.Queue.Backend {
	case config.QueueMemory:
		return queue.NewMemory[*pathspec.PathSpec](), queue.NewMemory[*event.Event](), nil

	case config.QueueBuffered:
		size := e.cfg.Queue.BufferSize
		return queue.NewBuffered[*pathspec.PathSpec](size), queue.NewBuffered[*event.Event](size), nil

	case config.QueueNATS:
		collectionQ, err := queue.NewNATS[*pathspec.PathSpec](ctx, e.cfg.Queue.NATSURL, "collection")
		if err != nil {
			return nil, nil, err
		}
		storageQ, err := queue.NewNATS[*event.Event](ctx, e.cfg.Queue.NATSURL, "storage")
		if err != nil {
			collectionQ.Close()
			return nil, nil, err
		}
		return collectionQ, storageQ, nil
	}
	return nil, nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Engine", "buildQueues", e.cfg.Queue.Backend)
}
