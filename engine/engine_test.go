package engine

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/5l1v3r1/plaso/config"
	"github.com/5l1v3r1/plaso/event"
	"github.com/5l1v3r1/plaso/metric"
	"github.com/5l1v3r1/plaso/parsers"
	"github.com/5l1v3r1/plaso/parsers/syslog"
	"github.com/5l1v3r1/plaso/storage/sqlitestore"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const syslogContent = "Mar  7 12:24:01 acserver sshd[1337]: session opened\n" +
	"Mar  7 12:24:03 acserver sshd[1337]: session closed\n"

// sourceDir creates a directory with a parseable a.log and an unparseable
// b.bin.
func sourceDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	mtime := time.Date(2012, time.June, 1, 0, 0, 0, 0, time.UTC)

	logPath := filepath.Join(dir, "a.log")
	require.NoError(t, os.WriteFile(logPath, []byte(syslogContent), 0o644))
	require.NoError(t, os.Chtimes(logPath, mtime, mtime))

	binPath := filepath.Join(dir, "b.bin")
	require.NoError(t, os.WriteFile(binPath, []byte{0x00, 0x01, 0x02, 0x03}, 0o644))
	require.NoError(t, os.Chtimes(binPath, mtime, mtime))
	return dir
}

func testConfig(t *testing.T, backend string) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Source.Path = sourceDir(t)
	cfg.Queue.Backend = backend
	cfg.Queue.BufferSize = 100
	cfg.Storage.DatabasePath = filepath.Join(t.TempDir(), "timeline.db")
	cfg.Workers = 1
	require.NoError(t, cfg.Validate())
	return cfg
}

func syslogRegistry(t *testing.T) *parsers.Registry {
	t.Helper()
	r := parsers.NewRegistry()
	require.NoError(t, r.Register(syslog.New()))
	return r
}

func readStored(t *testing.T, path string) []*event.Event {
	t.Helper()
	store, err := sqlitestore.Open(path)
	require.NoError(t, err)
	defer store.Close()

	var events []*event.Event
	require.NoError(t, store.ReadSorted(func(ev *event.Event) error {
		events = append(events, ev)
		return nil
	}))
	return events
}

func TestRunEndToEnd(t *testing.T) {
	for _, backend := range []string{config.QueueMemory, config.QueueBuffered} {
		t.Run(backend, func(t *testing.T) {
			cfg := testConfig(t, backend)
			e := New(testLogger(), cfg, syslogRegistry(t), nil)

			result, err := e.Run(context.Background())
			require.NoError(t, err)
			require.NotNil(t, result)
			assert.NotEmpty(t, result.SessionID)
			assert.Equal(t, int64(2), result.PathsCollected)
			assert.Equal(t, int64(2), result.EventsStored)

			events := readStored(t, cfg.Storage.DatabasePath)
			require.Len(t, events, 2)
			assert.Less(t, events[0].Timestamp, events[1].Timestamp)
			for _, ev := range events {
				assert.Contains(t, ev.Filename, "a.log")
				assert.Equal(t, "syslog", ev.Parser)
			}
		})
	}
}

func TestRunWithExclusionFilter(t *testing.T) {
	cfg := testConfig(t, config.QueueBuffered)
	cfg.Filter = &config.FilterConfig{Field: "filename", Substring: "a.log"}
	require.NoError(t, cfg.Validate())

	e := New(testLogger(), cfg, syslogRegistry(t), nil)
	result, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.EventsStored)
	assert.Empty(t, readStored(t, cfg.Storage.DatabasePath))
}

func TestRunMissingSource(t *testing.T) {
	cfg := testConfig(t, config.QueueMemory)
	cfg.Source.Path = "/definitely/not/there"

	_, err := New(testLogger(), cfg, syslogRegistry(t), nil).Run(context.Background())
	require.Error(t, err)
}

func TestRunParallelWorkers(t *testing.T) {
	cfg := testConfig(t, config.QueueBuffered)
	cfg.Workers = 4

	e := New(testLogger(), cfg, syslogRegistry(t), nil)
	result, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.EventsStored)
}

func TestRunRecordsMetrics(t *testing.T) {
	cfg := testConfig(t, config.QueueBuffered)
	registry := metric.NewRegistry()
	metrics := registry.Metrics()

	e := New(testLogger(), cfg, syslogRegistry(t), metrics)
	_, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2.0, promtestutil.ToFloat64(metrics.PathsCollected))
	assert.Equal(t, 2.0, promtestutil.ToFloat64(metrics.EventsStored))
	assert.Equal(t, 2.0, promtestutil.ToFloat64(metrics.EventsExtracted.WithLabelValues("syslog")))

	// Gauges settle to zero after the session.
	assert.Equal(t, 0.0, promtestutil.ToFloat64(metrics.WorkersRunning))
	assert.Equal(t, 0.0, promtestutil.ToFloat64(metrics.QueueDepth.WithLabelValues("collection")))
	assert.Equal(t, 0.0, promtestutil.ToFloat64(metrics.QueueDepth.WithLabelValues("storage")))
}

func TestStatusIdle(t *testing.T) {
	cfg := testConfig(t, config.QueueMemory)
	e := New(testLogger(), cfg, syslogRegistry(t), nil)
	status := e.Status()
	assert.Empty(t, status.SessionID)
	assert.Empty(t, status.Workers)
}
