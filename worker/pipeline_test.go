package worker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/5l1v3r1/plaso/collector"
	"github.com/5l1v3r1/plaso/event"
	"github.com/5l1v3r1/plaso/knowledge"
	"github.com/5l1v3r1/plaso/pathspec"
	"github.com/5l1v3r1/plaso/preprocess"
	"github.com/5l1v3r1/plaso/queue"
	"github.com/5l1v3r1/plaso/testutil"
	"github.com/5l1v3r1/plaso/vfs"
)

// TestCollectorToWorkerPipeline drives collection, preprocessing and
// extraction over one in-memory source tree.
func TestCollectorToWorkerPipeline(t *testing.T) {
	ctx := context.Background()
	source := vfs.NewMemorySource(pathspec.New(pathspec.TypeOS, "/cases/image.dd"), testutil.NewSourceTree(t))

	fs, err := source.FileSystem()
	require.NoError(t, err)

	kb := knowledge.NewBase()
	runner := preprocess.NewRunner(testLogger(), preprocess.StockPlugins())
	require.NoError(t, runner.Run(ctx, vfs.NewSearcher(fs), kb))
	assert.Equal(t, preprocess.OSLinux, kb.Platform())
	assert.Equal(t, "acserver", kb.Hostname())

	collectionQ := queue.NewMemory[*pathspec.PathSpec]()
	storageQ := queue.NewMemory[*event.Event]()

	coll := collector.New(testLogger(), source, collectionQ, collector.Options{})
	require.NoError(t, coll.Run(ctx))
	// The system files, the log and the binary were all queued.
	assert.Equal(t, int64(5), coll.ProducedCount())

	w := New(1, testLogger(), vfs.NewContext(source), syslogRegistry(t), kb, nil, collectionQ, storageQ)
	require.NoError(t, w.Run(ctx))

	events := drainEvents(t, storageQ)
	require.Len(t, events, 2)
	assert.Less(t, events[0].Timestamp, events[1].Timestamp)
	for _, ev := range events {
		assert.Equal(t, "/var/log/a.log", ev.Filename)
		assert.Equal(t, "acserver", ev.Hostname)
	}
}
