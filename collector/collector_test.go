package collector

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/5l1v3r1/plaso/errors"
	"github.com/5l1v3r1/plaso/pathspec"
	"github.com/5l1v3r1/plaso/queue"
	"github.com/5l1v3r1/plaso/vfs"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// drain pops until the end-of-input sentinel and returns the collected
// locations.
func drain(t *testing.T, q queue.Queue[*pathspec.PathSpec]) []string {
	t.Helper()
	ctx := context.Background()
	var locations []string
	for {
		spec, err := q.Pop(ctx)
		if errors.Is(err, errors.ErrEndOfInput) {
			return locations
		}
		require.NoError(t, err)
		locations = append(locations, spec.Location)
	}
}

func sourceFixture(t *testing.T) (*vfs.MemorySource, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/var/log", 0o755))
	require.NoError(t, afero.WriteFile(fs, "/var/log/a.log", []byte("aa"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/var/log/b.bin", []byte("bb"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/root.txt", []byte("r"), 0o644))
	return vfs.NewMemorySource(pathspec.New(pathspec.TypeOS, "/cases/image.dd"), fs), fs
}

func TestRunWalksBreadthFirst(t *testing.T) {
	source, _ := sourceFixture(t)
	q := queue.NewMemory[*pathspec.PathSpec]()

	c := New(testLogger(), source, q, Options{})
	require.NoError(t, c.Run(context.Background()))

	locations := drain(t, q)
	// Root level files come before files nested deeper in the tree.
	assert.Equal(t, []string{"/root.txt", "/var/log/a.log", "/var/log/b.bin"}, locations)
	assert.Equal(t, int64(3), c.ProducedCount())

	// The sentinel was the last element; the queue is now empty.
	assert.True(t, q.IsEmpty())
}

func TestRunEmitDirectories(t *testing.T) {
	source, _ := sourceFixture(t)
	q := queue.NewMemory[*pathspec.PathSpec]()

	c := New(testLogger(), source, q, Options{EmitDirectories: true})
	require.NoError(t, c.Run(context.Background()))

	locations := drain(t, q)
	assert.Contains(t, locations, "/var")
	assert.Contains(t, locations, "/var/log")
	assert.Contains(t, locations, "/var/log/a.log")
}

func TestRunSkipsOrphanDirectory(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/$OrphanFiles", 0o755))
	require.NoError(t, afero.WriteFile(fs, "/$OrphanFiles/lost", []byte("x"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/keep.txt", []byte("x"), 0o644))
	source := vfs.NewMemorySource(pathspec.New(pathspec.TypeOS, "/cases/image.dd"), fs)
	q := queue.NewMemory[*pathspec.PathSpec]()

	require.NoError(t, New(testLogger(), source, q, Options{}).Run(context.Background()))
	assert.Equal(t, []string{"/keep.txt"}, drain(t, q))
}

func TestRunSnapshotDeduplication(t *testing.T) {
	mtime := time.Date(2012, time.March, 7, 12, 0, 0, 0, time.UTC)

	primary := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(primary, "/same.txt", []byte("x"), 0o644))
	require.NoError(t, afero.WriteFile(primary, "/changed.txt", []byte("x"), 0o644))
	require.NoError(t, primary.Chtimes("/same.txt", mtime, mtime))
	require.NoError(t, primary.Chtimes("/changed.txt", mtime, mtime))

	// The snapshot carries the same two files, one with a different mtime.
	store := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(store, "/same.txt", []byte("x"), 0o644))
	require.NoError(t, afero.WriteFile(store, "/changed.txt", []byte("x"), 0o644))
	require.NoError(t, store.Chtimes("/same.txt", mtime, mtime))
	older := mtime.Add(-24 * time.Hour)
	require.NoError(t, store.Chtimes("/changed.txt", older, older))

	source := vfs.NewMemorySource(pathspec.New(pathspec.TypeOS, "/cases/image.dd"), primary)
	source.AddSnapshotStore(store)

	q := queue.NewMemory[*pathspec.PathSpec]()
	require.NoError(t, New(testLogger(), source, q, Options{Snapshots: true}).Run(context.Background()))

	locations := drain(t, q)
	// Both primary files, plus only the snapshot file that differs.
	assert.Equal(t, []string{"/changed.txt", "/same.txt", "/changed.txt"}, locations)
}

// faultyStoreSource fails to open one of its snapshot stores.
type faultyStoreSource struct {
	*vfs.MemorySource
	broken int
}

func (s *faultyStoreSource) OpenSnapshotStore(index int) (vfs.FileSystem, error) {
	if index == s.broken {
		return nil, errors.WrapTransient(errors.ErrUnableToOpenFS, "faultyStoreSource", "OpenSnapshotStore", "corrupt store")
	}
	return s.MemorySource.OpenSnapshotStore(index)
}

func TestRunSkipsUnopenableSnapshotStore(t *testing.T) {
	primary := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(primary, "/primary.txt", []byte("p"), 0o644))

	good := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(good, "/snap.txt", []byte("s"), 0o644))

	mem := vfs.NewMemorySource(pathspec.New(pathspec.TypeOS, "/cases/image.dd"), primary)
	mem.AddSnapshotStore(afero.NewMemMapFs())
	mem.AddSnapshotStore(good)
	source := &faultyStoreSource{MemorySource: mem, broken: 0}

	q := queue.NewMemory[*pathspec.PathSpec]()
	require.NoError(t, New(testLogger(), source, q, Options{Snapshots: true}).Run(context.Background()))

	// The broken store is abandoned; the primary and the good store are
	// still collected in full.
	assert.Equal(t, []string{"/primary.txt", "/snap.txt"}, drain(t, q))
}

func TestSelectSnapshotStoresTranslation(t *testing.T) {
	source, _ := sourceFixture(t)
	source.AddSnapshotStore(afero.NewMemMapFs())
	source.AddSnapshotStore(afero.NewMemMapFs())

	c := New(testLogger(), source, queue.NewMemory[*pathspec.PathSpec](),
		Options{Snapshots: true, SnapshotStores: []int{1, 2}})
	indices, err := c.selectSnapshotStores()
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, indices)

	c = New(testLogger(), source, queue.NewMemory[*pathspec.PathSpec](),
		Options{Snapshots: true, SnapshotStores: []int{3}})
	_, err = c.selectSnapshotStores()
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrStoreOutOfRange))
	assert.True(t, errors.IsInvalid(err))

	c = New(testLogger(), source, queue.NewMemory[*pathspec.PathSpec](),
		Options{Snapshots: true, SnapshotStores: []int{0}})
	_, err = c.selectSnapshotStores()
	require.Error(t, err)
}

func TestRunFilteredCollection(t *testing.T) {
	source, _ := sourceFixture(t)
	q := queue.NewMemory[*pathspec.PathSpec]()

	c := New(testLogger(), source, q, Options{
		FilterPatterns: []string{
			"/var/log/.+\\.log",
			"relative/pattern",
			"/var/(",
		},
	})
	require.NoError(t, c.Run(context.Background()))

	assert.Equal(t, []string{"/var/log/a.log"}, drain(t, q))
}

func TestRunSignalsEndOfInputOnCancellation(t *testing.T) {
	source, _ := sourceFixture(t)
	q := queue.NewMemory[*pathspec.PathSpec]()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New(testLogger(), source, q, Options{}).Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	// Even a canceled run terminates its consumers.
	_, err = q.Pop(context.Background())
	assert.True(t, errors.Is(err, errors.ErrEndOfInput))
}

func TestLoadFilterFile(t *testing.T) {
	fsys := afero.NewMemMapFs()
	content := "# interesting logs\n\n/var/log/.+\n/etc/hostname\n"
	require.NoError(t, afero.WriteFile(fsys, "/filters.txt", []byte(content), 0o644))

	patterns, err := LoadFilterFile(fsys, "/filters.txt")
	require.NoError(t, err)
	assert.Equal(t, []string{"/var/log/.+", "/etc/hostname"}, patterns)

	_, err = LoadFilterFile(fsys, "/missing.txt")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrSourceNotFound))
}

func TestBuildFindSpecs(t *testing.T) {
	specs := BuildFindSpecs(testLogger(), []string{
		"/var/log/.+",
		"not-rooted",
		"/bad/(regex",
	})
	require.Len(t, specs, 1)
	assert.Equal(t, "/var/log/.+", specs[0].Location)
	assert.True(t, specs[0].SegmentsAreRegex)
}
