package preprocess

import (
	"context"
	"io"
	"log/slog"
	"testing"
	_ "time/tzdata"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/5l1v3r1/plaso/errors"
	"github.com/5l1v3r1/plaso/event"
	"github.com/5l1v3r1/plaso/knowledge"
	"github.com/5l1v3r1/plaso/pathspec"
	"github.com/5l1v3r1/plaso/vfs"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func linuxFixture(t *testing.T) vfs.Searcher {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/etc", 0o755))
	require.NoError(t, afero.WriteFile(fs, "/etc/hostname", []byte("acserver\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/etc/timezone", []byte("Europe/Zurich\n"), 0o644))
	passwd := "root:x:0:0:root:/root:/bin/bash\n" +
		"# comment line\n" +
		"dfir:x:1000:1000:Analyst:/home/dfir:/bin/zsh\n" +
		"malformed line without colons\n"
	require.NoError(t, afero.WriteFile(fs, "/etc/passwd", []byte(passwd), 0o644))
	return vfs.NewSearcher(vfs.NewAferoFileSystem(fs, pathspec.TypeImage, nil))
}

func TestGuessOSPriority(t *testing.T) {
	// A tree carrying both Windows and Unix markers is classified as
	// Windows; system directories outrank /etc.
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/Windows/System32", 0o755))
	require.NoError(t, fs.MkdirAll("/etc", 0o755))
	searcher := vfs.NewSearcher(vfs.NewAferoFileSystem(fs, pathspec.TypeImage, nil))
	assert.Equal(t, OSWindows, GuessOS(searcher))

	fs = afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/System/Library", 0o755))
	require.NoError(t, fs.MkdirAll("/etc", 0o755))
	searcher = vfs.NewSearcher(vfs.NewAferoFileSystem(fs, pathspec.TypeImage, nil))
	assert.Equal(t, OSMacOS, GuessOS(searcher))

	fs = afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/etc", 0o755))
	searcher = vfs.NewSearcher(vfs.NewAferoFileSystem(fs, pathspec.TypeImage, nil))
	assert.Equal(t, OSLinux, GuessOS(searcher))

	searcher = vfs.NewSearcher(vfs.NewAferoFileSystem(afero.NewMemMapFs(), pathspec.TypeImage, nil))
	assert.Equal(t, "", GuessOS(searcher))
}

// recordingPlugin notes its execution order in a shared slice.
type recordingPlugin struct {
	name   string
	weight int
	order  *[]string
	fail   bool
}

func (p *recordingPlugin) Name() string          { return p.name }
func (p *recordingPlugin) SupportedOS() []string { return []string{OSLinux} }
func (p *recordingPlugin) Weight() int           { return p.weight }
func (p *recordingPlugin) Attribute() string     { return "attr_" + p.name }

func (p *recordingPlugin) Value(vfs.Searcher, *knowledge.Base) (event.Value, error) {
	*p.order = append(*p.order, p.name)
	if p.fail {
		return event.Value{}, errors.ErrPreprocessFail
	}
	return event.String(p.name), nil
}

func TestRunnerExecutesInWeightOrder(t *testing.T) {
	var order []string
	plugins := []Plugin{
		&recordingPlugin{name: "late", weight: WeightFinal, order: &order},
		&recordingPlugin{name: "mid", weight: WeightValue, order: &order},
		&recordingPlugin{name: "early", weight: WeightPath, order: &order},
	}

	kb := knowledge.NewBase()
	runner := NewRunner(testLogger(), plugins)
	require.NoError(t, runner.Run(context.Background(), linuxFixture(t), kb))

	assert.Equal(t, []string{"early", "mid", "late"}, order)
	assert.Equal(t, OSLinux, kb.Platform())
	assert.Equal(t, "early", kb.StringValue("attr_early"))
}

func TestRunnerPluginFailureLeavesAttributeUnset(t *testing.T) {
	var order []string
	plugins := []Plugin{
		&recordingPlugin{name: "broken", weight: WeightPath, order: &order, fail: true},
		&recordingPlugin{name: "fine", weight: WeightPath, order: &order},
	}

	kb := knowledge.NewBase()
	require.NoError(t, NewRunner(testLogger(), plugins).Run(context.Background(), linuxFixture(t), kb))

	_, ok := kb.Value("attr_broken")
	assert.False(t, ok)
	assert.Equal(t, "fine", kb.StringValue("attr_fine"))
}

func TestRunnerUndeterminedPlatform(t *testing.T) {
	searcher := vfs.NewSearcher(vfs.NewAferoFileSystem(afero.NewMemMapFs(), pathspec.TypeImage, nil))
	err := NewRunner(testLogger(), StockPlugins()).Run(context.Background(), searcher, knowledge.NewBase())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrPreprocessFail))
}

func TestStockPluginsOnLinuxFixture(t *testing.T) {
	kb := knowledge.NewBase()
	require.NoError(t, NewRunner(testLogger(), StockPlugins()).Run(context.Background(), linuxFixture(t), kb))

	assert.Equal(t, "acserver", kb.Hostname())
	assert.Equal(t, "Europe/Zurich", kb.Timezone().String())

	users := kb.Users()
	require.Len(t, users, 2)
	assert.Equal(t, "root", kb.UsernameByIdentifier("0"))
	assert.Equal(t, "dfir", kb.UsernameByIdentifier("1000"))
	assert.Equal(t, "-", kb.UsernameByIdentifier("4711"))
	assert.Equal(t, "/home/dfir", users[1].Path)
}

func TestWindowsSystemRoot(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/WINNT/System32", 0o755))
	searcher := vfs.NewSearcher(vfs.NewAferoFileSystem(fs, pathspec.TypeImage, nil))

	value, err := NewWindowsSystemRoot().Value(searcher, knowledge.NewBase())
	require.NoError(t, err)
	root, ok := value.AsString()
	require.True(t, ok)
	assert.Equal(t, "/WINNT", root)
}

func TestMacOSHostname(t *testing.T) {
	fs := afero.NewMemMapFs()
	plist := `<?xml version="1.0" encoding="UTF-8"?>
<plist version="1.0"><dict>
  <key>System</key><dict>
    <key>ComputerName</key>
    <string>mac-evidence</string>
  </dict>
</dict></plist>`
	require.NoError(t, afero.WriteFile(fs, macOSPreferencesPath, []byte(plist), 0o644))
	searcher := vfs.NewSearcher(vfs.NewAferoFileSystem(fs, pathspec.TypeImage, nil))

	value, err := NewMacOSHostname().Value(searcher, knowledge.NewBase())
	require.NoError(t, err)
	hostname, ok := value.AsString()
	require.True(t, ok)
	assert.Equal(t, "mac-evidence", hostname)
}

func TestRunnerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var order []string
	plugins := []Plugin{&recordingPlugin{name: "never", weight: WeightPath, order: &order}}
	err := NewRunner(testLogger(), plugins).Run(ctx, linuxFixture(t), knowledge.NewBase())
	require.Error(t, err)
	assert.Empty(t, order)
	assert.ErrorIs(t, err, context.Canceled)
}
