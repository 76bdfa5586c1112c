// Package preprocess discovers source facts before extraction starts: the
// operating system, hostname, timezone and account table. Plugins run in
// ascending weight order so later tiers can build on facts the earlier
// tiers recorded in the knowledge base.
package preprocess

import (
	"context"
	"log/slog"

	"github.com/5l1v3r1/plaso/errors"
	"github.com/5l1v3r1/plaso/event"
	"github.com/5l1v3r1/plaso/knowledge"
	"github.com/5l1v3r1/plaso/vfs"
)

// Platform names reported by GuessOS.
const (
	OSWindows = "Windows"
	OSMacOS   = "MacOSX"
	OSLinux   = "Linux"
)

// Plugin weights. Tier one locates paths and reads standalone facts, the
// higher tiers resolve values that depend on earlier discoveries.
const (
	WeightPath  = 1
	WeightValue = 2
	WeightFinal = 3
)

// Plugin discovers one source fact.
type Plugin interface {
	// Name returns the plugin name used in logs.
	Name() string

	// SupportedOS lists the platforms the plugin applies to.
	SupportedOS() []string

	// Weight orders plugin execution; lower weights run first.
	Weight() int

	// Attribute names the knowledge base attribute the plugin fills.
	Attribute() string

	// Value discovers the attribute value. A plugin that cannot find its
	// fact returns an error; the scheduler logs it and leaves the
	// attribute unset.
	Value(searcher vfs.Searcher, kb *knowledge.Base) (event.Value, error)
}

// osMarkers maps marker paths to the platform they identify, checked in
// priority order: Windows system directories first, then the macOS system
// library, then the Unix /etc fallback.
var osMarkers = []struct {
	location string
	platform string
}{
	{"/Windows/System32", OSWindows},
	{"/WINNT/System32", OSWindows},
	{"/WTSRV/System32", OSWindows},
	{"/WINNT35/System32", OSWindows},
	{"/System/Library", OSMacOS},
	{"/etc", OSLinux},
}

// GuessOS determines the platform of a source by probing marker
// directories, "" when none match.
func GuessOS(searcher vfs.Searcher) string {
	for _, marker := range osMarkers {
		specs, err := searcher.Find([]vfs.FindSpec{{Location: marker.location}})
		if err != nil {
			continue
		}
		if len(specs) > 0 {
			return marker.platform
		}
	}
	return ""
}

// Runner schedules preprocessing plugins against one source.
type Runner struct {
	logger  *slog.Logger
	plugins []Plugin
}

// NewRunner creates a plugin runner.
func NewRunner(logger *slog.Logger, plugins []Plugin) *Runner {
	return &Runner{logger: logger, plugins: plugins}
}

// Run guesses the platform and executes every applicable plugin in weight
// order. Individual plugin failures are logged and leave their attribute
// unset; only an undeterminable platform is reported as an error, and even
// that is recoverable by the caller.
func (r *Runner) Run(ctx context.Context, searcher vfs.Searcher, kb *knowledge.Base) error {
	platform := GuessOS(searcher)
	if platform == "" {
		return errors.WrapTransient(errors.ErrPreprocessFail, "Runner", "Run", "guess operating system")
	}
	kb.SetPlatform(platform)
	r.logger.Info("determined source platform", "platform", platform)

	for weight := WeightPath; weight <= WeightFinal; weight++ {
		for _, plugin := range r.plugins {
			if plugin.Weight() != weight || !supportsOS(plugin, platform) {
				continue
			}
			if err := ctx.Err(); err != nil {
				return errors.WrapTransient(err, "Runner", "Run", "canceled")
			}

			value, err := plugin.Value(searcher, kb)
			if err != nil {
				r.logger.Warn("preprocessing plugin failed",
					"plugin", plugin.Name(), "attribute", plugin.Attribute(), "error", err)
				continue
			}
			kb.SetValue(plugin.Attribute(), value)
			r.logger.Debug("preprocessing attribute set",
				"plugin", plugin.Name(), "attribute", plugin.Attribute())
		}
	}
	return nil
}

func supportsOS(plugin Plugin, platform string) bool {
	for _, os := range plugin.SupportedOS() {
		if os == platform {
			return true
		}
	}
	return false
}

// StockPlugins returns the bundled preprocessing plugins.
func StockPlugins() []Plugin {
	return []Plugin{
		NewLinuxHostname(),
		NewLinuxTimezone(),
		NewLinuxUsers(),
		NewMacOSHostname(),
		NewWindowsSystemRoot(),
	}
}
