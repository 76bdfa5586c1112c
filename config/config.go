// Package config defines the extraction run configuration, loaded from
// YAML and validated before the engine starts.
package config

import (
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/5l1v3r1/plaso/errors"
)

// Queue backend names.
const (
	QueueMemory   = "memory"
	QueueBuffered = "buffered"
	QueueNATS     = "nats"
)

// SourceConfig describes what to collect from.
type SourceConfig struct {
	// Path is the directory, file or mounted image to process.
	Path string `yaml:"path"`

	// MountPath is the mount point stripped from OS paths in display
	// names, keeping outputs portable across mount points.
	MountPath string `yaml:"mount_path,omitempty"`

	// FilterFile switches to targeted collection using the patterns in
	// the named file.
	FilterFile string `yaml:"filter_file,omitempty"`

	// EmitDirectories also queues directory entries.
	EmitDirectories bool `yaml:"emit_directories,omitempty"`

	// Snapshots walks volume snapshot stores after the primary volume.
	Snapshots bool `yaml:"snapshots,omitempty"`

	// SnapshotStores selects stores by one-based number; empty means all.
	SnapshotStores []int `yaml:"snapshot_stores,omitempty"`

	// RatePerSecond throttles collection, zero means unthrottled.
	RatePerSecond float64 `yaml:"rate_per_second,omitempty"`
}

// QueueConfig selects and sizes the queue backend.
type QueueConfig struct {
	// Backend is one of memory, buffered or nats.
	Backend string `yaml:"backend"`

	// BufferSize is the buffered backend capacity.
	BufferSize int `yaml:"buffer_size,omitempty"`

	// NATSURL is the server address for the nats backend.
	NATSURL string `yaml:"nats_url,omitempty"`
}

// FilterConfig describes the optional event exclusion filter.
type FilterConfig struct {
	Field         string `yaml:"field"`
	Substring     string `yaml:"substring"`
	CaseSensitive bool   `yaml:"case_sensitive,omitempty"`
}

// StorageConfig describes where extracted events land.
type StorageConfig struct {
	// DatabasePath is the SQLite timeline database file.
	DatabasePath string `yaml:"database_path"`
}

// Config is the complete extraction run configuration.
type Config struct {
	Source  SourceConfig  `yaml:"source"`
	Queue   QueueConfig   `yaml:"queue"`
	Storage StorageConfig `yaml:"storage"`

	// Workers is the extraction worker count; zero selects the automatic
	// count derived from the CPU count.
	Workers int `yaml:"workers,omitempty"`

	// Filter is the optional event exclusion filter.
	Filter *FilterConfig `yaml:"filter,omitempty"`

	// MetricsAddr exposes the Prometheus scrape endpoint when set, for
	// example ":9090".
	MetricsAddr string `yaml:"metrics_addr,omitempty"`
}

// DefaultConfig returns the configuration defaults: a buffered in-process
// queue and the automatic worker count.
func DefaultConfig() *Config {
	return &Config{
		Queue: QueueConfig{
			Backend:    QueueBuffered,
			BufferSize: 10000,
		},
		Storage: StorageConfig{
			DatabasePath: "timeline.db",
		},
	}
}

// Load reads and validates a YAML configuration file. Values absent from
// the file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "config", "Load", path)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.WrapInvalid(err, "config", "Load", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for contradictions before anything is
// opened or queued.
func (c *Config) Validate() error {
	if c.Source.Path == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "Config", "Validate", "source.path")
	}
	if c.Workers < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			fmt.Sprintf("workers %d", c.Workers))
	}

	switch c.Queue.Backend {
	case QueueMemory:
	case QueueBuffered:
		if c.Queue.BufferSize <= 0 {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
				fmt.Sprintf("buffer size %d", c.Queue.BufferSize))
		}
	case QueueNATS:
		if c.Queue.NATSURL == "" {
			return errors.WrapInvalid(errors.ErrMissingConfig, "Config", "Validate", "queue.nats_url")
		}
	default:
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			fmt.Sprintf("queue backend %q", c.Queue.Backend))
	}

	for _, number := range c.Source.SnapshotStores {
		if number < 1 {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
				fmt.Sprintf("snapshot store number %d", number))
		}
	}

	if c.Filter != nil {
		if c.Filter.Field == "" || c.Filter.Substring == "" {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate", "filter field and substring")
		}
	}

	if c.Storage.DatabasePath == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "Config", "Validate", "storage.database_path")
	}
	return nil
}

// WorkerCount resolves the effective worker count: the configured value,
// or the CPU count minus two with a floor of one.
func (c *Config) WorkerCount() int {
	if c.Workers > 0 {
		return c.Workers
	}
	count := runtime.NumCPU() - 2
	if count < 1 {
		count = 1
	}
	return count
}
