package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/5l1v3r1/plaso/config"
	"github.com/5l1v3r1/plaso/engine"
	"github.com/5l1v3r1/plaso/metric"
	"github.com/5l1v3r1/plaso/parserregistry"
)

type cliFlags struct {
	configPath string
	logLevel   string
	logFormat  string

	source         string
	output         string
	mountPath      string
	workers        int
	filterFile     string
	snapshots      bool
	snapshotStores []int
	queueBackend   string
	natsURL        string
	metricsAddr    string
}

func newRootCommand() *cobra.Command {
	flags := &cliFlags{}

	root := &cobra.Command{
		Use:           appName,
		Short:         "Forensic timeline extraction",
		Long:          "Extracts timestamped events from a directory, file or mounted image into a SQLite timeline database.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to YAML configuration file")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flags.logFormat, "log-format", "text", "log format (text, json)")

	root.AddCommand(newExtractCommand(flags))
	return root
}

func newExtractCommand(flags *cliFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Run one extraction session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd.Context(), flags)
		},
	}
	cmd.Flags().StringVar(&flags.source, "source", "", "source directory, file or mounted image")
	cmd.Flags().StringVar(&flags.output, "output", "", "timeline database path")
	cmd.Flags().StringVar(&flags.mountPath, "mount-path", "", "mount point stripped from display names")
	cmd.Flags().IntVar(&flags.workers, "workers", 0, "worker count, 0 selects the automatic count")
	cmd.Flags().StringVar(&flags.filterFile, "filter-file", "", "collection filter file")
	cmd.Flags().BoolVar(&flags.snapshots, "snapshots", false, "also collect volume snapshot stores")
	cmd.Flags().IntSliceVar(&flags.snapshotStores, "snapshot-stores", nil, "one-based snapshot store numbers")
	cmd.Flags().StringVar(&flags.queueBackend, "queue", "", "queue backend (memory, buffered, nats)")
	cmd.Flags().StringVar(&flags.natsURL, "nats-url", "", "NATS server for the nats queue backend")
	cmd.Flags().StringVar(&flags.metricsAddr, "metrics-addr", "", "Prometheus scrape address, for example :9090")
	return cmd
}

// buildConfig merges the configuration file with flag overrides.
func buildConfig(flags *cliFlags) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if flags.configPath != "" {
		loaded, err := config.Load(flags.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if flags.source != "" {
		cfg.Source.Path = flags.source
	}
	if flags.output != "" {
		cfg.Storage.DatabasePath = flags.output
	}
	if flags.mountPath != "" {
		cfg.Source.MountPath = flags.mountPath
	}
	if flags.workers > 0 {
		cfg.Workers = flags.workers
	}
	if flags.filterFile != "" {
		cfg.Source.FilterFile = flags.filterFile
	}
	if flags.snapshots {
		cfg.Source.Snapshots = true
	}
	if len(flags.snapshotStores) > 0 {
		cfg.Source.SnapshotStores = flags.snapshotStores
		cfg.Source.Snapshots = true
	}
	if flags.queueBackend != "" {
		cfg.Queue.Backend = flags.queueBackend
	}
	if flags.natsURL != "" {
		cfg.Queue.NATSURL = flags.natsURL
	}
	if flags.metricsAddr != "" {
		cfg.MetricsAddr = flags.metricsAddr
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runExtract(ctx context.Context, flags *cliFlags) error {
	cfg, err := buildConfig(flags)
	if err != nil {
		return err
	}

	logger := setupLogger(flags.logLevel, flags.logFormat)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry, err := parserregistry.NewRegistry()
	if err != nil {
		return err
	}

	metricsRegistry := metric.NewRegistry()
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metricsRegistry.Handler())
		server := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server failed", "error", err)
			}
		}()
		defer server.Close()
	}

	e := engine.New(logger, cfg, registry, metricsRegistry.Metrics())
	result, err := e.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Session %s: %d paths collected, %d events stored in %s (%s)\n",
		result.SessionID, result.PathsCollected, result.EventsStored,
		cfg.Storage.DatabasePath, result.Duration.Round(1e6))
	return nil
}
