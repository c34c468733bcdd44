package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/sessionarc/sessionarc/pkg/archive"
	"github.com/sessionarc/sessionarc/pkg/buildinfo"
	"github.com/sessionarc/sessionarc/pkg/db"
	"github.com/sessionarc/sessionarc/pkg/ledger"
	"github.com/sessionarc/sessionarc/pkg/logging"
	"github.com/sessionarc/sessionarc/pkg/pipeline"
	"github.com/sessionarc/sessionarc/pkg/pipeline/queues"
)

// Process command flags.
var (
	processWorkers     int
	processMetricsAddr string
)

// NewProcessCommand creates the 'process' command.
func NewProcessCommand(deps *Deps) *cobra.Command {
	if deps == nil {
		deps = DefaultDeps()
	}

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Run background workers against the ingest queue",
		Long: `Run a worker pool that consumes recording tasks from the Redis ingest
queue and processes them through the pipeline.

Tasks are enqueued by 'ingest ... --queue'. Retryable failures are requeued
up to the attempt limit. Runs until interrupted; when a metrics address is
configured, Prometheus metrics are served on /metrics.

Examples:
  # Run with the configured worker count
  sessionarc process

  # Run eight workers with metrics on :9090
  sessionarc process --workers 8 --metrics-addr :9090`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(cmd, deps)
		},
	}

	cmd.Flags().IntVar(&processWorkers, "workers", 0, "Worker count (default from config)")
	cmd.Flags().StringVar(&processMetricsAddr, "metrics-addr", "", "Metrics listen address (default from config)")

	return cmd
}

func runProcess(cmd *cobra.Command, deps *Deps) error {
	cfg, err := deps.ensureConfig()
	if err != nil {
		return err
	}
	logger := deps.logger()
	ctx := cmd.Context()

	client, err := queues.Connect(ctx, cfg.Pipeline.RedisAddr)
	if err != nil {
		return err
	}
	defer client.Close()

	if !cfg.Ledger.IsConfigured() {
		return fmt.Errorf("ledger not configured: set the ledger section in the config file or SESSIONARC_LEDGER_* environment variables")
	}

	// Workers often start alongside the database; retry before giving up.
	pool, err := db.ConnectWithRetry(ctx, ledgerDBConfig(cfg.Ledger), 5, 3*time.Second)
	if err != nil {
		return fmt.Errorf("connecting to ledger: %w", err)
	}
	defer pool.Close()
	repo := ledger.NewRepository(pool, logger)

	archiveRoot, err := cfg.ResolvedArchiveRoot()
	if err != nil {
		return err
	}

	resolver := buildResolver(cfg, logger)
	organizer := archive.NewOrganizer(archiveRoot, logger)
	publisher := queues.NewPublisher(client, logger)

	audit := logging.NewAsyncSink(logging.AsyncSinkConfig{
		Writer: ledger.NewEventWriter(pool, logger),
	})
	defer audit.Close()

	p := pipeline.New(resolver, repo, organizer, publisher, nil, logger, pipeline.Config{
		StageTimeout: cfg.Pipeline.StageTimeout,
		Audit:        audit,
	})

	workers := processWorkers
	if workers <= 0 {
		workers = cfg.Pipeline.Workers
	}

	metricsAddr := processMetricsAddr
	if metricsAddr == "" {
		metricsAddr = cfg.Pipeline.MetricsAddr
	}

	var metricsServer *http.Server
	if metricsAddr != "" {
		if _, err := db.RegisterPoolStatsCollectorWithRegistry(pool, "sessionarc", "worker", p.Metrics().Registry()); err != nil {
			logger.Warn("Failed to register pool stats collector", logging.Err(err))
		}

		mux := http.NewServeMux()
		mux.Handle("/metrics", p.Metrics().Handler())
		mux.Handle("/version", buildinfo.Handler("sessionarc-worker"))

		metricsServer = &http.Server{Addr: metricsAddr, Handler: mux}
		go func() {
			logger.Info("Metrics server listening", logging.F("addr", metricsAddr))
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("Metrics server failed", logging.Err(err))
			}
		}()
	}

	fmt.Printf("Processing queue %s with %d worker(s). Press Ctrl+C to stop.\n",
		queues.KeyIngestQueue, workers)

	queue := queues.NewQueue(client, logger)
	workerPool := pipeline.NewPool(queue, p, workers, logger)
	workerPool.Run(ctx)

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Metrics server shutdown failed", logging.Err(err))
		}
	}

	logger.Info("Workers stopped")
	return nil
}
