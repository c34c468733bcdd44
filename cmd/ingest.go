package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sessionarc/sessionarc/config"
	"github.com/sessionarc/sessionarc/pkg/archive"
	"github.com/sessionarc/sessionarc/pkg/logging"
	"github.com/sessionarc/sessionarc/pkg/pipeline"
	"github.com/sessionarc/sessionarc/pkg/pipeline/queues"
)

// Shared ingest flags.
var (
	ingestDryRun      bool
	ingestConcurrency int
	ingestEnqueue     bool
)

// NewIngestCommand creates the 'ingest' command group.
func NewIngestCommand(deps *Deps) *cobra.Command {
	if deps == nil {
		deps = DefaultDeps()
	}

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest recordings into the archive",
		Long: `Ingest recordings into the archive from one of three sources: a local
drive scan, the cloud platform API, or a webhook payload.

Every path runs the same resolution pipeline: resolve identity, check the
ledger for duplicates, place files under the archive root, and record the
entry in the ledger.`,
	}

	cmd.PersistentFlags().BoolVar(&ingestDryRun, "dry-run", false, "Resolve and report without moving files or writing the ledger")
	cmd.PersistentFlags().IntVar(&ingestConcurrency, "concurrency", 0, "Recordings processed in parallel (default from config)")
	cmd.PersistentFlags().BoolVar(&ingestEnqueue, "queue", false, "Enqueue to the Redis work queue instead of processing inline")

	cmd.AddCommand(NewIngestDriveCommand(deps))
	cmd.AddCommand(NewIngestAPICommand(deps))
	cmd.AddCommand(NewIngestWebhookCommand(deps))

	return cmd
}

// buildPipeline wires a pipeline against the configured ledger and archive
// root. The returned cleanup closes the ledger pool.
func buildPipeline(ctx context.Context, cfg *config.CLIConfig, logger logging.Logger) (*pipeline.Pipeline, func(), error) {
	archiveRoot, err := cfg.ResolvedArchiveRoot()
	if err != nil {
		return nil, nil, err
	}

	pool, repo, err := connectLedger(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	resolver := buildResolver(cfg, logger)
	organizer := archive.NewOrganizer(archiveRoot, logger)

	p := pipeline.New(resolver, repo, organizer, nil, nil, logger, pipeline.Config{
		DryRun:       ingestDryRun,
		StageTimeout: cfg.Pipeline.StageTimeout,
	})

	return p, pool.Close, nil
}

// enqueueItems pushes items onto the Redis ingest queue for the process
// workers instead of running the pipeline inline.
func enqueueItems(ctx context.Context, cfg *config.CLIConfig, logger logging.Logger, items []pipeline.Item) error {
	client, err := queues.Connect(ctx, cfg.Pipeline.RedisAddr)
	if err != nil {
		return err
	}

	queue := queues.NewQueue(client, logger)
	defer queue.Close()

	for _, item := range items {
		if err := queue.Enqueue(ctx, queues.NewTask(item.Context, item.Files)); err != nil {
			return err
		}
	}

	fmt.Printf("\033[32m✓\033[0m Enqueued %d recording(s) to %s\n", len(items), queues.KeyIngestQueue)
	return nil
}

// runItems processes items inline through a batch runner and prints the
// summary.
func runItems(ctx context.Context, cfg *config.CLIConfig, logger logging.Logger, items []pipeline.Item) error {
	if len(items) == 0 {
		fmt.Println("No recordings found.")
		return nil
	}

	if ingestEnqueue {
		return enqueueItems(ctx, cfg, logger, items)
	}

	p, cleanup, err := buildPipeline(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	concurrency := ingestConcurrency
	if concurrency <= 0 {
		concurrency = cfg.Pipeline.Workers
	}

	runner := pipeline.NewRunner(p, nil, concurrency, logger)
	result := runner.Run(ctx, items)

	printBatchResult(result)

	if !result.Success {
		return fmt.Errorf("%d of %d recording(s) failed", result.Failed, result.Total)
	}
	return nil
}

func printBatchResult(result *pipeline.BatchResult) {
	fmt.Println()
	fmt.Println(strings.Repeat("=", 50))
	fmt.Println("Ingest Summary")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Printf("Total:      %d\n", result.Total)
	fmt.Printf("\033[32mArchived:   %d\033[0m\n", result.Archived)
	if result.Duplicates > 0 {
		fmt.Printf("\033[33mDuplicates: %d\033[0m\n", result.Duplicates)
	}
	if result.DryRun > 0 {
		fmt.Printf("\033[33mDry run:    %d\033[0m\n", result.DryRun)
	}
	if result.Failed > 0 {
		fmt.Printf("\033[31mFailed:     %d\033[0m\n", result.Failed)
	}
	fmt.Printf("Duration:   %s\n", formatDuration(result.CompletedAt.Sub(result.StartedAt)))

	if len(result.Errors) > 0 {
		fmt.Println()
		fmt.Println("Errors:")
		for _, e := range result.Errors {
			fmt.Printf("  \033[31m✗\033[0m %s: %s\n", e.Title, e.Error)
		}
	}
}
