package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sessionarc/sessionarc/credentials"
	"github.com/sessionarc/sessionarc/pkg/db"
	"github.com/sessionarc/sessionarc/pkg/opslog"
	"github.com/sessionarc/sessionarc/pkg/pipeline/queues"
)

// NewStatusCommand creates the 'status' command.
func NewStatusCommand(deps *Deps) *cobra.Command {
	if deps == nil {
		deps = DefaultDeps()
	}

	return &cobra.Command{
		Use:   "status",
		Short: "Check connectivity of the configured backends",
		Long: `Check the archive root, ledger database, Redis queue, ops log, and
stored platform credentials.

Each check reports independently; unconfigured optional backends are
skipped rather than failed.

Example:
  sessionarc status`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, deps)
		},
	}
}

func runStatus(cmd *cobra.Command, deps *Deps) error {
	cfg, err := deps.ensureConfig()
	if err != nil {
		return err
	}
	logger := deps.logger()
	ctx := cmd.Context()

	fmt.Println("System status:")

	// Archive root.
	root, err := cfg.ResolvedArchiveRoot()
	if err != nil {
		return err
	}
	if info, err := os.Stat(root); err == nil && info.IsDir() {
		printCheck(true, "Archive root", root)
	} else if os.IsNotExist(err) {
		printCheck(true, "Archive root", fmt.Sprintf("%s (created on first ingest)", root))
	} else {
		printCheck(false, "Archive root", fmt.Sprintf("%s: %v", root, err))
	}

	// Ledger database.
	if cfg.Ledger.IsConfigured() {
		checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		pool, err := db.Connect(checkCtx, ledgerDBConfig(cfg.Ledger))
		if err != nil {
			printCheck(false, "Ledger", err.Error())
		} else {
			if health := db.Check(checkCtx, pool); !health.Healthy {
				printCheck(false, "Ledger", health.Error.Error())
			} else {
				printCheck(true, "Ledger", fmt.Sprintf("%s/%s (%s)",
					cfg.Ledger.Host, cfg.Ledger.Database, health.Latency.Round(time.Millisecond)))
			}
			pool.Close()
		}
		cancel()
	} else {
		printSkipped("Ledger", "not configured")
	}

	// Redis queue.
	if cfg.Pipeline.RedisAddr != "" {
		client, err := queues.Connect(ctx, cfg.Pipeline.RedisAddr)
		if err != nil {
			printCheck(false, "Queue", err.Error())
		} else {
			queue := queues.NewQueue(client, logger)
			if n, err := queue.Len(ctx); err != nil {
				printCheck(false, "Queue", err.Error())
			} else {
				printCheck(true, "Queue", fmt.Sprintf("%s (%d pending)", cfg.Pipeline.RedisAddr, n))
			}
			client.Close()
		}
	} else {
		printSkipped("Queue", "not configured")
	}

	// Ops log.
	if cfg.OpsLog.IsConfigured() {
		client, err := opslog.NewClient(cfg.OpsLog)
		if err != nil {
			printCheck(false, "Ops log", err.Error())
		} else {
			checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			if err := client.Ping(checkCtx); err != nil {
				printCheck(false, "Ops log", err.Error())
			} else {
				printCheck(true, "Ops log", fmt.Sprintf("%s/%s", cfg.OpsLog.Host, cfg.OpsLog.Database))
			}
			cancel()
			client.Close()
		}
	} else {
		printSkipped("Ops log", "not configured")
	}

	// Platform credentials.
	if store, err := credentials.NewStore(); err != nil {
		printCheck(false, "Credentials", err.Error())
	} else if store.Exists() {
		printCheck(true, "Credentials", "stored")
	} else {
		printSkipped("Credentials", "none stored, run 'sessionarc auth setup'")
	}

	return nil
}

func printCheck(ok bool, name, detail string) {
	mark := "\033[32m✓\033[0m"
	if !ok {
		mark = "\033[31m✗\033[0m"
	}
	fmt.Printf("  %s %-13s %s\n", mark, name, detail)
}

func printSkipped(name, detail string) {
	fmt.Printf("  \033[33m-\033[0m %-13s %s\n", name, detail)
}
