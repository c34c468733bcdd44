package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sessionarc/sessionarc/config"
	"github.com/sessionarc/sessionarc/pkg/archive"
	"github.com/sessionarc/sessionarc/pkg/db"
	"github.com/sessionarc/sessionarc/pkg/ledger"
)

// Ledger command flags.
var (
	ledgerListCategory  string
	ledgerListCoach     string
	ledgerListSince     string
	ledgerListLimit     int
	ledgerMigrationsDir string
	ledgerMigrateTarget string
)

// NewLedgerCommand creates the 'ledger' command group.
func NewLedgerCommand(deps *Deps) *cobra.Command {
	if deps == nil {
		deps = DefaultDeps()
	}

	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect and manage the archive ledger",
		Long: `Inspect and manage the Postgres ledger that records every archived
recording under its canonical name.`,
	}

	cmd.PersistentFlags().StringVar(&ledgerMigrationsDir, "migrations", "migrations", "Directory holding .sql migration files")

	cmd.AddCommand(newLedgerListCommand(deps))
	cmd.AddCommand(newLedgerShowCommand(deps))
	cmd.AddCommand(newLedgerStatsCommand(deps))
	cmd.AddCommand(newLedgerMigrateCommand(deps))
	cmd.AddCommand(newLedgerStatusCommand(deps))

	return cmd
}

func newLedgerListCommand(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List ledger entries",
		Long: `List archived recordings, newest first.

Examples:
  sessionarc ledger list
  sessionarc ledger list --category Coaching --coach Jenny
  sessionarc ledger list --since 2026-03-01 --limit 100
  sessionarc ledger list --output json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLedgerList(cmd, deps)
		},
	}

	cmd.Flags().StringVar(&ledgerListCategory, "category", "", "Filter by category")
	cmd.Flags().StringVar(&ledgerListCoach, "coach", "", "Filter by coach")
	cmd.Flags().StringVar(&ledgerListSince, "since", "", "Only recordings on or after this date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&ledgerListLimit, "limit", 50, "Maximum entries to return")

	return cmd
}

func runLedgerList(cmd *cobra.Command, deps *Deps) error {
	cfg, err := deps.ensureConfig()
	if err != nil {
		return err
	}
	logger := deps.logger()
	ctx := cmd.Context()

	opts := ledger.ListOptions{
		Category: ledgerListCategory,
		Coach:    ledgerListCoach,
		Limit:    ledgerListLimit,
	}
	if ledgerListSince != "" {
		since, err := time.Parse("2006-01-02", ledgerListSince)
		if err != nil {
			return fmt.Errorf("invalid --since value (want YYYY-MM-DD): %w", err)
		}
		opts.Since = since
	}

	pool, repo, err := connectLedger(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	entries, err := repo.List(ctx, opts)
	if err != nil {
		return err
	}

	switch cfg.OutputFormat {
	case config.OutputFormatJSON:
		return printJSON(entries)
	case config.OutputFormatYAML:
		return printYAML(entries)
	}

	if len(entries) == 0 {
		fmt.Println("No ledger entries found.")
		return nil
	}

	fmt.Printf("%-45s %-20s %-12s %s\n", "CANONICAL NAME", "CATEGORY", "METHOD", "ARCHIVED")
	fmt.Println(strings.Repeat("-", 90))
	for _, e := range entries {
		fmt.Printf("%-45s %-20s %-12s %s\n",
			e.CanonicalName, e.Category, e.Method, e.CreatedAt.Format("2006-01-02 15:04"))
	}
	fmt.Printf("\n%d entry(ies)\n", len(entries))

	return nil
}

func newLedgerShowCommand(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "show <canonical-name>",
		Short: "Show one ledger entry",
		Long: `Show a ledger entry by canonical name, including the archive sidecar
when the archive folder is reachable.

Example:
  sessionarc ledger show Coaching_Jenny_Huda_Wk05_2026-03-15`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLedgerShow(cmd, deps, args[0])
		},
	}
}

func runLedgerShow(cmd *cobra.Command, deps *Deps, name string) error {
	cfg, err := deps.ensureConfig()
	if err != nil {
		return err
	}
	logger := deps.logger()
	ctx := cmd.Context()

	pool, repo, err := connectLedger(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	entry, err := repo.Get(ctx, name)
	if err != nil {
		return err
	}
	if entry == nil {
		return fmt.Errorf("no ledger entry for %q", name)
	}

	switch cfg.OutputFormat {
	case config.OutputFormatJSON:
		return printJSON(entry)
	case config.OutputFormatYAML:
		return printYAML(entry)
	}

	fmt.Printf("Canonical name: %s\n", entry.CanonicalName)
	fmt.Printf("  ID:           %d\n", entry.ID)
	fmt.Printf("  Category:     %s\n", entry.Category)
	fmt.Printf("  Coach:        %s\n", valueOrDefault(derefString(entry.Coach), "(unknown)"))
	fmt.Printf("  Student:      %s\n", valueOrDefault(derefString(entry.Student), "(unknown)"))
	fmt.Printf("  Week:         %s\n", valueOrDefault(entry.Week, "(unknown)"))
	fmt.Printf("  Method:       %s\n", entry.Method)
	fmt.Printf("  Confidence:   %d\n", entry.Confidence)
	fmt.Printf("  Source:       %s\n", valueOrDefault(entry.Source, "(none)"))
	fmt.Printf("  Content ID:   %s\n", valueOrDefault(entry.ContentID, "(none)"))
	fmt.Printf("  Archive path: %s\n", valueOrDefault(entry.ArchivePath, "(none)"))
	if entry.RecordedAt != nil {
		fmt.Printf("  Recorded:     %s\n", entry.RecordedAt.Format("2006-01-02 15:04"))
	}
	fmt.Printf("  Archived:     %s\n", entry.CreatedAt.Format("2006-01-02 15:04"))

	if entry.ArchivePath != "" {
		if _, statErr := os.Stat(entry.ArchivePath); statErr == nil {
			sc, scErr := archive.ReadSidecar(entry.ArchivePath)
			if scErr == nil {
				fmt.Println()
				fmt.Printf("Sidecar (content id %s):\n", sc.ContentID)
				fmt.Printf("  Archived at:  %s\n", sc.ArchivedAt.Format("2006-01-02 15:04"))
			}
		} else {
			fmt.Printf("\n\033[33m! Archive folder missing: %s\033[0m\n", entry.ArchivePath)
		}
	}

	return nil
}

func newLedgerStatsCommand(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show ledger statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLedgerStats(cmd, deps)
		},
	}
}

func runLedgerStats(cmd *cobra.Command, deps *Deps) error {
	cfg, err := deps.ensureConfig()
	if err != nil {
		return err
	}
	logger := deps.logger()
	ctx := cmd.Context()

	pool, repo, err := connectLedger(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	stats, err := repo.GetStats(ctx)
	if err != nil {
		return err
	}

	switch cfg.OutputFormat {
	case config.OutputFormatJSON:
		return printJSON(stats)
	case config.OutputFormatYAML:
		return printYAML(stats)
	}

	fmt.Println(strings.Repeat("=", 50))
	fmt.Println("Ledger Statistics")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Printf("Total entries: %d\n", stats.Total)

	fmt.Println("\nBy category:")
	for _, k := range sortedKeys(stats.ByCategory) {
		fmt.Printf("  %-25s %d\n", k, stats.ByCategory[k])
	}

	fmt.Println("\nBy resolution method:")
	for _, k := range sortedKeys(stats.ByMethod) {
		fmt.Printf("  %-25s %d\n", k, stats.ByMethod[k])
	}

	return nil
}

func newLedgerMigrateCommand(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending ledger schema migrations",
		Long: `Apply pending .sql migrations from the migrations directory to the
ledger database. Already-applied migrations are skipped.

Examples:
  sessionarc ledger migrate --migrations ./migrations

  # Apply migrations up to and including version 002
  sessionarc ledger migrate --target 002`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLedgerMigrate(cmd, deps)
		},
	}

	cmd.Flags().StringVar(&ledgerMigrateTarget, "target", "", "Stop after this migration version (default: apply all)")

	return cmd
}

func runLedgerMigrate(cmd *cobra.Command, deps *Deps) error {
	cfg, err := deps.ensureConfig()
	if err != nil {
		return err
	}
	logger := deps.logger()
	ctx := cmd.Context()

	pool, _, err := connectLedger(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	var result *db.MigrationResult
	if ledgerMigrateTarget != "" {
		result, err = db.RunMigrationsToTarget(ctx, pool, ledgerMigrationsDir, ledgerMigrateTarget)
	} else {
		result, err = db.RunMigrations(ctx, pool, ledgerMigrationsDir)
	}
	if err != nil {
		return err
	}

	for _, name := range result.Applied {
		fmt.Printf("\033[32m✓\033[0m Applied %s\n", name)
	}
	for _, name := range result.Skipped {
		fmt.Printf("  Skipped %s (already applied)\n", name)
	}
	for _, e := range result.Errors {
		fmt.Printf("\033[31m✗\033[0m %v\n", e)
	}

	if len(result.Errors) > 0 {
		return fmt.Errorf("%d migration(s) failed", len(result.Errors))
	}

	fmt.Printf("\n%d applied, %d skipped\n", len(result.Applied), len(result.Skipped))
	return nil
}

func newLedgerStatusCommand(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show migration status of the ledger database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLedgerStatus(cmd, deps)
		},
	}
}

func runLedgerStatus(cmd *cobra.Command, deps *Deps) error {
	cfg, err := deps.ensureConfig()
	if err != nil {
		return err
	}
	logger := deps.logger()
	ctx := cmd.Context()

	pool, _, err := connectLedger(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	status, err := db.GetMigrationStatus(ctx, pool, ledgerMigrationsDir)
	if err != nil {
		return err
	}

	fmt.Println("Applied:")
	if len(status.Applied) == 0 {
		fmt.Println("  (none)")
	}
	for _, m := range status.Applied {
		appliedAt := ""
		if m.AppliedAt != nil {
			appliedAt = m.AppliedAt.Format("2006-01-02 15:04")
		}
		fmt.Printf("  \033[32m✓\033[0m %s %s  %s\n", m.Version, m.Name, appliedAt)
	}

	fmt.Println("\nPending:")
	if len(status.Pending) == 0 {
		fmt.Println("  (none)")
	}
	for _, m := range status.Pending {
		fmt.Printf("  \033[33m•\033[0m %s %s\n", m.Version, m.Name)
	}

	if len(status.Drift) > 0 {
		fmt.Println("\n\033[31mDrift (applied but no file):\033[0m")
		for _, m := range status.Drift {
			fmt.Printf("  \033[31m!\033[0m %s %s\n", m.Version, m.Name)
		}
	}

	return nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
