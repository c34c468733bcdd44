package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sessionarc/sessionarc/config"
	"github.com/sessionarc/sessionarc/pkg/opslog"
)

// Ops command flags.
var (
	opsOperator string
	opsLimit    int
)

// NewOpsCommand creates the 'ops' command group.
func NewOpsCommand(deps *Deps) *cobra.Command {
	if deps == nil {
		deps = DefaultDeps()
	}

	cmd := &cobra.Command{
		Use:   "ops",
		Short: "Inspect the operations log",
		Long: `Inspect the shared operations log. Every CLI invocation is recorded
there when an ops log database is configured, so operators can see what
ran, when, and whether it succeeded.`,
	}

	cmd.AddCommand(newOpsHistoryCommand(deps))

	return cmd
}

func newOpsHistoryCommand(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent CLI invocations",
		Long: `Show recent CLI invocations from the operations log, newest first.

Examples:
  sessionarc ops history
  sessionarc ops history --operator archive-cli --limit 50
  sessionarc ops history --output json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOpsHistory(cmd, deps)
		},
	}

	cmd.Flags().StringVar(&opsOperator, "operator", "", "Filter by operator (empty for all)")
	cmd.Flags().IntVar(&opsLimit, "limit", 20, "Maximum entries to return")

	return cmd
}

func runOpsHistory(cmd *cobra.Command, deps *Deps) error {
	cfg, err := deps.ensureConfig()
	if err != nil {
		return err
	}

	client, err := opslog.NewClient(cfg.OpsLog)
	if err != nil {
		return err
	}
	defer client.Close()

	entries, err := client.History(cmd.Context(), opsOperator, opsLimit)
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
		fmt.Println("No ops log entries found.")
		return nil
	}

	fmt.Printf("%-17s %-14s %-30s %-8s %s\n", "WHEN", "OPERATOR", "COMMAND", "STATUS", "DURATION")
	fmt.Println(strings.Repeat("-", 85))
	for _, e := range entries {
		status := "\033[32mok\033[0m    "
		if !e.Success {
			status = "\033[31mfailed\033[0m"
		}
		fmt.Printf("%-17s %-14s %-30s %s %s\n",
			e.CreatedAt.Format("2006-01-02 15:04"),
			e.Operator,
			truncateDisplay(e.Command+" "+strings.Join(e.Args, " "), 30),
			status,
			formatDuration(time.Duration(e.DurationMs)*time.Millisecond))
	}
	fmt.Printf("\n%d entry(ies)\n", len(entries))

	return nil
}

func truncateDisplay(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
