package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sessionarc/sessionarc/pkg/ingest/recording"
	"github.com/sessionarc/sessionarc/pkg/logging"
	"github.com/sessionarc/sessionarc/pkg/pipeline"
)

// NewIngestDriveCommand creates the 'ingest drive' command.
func NewIngestDriveCommand(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "drive <path>",
		Short: "Ingest recordings from a local drive or folder",
		Long: `Scan a local path for recording sessions and ingest them.

A directory holding one transcript, one chat log, and media files is treated
as a single session. Otherwise subdirectories become sessions and loose files
are grouped by title and date.

Examples:
  # Preview what a drive scan would file where
  sessionarc ingest drive /mnt/recordings --dry-run

  # Ingest a whole drive, four recordings at a time
  sessionarc ingest drive /mnt/recordings --concurrency 4

  # Hand the work to the background processors
  sessionarc ingest drive /mnt/recordings --queue`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngestDrive(cmd, deps, args[0])
		},
	}
}

func runIngestDrive(cmd *cobra.Command, deps *Deps, path string) error {
	cfg, err := deps.ensureConfig()
	if err != nil {
		return err
	}
	logger := deps.logger()

	sessions, err := recording.ScanDrive(path)
	if err != nil {
		return fmt.Errorf("scanning %s: %w", path, err)
	}

	logger.Info("Drive scan complete",
		logging.F("path", path),
		logging.F("sessions", len(sessions)))

	if len(sessions) == 0 {
		fmt.Println("No recording sessions found.")
		return nil
	}

	fmt.Printf("Found %d session(s) under %s:\n", len(sessions), path)
	for _, s := range sessions {
		date := "unknown date"
		if !s.Date.IsZero() {
			date = s.Date.Format("2006-01-02")
		}
		fmt.Printf("  • %s (%s, %d file(s))\n", s.Title, date, len(s.Files()))
	}
	fmt.Println()

	items := make([]pipeline.Item, 0, len(sessions))
	for _, s := range sessions {
		items = append(items, pipeline.Item{
			Context: recording.FromSession(s, logger),
			Files:   s.Files(),
		})
	}

	return runItems(cmd.Context(), cfg, logger, items)
}
