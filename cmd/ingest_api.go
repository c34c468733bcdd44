package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sessionarc/sessionarc/pkg/ingest/recording"
	"github.com/sessionarc/sessionarc/pkg/logging"
	"github.com/sessionarc/sessionarc/pkg/pipeline"
	"github.com/sessionarc/sessionarc/pkg/platform"
)

// API ingest flags.
var (
	apiFrom      string
	apiTo        string
	apiMeetingID string
	apiNoMedia   bool
)

// NewIngestAPICommand creates the 'ingest api' command.
func NewIngestAPICommand(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "api",
		Short: "Ingest recordings from the cloud platform API",
		Long: `Poll the cloud platform's recordings API, download the recording files,
and ingest them.

Requires platform credentials (see 'sessionarc auth setup'). By default the
last 7 days of recordings are listed.

Examples:
  # Preview the last week's recordings
  sessionarc ingest api --dry-run

  # Ingest a specific date range
  sessionarc ingest api --from 2026-03-01 --to 2026-03-15

  # Ingest one meeting by id
  sessionarc ingest api --meeting 81234567890

  # Skip media downloads, archive evidence and ledger entry only
  sessionarc ingest api --no-media`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngestAPI(cmd, deps)
		},
	}

	cmd.Flags().StringVar(&apiFrom, "from", "", "Start date (YYYY-MM-DD, default 7 days ago)")
	cmd.Flags().StringVar(&apiTo, "to", "", "End date (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&apiMeetingID, "meeting", "", "Ingest a single meeting by id")
	cmd.Flags().BoolVar(&apiNoMedia, "no-media", false, "Do not download recording files")

	return cmd
}

func runIngestAPI(cmd *cobra.Command, deps *Deps) error {
	cfg, err := deps.ensureConfig()
	if err != nil {
		return err
	}
	logger := deps.logger()
	ctx := cmd.Context()

	client, err := newPlatformClient(cfg, logger)
	if err != nil {
		return err
	}

	var meetings []platform.Meeting
	if apiMeetingID != "" {
		m, err := client.GetMeetingRecordings(ctx, apiMeetingID)
		if err != nil {
			return err
		}
		meetings = []platform.Meeting{*m}
	} else {
		from, to, err := resolveWindow(apiFrom, apiTo)
		if err != nil {
			return err
		}

		meetings, err = client.ListRecordings(ctx, from, to)
		if err != nil {
			return err
		}

		logger.Info("Platform listing complete",
			logging.F("from", from.Format("2006-01-02")),
			logging.F("to", to.Format("2006-01-02")),
			logging.F("meetings", len(meetings)))
	}

	if len(meetings) == 0 {
		fmt.Println("No recordings found.")
		return nil
	}

	fmt.Printf("Found %d recording(s):\n", len(meetings))
	for _, m := range meetings {
		fmt.Printf("  • %s (%s, %d file(s))\n",
			m.Topic, m.StartTime.Format("2006-01-02"), len(m.RecordingFiles))
	}
	fmt.Println()

	skipDownload := apiNoMedia || ingestDryRun || ingestEnqueue

	items := make([]pipeline.Item, 0, len(meetings))
	for _, m := range meetings {
		item := pipeline.Item{Context: recording.FromAPIMeeting(m)}

		if !skipDownload {
			files, err := downloadMeetingFiles(ctx, client, m, cfg.Platform.DownloadConcurrency)
			if err != nil {
				logger.Warn("Skipping meeting, download failed",
					logging.Err(err),
					logging.F("topic", m.Topic))
				fmt.Printf("  \033[31m✗\033[0m %s: %v\n", m.Topic, err)
				continue
			}
			item.Files = files
		}

		items = append(items, item)
	}

	return runItems(ctx, cfg, logger, items)
}

// resolveWindow parses the --from/--to dates, defaulting to the last 7 days.
// The end date is extended to the end of its day so same-day recordings are
// included.
func resolveWindow(fromStr, toStr string) (time.Time, time.Time, error) {
	to := time.Now().UTC()
	if toStr != "" {
		t, err := time.Parse("2006-01-02", toStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --to value (want YYYY-MM-DD): %w", err)
		}
		to = t.Add(24*time.Hour - time.Second)
	}

	from := to.AddDate(0, 0, -7)
	if fromStr != "" {
		t, err := time.Parse("2006-01-02", fromStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --from value (want YYYY-MM-DD): %w", err)
		}
		from = t
	}

	if from.After(to) {
		return time.Time{}, time.Time{}, fmt.Errorf("--from %s is after --to %s", from.Format("2006-01-02"), to.Format("2006-01-02"))
	}

	return from, to, nil
}

// downloadMeetingFiles fetches a meeting's recording files into a staging
// directory, bounded by the configured download concurrency.
func downloadMeetingFiles(ctx context.Context, client *platform.Client, m platform.Meeting, concurrency int) ([]string, error) {
	if len(m.RecordingFiles) == 0 {
		return nil, nil
	}

	stageDir, err := os.MkdirTemp("", "sessionarc-ingest-*")
	if err != nil {
		return nil, fmt.Errorf("creating staging directory: %w", err)
	}

	if concurrency <= 0 {
		concurrency = 1
	}
	sem := make(chan struct{}, concurrency)
	errCh := make(chan error, len(m.RecordingFiles))
	files := make([]string, len(m.RecordingFiles))

	for i, f := range m.RecordingFiles {
		dest := filepath.Join(stageDir, stagingFileName(m, f))
		files[i] = dest

		sem <- struct{}{}
		go func(url, dest string) {
			defer func() { <-sem }()
			errCh <- client.DownloadFile(ctx, url, dest)
		}(f.DownloadURL, dest)
	}

	var firstErr error
	for range m.RecordingFiles {
		if err := <-errCh; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		os.RemoveAll(stageDir)
		return nil, firstErr
	}

	return files, nil
}

// stagingFileName builds a staged file name from the recording type and
// extension, e.g. "shared_screen_with_speaker_view.mp4".
func stagingFileName(m platform.Meeting, f platform.RecordingFile) string {
	base := strings.ToLower(f.RecordingType)
	if base == "" {
		base = f.ID
	}
	ext := strings.ToLower(strings.TrimPrefix(f.FileExtension, "."))
	if ext == "" {
		ext = "bin"
	}
	return fmt.Sprintf("%s.%s", base, ext)
}
