package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sessionarc/sessionarc/pkg/ingest/recording"
	"github.com/sessionarc/sessionarc/pkg/logging"
	"github.com/sessionarc/sessionarc/pkg/pipeline"
)

// NewIngestWebhookCommand creates the 'ingest webhook' command.
func NewIngestWebhookCommand(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "webhook [payload-file]",
		Short: "Ingest a recording from a webhook payload",
		Long: `Ingest a single recording from a platform webhook push payload.

Reads the JSON payload from the given file, or from stdin when no file is
given. Only recording.completed events are accepted.

Webhook pushes carry no files, so the archive entry holds the resolution
sidecar only; media can be attached later through 'ingest api --meeting'.

Examples:
  # From a saved payload
  sessionarc ingest webhook ./payload.json

  # Piped from a webhook receiver
  cat payload.json | sessionarc ingest webhook

  # Queue for the background processors
  sessionarc ingest webhook ./payload.json --queue`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runIngestWebhook(cmd, deps, path)
		},
	}
}

func runIngestWebhook(cmd *cobra.Command, deps *Deps, path string) error {
	cfg, err := deps.ensureConfig()
	if err != nil {
		return err
	}
	logger := deps.logger()

	var data []byte
	if path == "" {
		data, err = io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("reading payload from stdin: %w", err)
		}
	} else {
		data, err = os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading payload: %w", err)
		}
	}

	rc, err := recording.ParseWebhook(data)
	if err != nil {
		return err
	}

	logger.Info("Webhook payload accepted",
		logging.F("title", rc.Title),
		logging.F("meeting_id", rc.MeetingID))

	items := []pipeline.Item{{Context: *rc}}

	return runItems(cmd.Context(), cfg, logger, items)
}
