package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sessionarc/sessionarc/config"
	"github.com/sessionarc/sessionarc/pkg/identity"
	"github.com/sessionarc/sessionarc/pkg/ingest/recording"
)

// Resolve command flags.
var (
	resolveTranscript   string
	resolveChat         string
	resolveHostEmail    string
	resolveHostName     string
	resolveDuration     time.Duration
	resolveStart        string
	resolveParticipants []string
	resolveSource       string
)

// NewResolveCommand creates the 'resolve' command.
func NewResolveCommand(deps *Deps) *cobra.Command {
	if deps == nil {
		deps = DefaultDeps()
	}

	cmd := &cobra.Command{
		Use:   "resolve <title>",
		Short: "Resolve a recording title to its identity and canonical name",
		Long: `Resolve a recording title (plus optional evidence) to the coach/student
identity, category, and deterministic canonical name.

This runs the same resolution the ingest pipeline uses, without touching
the archive or the ledger. Useful for checking how a recording would be
filed before ingesting it.

Examples:
  # Title only
  sessionarc resolve "Jenny <> Huda | Session #5" --start 2026-03-15

  # With a transcript as evidence
  sessionarc resolve "Weekly check-in" --start 2026-03-15 \
    --host-email jenny@ascendprep.com --transcript ./transcript.vtt

  # With participants
  sessionarc resolve "Coaching" --participants "Jenny Duan:jenny@ascendprep.com" \
    --participants "Huda Khan:huda@gmail.com"

  # Machine-readable output
  sessionarc resolve "Jenny <> Huda | Session #5" --output json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(deps, args[0])
		},
	}

	cmd.Flags().StringVar(&resolveTranscript, "transcript", "", "Transcript file to use as evidence")
	cmd.Flags().StringVar(&resolveChat, "chat", "", "Chat log file to use as evidence")
	cmd.Flags().StringVar(&resolveHostEmail, "host-email", "", "Meeting host email")
	cmd.Flags().StringVar(&resolveHostName, "host-name", "", "Meeting host display name")
	cmd.Flags().DurationVar(&resolveDuration, "duration", 0, "Recording duration (e.g. 45m)")
	cmd.Flags().StringVar(&resolveStart, "start", "", "Recording start date (YYYY-MM-DD)")
	cmd.Flags().StringArrayVar(&resolveParticipants, "participants", nil, "Participant as name:email (repeatable)")
	cmd.Flags().StringVar(&resolveSource, "source", "", "Ingest source: platform-api, bulk-import, webhook-push")

	return cmd
}

func runResolve(deps *Deps, title string) error {
	cfg, err := deps.ensureConfig()
	if err != nil {
		return err
	}
	logger := deps.logger()

	rc := identity.RecordingContext{
		Title:     title,
		HostEmail: resolveHostEmail,
		HostName:  resolveHostName,
		Source:    identity.Source(resolveSource),
	}

	if resolveStart != "" {
		start, err := time.Parse("2006-01-02", resolveStart)
		if err != nil {
			return fmt.Errorf("invalid --start value (want YYYY-MM-DD): %w", err)
		}
		rc.StartTime = start
	}

	if resolveDuration > 0 {
		secs := int(resolveDuration.Seconds())
		rc.Duration = &secs
	}

	for _, p := range resolveParticipants {
		name, email, _ := strings.Cut(p, ":")
		rc.Participants = append(rc.Participants, identity.Participant{
			Name:  strings.TrimSpace(name),
			Email: strings.TrimSpace(email),
		})
	}

	if resolveTranscript != "" {
		text, err := recording.ReadTextFile(resolveTranscript)
		if err != nil {
			return fmt.Errorf("reading transcript: %w", err)
		}
		rc.Transcript = text
	}
	if resolveChat != "" {
		text, err := recording.ReadTextFile(resolveChat)
		if err != nil {
			return fmt.Errorf("reading chat log: %w", err)
		}
		rc.ChatLog = text
	}

	res := buildResolver(cfg, logger).Resolve(rc)

	switch cfg.OutputFormat {
	case config.OutputFormatJSON:
		return printJSON(resolveOutput(res))
	case config.OutputFormatYAML:
		return printYAML(resolveOutput(res))
	}

	fmt.Printf("Canonical name: %s\n", res.CanonicalName)
	fmt.Printf("  Category:   %s\n", res.Category)
	fmt.Printf("  Coach:      %s\n", valueOrDefault(res.Identity.CoachName(), "(unknown)"))
	fmt.Printf("  Student:    %s\n", valueOrDefault(res.Identity.StudentName(), "(unknown)"))
	fmt.Printf("  Week:       %s\n", valueOrDefault(string(res.Identity.Week), "(unknown)"))
	fmt.Printf("  Session:    %s\n", valueOrDefault(string(res.Identity.Session), "(none)"))
	fmt.Printf("  Method:     %s\n", res.Identity.Method)
	fmt.Printf("  Confidence: %d\n", res.Confidence)

	return nil
}

// resolveResult is the machine-readable resolve output.
type resolveResult struct {
	CanonicalName string `json:"canonical_name" yaml:"canonical_name"`
	Category      string `json:"category" yaml:"category"`
	Coach         string `json:"coach,omitempty" yaml:"coach,omitempty"`
	Student       string `json:"student,omitempty" yaml:"student,omitempty"`
	Week          string `json:"week,omitempty" yaml:"week,omitempty"`
	Session       string `json:"session,omitempty" yaml:"session,omitempty"`
	Method        string `json:"method" yaml:"method"`
	Confidence    int    `json:"confidence" yaml:"confidence"`
}

func resolveOutput(res identity.Result) resolveResult {
	return resolveResult{
		CanonicalName: res.CanonicalName,
		Category:      string(res.Category),
		Coach:         res.Identity.CoachName(),
		Student:       res.Identity.StudentName(),
		Week:          string(res.Identity.Week),
		Session:       string(res.Identity.Session),
		Method:        res.Identity.Method,
		Confidence:    res.Confidence,
	}
}
