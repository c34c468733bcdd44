// Package main provides the sessionarc CLI entry point.
// sessionarc resolves meeting recordings to coach/student identities and
// files them into a deterministic archive backed by a Postgres ledger.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sessionarc/sessionarc/cmd"
	"github.com/sessionarc/sessionarc/config"
	"github.com/sessionarc/sessionarc/pkg/buildinfo"
	"github.com/sessionarc/sessionarc/pkg/opslog"
)

// Global flags and state.
var (
	cfgFile      string
	archiveRoot  string
	timeout      time.Duration
	outputFormat string
	debug        bool

	// cfg holds the loaded configuration.
	cfg *config.CLIConfig

	// deps carries the loaded config into the cmd package.
	deps = cmd.DefaultDeps()

	// Command logging state.
	cmdStartTime  time.Time
	cmdOutputBuf  *bytes.Buffer
	outputCapture *outputTee
)

// outputTee captures output while still writing to the original destination.
type outputTee struct {
	writer io.Writer
	buffer *bytes.Buffer
}

func (t *outputTee) Write(p []byte) (n int, err error) {
	t.buffer.Write(p)
	return t.writer.Write(p)
}

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "sessionarc",
	Short: "Meeting recording archive tool",
	Long: `sessionarc resolves meeting recordings to their coach/student identity,
categorizes them, and files them into an archive under a deterministic
canonical name. A Postgres ledger records every archived recording and
keeps re-ingestion idempotent.

COMMON WORKFLOWS:
  Check a title:    sessionarc resolve "Jenny <> Huda | Session #5"
  Ingest a drive:   sessionarc ingest drive /mnt/recordings --dry-run
  Poll the API:     sessionarc ingest api --from 2026-03-01
  Run workers:      sessionarc process
  Inspect archive:  sessionarc ledger list  |  sessionarc ledger stats
  Check system:     sessionarc status

DISCOVERY:
  sessionarc <command> --help   Subcommands, flags, and examples
  sessionarc config show        Current configuration
  sessionarc roster show        Resolved coach and student roster`,
	PersistentPreRunE: func(c *cobra.Command, args []string) error {
		// Record start time for command logging.
		cmdStartTime = time.Now()

		// Set up output capture for command logging.
		cmdOutputBuf = &bytes.Buffer{}
		outputCapture = &outputTee{writer: os.Stdout, buffer: cmdOutputBuf}

		// Skip initialization for commands that don't need it.
		if c.Name() == "version" || c.Name() == "help" || c.Name() == "completion" {
			return nil
		}

		// Load configuration.
		var err error
		cfg, err = config.LoadConfig()
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}

		// Override with command-line flags.
		if archiveRoot != "" {
			cfg.ArchiveRoot = archiveRoot
		}
		if timeout != 0 {
			cfg.Timeout = timeout
		}
		if outputFormat != "" {
			format := config.OutputFormat(outputFormat)
			if !format.IsValid() {
				return fmt.Errorf("invalid output format: %s (must be text, json, or yaml)", outputFormat)
			}
			cfg.OutputFormat = format
		}
		if debug {
			cfg.Debug = true
		}

		deps.Config = cfg

		// Capture output when the ops log is configured.
		if cfg.OpsLog.IsConfigured() {
			c.SetOut(outputCapture)
		}

		return nil
	},
}

// Version command flags.
var (
	versionOutputJSON bool
	versionChangelog  bool
)

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long: `Print the version, commit hash, and build time of the sessionarc CLI.

Use --changelog to show commits since the last tag.

Examples:
  sessionarc version                       Show version
  sessionarc version --changelog           Show commits since last tag
  sessionarc version --changelog --output-json  Output changelog as JSON`,
	RunE: func(c *cobra.Command, args []string) error {
		info := buildinfo.Get("sessionarc")

		// If --changelog is set, show commits since last tag.
		if versionChangelog {
			tagCmd := exec.Command("git", "describe", "--tags", "--abbrev=0")
			tagOut, err := tagCmd.Output()
			lastTag := strings.TrimSpace(string(tagOut))
			if err != nil || lastTag == "" {
				lastTag = "" // No tags, show all commits
			}

			var logCmd *exec.Cmd
			if lastTag != "" {
				logCmd = exec.Command("git", "log", "--oneline", lastTag+"..HEAD")
			} else {
				logCmd = exec.Command("git", "log", "--oneline")
			}

			logOut, err := logCmd.Output()
			if err != nil {
				return fmt.Errorf("failed to get git log: %w", err)
			}

			changelog := strings.TrimSpace(string(logOut))

			if versionOutputJSON {
				type commit struct {
					Hash    string `json:"hash"`
					Message string `json:"message"`
				}
				commits := []commit{}
				if changelog != "" {
					for _, line := range strings.Split(changelog, "\n") {
						fields := strings.SplitN(line, " ", 2)
						if len(fields) == 2 {
							commits = append(commits, commit{Hash: fields[0], Message: fields[1]})
						}
					}
				}
				enc := json.NewEncoder(c.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(commits)
			}

			out := c.OutOrStdout()
			if changelog == "" {
				fmt.Fprintln(out, "No commits since last tag.")
			} else {
				fmt.Fprintln(out, changelog)
			}
			return nil
		}

		if versionOutputJSON {
			enc := json.NewEncoder(c.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		}

		out := c.OutOrStdout()
		fmt.Fprintf(out, "sessionarc version %s\n", info.Version)
		fmt.Fprintf(out, "  commit:     %s\n", info.Commit)
		fmt.Fprintf(out, "  built:      %s\n", info.BuildTime)
		return nil
	},
}

// configCmd manages CLI configuration.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
	Long:  `View and modify the sessionarc CLI configuration settings.`,
}

// configShowCmd displays current configuration.
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the current CLI configuration values.`,
	RunE: func(c *cobra.Command, args []string) error {
		// Load config (uses PersistentPreRunE, so cfg is already loaded).
		if cfg == nil {
			var err error
			cfg, err = config.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading configuration: %w", err)
			}
		}

		configPath, _ := config.ConfigPath()

		fmt.Println("Current configuration:")
		fmt.Printf("  Config file:    %s\n", configPath)
		fmt.Printf("  Archive root:   %s\n", cfg.ArchiveRoot)
		fmt.Printf("  Timeout:        %s\n", cfg.Timeout)
		fmt.Printf("  Output format:  %s\n", cfg.OutputFormat)
		fmt.Printf("  Debug:          %t\n", cfg.Debug)
		fmt.Println("Roster:")
		fmt.Printf("  Student table:  %s\n", valueOrDefault(cfg.Roster.StudentTablePath, "(embedded)"))
		fmt.Printf("  Program lead:   %s\n", valueOrDefault(cfg.Roster.ProgramLead, "(default)"))
		fmt.Println("Pipeline:")
		fmt.Printf("  Redis address:  %s\n", cfg.Pipeline.RedisAddr)
		fmt.Printf("  Workers:        %d\n", cfg.Pipeline.Workers)
		fmt.Printf("  Metrics addr:   %s\n", valueOrDefault(cfg.Pipeline.MetricsAddr, "(disabled)"))
		fmt.Printf("Ledger configured: %t\n", cfg.Ledger.IsConfigured())
		fmt.Printf("Ops log configured: %t\n", cfg.OpsLog.IsConfigured())

		return nil
	},
}

// configInitCmd initializes configuration.
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration file",
	Long:  `Create a new configuration file with default values if one doesn't exist.`,
	RunE: func(c *cobra.Command, args []string) error {
		configPath, err := config.ConfigPath()
		if err != nil {
			return fmt.Errorf("getting config path: %w", err)
		}

		// Check if config already exists.
		if _, err := os.Stat(configPath); err == nil {
			fmt.Printf("Configuration file already exists: %s\n", configPath)
			fmt.Println("Use 'sessionarc config show' to view current settings.")
			return nil
		}

		// Create default config.
		defaultCfg := config.DefaultConfig()
		if err := config.SaveConfig(defaultCfg); err != nil {
			return fmt.Errorf("saving configuration: %w", err)
		}

		fmt.Printf("Created configuration file: %s\n", configPath)
		fmt.Println("\nDefault settings:")
		fmt.Printf("  Archive root:   %s\n", defaultCfg.ArchiveRoot)
		fmt.Printf("  Timeout:        %s\n", defaultCfg.Timeout)
		fmt.Printf("  Output format:  %s\n", defaultCfg.OutputFormat)

		return nil
	},
}

// configSetCmd sets a configuration value.
var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the config file.

Available keys:
  archive_root       - Directory recordings are organized into (supports ~)
  timeout            - Request timeout (e.g., 30s, 10m)
  output_format      - Default output format (text, json, yaml)
  debug              - Enable debug mode (true/false)
  student_table_path - Path to the student reference CSV (supports ~)
  program_lead       - Coach who owns game-plan sessions
  redis_addr         - Queue broker address (host:port)
  workers            - Background worker count
  metrics_addr       - Prometheus listen address (empty disables)

Examples:
  sessionarc config set archive_root ~/SessionArchive
  sessionarc config set output_format json
  sessionarc config set redis_addr localhost:6379
  sessionarc config set workers 8`,
	Args: cobra.ExactArgs(2),
	RunE: func(c *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		// Load current config.
		currentCfg, err := config.LoadConfig()
		if err != nil {
			// If config doesn't exist, start with defaults.
			currentCfg = config.DefaultConfig()
		}

		switch key {
		case "archive_root":
			// Validate the path is expandable.
			expanded, err := config.ExpandPath(value)
			if err != nil {
				return fmt.Errorf("invalid archive root: %w", err)
			}
			// Store the original value (with ~) for readability.
			currentCfg.ArchiveRoot = value
			fmt.Printf("  (expands to: %s)\n", expanded)
		case "timeout":
			duration, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid timeout value: %w", err)
			}
			currentCfg.Timeout = duration
		case "output_format":
			format := config.OutputFormat(value)
			if !format.IsValid() {
				return fmt.Errorf("invalid output format: %s (must be text, json, or yaml)", value)
			}
			currentCfg.OutputFormat = format
		case "debug":
			b, err := parseBool(value)
			if err != nil {
				return fmt.Errorf("invalid debug value: %s (must be true or false)", value)
			}
			currentCfg.Debug = b
		case "student_table_path":
			if _, err := config.ExpandPath(value); err != nil {
				return fmt.Errorf("invalid student table path: %w", err)
			}
			currentCfg.Roster.StudentTablePath = value
		case "program_lead":
			currentCfg.Roster.ProgramLead = value
		case "redis_addr":
			currentCfg.Pipeline.RedisAddr = value
		case "workers":
			var n int
			if _, err := fmt.Sscanf(value, "%d", &n); err != nil || n < 1 {
				return fmt.Errorf("invalid workers value: %s (must be a positive integer)", value)
			}
			currentCfg.Pipeline.Workers = n
		case "metrics_addr":
			currentCfg.Pipeline.MetricsAddr = value
		default:
			return fmt.Errorf("unknown configuration key: %s", key)
		}

		// Save the config.
		if err := config.SaveConfig(currentCfg); err != nil {
			return fmt.Errorf("saving configuration: %w", err)
		}

		fmt.Printf("Set %s = %s\n", key, value)
		return nil
	},
}

// completionCmd generates shell completion scripts.
var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for sessionarc.

To load completions:

Bash:
  $ source <(sessionarc completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ sessionarc completion bash > /etc/bash_completion.d/sessionarc
  # macOS:
  $ sessionarc completion bash > $(brew --prefix)/etc/bash_completion.d/sessionarc

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. Execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ sessionarc completion zsh > "${fpath[1]}/_sessionarc"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ sessionarc completion fish | source

  # To load completions for each session, execute once:
  $ sessionarc completion fish > ~/.config/fish/completions/sessionarc.fish

PowerShell:
  PS> sessionarc completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> sessionarc completion powershell > sessionarc.ps1
  # and source this file from your PowerShell profile.
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(c *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(os.Stdout)
		case "zsh":
			return rootCmd.GenZshCompletion(os.Stdout)
		case "fish":
			return rootCmd.GenFishCompletion(os.Stdout, true)
		case "powershell":
			return rootCmd.GenPowerShellCompletionWithDesc(os.Stdout)
		}
		return nil
	},
}

// parseBool accepts true/false and 1/0.
func parseBool(value string) (bool, error) {
	switch value {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("not a boolean: %s", value)
}

// valueOrDefault returns the value if non-empty, otherwise the default.
func valueOrDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}

func init() {
	// Global flags.
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.sessionarc/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&archiveRoot, "archive-root", "", "archive root directory")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "request timeout (e.g., 30s, 10m)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "output", "", "output format: text, json, yaml")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	// Add command groups for organized help output.
	rootCmd.AddGroup(
		&cobra.Group{ID: "resolution", Title: "Resolution:"},
		&cobra.Group{ID: "ingest", Title: "Ingestion:"},
		&cobra.Group{ID: "pipeline", Title: "Pipeline:"},
		&cobra.Group{ID: "ledger", Title: "Ledger:"},
		&cobra.Group{ID: "ops", Title: "Operations:"},
		&cobra.Group{ID: "setup", Title: "Setup:"},
	)

	// Resolution
	resolveCmd := cmd.NewResolveCommand(deps)
	resolveCmd.GroupID = "resolution"
	rootCmd.AddCommand(resolveCmd)

	rosterCmd := cmd.NewRosterCommand(deps)
	rosterCmd.GroupID = "resolution"
	rootCmd.AddCommand(rosterCmd)

	// Ingestion
	ingestCmd := cmd.NewIngestCommand(deps)
	ingestCmd.GroupID = "ingest"
	rootCmd.AddCommand(ingestCmd)

	// Pipeline
	processCmd := cmd.NewProcessCommand(deps)
	processCmd.GroupID = "pipeline"
	rootCmd.AddCommand(processCmd)

	// Ledger
	ledgerCmd := cmd.NewLedgerCommand(deps)
	ledgerCmd.GroupID = "ledger"
	rootCmd.AddCommand(ledgerCmd)

	// Operations
	statusCmd := cmd.NewStatusCommand(deps)
	statusCmd.GroupID = "ops"
	rootCmd.AddCommand(statusCmd)

	opsCmd := cmd.NewOpsCommand(deps)
	opsCmd.GroupID = "ops"
	rootCmd.AddCommand(opsCmd)

	// Setup
	authCmd := cmd.NewAuthCommand(deps)
	authCmd.GroupID = "setup"
	rootCmd.AddCommand(authCmd)

	configCmd.GroupID = "setup"
	rootCmd.AddCommand(configCmd)

	completionCmd.GroupID = "setup"
	rootCmd.AddCommand(completionCmd)

	versionCmd.GroupID = "setup"
	versionCmd.Flags().BoolVar(&versionOutputJSON, "output-json", false, "Output as JSON")
	versionCmd.Flags().BoolVar(&versionChangelog, "changelog", false, "Show commits since last tag")
	rootCmd.AddCommand(versionCmd)

	// Config subcommands.
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configSetCmd)
}

func main() {
	// Set up signal handling for graceful shutdown.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nReceived interrupt signal, shutting down...")
		cancel()
	}()

	// Execute root command and capture the error for logging.
	cmdErr := rootCmd.ExecuteContext(ctx)

	// Record the command in the ops log (success and failure both).
	logCommandExecution(os.Args, cmdErr)

	if cmdErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", cmdErr)
		os.Exit(1)
	}
}

// logCommandExecution records the CLI invocation in the ops log.
// Best-effort: failures are reported to stderr in debug mode only and never
// affect the command result.
func logCommandExecution(args []string, cmdErr error) {
	// Skip if config not loaded or the ops log is not configured.
	if cfg == nil || !cfg.OpsLog.IsConfigured() {
		return
	}

	// Skip logging for certain commands.
	if len(args) > 1 {
		name := args[1]
		if name == "version" || name == "help" || name == "completion" || name == "ops" {
			return
		}
	}

	duration := time.Since(cmdStartTime)

	entry := &opslog.CommandEntry{
		Command:     getCommandName(args),
		Args:        getCommandArgs(args),
		FullCommand: strings.Join(args, " "),
		DurationMs:  int(duration.Milliseconds()),
		Success:     cmdErr == nil,
	}

	if cmdErr != nil {
		entry.ErrorMessage = cmdErr.Error()
	}

	if cmdOutputBuf != nil {
		entry.Response = cmdOutputBuf.String()
	}

	client, err := opslog.NewClient(cfg.OpsLog)
	if err != nil {
		if cfg.Debug {
			fmt.Fprintf(os.Stderr, "Warning: failed to connect to ops log: %v\n", err)
		}
		return
	}
	defer client.Close()

	logCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.LogCommand(logCtx, entry); err != nil {
		if cfg.Debug {
			fmt.Fprintf(os.Stderr, "Warning: failed to record command in ops log: %v\n", err)
		}
	}
}

// getCommandName extracts the command name from args (e.g., "resolve" from
// ["sessionarc", "resolve", "title"]).
func getCommandName(args []string) string {
	if len(args) < 2 {
		return "sessionarc"
	}
	// Find the first non-flag argument after the binary name.
	for i := 1; i < len(args); i++ {
		if !strings.HasPrefix(args[i], "-") {
			return args[i]
		}
	}
	return "sessionarc"
}

// getCommandArgs extracts the arguments after the command name.
func getCommandArgs(args []string) []string {
	if len(args) < 3 {
		return nil
	}
	// Find the command name index and return everything after it.
	for i := 1; i < len(args); i++ {
		if !strings.HasPrefix(args[i], "-") {
			return args[i+1:]
		}
	}
	return nil
}
