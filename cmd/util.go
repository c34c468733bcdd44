// Package cmd provides CLI commands for the sessionarc tool.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"gopkg.in/yaml.v3"

	"github.com/sessionarc/sessionarc/config"
	"github.com/sessionarc/sessionarc/credentials"
	"github.com/sessionarc/sessionarc/pkg/db"
	"github.com/sessionarc/sessionarc/pkg/identity"
	"github.com/sessionarc/sessionarc/pkg/ledger"
	"github.com/sessionarc/sessionarc/pkg/logging"
	"github.com/sessionarc/sessionarc/pkg/platform"
	"github.com/sessionarc/sessionarc/pkg/roster"
)

// Deps holds the shared dependencies for commands. Tests can substitute the
// loaders; production code uses DefaultDeps.
type Deps struct {
	Config     *config.CLIConfig
	Logger     logging.Logger
	LoadConfig func() (*config.CLIConfig, error)
	SaveConfig func(*config.CLIConfig) error
}

// DefaultDeps returns the default dependencies for production use.
func DefaultDeps() *Deps {
	return &Deps{
		LoadConfig: config.LoadConfig,
		SaveConfig: config.SaveConfig,
	}
}

// ensureConfig loads configuration once and caches it on the Deps.
func (d *Deps) ensureConfig() (*config.CLIConfig, error) {
	if d.Config != nil {
		return d.Config, nil
	}
	cfg, err := d.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	d.Config = cfg
	return cfg, nil
}

// logger returns the Deps logger, building one from config on first use.
func (d *Deps) logger() logging.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	level := logging.LevelInfo
	if d.Config != nil && d.Config.Debug {
		level = logging.LevelDebug
	}
	d.Logger = logging.NewLogger(&logging.Config{
		Level:     level,
		Component: "sessionarc",
		Output:    os.Stderr,
	})
	return d.Logger
}

// buildResolver constructs the identity resolver from roster configuration.
func buildResolver(cfg *config.CLIConfig, logger logging.Logger) *identity.Resolver {
	return identity.NewResolver(buildRoster(cfg, logger), identity.WithLogger(logger))
}

// buildRoster assembles the roster from the embedded defaults, the student
// table, and config overrides.
func buildRoster(cfg *config.CLIConfig, logger logging.Logger) *roster.Roster {
	var students map[string]string
	if cfg.Roster.StudentTablePath != "" {
		path, err := config.ExpandPath(cfg.Roster.StudentTablePath)
		if err != nil {
			logger.Warn("invalid student table path, using embedded table",
				logging.F("path", cfg.Roster.StudentTablePath), logging.Err(err))
			students = roster.DefaultStudentAliases()
		} else {
			students = roster.LoadStudentTable(path, logger)
		}
	} else {
		students = roster.DefaultStudentAliases()
	}

	var opts []roster.Option
	if len(cfg.Roster.StaffDomains) > 0 {
		opts = append(opts, roster.WithStaffDomains(cfg.Roster.StaffDomains))
	}
	if cfg.Roster.ProgramLead != "" {
		opts = append(opts, roster.WithProgramLead(cfg.Roster.ProgramLead))
	}
	if len(cfg.Roster.AdminAccounts) > 0 {
		opts = append(opts, roster.WithAdminAccounts(cfg.Roster.AdminAccounts))
	}

	return roster.New(roster.DefaultCoaches(), students, opts...)
}

// ledgerDBConfig maps the ledger config section onto a pool config. Values
// from the config file override SESSIONARC_LEDGER_* environment variables;
// the password comes from the environment only, never the config file.
func ledgerDBConfig(lc *config.LedgerConfig) *db.Config {
	cfg := db.ConfigFromEnv()
	if lc.Host != "" {
		cfg.Host = lc.Host
	}
	if lc.Port != 0 {
		cfg.Port = lc.Port
	}
	if lc.Database != "" {
		cfg.Database = lc.Database
	}
	if lc.User != "" {
		cfg.User = lc.User
	}
	if lc.SSLMode != "" {
		cfg.SSLMode = lc.SSLMode
	}
	return cfg
}

// connectLedger opens the ledger database and wraps it in a repository.
func connectLedger(ctx context.Context, cfg *config.CLIConfig, logger logging.Logger) (*pgxpool.Pool, *ledger.Repository, error) {
	if !cfg.Ledger.IsConfigured() {
		return nil, nil, fmt.Errorf("ledger not configured: set the ledger section in the config file or SESSIONARC_LEDGER_* environment variables")
	}

	pool, err := db.Connect(ctx, ledgerDBConfig(cfg.Ledger))
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to ledger: %w", err)
	}

	return pool, ledger.NewRepository(pool, logger), nil
}

// newPlatformClient builds the recording-platform API client backed by the
// stored OAuth credentials.
func newPlatformClient(cfg *config.CLIConfig, logger logging.Logger) (*platform.Client, error) {
	store, err := credentials.NewStore()
	if err != nil {
		return nil, fmt.Errorf("opening credential store: %w", err)
	}
	tokens := platform.NewOAuthTokenSource(store, logger)
	return platform.NewClient(cfg.Platform, tokens, logger), nil
}

// printJSON writes v as indented JSON to stdout.
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printYAML writes v as YAML to stdout.
func printYAML(v interface{}) error {
	enc := yaml.NewEncoder(os.Stdout)
	defer enc.Close()
	return enc.Encode(v)
}

// formatDuration renders a duration compactly for summaries.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%.1fm", d.Minutes())
}

// valueOrDefault returns the value if non-empty, otherwise the default.
func valueOrDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}
