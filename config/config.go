// Package config provides CLI configuration management for the sessionarc
// command-line tool. It supports loading configuration from YAML files,
// environment variables, and command-line flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// OutputFormat defines the supported output formats for CLI results.
type OutputFormat string

const (
	// OutputFormatText is human-readable plain text output.
	OutputFormatText OutputFormat = "text"
	// OutputFormatJSON is JSON-formatted output for machine processing.
	OutputFormatJSON OutputFormat = "json"
	// OutputFormatYAML is YAML-formatted output for machine processing.
	OutputFormatYAML OutputFormat = "yaml"
)

// Default configuration values.
const (
	DefaultArchiveRoot     = "~/SessionArchive"
	DefaultTimeout         = 10 * time.Minute
	DefaultOutputFormat    = OutputFormatText
	DefaultConfigDir       = ".sessionarc"
	DefaultConfigFile      = "config.yaml"
	DefaultPlatformBaseURL = "https://api.zoom.us/v2"
	DefaultRedisAddr       = "localhost:6379"
	DefaultWorkerCount     = 4
	DefaultStaffDomain     = "ascendprep.com"
	DefaultProgramLead     = "Jenny"
)

// RosterConfig holds identity-roster settings.
type RosterConfig struct {
	// StudentTablePath is the path to the student reference CSV. Empty means
	// the embedded fallback roster.
	StudentTablePath string `yaml:"student_table_path,omitempty"`

	// StaffDomains are email domains that identify coaching staff.
	StaffDomains []string `yaml:"staff_domains,omitempty"`

	// ProgramLead is the coach who owns all game-plan sessions.
	ProgramLead string `yaml:"program_lead,omitempty"`

	// AdminAccounts are additional account names treated as administrative.
	AdminAccounts []string `yaml:"admin_accounts,omitempty"`
}

// PlatformConfig holds recording-platform API settings.
type PlatformConfig struct {
	// BaseURL is the platform REST API root.
	BaseURL string `yaml:"base_url,omitempty"`

	// AccountID scopes recording listings to one platform account.
	AccountID string `yaml:"account_id,omitempty"`

	// DownloadConcurrency caps parallel recording downloads.
	DownloadConcurrency int `yaml:"download_concurrency,omitempty"`
}

// LedgerConfig holds ledger database connection settings.
type LedgerConfig struct {
	// Host is the database server hostname.
	Host string `yaml:"host,omitempty"`

	// Port is the database server port (default: 5432).
	Port int `yaml:"port,omitempty"`

	// Database is the database name.
	Database string `yaml:"database,omitempty"`

	// User is the database username.
	User string `yaml:"user,omitempty"`

	// SSLMode is the SSL connection mode (disable, require, verify-ca, verify-full).
	SSLMode string `yaml:"sslmode,omitempty"`

	// SSLRootCert is the path to the SSL root certificate file.
	// Defaults to ~/.postgresql/root.crt if not specified and sslmode requires verification.
	SSLRootCert string `yaml:"sslrootcert,omitempty"`
}

// ConnectionString returns the PostgreSQL connection string for the ledger.
// Returns empty string if the ledger is not configured.
func (c *LedgerConfig) ConnectionString() string {
	if !c.IsConfigured() {
		return ""
	}

	port := c.Port
	if port == 0 {
		port = 5432
	}

	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "require"
	}

	connStr := fmt.Sprintf("host=%s port=%d dbname=%s user=%s sslmode=%s",
		c.Host, port, c.Database, c.User, sslmode)

	if sslmode == "verify-ca" || sslmode == "verify-full" {
		sslrootcert := c.SSLRootCert
		if sslrootcert == "" {
			if home, err := os.UserHomeDir(); err == nil {
				defaultCert := filepath.Join(home, ".postgresql", "root.crt")
				if _, err := os.Stat(defaultCert); err == nil {
					sslrootcert = defaultCert
				}
			}
		}
		if sslrootcert != "" {
			connStr += fmt.Sprintf(" sslrootcert=%s", sslrootcert)
		}
	}

	return connStr
}

// IsConfigured returns true if the ledger has the required connection fields.
func (c *LedgerConfig) IsConfigured() bool {
	return c != nil && c.Host != "" && c.Database != "" && c.User != ""
}

// OpsLogConfig holds the operations-audit database connection settings.
// Every CLI invocation can be recorded there for later review.
type OpsLogConfig struct {
	// Host is the database server hostname.
	Host string `yaml:"host,omitempty"`

	// Port is the database server port (default: 5432).
	Port int `yaml:"port,omitempty"`

	// Database is the database name.
	Database string `yaml:"database,omitempty"`

	// User is the database username.
	User string `yaml:"user,omitempty"`

	// SSLMode is the SSL connection mode.
	SSLMode string `yaml:"sslmode,omitempty"`

	// Project is the audit project name for this CLI.
	Project string `yaml:"project,omitempty"`

	// Operator is the operator identity recorded with each command.
	Operator string `yaml:"operator,omitempty"`
}

// ConnectionString returns the PostgreSQL connection string for the ops log.
// Returns empty string if the ops log is not configured.
func (c *OpsLogConfig) ConnectionString() string {
	if !c.IsConfigured() {
		return ""
	}

	port := c.Port
	if port == 0 {
		port = 5432
	}

	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "require"
	}

	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s sslmode=%s",
		c.Host, port, c.Database, c.User, sslmode)
}

// IsConfigured returns true if the ops log has the required connection fields.
func (c *OpsLogConfig) IsConfigured() bool {
	return c != nil && c.Host != "" && c.Database != "" && c.User != ""
}

// GetProject returns the project name, defaulting to "sessionarc".
func (c *OpsLogConfig) GetProject() string {
	if c == nil || c.Project == "" {
		return "sessionarc"
	}
	return c.Project
}

// GetOperator returns the operator name, defaulting to "archive-cli".
func (c *OpsLogConfig) GetOperator() string {
	if c == nil || c.Operator == "" {
		return "archive-cli"
	}
	return c.Operator
}

// PipelineConfig holds processing-pipeline settings.
type PipelineConfig struct {
	// RedisAddr is the address of the queue broker.
	RedisAddr string `yaml:"redis_addr,omitempty"`

	// Workers is the number of concurrent processing workers.
	Workers int `yaml:"workers,omitempty"`

	// StageTimeout bounds each pipeline stage per recording.
	StageTimeout time.Duration `yaml:"-"`

	// MetricsAddr is the listen address for the Prometheus endpoint. Empty
	// disables the endpoint.
	MetricsAddr string `yaml:"metrics_addr,omitempty"`
}

// CLIConfig holds the CLI configuration settings.
type CLIConfig struct {
	// ArchiveRoot is the directory recordings are organized into.
	ArchiveRoot string `yaml:"archive_root"`

	// Timeout is the default timeout for API requests.
	Timeout time.Duration `yaml:"timeout"`

	// OutputFormat specifies the default output format for commands.
	OutputFormat OutputFormat `yaml:"output_format"`

	// Debug enables verbose debug logging.
	Debug bool `yaml:"debug,omitempty"`

	// Roster holds identity-roster settings.
	Roster RosterConfig `yaml:"roster"`

	// Platform holds recording-platform API settings.
	Platform PlatformConfig `yaml:"platform"`

	// Ledger holds the archive-ledger database settings.
	Ledger *LedgerConfig `yaml:"ledger,omitempty"`

	// OpsLog holds the command-audit database settings.
	OpsLog *OpsLogConfig `yaml:"ops_log,omitempty"`

	// Pipeline holds processing-pipeline settings.
	Pipeline PipelineConfig `yaml:"pipeline"`
}

// DefaultConfig returns a CLIConfig with default values.
func DefaultConfig() *CLIConfig {
	return &CLIConfig{
		ArchiveRoot:  DefaultArchiveRoot,
		Timeout:      DefaultTimeout,
		OutputFormat: DefaultOutputFormat,
		Roster: RosterConfig{
			StaffDomains: []string{DefaultStaffDomain},
			ProgramLead:  DefaultProgramLead,
		},
		Platform: PlatformConfig{
			BaseURL:             DefaultPlatformBaseURL,
			DownloadConcurrency: 2,
		},
		Pipeline: PipelineConfig{
			RedisAddr:    DefaultRedisAddr,
			Workers:      DefaultWorkerCount,
			StageTimeout: 5 * time.Minute,
		},
	}
}

// ConfigDir returns the configuration directory path.
// Uses $SESSIONARC_CONFIG_DIR if set, otherwise ~/.sessionarc
func ConfigDir() (string, error) {
	if dir := os.Getenv("SESSIONARC_CONFIG_DIR"); dir != "" {
		return dir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}

	return filepath.Join(home, DefaultConfigDir), nil
}

// ConfigPath returns the full path to the configuration file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultConfigFile), nil
}

// LoadConfig loads the CLI configuration from file and environment variables.
// Configuration is loaded in this order (later sources override earlier):
// 1. Default values
// 2. Config file (~/.sessionarc/config.yaml or $SESSIONARC_CONFIG_DIR/config.yaml)
// 3. Environment variables (SESSIONARC_ARCHIVE_ROOT, SESSIONARC_TIMEOUT, ...)
func LoadConfig() (*CLIConfig, error) {
	cfg := DefaultConfig()

	configPath, err := ConfigPath()
	if err != nil {
		return nil, fmt.Errorf("getting config path: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	loadFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(cfg *CLIConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	// Temp struct so durations unmarshal from strings.
	type pipelineFile struct {
		RedisAddr    string `yaml:"redis_addr"`
		Workers      int    `yaml:"workers"`
		StageTimeout string `yaml:"stage_timeout"`
		MetricsAddr  string `yaml:"metrics_addr"`
	}
	type configFile struct {
		ArchiveRoot  string         `yaml:"archive_root"`
		Timeout      string         `yaml:"timeout"`
		OutputFormat OutputFormat   `yaml:"output_format"`
		Debug        bool           `yaml:"debug"`
		Roster       *RosterConfig  `yaml:"roster"`
		Platform     PlatformConfig `yaml:"platform"`
		Ledger       *LedgerConfig  `yaml:"ledger"`
		OpsLog       *OpsLogConfig  `yaml:"ops_log"`
		Pipeline     *pipelineFile  `yaml:"pipeline"`
	}

	var fileCfg configFile
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	if fileCfg.ArchiveRoot != "" {
		cfg.ArchiveRoot = fileCfg.ArchiveRoot
	}
	if fileCfg.Timeout != "" {
		timeout, err := time.ParseDuration(fileCfg.Timeout)
		if err != nil {
			return fmt.Errorf("parsing timeout: %w", err)
		}
		cfg.Timeout = timeout
	}
	if fileCfg.OutputFormat != "" {
		cfg.OutputFormat = fileCfg.OutputFormat
	}
	cfg.Debug = fileCfg.Debug
	if fileCfg.Roster != nil {
		if fileCfg.Roster.StudentTablePath != "" {
			cfg.Roster.StudentTablePath = fileCfg.Roster.StudentTablePath
		}
		if len(fileCfg.Roster.StaffDomains) > 0 {
			cfg.Roster.StaffDomains = fileCfg.Roster.StaffDomains
		}
		if fileCfg.Roster.ProgramLead != "" {
			cfg.Roster.ProgramLead = fileCfg.Roster.ProgramLead
		}
		if len(fileCfg.Roster.AdminAccounts) > 0 {
			cfg.Roster.AdminAccounts = fileCfg.Roster.AdminAccounts
		}
	}
	if fileCfg.Platform.BaseURL != "" {
		cfg.Platform.BaseURL = fileCfg.Platform.BaseURL
	}
	if fileCfg.Platform.AccountID != "" {
		cfg.Platform.AccountID = fileCfg.Platform.AccountID
	}
	if fileCfg.Platform.DownloadConcurrency > 0 {
		cfg.Platform.DownloadConcurrency = fileCfg.Platform.DownloadConcurrency
	}
	if fileCfg.Ledger != nil {
		cfg.Ledger = fileCfg.Ledger
	}
	if fileCfg.OpsLog != nil {
		cfg.OpsLog = fileCfg.OpsLog
	}
	if fileCfg.Pipeline != nil {
		if fileCfg.Pipeline.RedisAddr != "" {
			cfg.Pipeline.RedisAddr = fileCfg.Pipeline.RedisAddr
		}
		if fileCfg.Pipeline.Workers > 0 {
			cfg.Pipeline.Workers = fileCfg.Pipeline.Workers
		}
		if fileCfg.Pipeline.StageTimeout != "" {
			d, err := time.ParseDuration(fileCfg.Pipeline.StageTimeout)
			if err != nil {
				return fmt.Errorf("parsing stage_timeout: %w", err)
			}
			cfg.Pipeline.StageTimeout = d
		}
		if fileCfg.Pipeline.MetricsAddr != "" {
			cfg.Pipeline.MetricsAddr = fileCfg.Pipeline.MetricsAddr
		}
	}

	return nil
}

// loadFromEnv overlays environment variables onto the configuration.
func loadFromEnv(cfg *CLIConfig) {
	if v := os.Getenv("SESSIONARC_ARCHIVE_ROOT"); v != "" {
		cfg.ArchiveRoot = v
	}

	if v := os.Getenv("SESSIONARC_TIMEOUT"); v != "" {
		if timeout, err := time.ParseDuration(v); err == nil {
			cfg.Timeout = timeout
		}
	}

	if v := os.Getenv("SESSIONARC_OUTPUT_FORMAT"); v != "" {
		cfg.OutputFormat = OutputFormat(v)
	}

	if v := os.Getenv("SESSIONARC_DEBUG"); v == "true" || v == "1" {
		cfg.Debug = true
	}

	if v := os.Getenv("SESSIONARC_STUDENT_TABLE"); v != "" {
		cfg.Roster.StudentTablePath = v
	}

	if v := os.Getenv("SESSIONARC_STAFF_DOMAINS"); v != "" {
		cfg.Roster.StaffDomains = splitList(v)
	}

	if v := os.Getenv("SESSIONARC_PROGRAM_LEAD"); v != "" {
		cfg.Roster.ProgramLead = v
	}

	if v := os.Getenv("SESSIONARC_PLATFORM_BASE_URL"); v != "" {
		cfg.Platform.BaseURL = v
	}

	if v := os.Getenv("SESSIONARC_PLATFORM_ACCOUNT_ID"); v != "" {
		cfg.Platform.AccountID = v
	}

	if v := os.Getenv("SESSIONARC_REDIS_ADDR"); v != "" {
		cfg.Pipeline.RedisAddr = v
	}

	if v := os.Getenv("SESSIONARC_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Pipeline.Workers = n
		}
	}

	if v := os.Getenv("SESSIONARC_METRICS_ADDR"); v != "" {
		cfg.Pipeline.MetricsAddr = v
	}

	loadLedgerFromEnv(cfg)
}

// loadLedgerFromEnv overlays ledger database environment variables.
func loadLedgerFromEnv(cfg *CLIConfig) {
	host := os.Getenv("SESSIONARC_LEDGER_HOST")
	database := os.Getenv("SESSIONARC_LEDGER_DATABASE")
	user := os.Getenv("SESSIONARC_LEDGER_USER")

	if host == "" && database == "" && user == "" {
		return
	}

	if cfg.Ledger == nil {
		cfg.Ledger = &LedgerConfig{}
	}

	if host != "" {
		cfg.Ledger.Host = host
	}
	if database != "" {
		cfg.Ledger.Database = database
	}
	if user != "" {
		cfg.Ledger.User = user
	}
	if v := os.Getenv("SESSIONARC_LEDGER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Ledger.Port = port
		}
	}
	if v := os.Getenv("SESSIONARC_LEDGER_SSLMODE"); v != "" {
		cfg.Ledger.SSLMode = v
	}
}

// splitList splits a comma-separated env value into trimmed entries.
func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks that the configuration is valid.
func (c *CLIConfig) Validate() error {
	if c.ArchiveRoot == "" {
		return fmt.Errorf("archive_root is required")
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}

	if !c.OutputFormat.IsValid() {
		return fmt.Errorf("invalid output_format: %q (must be text, json, or yaml)", c.OutputFormat)
	}

	if c.Pipeline.Workers < 0 {
		return fmt.Errorf("pipeline workers must not be negative")
	}

	return nil
}

// IsValid checks if the output format is valid.
func (f OutputFormat) IsValid() bool {
	switch f {
	case OutputFormatText, OutputFormatJSON, OutputFormatYAML:
		return true
	default:
		return false
	}
}

// String returns the string representation of the output format.
func (f OutputFormat) String() string {
	return string(f)
}

// SaveConfig saves the configuration to the config file.
func SaveConfig(cfg *CLIConfig) error {
	configDir, err := ConfigDir()
	if err != nil {
		return fmt.Errorf("getting config directory: %w", err)
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(configDir, DefaultConfigFile)

	// YAML-friendly shape with durations as strings.
	type pipelineFile struct {
		RedisAddr    string `yaml:"redis_addr,omitempty"`
		Workers      int    `yaml:"workers,omitempty"`
		StageTimeout string `yaml:"stage_timeout,omitempty"`
		MetricsAddr  string `yaml:"metrics_addr,omitempty"`
	}
	type configFile struct {
		ArchiveRoot  string         `yaml:"archive_root"`
		Timeout      string         `yaml:"timeout"`
		OutputFormat OutputFormat   `yaml:"output_format"`
		Debug        bool           `yaml:"debug,omitempty"`
		Roster       RosterConfig   `yaml:"roster,omitempty"`
		Platform     PlatformConfig `yaml:"platform,omitempty"`
		Ledger       *LedgerConfig  `yaml:"ledger,omitempty"`
		OpsLog       *OpsLogConfig  `yaml:"ops_log,omitempty"`
		Pipeline     pipelineFile   `yaml:"pipeline,omitempty"`
	}

	fileCfg := configFile{
		ArchiveRoot:  cfg.ArchiveRoot,
		Timeout:      cfg.Timeout.String(),
		OutputFormat: cfg.OutputFormat,
		Debug:        cfg.Debug,
		Roster:       cfg.Roster,
		Platform:     cfg.Platform,
		Ledger:       cfg.Ledger,
		OpsLog:       cfg.OpsLog,
		Pipeline: pipelineFile{
			RedisAddr:   cfg.Pipeline.RedisAddr,
			Workers:     cfg.Pipeline.Workers,
			MetricsAddr: cfg.Pipeline.MetricsAddr,
		},
	}
	if cfg.Pipeline.StageTimeout > 0 {
		fileCfg.Pipeline.StageTimeout = cfg.Pipeline.StageTimeout.String()
	}

	data, err := yaml.Marshal(&fileCfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// EnsureConfigDir creates the configuration directory if it doesn't exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// ExpandPath expands ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// ResolvedArchiveRoot returns the archive root with ~ expanded.
func (c *CLIConfig) ResolvedArchiveRoot() (string, error) {
	return ExpandPath(c.ArchiveRoot)
}
