// Package config provides CLI configuration management for the sessionarc command-line tool.
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestDefaultConfig verifies default configuration values.
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg == nil {
		t.Fatal("DefaultConfig returned nil")
	}

	if cfg.ArchiveRoot != DefaultArchiveRoot {
		t.Errorf("ArchiveRoot = %v, want %v", cfg.ArchiveRoot, DefaultArchiveRoot)
	}
	if cfg.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", cfg.Timeout, DefaultTimeout)
	}
	if cfg.OutputFormat != DefaultOutputFormat {
		t.Errorf("OutputFormat = %v, want %v", cfg.OutputFormat, DefaultOutputFormat)
	}
	if cfg.Debug {
		t.Error("Debug should be false by default")
	}
	if cfg.Roster.ProgramLead != DefaultProgramLead {
		t.Errorf("ProgramLead = %v, want %v", cfg.Roster.ProgramLead, DefaultProgramLead)
	}
	if cfg.Pipeline.Workers != DefaultWorkerCount {
		t.Errorf("Workers = %v, want %v", cfg.Pipeline.Workers, DefaultWorkerCount)
	}
	if cfg.Ledger.IsConfigured() {
		t.Error("Ledger should not be configured by default")
	}
}

// TestDefaultConstants verifies default constant values.
func TestDefaultConstants(t *testing.T) {
	if DefaultTimeout != 10*time.Minute {
		t.Errorf("DefaultTimeout = %v, want 10m", DefaultTimeout)
	}
	if DefaultOutputFormat != OutputFormatText {
		t.Errorf("DefaultOutputFormat = %v, want text", DefaultOutputFormat)
	}
	if DefaultConfigDir != ".sessionarc" {
		t.Errorf("DefaultConfigDir = %v, want .sessionarc", DefaultConfigDir)
	}
	if DefaultConfigFile != "config.yaml" {
		t.Errorf("DefaultConfigFile = %v, want config.yaml", DefaultConfigFile)
	}
}

// TestOutputFormat_IsValid verifies output format validation.
func TestOutputFormat_IsValid(t *testing.T) {
	tests := []struct {
		format OutputFormat
		valid  bool
	}{
		{OutputFormatText, true},
		{OutputFormatJSON, true},
		{OutputFormatYAML, true},
		{"invalid", false},
		{"", false},
		{"JSON", false}, // Case sensitive
		{"xml", false},
	}

	for _, tc := range tests {
		if got := tc.format.IsValid(); got != tc.valid {
			t.Errorf("OutputFormat(%q).IsValid() = %v, want %v", tc.format, got, tc.valid)
		}
	}
}

// TestConfigDir_EnvOverride verifies the env var overrides the default dir.
func TestConfigDir_EnvOverride(t *testing.T) {
	t.Setenv("SESSIONARC_CONFIG_DIR", "/tmp/arc-config")

	dir, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir() error = %v", err)
	}
	if dir != "/tmp/arc-config" {
		t.Errorf("ConfigDir() = %v, want /tmp/arc-config", dir)
	}
}

// TestLoadFromFile verifies YAML config loading with overrides and defaults.
func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `archive_root: /srv/archive
timeout: 2m
output_format: json
debug: true
roster:
  student_table_path: /srv/students.csv
  staff_domains:
    - ascendprep.com
    - ascendprep.org
  program_lead: Jenny
platform:
  base_url: https://api.example.com/v2
  account_id: acct-1
  download_concurrency: 3
ledger:
  host: db.internal
  database: sessionarc
  user: archiver
  sslmode: disable
pipeline:
  redis_addr: queue.internal:6379
  workers: 8
  stage_timeout: 90s
  metrics_addr: :9180
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig()
	if err := loadFromFile(cfg, path); err != nil {
		t.Fatalf("loadFromFile() error = %v", err)
	}

	if cfg.ArchiveRoot != "/srv/archive" {
		t.Errorf("ArchiveRoot = %v", cfg.ArchiveRoot)
	}
	if cfg.Timeout != 2*time.Minute {
		t.Errorf("Timeout = %v", cfg.Timeout)
	}
	if cfg.OutputFormat != OutputFormatJSON {
		t.Errorf("OutputFormat = %v", cfg.OutputFormat)
	}
	if !cfg.Debug {
		t.Error("Debug should be true")
	}
	if cfg.Roster.StudentTablePath != "/srv/students.csv" {
		t.Errorf("StudentTablePath = %v", cfg.Roster.StudentTablePath)
	}
	if len(cfg.Roster.StaffDomains) != 2 {
		t.Errorf("StaffDomains = %v", cfg.Roster.StaffDomains)
	}
	if cfg.Platform.DownloadConcurrency != 3 {
		t.Errorf("DownloadConcurrency = %v", cfg.Platform.DownloadConcurrency)
	}
	if !cfg.Ledger.IsConfigured() {
		t.Error("Ledger should be configured")
	}
	if cfg.Pipeline.Workers != 8 {
		t.Errorf("Workers = %v", cfg.Pipeline.Workers)
	}
	if cfg.Pipeline.StageTimeout != 90*time.Second {
		t.Errorf("StageTimeout = %v", cfg.Pipeline.StageTimeout)
	}
	if cfg.Pipeline.MetricsAddr != ":9180" {
		t.Errorf("MetricsAddr = %v", cfg.Pipeline.MetricsAddr)
	}
}

// TestLoadFromFile_InvalidTimeout verifies timeout parse errors surface.
func TestLoadFromFile_InvalidTimeout(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("timeout: nonsense\n"), 0600); err != nil {
		t.Fatal(err)
	}

	if err := loadFromFile(DefaultConfig(), path); err == nil {
		t.Error("Expected error for unparsable timeout")
	}
}

// TestLoadFromEnv verifies environment overrides.
func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SESSIONARC_ARCHIVE_ROOT", "/mnt/archive")
	t.Setenv("SESSIONARC_TIMEOUT", "30s")
	t.Setenv("SESSIONARC_OUTPUT_FORMAT", "yaml")
	t.Setenv("SESSIONARC_DEBUG", "1")
	t.Setenv("SESSIONARC_STAFF_DOMAINS", "ascendprep.com, ascendprep.org")
	t.Setenv("SESSIONARC_WORKERS", "6")
	t.Setenv("SESSIONARC_LEDGER_HOST", "db.internal")
	t.Setenv("SESSIONARC_LEDGER_DATABASE", "sessionarc")
	t.Setenv("SESSIONARC_LEDGER_USER", "archiver")
	t.Setenv("SESSIONARC_LEDGER_PORT", "5433")

	cfg := DefaultConfig()
	loadFromEnv(cfg)

	if cfg.ArchiveRoot != "/mnt/archive" {
		t.Errorf("ArchiveRoot = %v", cfg.ArchiveRoot)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v", cfg.Timeout)
	}
	if cfg.OutputFormat != OutputFormatYAML {
		t.Errorf("OutputFormat = %v", cfg.OutputFormat)
	}
	if !cfg.Debug {
		t.Error("Debug should be true")
	}
	if len(cfg.Roster.StaffDomains) != 2 || cfg.Roster.StaffDomains[1] != "ascendprep.org" {
		t.Errorf("StaffDomains = %v", cfg.Roster.StaffDomains)
	}
	if cfg.Pipeline.Workers != 6 {
		t.Errorf("Workers = %v", cfg.Pipeline.Workers)
	}
	if cfg.Ledger == nil || cfg.Ledger.Port != 5433 {
		t.Errorf("Ledger = %+v", cfg.Ledger)
	}
}

// TestValidate verifies configuration validation rules.
func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*CLIConfig)
		wantErr bool
	}{
		{"valid defaults", func(c *CLIConfig) {}, false},
		{"empty archive root", func(c *CLIConfig) { c.ArchiveRoot = "" }, true},
		{"zero timeout", func(c *CLIConfig) { c.Timeout = 0 }, true},
		{"negative timeout", func(c *CLIConfig) { c.Timeout = -time.Second }, true},
		{"bad output format", func(c *CLIConfig) { c.OutputFormat = "xml" }, true},
		{"negative workers", func(c *CLIConfig) { c.Pipeline.Workers = -1 }, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr && err == nil {
				t.Error("Expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("Unexpected validation error: %v", err)
			}
		})
	}
}

// TestLedgerConnectionString verifies DSN rendering.
func TestLedgerConnectionString(t *testing.T) {
	l := &LedgerConfig{Host: "db.internal", Database: "sessionarc", User: "archiver", SSLMode: "disable"}
	want := "host=db.internal port=5432 dbname=sessionarc user=archiver sslmode=disable"
	if got := l.ConnectionString(); got != want {
		t.Errorf("ConnectionString() = %q, want %q", got, want)
	}

	var unconfigured *LedgerConfig
	if unconfigured.ConnectionString() != "" {
		t.Error("Expected empty DSN for nil config")
	}
	if (&LedgerConfig{Host: "db"}).ConnectionString() != "" {
		t.Error("Expected empty DSN for partial config")
	}
}

// TestOpsLogDefaults verifies ops-log identity defaults.
func TestOpsLogDefaults(t *testing.T) {
	var nilCfg *OpsLogConfig
	if nilCfg.GetProject() != "sessionarc" {
		t.Errorf("GetProject() = %v", nilCfg.GetProject())
	}
	if nilCfg.GetOperator() != "archive-cli" {
		t.Errorf("GetOperator() = %v", nilCfg.GetOperator())
	}

	cfg := &OpsLogConfig{Project: "archive-ops", Operator: "jenny"}
	if cfg.GetProject() != "archive-ops" {
		t.Errorf("GetProject() = %v", cfg.GetProject())
	}
	if cfg.GetOperator() != "jenny" {
		t.Errorf("GetOperator() = %v", cfg.GetOperator())
	}
}

// TestSaveAndLoadRoundTrip verifies save then load preserves values.
func TestSaveAndLoadRoundTrip(t *testing.T) {
	t.Setenv("SESSIONARC_CONFIG_DIR", t.TempDir())

	cfg := DefaultConfig()
	cfg.ArchiveRoot = "/srv/archive"
	cfg.OutputFormat = OutputFormatJSON
	cfg.Pipeline.Workers = 2
	cfg.Pipeline.StageTimeout = 45 * time.Second

	if err := SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig() error = %v", err)
	}

	loaded, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if loaded.ArchiveRoot != "/srv/archive" {
		t.Errorf("ArchiveRoot = %v", loaded.ArchiveRoot)
	}
	if loaded.OutputFormat != OutputFormatJSON {
		t.Errorf("OutputFormat = %v", loaded.OutputFormat)
	}
	if loaded.Pipeline.Workers != 2 {
		t.Errorf("Workers = %v", loaded.Pipeline.Workers)
	}
	if loaded.Pipeline.StageTimeout != 45*time.Second {
		t.Errorf("StageTimeout = %v", loaded.Pipeline.StageTimeout)
	}
}

// TestExpandPath verifies home directory expansion.
func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	got, err := ExpandPath("~/archive")
	if err != nil {
		t.Fatalf("ExpandPath() error = %v", err)
	}
	if got != filepath.Join(home, "archive") {
		t.Errorf("ExpandPath() = %v", got)
	}

	got, err = ExpandPath("/absolute/path")
	if err != nil || got != "/absolute/path" {
		t.Errorf("ExpandPath() = %v, %v", got, err)
	}

	got, err = ExpandPath("")
	if err != nil || got != "" {
		t.Errorf("ExpandPath(\"\") = %v, %v", got, err)
	}
}
