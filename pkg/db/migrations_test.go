package db

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeVersion(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "with .sql suffix",
			input:    "001_ledger.sql",
			expected: "001_ledger",
		},
		{
			name:     "with .SQL suffix (uppercase)",
			input:    "002_ledger.SQL",
			expected: "002_ledger",
		},
		{
			name:     "without .sql suffix",
			input:    "003_ledger",
			expected: "003_ledger",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "just .sql",
			input:    ".sql",
			expected: ".sql",
		},
		{
			name:     "mixed case .Sql",
			input:    "004_ledger.Sql",
			expected: "004_ledger",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := normalizeVersion(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestFindMigrations(t *testing.T) {
	tmpDir := t.TempDir()

	// Create test migration files
	files := []string{
		"001_create_ledger.sql",
		"002_add_confidence_column.sql",
		"003_create_ops_log.sql",
		"README.md", // Should be ignored
	}

	for _, f := range files {
		if err := os.WriteFile(filepath.Join(tmpDir, f), []byte("-- test"), 0644); err != nil {
			t.Fatalf("failed to create test file %s: %v", f, err)
		}
	}

	migrations, err := findMigrations(tmpDir)
	if err != nil {
		t.Fatalf("findMigrations failed: %v", err)
	}

	if len(migrations) != 3 {
		t.Errorf("expected 3 migrations, got %d", len(migrations))
	}

	// Verify order
	expectedVersions := []string{"001_create_ledger", "002_add_confidence_column", "003_create_ops_log"}
	for i, m := range migrations {
		if m.Version != expectedVersions[i] {
			t.Errorf("migration %d: expected version '%s', got '%s'", i, expectedVersions[i], m.Version)
		}
	}
}

func TestFindMigrations_EmptyDir(t *testing.T) {
	migrations, err := findMigrations(t.TempDir())
	if err != nil {
		t.Fatalf("findMigrations failed: %v", err)
	}

	if len(migrations) != 0 {
		t.Errorf("expected 0 migrations, got %d", len(migrations))
	}
}

func TestFindMigrations_NonExistentDir(t *testing.T) {
	_, err := findMigrations("/nonexistent/path/to/migrations")
	if err == nil {
		t.Error("expected error for nonexistent directory, got nil")
	}
}

func TestRunMigrations_NilPool(t *testing.T) {
	_, err := RunMigrations(nil, nil, "/tmp")
	if err == nil {
		t.Error("expected error for nil pool, got nil")
	}
}

func TestGetPendingMigrations_NilPool(t *testing.T) {
	_, err := GetPendingMigrations(nil, nil, "/tmp")
	if err == nil {
		t.Error("expected error for nil pool, got nil")
	}
}

func TestRunMigrationsToTarget_NilPool(t *testing.T) {
	_, err := RunMigrationsToTarget(nil, nil, "/tmp", "001_ledger")
	if err == nil {
		t.Error("expected error for nil pool, got nil")
	}
}

func TestGetMigrationStatus_NilPool(t *testing.T) {
	_, err := GetMigrationStatus(nil, nil, "/tmp")
	if err == nil {
		t.Error("expected error for nil pool, got nil")
	}
}
