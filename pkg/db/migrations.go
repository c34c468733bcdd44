package db

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migration is a single versioned SQL file from the migrations directory.
// Version is the filename without the .sql extension, so files sort and
// apply in lexical order (001_create_ledger, 002_..., ...).
type Migration struct {
	Version string
	Name    string
	Path    string
}

// MigrationResult reports what a migration run did to the ledger schema.
type MigrationResult struct {
	Applied []string
	Skipped []string
	Errors  []error
}

// MigrationStatusEntry describes one migration version as seen by the
// ledger database.
type MigrationStatusEntry struct {
	Version   string
	Name      string
	AppliedAt *time.Time
}

// MigrationStatus is the full picture for `sessionarc ledger migrate --status`:
// versions both on disk and recorded, versions on disk but not yet run, and
// versions the database remembers that no file provides anymore.
type MigrationStatus struct {
	Applied []MigrationStatusEntry
	Pending []MigrationStatusEntry
	Drift   []MigrationStatusEntry
}

// RunMigrations applies every pending migration in order, stopping at the
// first failure. Each file runs inside its own transaction, so a broken
// migration leaves the ledger schema at the last good version.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, dir string) (*MigrationResult, error) {
	return runThrough(ctx, pool, dir, "")
}

// RunMigrationsToTarget applies pending migrations up to and including
// targetVersion, which must name a file in the migrations directory.
func RunMigrationsToTarget(ctx context.Context, pool *pgxpool.Pool, dir, targetVersion string) (*MigrationResult, error) {
	if targetVersion == "" {
		return nil, fmt.Errorf("target version is empty")
	}
	return runThrough(ctx, pool, dir, normalizeVersion(targetVersion))
}

// runThrough is the shared core: an empty target means apply everything.
func runThrough(ctx context.Context, pool *pgxpool.Pool, dir, target string) (*MigrationResult, error) {
	if pool == nil {
		return nil, fmt.Errorf("ledger pool is nil")
	}

	if err := ensureVersionTable(ctx, pool); err != nil {
		return nil, err
	}

	migrations, err := findMigrations(dir)
	if err != nil {
		return nil, err
	}

	if target != "" {
		cut := -1
		for i, m := range migrations {
			if m.Version == target {
				cut = i
				break
			}
		}
		if cut == -1 {
			return nil, fmt.Errorf("target version %s not found in migrations directory", target)
		}
		migrations = migrations[:cut+1]
	}

	applied, err := appliedVersions(ctx, pool)
	if err != nil {
		return nil, err
	}

	result := &MigrationResult{}
	for _, m := range migrations {
		if applied[m.Version] {
			result.Skipped = append(result.Skipped, m.Version)
			continue
		}
		if err := applyOne(ctx, pool, m); err != nil {
			wrapped := fmt.Errorf("migration %s: %w", m.Version, err)
			result.Errors = append(result.Errors, wrapped)
			return result, wrapped
		}
		result.Applied = append(result.Applied, m.Version)
	}
	return result, nil
}

// GetPendingMigrations returns the migrations on disk that the ledger
// database has not yet recorded, in apply order.
func GetPendingMigrations(ctx context.Context, pool *pgxpool.Pool, dir string) ([]Migration, error) {
	if pool == nil {
		return nil, fmt.Errorf("ledger pool is nil")
	}

	if err := ensureVersionTable(ctx, pool); err != nil {
		return nil, err
	}

	migrations, err := findMigrations(dir)
	if err != nil {
		return nil, err
	}

	applied, err := appliedVersions(ctx, pool)
	if err != nil {
		return nil, err
	}

	var pending []Migration
	for _, m := range migrations {
		if !applied[m.Version] {
			pending = append(pending, m)
		}
	}
	return pending, nil
}

// GetMigrationStatus compares the migrations directory against the versions
// recorded in the ledger database. Drift entries are versions the database
// has run that no longer have a file, which usually means the working tree
// is older than the schema.
func GetMigrationStatus(ctx context.Context, pool *pgxpool.Pool, dir string) (*MigrationStatus, error) {
	if pool == nil {
		return nil, fmt.Errorf("ledger pool is nil")
	}

	if err := ensureVersionTable(ctx, pool); err != nil {
		return nil, err
	}

	migrations, err := findMigrations(dir)
	if err != nil {
		return nil, err
	}

	appliedAt, err := appliedTimestamps(ctx, pool)
	if err != nil {
		return nil, err
	}

	status := &MigrationStatus{}
	onDisk := make(map[string]bool, len(migrations))
	for _, m := range migrations {
		onDisk[m.Version] = true
		if ts, ok := appliedAt[m.Version]; ok {
			t := ts
			status.Applied = append(status.Applied, MigrationStatusEntry{
				Version:   m.Version,
				Name:      m.Name,
				AppliedAt: &t,
			})
		} else {
			status.Pending = append(status.Pending, MigrationStatusEntry{
				Version: m.Version,
				Name:    m.Name,
			})
		}
	}

	for version, ts := range appliedAt {
		if !onDisk[version] {
			t := ts
			status.Drift = append(status.Drift, MigrationStatusEntry{
				Version:   version,
				Name:      version + ".sql",
				AppliedAt: &t,
			})
		}
	}
	sort.Slice(status.Drift, func(i, j int) bool {
		return status.Drift[i].Version < status.Drift[j].Version
	})

	return status, nil
}

// ensureVersionTable creates the schema_migrations bookkeeping table on
// first contact with a fresh ledger database.
func ensureVersionTable(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMPTZ DEFAULT NOW()
		)`)
	if err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}
	return nil
}

// findMigrations lists the .sql files under dir in apply order. Anything
// without a .sql extension (a README, editor droppings) is ignored.
func findMigrations(dir string) ([]Migration, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations directory %s: %w", dir, err)
	}

	var migrations []Migration
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.EqualFold(filepath.Ext(name), ".sql") {
			continue
		}
		migrations = append(migrations, Migration{
			Version: normalizeVersion(name),
			Name:    name,
			Path:    filepath.Join(dir, name),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// appliedVersions reads schema_migrations into a set.
func appliedVersions(ctx context.Context, pool *pgxpool.Pool) (map[string]bool, error) {
	rows, err := pool.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("scan migration version: %w", err)
		}
		applied[normalizeVersion(version)] = true
	}
	return applied, rows.Err()
}

// appliedTimestamps is appliedVersions plus when each version ran, for the
// status report.
func appliedTimestamps(ctx context.Context, pool *pgxpool.Pool) (map[string]time.Time, error) {
	rows, err := pool.Query(ctx, `SELECT version, applied_at FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]time.Time)
	for rows.Next() {
		var version string
		var at time.Time
		if err := rows.Scan(&version, &at); err != nil {
			return nil, fmt.Errorf("scan migration version: %w", err)
		}
		applied[normalizeVersion(version)] = at
	}
	return applied, rows.Err()
}

// applyOne runs a single migration file transactionally and records its
// version. The ledger schema files are plain SQL with no templating.
func applyOne(ctx context.Context, pool *pgxpool.Pool, m Migration) error {
	sql, err := os.ReadFile(m.Path)
	if err != nil {
		return fmt.Errorf("read %s: %w", m.Name, err)
	}
	if len(strings.TrimSpace(string(sql))) == 0 {
		return fmt.Errorf("%s is empty", m.Name)
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, string(sql)); err != nil {
		return fmt.Errorf("execute: %w", err)
	}
	if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, m.Version); err != nil {
		return fmt.Errorf("record version: %w", err)
	}
	return tx.Commit(ctx)
}

// normalizeVersion strips a .sql extension (any case) so filenames and
// recorded versions compare equal.
func normalizeVersion(v string) string {
	if strings.EqualFold(filepath.Ext(v), ".sql") && len(v) > len(".sql") {
		return v[:len(v)-len(".sql")]
	}
	return v
}
