// Package ledger persists one row per processed recording, keyed by the
// canonical name. The ledger is the dedup authority: a recording whose
// canonical name already exists has been archived before and is skipped.
// Rows also carry the resolved identity components, the resolution method,
// and the confidence score so an operator can audit why a name was assigned.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sessionarc/sessionarc/pkg/logging"
)

// Entry is one archived recording.
type Entry struct {
	ID            int64
	CanonicalName string
	Category      string
	Coach         *string
	Student       *string
	Week          string
	SessionType   string
	Method        string
	Confidence    int
	Source        string
	MeetingID     string
	SessionUUID   string
	RecordedAt    *time.Time
	ArchivePath   string
	ContentID     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// UpsertResult reports what Upsert did.
type UpsertResult struct {
	ID        int64
	Created   bool
	CreatedAt time.Time
}

// Repository provides ledger database operations.
type Repository struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// NewRepository creates a ledger repository.
func NewRepository(pool *pgxpool.Pool, logger logging.Logger) *Repository {
	return &Repository{
		pool:   pool,
		logger: logger.With(logging.F("component", "ledger_repository")),
	}
}

// Upsert inserts an entry, or refreshes the existing row when the canonical
// name is already present. Idempotent: re-running the same recording through
// the pipeline never creates a second row.
func (r *Repository) Upsert(ctx context.Context, e *Entry) (*UpsertResult, error) {
	if e.CanonicalName == "" {
		return nil, fmt.Errorf("canonical name is required")
	}

	query := `
		INSERT INTO archive_entries (
			canonical_name, category, coach, student, week, session_type,
			method, confidence, source, meeting_id, session_uuid,
			recorded_at, archive_path, content_id, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11,
			$12, $13, $14, NOW(), NOW()
		)
		ON CONFLICT (canonical_name) DO UPDATE
		SET archive_path = EXCLUDED.archive_path,
		    updated_at   = NOW()
		RETURNING id, created_at, (xmax = 0) AS inserted
	`

	var result UpsertResult
	err := r.pool.QueryRow(ctx, query,
		e.CanonicalName,
		e.Category,
		e.Coach,
		e.Student,
		nullIfEmpty(e.Week),
		nullIfEmpty(e.SessionType),
		e.Method,
		e.Confidence,
		nullIfEmpty(e.Source),
		nullIfEmpty(e.MeetingID),
		nullIfEmpty(e.SessionUUID),
		e.RecordedAt,
		nullIfEmpty(e.ArchivePath),
		nullIfEmpty(e.ContentID),
	).Scan(&result.ID, &result.CreatedAt, &result.Created)

	if err != nil {
		r.logger.Error("Failed to upsert ledger entry",
			logging.Err(err),
			logging.F("canonical_name", e.CanonicalName))
		return nil, fmt.Errorf("failed to upsert ledger entry: %w", err)
	}

	r.logger.Debug("Ledger entry upserted",
		logging.F("id", result.ID),
		logging.F("canonical_name", e.CanonicalName),
		logging.F("created", result.Created))

	return &result, nil
}

// Exists checks whether a canonical name is already in the ledger.
func (r *Repository) Exists(ctx context.Context, canonicalName string) (bool, int64, error) {
	query := `
		SELECT id FROM archive_entries
		WHERE canonical_name = $1
		LIMIT 1
	`

	var id int64
	err := r.pool.QueryRow(ctx, query, canonicalName).Scan(&id)

	if err == pgx.ErrNoRows {
		return false, 0, nil
	}
	if err != nil {
		return false, 0, fmt.Errorf("failed to check ledger for %s: %w", canonicalName, err)
	}

	return true, id, nil
}

// Get retrieves a ledger entry by canonical name. Returns nil when absent.
func (r *Repository) Get(ctx context.Context, canonicalName string) (*Entry, error) {
	query := entryColumns + `
		FROM archive_entries
		WHERE canonical_name = $1
	`

	row := r.pool.QueryRow(ctx, query, canonicalName)
	e, err := scanEntry(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger entry %s: %w", canonicalName, err)
	}

	return e, nil
}

// ListOptions filter a ledger listing.
type ListOptions struct {
	// Category restricts results to one archive branch ("" means all).
	Category string

	// Coach restricts results to one coach ("" means all).
	Coach string

	// Since restricts results to recordings on or after this time.
	Since time.Time

	// Limit caps the result set; <= 0 means the default of 50.
	Limit int
}

// List returns ledger entries matching the options, newest first.
func (r *Repository) List(ctx context.Context, opts ListOptions) ([]*Entry, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	query := entryColumns + `
		FROM archive_entries
		WHERE ($1 = '' OR category = $1)
		  AND ($2 = '' OR coach = $2)
		  AND ($3::timestamptz IS NULL OR recorded_at >= $3)
		ORDER BY created_at DESC
		LIMIT $4
	`

	var since *time.Time
	if !opts.Since.IsZero() {
		since = &opts.Since
	}

	rows, err := r.pool.Query(ctx, query, opts.Category, opts.Coach, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger entries: %w", err)
	}

	return entries, nil
}

// Stats summarizes the ledger for operators.
type Stats struct {
	Total      int64
	ByCategory map[string]int64
	ByMethod   map[string]int64
}

// GetStats counts ledger entries grouped by category and method.
func (r *Repository) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		ByCategory: make(map[string]int64),
		ByMethod:   make(map[string]int64),
	}

	rows, err := r.pool.Query(ctx, `
		SELECT category, method, COUNT(*)
		FROM archive_entries
		GROUP BY category, method
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var category, method string
		var count int64
		if err := rows.Scan(&category, &method, &count); err != nil {
			return nil, fmt.Errorf("failed to scan ledger stats: %w", err)
		}
		stats.Total += count
		stats.ByCategory[category] += count
		stats.ByMethod[method] += count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger stats: %w", err)
	}

	return stats, nil
}

const entryColumns = `
	SELECT id, canonical_name, category, coach, student,
	       COALESCE(week, ''), COALESCE(session_type, ''), method, confidence,
	       COALESCE(source, ''), COALESCE(meeting_id, ''), COALESCE(session_uuid, ''),
	       recorded_at, COALESCE(archive_path, ''), COALESCE(content_id, ''),
	       created_at, updated_at`

// rowScanner covers both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*Entry, error) {
	e := &Entry{}
	err := row.Scan(
		&e.ID,
		&e.CanonicalName,
		&e.Category,
		&e.Coach,
		&e.Student,
		&e.Week,
		&e.SessionType,
		&e.Method,
		&e.Confidence,
		&e.Source,
		&e.MeetingID,
		&e.SessionUUID,
		&e.RecordedAt,
		&e.ArchivePath,
		&e.ContentID,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
