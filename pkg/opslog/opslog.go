// Package opslog records CLI command executions to the operations-audit
// database. Logging is best-effort: callers should warn and continue when
// the ops log is unreachable.
package opslog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/lib/pq"

	"github.com/sessionarc/sessionarc/config"
)

// maxFieldLen caps response and error text stored per command.
const maxFieldLen = 500

// Client writes command entries to the ops log.
type Client struct {
	db       *sql.DB
	project  string
	operator string
}

// CommandEntry is one recorded CLI invocation.
type CommandEntry struct {
	ID           int64     `json:"id"`
	Project      string    `json:"project"`
	Operator     string    `json:"operator"`
	Command      string    `json:"command"`
	Args         []string  `json:"args"`
	FullCommand  string    `json:"full_command"`
	DurationMs   int       `json:"duration_ms"`
	Success      bool      `json:"success"`
	ErrorMessage string    `json:"error_message,omitempty"`
	Response     string    `json:"response,omitempty"`
	Hostname     string    `json:"hostname,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewClient opens a connection to the ops-log database.
func NewClient(cfg *config.OpsLogConfig) (*Client, error) {
	if !cfg.IsConfigured() {
		return nil, fmt.Errorf("ops log not configured")
	}

	db, err := sql.Open("postgres", cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// The ops log sees one short write per CLI run; keep the pool tiny.
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &Client{
		db:       db,
		project:  cfg.GetProject(),
		operator: cfg.GetOperator(),
	}, nil
}

// Close closes the database connection.
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Ping checks the database connection.
func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// LogCommand records a CLI command execution.
func (c *Client) LogCommand(ctx context.Context, entry *CommandEntry) error {
	project := entry.Project
	if project == "" {
		project = c.project
	}
	operator := entry.Operator
	if operator == "" {
		operator = c.operator
	}

	hostname := entry.Hostname
	if hostname == "" {
		hostname, _ = os.Hostname()
	}

	response := truncate(entry.Response, maxFieldLen)
	errorMsg := truncate(entry.ErrorMessage, maxFieldLen)

	query := `
		INSERT INTO ops_commands (
			project, operator, command, args, full_command,
			duration_ms, success, error_message, response, hostname
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := c.db.ExecContext(ctx, query,
		project,
		operator,
		entry.Command,
		pq.Array(entry.Args),
		entry.FullCommand,
		entry.DurationMs,
		entry.Success,
		nullIfEmpty(errorMsg),
		nullIfEmpty(response),
		nullIfEmpty(hostname),
	)
	if err != nil {
		return fmt.Errorf("logging command: %w", err)
	}

	return nil
}

// History retrieves recent command history for this project.
func (c *Client) History(ctx context.Context, operator string, limit int) ([]CommandEntry, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, operator, command, full_command, duration_ms, success, error_message, created_at
		FROM ops_commands
		WHERE project = $1 AND ($2::text IS NULL OR operator = $2)
		ORDER BY created_at DESC
		LIMIT $3`

	rows, err := c.db.QueryContext(ctx, query, c.project, nullIfEmpty(operator), limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var entries []CommandEntry
	for rows.Next() {
		var e CommandEntry
		var errorMsg sql.NullString

		err := rows.Scan(
			&e.ID,
			&e.Operator,
			&e.Command,
			&e.FullCommand,
			&e.DurationMs,
			&e.Success,
			&errorMsg,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		e.Project = c.project
		e.ErrorMessage = errorMsg.String

		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	return entries, nil
}

// truncate truncates a string to maxLen characters.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}

// nullIfEmpty returns nil if s is empty, otherwise returns s.
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
