package ledger

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sessionarc/sessionarc/pkg/logging"
)

// EventWriter persists pipeline audit entries to the resolution_events
// table. It implements logging.EntryWriter and sits behind an async sink,
// so writes arrive in batches.
type EventWriter struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// NewEventWriter creates an audit event writer backed by the ledger database.
func NewEventWriter(pool *pgxpool.Pool, logger logging.Logger) *EventWriter {
	return &EventWriter{
		pool:   pool,
		logger: logger.With(logging.F("component", "event_writer")),
	}
}

// WriteBatch inserts a batch of audit entries in one round trip.
func (w *EventWriter) WriteBatch(ctx context.Context, entries []logging.LogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	query := `
		INSERT INTO resolution_events (occurred_at, level, component, message, fields, trace_id)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(query,
			e.Timestamp,
			e.Level,
			e.Component,
			e.Message,
			e.Fields,
			nullIfEmpty(e.TraceID),
		)
	}

	results := w.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range entries {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to write resolution events: %w", err)
		}
	}

	w.logger.Debug("Resolution events written", logging.F("count", len(entries)))
	return nil
}
