package queues

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sessionarc/sessionarc/pkg/logging"
)

// Redis channels for pipeline events.
const (
	ChannelRecordingArchived = "events.recording.archived"
	ChannelRecordingFailed   = "events.recording.failed"
	ChannelBatchCompleted    = "events.batch.completed"
)

// BaseEvent contains common fields for all events.
type BaseEvent struct {
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Version   string    `json:"version"`
}

// NewBaseEvent creates a BaseEvent with sensible defaults.
func NewBaseEvent(eventType string) BaseEvent {
	return BaseEvent{
		EventType: eventType,
		Timestamp: time.Now().UTC(),
		Source:    "sessionarc",
		Version:   "1.0",
	}
}

// RecordingArchivedEvent is published when a recording is filed and ledgered.
type RecordingArchivedEvent struct {
	BaseEvent

	CanonicalName string `json:"canonical_name"`
	Category      string `json:"category"`
	Method        string `json:"method"`
	Confidence    int    `json:"confidence"`
	ArchivePath   string `json:"archive_path,omitempty"`
	ContentID     string `json:"content_id,omitempty"`
	IngestSource  string `json:"ingest_source,omitempty"`
	LedgerID      int64  `json:"ledger_id,omitempty"`
}

// RecordingFailedEvent is published when the pipeline gives up on a recording.
type RecordingFailedEvent struct {
	BaseEvent

	TaskID       string `json:"task_id,omitempty"`
	Title        string `json:"title"`
	ErrorCode    string `json:"error_code"`
	ErrorMessage string `json:"error_message"`
	Attempts     int    `json:"attempts"`
}

// BatchCompletedEvent is published when a bulk ingest run finishes.
type BatchCompletedEvent struct {
	BaseEvent

	BatchID string `json:"batch_id"`

	Total    int `json:"total"`
	Archived int `json:"archived"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`

	StartedAt       time.Time `json:"started_at"`
	CompletedAt     time.Time `json:"completed_at"`
	DurationSeconds float64   `json:"duration_seconds"`

	Success bool `json:"success"`
}

// Publisher publishes pipeline events to Redis.
type Publisher struct {
	client *redis.Client
	logger logging.Logger
}

// NewPublisher creates an event publisher over an existing Redis client.
func NewPublisher(client *redis.Client, logger logging.Logger) *Publisher {
	return &Publisher{
		client: client,
		logger: logger.With(logging.F("component", "event_publisher")),
	}
}

// PublishRecordingArchived publishes an archived-recording event.
func (p *Publisher) PublishRecordingArchived(ctx context.Context, evt RecordingArchivedEvent) error {
	evt.BaseEvent = NewBaseEvent("recording.archived")
	return p.publish(ctx, ChannelRecordingArchived, evt)
}

// PublishRecordingFailed publishes a failed-recording event.
func (p *Publisher) PublishRecordingFailed(ctx context.Context, evt RecordingFailedEvent) error {
	evt.BaseEvent = NewBaseEvent("recording.failed")
	return p.publish(ctx, ChannelRecordingFailed, evt)
}

// PublishBatchCompleted publishes a batch-completion event.
func (p *Publisher) PublishBatchCompleted(ctx context.Context, evt BatchCompletedEvent) error {
	evt.BaseEvent = NewBaseEvent("batch.completed")
	evt.DurationSeconds = evt.CompletedAt.Sub(evt.StartedAt).Seconds()
	return p.publish(ctx, ChannelBatchCompleted, evt)
}

// publish serializes and publishes an event to Redis.
func (p *Publisher) publish(ctx context.Context, channel string, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.client.Publish(ctx, channel, data).Err(); err != nil {
		p.logger.Error("Failed to publish event",
			logging.Err(err),
			logging.F("channel", channel))
		return fmt.Errorf("failed to publish to %s: %w", channel, err)
	}

	p.logger.Debug("Event published",
		logging.F("channel", channel),
		logging.F("payload_size", len(data)))

	return nil
}
