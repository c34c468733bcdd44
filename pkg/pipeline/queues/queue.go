// Package queues provides the Redis-backed ingest work queue and the event
// channels the pipeline publishes to. Ingestion paths enqueue one task per
// recording; process workers dequeue and run the pipeline.
package queues

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/sessionarc/sessionarc/pkg/identity"
	"github.com/sessionarc/sessionarc/pkg/logging"
)

// KeyIngestQueue is the Redis list holding pending recording tasks.
const KeyIngestQueue = "sessionarc:queue:ingest"

// Task is one unit of pipeline work: a recording's evidence bag plus any
// local files to archive with it.
type Task struct {
	ID         string                   `json:"id"`
	EnqueuedAt time.Time                `json:"enqueued_at"`
	Attempts   int                      `json:"attempts"`
	Context    identity.RecordingContext `json:"context"`
	Files      []string                 `json:"files,omitempty"`
}

// NewTask creates a task with a fresh id.
func NewTask(ctx identity.RecordingContext, files []string) Task {
	return Task{
		ID:         uuid.New().String(),
		EnqueuedAt: time.Now().UTC(),
		Context:    ctx,
		Files:      files,
	}
}

// Queue is a Redis list work queue.
type Queue struct {
	client *redis.Client
	key    string
	logger logging.Logger
}

// NewQueue creates a queue over an existing Redis client.
func NewQueue(client *redis.Client, logger logging.Logger) *Queue {
	return &Queue{
		client: client,
		key:    KeyIngestQueue,
		logger: logger.With(logging.F("component", "ingest_queue")),
	}
}

// Connect opens a Redis client and verifies the connection.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	return client, nil
}

// Enqueue pushes a task onto the queue.
func (q *Queue) Enqueue(ctx context.Context, task Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	if err := q.client.LPush(ctx, q.key, data).Err(); err != nil {
		return fmt.Errorf("failed to enqueue task %s: %w", task.ID, err)
	}

	q.logger.Debug("Task enqueued",
		logging.F("task_id", task.ID),
		logging.F("source", string(task.Context.Source)))

	return nil
}

// Dequeue blocks up to timeout for the next task. Returns (nil, nil) when
// the timeout elapses with an empty queue.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*Task, error) {
	res, err := q.client.BRPop(ctx, timeout, q.key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue task: %w", err)
	}

	// BRPOP returns [key, value].
	if len(res) != 2 {
		return nil, fmt.Errorf("unexpected BRPOP reply length %d", len(res))
	}

	var task Task
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task: %w", err)
	}

	return &task, nil
}

// Requeue pushes a failed task back with an incremented attempt counter.
func (q *Queue) Requeue(ctx context.Context, task Task) error {
	task.Attempts++
	return q.Enqueue(ctx, task)
}

// Len returns the number of pending tasks.
func (q *Queue) Len(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, q.key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get queue length: %w", err)
	}
	return n, nil
}

// Close closes the underlying Redis connection.
func (q *Queue) Close() error {
	return q.client.Close()
}
