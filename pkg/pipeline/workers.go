package pipeline

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/sessionarc/sessionarc/pkg/errors"
	"github.com/sessionarc/sessionarc/pkg/logging"
	"github.com/sessionarc/sessionarc/pkg/pipeline/queues"
)

const (
	// dequeueTimeout bounds each blocking pop so workers notice shutdown.
	dequeueTimeout = 5 * time.Second

	// MaxTaskAttempts is how many times a retryable task is tried before
	// it is dropped.
	MaxTaskAttempts = 3
)

// TaskQueue is the queue interface the pool consumes from.
type TaskQueue interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*queues.Task, error)
	Requeue(ctx context.Context, task queues.Task) error
}

// Pool runs pipeline workers against a task queue until its context is
// cancelled. In-flight tasks finish before Run returns.
type Pool struct {
	queue    TaskQueue
	pipeline *Pipeline
	workers  int
	logger   logging.Logger
}

// NewPool creates a worker pool.
func NewPool(queue TaskQueue, p *Pipeline, workers int, logger logging.Logger) *Pool {
	if workers <= 0 {
		workers = DefaultConcurrency
	}
	return &Pool{
		queue:    queue,
		pipeline: p,
		workers:  workers,
		logger:   logger.With(logging.F("component", "worker_pool")),
	}
}

// Run starts the workers and blocks until ctx is cancelled and all workers
// have drained.
func (p *Pool) Run(ctx context.Context) {
	p.logger.Info("Starting workers", logging.F("count", p.workers))

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.worker(ctx, id)
		}(i)
	}
	wg.Wait()

	p.logger.Info("Workers stopped")
}

func (p *Pool) worker(ctx context.Context, id int) {
	log := p.logger.With(logging.F("worker", id))

	for {
		if ctx.Err() != nil {
			return
		}

		task, err := p.queue.Dequeue(ctx, dequeueTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn("Dequeue failed", logging.Err(err))
			continue
		}
		if task == nil {
			continue
		}

		out := p.pipeline.ProcessRecording(ctx, task.Context, task.Files)
		if out.Status != StatusFailed {
			continue
		}

		if apperrors.IsErrorRetryable(out.Err) && task.Attempts+1 < MaxTaskAttempts {
			log.Info("Requeueing retryable task",
				logging.F("task_id", task.ID),
				logging.F("attempts", task.Attempts+1),
				logging.F("code", out.Err.Code))
			if err := p.queue.Requeue(ctx, *task); err != nil {
				log.Error("Failed to requeue task", logging.Err(err), logging.F("task_id", task.ID))
			}
			continue
		}

		log.Error("Task failed permanently",
			logging.Err(out.Err),
			logging.F("task_id", task.ID),
			logging.F("title", task.Context.Title),
			logging.F("attempts", task.Attempts+1))
	}
}
