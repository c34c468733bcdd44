package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sessionarc/sessionarc/pkg/identity"
	"github.com/sessionarc/sessionarc/pkg/logging"
	"github.com/sessionarc/sessionarc/pkg/pipeline/queues"
)

// DefaultConcurrency is the default number of concurrent workers for a
// batch run.
const DefaultConcurrency = 4

// Item is one recording queued for a batch run.
type Item struct {
	Context identity.RecordingContext
	Files   []string
}

// RecordingError records a failure for a specific recording.
type RecordingError struct {
	Title string
	Error string
}

// BatchResult summarizes a batch run.
type BatchResult struct {
	BatchID     string
	Total       int
	Archived    int
	Duplicates  int
	DryRun      int
	Failed      int
	StartedAt   time.Time
	CompletedAt time.Time
	Success     bool
	Errors      []RecordingError
}

// BatchPublisher emits the batch completion event. May be nil.
type BatchPublisher interface {
	PublishBatchCompleted(ctx context.Context, evt queues.BatchCompletedEvent) error
}

// Runner processes a set of recordings through the pipeline with a worker
// pool.
type Runner struct {
	pipeline    *Pipeline
	publisher   BatchPublisher
	concurrency int
	logger      logging.Logger

	mu sync.Mutex
}

// NewRunner creates a batch runner. publisher may be nil.
func NewRunner(p *Pipeline, publisher BatchPublisher, concurrency int, logger logging.Logger) *Runner {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Runner{
		pipeline:    p,
		publisher:   publisher,
		concurrency: concurrency,
		logger:      logger.With(logging.F("component", "batch_runner")),
	}
}

// Run processes all items and returns the batch summary.
func (r *Runner) Run(ctx context.Context, items []Item) *BatchResult {
	result := &BatchResult{
		BatchID:   uuid.New().String(),
		Total:     len(items),
		StartedAt: time.Now(),
		Errors:    []RecordingError{},
	}

	if len(items) == 0 {
		result.CompletedAt = time.Now()
		result.Success = true
		return result
	}

	r.logger.Info("Starting batch run",
		logging.F("batch_id", result.BatchID),
		logging.F("total", result.Total),
		logging.F("concurrency", r.concurrency))

	if r.concurrency == 1 {
		r.runSequential(ctx, items, result)
	} else {
		r.runParallel(ctx, items, result)
	}

	result.CompletedAt = time.Now()
	result.Success = result.Failed == 0

	if r.publisher != nil {
		evt := queues.BatchCompletedEvent{
			BatchID:     result.BatchID,
			Total:       result.Total,
			Archived:    result.Archived,
			Skipped:     result.Duplicates + result.DryRun,
			Failed:      result.Failed,
			StartedAt:   result.StartedAt,
			CompletedAt: result.CompletedAt,
			Success:     result.Success,
		}
		if err := r.publisher.PublishBatchCompleted(ctx, evt); err != nil {
			r.logger.Warn("Failed to publish batch completion event", logging.Err(err))
		}
	}

	return result
}

func (r *Runner) runSequential(ctx context.Context, items []Item, result *BatchResult) {
	for _, item := range items {
		if ctx.Err() != nil {
			return
		}
		out := r.pipeline.ProcessRecording(ctx, item.Context, item.Files)
		r.record(item, out, result)
	}
}

func (r *Runner) runParallel(ctx context.Context, items []Item, result *BatchResult) {
	itemsCh := make(chan Item, len(items))
	outcomesCh := make(chan itemOutcome, len(items))

	var wg sync.WaitGroup
	for i := 0; i < r.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range itemsCh {
				if ctx.Err() != nil {
					continue
				}
				out := r.pipeline.ProcessRecording(ctx, item.Context, item.Files)
				outcomesCh <- itemOutcome{item: item, outcome: out}
			}
		}()
	}

	for _, item := range items {
		itemsCh <- item
	}
	close(itemsCh)

	go func() {
		wg.Wait()
		close(outcomesCh)
	}()

	for io := range outcomesCh {
		r.record(io.item, io.outcome, result)
	}
}

type itemOutcome struct {
	item    Item
	outcome Outcome
}

func (r *Runner) record(item Item, out Outcome, result *BatchResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch out.Status {
	case StatusArchived:
		result.Archived++
	case StatusDuplicate:
		result.Duplicates++
	case StatusDryRun:
		result.DryRun++
	case StatusFailed:
		result.Failed++
		msg := "unknown error"
		if out.Err != nil {
			msg = out.Err.Error()
		}
		result.Errors = append(result.Errors, RecordingError{
			Title: item.Context.Title,
			Error: msg,
		})
	}
}
