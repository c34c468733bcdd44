// Package pipeline drives a recording from raw context to archived entry:
// resolve identity, check the ledger for duplicates, place files in the
// archive, record the entry, and publish events.
package pipeline

import (
	"context"
	"strconv"
	"time"

	"github.com/sessionarc/sessionarc/pkg/archive"
	apperrors "github.com/sessionarc/sessionarc/pkg/errors"
	"github.com/sessionarc/sessionarc/pkg/identity"
	"github.com/sessionarc/sessionarc/pkg/ledger"
	"github.com/sessionarc/sessionarc/pkg/logging"
	"github.com/sessionarc/sessionarc/pkg/pipeline/observability"
	"github.com/sessionarc/sessionarc/pkg/pipeline/queues"

	"go.opentelemetry.io/otel/trace"
)

// Stage names used when classifying failures.
const (
	StageResolve = "resolve"
	StageLedger  = "ledger"
	StageArchive = "archive"
)

// Outcome statuses.
const (
	StatusArchived  = "archived"
	StatusDuplicate = "duplicate"
	StatusDryRun    = "dry-run"
	StatusFailed    = "failed"
)

// Ledger is the subset of ledger operations the pipeline needs.
type Ledger interface {
	Exists(ctx context.Context, canonicalName string) (bool, int64, error)
	Upsert(ctx context.Context, e *ledger.Entry) (*ledger.UpsertResult, error)
}

// Organizer places recording files under the archive root.
type Organizer interface {
	DestinationDir(res identity.Result) string
	Place(res identity.Result, rc *identity.RecordingContext, files []string) (*archive.Placement, error)
}

// EventPublisher emits pipeline events. Implementations may be nil when no
// event bus is configured; the pipeline treats publishing as best-effort.
type EventPublisher interface {
	PublishRecordingArchived(ctx context.Context, evt queues.RecordingArchivedEvent) error
	PublishRecordingFailed(ctx context.Context, evt queues.RecordingFailedEvent) error
}

// Config configures pipeline behavior.
type Config struct {
	// DryRun resolves and reports the destination without moving files or
	// writing the ledger.
	DryRun bool

	// StageTimeout bounds each recording's end-to-end processing. Zero
	// means no limit.
	StageTimeout time.Duration

	// Audit receives one entry per processed recording. Nil disables the
	// audit trail.
	Audit logging.Sink
}

// Outcome is the result of processing one recording.
type Outcome struct {
	Status      string
	Result      identity.Result
	ArchivePath string
	ContentID   string
	LedgerID    int64
	Err         *apperrors.PipelineError
}

// Pipeline wires the resolver, ledger, organizer, and event bus together.
type Pipeline struct {
	resolver  *identity.Resolver
	ledger    Ledger
	organizer Organizer
	publisher EventPublisher
	metrics   *observability.Metrics
	logger    logging.Logger
	cfg       Config
}

// New creates a pipeline. publisher may be nil when events are not wired.
func New(resolver *identity.Resolver, led Ledger, org Organizer, publisher EventPublisher, metrics *observability.Metrics, logger logging.Logger, cfg Config) *Pipeline {
	if metrics == nil {
		metrics = observability.NewMetrics()
	}
	return &Pipeline{
		resolver:  resolver,
		ledger:    led,
		organizer: org,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger.With(logging.F("component", "pipeline")),
		cfg:       cfg,
	}
}

// Metrics exposes the pipeline's metrics, for serving a metrics endpoint.
func (p *Pipeline) Metrics() *observability.Metrics {
	return p.metrics
}

// ProcessRecording runs one recording through the full pipeline.
func (p *Pipeline) ProcessRecording(ctx context.Context, rc identity.RecordingContext, files []string) Outcome {
	if p.cfg.StageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.StageTimeout)
		defer cancel()
	}

	ctx, span := observability.StartRecordingSpan(ctx, rc.Title, string(rc.Source))
	defer span.End()

	start := time.Now()
	res := p.resolver.Resolve(rc)
	p.metrics.ResolveDuration.Observe(time.Since(start).Seconds())
	p.metrics.Confidence.Observe(float64(res.Confidence))

	log := p.logger.With(logging.F("canonical_name", res.CanonicalName))

	exists, existingID, err := p.ledger.Exists(ctx, res.CanonicalName)
	if err != nil {
		return p.fail(ctx, span, rc, res, p.classifyLedgerError(err))
	}
	if exists {
		log.Info("Recording already ledgered, skipping", logging.F("ledger_id", existingID))
		p.metrics.Duplicates.Inc()
		observability.RecordOutcome(span, StatusDuplicate, res.CanonicalName)
		p.audit(span, &rc, res, StatusDuplicate, nil)
		return Outcome{Status: StatusDuplicate, Result: res, LedgerID: existingID}
	}

	if p.cfg.DryRun {
		dest := p.organizer.DestinationDir(res)
		log.Info("Dry run: would archive", logging.F("destination", dest))
		observability.RecordOutcome(span, StatusDryRun, res.CanonicalName)
		p.audit(span, &rc, res, StatusDryRun, nil)
		return Outcome{Status: StatusDryRun, Result: res, ArchivePath: dest}
	}

	placement, err := p.organizer.Place(res, &rc, files)
	if err != nil {
		return p.fail(ctx, span, rc, res, apperrors.ClassifyError(err, StageArchive))
	}

	entry := ledger.EntryFromResult(res, &rc)
	entry.ArchivePath = placement.Dir
	entry.ContentID = placement.ContentID

	upserted, err := p.ledger.Upsert(ctx, entry)
	if err != nil {
		return p.fail(ctx, span, rc, res, p.classifyLedgerError(err))
	}

	if p.publisher != nil {
		evt := queues.RecordingArchivedEvent{
			CanonicalName: res.CanonicalName,
			Category:      string(res.Category),
			Method:        res.Identity.Method,
			Confidence:    res.Confidence,
			ArchivePath:   placement.Dir,
			ContentID:     placement.ContentID,
			IngestSource:  string(rc.Source),
			LedgerID:      upserted.ID,
		}
		if err := p.publisher.PublishRecordingArchived(ctx, evt); err != nil {
			log.Warn("Failed to publish archived event", logging.Err(err))
		}
	}

	p.metrics.Processed.WithLabelValues(string(res.Category), res.Identity.Method).Inc()
	observability.RecordOutcome(span, StatusArchived, res.CanonicalName)
	p.audit(span, &rc, res, StatusArchived, nil)

	log.Info("Recording archived",
		logging.F("category", res.Category),
		logging.F("method", res.Identity.Method),
		logging.F("confidence", res.Confidence),
		logging.F("archive_path", placement.Dir))

	return Outcome{
		Status:      StatusArchived,
		Result:      res,
		ArchivePath: placement.Dir,
		ContentID:   placement.ContentID,
		LedgerID:    upserted.ID,
	}
}

// audit queues one trail entry per outcome. Best-effort: the sink buffers
// and drops under pressure rather than slowing the pipeline.
func (p *Pipeline) audit(span trace.Span, rc *identity.RecordingContext, res identity.Result, status string, pe *apperrors.PipelineError) {
	if p.cfg.Audit == nil {
		return
	}

	entry := logging.LogEntry{
		Timestamp: time.Now().UTC(),
		Level:     "info",
		Component: "pipeline",
		Message:   "recording " + status,
		Fields: map[string]string{
			"status":         status,
			"title":          rc.Title,
			"canonical_name": res.CanonicalName,
			"category":       string(res.Category),
			"method":         res.Identity.Method,
			"confidence":     strconv.Itoa(res.Confidence),
			"source":         string(rc.Source),
		},
	}
	if pe != nil {
		entry.Level = "error"
		entry.Fields["error_code"] = string(pe.Code)
		entry.Fields["stage"] = pe.Stage
	}
	if sc := span.SpanContext(); sc.HasTraceID() {
		entry.TraceID = sc.TraceID().String()
	}

	p.cfg.Audit.Write(entry)
}

// classifyLedgerError maps ledger failures to pipeline codes. Anything the
// classifier cannot pin down is treated as the ledger being unreachable.
func (p *Pipeline) classifyLedgerError(err error) *apperrors.PipelineError {
	pe := apperrors.ClassifyError(err, StageLedger)
	if pe.Code == apperrors.ErrProcessingError {
		pe.Code = apperrors.ErrLedgerUnavailable
	}
	return pe
}

func (p *Pipeline) fail(ctx context.Context, span trace.Span, rc identity.RecordingContext, res identity.Result, pe *apperrors.PipelineError) Outcome {
	p.metrics.Failures.WithLabelValues(string(pe.Code)).Inc()
	observability.RecordFailure(span, string(pe.Code), pe)
	p.audit(span, &rc, res, StatusFailed, pe)

	p.logger.Error("Recording processing failed",
		logging.Err(pe),
		logging.F("title", rc.Title),
		logging.F("stage", pe.Stage),
		logging.F("code", pe.Code))

	if p.publisher != nil {
		evt := queues.RecordingFailedEvent{
			Title:        rc.Title,
			ErrorCode:    string(pe.Code),
			ErrorMessage: pe.Message,
		}
		if err := p.publisher.PublishRecordingFailed(ctx, evt); err != nil {
			p.logger.Warn("Failed to publish failure event", logging.Err(err))
		}
	}

	return Outcome{Status: StatusFailed, Result: res, Err: pe}
}
