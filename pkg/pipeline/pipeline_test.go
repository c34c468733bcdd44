package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sessionarc/sessionarc/pkg/archive"
	apperrors "github.com/sessionarc/sessionarc/pkg/errors"
	"github.com/sessionarc/sessionarc/pkg/identity"
	"github.com/sessionarc/sessionarc/pkg/ledger"
	"github.com/sessionarc/sessionarc/pkg/logging"
	"github.com/sessionarc/sessionarc/pkg/pipeline/queues"
	"github.com/sessionarc/sessionarc/pkg/roster"
)

type fakeLedger struct {
	mu      sync.Mutex
	entries map[string]int64
	nextID  int64

	existsErr error
	upsertErr error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{entries: map[string]int64{}, nextID: 1}
}

func (f *fakeLedger) Exists(ctx context.Context, name string) (bool, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.existsErr != nil {
		return false, 0, f.existsErr
	}
	id, ok := f.entries[name]
	return ok, id, nil
}

func (f *fakeLedger) Upsert(ctx context.Context, e *ledger.Entry) (*ledger.UpsertResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	id := f.nextID
	f.nextID++
	f.entries[e.CanonicalName] = id
	return &ledger.UpsertResult{ID: id, Created: true, CreatedAt: time.Now()}, nil
}

type fakeOrganizer struct {
	mu       sync.Mutex
	placed   []string
	placeErr error
}

func (f *fakeOrganizer) DestinationDir(res identity.Result) string {
	return "/archive/" + string(res.Category) + "/" + res.CanonicalName
}

func (f *fakeOrganizer) Place(res identity.Result, rc *identity.RecordingContext, files []string) (*archive.Placement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.placeErr != nil {
		return nil, f.placeErr
	}
	f.placed = append(f.placed, res.CanonicalName)
	return &archive.Placement{
		Dir:       f.DestinationDir(res),
		ContentID: "ae_test_0000000001",
		Moved:     files,
	}, nil
}

type fakePublisher struct {
	mu       sync.Mutex
	archived []queues.RecordingArchivedEvent
	failed   []queues.RecordingFailedEvent
	batches  []queues.BatchCompletedEvent
}

func (f *fakePublisher) PublishRecordingArchived(ctx context.Context, evt queues.RecordingArchivedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.archived = append(f.archived, evt)
	return nil
}

func (f *fakePublisher) PublishRecordingFailed(ctx context.Context, evt queues.RecordingFailedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = append(f.failed, evt)
	return nil
}

func (f *fakePublisher) PublishBatchCompleted(ctx context.Context, evt queues.BatchCompletedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, evt)
	return nil
}

type fakeSink struct {
	mu      sync.Mutex
	entries []logging.LogEntry
}

func (f *fakeSink) Write(entry logging.LogEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
}

func (f *fakeSink) Flush(ctx context.Context) error { return nil }
func (f *fakeSink) Close() error                    { return nil }

func testResolver() *identity.Resolver {
	coaches := []roster.Coach{
		{FullName: "Jenny Duan", FirstName: "Jenny", Aliases: []string{"jduan"}},
	}
	students := map[string]string{"huda": "Huda"}
	return identity.NewResolver(roster.New(coaches, students), identity.WithLogger(logging.NewNopLogger()))
}

func testPipeline(led Ledger, org Organizer, pub EventPublisher, cfg Config) *Pipeline {
	return New(testResolver(), led, org, pub, nil, logging.NewNopLogger(), cfg)
}

func coachingContext() identity.RecordingContext {
	start, _ := time.Parse("2006-01-02", "2026-03-15")
	dur := 3600
	return identity.RecordingContext{
		Title:     "Jenny <> Huda | Session #5",
		StartTime: start,
		Duration:  &dur,
		Source:    identity.SourceAPI,
	}
}

func TestProcessRecordingArchives(t *testing.T) {
	led := newFakeLedger()
	org := &fakeOrganizer{}
	pub := &fakePublisher{}
	p := testPipeline(led, org, pub, Config{})

	out := p.ProcessRecording(context.Background(), coachingContext(), []string{"a.mp4"})

	require.Equal(t, StatusArchived, out.Status)
	assert.Equal(t, "Coaching_Jenny_Huda_Wk05_2026-03-15", out.Result.CanonicalName)
	assert.Equal(t, int64(1), out.LedgerID)
	assert.NotEmpty(t, out.ArchivePath)
	assert.NotEmpty(t, out.ContentID)

	require.Len(t, pub.archived, 1)
	evt := pub.archived[0]
	assert.Equal(t, "Coaching_Jenny_Huda_Wk05_2026-03-15", evt.CanonicalName)
	assert.Equal(t, "Coaching", evt.Category)
	assert.Equal(t, "platform-api", evt.IngestSource)
	assert.Empty(t, pub.failed)
}

func TestProcessRecordingDuplicate(t *testing.T) {
	led := newFakeLedger()
	led.entries["Coaching_Jenny_Huda_Wk05_2026-03-15"] = 42
	org := &fakeOrganizer{}
	p := testPipeline(led, org, nil, Config{})

	out := p.ProcessRecording(context.Background(), coachingContext(), []string{"a.mp4"})

	require.Equal(t, StatusDuplicate, out.Status)
	assert.Equal(t, int64(42), out.LedgerID)
	assert.Empty(t, org.placed, "duplicate must not touch the archive")
}

func TestProcessRecordingDryRun(t *testing.T) {
	led := newFakeLedger()
	org := &fakeOrganizer{}
	p := testPipeline(led, org, nil, Config{DryRun: true})

	out := p.ProcessRecording(context.Background(), coachingContext(), []string{"a.mp4"})

	require.Equal(t, StatusDryRun, out.Status)
	assert.Contains(t, out.ArchivePath, "Coaching_Jenny_Huda_Wk05_2026-03-15")
	assert.Empty(t, org.placed)
	assert.Empty(t, led.entries)
}

func TestProcessRecordingArchiveFailure(t *testing.T) {
	led := newFakeLedger()
	org := &fakeOrganizer{placeErr: fmt.Errorf("archive write: no space left on device")}
	pub := &fakePublisher{}
	p := testPipeline(led, org, pub, Config{})

	out := p.ProcessRecording(context.Background(), coachingContext(), []string{"a.mp4"})

	require.Equal(t, StatusFailed, out.Status)
	require.NotNil(t, out.Err)
	assert.Equal(t, apperrors.ErrArchiveWriteFailed, out.Err.Code)
	assert.Equal(t, StageArchive, out.Err.Stage)
	assert.Empty(t, led.entries, "failed placement must not be ledgered")

	require.Len(t, pub.failed, 1)
	assert.Equal(t, string(apperrors.ErrArchiveWriteFailed), pub.failed[0].ErrorCode)
}

func TestProcessRecordingLedgerFailure(t *testing.T) {
	led := newFakeLedger()
	led.existsErr = errors.New("dial tcp: connection refused")
	p := testPipeline(led, &fakeOrganizer{}, nil, Config{})

	out := p.ProcessRecording(context.Background(), coachingContext(), nil)

	require.Equal(t, StatusFailed, out.Status)
	require.NotNil(t, out.Err)
	assert.Equal(t, apperrors.ErrPlatformUnavailable, out.Err.Code)
}

func TestProcessRecordingLedgerUpsertFailurePromoted(t *testing.T) {
	led := newFakeLedger()
	led.upsertErr = errors.New("some obscure database failure")
	p := testPipeline(led, &fakeOrganizer{}, nil, Config{})

	out := p.ProcessRecording(context.Background(), coachingContext(), nil)

	require.Equal(t, StatusFailed, out.Status)
	require.NotNil(t, out.Err)
	assert.Equal(t, apperrors.ErrLedgerUnavailable, out.Err.Code)
	assert.Equal(t, StageLedger, out.Err.Stage)
}

func TestProcessRecordingAuditTrail(t *testing.T) {
	led := newFakeLedger()
	led.entries["Coaching_Jenny_Huda_Wk05_2026-03-15"] = 9
	org := &fakeOrganizer{}
	sink := &fakeSink{}
	p := testPipeline(led, org, nil, Config{Audit: sink})

	p.ProcessRecording(context.Background(), coachingContext(), nil)

	require.Len(t, sink.entries, 1)
	e := sink.entries[0]
	assert.Equal(t, "info", e.Level)
	assert.Equal(t, "recording duplicate", e.Message)
	assert.Equal(t, StatusDuplicate, e.Fields["status"])
	assert.Equal(t, "Coaching_Jenny_Huda_Wk05_2026-03-15", e.Fields["canonical_name"])
	assert.Equal(t, "platform-api", e.Fields["source"])
}

func TestProcessRecordingAuditTrailFailure(t *testing.T) {
	led := newFakeLedger()
	org := &fakeOrganizer{placeErr: fmt.Errorf("archive write: no space left on device")}
	sink := &fakeSink{}
	p := testPipeline(led, org, nil, Config{Audit: sink})

	p.ProcessRecording(context.Background(), coachingContext(), []string{"a.mp4"})

	require.Len(t, sink.entries, 1)
	e := sink.entries[0]
	assert.Equal(t, "error", e.Level)
	assert.Equal(t, StatusFailed, e.Fields["status"])
	assert.Equal(t, string(apperrors.ErrArchiveWriteFailed), e.Fields["error_code"])
	assert.Equal(t, StageArchive, e.Fields["stage"])
}

func TestRunnerCounts(t *testing.T) {
	led := newFakeLedger()
	led.entries["Coaching_Jenny_Huda_Wk05_2026-03-15"] = 7
	org := &fakeOrganizer{}
	pub := &fakePublisher{}
	p := testPipeline(led, org, pub, Config{})
	runner := NewRunner(p, pub, 2, logging.NewNopLogger())

	start, _ := time.Parse("2006-01-02", "2026-03-15")
	dur := 3600
	items := []Item{
		{Context: coachingContext()}, // duplicate
		{Context: identity.RecordingContext{
			Title: "Jenny <> Huda | Session #6", StartTime: start, Duration: &dur,
		}},
		{Context: identity.RecordingContext{
			Title: "Jenny's Personal Meeting Room", StartTime: start, Duration: &dur,
		}},
	}

	result := runner.Run(context.Background(), items)

	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 2, result.Archived)
	assert.Equal(t, 1, result.Duplicates)
	assert.Equal(t, 0, result.Failed)
	assert.True(t, result.Success)
	assert.NotEmpty(t, result.BatchID)
	assert.False(t, result.CompletedAt.Before(result.StartedAt))

	require.Len(t, pub.batches, 1)
	evt := pub.batches[0]
	assert.Equal(t, result.BatchID, evt.BatchID)
	assert.Equal(t, 2, evt.Archived)
	assert.Equal(t, 1, evt.Skipped)
}

func TestRunnerRecordsErrors(t *testing.T) {
	led := newFakeLedger()
	org := &fakeOrganizer{placeErr: fmt.Errorf("archive write: disk gone")}
	p := testPipeline(led, org, nil, Config{})
	runner := NewRunner(p, nil, 1, logging.NewNopLogger())

	result := runner.Run(context.Background(), []Item{{Context: coachingContext()}})

	assert.Equal(t, 1, result.Failed)
	assert.False(t, result.Success)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "Jenny <> Huda | Session #5", result.Errors[0].Title)
	assert.Contains(t, result.Errors[0].Error, "archive write")
}

func TestRunnerEmptyInput(t *testing.T) {
	p := testPipeline(newFakeLedger(), &fakeOrganizer{}, nil, Config{})
	runner := NewRunner(p, nil, 0, logging.NewNopLogger())

	result := runner.Run(context.Background(), nil)

	assert.Equal(t, 0, result.Total)
	assert.True(t, result.Success)
}
