package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/sessionarc/sessionarc/pkg/identity"
)

func strPtr(s string) *string { return &s }

func TestEntryFromResult(t *testing.T) {
	start := time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC)
	ctx := &identity.RecordingContext{
		Title:       "1. Jenny & Huda Week 5",
		StartTime:   start,
		MeetingID:   "81234567890",
		SessionUUID: "aBcDeFgHiJkLmNoPqRsT==",
		Source:      identity.SourceAPI,
	}

	res := identity.Result{
		Identity: identity.Identity{
			Coach:   strPtr("Jenny"),
			Student: strPtr("Huda"),
			Week:    identity.Week("5"),
			Session: identity.SessionCoaching,
			Method:  identity.MethodPatternMatch,
		},
		Category:      identity.CategoryCoaching,
		CanonicalName: "Coaching_A_Jenny_Huda_Wk05_2026-03-15",
		Confidence:    100,
	}

	e := EntryFromResult(res, ctx)

	if e.CanonicalName != "Coaching_A_Jenny_Huda_Wk05_2026-03-15" {
		t.Errorf("unexpected canonical name: %s", e.CanonicalName)
	}
	if e.Category != "Coaching" {
		t.Errorf("unexpected category: %s", e.Category)
	}
	if e.Coach == nil || *e.Coach != "Jenny" {
		t.Errorf("unexpected coach: %v", e.Coach)
	}
	if e.Student == nil || *e.Student != "Huda" {
		t.Errorf("unexpected student: %v", e.Student)
	}
	if e.Week != "5" {
		t.Errorf("unexpected week: %s", e.Week)
	}
	if e.Method != identity.MethodPatternMatch {
		t.Errorf("unexpected method: %s", e.Method)
	}
	if e.Confidence != 100 {
		t.Errorf("unexpected confidence: %d", e.Confidence)
	}
	if e.Source != "platform-api" {
		t.Errorf("unexpected source: %s", e.Source)
	}
	if e.MeetingID != "81234567890" {
		t.Errorf("unexpected meeting id: %s", e.MeetingID)
	}
	if e.RecordedAt == nil || !e.RecordedAt.Equal(start) {
		t.Errorf("unexpected recorded_at: %v", e.RecordedAt)
	}
}

func TestEntryFromResultUnresolved(t *testing.T) {
	res := identity.Result{
		Identity: identity.Identity{
			Method: identity.MethodUnresolved,
		},
		Category:      identity.CategoryMisc,
		CanonicalName: "MISC_unknown_Unknown_WkUnknown_2026-03-15",
		Confidence:    20,
	}

	e := EntryFromResult(res, &identity.RecordingContext{})

	if e.Coach != nil {
		t.Errorf("expected nil coach, got %v", *e.Coach)
	}
	if e.Student != nil {
		t.Errorf("expected nil student, got %v", *e.Student)
	}
	if e.RecordedAt != nil {
		t.Errorf("expected nil recorded_at for zero start time, got %v", e.RecordedAt)
	}
	if e.Week != "" {
		t.Errorf("expected empty week, got %q", e.Week)
	}
}

func TestEntryFromResultNilContext(t *testing.T) {
	res := identity.Result{
		Category:      identity.CategoryTrivial,
		CanonicalName: "TRIVIAL_unknown_Unknown_2026-03-15",
	}

	e := EntryFromResult(res, nil)
	if e.Source != "" {
		t.Errorf("expected empty source, got %q", e.Source)
	}
	if e.CanonicalName != "TRIVIAL_unknown_Unknown_2026-03-15" {
		t.Errorf("unexpected canonical name: %s", e.CanonicalName)
	}
}

func TestUpsertRequiresCanonicalName(t *testing.T) {
	repo := &Repository{}
	if _, err := repo.Upsert(context.Background(), &Entry{}); err == nil {
		t.Fatal("expected error for empty canonical name")
	}
}

func TestNullIfEmpty(t *testing.T) {
	if nullIfEmpty("") != nil {
		t.Error("expected nil for empty string")
	}
	if p := nullIfEmpty("x"); p == nil || *p != "x" {
		t.Error("expected pointer to value for non-empty string")
	}
}
