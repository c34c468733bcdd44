package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_NumberedSessionTitle(t *testing.T) {
	r := newTestResolver(t)
	res := r.Resolve(RecordingContext{
		Title:     "Jenny <> Huda | Session #5",
		StartTime: mustTime(t, "2026-03-15"),
		Duration:  intPtr(3600),
	})

	require.NotNil(t, res.Identity.Coach)
	require.NotNil(t, res.Identity.Student)
	assert.Equal(t, "Jenny", *res.Identity.Coach)
	assert.Equal(t, "Huda", *res.Identity.Student)
	assert.Equal(t, Week("5"), res.Identity.Week)
	assert.Equal(t, CategoryCoaching, res.Category)
	assert.Equal(t, "Coaching_Jenny_Huda_Wk05_2026-03-15", res.CanonicalName)
	assert.Equal(t, 100, res.Confidence)
}

func TestResolve_EvidenceBeatsTitle(t *testing.T) {
	r := newTestResolver(t)
	res := r.Resolve(RecordingContext{
		// Title names the wrong student; participant evidence should win.
		Title:     "Jenny & Maya: Week 4",
		StartTime: mustTime(t, "2026-03-15"),
		Participants: []Participant{
			{Name: "Jenny Duan", Email: "jenny@ascendprep.com"},
			{Name: "Huda Khan", Email: "huda@gmail.com"},
		},
	})

	require.NotNil(t, res.Identity.Coach)
	require.NotNil(t, res.Identity.Student)
	assert.Equal(t, "Jenny", *res.Identity.Coach)
	assert.Equal(t, "Huda", *res.Identity.Student)
	assert.Equal(t, Week("4"), res.Identity.Week)
	assert.Equal(t, CategoryCoaching, res.Category)
	assert.Equal(t, "Coaching_Jenny_Huda_Wk04_2026-03-15", res.CanonicalName)
}

func TestResolve_TranscriptFillsStudent(t *testing.T) {
	r := newTestResolver(t)
	res := r.Resolve(RecordingContext{
		Title:      "Weekly check-in",
		StartTime:  mustTime(t, "2026-03-15"),
		HostEmail:  "jenny@ascendprep.com",
		Transcript: sampleTranscript,
	})

	require.NotNil(t, res.Identity.Coach)
	require.NotNil(t, res.Identity.Student)
	assert.Equal(t, "Jenny", *res.Identity.Coach)
	assert.Equal(t, "Huda", *res.Identity.Student)
	assert.Equal(t, CategoryCoaching, res.Category)
}

func TestResolve_TrivialShortRecording(t *testing.T) {
	r := newTestResolver(t)
	res := r.Resolve(RecordingContext{
		Title:     "Test Recording",
		StartTime: mustTime(t, "2026-03-15"),
		Duration:  intPtr(300),
	})

	assert.Equal(t, CategoryTrivial, res.Category)
	assert.Equal(t, "TRIVIAL_unknown_Unknown_2026-03-15", res.CanonicalName)
	assert.Equal(t, 20, res.Confidence)
}

func TestResolve_UnknownDurationNeverTrivial(t *testing.T) {
	r := newTestResolver(t)
	res := r.Resolve(RecordingContext{
		Title:     "Test Recording",
		StartTime: mustTime(t, "2026-03-15"),
	})

	assert.Equal(t, CategoryMisc, res.Category)
}

func TestResolve_GamePlanOverride(t *testing.T) {
	r := newTestResolver(t)
	res := r.Resolve(RecordingContext{
		Title:     "Game Plan - JennyDuan & Arshiya",
		StartTime: mustTime(t, "2026-03-15"),
		Duration:  intPtr(2700),
	})

	require.NotNil(t, res.Identity.Coach)
	require.NotNil(t, res.Identity.Student)
	assert.Equal(t, "Jenny", *res.Identity.Coach)
	assert.Equal(t, "Arshiya", *res.Identity.Student)
	assert.Equal(t, Week("1"), res.Identity.Week)
	assert.Equal(t, SessionGamePlan, res.Identity.Session)
	assert.Equal(t, CategoryGamePlan, res.Category)
	assert.Equal(t, "Coaching_GamePlan_Jenny_Arshiya_Wk1_2026-03-15", res.CanonicalName)
	assert.Equal(t, 100, res.Confidence)
}

func TestResolve_GamePlanOverridesResolvedCoach(t *testing.T) {
	r := newTestResolver(t)
	res := r.Resolve(RecordingContext{
		Title:     "Game Plan - Arshiya",
		StartTime: mustTime(t, "2026-03-15"),
		Participants: []Participant{
			{Name: "Jamie JudahBram", Email: "jamie@ascendprep.com"},
			{Name: "Arshiya", Email: "arshiya@gmail.com"},
		},
	})

	// Whoever ran the session, a game plan is filed under the program lead.
	require.NotNil(t, res.Identity.Coach)
	assert.Equal(t, "Jenny", *res.Identity.Coach)
	assert.Equal(t, Week("1"), res.Identity.Week)
	assert.Equal(t, CategoryGamePlan, res.Category)
}

func TestResolve_GamePlanWithoutStudent(t *testing.T) {
	r := newTestResolver(t)
	res := r.Resolve(RecordingContext{
		// Another coach's name in a game-plan title, no student anywhere.
		Title:     "Game Plan - Jamie",
		StartTime: mustTime(t, "2026-03-15"),
	})

	require.NotNil(t, res.Identity.Coach)
	assert.Equal(t, "Jenny", *res.Identity.Coach)
	assert.Nil(t, res.Identity.Student)
	assert.Equal(t, SessionGamePlan, res.Identity.Session)
	assert.Equal(t, CategoryCoaching, res.Category)
	assert.Equal(t, "Coaching_Jenny_Unknown_WkUnknown_2026-03-15", res.CanonicalName)
}

func TestResolve_GamePlanWithoutStudentHostEvidence(t *testing.T) {
	r := newTestResolver(t)
	res := r.Resolve(RecordingContext{
		Title:     "Game Plan",
		StartTime: mustTime(t, "2026-03-15"),
		HostEmail: "jamie@ascendprep.com",
	})

	// Host-email evidence named Jamie; the game plan still files under
	// the program lead.
	require.NotNil(t, res.Identity.Coach)
	assert.Equal(t, "Jenny", *res.Identity.Coach)
	assert.Equal(t, SessionGamePlan, res.Identity.Session)
}

func TestResolve_PersonalRoomCoachOnly(t *testing.T) {
	r := newTestResolver(t)
	res := r.Resolve(RecordingContext{
		Title:     "Jamie JudahBram's Personal Meeting Room",
		StartTime: mustTime(t, "2026-03-15"),
		Duration:  intPtr(4291),
	})

	require.NotNil(t, res.Identity.Coach)
	assert.Equal(t, "Jamie", *res.Identity.Coach)
	assert.Nil(t, res.Identity.Student)
	assert.Equal(t, CategoryCoaching, res.Category)
}

func TestResolve_HostEmailFallback(t *testing.T) {
	r := newTestResolver(t)
	res := r.Resolve(RecordingContext{
		Title:     "Untitled session",
		StartTime: mustTime(t, "2026-03-15"),
		HostEmail: "jenny.duan@ascendprep.com",
		Duration:  intPtr(3000),
	})

	require.NotNil(t, res.Identity.Coach)
	assert.Equal(t, "Jenny", *res.Identity.Coach)
	assert.Equal(t, MethodHostEmail, res.Identity.Method)
	assert.Equal(t, CategoryCoaching, res.Category)
	// 30 host-email + 20 coach + 10 non-misc category.
	assert.Equal(t, 60, res.Confidence)
}

func TestResolve_EmptyTitleDegenerate(t *testing.T) {
	r := newTestResolver(t)

	for _, title := range []string{"", "   ", "\t"} {
		res := r.Resolve(RecordingContext{
			Title:     title,
			StartTime: mustTime(t, "2026-03-15"),
		})

		require.NotNil(t, res.Identity.Coach)
		require.NotNil(t, res.Identity.Student)
		assert.Equal(t, "unknown", *res.Identity.Coach)
		assert.Equal(t, "Unknown", *res.Identity.Student)
		assert.Equal(t, MethodInvalidTitle, res.Identity.Method)
		assert.Equal(t, CategoryMisc, res.Category)
		assert.Equal(t, "MISC_unknown_Unknown_WkUnknown_2026-03-15", res.CanonicalName)
		assert.Equal(t, 0, res.Confidence)
	}
}

func TestResolve_SourceIndicatorInName(t *testing.T) {
	r := newTestResolver(t)
	res := r.Resolve(RecordingContext{
		Title:     "Jenny <> Huda | Session #5",
		StartTime: mustTime(t, "2026-03-15"),
		Source:    SourceWebhook,
	})

	assert.Equal(t, "Coaching_C_Jenny_Huda_Wk05_2026-03-15", res.CanonicalName)
}

func TestResolve_IsDeterministic(t *testing.T) {
	r := newTestResolver(t)
	ctx := RecordingContext{
		Title:     "Jamie JudahBram & Arshiya - prep program",
		StartTime: mustTime(t, "2026-03-15"),
		Duration:  intPtr(3300),
		Participants: []Participant{
			{Name: "Jamie JudahBram", Email: "jamie@ascendprep.com"},
			{Name: "Arshi", Email: "arshiya@gmail.com"},
		},
	}

	first := r.Resolve(ctx)
	for i := 0; i < 10; i++ {
		again := r.Resolve(ctx)
		assert.Equal(t, first.CanonicalName, again.CanonicalName)
		assert.Equal(t, first.Category, again.Category)
		assert.Equal(t, first.Confidence, again.Confidence)
	}
}

func TestResolve_MachineIDSuffix(t *testing.T) {
	r := newTestResolver(t)
	res := r.Resolve(RecordingContext{
		Title:       "Jenny <> Huda | Session #5",
		StartTime:   mustTime(t, "2026-03-15"),
		MeetingID:   "81234567890",
		SessionUUID: "aBcDeFgHiJkLmNoPqRsT==",
	})

	assert.Equal(t,
		"Coaching_Jenny_Huda_Wk05_2026-03-15_M:81234567890U:aBcDeFgHiJkLmNoPqRsT==",
		res.CanonicalName)
}
