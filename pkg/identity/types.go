// Package identity is the name-resolution and categorization engine. It
// takes an inconsistently formatted recording title plus side-channel
// evidence (participant lists, transcript text, chat logs, host email) and
// resolves it to a normalized identity tuple {coach, student, session type,
// week} with a confidence score and an auditable method tag, then renders
// that tuple into the canonical name used as both a storage path component
// and a ledger key.
//
// Resolution is a pure function of the RecordingContext and the read-only
// roster, so recordings may be resolved concurrently with no coordination.
package identity

import (
	"strconv"
	"time"
)

// Source identifies which ingestion path produced a recording.
type Source string

const (
	// SourceAPI is the cloud platform API poll path.
	SourceAPI Source = "platform-api"
	// SourceBulkImport is the bulk file-drive import path.
	SourceBulkImport Source = "bulk-import"
	// SourceWebhook is the webhook push path.
	SourceWebhook Source = "webhook-push"
)

// indicator returns the single-letter source tag used in canonical names,
// empty for an absent or unrecognized source.
func (s Source) indicator() string {
	switch s {
	case SourceAPI:
		return "A"
	case SourceBulkImport:
		return "B"
	case SourceWebhook:
		return "C"
	default:
		return ""
	}
}

// Participant is one attendee of a recorded session.
type Participant struct {
	Name  string
	Email string
}

// RecordingContext is the full evidence bag for one recording. It is
// constructed fresh per inbound recording event by an ingestion collaborator
// and never persisted.
type RecordingContext struct {
	// Title is the raw recording topic string.
	Title string

	// Duration is the recording length in seconds, nil when unknown.
	// The distinction matters: an unknown duration must never be treated
	// as trivially short.
	Duration *int

	// StartTime is when the session started, zero when unknown.
	StartTime time.Time

	// HostEmail and HostName identify the meeting host when known.
	HostEmail string
	HostName  string

	// MeetingID is the platform's numeric meeting id, as a string.
	MeetingID string

	// SessionUUID is the platform-issued opaque session identifier.
	SessionUUID string

	Participants []Participant

	// Transcript is raw transcript text, possibly in caption format.
	Transcript string

	// ChatLog is raw chat-log text.
	ChatLog string

	Source Source
}

// DurationSeconds returns the duration and whether it is known.
func (c *RecordingContext) DurationSeconds() (int, bool) {
	if c.Duration == nil {
		return 0, false
	}
	return *c.Duration, true
}

// SessionType is the kind of session a title or its evidence indicates.
type SessionType string

const (
	SessionUnknown      SessionType = ""
	SessionCoaching     SessionType = "coaching"
	SessionGamePlan     SessionType = "game_plan"
	SessionSAT          SessionType = "sat_prep"
	SessionPersonalRoom SessionType = "personal_room"
)

// Week is the program week token. Usually numeric ("5"), but some weeks
// carry a letter suffix ("2B") which must survive round trips, so it is a
// string token rather than an int. Empty means unknown.
type Week string

// Known reports whether the week was resolved.
func (w Week) Known() bool { return w != "" }

// padded returns the rendering form: numeric weeks zero-padded to two
// digits, suffixed tokens passed through unchanged.
func (w Week) padded() string {
	if w == "" {
		return "Unknown"
	}
	if n, err := strconv.Atoi(string(w)); err == nil {
		return twoDigit(n)
	}
	return string(w)
}

func twoDigit(n int) string {
	if n >= 0 && n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

// Resolution method tags, persisted to the ledger so a human can see why a
// name was assigned.
const (
	MethodParticipants      = "participants"
	MethodTranscript        = "transcript"
	MethodChat              = "chat"
	MethodHostEmail         = "host_email"
	MethodPatternMatch      = "pattern_match"
	MethodHostEmailFallback = "host_email_fallback"
	MethodGamePlanOverride  = "gameplan_override"
	MethodInvalidTitle      = "invalid_title"
	MethodUnresolved        = "unresolved"
)

// Identity is the mutable accumulator built up during one resolution call.
// Coach and Student stay nil until resolved; the "Unknown" string sentinels
// exist only at the rendering boundary.
type Identity struct {
	Coach   *string
	Student *string
	Week    Week
	Session SessionType
	Method  string
}

// CoachName returns the resolved coach name or "".
func (id *Identity) CoachName() string {
	if id.Coach == nil {
		return ""
	}
	return *id.Coach
}

// StudentName returns the resolved student name or "".
func (id *Identity) StudentName() string {
	if id.Student == nil {
		return ""
	}
	return *id.Student
}

// Category is the archive branch a recording is filed under. Assignment is
// a pure function of Identity + RecordingContext so it can be re-derived
// from persisted data for audit and repair.
type Category string

const (
	CategoryCoaching Category = "Coaching"
	CategoryGamePlan Category = "Coaching_GamePlan"
	CategoryMisc     Category = "MISC"
	CategoryTrivial  Category = "TRIVIAL"
	CategorySAT      Category = "SAT"
)

// Result is what Resolve returns: the identity tuple, its category, the
// rendered canonical name, and an additive confidence score in [0,100].
type Result struct {
	Identity      Identity
	Category      Category
	CanonicalName string
	Confidence    int
}

func ptr(s string) *string { return &s }
