package identity

import (
	"regexp"
	"strings"

	"github.com/sessionarc/sessionarc/pkg/logging"
)

// Canonical name rendering. The rendered string is the only artifact that
// crosses the core's boundary outward: the organizer uses it as a folder
// name (after SanitizeFolderName) and the ledger uses it verbatim as the
// lookup/dedup key, so rendering must be fully deterministic.

const (
	unknownCoachToken   = "unknown"
	unknownStudentToken = "Unknown"
	unknownDateToken    = "UnknownDate"

	// noShowToken marks a MISC personal-room recording where metadata still
	// identifies both parties: someone opened the room and the counterpart
	// never joined.
	noShowToken = "NO_SHOW"
)

var (
	// Platform-issued session identifiers are base64-like, 22+ characters,
	// terminated with "==".
	platformUUIDPattern = regexp.MustCompile(`^[A-Za-z0-9+/=]{22,}$`)

	// Hex-encoded ids show up when a recording arrived through a transport
	// that re-encoded the identifier.
	hexIDPattern = regexp.MustCompile(`^[0-9a-fA-F]{16,}$`)

	unsafePathChars = regexp.MustCompile(`[<>:"/\\|?*]`)
)

// renderCanonicalName builds the `_`-delimited canonical token sequence for
// a categorized identity.
func (r *Resolver) renderCanonicalName(id *Identity, cat Category, ctx *RecordingContext) string {
	var tokens []string

	switch cat {
	case CategoryGamePlan:
		tokens = append(tokens, string(CategoryGamePlan))
	case CategoryTrivial:
		tokens = append(tokens, string(CategoryTrivial))
	default:
		tokens = append(tokens, r.categoryToken(id, cat, ctx))
	}

	if ind := ctx.Source.indicator(); ind != "" {
		tokens = append(tokens, ind)
	}

	switch cat {
	case CategoryGamePlan:
		tokens = append(tokens, sanitizeToken(r.roster.ProgramLead()))
	default:
		tokens = append(tokens, coachToken(id.Coach))
	}
	tokens = append(tokens, studentToken(id.Student))

	// TRIVIAL names carry no week token at all; game plans are always the
	// fixed week-1 sentinel, rendered unpadded.
	switch cat {
	case CategoryTrivial:
	case CategoryGamePlan:
		tokens = append(tokens, "Wk1")
	default:
		tokens = append(tokens, "Wk"+sanitizeToken(id.Week.padded()))
	}

	tokens = append(tokens, dateToken(ctx))

	name := strings.Join(tokens, "_")
	if suffix := r.idSuffix(ctx); suffix != "" {
		name += "_" + suffix
	}
	return name
}

// categoryToken maps the category to its leading name token, substituting
// NO_SHOW for a MISC personal-room recording whose metadata identifies both
// parties.
func (r *Resolver) categoryToken(id *Identity, cat Category, ctx *RecordingContext) string {
	if cat == CategoryMisc && isPersonalRoomTitle(ctx.Title) &&
		r.validCoach(id) && r.validStudent(id) {
		return noShowToken
	}
	return string(cat)
}

// coachToken renders the coach as a whitespace-stripped concatenation, so
// "Jamie JudahBram" folders stay single tokens.
func coachToken(coach *string) string {
	if coach == nil || strings.TrimSpace(*coach) == "" {
		return unknownCoachToken
	}
	return sanitizeToken(strings.Join(strings.Fields(*coach), ""))
}

// studentToken renders the student as a capitalized first name only, which
// keeps folder names short and stable across alias variations.
func studentToken(student *string) string {
	if student == nil || strings.TrimSpace(*student) == "" {
		return unknownStudentToken
	}
	return sanitizeToken(capitalizeFirst(firstNameOf(*student)))
}

func dateToken(ctx *RecordingContext) string {
	if ctx.StartTime.IsZero() {
		return unknownDateToken
	}
	return ctx.StartTime.Format("2006-01-02")
}

// idSuffix renders the trailing machine-id pair. The session identifier
// should be in the platform's base64-like format; a hex id cannot be
// recovered into that format, so it is rendered as-is with a warning, since
// downstream consistency depends on a stable identifier being present even
// when non-canonical.
func (r *Resolver) idSuffix(ctx *RecordingContext) string {
	if ctx.MeetingID == "" && ctx.SessionUUID == "" {
		return ""
	}

	uuid := ctx.SessionUUID
	if uuid != "" && !isPlatformUUID(uuid) {
		if hexIDPattern.MatchString(uuid) {
			r.logger.Warn("session id is hex-encoded, original platform format unrecoverable",
				logging.F("session_uuid", uuid),
				logging.F("meeting_id", ctx.MeetingID))
		} else {
			r.logger.Warn("session id not in platform format",
				logging.F("session_uuid", uuid))
		}
	}

	return "M:" + ctx.MeetingID + "U:" + uuid
}

// isPlatformUUID reports whether an identifier is in the platform's issued
// format: base64-like, at least 22 characters, ending in "==".
func isPlatformUUID(id string) bool {
	return strings.HasSuffix(id, "==") && platformUUIDPattern.MatchString(id)
}

// sanitizeToken strips characters that are unsafe in a path component from
// an identity token.
func sanitizeToken(s string) string {
	return unsafePathChars.ReplaceAllString(s, "")
}

// SanitizeFolderName makes a full canonical name safe for use as a
// file-system path component. The machine-id suffix markers use ':', which
// is legal in the ledger key but not in a folder name.
func SanitizeFolderName(name string) string {
	return unsafePathChars.ReplaceAllString(name, "")
}
