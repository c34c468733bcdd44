package identity

import "strings"

// The categorizer is a strictly ordered decision table: the first matching
// rule wins and there is no fallthrough. Assignment is a pure function of
// the (possibly partial) identity tuple plus raw recording metadata, so a
// category can always be re-derived from persisted ledger columns.

// trivialityThresholdSeconds is the duration below which a session with no
// resolved counterpart is trivial rather than miscellaneous.
const trivialityThresholdSeconds = 900

// categorySubject is what a categorizer rule sees.
type categorySubject struct {
	identity *Identity
	ctx      *RecordingContext
	resolver *Resolver
}

var categoryRules = []Rule[categorySubject, Category]{
	{
		// SAT sessions carry their own archive branch regardless of the
		// coaching-pair rules below.
		Name: "sat_session",
		Apply: func(s categorySubject) (Category, bool) {
			if s.identity.Session == SessionSAT {
				return CategorySAT, true
			}
			return "", false
		},
	},
	{
		Name: "gameplan_with_student",
		Apply: func(s categorySubject) (Category, bool) {
			if hasGamePlanIndicator(s.ctx.Title) && s.resolver.validStudent(s.identity) {
				return CategoryGamePlan, true
			}
			return "", false
		},
	},
	{
		Name: "coaching_keyword_pair",
		Apply: func(s categorySubject) (Category, bool) {
			if hasCoachingKeyword(s.ctx.Title) &&
				s.resolver.validCoach(s.identity) && s.resolver.validStudent(s.identity) {
				return CategoryCoaching, true
			}
			return "", false
		},
	},
	{
		Name: "resolved_pair",
		Apply: func(s categorySubject) (Category, bool) {
			if s.resolver.validCoach(s.identity) && s.resolver.validStudent(s.identity) {
				return CategoryCoaching, true
			}
			return "", false
		},
	},
	{
		// An administrative account as the sole resolved identity: a short
		// or test-flavored recording is trivial, anything else is filed as
		// miscellaneous. An unknown duration is never treated as short.
		Name: "admin_without_student",
		Apply: func(s categorySubject) (Category, bool) {
			if !s.resolver.hasAdminIndicator(s.ctx, s.identity) || s.resolver.validStudent(s.identity) {
				return "", false
			}
			if secs, known := s.ctx.DurationSeconds(); known && secs < trivialityThresholdSeconds {
				return CategoryTrivial, true
			}
			if hasTrivialKeyword(s.ctx.Title) {
				return CategoryTrivial, true
			}
			return CategoryMisc, true
		},
	},
	{
		Name: "personal_room_coach",
		Apply: func(s categorySubject) (Category, bool) {
			if isPersonalRoomTitle(s.ctx.Title) && s.resolver.validCoach(s.identity) {
				return CategoryCoaching, true
			}
			return "", false
		},
	},
	{
		Name: "coach_only",
		Apply: func(s categorySubject) (Category, bool) {
			if s.resolver.validCoach(s.identity) {
				return CategoryCoaching, true
			}
			return "", false
		},
	},
	{
		Name: "short_duration",
		Apply: func(s categorySubject) (Category, bool) {
			if secs, known := s.ctx.DurationSeconds(); known && secs < trivialityThresholdSeconds {
				return CategoryTrivial, true
			}
			return "", false
		},
	},
}

// Categorize assigns an archive category to a resolved identity. Exported so
// the ledger's audit/repair path can re-derive categories from persisted
// identity columns.
func (r *Resolver) Categorize(id *Identity, ctx *RecordingContext) Category {
	subject := categorySubject{identity: id, ctx: ctx, resolver: r}
	if cat, _, ok := evalFirst(categoryRules, subject); ok {
		return cat
	}
	return CategoryMisc
}

// validCoach reports whether the coach slot holds a usable identity: not
// nil, not empty, and not an administrative account.
func (r *Resolver) validCoach(id *Identity) bool {
	return r.validRole(id.Coach)
}

// validStudent applies the same validity rules to the student slot.
func (r *Resolver) validStudent(id *Identity) bool {
	return r.validRole(id.Student)
}

func (r *Resolver) validRole(name *string) bool {
	if name == nil {
		return false
	}
	n := strings.TrimSpace(*name)
	if n == "" || strings.EqualFold(n, "unknown") {
		return false
	}
	return !r.roster.IsAdminAccount(n)
}

// hasAdminIndicator reports whether the title, host, or resolved coach
// matches an administrative account. Admin identities must never be mistaken
// for one half of a coaching pair.
func (r *Resolver) hasAdminIndicator(ctx *RecordingContext, id *Identity) bool {
	if r.roster.IsAdminAccount(ctx.HostName) {
		return true
	}
	if id.Coach != nil && r.roster.IsAdminAccount(*id.Coach) {
		return true
	}
	if at := strings.Index(ctx.HostEmail, "@"); at > 0 {
		if r.roster.IsAdminAccount(ctx.HostEmail[:at]) {
			return true
		}
	}
	return r.roster.HasAdminIndicator(ctx.Title)
}
