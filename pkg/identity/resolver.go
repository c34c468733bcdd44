package identity

import (
	"strings"

	"github.com/sessionarc/sessionarc/pkg/logging"
	"github.com/sessionarc/sessionarc/pkg/roster"
)

// Resolver composes the evidence extractors, pattern matcher, categorizer,
// and canonical renderer into the end-to-end Resolve operation. It holds
// only the immutable roster and a logger, so one Resolver may serve any
// number of concurrent callers.
type Resolver struct {
	roster *roster.Roster
	logger logging.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the resolver's logger.
func WithLogger(logger logging.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewResolver creates a Resolver over the given roster.
func NewResolver(ros *roster.Roster, opts ...Option) *Resolver {
	r := &Resolver{
		roster: ros,
		logger: logging.MustGlobal().With(logging.F("component", "identity")),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Roster returns the roster the resolver was built with.
func (r *Resolver) Roster() *roster.Roster {
	return r.roster
}

// Resolve derives the identity tuple, category, canonical name, and
// confidence for one recording. Its contract is total: every input,
// including an empty title, yields a well-formed Result and never an error.
func (r *Resolver) Resolve(ctx RecordingContext) Result {
	if strings.TrimSpace(ctx.Title) == "" {
		return r.degenerateResult(&ctx)
	}

	id := Identity{Method: MethodUnresolved}

	// Step 1: evidence extractors in fidelity order, short-circuiting
	// fields as they resolve.
	r.runEvidence(&ctx, &id)

	// Step 2: pattern matching over the title for whatever is still open.
	patternMatched := false
	if id.Coach == nil || id.Student == nil {
		if res, ruleName, ok := r.matchPatterns(ctx.Title); ok {
			patternMatched = true
			mergePattern(&id, res)
			id.Method = MethodPatternMatch
			r.logger.Debug("pattern rule matched",
				logging.F("rule", ruleName),
				logging.F("title", ctx.Title))
		}
	}

	// A game-plan title belongs to the program lead even when evidence
	// already named a coach; mergePattern never displaces evidence, so the
	// reassignment happens here.
	if id.Session == SessionGamePlan {
		id.Coach = ptr(r.roster.ProgramLead())
	}

	// Step 3: host-email fallback as the absolute last resort. The early
	// host-email attempt in runEvidence usually makes this a no-op; it
	// stays as the final safety net after patterns are exhausted.
	if id.Coach == nil {
		if coach := r.extractCoachFromHostEmail(ctx.HostEmail); coach != nil {
			id.Coach = coach
			id.Method = MethodHostEmailFallback
		}
	}

	// Step 4: personal-room post-pass. A compound coach name like
	// "Jamie JudahBram" must not be misread as coach "Jamie" plus student
	// "JudahBram"; splitPersonalRoomName guards that via the full-name
	// coach check, so this pass only fills a still-open student slot.
	if id.Student == nil && isPersonalRoomTitle(ctx.Title) {
		if m := personalRoomPattern.FindStringSubmatch(ctx.Title); m != nil {
			if _, student := splitPersonalRoomName(r, cleanName(m[1])); student != nil {
				id.Student = student
			}
		}
	}

	if id.Week == "" {
		id.Week = extractWeekToken(ctx.Title)
	}

	// Step 5: categorize on the possibly partial identity.
	cat := r.Categorize(&id, &ctx)

	// Step 6: Game Plan override. Whatever the extractors found, a game
	// plan belongs to the program lead and is always week 1.
	if cat == CategoryGamePlan {
		id.Coach = ptr(r.roster.ProgramLead())
		id.Week = Week("1")
		id.Session = SessionGamePlan
		if id.Method == MethodUnresolved {
			id.Method = MethodGamePlanOverride
		}
	}

	name := r.renderCanonicalName(&id, cat, &ctx)
	confidence := scoreConfidence(r, &id, cat, patternMatched)

	r.logger.Debug("recording resolved",
		logging.F("canonical_name", name),
		logging.F("category", string(cat)),
		logging.F("method", id.Method),
		logging.F("confidence", confidence))

	return Result{
		Identity:      id,
		Category:      cat,
		CanonicalName: name,
		Confidence:    confidence,
	}
}

// runEvidence tries each evidence source in fidelity order, stopping as soon
// as both roles are resolved.
func (r *Resolver) runEvidence(ctx *RecordingContext, id *Identity) {
	if len(ctx.Participants) > 0 {
		r.extractFromParticipants(ctx.Participants, id)
	}
	if id.Coach != nil && id.Student != nil {
		return
	}

	if id.Student == nil {
		if student := r.extractStudentFromTranscript(ctx.Transcript, id.Coach); student != nil {
			id.Student = student
			id.Method = MethodTranscript
		}
	}
	if id.Coach != nil && id.Student != nil {
		return
	}

	if id.Student == nil {
		if student := r.extractStudentFromChat(ctx.ChatLog, id.Coach); student != nil {
			id.Student = student
			id.Method = MethodChat
		}
	}
	if id.Coach != nil && id.Student != nil {
		return
	}

	if id.Coach == nil {
		if coach := r.extractCoachFromHostEmail(ctx.HostEmail); coach != nil {
			id.Coach = coach
			id.Method = MethodHostEmail
		}
	}
}

// mergePattern fills still-open identity fields from a pattern result.
// Evidence-derived fields always win over title-derived ones.
func mergePattern(id *Identity, res patternResult) {
	if id.Coach == nil && res.coach != nil {
		id.Coach = res.coach
	}
	if id.Student == nil && res.student != nil {
		id.Student = res.student
	}
	if id.Week == "" && res.week != "" {
		id.Week = res.week
	}
	if id.Session == SessionUnknown && res.session != SessionUnknown {
		id.Session = res.session
	}
}

// scoreConfidence computes the additive confidence score. The weight table
// is inherited as-is: pattern and host-email paths score above the baseline
// even though evidence-based resolution is the higher-fidelity path.
func scoreConfidence(r *Resolver, id *Identity, cat Category, patternMatched bool) int {
	score := 0
	switch {
	case patternMatched:
		score += 40
	case id.Method == MethodHostEmail || id.Method == MethodHostEmailFallback:
		score += 30
	default:
		score += 10
	}
	if r.validCoach(id) {
		score += 20
	}
	if r.validStudent(id) {
		score += 20
	}
	if id.Week.Known() {
		score += 10
	}
	if cat != CategoryMisc {
		score += 10
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

// degenerateResult is the fixed error identity for a missing or empty
// title: MISC, both roles unknown, confidence zero, and a still-rendered
// canonical name so the caller always has a key.
func (r *Resolver) degenerateResult(ctx *RecordingContext) Result {
	id := Identity{
		Coach:   ptr(unknownCoachToken),
		Student: ptr(unknownStudentToken),
		Method:  MethodInvalidTitle,
	}
	name := r.renderCanonicalName(&id, CategoryMisc, ctx)

	r.logger.Warn("recording has no usable title, resolved to degenerate identity",
		logging.F("canonical_name", name),
		logging.F("meeting_id", ctx.MeetingID))

	return Result{
		Identity:      id,
		Category:      CategoryMisc,
		CanonicalName: name,
		Confidence:    0,
	}
}
