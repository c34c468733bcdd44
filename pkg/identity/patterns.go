package identity

import (
	"regexp"
	"strings"
)

// The pattern matcher runs only when evidence extraction left the identity
// incomplete. Rules are an ordered table evaluated by the generic
// first-match-wins driver; order encodes precedence, from the most specific
// session-numbering templates down to the personal-meeting-room catch-all.

// patternSubject is what a pattern rule sees.
type patternSubject struct {
	title    string
	resolver *Resolver
}

// patternResult carries whatever fields a rule managed to extract.
type patternResult struct {
	coach   *string
	student *string
	week    Week
	session SessionType
}

var (
	// "Jenny <> Huda | Session #5"
	sessionNumberedPattern = regexp.MustCompile(`^\s*(.+?)\s*<>\s*(.+?)\s*\|\s*Session\s*#?\s*(\d+[A-Za-z]?)\s*$`)

	// "Jenny & Huda: Week 5"
	weekColonPattern = regexp.MustCompile(`^\s*(.+?)\s*&\s*(.+?)\s*:\s*Week\s*#?\s*(\d+[A-Za-z]?)\b`)

	// Delimiter-only shapes, no week in the capture.
	arrowPattern     = regexp.MustCompile(`^\s*(.+?)\s*<->\s*(.+?)\s*$`)
	anglePattern     = regexp.MustCompile(`^\s*(.+?)\s*<>\s*(.+?)\s*$`)
	ampersandPattern = regexp.MustCompile(`^\s*(.+?)\s*&\s*(.+?)\s*$`)
	dashPattern      = regexp.MustCompile(`^\s*(.+?)\s+-\s+(.+?)\s*$`)

	// "Jenny and Huda" (role direction unknown, needs smart detection).
	andPattern = regexp.MustCompile(`(?i)^\s*([A-Za-z][A-Za-z .'\-]*?)\s+and\s+([A-Za-z][A-Za-z .'\-]*?)\s*$`)

	// "Jamie JudahBram's Personal Meeting Room"
	personalRoomPattern = regexp.MustCompile(`(?i)^\s*(.+?)(?:'|\x{2019})s\s+Personal\s+Meeting\s+Room`)

	// Week token anywhere in a title: "Week 5", "Wk 2B", "Session #3".
	weekTokenPattern    = regexp.MustCompile(`(?i)\b(?:week|wk)\s*#?\s*(\d+[A-Za-z]?)\b`)
	sessionTokenPattern = regexp.MustCompile(`(?i)\bsession\s*#?\s*(\d+[A-Za-z]?)\b`)
)

// notKeywordTitle guards the generic delimiter rules: a title like
// "Game Plan - JennyDuan & Arshiya" or "SAT Prep - Arshiya" must fall
// through to its keyword rule instead of being split on its delimiter.
func notKeywordTitle(s patternSubject) bool {
	return !hasGamePlanIndicator(s.title) && !hasSATIndicator(s.title)
}

// patternRules is the ordered title-shape table. First match wins.
var patternRules = []Rule[patternSubject, patternResult]{
	{
		Name: "session_numbered",
		Apply: func(s patternSubject) (patternResult, bool) {
			m := sessionNumberedPattern.FindStringSubmatch(s.title)
			if m == nil {
				return patternResult{}, false
			}
			return patternResult{
				coach:   ptr(cleanName(m[1])),
				student: ptr(cleanName(m[2])),
				week:    Week(strings.ToUpper(m[3])),
				session: SessionCoaching,
			}, true
		},
	},
	{
		Name:  "week_colon",
		Guard: notKeywordTitle,
		Apply: func(s patternSubject) (patternResult, bool) {
			m := weekColonPattern.FindStringSubmatch(s.title)
			if m == nil {
				return patternResult{}, false
			}
			return patternResult{
				coach:   ptr(cleanName(m[1])),
				student: ptr(cleanName(m[2])),
				week:    Week(strings.ToUpper(m[3])),
				session: SessionCoaching,
			}, true
		},
	},
	{
		Name: "arrow_delimited",
		Apply: func(s patternSubject) (patternResult, bool) {
			return delimitedNames(arrowPattern, s.title)
		},
	},
	{
		Name: "angle_delimited",
		Apply: func(s patternSubject) (patternResult, bool) {
			return delimitedNames(anglePattern, s.title)
		},
	},
	{
		Name:  "ampersand_delimited",
		Guard: notKeywordTitle,
		Apply: func(s patternSubject) (patternResult, bool) {
			return delimitedNames(ampersandPattern, s.title)
		},
	},
	{
		Name:  "dash_delimited",
		Guard: notKeywordTitle,
		Apply: func(s patternSubject) (patternResult, bool) {
			return delimitedNames(dashPattern, s.title)
		},
	},
	{
		Name:  "and_names",
		Guard: notKeywordTitle,
		Apply: func(s patternSubject) (patternResult, bool) {
			m := andPattern.FindStringSubmatch(s.title)
			if m == nil {
				return patternResult{}, false
			}
			if !looksLikeName(cleanName(m[1])) || !looksLikeName(cleanName(m[2])) {
				return patternResult{}, false
			}
			coach, student := assignAndRoles(s.resolver, cleanName(m[1]), cleanName(m[2]))
			return patternResult{
				coach:   coach,
				student: student,
				week:    extractWeekToken(s.title),
				session: SessionCoaching,
			}, true
		},
	},
	{
		Name: "game_plan",
		Apply: func(s patternSubject) (patternResult, bool) {
			if !hasGamePlanIndicator(s.title) {
				return patternResult{}, false
			}
			// The extractor's coach is only used to split glued names
			// like "JennyDuan"; a game plan always belongs to the
			// program lead, whoever the title names.
			_, student := extractGamePlanNames(s.resolver, s.title)
			return patternResult{
				coach:   ptr(s.resolver.roster.ProgramLead()),
				student: student,
				session: SessionGamePlan,
			}, true
		},
	},
	{
		Name: "sat_prep",
		Apply: func(s patternSubject) (patternResult, bool) {
			if !hasSATIndicator(s.title) {
				return patternResult{}, false
			}
			return patternResult{
				student: extractSATStudent(s.resolver, s.title),
				week:    extractWeekToken(s.title),
				session: SessionSAT,
			}, true
		},
	},
	{
		Name: "personal_room",
		Apply: func(s patternSubject) (patternResult, bool) {
			m := personalRoomPattern.FindStringSubmatch(s.title)
			if m == nil {
				return patternResult{}, false
			}
			coach, student := splitPersonalRoomName(s.resolver, cleanName(m[1]))
			return patternResult{
				coach:   coach,
				student: student,
				week:    extractWeekToken(s.title),
				session: SessionPersonalRoom,
			}, true
		},
	},
}

// matchPatterns runs the title through the ordered rule table and returns
// the first match plus the winning rule's name.
func (r *Resolver) matchPatterns(title string) (patternResult, string, bool) {
	return evalFirst(patternRules, patternSubject{title: title, resolver: r})
}

// delimitedNames handles the two-name delimiter shapes. The left side is the
// coach by convention; the week, if present at all, sits elsewhere in the
// title.
func delimitedNames(re *regexp.Regexp, title string) (patternResult, bool) {
	m := re.FindStringSubmatch(title)
	if m == nil {
		return patternResult{}, false
	}
	left, right := cleanName(m[1]), cleanName(m[2])
	if !looksLikeName(left) || !looksLikeName(right) {
		return patternResult{}, false
	}
	return patternResult{
		coach:   ptr(left),
		student: ptr(right),
		week:    extractWeekToken(title),
		session: SessionCoaching,
	}, true
}

// assignAndRoles decides which side of "A and B" is the coach. The template
// does not indicate direction, so both names are tested against both alias
// tables: a known-coach/known-student pair assigns directly; a single coach
// match wins the coach slot; with no information the positional default is
// first token = student, second = coach.
func assignAndRoles(r *Resolver, a, b string) (coach, student *string) {
	aCoach, aIsCoach := r.roster.CoachByAlias(a)
	bCoach, bIsCoach := r.roster.CoachByAlias(b)
	aStudent, aIsStudent := r.roster.StudentByAlias(a)
	bStudent, bIsStudent := r.roster.StudentByAlias(b)

	switch {
	case aIsCoach && bIsStudent:
		return ptr(aCoach), ptr(bStudent)
	case bIsCoach && aIsStudent:
		return ptr(bCoach), ptr(aStudent)
	case aIsCoach && !bIsCoach:
		return ptr(aCoach), ptr(b)
	case bIsCoach && !aIsCoach:
		return ptr(bCoach), ptr(a)
	default:
		// Positional default: "Student and Coach".
		return ptr(b), ptr(a)
	}
}

// extractGamePlanNames pulls names out of a Game Plan title. The student
// name may follow a separator (&, -, :, "for"), possibly immediately after a
// coach name glued to its surname ("JennyDuan"): a known coach first name is
// detected and stripped as a prefix of the first token before the remainder
// is treated as the student.
func extractGamePlanNames(r *Resolver, title string) (coach, student *string) {
	rest := stripGamePlanKeyword(title)
	if rest == "" {
		return nil, nil
	}

	tokens := splitNameSegments(rest)
	if len(tokens) == 0 {
		return nil, nil
	}

	first := tokens[0]
	if c, remainder, ok := stripCoachPrefix(r, first); ok {
		coach = ptr(c)
		// Remainder after the coach prefix is the glued surname; the
		// student is the next separated token if present, otherwise the
		// remainder itself when it matches a known student.
		if len(tokens) > 1 {
			student = ptr(cleanName(tokens[1]))
		} else if s, ok := r.roster.StudentByAlias(remainder); ok {
			student = ptr(s)
		}
		return coach, student
	}

	if c, ok := r.roster.CoachByAlias(firstNameOf(first)); ok && len(tokens) > 1 {
		return ptr(c), ptr(cleanName(tokens[1]))
	}

	student = ptr(cleanName(first))
	return nil, student
}

// stripGamePlanKeyword removes the game-plan keyword and leading separators
// from a title, returning the segment that carries names.
func stripGamePlanKeyword(title string) string {
	lower := strings.ToLower(title)
	idx := -1
	length := 0
	for _, kw := range gamePlanIndicators {
		if i := strings.Index(lower, kw); i >= 0 {
			idx = i
			length = len(kw)
			break
		}
	}
	if idx < 0 {
		return ""
	}
	rest := title[idx+length:]
	return strings.Trim(rest, " \t-:&|")
}

// splitNameSegments splits a name-bearing segment on the separators that
// appear between a coach and a student in keyword titles.
func splitNameSegments(s string) []string {
	parts := regexp.MustCompile(`(?i)\s*(?:&|-|:|\bfor\b)\s*`).Split(s, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = cleanName(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// stripCoachPrefix detects a known coach first name glued to the front of a
// token ("JennyDuan" = "Jenny" + "Duan") and returns the coach plus the
// remainder.
func stripCoachPrefix(r *Resolver, token string) (coach, remainder string, ok bool) {
	word := firstNameOf(token)
	for i := 3; i < len(word); i++ {
		prefix := word[:i]
		if c, found := r.roster.CoachByAlias(prefix); found {
			rem := word[i:]
			// Only treat as glued when the remainder starts a new
			// capitalized word, otherwise "Jen" would split "Jenna".
			if rem == "" || (rem[0] >= 'A' && rem[0] <= 'Z') {
				return c, rem, true
			}
		}
	}
	if c, found := r.roster.CoachByAlias(word); found {
		return c, "", true
	}
	return "", "", false
}

// extractSATStudent finds a student name in an "SAT Prep" style title, where
// the name sits in an irregular position after the keyword.
func extractSATStudent(r *Resolver, title string) *string {
	for _, kw := range satIndicators {
		lower := strings.ToLower(title)
		idx := strings.Index(lower, kw)
		if idx < 0 {
			continue
		}
		rest := strings.Trim(title[idx+len(kw):], " \t-:&|")
		tokens := splitNameSegments(rest)
		for _, tok := range tokens {
			if s, ok := r.roster.StudentByAlias(tok); ok {
				return ptr(s)
			}
			if looksLikeName(tok) && !hasCoachingKeyword(strings.ToLower(tok)) {
				return ptr(cleanName(tok))
			}
		}
	}
	return nil
}

// splitPersonalRoomName handles "X's Personal Meeting Room". The captured
// name is first checked against the coach table as a full multi-word
// identity: "Jamie JudahBram" is one coach, and the student can only come
// from evidence, not the title. Only when the full string is not a known
// coach is it split into (coach first token, remainder as student).
func splitPersonalRoomName(r *Resolver, captured string) (coach, student *string) {
	if first, ok := r.roster.CoachByFullName(captured); ok {
		return ptr(first), nil
	}
	if first, ok := r.roster.CoachByAlias(captured); ok {
		return ptr(first), nil
	}

	fields := strings.Fields(captured)
	if len(fields) == 0 {
		return nil, nil
	}
	coach = ptr(cleanName(fields[0]))
	if len(fields) > 1 {
		student = ptr(cleanName(strings.Join(fields[1:], " ")))
	}
	return coach, student
}

// extractWeekToken finds a week number anywhere in the title, preserving
// letter suffixes like "2B".
func extractWeekToken(title string) Week {
	if m := weekTokenPattern.FindStringSubmatch(title); m != nil {
		return Week(strings.ToUpper(m[1]))
	}
	if m := sessionTokenPattern.FindStringSubmatch(title); m != nil {
		return Week(strings.ToUpper(m[1]))
	}
	return ""
}

func cleanName(s string) string {
	return strings.Trim(strings.TrimSpace(s), "-:&|,.")
}

// looksLikeName rejects captures that are clearly not person names
// (numbers, long phrases, keyword fragments).
func looksLikeName(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > 40 {
		return false
	}
	if strings.ContainsAny(s, "0123456789@#/") {
		return false
	}
	if len(strings.Fields(s)) > 3 {
		return false
	}
	lower := strings.ToLower(s)
	for _, kw := range nameStopWords {
		if lower == kw {
			return false
		}
	}
	return true
}
