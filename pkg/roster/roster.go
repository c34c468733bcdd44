// Package roster provides the static role-name dictionaries used by identity
// resolution: coach aliases, student aliases (including guardian names and
// nicknames), staff domains, and the administrative-account allow list.
//
// A Roster is immutable once built. Loaders construct it at process start and
// callers pass it by reference into the resolver, so resolution stays a pure
// function of its inputs.
package roster

import (
	"regexp"
	"strings"
)

// Pronoun suffixes like (she/her) that platforms append to display names.
var pronounPattern = regexp.MustCompile(`\s*\((?:she|he|they)(?:/(?:her|him|them|they|she|he))*\)\s*$`)

// NormalizeName strips pronoun suffixes and surrounding whitespace from a
// display name.
func NormalizeName(name string) string {
	name = pronounPattern.ReplaceAllString(name, "")
	return strings.TrimSpace(name)
}

// Capitalize upper-cases the first letter of each word and lower-cases the
// rest, matching how canonical first names are stored.
func Capitalize(name string) string {
	words := strings.Fields(strings.ToLower(name))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// Coach is a staff member who runs coaching sessions.
type Coach struct {
	FullName  string
	FirstName string
	Aliases   []string
}

// Roster holds every name dictionary resolution needs.
type Roster struct {
	// coachAliases maps lower-cased alias -> canonical first name.
	coachAliases map[string]string
	// coachFullNames maps lower-cased full name -> canonical first name.
	// Used for the personal-meeting-room full-name check.
	coachFullNames map[string]string
	// studentAliases maps lower-cased alias (student, guardian, or nickname)
	// -> canonical student first name.
	studentAliases map[string]string

	staffDomains  []string
	programLead   string
	adminAccounts map[string]bool
	commonNames   map[string]bool
}

// Option configures a Roster during construction.
type Option func(*Roster)

// WithStaffDomains sets the email domains that identify staff participants.
func WithStaffDomains(domains []string) Option {
	return func(r *Roster) {
		if len(domains) > 0 {
			r.staffDomains = domains
		}
	}
}

// WithProgramLead sets the fixed program-lead identity that Game Plan
// sessions are attributed to.
func WithProgramLead(name string) Option {
	return func(r *Roster) {
		if name != "" {
			r.programLead = Capitalize(name)
		}
	}
}

// WithAdminAccounts sets the administrative-account allow list.
func WithAdminAccounts(names []string) Option {
	return func(r *Roster) {
		if len(names) > 0 {
			r.adminAccounts = make(map[string]bool, len(names))
			for _, n := range names {
				r.adminAccounts[strings.ToLower(strings.TrimSpace(n))] = true
			}
		}
	}
}

// New builds a Roster from coach definitions and a student alias table.
// The student table maps lower-cased alias -> canonical first name, as
// produced by LoadStudentTable.
func New(coaches []Coach, studentAliases map[string]string, opts ...Option) *Roster {
	r := &Roster{
		coachAliases:   make(map[string]string),
		coachFullNames: make(map[string]string),
		studentAliases: make(map[string]string, len(studentAliases)),
		staffDomains:   defaultStaffDomains(),
		programLead:    defaultProgramLead,
		adminAccounts:  defaultAdminAccounts(),
		commonNames:    defaultCommonNames(),
	}

	for _, c := range coaches {
		first := Capitalize(c.FirstName)
		if first == "" {
			first = Capitalize(firstToken(c.FullName))
		}
		if full := strings.ToLower(NormalizeName(c.FullName)); full != "" {
			r.coachFullNames[full] = first
			r.coachAliases[full] = first
		}
		r.coachAliases[strings.ToLower(first)] = first
		for _, alias := range c.Aliases {
			key := strings.ToLower(NormalizeName(alias))
			if key != "" {
				r.coachAliases[key] = first
			}
		}
	}

	for alias, canonical := range studentAliases {
		key := strings.ToLower(NormalizeName(alias))
		if key != "" {
			r.studentAliases[key] = Capitalize(canonical)
		}
	}

	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CoachByAlias resolves a name against the coach alias table.
// Returns the canonical first name and whether the alias is known.
func (r *Roster) CoachByAlias(name string) (string, bool) {
	first, ok := r.coachAliases[strings.ToLower(NormalizeName(name))]
	return first, ok
}

// CoachByFullName checks whether the entire string (not just its first token)
// is a known coach identity. "Jamie JudahBram" is one coach, not a coach plus
// a student.
func (r *Roster) CoachByFullName(name string) (string, bool) {
	first, ok := r.coachFullNames[strings.ToLower(NormalizeName(name))]
	return first, ok
}

// StudentByAlias resolves a name against the student alias table, which
// includes guardian names and nicknames.
func (r *Roster) StudentByAlias(name string) (string, bool) {
	canonical, ok := r.studentAliases[strings.ToLower(NormalizeName(name))]
	return canonical, ok
}

// IsStaffEmail reports whether the email's domain is a known staff domain.
func (r *Roster) IsStaffEmail(email string) bool {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	domain := strings.ToLower(strings.TrimSpace(email[at+1:]))
	for _, d := range r.staffDomains {
		if domain == strings.ToLower(d) {
			return true
		}
	}
	return false
}

// CoachByEmail matches an email's local part or domain against the coach
// alias table.
func (r *Roster) CoachByEmail(email string) (string, bool) {
	email = strings.ToLower(strings.TrimSpace(email))
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return "", false
	}
	local := email[:at]
	if first, ok := r.coachAliases[local]; ok {
		return first, ok
	}
	// Local parts like jamie.b or jamie_b still identify the coach.
	if sep := strings.IndexAny(local, "._-"); sep > 0 {
		if first, ok := r.coachAliases[local[:sep]]; ok {
			return first, ok
		}
	}
	if r.IsStaffEmail(email) {
		if first, ok := r.coachAliases[local]; ok {
			return first, ok
		}
	}
	return "", false
}

// IsAdminAccount reports whether a name belongs to the administrative
// allow list (staff/management identities that are neither coach nor student
// in a session).
func (r *Roster) IsAdminAccount(name string) bool {
	return r.adminAccounts[strings.ToLower(NormalizeName(name))]
}

// HasAdminIndicator reports whether any administrative-account name appears
// as a whole word in the given text (typically a recording title).
func (r *Roster) HasAdminIndicator(text string) bool {
	lower := strings.ToLower(text)
	for name := range r.adminAccounts {
		if containsWord(lower, name) {
			return true
		}
	}
	return false
}

// containsWord reports whether needle occurs in haystack bounded by
// non-letter characters, so "ops" does not match "workshops".
func containsWord(haystack, needle string) bool {
	for start := 0; ; {
		i := strings.Index(haystack[start:], needle)
		if i < 0 {
			return false
		}
		i += start
		before := i == 0 || !isLetter(haystack[i-1])
		afterIdx := i + len(needle)
		after := afterIdx >= len(haystack) || !isLetter(haystack[afterIdx])
		if before && after {
			return true
		}
		start = i + 1
	}
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// IsCommonFirstName reports whether a token is a plausible student first name
// even when it is absent from the alias table. Used as the transcript-voting
// fallback.
func (r *Roster) IsCommonFirstName(name string) bool {
	return r.commonNames[strings.ToLower(NormalizeName(name))]
}

// ProgramLead returns the fixed identity Game Plan sessions belong to.
func (r *Roster) ProgramLead() string {
	return r.programLead
}

// StudentCount returns the number of distinct student aliases loaded.
// Used for degraded-mode logging.
func (r *Roster) StudentCount() int {
	return len(r.studentAliases)
}

func firstToken(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
