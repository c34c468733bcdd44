package identity

import (
	"bufio"
	"regexp"
	"sort"
	"strings"
)

// Evidence extractors, in strict fidelity order: structured attendance data,
// then transcript, then chat, then the host email. Titles are frequently
// ambiguous ("X & Y", "X's Personal Meeting Room") while attendance and
// transcript evidence is comparatively reliable, so patterns over the title
// run only after these are exhausted.

// Minimum content lengths before text extractors run. Near-empty blobs
// produce spurious single-line matches.
const (
	minTranscriptLength = 50
	minChatLength       = 20
)

var (
	// Caption cue timing line: 00:01:02.345 --> 00:01:05.678
	captionTimingLine = regexp.MustCompile(`^\d{2}:\d{2}:\d{2}\.\d{3}\s+-->\s+\d{2}:\d{2}:\d{2}\.\d{3}`)

	// Caption cue index line: a bare number.
	captionIndexLine = regexp.MustCompile(`^\d+$`)

	// Transcript speaker line: Speaker Name: utterance
	speakerLine = regexp.MustCompile(`^([A-Za-z][A-Za-z .'\-]{0,60}?):\s+(.*)$`)

	// Chat line: HH:MM:SS<tab>Speaker Name: message
	chatLine = regexp.MustCompile(`^\d{2}:\d{2}:\d{2}\t+([^:]+?):\s*(.*)$`)
)

// extractFromParticipants classifies the attendee list. A participant is the
// coach if their email domain is a staff domain or their name is a known
// coach alias; all other participants are student candidates, with alias
// matches preferred and the first non-staff attendee used otherwise.
func (r *Resolver) extractFromParticipants(parts []Participant, id *Identity) {
	var fallbackStudent string

	for _, p := range parts {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			continue
		}

		if first, ok := r.roster.CoachByAlias(name); ok {
			if id.Coach == nil {
				id.Coach = ptr(first)
			}
			continue
		}
		if p.Email != "" && r.roster.IsStaffEmail(p.Email) {
			if id.Coach == nil {
				if first, ok := r.roster.CoachByEmail(p.Email); ok {
					id.Coach = ptr(first)
				} else {
					id.Coach = ptr(firstNameOf(name))
				}
			}
			continue
		}

		// Non-staff participant: student candidate.
		if canonical, ok := r.roster.StudentByAlias(name); ok {
			if id.Student == nil {
				id.Student = ptr(canonical)
			}
			continue
		}
		if fallbackStudent == "" {
			fallbackStudent = firstNameOf(name)
		}
	}

	if id.Student == nil && fallbackStudent != "" {
		id.Student = ptr(fallbackStudent)
	}
	if id.Coach != nil || id.Student != nil {
		id.Method = MethodParticipants
	}
}

// extractStudentFromTranscript frequency-votes speaker names in line-oriented
// "Speaker: utterance" text. Caption cue indices and timing lines are
// skipped before matching. Only names in the student alias table or the
// common-first-name fallback list count, and any name matching the already
// known coach is excluded.
func (r *Resolver) extractStudentFromTranscript(text string, coach *string) *string {
	if len(strings.TrimSpace(text)) < minTranscriptLength {
		return nil
	}
	return r.voteSpeakers(text, coach, func(line string) (string, bool) {
		if captionIndexLine.MatchString(line) || captionTimingLine.MatchString(line) {
			return "", false
		}
		m := speakerLine.FindStringSubmatch(line)
		if m == nil {
			return "", false
		}
		return strings.TrimSpace(m[1]), true
	})
}

// extractStudentFromChat applies the same voting strategy to chat text,
// which uses the HH:MM:SS<tab>Speaker: message line shape.
func (r *Resolver) extractStudentFromChat(text string, coach *string) *string {
	if len(strings.TrimSpace(text)) < minChatLength {
		return nil
	}
	return r.voteSpeakers(text, coach, func(line string) (string, bool) {
		m := chatLine.FindStringSubmatch(line)
		if m == nil {
			return "", false
		}
		return strings.TrimSpace(m[1]), true
	})
}

// voteSpeakers counts candidate student names per speaker and returns the
// highest-frequency candidate. Ties break deterministically by name so
// repeated resolution of the same context yields the same result.
func (r *Resolver) voteSpeakers(text string, coach *string, parse func(string) (string, bool)) *string {
	counts := make(map[string]int)

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		speaker, ok := parse(line)
		if !ok {
			continue
		}

		candidate, ok := r.studentCandidate(speaker, coach)
		if !ok {
			continue
		}
		counts[candidate]++
	}

	if len(counts) == 0 {
		return nil
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})
	return ptr(names[0])
}

// studentCandidate maps a speaker name to a canonical student candidate,
// rejecting the known coach, staff aliases, and names that are neither in
// the alias table nor plausible first names.
func (r *Resolver) studentCandidate(speaker string, coach *string) (string, bool) {
	if speaker == "" {
		return "", false
	}
	if coach != nil && strings.EqualFold(firstNameOf(speaker), *coach) {
		return "", false
	}
	if _, ok := r.roster.CoachByAlias(speaker); ok {
		return "", false
	}
	if canonical, ok := r.roster.StudentByAlias(speaker); ok {
		return canonical, true
	}
	first := firstNameOf(speaker)
	if canonical, ok := r.roster.StudentByAlias(first); ok {
		return canonical, true
	}
	if r.roster.IsCommonFirstName(first) {
		return capitalizeFirst(first), true
	}
	return "", false
}

// extractCoachFromHostEmail matches the host email's local part or domain
// against the coach alias table. It runs once after the text extractors and
// identically once more as the absolute last resort after pattern matching.
func (r *Resolver) extractCoachFromHostEmail(email string) *string {
	if strings.TrimSpace(email) == "" {
		return nil
	}
	if first, ok := r.roster.CoachByEmail(email); ok {
		return ptr(first)
	}
	return nil
}

func firstNameOf(name string) string {
	fields := strings.Fields(strings.TrimSpace(name))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func capitalizeFirst(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return ""
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
