package identity

import "strings"

// Keyword sets used by the pattern matcher and categorizer. Matching is
// case-insensitive substring matching over the title.

var gamePlanIndicators = []string{
	"game plan",
	"gameplan",
}

var coachingKeywords = []string{
	"week",
	"session",
	"coaching",
	"mentor",
	"prep program",
	"comprehensive",
	"ultimate prep",
	"app program",
}

var trivialKeywords = []string{
	"mic test",
	"quick test",
	"test",
	"brief",
	"short",
	"check",
	"demo",
}

var satIndicators = []string{
	"sat prep",
	"sat practice",
}

// nameStopWords are exact strings a name capture can never be: the
// coaching keywords plus generic meeting words.
var nameStopWords = append([]string{
	"meeting",
	"room",
	"recording",
	"call",
}, coachingKeywords...)

const personalRoomSuffix = "personal meeting room"

func titleContainsAny(title string, keywords []string) bool {
	lower := strings.ToLower(title)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func hasGamePlanIndicator(title string) bool {
	return titleContainsAny(title, gamePlanIndicators)
}

func hasCoachingKeyword(title string) bool {
	return titleContainsAny(title, coachingKeywords)
}

func hasTrivialKeyword(title string) bool {
	return titleContainsAny(title, trivialKeywords)
}

func hasSATIndicator(title string) bool {
	return titleContainsAny(title, satIndicators)
}

func isPersonalRoomTitle(title string) bool {
	return strings.Contains(strings.ToLower(title), personalRoomSuffix)
}
