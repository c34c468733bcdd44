package identity

// Rule is one entry in an ordered rule table. Pattern rules, categorizer
// rules, and evidence steps all share the same first-match-wins shape, so a
// single generic driver evaluates all of them.
type Rule[S any, R any] struct {
	// Name tags the rule for audit output.
	Name string

	// Guard, when non-nil, must return true for Apply to be attempted.
	Guard func(S) bool

	// Apply attempts the rule. The boolean reports whether the rule
	// matched; a false return moves evaluation to the next rule.
	Apply func(S) (R, bool)
}

// evalFirst evaluates rules in order and returns the first match along with
// the matching rule's name. Order is strict: later rules assume earlier ones
// had the chance to match first, so evaluation is never parallelized or
// reordered.
func evalFirst[S any, R any](rules []Rule[S, R], subject S) (R, string, bool) {
	for _, rule := range rules {
		if rule.Guard != nil && !rule.Guard(subject) {
			continue
		}
		if result, ok := rule.Apply(subject); ok {
			return result, rule.Name, true
		}
	}
	var zero R
	return zero, "", false
}
