// Package learning mines successful action sequences out of completed
// missions and keeps a durable Knowledge Base of the patterns that emerge,
// so the Cognitive Gate can suggest a learned alternative instead of
// rejecting an action outright (spec.md §4.Q).
package learning

import "time"

// SuccessPattern is a sequence of action kinds that reliably drove high
// alignment when applied to a class of goals.
type SuccessPattern struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	Description         string    `json:"description"`
	ActionSequence      []string  `json:"action_sequence"`
	ApplicableGoalTypes []string  `json:"applicable_goal_types"`
	SuccessRate         float64   `json:"success_rate"`
	Support             int       `json:"support"`
	Confidence          float64   `json:"confidence"`
	LearnedAt           time.Time `json:"learned_at"`
}

// DeviationPattern records a recurring way a mission drifted off its goals:
// a severity, the signature of project-state conditions present when it
// happened, and how often it has recurred.
type DeviationPattern struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Severity    string    `json:"severity"`
	Signature   []string  `json:"signature"`
	Occurrences int       `json:"occurrences"`
	LearnedAt   time.Time `json:"learned_at"`
}

// merge folds an incoming observation of the same pattern into existing,
// per spec.md §4.Q's "new success rate = 0.7*old + 0.3*new; support++".
func (p SuccessPattern) merge(observed SuccessPattern) SuccessPattern {
	p.SuccessRate = 0.7*p.SuccessRate + 0.3*observed.SuccessRate
	p.Support++
	if observed.Confidence > p.Confidence {
		p.Confidence = observed.Confidence
	}
	for _, gt := range observed.ApplicableGoalTypes {
		if !containsString(p.ApplicableGoalTypes, gt) {
			p.ApplicableGoalTypes = append(p.ApplicableGoalTypes, gt)
		}
	}
	return p
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
