package cognitive

import (
	"time"

	"github.com/itsneelabh/sentinel-swarm/alignment"
)

// DecisionKind is the outcome variant an ActionDecision carries (spec.md
// §4.G: "ActionDecision{Approve | Reject(reason) | Skip(reason) |
// ProposeAlternative(alts, reason)}").
type DecisionKind string

const (
	Approve            DecisionKind = "approve"
	Reject             DecisionKind = "reject"
	Skip               DecisionKind = "skip"
	ProposeAlternative DecisionKind = "propose_alternative"
)

// ActionDecision is what before_action returns.
type ActionDecision struct {
	Kind         DecisionKind
	Reason       string
	Alternatives []Action
}

// IsApproved reports whether the action may proceed.
func (d ActionDecision) IsApproved() bool { return d.Kind == Approve }

func approve() ActionDecision             { return ActionDecision{Kind: Approve} }
func reject(reason string) ActionDecision { return ActionDecision{Kind: Reject, Reason: reason} }
func skip(reason string) ActionDecision   { return ActionDecision{Kind: Skip, Reason: reason} }
func proposeAlternative(reason string, alts []Action) ActionDecision {
	return ActionDecision{Kind: ProposeAlternative, Reason: reason, Alternatives: alts}
}

// Rationale is the output of the Gate's step-1 justification check.
type Rationale struct {
	Justified     bool
	Reason        string
	ExpectedValue float64
	GoalIDs       []string
}

// Outcome records what actually happened after an approved action ran,
// attached to its Decision for the meta-learning step (spec.md §4.G
// after_action step 5).
type Outcome struct {
	Success         bool
	ActualAlignment float64
	DurationSeconds float64
}

// Decision is one entry in the Gate's decision log: the action considered,
// why, what the simulator predicted, and (once after_action runs) what
// actually happened.
type Decision struct {
	Action     Action
	Rationale  Rationale
	Prediction *alignment.SimulationResult
	Outcome    *Outcome
	CreatedAt  time.Time
}
