package cognitive

import (
	"context"
	"strings"
	"sync"

	"github.com/itsneelabh/sentinel-swarm/alignment"
	"github.com/itsneelabh/sentinel-swarm/core"
	"github.com/itsneelabh/sentinel-swarm/goal"
	"github.com/itsneelabh/sentinel-swarm/predicate"
	"github.com/itsneelabh/sentinel-swarm/state"
)

// MinExpectedValue is the floor below which an action is rejected outright
// for contributing too little to the root intent (spec.md §4.G step 1).
const MinExpectedValue = 0.1

// MinValueOfInformation is the floor below which an otherwise-approved
// action is skipped rather than executed, because it would teach the
// system too little to be worth the cost (spec.md §4.G step 5).
const MinValueOfInformation = 0.1

// DeviationRejectThreshold is the Monte-Carlo deviation probability above
// which the Gate looks for an alternative, or rejects outright if none can
// be found (spec.md §4.G step 4).
const DeviationRejectThreshold = 0.3

// AlignmentSurpriseTolerance is how far actual alignment may fall short of
// predicted alignment before after_action switches the Gate into Debugging
// mode (spec.md §4.G after_action step 3).
const AlignmentSurpriseTolerance = 5.0

// PatternSource supplies learned alternatives for an action the Gate is
// about to reject on predicted deviation — implemented by
// learning.KnowledgeBase, kept as a narrow interface here so cognitive never
// imports learning (spec.md §4.G step 4: "consulting learned patterns").
type PatternSource interface {
	SuggestAlternatives(goalID string, original Action) []Action
}

// CognitiveState is the Gate itself: the manifold, evaluator, and alignment
// field it consults, plus the mutable belief/meta-cognitive/decision-log
// state a running mission accumulates (spec.md §4.G).
type CognitiveState struct {
	Manifold  *goal.Manifold
	Evaluator *predicate.Evaluator
	Field     *alignment.Field
	SimConfig alignment.SimulationConfig
	Patterns  PatternSource
	Logger    core.Logger

	mu        sync.Mutex
	Beliefs   *BeliefNetwork
	Meta      *MetaCognitiveState
	Mode      Mode
	Trace     []Action
	Decisions []*Decision
}

// NewCognitiveState wires a Gate around a manifold, evaluator, and field.
func NewCognitiveState(m *goal.Manifold, ev *predicate.Evaluator, field *alignment.Field) *CognitiveState {
	return &CognitiveState{
		Manifold:  m,
		Evaluator: ev,
		Field:     field,
		SimConfig: alignment.NewSimulationConfig(),
		Logger:    &core.NoOpLogger{},
		Beliefs:   NewBeliefNetwork(),
		Meta:      NewMetaCognitiveState(),
		Mode:      Planning,
	}
}

// relevantGoals returns the ids of goals the action contributes to: its
// explicit GoalID if set, otherwise every goal whose description shares a
// token with the action's description (spec.md §4.G step 1's "string
// similarity" fallback).
func (c *CognitiveState) relevantGoals(action Action) []*goal.Goal {
	goals := c.Manifold.Goals()
	if action.GoalID != "" {
		for _, g := range goals {
			if g.ID == action.GoalID {
				return []*goal.Goal{g}
			}
		}
		return nil
	}
	actionTokens := tokenize(action.Description)
	var matches []*goal.Goal
	for _, g := range goals {
		if tokenOverlap(actionTokens, tokenize(g.Description)) > 0 {
			matches = append(matches, g)
		}
	}
	return matches
}

func tokenize(s string) map[string]bool {
	out := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(s)) {
		w = strings.Trim(w, ".,;:!?()[]{}\"'")
		if len(w) > 3 {
			out[w] = true
		}
	}
	return out
}

func tokenOverlap(a, b map[string]bool) int {
	n := 0
	for w := range a {
		if b[w] {
			n++
		}
	}
	return n
}

// projectAction returns a clone of st as it would look immediately after
// action executed, for the invariant check in step 3. Only the file-system
// effects of write_file/delete_file are modeled; other action kinds leave
// state untouched since they have no directly observable file effect.
func projectAction(action Action, st *state.ProjectState) *state.ProjectState {
	clone := st.Clone()
	switch action.Kind {
	case KindWriteFile:
		clone.Files[action.Path] = state.FileState{Type: state.FileTypeSource, Modified: clone.Timestamp}
	case KindDeleteFile:
		delete(clone.Files, action.Path)
	}
	return clone
}

// BeforeAction runs the full six-step gate pipeline against action, given
// the current project state, and returns the resulting decision (spec.md
// §4.G).
func (c *CognitiveState) BeforeAction(ctx context.Context, action Action, st *state.ProjectState) (ActionDecision, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Step 1: rationale.
	goals := c.relevantGoals(action)
	if len(goals) == 0 {
		return c.record(action, Rationale{Justified: false, Reason: "does not contribute to any goal"}, nil,
			reject("does not contribute to any goal")), nil
	}
	expectedValue := 0.0
	goalIDs := make([]string, 0, len(goals))
	for _, g := range goals {
		expectedValue += g.Weight * action.ExpectedValue
		goalIDs = append(goalIDs, g.ID)
	}
	rationale := Rationale{Justified: true, ExpectedValue: expectedValue, GoalIDs: goalIDs}
	if expectedValue < MinExpectedValue {
		rationale.Justified = false
		rationale.Reason = "expected value below threshold"
		return c.record(action, rationale, nil, reject(rationale.Reason)), nil
	}

	// Step 2: safety.
	if !action.IsIntrinsicallySafe() {
		reason := "action is not intrinsically safe"
		return c.record(action, rationale, nil, reject(reason)), nil
	}

	// Step 3: invariants, against the post-action projected state.
	projected := projectAction(action, st)
	violations := c.Manifold.ValidateInvariants(ctx, c.Evaluator, projected)
	for _, v := range violations {
		if v.Severity == goal.SeverityCritical {
			return c.record(action, rationale, nil, reject("critical invariant violated: "+v.Description)), nil
		}
	}

	// Step 4: alignment prediction.
	prediction, err := c.Field.PredictAlignment(ctx, c.SimConfig, c.Manifold, c.Evaluator, projected)
	if err != nil {
		return ActionDecision{}, err
	}
	if prediction.DeviationProbability > DeviationRejectThreshold {
		if alts := c.findAlternatives(ctx, goalIDs, action, st); len(alts) > 0 {
			decision := proposeAlternative("predicted deviation probability exceeds threshold", alts)
			return c.record(action, rationale, &prediction, decision), nil
		}
		return c.record(action, rationale, &prediction, reject("predicted deviation probability exceeds threshold with no viable alternative")), nil
	}

	// Step 5: value of information.
	voi := valueOfInformation(prediction, expectedValue)
	if voi < MinValueOfInformation {
		return c.record(action, rationale, &prediction, skip("value of information below threshold")), nil
	}

	// Step 6: record and enter Executing.
	decision := approve()
	c.Mode = Executing
	return c.record(action, rationale, &prediction, decision), nil
}

// valueOfInformation heuristically combines the uncertainty the prediction
// carries (its stddev, normalized to [0,1]) with the action's expected
// goal value: high uncertainty about a high-value action is worth running
// if only to learn from it (spec.md §4.G step 5).
func valueOfInformation(prediction alignment.SimulationResult, expectedValue float64) float64 {
	uncertainty := prediction.StdDeviation / 100
	if uncertainty > 1 {
		uncertainty = 1
	}
	return 0.5*uncertainty + 0.5*clamp01(expectedValue)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// findAlternatives consults learned patterns (if a PatternSource is wired)
// and falls back to the gradient's steepest-ascent dimension as a textual
// hint, per spec.md §4.G step 4's "learned patterns and the gradient."
func (c *CognitiveState) findAlternatives(ctx context.Context, goalIDs []string, action Action, st *state.ProjectState) []Action {
	var alts []Action
	if c.Patterns != nil {
		for _, gid := range goalIDs {
			alts = append(alts, c.Patterns.SuggestAlternatives(gid, action)...)
		}
	}
	if len(alts) > 0 {
		return alts
	}
	gradient, err := c.Field.ComputeGradient(ctx, c.Manifold, c.Evaluator, st)
	if err != nil || len(gradient) == 0 {
		return nil
	}
	var bestDim state.Dimension
	best := -1.0
	for d, v := range gradient {
		if v > best {
			best = v
			bestDim = d
		}
	}
	if best <= 0 {
		return nil
	}
	alt := action
	alt.ID = action.ID + "-alt-gradient"
	alt.Description = action.Description + " (steered toward " + bestDim.Kind + ":" + bestDim.Key + ")"
	return []Action{alt}
}

// record appends decision's Action/Rationale/Prediction to the decision
// log and trace, returning decision unchanged so call sites can both record
// and return in one expression.
func (c *CognitiveState) record(action Action, rationale Rationale, prediction *alignment.SimulationResult, decision ActionDecision) ActionDecision {
	c.Trace = append(c.Trace, action)
	c.Decisions = append(c.Decisions, &Decision{
		Action:     action,
		Rationale:  rationale,
		Prediction: prediction,
	})
	if decision.Kind == Reject || decision.Kind == Skip {
		c.Logger.Info("gate decision", map[string]interface{}{
			"action_id": action.ID,
			"kind":      string(decision.Kind),
			"reason":    decision.Reason,
		})
	}
	return decision
}

// AfterAction runs the five after_action steps: belief update, alignment
// comparison, mode transition on surprise, uncertainty resolution, and
// meta-cognitive accuracy tracking (spec.md §4.G after_action).
func (c *CognitiveState) AfterAction(ctx context.Context, action Action, result Result, st *state.ProjectState) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Step 1: belief update from the observation.
	observation := 0.0
	if result.Success {
		observation = 1.0
	}
	c.Beliefs.Observe("system_works", observation)

	// Step 2: recompute alignment and compare to what was predicted.
	actual, err := c.Field.ComputeAlignment(ctx, c.Manifold, c.Evaluator, st)
	if err != nil {
		return err
	}

	var last *Decision
	for i := len(c.Decisions) - 1; i >= 0; i-- {
		if c.Decisions[i].Action.ID == action.ID {
			last = c.Decisions[i]
			break
		}
	}

	predicted := actual
	if last != nil && last.Prediction != nil {
		predicted = last.Prediction.MeanAlignment
	}

	// Step 3: surprise -> Debugging.
	if predicted-actual > AlignmentSurpriseTolerance {
		c.Mode = Debugging
		c.Meta.AddInsight(Insight{
			Kind:       InsightLimitationAwareness,
			Note:       "actual alignment fell short of prediction by more than tolerance",
			Confidence: c.Meta.PredictionAccuracy,
		})
	} else if c.Mode == Executing {
		c.Mode = Validating
	}

	// Step 4 & 5: resolve uncertainties, record outcome, update accuracy.
	if last != nil {
		last.Outcome = &Outcome{Success: result.Success, ActualAlignment: actual, DurationSeconds: result.DurationSeconds}
	}
	c.Meta.UpdatePredictionAccuracy(predicted, actual)
	c.Meta.ExpectedAlignment = actual

	return nil
}
