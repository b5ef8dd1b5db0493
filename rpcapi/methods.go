package rpcapi

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/itsneelabh/sentinel-swarm/cognitive"
	"github.com/itsneelabh/sentinel-swarm/swarm"
)

// ActionParams is the wire shape of the action validate_action and
// safe_write project onto a cognitive.Action.
type ActionParams struct {
	Kind          string   `json:"kind"`
	Description   string   `json:"description"`
	GoalID        string   `json:"goal_id,omitempty"`
	ExpectedValue float64  `json:"expected_value"`
	Path          string   `json:"path,omitempty"`
	Backup        bool     `json:"backup,omitempty"`
	Suite         string   `json:"suite,omitempty"`
	Command       string   `json:"command,omitempty"`
	Args          []string `json:"args,omitempty"`
}

func (p ActionParams) toAction() cognitive.Action {
	return cognitive.Action{
		ID:            uuid.NewString(),
		Kind:          cognitive.Kind(p.Kind),
		Description:   p.Description,
		GoalID:        p.GoalID,
		ExpectedValue: p.ExpectedValue,
		Path:          p.Path,
		Backup:        p.Backup,
		Suite:         p.Suite,
		Command:       p.Command,
		Args:          p.Args,
	}
}

// DecisionResult is the textual status frame validate_action and
// safe_write return: the decision's kind, its reason (if any), and any
// proposed alternatives' descriptions.
type DecisionResult struct {
	Decision     string   `json:"decision"`
	Reason       string   `json:"reason,omitempty"`
	Alternatives []string `json:"alternatives,omitempty"`
}

func toDecisionResult(d cognitive.ActionDecision) DecisionResult {
	alts := make([]string, 0, len(d.Alternatives))
	for _, a := range d.Alternatives {
		alts = append(alts, a.Description)
	}
	return DecisionResult{Decision: string(d.Kind), Reason: d.Reason, Alternatives: alts}
}

func handleValidateAction(ctx context.Context, rt *Runtime, raw json.RawMessage) (any, error) {
	var params struct {
		Action ActionParams `json:"action"`
	}
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	decision, err := rt.Gate.BeforeAction(ctx, params.Action.toAction(), rt.State)
	if err != nil {
		return nil, err
	}
	return toDecisionResult(decision), nil
}

func handleGetAlignment(ctx context.Context, rt *Runtime, _ json.RawMessage) (any, error) {
	score, err := rt.Field.ComputeAlignment(ctx, rt.Manifold, rt.Evaluator, rt.State)
	if err != nil {
		return nil, err
	}
	return struct {
		Score float64 `json:"score"`
	}{Score: score}, nil
}

func handleSafeWrite(ctx context.Context, rt *Runtime, raw json.RawMessage) (any, error) {
	var params struct {
		Path          string  `json:"path"`
		Content       string  `json:"content"`
		GoalID        string  `json:"goal_id,omitempty"`
		ExpectedValue float64 `json:"expected_value"`
	}
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	if params.ExpectedValue <= 0 {
		params.ExpectedValue = 1.0
	}

	action := cognitive.Action{
		ID:            uuid.NewString(),
		Kind:          cognitive.KindWriteFile,
		Description:   "write " + params.Path,
		GoalID:        params.GoalID,
		ExpectedValue: params.ExpectedValue,
		Path:          params.Path,
	}

	decision, err := rt.Gate.BeforeAction(ctx, action, rt.State)
	if err != nil {
		return nil, err
	}
	if !decision.IsApproved() {
		return toDecisionResult(decision), nil
	}

	if rt.Executor != nil {
		if err := rt.Executor.PrepareFiles(map[string][]byte{params.Path: []byte(params.Content)}); err != nil {
			_ = rt.Gate.AfterAction(ctx, action, cognitive.Result{Success: false, Output: err.Error()}, rt.State)
			return nil, err
		}
	}

	if err := rt.Gate.AfterAction(ctx, action, cognitive.Result{Success: true}, rt.State); err != nil {
		return nil, err
	}
	return toDecisionResult(decision), nil
}

func handleProposeStrategy(ctx context.Context, rt *Runtime, raw json.RawMessage) (any, error) {
	if rt.Consensus == nil {
		return nil, fmt.Errorf("no consensus engine wired into this runtime")
	}
	var params struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Kind        string `json:"kind"`
		Subject     string `json:"subject"`
		Detail      string `json:"detail"`
		ProposerID  string `json:"proposer_id"`
	}
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}

	var proposerID swarm.AgentID
	if params.ProposerID != "" {
		id, err := uuid.Parse(params.ProposerID)
		if err == nil {
			copy(proposerID[:], id[:])
		}
	}

	proposal := swarm.Proposal{
		ID:          uuid.NewString(),
		Title:       params.Title,
		Description: params.Description,
		Action: swarm.ProposedAction{
			Kind:    swarm.ActionKind(params.Kind),
			Subject: params.Subject,
			Detail:  params.Detail,
		},
		ProposerID: proposerID,
	}
	rt.Consensus.Propose(proposal)

	return struct {
		ProposalID string `json:"proposal_id"`
		Status     string `json:"status"`
	}{ProposalID: proposal.ID, Status: string(swarm.ProposalVoting)}, nil
}

func handleRecordHandover(ctx context.Context, rt *Runtime, raw json.RawMessage) (any, error) {
	var params struct {
		GoalID string `json:"goal_id"`
		From   string `json:"from"`
		To     string `json:"to"`
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	entry := rt.Manifold.RecordHandover(params.GoalID, params.From, params.To, params.Reason)

	if rt.Store != nil {
		if err := rt.Store.Save(rt.Manifold, rt.Preserved); err != nil {
			rt.Logger.Error("failed to persist handover", map[string]interface{}{"error": err.Error()})
		}
	}

	return entry, nil
}

func handleGetCognitiveMap(ctx context.Context, rt *Runtime, _ json.RawMessage) (any, error) {
	beliefs := rt.Gate.Beliefs.All()
	sort.Slice(beliefs, func(i, j int) bool { return beliefs[i].Name < beliefs[j].Name })

	return struct {
		Mode               string              `json:"mode"`
		ExpectedAlignment  float64             `json:"expected_alignment"`
		PredictionAccuracy float64             `json:"prediction_accuracy"`
		Beliefs            []cognitive.Belief  `json:"beliefs"`
		Insights           []cognitive.Insight `json:"insights"`
	}{
		Mode:               string(rt.Gate.Mode),
		ExpectedAlignment:  rt.Gate.Meta.ExpectedAlignment,
		PredictionAccuracy: rt.Gate.Meta.PredictionAccuracy,
		Beliefs:            beliefs,
		Insights:           rt.Gate.Meta.Insights,
	}, nil
}

// EnforcementRule names one concrete threshold the Cognitive Gate or
// invariant set enforces, for a host runtime to surface to a user or
// another agent without reverse-engineering the Gate's source.
type EnforcementRule struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Threshold   float64 `json:"threshold,omitempty"`
}

func handleGetEnforcementRules(ctx context.Context, rt *Runtime, _ json.RawMessage) (any, error) {
	rules := []EnforcementRule{
		{Name: "min_expected_value", Description: "actions contributing less than this to any goal are rejected outright", Threshold: cognitive.MinExpectedValue},
		{Name: "min_value_of_information", Description: "approved actions contributing less than this in learning value are skipped", Threshold: cognitive.MinValueOfInformation},
		{Name: "deviation_reject_threshold", Description: "actions predicted to deviate with probability above this are rejected or redirected to an alternative", Threshold: cognitive.DeviationRejectThreshold},
		{Name: "alignment_surprise_tolerance", Description: "actual alignment falling short of prediction by more than this switches the Gate into Debugging mode", Threshold: cognitive.AlignmentSurpriseTolerance},
	}
	for _, inv := range rt.Manifold.Invariants() {
		rules = append(rules, EnforcementRule{Name: inv.ID, Description: inv.Description})
	}
	return struct {
		Rules []EnforcementRule `json:"rules"`
	}{Rules: rules}, nil
}

// SubgoalSuggestion is one decompose_goal output entry: a specialist role
// the Goal Analyzer would spawn for this text, paired with a concrete
// description of the slice of work it covers.
type SubgoalSuggestion struct {
	AgentType   string `json:"agent_type"`
	Description string `json:"description"`
}

func handleDecomposeGoal(ctx context.Context, rt *Runtime, raw json.RawMessage) (any, error) {
	var params struct {
		GoalID      string `json:"goal_id,omitempty"`
		Description string `json:"description,omitempty"`
		Execute     bool   `json:"execute,omitempty"`
	}
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}

	description := params.Description
	if description == "" && params.GoalID != "" {
		g, err := rt.Manifold.Goal(params.GoalID)
		if err != nil {
			return nil, err
		}
		description = g.Description
	}
	if description == "" {
		return nil, fmt.Errorf("decompose_goal requires either goal_id or description")
	}

	analysis := swarm.Analyze(description)
	suggestions := make([]SubgoalSuggestion, 0, len(analysis.RequiredAgents))
	for _, t := range analysis.RequiredAgents {
		suggestions = append(suggestions, SubgoalSuggestion{
			AgentType:   string(t),
			Description: fmt.Sprintf("%s's share of: %s", t, description),
		})
	}

	result := struct {
		Domain        string                      `json:"domain"`
		Complexity    float64                     `json:"complexity"`
		SecurityLevel string                      `json:"security_level"`
		Subgoals      []SubgoalSuggestion         `json:"subgoals"`
		Execution     *swarm.SwarmExecutionResult `json:"execution,omitempty"`
	}{
		Domain:        analysis.Domain,
		Complexity:    analysis.Complexity,
		SecurityLevel: analysis.SecurityLevel,
		Subgoals:      suggestions,
	}

	if params.Execute && rt.Coordinator != nil {
		exec, err := rt.Coordinator.Run(ctx, description)
		if err != nil {
			return nil, fmt.Errorf("swarm execution failed: %w", err)
		}
		result.Execution = &exec
	}

	return result, nil
}
