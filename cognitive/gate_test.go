package cognitive

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsneelabh/sentinel-swarm/alignment"
	"github.com/itsneelabh/sentinel-swarm/goal"
	"github.com/itsneelabh/sentinel-swarm/predicate"
	"github.com/itsneelabh/sentinel-swarm/state"
)

func newTestGate(t *testing.T) (*CognitiveState, *state.ProjectState) {
	t.Helper()
	m := goal.NewManifold("ship a feature")
	g := goal.NewGoal("g1", "write tests for the auth module", predicate.AlwaysTrue(), 1.0)
	require.NoError(t, m.AddGoal(g))
	m.Seal("initial")

	ev := predicate.NewEvaluator(nil, nil)
	field := alignment.NewField(ev)
	gate := NewCognitiveState(m, ev, field)
	gate.SimConfig.Iterations = 20

	st := state.NewProjectState("/repo")
	st.Goals["g1"] = state.GoalState{Completion: 0.9}
	return gate, st
}

func TestBeforeAction_RejectsUnrelatedAction(t *testing.T) {
	gate, st := newTestGate(t)
	decision, err := gate.BeforeAction(context.Background(), Action{
		ID: "a1", Kind: KindRunCommand, Description: "deploy to production kubernetes cluster", ExpectedValue: 0.9,
	}, st)
	require.NoError(t, err)
	assert.Equal(t, Reject, decision.Kind)
}

func TestBeforeAction_ApprovesWellJustifiedAction(t *testing.T) {
	gate, st := newTestGate(t)
	decision, err := gate.BeforeAction(context.Background(), Action{
		ID: "a2", Kind: KindRunTests, Description: "run tests for the auth module", ExpectedValue: 0.9, Suite: "auth",
	}, st)
	require.NoError(t, err)
	assert.Equal(t, Approve, decision.Kind)
}

func TestBeforeAction_RejectsUnsafeDelete(t *testing.T) {
	gate, st := newTestGate(t)
	decision, err := gate.BeforeAction(context.Background(), Action{
		ID: "a3", Kind: KindDeleteFile, Description: "delete tests auth module go.mod", Path: "go.mod", Backup: false, ExpectedValue: 0.9,
	}, st)
	require.NoError(t, err)
	assert.Equal(t, Reject, decision.Kind)
}

func TestAfterAction_SwitchesToDebuggingOnSurprise(t *testing.T) {
	gate, st := newTestGate(t)
	action := Action{ID: "a4", Kind: KindRunTests, Description: "run tests for the auth module", ExpectedValue: 0.9, Suite: "auth"}
	decision, err := gate.BeforeAction(context.Background(), action, st)
	require.NoError(t, err)
	require.NotEqual(t, Reject, decision.Kind)

	worse := st.Clone()
	worse.Goals["g1"] = state.GoalState{Completion: 0}
	err = gate.AfterAction(context.Background(), action, Result{ActionID: action.ID, Success: false}, worse)
	require.NoError(t, err)
	assert.Equal(t, Debugging, gate.Mode)
}

func TestRelevantGoals_ExplicitGoalIDWins(t *testing.T) {
	gate, _ := newTestGate(t)
	goals := gate.relevantGoals(Action{GoalID: "g1", Description: "unrelated text entirely"})
	require.Len(t, goals, 1)
	assert.Equal(t, "g1", goals[0].ID)
}
