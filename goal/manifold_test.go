package goal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsneelabh/sentinel-swarm/predicate"
	"github.com/itsneelabh/sentinel-swarm/state"
)

func TestGoal_Transition(t *testing.T) {
	g := NewGoal("g1", "ship feature", predicate.AlwaysTrue(), 1.0)
	require.NoError(t, g.Transition(StatusReady))
	require.NoError(t, g.Transition(StatusInProgress))
	err := g.Transition(StatusCompleted)
	require.Error(t, err)
	var ist *InvalidStateTransition
	require.ErrorAs(t, err, &ist)
}

func TestGoal_TerminalHasNoOutgoingTransitions(t *testing.T) {
	g := NewGoal("g1", "ship feature", predicate.AlwaysTrue(), 1.0)
	require.NoError(t, g.Transition(StatusReady))
	require.NoError(t, g.Transition(StatusInProgress))
	require.NoError(t, g.Transition(StatusValidating))
	require.NoError(t, g.Transition(StatusCompleted))
	assert.True(t, g.IsTerminal())
	assert.Error(t, g.Transition(StatusReady))
}

func TestManifold_AddGoalAndReadyGoals(t *testing.T) {
	m := NewManifold("ship the release")
	a := NewGoal("a", "first", predicate.AlwaysTrue(), 1.0)
	b := NewGoal("b", "second", predicate.AlwaysTrue(), 1.0)
	require.NoError(t, m.AddGoal(a))
	require.NoError(t, m.AddGoal(b, "a"))

	ready := m.ReadyGoals()
	assert.Equal(t, []string{"a"}, ready)

	require.NoError(t, m.TransitionGoal("a", StatusReady))
	require.NoError(t, m.TransitionGoal("a", StatusInProgress))
	require.NoError(t, m.TransitionGoal("a", StatusValidating))
	require.NoError(t, m.TransitionGoal("a", StatusCompleted))

	ready = m.ReadyGoals()
	assert.Equal(t, []string{"b"}, ready)
}

func TestManifold_SealAndVerifyIntegrity(t *testing.T) {
	m := NewManifold("ship the release")
	// AddGoal seals automatically (spec.md §4.C): integrity holds right away,
	// with no separate Seal call required.
	require.NoError(t, m.AddGoal(NewGoal("a", "first", predicate.AlwaysTrue(), 1.0)))
	require.NoError(t, m.VerifyIntegrity())
	require.Len(t, m.History(), 1)

	require.NoError(t, m.AddGoal(NewGoal("b", "second", predicate.AlwaysTrue(), 1.0)))
	require.NoError(t, m.VerifyIntegrity())
	require.Len(t, m.History(), 2)

	// A manual Seal is still available for a caller-chosen checkpoint note,
	// and does not disturb integrity.
	m.Seal("pre-execution checkpoint")
	require.NoError(t, m.VerifyIntegrity())
	require.Len(t, m.History(), 3)
}

func TestManifold_VerifyIntegrity_DetectsTamperingBetweenSeals(t *testing.T) {
	m := NewManifold("ship the release")
	require.NoError(t, m.AddGoal(NewGoal("a", "first", predicate.AlwaysTrue(), 1.0)))
	require.NoError(t, m.VerifyIntegrity())

	// Reach past the public API to simulate the goal set changing without
	// going through a mutator, the scenario VerifyIntegrity exists to catch.
	m.goals["a"].Weight = 0.25

	err := m.VerifyIntegrity()
	require.Error(t, err)
	var merr *ManifoldError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, KindIntegrityViolation, merr.Kind)
}

func TestManifold_VerifyIntegrity_NoHistory(t *testing.T) {
	m := NewManifold("ship the release")
	err := m.VerifyIntegrity()
	require.Error(t, err)
	var merr *ManifoldError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, KindVersionNotFound, merr.Kind)
}

func TestManifold_ValidateInvariants(t *testing.T) {
	m := NewManifold("ship the release")
	m.AddInvariant(NewInvariant("build-ok", "build never regresses", predicate.Performance("build_success_rate", 0)))

	ev := predicate.NewEvaluator(nil, nil)
	st := state.NewProjectState("/work")
	st.Metrics.BuildSuccessRate = 0.5

	violated := m.ValidateInvariants(context.Background(), ev, st)
	require.Len(t, violated, 1)
	assert.Equal(t, "build-ok", violated[0].ID)
}

func TestGoal_Validate_RejectsWeightOutOfRange(t *testing.T) {
	g := NewGoal("g1", "ship feature", predicate.AlwaysTrue(), 1.0)
	g.Weight = 1.5
	err := g.Validate()
	require.Error(t, err)
	var gerr *GoalError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, KindInvalidValue, gerr.Kind)
}

func TestGoal_Validate_RejectsNegativeComplexity(t *testing.T) {
	g := NewGoal("g1", "ship feature", predicate.AlwaysTrue(), 1.0)
	g.ComplexityStdDev = -1
	err := g.Validate()
	require.Error(t, err)
	var gerr *GoalError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, KindInvalidComplexity, gerr.Kind)
}

func TestGoal_Validate_RejectsEmptySuccessCriteria(t *testing.T) {
	g := NewGoalWithCriteria("g1", "ship feature", nil, 1.0)
	err := g.Validate()
	require.Error(t, err)
	var gerr *GoalError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, KindEmptySuccessCriteria, gerr.Kind)
}

func TestManifold_AddGoal_RejectsInvalidGoal(t *testing.T) {
	m := NewManifold("ship the release")
	g := NewGoalWithCriteria("bad", "no criteria", nil, 1.0)
	err := m.AddGoal(g)
	require.Error(t, err)
	var gerr *GoalError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, KindEmptySuccessCriteria, gerr.Kind)
	assert.Empty(t, m.History())
}

func TestGoal_CombinedAcceptance_CombinesMultipleCriteria(t *testing.T) {
	g := NewGoalWithCriteria("g1", "ship feature",
		[]*predicate.Predicate{predicate.AlwaysTrue(), predicate.AlwaysTrue()}, 1.0)
	combined := g.CombinedAcceptance()
	require.NotNil(t, combined)
	assert.Equal(t, predicate.KindAnd, combined.Kind)
	assert.Len(t, combined.Operands, 2)
}

func TestManifold_RecordHandover(t *testing.T) {
	m := NewManifold("ship the release")
	require.NoError(t, m.AddGoal(NewGoal("a", "first", predicate.AlwaysTrue(), 1.0)))
	m.Seal("initial")
	entry := m.RecordHandover("a", "agent-1", "agent-2", "agent-1 needs review")
	log := m.HandoverLog()
	require.Len(t, log, 1)
	assert.Equal(t, entry, log[0])
	assert.Equal(t, "agent-2", log[0].ToOwner)
}

func TestManifold_IntegrityHashCoversIntentFields(t *testing.T) {
	base := Intent{Description: "ship auth", Constraints: []string{"no plaintext secrets"}}
	a := NewManifoldFromIntent(base)
	constrained := base
	constrained.Constraints = []string{"no plaintext secrets", "fips only"}
	b := NewManifoldFromIntent(constrained)

	va := a.Seal("initial")
	vb := b.Seal("initial")
	assert.NotEqual(t, va.Hash, vb.Hash)
}

func TestManifold_IntentIsCopiedBothWays(t *testing.T) {
	intent := Intent{Description: "ship auth", Languages: []string{"go"}}
	m := NewManifoldFromIntent(intent)

	intent.Languages[0] = "rust"
	assert.Equal(t, "go", m.Intent().Languages[0])

	got := m.Intent()
	got.Languages[0] = "python"
	assert.Equal(t, "go", m.Intent().Languages[0])
}
