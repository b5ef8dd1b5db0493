package alignment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsneelabh/sentinel-swarm/goal"
	"github.com/itsneelabh/sentinel-swarm/predicate"
	"github.com/itsneelabh/sentinel-swarm/state"
)

func buildManifold(t *testing.T) *goal.Manifold {
	m := goal.NewManifold("ship a feature")
	require.NoError(t, m.AddGoal(goal.NewGoal("build", "build succeeds", predicate.Not(predicate.Performance("build_success_rate", 0.99)), 1.0)))
	require.NoError(t, m.AddGoal(goal.NewGoal("tests", "unit suite passes", predicate.TestsPassing("unit", 1.0), 1.0)))
	return m
}

func sampleState() *state.ProjectState {
	st := state.NewProjectState("/work")
	st.Suites["unit"] = state.TestSuiteResult{Total: 10, Passed: 10, Coverage: 0.9}
	st.Metrics.BuildSuccessRate = 1.0
	return st
}

func TestField_ComputeAlignment_FullyAligned(t *testing.T) {
	m := buildManifold(t)
	ev := predicate.NewEvaluator(nil, nil)
	f := NewField(ev)
	score, err := f.ComputeAlignment(context.Background(), m, ev, sampleState())
	require.NoError(t, err)
	assert.InDelta(t, 100.0, score, 0.001)
}

func TestField_ComputeAlignment_PartiallyAligned(t *testing.T) {
	m := buildManifold(t)
	ev := predicate.NewEvaluator(nil, nil)
	f := NewField(ev)
	st := sampleState()
	st.Metrics.BuildSuccessRate = 0.0 // build goal now fails
	score, err := f.ComputeAlignment(context.Background(), m, ev, st)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, score, 0.001)
}

func TestField_ComputeVector_Contributions(t *testing.T) {
	m := buildManifold(t)
	ev := predicate.NewEvaluator(nil, nil)
	f := NewField(ev)
	vec, err := f.ComputeVector(context.Background(), m, ev, sampleState())
	require.NoError(t, err)
	assert.Equal(t, 1.0, vec.PerGoalContribution["build"])
	assert.Equal(t, 1.0, vec.PerGoalContribution["tests"])
	assert.InDelta(t, 0.0, vec.DeviationMagnitude, 0.001)
}

func TestField_ComputeGradient(t *testing.T) {
	m := buildManifold(t)
	ev := predicate.NewEvaluator(nil, nil)
	f := NewField(ev)
	gradient, err := f.ComputeGradient(context.Background(), m, ev, sampleState())
	require.NoError(t, err)
	assert.NotEmpty(t, gradient)
}

func TestSimulator_Run(t *testing.T) {
	m := buildManifold(t)
	ev := predicate.NewEvaluator(nil, nil)
	f := NewField(ev)
	cfg := SimulationConfig{Iterations: 20, TimeHorizon: 3, UncertaintyModel: Realistic, DeviationThreshold: 60, Seed: 42}
	sim := NewSimulator(cfg, f)

	result, err := sim.Run(context.Background(), m, ev, sampleState())
	require.NoError(t, err)
	assert.Len(t, result.Trajectories, 20)
	assert.GreaterOrEqual(t, result.MeanAlignment, 0.0)
	assert.LessOrEqual(t, result.MeanAlignment, 100.0)
}

func TestSimulator_RunIsPureWithRespectToCallerState(t *testing.T) {
	m := buildManifold(t)
	ev := predicate.NewEvaluator(nil, nil)
	f := NewField(ev)
	cfg := SimulationConfig{Iterations: 5, TimeHorizon: 2, UncertaintyModel: Realistic, DeviationThreshold: 60, Seed: 1}
	sim := NewSimulator(cfg, f)

	st := sampleState()
	before := st.Clone()
	_, err := sim.Run(context.Background(), m, ev, st)
	require.NoError(t, err)
	assert.Equal(t, before.Metrics, st.Metrics)
	assert.Equal(t, before.Suites, st.Suites)
}

func TestUncertaintyModel_NoiseBound(t *testing.T) {
	assert.Equal(t, 0.02, Optimistic.noiseBound())
	assert.Equal(t, 0.05, Realistic.noiseBound())
	assert.Equal(t, 0.10, Pessimistic.noiseBound())
}

func TestField_ComputeAlignment_EmptyGoalSetIsFullyAligned(t *testing.T) {
	m := goal.NewManifold("nothing yet")
	ev := predicate.NewEvaluator(nil, nil)
	f := NewField(ev)
	score, err := f.ComputeAlignment(context.Background(), m, ev, sampleState())
	require.NoError(t, err)
	assert.Equal(t, 100.0, score)
}

func TestField_GoalStateCompletionOverridesPredicate(t *testing.T) {
	m := buildManifold(t)
	ev := predicate.NewEvaluator(nil, nil)
	f := NewField(ev)

	st := sampleState()
	// Both predicates hold, but a tracked observation says the build goal
	// is only half done; the finer signal wins.
	st.Goals["build"] = state.GoalState{Completion: 0.5}
	score, err := f.ComputeAlignment(context.Background(), m, ev, st)
	require.NoError(t, err)
	assert.InDelta(t, 75.0, score, 0.001)
}

func TestField_ConfidenceFollowsCoverageAndTracking(t *testing.T) {
	m := buildManifold(t)
	ev := predicate.NewEvaluator(nil, nil)
	f := NewField(ev)

	untracked := sampleState()
	vec, err := f.ComputeVector(context.Background(), m, ev, untracked)
	require.NoError(t, err)
	assert.InDelta(t, 0.6*0.9+0.4*0.5, vec.Confidence, 0.001)

	tracked := sampleState()
	tracked.Goals["build"] = state.GoalState{Completion: 1.0}
	vec, err = f.ComputeVector(context.Background(), m, ev, tracked)
	require.NoError(t, err)
	assert.InDelta(t, 0.6*0.9+0.4*1.0, vec.Confidence, 0.001)
}

func TestSimulator_PersistentlyLowAlignmentIsCriticalDeviation(t *testing.T) {
	m := buildManifold(t)
	ev := predicate.NewEvaluator(nil, nil)
	f := NewField(ev)

	st := state.NewProjectState("/work")
	st.Suites["unit"] = state.TestSuiteResult{Total: 10, Passed: 0, Coverage: 0}
	st.Metrics.BuildSuccessRate = 0 // both goals fail; alignment stays at 0 throughout

	cfg := SimulationConfig{Iterations: 20, TimeHorizon: 3, UncertaintyModel: Realistic, DeviationThreshold: 60, Seed: 7}
	result, err := NewSimulator(cfg, f).Run(context.Background(), m, ev, st)
	require.NoError(t, err)

	assert.Equal(t, 1.0, result.DeviationProbability)
	assert.Equal(t, RiskCritical, result.Risk)
	assert.InDelta(t, 1-result.StdDeviation/100, result.Confidence, 1e-9)
}

func TestSimulator_WellAlignedTrackedGoalsStayLowRisk(t *testing.T) {
	m := buildManifold(t)
	ev := predicate.NewEvaluator(nil, nil)
	f := NewField(ev)

	st := state.NewProjectState("/work")
	st.Goals["build"] = state.GoalState{Completion: 1.0}
	st.Goals["tests"] = state.GoalState{Completion: 1.0}

	cfg := SimulationConfig{Iterations: 20, TimeHorizon: 3, UncertaintyModel: Optimistic, DeviationThreshold: 60, Seed: 7}
	result, err := NewSimulator(cfg, f).Run(context.Background(), m, ev, st)
	require.NoError(t, err)

	assert.Equal(t, 0.0, result.DeviationProbability)
	assert.Equal(t, RiskLow, result.Risk)
}
