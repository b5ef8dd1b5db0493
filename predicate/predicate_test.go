package predicate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsneelabh/sentinel-swarm/state"
)

func sampleState() *state.ProjectState {
	st := state.NewProjectState("/work")
	st.Files["main.go"] = state.FileState{Type: state.FileTypeSource}
	st.Files["cmd/main.go"] = state.FileState{Type: state.FileTypeSource}
	st.Suites["unit"] = state.TestSuiteResult{Total: 10, Passed: 9, Coverage: 0.8}
	st.Suites["integration"] = state.TestSuiteResult{Total: 4, Passed: 4, Coverage: 0.5}
	st.Metrics.BuildSuccessRate = 1.0
	return st
}

func TestEvaluate_Leaves(t *testing.T) {
	ev := NewEvaluator(nil, nil)
	st := sampleState()
	ctx := context.Background()

	cases := []struct {
		name string
		pred *Predicate
		want bool
	}{
		{"file exists", FileExists("main.go"), true},
		{"file missing", FileExists("nope.go"), false},
		{"dir exists", DirectoryExists("cmd"), true},
		{"dir missing", DirectoryExists("missing"), false},
		{"suite fully passing", TestsPassing("integration", 1.0), true},
		{"suite below threshold", TestsPassing("unit", 1.0), false},
		{"performance within budget", Performance("build_success_rate", 1.0), true},
		{"always true", AlwaysTrue(), true},
		{"always false", AlwaysFalse(), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ev.Evaluate(ctx, tc.pred, st)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEvaluate_AndShortCircuits(t *testing.T) {
	ev := NewEvaluator(nil, nil)
	st := sampleState()

	poison := CommandSucceeds("should-not-run")
	p := And(AlwaysFalse(), poison)
	got, err := ev.Evaluate(context.Background(), p, st)
	require.NoError(t, err)
	assert.False(t, got)
}

func TestEvaluate_OrShortCircuits(t *testing.T) {
	ev := NewEvaluator(nil, nil)
	st := sampleState()

	poison := CommandSucceeds("should-not-run")
	p := Or(AlwaysTrue(), poison)
	got, err := ev.Evaluate(context.Background(), p, st)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestEvaluate_MissingExecutor(t *testing.T) {
	ev := NewEvaluator(nil, nil)
	st := sampleState()
	_, err := ev.Evaluate(context.Background(), CommandSucceeds("ls"), st)
	require.Error(t, err)
	var perr *PredicateError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, KindMissingExecutor, perr.Kind)
}

func TestSimplify(t *testing.T) {
	p := And(AlwaysTrue(), Or(AlwaysFalse(), FileExists("x")), Not(Not(AlwaysTrue())))
	simplified := p.Simplify()
	assert.Equal(t, KindFileExists, simplified.Kind)
	assert.Equal(t, "x", simplified.Path)
}

func TestSimplify_Annihilators(t *testing.T) {
	assert.Equal(t, KindAlwaysFalse, And(AlwaysTrue(), AlwaysFalse()).Simplify().Kind)
	assert.Equal(t, KindAlwaysTrue, Or(FileExists("x"), AlwaysTrue()).Simplify().Kind)
}

func TestRequiresExternalResources(t *testing.T) {
	assert.False(t, FileExists("x").RequiresExternalResources())
	assert.True(t, CommandSucceeds("ls").RequiresExternalResources())
	assert.True(t, And(FileExists("x"), APIEndpoint("http://x", 200)).RequiresExternalResources())
}

func TestExprCustomEvaluator(t *testing.T) {
	ce := NewExprCustomEvaluator()
	st := sampleState()

	ok, err := ce.Eval(context.Background(), "AverageCoverage > 0.5", "expr", st)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = ce.Eval(context.Background(), "import(\"os\")", "expr", st)
	require.Error(t, err)
	var sbErr *SandboxError
	require.ErrorAs(t, err, &sbErr)
	assert.True(t, sbErr.IsolationBreach)
}

func TestExprCustomEvaluator_WiredThroughEvaluate(t *testing.T) {
	ce := NewExprCustomEvaluator()
	ev := NewEvaluator(nil, ce)
	st := sampleState()

	p := Custom("FileCount >= 2", "expr", "at least two tracked files")
	got, err := ev.Evaluate(context.Background(), p, st)
	require.NoError(t, err)
	assert.True(t, got)
}
