package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func populated() *ProjectState {
	st := NewProjectState("/work")
	st.Files["main.go"] = FileState{Hash: "abc", Size: 120, Type: FileTypeSource}
	st.Suites["unit"] = TestSuiteResult{Total: 10, Passed: 8, Failed: 2, Coverage: 0.8}
	st.Goals["g1"] = GoalState{Status: "in_progress", Completion: 0.5, CriteriaTotal: 4, CriteriaMet: 2}
	st.Metrics.BuildSuccessRate = 0.9
	return st
}

func TestClone_IsDeep(t *testing.T) {
	st := populated()
	clone := st.Clone()
	clone.Files["main.go"] = FileState{Hash: "changed"}
	clone.Suites["unit"] = TestSuiteResult{Coverage: 0.1}
	clone.Goals["g1"] = GoalState{Completion: 1.0}
	clone.Metrics.BuildSuccessRate = 0.0

	assert.Equal(t, "abc", st.Files["main.go"].Hash)
	assert.Equal(t, 0.8, st.Suites["unit"].Coverage)
	assert.Equal(t, 0.5, st.Goals["g1"].Completion)
	assert.Equal(t, 0.9, st.Metrics.BuildSuccessRate)
}

func TestDimensions_EnumeratesEveryAxis(t *testing.T) {
	st := populated()
	dims := st.Dimensions()
	// one file + one suite + one goal + six metrics
	require.Len(t, dims, 9)

	kinds := map[string]int{}
	for _, d := range dims {
		kinds[d.Kind]++
	}
	assert.Equal(t, 1, kinds["file"])
	assert.Equal(t, 1, kinds["suite"])
	assert.Equal(t, 1, kinds["goal"])
	assert.Equal(t, 6, kinds["metric"])
}

func TestDimensions_StableOrder(t *testing.T) {
	st := populated()
	assert.Equal(t, st.Dimensions(), st.Dimensions())
}

func TestPerturb_DoesNotMutateOriginal(t *testing.T) {
	st := populated()
	perturbed := st.Perturb(Dimension{Kind: "suite", Key: "unit"}, 0.1)

	assert.InDelta(t, 0.9, perturbed.Suites["unit"].Coverage, 1e-9)
	assert.InDelta(t, 0.8, st.Suites["unit"].Coverage, 1e-9)
}

func TestPerturb_ClampsCompletionsAndCounts(t *testing.T) {
	st := populated()

	over := st.Perturb(Dimension{Kind: "goal", Key: "g1"}, 2.0)
	assert.Equal(t, 1.0, over.Goals["g1"].Completion)

	under := st.Perturb(Dimension{Kind: "goal", Key: "g1"}, -2.0)
	assert.Equal(t, 0.0, under.Goals["g1"].Completion)

	negLines := st.Perturb(Dimension{Kind: "metric", Key: "lines_of_code"}, -50)
	assert.Equal(t, 0.0, negLines.Metrics.LinesOfCode)
}

func TestPerturb_UnknownDimensionIsIdentity(t *testing.T) {
	st := populated()
	same := st.Perturb(Dimension{Kind: "suite", Key: "missing"}, 0.5)
	assert.Equal(t, st.Suites, same.Suites)
}

func TestAverages(t *testing.T) {
	st := populated()
	assert.InDelta(t, 0.8, st.AverageCoverage(), 1e-9)
	assert.InDelta(t, 0.5, st.GoalCompletionRatio(), 1e-9)

	empty := NewProjectState("/work")
	assert.Equal(t, 0.0, empty.AverageCoverage())
	assert.Equal(t, 0.0, empty.GoalCompletionRatio())
}

func TestPassRate(t *testing.T) {
	assert.InDelta(t, 0.8, TestSuiteResult{Total: 10, Passed: 8}.PassRate(), 1e-9)
	assert.Equal(t, 0.0, TestSuiteResult{}.PassRate())
}

func TestDistance(t *testing.T) {
	st := populated()
	assert.Equal(t, 0.0, st.Distance(st.Clone()))

	other := st.Perturb(Dimension{Kind: "metric", Key: "build_success_rate"}, -0.5)
	d := st.Distance(other)
	assert.InDelta(t, 0.5, d, 1e-9)
	assert.Equal(t, d, other.Distance(st))
}
