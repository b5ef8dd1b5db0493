package swarm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPersonalityFromGoal_Deterministic(t *testing.T) {
	hash := GoalHash("build auth system")
	a := PersonalityFromGoal(hash, TypeAuthArchitect)
	b := PersonalityFromGoal(hash, TypeAuthArchitect)
	assert.Equal(t, a, b)
}

func TestPersonalityFromGoal_DiffersByType(t *testing.T) {
	hash := GoalHash("build auth system")
	a := PersonalityFromGoal(hash, TypeAuthArchitect)
	b := PersonalityFromGoal(hash, TypeTestWriter)
	assert.NotEqual(t, a, b)
	assert.Equal(t, authorityFor(TypeAuthArchitect), a.Authority)
	assert.Equal(t, authorityFor(TypeTestWriter), b.Authority)
}

func TestDeterministicAgentID_PureFunction(t *testing.T) {
	hash := GoalHash("build auth system")
	a := DeterministicAgentID(hash, TypeAuthArchitect, 0)
	b := DeterministicAgentID(hash, TypeAuthArchitect, 0)
	assert.Equal(t, a, b)

	c := DeterministicAgentID(hash, TypeAuthArchitect, 1)
	assert.NotEqual(t, a, c)
}

func TestVoteAlignmentScore_Thresholds(t *testing.T) {
	highRiskInnovation := Personality{Risk: 1.0, Innovation: 1.0}
	assert.Greater(t, highRiskInnovation.VoteAlignmentScore(), 0.7)

	lowRiskInnovation := Personality{Risk: 0.0, Innovation: 0.0}
	assert.Less(t, lowRiskInnovation.VoteAlignmentScore(), 0.3)

	neutral := Personality{Risk: 0.5, Innovation: 0.5}
	score := neutral.VoteAlignmentScore()
	assert.InDelta(t, 0.5, score, 1e-9)
}
