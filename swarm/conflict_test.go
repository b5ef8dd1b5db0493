package swarm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsneelabh/sentinel-swarm/oracle/providers/mock"
)

// TestConflictEngine_DetectsSharedFile reproduces spec.md §8 scenario 4.
func TestConflictEngine_DetectsSharedFile(t *testing.T) {
	engine := NewConflictEngine()
	a, b := agentID(1), agentID(2)
	outputs := []AgentOutput{
		{AgentID: a, Content: "use bcrypt for password hashing", FilesWritten: []string{"auth.rs"}},
		{AgentID: b, Content: "use argon2 for password hashing", FilesWritten: []string{"auth.rs"}},
	}

	conflicts := engine.Detect(outputs)
	require.GreaterOrEqual(t, len(conflicts), 1)

	var hasResource, hasTechnical bool
	for _, c := range conflicts {
		if c.Kind == ConflictResource {
			hasResource = true
		}
		if c.Kind == ConflictTechnical {
			hasTechnical = true
		}
	}
	assert.True(t, hasResource)
	assert.True(t, hasTechnical)

	personalities := map[AgentID]Personality{
		a: {Authority: 0.8},
		b: {Authority: 0.5},
	}
	for _, c := range conflicts {
		resolution, err := engine.Resolve(context.Background(), c, personalities, nil)
		require.NoError(t, err)
		if c.Kind == ConflictTechnical {
			assert.Equal(t, ResolutionSynthesis, resolution.Kind)
			assert.Contains(t, resolution.Solution, "argon2")
			assert.Contains(t, resolution.HybridApproach, "bcrypt")
		}
		if c.Kind == ConflictResource {
			assert.Equal(t, ResolutionAuthorityBased, resolution.Kind)
			assert.Equal(t, a, resolution.WinnerID)
		}
	}
}

func TestConflictEngine_JournalReusesResolution(t *testing.T) {
	engine := NewConflictEngine()
	c1 := Conflict{Kind: ConflictTechnical, Subject: "sync vs async", Involved: []AgentID{agentID(1), agentID(2)}}
	r1, err := engine.Resolve(context.Background(), c1, nil, nil)
	require.NoError(t, err)

	c2 := Conflict{Kind: ConflictTechnical, Subject: "blocking vs non-blocking", Involved: []AgentID{agentID(3), agentID(4)}}
	r2, err := engine.Resolve(context.Background(), c2, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, r1, r2)
}

// TestConflictEngine_ResolveTechnical_ConsultsAgentBeforeSynthesis verifies
// the Technical path actually calls RequestClarification against the first
// involved agent and folds its answer into the resolution's reasoning,
// instead of skipping straight to resolveBySynthesis.
func TestConflictEngine_ResolveTechnical_ConsultsAgentBeforeSynthesis(t *testing.T) {
	engine := NewConflictEngine()
	a, b := agentID(1), agentID(2)

	oracle := mock.NewClient()
	oracle.SetResponses("prefer bcrypt here because the team already audited it")
	worker := NewWorkerAgent(a, TypeReviewAgent, Personality{}, nil, nil, nil, oracle, nil)

	c := Conflict{
		Kind:     ConflictTechnical,
		Subject:  "bcrypt vs argon2",
		Detail:   "contradictory technical choice: bcrypt vs argon2",
		Involved: []AgentID{a, b},
	}

	resolution, err := engine.Resolve(context.Background(), c, nil, map[AgentID]Agent{a: worker})
	require.NoError(t, err)
	assert.Equal(t, ResolutionSynthesis, resolution.Kind)
	assert.Equal(t, 1, oracle.CallCount)
	assert.Contains(t, resolution.Reasoning, "already audited it")
}

func TestArbiterID_DeterministicOverSortedParticipants(t *testing.T) {
	a, b := agentID(1), agentID(2)
	id1 := ArbiterID([]AgentID{a, b})
	id2 := ArbiterID([]AgentID{b, a})
	assert.Equal(t, id1, id2)
}
