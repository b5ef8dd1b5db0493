package swarm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsneelabh/sentinel-swarm/memory"
	"github.com/itsneelabh/sentinel-swarm/oracle/providers/mock"
)

func TestCoordinator_RunIsDeterministicInShape(t *testing.T) {
	goalText := "Build authentication system with JWT and password hashing"

	runOnce := func() SwarmExecutionResult {
		client := mock.NewClient()
		client.Responses = make([]string, 0, 8)
		for i := 0; i < 8; i++ {
			client.Responses = append(client.Responses, "---FILE: out.go---\npackage out\n---END---")
		}
		cfg := NewCoordinatorConfig()
		cfg.Consensus.TickPeriod = 5 * time.Millisecond
		coord := NewCoordinator(memory.NewManifold(), client, cfg, nil)
		result, err := coord.Run(context.Background(), goalText)
		require.NoError(t, err)
		return result
	}

	first := runOnce()
	second := runOnce()
	assert.Equal(t, first.AgentCount, second.AgentCount)
	assert.Greater(t, first.AgentCount, 0)
}

func TestCoordinator_DetectsResourceConflictAcrossAgents(t *testing.T) {
	client := mock.NewClient()
	client.Responses = []string{
		"---FILE: auth.rs---\nuse bcrypt\n---END---",
		"---FILE: auth.rs---\nuse argon2\n---END---",
	}
	cfg := NewCoordinatorConfig()
	cfg.Consensus.TickPeriod = 5 * time.Millisecond
	coord := NewCoordinator(memory.NewManifold(), client, cfg, nil)

	result, err := coord.Run(context.Background(), "authenticate users with jwt and password hashing")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, result.ConflictsDetected, 1)
}
