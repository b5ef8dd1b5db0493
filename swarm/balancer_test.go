package swarm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBalancer_HeartbeatAndHealth(t *testing.T) {
	b := NewBalancer(20 * time.Millisecond)
	id := agentID(1)
	b.Register(id)

	health, ok := b.GetHealth(id)
	require.True(t, ok)
	assert.True(t, health.IsHealthy(20*time.Millisecond, time.Now()))

	time.Sleep(30 * time.Millisecond)
	unhealthy := b.UnhealthyAgents(time.Now())
	assert.Contains(t, unhealthy, id)

	b.Heartbeat(id)
	unhealthy = b.UnhealthyAgents(time.Now())
	assert.NotContains(t, unhealthy, id)
}

func TestBalancer_TaskCompletedTracksAverageLatency(t *testing.T) {
	b := NewBalancer(0)
	id := agentID(2)
	b.TaskCompleted(id, true, 100)
	b.TaskCompleted(id, false, 200)

	health, ok := b.GetHealth(id)
	require.True(t, ok)
	assert.Equal(t, 2, health.TasksCompleted)
	assert.Equal(t, 1, health.SuccessCount)
	assert.Equal(t, 1, health.FailureCount)
	assert.InDelta(t, 150, health.AvgLatencyMs, 1e-9)
}
