package swarm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnalyze_Determinism(t *testing.T) {
	text := "Build authentication system with JWT and password hashing"
	first := Analyze(text)
	second := Analyze(text)
	assert.Equal(t, first.RequiredAgents, second.RequiredAgents)
	assert.Equal(t, first.Complexity, second.Complexity)
}

func TestAnalyze_AuthJWTRequiresExpectedAgents(t *testing.T) {
	result := Analyze("Build authentication system with JWT and password hashing")
	assert.Contains(t, result.RequiredAgents, TypeAuthArchitect)
	assert.Contains(t, result.RequiredAgents, TypeSecurityAuditor)
	assert.Contains(t, result.RequiredAgents, TypeJWTCoder)
	assert.Greater(t, result.Complexity, 0.4)
}

func TestAnalyze_EmergenceSpawnsManagerPastThreshold(t *testing.T) {
	result := Analyze("Build an authenticated REST API with a postgres database, a react frontend, full test coverage, and a kubernetes deployment pipeline")
	assert.Contains(t, result.RequiredAgents, TypeManagerAgent)
	assert.Equal(t, TypeManagerAgent, result.RequiredAgents[0])
}

func TestAnalyze_OAuthAddsPattern(t *testing.T) {
	result := Analyze("add oauth login support")
	assert.Contains(t, result.Patterns, "OAuth")
}
