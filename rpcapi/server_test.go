package rpcapi

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsneelabh/sentinel-swarm/alignment"
	"github.com/itsneelabh/sentinel-swarm/cognitive"
	"github.com/itsneelabh/sentinel-swarm/goal"
	"github.com/itsneelabh/sentinel-swarm/learning"
	"github.com/itsneelabh/sentinel-swarm/memory"
	"github.com/itsneelabh/sentinel-swarm/oracle/providers/mock"
	"github.com/itsneelabh/sentinel-swarm/predicate"
	"github.com/itsneelabh/sentinel-swarm/state"
	"github.com/itsneelabh/sentinel-swarm/swarm"
)

func newTestRuntime(t *testing.T) *Runtime {
	t.Helper()
	m := goal.NewManifold("ship the auth feature")
	root := goal.NewGoal("root", "build authentication", predicate.AlwaysTrue(), 1.0)
	require.NoError(t, m.AddGoal(root))

	ev := predicate.NewEvaluator(nil, nil)
	field := alignment.NewField(ev)
	gate := cognitive.NewCognitiveState(m, ev, field)
	kb := learning.NewKnowledgeBase(nil, nil)
	st := state.NewProjectState(t.TempDir())

	rt := NewRuntime(m, ev, field, gate, kb, st)
	rt.Consensus = swarm.NewConsensus(swarm.NewConsensusConfig(), swarm.NewBus())
	rt.Coordinator = swarm.NewCoordinator(memory.NewManifold(), mock.NewClient(), swarm.NewCoordinatorConfig(), nil)
	return rt
}

func dispatch(t *testing.T, s *Server, method string, params any) Response {
	t.Helper()
	raw, err := json.Marshal(params)
	require.NoError(t, err)
	return s.Dispatch(context.Background(), Request{JSONRPC: "2.0", ID: 1, Method: method, Params: raw})
}

func TestServer_ValidateAction_ApprovesGoalContributingAction(t *testing.T) {
	rt := newTestRuntime(t)
	s := NewServer(rt)

	resp := dispatch(t, s, "validate_action", map[string]any{
		"action": map[string]any{
			"kind":           "write_file",
			"description":    "build authentication handler",
			"goal_id":        "root",
			"expected_value": 1.0,
			"path":           "auth.go",
		},
	})

	require.Nil(t, resp.Error)
	var result DecisionResult
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	assert.Equal(t, "approve", result.Decision)
}

func TestServer_ValidateAction_RejectsActionWithNoMatchingGoal(t *testing.T) {
	rt := newTestRuntime(t)
	s := NewServer(rt)

	resp := dispatch(t, s, "validate_action", map[string]any{
		"action": map[string]any{
			"kind":           "write_file",
			"description":    "completely unrelated text",
			"expected_value": 1.0,
			"path":           "whatever.go",
		},
	})

	require.Nil(t, resp.Error)
	var result DecisionResult
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	assert.Equal(t, "reject", result.Decision)
}

func TestServer_GetAlignment_ReturnsScore(t *testing.T) {
	rt := newTestRuntime(t)
	s := NewServer(rt)

	resp := dispatch(t, s, "get_alignment", map[string]any{})
	require.Nil(t, resp.Error)

	var result struct {
		Score float64 `json:"score"`
	}
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	assert.GreaterOrEqual(t, result.Score, 0.0)
}

func TestServer_SafeWrite_ApprovesWithoutExecutor(t *testing.T) {
	rt := newTestRuntime(t)
	rt.Executor = nil // no executor wired: handler must still answer with a decision
	s := NewServer(rt)

	resp := dispatch(t, s, "safe_write", map[string]any{
		"path":           "auth.go",
		"content":        "package auth",
		"goal_id":        "root",
		"expected_value": 1.0,
	})
	require.Nil(t, resp.Error)

	var result DecisionResult
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	assert.Equal(t, "approve", result.Decision)
}

func TestServer_ProposeStrategy_RegistersProposal(t *testing.T) {
	rt := newTestRuntime(t)
	s := NewServer(rt)

	resp := dispatch(t, s, "propose_strategy", map[string]any{
		"title":       "use bcrypt",
		"description": "switch password hashing to bcrypt",
		"kind":        "select_library",
		"subject":     "bcrypt",
	})
	require.Nil(t, resp.Error)

	var result struct {
		ProposalID string `json:"proposal_id"`
		Status     string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	assert.NotEmpty(t, result.ProposalID)
	assert.Equal(t, "voting", result.Status)
}

func TestServer_ProposeStrategy_ErrorsWithoutConsensusWired(t *testing.T) {
	rt := newTestRuntime(t)
	rt.Consensus = nil
	s := NewServer(rt)

	resp := dispatch(t, s, "propose_strategy", map[string]any{"title": "x"})
	require.NotNil(t, resp.Error)
}

func TestServer_RecordHandover_AppendsToManifold(t *testing.T) {
	rt := newTestRuntime(t)
	s := NewServer(rt)

	resp := dispatch(t, s, "record_handover", map[string]any{
		"goal_id": "root",
		"from":    "agent-a",
		"to":      "agent-b",
		"reason":  "shift change",
	})
	require.Nil(t, resp.Error)
	assert.Len(t, rt.Manifold.HandoverLog(), 1)
}

func TestServer_GetCognitiveMap_ReturnsModeAndBeliefs(t *testing.T) {
	rt := newTestRuntime(t)
	s := NewServer(rt)

	resp := dispatch(t, s, "get_cognitive_map", map[string]any{})
	require.Nil(t, resp.Error)

	var result struct {
		Mode    string             `json:"mode"`
		Beliefs []cognitive.Belief `json:"beliefs"`
	}
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	assert.Equal(t, "planning", result.Mode)
}

func TestServer_GetEnforcementRules_IncludesThresholdsAndInvariants(t *testing.T) {
	rt := newTestRuntime(t)
	rt.Manifold.AddInvariant(goal.NewInvariant("inv1", "build always compiles", predicate.AlwaysTrue()))
	s := NewServer(rt)

	resp := dispatch(t, s, "get_enforcement_rules", map[string]any{})
	require.Nil(t, resp.Error)

	var result struct {
		Rules []EnforcementRule `json:"rules"`
	}
	require.NoError(t, json.Unmarshal(resp.Result, &result))

	names := make(map[string]bool)
	for _, r := range result.Rules {
		names[r.Name] = true
	}
	assert.True(t, names["min_expected_value"])
	assert.True(t, names["inv1"])
}

func TestServer_DecomposeGoal_ClassifiesDescriptionDirectly(t *testing.T) {
	rt := newTestRuntime(t)
	s := NewServer(rt)

	resp := dispatch(t, s, "decompose_goal", map[string]any{
		"description": "build a jwt login endpoint with postgres storage",
	})
	require.Nil(t, resp.Error)

	var result struct {
		Domain   string              `json:"domain"`
		Subgoals []SubgoalSuggestion `json:"subgoals"`
	}
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	assert.Equal(t, "security", result.Domain)
	assert.NotEmpty(t, result.Subgoals)
}

func TestServer_DecomposeGoal_ExecuteTrueRunsSwarmCoordinator(t *testing.T) {
	rt := newTestRuntime(t)
	s := NewServer(rt)

	resp := dispatch(t, s, "decompose_goal", map[string]any{
		"description": "write a unit test for the parser",
		"execute":     true,
	})
	require.Nil(t, resp.Error)

	var result struct {
		Execution *swarm.SwarmExecutionResult `json:"execution"`
	}
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	require.NotNil(t, result.Execution)
	assert.Equal(t, "write a unit test for the parser", result.Execution.Goal)
}

func TestServer_DecomposeGoal_ResolvesDescriptionFromGoalID(t *testing.T) {
	rt := newTestRuntime(t)
	s := NewServer(rt)

	resp := dispatch(t, s, "decompose_goal", map[string]any{"goal_id": "root"})
	require.Nil(t, resp.Error)

	var result struct {
		Subgoals []SubgoalSuggestion `json:"subgoals"`
	}
	require.NoError(t, json.Unmarshal(resp.Result, &result))
}

func TestServer_Dispatch_UnknownMethodReturnsMethodNotFound(t *testing.T) {
	rt := newTestRuntime(t)
	s := NewServer(rt)

	resp := s.Dispatch(context.Background(), Request{JSONRPC: "2.0", ID: 7, Method: "no_such_method"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeMethodNotFound, resp.Error.Code)
}

func TestServer_Serve_ProcessesNewlineDelimitedRequests(t *testing.T) {
	rt := newTestRuntime(t)
	s := NewServer(rt)

	in := bytes.NewBufferString(
		`{"jsonrpc":"2.0","id":1,"method":"get_cognitive_map","params":{}}` + "\n" +
			`{"jsonrpc":"2.0","id":2,"method":"no_such_method"}` + "\n" +
			"not json at all\n",
	)
	var out bytes.Buffer

	err := s.Serve(context.Background(), in, &out)
	require.NoError(t, err)

	lines := bytes.Split(bytes.TrimRight(out.Bytes(), "\n"), []byte("\n"))
	require.Len(t, lines, 3)

	var r1, r2, r3 Response
	require.NoError(t, json.Unmarshal(lines[0], &r1))
	require.NoError(t, json.Unmarshal(lines[1], &r2))
	require.NoError(t, json.Unmarshal(lines[2], &r3))

	assert.Nil(t, r1.Error)
	assert.Equal(t, CodeMethodNotFound, r2.Error.Code)
	assert.Equal(t, CodeParseError, r3.Error.Code)
}
