package persistence

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsneelabh/sentinel-swarm/core"
	"github.com/itsneelabh/sentinel-swarm/goal"
	"github.com/itsneelabh/sentinel-swarm/predicate"
)

func buildTestManifold(t *testing.T) *goal.Manifold {
	t.Helper()
	m := goal.NewManifold("ship the auth feature")
	root := goal.NewGoal("root", "build authentication", predicate.AlwaysTrue(), 1.0)
	require.NoError(t, m.AddGoal(root))
	child := goal.NewGoal("child", "write auth tests", predicate.TestsPassing("auth", 1.0), 0.5)
	require.NoError(t, m.AddGoal(child, "root"))
	m.AddInvariant(goal.NewInvariant("inv1", "build always compiles", predicate.AlwaysTrue()))
	m.Seal("initial version")
	m.RecordHandover("root", "agent-a", "agent-b", "handoff for review")
	return m
}

func TestManifoldStore_SaveThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	store := NewManifoldStore(filepath.Join(dir, ManifoldFileName))

	original := buildTestManifold(t)
	require.NoError(t, store.Save(original, nil))

	loaded, unknown, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Empty(t, unknown)

	assert.Equal(t, original.Intent(), loaded.Intent())
	assert.Len(t, loaded.Goals(), 2)
	assert.Equal(t, []string{"root"}, loaded.DAG().Dependencies("child"))
	assert.Len(t, loaded.History(), 4)
	assert.Len(t, loaded.HandoverLog(), 1)
	assert.Len(t, loaded.Invariants(), 1)
}

func TestManifoldStore_RoundTripsStructuredIntent(t *testing.T) {
	dir := t.TempDir()
	store := NewManifoldStore(filepath.Join(dir, ManifoldFileName))

	intent := goal.Intent{
		Description:      "ship the auth feature",
		Constraints:      []string{"no plaintext secrets"},
		ExpectedOutcomes: []string{"login works"},
		TargetPlatform:   "linux",
		Languages:        []string{"go"},
		Infrastructure:   map[string]string{"db": "postgres://localhost"},
	}
	m := goal.NewManifoldFromIntent(intent)
	require.NoError(t, m.AddGoal(goal.NewGoal("root", "build authentication", predicate.AlwaysTrue(), 1.0)))
	require.NoError(t, store.Save(m, nil))

	loaded, _, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, intent, loaded.Intent())
}

func TestManifoldStore_ReadsLegacyStringIntent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ManifoldFileName)
	legacy := `{"schema_version": 2, "intent": "ship the auth feature", "goals": [], "version_history": []}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))

	loaded, _, err := NewManifoldStore(path).Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "ship the auth feature", loaded.Intent().Description)
}

func TestManifoldStore_LoadMissingFileYieldsNilManifold(t *testing.T) {
	store := NewManifoldStore(filepath.Join(t.TempDir(), ManifoldFileName))
	m, unknown, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, m)
	assert.Nil(t, unknown)
}

func TestManifoldStore_PreservesUnknownFieldsAcrossSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ManifoldFileName)

	hand := map[string]json.RawMessage{"future_field": json.RawMessage(`{"nested":true}`)}
	store := NewManifoldStore(path)
	require.NoError(t, store.Save(buildTestManifold(t), hand))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "future_field")

	_, unknown, err := store.Load()
	require.NoError(t, err)
	assert.Contains(t, unknown, "future_field")
}

func TestDiscover_WalksUpToAncestorDirectory(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ManifoldFileName), []byte(`{}`), 0o644))

	nested := filepath.Join(root, "a", "b", "c")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	found, err := Discover(nested)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, ManifoldFileName), found)
}

func TestDiscover_FallsBackToSentinelRootEnv(t *testing.T) {
	fallbackDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(fallbackDir, ManifoldFileName), []byte(`{}`), 0o644))
	t.Setenv(core.EnvSentinelRoot, fallbackDir)

	isolated := t.TempDir()
	found, err := Discover(isolated)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(fallbackDir, ManifoldFileName), found)
}
