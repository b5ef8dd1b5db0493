package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEpisodic_RecordAndQueryByGoal(t *testing.T) {
	e := NewEpisodic()
	embedder := NewMeanPoolEmbedder()
	ctx := context.Background()

	_, err := e.Record(ctx, embedder, "ep-1", "goal-1", "wrote the parser module", []string{"parser"})
	require.NoError(t, err)
	_, err = e.Record(ctx, embedder, "ep-2", "goal-2", "fixed a bug in the lexer", []string{"bugfix"})
	require.NoError(t, err)

	assert.Equal(t, 2, e.Len())

	byGoal := e.QueryByGoal("goal-1")
	require.Len(t, byGoal, 1)
	assert.Equal(t, "ep-1", byGoal[0].ID)
}

func TestEpisodic_QueryByTag(t *testing.T) {
	e := NewEpisodic()
	embedder := NewMeanPoolEmbedder()
	ctx := context.Background()

	e.Record(ctx, embedder, "ep-1", "goal-1", "implemented caching layer", []string{"perf", "cache"})
	e.Record(ctx, embedder, "ep-2", "goal-1", "reviewed a pull request", []string{"review"})

	tagged := e.QueryByTag("cache")
	require.Len(t, tagged, 1)
	assert.Equal(t, "ep-1", tagged[0].ID)
}

func TestEpisodic_QueryBySimilarityRanksClosestFirst(t *testing.T) {
	e := NewEpisodic()
	embedder := NewMeanPoolEmbedder()
	ctx := context.Background()

	e.Record(ctx, embedder, "ep-1", "goal-1", "database connection pooling retry logic", nil)
	e.Record(ctx, embedder, "ep-2", "goal-1", "unrelated frontend css styling tweak", nil)

	queryVec, err := embedder.Embed(ctx, "database connection pooling retry logic")
	require.NoError(t, err)

	results := e.QueryBySimilarity(queryVec, 2)
	require.Len(t, results, 2)
	assert.Equal(t, "ep-1", results[0].Episode.ID)
	assert.GreaterOrEqual(t, results[0].Similarity, results[1].Similarity)
}

func TestEpisodic_CompressMergesNearDuplicates(t *testing.T) {
	e := NewEpisodic()
	embedder := NewMeanPoolEmbedder()
	ctx := context.Background()

	e.Record(ctx, embedder, "ep-1", "goal-1", "ran the test suite and all tests passed", []string{"ci"})
	e.Record(ctx, embedder, "ep-2", "goal-1", "ran the test suite and all tests passed", []string{"nightly"})
	e.Record(ctx, embedder, "ep-3", "goal-2", "completely different topic about networking protocols", nil)

	removed := e.Compress()
	assert.Equal(t, 1, removed)
	assert.Equal(t, 2, e.Len())

	merged := e.QueryByGoal("goal-1")
	require.Len(t, merged, 1)
	assert.ElementsMatch(t, []string{"ci", "nightly"}, merged[0].Tags)
}

func TestEpisodic_CompressNoOpBelowThreshold(t *testing.T) {
	e := NewEpisodic()
	embedder := NewMeanPoolEmbedder()
	ctx := context.Background()

	e.Record(ctx, embedder, "ep-1", "goal-1", "alpha beta gamma delta", nil)
	e.Record(ctx, embedder, "ep-2", "goal-2", "completely unrelated zeta omega text", nil)

	removed := e.Compress()
	assert.Equal(t, 0, removed)
	assert.Equal(t, 2, e.Len())
}

func TestEpisode_RelevanceScore(t *testing.T) {
	now := time.Now()
	fresh := Episode{Importance: 0.8, LastAccess: now}
	assert.InDelta(t, 0.8, fresh.RelevanceScore(now), 1e-9)

	stale := Episode{Importance: 0.8, LastAccess: now.Add(-relevanceHalfLife)}
	assert.InDelta(t, 0.4, stale.RelevanceScore(now), 1e-9)

	recalled := Episode{Importance: 0.8, LastAccess: now, AccessCount: 4}
	assert.Greater(t, recalled.RelevanceScore(now), fresh.RelevanceScore(now))
}

func TestMergeEpisodes_KeepsHigherImportanceAndSumsAccess(t *testing.T) {
	a := Episode{ID: "a", Importance: 0.3, AccessCount: 2, GoalIDs: []string{"g1"}, Tags: []string{"ci"}}
	b := Episode{ID: "b", Importance: 0.9, AccessCount: 5, GoalIDs: []string{"g2"}, Tags: []string{"nightly"}}

	merged := mergeEpisodes(a, b)
	assert.Equal(t, "b", merged.ID)
	assert.Equal(t, 7, merged.AccessCount)
	assert.ElementsMatch(t, []string{"g1", "g2"}, merged.GoalIDs)
	assert.ElementsMatch(t, []string{"ci", "nightly"}, merged.Tags)
}
