package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeanPoolEmbedder_DeterministicAndDimensioned(t *testing.T) {
	e := NewMeanPoolEmbedder()
	ctx := context.Background()

	v1, err := e.Embed(ctx, "hello world")
	require.NoError(t, err)
	v2, err := e.Embed(ctx, "hello world")
	require.NoError(t, err)

	assert.Equal(t, primaryDimensions, len(v1))
	assert.Equal(t, v1, v2, "embedding the same text twice must be deterministic")
	assert.True(t, e.IsSOTA())
}

func TestMeanPoolEmbedder_EmptyTextReturnsZeroVector(t *testing.T) {
	e := NewMeanPoolEmbedder()
	v, err := e.Embed(context.Background(), "")
	require.NoError(t, err)
	for _, x := range v {
		assert.Equal(t, float32(0), x)
	}
}

func TestCharHashEmbedder_Dimensions(t *testing.T) {
	e := NewCharHashEmbedder()
	v, err := e.Embed(context.Background(), "short")
	require.NoError(t, err)
	assert.Equal(t, fallbackDimensions, len(v))
	assert.False(t, e.IsSOTA())
}

func TestCosineSimilarity_IdenticalVectorsAreOne(t *testing.T) {
	e := NewMeanPoolEmbedder()
	v, err := e.Embed(context.Background(), "the quick brown fox")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, CosineSimilarity(v, v), 1e-6)
}

func TestCosineSimilarity_UnrelatedTextScoresLower(t *testing.T) {
	e := NewMeanPoolEmbedder()
	ctx := context.Background()
	a, _ := e.Embed(ctx, "database replication and consensus protocols")
	b, _ := e.Embed(ctx, "a recipe for baking sourdough bread")
	same, _ := e.Embed(ctx, "database replication and consensus protocols")

	assert.Greater(t, CosineSimilarity(a, same), CosineSimilarity(a, b))
}

func TestFallbackEmbedder_UsesPrimaryByDefault(t *testing.T) {
	f := NewFallbackEmbedder()
	assert.True(t, f.IsSOTA())
	assert.Equal(t, primaryDimensions, f.Dimensions())

	v, err := f.Embed(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, primaryDimensions, len(v))
}
