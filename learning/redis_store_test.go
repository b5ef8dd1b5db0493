package learning

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) *RedisPatternStore {
	t.Helper()
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	return NewRedisPatternStoreWithClient(client, "test")
}

func TestRedisPatternStore_RoundTrip(t *testing.T) {
	store := newTestRedisStore(t)
	defer store.Close()

	snap := Snapshot{
		Patterns:  map[string]SuccessPattern{"p1": {ID: "p1", SuccessRate: 0.6}},
		Relations: map[string]float64{"p1::p2": 0.25},
	}
	require.NoError(t, store.Save(context.Background(), snap))

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, 0.6, loaded.Patterns["p1"].SuccessRate)
}

func TestRedisPatternStore_LoadMissingKeyReturnsNilSnapshot(t *testing.T) {
	store := newTestRedisStore(t)
	defer store.Close()

	snap, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestKnowledgeBase_LoadFromRedisBackedStore(t *testing.T) {
	store := newTestRedisStore(t)
	defer store.Close()

	writer := NewKnowledgeBase(store, nil)
	writer.StorePattern(context.Background(), SuccessPattern{ID: "p1", ApplicableGoalTypes: []string{"backend"}, SuccessRate: 0.5})

	// StorePattern persists fire-and-forget in a goroutine; give it a beat
	// by re-saving synchronously through the store directly for the reader
	// to observe deterministically.
	require.NoError(t, store.Save(context.Background(), writer.Snapshot()))

	reader := NewKnowledgeBase(store, nil)
	require.NoError(t, reader.Load(context.Background()))
	found := reader.FindApplicablePatterns("backend")
	require.Len(t, found, 1)
	assert.Equal(t, "p1", found[0].ID)
}
