package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorking_PutGetRoundTrip(t *testing.T) {
	w := NewWorking()
	evicted := w.Put("a", 1)
	assert.Nil(t, evicted)

	v, ok := w.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestWorking_GetMissingKey(t *testing.T) {
	w := NewWorking()
	_, ok := w.Get("nope")
	assert.False(t, ok)
}

func TestWorking_EvictsLeastRecentlyUsed(t *testing.T) {
	w := NewWorking()
	for i := 0; i < WorkingCapacity; i++ {
		key := string(rune('a' + i))
		evicted := w.Put(key, i)
		assert.Nil(t, evicted)
	}
	assert.Equal(t, WorkingCapacity, w.Len())

	evicted := w.Put("overflow", 99)
	require.NotNil(t, evicted)
	assert.Equal(t, "a", evicted.Key)
	assert.Equal(t, WorkingCapacity, w.Len())

	_, ok := w.Get("a")
	assert.False(t, ok, "evicted key should no longer be retrievable")
}

func TestWorking_GetPromotesToMostRecentlyUsed(t *testing.T) {
	w := NewWorking()
	for i := 0; i < WorkingCapacity; i++ {
		key := string(rune('a' + i))
		w.Put(key, i)
	}

	// touch "a" so it's no longer the LRU entry
	_, ok := w.Get("a")
	require.True(t, ok)

	evicted := w.Put("overflow", 99)
	require.NotNil(t, evicted)
	assert.Equal(t, "b", evicted.Key, "b should now be the least-recently-used entry")
}

func TestWorking_UpdateExistingKeyDoesNotEvict(t *testing.T) {
	w := NewWorking()
	for i := 0; i < WorkingCapacity; i++ {
		key := string(rune('a' + i))
		w.Put(key, i)
	}

	evicted := w.Put("a", 100)
	assert.Nil(t, evicted)
	assert.Equal(t, WorkingCapacity, w.Len())

	v, ok := w.Get("a")
	require.True(t, ok)
	assert.Equal(t, 100, v)
}

func TestWorking_Keys(t *testing.T) {
	w := NewWorking()
	w.Put("a", 1)
	w.Put("b", 2)
	assert.Equal(t, []string{"a", "b"}, w.Keys())
}
