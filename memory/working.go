package memory

import "time"

// WorkingItem is a single entry in working memory: whatever the cognitive
// loop is actively reasoning about right now.
type WorkingItem struct {
	Key      string
	Value    interface{}
	StoredAt time.Time
}

// WorkingCapacity is the fixed size of working memory (spec.md §4.H: "LRU,
// capacity 10" — a small, fast, volatile tier modeling what is actively in
// mind, not what is merely known).
const WorkingCapacity = 10

// Working is a fixed-capacity LRU cache. Unlike Episodic and Semantic, it
// holds no embeddings: working memory is addressed by key, not similarity.
type Working struct {
	order []string
	items map[string]WorkingItem
}

// NewWorking builds an empty working memory.
func NewWorking() *Working {
	return &Working{items: make(map[string]WorkingItem, WorkingCapacity)}
}

// Put inserts or updates key, moving it to most-recently-used. If the store
// is at capacity and key is new, the least-recently-used item is evicted
// and returned.
func (w *Working) Put(key string, value interface{}) (evicted *WorkingItem) {
	if _, exists := w.items[key]; exists {
		w.touch(key)
		w.items[key] = WorkingItem{Key: key, Value: value, StoredAt: time.Now()}
		return nil
	}

	if len(w.order) >= WorkingCapacity {
		lruKey := w.order[0]
		w.order = w.order[1:]
		old := w.items[lruKey]
		delete(w.items, lruKey)
		evicted = &old
	}

	w.order = append(w.order, key)
	w.items[key] = WorkingItem{Key: key, Value: value, StoredAt: time.Now()}
	return evicted
}

// Get retrieves key, promoting it to most-recently-used on hit.
func (w *Working) Get(key string) (interface{}, bool) {
	item, ok := w.items[key]
	if !ok {
		return nil, false
	}
	w.touch(key)
	return item.Value, true
}

// Len returns the current number of items held.
func (w *Working) Len() int { return len(w.items) }

// Keys returns the keys in least-recently-used-first order.
func (w *Working) Keys() []string {
	return append([]string(nil), w.order...)
}

func (w *Working) touch(key string) {
	for i, k := range w.order {
		if k == key {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
	w.order = append(w.order, key)
}
