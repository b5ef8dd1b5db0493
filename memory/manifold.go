package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Stats summarizes the current size of every tier plus cumulative per-tier
// query hit counts, useful for the Cognitive Gate's meta-cognitive state and
// for operator visibility (spec.md §4.H: "record per-tier hit statistics for
// an observable stats view").
type Stats struct {
	WorkingItems  int
	EpisodicCount int
	SemanticCount int
	TotalQueries  int
	WorkingHits   int
	EpisodicHits  int
	SemanticHits  int
}

// Manifold orchestrates the three memory tiers as a single unit: it routes
// Store calls to the right tier, dedups episodic writes against
// near-identical existing entries, and fans Query out across whichever tiers
// are relevant to the request (spec.md §4.H's "Memory Manifold" facade).
type Manifold struct {
	Working  *Working
	Episodic *Episodic
	Semantic *Semantic
	Index    *ReasoningIndex
	Embedder Embedder
	Backend  *RedisEpisodicBackend // optional; nil means episodic memory stays process-local

	queries int
	hits    map[string]int
}

// NewManifold builds a Manifold with the default fallback embedder.
func NewManifold() *Manifold {
	return &Manifold{
		Working:  NewWorking(),
		Episodic: NewEpisodic(),
		Semantic: NewSemantic(),
		Index:    NewReasoningIndex(),
		Embedder: NewFallbackEmbedder(),
		hits:     make(map[string]int, 3),
	}
}

// StoreWorking puts a key/value pair into working memory.
func (m *Manifold) StoreWorking(key string, value interface{}) {
	m.Working.Put(key, value)
}

// Store is the unified routing spec.md §4.H describes: the item is recorded
// episodically (with dedup), placed in working memory keyed by its episode
// id (possibly evicting the least-recently-used item, which the episodic
// record already preserves durably), and its keywords become concept nodes.
func (m *Manifold) Store(ctx context.Context, goalID, content string, tags []string) (Episode, *WorkingItem, error) {
	ep, err := m.StoreEpisode(ctx, goalID, content, tags)
	if err != nil {
		return Episode{}, nil, err
	}
	evicted := m.Working.Put(ep.ID, content)
	return ep, evicted, nil
}

// StoreEpisode records content as a new episode under goalID, deduping
// against any existing episode whose embedding is already within
// CompressionThreshold similarity (the dedup step spec.md §4.H's "store"
// operation calls for, run eagerly rather than left to a later Compress
// pass).
func (m *Manifold) StoreEpisode(ctx context.Context, goalID, content string, tags []string) (Episode, error) {
	vec, err := m.Embedder.Embed(ctx, content)
	if err != nil {
		return Episode{}, fmt.Errorf("memory: failed to embed episode: %w", err)
	}
	for i := range m.Episodic.episodes {
		existing := &m.Episodic.episodes[i]
		if CosineSimilarity(vec, existing.Embedding) >= CompressionThreshold {
			existing.Tags = mergeTags(existing.Tags, tags)
			if goalID != "" {
				existing.GoalIDs = mergeTags(existing.GoalIDs, []string{goalID})
			}
			return *existing, nil
		}
	}

	ep := newEpisode(uuid.NewString(), goalID, content, tags, vec)
	m.Episodic.episodes = append(m.Episodic.episodes, ep)
	m.Index.Index(ep)

	for _, kw := range extractKeywords(content) {
		m.Semantic.Reference(kw, kw, ep.ID)
	}

	return ep, nil
}

// Result is one entry in a unified Query response, tagged with which tier
// produced it so Stats can report per-tier hit counts.
type Result struct {
	MemoryID string
	Score    float64
	Tier     string
	Episode  *Episode
	Working  interface{}
}

// Query unions results from working memory, episodic similarity search, and
// concept-activated episodic retrieval (spec.md §4.H), deduplicating by
// memory id (keeping the higher score), sorting descending, and truncating
// to limit. Activating matched concepts is a side effect of the concept
// branch, mirroring the reference implementation's behavior of reinforcing
// whatever knowledge a query touches.
func (m *Manifold) Query(ctx context.Context, q string, limit int) ([]Result, error) {
	m.queries++
	byID := make(map[string]Result)

	for _, key := range m.Working.Keys() {
		if !containsToken(key, q) {
			continue
		}
		v, _ := m.Working.Get(key)
		byID[key] = Result{MemoryID: key, Score: 1.0, Tier: "working", Working: v}
	}

	queryVec, err := m.Embedder.Embed(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("memory: failed to embed query: %w", err)
	}
	for _, ep := range m.Episodic.episodes {
		score := CosineSimilarity(queryVec, ep.Embedding)
		epCopy := ep
		if existing, ok := byID[ep.ID]; !ok || score > existing.Score {
			byID[ep.ID] = Result{MemoryID: ep.ID, Score: score, Tier: "episodic", Episode: &epCopy}
		}
	}

	for _, kw := range extractKeywords(q) {
		c, ok := m.Semantic.concepts[kw]
		if !ok {
			continue
		}
		m.Semantic.Activate(kw, 1.0)
		for memID := range c.References {
			for i := range m.Episodic.episodes {
				if m.Episodic.episodes[i].ID != memID {
					continue
				}
				ep := m.Episodic.episodes[i]
				score := c.Activation
				if existing, ok := byID[memID]; !ok || score > existing.Score {
					byID[memID] = Result{MemoryID: memID, Score: score, Tier: "semantic", Episode: &ep}
				}
			}
		}
	}

	out := make([]Result, 0, len(byID))
	for _, r := range byID {
		out = append(out, r)
		m.hits[r.Tier]++
	}
	sortResults(out)
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}

	now := time.Now()
	for _, r := range out {
		if r.Episode == nil {
			continue
		}
		for i := range m.Episodic.episodes {
			if m.Episodic.episodes[i].ID == r.MemoryID {
				m.Episodic.episodes[i].Touch(now)
				break
			}
		}
	}
	return out, nil
}

func sortResults(results []Result) {
	for i := 1; i < len(results); i++ {
		for j := i; j > 0 && results[j].Score > results[j-1].Score; j-- {
			results[j], results[j-1] = results[j-1], results[j]
		}
	}
}

func containsToken(haystack, needle string) bool {
	return len(needle) > 0 && len(haystack) > 0 &&
		strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// QueryEpisodic pre-filters via the reasoning index, then re-ranks the
// candidates (or the whole store, if the index returns nothing) by cosine
// similarity to query, returning the topK.
func (m *Manifold) QueryEpisodic(ctx context.Context, query string, topK int) ([]QueryResult, error) {
	queryVec, err := m.Embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("memory: failed to embed query: %w", err)
	}

	candidateIDs := m.Index.Candidates(query)
	var pool []Episode
	if len(candidateIDs) > 0 {
		want := make(map[string]bool, len(candidateIDs))
		for _, id := range candidateIDs {
			want[id] = true
		}
		for _, ep := range m.Episodic.episodes {
			if want[ep.ID] {
				pool = append(pool, ep)
			}
		}
	} else {
		pool = m.Episodic.episodes
	}

	results := make([]QueryResult, 0, len(pool))
	for _, ep := range pool {
		results = append(results, QueryResult{Episode: ep, Similarity: CosineSimilarity(queryVec, ep.Embedding)})
	}
	sortQueryResults(results)
	if topK > 0 && topK < len(results) {
		results = results[:topK]
	}
	return results, nil
}

// Stats reports the current size of every tier plus cumulative query hits.
func (m *Manifold) Stats() Stats {
	return Stats{
		WorkingItems:  m.Working.Len(),
		EpisodicCount: m.Episodic.Len(),
		SemanticCount: len(m.Semantic.concepts),
		TotalQueries:  m.queries,
		WorkingHits:   m.hits["working"],
		EpisodicHits:  m.hits["episodic"],
		SemanticHits:  m.hits["semantic"],
	}
}

// SyncEpisodic pushes the current episodic store to Backend, if one is
// wired, so another process sharing the same namespace can observe it.
// A nil Backend makes this a no-op rather than an error, since episodic
// sharing is an optional deployment choice (spec.md's cross-process memory
// sharing, not a correctness requirement of a single-process run).
func (m *Manifold) SyncEpisodic(ctx context.Context) error {
	if m.Backend == nil {
		return nil
	}
	return m.Backend.Save(ctx, m.Episodic)
}

// LoadEpisodic replaces the in-memory Episodic store with whatever Backend
// currently holds, then reindexes it so QueryEpisodic/Query keep working
// against the restored entries.
func (m *Manifold) LoadEpisodic(ctx context.Context) error {
	if m.Backend == nil {
		return nil
	}
	loaded, err := m.Backend.Load(ctx)
	if err != nil {
		return err
	}
	m.Episodic = loaded
	m.Index = NewReasoningIndex()
	for _, ep := range m.Episodic.episodes {
		m.Index.Index(ep)
	}
	return nil
}

func sortQueryResults(results []QueryResult) {
	for i := 1; i < len(results); i++ {
		for j := i; j > 0 && results[j].Similarity > results[j-1].Similarity; j-- {
			results[j], results[j-1] = results[j-1], results[j]
		}
	}
}
