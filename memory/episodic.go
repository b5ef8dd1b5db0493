package memory

import (
	"context"
	"math"
	"sort"
	"time"
)

// MemoryType classifies what kind of experience an episode records.
type MemoryType string

const (
	TypeObservation MemoryType = "observation"
	TypeAction      MemoryType = "action"
	TypeReflection  MemoryType = "reflection"
	TypeDecision    MemoryType = "decision"
)

// Episode is a single recorded experience: what happened, the goals it
// happened under, free-text tags, its embedding for similarity recall, and
// the importance/access bookkeeping its relevance score is computed from.
type Episode struct {
	ID          string
	GoalIDs     []string
	Tags        []string
	Content     string
	Type        MemoryType
	Importance  float64 // 0..1
	Embedding   []float32
	Timestamp   time.Time
	LastAccess  time.Time
	AccessCount int
}

// relevanceHalfLife controls how fast an untouched episode's relevance
// decays: after one half-life the recency factor is 0.5.
const relevanceHalfLife = 24 * time.Hour

// RelevanceScore is importance scaled by recency decay and boosted by how
// often the episode has been recalled: importance * decay * (1 + log(1 +
// access_count)).
func (e Episode) RelevanceScore(now time.Time) float64 {
	age := now.Sub(e.LastAccess)
	if age < 0 {
		age = 0
	}
	decay := math.Exp2(-float64(age) / float64(relevanceHalfLife))
	return e.Importance * decay * (1 + math.Log(1+float64(e.AccessCount)))
}

// Touch marks the episode as recalled now.
func (e *Episode) Touch(now time.Time) {
	e.LastAccess = now
	e.AccessCount++
}

// CompressionThreshold is the cosine-similarity cutoff above which two
// episodes are considered near-duplicates and merged (spec.md §4.H's
// "compress episodic memory when entries exceed 0.95 similarity").
const CompressionThreshold = 0.95

// Episodic is the unlimited-size tier recording every experience with its
// embedding, queryable by similarity, goal, or tag, and periodically
// compressible to merge near-duplicate entries.
type Episodic struct {
	episodes []Episode
}

// NewEpisodic builds an empty episodic store.
func NewEpisodic() *Episodic { return &Episodic{} }

// Record appends a new episode. Content is embedded via embedder; the new
// episode starts as a medium-importance observation that has never been
// recalled.
func (e *Episodic) Record(ctx context.Context, embedder Embedder, id, goalID, content string, tags []string) (Episode, error) {
	vec, err := embedder.Embed(ctx, content)
	if err != nil {
		return Episode{}, err
	}
	ep := newEpisode(id, goalID, content, tags, vec)
	e.episodes = append(e.episodes, ep)
	return ep, nil
}

func newEpisode(id, goalID, content string, tags []string, vec []float32) Episode {
	now := time.Now()
	var goalIDs []string
	if goalID != "" {
		goalIDs = []string{goalID}
	}
	return Episode{
		ID:         id,
		GoalIDs:    goalIDs,
		Tags:       tags,
		Content:    content,
		Type:       TypeObservation,
		Importance: 0.5,
		Embedding:  vec,
		Timestamp:  now,
		LastAccess: now,
	}
}

// Len returns the number of recorded episodes.
func (e *Episodic) Len() int { return len(e.episodes) }

// QueryResult pairs an episode with its similarity to the query vector.
type QueryResult struct {
	Episode    Episode
	Similarity float64
}

// QueryBySimilarity returns the topK episodes most similar to queryVec,
// ranked descending.
func (e *Episodic) QueryBySimilarity(queryVec []float32, topK int) []QueryResult {
	results := make([]QueryResult, 0, len(e.episodes))
	for _, ep := range e.episodes {
		results = append(results, QueryResult{Episode: ep, Similarity: CosineSimilarity(queryVec, ep.Embedding)})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Similarity > results[j].Similarity })
	if topK > 0 && topK < len(results) {
		results = results[:topK]
	}
	return results
}

// QueryByGoal returns every episode recorded under goalID, oldest first.
func (e *Episodic) QueryByGoal(goalID string) []Episode {
	var out []Episode
	for _, ep := range e.episodes {
		for _, id := range ep.GoalIDs {
			if id == goalID {
				out = append(out, ep)
				break
			}
		}
	}
	return out
}

// QueryByTag returns every episode carrying tag, oldest first.
func (e *Episodic) QueryByTag(tag string) []Episode {
	var out []Episode
	for _, ep := range e.episodes {
		for _, t := range ep.Tags {
			if t == tag {
				out = append(out, ep)
				break
			}
		}
	}
	return out
}

// Compress merges any pair of episodes whose cosine similarity meets or
// exceeds CompressionThreshold: the higher-importance episode is kept and
// absorbs the other's tags, goal ids, and access count; the duplicate is
// dropped. Returns the number of episodes removed.
func (e *Episodic) Compress() int {
	if len(e.episodes) < 2 {
		return 0
	}
	kept := make([]Episode, 0, len(e.episodes))
	removed := 0

	for _, ep := range e.episodes {
		merged := false
		for i := range kept {
			if CosineSimilarity(ep.Embedding, kept[i].Embedding) >= CompressionThreshold {
				kept[i] = mergeEpisodes(kept[i], ep)
				merged = true
				removed++
				break
			}
		}
		if !merged {
			kept = append(kept, ep)
		}
	}
	e.episodes = kept
	return removed
}

func mergeEpisodes(a, b Episode) Episode {
	kept, dropped := a, b
	if b.Importance > a.Importance {
		kept, dropped = b, a
	}
	kept.Tags = mergeTags(kept.Tags, dropped.Tags)
	kept.GoalIDs = mergeTags(kept.GoalIDs, dropped.GoalIDs)
	kept.AccessCount += dropped.AccessCount
	if dropped.LastAccess.After(kept.LastAccess) {
		kept.LastAccess = dropped.LastAccess
	}
	return kept
}

func mergeTags(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, t := range append(append([]string(nil), a...), b...) {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
