package learning

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/itsneelabh/sentinel-swarm/cognitive"
	"github.com/itsneelabh/sentinel-swarm/core"
	"github.com/itsneelabh/sentinel-swarm/swarm"
)

// RelationEMAWeight is the smoothing factor applied when two patterns are
// observed applying to the same goal back to back: new edge weight =
// (1-w)*old + w*observed (spec.md §4.Q's "exponential moving average
// update").
const RelationEMAWeight = 0.3

// Snapshot is the full durable shape of the Knowledge Base: every stored
// pattern plus the pattern-relation table, as written to and read from disk
// or Redis (spec.md §6's "patterns: map<uuid, SuccessPattern> and
// pattern_relations: [((uuid, uuid), f64)]").
type Snapshot struct {
	Patterns   map[string]SuccessPattern   `json:"patterns"`
	Relations  map[string]float64          `json:"pattern_relations"`
	Deviations map[string]DeviationPattern `json:"deviation_patterns"`
}

// Store persists and restores a Snapshot. JSONFileStore and RedisPatternStore
// both implement it; KnowledgeBase is agnostic to which one it holds.
type Store interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
}

// KnowledgeBase is the in-memory pattern store backed by a Store for
// durability: every mutation updates memory under a write lock, then
// persists fire-and-forget once the lock releases (spec.md §5: "Knowledge
// Base — writer lock; persistence is best-effort fire-and-forget after the
// write lock is released").
type KnowledgeBase struct {
	mu         sync.RWMutex
	patterns   map[string]SuccessPattern
	deviations map[string]DeviationPattern
	relations  map[string]float64

	store  Store
	logger core.Logger
}

// NewKnowledgeBase builds an empty Knowledge Base backed by store. Pass a
// nil store to run purely in memory (used in tests and by callers who only
// want mining without durability).
func NewKnowledgeBase(store Store, logger core.Logger) *KnowledgeBase {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &KnowledgeBase{
		patterns:   make(map[string]SuccessPattern),
		deviations: make(map[string]DeviationPattern),
		relations:  make(map[string]float64),
		store:      store,
		logger:     logger,
	}
}

// Load restores the Knowledge Base's in-memory state from its Store. A nil
// store is a no-op.
func (kb *KnowledgeBase) Load(ctx context.Context) error {
	if kb.store == nil {
		return nil
	}
	snap, err := kb.store.Load(ctx)
	if err != nil {
		return err
	}
	if snap == nil {
		return nil
	}
	kb.mu.Lock()
	defer kb.mu.Unlock()
	if snap.Patterns != nil {
		kb.patterns = snap.Patterns
	}
	if snap.Relations != nil {
		kb.relations = snap.Relations
	}
	if snap.Deviations != nil {
		kb.deviations = snap.Deviations
	}
	return nil
}

// StorePattern merges p into the Knowledge Base by id (spec.md §4.Q's
// merge-by-id rule) and persists the result fire-and-forget.
func (kb *KnowledgeBase) StorePattern(ctx context.Context, p SuccessPattern) {
	kb.mu.Lock()
	if existing, ok := kb.patterns[p.ID]; ok {
		kb.patterns[p.ID] = existing.merge(p)
	} else {
		kb.patterns[p.ID] = p
	}
	snap := kb.snapshotLocked()
	kb.mu.Unlock()

	kb.persistBestEffort(ctx, snap)
}

// StoreDeviation records a deviation pattern, merging occurrence counts for
// a matching signature, and persists fire-and-forget.
func (kb *KnowledgeBase) StoreDeviation(ctx context.Context, d DeviationPattern) {
	kb.mu.Lock()
	if existing, ok := kb.deviations[d.ID]; ok {
		existing.Occurrences++
		kb.deviations[d.ID] = existing
	} else {
		d.Occurrences = 1
		kb.deviations[d.ID] = d
	}
	snap := kb.snapshotLocked()
	kb.mu.Unlock()

	kb.persistBestEffort(ctx, snap)
}

// UpdateRelation folds an observed co-occurrence weight between two
// patterns into the relation table via exponential moving average.
func (kb *KnowledgeBase) UpdateRelation(ctx context.Context, idA, idB string, observed float64) {
	key := relationKey(idA, idB)
	kb.mu.Lock()
	old, ok := kb.relations[key]
	if !ok {
		kb.relations[key] = observed
	} else {
		kb.relations[key] = (1-RelationEMAWeight)*old + RelationEMAWeight*observed
	}
	snap := kb.snapshotLocked()
	kb.mu.Unlock()

	kb.persistBestEffort(ctx, snap)
}

// FindApplicablePatterns returns every stored pattern whose
// ApplicableGoalTypes includes goalType, sorted by success rate descending
// (spec.md §4.Q).
func (kb *KnowledgeBase) FindApplicablePatterns(goalType string) []SuccessPattern {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	var out []SuccessPattern
	for _, p := range kb.patterns {
		if containsString(p.ApplicableGoalTypes, goalType) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SuccessRate > out[j].SuccessRate })
	return out
}

// FindSimilarPatterns returns the k patterns most strongly related to p by
// weighted edge in the pattern-relation table (spec.md §4.Q).
func (kb *KnowledgeBase) FindSimilarPatterns(p SuccessPattern, k int) []SuccessPattern {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	type scored struct {
		pattern SuccessPattern
		weight  float64
	}
	var candidates []scored
	for key, weight := range kb.relations {
		other, ok := otherEnd(key, p.ID)
		if !ok {
			continue
		}
		if pat, found := kb.patterns[other]; found {
			candidates = append(candidates, scored{pattern: pat, weight: weight})
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].weight > candidates[j].weight })
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	out := make([]SuccessPattern, len(candidates))
	for i, c := range candidates {
		out[i] = c.pattern
	}
	return out
}

// SuggestAlternatives implements cognitive.PatternSource: it classifies the
// rejected action's goal by the same domain analysis the Goal Analyzer uses
// for emergence, looks up applicable patterns, and turns the highest
// success-rate pattern's next action kind into a concrete alternative.
func (kb *KnowledgeBase) SuggestAlternatives(goalID string, original cognitive.Action) []cognitive.Action {
	analysis := swarm.Analyze(original.Description)
	patterns := kb.FindApplicablePatterns(analysis.Domain)
	if len(patterns) == 0 {
		return nil
	}
	best := patterns[0]
	if len(best.ActionSequence) == 0 {
		return nil
	}
	alt := original
	alt.ID = original.ID + "-alt-" + best.ID
	alt.Description = original.Description + " (steered by learned pattern: " + strings.Join(best.ActionSequence, " then ") + ")"
	return []cognitive.Action{alt}
}

// Snapshot returns a deep copy of the Knowledge Base's current state,
// suitable for an explicit out-of-band persist or inspection.
func (kb *KnowledgeBase) Snapshot() Snapshot {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return kb.snapshotLocked()
}

func (kb *KnowledgeBase) snapshotLocked() Snapshot {
	patterns := make(map[string]SuccessPattern, len(kb.patterns))
	for k, v := range kb.patterns {
		patterns[k] = v
	}
	relations := make(map[string]float64, len(kb.relations))
	for k, v := range kb.relations {
		relations[k] = v
	}
	deviations := make(map[string]DeviationPattern, len(kb.deviations))
	for k, v := range kb.deviations {
		deviations[k] = v
	}
	return Snapshot{Patterns: patterns, Relations: relations, Deviations: deviations}
}

func (kb *KnowledgeBase) persistBestEffort(_ context.Context, snap Snapshot) {
	if kb.store == nil {
		return
	}
	// Fire-and-forget runs detached from the caller's context: the write
	// lock has already released, and the caller may cancel or return
	// before the save completes (spec.md §5).
	go func() {
		if err := kb.store.Save(context.Background(), snap); err != nil {
			kb.logger.Error("knowledge base persistence failed", map[string]interface{}{"error": err.Error()})
		}
	}()
}

func relationKey(idA, idB string) string {
	if idA > idB {
		idA, idB = idB, idA
	}
	return idA + "::" + idB
}

func otherEnd(key, id string) (string, bool) {
	parts := strings.SplitN(key, "::", 2)
	if len(parts) != 2 {
		return "", false
	}
	switch id {
	case parts[0]:
		return parts[1], true
	case parts[1]:
		return parts[0], true
	default:
		return "", false
	}
}

var _ cognitive.PatternSource = (*KnowledgeBase)(nil)
