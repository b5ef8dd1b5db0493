package memory

import (
	"sort"
	"strings"
)

// ReasoningIndex is an inverted index over episode tokens, used to
// pre-filter the episodic store before running the (much more expensive)
// cosine-similarity pass — a supplemented feature grounded on
// original_source/reasoning_index/{builder,search}.rs, which performs the
// same keyword pre-filter ahead of its own vector search.
type ReasoningIndex struct {
	postings map[string]map[string]bool // token -> set of episode ids
}

// NewReasoningIndex builds an empty index.
func NewReasoningIndex() *ReasoningIndex {
	return &ReasoningIndex{postings: make(map[string]map[string]bool)}
}

// Index tokenizes ep.Content and ep.Tags and adds ep.ID to every token's
// posting list.
func (r *ReasoningIndex) Index(ep Episode) {
	tokens := tokenize(ep.Content)
	tokens = append(tokens, ep.Tags...)
	for _, tok := range tokens {
		tok = strings.ToLower(tok)
		if r.postings[tok] == nil {
			r.postings[tok] = make(map[string]bool)
		}
		r.postings[tok][ep.ID] = true
	}
}

// Candidates returns the episode ids that share at least one token with
// query, ranked by number of shared tokens descending — the pre-filtered
// candidate set a caller then re-ranks by cosine similarity.
func (r *ReasoningIndex) Candidates(query string) []string {
	counts := make(map[string]int)
	for _, tok := range tokenize(query) {
		for id := range r.postings[strings.ToLower(tok)] {
			counts[id]++
		}
	}
	ids := make([]string, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if counts[ids[i]] != counts[ids[j]] {
			return counts[ids[i]] > counts[ids[j]]
		}
		return ids[i] < ids[j]
	})
	return ids
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
}
