package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReasoningIndex_CandidatesRankBySharedTokens(t *testing.T) {
	idx := NewReasoningIndex()
	idx.Index(Episode{ID: "ep-1", Content: "database connection pooling retry logic", Tags: []string{"db"}})
	idx.Index(Episode{ID: "ep-2", Content: "database schema migration", Tags: []string{"db"}})
	idx.Index(Episode{ID: "ep-3", Content: "frontend css styling", Tags: []string{"ui"}})

	candidates := idx.Candidates("database connection retry")
	require.NotEmpty(t, candidates)
	assert.Equal(t, "ep-1", candidates[0], "ep-1 shares the most tokens with the query")
	assert.NotContains(t, candidates, "ep-3")
}

func TestReasoningIndex_NoMatchReturnsEmpty(t *testing.T) {
	idx := NewReasoningIndex()
	idx.Index(Episode{ID: "ep-1", Content: "alpha beta gamma"})

	candidates := idx.Candidates("zzz yyy xxx")
	assert.Empty(t, candidates)
}

func TestReasoningIndex_IndexesTagsToo(t *testing.T) {
	idx := NewReasoningIndex()
	idx.Index(Episode{ID: "ep-1", Content: "unrelated body text", Tags: []string{"specialtag"}})

	candidates := idx.Candidates("specialtag")
	assert.Equal(t, []string{"ep-1"}, candidates)
}
