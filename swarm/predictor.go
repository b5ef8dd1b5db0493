package swarm

import (
	"sort"
	"sync"
)

// PredictedAgent is one entry in the Predictor's ranked forecast.
type PredictedAgent struct {
	Type       AgentType
	Confidence float64
}

// predictorRule is a table-driven "once current task's progress crosses
// Threshold, these types become likely next" rule (spec.md §4.N).
type predictorRule struct {
	Current   AgentType
	Threshold float64
	Predicts  []PredictedAgent
}

var predictorRules = []predictorRule{
	{Current: TypeAuthArchitect, Threshold: 0.5, Predicts: []PredictedAgent{
		{Type: TypeSecurityAuditor, Confidence: 0.8},
		{Type: TypeTestWriter, Confidence: 0.6},
	}},
	{Current: TypeAPICoder, Threshold: 0.4, Predicts: []PredictedAgent{
		{Type: TypeTestWriter, Confidence: 0.7},
		{Type: TypeReviewAgent, Confidence: 0.5},
	}},
	{Current: TypeDatabaseArchitect, Threshold: 0.5, Predicts: []PredictedAgent{
		{Type: TypeAPICoder, Confidence: 0.65},
	}},
	{Current: TypeFrontendCoder, Threshold: 0.6, Predicts: []PredictedAgent{
		{Type: TypeTestWriter, Confidence: 0.6},
	}},
	{Current: TypeDevOpsEngineer, Threshold: 0.5, Predicts: []PredictedAgent{
		{Type: TypePerformanceOptimizer, Confidence: 0.5},
	}},
}

// Predict returns the ordered list of agent types likely needed next for a
// task currently being worked by current, at progress fraction, each with a
// confidence — monotone in progress per spec.md §4.N (a rule only fires
// once progress crosses its Threshold, and nothing lowers confidence as
// progress increases further).
func Predict(current AgentType, progress float64) []PredictedAgent {
	var out []PredictedAgent
	for _, rule := range predictorRules {
		if rule.Current == current && progress >= rule.Threshold {
			out = append(out, rule.Predicts...)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	return out
}

// PrefetchEnvelope is an eagerly-prepared agent construction bundle,
// retrievable by type so spawning is instant once consensus decides it's
// needed (spec.md §4.N).
type PrefetchEnvelope struct {
	Type AgentType
	Hint string
}

// Prefetcher holds prepared-but-not-yet-spawned agent envelopes.
type Prefetcher struct {
	mu        sync.Mutex
	envelopes map[AgentType]PrefetchEnvelope
}

// NewPrefetcher builds an empty Prefetcher.
func NewPrefetcher() *Prefetcher {
	return &Prefetcher{envelopes: make(map[AgentType]PrefetchEnvelope)}
}

// PrefetchAgent eagerly prepares an envelope for agentType, overwriting any
// existing one.
func (p *Prefetcher) PrefetchAgent(agentType AgentType, hint string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.envelopes[agentType] = PrefetchEnvelope{Type: agentType, Hint: hint}
}

// GetPrefetched returns the prepared envelope for agentType, if any, and
// removes it from the pool (it is consumed by the spawn it enables).
func (p *Prefetcher) GetPrefetched(agentType AgentType) (PrefetchEnvelope, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	env, ok := p.envelopes[agentType]
	if ok {
		delete(p.envelopes, agentType)
	}
	return env, ok
}
