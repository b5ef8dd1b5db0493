package cognitive

// InsightKind classifies a meta-cognitive insight.
type InsightKind string

const (
	InsightLimitationAwareness InsightKind = "limitation_awareness"
	InsightPatternRecognized   InsightKind = "pattern_recognized"
)

// Insight is a single piece of self-knowledge the Gate records about its
// own performance (e.g. "my predictions have been running high").
type Insight struct {
	Kind       InsightKind
	Note       string
	Confidence float64
}

// MetaCognitiveState tracks the Gate's awareness of its own prediction
// quality: the alignment it expects to see next, a running accuracy
// estimate, and accumulated insights (spec.md §4.G after_action steps 3, 5).
type MetaCognitiveState struct {
	ExpectedAlignment  float64
	PredictionAccuracy float64 // running average of 1 - |expected-actual|/100
	observations       int
	Insights           []Insight
}

// NewMetaCognitiveState builds a fresh meta-state that starts optimistic:
// expected alignment 100 and prediction accuracy 1.0.
func NewMetaCognitiveState() *MetaCognitiveState {
	return &MetaCognitiveState{ExpectedAlignment: 100, PredictionAccuracy: 1.0}
}

// UpdatePredictionAccuracy folds a new (expected, actual) alignment pair
// into the running accuracy average.
func (m *MetaCognitiveState) UpdatePredictionAccuracy(expected, actual float64) {
	diff := expected - actual
	if diff < 0 {
		diff = -diff
	}
	sample := 1.0 - diff/100.0
	if sample < 0 {
		sample = 0
	}
	m.observations++
	m.PredictionAccuracy += (sample - m.PredictionAccuracy) / float64(m.observations)
}

// AddInsight appends an insight to the log.
func (m *MetaCognitiveState) AddInsight(i Insight) {
	m.Insights = append(m.Insights, i)
}
