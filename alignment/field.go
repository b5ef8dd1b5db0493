package alignment

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/itsneelabh/sentinel-swarm/goal"
	"github.com/itsneelabh/sentinel-swarm/predicate"
	"github.com/itsneelabh/sentinel-swarm/state"
)

// GradientStep is the finite-difference step size used for every dimension
// when estimating the alignment gradient.
const GradientStep = 0.01

// Vector is the Alignment Vector spec.md §3 describes: an overall score,
// each goal's individual contribution to it, how far the state deviates
// from full alignment, the local gradient's entropy (a proxy for how
// "noisy" versus "directed" the current landscape is), and a confidence
// figure: 0.6 × average test coverage plus 0.4 × goal tracking (1.0 when
// the state tracks any goals, else 0.5).
type Vector struct {
	Score               float64
	PerGoalContribution map[string]float64
	DeviationMagnitude  float64
	GradientEntropy     float64
	Confidence          float64
}

// Field computes alignment scores and gradients for a ProjectState against
// a goal.Manifold: each goal contributes its weight times its satisfaction
// (the tracked GoalState completion fraction when one is present, otherwise
// 1.0/0.0 from its acceptance predicate), normalized by total weight into a
// 0-100 score. An empty goal set scores 100.
type Field struct {
	Evaluator *predicate.Evaluator
}

// NewField builds a Field bound to the given predicate Evaluator.
func NewField(evaluator *predicate.Evaluator) *Field {
	return &Field{Evaluator: evaluator}
}

// ComputeAlignment scores st against m's current goal set: sum(weight_i *
// satisfied_i) / sum(weight_i) * 100. Terminal goals that are
// StatusDeprecated are excluded from both sums.
func (f *Field) ComputeAlignment(ctx context.Context, m *goal.Manifold, ev *predicate.Evaluator, st *state.ProjectState) (float64, error) {
	vec, err := f.ComputeVector(ctx, m, ev, st)
	if err != nil {
		return 0, err
	}
	return vec.Score, nil
}

// ComputeVector computes the full Alignment Vector, not just its scalar
// score, so callers (the Cognitive Gate, in particular) can see per-goal
// contribution and confidence without a second pass.
func (f *Field) ComputeVector(ctx context.Context, m *goal.Manifold, ev *predicate.Evaluator, st *state.ProjectState) (Vector, error) {
	goals := m.Goals()
	contributions := make(map[string]float64, len(goals))

	totalWeight := 0.0
	weightedSatisfied := 0.0
	for _, g := range goals {
		if g.Status == goal.StatusDeprecated {
			continue
		}
		var satisfied float64
		if gs, tracked := st.Goals[g.ID]; tracked {
			// A live GoalState observation overrides the binary
			// predicate check with the finer completion fraction.
			satisfied = gs.Completion
		} else {
			ok, err := ev.Evaluate(ctx, g.CombinedAcceptance(), st)
			if err != nil {
				return Vector{}, err
			}
			if ok {
				satisfied = 1.0
			}
		}
		contributions[g.ID] = satisfied * g.Weight
		totalWeight += g.Weight
		weightedSatisfied += satisfied * g.Weight
	}

	// An empty goal set has nothing to misalign from.
	score := 100.0
	if totalWeight > 0 {
		score = weightedSatisfied / totalWeight * 100
	}

	goalTracking := 0.5
	if len(st.Goals) > 0 {
		goalTracking = 1.0
	}
	confidence := 0.6*st.AverageCoverage() + 0.4*goalTracking

	return Vector{
		Score:               score,
		PerGoalContribution: contributions,
		DeviationMagnitude:  100 - score,
		Confidence:          confidence,
	}, nil
}

// ComputeGradient estimates, for every dimension of st, the partial
// derivative of alignment with respect to that dimension via a symmetric
// finite difference: (f(x+h) - f(x-h)) / 2h. Dimensions are evaluated in
// parallel via errgroup since each requires an independent score pass.
func (f *Field) ComputeGradient(ctx context.Context, m *goal.Manifold, ev *predicate.Evaluator, st *state.ProjectState) (map[state.Dimension]float64, error) {
	dims := st.Dimensions()
	gradient := make(map[state.Dimension]float64, len(dims))
	results := make(chan struct {
		d state.Dimension
		v float64
	}, len(dims))

	g, ctx := errgroup.WithContext(ctx)
	for _, d := range dims {
		d := d
		g.Go(func() error {
			plus := st.Perturb(d, GradientStep)
			minus := st.Perturb(d, -GradientStep)

			scorePlus, err := f.ComputeAlignment(ctx, m, ev, plus)
			if err != nil {
				return err
			}
			scoreMinus, err := f.ComputeAlignment(ctx, m, ev, minus)
			if err != nil {
				return err
			}
			partial := (scorePlus - scoreMinus) / (2 * GradientStep)
			results <- struct {
				d state.Dimension
				v float64
			}{d, partial}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	close(results)
	for entry := range results {
		gradient[entry.d] = entry.v
	}
	return gradient, nil
}

// GradientEntropy computes the Shannon entropy of gradient's normalized
// absolute magnitudes for use as Vector.GradientEntropy.
func GradientEntropy(gradient map[state.Dimension]float64) float64 {
	return gradientEntropy(gradient)
}

// gradientEntropy computes the Shannon entropy of the normalized absolute
// gradient magnitudes, used as Vector.GradientEntropy: a high entropy means
// alignment is sensitive to many dimensions roughly equally (a diffuse
// landscape); a low entropy means one or two dimensions dominate.
func gradientEntropy(gradient map[state.Dimension]float64) float64 {
	total := 0.0
	for _, v := range gradient {
		total += math.Abs(v)
	}
	if total == 0 {
		return 0
	}
	entropy := 0.0
	for _, v := range gradient {
		p := math.Abs(v) / total
		if p == 0 {
			continue
		}
		entropy -= p * math.Log2(p)
	}
	return entropy
}

// PredictAlignment delegates to a Simulator to project how alignment is
// likely to evolve, reusing this Field as the per-iteration scorer.
func (f *Field) PredictAlignment(ctx context.Context, cfg SimulationConfig, m *goal.Manifold, ev *predicate.Evaluator, st *state.ProjectState) (SimulationResult, error) {
	sim := NewSimulator(cfg, f)
	return sim.Run(ctx, m, ev, st)
}

// ComputeFullVector computes the Alignment Vector and fills in its
// GradientEntropy field from a gradient pass, for callers (the Cognitive
// Gate's before_action) that need the complete picture in one call.
func (f *Field) ComputeFullVector(ctx context.Context, m *goal.Manifold, ev *predicate.Evaluator, st *state.ProjectState) (Vector, error) {
	vec, err := f.ComputeVector(ctx, m, ev, st)
	if err != nil {
		return Vector{}, err
	}
	gradient, err := f.ComputeGradient(ctx, m, ev, st)
	if err != nil {
		return Vector{}, err
	}
	vec.GradientEntropy = GradientEntropy(gradient)
	return vec, nil
}
