// Package alignment implements the Alignment Field and its Monte-Carlo
// Simulator: scoring how well a ProjectState satisfies a goal.Manifold,
// estimating the gradient of that score, and projecting how alignment is
// likely to evolve under uncertainty (spec.md §4.D, §4.E).
package alignment

import (
	"context"
	"math"
	"math/rand"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/itsneelabh/sentinel-swarm/goal"
	"github.com/itsneelabh/sentinel-swarm/predicate"
	"github.com/itsneelabh/sentinel-swarm/state"
)

// UncertaintyModel bounds how much noise step_forward injects per tick.
type UncertaintyModel string

const (
	Optimistic  UncertaintyModel = "optimistic"  // ±0.02
	Realistic   UncertaintyModel = "realistic"   // ±0.05
	Pessimistic UncertaintyModel = "pessimistic" // ±0.10
)

func (u UncertaintyModel) noiseBound() float64 {
	switch u {
	case Optimistic:
		return 0.02
	case Pessimistic:
		return 0.10
	default:
		return 0.05
	}
}

// RiskLevel classifies a simulation's projected deviation.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// SimulationConfig tunes the Monte-Carlo Simulator. NewSimulator replaces the
// whole config with NewSimulationConfig's defaults when Iterations is not
// positive; other zero fields are used as given.
type SimulationConfig struct {
	Iterations         int
	TimeHorizon        int // ticks simulated per iteration
	UncertaintyModel   UncertaintyModel
	DeviationThreshold float64 // percentage points; a final score below this counts as a deviation
	Seed               int64   // base seed per rollout; 0 still yields a fixed, deterministic sequence
}

// NewSimulationConfig returns the spec default configuration: 1000
// iterations, a 10-tick horizon, realistic uncertainty, and a 60-point
// deviation threshold.
func NewSimulationConfig() SimulationConfig {
	return SimulationConfig{
		Iterations:         1000,
		TimeHorizon:        10,
		UncertaintyModel:   Realistic,
		DeviationThreshold: 60,
	}
}

// SimulationResult summarizes a completed Monte-Carlo run. The deviation
// probability is the fraction of rollouts whose final alignment landed
// below the configured deviation threshold; Risk bands it (Low <10%,
// Medium <30%, High <60%, Critical >=60%) and Confidence is 1 − stddev/100
// (spec.md §4.E).
type SimulationResult struct {
	MeanAlignment        float64
	MinAlignment         float64
	MaxAlignment         float64
	StdDeviation         float64
	DeviationProbability float64
	Confidence           float64
	Risk                 RiskLevel
	Trajectories         [][]float64 // one row per iteration, TimeHorizon+1 columns
}

// Simulator runs Monte-Carlo projections of how a ProjectState's alignment
// score is likely to evolve. It is pure with respect to the caller's state:
// every iteration perturbs a clone, never the original snapshot.
type Simulator struct {
	Config SimulationConfig
	Scorer *Field
}

// NewSimulator builds a Simulator bound to the given Field for scoring.
func NewSimulator(cfg SimulationConfig, field *Field) *Simulator {
	if cfg.Iterations <= 0 {
		cfg = NewSimulationConfig()
	}
	return &Simulator{Config: cfg, Scorer: field}
}

// Run performs cfg.Iterations independent Monte-Carlo rollouts, fanning
// them out across goroutines via errgroup, and returns the aggregate
// result. Each rollout starts from an independent clone of st so no
// goroutine observes another's perturbations.
func (s *Simulator) Run(ctx context.Context, m *goal.Manifold, ev *predicate.Evaluator, st *state.ProjectState) (SimulationResult, error) {
	n := s.Config.Iterations
	finals := make([]float64, n)
	trajectories := make([][]float64, n)

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			rng := rand.New(rand.NewSource(s.seedFor(i)))
			cur := st.Clone()
			traj := make([]float64, 0, s.Config.TimeHorizon+1)
			score, err := s.Scorer.ComputeAlignment(ctx, m, ev, cur)
			if err != nil {
				return err
			}
			traj = append(traj, score)
			for t := 0; t < s.Config.TimeHorizon; t++ {
				cur = s.stepForward(cur, rng)
				score, err = s.Scorer.ComputeAlignment(ctx, m, ev, cur)
				if err != nil {
					return err
				}
				traj = append(traj, score)
			}
			finals[i] = traj[len(traj)-1]
			trajectories[i] = traj
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return SimulationResult{}, err
	}

	return summarize(finals, trajectories, s.Config.DeviationThreshold), nil
}

// stepForward is the simulator's evolution rule: every numeric dimension of
// the state is independently perturbed by noise drawn from
// [-bound, +bound], identity otherwise. spec.md leaves the exact evolution
// model an Open Question; DESIGN.md records the decision to keep it a
// zero-mean random walk over every dimension rather than a directed drift,
// since nothing in the spec specifies a direction to drift toward.
func (s *Simulator) stepForward(st *state.ProjectState, rng *rand.Rand) *state.ProjectState {
	bound := s.Config.UncertaintyModel.noiseBound()
	cur := st
	for _, d := range st.Dimensions() {
		noise := (rng.Float64()*2 - 1) * bound
		cur = cur.Perturb(d, noise)
	}
	return cur
}

func (s *Simulator) seedFor(iteration int) int64 {
	if s.Config.Seed != 0 {
		return s.Config.Seed + int64(iteration)
	}
	return int64(iteration + 1)
}

func summarize(finals []float64, trajectories [][]float64, deviationThreshold float64) SimulationResult {
	n := float64(len(finals))
	if n == 0 {
		return SimulationResult{}
	}
	sum, min, max := 0.0, finals[0], finals[0]
	for _, v := range finals {
		sum += v
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	mean := sum / n

	variance := 0.0
	for _, v := range finals {
		variance += (v - mean) * (v - mean)
	}
	variance /= n
	stddev := math.Sqrt(variance)

	below := 0
	for _, v := range finals {
		if v < deviationThreshold {
			below++
		}
	}
	deviationProb := float64(below) / n

	risk := RiskLow
	switch {
	case deviationProb >= 0.6:
		risk = RiskCritical
	case deviationProb >= 0.3:
		risk = RiskHigh
	case deviationProb >= 0.1:
		risk = RiskMedium
	}

	confidence := 1 - stddev/100
	if confidence < 0 {
		confidence = 0
	}

	return SimulationResult{
		MeanAlignment:        mean,
		MinAlignment:         min,
		MaxAlignment:         max,
		StdDeviation:         stddev,
		DeviationProbability: deviationProb,
		Confidence:           confidence,
		Risk:                 risk,
		Trajectories:         trajectories,
	}
}

// sortedFinals is a small helper kept for percentile-style diagnostics the
// Cognitive Gate's decision log can attach to a rejected action.
func sortedFinals(finals []float64) []float64 {
	out := append([]float64(nil), finals...)
	sort.Float64s(out)
	return out
}
