package predicate

import (
	"context"
	"errors"
	"strings"

	"github.com/itsneelabh/sentinel-swarm/state"
)

// Evaluator walks a Predicate tree against a ProjectState, calling out to an
// Executor for anything that requires external resources and a
// CustomEvaluator for sandboxed custom expressions. Both dependencies are
// optional: a predicate that needs one it wasn't given fails closed with
// KindMissingExecutor rather than panicking.
type Evaluator struct {
	Executor Executor
	Custom   CustomEvaluator
}

// NewEvaluator builds an Evaluator. Either dependency may be nil.
func NewEvaluator(executor Executor, custom CustomEvaluator) *Evaluator {
	return &Evaluator{Executor: executor, Custom: custom}
}

// Evaluate recursively evaluates p against st. And/Or short-circuit: And
// stops at the first false operand, Or stops at the first true operand,
// without evaluating (or requiring resources for) the remainder.
func (e *Evaluator) Evaluate(ctx context.Context, p *Predicate, st *state.ProjectState) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}

	switch p.Kind {
	case KindAlwaysTrue:
		return true, nil
	case KindAlwaysFalse:
		return false, nil

	case KindFileExists:
		_, ok := st.Files[p.Path]
		return ok, nil

	case KindDirectoryExists:
		prefix := strings.TrimSuffix(p.Path, "/") + "/"
		if p.Path == "" || p.Path == "." {
			return len(st.Files) > 0, nil
		}
		for path := range st.Files {
			if strings.HasPrefix(path, prefix) {
				return true, nil
			}
		}
		return false, nil

	case KindTestsPassing:
		if p.SuiteName != "" {
			suite, ok := st.Suites[p.SuiteName]
			if !ok {
				return false, newPredicateError("evaluate", KindEvaluationFailed, p, errors.New("suite not found"))
			}
			return suite.PassRate() >= p.MinPassRate, nil
		}
		if len(st.Suites) == 0 {
			return false, nil
		}
		for _, suite := range st.Suites {
			if suite.PassRate() < p.MinPassRate {
				return false, nil
			}
		}
		return true, nil

	case KindPerformance:
		val, ok := metricValue(st, p.MetricName)
		if !ok {
			return false, newPredicateError("evaluate", KindEvaluationFailed, p, errors.New("unknown metric"))
		}
		return val <= p.MaxValue, nil

	case KindAPIEndpoint:
		if e.Executor == nil {
			return false, newPredicateError("evaluate", KindMissingExecutor, p, errors.New("no executor configured"))
		}
		return e.Executor.ProbeEndpoint(ctx, p.URL, p.ExpectStatus)

	case KindCommandSucceeds:
		if e.Executor == nil {
			return false, newPredicateError("evaluate", KindMissingExecutor, p, errors.New("no executor configured"))
		}
		return e.Executor.CommandSucceeds(ctx, p.Command, p.Args)

	case KindCustom:
		if e.Custom == nil {
			return false, newPredicateError("evaluate", KindMissingExecutor, p, errors.New("no custom evaluator configured"))
		}
		ok, err := e.Custom.Eval(ctx, p.Code, p.Language, st)
		if err != nil {
			return false, newPredicateError("evaluate", KindEvaluationFailed, p, err)
		}
		return ok, nil

	case KindNot:
		inner, err := e.Evaluate(ctx, p.Operand, st)
		if err != nil {
			return false, err
		}
		return !inner, nil

	case KindAnd:
		for _, op := range p.Operands {
			ok, err := e.Evaluate(ctx, op, st)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil

	case KindOr:
		for _, op := range p.Operands {
			ok, err := e.Evaluate(ctx, op, st)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil

	default:
		return false, newPredicateError("evaluate", KindMalformed, p, errors.New("unknown predicate kind"))
	}
}

func metricValue(st *state.ProjectState, name string) (float64, bool) {
	switch name {
	case "lines_of_code":
		return st.Metrics.LinesOfCode, true
	case "cyclomatic_avg":
		return st.Metrics.CyclomaticAvg, true
	case "duplication_ratio":
		return st.Metrics.DuplicationRatio, true
	case "lint_warnings":
		return st.Metrics.LintWarnings, true
	case "build_success_rate":
		return st.Metrics.BuildSuccessRate, true
	case "dependency_health":
		return st.Metrics.DependencyHealth, true
	case "average_coverage":
		return st.AverageCoverage(), true
	case "goal_completion_ratio":
		return st.GoalCompletionRatio(), true
	default:
		return 0, false
	}
}
