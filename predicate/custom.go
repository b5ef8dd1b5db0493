package predicate

import (
	"context"
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/itsneelabh/sentinel-swarm/state"
)

// ExprEnv is the read-only view a custom predicate expression is evaluated
// against: scalar summaries of ProjectState, never the full maps, so an
// expression can reason about aggregates without enumerating paths outside
// the files it already knows about.
type ExprEnv struct {
	AverageCoverage     float64
	GoalCompletionRatio float64
	LinesOfCode         float64
	CyclomaticAvg       float64
	DuplicationRatio    float64
	LintWarnings        float64
	BuildSuccessRate    float64
	DependencyHealth    float64
	FileCount           int
	SuiteCount          int
	GoalCount           int
}

func newExprEnv(st *state.ProjectState) ExprEnv {
	return ExprEnv{
		AverageCoverage:     st.AverageCoverage(),
		GoalCompletionRatio: st.GoalCompletionRatio(),
		LinesOfCode:         st.Metrics.LinesOfCode,
		CyclomaticAvg:       st.Metrics.CyclomaticAvg,
		DuplicationRatio:    st.Metrics.DuplicationRatio,
		LintWarnings:        st.Metrics.LintWarnings,
		BuildSuccessRate:    st.Metrics.BuildSuccessRate,
		DependencyHealth:    st.Metrics.DependencyHealth,
		FileCount:           len(st.Files),
		SuiteCount:          len(st.Suites),
		GoalCount:           len(st.Goals),
	}
}

// SandboxError reports a custom-predicate expression that tried to escape
// its evaluation boundary: referencing an undeclared identifier, importing,
// or otherwise reaching outside the ExprEnv it was handed. This mirrors the
// isolation-breach detection the original Rust predicate_sandbox module
// performs before compiling a candidate expression.
type SandboxError struct {
	Expression      string
	IsolationBreach bool
	Reason          string
}

func (e *SandboxError) Error() string {
	if e.IsolationBreach {
		return fmt.Sprintf("sandbox isolation breach in %q: %s", e.Expression, e.Reason)
	}
	return fmt.Sprintf("sandbox rejected %q: %s", e.Expression, e.Reason)
}

// forbiddenTokens catches attempts to reach outside the expression sandbox
// before we ever hand the source to expr.Compile. expr's own environment
// restriction (no Go functions exposed beyond ExprEnv's fields) is the
// primary defense; this is a defense-in-depth textual scan for patterns
// that have no legitimate use inside a boolean predicate expression.
var forbiddenTokens = []string{"import", "exec(", "os.", "syscall", "unsafe", "__"}

// ExprCustomEvaluator evaluates "expr" language custom predicates using
// expr-lang/expr, compiled against ExprEnv so an expression can only ever
// observe the scalar summary fields above — never raw file contents, paths,
// or anything else in the process.
type ExprCustomEvaluator struct {
	cache map[string]*vm.Program
}

// NewExprCustomEvaluator builds an evaluator with a small compiled-program
// cache, since the same custom predicate is typically evaluated many times
// across Monte-Carlo iterations.
func NewExprCustomEvaluator() *ExprCustomEvaluator {
	return &ExprCustomEvaluator{cache: make(map[string]*vm.Program)}
}

// Eval compiles (or reuses a cached compile of) code and runs it against
// st's scalar summary. Only language "expr" is supported; anything else is
// rejected as malformed rather than silently ignored.
func (e *ExprCustomEvaluator) Eval(ctx context.Context, code, language string, st *state.ProjectState) (bool, error) {
	if language != "" && language != "expr" {
		return false, fmt.Errorf("unsupported custom predicate language %q", language)
	}
	lower := strings.ToLower(code)
	for _, tok := range forbiddenTokens {
		if strings.Contains(lower, tok) {
			return false, &SandboxError{Expression: code, IsolationBreach: true, Reason: "forbidden token " + tok}
		}
	}

	program, ok := e.cache[code]
	if !ok {
		env := ExprEnv{}
		compiled, err := expr.Compile(code, expr.Env(env), expr.AsBool())
		if err != nil {
			return false, &SandboxError{Expression: code, Reason: err.Error()}
		}
		program = compiled
		e.cache[code] = program
	}

	out, err := expr.Run(program, newExprEnv(st))
	if err != nil {
		return false, &SandboxError{Expression: code, IsolationBreach: true, Reason: err.Error()}
	}
	result, ok := out.(bool)
	if !ok {
		return false, &SandboxError{Expression: code, Reason: "expression did not evaluate to a boolean"}
	}
	return result, nil
}
