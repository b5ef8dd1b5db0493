// Package predicate implements the boolean algebra of safety and success
// conditions evaluated against a project.state.ProjectState: the leaf
// predicates (file/directory existence, test pass rate, endpoint health,
// performance budgets, command exit codes, sandboxed custom expressions)
// and the combinators (and, or, not, always-true, always-false) that compose
// them, following spec.md §4.A.
package predicate

import (
	"context"
	"fmt"

	"github.com/itsneelabh/sentinel-swarm/state"
)

// Kind identifies a predicate's concrete shape for logging, error reporting,
// and complexity scoring.
type Kind string

const (
	KindFileExists      Kind = "file_exists"
	KindDirectoryExists Kind = "directory_exists"
	KindTestsPassing    Kind = "tests_passing"
	KindAPIEndpoint     Kind = "api_endpoint"
	KindPerformance     Kind = "performance"
	KindCommandSucceeds Kind = "command_succeeds"
	KindCustom          Kind = "custom"
	KindAnd             Kind = "and"
	KindOr              Kind = "or"
	KindNot             Kind = "not"
	KindAlwaysTrue      Kind = "always_true"
	KindAlwaysFalse     Kind = "always_false"
)

// Executor performs the side-effecting work a few leaf predicates require:
// running commands and probing HTTP endpoints inside the sandbox boundary.
// Implementations live in the sandbox package; predicate only depends on
// this narrow interface so it never imports sandbox directly.
type Executor interface {
	CommandSucceeds(ctx context.Context, command string, args []string) (bool, error)
	ProbeEndpoint(ctx context.Context, url string, expectStatus int) (bool, error)
}

// CustomEvaluator evaluates a sandboxed expression against a ProjectState
// and returns its boolean result. The expr-lang/expr based implementation
// lives in custom.go.
type CustomEvaluator interface {
	Eval(ctx context.Context, code, language string, st *state.ProjectState) (bool, error)
}

// Predicate is the sum type at the heart of the algebra. Exactly one of the
// leaf/combinator fields is meaningful per Kind; Evaluate dispatches on it.
type Predicate struct {
	Kind Kind

	// Leaf fields.
	Path         string   // file_exists, directory_exists
	SuiteName    string   // tests_passing (empty means "all suites")
	MinPassRate  float64  // tests_passing, default 1.0
	URL          string   // api_endpoint
	ExpectStatus int      // api_endpoint, default 200
	MetricName   string   // performance
	MaxValue     float64  // performance
	Command      string   // command_succeeds
	Args         []string // command_succeeds
	Code         string   // custom
	Language     string   // custom, e.g. "expr"
	Description  string   // custom, human-readable label

	// Combinator fields.
	Operands []*Predicate // and, or
	Operand  *Predicate   // not
}

// FileExists builds a file_exists leaf predicate.
func FileExists(path string) *Predicate { return &Predicate{Kind: KindFileExists, Path: path} }

// DirectoryExists builds a directory_exists leaf predicate.
func DirectoryExists(path string) *Predicate {
	return &Predicate{Kind: KindDirectoryExists, Path: path}
}

// TestsPassing builds a tests_passing leaf predicate. An empty suite matches
// all tracked suites; minPassRate of 0 defaults to 1.0 (fully passing).
func TestsPassing(suite string, minPassRate float64) *Predicate {
	if minPassRate <= 0 {
		minPassRate = 1.0
	}
	return &Predicate{Kind: KindTestsPassing, SuiteName: suite, MinPassRate: minPassRate}
}

// APIEndpoint builds an api_endpoint leaf predicate.
func APIEndpoint(url string, expectStatus int) *Predicate {
	if expectStatus == 0 {
		expectStatus = 200
	}
	return &Predicate{Kind: KindAPIEndpoint, URL: url, ExpectStatus: expectStatus}
}

// Performance builds a performance leaf predicate: metric must not exceed max.
func Performance(metric string, max float64) *Predicate {
	return &Predicate{Kind: KindPerformance, MetricName: metric, MaxValue: max}
}

// CommandSucceeds builds a command_succeeds leaf predicate.
func CommandSucceeds(command string, args ...string) *Predicate {
	return &Predicate{Kind: KindCommandSucceeds, Command: command, Args: args}
}

// Custom builds a sandboxed custom-expression leaf predicate.
func Custom(code, language, description string) *Predicate {
	return &Predicate{Kind: KindCustom, Code: code, Language: language, Description: description}
}

// And builds a conjunction; Evaluate short-circuits on the first false.
func And(operands ...*Predicate) *Predicate { return &Predicate{Kind: KindAnd, Operands: operands} }

// Or builds a disjunction; Evaluate short-circuits on the first true.
func Or(operands ...*Predicate) *Predicate { return &Predicate{Kind: KindOr, Operands: operands} }

// Not negates a single operand.
func Not(operand *Predicate) *Predicate { return &Predicate{Kind: KindNot, Operand: operand} }

// AlwaysTrue and AlwaysFalse are the algebra's identity elements, produced
// by Simplify and useful directly as test fixtures.
func AlwaysTrue() *Predicate  { return &Predicate{Kind: KindAlwaysTrue} }
func AlwaysFalse() *Predicate { return &Predicate{Kind: KindAlwaysFalse} }

// RequiresExternalResources reports whether evaluating p can touch anything
// outside the in-memory ProjectState (network, subprocess, filesystem beyond
// the tracked snapshot). The Cognitive Gate uses this to decide whether a
// predicate needs a sandboxed Executor before before_action can proceed.
func (p *Predicate) RequiresExternalResources() bool {
	switch p.Kind {
	case KindAPIEndpoint, KindCommandSucceeds:
		return true
	case KindCustom:
		return true
	case KindAnd, KindOr:
		for _, op := range p.Operands {
			if op.RequiresExternalResources() {
				return true
			}
		}
		return false
	case KindNot:
		return p.Operand.RequiresExternalResources()
	default:
		return false
	}
}

// Complexity is a rough cost estimate used by the Alignment Field and the
// Swarm Predictor to prioritize cheap checks before expensive ones: leaves
// cost 1 (2 for anything requiring external resources), combinators cost the
// sum of their operands plus 1.
func (p *Predicate) Complexity() int {
	switch p.Kind {
	case KindAnd, KindOr:
		total := 1
		for _, op := range p.Operands {
			total += op.Complexity()
		}
		return total
	case KindNot:
		return 1 + p.Operand.Complexity()
	case KindAlwaysTrue, KindAlwaysFalse:
		return 0
	default:
		if p.RequiresExternalResources() {
			return 2
		}
		return 1
	}
}

// Simplify applies boolean algebra reductions: double negation, identity
// and annihilator laws for and/or over always-true/always-false, and
// collapsing single-operand and/or. It is not guaranteed to reach a unique
// normal form, only to shrink obviously redundant structure.
func (p *Predicate) Simplify() *Predicate {
	switch p.Kind {
	case KindNot:
		inner := p.Operand.Simplify()
		if inner.Kind == KindNot {
			return inner.Operand.Simplify()
		}
		if inner.Kind == KindAlwaysTrue {
			return AlwaysFalse()
		}
		if inner.Kind == KindAlwaysFalse {
			return AlwaysTrue()
		}
		return Not(inner)

	case KindAnd:
		var kept []*Predicate
		for _, op := range p.Operands {
			s := op.Simplify()
			if s.Kind == KindAlwaysFalse {
				return AlwaysFalse()
			}
			if s.Kind == KindAlwaysTrue {
				continue
			}
			kept = append(kept, s)
		}
		switch len(kept) {
		case 0:
			return AlwaysTrue()
		case 1:
			return kept[0]
		default:
			return And(kept...)
		}

	case KindOr:
		var kept []*Predicate
		for _, op := range p.Operands {
			s := op.Simplify()
			if s.Kind == KindAlwaysTrue {
				return AlwaysTrue()
			}
			if s.Kind == KindAlwaysFalse {
				continue
			}
			kept = append(kept, s)
		}
		switch len(kept) {
		case 0:
			return AlwaysFalse()
		case 1:
			return kept[0]
		default:
			return Or(kept...)
		}

	default:
		return p
	}
}

// String renders a human-readable form, primarily for logging and the
// Cognitive Gate's decision log.
func (p *Predicate) String() string {
	switch p.Kind {
	case KindFileExists:
		return fmt.Sprintf("file_exists(%s)", p.Path)
	case KindDirectoryExists:
		return fmt.Sprintf("directory_exists(%s)", p.Path)
	case KindTestsPassing:
		if p.SuiteName == "" {
			return fmt.Sprintf("tests_passing(*, >=%.2f)", p.MinPassRate)
		}
		return fmt.Sprintf("tests_passing(%s, >=%.2f)", p.SuiteName, p.MinPassRate)
	case KindAPIEndpoint:
		return fmt.Sprintf("api_endpoint(%s, %d)", p.URL, p.ExpectStatus)
	case KindPerformance:
		return fmt.Sprintf("performance(%s, <=%.2f)", p.MetricName, p.MaxValue)
	case KindCommandSucceeds:
		return fmt.Sprintf("command_succeeds(%s)", p.Command)
	case KindCustom:
		return fmt.Sprintf("custom(%s: %s)", p.Language, p.Description)
	case KindAnd:
		return joinOperands("and", p.Operands)
	case KindOr:
		return joinOperands("or", p.Operands)
	case KindNot:
		return fmt.Sprintf("not(%s)", p.Operand.String())
	case KindAlwaysTrue:
		return "always_true"
	case KindAlwaysFalse:
		return "always_false"
	default:
		return string(p.Kind)
	}
}

func joinOperands(op string, operands []*Predicate) string {
	s := op + "("
	for i, o := range operands {
		if i > 0 {
			s += ", "
		}
		s += o.String()
	}
	return s + ")"
}
