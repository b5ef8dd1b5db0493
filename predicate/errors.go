package predicate

import (
	"fmt"

	"github.com/itsneelabh/sentinel-swarm/core"
)

// Error kinds layered on core.SwarmError per the package doc in core/errors.go.
const (
	KindEvaluationFailed = "evaluation_failed"
	KindSandboxDenied    = "sandbox_denied"
	KindMissingExecutor  = "missing_executor"
	KindMalformed        = "malformed"
)

// PredicateError wraps a core.SwarmError with the offending predicate's
// rendered form, so logs and the Cognitive Gate's decision log can show
// exactly which check failed without re-walking the tree.
type PredicateError struct {
	*core.SwarmError
	Predicate string
}

func (e *PredicateError) Error() string {
	return fmt.Sprintf("%s: %s", e.SwarmError.Error(), e.Predicate)
}

func newPredicateError(op, kind string, p *Predicate, err error) *PredicateError {
	return &PredicateError{
		SwarmError: core.NewSwarmError(op, kind, err),
		Predicate:  p.String(),
	}
}
