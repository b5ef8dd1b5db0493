package goal

import (
	"fmt"

	"github.com/itsneelabh/sentinel-swarm/core"
)

// DagError kinds.
const (
	KindDuplicateGoal          = "duplicate_goal"
	KindUnknownGoal            = "unknown_goal"
	KindAntiDependencyConflict = "anti_dependency_conflict"
	KindWouldCreateCycle       = "would_create_cycle"
	KindCycleDetected          = "cycle_detected"
)

// DagError reports a dependency-graph violation.
type DagError struct{ *core.SwarmError }

func newDagError(op, kind, id string, err error) *DagError {
	e := core.NewSwarmError(op, kind, err)
	e.ID = id
	return &DagError{e}
}

// GoalError kinds.
const (
	KindInvalidStateTransition = "invalid_state_transition"
	KindGoalNotFound           = "goal_not_found"
	KindInvalidValue           = "invalid_value"
	KindInvalidComplexity      = "invalid_complexity"
	KindEmptySuccessCriteria   = "empty_success_criteria"
)

// InvalidStateTransition reports an attempt to move a Goal between two
// statuses the state machine does not allow.
type InvalidStateTransition struct {
	From, To Status
}

func (e *InvalidStateTransition) Error() string {
	return fmt.Sprintf("invalid goal state transition: %s -> %s", e.From, e.To)
}

// GoalError wraps the above into the package's SwarmError shape.
type GoalError struct{ *core.SwarmError }

func newGoalError(op, kind, id string, err error) *GoalError {
	e := core.NewSwarmError(op, kind, err)
	e.ID = id
	return &GoalError{e}
}

// ManifoldError kinds.
const (
	KindIntegrityViolation = "integrity_violation"
	KindInvariantViolated  = "invariant_violated"
	KindVersionNotFound    = "version_not_found"
)

// ManifoldError wraps manifold-level failures: integrity hash mismatches,
// invariant violations, and missing version-history entries.
type ManifoldError struct{ *core.SwarmError }

func newManifoldError(op, kind, id string, err error) *ManifoldError {
	e := core.NewSwarmError(op, kind, err)
	e.ID = id
	return &ManifoldError{e}
}
