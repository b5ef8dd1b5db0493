package goal

import (
	"context"

	"github.com/itsneelabh/sentinel-swarm/predicate"
	"github.com/itsneelabh/sentinel-swarm/state"
)

// Severity classifies what should happen when an invariant is violated,
// grounded on original_source/goal_manifold/mod.rs's InvariantSeverity: a
// Warning is logged and ignored, an Error should be corrected, a Critical
// violation must stop the offending action outright (spec.md §4.G step 3).
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Invariant is a condition the manifold asserts must hold across every
// snapshot of project state, independent of any single goal's acceptance
// predicate — e.g. "the build never stops compiling," "no suite regresses
// below its last-known pass rate." Violating one does not fail a goal; it
// fails the manifold's validate_invariants check (spec.md §4.C).
type Invariant struct {
	ID          string
	Description string
	Condition   *predicate.Predicate
	Severity    Severity
}

// NewInvariant builds an Invariant at Critical severity (the default
// original_source/goal_manifold/mod.rs uses for its `critical()` constructor).
func NewInvariant(id, description string, condition *predicate.Predicate) Invariant {
	return Invariant{ID: id, Description: description, Condition: condition, Severity: SeverityCritical}
}

// NewInvariantWithSeverity builds an Invariant at an explicit severity.
func NewInvariantWithSeverity(id, description string, condition *predicate.Predicate, severity Severity) Invariant {
	return Invariant{ID: id, Description: description, Condition: condition, Severity: severity}
}

// ViolatedInvariant names one invariant that failed to hold.
type ViolatedInvariant struct {
	ID          string
	Description string
	Severity    Severity
	Err         error
}

// ValidateInvariants evaluates every invariant against st and returns the
// ones that failed to hold (either evaluated false or errored). An empty
// result means every invariant held.
func ValidateInvariants(ctx context.Context, evaluator *predicate.Evaluator, invariants []Invariant, st *state.ProjectState) []ViolatedInvariant {
	var violated []ViolatedInvariant
	for _, inv := range invariants {
		ok, err := evaluator.Evaluate(ctx, inv.Condition, st)
		if err != nil {
			violated = append(violated, ViolatedInvariant{ID: inv.ID, Description: inv.Description, Severity: inv.Severity, Err: err})
			continue
		}
		if !ok {
			violated = append(violated, ViolatedInvariant{ID: inv.ID, Description: inv.Description, Severity: inv.Severity})
		}
	}
	return violated
}
