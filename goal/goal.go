package goal

import (
	"fmt"
	"time"

	"github.com/itsneelabh/sentinel-swarm/predicate"
)

// Status is a Goal's position in its lifecycle state machine.
type Status string

const (
	StatusPending    Status = "pending"
	StatusReady      Status = "ready"
	StatusInProgress Status = "in_progress"
	StatusValidating Status = "validating"
	StatusCompleted  Status = "completed"
	StatusBlocked    Status = "blocked"
	StatusFailed     Status = "failed"
	StatusDeprecated Status = "deprecated"
)

// allowedTransitions enumerates every legal Status -> Status move. Completed
// and Deprecated are terminal: no outgoing edges. Blocked and Failed are
// side branches that can return to Ready once their cause clears.
var allowedTransitions = map[Status]map[Status]bool{
	StatusPending:    {StatusReady: true, StatusBlocked: true, StatusDeprecated: true},
	StatusReady:      {StatusInProgress: true, StatusBlocked: true, StatusDeprecated: true},
	StatusInProgress: {StatusValidating: true, StatusBlocked: true, StatusFailed: true, StatusDeprecated: true},
	StatusValidating: {StatusCompleted: true, StatusFailed: true, StatusInProgress: true},
	StatusBlocked:    {StatusReady: true, StatusDeprecated: true},
	StatusFailed:     {StatusReady: true, StatusDeprecated: true},
	StatusCompleted:  {},
	StatusDeprecated: {},
}

// CanTransition reports whether moving from to is legal.
func CanTransition(from, to Status) bool {
	return allowedTransitions[from][to]
}

// AtomicContract is the optional pre/post/invariant contract a goal commits
// to when its work must be applied all-or-nothing: Precondition must hold
// before work starts, Postcondition must hold once it completes, and
// Invariant must hold throughout (spec.md §3).
type AtomicContract struct {
	Precondition  *predicate.Predicate
	Postcondition *predicate.Predicate
	Invariant     *predicate.Predicate
}

func (c *AtomicContract) clone() *AtomicContract {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

// Metadata carries the free-form bookkeeping spec.md §3 attaches to a goal
// beyond its core fields: tags for classification, retry/failure tracking
// for goals that have failed and been retried, the ids of goals currently
// blocking it, and free-text notes accumulated over its lifetime.
type Metadata struct {
	Tags          []string
	RetryCount    int
	FailureReason string
	BlockerIDs    []string
	Notes         []string
}

func (m Metadata) clone() Metadata {
	cp := m
	cp.Tags = append([]string(nil), m.Tags...)
	cp.BlockerIDs = append([]string(nil), m.BlockerIDs...)
	cp.Notes = append([]string(nil), m.Notes...)
	return cp
}

// Goal is a single unit of intent in the manifold: a description, the
// success criteria that define "done," a priority weight used by the
// Alignment Field, a complexity distribution used for critical-path
// weighting and estimation, the anti-dependencies it cannot run alongside,
// and the lifecycle status above.
type Goal struct {
	ID          string
	Description string

	// SuccessCriteria is the non-empty set of acceptance predicates that
	// together define completion (spec.md §3, §7: a goal's success
	// criteria may never be empty). Combine with CombinedAcceptance.
	SuccessCriteria []*predicate.Predicate

	Weight float64 // relative importance in the alignment vector, in [0, 1]

	// ComplexityMean and ComplexityStdDev describe the goal's estimated
	// effort as a distribution rather than a point estimate, the way
	// spec.md §3 asks for: CriticalPath weighting uses the mean, and the
	// stddev lets callers reason about estimation confidence.
	ComplexityMean   float64
	ComplexityStdDev float64

	// AntiDependsOn lists ids of goals that must never be worked on
	// concurrently with this one — mutually exclusive work the DAG
	// refuses to link with a dependency edge in either direction.
	AntiDependsOn []string

	// LockHolder is the id of the agent currently holding exclusive work
	// on this goal, if any.
	LockHolder string

	// ParentID is the id of the goal this one was decomposed from, if it
	// was produced by decomposition rather than added directly.
	ParentID string

	// AtomicContract is the optional all-or-nothing contract this goal's
	// work must satisfy.
	AtomicContract *AtomicContract

	// ValidationTests names the tests (by id or path) that must pass for
	// this goal to be considered validated.
	ValidationTests []string

	Metadata Metadata

	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewGoal constructs a Goal in StatusPending with sane defaults: a single
// success criterion built from acceptance, weight clamped into (0, 1], and
// a complexity mean of 1.0 with zero spread. Use NewGoalWithCriteria to
// build a goal with more than one success criterion or the richer optional
// fields up front.
func NewGoal(id, description string, acceptance *predicate.Predicate, weight float64) *Goal {
	criteria := []*predicate.Predicate{}
	if acceptance != nil {
		criteria = append(criteria, acceptance)
	}
	return NewGoalWithCriteria(id, description, criteria, weight)
}

// NewGoalWithCriteria constructs a Goal from an explicit, non-empty list of
// success criteria. weight <= 0 or > 1 is clamped to 1.0.
func NewGoalWithCriteria(id, description string, criteria []*predicate.Predicate, weight float64) *Goal {
	now := time.Now()
	if weight <= 0 || weight > 1 {
		weight = 1.0
	}
	return &Goal{
		ID:               id,
		Description:      description,
		SuccessCriteria:  append([]*predicate.Predicate(nil), criteria...),
		Weight:           weight,
		ComplexityMean:   1.0,
		ComplexityStdDev: 0,
		Status:           StatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// Validate checks the invariants spec.md §7/§8 require of a goal:
// Weight must sit in [0, 1] (KindInvalidValue), both complexity moments
// must be non-negative (KindInvalidComplexity), and at least one success
// criterion must be present (KindEmptySuccessCriteria).
func (g *Goal) Validate() error {
	if g.Weight < 0 || g.Weight > 1 {
		return newGoalError("Validate", KindInvalidValue, g.ID,
			fmt.Errorf("goal %q weight %.6f outside [0, 1]", g.ID, g.Weight))
	}
	if g.ComplexityMean < 0 || g.ComplexityStdDev < 0 {
		return newGoalError("Validate", KindInvalidComplexity, g.ID,
			fmt.Errorf("goal %q complexity mean/stddev must be non-negative (got %.6f/%.6f)", g.ID, g.ComplexityMean, g.ComplexityStdDev))
	}
	if len(g.SuccessCriteria) == 0 {
		return newGoalError("Validate", KindEmptySuccessCriteria, g.ID,
			fmt.Errorf("goal %q has no success criteria", g.ID))
	}
	return nil
}

// CombinedAcceptance folds SuccessCriteria into the single predicate that
// must hold for the goal to count as done: the lone criterion if there is
// only one, their conjunction if there are several, or AlwaysFalse if the
// list is empty (an unvalidated goal can never be satisfied).
func (g *Goal) CombinedAcceptance() *predicate.Predicate {
	switch len(g.SuccessCriteria) {
	case 0:
		return predicate.AlwaysFalse()
	case 1:
		return g.SuccessCriteria[0]
	default:
		return predicate.And(g.SuccessCriteria...)
	}
}

// Clone returns a deep-enough copy for callers that must not observe
// mutation through the manifold's internal map: slices and the optional
// contract are copied, predicates are shared (they are immutable once
// built).
func (g *Goal) Clone() *Goal {
	clone := *g
	clone.SuccessCriteria = append([]*predicate.Predicate(nil), g.SuccessCriteria...)
	clone.AntiDependsOn = append([]string(nil), g.AntiDependsOn...)
	clone.ValidationTests = append([]string(nil), g.ValidationTests...)
	clone.AtomicContract = g.AtomicContract.clone()
	clone.Metadata = g.Metadata.clone()
	return &clone
}

// Transition moves g to status, returning an InvalidStateTransition if the
// move is not allowed by the state machine.
func (g *Goal) Transition(to Status) error {
	if !CanTransition(g.Status, to) {
		return &InvalidStateTransition{From: g.Status, To: to}
	}
	g.Status = to
	g.UpdatedAt = time.Now()
	return nil
}

// IsTerminal reports whether g can never transition again.
func (g *Goal) IsTerminal() bool {
	return g.Status == StatusCompleted || g.Status == StatusDeprecated
}
