package goal

import (
	"context"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"lukechampine.com/blake3"

	"github.com/itsneelabh/sentinel-swarm/predicate"
	"github.com/itsneelabh/sentinel-swarm/state"
)

// Version is one append-only entry in the manifold's history: the integrity
// hash of the goal set and invariants at the moment this version was
// sealed, plus what changed relative to the previous version.
type Version struct {
	Sequence  int
	Hash      string
	Intent    string
	GoalIDs   []string
	CreatedAt time.Time
	Note      string
}

// HandoverEntry records a single handover between agents or work phases
// against a sealed manifold version — a supplemental feature grounded on
// the original implementation's goal_manifold handover log: every time work
// on a goal passes from one owner to another, the manifold remembers why.
type HandoverEntry struct {
	Sequence  int
	GoalID    string
	FromOwner string
	ToOwner   string
	Reason    string
	Timestamp time.Time
}

// Manifold owns the current goal set, the dependency DAG over it, the
// invariants that must hold, and an append-only, content-addressed history
// of every sealed version — the authoritative "what is this project trying
// to do and in what order" record the rest of the system reads from
// (spec.md §4.C).
type Manifold struct {
	mu sync.RWMutex

	intent     Intent
	goals      map[string]*Goal
	dag        *DAG
	invariants []Invariant

	history     []Version
	handoverLog []HandoverEntry
}

// NewManifold creates an empty manifold for a bare-description intent, the
// common case when a goal text arrives with no structured constraints yet.
func NewManifold(description string) *Manifold {
	return NewManifoldFromIntent(Intent{Description: description})
}

// NewManifoldFromIntent creates an empty manifold consuming the full root
// intent. The intent is copied; the caller's instance stays untouched and
// the manifold's own copy is never handed back out by reference.
func NewManifoldFromIntent(intent Intent) *Manifold {
	return &Manifold{
		intent: intent.clone(),
		goals:  make(map[string]*Goal),
		dag:    NewDAG(),
	}
}

// Intent returns a copy of the manifold's root intent.
func (m *Manifold) Intent() Intent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.intent.clone()
}

// AddGoal validates g, registers it and its place in the dependency graph
// (including its anti-dependencies), and seals a new version recording the
// mutation — spec.md §4.C requires every mutator to validate, mutate,
// recompute the hash, and append a version record in one step, so callers
// never have an unsealed window to forget to close.
func (m *Manifold) AddGoal(g *Goal, dependsOn ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := g.Validate(); err != nil {
		return err
	}
	if _, exists := m.goals[g.ID]; exists {
		return newGoalError("AddGoal", KindGoalNotFound, g.ID, fmt.Errorf("goal %q already exists", g.ID))
	}
	if err := m.dag.AddGoal(g.ID); err != nil {
		return err
	}
	m.dag.SetAntiDependencies(g.ID, g.AntiDependsOn)
	for _, dep := range dependsOn {
		if err := m.dag.AddEdge(dep, g.ID); err != nil {
			m.dag.RemoveNode(g.ID)
			return err
		}
	}
	m.goals[g.ID] = g
	m.sealLocked(fmt.Sprintf("add goal %s", g.ID))
	return nil
}

// Goal returns a clone of the goal with id, or a GoalError if unknown.
func (m *Manifold) Goal(id string) (*Goal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.goals[id]
	if !ok {
		return nil, newGoalError("Goal", KindGoalNotFound, id, fmt.Errorf("goal %q not found", id))
	}
	return g.Clone(), nil
}

// Goals returns clones of every goal, sorted by id for determinism.
func (m *Manifold) Goals() []*Goal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.goals))
	for id := range m.goals {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]*Goal, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.goals[id].Clone())
	}
	return out
}

// TransitionGoal applies a state-machine transition to a goal in place and
// seals a new version recording it.
func (m *Manifold) TransitionGoal(id string, to Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.goals[id]
	if !ok {
		return newGoalError("TransitionGoal", KindGoalNotFound, id, fmt.Errorf("goal %q not found", id))
	}
	if err := g.Transition(to); err != nil {
		return err
	}
	m.sealLocked(fmt.Sprintf("transition goal %s -> %s", id, to))
	return nil
}

// ReadyGoals returns the ids of goals whose dependencies are all completed
// and whose own status is Pending or Ready.
func (m *Manifold) ReadyGoals() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	completed := make(map[string]bool)
	for id, g := range m.goals {
		if g.Status == StatusCompleted {
			completed[id] = true
		}
	}
	var ready []string
	for id, g := range m.goals {
		if g.Status != StatusPending && g.Status != StatusReady {
			continue
		}
		if m.dag.DependenciesSatisfied(id, completed) {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)
	return ready
}

// AddInvariant registers an invariant that every future snapshot must
// satisfy, sealing a new version recording the change.
func (m *Manifold) AddInvariant(inv Invariant) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invariants = append(m.invariants, inv)
	m.sealLocked(fmt.Sprintf("add invariant %s", inv.ID))
}

// ValidateInvariants evaluates every registered invariant against st.
func (m *Manifold) ValidateInvariants(ctx context.Context, evaluator *predicate.Evaluator, st *state.ProjectState) []ViolatedInvariant {
	m.mu.RLock()
	invariants := append([]Invariant(nil), m.invariants...)
	m.mu.RUnlock()
	return ValidateInvariants(ctx, evaluator, invariants, st)
}

// computeHash derives the Blake3 integrity hash over intent, the sorted
// goal id/status/weight tuples, and invariant ids — any change to what the
// manifold is pursuing or how it is structured changes the hash.
func (m *Manifold) computeHash() string {
	h := blake3.New(32, nil)
	fmt.Fprintf(h, "intent:%s\n", m.intent.Description)
	for _, c := range m.intent.Constraints {
		fmt.Fprintf(h, "constraint:%s\n", c)
	}
	for _, o := range m.intent.ExpectedOutcomes {
		fmt.Fprintf(h, "outcome:%s\n", o)
	}
	fmt.Fprintf(h, "platform:%s\n", m.intent.TargetPlatform)
	for _, l := range m.intent.Languages {
		fmt.Fprintf(h, "language:%s\n", l)
	}
	for _, f := range m.intent.Frameworks {
		fmt.Fprintf(h, "framework:%s\n", f)
	}
	infraNames := make([]string, 0, len(m.intent.Infrastructure))
	for name := range m.intent.Infrastructure {
		infraNames = append(infraNames, name)
	}
	sort.Strings(infraNames)
	for _, name := range infraNames {
		fmt.Fprintf(h, "infra:%s=%s\n", name, m.intent.Infrastructure[name])
	}

	ids := make([]string, 0, len(m.goals))
	for id := range m.goals {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		g := m.goals[id]
		fmt.Fprintf(h, "goal:%s:%s:%.6f:%.6f:%.6f\n", g.ID, g.Status, g.Weight, g.ComplexityMean, g.ComplexityStdDev)
		for _, dep := range m.dag.Dependencies(id) {
			fmt.Fprintf(h, "edge:%s->%s\n", dep, id)
		}
		antiDeps := append([]string(nil), g.AntiDependsOn...)
		sort.Strings(antiDeps)
		for _, other := range antiDeps {
			fmt.Fprintf(h, "anti:%s<>%s\n", id, other)
		}
		for _, c := range g.SuccessCriteria {
			fmt.Fprintf(h, "criterion:%s:%s\n", id, c.Kind)
		}
	}
	for _, inv := range m.invariants {
		fmt.Fprintf(h, "invariant:%s\n", inv.ID)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Seal appends a new Version capturing the manifold's current hash, goal
// set, and a free-text note describing why this version was sealed. History
// is append-only: Seal never mutates or removes a prior Version.
//
// Every mutator on Manifold (AddGoal, AddInvariant, TransitionGoal) already
// seals a version itself as its last step, so callers outside this package
// only need Seal directly for a manual checkpoint — e.g. to mark "this is
// the set the swarm should start executing against" with a descriptive note.
func (m *Manifold) Seal(note string) Version {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sealLocked(note)
}

// sealLocked is Seal's body, callable by other methods that already hold
// m.mu for writing.
func (m *Manifold) sealLocked(note string) Version {
	ids := make([]string, 0, len(m.goals))
	for id := range m.goals {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	v := Version{
		Sequence:  len(m.history),
		Hash:      m.computeHash(),
		Intent:    m.intent.Description,
		GoalIDs:   ids,
		CreatedAt: time.Now(),
		Note:      note,
	}
	m.history = append(m.history, v)
	return v
}

// History returns every sealed version in sequence order.
func (m *Manifold) History() []Version {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Version(nil), m.history...)
}

// VerifyIntegrity recomputes the current hash and compares it against the
// most recently sealed Version, returning a ManifoldError of kind
// KindIntegrityViolation if they diverge (meaning the goal set changed
// without a corresponding Seal) or KindVersionNotFound if nothing has been
// sealed yet.
func (m *Manifold) VerifyIntegrity() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.history) == 0 {
		return newManifoldError("VerifyIntegrity", KindVersionNotFound, "", fmt.Errorf("no sealed version to verify against"))
	}
	latest := m.history[len(m.history)-1]
	current := m.computeHash()
	if current != latest.Hash {
		return newManifoldError("VerifyIntegrity", KindIntegrityViolation, "",
			fmt.Errorf("manifold mutated since version %d without a new seal (want %s, got %s)", latest.Sequence, latest.Hash, current))
	}
	return nil
}

// RecordHandover appends an entry to the handover log: goalID passed from
// fromOwner to toOwner for reason, stamped against the most recently sealed
// version. Grounded on original_source/goal_manifold/mod.rs's handover log.
func (m *Manifold) RecordHandover(goalID, fromOwner, toOwner, reason string) HandoverEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	seq := 0
	if len(m.history) > 0 {
		seq = m.history[len(m.history)-1].Sequence
	}
	entry := HandoverEntry{
		Sequence:  seq,
		GoalID:    goalID,
		FromOwner: fromOwner,
		ToOwner:   toOwner,
		Reason:    reason,
		Timestamp: time.Now(),
	}
	m.handoverLog = append(m.handoverLog, entry)
	return entry
}

// HandoverLog returns every recorded handover in order.
func (m *Manifold) HandoverLog() []HandoverEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]HandoverEntry(nil), m.handoverLog...)
}

// DAG exposes the dependency graph for callers that need direct traversal
// (persistence's snapshotting of edges, for instance).
func (m *Manifold) DAG() *DAG {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dag
}

// Invariants returns a copy of every registered invariant, for callers that
// need to serialize the manifold (persistence.ManifoldStore) rather than
// just validate against it.
func (m *Manifold) Invariants() []Invariant {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Invariant(nil), m.invariants...)
}

// RestoreHistoryAndHandovers overwrites the manifold's history and handover
// log wholesale. It exists for persistence.ManifoldStore.Load, which
// reconstructs a manifold from a sentinel.json document and must preserve
// the exact sealed versions and handover timestamps on disk rather than
// re-deriving them through Seal/RecordHandover.
func (m *Manifold) RestoreHistoryAndHandovers(history []Version, handoverLog []HandoverEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append([]Version(nil), history...)
	m.handoverLog = append([]HandoverEntry(nil), handoverLog...)
}
