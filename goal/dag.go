// Package goal implements the Goal Manifold subsystem: the dependency DAG
// goals sit in, the goal state machine, the content-addressed manifold that
// owns the current goal set and its append-only version history, and the
// invariants that must hold across every snapshot (spec.md §3, §4.B, §4.C).
package goal

import (
	"fmt"
	"sort"
)

// node is the DAG's internal bookkeeping for one goal id: the set of goals
// it depends on and the set of goals that depend on it, kept in sync by
// AddEdge/RemoveEdge so traversal never has to recompute either direction.
type node struct {
	id           string
	dependencies map[string]bool
	dependents   map[string]bool
	antiDeps     map[string]bool
}

// DAG is the dependency graph over goal ids. It is adapted from the
// teacher's orchestration.WorkflowDAG: same dependents/dependencies
// bookkeeping and DFS-based cycle detection, generalized to reject cycles
// at edge-insertion time (spec.md §4.B) rather than only at sort time, and
// to compute a complexity-weighted critical path the teacher's DAG never
// needed.
type DAG struct {
	nodes map[string]*node
}

// NewDAG returns an empty dependency graph.
func NewDAG() *DAG {
	return &DAG{nodes: make(map[string]*node)}
}

// AddGoal registers a new, dependency-free node for id. Adding the same id
// twice is a DagError of kind KindDuplicateGoal.
func (d *DAG) AddGoal(id string) error {
	if _, exists := d.nodes[id]; exists {
		return newDagError("AddGoal", KindDuplicateGoal, id, fmt.Errorf("goal %q already present in dag", id))
	}
	d.nodes[id] = &node{id: id, dependencies: make(map[string]bool), dependents: make(map[string]bool), antiDeps: make(map[string]bool)}
	return nil
}

// HasGoal reports whether id is a known node.
func (d *DAG) HasGoal(id string) bool {
	_, ok := d.nodes[id]
	return ok
}

// SetAntiDependencies records the set of goal ids id must never be linked
// to by a dependency edge, in either direction — "mutually exclusive work"
// (spec.md §3). It replaces any previously recorded set for id. Anti-deps
// on unknown ids are recorded anyway: the conflict only matters once both
// ids exist and AddEdge is attempted between them.
func (d *DAG) SetAntiDependencies(id string, antiDeps []string) {
	n, ok := d.nodes[id]
	if !ok {
		return
	}
	n.antiDeps = make(map[string]bool, len(antiDeps))
	for _, other := range antiDeps {
		n.antiDeps[other] = true
	}
}

// AddEdge records that dependent depends on dep (dep must complete first).
// It rejects edges referencing unknown nodes, an edge identical to its own
// reverse or to a recorded anti-dependency in either direction
// (AntiDependencyConflict — spec.md §4.B invariant (ii): no edge may link a
// goal to one listed in its anti-dependencies), and any edge that would
// close a cycle (WouldCreateCycle), discovered by a DFS from dependent along
// dependent edges looking for dep — if dep already depends on dependent,
// adding dependent->depends-on dep would close the loop.
func (d *DAG) AddEdge(dep, dependent string) error {
	depNode, ok := d.nodes[dep]
	if !ok {
		return newDagError("AddEdge", KindUnknownGoal, dep, fmt.Errorf("dependency %q not in dag", dep))
	}
	dependentNode, ok := d.nodes[dependent]
	if !ok {
		return newDagError("AddEdge", KindUnknownGoal, dependent, fmt.Errorf("dependent %q not in dag", dependent))
	}
	if dep == dependent {
		return newDagError("AddEdge", KindAntiDependencyConflict, dep, fmt.Errorf("goal %q cannot depend on itself", dep))
	}
	if depNode.antiDeps[dependent] || dependentNode.antiDeps[dep] {
		return newDagError("AddEdge", KindAntiDependencyConflict, dep,
			fmt.Errorf("goals %q and %q are anti-dependent and cannot be linked", dep, dependent))
	}
	if dependentNode.dependencies[dep] {
		return nil // already present, idempotent
	}
	if d.pathExists(dependent, dep) {
		return newDagError("AddEdge", KindWouldCreateCycle, dependent, fmt.Errorf("edge %s->%s would create a cycle", dep, dependent))
	}
	dependentNode.dependencies[dep] = true
	depNode.dependents[dependent] = true
	return nil
}

// pathExists reports whether a directed path from -> to exists via DFS.
func (d *DAG) pathExists(from, to string) bool {
	visited := make(map[string]bool)
	var walk func(string) bool
	walk = func(cur string) bool {
		if cur == to {
			return true
		}
		if visited[cur] {
			return false
		}
		visited[cur] = true
		n, ok := d.nodes[cur]
		if !ok {
			return false
		}
		for next := range n.dependents {
			if walk(next) {
				return true
			}
		}
		return false
	}
	return walk(from)
}

// RemoveEdge deletes the dep->dependent edge if present; a no-op otherwise.
func (d *DAG) RemoveEdge(dep, dependent string) {
	if depNode, ok := d.nodes[dep]; ok {
		delete(depNode.dependents, dependent)
	}
	if dependentNode, ok := d.nodes[dependent]; ok {
		delete(dependentNode.dependencies, dep)
	}
}

// RemoveNode deletes id and every edge touching it.
func (d *DAG) RemoveNode(id string) {
	n, ok := d.nodes[id]
	if !ok {
		return
	}
	for dep := range n.dependencies {
		if depNode, ok := d.nodes[dep]; ok {
			delete(depNode.dependents, id)
		}
	}
	for dependent := range n.dependents {
		if dependentNode, ok := d.nodes[dependent]; ok {
			delete(dependentNode.dependencies, id)
		}
	}
	delete(d.nodes, id)
}

// Dependencies returns the sorted list of ids id directly depends on.
func (d *DAG) Dependencies(id string) []string {
	n, ok := d.nodes[id]
	if !ok {
		return nil
	}
	return sortedKeys(n.dependencies)
}

// Dependents returns the sorted list of ids that directly depend on id.
func (d *DAG) Dependents(id string) []string {
	n, ok := d.nodes[id]
	if !ok {
		return nil
	}
	return sortedKeys(n.dependents)
}

// DependenciesSatisfied reports whether every dependency of id is a member
// of the completed set.
func (d *DAG) DependenciesSatisfied(id string, completed map[string]bool) bool {
	n, ok := d.nodes[id]
	if !ok {
		return false
	}
	for dep := range n.dependencies {
		if !completed[dep] {
			return false
		}
	}
	return true
}

// TopologicalSort returns ids in dependency order (a dependency always
// precedes its dependents). On a cycle it returns a DagError of kind
// KindCycleDetected carrying the ids on the cycle.
func (d *DAG) TopologicalSort() ([]string, error) {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(d.nodes))
	var order []string
	var cyclePath []string

	ids := d.allIDs()
	var visit func(string) bool
	visit = func(id string) bool {
		color[id] = gray
		cyclePath = append(cyclePath, id)
		deps := sortedKeys(d.nodes[id].dependencies)
		for _, dep := range deps {
			switch color[dep] {
			case white:
				if visit(dep) {
					return true
				}
			case gray:
				cyclePath = append(cyclePath, dep)
				return true
			}
		}
		cyclePath = cyclePath[:len(cyclePath)-1]
		color[id] = black
		order = append(order, id)
		return false
	}

	for _, id := range ids {
		if color[id] == white {
			if visit(id) {
				return nil, newDagError("TopologicalSort", KindCycleDetected, "", fmt.Errorf("cycle detected: %v", cyclePath))
			}
		}
	}
	return order, nil
}

// CriticalPath returns the longest simple path through the DAG weighted by
// each goal's complexity, using the mean of the provided complexity map for
// any goal missing from it. It is the spec's notion of "the longest chain
// of work."
func (d *DAG) CriticalPath(complexity map[string]float64) ([]string, float64) {
	mean := meanOf(complexity)
	weight := func(id string) float64 {
		if w, ok := complexity[id]; ok {
			return w
		}
		return mean
	}

	order, err := d.TopologicalSort()
	if err != nil {
		return nil, 0
	}

	bestDist := make(map[string]float64, len(order))
	bestPrev := make(map[string]string, len(order))
	for _, id := range order {
		bestDist[id] = weight(id)
	}
	for _, id := range order {
		for _, dependentID := range d.Dependents(id) {
			candidate := bestDist[id] + weight(dependentID)
			if candidate > bestDist[dependentID] {
				bestDist[dependentID] = candidate
				bestPrev[dependentID] = id
			}
		}
	}

	var endID string
	best := -1.0
	for id, dist := range bestDist {
		if dist > best {
			best = dist
			endID = id
		}
	}
	if endID == "" {
		return nil, 0
	}
	var path []string
	for cur := endID; cur != ""; {
		path = append([]string{cur}, path...)
		prev, ok := bestPrev[cur]
		if !ok {
			break
		}
		cur = prev
	}
	return path, best
}

func (d *DAG) allIDs() []string {
	ids := make([]string, 0, len(d.nodes))
	for id := range d.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func meanOf(m map[string]float64) float64 {
	if len(m) == 0 {
		return 1.0
	}
	total := 0.0
	for _, v := range m {
		total += v
	}
	return total / float64(len(m))
}
