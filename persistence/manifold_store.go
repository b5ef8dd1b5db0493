// Package persistence implements durable storage for the Goal Manifold
// (sentinel.json) the way spec.md §6 describes: discovered by walking up
// from the working directory, schema-stable and versioned, and written
// atomically so a reader never observes a torn file.
package persistence

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/itsneelabh/sentinel-swarm/core"
	"github.com/itsneelabh/sentinel-swarm/goal"
	"github.com/itsneelabh/sentinel-swarm/predicate"
)

// ManifoldFileName is the well-known file name Discover walks the directory
// tree looking for (spec.md §6).
const ManifoldFileName = "sentinel.json"

// SchemaVersion is the current on-disk schema revision this package writes.
// Readers tolerate older and newer values; the schema is additive-only.
// Bumped to 2 when the Goal document grew success criteria,
// anti-dependencies, the complexity distribution, and the rest of spec.md
// §3's optional fields; to 3 when the intent became a structured object
// (IntentDocument still reads the schema-1/2 bare string).
const SchemaVersion = 3

// GoalDocument is one goal's on-disk shape: its own fields plus the
// dependency edges the DAG held for it, since goal.DAG itself is not
// serialized directly.
type GoalDocument struct {
	ID               string                 `json:"id"`
	Description      string                 `json:"description"`
	SuccessCriteria  []*predicate.Predicate `json:"success_criteria,omitempty"`
	Weight           float64                `json:"weight"`
	ComplexityMean   float64                `json:"complexity_mean"`
	ComplexityStdDev float64                `json:"complexity_stddev"`
	AntiDependsOn    []string               `json:"anti_depends_on,omitempty"`
	LockHolder       string                 `json:"lock_holder,omitempty"`
	ParentID         string                 `json:"parent_id,omitempty"`
	AtomicContract   *goal.AtomicContract   `json:"atomic_contract,omitempty"`
	ValidationTests  []string               `json:"validation_tests,omitempty"`
	Metadata         goal.Metadata          `json:"metadata,omitempty"`
	Status           goal.Status            `json:"status"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
	DependsOn        []string               `json:"depends_on,omitempty"`
}

// IntentDocument is the root intent's on-disk shape. Schema versions 1 and
// 2 persisted the intent as a bare description string; UnmarshalJSON accepts
// both forms so older documents keep loading.
type IntentDocument struct {
	goal.Intent
}

func (d *IntentDocument) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var description string
		if err := json.Unmarshal(data, &description); err != nil {
			return err
		}
		d.Intent = goal.Intent{Description: description}
		return nil
	}
	return json.Unmarshal(data, &d.Intent)
}

func (d IntentDocument) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Intent)
}

// InvariantDocument is one invariant's on-disk shape.
type InvariantDocument struct {
	ID          string               `json:"id"`
	Description string               `json:"description"`
	Condition   *predicate.Predicate `json:"condition,omitempty"`
	Severity    goal.Severity        `json:"severity"`
}

// ManifoldDocument is the full sentinel.json shape: the goal set,
// invariants, the append-only version history, and the handover log.
type ManifoldDocument struct {
	SchemaVersion  int                  `json:"schema_version"`
	Intent         IntentDocument       `json:"intent"`
	Goals          []GoalDocument       `json:"goals"`
	Invariants     []InvariantDocument  `json:"invariants,omitempty"`
	VersionHistory []goal.Version       `json:"version_history"`
	HandoverLog    []goal.HandoverEntry `json:"handover_log,omitempty"`
}

// ManifoldStore reads and writes a Manifold against a sentinel.json file,
// preserving any top-level fields it does not itself understand so a
// future schema revision's data survives a round trip through this version
// of the runtime (spec.md §6: "writers must preserve unknown fields").
type ManifoldStore struct {
	path string
}

// NewManifoldStore builds a store bound to the file at path.
func NewManifoldStore(path string) *ManifoldStore {
	return &ManifoldStore{path: path}
}

// Discover walks upward from startDir looking for sentinel.json, the way
// version-control tooling discovers a repository root. If none is found by
// the time the filesystem root is reached, it falls back to
// $SENTINEL_ROOT/sentinel.json (core.EnvSentinelRoot). If neither resolves,
// it returns the error from the final lookup.
func Discover(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(dir, ManifoldFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	if root := os.Getenv(core.EnvSentinelRoot); root != "" {
		candidate := filepath.Join(root, ManifoldFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		return candidate, fmt.Errorf("sentinel.json not found under %s or any parent of %s: %w", root, startDir, core.ErrNotFound)
	}

	return "", fmt.Errorf("sentinel.json not found under any parent of %s and %s is unset: %w", startDir, core.EnvSentinelRoot, core.ErrNotFound)
}

// Load reads the manifold document at s.path and reconstructs a
// *goal.Manifold plus the raw top-level fields this version of the schema
// does not model, so Save can write them back unchanged. A missing file
// yields (nil, nil, nil): callers should treat that as "no manifold yet."
func (s *ManifoldStore) Load() (*goal.Manifold, map[string]json.RawMessage, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	var doc ManifoldDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, err
	}
	for _, known := range []string{"schema_version", "intent", "goals", "invariants", "version_history", "handover_log"} {
		delete(raw, known)
	}

	m, err := rebuild(doc)
	if err != nil {
		return nil, nil, err
	}
	return m, raw, nil
}

// rebuild replays a ManifoldDocument into a live *goal.Manifold: goals are
// added in dependency order (a goal's DependsOn must already be present
// before goal.Manifold.AddGoal accepts it), then invariants, history, and
// the handover log are restored verbatim.
func rebuild(doc ManifoldDocument) (*goal.Manifold, error) {
	order, err := topoSort(doc.Goals)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]GoalDocument, len(doc.Goals))
	for _, gd := range doc.Goals {
		byID[gd.ID] = gd
	}

	m := goal.NewManifoldFromIntent(doc.Intent.Intent)
	for _, id := range order {
		gd := byID[id]
		g := &goal.Goal{
			ID:               gd.ID,
			Description:      gd.Description,
			SuccessCriteria:  gd.SuccessCriteria,
			Weight:           gd.Weight,
			ComplexityMean:   gd.ComplexityMean,
			ComplexityStdDev: gd.ComplexityStdDev,
			AntiDependsOn:    gd.AntiDependsOn,
			LockHolder:       gd.LockHolder,
			ParentID:         gd.ParentID,
			AtomicContract:   gd.AtomicContract,
			ValidationTests:  gd.ValidationTests,
			Metadata:         gd.Metadata,
			Status:           gd.Status,
			CreatedAt:        gd.CreatedAt,
			UpdatedAt:        gd.UpdatedAt,
		}
		if err := m.AddGoal(g, gd.DependsOn...); err != nil {
			return nil, fmt.Errorf("restoring goal %s: %w", gd.ID, err)
		}
	}

	for _, inv := range doc.Invariants {
		m.AddInvariant(goal.Invariant{
			ID:          inv.ID,
			Description: inv.Description,
			Condition:   inv.Condition,
			Severity:    inv.Severity,
		})
	}

	m.RestoreHistoryAndHandovers(doc.VersionHistory, doc.HandoverLog)
	return m, nil
}

// topoSort orders goals so every dependency precedes its dependents, using
// Kahn's algorithm; ties broken lexically by id for determinism. A cycle in
// the persisted DependsOn edges is a corrupt document.
func topoSort(goals []GoalDocument) ([]string, error) {
	indegree := make(map[string]int, len(goals))
	dependents := make(map[string][]string, len(goals))
	for _, g := range goals {
		if _, ok := indegree[g.ID]; !ok {
			indegree[g.ID] = 0
		}
		for _, dep := range g.DependsOn {
			indegree[g.ID]++
			dependents[dep] = append(dependents[dep], g.ID)
		}
	}

	var ready []string
	for id, deg := range indegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	var order []string
	for len(ready) > 0 {
		sort.Strings(ready)
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)
		next := append([]string(nil), dependents[id]...)
		sort.Strings(next)
		for _, dependent := range next {
			indegree[dependent]--
			if indegree[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
	}

	if len(order) != len(indegree) {
		return nil, fmt.Errorf("persisted goal dependencies contain a cycle: %w", core.ErrInvalidConfiguration)
	}
	return order, nil
}

// Save serializes m to s.path, merging in any preserved unknown top-level
// fields, and writes it atomically (temp file + fsync + rename), exactly
// the pattern learning.JSONFileStore uses for Knowledge Base persistence.
func (s *ManifoldStore) Save(m *goal.Manifold, preserved map[string]json.RawMessage) error {
	doc := export(m)

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	if len(preserved) > 0 {
		data, err = mergeUnknown(data, preserved)
		if err != nil {
			return err
		}
	}

	dir := filepath.Dir(s.path)
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".sentinel-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, s.path)
}

func export(m *goal.Manifold) ManifoldDocument {
	goals := m.Goals()
	dag := m.DAG()
	goalDocs := make([]GoalDocument, 0, len(goals))
	for _, g := range goals {
		goalDocs = append(goalDocs, GoalDocument{
			ID:               g.ID,
			Description:      g.Description,
			SuccessCriteria:  g.SuccessCriteria,
			Weight:           g.Weight,
			ComplexityMean:   g.ComplexityMean,
			ComplexityStdDev: g.ComplexityStdDev,
			AntiDependsOn:    g.AntiDependsOn,
			LockHolder:       g.LockHolder,
			ParentID:         g.ParentID,
			AtomicContract:   g.AtomicContract,
			ValidationTests:  g.ValidationTests,
			Metadata:         g.Metadata,
			Status:           g.Status,
			CreatedAt:        g.CreatedAt,
			UpdatedAt:        g.UpdatedAt,
			DependsOn:        dag.Dependencies(g.ID),
		})
	}

	invariants := m.Invariants()
	invDocs := make([]InvariantDocument, 0, len(invariants))
	for _, inv := range invariants {
		invDocs = append(invDocs, InvariantDocument{
			ID:          inv.ID,
			Description: inv.Description,
			Condition:   inv.Condition,
			Severity:    inv.Severity,
		})
	}

	return ManifoldDocument{
		SchemaVersion:  SchemaVersion,
		Intent:         IntentDocument{Intent: m.Intent()},
		Goals:          goalDocs,
		Invariants:     invDocs,
		VersionHistory: m.History(),
		HandoverLog:    m.HandoverLog(),
	}
}

// mergeUnknown re-parses the freshly marshaled document into a generic map,
// folds in every preserved key absent from it, and re-marshals — the
// mechanism that lets a newer schema's fields survive a round trip through
// this version of the code.
func mergeUnknown(data []byte, preserved map[string]json.RawMessage) ([]byte, error) {
	var out map[string]json.RawMessage
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	for k, v := range preserved {
		if _, exists := out[k]; !exists {
			out[k] = v
		}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
