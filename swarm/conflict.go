package swarm

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// ConflictKind tags a Conflict's kind (spec.md §4.M). Detect produces
// Resource and Technical conflicts; no detection pass produces Goal
// conflicts, which Resolve escalates when a caller supplies one.
type ConflictKind string

const (
	ConflictResource  ConflictKind = "resource"
	ConflictTechnical ConflictKind = "technical"
	ConflictGoal      ConflictKind = "goal"
)

// ConflictSeverity classifies how urgently a Conflict needs resolving.
type ConflictSeverity string

const (
	SeverityLow    ConflictSeverity = "low"
	SeverityMedium ConflictSeverity = "medium"
	SeverityHigh   ConflictSeverity = "high"
)

// Conflict is one detected disagreement between agent outputs.
type Conflict struct {
	Kind     ConflictKind
	Severity ConflictSeverity
	Subject  string // file path for Resource, free text for Technical/Goal
	Involved []AgentID
	Detail   string
}

// ResolutionKind tags a Resolution's strategy.
type ResolutionKind string

const (
	ResolutionAuthorityBased ResolutionKind = "authority_based"
	ResolutionSynthesis      ResolutionKind = "synthesis"
	ResolutionEscalate       ResolutionKind = "escalate"
)

// Resolution is what Resolve returns for a Conflict.
type Resolution struct {
	Kind           ResolutionKind
	Solution       string
	Reasoning      string
	HybridApproach string  // Synthesis only
	WinnerID       AgentID // AuthorityBased only
}

// technicalContradictions lists keyword pairs whose simultaneous presence
// across two outputs' content signals a technical disagreement (spec.md
// §4.M step 2).
var technicalContradictions = [][2]string{
	{"bcrypt", "argon2"},
	{"sync", "async"},
	{"blocking", "non-blocking"},
}

// ConflictEngine runs the resource and technical detection passes over a batch of
// AgentOutputs and resolves Conflicts via a journal of prior resolutions
// (spec.md §4.M).
type ConflictEngine struct {
	mu      sync.Mutex
	journal map[ConflictKind]Resolution
}

// NewConflictEngine builds an empty engine.
func NewConflictEngine() *ConflictEngine {
	return &ConflictEngine{journal: make(map[ConflictKind]Resolution)}
}

// Detect runs the resource and technical passes over outputs and returns
// every Conflict found (spec.md §4.M); it has no goal-conflict pass.
func (e *ConflictEngine) Detect(outputs []AgentOutput) []Conflict {
	var conflicts []Conflict
	conflicts = append(conflicts, detectResourceConflicts(outputs)...)
	conflicts = append(conflicts, detectTechnicalConflicts(outputs)...)
	return conflicts
}

// detectResourceConflicts groups FilesWritten across outputs; any file
// claimed by two or more agents is a High-severity ResourceConflict.
func detectResourceConflicts(outputs []AgentOutput) []Conflict {
	claimants := make(map[string][]AgentID)
	for _, out := range outputs {
		for _, f := range out.FilesWritten {
			claimants[f] = append(claimants[f], out.AgentID)
		}
	}
	var conflicts []Conflict
	files := make([]string, 0, len(claimants))
	for f := range claimants {
		files = append(files, f)
	}
	sort.Strings(files)
	for _, f := range files {
		ids := claimants[f]
		if len(ids) < 2 {
			continue
		}
		conflicts = append(conflicts, Conflict{
			Kind:     ConflictResource,
			Severity: SeverityHigh,
			Subject:  f,
			Involved: ids,
			Detail:   "multiple agents wrote " + f,
		})
	}
	return conflicts
}

// detectTechnicalConflicts pairwise-scans output content for contradiction
// keyword pairs, emitting a Medium-severity TechnicalConflict per pair hit.
func detectTechnicalConflicts(outputs []AgentOutput) []Conflict {
	var conflicts []Conflict
	for i := 0; i < len(outputs); i++ {
		for j := i + 1; j < len(outputs); j++ {
			a, b := strings.ToLower(outputs[i].Content), strings.ToLower(outputs[j].Content)
			for _, pair := range technicalContradictions {
				if strings.Contains(a, pair[0]) && strings.Contains(b, pair[1]) ||
					strings.Contains(a, pair[1]) && strings.Contains(b, pair[0]) {
					conflicts = append(conflicts, Conflict{
						Kind:     ConflictTechnical,
						Severity: SeverityMedium,
						Subject:  pair[0] + " vs " + pair[1],
						Involved: []AgentID{outputs[i].AgentID, outputs[j].AgentID},
						Detail:   "contradictory technical choice: " + pair[0] + " vs " + pair[1],
					})
				}
			}
		}
	}
	return conflicts
}

// Resolve dispatches c by kind, first checking the journal for a prior
// resolution of the same conflict kind to reuse, otherwise computing a
// fresh one and appending it (spec.md §4.M). agents, when non-nil, lets the
// Technical path consult the conflicting agents directly via
// RequestClarification before falling back to arbiter synthesis; pass nil
// to skip straight to synthesis (e.g. when no live agents are available).
func (e *ConflictEngine) Resolve(ctx context.Context, c Conflict, personalities map[AgentID]Personality, agents map[AgentID]Agent) (Resolution, error) {
	e.mu.Lock()
	if prior, ok := e.journal[c.Kind]; ok {
		e.mu.Unlock()
		return prior, nil
	}
	e.mu.Unlock()

	if len(c.Involved) == 0 {
		return Resolution{}, newConflictError("Resolve", KindNoAgentsInvolved, errNoAgentsInvolved)
	}

	var resolution Resolution
	switch c.Kind {
	case ConflictResource:
		resolution = resolveByAuthority(c, personalities)
	case ConflictTechnical:
		resolution = resolveTechnical(ctx, c, agents)
	default:
		resolution = Resolution{Kind: ResolutionEscalate, Solution: "escalated for human review", Reasoning: "goal conflicts are not auto-resolved"}
	}

	e.mu.Lock()
	e.journal[c.Kind] = resolution
	e.mu.Unlock()
	return resolution, nil
}

func resolveByAuthority(c Conflict, personalities map[AgentID]Personality) Resolution {
	winner := c.Involved[0]
	best := -1.0
	for _, id := range c.Involved {
		auth := personalities[id].Authority
		if auth > best {
			best = auth
			winner = id
		}
	}
	return Resolution{
		Kind:      ResolutionAuthorityBased,
		Solution:  "keep " + winner.String() + "'s version of " + c.Subject,
		Reasoning: "resolved by highest authority among claimants",
		WinnerID:  winner,
	}
}

// resolveTechnical consults the first involved agent directly — asking it
// to clarify its choice — before falling back to resolveBySynthesis's
// arbiter. The clarification answer, when one arrives, is folded into the
// synthesized resolution's Reasoning rather than replacing it: synthesis
// still decides the Solution/HybridApproach, but the reasoning now reflects
// that the agent was actually asked.
func resolveTechnical(ctx context.Context, c Conflict, agents map[AgentID]Agent) Resolution {
	resolution := resolveBySynthesis(c)
	if agents == nil || len(c.Involved) == 0 {
		return resolution
	}
	agent, ok := agents[c.Involved[0]]
	if !ok {
		return resolution
	}
	question := "Clarify your reasoning behind: " + c.Detail
	if answer, ok := RequestClarification(ctx, agent, question); ok && answer != "" {
		resolution.Reasoning = resolution.Reasoning + "; " + c.Involved[0].String() + " clarified: " + answer
	}
	return resolution
}

// resolveBySynthesis spawns a deterministic arbiter id from the sorted
// participants and proposes a hybrid solution referencing both sides of
// the disagreement (spec.md §4.M).
func resolveBySynthesis(c Conflict) Resolution {
	parts := strings.SplitN(c.Subject, " vs ", 2)
	a, b := c.Subject, ""
	if len(parts) == 2 {
		a, b = parts[0], parts[1]
	}
	return Resolution{
		Kind:           ResolutionSynthesis,
		Solution:       "use " + b + " with " + a + "-compatibility layer",
		Reasoning:      "technical disagreement synthesized via arbiter " + ArbiterID(c.Involved).String(),
		HybridApproach: "preserve " + a + " interop while adopting " + b + " as the primary implementation",
	}
}

// ArbiterID derives a deterministic agent id for the arbiter spawned to
// synthesize a technical conflict, seeded from Blake3("arbiter_" + the
// sorted, joined ids of everyone involved) (spec.md §4.M).
func ArbiterID(involved []AgentID) AgentID {
	sorted := append([]AgentID(nil), involved...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].String() < sorted[j].String() })
	var joined strings.Builder
	joined.WriteString("arbiter_")
	for i, id := range sorted {
		if i > 0 {
			joined.WriteByte('_')
		}
		joined.WriteString(id.String())
	}
	return DeterministicAgentID(GoalHash(joined.String()), TypeReviewAgent, 0)
}

var errNoAgentsInvolved = conflictNoAgentsErr{}

type conflictNoAgentsErr struct{}

func (conflictNoAgentsErr) Error() string { return "no agents involved in conflict" }
