package learning

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"lukechampine.com/blake3"

	"github.com/itsneelabh/sentinel-swarm/cognitive"
)

// AlignmentThreshold is the minimum actual alignment a recorded action must
// have reached to be eligible for pattern mining (spec.md §4.Q).
const AlignmentThreshold = 80.0

// MaxSequenceLength bounds how long a mined subsequence may be.
const MaxSequenceLength = 5

// MinSupport is the minimum number of occurrences a subsequence must reach
// across goals before it is retained as a pattern.
const MinSupport = 3

// TraceEntry is one mined-eligible action: its goal, its kind, and when it
// completed. Decoupled from cognitive.Decision so this package can shape the
// input however a caller already has it (live Gate trace, or a persisted
// mission log).
type TraceEntry struct {
	GoalID    string
	GoalType  string
	Kind      string
	Alignment float64
	Timestamp int64 // unix nanos; caller-supplied so mining stays deterministic and test-friendly
}

// FromDecisions filters a Cognitive Gate's decision log down to the
// high-alignment, goal-attributed entries mining operates over. Decisions
// with no recorded outcome, an unsuccessful outcome, no goal attribution, or
// alignment at or below AlignmentThreshold are dropped.
func FromDecisions(decisions []*cognitive.Decision, goalType func(goalID string) string) []TraceEntry {
	var out []TraceEntry
	for _, d := range decisions {
		if d.Outcome == nil || !d.Outcome.Success {
			continue
		}
		if d.Outcome.ActualAlignment <= AlignmentThreshold {
			continue
		}
		if len(d.Rationale.GoalIDs) == 0 {
			continue
		}
		for _, gid := range d.Rationale.GoalIDs {
			gt := ""
			if goalType != nil {
				gt = goalType(gid)
			}
			out = append(out, TraceEntry{
				GoalID:    gid,
				GoalType:  gt,
				Kind:      string(d.Action.Kind),
				Alignment: d.Outcome.ActualAlignment,
				Timestamp: d.CreatedAt.UnixNano(),
			})
		}
	}
	return out
}

// Miner extracts SuccessPattern candidates from a set of high-alignment
// action traces: group by goal, sort by time, count subsequences up to
// MaxSequenceLength, retain those meeting MinSupport (spec.md §4.Q).
type Miner struct{}

// NewMiner builds a Miner. It carries no state; every call to Mine is pure.
func NewMiner() *Miner { return &Miner{} }

// Mine groups entries by goal id, extracts the ordered action-kind sequence
// per goal, counts every contiguous subsequence up to MaxSequenceLength
// across all goals, and emits a SuccessPattern for each subsequence whose
// support reaches MinSupport.
func (m *Miner) Mine(entries []TraceEntry) []SuccessPattern {
	byGoal := make(map[string][]TraceEntry)
	for _, e := range entries {
		byGoal[e.GoalID] = append(byGoal[e.GoalID], e)
	}

	type occurrence struct {
		support    int
		successSum float64
		goalTypes  map[string]bool
	}
	counts := make(map[string]*occurrence)
	order := make([]string, 0)

	for _, goalEntries := range byGoal {
		sort.Slice(goalEntries, func(i, j int) bool { return goalEntries[i].Timestamp < goalEntries[j].Timestamp })
		kinds := make([]string, len(goalEntries))
		for i, e := range goalEntries {
			kinds[i] = e.Kind
		}
		for length := 1; length <= MaxSequenceLength && length <= len(kinds); length++ {
			for start := 0; start+length <= len(kinds); start++ {
				seq := kinds[start : start+length]
				key := sequenceKey(seq)
				occ, ok := counts[key]
				if !ok {
					occ = &occurrence{goalTypes: make(map[string]bool)}
					counts[key] = occ
					order = append(order, key)
				}
				occ.support++
				avg := averageAlignment(goalEntries[start : start+length])
				occ.successSum += avg / 100.0
				if gt := goalEntries[start].GoalType; gt != "" {
					occ.goalTypes[gt] = true
				}
			}
		}
	}

	var patterns []SuccessPattern
	for _, key := range order {
		occ := counts[key]
		if occ.support < MinSupport {
			continue
		}
		seq := splitSequenceKey(key)
		goalTypes := make([]string, 0, len(occ.goalTypes))
		for gt := range occ.goalTypes {
			goalTypes = append(goalTypes, gt)
		}
		sort.Strings(goalTypes)
		patterns = append(patterns, SuccessPattern{
			ID:                  patternID(seq, goalTypes),
			Name:                fmt.Sprintf("%d-step sequence", len(seq)),
			Description:         fmt.Sprintf("observed action sequence: %v", seq),
			ActionSequence:      seq,
			ApplicableGoalTypes: goalTypes,
			SuccessRate:         occ.successSum / float64(occ.support),
			Support:             occ.support,
			Confidence:          confidenceFor(occ.support),
		})
	}
	return patterns
}

func averageAlignment(entries []TraceEntry) float64 {
	sum := 0.0
	for _, e := range entries {
		sum += e.Alignment
	}
	return sum / float64(len(entries))
}

// confidenceFor grows linearly from 0.5 at MinSupport by 0.1 per extra
// supporting trace, capped at 0.95.
func confidenceFor(support int) float64 {
	c := 0.5 + 0.1*float64(support-MinSupport)
	if c > 0.95 {
		c = 0.95
	}
	return c
}

// patternID derives a stable id from the action sequence and applicable
// goal types, so mining the same corpus twice yields the same pattern ids
// and store_pattern's merge-by-id can find the existing entry.
func patternID(seq, goalTypes []string) string {
	h := blake3.New(16, nil)
	h.Write([]byte(strings.Join(seq, "|")))
	h.Write([]byte("::"))
	h.Write([]byte(strings.Join(goalTypes, "|")))
	return hex.EncodeToString(h.Sum(nil))
}

// DeviationEvent is a single recorded instance of a mission drifting off
// its goals: the severity the Gate assigned and the signature of
// project-state/action conditions present at the time (spec.md §4.Q:
// "Deviation patterns are extracted from deviation events with severity
// and context signatures").
type DeviationEvent struct {
	Severity  string
	Signature []string
}

// ExtractDeviationPatterns groups deviation events by (severity, sorted
// signature) and emits one DeviationPattern per group, counting
// occurrences.
func ExtractDeviationPatterns(events []DeviationEvent) []DeviationPattern {
	type group struct {
		severity  string
		signature []string
		count     int
	}
	groups := make(map[string]*group)
	order := make([]string, 0)

	for _, e := range events {
		sig := append([]string(nil), e.Signature...)
		sort.Strings(sig)
		key := e.Severity + "::" + sequenceKey(sig)
		g, ok := groups[key]
		if !ok {
			g = &group{severity: e.Severity, signature: sig}
			groups[key] = g
			order = append(order, key)
		}
		g.count++
	}

	patterns := make([]DeviationPattern, 0, len(order))
	for _, key := range order {
		g := groups[key]
		patterns = append(patterns, DeviationPattern{
			ID:          deviationID(g.severity, g.signature),
			Description: fmt.Sprintf("%s deviation with signature %v", g.severity, g.signature),
			Severity:    g.severity,
			Signature:   g.signature,
			Occurrences: g.count,
		})
	}
	return patterns
}

func deviationID(severity string, signature []string) string {
	h := blake3.New(16, nil)
	h.Write([]byte(severity))
	h.Write([]byte("::"))
	h.Write([]byte(strings.Join(signature, "|")))
	return hex.EncodeToString(h.Sum(nil))
}

func sequenceKey(seq []string) string {
	key := ""
	for i, s := range seq {
		if i > 0 {
			key += "|"
		}
		key += s
	}
	return key
}

func splitSequenceKey(key string) []string {
	var out []string
	cur := ""
	for _, r := range key {
		if r == '|' {
			out = append(out, cur)
			cur = ""
			continue
		}
		cur += string(r)
	}
	out = append(out, cur)
	return out
}
