// Package swarm implements deterministic agent emergence, personality
// derivation, the communication bus, continuous consensus, conflict
// detection and synthesis, predictive prefetch, load balancing, and the
// circuit-breaker-protected oracle calls that together make up the Swarm
// Engine (spec.md §4.I-§4.P).
package swarm

import (
	"encoding/binary"
	"encoding/hex"

	"lukechampine.com/blake3"
)

// AgentType names one of the deterministic specialist roles the Goal
// Analyzer can emit (spec.md §4.I).
type AgentType string

const (
	TypeAuthArchitect        AgentType = "AuthArchitect"
	TypeSecurityAuditor      AgentType = "SecurityAuditor"
	TypeJWTCoder             AgentType = "JWTCoder"
	TypeAPICoder             AgentType = "APICoder"
	TypeFrontendCoder        AgentType = "FrontendCoder"
	TypeDatabaseArchitect    AgentType = "DatabaseArchitect"
	TypeTestWriter           AgentType = "TestWriter"
	TypePerformanceOptimizer AgentType = "PerformanceOptimizer"
	TypeDevOpsEngineer       AgentType = "DevOpsEngineer"
	TypeReviewAgent          AgentType = "ReviewAgent"
	TypeDocWriter            AgentType = "DocWriter"
	TypeManagerAgent         AgentType = "ManagerAgent"
)

// AgentID is the 16-byte identifier spec.md §3 describes, constructed
// either deterministically from a goal hash plus type and index, or
// randomly for ad hoc agents (arbiters spawned by the Conflict Engine use
// the deterministic constructor over a sorted-participant seed instead).
type AgentID [16]byte

// DeterministicAgentID derives an id as the first 16 bytes of
// Blake3(goalHash || typeName || index-LE32), so the same (goal hash, type,
// index) always yields the same id (spec.md §3, §8's "pure function"
// property).
func DeterministicAgentID(goalHash []byte, agentType AgentType, index uint32) AgentID {
	h := blake3.New(32, nil)
	h.Write(goalHash)
	h.Write([]byte(agentType))
	var idx [4]byte
	binary.LittleEndian.PutUint32(idx[:], index)
	h.Write(idx[:])
	sum := h.Sum(nil)
	var id AgentID
	copy(id[:], sum[:16])
	return id
}

// RandomAgentID wraps an externally-supplied 16 random bytes (the caller is
// expected to have sourced them from crypto/rand); used for agents spawned
// outside the deterministic emergence path.
func RandomAgentID(b [16]byte) AgentID { return AgentID(b) }

func (id AgentID) String() string { return hex.EncodeToString(id[:]) }

// GoalHash is the Blake3 digest of a goal's text, the seed every
// deterministic id and personality in this package derives from.
func GoalHash(goalText string) []byte {
	h := blake3.Sum256([]byte(goalText))
	return h[:]
}

// SwarmTask is one unit of work handed to an agent (spec.md §3).
type SwarmTask struct {
	ID           string
	Name         string
	Description  string
	RequiredType AgentType
	Dependencies []string
	Priority     float64
}
