package swarm

// Personality holds the six deterministic scalars that shape how an agent
// reasons and votes (spec.md §3). All but Authority are derived from the
// goal hash; Authority is a fixed per-type constant since it reflects the
// role's standing in the swarm, not the goal's content.
type Personality struct {
	Simplicity  float64
	Performance float64
	Innovation  float64
	Risk        float64
	Verbosity   float64
	Authority   float64
}

// authorityByType is the fixed per-type authority table: roles that own
// irreversible or security-critical decisions (SecurityAuditor,
// ManagerAgent) carry the most weight in AuthorityBased conflict
// resolution (spec.md §4.M).
var authorityByType = map[AgentType]float64{
	TypeManagerAgent:         1.0,
	TypeSecurityAuditor:      0.9,
	TypeAuthArchitect:        0.8,
	TypeDatabaseArchitect:    0.75,
	TypeDevOpsEngineer:       0.7,
	TypeAPICoder:             0.6,
	TypeJWTCoder:             0.6,
	TypePerformanceOptimizer: 0.55,
	TypeFrontendCoder:        0.5,
	TypeReviewAgent:          0.5,
	TypeTestWriter:           0.45,
	TypeDocWriter:            0.3,
}

func authorityFor(t AgentType) float64 {
	if a, ok := authorityByType[t]; ok {
		return a
	}
	return 0.5
}

// PersonalityFromGoal derives a Personality deterministically from the
// goal hash and agent type: five bytes of Blake3(goalHash || typeName),
// each folded into [0,1], give the five content-dependent scalars;
// Authority is the fixed per-type constant above (spec.md §3's "same
// (goal hash, type) ⇒ same personality").
func PersonalityFromGoal(goalHash []byte, agentType AgentType) Personality {
	id := DeterministicAgentID(goalHash, agentType, 0xFFFFFFFF) // distinct seed space from real agent ids
	return Personality{
		Simplicity:  byteToUnit(id[0]),
		Performance: byteToUnit(id[1]),
		Innovation:  byteToUnit(id[2]),
		Risk:        byteToUnit(id[3]),
		Verbosity:   byteToUnit(id[4]),
		Authority:   authorityFor(agentType),
	}
}

func byteToUnit(b byte) float64 {
	return float64(b) / 255.0
}

// VoteAlignmentScore computes the personality-weighted alignment term
// spec.md §4.J's voting rule uses: 0.5 + 0.3*(risk-0.5) + 0.2*(innovation-0.5).
func (p Personality) VoteAlignmentScore() float64 {
	return 0.5 + 0.3*(p.Risk-0.5) + 0.2*(p.Innovation-0.5)
}
