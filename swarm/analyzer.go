package swarm

import (
	"sort"
	"strings"
)

// AnalysisResult is what the Goal Analyzer returns for a piece of goal
// text: its inferred domain, a [0,1] complexity estimate, a rough security
// sensitivity level, which keyword patterns fired, and the ordered set of
// agent types emergence requires (spec.md §4.I).
type AnalysisResult struct {
	Domain         string
	Complexity     float64
	SecurityLevel  string
	Patterns       []string
	RequiredAgents []AgentType
}

// keywordRule is one row of the table-driven classifier: if any of
// Keywords appears in the lowercased goal text, Types are added to the
// required agent set (in order, de-duplicated) and Patterns are recorded.
type keywordRule struct {
	Keywords []string
	Types    []AgentType
	Patterns []string
}

var keywordRules = []keywordRule{
	{
		Keywords: []string{"auth", "login", "jwt", "oauth", "password", "credential", "session", "token"},
		Types:    []AgentType{TypeAuthArchitect, TypeSecurityAuditor},
		Patterns: []string{"Authentication", "Security"},
	},
	{
		Keywords: []string{"api", "endpoint", "rest", "graphql", "http", "server", "backend"},
		Types:    []AgentType{TypeAPICoder},
	},
	{
		Keywords: []string{"frontend", "ui", "react", "vue", "angular", "component"},
		Types:    []AgentType{TypeFrontendCoder},
	},
	{
		Keywords: []string{"database", "db", "postgres", "mysql", "mongo", "redis", "sql", "schema"},
		Types:    []AgentType{TypeDatabaseArchitect},
	},
	{
		Keywords: []string{"test", "spec", "pytest", "jest", "unittest"},
		Types:    []AgentType{TypeTestWriter},
	},
	{
		Keywords: []string{"performance", "optimize", "cache", "slow", "bottleneck"},
		Types:    []AgentType{TypePerformanceOptimizer},
	},
	{
		Keywords: []string{"deploy", "docker", "kubernetes", "ci/cd", "pipeline", "serverless"},
		Types:    []AgentType{TypeDevOpsEngineer},
	},
}

// technicalTerms is the density table complexity() sums over; each hit
// counts once per occurrence, capped by the caller.
var technicalTerms = []string{
	"authentication", "authorization", "encryption", "distributed", "concurrent",
	"microservice", "kubernetes", "database", "algorithm", "architecture",
	"scalab", "async", "protocol", "middleware", "cache",
}

var actionVerbs = []string{
	"build", "implement", "create", "design", "refactor", "optimize",
	"migrate", "integrate", "deploy", "secure", "test", "fix",
}

const (
	emergenceManagerThreshold = 3
	reviewAgentThreshold      = 0.2
	docWriterThreshold        = 0.3
	secondTestWriterThreshold = 0.5
)

// Analyze is the deterministic classifier spec.md §4.I and §8 ("same
// agent list and complexity on repeated invocation") requires: identical
// text always yields an identical AnalysisResult.
func Analyze(goalText string) AnalysisResult {
	lower := strings.ToLower(goalText)

	var required []AgentType
	seen := make(map[AgentType]bool)
	add := func(t AgentType) {
		if !seen[t] {
			seen[t] = true
			required = append(required, t)
		}
	}

	var patterns []string
	patternSeen := make(map[string]bool)
	addPattern := func(p string) {
		if !patternSeen[p] {
			patternSeen[p] = true
			patterns = append(patterns, p)
		}
	}

	for _, rule := range keywordRules {
		if containsAny(lower, rule.Keywords) {
			for _, t := range rule.Types {
				add(t)
			}
			for _, p := range rule.Patterns {
				addPattern(p)
			}
		}
	}
	if strings.Contains(lower, "jwt") {
		add(TypeJWTCoder)
	}
	if strings.Contains(lower, "oauth") {
		addPattern("OAuth")
	}

	complexity := computeComplexity(lower)

	if complexity > reviewAgentThreshold {
		add(TypeReviewAgent)
	}
	if complexity > docWriterThreshold {
		add(TypeDocWriter)
	}
	if complexity > secondTestWriterThreshold && !seen[TypeTestWriter] {
		add(TypeTestWriter)
	}

	if len(required) > emergenceManagerThreshold {
		// ManagerAgent goes first: it coordinates everyone else.
		required = append([]AgentType{TypeManagerAgent}, required...)
	}

	domain := classifyDomain(lower)
	security := securityLevel(lower, patternSeen)

	return AnalysisResult{
		Domain:         domain,
		Complexity:     complexity,
		SecurityLevel:  security,
		Patterns:       patterns,
		RequiredAgents: required,
	}
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

// computeComplexity is a weighted, capped sum of word count, technical-term
// density, conjunction count, and action-verb count, producing a value in
// [0,1] (spec.md §4.I). Caps are calibrated for one-to-two-sentence goal
// statements: a 16-word goal mentioning one technical term, two clauses,
// and one action verb already sits in the mid range.
func computeComplexity(lower string) float64 {
	words := strings.Fields(lower)
	wordScore := capRatio(float64(len(words)), 16)

	techHits := 0
	for _, term := range technicalTerms {
		techHits += strings.Count(lower, term)
	}
	techScore := capRatio(float64(techHits), 3)

	conjunctions := strings.Count(lower, " and ") + strings.Count(lower, " with ") + strings.Count(lower, " plus ")
	conjScore := capRatio(float64(conjunctions), 3)

	verbHits := 0
	for _, v := range actionVerbs {
		verbHits += strings.Count(lower, v)
	}
	verbScore := capRatio(float64(verbHits), 3)

	complexity := 0.35*wordScore + 0.3*techScore + 0.15*conjScore + 0.2*verbScore
	if complexity > 1 {
		complexity = 1
	}
	return complexity
}

func capRatio(value, max float64) float64 {
	if max <= 0 {
		return 0
	}
	r := value / max
	if r > 1 {
		return 1
	}
	return r
}

func classifyDomain(lower string) string {
	switch {
	case strings.Contains(lower, "auth") || strings.Contains(lower, "jwt") || strings.Contains(lower, "oauth"):
		return "security"
	case strings.Contains(lower, "database") || strings.Contains(lower, "sql"):
		return "data"
	case strings.Contains(lower, "frontend") || strings.Contains(lower, "ui"):
		return "frontend"
	case strings.Contains(lower, "deploy") || strings.Contains(lower, "kubernetes") || strings.Contains(lower, "docker"):
		return "infrastructure"
	case strings.Contains(lower, "api") || strings.Contains(lower, "endpoint"):
		return "backend"
	default:
		return "general"
	}
}

func securityLevel(lower string, patterns map[string]bool) string {
	switch {
	case patterns["Security"] && (strings.Contains(lower, "payment") || strings.Contains(lower, "pii")):
		return "high"
	case patterns["Security"]:
		return "medium"
	default:
		return "low"
	}
}

// SortedAgentTypes returns a copy of types sorted lexically, useful for
// deterministic arbiter-id derivation in the Conflict Engine.
func SortedAgentTypes(types []AgentType) []AgentType {
	out := append([]AgentType(nil), types...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
