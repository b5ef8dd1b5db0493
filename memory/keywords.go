package memory

// stopWords are common function words excluded from concept extraction —
// spec.md §4.H: "words > 4 chars, not in a stop-word set".
var stopWords = map[string]bool{
	"about": true, "after": true, "again": true, "before": true, "being": true,
	"could": true, "every": true, "from": true, "have": true, "into": true,
	"other": true, "should": true, "their": true, "there": true, "these": true,
	"thing": true, "think": true, "those": true, "through": true, "under": true,
	"where": true, "which": true, "while": true, "with": true, "would": true,
}

// extractKeywords returns the lowercase tokens of text longer than 4
// characters that are not stop words, deduplicated.
func extractKeywords(text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, tok := range tokenize(text) {
		if len(tok) <= 4 || stopWords[tok] {
			continue
		}
		if !seen[tok] {
			seen[tok] = true
			out = append(out, tok)
		}
	}
	return out
}
