package cognitive

// Mode is the Gate's own state machine, distinct from a Goal's Status:
// what the agent is currently doing, rather than what has been completed
// (spec.md §4.G: "Cognitive modes form a second state machine").
type Mode string

const (
	Planning   Mode = "planning"
	Executing  Mode = "executing"
	Validating Mode = "validating"
	Debugging  Mode = "debugging"
	Learning   Mode = "learning"
	Reflecting Mode = "reflecting"
)
