// Package cognitive implements the Cognitive Gate: the before_action/
// after_action pipeline every agent action passes through, backed by a
// belief network, a meta-cognitive state, and the Alignment Field
// (spec.md §4.G).
package cognitive

// Kind enumerates the concrete actions an agent can request the Gate
// approve. The set mirrors the handful of filesystem/test operations
// spec.md's worked examples exercise (§8's "Gate rejects unsafe action").
type Kind string

const (
	KindWriteFile  Kind = "write_file"
	KindDeleteFile Kind = "delete_file"
	KindRunTests   Kind = "run_tests"
	KindRunCommand Kind = "run_command"
	KindCallOracle Kind = "call_oracle"
)

// Action is a single candidate operation an agent wants to perform,
// submitted to the Gate before execution.
type Action struct {
	ID            string
	Kind          Kind
	Description   string
	GoalID        string // explicit goal attribution; empty means infer from Description
	ExpectedValue float64

	Path    string // write_file / delete_file
	Backup  bool   // delete_file: was a backup taken first
	Suite   string // run_tests
	Command string
	Args    []string
}

// IsIntrinsicallySafe applies the action-intrinsic safety predicate spec.md
// §4.G step 2 calls for: deleting one of the small set of paths a build
// cannot recover from (matched exactly, not by prefix) without first taking
// a backup is unsafe; every other action is safe.
func (a Action) IsIntrinsicallySafe() bool {
	if a.Kind != KindDeleteFile {
		return true
	}
	if a.Backup {
		return true
	}
	return !isProtectedPath(a.Path)
}

var protectedPaths = map[string]bool{
	"go.mod":       true,
	"go.sum":       true,
	"Cargo.toml":   true,
	"Cargo.lock":   true,
	"package.json": true,
}

func isProtectedPath(path string) bool {
	return protectedPaths[path]
}

// Result is the outcome of an executed action, fed to after_action.
type Result struct {
	ActionID        string
	Success         bool
	Output          string
	DurationSeconds float64
}
