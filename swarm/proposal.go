package swarm

import "time"

// ActionKind tags a Proposal's concrete action variant (spec.md §3:
// "SelectLibrary, AdoptPattern, MergeChange, …").
type ActionKind string

const (
	ActionSelectLibrary   ActionKind = "select_library"
	ActionAdoptPattern    ActionKind = "adopt_pattern"
	ActionMergeChange     ActionKind = "merge_change"
	ActionResolveConflict ActionKind = "resolve_conflict"
)

// ProposedAction is the tagged-variant payload a Proposal carries.
type ProposedAction struct {
	Kind    ActionKind
	Subject string // library name, pattern id, file path, etc.
	Detail  string
}

// Vote is a single agent's response to a Proposal.
type Vote string

const (
	VoteApprove Vote = "approve"
	VoteReject  Vote = "reject"
	VoteAbstain Vote = "abstain"
)

// ProposalStatus is a Proposal's position in its lifecycle.
type ProposalStatus string

const (
	ProposalVoting   ProposalStatus = "voting"
	ProposalAccepted ProposalStatus = "accepted"
	ProposalRejected ProposalStatus = "rejected"
	ProposalTimeout  ProposalStatus = "timeout"
)

// Proposal is a single decision point submitted to Continuous Consensus
// (spec.md §3).
type Proposal struct {
	ID          string
	Title       string
	Description string
	Action      ProposedAction
	ProposerID  AgentID
	CreatedAt   time.Time
}

// ConsensusRecord is one completed-proposal entry in the consensus
// scheduler's audit history (spec.md §4.L).
type ConsensusRecord struct {
	Round        int
	ProposalID   string
	Title        string
	Status       ProposalStatus
	VoteCount    int
	ApproveCount int
	Timestamp    time.Time
}
