package swarm

import (
	"context"
	"sync"
	"time"
)

// ConsensusConfig tunes the scheduler (spec.md §4.L).
type ConsensusConfig struct {
	TickPeriod      time.Duration
	QuorumThreshold float64
	VoteTimeout     time.Duration
	HeartbeatEvery  int // rounds
}

// NewConsensusConfig returns the spec defaults: a 100ms tick, 0.75 quorum,
// 2s vote timeout, heartbeat every 10 rounds.
func NewConsensusConfig() ConsensusConfig {
	return ConsensusConfig{
		TickPeriod:      100 * time.Millisecond,
		QuorumThreshold: 0.75,
		VoteTimeout:     2 * time.Second,
		HeartbeatEvery:  10,
	}
}

// proposalState is the scheduler's internal bookkeeping for one proposal:
// the proposal itself, every vote cast (in arrival order), and its current
// status.
type proposalState struct {
	proposal   Proposal
	votes      map[AgentID]Vote
	voteOrder  []AgentID
	proposedAt time.Time
	status     ProposalStatus
}

// Consensus is the Continuous Consensus engine: a fixed-period scheduler
// that advances pending proposals, applies the quorum-by-ratio acceptance
// rule on every vote, times out stale proposals without discarding their
// cast votes, and appends a ConsensusRecord to history as each proposal
// settles (spec.md §4.L).
type Consensus struct {
	Config ConsensusConfig
	Bus    *Bus

	mu        sync.Mutex
	pending   map[string]*proposalState
	completed map[string]*proposalState
	round     int
	history   []ConsensusRecord

	heartbeats int
}

// NewConsensus builds a Consensus engine wired to bus, using cfg (the spec
// defaults if cfg is the zero value).
func NewConsensus(cfg ConsensusConfig, bus *Bus) *Consensus {
	if cfg.TickPeriod == 0 {
		cfg = NewConsensusConfig()
	}
	return &Consensus{
		Config:    cfg,
		Bus:       bus,
		pending:   make(map[string]*proposalState),
		completed: make(map[string]*proposalState),
	}
}

// Propose registers p as Voting and broadcasts it to the swarm.
func (c *Consensus) Propose(p Proposal) {
	c.mu.Lock()
	c.pending[p.ID] = &proposalState{
		proposal:   p,
		votes:      make(map[AgentID]Vote),
		proposedAt: time.Now(),
		status:     ProposalVoting,
	}
	c.mu.Unlock()

	if c.Bus != nil {
		c.Bus.Broadcast(Message{Kind: MsgProposal, From: p.ProposerID, Proposal: &p})
	}
}

// SubmitVote records agent's vote against proposalID, broadcasts it, and
// checks whether the proposal has now reached quorum. Votes are applied in
// arrival order and, once a proposal is Accepted, its vote map is frozen —
// later calls for the same proposal fail with NotOpenForVoting (spec.md §5,
// §8).
func (c *Consensus) SubmitVote(proposalID string, agent AgentID, vote Vote) error {
	c.mu.Lock()
	ps, ok := c.pending[proposalID]
	if !ok {
		c.mu.Unlock()
		return newConsensusError("SubmitVote", KindProposalNotFound, proposalID, errNotFoundProposal)
	}
	if ps.status != ProposalVoting {
		c.mu.Unlock()
		return newConsensusError("SubmitVote", KindNotOpenForVoting, proposalID, errNotOpenForVoting)
	}
	if _, already := ps.votes[agent]; !already {
		ps.voteOrder = append(ps.voteOrder, agent)
	}
	ps.votes[agent] = vote

	accepted := c.checkQuorumLocked(ps)
	c.mu.Unlock()

	if c.Bus != nil {
		cv := CastVote{ProposalID: proposalID, Agent: agent, Vote: vote}
		c.Bus.Broadcast(Message{Kind: MsgVote, From: agent, Vote: &cv})
	}
	if accepted {
		c.settle(proposalID, ProposalAccepted)
	}
	return nil
}

// checkQuorumLocked implements spec.md §4.L's acceptance rule: once votes
// have been cast, if approvals/total >= QuorumThreshold the proposal
// accepts — no minimum vote count is enforced (spec.md §4.L edge cases,
// §9's recorded Open Question decision to follow the ratio-only behavior
// the tests demonstrate). Caller must hold c.mu.
func (c *Consensus) checkQuorumLocked(ps *proposalState) bool {
	if len(ps.votes) == 0 {
		return false
	}
	approvals := 0
	for _, v := range ps.votes {
		if v == VoteApprove {
			approvals++
		}
	}
	ratio := float64(approvals) / float64(len(ps.votes))
	return ratio >= c.Config.QuorumThreshold
}

func (c *Consensus) settle(proposalID string, status ProposalStatus) {
	c.mu.Lock()
	ps, ok := c.pending[proposalID]
	if !ok || ps.status != ProposalVoting {
		c.mu.Unlock()
		return
	}
	ps.status = status
	delete(c.pending, proposalID)
	c.completed[proposalID] = ps

	approvals := 0
	for _, v := range ps.votes {
		if v == VoteApprove {
			approvals++
		}
	}
	record := ConsensusRecord{
		Round:        c.round,
		ProposalID:   proposalID,
		Title:        ps.proposal.Title,
		Status:       status,
		VoteCount:    len(ps.votes),
		ApproveCount: approvals,
		Timestamp:    time.Now(),
	}
	c.history = append(c.history, record)
	c.mu.Unlock()
}

// Tick advances one consensus round: increments the round counter, times
// out any Voting proposal past VoteTimeout (without touching its already-
// cast votes), and emits a heartbeat broadcast every HeartbeatEvery rounds
// (spec.md §4.L).
func (c *Consensus) Tick() {
	c.mu.Lock()
	c.round++
	now := time.Now()
	var timedOut []string
	for id, ps := range c.pending {
		if ps.status == ProposalVoting && now.Sub(ps.proposedAt) >= c.Config.VoteTimeout {
			timedOut = append(timedOut, id)
		}
	}
	c.heartbeats++
	emitHeartbeat := c.heartbeats >= c.Config.HeartbeatEvery
	if emitHeartbeat {
		c.heartbeats = 0
	}
	c.mu.Unlock()

	for _, id := range timedOut {
		c.settle(id, ProposalTimeout)
	}
	if emitHeartbeat && c.Bus != nil {
		c.Bus.Broadcast(Message{Kind: MsgSystem, Payload: "heartbeat"})
	}
}

// Run drives Tick on Config.TickPeriod until ctx is cancelled — the single
// long-lived consensus-tick task spec.md §5 describes.
func (c *Consensus) Run(ctx context.Context) {
	ticker := time.NewTicker(c.Config.TickPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Tick()
		}
	}
}

// Status returns proposalID's current status and whether it is known at
// all.
func (c *Consensus) Status(proposalID string) (ProposalStatus, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ps, ok := c.pending[proposalID]; ok {
		return ps.status, true
	}
	if ps, ok := c.completed[proposalID]; ok {
		return ps.status, true
	}
	return "", false
}

// Votes returns a copy of every vote cast for proposalID in arrival order
// (used by tests and by audit tooling to confirm final votes survive a
// timeout intact).
func (c *Consensus) Votes(proposalID string) []CastVote {
	c.mu.Lock()
	defer c.mu.Unlock()
	ps, ok := c.pending[proposalID]
	if !ok {
		ps, ok = c.completed[proposalID]
		if !ok {
			return nil
		}
	}
	out := make([]CastVote, 0, len(ps.voteOrder))
	for _, agent := range ps.voteOrder {
		out = append(out, CastVote{ProposalID: proposalID, Agent: agent, Vote: ps.votes[agent]})
	}
	return out
}

// History returns every settled ConsensusRecord in settlement order.
func (c *Consensus) History() []ConsensusRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ConsensusRecord(nil), c.history...)
}

// Round returns the current tick count.
func (c *Consensus) Round() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.round
}

var errNotFoundProposal = consensusNotFoundErr{}
var errNotOpenForVoting = consensusNotOpenErr{}

type consensusNotFoundErr struct{}

func (consensusNotFoundErr) Error() string { return "proposal not found" }

type consensusNotOpenErr struct{}

func (consensusNotOpenErr) Error() string { return "proposal not open for voting" }
