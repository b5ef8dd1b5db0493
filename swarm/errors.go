package swarm

import (
	"errors"
	"fmt"
	"time"

	"github.com/itsneelabh/sentinel-swarm/core"
)

// Bus errors (spec.md §4.K).
var (
	ErrChannelClosed = errors.New("swarm: channel closed")
	ErrChannelFull   = errors.New("swarm: direct channel full")
)

// ConsensusError kinds (spec.md §7).
const (
	KindProposalNotFound = "proposal_not_found"
	KindNotOpenForVoting = "not_open_for_voting"
	KindBroadcastFailure = "broadcast_failure"
)

// ConsensusError wraps a consensus-protocol failure.
type ConsensusError struct{ *core.SwarmError }

func newConsensusError(op, kind, id string, err error) *ConsensusError {
	e := core.NewSwarmError(op, kind, err)
	e.ID = id
	return &ConsensusError{e}
}

// ConflictError kinds (spec.md §7).
const (
	KindNoAgentsInvolved    = "no_agents_involved"
	KindResolutionExhausted = "resolution_exhausted"
)

// ConflictError wraps a conflict-resolution failure.
type ConflictError struct{ *core.SwarmError }

func newConflictError(op, kind string, err error) *ConflictError {
	return &ConflictError{core.NewSwarmError(op, kind, err)}
}

// BreakerError kinds (spec.md §7).
const (
	KindBreakerOpen       = "open"
	KindHalfOpenExhausted = "half_open_exhausted"
)

// BreakerOpenError reports that a provider's circuit is open and names when
// the caller may retry.
type BreakerOpenError struct {
	Provider   string
	RetryAfter time.Duration
}

func (e *BreakerOpenError) Error() string {
	return fmt.Sprintf("circuit OPEN for %q, retry after %s", e.Provider, e.RetryAfter)
}

// HalfOpenExhaustedError reports that a half-open breaker has already
// admitted its configured probe quota.
type HalfOpenExhaustedError struct{ Provider string }

func (e *HalfOpenExhaustedError) Error() string {
	return fmt.Sprintf("circuit HALF-OPEN for %q has no probe slots left", e.Provider)
}
