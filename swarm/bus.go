package swarm

import (
	"sync"
)

// MessageKind tags a Message's payload variant (spec.md §4.K).
type MessageKind string

const (
	MsgDirect        MessageKind = "direct"
	MsgBroadcast     MessageKind = "broadcast"
	MsgRequest       MessageKind = "request"
	MsgProposal      MessageKind = "proposal"
	MsgVote          MessageKind = "vote"
	MsgPatternShare  MessageKind = "pattern_share"
	MsgTaskCompleted MessageKind = "task_completed"
	MsgSystem        MessageKind = "system"
)

// Message is the single envelope type every transport on the bus carries.
// Only the fields relevant to Kind are populated; the rest are left zero.
type Message struct {
	Kind     MessageKind
	From     AgentID
	To       AgentID // MsgDirect only
	Proposal *Proposal
	Vote     *CastVote
	Output   *AgentOutput
	Pattern  interface{} // a learning.SuccessPattern or DeviationPattern, kept opaque to avoid an import cycle
	Payload  string

	// ReplyTo is set on an MsgRequest sent via RequestClarification: the
	// receiving agent's OnMessage sends its answer on this channel instead
	// of broadcasting, so the asker can block on a direct reply rather than
	// racing the bus. Never populated on any other Kind.
	ReplyTo chan string
}

// CastVote pairs a vote with the agent and proposal it was cast against,
// the unit the Communication Bus and Consensus exchange (spec.md §3).
type CastVote struct {
	ProposalID string
	Agent      AgentID
	Vote       Vote
}

const (
	// DefaultBroadcastCapacity is the bounded broadcast channel size every
	// subscriber shares (spec.md §4.K).
	DefaultBroadcastCapacity = 1000
	// DefaultDirectCapacity is the bounded per-agent direct channel size.
	DefaultDirectCapacity = 100
)

// Bus is the Communication Bus: one broadcast channel fanned out to every
// subscriber, plus a per-agent direct channel (spec.md §4.K). Broadcast
// delivery is best-effort — a slow subscriber may miss messages rather than
// stall the sender, per spec.md §5's lagged-receiver back-pressure policy.
type Bus struct {
	mu           sync.RWMutex
	subscribers  map[AgentID]chan Message
	direct       map[AgentID]chan Message
	broadcastCap int
	directCap    int
	closed       bool
}

// NewBus builds a Bus with the spec default capacities.
func NewBus() *Bus {
	return &Bus{
		subscribers:  make(map[AgentID]chan Message),
		direct:       make(map[AgentID]chan Message),
		broadcastCap: DefaultBroadcastCapacity,
		directCap:    DefaultDirectCapacity,
	}
}

// Subscribe registers id for broadcast delivery and returns its receive
// channel. Calling Subscribe again for the same id replaces its channel.
func (b *Bus) Subscribe(id AgentID) <-chan Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan Message, b.broadcastCap)
	b.subscribers[id] = ch
	return ch
}

// DirectChannel returns (creating if necessary) id's direct-message
// receive channel.
func (b *Bus) DirectChannel(id AgentID) <-chan Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch, ok := b.direct[id]
	if !ok {
		ch = make(chan Message, b.directCap)
		b.direct[id] = ch
	}
	return ch
}

// Broadcast best-effort delivers msg to every subscriber: a full channel is
// skipped rather than blocked on (the "lagged-receiver" tolerance spec.md
// §5 calls for with heartbeats and broadcasts).
func (b *Bus) Broadcast(msg Message) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- msg:
		default:
		}
	}
}

// SendDirect delivers msg to to's direct channel, returning ErrChannelClosed
// if the bus has been shut down or ErrChannelFull if the recipient's direct
// channel has no room (direct messages — votes in particular — must not be
// silently dropped the way broadcasts are).
func (b *Bus) SendDirect(to AgentID, msg Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrChannelClosed
	}
	ch, ok := b.direct[to]
	if !ok {
		ch = make(chan Message, b.directCap)
		b.direct[to] = ch
	}
	select {
	case ch <- msg:
		return nil
	default:
		return ErrChannelFull
	}
}

// Close shuts the bus down: further SendDirect calls fail, and every
// subscriber/direct channel is closed so agent run loops exit their range.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subscribers {
		close(ch)
	}
	for _, ch := range b.direct {
		close(ch)
	}
}
