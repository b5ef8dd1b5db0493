package swarm

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/itsneelabh/sentinel-swarm/core"
	"github.com/itsneelabh/sentinel-swarm/memory"
)

// ArtifactFile is one file an agent's oracle response produced.
type ArtifactFile struct {
	Path    string
	Content string
}

// AgentOutput is what an Agent's run() produces, stored in memory and
// broadcast as a TaskCompleted message (spec.md §4.J).
type AgentOutput struct {
	AgentID            AgentID
	AgentType          AgentType
	TaskID             string
	Content            string
	FilesWritten       []string
	PatternsShared     []string
	ExecutionTimeMs    int64
	ConsensusApprovals int
}

// Agent is the narrow polymorphic contract spec.md §4.J and §9 describe: id/
// type/personality access, a run future, and a message-handling future — no
// deeper inheritance, just this one interface every concrete agent
// satisfies uniformly for the Coordinator.
type Agent interface {
	ID() AgentID
	Type() AgentType
	Personality() Personality
	Run(ctx context.Context, task SwarmTask) (AgentOutput, error)
	OnMessage(ctx context.Context, msg Message) error
	Vote(ctx context.Context, p Proposal) Vote
}

// artifactMarker delimits one file block in an oracle response:
//
//	---FILE: path/to/file.go---
//	...content...
//	---END---
var artifactMarker = regexp.MustCompile(`(?s)---FILE:\s*(\S+)\s*---\n(.*?)\n---END---`)

// ParseArtifacts extracts every FILE-delimited block from an oracle
// response's raw content (spec.md §4.J's "lightweight marker convention").
func ParseArtifacts(content string) []ArtifactFile {
	matches := artifactMarker.FindAllStringSubmatch(content, -1)
	out := make([]ArtifactFile, 0, len(matches))
	for _, m := range matches {
		out = append(out, ArtifactFile{Path: m[1], Content: m[2]})
	}
	return out
}

// WorkerAgent is the concrete Agent every specialist and the ManagerAgent
// share: it composes a system prompt from its personality and type,
// submits it and the task through an oracle client guarded by a breaker,
// parses artifacts from the response, records the AgentOutput in shared
// memory, and broadcasts TaskCompleted (spec.md §4.J, §4.P).
type WorkerAgent struct {
	id          AgentID
	agentType   AgentType
	personality Personality

	Memory  *memory.Manifold
	Bus     *Bus
	Breaker *Breaker
	Oracle  core.AIClient
	Logger  core.Logger

	receive <-chan Message
}

// NewWorkerAgent builds a WorkerAgent sharing the given memory, bus,
// breaker, and oracle client, subscribed to its own direct channel.
func NewWorkerAgent(id AgentID, agentType AgentType, personality Personality, mem *memory.Manifold, bus *Bus, breaker *Breaker, oracle core.AIClient, logger core.Logger) *WorkerAgent {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	a := &WorkerAgent{
		id: id, agentType: agentType, personality: personality,
		Memory: mem, Bus: bus, Breaker: breaker, Oracle: oracle, Logger: logger,
	}
	if bus != nil {
		a.receive = bus.DirectChannel(id)
	}
	return a
}

func (a *WorkerAgent) ID() AgentID              { return a.id }
func (a *WorkerAgent) Type() AgentType          { return a.agentType }
func (a *WorkerAgent) Personality() Personality { return a.personality }

// systemPrompt composes the agent's role template from its personality and
// type, per spec.md §4.J.
func (a *WorkerAgent) systemPrompt() string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a %s agent in a collaborative software-engineering swarm.\n", a.agentType)
	fmt.Fprintf(&b, "Simplicity=%.2f Performance=%.2f Innovation=%.2f Risk=%.2f Verbosity=%.2f Authority=%.2f\n",
		a.personality.Simplicity, a.personality.Performance, a.personality.Innovation,
		a.personality.Risk, a.personality.Verbosity, a.personality.Authority)
	if a.personality.Verbosity > 0.6 {
		b.WriteString("Explain your reasoning in detail before presenting artifacts.\n")
	} else {
		b.WriteString("Be terse: artifacts only, minimal narration.\n")
	}
	if a.personality.Risk < 0.3 {
		b.WriteString("Prefer conservative, well-tested approaches over novel ones.\n")
	}
	b.WriteString("Deliver files using ---FILE: path--- ... ---END--- blocks.\n")
	return b.String()
}

// Run pulls task context from shared memory, composes the system/user
// prompt pair, calls the oracle through the breaker, parses the artifacts
// from the response, stores the AgentOutput, and broadcasts TaskCompleted
// (spec.md §4.J).
func (a *WorkerAgent) Run(ctx context.Context, task SwarmTask) (AgentOutput, error) {
	start := time.Now()

	var contextExcerpt string
	if a.Memory != nil {
		results, err := a.Memory.Query(ctx, task.Description, 5)
		if err == nil {
			var b strings.Builder
			for _, r := range results {
				if r.Episode != nil {
					b.WriteString(r.Episode.Content)
					b.WriteString("\n")
				}
			}
			contextExcerpt = b.String()
		}
	}

	prompt := task.Description
	if contextExcerpt != "" {
		prompt = prompt + "\n\nRelevant context:\n" + contextExcerpt
	}

	var response *core.AIResponse
	call := func() error {
		var err error
		response, err = a.Oracle.GenerateResponse(ctx, prompt, &core.AIOptions{SystemPrompt: a.systemPrompt()})
		return err
	}
	var err error
	if a.Breaker != nil {
		err = a.Breaker.Execute(ctx, call)
	} else {
		err = call()
	}
	if err != nil {
		return AgentOutput{}, err
	}

	artifacts := ParseArtifacts(response.Content)
	files := make([]string, 0, len(artifacts))
	for _, f := range artifacts {
		files = append(files, f.Path)
	}

	output := AgentOutput{
		AgentID:         a.id,
		AgentType:       a.agentType,
		TaskID:          task.ID,
		Content:         response.Content,
		FilesWritten:    files,
		ExecutionTimeMs: time.Since(start).Milliseconds(),
	}

	if a.Memory != nil {
		_, _ = a.Memory.StoreEpisode(ctx, task.ID, response.Content, []string{string(a.agentType)})
	}
	if a.Bus != nil {
		a.Bus.Broadcast(Message{Kind: MsgTaskCompleted, From: a.id, Output: &output})
	}
	return output, nil
}

// OnMessage handles an incoming bus message. WorkerAgent reacts to a direct
// clarification request by answering it through its own oracle; everything
// else is a no-op (the Coordinator, not individual agents, drives conflict
// resolution and consensus bookkeeping).
func (a *WorkerAgent) OnMessage(ctx context.Context, msg Message) error {
	switch msg.Kind {
	case MsgRequest:
		return a.answerClarification(ctx, msg)
	default:
		return nil
	}
}

// answerClarification asks this agent's oracle to answer msg.Payload and, if
// the asker supplied a reply channel, sends the answer on it — a non-blocking
// send, since RequestClarification's reader always has room for exactly one
// reply and may already have given up waiting. Errors are reported back as
// an empty answer rather than left to block the asker forever.
func (a *WorkerAgent) answerClarification(ctx context.Context, msg Message) error {
	var answer string
	response, err := a.Oracle.GenerateResponse(ctx, msg.Payload, &core.AIOptions{SystemPrompt: a.systemPrompt()})
	if err == nil {
		answer = response.Content
	}
	if msg.ReplyTo != nil {
		select {
		case msg.ReplyTo <- answer:
		default:
		}
	}
	return err
}

// Vote applies spec.md §4.J's voting rule: alignment = 0.5 + 0.3*(risk-0.5)
// + 0.2*(innovation-0.5); > 0.7 Approve, < 0.3 Reject, else Abstain.
func (a *WorkerAgent) Vote(ctx context.Context, p Proposal) Vote {
	score := a.personality.VoteAlignmentScore()
	switch {
	case score > 0.7:
		return VoteApprove
	case score < 0.3:
		return VoteReject
	default:
		return VoteAbstain
	}
}

// RequestClarification calls agent's OnMessage synchronously with a direct
// MsgRequest carrying question and returns the answer OnMessage sent on the
// reply channel during that call; a reply sent after OnMessage returns is
// not waited for — supplemented
// feature grounded on original_source/agent_communication_llm.rs and
// swarm/llm.rs's clarification-request path, which spec.md's distillation
// only alludes to via TaskCompleted broadcasting. Used by the Conflict
// Engine's Technical-conflict resolution (conflict.go) to consult the
// conflicting agent before falling back to arbiter synthesis. The second
// return value is false if agent did not answer (its OnMessage returned an
// error, or sent no reply before returning).
func RequestClarification(ctx context.Context, agent Agent, question string) (string, bool) {
	reply := make(chan string, 1)
	if err := agent.OnMessage(ctx, Message{Kind: MsgRequest, Payload: question, ReplyTo: reply}); err != nil {
		return "", false
	}
	select {
	case answer := <-reply:
		return answer, true
	default:
		return "", false
	}
}

var _ Agent = (*WorkerAgent)(nil)
