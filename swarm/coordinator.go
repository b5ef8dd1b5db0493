package swarm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/itsneelabh/sentinel-swarm/core"
	"github.com/itsneelabh/sentinel-swarm/memory"
)

// CoordinatorConfig tunes a single mission run.
type CoordinatorConfig struct {
	Consensus ConsensusConfig
	Breaker   BreakerConfig
	Provider  string        // oracle provider name, used as the breaker key
	Deadline  time.Duration // 0 means no mission-wide deadline
}

// NewCoordinatorConfig returns spec-default sub-configs with "default" as
// the oracle provider name and no mission deadline.
func NewCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{
		Consensus: NewConsensusConfig(),
		Breaker:   NewBreakerConfig(),
		Provider:  "default",
	}
}

// SwarmExecutionResult is what Run returns once every agent has completed
// (or the mission deadline has cancelled the rest) (spec.md §4.P).
type SwarmExecutionResult struct {
	Goal              string
	AgentCount        int
	Outputs           []AgentOutput
	ConflictsDetected int
	ConflictsResolved int
	ConsensusRounds   int
	ExecutionTimeMs   int64
}

// Coordinator is the Swarm Engine's single owner of the Goal Manifold
// (elsewhere), Communication Bus, Consensus, Memory Manifold, Predictor,
// Balancer, Conflict Engine, and oracle client — agents hold only shared
// handles to Memory/Consensus/oracle and never reference the Coordinator
// back (spec.md §3's ownership rules, §4.P).
type Coordinator struct {
	Memory    *memory.Manifold
	Bus       *Bus
	Consensus *Consensus
	Balancer  *Balancer
	Conflicts *ConflictEngine
	Predictor *Prefetcher
	Breakers  *BreakerRegistry
	Oracle    core.AIClient
	Logger    core.Logger

	Config CoordinatorConfig
}

// NewCoordinator wires every swarm subpart around a shared memory manifold
// and oracle client (spec.md §4.P step 4).
func NewCoordinator(mem *memory.Manifold, oracle core.AIClient, cfg CoordinatorConfig, logger core.Logger) *Coordinator {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	if cfg.Consensus.TickPeriod == 0 {
		cfg = NewCoordinatorConfig()
	}
	bus := NewBus()
	return &Coordinator{
		Memory:    mem,
		Bus:       bus,
		Consensus: NewConsensus(cfg.Consensus, bus),
		Balancer:  NewBalancer(0),
		Conflicts: NewConflictEngine(),
		Predictor: NewPrefetcher(),
		Breakers:  NewBreakerRegistry(cfg.Breaker),
		Oracle:    oracle,
		Logger:    logger,
		Config:    cfg,
	}
}

// Run is the Swarm Coordinator's entry point (spec.md §4.P): analyze
// goalText, derive a deterministic agent set, spawn them sharing
// memory/bus/consensus/oracle, run them to completion, detect and resolve
// conflicts among their outputs, and return the aggregated result.
//
// Determinism guarantee: for the same goalText, the agent ids and
// personalities spawned are always identical; only the artifacts an oracle
// produces may vary run to run (spec.md §4.P).
func (c *Coordinator) Run(ctx context.Context, goalText string) (SwarmExecutionResult, error) {
	start := time.Now()
	if c.Config.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Config.Deadline)
		defer cancel()
	}

	goalHash := GoalHash(goalText)
	analysis := Analyze(goalText)

	breaker := c.Breakers.GetOrCreate(c.Config.Provider)

	agents := make([]Agent, 0, len(analysis.RequiredAgents))
	for i, t := range analysis.RequiredAgents {
		id := DeterministicAgentID(goalHash, t, uint32(i))
		personality := PersonalityFromGoal(goalHash, t)
		agent := NewWorkerAgent(id, t, personality, c.Memory, c.Bus, breaker, c.Oracle, c.Logger)
		agents = append(agents, agent)
		c.Balancer.Register(id)
	}

	consensusCtx, stopConsensus := context.WithCancel(ctx)
	defer stopConsensus()
	go c.Consensus.Run(consensusCtx)

	personalities := make(map[AgentID]Personality, len(agents))
	agentsByID := make(map[AgentID]Agent, len(agents))
	for _, a := range agents {
		personalities[a.ID()] = a.Personality()
		agentsByID[a.ID()] = a
	}

	outputs := make([]AgentOutput, 0, len(agents))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i, a := range agents {
		wg.Add(1)
		go func(idx int, agent Agent) {
			defer wg.Done()
			task := SwarmTask{
				ID:           fmt.Sprintf("%s-task-%d", agent.ID(), idx),
				Name:         string(agent.Type()),
				Description:  goalText,
				RequiredType: agent.Type(),
				Priority:     1.0,
			}
			taskStart := time.Now()
			out, err := agent.Run(ctx, task)
			success := err == nil
			c.Balancer.TaskCompleted(agent.ID(), success, float64(time.Since(taskStart).Milliseconds()))
			if err != nil {
				c.Logger.Warn("agent run failed", map[string]interface{}{"agent": agent.ID().String(), "error": err.Error()})
				return
			}
			mu.Lock()
			outputs = append(outputs, out)
			mu.Unlock()
		}(i, a)
	}
	wg.Wait()

	conflicts := c.Conflicts.Detect(outputs)
	resolved := 0
	for _, conflict := range conflicts {
		if _, err := c.Conflicts.Resolve(ctx, conflict, personalities, agentsByID); err == nil {
			resolved++
		}
	}

	if containsType(analysis.RequiredAgents, TypeManagerAgent) {
		c.runManagerConsensus(agents, outputs)
	}

	return SwarmExecutionResult{
		Goal:              goalText,
		AgentCount:        len(agents),
		Outputs:           outputs,
		ConflictsDetected: len(conflicts),
		ConflictsResolved: resolved,
		ConsensusRounds:   c.Consensus.Round(),
		ExecutionTimeMs:   time.Since(start).Milliseconds(),
	}, nil
}

// runManagerConsensus submits one "adopt these outputs" proposal per
// completed task and lets every non-manager agent vote, returning the
// number that reached Accepted — the ManagerAgent's coordination role made
// concrete as a consensus pass over the batch (spec.md §4.I's emergence
// threshold, §4.L).
func (c *Coordinator) runManagerConsensus(agents []Agent, outputs []AgentOutput) int {
	accepted := 0
	for _, out := range outputs {
		p := Proposal{
			ID:          out.TaskID,
			Title:       "adopt output from " + string(out.AgentType),
			Description: out.Content,
			Action:      ProposedAction{Kind: ActionMergeChange, Subject: out.TaskID},
			ProposerID:  out.AgentID,
			CreatedAt:   time.Now(),
		}
		c.Consensus.Propose(p)
		for _, a := range agents {
			if a.Type() == TypeManagerAgent {
				continue
			}
			_ = c.Consensus.SubmitVote(p.ID, a.ID(), a.Vote(context.Background(), p))
		}
		if status, ok := c.Consensus.Status(p.ID); ok && status == ProposalAccepted {
			accepted++
		}
	}
	return accepted
}

func containsType(types []AgentType, target AgentType) bool {
	for _, t := range types {
		if t == target {
			return true
		}
	}
	return false
}
