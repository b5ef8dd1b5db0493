package rpcapi

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/itsneelabh/sentinel-swarm/alignment"
	"github.com/itsneelabh/sentinel-swarm/cognitive"
	"github.com/itsneelabh/sentinel-swarm/core"
	"github.com/itsneelabh/sentinel-swarm/goal"
	"github.com/itsneelabh/sentinel-swarm/learning"
	"github.com/itsneelabh/sentinel-swarm/persistence"
	"github.com/itsneelabh/sentinel-swarm/predicate"
	"github.com/itsneelabh/sentinel-swarm/sandbox"
	"github.com/itsneelabh/sentinel-swarm/state"
	"github.com/itsneelabh/sentinel-swarm/swarm"
)

// Runtime is every piece of core state a tool-protocol method can touch:
// the goal manifold, the predicate evaluator, the alignment field, the
// Cognitive Gate, the Knowledge Base, an optional sandbox executor for
// safe_write, an optional consensus engine for propose_strategy, an
// optional Swarm Coordinator for decompose_goal to actually execute against,
// and an optional manifold store for persisting handovers.
type Runtime struct {
	mu sync.Mutex

	Manifold    *goal.Manifold
	Evaluator   *predicate.Evaluator
	Field       *alignment.Field
	Gate        *cognitive.CognitiveState
	Knowledge   *learning.KnowledgeBase
	Executor    *sandbox.LocalExecutor
	Consensus   *swarm.Consensus
	Coordinator *swarm.Coordinator
	Store       *persistence.ManifoldStore
	Preserved   map[string]json.RawMessage // unknown top-level fields Store.Load read back, to round-trip on the next Save
	State       *state.ProjectState
	Logger      core.Logger
}

// NewRuntime wires a Runtime around the minimum required pieces; optional
// fields (Executor, Consensus, Store) may be set on the returned value
// before the first Serve call.
func NewRuntime(m *goal.Manifold, ev *predicate.Evaluator, field *alignment.Field, gate *cognitive.CognitiveState, kb *learning.KnowledgeBase, st *state.ProjectState) *Runtime {
	return &Runtime{
		Manifold:  m,
		Evaluator: ev,
		Field:     field,
		Gate:      gate,
		Knowledge: kb,
		State:     st,
		Logger:    &core.NoOpLogger{},
	}
}

// HandlerFunc answers one JSON-RPC method call, given its raw params.
type HandlerFunc func(ctx context.Context, rt *Runtime, params json.RawMessage) (any, error)

// Server dispatches JSON-RPC requests to registered HandlerFuncs against a
// single Runtime.
type Server struct {
	runtime  *Runtime
	handlers map[string]HandlerFunc
}

// NewServer builds a Server with every spec.md §6 method registered.
func NewServer(rt *Runtime) *Server {
	s := &Server{runtime: rt, handlers: make(map[string]HandlerFunc)}
	s.Register("validate_action", handleValidateAction)
	s.Register("get_alignment", handleGetAlignment)
	s.Register("safe_write", handleSafeWrite)
	s.Register("propose_strategy", handleProposeStrategy)
	s.Register("record_handover", handleRecordHandover)
	s.Register("get_cognitive_map", handleGetCognitiveMap)
	s.Register("get_enforcement_rules", handleGetEnforcementRules)
	s.Register("decompose_goal", handleDecomposeGoal)
	return s
}

// Register adds or overwrites the handler for method.
func (s *Server) Register(method string, h HandlerFunc) {
	s.handlers[method] = h
}

// Dispatch answers a single request without touching any transport,
// useful for embedding the tool surface directly in a host process.
func (s *Server) Dispatch(ctx context.Context, req Request) Response {
	handler, ok := s.handlers[req.Method]
	if !ok {
		return errorResponse(req.ID, CodeMethodNotFound, fmt.Sprintf("unknown method %q", req.Method), nil)
	}

	s.runtime.mu.Lock()
	result, err := handler(ctx, s.runtime, req.Params)
	s.runtime.mu.Unlock()

	if err != nil {
		return errorResponse(req.ID, CodeInternalError, err.Error(), nil)
	}
	return resultResponse(req.ID, result)
}

// Serve reads newline-delimited JSON-RPC requests from r and writes
// newline-delimited responses to w until r reaches EOF or ctx is canceled.
// It never returns a non-nil error for a malformed or failing request —
// those become error Responses — only for an I/O failure on the transport
// itself, matching spec.md §6's "exit codes: 0 success; non-zero reserved
// for fatal init failure only."
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	enc := json.NewEncoder(w)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			if encErr := enc.Encode(errorResponse(0, CodeParseError, "invalid JSON-RPC request: "+err.Error(), nil)); encErr != nil {
				return encErr
			}
			continue
		}

		resp := s.Dispatch(ctx, req)
		if err := enc.Encode(resp); err != nil {
			return err
		}
	}
	return scanner.Err()
}
