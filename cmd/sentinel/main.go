// Command sentinel is the host process that wires the full core together
// and exposes it over the JSON-RPC tool-protocol surface on stdio (spec.md
// §6). It mirrors the teacher's cmd/example/main.go in spirit — a thin,
// linear wiring script, logging its way through startup and exiting 0
// unless construction itself fails — generalized from "stand up one
// BaseAgent and serve HTTP" to "stand up the whole cognitive core and
// serve JSON-RPC."
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/itsneelabh/sentinel-swarm/alignment"
	"github.com/itsneelabh/sentinel-swarm/cognitive"
	"github.com/itsneelabh/sentinel-swarm/core"
	"github.com/itsneelabh/sentinel-swarm/goal"
	"github.com/itsneelabh/sentinel-swarm/learning"
	"github.com/itsneelabh/sentinel-swarm/memory"
	"github.com/itsneelabh/sentinel-swarm/oracle/providers/bedrock"
	"github.com/itsneelabh/sentinel-swarm/oracle/providers/mock"
	"github.com/itsneelabh/sentinel-swarm/persistence"
	"github.com/itsneelabh/sentinel-swarm/predicate"
	"github.com/itsneelabh/sentinel-swarm/rpcapi"
	"github.com/itsneelabh/sentinel-swarm/sandbox"
	"github.com/itsneelabh/sentinel-swarm/state"
	"github.com/itsneelabh/sentinel-swarm/swarm"
)

func main() {
	workDir := flag.String("workdir", ".", "project root the sandbox executor and manifold discovery operate under")
	intent := flag.String("intent", "", "root intent to seed a brand-new manifold with, if none is found on disk")
	flag.Parse()

	if err := run(*workDir, *intent); err != nil {
		fmt.Fprintln(os.Stderr, "sentinel: fatal:", err)
		os.Exit(1)
	}
}

func run(workDir, intent string) error {
	cfg, err := core.NewConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := cfg.Logger()

	absWorkDir, err := filepath.Abs(workDir)
	if err != nil {
		return fmt.Errorf("resolve workdir: %w", err)
	}

	manifoldPath, err := persistence.Discover(absWorkDir)
	if err != nil {
		if intent == "" {
			return fmt.Errorf("no %s found under %s and no --intent given to seed one: %w", persistence.ManifoldFileName, absWorkDir, err)
		}
		manifoldPath = filepath.Join(absWorkDir, persistence.ManifoldFileName)
	}
	store := persistence.NewManifoldStore(manifoldPath)

	m, unknown, err := store.Load()
	if err != nil {
		return fmt.Errorf("load manifold: %w", err)
	}
	if m == nil {
		if intent == "" {
			return fmt.Errorf("no manifold at %s and no --intent given to seed one", manifoldPath)
		}
		m = goal.NewManifold(intent)
		logger.Info("seeded a new manifold", map[string]interface{}{"intent": intent, "path": manifoldPath})
	}

	executor, err := sandbox.NewLocalExecutor(absWorkDir)
	if err != nil {
		return fmt.Errorf("build sandbox executor: %w", err)
	}
	evaluator := predicate.NewEvaluator(executor, nil)
	field := alignment.NewField(evaluator)
	gate := cognitive.NewCognitiveState(m, evaluator, field)
	gate.Logger = logger

	kbStore, err := buildKnowledgeStore(cfg, absWorkDir)
	if err != nil {
		return fmt.Errorf("build knowledge base store: %w", err)
	}
	kb := learning.NewKnowledgeBase(kbStore, logger)
	if err := kb.Load(context.Background()); err != nil {
		logger.Warn("failed to load knowledge base snapshot", map[string]interface{}{"error": err.Error()})
	}
	gate.Patterns = kb

	memManifold := memory.NewManifold()
	if backend, err := buildEpisodicBackend(cfg); err != nil {
		logger.Warn("episodic memory will stay process-local", map[string]interface{}{"error": err.Error()})
	} else if backend != nil {
		memManifold.Backend = backend
		if err := memManifold.LoadEpisodic(context.Background()); err != nil {
			logger.Warn("failed to load shared episodic memory", map[string]interface{}{"error": err.Error()})
		}
	}

	oracleClient, err := buildOracleClient(context.Background(), cfg, logger)
	if err != nil {
		return fmt.Errorf("build oracle client: %w", err)
	}
	coordinator := swarm.NewCoordinator(memManifold, oracleClient, swarm.NewCoordinatorConfig(), logger)

	bus := swarm.NewBus()
	consensus := swarm.NewConsensus(swarm.NewConsensusConfig(), bus)

	st := state.NewProjectState(absWorkDir)

	rt := rpcapi.NewRuntime(m, evaluator, field, gate, kb, st)
	rt.Executor = executor
	rt.Consensus = consensus
	rt.Coordinator = coordinator
	rt.Store = store
	rt.Preserved = unknown
	rt.Logger = logger

	server := rpcapi.NewServer(rt)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go consensus.Run(ctx)

	logger.Info("sentinel core ready", map[string]interface{}{"manifold": manifoldPath, "workdir": absWorkDir})
	return server.Serve(ctx, os.Stdin, os.Stdout)
}

// buildKnowledgeStore picks a Knowledge Base Store the same way the rest of
// this module layers config: environment overrides a sane local default.
// SENTINEL_REDIS_URL set means cross-process pattern sharing; unset means a
// single JSON file under the working directory.
func buildKnowledgeStore(cfg *core.Config, workDir string) (learning.Store, error) {
	if url := os.Getenv(core.EnvRedisURL); url != "" {
		return learning.NewRedisPatternStore(url, cfg.Namespace)
	}
	return learning.NewJSONFileStore(filepath.Join(workDir, "knowledge_base.json")), nil
}

// buildEpisodicBackend wires cross-process episodic memory sharing only
// when SENTINEL_REDIS_URL is set; otherwise episodic memory stays
// process-local, which is a fully supported deployment mode, not a
// degraded one.
func buildEpisodicBackend(cfg *core.Config) (*memory.RedisEpisodicBackend, error) {
	url := os.Getenv(core.EnvRedisURL)
	if url == "" {
		return nil, nil
	}
	return memory.NewRedisEpisodicBackend(url, cfg.Namespace)
}

// buildOracleClient prefers AWS Bedrock when a region is configured (the
// teacher's own deployment target), falling back to the deterministic mock
// provider for local runs and CI, where no Oracle credentials exist.
func buildOracleClient(ctx context.Context, cfg *core.Config, logger core.Logger) (core.AIClient, error) {
	region := os.Getenv("AWS_REGION")
	if region == "" {
		return mock.NewClient(), nil
	}
	awsCfg, err := bedrock.CreateAWSConfig(ctx, region)
	if err != nil {
		logger.Warn("failed to load AWS config, falling back to mock oracle", map[string]interface{}{"error": err.Error()})
		return mock.NewClient(), nil
	}
	return bedrock.NewClient(awsCfg, region, logger), nil
}
