package oracle

import (
	"context"
	"fmt"
	"time"

	"github.com/itsneelabh/sentinel-swarm/core"
)

// namedProvider pairs a concrete core.AIClient with the alias it is logged
// under, so failover diagnostics name which provider was tried.
type namedProvider struct {
	alias  string
	client core.AIClient
}

// ChainClient implements core.AIClient by trying a sequence of providers in
// order until one succeeds — an OpenRouter-style multi-model fallback chain
// (supplemented feature 4, grounded on the teacher's ai/chain_client.go and
// original_source/openrouter.rs). Unlike the teacher's version, provider
// construction happens entirely outside this type: callers hand ChainClient
// already-built clients, since this module has no provider factory/registry
// to resolve aliases against.
type ChainClient struct {
	providers []namedProvider
	logger    core.Logger
}

// NewChainClient builds a ChainClient over the given providers, tried in
// the order given. At least one provider is required; this is a
// configuration error caught at construction time rather than at the first
// call, following the teacher's fail-fast-on-config principle.
func NewChainClient(logger core.Logger, providers map[string]core.AIClient, order []string) (*ChainClient, error) {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	if len(order) == 0 {
		return nil, fmt.Errorf("oracle: configuration error: at least one provider required for chain")
	}
	chain := &ChainClient{logger: logger}
	for _, alias := range order {
		client, ok := providers[alias]
		if !ok || client == nil {
			logger.Warn("provider not available, will skip in chain", map[string]interface{}{"alias": alias})
			continue
		}
		chain.providers = append(chain.providers, namedProvider{alias: alias, client: client})
	}
	if len(chain.providers) == 0 {
		return nil, fmt.Errorf("oracle: configuration error: no providers could be initialized")
	}
	logger.Info("oracle chain client initialized", map[string]interface{}{
		"requested_providers": len(order),
		"available_providers": len(chain.providers),
	})
	return chain, nil
}

// GenerateResponse tries each provider in order, cloning options per
// attempt so one provider's model resolution never bleeds into the next.
// A 4xx-shaped OracleError (auth, invalid request) is NOT retried against
// the next provider since it reflects a request problem, not a provider
// outage; every other failure falls through to the next provider, and only
// once every provider has failed is the last error returned.
func (c *ChainClient) GenerateResponse(ctx context.Context, prompt string, options *core.AIOptions) (*core.AIResponse, error) {
	start := time.Now()
	var lastErr error

	for _, p := range c.providers {
		optsCopy := cloneOptions(options)
		resp, err := p.client.GenerateResponse(ctx, prompt, optsCopy)
		if err == nil {
			c.logger.Info("oracle chain succeeded", map[string]interface{}{
				"provider": p.alias,
				"duration": time.Since(start),
			})
			if resp.Provider == "" {
				resp.Provider = p.alias
			}
			return resp, nil
		}

		lastErr = err
		if isNonRetryableChainError(err) {
			c.logger.Error("oracle chain aborted on non-retryable error", map[string]interface{}{
				"provider": p.alias,
				"error":    err.Error(),
			})
			return nil, err
		}
		c.logger.Warn("oracle provider failed, trying next in chain", map[string]interface{}{
			"provider": p.alias,
			"error":    err.Error(),
		})
	}

	return nil, fmt.Errorf("oracle: all %d providers in chain failed, last error: %w", len(c.providers), lastErr)
}

func isNonRetryableChainError(err error) bool {
	var oerr *OracleError
	if !asOracleError(err, &oerr) {
		return false
	}
	switch oerr.Kind {
	case KindAuthFailed, KindInvalidRequest:
		return true
	default:
		return false
	}
}

// asOracleError is a small errors.As wrapper kept local to avoid importing
// errors just for one call site here and in chain_client_test.go.
func asOracleError(err error, target **OracleError) bool {
	for err != nil {
		if oerr, ok := err.(*OracleError); ok {
			*target = oerr
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

func cloneOptions(options *core.AIOptions) *core.AIOptions {
	if options == nil {
		return nil
	}
	clone := *options
	return &clone
}
