// Package mock implements core.AIClient with scripted responses, adapted
// from the teacher's ai/providers/mock/provider.go for use in package tests
// across this module (swarm agents, the ChainClient fallback path) without
// registering into any global provider factory — this module has no such
// registry, so Client is just constructed directly where tests need it.
package mock

import (
	"context"
	"errors"
	"sync"

	"github.com/itsneelabh/sentinel-swarm/core"
)

// Client implements core.AIClient for tests: it replays a configured list
// of responses in order, or returns a configured error, while recording
// every call for assertions. Safe for concurrent use — swarm agents call
// their shared oracle client from parallel goroutines (spec.md §5).
type Client struct {
	mu sync.Mutex

	Responses     []string
	ResponseIndex int
	Err           error
	CallCount     int
	LastPrompt    string
	LastOptions   *core.AIOptions
}

// NewClient builds a mock client that returns "mock response" once by
// default; call SetResponses to script something more specific.
func NewClient() *Client {
	return &Client{Responses: []string{"mock response"}}
}

// GenerateResponse implements core.AIClient.
func (c *Client) GenerateResponse(ctx context.Context, prompt string, options *core.AIOptions) (*core.AIResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.CallCount++
	c.LastPrompt = prompt
	c.LastOptions = options

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if c.Err != nil {
		return nil, c.Err
	}
	if c.ResponseIndex >= len(c.Responses) {
		return nil, errors.New("mock: no more scripted responses")
	}

	response := c.Responses[c.ResponseIndex]
	c.ResponseIndex++

	model := "mock-model"
	if options != nil && options.Model != "" {
		model = options.Model
	}

	return &core.AIResponse{
		Content:  response,
		Model:    model,
		Provider: "mock",
		Usage: core.TokenUsage{
			PromptTokens:     len(prompt) / 4,
			CompletionTokens: len(response) / 4,
			TotalTokens:      (len(prompt) + len(response)) / 4,
		},
	}, nil
}

// SetResponses scripts the responses GenerateResponse will return in order.
func (c *Client) SetResponses(responses ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Responses = responses
	c.ResponseIndex = 0
}

// SetError scripts GenerateResponse to always fail with err.
func (c *Client) SetError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Err = err
}

// Reset clears call history and scripted state back to zero.
func (c *Client) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ResponseIndex = 0
	c.CallCount = 0
	c.LastPrompt = ""
	c.LastOptions = nil
	c.Err = nil
}
