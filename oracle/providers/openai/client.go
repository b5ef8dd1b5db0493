// Package openai implements core.AIClient against the OpenAI-compatible
// chat completions API, adapted from the teacher's
// ai/providers/openai/client.go: same BaseClient embedding, request/response
// shape, and retry path, trimmed of the reasoning-model token-multiplier
// and tracing-span machinery the teacher's hosted-agent surface needed but
// this module's Oracle contract does not.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/itsneelabh/sentinel-swarm/core"
	"github.com/itsneelabh/sentinel-swarm/oracle"
)

// Client implements core.AIClient for OpenAI and OpenAI-compatible
// endpoints (providerAlias lets a single client type serve variants like
// "openai.groq" or "openai.together" the way the teacher's alias mechanism
// does, without per-vendor client types).
type Client struct {
	*oracle.BaseClient
	apiKey        string
	baseURL       string
	providerAlias string
}

// NewClient builds an OpenAI-compatible client. An empty baseURL defaults
// to the public OpenAI API.
func NewClient(apiKey, baseURL, providerAlias string, logger core.Logger) *Client {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	base := oracle.NewBaseClient(180*time.Second, logger)
	base.DefaultModel = "gpt-4o-mini"
	return &Client{BaseClient: base, apiKey: apiKey, baseURL: baseURL, providerAlias: providerAlias}
}

func (c *Client) providerName() string {
	if c.providerAlias == "" {
		return "openai"
	}
	return c.providerAlias
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float32       `json:"temperature,omitempty"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Model   string       `json:"model"`
	Usage   struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// GenerateResponse implements core.AIClient: a single non-streaming chat
// completion call with the configured retry/backoff policy.
func (c *Client) GenerateResponse(ctx context.Context, prompt string, options *core.AIOptions) (*core.AIResponse, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("%s API key not configured", c.providerName())
	}
	options = c.ApplyDefaults(options)
	c.LogRequest(c.providerName(), options.Model, prompt)
	start := time.Now()

	var messages []chatMessage
	if options.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: options.SystemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	body := chatRequest{
		Model:       options.Model,
		Messages:    messages,
		MaxTokens:   options.MaxTokens,
		Temperature: options.Temperature,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.ExecuteWithRetry(ctx, req)
	if err != nil {
		c.LogError(c.providerName(), err)
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, c.HandleError(resp.StatusCode, respBody, c.providerName())
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("%s returned no choices", c.providerName())
	}

	usage := core.TokenUsage{
		PromptTokens:     parsed.Usage.PromptTokens,
		CompletionTokens: parsed.Usage.CompletionTokens,
		TotalTokens:      parsed.Usage.TotalTokens,
	}
	c.LogResponse(c.providerName(), options.Model, usage, time.Since(start))

	return &core.AIResponse{
		Content:  parsed.Choices[0].Message.Content,
		Model:    parsed.Model,
		Provider: c.providerName(),
		Usage:    usage,
	}, nil
}
