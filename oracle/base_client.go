// Package oracle implements the Oracle contract spec.md §6 describes: the
// interface swarm agents use to ask a language model to produce an
// artifact, adapted from the teacher's ai/ package (providers, retry with
// backoff, and a fallback chain across providers), renamed to match the
// spec's own terminology.
package oracle

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/itsneelabh/sentinel-swarm/core"
)

// BaseClient is the retry/backoff/defaulting scaffolding every concrete
// provider embeds, adapted directly from the teacher's
// ai/providers/base.go: same exponential-backoff retry loop and default-
// application logic, generalized only in naming (provider -> oracle).
type BaseClient struct {
	HTTPClient *http.Client
	Logger     core.Logger

	MaxRetries int
	RetryDelay time.Duration

	DefaultModel        string
	DefaultTemperature  float32
	DefaultMaxTokens    int
	DefaultSystemPrompt string
}

// NewBaseClient builds a BaseClient with the teacher's defaults: 3 retries,
// 1s base delay, temperature 0.7, 1000 max tokens.
func NewBaseClient(timeout time.Duration, logger core.Logger) *BaseClient {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &BaseClient{
		HTTPClient:         &http.Client{Timeout: timeout},
		Logger:             logger,
		MaxRetries:         3,
		RetryDelay:         time.Second,
		DefaultTemperature: 0.7,
		DefaultMaxTokens:   1000,
	}
}

// ExecuteWithRetry issues req, retrying on network errors, 5xx, and 429
// responses with exponential backoff (RetryDelay * 2^attempt), returning
// immediately on success or any other 4xx.
func (b *BaseClient) ExecuteWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= b.MaxRetries; attempt++ {
		reqClone := req.Clone(ctx)

		resp, err := b.HTTPClient.Do(reqClone)
		if err == nil && resp.StatusCode < 400 {
			return resp, nil
		}
		if err == nil && resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("server error: status %d", resp.StatusCode)
			resp.Body.Close()
		}

		if attempt < b.MaxRetries {
			shiftAmount := uint(attempt)
			if shiftAmount >= 32 {
				shiftAmount = 31
			}
			delay := b.RetryDelay * time.Duration(1<<shiftAmount)

			b.Logger.Debug("retrying oracle request", map[string]interface{}{
				"attempt":     attempt + 1,
				"max_retries": b.MaxRetries,
				"delay":       delay,
				"error":       lastErr,
			})

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, fmt.Errorf("request failed after %d retries: %w", b.MaxRetries, lastErr)
}

// LogError logs a provider-tagged error.
func (b *BaseClient) LogError(provider string, err error) {
	b.Logger.Error("oracle provider error", map[string]interface{}{"provider": provider, "error": err.Error()})
}

// ApplyDefaults fills in unset AIOptions fields from the client's defaults.
func (b *BaseClient) ApplyDefaults(options *core.AIOptions) *core.AIOptions {
	if options == nil {
		options = &core.AIOptions{}
	}
	if options.Model == "" && b.DefaultModel != "" {
		options.Model = b.DefaultModel
	}
	if options.Temperature == 0 {
		options.Temperature = b.DefaultTemperature
	}
	if options.MaxTokens == 0 {
		options.MaxTokens = b.DefaultMaxTokens
	}
	if options.SystemPrompt == "" && b.DefaultSystemPrompt != "" {
		options.SystemPrompt = b.DefaultSystemPrompt
	}
	return options
}

// HandleError maps a provider's HTTP status/body into an OracleError.
func (b *BaseClient) HandleError(statusCode int, body []byte, provider string) error {
	switch statusCode {
	case http.StatusUnauthorized:
		return newOracleError(provider, KindAuthFailed, fmt.Errorf("invalid or missing API key"))
	case http.StatusTooManyRequests:
		return newOracleError(provider, KindRateLimited, fmt.Errorf("rate limit exceeded"))
	case http.StatusBadRequest:
		return newOracleError(provider, KindInvalidRequest, fmt.Errorf("invalid request: %s", string(body)))
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		return newOracleError(provider, KindProviderUnavailable, fmt.Errorf("service temporarily unavailable (status %d)", statusCode))
	default:
		return newOracleError(provider, KindProviderError, fmt.Errorf("status %d: %s", statusCode, string(body)))
	}
}

// LogRequest logs an outgoing oracle request at debug level.
func (b *BaseClient) LogRequest(provider, model, prompt string) {
	b.Logger.Debug("oracle request", map[string]interface{}{
		"provider":      provider,
		"model":         model,
		"prompt_length": len(prompt),
	})
}

// LogResponse logs a completed oracle response at debug level.
func (b *BaseClient) LogResponse(provider, model string, tokens core.TokenUsage, duration time.Duration) {
	b.Logger.Debug("oracle response", map[string]interface{}{
		"provider":          provider,
		"model":             model,
		"prompt_tokens":     tokens.PromptTokens,
		"completion_tokens": tokens.CompletionTokens,
		"total_tokens":      tokens.TotalTokens,
		"duration":          duration,
	})
}

// isRetryableError inspects an error's message for the status-code markers
// the non-HTTP-response error paths (string-wrapped) leave behind.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, marker := range []string{"(429)", "(500)", "(502)", "(503)", "(504)"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return err == context.DeadlineExceeded
}
