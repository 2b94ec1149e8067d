// internal/common/genai/client.go
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/swarnavarsha1/gmail-outlook-automation/internal/common/logger"
)

var (
	ErrCompletionTimeout = errors.New("COMPLETION_TIMEOUT")
	ErrCompletionFailed  = errors.New("COMPLETION_FAILED")
)

// Options tunes a single completion call.
type Options struct {
	MaxTokens   int
	Temperature float64
}

// Completer is the capability interface over the external completion
// service. The classifier, synthesizer, and quality gate all consume it;
// tests substitute a deterministic stub.
type Completer interface {
	Complete(ctx context.Context, prompt string, opts Options) (string, error)
}

// Config holds the completion service settings.
type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
}

// Client calls the completion HTTP service with bounded retry and
// exponential backoff. Transient failures (non-2xx, transport errors) are
// retried; context expiry surfaces as ErrCompletionTimeout.
type Client struct {
	config Config
	client *http.Client
	logger logger.Logger
}

func NewClient(config Config, log logger.Logger) *Client {
	return &Client{
		config: config,
		// No client-level timeout: the per-call context bounds each request.
		client: &http.Client{},
		logger: log.With(map[string]interface{}{"component": "genai"}),
	}
}

func (c *Client) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	requestBody := map[string]interface{}{
		"prompt":      prompt,
		"max_tokens":  opts.MaxTokens,
		"temperature": opts.Temperature,
	}
	body, _ := json.Marshal(requestBody)

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	var resp *http.Response
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ErrCompletionTimeout
			}
		}

		// A fresh request per attempt: the body reader is consumed on send.
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.config.BaseURL+"/api/ai/generate", bytes.NewReader(body))
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrCompletionFailed, err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.config.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
		}

		resp, lastErr = c.client.Do(req)

		if ctx.Err() != nil ||
			errors.Is(lastErr, context.DeadlineExceeded) ||
			errors.Is(lastErr, context.Canceled) {
			return "", ErrCompletionTimeout
		}

		if lastErr == nil {
			if resp.StatusCode == http.StatusOK {
				break
			}
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			resp = nil
			c.logger.Warn("completion call failed, retrying", map[string]interface{}{
				"attempt": attempt + 1,
				"error":   lastErr.Error(),
			})
		}
	}

	if lastErr != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", ErrCompletionTimeout
		}
		return "", fmt.Errorf("%w: %v", ErrCompletionFailed, lastErr)
	}

	if resp == nil {
		return "", fmt.Errorf("%w: no successful response after retries", ErrCompletionFailed)
	}
	defer resp.Body.Close()

	var apiResponse struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return "", fmt.Errorf("%w: decode error: %v", ErrCompletionFailed, err)
	}

	if strings.TrimSpace(apiResponse.Text) == "" {
		return "", fmt.Errorf("%w: empty completion", ErrCompletionFailed)
	}

	return apiResponse.Text, nil
}
