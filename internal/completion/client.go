package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Retry configuration
const (
	maxRetries   = 3
	baseDelay    = 1 * time.Second
	maxDelay     = 30 * time.Second
	jitterFactor = 0.2 // 20% jitter
)

// ErrUnavailable marks network, timeout and quota failures of the completion
// service. Callers degrade to a fallback reply instead of failing the turn.
var ErrUnavailable = errors.New("completion service unavailable")

// ChatMessage is one message of an OpenAI-style chat completion request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request describes one completion call: assembled system instructions, a
// short user-context summary, and the conversation tail to generate from.
type Request struct {
	SystemPrompt   string
	ContextSummary string
	Messages       []ChatMessage
	MaxTokens      int
	Temperature    float64
}

// Client generates text from an assembled prompt.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason,omitempty"`
		Index        int    `json:"index"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type clientImpl struct {
	httpClient  *http.Client
	apiKey      string
	apiEndpoint string
	model       string
	timeout     time.Duration
	logger      *slog.Logger
}

// isRetryableStatusCode returns true if the HTTP status code indicates a retryable error.
func isRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests, // 429
		http.StatusInternalServerError, // 500
		http.StatusBadGateway,          // 502
		http.StatusServiceUnavailable,  // 503
		http.StatusGatewayTimeout:      // 504
		return true
	default:
		return false
	}
}

// isRetryableError returns true if the error is a network/timeout error that should be retried.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// calculateBackoff returns the delay for the given attempt using exponential backoff with jitter.
func calculateBackoff(attempt int) time.Duration {
	// Limit attempt to avoid overflow (2^5 = 32 seconds is already > maxDelay)
	if attempt > 5 {
		attempt = 5
	}
	delay := baseDelay * time.Duration(1<<attempt)
	if delay > maxDelay {
		delay = maxDelay
	}

	// Add jitter: ±20%
	jitter := time.Duration(float64(delay) * jitterFactor * (2*rand.Float64() - 1))
	return delay + jitter
}

// NewClient creates an OpenAI-compatible chat completion client.
func NewClient(logger *slog.Logger, apiKey, baseURL, model, proxyURL string, timeout time.Duration) (Client, error) {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConnsPerHost:   10,
	}

	if proxyURL != "" {
		proxy, err := url.Parse(proxyURL)
		if err != nil {
			return nil, err
		}
		transport.Proxy = http.ProxyURL(proxy)
	}

	return &clientImpl{
		httpClient:  &http.Client{Transport: transport},
		apiKey:      apiKey,
		apiEndpoint: baseURL,
		model:       model,
		timeout:     timeout,
		logger:      logger.With("component", "completion_client"),
	}, nil
}

// Complete implements Client. The call is bounded by the configured timeout;
// transport failures, timeouts and quota errors come back wrapped in
// ErrUnavailable after retries are exhausted.
func (c *clientImpl) Complete(ctx context.Context, req Request) (string, error) {
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	messages := make([]ChatMessage, 0, len(req.Messages)+2)
	if req.SystemPrompt != "" {
		messages = append(messages, ChatMessage{Role: "system", Content: req.SystemPrompt})
	}
	if req.ContextSummary != "" {
		messages = append(messages, ChatMessage{Role: "system", Content: req.ContextSummary})
	}
	messages = append(messages, req.Messages...)

	apiReq := chatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}

	contextChars := 0
	for _, msg := range messages {
		contextChars += len(msg.Content)
	}
	c.logger.Info("Sending completion request",
		"model", c.model,
		"message_count", len(messages),
		"context_chars", contextChars,
		"max_tokens", req.MaxTokens,
	)

	body, err := json.Marshal(apiReq)
	if err != nil {
		return "", err
	}

	endpoint, err := url.JoinPath(c.apiEndpoint, "chat/completions")
	if err != nil {
		return "", err
	}

	var responseBody []byte
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			RecordRetry(c.model)
			delay := calculateBackoff(attempt - 1)
			c.logger.Warn("Retrying completion request",
				"attempt", attempt,
				"max_retries", maxRetries,
				"delay", delay,
				"last_error", lastErr,
			)

			select {
			case <-ctx.Done():
				RecordRequest(c.model, time.Since(startTime).Seconds(), false, 0, 0)
				return "", fmt.Errorf("%w: %w", ErrUnavailable, ctx.Err())
			case <-time.After(delay):
			}
		}

		httpReq, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewBuffer(body))
		if err != nil {
			return "", err
		}

		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("User-Agent", "guidebot/1.0")

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			if isRetryableError(err) && attempt < maxRetries {
				lastErr = err
				continue
			}
			RecordRequest(c.model, time.Since(startTime).Seconds(), false, 0, 0)
			return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
		}

		responseBody, err = io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			if isRetryableError(err) && attempt < maxRetries {
				lastErr = err
				continue
			}
			RecordRequest(c.model, time.Since(startTime).Seconds(), false, 0, 0)
			return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
		}

		c.logger.Debug("Completion response received", "status", resp.Status, "attempt", attempt)

		if resp.StatusCode == http.StatusOK {
			break // Success
		}

		if isRetryableStatusCode(resp.StatusCode) && attempt < maxRetries {
			lastErr = fmt.Errorf("completion API error: %s", resp.Status)
			continue
		}

		c.logger.Error("Completion API returned non-OK status", "status", resp.Status, "body", string(responseBody))
		RecordRequest(c.model, time.Since(startTime).Seconds(), false, 0, 0)
		return "", fmt.Errorf("%w: API error: %s", ErrUnavailable, resp.Status)
	}

	var chatResp chatCompletionResponse
	if err := json.Unmarshal(responseBody, &chatResp); err != nil {
		c.logger.Error("Failed to decode completion response", "error", err, "body_length", len(responseBody))
		RecordRequest(c.model, time.Since(startTime).Seconds(), false, 0, 0)
		return "", fmt.Errorf("%w: failed to decode response: %w", ErrUnavailable, err)
	}

	if len(chatResp.Choices) == 0 {
		RecordRequest(c.model, time.Since(startTime).Seconds(), false, 0, 0)
		return "", fmt.Errorf("%w: response contains no choices", ErrUnavailable)
	}

	content := strings.TrimSpace(chatResp.Choices[0].Message.Content)

	c.logger.Info("Completion response parsed successfully",
		"model", chatResp.Model,
		"prompt_tokens", chatResp.Usage.PromptTokens,
		"completion_tokens", chatResp.Usage.CompletionTokens,
		"total_tokens", chatResp.Usage.TotalTokens,
	)

	RecordRequest(c.model, time.Since(startTime).Seconds(), true,
		chatResp.Usage.PromptTokens, chatResp.Usage.CompletionTokens)

	return content, nil
}
