// internal/engine/reasoning/client.go
package reasoning

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"social-evaluation/internal/common/errors"
	apphttp "social-evaluation/internal/common/http"
	"social-evaluation/internal/common/logger"
	"social-evaluation/internal/common/metrics"
)

const Capability = "reasoning"

var (
	ErrReasoningUnavailable = stderrors.New("REASONING_UNAVAILABLE")
	ErrEmptyCompletion      = stderrors.New("EMPTY_COMPLETION")
)

// Engine completes a conversation. Implementations are non-deterministic and
// slow; callers bound them with ctx.
type Engine interface {
	Complete(ctx context.Context, conv *ConversationContext) (string, error)
}

type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration // per attempt
	Retry       apphttp.RetryPolicy
}

// Client talks to an OpenAI-compatible chat completions endpoint.
type Client struct {
	http   *apphttp.Client
	config Config
	logger logger.Logger
}

func NewClient(config Config, log logger.Logger) *Client {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.openai.com/v1"
	}
	if config.Model == "" {
		config.Model = "gpt-4-turbo"
	}
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}
	if config.Retry.MaxAttempts == 0 {
		config.Retry = apphttp.DefaultRetryPolicy
	}
	return &Client{
		// the per-attempt deadline comes from the context
		http:   apphttp.NewClient(0),
		config: config,
		logger: log.WithFields(map[string]interface{}{"component": "reasoning", "model": config.Model}),
	}
}

// Complete sends the conversation and appends the reply to it.
func (c *Client) Complete(ctx context.Context, conv *ConversationContext) (string, error) {
	req := chatRequest{
		Model:       c.config.Model,
		Messages:    conv.Messages(),
		Temperature: c.config.Temperature,
		MaxTokens:   c.config.MaxTokens,
	}
	headers := map[string]string{}
	if c.config.APIKey != "" {
		headers["Authorization"] = "Bearer " + c.config.APIKey
	}
	url := strings.TrimRight(c.config.BaseURL, "/") + "/chat/completions"

	var content string
	err := apphttp.Retry(ctx, c.config.Retry, func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()

		var resp chatResponse
		if err := c.http.PostJSON(attemptCtx, url, headers, req, &resp); err != nil {
			return err
		}
		if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
			return ErrEmptyCompletion
		}
		content = resp.Choices[0].Message.Content
		return nil
	}, func(attempt int, err error) {
		metrics.UpstreamRetries.WithLabelValues(Capability).Inc()
		c.logger.Warn("reasoning call failed, retrying", map[string]interface{}{
			"attempt": attempt,
			"error":   err.Error(),
		})
	})

	if err != nil {
		return "", c.mapError(ctx, err)
	}

	conv.AddAssistant(content)
	return content, nil
}

func (c *Client) mapError(ctx context.Context, err error) error {
	switch {
	case stderrors.Is(ctx.Err(), context.DeadlineExceeded):
		return errors.NewTimeoutError(Capability, err)
	case stderrors.Is(ctx.Err(), context.Canceled):
		return ctx.Err()
	case stderrors.Is(err, ErrEmptyCompletion):
		return errors.NewUpstreamError(Capability, err)
	default:
		return errors.NewUpstreamError(Capability, fmt.Errorf("%w: %v", ErrReasoningUnavailable, err))
	}
}
