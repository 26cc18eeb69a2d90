// Package generator wraps the chat completion API used for conversational
// answers and the yes/no relevance classifier.
package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"banking-router/internal/common/logger"
)

var (
	ErrGenerationTimeout = errors.New("GENERATION_TIMEOUT")
	ErrGenerationFailed  = errors.New("GENERATION_FAILED")
)

const fallbackAnswer = "I don't have enough information to answer that question."

// Options configures the generator client.
type Options struct {
	APIKey          string
	BaseURL         string
	Model           string
	ClassifierModel string
	Timeout         time.Duration
	MaxRetries      int
}

// Client produces generated text. Chat answers use the main model, the
// relevance classifier uses a cheaper model with near-zero temperature.
type Client struct {
	api             *openai.Client
	model           string
	classifierModel string
	timeout         time.Duration
	maxRetries      int
	logger          logger.Logger
}

func New(opts Options, log logger.Logger) *Client {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	classifierModel := opts.ClassifierModel
	if classifierModel == "" {
		classifierModel = opts.Model
	}

	return &Client{
		api:             openai.NewClientWithConfig(cfg),
		model:           opts.Model,
		classifierModel: classifierModel,
		timeout:         timeout,
		maxRetries:      opts.MaxRetries,
		logger:          log.WithFields(map[string]interface{}{"component": "generator"}),
	}
}

// Complete generates a chat answer from a system instruction and a user
// prompt. An empty completion degrades to a fixed fallback answer rather
// than an error.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	}

	resp, err := c.createWithRetry(ctx, req)
	if err != nil {
		return "", err
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		text = fallbackAnswer
	}
	return text, nil
}

// ClassifyYesNo asks the classifier model a yes/no question and reports the
// verdict. The answer is matched on its first token only.
func (c *Client) ClassifyYesNo(ctx context.Context, prompt string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model:       c.classifierModel,
		Temperature: 0.01,
		MaxTokens:   3,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}

	resp, err := c.createWithRetry(ctx, req)
	if err != nil {
		return false, err
	}

	answer := strings.ToUpper(strings.TrimSpace(resp.Choices[0].Message.Content))
	return strings.HasPrefix(answer, "YES"), nil
}

func (c *Client) createWithRetry(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	var resp openai.ChatCompletionResponse
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return resp, ErrGenerationTimeout
			}
		}

		resp, lastErr = c.api.CreateChatCompletion(ctx, req)
		if lastErr == nil && len(resp.Choices) > 0 {
			return resp, nil
		}
		if lastErr == nil {
			lastErr = fmt.Errorf("empty choices in response")
		}

		if ctx.Err() != nil {
			return resp, ErrGenerationTimeout
		}

		c.logger.Warn("completion attempt failed", map[string]interface{}{
			"attempt": attempt,
			"error":   lastErr.Error(),
		})
	}

	if ctx.Err() == context.DeadlineExceeded {
		return resp, ErrGenerationTimeout
	}
	return resp, fmt.Errorf("%w: %v", ErrGenerationFailed, lastErr)
}
