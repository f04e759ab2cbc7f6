// Package llm wraps the hosted chat-completion provider. The endpoint
// speaks the OpenAI wire format; the base URL points at Cerebras by
// default but any compatible provider works.
package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/mx32-chat/backend/pkg/logger"
)

// Message is one turn handed to the provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Options are the fixed generation parameters. They come from
// configuration, never computed per request.
type Options struct {
	Temperature     float32
	MaxTokens       int
	TopP            float32
	ReasoningEffort string
	Stream          bool
}

// ProviderError carries the provider's status and body so callers can
// degrade gracefully instead of crashing on a raw error.
type ProviderError struct {
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider returned status %d: %s", e.StatusCode, e.Body)
}

type Client struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

func NewClient(apiKey, baseURL, model string, timeoutSec int) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	timeout := time.Duration(timeoutSec) * time.Second
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	logger.Info("LLM client initialized",
		zap.String("model", model),
		zap.String("base_url", cfg.BaseURL),
	)

	return &Client{
		client:  openai.NewClientWithConfig(cfg),
		model:   model,
		timeout: timeout,
	}
}

// ChatCompletion sends the message sequence and returns the completion
// text. With opts.Stream set, deltas are accumulated server-side so the
// caller still receives one string. No retries here: provider failures
// surface immediately as a typed error.
func (c *Client) ChatCompletion(ctx context.Context, messages []Message, opts Options) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model:           c.model,
		Messages:        toOpenAI(messages),
		Temperature:     opts.Temperature,
		MaxTokens:       opts.MaxTokens,
		TopP:            opts.TopP,
		ReasoningEffort: opts.ReasoningEffort,
	}

	if opts.Stream {
		return c.streamCompletion(ctx, req)
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", wrapProviderError(err)
	}
	if len(resp.Choices) == 0 {
		return "", &ProviderError{StatusCode: 200, Body: "empty choices"}
	}

	logger.Debug("Chat completion generated",
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)

	return resp.Choices[0].Message.Content, nil
}

func (c *Client) streamCompletion(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	req.Stream = true

	stream, err := c.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return "", wrapProviderError(err)
	}
	defer stream.Close()

	var content string
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", wrapProviderError(err)
		}
		if len(chunk.Choices) > 0 {
			content += chunk.Choices[0].Delta.Content
		}
	}

	return content, nil
}

func wrapProviderError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &ProviderError{StatusCode: apiErr.HTTPStatusCode, Body: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &ProviderError{StatusCode: reqErr.HTTPStatusCode, Body: reqErr.Error()}
	}
	return fmt.Errorf("provider request failed: %w", err)
}

func toOpenAI(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	return out
}
