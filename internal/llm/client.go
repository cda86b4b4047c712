package llm

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/artyone/relaybot/internal/session"
)

// Defaults applied by NewClient when the corresponding Config field is zero.
const (
	// DefaultModel is the completion model used when none is configured.
	DefaultModel = "llama3-70b-8192"

	// DefaultTemperature keeps responses close to deterministic.
	DefaultTemperature = 0.1

	// DefaultTimeout bounds a single completion call.
	DefaultTimeout = 60 * time.Second
)

// Config holds configuration for the completion client.
type Config struct {
	APIKey      string
	BaseURL     string // Empty means the provider's default endpoint.
	Model       string
	Temperature float32
	Timeout     time.Duration
}

// Client calls an OpenAI-compatible chat-completion API. A single attempt
// is made per request; retry policy belongs to callers.
type Client struct {
	api         *openai.Client
	model       string
	temperature float32
	timeout     time.Duration
}

// NewClient creates a completion client from config.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = DefaultTemperature
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		api:         openai.NewClientWithConfig(apiCfg),
		model:       model,
		temperature: temperature,
		timeout:     timeout,
	}, nil
}

// Complete sends the ordered turn list to the backend and returns the
// assistant reply. Any failure, including timeout, is reported as
// ErrBackendUnavailable.
func (c *Client) Complete(ctx context.Context, turns []session.Turn) (string, error) {
	if len(turns) == 0 {
		return "", fmt.Errorf("%w: empty request", ErrBackendUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    convertTurns(turns),
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: response contained no choices", ErrBackendUnavailable)
	}

	return resp.Choices[0].Message.Content, nil
}

func convertTurns(turns []session.Turn) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(turns))
	for _, t := range turns {
		role := openai.ChatMessageRoleUser
		switch t.Role {
		case session.RoleSystem:
			role = openai.ChatMessageRoleSystem
		case session.RoleAssistant:
			role = openai.ChatMessageRoleAssistant
		case session.RoleUser:
			role = openai.ChatMessageRoleUser
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: t.Content})
	}
	return out
}
