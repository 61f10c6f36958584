package ai

import (
	"context"
	"log/slog"
	"strings"

	"github.com/myrjola/turtlesoup/internal/errors"
	"github.com/sashabaranov/go-openai"
)

const MaxTokens = 1024

const DefaultModel = "gpt-4o-mini"

// DefaultTemperature matches the sampling used in the reference experiments.
const DefaultTemperature = 0.7

// ClientConfig configures an OpenAI compatible chat completion endpoint.
type ClientConfig struct {
	APIKey string
	// BaseURL overrides the OpenAI endpoint to target another OpenAI compatible API. Empty uses the default.
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
}

// Client invokes an OpenAI compatible chat completion API.
type Client struct {
	client *openai.Client
	config ClientConfig
	logger *slog.Logger
}

func NewClient(config ClientConfig, logger *slog.Logger) *Client {
	openaiConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		openaiConfig.BaseURL = config.BaseURL
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = MaxTokens
	}
	return &Client{
		client: openai.NewClientWithConfig(openaiConfig),
		config: config,
		logger: logger.With("source", "ai.Client", "model", config.Model),
	}
}

// Invoke sends the request as a system and user message pair and returns the text of the first choice.
func (c *Client) Invoke(ctx context.Context, req Request) (string, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: req.System},
		{Role: openai.ChatMessageRoleUser, Content: req.User},
	}
	completion, err := c.SyncCompletion(ctx, messages)
	if err != nil {
		return "", err
	}
	if len(completion.Choices) == 0 {
		return "", errors.Wrap(ErrEmptyResponse, "no choices", slog.String("role", string(req.Role)))
	}
	content := strings.TrimSpace(completion.Choices[0].Message.Content)
	if content == "" {
		return "", errors.Wrap(ErrEmptyResponse, "empty content", slog.String("role", string(req.Role)))
	}
	c.logger.LogAttrs(ctx, slog.LevelDebug, "completed request",
		slog.String("role", string(req.Role)),
		slog.Int("prompt_tokens", completion.Usage.PromptTokens),
		slog.Int("completion_tokens", completion.Usage.CompletionTokens))
	return content, nil
}

func (c *Client) SyncCompletion(
	ctx context.Context,
	messages []openai.ChatCompletionMessage,
) (openai.ChatCompletionResponse, error) {
	completion, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{ //nolint:exhaustruct // this is better for readability
			Model:       c.config.Model,
			MaxTokens:   c.config.MaxTokens,
			Temperature: c.config.Temperature,
			Messages:    messages,
		},
	)
	if err != nil {
		return openai.ChatCompletionResponse{}, errors.Wrap(err, "create chat completion",
			slog.String("model", c.config.Model))
	}
	return completion, nil
}
