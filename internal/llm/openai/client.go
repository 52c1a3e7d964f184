package openai

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"pdfchat/internal/domain"
)

// Client calls a hosted chat-completion endpoint. Any OpenAI-compatible
// provider works; pointing BaseURL at Groq's endpoint reproduces the
// original deployment.
type Client struct {
	client      openai.Client
	model       string
	temperature float64
	maxTokens   int64
	timeout     time.Duration
	maxRetries  uint64
}

const (
	// DefaultModel mirrors the original deployment's recommended model.
	DefaultModel = "llama-3.1-8b-instant"
	// GroqBaseURL is the OpenAI-compatible Groq endpoint.
	GroqBaseURL = "https://api.groq.com/openai/v1"
)

// Config configures the chat-completion client.
type Config struct {
	BaseURL     string
	APIKeyEnv   string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	MaxRetries  int
}

// NewClient reads the API key from the configured env var and builds a client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = "GROQ_API_KEY"
	}
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("%w: missing API key in env %s", domain.ErrInvalidConfig, cfg.APIKeyEnv)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2000
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	opts := []option.RequestOption{option.WithAPIKey(key), option.WithMaxRetries(0)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Client{
		client:      openai.NewClient(opts...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   int64(cfg.MaxTokens),
		timeout:     cfg.Timeout,
		maxRetries:  uint64(cfg.MaxRetries),
	}, nil
}

// Generate performs a single completion call with bounded retries.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature:         openai.Float(c.temperature),
		MaxCompletionTokens: openai.Int(c.maxTokens),
	}

	var resp *openai.ChatCompletion
	op := func() error {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		var err error
		resp, err = c.client.Chat.Completions.New(callCtx, params)
		return err
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInferenceUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty completion", domain.ErrInferenceUnavailable)
	}
	return resp.Choices[0].Message.Content, nil
}
