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

// Client generates embeddings through an OpenAI-compatible endpoint.
// Inputs are re-batched transparently to the provider batch cap and each
// batch call is retried a bounded number of times with exponential backoff.
type Client struct {
	client     openai.Client
	model      string
	dimension  int
	maxBatch   int
	timeout    time.Duration
	maxRetries uint64
}

const (
	// DefaultModel is used when no embedding model is configured.
	DefaultModel = "text-embedding-3-small"
	// DefaultDimension matches the default model.
	DefaultDimension = 1536
	// DefaultMaxBatch is the provider's embedding batch cap.
	DefaultMaxBatch = 100
)

// Config configures the embeddings client.
type Config struct {
	BaseURL    string
	APIKeyEnv  string
	Model      string
	Dimension  int
	MaxBatch   int
	Timeout    time.Duration
	MaxRetries int
}

// NewClient reads the API key from the configured env var and builds a client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = "OPENAI_API_KEY"
	}
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("%w: missing API key in env %s", domain.ErrInvalidConfig, cfg.APIKeyEnv)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = DefaultDimension
	}
	if cfg.MaxBatch <= 0 || cfg.MaxBatch > DefaultMaxBatch {
		cfg.MaxBatch = DefaultMaxBatch
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
		client:     openai.NewClient(opts...),
		model:      cfg.Model,
		dimension:  cfg.Dimension,
		maxBatch:   cfg.MaxBatch,
		timeout:    cfg.Timeout,
		maxRetries: uint64(cfg.MaxRetries),
	}, nil
}

// Name returns the identifier of this embedder implementation.
func (c *Client) Name() string { return "openai" }

// Dimension returns the dimensionality of the produced embedding vectors.
func (c *Client) Dimension() int { return c.dimension }

// Embed returns one vector per input text, in input order. Provider limits
// never surface to the caller: oversized inputs are split into batches.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.maxBatch {
		end := start + c.maxBatch
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := c.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (c *Client) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	params := openai.EmbeddingNewParams{
		Model:      openai.EmbeddingModel(c.model),
		Input:      openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: batch},
		Dimensions: openai.Int(int64(c.dimension)),
	}

	var resp *openai.CreateEmbeddingResponse
	op := func() error {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		var err error
		resp, err = c.client.Embeddings.New(callCtx, params)
		return err
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingUnavailable, err)
	}
	if len(resp.Data) != len(batch) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d inputs", domain.ErrEmbeddingUnavailable, len(resp.Data), len(batch))
	}

	vecs := make([][]float32, len(resp.Data))
	for _, data := range resp.Data {
		vec := make([]float32, len(data.Embedding))
		for i, v := range data.Embedding {
			vec[i] = float32(v)
		}
		vecs[data.Index] = vec
	}
	return vecs, nil
}
