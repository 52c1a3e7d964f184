// Package app assembles the pipeline from configuration. Both the TUI and
// the HTTP server build their sessions through here.
package app

import (
	"fmt"
	"log/slog"
	"time"

	"pdfchat/internal/answer"
	"pdfchat/internal/chunker"
	"pdfchat/internal/config"
	"pdfchat/internal/domain"
	"pdfchat/internal/embedding/local"
	embopenai "pdfchat/internal/embedding/openai"
	"pdfchat/internal/extract"
	llmopenai "pdfchat/internal/llm/openai"
	"pdfchat/internal/session"
	"pdfchat/internal/summarizer"
	"pdfchat/internal/vectorstore/memory"
	"pdfchat/internal/vectorstore/qdrant"
)

// BuildComponents wires every pipeline collaborator from the config.
func BuildComponents(cfg *config.AppConfig) (session.Components, error) {
	ch, err := chunker.New(cfg.Chunker.ChunkSize, cfg.Chunker.Overlap, cfg.Chunker.Tolerance)
	if err != nil {
		return session.Components{}, err
	}

	embedder, err := buildEmbedder(cfg.Embedder)
	if err != nil {
		return session.Components{}, err
	}

	builder, err := buildIndexBuilder(cfg.VectorStore)
	if err != nil {
		return session.Components{}, err
	}

	llm, err := llmopenai.NewClient(llmopenai.Config{
		BaseURL:     cfg.LLM.BaseURL,
		APIKeyEnv:   cfg.LLM.APIKeyEnv,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.LLM.Timeout(),
		MaxRetries:  cfg.LLM.MaxRetries,
	})
	if err != nil {
		return session.Components{}, err
	}

	return session.Components{
		Extractor:  extract.New(),
		Chunker:    ch,
		Embedder:   embedder,
		Builder:    builder,
		Answerer:   answer.New(llm, answer.NewTokenCounter(), cfg.Answer.TokenBudget, cfg.Answer.HistoryWindow),
		Summarizer: summarizer.New(),
	}, nil
}

// NewSessionFactory returns a factory producing sessions over shared components.
func NewSessionFactory(cfg *config.AppConfig, c session.Components, log *slog.Logger) session.Factory {
	return func(id string) *session.Session {
		return session.New(id, c, session.Options{
			TopK:             cfg.Retriever.TopK,
			SummarySentences: cfg.Summarizer.MaxSentences,
			Logger:           log,
		})
	}
}

func buildEmbedder(cfg config.EmbedderConfig) (domain.Embedder, error) {
	switch cfg.Type {
	case "local":
		dimension := 0
		if cfg.Local != nil {
			dimension = cfg.Local.Dimension
		}
		return local.NewEmbedder(dimension), nil
	case "openai":
		o := cfg.OpenAI
		if o == nil {
			o = &config.OpenAIEmbedderConfig{}
		}
		return embopenai.NewClient(embopenai.Config{
			BaseURL:    o.BaseURL,
			APIKeyEnv:  o.APIKeyEnv,
			Model:      o.Model,
			Dimension:  o.Dimension,
			MaxBatch:   o.BatchSize,
			Timeout:    time.Duration(o.TimeoutSecs) * time.Second,
			MaxRetries: o.MaxRetries,
		})
	default:
		return nil, fmt.Errorf("%w: unknown embedder type %q", domain.ErrInvalidConfig, cfg.Type)
	}
}

func buildIndexBuilder(cfg config.VectorStoreConfig) (domain.IndexBuilder, error) {
	switch cfg.Type {
	case "memory":
		return memory.NewBuilder(memory.Metric(cfg.Distance))
	case "qdrant":
		q := cfg.Qdrant
		if q == nil {
			return nil, fmt.Errorf("%w: qdrant vector store requires connection details", domain.ErrInvalidConfig)
		}
		return qdrant.NewBuilder(qdrant.Config{
			URL:       q.URL,
			APIKeyEnv: q.APIKeyEnv,
			Timeout:   time.Duration(q.TimeoutSecs) * time.Second,
		})
	default:
		return nil, fmt.Errorf("%w: unknown vector store type %q", domain.ErrInvalidConfig, cfg.Type)
	}
}
