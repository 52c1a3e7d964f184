package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"pdfchat/internal/domain"
)

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	Dimension   int    `yaml:"dimension"`
	BatchSize   int    `yaml:"batch_size"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries"`
}

// LocalEmbedderConfig holds configuration for the offline hashing embedder.
type LocalEmbedderConfig struct {
	Dimension int `yaml:"dimension"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type   string                `yaml:"type"`
	OpenAI *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
	Local  *LocalEmbedderConfig  `yaml:"local,omitempty"`
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	ChunkSize int `yaml:"chunk_size"`
	Overlap   int `yaml:"overlap"`
	Tolerance int `yaml:"tolerance"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type     string        `yaml:"type"`
	Distance string        `yaml:"distance"`
	Qdrant   *QdrantConfig `yaml:"qdrant,omitempty"`
}

// RetrieverConfig tunes nearest-neighbor retrieval.
type RetrieverConfig struct {
	TopK int `yaml:"top_k"`
}

// LLMConfig configures the chat-completion provider.
type LLMConfig struct {
	BaseURL     string  `yaml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	TimeoutSecs int     `yaml:"timeout_secs"`
	MaxRetries  int     `yaml:"max_retries"`
}

// AnswerConfig tunes prompt assembly.
type AnswerConfig struct {
	TokenBudget   int `yaml:"token_budget"`
	HistoryWindow int `yaml:"history_window"`
}

// SummarizerConfig configures the ingest summary.
type SummarizerConfig struct {
	MaxSentences int `yaml:"max_sentences"`
}

// ServerConfig configures the HTTP front end.
type ServerConfig struct {
	Addr            string `yaml:"addr"`
	MaxUploadMB     int    `yaml:"max_upload_mb"`
	ShutdownSecs    int    `yaml:"shutdown_secs"`
	SessionCapacity int    `yaml:"session_capacity"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Embedder    EmbedderConfig    `yaml:"embedder"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Retriever   RetrieverConfig   `yaml:"retriever"`
	LLM         LLMConfig         `yaml:"llm"`
	Answer      AnswerConfig      `yaml:"answer"`
	Summarizer  SummarizerConfig  `yaml:"summarizer"`
	Server      ServerConfig      `yaml:"server"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// modelMaxTokens are per-model completion caps for the hosted chat models the
// app is commonly pointed at. Unknown models fall back to the default cap.
var modelMaxTokens = map[string]int{
	"llama-3.1-8b-instant":          2000,
	"llama-3.3-70b-versatile":       2000,
	"openai/gpt-oss-20b":            4000,
	"qwen/qwen3-32b":                4000,
	"deepseek-r1-distill-llama-70b": 4000,
}

// Models lists the chat models with known completion caps.
func Models() []string {
	out := make([]string, 0, len(modelMaxTokens))
	for m := range modelMaxTokens {
		out = append(out, m)
	}
	return out
}

// MaxTokensFor returns the completion cap for a model.
func MaxTokensFor(model string) int {
	if n, ok := modelMaxTokens[model]; ok {
		return n
	}
	return 2000
}

// Load reads a config from a specified path. If the file does not exist,
// returns defaults. The loaded config is validated; a config that would
// build a broken pipeline is rejected here rather than at first use.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/pdfchat/config.yaml.
// If neither exists, it writes defaults to the user path and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := Default()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate rejects configs that cannot produce a working pipeline.
func (cfg *AppConfig) Validate() error {
	switch cfg.Embedder.Type {
	case "local", "openai":
	default:
		return fmt.Errorf("%w: unknown embedder type %q", domain.ErrInvalidConfig, cfg.Embedder.Type)
	}
	if cfg.Chunker.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk_size must be positive", domain.ErrInvalidConfig)
	}
	if cfg.Chunker.Overlap < 0 || cfg.Chunker.Overlap >= cfg.Chunker.ChunkSize {
		return fmt.Errorf("%w: overlap must be in [0, chunk_size)", domain.ErrInvalidConfig)
	}
	switch cfg.VectorStore.Type {
	case "memory":
	case "qdrant":
		if cfg.VectorStore.Qdrant == nil || cfg.VectorStore.Qdrant.URL == "" {
			return fmt.Errorf("%w: qdrant vector store requires a url", domain.ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown vector store type %q", domain.ErrInvalidConfig, cfg.VectorStore.Type)
	}
	switch cfg.VectorStore.Distance {
	case "cosine", "euclidean":
	default:
		return fmt.Errorf("%w: unknown distance %q", domain.ErrInvalidConfig, cfg.VectorStore.Distance)
	}
	if cfg.Retriever.TopK <= 0 {
		return fmt.Errorf("%w: top_k must be positive", domain.ErrInvalidConfig)
	}
	if cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 2 {
		return fmt.Errorf("%w: temperature must be in [0, 2]", domain.ErrInvalidConfig)
	}
	if cfg.Answer.TokenBudget <= 0 {
		return fmt.Errorf("%w: token_budget must be positive", domain.ErrInvalidConfig)
	}
	return nil
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "pdfchat", "config.yaml"), nil
}

// Default returns the configuration used when no file is present: the
// offline embedder and in-memory store, pointed at Groq for generation.
func Default() *AppConfig {
	cfg := &AppConfig{
		Embedder:    EmbedderConfig{Type: "local"},
		VectorStore: VectorStoreConfig{Type: "memory"},
	}
	applyDefaults(cfg)
	return cfg
}

// LLMTimeout returns the configured request timeout.
func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "local"
	}
	if cfg.Embedder.Type == "openai" {
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{}
		}
		o := cfg.Embedder.OpenAI
		if o.APIKeyEnv == "" {
			o.APIKeyEnv = "OPENAI_API_KEY"
		}
		if o.Model == "" {
			o.Model = "text-embedding-3-small"
		}
		if o.TimeoutSecs == 0 {
			o.TimeoutSecs = 30
		}
		if o.BatchSize == 0 {
			o.BatchSize = 100
		}
	}
	if cfg.Chunker.ChunkSize == 0 {
		cfg.Chunker.ChunkSize = 600
	}
	if cfg.Chunker.Overlap == 0 {
		cfg.Chunker.Overlap = 80
	}
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "memory"
	}
	if cfg.VectorStore.Distance == "" {
		cfg.VectorStore.Distance = "cosine"
	}
	if cfg.VectorStore.Type == "qdrant" && cfg.VectorStore.Qdrant != nil {
		if cfg.VectorStore.Qdrant.TimeoutSecs == 0 {
			cfg.VectorStore.Qdrant.TimeoutSecs = 15
		}
	}
	if cfg.Retriever.TopK == 0 {
		cfg.Retriever.TopK = 2
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "https://api.groq.com/openai/v1"
	}
	if cfg.LLM.APIKeyEnv == "" {
		cfg.LLM.APIKeyEnv = "GROQ_API_KEY"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "llama-3.1-8b-instant"
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = 0.1
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = MaxTokensFor(cfg.LLM.Model)
	}
	if cfg.LLM.TimeoutSecs == 0 {
		cfg.LLM.TimeoutSecs = 30
	}
	if cfg.LLM.MaxRetries == 0 {
		cfg.LLM.MaxRetries = 3
	}
	if cfg.Answer.TokenBudget == 0 {
		cfg.Answer.TokenBudget = 6000
	}
	if cfg.Answer.HistoryWindow == 0 {
		cfg.Answer.HistoryWindow = 4
	}
	if cfg.Summarizer.MaxSentences == 0 {
		cfg.Summarizer.MaxSentences = 3
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.MaxUploadMB == 0 {
		cfg.Server.MaxUploadMB = 32
	}
	if cfg.Server.ShutdownSecs == 0 {
		cfg.Server.ShutdownSecs = 10
	}
	if cfg.Server.SessionCapacity == 0 {
		cfg.Server.SessionCapacity = 64
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}
