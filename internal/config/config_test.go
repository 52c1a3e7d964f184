package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfchat/internal/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Embedder.Type)
	assert.Equal(t, "memory", cfg.VectorStore.Type)
	assert.Equal(t, "cosine", cfg.VectorStore.Distance)
	assert.Equal(t, 600, cfg.Chunker.ChunkSize)
	assert.Equal(t, 80, cfg.Chunker.Overlap)
	assert.Equal(t, 2, cfg.Retriever.TopK)
	assert.Equal(t, "llama-3.1-8b-instant", cfg.LLM.Model)
	assert.Equal(t, 0.1, cfg.LLM.Temperature)
	assert.Equal(t, 2000, cfg.LLM.MaxTokens)
	assert.Equal(t, 4, cfg.Answer.HistoryWindow)
}

func TestLoadAppliesDefaultsToPartialConfig(t *testing.T) {
	path := writeConfig(t, `
embedder:
  type: openai
llm:
  model: openai/gpt-oss-20b
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	require.NotNil(t, cfg.Embedder.OpenAI)
	assert.Equal(t, "OPENAI_API_KEY", cfg.Embedder.OpenAI.APIKeyEnv)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedder.OpenAI.Model)
	assert.Equal(t, 4000, cfg.LLM.MaxTokens, "max tokens follow the model preset")
}

func TestLoadRejectsUnknownEmbedder(t *testing.T) {
	path := writeConfig(t, "embedder:\n  type: quantum\n")
	_, err := Load(path)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestLoadRejectsOverlapNotSmallerThanChunkSize(t *testing.T) {
	path := writeConfig(t, "chunker:\n  chunk_size: 100\n  overlap: 100\n")
	_, err := Load(path)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestLoadRejectsQdrantWithoutURL(t *testing.T) {
	path := writeConfig(t, "vector_store:\n  type: qdrant\n")
	_, err := Load(path)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := writeConfig(t, "embedder: [unclosed\n")
	_, err := Load(path)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestSaveRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	cfg := Default()
	cfg.Retriever.TopK = 5
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, loaded.Retriever.TopK)
}

func TestMaxTokensForUnknownModelFallsBack(t *testing.T) {
	assert.Equal(t, 2000, MaxTokensFor("some-new-model"))
}
