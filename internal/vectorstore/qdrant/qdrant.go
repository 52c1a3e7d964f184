package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"

	"pdfchat/internal/domain"
)

// Builder creates per-session Qdrant collections. Each Build provisions a
// fresh collection so rebuilding replaces the index atomically; Close drops
// the collection, releasing the temporary storage.
type Builder struct {
	url    string
	apiKey string
	client *http.Client
}

// Config contains connection details for a Qdrant instance.
type Config struct {
	URL       string
	APIKeyEnv string
	Timeout   time.Duration
}

// NewBuilder validates the connection config and returns a Builder.
func NewBuilder(cfg Config) (*Builder, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: qdrant url missing", domain.ErrInvalidConfig)
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	var key string
	if cfg.APIKeyEnv != "" {
		key = os.Getenv(cfg.APIKeyEnv)
	}
	return &Builder{
		url:    cfg.URL,
		apiKey: key,
		client: &http.Client{Timeout: timeout},
	}, nil
}

// Build creates a new collection and upserts all chunks into it.
func (b *Builder) Build(ctx context.Context, chunks []domain.Chunk) (domain.Index, error) {
	dimension := 0
	if len(chunks) > 0 {
		dimension = len(chunks[0].Embedding)
		if dimension == 0 {
			return nil, fmt.Errorf("%w: chunk %s has no embedding", domain.ErrDimensionMismatch, chunks[0].ID)
		}
	}
	for _, ch := range chunks {
		if len(ch.Embedding) != dimension {
			return nil, fmt.Errorf("%w: chunk %s has dimension %d, want %d",
				domain.ErrDimensionMismatch, ch.ID, len(ch.Embedding), dimension)
		}
	}

	idx := &index{
		builder:    b,
		collection: "pdfchat-" + uuid.NewString(),
		dimension:  dimension,
		size:       len(chunks),
	}
	if len(chunks) == 0 {
		return idx, nil
	}

	create := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	if err := b.putJSON(ctx, fmt.Sprintf("%s/collections/%s", b.url, idx.collection), create); err != nil {
		return nil, err
	}

	points := make([]map[string]any, len(chunks))
	for i, ch := range chunks {
		points[i] = map[string]any{
			"id":     uuid.NewString(),
			"vector": ch.Embedding,
			"payload": map[string]any{
				"chunk_id":    ch.ID,
				"document_id": ch.DocumentID,
				"source":      ch.Source,
				"page":        ch.Page,
				"seq":         ch.Seq,
				"text":        ch.Text,
			},
		}
	}
	body := map[string]any{"points": points}
	if err := b.putJSON(ctx, fmt.Sprintf("%s/collections/%s/points?wait=true", b.url, idx.collection), body); err != nil {
		_ = idx.Close()
		return nil, err
	}
	return idx, nil
}

// index is a handle to one session-scoped Qdrant collection.
type index struct {
	builder    *Builder
	collection string
	dimension  int
	size       int
}

func (i *index) Len() int { return i.size }

func (i *index) Query(ctx context.Context, vector []float32, k int) ([]domain.ScoredChunk, error) {
	if i.size == 0 {
		return nil, nil
	}
	if len(vector) != i.dimension {
		return nil, fmt.Errorf("%w: query vector has dimension %d, want %d",
			domain.ErrDimensionMismatch, len(vector), i.dimension)
	}
	if k <= 0 {
		k = 5
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	url := fmt.Sprintf("%s/collections/%s/points/search", i.builder.url, i.collection)
	if err := i.builder.postJSON(ctx, url, req, &resp); err != nil {
		return nil, err
	}
	results := make([]domain.ScoredChunk, 0, len(resp.Result))
	for _, r := range resp.Result {
		chunk := domain.Chunk{}
		if v, ok := r.Payload["chunk_id"].(string); ok {
			chunk.ID = v
		}
		if v, ok := r.Payload["document_id"].(string); ok {
			chunk.DocumentID = v
		}
		if v, ok := r.Payload["source"].(string); ok {
			chunk.Source = v
		}
		if v, ok := r.Payload["page"].(float64); ok {
			chunk.Page = int(v)
		}
		if v, ok := r.Payload["seq"].(float64); ok {
			chunk.Seq = int(v)
		}
		if v, ok := r.Payload["text"].(string); ok {
			chunk.Text = v
		}
		// Qdrant reports cosine similarity; retrieval sorts by distance
		results = append(results, domain.ScoredChunk{Chunk: chunk, Distance: 1 - r.Score})
	}
	return results, nil
}

// Close drops the collection. Best effort: the collection may already be gone.
func (i *index) Close() error {
	if i.size == 0 {
		return nil
	}
	url := fmt.Sprintf("%s/collections/%s", i.builder.url, i.collection)
	req, err := http.NewRequest(http.MethodDelete, url, nil)
	if err != nil {
		return err
	}
	i.builder.auth(req)
	resp, err := i.builder.client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func (b *Builder) auth(req *http.Request) {
	if b.apiKey != "" {
		req.Header.Set("api-key", b.apiKey)
	}
}

func (b *Builder) putJSON(ctx context.Context, url string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	b.auth(req)
	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant PUT %s failed: %s", url, resp.Status)
	}
	return nil
}

func (b *Builder) postJSON(ctx context.Context, url string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	b.auth(req)
	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant POST %s failed: %s", url, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
