package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfchat/internal/domain"
)

func TestBuildQueryClose(t *testing.T) {
	var created, deleted []string
	var upserts int
	mux := http.NewServeMux()
	mux.HandleFunc("/collections/", func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/collections/"), "/")
		name := parts[0]
		switch {
		case r.Method == http.MethodPut && len(parts) == 1:
			created = append(created, name)
			json.NewEncoder(w).Encode(map[string]any{"result": true, "status": "ok"})
		case r.Method == http.MethodPut && parts[1] == "points":
			upserts++
			var body struct {
				Points []map[string]any `json:"points"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Len(t, body.Points, 2)
			json.NewEncoder(w).Encode(map[string]any{"result": true, "status": "ok"})
		case r.Method == http.MethodPost && parts[1] == "points":
			json.NewEncoder(w).Encode(map[string]any{
				"result": []map[string]any{
					{
						"score": 0.97,
						"payload": map[string]any{
							"chunk_id": "doc:0", "document_id": "doc", "source": "a.pdf",
							"page": 1, "seq": 0, "text": "Paris is the capital of France.",
						},
					},
				},
			})
		case r.Method == http.MethodDelete:
			deleted = append(deleted, name)
			json.NewEncoder(w).Encode(map[string]any{"result": true, "status": "ok"})
		default:
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	b, err := NewBuilder(Config{URL: srv.URL})
	require.NoError(t, err)

	chunks := []domain.Chunk{
		{ID: "doc:0", DocumentID: "doc", Source: "a.pdf", Page: 1, Seq: 0, Text: "Paris is the capital of France.", Embedding: []float32{1, 0}},
		{ID: "doc:1", DocumentID: "doc", Source: "a.pdf", Page: 1, Seq: 1, Text: "It has a population of over 2 million.", Embedding: []float32{0, 1}},
	}
	idx, err := b.Build(context.Background(), chunks)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, 1, upserts)
	assert.Equal(t, 2, idx.Len())

	res, err := idx.Query(context.Background(), []float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "doc:0", res[0].Chunk.ID)
	assert.Equal(t, "a.pdf", res[0].Chunk.Source)
	assert.InDelta(t, 0.03, res[0].Distance, 1e-9)

	require.NoError(t, idx.Close())
	require.Len(t, deleted, 1)
	assert.Equal(t, created[0], deleted[0])
}

func TestBuildRejectsRaggedEmbeddings(t *testing.T) {
	b, err := NewBuilder(Config{URL: "http://localhost:6333"})
	require.NoError(t, err)
	_, err = b.Build(context.Background(), []domain.Chunk{
		{ID: "a", Embedding: []float32{1, 0}},
		{ID: "b", Embedding: []float32{1}},
	})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestNewBuilderRequiresURL(t *testing.T) {
	_, err := NewBuilder(Config{})
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestEmptyIndexSkipsNetwork(t *testing.T) {
	b, err := NewBuilder(Config{URL: "http://localhost:1"})
	require.NoError(t, err)
	idx, err := b.Build(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, idx.Len())
	res, err := idx.Query(context.Background(), []float32{1}, 3)
	require.NoError(t, err)
	assert.Empty(t, res)
	assert.NoError(t, idx.Close())
}
