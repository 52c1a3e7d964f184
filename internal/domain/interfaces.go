package domain

import (
	"context"
	"io"
)

// Extractor turns a document byte stream into extracted text.
type Extractor interface {
	Extract(filename string, r io.Reader) (Document, error)
}

// Chunker splits text into overlapping pieces sized for embedding.
type Chunker interface {
	Split(text string) ([]string, error)
}

// Embedder maps texts to fixed-length vectors, one per input, same order.
type Embedder interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Index is a read-only vector index over a fixed set of chunks.
// Close releases any temporary storage backing the index.
type Index interface {
	Query(ctx context.Context, vector []float32, k int) ([]ScoredChunk, error)
	Len() int
	Close() error
}

// IndexBuilder builds an immutable Index from embedded chunks.
type IndexBuilder interface {
	Build(ctx context.Context, chunks []Chunk) (Index, error)
}

// Generator produces a completion for a fully assembled prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}
