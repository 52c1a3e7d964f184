package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"pdfchat/internal/domain"
)

// Metric identifies the distance function used for retrieval.
type Metric string

const (
	MetricCosine    Metric = "cosine"
	MetricEuclidean Metric = "euclidean"
)

// Builder builds brute-force in-memory indexes with the configured metric.
type Builder struct {
	metric   Metric
	distance func(a, b []float32) float64
}

// NewBuilder validates the metric name and returns a Builder.
// An empty metric selects cosine distance.
func NewBuilder(metric Metric) (*Builder, error) {
	switch metric {
	case MetricCosine, "":
		return &Builder{metric: MetricCosine, distance: CosineDistance}, nil
	case MetricEuclidean:
		return &Builder{metric: MetricEuclidean, distance: EuclideanDistance}, nil
	default:
		return nil, fmt.Errorf("%w: unknown metric %q", domain.ErrInvalidConfig, metric)
	}
}

// Build copies the chunks into an immutable index. Every embedding must have
// the same length as the first or Build fails with a dimension mismatch.
func (b *Builder) Build(ctx context.Context, chunks []domain.Chunk) (domain.Index, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	idx := &index{distance: b.distance}
	if len(chunks) == 0 {
		return idx, nil
	}
	idx.dimension = len(chunks[0].Embedding)
	if idx.dimension == 0 {
		return nil, fmt.Errorf("%w: chunk %s has no embedding", domain.ErrDimensionMismatch, chunks[0].ID)
	}
	for _, ch := range chunks {
		if len(ch.Embedding) != idx.dimension {
			return nil, fmt.Errorf("%w: chunk %s has dimension %d, want %d",
				domain.ErrDimensionMismatch, ch.ID, len(ch.Embedding), idx.dimension)
		}
	}
	idx.chunks = make([]domain.Chunk, len(chunks))
	copy(idx.chunks, chunks)
	return idx, nil
}

// index is a read-only brute-force vector index. The mutex only guards
// against Close racing an in-flight Query after session teardown.
type index struct {
	mu        sync.RWMutex
	chunks    []domain.Chunk
	dimension int
	distance  func(a, b []float32) float64
}

func (i *index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.chunks)
}

// Query returns the k nearest chunks sorted ascending by distance. Ties are
// broken by insertion order; k larger than the index returns everything.
func (i *index) Query(ctx context.Context, vector []float32, k int) ([]domain.ScoredChunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	i.mu.RLock()
	defer i.mu.RUnlock()
	if len(i.chunks) == 0 {
		return nil, nil
	}
	if len(vector) != i.dimension {
		return nil, fmt.Errorf("%w: query vector has dimension %d, want %d",
			domain.ErrDimensionMismatch, len(vector), i.dimension)
	}
	scored := make([]domain.ScoredChunk, len(i.chunks))
	for j, ch := range i.chunks {
		scored[j] = domain.ScoredChunk{Chunk: ch, Distance: i.distance(ch.Embedding, vector)}
	}
	sort.SliceStable(scored, func(a, b int) bool { return scored[a].Distance < scored[b].Distance })
	if k <= 0 || k > len(scored) {
		k = len(scored)
	}
	return scored[:k], nil
}

func (i *index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.chunks = nil
	return nil
}

// CosineDistance is 1 minus cosine similarity: 0 for identical direction,
// up to 2 for opposite direction.
func CosineDistance(a, b []float32) float64 {
	var dot, normA, normB float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}

// EuclideanDistance is the L2 distance between two vectors.
func EuclideanDistance(a, b []float32) float64 {
	var sum float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
