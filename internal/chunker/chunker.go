package chunker

import (
	"fmt"
	"strings"

	"pdfchat/internal/domain"
)

// CharacterChunker splits text into rune-based chunks of at most chunkSize
// with consecutive chunks overlapping by exactly overlap runes. Cuts prefer
// a sentence boundary found within a tolerance window before the hard cut.
type CharacterChunker struct {
	chunkSize int
	overlap   int
	tolerance int
}

// DefaultTolerancePercent is the share of the chunk size searched backwards
// for a sentence boundary before falling back to a hard cut.
const DefaultTolerancePercent = 25

// New validates the chunking parameters and returns a chunker.
// tolerance <= 0 selects the default window; tolerance is clamped so a
// boundary cut can never shrink a chunk below overlap+1 runes.
func New(chunkSize, overlap, tolerance int) (*CharacterChunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size %d must be positive", domain.ErrInvalidConfig, chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("%w: overlap %d must be in [0, %d)", domain.ErrInvalidConfig, overlap, chunkSize)
	}
	if tolerance <= 0 {
		tolerance = chunkSize * DefaultTolerancePercent / 100
	}
	if tolerance >= chunkSize-overlap {
		tolerance = chunkSize - overlap - 1
	}
	return &CharacterChunker{chunkSize: chunkSize, overlap: overlap, tolerance: tolerance}, nil
}

// Split covers the entire input: concatenating the first chunk with every
// later chunk minus its first overlap runes reconstructs the input exactly.
func (c *CharacterChunker) Split(text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	runes := []rune(text)
	var chunks []string
	start := 0
	for {
		end := start + c.chunkSize
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			return chunks, nil
		}
		cut := c.boundaryCut(runes, start, end)
		chunks = append(chunks, string(runes[start:cut]))
		start = cut - c.overlap
	}
}

// boundaryCut searches backwards from the hard cut for a sentence boundary
// within the tolerance window. The cut always lands after start+overlap so
// every step makes progress.
func (c *CharacterChunker) boundaryCut(runes []rune, start, end int) int {
	for i := end; i > end-c.tolerance && i > start+c.overlap+1; i-- {
		if isBoundary(runes[i-1]) {
			return i
		}
	}
	return end
}

func isBoundary(r rune) bool {
	switch r {
	case '.', '!', '?', '\n':
		return true
	}
	return false
}
