package answer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter measures prompt size for budget enforcement.
type TokenCounter interface {
	Count(text string) int
}

// TiktokenCounter counts tokens with the cl100k_base encoding.
type TiktokenCounter struct {
	encoding *tiktoken.Tiktoken
}

// NewTiktokenCounter loads the cl100k_base encoding.
func NewTiktokenCounter() (*TiktokenCounter, error) {
	encoding, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("load tiktoken encoding: %w", err)
	}
	return &TiktokenCounter{encoding: encoding}, nil
}

// Count returns the number of tokens in text.
func (tc *TiktokenCounter) Count(text string) int {
	return len(tc.encoding.Encode(text, nil, nil))
}

// EstimateCounter approximates tokens as characters divided by four, the
// original deployment's fallback when no encoder was available.
type EstimateCounter struct{}

// Count returns the estimated number of tokens in text.
func (EstimateCounter) Count(text string) int {
	n := len([]rune(text)) / 4
	if n == 0 && text != "" {
		n = 1
	}
	return n
}

// NewTokenCounter returns a tiktoken-backed counter, falling back to the
// character estimate when the encoding cannot be loaded.
func NewTokenCounter() TokenCounter {
	tc, err := NewTiktokenCounter()
	if err != nil {
		return EstimateCounter{}
	}
	return tc
}
