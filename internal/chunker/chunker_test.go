package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfchat/internal/domain"
)

func reconstruct(chunks []string, overlap int) string {
	var b strings.Builder
	for i, ch := range chunks {
		runes := []rune(ch)
		if i > 0 {
			runes = runes[overlap:]
		}
		b.WriteString(string(runes))
	}
	return b.String()
}

func TestSplitReconstructsInput(t *testing.T) {
	texts := []string{
		"Paris is the capital of France. It has a population of over 2 million.",
		strings.Repeat("All work and no play makes Jack a dull boy. ", 40),
		"no punctuation at all just a very long run of words that keeps going and going without any sentence break in sight",
		"héllo wörld. ünïcode—sentences? indeed! " + strings.Repeat("ß", 100),
	}
	cases := []struct{ size, overlap int }{
		{40, 10}, {600, 80}, {800, 100}, {7, 3}, {50, 0},
	}
	for _, tc := range cases {
		c, err := New(tc.size, tc.overlap, 0)
		require.NoError(t, err)
		for _, text := range texts {
			chunks, err := c.Split(text)
			require.NoError(t, err)
			require.NotEmpty(t, chunks)
			assert.Equal(t, text, reconstruct(chunks, tc.overlap),
				"size=%d overlap=%d", tc.size, tc.overlap)
		}
	}
}

func TestSplitChunkBounds(t *testing.T) {
	c, err := New(40, 10, 0)
	require.NoError(t, err)
	text := strings.Repeat("abcdefghij", 20)
	chunks, err := c.Split(text)
	require.NoError(t, err)
	for i, ch := range chunks {
		assert.LessOrEqual(t, len([]rune(ch)), 40)
		if i < len(chunks)-1 {
			// only the last chunk may be short of the full size
			assert.Equal(t, 40, len([]rune(ch)))
		}
	}
}

func TestSplitExactOverlap(t *testing.T) {
	c, err := New(20, 5, 0)
	require.NoError(t, err)
	text := "0123456789abcdefghijklmnopqrstuvwxyz0123456789"
	chunks, err := c.Split(text)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)
	for i := 1; i < len(chunks); i++ {
		prev := []rune(chunks[i-1])
		cur := []rune(chunks[i])
		assert.Equal(t, string(prev[len(prev)-5:]), string(cur[:5]))
	}
}

func TestSplitPrefersSentenceBoundary(t *testing.T) {
	c, err := New(40, 10, 0)
	require.NoError(t, err)
	text := "Paris is the capital of France. It has a population of over 2 million."
	chunks, err := c.Split(text)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)
	// the period at offset 31 lies inside the tolerance window before 40
	assert.Equal(t, "Paris is the capital of France.", chunks[0])
}

func TestSplitEmptyInput(t *testing.T) {
	c, err := New(40, 10, 0)
	require.NoError(t, err)
	chunks, err := c.Split("   \n ")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cases := []struct{ size, overlap int }{
		{0, 0}, {-5, 0}, {10, 10}, {10, 15}, {10, -1},
	}
	for _, tc := range cases {
		_, err := New(tc.size, tc.overlap, 0)
		assert.ErrorIs(t, err, domain.ErrInvalidConfig, "size=%d overlap=%d", tc.size, tc.overlap)
	}
}
