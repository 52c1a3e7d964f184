package summarizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeBoundsSentenceCount(t *testing.T) {
	s := New()
	text := "Paris is the capital of France. Paris has many museums. " +
		"The Seine flows through Paris. Tourists love Paris. Bread is nice."
	out, err := s.Summarize(text, 2)
	require.NoError(t, err)
	assert.LessOrEqual(t, strings.Count(out, "."), 2)
	assert.NotEmpty(t, out)
}

func TestSummarizeKeepsDocumentOrder(t *testing.T) {
	s := New()
	text := "Alpha topic sentence one. Beta filler. Alpha topic sentence two."
	out, err := s.Summarize(text, 2)
	require.NoError(t, err)
	first := strings.Index(out, "one")
	second := strings.Index(out, "two")
	if first >= 0 && second >= 0 {
		assert.Less(t, first, second)
	}
}

func TestSummarizeNoSentences(t *testing.T) {
	s := New()
	out, err := s.Summarize("just words without punctuation", 3)
	require.NoError(t, err)
	assert.Equal(t, "just words without punctuation", out)
}
