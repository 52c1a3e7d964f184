package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfchat/internal/domain"
)

func TestExtractPlainText(t *testing.T) {
	e := New()
	doc, err := e.Extract("notes.txt", strings.NewReader("Paris is the capital of France."))
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", doc.Filename)
	require.Len(t, doc.Pages, 1)
	assert.Equal(t, 1, doc.Pages[0].Number)
	assert.Equal(t, "Paris is the capital of France.", doc.Pages[0].Text)
}

func TestExtractStableDocumentID(t *testing.T) {
	e := New()
	a, err := e.Extract("notes.txt", strings.NewReader("content"))
	require.NoError(t, err)
	b, err := e.Extract("notes.txt", strings.NewReader("content"))
	require.NoError(t, err)
	assert.Equal(t, a.ID, b.ID)

	c, err := e.Extract("other.txt", strings.NewReader("content"))
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, c.ID)
}

func TestExtractRejectsBrokenPDF(t *testing.T) {
	e := New()
	_, err := e.Extract("broken.pdf", strings.NewReader("this is not a pdf"))
	assert.ErrorIs(t, err, domain.ErrUnreadableDocument)
}

func TestExtractRejectsEmptyText(t *testing.T) {
	e := New()
	_, err := e.Extract("empty.txt", strings.NewReader("   \n\t"))
	assert.ErrorIs(t, err, domain.ErrUnreadableDocument)
}
