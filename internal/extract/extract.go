package extract

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"pdfchat/internal/domain"
)

// FileExtractor turns uploaded files into extracted documents. PDF files are
// read page by page; anything else is treated as UTF-8 plain text.
type FileExtractor struct{}

// New returns a FileExtractor.
func New() *FileExtractor { return &FileExtractor{} }

// Extract reads the whole stream and produces a Document. A file that cannot
// be parsed, or yields no text at all, is reported as unreadable.
func (e *FileExtractor) Extract(filename string, r io.Reader) (domain.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return domain.Document{}, fmt.Errorf("%w: %s: %v", domain.ErrUnreadableDocument, filename, err)
	}
	doc := domain.Document{
		ID:       documentID(filename),
		Filename: filename,
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		pages, err := extractPDF(data)
		if err != nil {
			return domain.Document{}, fmt.Errorf("%w: %s: %v", domain.ErrUnreadableDocument, filename, err)
		}
		doc.Pages = pages
	default:
		doc.Pages = []domain.Page{{Number: 1, Text: string(data)}}
	}
	if strings.TrimSpace(doc.Text()) == "" {
		return domain.Document{}, fmt.Errorf("%w: %s: no text content found", domain.ErrUnreadableDocument, filename)
	}
	return doc, nil
}

func extractPDF(data []byte) ([]domain.Page, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	var pages []domain.Page
	for n := 1; n <= reader.NumPage(); n++ {
		page := reader.Page(n)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// skip unreadable pages, the document-level emptiness check
			// still catches fully broken files
			continue
		}
		pages = append(pages, domain.Page{Number: n, Text: text})
	}
	return pages, nil
}

// documentID hashes the filename so re-ingesting the same file produces the
// same chunk ids.
func documentID(filename string) string {
	h := sha1.Sum([]byte(filename))
	return hex.EncodeToString(h[:8])
}
