package domain

// Page is one page of extracted document text.
type Page struct {
	Number int
	Text   string
}

// Document is the extracted form of an uploaded file. It exists only for
// the duration of ingestion; the index keeps chunks, not documents.
type Document struct {
	ID       string
	Filename string
	Pages    []Page
}

// Text concatenates all pages in order.
func (d Document) Text() string {
	var out string
	for _, p := range d.Pages {
		out += p.Text
	}
	return out
}

// Chunk is an indexed slice of a document. Immutable once created.
type Chunk struct {
	ID         string
	DocumentID string
	Source     string // originating filename
	Page       int
	Seq        int // insertion order within the index
	Text       string
	Embedding  []float32
}

// ScoredChunk pairs a chunk with its distance to a query vector.
// Lower distance means more relevant.
type ScoredChunk struct {
	Chunk    Chunk
	Distance float64
}

// ConversationTurn is one completed question/answer exchange.
// Appended to session history in arrival order, never mutated.
type ConversationTurn struct {
	Query     string
	Answer    string
	SourceIDs []string
}

// IngestResult reports what a successful ingestion produced.
type IngestResult struct {
	DocumentID string
	Filename   string
	Chunks     int
	Summary    string
}
