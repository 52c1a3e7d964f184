package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"pdfchat/internal/answer"
	"pdfchat/internal/domain"
)

// State is the lifecycle position of a session.
type State int

const (
	StateEmpty State = iota
	StateIndexed
	StateAnswering
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateIndexed:
		return "indexed"
	case StateAnswering:
		return "answering"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Components are the pipeline collaborators a session orchestrates.
// They are shared between sessions; all per-session state lives here.
type Components struct {
	Extractor  domain.Extractor
	Chunker    domain.Chunker
	Embedder   domain.Embedder
	Builder    domain.IndexBuilder
	Answerer   *answer.Answerer
	Summarizer domain.Summarizer
}

// Options tune per-session behavior.
type Options struct {
	TopK             int
	SummarySentences int
	Logger           *slog.Logger
}

// Session owns one index and one conversation history. Operations within a
// session are serialized: a second Ingest or Ask submitted while one is in
// flight is rejected with ErrSessionBusy rather than queued.
type Session struct {
	id   string
	c    Components
	topK int
	sumN int
	log  *slog.Logger

	// op serializes Ingest/Ask/Reset; TryLock failure means busy
	op sync.Mutex

	mu        sync.Mutex // guards the fields below
	idx       domain.Index
	history   []domain.ConversationTurn
	filename  string
	answering bool
	closed    bool
}

// New creates an empty session.
func New(id string, c Components, opts Options) *Session {
	if opts.TopK <= 0 {
		opts.TopK = 2
	}
	if opts.SummarySentences <= 0 {
		opts.SummarySentences = 3
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Session{
		id:   id,
		c:    c,
		topK: opts.TopK,
		sumN: opts.SummarySentences,
		log:  log.With("session", id),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// State reports the current lifecycle position.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.closed:
		return StateClosed
	case s.answering:
		return StateAnswering
	case s.idx != nil:
		return StateIndexed
	default:
		return StateEmpty
	}
}

// Document returns the filename of the currently indexed document.
func (s *Session) Document() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filename
}

// History returns a copy of the conversation so far.
func (s *Session) History() []domain.ConversationTurn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ConversationTurn, len(s.history))
	copy(out, s.history)
	return out
}

// Ingest extracts, chunks, embeds and indexes a document. The new index
// replaces any previous one atomically: a failed ingest leaves the session
// exactly as it was, and the old index stays queryable until the new one is
// fully built. History is cleared because it referred to the old document.
func (s *Session) Ingest(ctx context.Context, filename string, r io.Reader) (domain.IngestResult, error) {
	if !s.op.TryLock() {
		return domain.IngestResult{}, domain.ErrSessionBusy
	}
	defer s.op.Unlock()
	if s.isClosed() {
		return domain.IngestResult{}, domain.ErrSessionClosed
	}

	doc, err := s.c.Extractor.Extract(filename, r)
	if err != nil {
		return domain.IngestResult{}, err
	}

	chunks, err := s.chunkDocument(doc)
	if err != nil {
		return domain.IngestResult{}, err
	}
	if len(chunks) == 0 {
		return domain.IngestResult{}, fmt.Errorf("%w: %s: no chunks produced", domain.ErrUnreadableDocument, filename)
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	vectors, err := s.c.Embedder.Embed(ctx, texts)
	if err != nil {
		return domain.IngestResult{}, err
	}
	if len(vectors) != len(chunks) {
		return domain.IngestResult{}, fmt.Errorf("%w: got %d vectors for %d chunks",
			domain.ErrEmbeddingUnavailable, len(vectors), len(chunks))
	}
	for i := range chunks {
		chunks[i].Embedding = vectors[i]
	}

	idx, err := s.c.Builder.Build(ctx, chunks)
	if err != nil {
		return domain.IngestResult{}, err
	}

	summary := ""
	if s.c.Summarizer != nil {
		if summary, err = s.c.Summarizer.Summarize(doc.Text(), s.sumN); err != nil {
			s.log.Warn("summarize failed", "error", err)
			summary = ""
		}
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = idx.Close()
		return domain.IngestResult{}, domain.ErrSessionClosed
	}
	old := s.idx
	s.idx = idx
	s.history = nil
	s.filename = filename
	s.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}

	s.log.Info("document indexed", "filename", filename, "chunks", len(chunks))
	return domain.IngestResult{
		DocumentID: doc.ID,
		Filename:   filename,
		Chunks:     len(chunks),
		Summary:    summary,
	}, nil
}

// Answer is a completed exchange plus the scored chunks actually cited.
type Answer struct {
	Turn    domain.ConversationTurn
	Sources []domain.ScoredChunk
}

// Ask embeds the query, retrieves the nearest chunks and generates one
// answer. Before any document is ingested it returns the fixed guidance
// response without touching either provider. A second Ask while one is in
// flight fails with ErrSessionBusy. If the session is closed while the call
// is in flight the result is discarded.
func (s *Session) Ask(ctx context.Context, query string) (Answer, error) {
	if !s.op.TryLock() {
		return Answer{}, domain.ErrSessionBusy
	}
	defer s.op.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Answer{}, domain.ErrSessionClosed
	}
	idx := s.idx
	hist := make([]domain.ConversationTurn, len(s.history))
	copy(hist, s.history)
	if idx == nil {
		s.mu.Unlock()
		return Answer{Turn: domain.ConversationTurn{Query: query, Answer: answer.NoDocumentResponse}}, nil
	}
	s.answering = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.answering = false
		s.mu.Unlock()
	}()

	vectors, err := s.c.Embedder.Embed(ctx, []string{normalizeQuery(query)})
	if err != nil {
		return Answer{}, err
	}
	if len(vectors) != 1 {
		return Answer{}, fmt.Errorf("%w: got %d vectors for the query", domain.ErrEmbeddingUnavailable, len(vectors))
	}

	retrieved, err := idx.Query(ctx, vectors[0], s.topK)
	if err != nil {
		return Answer{}, err
	}

	res, err := s.c.Answerer.Answer(ctx, query, retrieved, hist)
	if errors.Is(err, domain.ErrEmptyContext) {
		return Answer{Turn: domain.ConversationTurn{Query: query, Answer: answer.NoDocumentResponse}}, nil
	}
	if err != nil {
		return Answer{}, err
	}

	turn := domain.ConversationTurn{Query: query, Answer: res.Text, SourceIDs: res.SourceIDs}
	out := Answer{Turn: turn, Sources: retrieved[:len(res.SourceIDs)]}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Answer{}, domain.ErrSessionClosed
	}
	s.history = append(s.history, turn)
	s.mu.Unlock()

	s.log.Info("query answered", "sources", len(res.SourceIDs))
	return out, nil
}

// Reset drops the index and history, returning the session to Empty.
func (s *Session) Reset() error {
	if !s.op.TryLock() {
		return domain.ErrSessionBusy
	}
	defer s.op.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ErrSessionClosed
	}
	idx := s.idx
	s.idx = nil
	s.history = nil
	s.filename = ""
	s.mu.Unlock()
	if idx != nil {
		return idx.Close()
	}
	return nil
}

// Close tears the session down from any state, releasing the index and its
// temporary storage. Safe to call while an operation is in flight: that
// operation's result is discarded.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	idx := s.idx
	s.idx = nil
	s.history = nil
	s.mu.Unlock()
	if idx != nil {
		return idx.Close()
	}
	return nil
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) chunkDocument(doc domain.Document) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	seq := 0
	for _, page := range doc.Pages {
		texts, err := s.c.Chunker.Split(page.Text)
		if err != nil {
			return nil, err
		}
		for _, text := range texts {
			chunks = append(chunks, domain.Chunk{
				ID:         fmt.Sprintf("%s:%d", doc.ID, seq),
				DocumentID: doc.ID,
				Source:     doc.Filename,
				Page:       page.Number,
				Seq:        seq,
				Text:       text,
			})
			seq++
		}
	}
	return chunks, nil
}
