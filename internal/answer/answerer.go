package answer

import (
	"context"

	"pdfchat/internal/domain"
)

// NoDocumentResponse is the deterministic reply for a query arriving before
// any document has been indexed. It is produced without a provider call.
const NoDocumentResponse = "No document is loaded yet. Upload a PDF and ask your question again."

// Answerer formats retrieved chunks plus the user query into a budgeted
// prompt and performs exactly one completion call per query.
type Answerer struct {
	llm           domain.Generator
	counter       TokenCounter
	tokenBudget   int
	historyWindow int
}

const (
	// DefaultTokenBudget bounds the assembled prompt size.
	DefaultTokenBudget = 6000
	// DefaultHistoryWindow is the number of prior turns included.
	DefaultHistoryWindow = 4
)

// New creates an Answerer. Zero budget or window select the defaults; a
// negative window disables history entirely.
func New(llm domain.Generator, counter TokenCounter, tokenBudget, historyWindow int) *Answerer {
	if tokenBudget <= 0 {
		tokenBudget = DefaultTokenBudget
	}
	if historyWindow == 0 {
		historyWindow = DefaultHistoryWindow
	}
	if historyWindow < 0 {
		historyWindow = 0
	}
	if counter == nil {
		counter = EstimateCounter{}
	}
	return &Answerer{llm: llm, counter: counter, tokenBudget: tokenBudget, historyWindow: historyWindow}
}

// Result is a generated answer plus the chunk ids that were actually
// included in the prompt.
type Result struct {
	Text      string
	SourceIDs []string
}

// Answer builds the prompt and calls the model once. retrieved must be
// sorted ascending by distance; when the budget is exceeded the most
// distant chunks are dropped first, then the oldest history turns, but at
// least one chunk is always kept if any were retrieved.
func (a *Answerer) Answer(ctx context.Context, query string, retrieved []domain.ScoredChunk, history []domain.ConversationTurn) (Result, error) {
	if len(retrieved) == 0 && len(history) == 0 {
		return Result{}, domain.ErrEmptyContext
	}

	hist := history
	if len(hist) > a.historyWindow {
		hist = hist[len(hist)-a.historyWindow:]
	}

	kept := len(retrieved)
	prompt := buildPrompt(query, retrieved[:kept], hist)
	for a.counter.Count(prompt) > a.tokenBudget {
		if kept > 1 {
			kept--
		} else if len(hist) > 0 {
			hist = hist[1:]
		} else {
			// the last remaining chunk is kept even if it alone busts
			// the budget
			break
		}
		prompt = buildPrompt(query, retrieved[:kept], hist)
	}

	text, err := a.llm.Generate(ctx, prompt)
	if err != nil {
		return Result{}, err
	}
	ids := make([]string, 0, kept)
	for _, sc := range retrieved[:kept] {
		ids = append(ids, sc.Chunk.ID)
	}
	return Result{Text: text, SourceIDs: ids}, nil
}
