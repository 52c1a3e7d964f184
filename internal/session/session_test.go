package session

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfchat/internal/answer"
	"pdfchat/internal/chunker"
	"pdfchat/internal/domain"
	"pdfchat/internal/embedding/local"
	"pdfchat/internal/extract"
	"pdfchat/internal/summarizer"
	"pdfchat/internal/vectorstore/memory"
)

const parisText = "Paris is the capital of France. It has a population of over 2 million."

// countingEmbedder wraps the local embedder, counting calls and optionally
// failing to simulate an unreachable provider.
type countingEmbedder struct {
	inner *local.Embedder
	calls atomic.Int32
	fail  atomic.Bool
}

func newCountingEmbedder() *countingEmbedder {
	return &countingEmbedder{inner: local.NewEmbedder(256)}
}

func (e *countingEmbedder) Name() string   { return "counting" }
func (e *countingEmbedder) Dimension() int { return e.inner.Dimension() }

func (e *countingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	e.calls.Add(1)
	if e.fail.Load() {
		return nil, fmt.Errorf("%w: connection refused", domain.ErrEmbeddingUnavailable)
	}
	return e.inner.Embed(ctx, texts)
}

// scriptedLLM records prompts and optionally blocks until released.
type scriptedLLM struct {
	reply   string
	calls   atomic.Int32
	prompts []string
	block   chan struct{}
}

func (s *scriptedLLM) Generate(ctx context.Context, prompt string) (string, error) {
	s.calls.Add(1)
	s.prompts = append(s.prompts, prompt)
	if s.block != nil {
		<-s.block
	}
	return s.reply, nil
}

type fixture struct {
	session  *Session
	embedder *countingEmbedder
	llm      *scriptedLLM
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	emb := newCountingEmbedder()
	llm := &scriptedLLM{reply: "Paris is the capital of France."}
	ch, err := chunker.New(40, 10, 0)
	require.NoError(t, err)
	builder, err := memory.NewBuilder(memory.MetricCosine)
	require.NoError(t, err)
	s := New("test-session", Components{
		Extractor:  extract.New(),
		Chunker:    ch,
		Embedder:   emb,
		Builder:    builder,
		Answerer:   answer.New(llm, answer.EstimateCounter{}, 0, 0),
		Summarizer: summarizer.New(),
	}, Options{TopK: 2})
	t.Cleanup(func() { _ = s.Close() })
	return &fixture{session: s, embedder: emb, llm: llm}
}

func (f *fixture) ingest(t *testing.T, filename, text string) domain.IngestResult {
	t.Helper()
	res, err := f.session.Ingest(context.Background(), filename, strings.NewReader(text))
	require.NoError(t, err)
	return res
}

func TestIngestThenAskRetrievesRelevantChunk(t *testing.T) {
	f := newFixture(t)
	res := f.ingest(t, "paris.txt", parisText)
	assert.Greater(t, res.Chunks, 1)
	assert.Equal(t, StateIndexed, f.session.State())

	ans, err := f.session.Ask(context.Background(), "What is the capital of France?")
	require.NoError(t, err)

	assert.Contains(t, ans.Turn.Answer, "Paris")
	require.NotEmpty(t, ans.Turn.SourceIDs)
	require.NotEmpty(t, ans.Sources)
	assert.Contains(t, ans.Sources[0].Chunk.Text, "Paris is the capital")
	require.Len(t, f.llm.prompts, 1)
	assert.Contains(t, f.llm.prompts[0], "Paris is the capital")

	history := f.session.History()
	require.Len(t, history, 1)
	assert.Equal(t, "What is the capital of France?", history[0].Query)
}

func TestAskBeforeIngestShortCircuits(t *testing.T) {
	f := newFixture(t)

	ans, err := f.session.Ask(context.Background(), "What is the capital of France?")
	require.NoError(t, err)

	assert.Equal(t, answer.NoDocumentResponse, ans.Turn.Answer)
	assert.Empty(t, ans.Turn.SourceIDs)
	assert.Equal(t, int32(0), f.embedder.calls.Load(), "no embedding call must be made")
	assert.Equal(t, int32(0), f.llm.calls.Load(), "no inference call must be made")
	assert.Equal(t, StateEmpty, f.session.State())
	assert.Empty(t, f.session.History())
}

func TestEmbedderFailureLeavesSessionUncorrupted(t *testing.T) {
	f := newFixture(t)

	// failure during first ingest keeps the session Empty
	f.embedder.fail.Store(true)
	_, err := f.session.Ingest(context.Background(), "paris.txt", strings.NewReader(parisText))
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.Equal(t, StateEmpty, f.session.State())

	// successful ingest, then a failing query keeps the session Indexed
	f.embedder.fail.Store(false)
	f.ingest(t, "paris.txt", parisText)
	f.embedder.fail.Store(true)

	_, err = f.session.Ask(context.Background(), "What is the capital of France?")
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.Equal(t, StateIndexed, f.session.State())
	assert.Empty(t, f.session.History(), "failed query must not commit a turn")

	// the preserved query can be resubmitted once the provider recovers
	f.embedder.fail.Store(false)
	ans, err := f.session.Ask(context.Background(), "What is the capital of France?")
	require.NoError(t, err)
	assert.Contains(t, ans.Turn.Answer, "Paris")
}

func TestSecondIngestReplacesIndexCompletely(t *testing.T) {
	f := newFixture(t)
	first := f.ingest(t, "paris.txt", parisText)

	_, err := f.session.Ask(context.Background(), "What is the capital of France?")
	require.NoError(t, err)
	require.NotEmpty(t, f.session.History())

	second := f.ingest(t, "penguins.txt",
		"Penguins live in Antarctica. They eat fish and krill. Penguins cannot fly.")
	assert.NotEqual(t, first.DocumentID, second.DocumentID)
	assert.Empty(t, f.session.History(), "history refers to the old document and must be cleared")

	for _, query := range []string{"Where do penguins live?", "What is the capital of France?"} {
		ans, err := f.session.Ask(context.Background(), query)
		require.NoError(t, err)
		for _, src := range ans.Sources {
			assert.Equal(t, second.DocumentID, src.Chunk.DocumentID,
				"chunks from the replaced index must never surface")
		}
	}
}

func TestRebuildWithSameDocumentIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.ingest(t, "paris.txt", parisText)
	ansA, err := f.session.Ask(context.Background(), "What is the capital of France?")
	require.NoError(t, err)

	f.ingest(t, "paris.txt", parisText)
	ansB, err := f.session.Ask(context.Background(), "What is the capital of France?")
	require.NoError(t, err)

	assert.Equal(t, ansA.Turn.SourceIDs, ansB.Turn.SourceIDs)
}

func TestConcurrentAskIsRejectedAsBusy(t *testing.T) {
	f := newFixture(t)
	f.ingest(t, "paris.txt", parisText)

	f.llm.block = make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := f.session.Ask(context.Background(), "What is the capital of France?")
		done <- err
	}()

	require.Eventually(t, func() bool {
		return f.session.State() == StateAnswering
	}, time.Second, time.Millisecond)

	_, err := f.session.Ask(context.Background(), "second question")
	assert.ErrorIs(t, err, domain.ErrSessionBusy)

	close(f.llm.block)
	require.NoError(t, <-done)
	assert.Equal(t, StateIndexed, f.session.State())
}

func TestCloseDuringInFlightQueryDiscardsResult(t *testing.T) {
	f := newFixture(t)
	f.ingest(t, "paris.txt", parisText)

	f.llm.block = make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := f.session.Ask(context.Background(), "What is the capital of France?")
		done <- err
	}()

	require.Eventually(t, func() bool {
		return f.session.State() == StateAnswering
	}, time.Second, time.Millisecond)

	require.NoError(t, f.session.Close())
	close(f.llm.block)

	assert.ErrorIs(t, <-done, domain.ErrSessionClosed)
	assert.Equal(t, StateClosed, f.session.State())
	assert.Empty(t, f.session.History())
}

func TestOperationsAfterCloseFail(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.Close())

	_, err := f.session.Ingest(context.Background(), "paris.txt", strings.NewReader(parisText))
	assert.ErrorIs(t, err, domain.ErrSessionClosed)
	_, err = f.session.Ask(context.Background(), "anything")
	assert.ErrorIs(t, err, domain.ErrSessionClosed)
	assert.ErrorIs(t, f.session.Reset(), domain.ErrSessionClosed)
	assert.NoError(t, f.session.Close(), "close is idempotent")
}

func TestResetReturnsToEmpty(t *testing.T) {
	f := newFixture(t)
	f.ingest(t, "paris.txt", parisText)
	_, err := f.session.Ask(context.Background(), "What is the capital of France?")
	require.NoError(t, err)

	require.NoError(t, f.session.Reset())
	assert.Equal(t, StateEmpty, f.session.State())
	assert.Empty(t, f.session.History())
	assert.Empty(t, f.session.Document())

	ans, err := f.session.Ask(context.Background(), "What is the capital of France?")
	require.NoError(t, err)
	assert.Equal(t, answer.NoDocumentResponse, ans.Turn.Answer)
}

func TestUnreadableDocumentSurfaces(t *testing.T) {
	f := newFixture(t)
	_, err := f.session.Ingest(context.Background(), "broken.pdf", strings.NewReader("not a pdf"))
	assert.ErrorIs(t, err, domain.ErrUnreadableDocument)
	assert.Equal(t, StateEmpty, f.session.State())
}
