package answer

import (
	"fmt"
	"strings"

	"pdfchat/internal/domain"
)

const preamble = `You are an assistant answering questions about an uploaded document.
Use only the context excerpts below. Cite the excerpt tags (e.g. [S1]) that support your answer.
If the context does not contain the answer, say that you cannot find it in the document.`

// buildPrompt assembles preamble, tagged context excerpts in ascending
// distance order, a window of prior turns, and the current question.
func buildPrompt(query string, retrieved []domain.ScoredChunk, history []domain.ConversationTurn) string {
	var sb strings.Builder
	sb.WriteString(preamble)
	sb.WriteString("\n\n## Context\n")
	if len(retrieved) == 0 {
		sb.WriteString("(no relevant excerpts found)\n")
	}
	for i, sc := range retrieved {
		sb.WriteString(fmt.Sprintf("[S%d] %s", i+1, sourceLabel(sc.Chunk)))
		sb.WriteString("\n")
		sb.WriteString(sc.Chunk.Text)
		sb.WriteString("\n\n")
	}

	if len(history) > 0 {
		sb.WriteString("## Conversation so far\n")
		for _, turn := range history {
			sb.WriteString("User: ")
			sb.WriteString(turn.Query)
			sb.WriteString("\nAssistant: ")
			sb.WriteString(turn.Answer)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Question\n")
	sb.WriteString(query)
	sb.WriteString("\n\nAnswer:")
	return sb.String()
}

func sourceLabel(ch domain.Chunk) string {
	if ch.Page > 0 {
		return fmt.Sprintf("%s (page %d)", ch.Source, ch.Page)
	}
	return ch.Source
}
