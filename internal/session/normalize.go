package session

import "strings"

// fillerPhrases are stripped from queries before embedding to spend the
// retrieval vector on content words. The answered query keeps its original
// wording; only retrieval sees the normalized form.
var fillerPhrases = []string{
	"could you please",
	"can you please",
	"i would like to know",
	"i want to know",
	"tell me about",
	"explain to me",
	"could you",
	"would you",
	"can you",
	"please",
	"what is",
	"how does",
}

func normalizeQuery(query string) string {
	normalized := strings.ToLower(query)
	for _, phrase := range fillerPhrases {
		normalized = strings.ReplaceAll(normalized, phrase, "")
	}
	normalized = strings.Join(strings.Fields(normalized), " ")
	if normalized == "" {
		return strings.Join(strings.Fields(strings.ToLower(query)), " ")
	}
	return normalized
}
