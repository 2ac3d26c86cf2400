package chat

import (
	"strings"

	"github.com/kailas-cloud/shopsearch/internal/domain/conversation"
)

var similarPhrases = []string{
	"similar product", "show similar", "recommend similar",
	"like this", "anything similar", "more like",
}

// isSimilarRequest reports whether text asks for products like the ones
// just shown.
func isSimilarRequest(text string) bool {
	t := strings.ToLower(text)
	for _, p := range similarPhrases {
		if strings.Contains(t, p) {
			return true
		}
	}
	return false
}

// resolveFollowUp replaces a "show similar" request with the name of the
// first product of the latest reply. ok is false when there is nothing to
// refer back to.
func resolveFollowUp(text string, history []conversation.Turn) (resolved string, ok bool) {
	if !isSimilarRequest(text) {
		return "", false
	}
	last, found := conversation.LastAssistant(history)
	if !found || len(last.ProductNames) == 0 {
		return "", false
	}
	return last.ProductNames[0], true
}
