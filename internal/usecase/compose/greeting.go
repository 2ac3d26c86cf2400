package compose

import (
	"slices"

	"github.com/kailas-cloud/shopsearch/internal/usecase/classifier"
)

// Canned greetings.
const (
	FirstGreeting  = "Hello! I'm your personal shopping assistant. How can I help you today?"
	RepeatGreeting = "Hello again! How can I assist you further?"
)

// maxGreetingWords bounds how long a pure greeting can be.
const maxGreetingWords = 4

var greetingTerms = [][]string{
	{"good", "morning"}, {"good", "afternoon"}, {"good", "evening"},
	{"hi"}, {"hello"}, {"hey"}, {"greetings"},
}

// greetingFiller may accompany a greeting without turning it into a query.
var greetingFiller = map[string]struct{}{
	"there": {}, "again": {}, "friend": {}, "everyone": {}, "all": {},
	"assistant": {}, "bot": {}, "how": {}, "are": {}, "you": {},
}

// IsGreeting reports whether text consists only of greeting phrases and
// filler words. "hi gold rings" is a search, not a greeting.
func IsGreeting(text string) bool {
	words := classifier.Tokenize(text)
	if len(words) == 0 || len(words) > maxGreetingWords {
		return false
	}
	greeted := false
	for i := 0; i < len(words); {
		if n := greetingAt(words[i:]); n > 0 {
			greeted = true
			i += n
			continue
		}
		if _, ok := greetingFiller[words[i]]; !ok {
			return false
		}
		i++
	}
	return greeted
}

// greetingAt returns the length of the greeting phrase words start with,
// or 0.
func greetingAt(words []string) int {
	for _, g := range greetingTerms {
		if len(words) >= len(g) && slices.Equal(words[:len(g)], g) {
			return len(g)
		}
	}
	return 0
}

// Greeting returns the canned reply. first distinguishes a user who has
// not talked to the assistant yet.
func Greeting(first bool) string {
	if first {
		return FirstGreeting
	}
	return RepeatGreeting
}
