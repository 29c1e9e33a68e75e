package localrag

import (
	"strings"
	"unicode"
)

// Tokenize lower-cases text, strips everything that is not a letter or
// digit, and drops short tokens and stop words. Deterministic and
// stateless per call.
func Tokenize(text string) []string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}

	words := strings.Fields(b.String())
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		if len(w) <= 2 {
			continue
		}
		if _, stop := stopwords[w]; stop {
			continue
		}
		tokens = append(tokens, w)
	}
	return tokens
}

// stopwords holds common English function words excluded from indexing.
var stopwords = func() map[string]struct{} {
	words := []string{
		"a", "about", "an", "and", "are", "as", "at", "be", "been",
		"but", "by", "can", "could", "did", "do", "does", "for",
		"from", "had", "has", "have", "he", "her", "his", "how",
		"if", "in", "into", "is", "it", "its", "may", "might",
		"must", "no", "not", "of", "on", "or", "our", "she",
		"should", "so", "some", "such", "that", "the", "their",
		"them", "then", "there", "these", "they", "this", "to",
		"too", "was", "we", "were", "what", "when", "where",
		"which", "who", "why", "will", "with", "would", "you",
		"your",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()
