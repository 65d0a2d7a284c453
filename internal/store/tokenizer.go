package store

import (
	"strings"
)

// Tokenize splits text by whitespace and lowercases every token. Both
// lexical backends index and query through this function so their term
// statistics agree on what a term is.
func Tokenize(text string) []string {
	fields := strings.Fields(text)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		tokens = append(tokens, strings.ToLower(f))
	}
	return tokens
}
