package store

import (
	"fmt"
)

// LexicalBackend represents the lexical index backend type.
type LexicalBackend string

const (
	// LexicalBackendBleve uses Bleve v2 for BM25 search (default).
	LexicalBackendBleve LexicalBackend = "bleve"

	// LexicalBackendSQLite uses SQLite FTS5 for BM25 search.
	LexicalBackendSQLite LexicalBackend = "sqlite"
)

// NewLexicalIndex creates a LexicalIndex using the specified backend.
// Backend selection is explicit per pipeline; both implementations honor
// the same scoring and tokenization contract, so fusion code never needs
// to know which one is behind the interface.
func NewLexicalIndex(backend string) (LexicalIndex, error) {
	switch backend {
	case string(LexicalBackendBleve), "":
		return NewBleveLexicalIndex()

	case string(LexicalBackendSQLite):
		return NewSQLiteLexicalIndex("")

	default:
		return nil, fmt.Errorf("unknown lexical backend: %s (valid options: bleve, sqlite)", backend)
	}
}
