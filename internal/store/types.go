// Package store provides the lexical (BM25) and vector index backends.
// Indices are in-memory by default and rebuilt wholesale on each ingest;
// durability across restarts is not part of the contract.
package store

import (
	"context"
	"fmt"
)

// Document represents a chunk to be indexed for lexical search.
type Document struct {
	ID      string // Chunk ID
	Content string // Text content
}

// LexicalResult represents a single lexical search result.
type LexicalResult struct {
	DocID        string
	Score        float64
	MatchedTerms []string
}

// IndexStats provides statistics about a lexical index.
type IndexStats struct {
	DocumentCount int
}

// LexicalIndex provides keyword search with BM25-style scoring.
// The only contract on scores: higher is more relevant, and scores are
// comparable within one Index() generation. An empty or all-unknown-token
// query returns zero results, never an error.
type LexicalIndex interface {
	// Index adds documents to the index
	Index(ctx context.Context, docs []*Document) error

	// Search returns documents matching query, best score first
	Search(ctx context.Context, query string, limit int) ([]*LexicalResult, error)

	// Delete removes documents from the index
	Delete(ctx context.Context, docIDs []string) error

	// AllIDs returns all document IDs in the index
	AllIDs() ([]string, error)

	// Stats returns index statistics
	Stats() *IndexStats

	Close() error
}

// VectorResult represents a single vector search result.
type VectorResult struct {
	ID       string  // Chunk ID
	Distance float32 // Lower is more similar (0-2 for cosine)
	Score    float32 // Normalized similarity (0-1)
}

// VectorStoreConfig configures the vector store.
type VectorStoreConfig struct {
	// Dimensions is the vector dimension (e.g., 768 for nomic, 256 for static)
	Dimensions int

	// Collection is an opaque namespace label carried by the store
	Collection string

	// Metric is the distance metric: "cos" (cosine), "l2" (euclidean) (default: "cos")
	Metric string

	// M is HNSW max connections per layer (default: 16)
	M int

	// EfSearch is HNSW query-time search width (default: 20)
	EfSearch int
}

// DefaultVectorStoreConfig returns sensible defaults for the vector store.
func DefaultVectorStoreConfig(dimensions int) VectorStoreConfig {
	return VectorStoreConfig{
		Dimensions: dimensions,
		Metric:     "cos",
		M:          16,
		EfSearch:   20,
	}
}

// VectorStore provides nearest-neighbor search over chunk embeddings.
// Search returns fewer than k results when the store holds fewer than k
// vectors; that is never an error.
type VectorStore interface {
	// Add inserts vectors with their IDs. If an ID exists, it is replaced.
	Add(ctx context.Context, ids []string, vectors [][]float32) error

	// Search finds k nearest neighbors to query vector.
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)

	// Delete removes vectors by ID.
	Delete(ctx context.Context, ids []string) error

	// AllIDs returns all vector IDs in the store
	AllIDs() []string

	// Contains checks if ID exists.
	Contains(id string) bool

	// Count returns number of vectors.
	Count() int

	Close() error
}

// ErrDimensionMismatch indicates vector dimension mismatch.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Got)
}
