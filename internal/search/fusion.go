// Package search provides hybrid retrieval combining lexical BM25 and
// semantic vector search. Results are fused using Reciprocal Rank Fusion (RRF).
package search

import (
	"sort"

	"github.com/ragpipe/ragpipe/internal/store"
)

// DefaultRRFConstant is the standard RRF smoothing parameter.
// k=60 is empirically validated across domains (used by Azure AI Search, OpenSearch, etc.).
const DefaultRRFConstant = 60

// Weights holds the per-source multipliers applied to RRF contributions.
type Weights struct {
	Lexical float64 // Weight for BM25 contributions
	Vector  float64 // Weight for semantic contributions
}

// DefaultWeights favors the semantic list, matching the pipeline defaults.
func DefaultWeights() Weights {
	return Weights{Lexical: 0.3, Vector: 0.7}
}

// FusedResult represents a single result after RRF fusion.
type FusedResult struct {
	ChunkID      string   // Chunk identifier
	RRFScore     float64  // Combined RRF score
	LexScore     float64  // Original BM25 score (preserved)
	LexRank      int      // Position in lexical list (1-indexed, 0 if absent)
	VecScore     float64  // Original vector similarity score (preserved)
	VecRank      int      // Position in vector list (1-indexed, 0 if absent)
	InBothLists  bool     // Document appeared in both result lists
	MatchedTerms []string // BM25 matched terms (for highlighting)
}

// RRFFusion combines lexical and vector search results using
// Reciprocal Rank Fusion.
//
// Algorithm: RRF_score(d) = Σ weight_i / (k + rank_i)
//
// Where:
//   - k = smoothing constant (default: 60)
//   - rank_i = position in ranked list i (1-indexed)
//   - weight_i = weight for search source i
//
// A document absent from one list simply receives no contribution from
// it; there is no penalty term for absence.
type RRFFusion struct {
	K int // RRF smoothing constant (default: 60)
}

// NewRRFFusion creates a new RRF fusion instance with default k=60.
func NewRRFFusion() *RRFFusion {
	return &RRFFusion{K: DefaultRRFConstant}
}

// NewRRFFusionWithK creates a new RRF fusion with custom k value.
// If k <= 0, defaults to 60.
func NewRRFFusionWithK(k int) *RRFFusion {
	if k <= 0 {
		k = DefaultRRFConstant
	}
	return &RRFFusion{K: k}
}

// Fuse combines lexical and vector results and returns at most limit
// fused results, best first. limit <= 0 means no truncation.
//
// Ties on RRF score resolve by first appearance: lexical list order
// first, then vector list order. Fusing the same inputs always yields
// the same output.
func (f *RRFFusion) Fuse(
	lex []*store.LexicalResult,
	vec []*store.VectorResult,
	weights Weights,
	limit int,
) []*FusedResult {
	if len(lex) == 0 && len(vec) == 0 {
		return []*FusedResult{}
	}

	capacity := len(lex) + len(vec)
	scores := make(map[string]*FusedResult, capacity)
	// order preserves first-appearance order for deterministic tie-breaking
	order := make([]*FusedResult, 0, capacity)

	for rank, r := range lex {
		result, created := f.getOrCreate(scores, r.DocID)
		if created {
			order = append(order, result)
		}
		result.LexScore = r.Score
		result.LexRank = rank + 1
		result.MatchedTerms = r.MatchedTerms
		result.RRFScore += weights.Lexical / float64(f.K+rank+1)
	}

	for rank, r := range vec {
		result, created := f.getOrCreate(scores, r.ID)
		if created {
			order = append(order, result)
		}
		result.VecScore = float64(r.Score)
		result.VecRank = rank + 1
		result.RRFScore += weights.Vector / float64(f.K+rank+1)

		if result.LexRank > 0 {
			result.InBothLists = true
		}
	}

	// Stable sort keeps first-appearance order among equal scores.
	sort.SliceStable(order, func(i, j int) bool {
		return order[i].RRFScore > order[j].RRFScore
	})

	if limit > 0 && len(order) > limit {
		order = order[:limit]
	}
	return order
}

// getOrCreate returns the existing result or creates a new one,
// reporting whether it was created.
func (f *RRFFusion) getOrCreate(m map[string]*FusedResult, id string) (*FusedResult, bool) {
	if r, ok := m[id]; ok {
		return r, false
	}
	r := &FusedResult{ChunkID: id}
	m[id] = r
	return r, true
}
