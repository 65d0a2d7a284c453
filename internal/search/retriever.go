package search

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ragpipe/ragpipe/internal/chunk"
	"github.com/ragpipe/ragpipe/internal/embed"
	"github.com/ragpipe/ragpipe/internal/errors"
	"github.com/ragpipe/ragpipe/internal/store"
	"github.com/ragpipe/ragpipe/internal/telemetry"
)

// Option configures optional retriever behavior.
type Option func(*Retriever)

// WithMetrics attaches a query metrics collector. Every Retrieve call
// is recorded; collection stays local to the process.
func WithMetrics(m *telemetry.QueryMetrics) Option {
	return func(r *Retriever) {
		r.metrics = m
	}
}

// RetrieverConfig configures the hybrid retriever.
type RetrieverConfig struct {
	// TopKInitial is how many candidates each source contributes (default: 20)
	TopKInitial int

	// TopKFinal is how many fused results a query returns (default: 5)
	TopKFinal int

	// Weights are the per-source RRF multipliers
	Weights Weights

	// RRFK is the RRF smoothing constant (default: 60)
	RRFK int

	// LexicalBackend selects the BM25 implementation ("bleve" or "sqlite")
	LexicalBackend string

	// Collection is an opaque namespace label for the vector store
	Collection string
}

// DefaultRetrieverConfig returns the standard retriever settings.
func DefaultRetrieverConfig() RetrieverConfig {
	return RetrieverConfig{
		TopKInitial: 20,
		TopKFinal:   5,
		Weights:     DefaultWeights(),
		RRFK:        DefaultRRFConstant,
	}
}

// Validate checks the config for contradictions.
func (c RetrieverConfig) Validate() error {
	if c.TopKInitial <= 0 {
		return errors.ConfigError("top_k_initial must be positive", nil).
			WithDetail("value", fmt.Sprint(c.TopKInitial))
	}
	if c.TopKFinal <= 0 {
		return errors.ConfigError("top_k_final must be positive", nil).
			WithDetail("value", fmt.Sprint(c.TopKFinal))
	}
	if c.TopKFinal > c.TopKInitial {
		return errors.ConfigError("top_k_final cannot exceed top_k_initial", nil).
			WithDetail("top_k_final", fmt.Sprint(c.TopKFinal)).
			WithDetail("top_k_initial", fmt.Sprint(c.TopKInitial))
	}
	if c.Weights.Lexical < 0 || c.Weights.Vector < 0 {
		return errors.ConfigError("fusion weights must be non-negative", nil).
			WithDetail("lexical", fmt.Sprint(c.Weights.Lexical)).
			WithDetail("vector", fmt.Sprint(c.Weights.Vector))
	}
	return nil
}

// Result is a retrieved chunk with its fusion scores.
type Result struct {
	Chunk        *chunk.Chunk
	Score        float64  // Fused RRF score
	LexScore     float64  // BM25 score from the lexical index
	VecScore     float64  // Cosine similarity from the vector store
	MatchedTerms []string // Terms the lexical index matched
}

// indexSnapshot is one complete generation of built indices.
// A snapshot is immutable once published; queries never observe a
// half-built index.
type indexSnapshot struct {
	lexical store.LexicalIndex
	vectors store.VectorStore
	chunks  map[string]*chunk.Chunk

	// refs counts the publisher plus in-flight readers. The stores
	// close when the count reaches zero, so a query keeps its
	// captured generation alive across a concurrent reindex.
	refs atomic.Int32
}

// acquire registers a reader. Must be called while holding the lock
// that published the snapshot, so the publisher ref is still held.
func (s *indexSnapshot) acquire() {
	if s == nil {
		return
	}
	s.refs.Add(1)
}

// release drops one reference and closes the stores on the last one.
func (s *indexSnapshot) release() {
	if s == nil {
		return
	}
	if s.refs.Add(-1) == 0 {
		s.closeStores()
	}
}

func (s *indexSnapshot) closeStores() {
	if s.lexical != nil {
		s.lexical.Close()
	}
	if s.vectors != nil {
		s.vectors.Close()
	}
}

// Retriever runs hybrid search: BM25 and vector search in parallel,
// fused with RRF. Indexing builds a fresh snapshot and swaps it in
// atomically, so re-indexing fully replaces prior state.
type Retriever struct {
	mu       sync.RWMutex
	snapshot *indexSnapshot

	embedder embed.Embedder
	fusion   *RRFFusion
	config   RetrieverConfig
	logger   *slog.Logger
	metrics  *telemetry.QueryMetrics
}

// NewRetriever creates a hybrid retriever over the given embedder.
func NewRetriever(embedder embed.Embedder, cfg RetrieverConfig, logger *slog.Logger, opts ...Option) (*Retriever, error) {
	if embedder == nil {
		return nil, errors.ConfigError("embedder is required", nil)
	}
	if cfg.TopKInitial == 0 {
		cfg.TopKInitial = 20
	}
	if cfg.TopKFinal == 0 {
		cfg.TopKFinal = 5
	}
	if cfg.Weights == (Weights{}) {
		cfg.Weights = DefaultWeights()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := &Retriever{
		embedder: embedder,
		fusion:   NewRRFFusionWithK(cfg.RRFK),
		config:   cfg,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Index builds both indices over the given chunks and swaps them in,
// replacing any previous generation. On error the previous generation
// stays live.
func (r *Retriever) Index(ctx context.Context, chunks []*chunk.Chunk) error {
	start := time.Now()

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	var vectors [][]float32
	if len(texts) > 0 {
		var err error
		vectors, err = r.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return errors.ProviderError("embedding chunks failed", err)
		}
		if len(vectors) != len(chunks) {
			return errors.ProviderError(
				fmt.Sprintf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks)), nil)
		}
	}

	next, err := r.buildSnapshot(ctx, chunks, vectors)
	if err != nil {
		return err
	}

	r.mu.Lock()
	prev := r.snapshot
	r.snapshot = next
	r.mu.Unlock()
	prev.release()

	r.logger.Info("index_built",
		"chunks", len(chunks),
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

func (r *Retriever) buildSnapshot(ctx context.Context, chunks []*chunk.Chunk, vectors [][]float32) (*indexSnapshot, error) {
	lexical, err := store.NewLexicalIndex(r.config.LexicalBackend)
	if err != nil {
		return nil, err
	}

	vcfg := store.DefaultVectorStoreConfig(r.embedder.Dimensions())
	vcfg.Collection = r.config.Collection
	vectorStore, err := store.NewHNSWStore(vcfg)
	if err != nil {
		lexical.Close()
		return nil, err
	}

	snap := &indexSnapshot{
		lexical: lexical,
		vectors: vectorStore,
		chunks:  make(map[string]*chunk.Chunk, len(chunks)),
	}
	snap.refs.Store(1)

	docs := make([]*store.Document, 0, len(chunks))
	ids := make([]string, 0, len(chunks))
	for _, c := range chunks {
		snap.chunks[c.ID] = c
		docs = append(docs, &store.Document{ID: c.ID, Content: c.Content})
		ids = append(ids, c.ID)
	}

	if len(docs) > 0 {
		if err := lexical.Index(ctx, docs); err != nil {
			snap.closeStores()
			return nil, fmt.Errorf("building lexical index: %w", err)
		}
		if err := vectorStore.Add(ctx, ids, vectors); err != nil {
			snap.closeStores()
			return nil, fmt.Errorf("building vector index: %w", err)
		}
	}

	return snap, nil
}

// Retrieve runs both searches in parallel and returns the fused
// top results. A retriever that has never indexed returns no results.
// Embedding failure is a hard error, never a silent lexical-only
// fallback. A query that started before a reindex finishes against
// the snapshot it captured.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]*Result, error) {
	start := time.Now()

	r.mu.RLock()
	snap := r.snapshot
	snap.acquire()
	r.mu.RUnlock()
	defer snap.release()

	if snap == nil || len(snap.chunks) == 0 {
		return []*Result{}, nil
	}

	queryVec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, errors.ProviderError("embedding query failed", err)
	}

	var (
		lexResults []*store.LexicalResult
		vecResults []*store.VectorResult
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		lexResults, err = snap.lexical.Search(gctx, query, r.config.TopKInitial)
		if err != nil {
			return fmt.Errorf("lexical search: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		vecResults, err = snap.vectors.Search(gctx, queryVec, r.config.TopKInitial)
		if err != nil {
			return fmt.Errorf("vector search: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	fused := r.fusion.Fuse(lexResults, vecResults, r.config.Weights, r.config.TopKFinal)

	results := make([]*Result, 0, len(fused))
	for _, f := range fused {
		c, ok := snap.chunks[f.ChunkID]
		if !ok {
			// Index entry without a chunk record, drop it
			r.logger.Warn("fused_result_missing_chunk", "chunk_id", f.ChunkID)
			continue
		}
		results = append(results, &Result{
			Chunk:        c,
			Score:        f.RRFScore,
			LexScore:     f.LexScore,
			VecScore:     f.VecScore,
			MatchedTerms: f.MatchedTerms,
		})
	}

	if r.metrics != nil {
		r.metrics.Record(telemetry.QueryEvent{
			Query:       query,
			ResultCount: len(results),
			LexicalHits: len(lexResults),
			VectorHits:  len(vecResults),
			Latency:     time.Since(start),
			Timestamp:   start,
		})
	}

	r.logger.Debug("retrieve_complete",
		"query_len", len(query),
		"lexical_hits", len(lexResults),
		"vector_hits", len(vecResults),
		"fused", len(results))
	return results, nil
}

// Count returns the number of chunks in the live snapshot.
func (r *Retriever) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.snapshot == nil {
		return 0
	}
	return len(r.snapshot.chunks)
}

// Close releases the live snapshot and the embedder.
func (r *Retriever) Close() error {
	r.mu.Lock()
	snap := r.snapshot
	r.snapshot = nil
	r.mu.Unlock()

	snap.release()
	return r.embedder.Close()
}
