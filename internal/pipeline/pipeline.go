// Package pipeline wires chunking, embedding, and hybrid retrieval into
// the ingest/query flow.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ragpipe/ragpipe/internal/chunk"
	"github.com/ragpipe/ragpipe/internal/config"
	"github.com/ragpipe/ragpipe/internal/docs"
	"github.com/ragpipe/ragpipe/internal/embed"
	"github.com/ragpipe/ragpipe/internal/search"
)

// SourcePreviewLength is how many characters of a chunk appear in a
// query result's source preview.
const SourcePreviewLength = 200

// contextSeparator joins chunks in the assembled context.
const contextSeparator = "\n\n---\n\n"

// IngestStats summarizes one ingest run.
type IngestStats struct {
	Documents int // Documents accepted
	Chunks    int // Chunks indexed
	Skipped   int // Documents skipped as empty
}

// Source describes one chunk that contributed to a query result.
type Source struct {
	ChunkID  string
	Preview  string
	Score    float64
	Metadata map[string]string
}

// QueryResult is the assembled answer context for a query.
type QueryResult struct {
	Context string
	Sources []Source
	Count   int
}

// Pipeline runs the full ingest and query flow over one corpus.
type Pipeline struct {
	chunker   *chunk.AdaptiveChunker
	retriever *search.Retriever
	logger    *slog.Logger
}

// New builds a pipeline from configuration: embedder from the
// embedding settings, retriever from the search settings. The context
// bounds provider health checks during construction.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Pipeline, error) {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	embedder, err := embed.NewEmbedder(ctx, embed.FactoryConfig{
		Provider:  embed.ProviderType(cfg.Embedding.Provider),
		Model:     cfg.Embedding.Model,
		Host:      cfg.Embedding.Host,
		Timeout:   cfg.Embedding.Timeout,
		CacheSize: cfg.Embedding.CacheSize,
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	retriever, err := search.NewRetriever(embedder, search.RetrieverConfig{
		TopKInitial: cfg.Search.TopKInitial,
		TopKFinal:   cfg.Search.TopKFinal,
		Weights: search.Weights{
			Lexical: cfg.Search.BM25Weight,
			Vector:  cfg.Search.VectorWeight,
		},
		RRFK:           cfg.Search.RRFK,
		LexicalBackend: cfg.Search.LexicalBackend,
		Collection:     cfg.Collection,
	}, logger)
	if err != nil {
		embedder.Close()
		return nil, err
	}

	chunker := chunk.NewAdaptiveChunkerWithOptions(chunk.AdaptiveChunkerOptions{
		ChunkSize:    cfg.Chunking.ChunkSize,
		ChunkOverlap: cfg.Chunking.ChunkOverlap,
		MinChunkSize: cfg.Chunking.MinChunkSize,
	})

	return &Pipeline{
		chunker:   chunker,
		retriever: retriever,
		logger:    logger,
	}, nil
}

// NewWithRetriever builds a pipeline over an existing retriever.
// Used by callers that construct their own embedder.
func NewWithRetriever(chunker *chunk.AdaptiveChunker, retriever *search.Retriever, logger *slog.Logger) *Pipeline {
	if chunker == nil {
		chunker = chunk.NewAdaptiveChunker()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		chunker:   chunker,
		retriever: retriever,
		logger:    logger,
	}
}

// Ingest chunks and indexes the given documents, replacing any
// previously ingested corpus. Empty documents are skipped and counted,
// never a hard error. Embedding failure aborts the whole ingest and
// leaves the previous corpus live.
func (p *Pipeline) Ingest(ctx context.Context, documents []*docs.Document) (*IngestStats, error) {
	start := time.Now()
	stats := &IngestStats{}

	var allChunks []*chunk.Chunk
	for i, doc := range documents {
		if doc == nil || strings.TrimSpace(doc.Content) == "" {
			stats.Skipped++
			p.logger.Warn("skipping empty document", "position", i)
			continue
		}

		chunks := p.chunker.Chunk(doc.Content, doc.Metadata)
		if len(chunks) == 0 {
			stats.Skipped++
			p.logger.Warn("document produced no chunks", "position", i)
			continue
		}

		stats.Documents++
		allChunks = append(allChunks, chunks...)
	}

	if err := p.retriever.Index(ctx, allChunks); err != nil {
		return nil, err
	}
	stats.Chunks = len(allChunks)

	p.logger.Info("ingest_complete",
		"documents", stats.Documents,
		"chunks", stats.Chunks,
		"skipped", stats.Skipped,
		"duration_ms", time.Since(start).Milliseconds())
	return stats, nil
}

// Query retrieves the most relevant chunks and assembles them into a
// labeled context. Querying before any ingest, or missing everything,
// returns an empty result and no error.
func (p *Pipeline) Query(ctx context.Context, query string) (*QueryResult, error) {
	if strings.TrimSpace(query) == "" {
		return &QueryResult{Sources: []Source{}}, nil
	}

	results, err := p.retriever.Retrieve(ctx, query)
	if err != nil {
		return nil, err
	}

	if len(results) == 0 {
		return &QueryResult{Sources: []Source{}}, nil
	}

	var sb strings.Builder
	sources := make([]Source, 0, len(results))
	for i, r := range results {
		if i > 0 {
			sb.WriteString(contextSeparator)
		}
		fmt.Fprintf(&sb, "[Source %d] %s", i+1, r.Chunk.Content)

		sources = append(sources, Source{
			ChunkID:  r.Chunk.ID,
			Preview:  preview(r.Chunk.Content),
			Score:    r.Score,
			Metadata: r.Chunk.Metadata,
		})
	}

	p.logger.Debug("query_complete",
		"query_len", len(query),
		"sources", len(sources))
	return &QueryResult{
		Context: sb.String(),
		Sources: sources,
		Count:   len(sources),
	}, nil
}

// ChunkCount returns the number of chunks in the live corpus.
func (p *Pipeline) ChunkCount() int {
	return p.retriever.Count()
}

// Close releases the retriever and its embedder.
func (p *Pipeline) Close() error {
	return p.retriever.Close()
}

// preview truncates content for source listings, backing up to a rune
// boundary so the cut never produces invalid UTF-8.
func preview(content string) string {
	if len(content) <= SourcePreviewLength {
		return content
	}
	cut := SourcePreviewLength
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return content[:cut] + "..."
}
