package pipeline

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragpipe/ragpipe/internal/chunk"
	"github.com/ragpipe/ragpipe/internal/config"
	"github.com/ragpipe/ragpipe/internal/docs"
	"github.com/ragpipe/ragpipe/internal/embed"
	"github.com/ragpipe/ragpipe/internal/search"
)

func testConfig() *config.Config {
	cfg := config.NewConfig()
	cfg.Embedding.Provider = "static"
	// Small thresholds so short fixtures survive chunking
	cfg.Chunking.ChunkSize = 120
	cfg.Chunking.ChunkOverlap = 4
	cfg.Chunking.MinChunkSize = 10
	return cfg
}

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	p, err := New(context.Background(), testConfig(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p
}

func doc(content string, meta map[string]string) *docs.Document {
	return &docs.Document{Content: content, Metadata: meta}
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Search.TopKFinal = 100

	_, err := New(context.Background(), cfg, nil)
	require.Error(t, err)
}

func TestPipeline_IngestAndQuery(t *testing.T) {
	p := newTestPipeline(t)
	ctx := context.Background()

	stats, err := p.Ingest(ctx, []*docs.Document{
		doc("The solar system has eight planets orbiting the sun.", map[string]string{"source": "astro.md"}),
		doc("Sourdough bread needs a well fed starter and patience.", map[string]string{"source": "baking.md"}),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Documents)
	assert.Equal(t, 0, stats.Skipped)
	assert.Greater(t, stats.Chunks, 0)
	assert.Equal(t, stats.Chunks, p.ChunkCount())

	result, err := p.Query(ctx, "planets orbiting the sun")
	require.NoError(t, err)
	require.NotEmpty(t, result.Sources)
	assert.Equal(t, len(result.Sources), result.Count)

	assert.Contains(t, result.Context, "[Source 1]")
	assert.Contains(t, result.Context, "planets")
	assert.Equal(t, "astro.md", result.Sources[0].Metadata["source"])
}

func TestPipeline_QueryBeforeIngest(t *testing.T) {
	p := newTestPipeline(t)

	result, err := p.Query(context.Background(), "anything at all")
	require.NoError(t, err)
	assert.Empty(t, result.Context)
	assert.Empty(t, result.Sources)
	assert.Equal(t, 0, result.Count)
}

func TestPipeline_EmptyQuery(t *testing.T) {
	p := newTestPipeline(t)
	ctx := context.Background()

	_, err := p.Ingest(ctx, []*docs.Document{doc("some indexed content here", nil)})
	require.NoError(t, err)

	result, err := p.Query(ctx, "   ")
	require.NoError(t, err)
	assert.Empty(t, result.Sources)
}

func TestPipeline_SkipsEmptyDocuments(t *testing.T) {
	p := newTestPipeline(t)

	stats, err := p.Ingest(context.Background(), []*docs.Document{
		doc("", nil),
		doc("   \n\t  ", nil),
		nil,
		doc("a real document with enough words to index", nil),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Documents)
	assert.Equal(t, 3, stats.Skipped)
}

func TestPipeline_ReingestReplacesCorpus(t *testing.T) {
	p := newTestPipeline(t)
	ctx := context.Background()

	_, err := p.Ingest(ctx, []*docs.Document{doc("mountains and alpine hiking trails", nil)})
	require.NoError(t, err)

	_, err = p.Ingest(ctx, []*docs.Document{doc("submarines and deep ocean trenches", nil)})
	require.NoError(t, err)

	result, err := p.Query(ctx, "alpine hiking")
	require.NoError(t, err)
	for _, s := range result.Sources {
		assert.NotContains(t, s.Preview, "alpine")
	}
}

func TestPipeline_IngestIdempotentIDs(t *testing.T) {
	p := newTestPipeline(t)
	ctx := context.Background()

	documents := []*docs.Document{doc("identical content ingested twice for identifier stability", nil)}

	_, err := p.Ingest(ctx, documents)
	require.NoError(t, err)
	first, err := p.Query(ctx, "identifier stability")
	require.NoError(t, err)
	require.NotEmpty(t, first.Sources)

	_, err = p.Ingest(ctx, documents)
	require.NoError(t, err)
	second, err := p.Query(ctx, "identifier stability")
	require.NoError(t, err)
	require.NotEmpty(t, second.Sources)

	assert.Equal(t, first.Sources[0].ChunkID, second.Sources[0].ChunkID)
}

func TestPipeline_SourcePreviewTruncated(t *testing.T) {
	p := newTestPipeline(t)
	ctx := context.Background()

	long := strings.Repeat("searchable preview content ", 20)
	_, err := p.Ingest(ctx, []*docs.Document{doc(long, nil)})
	require.NoError(t, err)

	result, err := p.Query(ctx, "searchable preview")
	require.NoError(t, err)
	require.NotEmpty(t, result.Sources)
	assert.LessOrEqual(t, len(result.Sources[0].Preview), SourcePreviewLength+3)
}

func TestPipeline_ContextSeparators(t *testing.T) {
	p := newTestPipeline(t)
	ctx := context.Background()

	_, err := p.Ingest(ctx, []*docs.Document{
		doc("common topic first distinct document body", nil),
		doc("common topic second distinct document body", nil),
	})
	require.NoError(t, err)

	result, err := p.Query(ctx, "common topic document")
	require.NoError(t, err)
	if len(result.Sources) > 1 {
		assert.Contains(t, result.Context, contextSeparator)
		assert.Contains(t, result.Context, "[Source 2]")
	}
}

func TestNewWithRetriever(t *testing.T) {
	retriever, err := search.NewRetriever(embed.NewStaticEmbedder(), search.DefaultRetrieverConfig(), nil)
	require.NoError(t, err)

	p := NewWithRetriever(chunk.NewAdaptiveChunkerWithOptions(chunk.AdaptiveChunkerOptions{
		ChunkSize:    100,
		ChunkOverlap: 2,
		MinChunkSize: 5,
	}), retriever, nil)
	defer p.Close()

	ctx := context.Background()
	_, err = p.Ingest(ctx, []*docs.Document{doc("wired through an external retriever", nil)})
	require.NoError(t, err)

	result, err := p.Query(ctx, "external retriever")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Sources)
}

func TestPreview_RuneBoundary(t *testing.T) {
	long := strings.Repeat("é", SourcePreviewLength)
	p := preview(long)
	assert.True(t, utf8.ValidString(p))
	assert.True(t, strings.HasSuffix(p, "..."))
	assert.LessOrEqual(t, len(p), SourcePreviewLength+3)

	short := "brief"
	assert.Equal(t, short, preview(short))
}
