package embed

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticEmbedder_Deterministic(t *testing.T) {
	e := NewStaticEmbedder()
	ctx := context.Background()

	a, err := e.Embed(ctx, "hybrid retrieval with rank fusion")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "hybrid retrieval with rank fusion")
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestStaticEmbedder_DifferentTextsDiffer(t *testing.T) {
	e := NewStaticEmbedder()
	ctx := context.Background()

	a, err := e.Embed(ctx, "alpha bravo charlie")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "delta echo foxtrot")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestStaticEmbedder_UnitLength(t *testing.T) {
	e := NewStaticEmbedder()

	vec, err := e.Embed(context.Background(), "some meaningful text about documents")
	require.NoError(t, err)
	require.Len(t, vec, StaticDimensions)

	var sumSquares float64
	for _, v := range vec {
		sumSquares += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sumSquares), 1e-5)
}

func TestStaticEmbedder_EmptyTextZeroVector(t *testing.T) {
	e := NewStaticEmbedder()

	vec, err := e.Embed(context.Background(), "   ")
	require.NoError(t, err)
	require.Len(t, vec, StaticDimensions)

	for _, v := range vec {
		assert.Zero(t, v)
	}
}

func TestStaticEmbedder_EmbedBatch(t *testing.T) {
	e := NewStaticEmbedder()
	ctx := context.Background()

	texts := []string{"first document", "second document", ""}
	vecs, err := e.EmbedBatch(ctx, texts)
	require.NoError(t, err)
	require.Len(t, vecs, 3)

	single, err := e.Embed(ctx, "first document")
	require.NoError(t, err)
	assert.Equal(t, single, vecs[0])
}

func TestStaticEmbedder_ClosedErrors(t *testing.T) {
	e := NewStaticEmbedder()
	require.NoError(t, e.Close())

	_, err := e.Embed(context.Background(), "text")
	assert.Error(t, err)
	assert.False(t, e.Available(context.Background()))
}

func TestSplitCamelCase(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"camelCase", []string{"camel", "Case"}},
		{"HTTPServer", []string{"HTTP", "Server"}},
		{"simple", []string{"simple"}},
		{"", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, splitCamelCase(tt.input))
		})
	}
}

func TestTokenize_SplitsIdentifiers(t *testing.T) {
	tokens := tokenize("parseChunk store_index")
	assert.Contains(t, tokens, "parse")
	assert.Contains(t, tokens, "chunk")
	assert.Contains(t, tokens, "store")
	assert.Contains(t, tokens, "index")
}

func TestExtractNgrams(t *testing.T) {
	assert.Equal(t, []string{"abc", "bcd"}, extractNgrams("abcd", 3))
	assert.Empty(t, extractNgrams("ab", 3))
}
