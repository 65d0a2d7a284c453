package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, 512, cfg.Chunking.ChunkSize)
	assert.Equal(t, 50, cfg.Chunking.ChunkOverlap)
	assert.Equal(t, 100, cfg.Chunking.MinChunkSize)

	assert.Equal(t, 20, cfg.Search.TopKInitial)
	assert.Equal(t, 5, cfg.Search.TopKFinal)
	assert.Equal(t, 0.3, cfg.Search.BM25Weight)
	assert.Equal(t, 0.7, cfg.Search.VectorWeight)
	assert.Equal(t, 60, cfg.Search.RRFK)
	assert.Equal(t, "bleve", cfg.Search.LexicalBackend)

	assert.Equal(t, "ollama", cfg.Embedding.Provider)
	assert.Equal(t, "nomic-embed-text", cfg.Embedding.Model)
	assert.Equal(t, 60*time.Second, cfg.Embedding.Timeout)
	assert.Equal(t, 1000, cfg.Embedding.CacheSize)

	assert.Equal(t, "default", cfg.Collection)
	assert.Equal(t, "info", cfg.LogLevel)

	require.NoError(t, cfg.Validate())
}

func TestLoad_NoConfigFile(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, NewConfig(), cfg)
}

func TestLoad_YAMLOverrides(t *testing.T) {
	dir := t.TempDir()
	content := `
chunking:
  chunk_size: 1024
  chunk_overlap: 20
search:
  top_k_final: 3
  lexical_backend: sqlite
embedding:
  provider: static
collection: docs
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".ragpipe.yaml"), []byte(content), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	// Overridden values
	assert.Equal(t, 1024, cfg.Chunking.ChunkSize)
	assert.Equal(t, 20, cfg.Chunking.ChunkOverlap)
	assert.Equal(t, 3, cfg.Search.TopKFinal)
	assert.Equal(t, "sqlite", cfg.Search.LexicalBackend)
	assert.Equal(t, "static", cfg.Embedding.Provider)
	assert.Equal(t, "docs", cfg.Collection)

	// Untouched values keep defaults
	assert.Equal(t, 100, cfg.Chunking.MinChunkSize)
	assert.Equal(t, 20, cfg.Search.TopKInitial)
	assert.Equal(t, 0.3, cfg.Search.BM25Weight)
}

func TestLoad_YmlFallback(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".ragpipe.yml"),
		[]byte("collection: from-yml\n"), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "from-yml", cfg.Collection)
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".ragpipe.yaml"),
		[]byte("chunking: [not a map"), 0o644))

	_, err := Load(dir)
	require.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()

	t.Setenv("RAGPIPE_CHUNK_SIZE", "256")
	t.Setenv("RAGPIPE_BM25_WEIGHT", "0")
	t.Setenv("RAGPIPE_VECTOR_WEIGHT", "1.0")
	t.Setenv("RAGPIPE_EMBEDDING_PROVIDER", "static")
	t.Setenv("RAGPIPE_LEXICAL_BACKEND", "sqlite")
	t.Setenv("RAGPIPE_LOG_LEVEL", "debug")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 256, cfg.Chunking.ChunkSize)
	// Env vars can set a weight to exactly zero
	assert.Equal(t, 0.0, cfg.Search.BM25Weight)
	assert.Equal(t, 1.0, cfg.Search.VectorWeight)
	assert.Equal(t, "static", cfg.Embedding.Provider)
	assert.Equal(t, "sqlite", cfg.Search.LexicalBackend)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_EnvBeatsFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".ragpipe.yaml"),
		[]byte("collection: from-file\n"), 0o644))
	t.Setenv("RAGPIPE_COLLECTION", "from-env")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Collection)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"zero chunk size", func(c *Config) { c.Chunking.ChunkSize = 0 }, "chunk_size"},
		{"negative overlap", func(c *Config) { c.Chunking.ChunkOverlap = -1 }, "chunk_overlap"},
		{"negative min size", func(c *Config) { c.Chunking.MinChunkSize = -1 }, "min_chunk_size"},
		{"zero top_k_initial", func(c *Config) { c.Search.TopKInitial = 0 }, "top_k_initial"},
		{"zero top_k_final", func(c *Config) { c.Search.TopKFinal = 0 }, "top_k_final"},
		{"final exceeds initial", func(c *Config) { c.Search.TopKFinal = 50 }, "cannot exceed"},
		{"negative bm25 weight", func(c *Config) { c.Search.BM25Weight = -0.5 }, "bm25_weight"},
		{"negative vector weight", func(c *Config) { c.Search.VectorWeight = -0.5 }, "vector_weight"},
		{"zero rrf_k", func(c *Config) { c.Search.RRFK = 0 }, "rrf_k"},
		{"bad backend", func(c *Config) { c.Search.LexicalBackend = "postgres" }, "lexical_backend"},
		{"bad provider", func(c *Config) { c.Embedding.Provider = "openai" }, "provider"},
		{"negative timeout", func(c *Config) { c.Embedding.Timeout = -time.Second }, "timeout"},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }, "log_level"},
		{"zero weights allowed", func(c *Config) {
			c.Search.BM25Weight = 0
			c.Search.VectorWeight = 0
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestLoad_InvalidConfigRejected(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".ragpipe.yaml"),
		[]byte("search:\n  top_k_initial: 2\n  top_k_final: 10\n"), 0o644))

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot exceed")
}

func TestSaveAndLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	cfg := NewConfig()
	cfg.Collection = "saved"
	cfg.Search.TopKFinal = 7
	require.NoError(t, cfg.Save(path))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "saved", loaded.Collection)
	assert.Equal(t, 7, loaded.Search.TopKFinal)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
