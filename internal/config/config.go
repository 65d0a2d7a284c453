// Package config loads and validates pipeline configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete ragpipe configuration.
type Config struct {
	Chunking  ChunkingConfig  `yaml:"chunking" json:"chunking"`
	Search    SearchConfig    `yaml:"search" json:"search"`
	Embedding EmbeddingConfig `yaml:"embedding" json:"embedding"`

	// Collection is an opaque namespace label for the vector store.
	Collection string `yaml:"collection" json:"collection"`

	// LogLevel controls logging verbosity: debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`
}

// ChunkingConfig configures the adaptive chunker.
type ChunkingConfig struct {
	// ChunkSize is the target chunk size in characters.
	ChunkSize int `yaml:"chunk_size" json:"chunk_size"`

	// ChunkOverlap is the number of words carried over from the
	// previous chunk.
	ChunkOverlap int `yaml:"chunk_overlap" json:"chunk_overlap"`

	// MinChunkSize drops chunks shorter than this after trimming.
	MinChunkSize int `yaml:"min_chunk_size" json:"min_chunk_size"`
}

// SearchConfig configures hybrid retrieval and RRF fusion.
type SearchConfig struct {
	// TopKInitial is how many candidates each source contributes.
	TopKInitial int `yaml:"top_k_initial" json:"top_k_initial"`

	// TopKFinal is how many fused results a query returns.
	TopKFinal int `yaml:"top_k_final" json:"top_k_final"`

	// BM25Weight is the RRF multiplier for lexical contributions.
	BM25Weight float64 `yaml:"bm25_weight" json:"bm25_weight"`

	// VectorWeight is the RRF multiplier for semantic contributions.
	VectorWeight float64 `yaml:"vector_weight" json:"vector_weight"`

	// RRFK is the RRF smoothing constant (k).
	// Default: 60 (industry standard used by Azure AI Search, OpenSearch).
	RRFK int `yaml:"rrf_k" json:"rrf_k"`

	// LexicalBackend selects the BM25 index backend.
	// Options: "bleve" (default, in-memory) or "sqlite" (FTS5)
	LexicalBackend string `yaml:"lexical_backend" json:"lexical_backend"`
}

// EmbeddingConfig configures the embedding provider.
type EmbeddingConfig struct {
	// Provider selects the embedder: "ollama" (default) or "static".
	Provider string `yaml:"provider" json:"provider"`

	// Model is the embedding model name (Ollama only).
	Model string `yaml:"model" json:"model"`

	// Host is the Ollama API endpoint (default: http://localhost:11434).
	Host string `yaml:"host" json:"host"`

	// Timeout is the per-request embedding timeout.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`

	// CacheSize is the embedding LRU cache capacity.
	// Negative disables caching.
	CacheSize int `yaml:"cache_size" json:"cache_size"`
}

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Chunking: ChunkingConfig{
			ChunkSize:    512,
			ChunkOverlap: 50,
			MinChunkSize: 100,
		},
		Search: SearchConfig{
			TopKInitial:    20,
			TopKFinal:      5,
			BM25Weight:     0.3,
			VectorWeight:   0.7,
			RRFK:           60,
			LexicalBackend: "bleve",
		},
		Embedding: EmbeddingConfig{
			Provider:  "ollama",
			Model:     "nomic-embed-text",
			Host:      "", // Empty uses default http://localhost:11434
			Timeout:   60 * time.Second,
			CacheSize: 1000,
		},
		Collection: "default",
		LogLevel:   "info",
	}
}

// Load loads configuration from the specified directory.
// It applies configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. Project config (.ragpipe.yaml in dir)
//  3. Environment variables (RAGPIPE_*)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadFile loads configuration from an explicit file path, then applies
// env overrides and validates.
func LoadFile(path string) (*Config, error) {
	cfg := NewConfig()

	if err := cfg.loadYAML(path); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFromFile attempts to load configuration from .ragpipe.yaml or .ragpipe.yml.
func (c *Config) loadFromFile(dir string) error {
	yamlPath := filepath.Join(dir, ".ragpipe.yaml")
	if _, err := os.Stat(yamlPath); err == nil {
		return c.loadYAML(yamlPath)
	}

	ymlPath := filepath.Join(dir, ".ragpipe.yml")
	if _, err := os.Stat(ymlPath); err == nil {
		return c.loadYAML(ymlPath)
	}

	// No config file is fine, use defaults
	return nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Chunking.ChunkSize != 0 {
		c.Chunking.ChunkSize = other.Chunking.ChunkSize
	}
	if other.Chunking.ChunkOverlap != 0 {
		c.Chunking.ChunkOverlap = other.Chunking.ChunkOverlap
	}
	if other.Chunking.MinChunkSize != 0 {
		c.Chunking.MinChunkSize = other.Chunking.MinChunkSize
	}

	if other.Search.TopKInitial != 0 {
		c.Search.TopKInitial = other.Search.TopKInitial
	}
	if other.Search.TopKFinal != 0 {
		c.Search.TopKFinal = other.Search.TopKFinal
	}
	// 0 is not a practical value for weights, so only non-zero merges
	if other.Search.BM25Weight != 0 {
		c.Search.BM25Weight = other.Search.BM25Weight
	}
	if other.Search.VectorWeight != 0 {
		c.Search.VectorWeight = other.Search.VectorWeight
	}
	if other.Search.RRFK != 0 {
		c.Search.RRFK = other.Search.RRFK
	}
	if other.Search.LexicalBackend != "" {
		c.Search.LexicalBackend = other.Search.LexicalBackend
	}

	if other.Embedding.Provider != "" {
		c.Embedding.Provider = other.Embedding.Provider
	}
	if other.Embedding.Model != "" {
		c.Embedding.Model = other.Embedding.Model
	}
	if other.Embedding.Host != "" {
		c.Embedding.Host = other.Embedding.Host
	}
	if other.Embedding.Timeout != 0 {
		c.Embedding.Timeout = other.Embedding.Timeout
	}
	if other.Embedding.CacheSize != 0 {
		c.Embedding.CacheSize = other.Embedding.CacheSize
	}

	if other.Collection != "" {
		c.Collection = other.Collection
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
}

// applyEnvOverrides applies RAGPIPE_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("RAGPIPE_CHUNK_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Chunking.ChunkSize = n
		}
	}
	if v := os.Getenv("RAGPIPE_CHUNK_OVERLAP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Chunking.ChunkOverlap = n
		}
	}
	if v := os.Getenv("RAGPIPE_MIN_CHUNK_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Chunking.MinChunkSize = n
		}
	}

	// Weights support explicit zero values via env vars
	if v := os.Getenv("RAGPIPE_BM25_WEIGHT"); v != "" {
		if w, err := parseFloat64(v); err == nil && w >= 0 {
			c.Search.BM25Weight = w
		}
	}
	if v := os.Getenv("RAGPIPE_VECTOR_WEIGHT"); v != "" {
		if w, err := parseFloat64(v); err == nil && w >= 0 {
			c.Search.VectorWeight = w
		}
	}
	if v := os.Getenv("RAGPIPE_RRF_K"); v != "" {
		if k, err := strconv.Atoi(v); err == nil && k > 0 {
			c.Search.RRFK = k
		}
	}
	if v := os.Getenv("RAGPIPE_TOP_K_INITIAL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Search.TopKInitial = n
		}
	}
	if v := os.Getenv("RAGPIPE_TOP_K_FINAL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Search.TopKFinal = n
		}
	}
	if v := os.Getenv("RAGPIPE_LEXICAL_BACKEND"); v != "" {
		c.Search.LexicalBackend = v
	}

	if v := os.Getenv("RAGPIPE_EMBEDDING_PROVIDER"); v != "" {
		c.Embedding.Provider = v
	}
	if v := os.Getenv("RAGPIPE_EMBEDDING_MODEL"); v != "" {
		c.Embedding.Model = v
	}
	if v := os.Getenv("RAGPIPE_OLLAMA_HOST"); v != "" {
		c.Embedding.Host = v
	}

	if v := os.Getenv("RAGPIPE_COLLECTION"); v != "" {
		c.Collection = v
	}
	if v := os.Getenv("RAGPIPE_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// Validate checks the configuration for contradictions. All errors are
// reported at load time, never deferred to first use.
func (c *Config) Validate() error {
	if c.Chunking.ChunkSize <= 0 {
		return fmt.Errorf("chunking.chunk_size must be positive, got %d", c.Chunking.ChunkSize)
	}
	if c.Chunking.ChunkOverlap < 0 {
		return fmt.Errorf("chunking.chunk_overlap must be non-negative, got %d", c.Chunking.ChunkOverlap)
	}
	if c.Chunking.MinChunkSize < 0 {
		return fmt.Errorf("chunking.min_chunk_size must be non-negative, got %d", c.Chunking.MinChunkSize)
	}

	if c.Search.TopKInitial <= 0 {
		return fmt.Errorf("search.top_k_initial must be positive, got %d", c.Search.TopKInitial)
	}
	if c.Search.TopKFinal <= 0 {
		return fmt.Errorf("search.top_k_final must be positive, got %d", c.Search.TopKFinal)
	}
	if c.Search.TopKFinal > c.Search.TopKInitial {
		return fmt.Errorf("search.top_k_final (%d) cannot exceed search.top_k_initial (%d)",
			c.Search.TopKFinal, c.Search.TopKInitial)
	}
	if c.Search.BM25Weight < 0 {
		return fmt.Errorf("search.bm25_weight must be non-negative, got %v", c.Search.BM25Weight)
	}
	if c.Search.VectorWeight < 0 {
		return fmt.Errorf("search.vector_weight must be non-negative, got %v", c.Search.VectorWeight)
	}
	if c.Search.RRFK <= 0 {
		return fmt.Errorf("search.rrf_k must be positive, got %d", c.Search.RRFK)
	}
	switch c.Search.LexicalBackend {
	case "", "bleve", "sqlite":
	default:
		return fmt.Errorf("search.lexical_backend must be bleve or sqlite, got %q", c.Search.LexicalBackend)
	}

	switch c.Embedding.Provider {
	case "", "ollama", "static":
	default:
		return fmt.Errorf("embedding.provider must be ollama or static, got %q", c.Embedding.Provider)
	}
	if c.Embedding.Timeout < 0 {
		return fmt.Errorf("embedding.timeout must be non-negative, got %v", c.Embedding.Timeout)
	}

	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	return nil
}

// parseFloat64 parses a string to float64, used for config parsing.
func parseFloat64(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}
