package embed

import (
	"context"
	"fmt"
	"time"
)

// ProviderType represents an embedding provider
type ProviderType string

const (
	// ProviderOllama uses the Ollama HTTP API for embeddings (default)
	ProviderOllama ProviderType = "ollama"

	// ProviderStatic uses hash-based embeddings (offline, deterministic)
	ProviderStatic ProviderType = "static"
)

// FactoryConfig selects and configures an embedding provider. Provider
// selection is explicit per pipeline, never process-wide state, so
// pipelines with different providers can coexist.
type FactoryConfig struct {
	// Provider selects the implementation (default: ollama)
	Provider ProviderType

	// Model is the embedding model identifier, passed through to the provider
	Model string

	// Host is the provider endpoint (ollama only)
	Host string

	// Timeout for provider requests (ollama only)
	Timeout time.Duration

	// CacheSize is the LRU embedding cache capacity.
	// Zero means DefaultEmbeddingCacheSize, negative disables caching.
	CacheSize int
}

// NewEmbedder creates an embedder from explicit configuration.
// A requested provider that is unavailable is an error, never a silent
// substitution with a weaker provider.
func NewEmbedder(ctx context.Context, cfg FactoryConfig) (Embedder, error) {
	var embedder Embedder

	switch cfg.Provider {
	case ProviderStatic:
		embedder = NewStaticEmbedder()

	case ProviderOllama, "":
		ocfg := DefaultOllamaConfig()
		if cfg.Host != "" {
			ocfg.Host = cfg.Host
		}
		if cfg.Model != "" {
			ocfg.Model = cfg.Model
		}
		if cfg.Timeout > 0 {
			ocfg.Timeout = cfg.Timeout
		}
		oe, err := NewOllamaEmbedder(ctx, ocfg)
		if err != nil {
			return nil, err
		}
		embedder = oe

	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}

	if cfg.CacheSize >= 0 {
		embedder = NewCachedEmbedder(embedder, cfg.CacheSize)
	}

	return embedder, nil
}
