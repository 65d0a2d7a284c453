package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ragpipe/ragpipe/internal/docs"
	"github.com/ragpipe/ragpipe/internal/output"
	"github.com/ragpipe/ragpipe/internal/pipeline"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	path    string // file or directory to ingest
	limit   int    // override for top_k_final
	format  string // "text", "json"
	offline bool   // use static embeddings
	backend string // lexical backend override
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Ingest documents and search them",
		Long: `Ingest a file or directory, then run a hybrid search over it.

Combines BM25 (keyword) and semantic (embedding) search
with Reciprocal Rank Fusion.

Examples:
  ragpipe search "error handling" --path ./docs
  ragpipe search "adaptive chunking" --path notes.md --limit 3
  ragpipe search "token filters" --path ./docs --format json --offline`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSearch(cmd.Context(), cmd, query, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.path, "path", "p", ".", "File or directory to ingest")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (default from config)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().BoolVar(&opts.offline, "offline", false, "Use static embeddings (no Ollama required)")
	cmd.Flags().StringVar(&opts.backend, "backend", "", "Lexical backend: bleve, sqlite")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts searchOptions) error {
	out := output.New(cmd.OutOrStdout())

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if opts.offline {
		cfg.Embedding.Provider = "static"
	}
	if opts.backend != "" {
		cfg.Search.LexicalBackend = opts.backend
	}
	if opts.limit > 0 {
		cfg.Search.TopKFinal = opts.limit
		if cfg.Search.TopKFinal > cfg.Search.TopKInitial {
			cfg.Search.TopKInitial = cfg.Search.TopKFinal
		}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	documents, err := docs.NewLoader(slog.Default()).Load(opts.path)
	if err != nil {
		return fmt.Errorf("loading documents: %w", err)
	}
	if len(documents) == 0 {
		out.Warning(fmt.Sprintf("No ingestable documents found under %s", opts.path))
		return nil
	}

	p, err := pipeline.New(ctx, cfg, slog.Default())
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	stats, err := p.Ingest(ctx, documents)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	slog.Info("search_corpus_ready",
		"documents", stats.Documents,
		"chunks", stats.Chunks,
		"skipped", stats.Skipped)

	result, err := p.Query(ctx, query)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	switch opts.format {
	case "json":
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	default:
		return formatText(out, query, result)
	}
}

// formatText outputs results in human-readable form.
func formatText(out *output.Writer, query string, result *pipeline.QueryResult) error {
	if result.Count == 0 {
		out.Status("", fmt.Sprintf("No results found for %q", query))
		return nil
	}

	out.Statusf("🔍", "Found %d results for %q:", result.Count, query)
	out.Newline()

	for i, src := range result.Sources {
		location := src.Metadata["source"]
		if location == "" {
			location = src.ChunkID
		}
		out.Statusf("", "%d. %s (score: %.4f)", i+1, location, src.Score)
		for _, line := range snippet(src.Preview, 3) {
			out.Status("", "   "+line)
		}
		out.Newline()
	}
	return nil
}

// snippet returns the first n lines of content.
func snippet(content string, n int) []string {
	lines := strings.Split(content, "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
