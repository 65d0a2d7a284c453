package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ragpipe/ragpipe/internal/chunk"
	"github.com/ragpipe/ragpipe/internal/docs"
	"github.com/ragpipe/ragpipe/internal/output"
)

// chunkOptions holds CLI flags for chunk.
type chunkOptions struct {
	format      string
	showContent bool
}

func newChunkCmd() *cobra.Command {
	var opts chunkOptions

	cmd := &cobra.Command{
		Use:   "chunk <file>",
		Short: "Show how a document would be chunked",
		Long: `Run the adaptive chunker over a file and print the resulting chunks.

Useful for tuning chunk_size, chunk_overlap, and min_chunk_size.

Examples:
  ragpipe chunk README.md
  ragpipe chunk main.py --show-content
  ragpipe chunk notes.txt --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChunk(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().BoolVar(&opts.showContent, "show-content", false, "Print full chunk content")

	return cmd
}

func runChunk(cmd *cobra.Command, path string, opts chunkOptions) error {
	out := output.New(cmd.OutOrStdout())

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	documents, err := docs.NewLoader(slog.Default()).Load(path)
	if err != nil {
		return fmt.Errorf("loading document: %w", err)
	}
	if len(documents) == 0 {
		out.Warning(fmt.Sprintf("Nothing to chunk at %s", path))
		return nil
	}

	chunker := chunk.NewAdaptiveChunkerWithOptions(chunk.AdaptiveChunkerOptions{
		ChunkSize:    cfg.Chunking.ChunkSize,
		ChunkOverlap: cfg.Chunking.ChunkOverlap,
		MinChunkSize: cfg.Chunking.MinChunkSize,
	})

	var chunks []*chunk.Chunk
	for _, doc := range documents {
		chunks = append(chunks, chunker.Chunk(doc.Content, doc.Metadata)...)
	}

	if opts.format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(chunks)
	}

	out.Statusf("📄", "%s produced %d chunks (size=%d overlap=%d min=%d):",
		path, len(chunks), cfg.Chunking.ChunkSize, cfg.Chunking.ChunkOverlap, cfg.Chunking.MinChunkSize)
	out.Newline()

	for _, c := range chunks {
		kind := "prose"
		if c.IsCode {
			kind = "code"
		}
		out.Statusf("", "%d. %s  %s  %d chars", c.Index+1, c.ID, kind, len(c.Content))
		if opts.showContent {
			out.Code(c.Content)
		}
	}
	return nil
}
