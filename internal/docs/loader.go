// Package docs loads source documents from the filesystem for ingestion.
package docs

import (
	"bytes"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultMaxFileSize is the default maximum file size to load (10MB).
// Larger files are skipped to prevent memory exhaustion.
const DefaultMaxFileSize int64 = 10 * 1024 * 1024

// supportedExtensions are the file types the loader accepts.
var supportedExtensions = map[string]bool{
	".txt": true,
	".md":  true,
	".py":  true,
	".go":  true,
}

// Document is a raw input document before chunking.
type Document struct {
	Content  string
	Metadata map[string]string
}

// Loader reads documents from files and directories.
type Loader struct {
	maxFileSize int64
	logger      *slog.Logger
}

// NewLoader creates a loader with default limits.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		maxFileSize: DefaultMaxFileSize,
		logger:      logger,
	}
}

// Load reads documents from path. A file path yields one document; a
// directory is walked recursively for supported file types. Unreadable
// or binary files are skipped with a warning, never a hard error.
func (l *Loader) Load(path string) ([]*Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if !info.IsDir() {
		doc, err := l.loadFile(path)
		if err != nil {
			return nil, err
		}
		if doc == nil {
			return []*Document{}, nil
		}
		return []*Document{doc}, nil
	}

	var documents []*Document
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			l.logger.Warn("skipping unreadable path", "path", p, "error", err)
			return nil
		}
		if d.IsDir() {
			// Hidden directories hold no ingestable content
			if name := d.Name(); name != "." && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if !supportedExtensions[strings.ToLower(filepath.Ext(p))] {
			return nil
		}

		doc, err := l.loadFile(p)
		if err != nil {
			l.logger.Warn("skipping unreadable file", "path", p, "error", err)
			return nil
		}
		if doc != nil {
			documents = append(documents, doc)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", path, err)
	}

	// Walk order is already lexical per directory, sorting by source
	// makes the full set deterministic across platforms.
	sort.Slice(documents, func(i, j int) bool {
		return documents[i].Metadata["source"] < documents[j].Metadata["source"]
	})

	return documents, nil
}

// loadFile reads a single file into a document. Returns nil (no error)
// for files that should be skipped.
func (l *Loader) loadFile(path string) (*Document, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	if info.Size() > l.maxFileSize {
		l.logger.Warn("skipping oversized file",
			"path", path,
			"size", info.Size(),
			"max", l.maxFileSize)
		return nil, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	if isBinaryContent(content) {
		l.logger.Debug("skipping binary file", "path", path)
		return nil, nil
	}

	return &Document{
		Content: string(content),
		Metadata: map[string]string{
			"source":   path,
			"filename": filepath.Base(path),
		},
	}, nil
}

// isBinaryContent reports whether content looks binary by checking for
// NUL bytes in the first 8KB.
func isBinaryContent(content []byte) bool {
	sample := content
	if len(sample) > 8192 {
		sample = sample[:8192]
	}
	return bytes.IndexByte(sample, 0) != -1
}
