// Package chunk splits document text into bounded, overlapping retrieval units.
package chunk

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// codeIndicators is the fixed keyword set used for content-type detection.
// Two or more distinct hits anywhere in the text classify it as code.
var codeIndicators = []string{
	"def ", "class ", "import ",
	"function ", "const ", "let ", "var ",
	"public ", "private ", "static ",
}

// codeBoundaryKeywords open a structural boundary when a trimmed line
// starts with one of them.
var codeBoundaryKeywords = []string{"def ", "class ", "function ", "async "}

// AdaptiveChunkerOptions configures the adaptive chunker behavior.
type AdaptiveChunkerOptions struct {
	ChunkSize    int // target maximum characters per chunk (default: DefaultChunkSize)
	ChunkOverlap int // words carried from the previous chunk (default: DefaultChunkOverlap)
	MinChunkSize int // trimmed chunks below this length are dropped (default: DefaultMinChunkSize)
}

// AdaptiveChunker splits text with a strategy chosen per document:
// paragraph/sentence accumulation for prose, definition-boundary splitting
// for code. Adjacent chunks share a configurable word overlap.
type AdaptiveChunker struct {
	options AdaptiveChunkerOptions
}

// NewAdaptiveChunker creates an adaptive chunker with default options.
func NewAdaptiveChunker() *AdaptiveChunker {
	return NewAdaptiveChunkerWithOptions(AdaptiveChunkerOptions{})
}

// NewAdaptiveChunkerWithOptions creates an adaptive chunker with custom options.
func NewAdaptiveChunkerWithOptions(opts AdaptiveChunkerOptions) *AdaptiveChunker {
	if opts.ChunkSize == 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.ChunkOverlap == 0 {
		opts.ChunkOverlap = DefaultChunkOverlap
	}
	if opts.MinChunkSize == 0 {
		opts.MinChunkSize = DefaultMinChunkSize
	}
	return &AdaptiveChunker{options: opts}
}

// Chunk splits text into ordered chunks, copying metadata onto each.
// Empty input produces zero chunks. Chunks whose trimmed content falls
// below MinChunkSize are dropped after overlap injection, so their raw
// index positions still appear in the surviving chunks' Index fields.
func (c *AdaptiveChunker) Chunk(text string, metadata map[string]string) []*Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	isCode := c.isCode(text)

	var raw []string
	if isCode {
		raw = c.chunkCode(text)
	} else {
		raw = c.chunkProse(text)
	}

	overlapped, prefixLens := c.addOverlap(raw)

	var chunks []*Chunk
	for i, content := range overlapped {
		trimmed := strings.TrimSpace(content)
		if len(trimmed) < c.options.MinChunkSize {
			continue
		}

		meta := make(map[string]string, len(metadata)+2)
		for k, v := range metadata {
			meta[k] = v
		}
		meta[MetaChunkIndex] = strconv.Itoa(i)
		meta[MetaIsCode] = strconv.FormatBool(isCode)

		chunks = append(chunks, &Chunk{
			ID:               generateChunkID(trimmed),
			Content:          trimmed,
			Index:            i,
			IsCode:           isCode,
			OverlapPrefixLen: prefixLens[i],
			Metadata:         meta,
		})
	}

	return chunks
}

// isCode detects whether text is primarily code.
func (c *AdaptiveChunker) isCode(text string) bool {
	count := 0
	for _, ind := range codeIndicators {
		if strings.Contains(text, ind) {
			count++
		}
	}
	return count >= 2
}

// chunkProse accumulates blank-line paragraphs up to the target size.
// A paragraph that alone exceeds the target is split at sentence
// boundaries with the same accumulate-and-emit rule. A single sentence
// larger than the target is emitted whole, never truncated.
func (c *AdaptiveChunker) chunkProse(text string) []string {
	var chunks []string
	var current strings.Builder

	for _, para := range strings.Split(text, "\n\n") {
		if current.Len()+len(para) <= c.options.ChunkSize {
			current.WriteString(para)
			current.WriteString("\n\n")
			continue
		}

		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
		}

		if len(para) > c.options.ChunkSize {
			for _, sent := range splitSentences(para) {
				if current.Len()+len(sent) <= c.options.ChunkSize {
					current.WriteString(sent)
					current.WriteString(" ")
					continue
				}
				if current.Len() > 0 {
					chunks = append(chunks, current.String())
					current.Reset()
				}
				current.WriteString(sent)
				current.WriteString(" ")
			}
		} else {
			current.WriteString(para)
			current.WriteString("\n\n")
		}
	}

	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}

	return chunks
}

// chunkCode splits code before definition-opening lines, with the size
// ceiling as a secondary forced-split trigger. Line order is preserved.
func (c *AdaptiveChunker) chunkCode(text string) []string {
	var chunks []string
	var current []string
	currentSize := 0

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		isBoundary := false
		for _, kw := range codeBoundaryKeywords {
			if strings.HasPrefix(trimmed, kw) {
				isBoundary = true
				break
			}
		}

		if isBoundary && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, "\n"))
			current = nil
			currentSize = 0
		}

		current = append(current, line)
		currentSize += len(line) + 1

		if currentSize >= c.options.ChunkSize {
			chunks = append(chunks, strings.Join(current, "\n"))
			current = nil
			currentSize = 0
		}
	}

	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, "\n"))
	}

	return chunks
}

// addOverlap prefixes every chunk but the first with the trailing
// ChunkOverlap words of the previous raw chunk. Returns the overlapped
// chunks and the character length each prefix occupies.
func (c *AdaptiveChunker) addOverlap(chunks []string) ([]string, []int) {
	prefixLens := make([]int, len(chunks))
	if len(chunks) == 0 || c.options.ChunkOverlap <= 0 {
		return chunks, prefixLens
	}

	overlapped := make([]string, len(chunks))
	for i, chunk := range chunks {
		if i == 0 {
			overlapped[i] = chunk
			continue
		}
		prevWords := strings.Fields(chunks[i-1])
		start := len(prevWords) - c.options.ChunkOverlap
		if start < 0 {
			start = 0
		}
		prefix := strings.Join(prevWords[start:], " ")
		if prefix == "" {
			overlapped[i] = chunk
			continue
		}
		overlapped[i] = prefix + " " + chunk
		prefixLens[i] = len(prefix) + 1
	}

	return overlapped, prefixLens
}

// splitSentences splits text after terminal punctuation followed by
// whitespace. Go's regexp has no lookbehind, so this walks the text
// directly instead of using the usual (?<=[.!?])\s+ pattern.
func splitSentences(text string) []string {
	var sentences []string
	start := 0

	for i := 0; i < len(text); i++ {
		ch := text[i]
		if ch != '.' && ch != '!' && ch != '?' {
			continue
		}
		j := i + 1
		for j < len(text) && (text[j] == ' ' || text[j] == '\t' || text[j] == '\n' || text[j] == '\r') {
			j++
		}
		if j == i+1 {
			continue // punctuation not followed by whitespace
		}
		sentences = append(sentences, text[start:i+1])
		start = j
		i = j - 1
	}

	if start < len(text) {
		sentences = append(sentences, text[start:])
	}

	return sentences
}

// generateChunkID derives a stable identifier from trimmed chunk content.
// Identical content yields identical ids within a corpus.
func generateChunkID(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])[:16]
}
