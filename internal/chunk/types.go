package chunk

// Chunk size defaults, in characters and words.
const (
	DefaultChunkSize    = 512 // target maximum characters per chunk
	DefaultChunkOverlap = 50  // words carried into the next chunk
	DefaultMinChunkSize = 100 // chunks trimmed below this are dropped
)

// Metadata keys set by the chunker on every emitted chunk.
const (
	MetaChunkIndex = "chunk_index"
	MetaIsCode     = "is_code"
)

// Chunk is a retrievable unit of content.
type Chunk struct {
	ID      string // SHA256(content)[:16], pure function of content
	Content string // Trimmed text, overlap prefix included

	// Index is the chunk's position in the raw emission sequence,
	// counted before the minimum-size filter drops anything.
	Index int

	// IsCode records which chunking strategy produced this chunk.
	IsCode bool

	// OverlapPrefixLen is the character length of the overlap prefix
	// carried from the previous chunk, zero for the first chunk.
	// Consumers reconstructing the document should skip this span.
	OverlapPrefixLen int

	// Metadata holds the caller-supplied attributes plus the system
	// fields chunk_index and is_code.
	Metadata map[string]string
}

// CoreContent returns the chunk content with the overlap prefix removed.
func (c *Chunk) CoreContent() string {
	if c.OverlapPrefixLen <= 0 || c.OverlapPrefixLen >= len(c.Content) {
		return c.Content
	}
	return c.Content[c.OverlapPrefixLen:]
}
