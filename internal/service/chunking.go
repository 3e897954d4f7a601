package service

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/cloo-solutions/paddock/internal/domain"
)

// ChunkConfig controls how documents are segmented before embedding.
type ChunkConfig struct {
	Size    int
	Overlap int
}

// DefaultChunkConfig provides the defaults used for ingestion.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		Size:    512,
		Overlap: 100,
	}
}

// Validate enforces 0 < Overlap < Size.
func (c ChunkConfig) Validate() error {
	if c.Size <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", c.Size)
	}
	if c.Overlap <= 0 || c.Overlap >= c.Size {
		return fmt.Errorf("chunk overlap must satisfy 0 < overlap < size, got overlap=%d size=%d", c.Overlap, c.Size)
	}
	return nil
}

// separators are tried coarsest first: paragraphs, lines, words. Below words
// the text is cut at raw characters.
var separators = []string{"\n\n", "\n", " "}

// Chunker splits text into overlapping windows measured in characters.
// Windows are exact substrings of the input: every window after the first
// starts Overlap characters before the end of the previous one.
type Chunker struct {
	cfg ChunkConfig
}

// NewChunker creates a Chunker, rejecting configurations outside 0 < overlap < size.
func NewChunker(cfg ChunkConfig) (*Chunker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Chunker{cfg: cfg}, nil
}

// Config returns the chunker configuration.
func (c *Chunker) Config() ChunkConfig {
	return c.cfg
}

// SplitDocument chunks a document, tagging each chunk with its source URL.
func (c *Chunker) SplitDocument(doc domain.Document) []domain.Chunk {
	windows := c.windows([]rune(doc.RawText))
	chunks := make([]domain.Chunk, 0, len(windows))
	for _, w := range windows {
		chunks = append(chunks, domain.Chunk{
			Text:      w.text,
			SourceURL: doc.URL,
			Index:     len(chunks),
			Start:     w.start,
		})
	}
	return chunks
}

// Split returns the chunk texts for text.
func (c *Chunker) Split(text string) []string {
	windows := c.windows([]rune(text))
	out := make([]string, 0, len(windows))
	for _, w := range windows {
		out = append(out, w.text)
	}
	return out
}

type window struct {
	start int
	text  string
}

func (c *Chunker) windows(runes []rune) []window {
	if strings.TrimSpace(string(runes)) == "" {
		return nil
	}
	n := len(runes)
	size, overlap := c.cfg.Size, c.cfg.Overlap

	if n <= size {
		return []window{{start: 0, text: string(runes)}}
	}

	// Piece ends are the preferred cut points. Every piece is at most size
	// characters long because oversized pieces are split at the next finer
	// separator.
	boundaries := make([]bool, n+1)
	for _, end := range pieceEnds(runes, 0, n, 0, size) {
		boundaries[end] = true
	}

	var out []window
	start, prevEnd := 0, 0
	for {
		upper := start + size
		if upper >= n {
			out = appendWindow(out, runes, start, n)
			break
		}
		// The window must extend past the previous end and be longer than the
		// overlap so that the next window makes progress.
		lower := start + overlap + 1
		if prevEnd+1 > lower {
			lower = prevEnd + 1
		}
		end := pickCut(runes, boundaries, lower, upper)
		out = appendWindow(out, runes, start, end)
		prevEnd = end
		start = end - overlap
	}
	return out
}

// appendWindow keeps whitespace-only windows so the cut sequence stays
// contiguous.
func appendWindow(out []window, runes []rune, start, end int) []window {
	return append(out, window{start: start, text: string(runes[start:end])})
}

// pickCut returns the furthest preferred boundary in [lower, upper], then the
// furthest position following whitespace, then upper as a raw character cut.
func pickCut(runes []rune, boundaries []bool, lower, upper int) int {
	for i := upper; i >= lower; i-- {
		if boundaries[i] {
			return i
		}
	}
	for i := upper; i >= lower; i-- {
		if unicode.IsSpace(runes[i-1]) {
			return i
		}
	}
	return upper
}

// pieceEnds splits runes[start:end] at separators[level], keeping each
// separator attached to the piece before it, and recurses into pieces longer
// than size with the next separator.
func pieceEnds(runes []rune, start, end, level, size int) []int {
	if end-start <= size {
		return []int{end}
	}
	if level >= len(separators) {
		var ends []int
		for i := start + size; i < end; i += size {
			ends = append(ends, i)
		}
		return append(ends, end)
	}

	sep := []rune(separators[level])
	var ends []int
	pieceStart := start
	for i := start; i+len(sep) <= end; i++ {
		if !hasPrefixAt(runes, i, sep) {
			continue
		}
		pieceEnd := i + len(sep)
		// Runs of separators stay with the current piece.
		for pieceEnd+len(sep) <= end && hasPrefixAt(runes, pieceEnd, sep) {
			pieceEnd += len(sep)
		}
		ends = append(ends, pieceEnds(runes, pieceStart, pieceEnd, level+1, size)...)
		pieceStart = pieceEnd
		i = pieceEnd - 1
	}
	if pieceStart < end {
		ends = append(ends, pieceEnds(runes, pieceStart, end, level+1, size)...)
	}
	return ends
}

func hasPrefixAt(runes []rune, at int, prefix []rune) bool {
	for j, r := range prefix {
		if runes[at+j] != r {
			return false
		}
	}
	return true
}
