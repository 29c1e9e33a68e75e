package chunker

import (
	"strings"
)

// Options controls how text is split.
type Options struct {
	MaxWords int
	Overlap  int
}

// Chunk represents a slice of the document text.
type Chunk struct {
	Index     int
	Text      string
	WordCount int
}

// Split performs a simple word-based sliding window with overlap. Words are
// whitespace-delimited; good enough for seeding the cache from local files.
func Split(text string, opts Options) []Chunk {
	if opts.MaxWords <= 0 {
		opts.MaxWords = 400
	}
	if opts.Overlap < 0 {
		opts.Overlap = 0
	}

	words := strings.Fields(text)
	var chunks []Chunk
	if len(words) == 0 {
		return chunks
	}

	step := opts.MaxWords - opts.Overlap
	if step <= 0 {
		step = opts.MaxWords
	}

	for start := 0; start < len(words); start += step {
		end := start + opts.MaxWords
		if end > len(words) {
			end = len(words)
		}
		segment := strings.Join(words[start:end], " ")
		chunks = append(chunks, Chunk{
			Index:     len(chunks),
			Text:      segment,
			WordCount: end - start,
		})
		if end == len(words) {
			break
		}
	}
	return chunks
}
