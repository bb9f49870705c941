// Package chunker splits plain text into fixed-size windows that overlap by a
// configured number of characters. Sizes and offsets count runes, not bytes.
package chunker

import (
	"errors"
	"fmt"
)

// ErrInvalidConfiguration is returned for unusable size/overlap combinations.
var ErrInvalidConfiguration = errors.New("invalid configuration")

type Options struct {
	ChunkSize    int // maximum chunk length in characters
	ChunkOverlap int // characters shared by consecutive chunks
}

type TextChunk struct {
	Content string
	Index   int
	Start   int // rune offset, inclusive
	End     int // rune offset, exclusive
}

func DefaultOptions() Options {
	return Options{
		ChunkSize:    1000,
		ChunkOverlap: 200,
	}
}

func (o Options) Validate() error {
	if o.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidConfiguration, o.ChunkSize)
	}
	if o.ChunkOverlap < 0 {
		return fmt.Errorf("%w: chunk overlap must not be negative, got %d", ErrInvalidConfiguration, o.ChunkOverlap)
	}
	if o.ChunkOverlap >= o.ChunkSize {
		return fmt.Errorf("%w: chunk overlap %d must be smaller than chunk size %d",
			ErrInvalidConfiguration, o.ChunkOverlap, o.ChunkSize)
	}
	return nil
}

// Chunk returns consecutive windows of opts.ChunkSize characters, each starting
// ChunkSize-ChunkOverlap characters after the previous one. The last window
// holds whatever remains and may be shorter. Empty text yields no chunks.
func Chunk(text string, opts Options) ([]TextChunk, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	runes := []rune(text)
	chunks := []TextChunk{}
	if len(runes) == 0 {
		return chunks, nil
	}

	step := opts.ChunkSize - opts.ChunkOverlap
	for start := 0; ; start += step {
		end := start + opts.ChunkSize
		last := end >= len(runes)
		if last {
			end = len(runes)
		}

		chunks = append(chunks, TextChunk{
			Content: string(runes[start:end]),
			Index:   len(chunks),
			Start:   start,
			End:     end,
		})

		if last {
			return chunks, nil
		}
	}
}
