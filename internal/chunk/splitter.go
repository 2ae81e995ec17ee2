// Package chunk segments normalized document text into overlapping,
// bounded-length chunks, preferring sentence boundaries over strict
// size limits.
package chunk

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrBadConfig reports invalid splitter parameters. It is rejected at
// construction, before any text is processed.
var ErrBadConfig = errors.New("invalid splitter configuration")

// Splitter produces chunk strings of roughly TargetSize bytes with
// Overlap trailing characters carried between consecutive chunks.
// Identical input
// and parameters always yield the identical chunk sequence.
type Splitter struct {
	targetSize int
	overlap    int
}

// NewSplitter validates the chunking parameters. Overlap must be
// strictly smaller than targetSize and both sizes positive.
func NewSplitter(targetSize, overlap int) (*Splitter, error) {
	if targetSize <= 0 {
		return nil, fmt.Errorf("%w: target size must be positive, got %d", ErrBadConfig, targetSize)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: overlap must be non-negative, got %d", ErrBadConfig, overlap)
	}
	if overlap >= targetSize {
		return nil, fmt.Errorf("%w: overlap %d must be smaller than target size %d", ErrBadConfig, overlap, targetSize)
	}
	return &Splitter{targetSize: targetSize, overlap: overlap}, nil
}

// Split segments text into chunks. Sentence-like units are accumulated
// greedily; when the next unit would push the buffer past the target
// size the chunk is closed and the next buffer is seeded with the
// closed chunk's overlap-sized tail, never splitting a rune. A single
// unit longer than the target is emitted whole rather than split
// mid-sentence.
func (s *Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	units := splitUnits(text)
	var chunks []string
	var buf string

	for _, unit := range units {
		if buf != "" && len(buf)+len(unit) > s.targetSize {
			closed := strings.TrimSpace(buf)
			if closed != "" {
				chunks = append(chunks, closed)
			}
			if s.overlap > 0 && len(closed) > s.overlap {
				// Back the slice start off to a rune boundary so a
				// multi-byte rune straddling the overlap never gets
				// cut mid-sequence.
				start := len(closed) - s.overlap
				for start > 0 && !utf8.RuneStart(closed[start]) {
					start--
				}
				buf = closed[start:] + unit
			} else {
				buf = unit
			}
			continue
		}
		buf += unit
	}

	if final := strings.TrimSpace(buf); final != "" {
		chunks = append(chunks, final)
	}
	return chunks
}

// splitUnits breaks text into sentence-like units on terminal
// punctuation followed by whitespace. The delimiter and trailing
// whitespace stay attached to the preceding unit, so joining the units
// reproduces the input.
func splitUnits(text string) []string {
	var units []string
	start := 0
	i := 0
	for i < len(text) {
		if isTerminal(text[i]) && i+1 < len(text) && isSpace(text[i+1]) {
			j := i + 1
			for j < len(text) && isSpace(text[j]) {
				j++
			}
			units = append(units, text[start:j])
			start = j
			i = j
			continue
		}
		i++
	}
	if start < len(text) {
		units = append(units, text[start:])
	}
	return units
}

func isTerminal(c byte) bool {
	return c == '.' || c == '!' || c == '?' || c == ':'
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// ChunkStats summarizes a chunk sequence for ingest reporting.
type ChunkStats struct {
	Count      int
	MinSize    int
	MaxSize    int
	AvgSize    int
	TotalChars int
}

// Stats computes size statistics over the given chunks.
func Stats(chunks []string) ChunkStats {
	if len(chunks) == 0 {
		return ChunkStats{}
	}
	st := ChunkStats{Count: len(chunks), MinSize: len(chunks[0])}
	for _, c := range chunks {
		n := len(c)
		st.TotalChars += n
		if n < st.MinSize {
			st.MinSize = n
		}
		if n > st.MaxSize {
			st.MaxSize = n
		}
	}
	st.AvgSize = st.TotalChars / st.Count
	return st
}
