// Package chunker splits normalized document records into bounded,
// overlapping text segments sized for embedding.
package chunker

import (
	"fmt"
	"strings"

	"careassist/internal/loader"
)

// Chunk is one bounded slice of source text. Consecutive chunks from the same
// record overlap so context is not lost at a boundary. Chunks are immutable
// once produced.
type Chunk struct {
	// Text is the chunk content, at most chunkSize runes.
	Text string
	// Source is the originating document identity.
	Source string
	// PageOrSheet is the page or sheet the text came from.
	PageOrSheet int
	// Seq is the chunk's position in generation order for this split.
	Seq int
}

// Limits caps the output of a split. A zero value means unlimited.
type Limits struct {
	// MaxRecordsPerDoc caps how many records of one document are chunked.
	MaxRecordsPerDoc int
	// MaxChunks caps the total chunks produced by one split.
	MaxChunks int
}

// Result is the output of a split.
type Result struct {
	Chunks []Chunk
	// Truncated reports that a limit cut the output short. The kept chunks
	// are always the first ones in generation order.
	Truncated bool
}

// Split chunks the records. Each chunk holds at most size runes; consecutive
// chunks from the same record share the last overlap runes of the prior chunk.
// Cuts prefer line boundaries when one falls late enough in the window,
// otherwise the rune budget decides.
func Split(records []loader.Record, size, overlap int, limits Limits) (Result, error) {
	if size <= 0 {
		return Result{}, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return Result{}, fmt.Errorf("overlap must be in [0, %d), got %d", size, overlap)
	}

	var result Result
	recordsSeen := make(map[string]int)

	for _, record := range records {
		recordsSeen[record.Source]++
		if limits.MaxRecordsPerDoc > 0 && recordsSeen[record.Source] > limits.MaxRecordsPerDoc {
			result.Truncated = true
			continue
		}

		for _, text := range splitText(record.Text, size, overlap) {
			if limits.MaxChunks > 0 && len(result.Chunks) >= limits.MaxChunks {
				result.Truncated = true
				return result, nil
			}
			result.Chunks = append(result.Chunks, Chunk{
				Text:        text,
				Source:      record.Source,
				PageOrSheet: record.PageOrSheet,
				Seq:         len(result.Chunks),
			})
		}
	}
	return result, nil
}

// splitText cuts one record's text into overlapping windows. Blank windows are
// dropped but do not stop the walk.
func splitText(text string, size, overlap int) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	var out []string
	start := 0
	for start < len(runes) {
		end := start + size
		if end >= len(runes) {
			end = len(runes)
		} else if nl := lastNewline(runes[start:end]); nl > overlap {
			// Cut after the newline, but only when the cut still makes
			// progress past the overlap region.
			end = start + nl + 1
		}

		if chunk := string(runes[start:end]); strings.TrimSpace(chunk) != "" {
			out = append(out, chunk)
		}
		if end == len(runes) {
			break
		}
		start = end - overlap
	}
	return out
}

// lastNewline returns the index of the last '\n' in runes, or -1.
func lastNewline(runes []rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == '\n' {
			return i
		}
	}
	return -1
}
