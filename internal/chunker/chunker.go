// Package chunker splits extracted text into bounded segments for embedding.
package chunker

import "strings"

// Split cuts text into contiguous, non-overlapping segments of at most
// targetSize characters. The cut prefers the last sentence terminator before
// the window edge, then the last whitespace, but only when that break point
// lies past the midpoint of the window; otherwise it cuts at exactly
// targetSize. Segments are trimmed and empty segments are dropped. Empty
// input yields nil, which callers treat as nothing to index.
func Split(text string, targetSize int) []string {
	if targetSize <= 0 || len(text) == 0 {
		return nil
	}

	var chunks []string
	start := 0
	for start < len(text) {
		end := start + targetSize
		if end > len(text) {
			end = len(text)
		}

		if end < len(text) {
			lastPeriod := strings.LastIndexByte(text[:end+1], '.')
			lastSpace := strings.LastIndexByte(text[:end+1], ' ')
			mid := start + targetSize/2

			if lastPeriod > mid {
				end = lastPeriod + 1
			} else if lastSpace > mid {
				end = lastSpace
			}
		}

		chunk := strings.TrimSpace(text[start:end])
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		start = end
	}

	return chunks
}
