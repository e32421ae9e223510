package extract

import "strings"

// DefaultChunkSize stays under Notion's 2000-character rich text limit
// with headroom for the marker prefix.
const DefaultChunkSize = 1800

// Chunk splits text into fixed-size rune windows. The final chunk carries
// the remainder; empty text yields no chunks.
func Chunk(text string, size int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	chunks := make([]string, 0, (len(runes)+size-1)/size)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}

// Collapse normalizes all whitespace runs to single spaces and trims the
// ends. OCR output is full of stray newlines and double spaces.
func Collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
