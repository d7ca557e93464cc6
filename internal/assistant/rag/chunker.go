package rag

import "strings"

// Chunking defaults for member profiles.
const (
	ChunkSize    = 512
	ChunkOverlap = 20
)

// ChunkWords splits text into windows of size words, each sharing overlap
// words with the previous window. Whitespace is normalized to single spaces.
func ChunkWords(text string, size, overlap int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if size <= 0 {
		size = ChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	var chunks []string
	step := size - overlap
	for start := 0; start < len(words); start += step {
		end := min(start+size, len(words))
		chunks = append(chunks, strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}
	}
	return chunks
}
