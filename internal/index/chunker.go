package index

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// Default chunking parameters. 500 characters keeps a chunk inside one
// thought of a LinkedIn post; the overlap preserves context across cuts.
const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 100
)

// sentenceEnds are the boundaries a chunk prefers to break on
var sentenceEnds = []string{". ", ".\n", "! ", "!\n", "? ", "?\n"}

// SplitText splits text into overlapping chunks of at most size runes.
// A chunk ends at the last sentence boundary past 70% of its length
// when one exists, so sentences are rarely cut mid-way.
func SplitText(text string, size, overlap int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = DefaultChunkOverlap
	}

	runes := []rune(text)
	if len(runes) <= size {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + size
		if end >= len(runes) {
			chunks = append(chunks, strings.TrimSpace(string(runes[start:])))
			break
		}

		chunkRunes := runes[start:end]
		if cut, ok := sentenceCut(string(chunkRunes), size); ok {
			chunkRunes = chunkRunes[:cut]
			end = start + cut
		}
		chunks = append(chunks, strings.TrimSpace(string(chunkRunes)))

		// the overlap must never rewind past the previous start
		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

// sentenceCut finds the rune index just past the last sentence end in
// chunk, provided it falls beyond 70% of the target size
func sentenceCut(chunk string, size int) (int, bool) {
	for _, punct := range sentenceEnds {
		byteIdx := strings.LastIndex(chunk, punct)
		if byteIdx < 0 {
			continue
		}
		runeIdx := utf8.RuneCountInString(chunk[:byteIdx])
		if float64(runeIdx) > float64(size)*0.7 {
			return runeIdx + 1, true
		}
	}
	return 0, false
}

// ChunkID derives the stable id of one chunk of a source node
func ChunkID(sourceURN string, index int) string {
	return sourceURN + "_chunk_" + strconv.Itoa(index)
}
