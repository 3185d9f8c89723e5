package loader

import (
	"strings"
)

// ParagraphSeparator separates paragraphs in normalized text and in chunks.
const ParagraphSeparator = "\n\n"

const (
	// DefaultChunkSize is the target chunk size in words
	DefaultChunkSize = 500

	// DefaultChunkOverlap is the number of words carried over from the previous chunk
	DefaultChunkOverlap = 100
)

// SplitChunks splits text into chunks along paragraph boundaries.
//
// Paragraphs are accumulated until adding the next one would exceed size
// words. A paragraph larger than size becomes a chunk of its own and is never
// split, so size is a target rather than a limit. When overlap is positive,
// every chunk after the first is prefixed with the last overlap words of the
// chunk before it, provided that chunk has more than overlap words.
func SplitChunks(text string, size, overlap int) []string {
	var paragraphs []string
	for _, p := range strings.Split(text, ParagraphSeparator) {
		if p = strings.TrimSpace(p); p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	if len(paragraphs) == 0 {
		return nil
	}

	var chunks []string
	var current strings.Builder
	currentSize := 0

	for _, para := range paragraphs {
		paraSize := WordCount(para)

		if current.Len() > 0 && currentSize+paraSize > size {
			chunks = append(chunks, strings.TrimSpace(current.String()))
			current.Reset()
			currentSize = 0
		}
		if current.Len() > 0 {
			current.WriteString(ParagraphSeparator)
		}
		current.WriteString(para)
		currentSize += paraSize
	}
	if current.Len() > 0 {
		chunks = append(chunks, strings.TrimSpace(current.String()))
	}

	if overlap <= 0 {
		return chunks
	}

	// Overlap is taken from the original chunks, not the prefixed ones.
	result := make([]string, len(chunks))
	result[0] = chunks[0]
	for i := 1; i < len(chunks); i++ {
		prevWords := strings.Fields(chunks[i-1])
		if len(prevWords) > overlap {
			result[i] = strings.Join(prevWords[len(prevWords)-overlap:], " ") + ParagraphSeparator + chunks[i]
		} else {
			result[i] = chunks[i]
		}
	}
	return result
}

// WordCount returns the number of whitespace separated words in s.
func WordCount(s string) int {
	return len(strings.Fields(s))
}
