package chunker

import (
	"strings"

	"minirag/internal/port"
)

// LineChunker packs consecutive lines into passages of at most maxTokens
// tokens. A trailing window of about overlap tokens is repeated at the head
// of the next passage. A single line longer than maxTokens becomes its own
// passage.
type LineChunker struct {
	maxTokens int
	overlap   int
	tokenizer port.Tokenizer
}

var _ port.Chunker = (*LineChunker)(nil)

func NewLineChunker(maxTokens, overlap int, tokenizer port.Tokenizer) *LineChunker {
	if overlap >= maxTokens {
		overlap = maxTokens / 2
	}
	return &LineChunker{
		maxTokens: maxTokens,
		overlap:   overlap,
		tokenizer: tokenizer,
	}
}

// Chunk returns the non-blank passages of content in order.
func (c *LineChunker) Chunk(content string) []string {
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")

	var chunks []string
	start := 0
	for start < len(lines) {
		end := start
		tokens := 0
		for end < len(lines) {
			n := c.tokenizer.CountTokens(lines[end])
			if tokens > 0 && tokens+n > c.maxTokens {
				break
			}
			tokens += n
			end++
		}
		if end == start {
			end++
		}

		if text := strings.TrimSpace(strings.Join(lines[start:end], "\n")); text != "" {
			chunks = append(chunks, text)
		}
		if end >= len(lines) {
			break
		}

		next := end - c.overlapLines(lines, start, end)
		if next <= start {
			next = start + 1
		}
		start = next
	}

	return chunks
}

func (c *LineChunker) overlapLines(lines []string, start, end int) int {
	if c.overlap <= 0 {
		return 0
	}
	n, tokens := 0, 0
	for i := end - 1; i > start && tokens < c.overlap; i-- {
		tokens += c.tokenizer.CountTokens(lines[i])
		n++
	}
	return n
}
