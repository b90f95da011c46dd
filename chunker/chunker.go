// Package chunker splits page-ordered text blocks into chunks sized to the
// summarization provider's context budget. Sizes are measured in words
// (strings.Fields), the same proxy used everywhere in this codebase; the
// provider's token count runs a little higher, which the budget's output
// reserve absorbs.
package chunker

import (
	"strings"

	"github.com/hrdesk/docsum/document"
)

// Chunk accumulates blocks in page order and closes a chunk whenever adding
// the next block would push the running word count past budgetWords. Each
// chunk after the first carries the trailing overlapWords words of the
// previous chunk's narrative text; table content is never duplicated into
// the overlap and a table block is never split. A single block larger than
// the whole budget gets a chunk of its own, accepting the overrun.
//
// Documents that fit in one budget come back as exactly one chunk through
// the same accumulation path.
func Chunk(blocks []document.TextBlock, budgetWords, overlapWords int) []document.Chunk {
	if len(blocks) == 0 {
		return nil
	}

	var chunks []document.Chunk
	current := document.Chunk{Index: 0}

	flush := func() {
		if len(current.Blocks) == 0 {
			return
		}
		chunks = append(chunks, current)
		overlap := tailWords(narrativeOf(current), overlapWords)
		current = document.Chunk{
			Index:       len(chunks),
			OverlapText: overlap,
			WordCount:   countWords(overlap),
		}
	}

	for _, block := range blocks {
		words := blockWords(block)
		if len(current.Blocks) > 0 && current.WordCount+words > budgetWords {
			flush()
		}
		current.Blocks = append(current.Blocks, block)
		current.WordCount += words
	}
	flush()

	return chunks
}

func blockWords(b document.TextBlock) int {
	n := countWords(b.Text)
	if b.Table != nil {
		for _, row := range b.Table.Rows {
			for _, cell := range row {
				n += countWords(cell)
			}
		}
	}
	return n
}

func countWords(s string) int {
	return len(strings.Fields(s))
}

// narrativeOf joins the chunk's own block texts, excluding the inherited
// overlap so overlaps never compound across chunk boundaries.
func narrativeOf(c document.Chunk) string {
	var parts []string
	for _, b := range c.Blocks {
		if b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, " ")
}

func tailWords(s string, n int) string {
	if n <= 0 {
		return ""
	}
	words := strings.Fields(s)
	if len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[len(words)-n:], " ")
}
