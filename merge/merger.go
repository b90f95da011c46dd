// Package merge combines per-chunk summaries into one DocumentSummary, the
// reduce half of the pipeline's map-reduce.
package merge

import (
	"sort"
	"strings"

	"github.com/hrdesk/docsum/document"
)

// SectionMatcher decides whether two adjacent section summaries describe
// the same document section and should be folded into one entry. Isolated
// behind an interface because heading matching is inherently fuzzy.
type SectionMatcher interface {
	SameSection(a, b document.SectionSummary) bool
}

// HeadingMatcher matches sections by case-insensitive, trimmed heading
// equality. Sections without a heading never match.
type HeadingMatcher struct{}

func (HeadingMatcher) SameSection(a, b document.SectionSummary) bool {
	ha := strings.ToLower(strings.TrimSpace(a.Heading))
	hb := strings.ToLower(strings.TrimSpace(b.Heading))
	return ha != "" && ha == hb
}

type Merger struct {
	Sections SectionMatcher
}

func New() *Merger {
	return &Merger{Sections: HeadingMatcher{}}
}

// Merge combines chunk results in chunk order, regardless of the order the
// slice arrives in: results are sorted by chunk index first, so out-of-order
// completion under concurrency cannot change the output. A single result
// flows through the same path and populates every field.
func (m *Merger) Merge(results []document.ChunkResult, totalPages int) document.DocumentSummary {
	ordered := make([]document.ChunkResult, len(results))
	copy(ordered, results)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].ChunkIndex < ordered[j].ChunkIndex
	})

	summary := document.DocumentSummary{
		DocumentType: voteDocumentType(ordered),
		KeyPoints:    []string{},
		Sections:     []document.SectionSummary{},
		Tables:       []document.Table{},
		Keywords:     []string{},
		TotalPages:   totalPages,
	}

	var summaryParts []string
	seenPoints := make(map[string]struct{})

	for _, result := range ordered {
		if result.Summary != "" {
			summaryParts = append(summaryParts, result.Summary)
		}

		// Overlapping chunks tend to repeat key points verbatim; collapse
		// exact matches after trimming and case folding.
		for _, point := range result.KeyPoints {
			key := strings.ToLower(strings.TrimSpace(point))
			if key == "" {
				continue
			}
			if _, dup := seenPoints[key]; dup {
				continue
			}
			seenPoints[key] = struct{}{}
			summary.KeyPoints = append(summary.KeyPoints, strings.TrimSpace(point))
		}

		for _, section := range result.Sections {
			if n := len(summary.Sections); n > 0 && m.Sections.SameSection(summary.Sections[n-1], section) {
				summary.Sections[n-1].Text = joinText(summary.Sections[n-1].Text, section.Text)
				continue
			}
			summary.Sections = append(summary.Sections, section)
		}

		for _, table := range result.Tables {
			table.ID = len(summary.Tables) + 1
			summary.Tables = append(summary.Tables, table)
		}
	}

	summary.ExecutiveSummary = strings.Join(summaryParts, " ")
	return summary
}

// voteDocumentType resolves conflicting per-chunk classifications by
// majority vote; on a tie the earliest chunk's classification wins, keeping
// the result deterministic.
func voteDocumentType(ordered []document.ChunkResult) string {
	if len(ordered) == 0 {
		return document.TypeTextHeavy
	}

	counts := make(map[string]int)
	for _, r := range ordered {
		counts[r.DocumentType]++
	}

	winner := ordered[0].DocumentType
	for _, r := range ordered {
		if counts[r.DocumentType] > counts[winner] {
			winner = r.DocumentType
		}
	}
	return winner
}

func joinText(a, b string) string {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + " " + b
	}
}
