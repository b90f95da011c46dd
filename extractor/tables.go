package extractor

import (
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/hrdesk/docsum/document"
)

// Column gap threshold in PDF points. Fragments on a row further apart than
// this are treated as separate cells rather than one run of text.
const columnGap = 18.0

// Minimum consecutive rows with a matching cell count to accept a grid as a
// table. Two aligned rows is usually a heading plus its underline; three is
// where real grids start.
const minTableRows = 3

// splitRows partitions a page's positioned text rows into narrative text
// and detected tables. A run of at least minTableRows consecutive rows that
// all split into the same number (>= 2) of columns is treated as one table;
// everything else is joined into the page narrative.
func splitRows(rows pdf.Rows) (string, []document.Table) {
	type rowCells struct {
		cells []string
	}

	parsed := make([]rowCells, len(rows))
	for i, row := range rows {
		parsed[i] = rowCells{cells: splitCells(row.Content)}
	}

	var narrative []string
	var tables []document.Table

	i := 0
	for i < len(parsed) {
		cols := len(parsed[i].cells)
		if cols < 2 {
			narrative = append(narrative, parsed[i].cells...)
			i++
			continue
		}

		// Extend the run of rows sharing this column count.
		j := i + 1
		for j < len(parsed) && len(parsed[j].cells) == cols {
			j++
		}

		if j-i < minTableRows {
			for ; i < j; i++ {
				narrative = append(narrative, strings.Join(parsed[i].cells, " "))
			}
			continue
		}

		grid := make([][]string, 0, j-i)
		for k := i; k < j; k++ {
			grid = append(grid, parsed[k].cells)
		}
		tables = append(tables, document.Table{
			Rows:    grid,
			NumRows: len(grid),
			NumCols: cols,
		})
		i = j
	}

	return strings.Join(narrative, " "), tables
}

// splitCells groups a row's positioned fragments into cells using the
// horizontal gaps between them.
func splitCells(fragments pdf.TextHorizontal) []string {
	var cells []string
	var current strings.Builder
	lastEnd := -1.0

	for _, frag := range fragments {
		s := strings.TrimSpace(frag.S)
		if s == "" {
			continue
		}
		if lastEnd >= 0 && frag.X-lastEnd > columnGap {
			if current.Len() > 0 {
				cells = append(cells, current.String())
				current.Reset()
			}
		} else if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(s)
		lastEnd = frag.X + frag.W
	}
	if current.Len() > 0 {
		cells = append(cells, current.String())
	}
	return cells
}
