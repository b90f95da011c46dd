package document

// TextBlock is the unit of extracted content: the narrative text of one
// page region, optionally paired with a table detected on the same page.
// Blocks are immutable once produced and ordered by page number.
type TextBlock struct {
	Page  int    `json:"page"`
	Text  string `json:"text"`
	Table *Table `json:"table,omitempty"`
}

// Table is a detected grid of cell strings. ID is assigned in document
// order during the merge step; it is zero on blocks coming out of extraction.
type Table struct {
	ID      int        `json:"table_id,omitempty"`
	Title   string     `json:"title,omitempty"`
	Rows    [][]string `json:"rows"`
	NumRows int        `json:"num_rows"`
	NumCols int        `json:"num_cols"`
}

// Chunk is a bounded slice of document content sized to the provider's
// input budget. OverlapText carries the trailing narrative words of the
// previous chunk; table content is never duplicated into the overlap.
type Chunk struct {
	Index       int
	Blocks      []TextBlock
	WordCount   int
	OverlapText string
}

// FirstPage returns the page number of the chunk's first block, or 0 for
// an empty chunk.
func (c Chunk) FirstPage() int {
	if len(c.Blocks) == 0 {
		return 0
	}
	return c.Blocks[0].Page
}

// Tables collects the tables carried by the chunk's blocks, in block order.
func (c Chunk) Tables() []Table {
	var tables []Table
	for _, b := range c.Blocks {
		if b.Table != nil {
			tables = append(tables, *b.Table)
		}
	}
	return tables
}

// NarrativeText joins the chunk's block texts, with the overlap from the
// previous chunk prepended.
func (c Chunk) NarrativeText() string {
	text := c.OverlapText
	for _, b := range c.Blocks {
		if b.Text == "" {
			continue
		}
		if text != "" {
			text += " "
		}
		text += b.Text
	}
	return text
}

// SectionSummary is one summarized section of the document, keyed by the
// heading the model detected.
type SectionSummary struct {
	Heading string `json:"heading"`
	Text    string `json:"text"`
}

// ChunkResult is the structured output of summarizing a single chunk.
type ChunkResult struct {
	ChunkIndex   int              `json:"chunk_index"`
	DocumentType string           `json:"document_type"`
	Summary      string           `json:"summary"`
	KeyPoints    []string         `json:"key_points"`
	Sections     []SectionSummary `json:"sections"`
	Tables       []Table          `json:"tables,omitempty"`
}

// Document type classifications a chunk summary may carry.
const (
	TypeTextHeavy  = "TEXT-HEAVY"
	TypeTableHeavy = "TABLE-HEAVY"
	TypeMixed      = "MIXED"
)

// DocumentSummary is the final artifact of the pipeline. It is immutable
// once produced and attached to a completed job.
type DocumentSummary struct {
	DocumentType     string           `json:"document_type"`
	ExecutiveSummary string           `json:"executive_summary"`
	KeyPoints        []string         `json:"key_points"`
	Sections         []SectionSummary `json:"section_summary"`
	Tables           []Table          `json:"table_insights"`
	Keywords         []string         `json:"keywords"`
	TotalPages       int              `json:"total_pages"`
	ProcessingMS     int64            `json:"processing_ms"`
	Model            string           `json:"model"`
}
