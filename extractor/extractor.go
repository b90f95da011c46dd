package extractor

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"

	"code.sajari.com/docconv/v2"
	"github.com/ledongthuc/pdf"

	"github.com/hrdesk/docsum/document"
)

// UnreadableError reports a byte stream that could not be parsed as a
// document (truncated, encrypted, or not a PDF at all).
type UnreadableError struct {
	Reason string
	Cause  error
}

func (e *UnreadableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("unreadable document: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("unreadable document: %s", e.Reason)
}

func (e *UnreadableError) Unwrap() error { return e.Cause }

type Extractor struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// ExtractPDF pulls page-ordered text blocks out of a PDF. Each page yields
// one block carrying its narrative text; pages where the row grid looks
// tabular additionally yield a block per detected table. The returned page
// count is the PDF's own, independent of how many blocks carried content.
func (e *Extractor) ExtractPDF(data []byte) ([]document.TextBlock, int, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		e.logger.Error("Failed to create PDF reader",
			slog.String("error", err.Error()),
			slog.Int("data_size", len(data)))
		return nil, 0, &UnreadableError{Reason: "failed to open PDF", Cause: err}
	}

	totalPages := reader.NumPage()
	e.logger.Debug("Starting PDF extraction", slog.Int("total_pages", totalPages))

	var blocks []document.TextBlock
	for pageIndex := 1; pageIndex <= totalPages; pageIndex++ {
		page := reader.Page(pageIndex)
		if page.V.IsNull() {
			e.logger.Warn("Null page encountered", slog.Int("page_number", pageIndex))
			continue
		}

		rows, err := page.GetTextByRow()
		if err != nil {
			// Fall back to plain text when row positions are unavailable.
			text, perr := page.GetPlainText(nil)
			if perr != nil {
				e.logger.Error("Failed to extract text from page",
					slog.Int("page_number", pageIndex),
					slog.String("error", perr.Error()))
				return nil, 0, &UnreadableError{
					Reason: fmt.Sprintf("failed to extract page %d", pageIndex),
					Cause:  perr,
				}
			}
			if text = normalize(text); text != "" {
				blocks = append(blocks, document.TextBlock{Page: pageIndex, Text: text})
			}
			continue
		}

		narrative, tables := splitRows(rows)
		if narrative != "" {
			blocks = append(blocks, document.TextBlock{Page: pageIndex, Text: narrative})
		}
		for i := range tables {
			blocks = append(blocks, document.TextBlock{Page: pageIndex, Table: &tables[i]})
		}
	}

	if len(blocks) == 0 {
		e.logger.Error("No text extracted from PDF", slog.Int("total_pages", totalPages))
		return nil, 0, &UnreadableError{Reason: "no text content in PDF"}
	}

	e.logger.Info("Extracted PDF content",
		slog.Int("total_pages", totalPages),
		slog.Int("blocks", len(blocks)))

	return blocks, totalPages, nil
}

// ExtractWord converts a Word document to text blocks. docconv flattens the
// document, so pages are approximated by form-feed boundaries; documents
// without them come back as a single page.
func (e *Extractor) ExtractWord(data []byte) ([]document.TextBlock, int, error) {
	mimeType := "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

	result, err := docconv.Convert(bytes.NewReader(data), mimeType, false)
	if err != nil {
		e.logger.Error("Failed to convert Word document",
			slog.String("error", err.Error()),
			slog.Int("data_size", len(data)))
		return nil, 0, &UnreadableError{Reason: "failed to convert Word document", Cause: err}
	}

	pages := strings.Split(result.Body, "\f")
	var blocks []document.TextBlock
	for i, pageText := range pages {
		if pageText = normalize(pageText); pageText != "" {
			blocks = append(blocks, document.TextBlock{Page: i + 1, Text: pageText})
		}
	}

	if len(blocks) == 0 {
		return nil, 0, &UnreadableError{Reason: "no text content in Word document"}
	}

	e.logger.Info("Extracted Word content",
		slog.Int("pages", len(pages)),
		slog.Int("blocks", len(blocks)))

	return blocks, len(pages), nil
}

func normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
