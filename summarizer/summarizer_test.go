package summarizer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/hrdesk/docsum/document"
	"github.com/hrdesk/docsum/llm_service"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testChunk() document.Chunk {
	return document.Chunk{
		Index: 2,
		Blocks: []document.TextBlock{
			{Page: 5, Text: "Employees accrue leave monthly."},
			{Page: 6, Table: &document.Table{
				Rows:    [][]string{{"Grade", "Days"}, {"A", "20"}},
				NumRows: 2,
				NumCols: 2,
			}},
		},
	}
}

func TestSummarizeChunkParsesReply(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{
			name:  "bare JSON",
			reply: `{"document_type": "MIXED", "summary": "Leave policy overview.", "key_points": ["Accrual is monthly"], "sections": [{"heading": "Leave", "text": "Details."}]}`,
		},
		{
			name:  "fenced JSON",
			reply: "```json\n{\"document_type\": \"MIXED\", \"summary\": \"Leave policy overview.\", \"key_points\": [\"Accrual is monthly\"], \"sections\": [{\"heading\": \"Leave\", \"text\": \"Details.\"}]}\n```",
		},
		{
			name:  "prose around JSON",
			reply: "Here is the summary:\n{\"document_type\": \"MIXED\", \"summary\": \"Leave policy overview.\", \"key_points\": [\"Accrual is monthly\"], \"sections\": [{\"heading\": \"Leave\", \"text\": \"Details.\"}]}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &llm_service.MockLLMService{
				CallLLMFunc: func(ctx context.Context, prompt string, maxOutputTokens int) (string, error) {
					return tt.reply, nil
				},
			}
			s := New(llm, testLogger(), "test-model", 512)

			result, err := s.SummarizeChunk(context.Background(), testChunk(), DefaultProfile())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.ChunkIndex != 2 {
				t.Errorf("chunk index = %d, want 2", result.ChunkIndex)
			}
			if result.DocumentType != document.TypeMixed {
				t.Errorf("document type = %q", result.DocumentType)
			}
			if result.Summary != "Leave policy overview." {
				t.Errorf("summary = %q", result.Summary)
			}
			if len(result.Tables) != 1 {
				t.Errorf("tables = %d, want 1 (carried from extraction)", len(result.Tables))
			}
		})
	}
}

func TestSummarizeChunkPromptContents(t *testing.T) {
	var captured string
	llm := &llm_service.MockLLMService{
		CallLLMFunc: func(ctx context.Context, prompt string, maxOutputTokens int) (string, error) {
			captured = prompt
			return `{"document_type": "TEXT-HEAVY", "summary": "x"}`, nil
		},
	}
	s := New(llm, testLogger(), "test-model", 512)

	if _, err := s.SummarizeChunk(context.Background(), testChunk(), DefaultProfile()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(captured, "Employees accrue leave monthly.") {
		t.Error("prompt missing narrative text")
	}
	if !strings.Contains(captured, "Grade | Days") {
		t.Error("prompt missing table rows")
	}
}

func TestSummarizeChunkErrors(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		callErr error
		wantErr string
	}{
		{
			name:    "provider error passes through",
			callErr: &llm_service.ProviderError{Attempts: 3, Cause: errors.New("503")},
			wantErr: "after 3 attempts",
		},
		{
			name:    "no JSON in reply",
			reply:   "I cannot summarize this.",
			wantErr: "no JSON object",
		},
		{
			name:    "missing summary field",
			reply:   `{"document_type": "MIXED"}`,
			wantErr: "missing summary",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &llm_service.MockLLMService{
				CallLLMFunc: func(ctx context.Context, prompt string, maxOutputTokens int) (string, error) {
					return tt.reply, tt.callErr
				},
			}
			s := New(llm, testLogger(), "test-model", 512)

			_, err := s.SummarizeChunk(context.Background(), testChunk(), DefaultProfile())
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "strips urls",
			in:   "See https://intranet.example.com/policy for details",
			want: "See for details",
		},
		{
			name: "strips phone numbers",
			in:   "Call 555-123-4567 to confirm",
			want: "Call to confirm",
		},
		{
			name: "collapses whitespace",
			in:   "a  b\t\tc\n\nd",
			want: "a b c d",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sanitize(tt.in); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestExtractKeywords(t *testing.T) {
	text := "The Employee Handbook describes Vacation policy. Vacation requests go to Management. The deadline is Friday."

	keywords := ExtractKeywords(text)

	want := []string{"Employee", "Friday", "Handbook", "Management", "Vacation"}
	if len(keywords) != len(want) {
		t.Fatalf("keywords = %v, want %v", keywords, want)
	}
	for i := range want {
		if keywords[i] != want[i] {
			t.Errorf("keyword %d = %q, want %q", i, keywords[i], want[i])
		}
	}
}

func TestExtractKeywordsCaps(t *testing.T) {
	var parts []string
	for _, w := range []string{"Alpha", "Bravo", "Charlie", "Delta", "Echoes", "Foxtrot", "Golfing", "Hotel", "Indigo", "Juliet", "Kilogram", "Limas"} {
		parts = append(parts, w)
	}
	keywords := ExtractKeywords(strings.Join(parts, " "))
	if len(keywords) != 10 {
		t.Errorf("expected cap of 10 keywords, got %d: %v", len(keywords), keywords)
	}
}
