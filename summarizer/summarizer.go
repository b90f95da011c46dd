// Package summarizer turns a single chunk of document content into a
// structured ChunkResult by prompting the configured completion service.
package summarizer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hrdesk/docsum/document"
	"github.com/hrdesk/docsum/llm_service"
)

// PromptProfile tunes the summarization request per document.
type PromptProfile struct {
	MaxSummaryWords int
	MaxKeyPoints    int
	DocumentHint    string
}

func DefaultProfile() PromptProfile {
	return PromptProfile{
		MaxSummaryWords: 250,
		MaxKeyPoints:    8,
	}
}

type ChunkSummarizer struct {
	llm             llm_service.LLMService
	logger          *slog.Logger
	model           string
	maxOutputTokens int
}

func New(llm llm_service.LLMService, logger *slog.Logger, model string, maxOutputTokens int) *ChunkSummarizer {
	return &ChunkSummarizer{
		llm:             llm,
		logger:          logger,
		model:           model,
		maxOutputTokens: maxOutputTokens,
	}
}

// Model reports the identifier recorded on produced summaries.
func (s *ChunkSummarizer) Model() string { return s.model }

// SummarizeChunk prompts the completion service for one chunk and parses
// its reply. Provider errors pass through unchanged so the orchestrator can
// distinguish transient exhaustion from permanent rejection; a reply that
// cannot be parsed is treated as a malformed-response error.
func (s *ChunkSummarizer) SummarizeChunk(ctx context.Context, chunk document.Chunk, profile PromptProfile) (document.ChunkResult, error) {
	prompt := buildPrompt(chunk, profile)

	reply, err := s.llm.CallLLM(ctx, prompt, s.maxOutputTokens)
	if err != nil {
		return document.ChunkResult{}, err
	}

	result, err := parseChunkResult(reply)
	if err != nil {
		s.logger.Error("Failed to parse chunk summary",
			slog.Int("chunk_index", chunk.Index),
			slog.String("error", err.Error()))
		return document.ChunkResult{}, fmt.Errorf("parsing summary for chunk %d: %w", chunk.Index, err)
	}

	result.ChunkIndex = chunk.Index
	// Tables come from extraction, not from the model; the model only
	// describes them.
	result.Tables = chunk.Tables()

	s.logger.Debug("Summarized chunk",
		slog.Int("chunk_index", chunk.Index),
		slog.Int("key_points", len(result.KeyPoints)),
		slog.Int("sections", len(result.Sections)))

	return result, nil
}

func buildPrompt(chunk document.Chunk, profile PromptProfile) string {
	var b strings.Builder

	b.WriteString("Summarize the following document excerpt. Respond with a single JSON object using exactly these keys:\n")
	b.WriteString(`{"document_type": "TEXT-HEAVY" | "TABLE-HEAVY" | "MIXED", "summary": string, "key_points": [string], "sections": [{"heading": string, "text": string}]}` + "\n")
	fmt.Fprintf(&b, "Keep the summary under %d words and list at most %d key points.\n", profile.MaxSummaryWords, profile.MaxKeyPoints)
	if profile.DocumentHint != "" {
		fmt.Fprintf(&b, "Document context: %s\n", profile.DocumentHint)
	}

	b.WriteString("\n--- EXCERPT ---\n")
	b.WriteString(Sanitize(chunk.NarrativeText()))

	for _, table := range chunk.Tables() {
		b.WriteString("\n\n--- TABLE ---\n")
		for _, row := range table.Rows {
			b.WriteString(strings.Join(row, " | "))
			b.WriteByte('\n')
		}
	}

	return b.String()
}

// parseChunkResult decodes the model reply, tolerating markdown code fences
// and leading prose around the JSON object.
func parseChunkResult(reply string) (document.ChunkResult, error) {
	var result document.ChunkResult

	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return result, fmt.Errorf("no JSON object in model reply")
	}

	if err := json.Unmarshal([]byte(reply[start:end+1]), &result); err != nil {
		return result, fmt.Errorf("decoding model reply: %w", err)
	}

	switch result.DocumentType {
	case document.TypeTextHeavy, document.TypeTableHeavy, document.TypeMixed:
	default:
		result.DocumentType = document.TypeTextHeavy
	}

	if result.Summary == "" {
		return result, fmt.Errorf("model reply missing summary")
	}

	return result, nil
}
