package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/hrdesk/docsum/document"
	"github.com/hrdesk/docsum/jobstore"
	"github.com/hrdesk/docsum/llm_service"
	"github.com/hrdesk/docsum/merge"
	"github.com/hrdesk/docsum/pipeline"
	"github.com/hrdesk/docsum/summarizer"
)

type fakeExtractor struct{}

func (fakeExtractor) ExtractPDF(data []byte) ([]document.TextBlock, int, error) {
	return []document.TextBlock{{Page: 1, Text: "Employees accrue leave monthly."}}, 1, nil
}

func (fakeExtractor) ExtractWord(data []byte) ([]document.TextBlock, int, error) {
	return []document.TextBlock{{Page: 1, Text: "Employees accrue leave monthly."}}, 1, nil
}

const chunkReply = `{"document_type": "TEXT-HEAVY", "summary": "Leave accrues monthly.", "key_points": ["Monthly accrual"], "sections": [{"heading": "Leave", "text": "Accrual details."}]}`

func newTestRouter(t *testing.T, maxBytes int64) (*mux.Router, *jobstore.Store) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := jobstore.New(logger)

	llm := &llm_service.MockLLMService{
		CallLLMFunc: func(ctx context.Context, prompt string, maxOutputTokens int) (string, error) {
			return chunkReply, nil
		},
	}
	orch := pipeline.New(fakeExtractor{}, summarizer.New(llm, logger, "test-model", 512),
		merge.New(), store, logger, pipeline.Config{
			ContextBudgetWords: 1000,
			OverlapWords:       100,
			ConcurrencyLimit:   2,
		})

	h := NewDocumentHandler(orch, store, nil, logger, maxBytes)

	r := mux.NewRouter()
	r.HandleFunc("/documents/summarize", h.Submit).Methods("POST")
	r.HandleFunc("/documents/summarize/sync", h.SummarizeSync).Methods("POST")
	r.HandleFunc("/documents/jobs/{id}/status", h.GetStatus).Methods("GET")
	r.HandleFunc("/documents/jobs/{id}/result", h.GetResult).Methods("GET")
	r.HandleFunc("/documents/jobs/{id}", h.Cleanup).Methods("DELETE")
	r.HandleFunc("/documents/archive", h.ListArchive).Methods("GET")
	return r, store
}

func multipartUpload(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("creating form file: %v", err)
	}
	part.Write(content)
	writer.Close()
	return &body, writer.FormDataContentType()
}

func decodeErrorKind(t *testing.T, body *bytes.Buffer) string {
	t.Helper()
	var resp struct {
		Error struct {
			Kind    string `json:"kind"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		t.Fatalf("decoding error response: %v", err)
	}
	return resp.Error.Kind
}

func TestSubmitValidation(t *testing.T) {
	tests := []struct {
		name       string
		filename   string
		content    []byte
		wantStatus int
	}{
		{"unsupported extension", "report.txt", []byte("%PDF-fake"), http.StatusBadRequest},
		{"empty file", "report.pdf", []byte{}, http.StatusBadRequest},
		{"missing pdf magic", "report.pdf", []byte("plain text content"), http.StatusBadRequest},
		{"oversized", "report.pdf", append([]byte("%PDF-"), bytes.Repeat([]byte("x"), 2048)...), http.StatusBadRequest},
	}

	router, store := newTestRouter(t, 1024)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, contentType := multipartUpload(t, tt.filename, tt.content)
			req := httptest.NewRequest("POST", "/documents/summarize", body)
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if kind := decodeErrorKind(t, rec.Body); kind != "validation_error" {
				t.Errorf("error kind = %q, want validation_error", kind)
			}
		})
	}

	// Validation failures must never create jobs.
	if store.Len() != 0 {
		t.Errorf("store holds %d jobs after rejected uploads, want 0", store.Len())
	}
}

func TestSubmitPollResultCycle(t *testing.T) {
	router, _ := newTestRouter(t, 10<<20)

	body, contentType := multipartUpload(t, "handbook.pdf", []byte("%PDF-1.7 content"))
	req := httptest.NewRequest("POST", "/documents/summarize", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("submit status = %d, want 202: %s", rec.Code, rec.Body)
	}
	var submitResp map[string]string
	json.NewDecoder(rec.Body).Decode(&submitResp)
	jobID := submitResp["job_id"]
	if jobID == "" {
		t.Fatal("submit response missing job_id")
	}

	// Poll until done.
	deadline := time.After(5 * time.Second)
	for {
		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", "/documents/jobs/"+jobID+"/status", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status endpoint = %d: %s", rec.Code, rec.Body)
		}
		var statusResp map[string]interface{}
		json.NewDecoder(rec.Body).Decode(&statusResp)
		if statusResp["status"] == "completed" {
			break
		}
		if statusResp["status"] == "failed" {
			t.Fatalf("job failed: %v", statusResp["error"])
		}
		select {
		case <-deadline:
			t.Fatal("job never completed")
		case <-time.After(5 * time.Millisecond):
		}
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/documents/jobs/"+jobID+"/result", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("result endpoint = %d: %s", rec.Code, rec.Body)
	}
	var summary document.DocumentSummary
	if err := json.NewDecoder(rec.Body).Decode(&summary); err != nil {
		t.Fatalf("decoding summary: %v", err)
	}
	if summary.ExecutiveSummary != "Leave accrues monthly." {
		t.Errorf("executive summary = %q", summary.ExecutiveSummary)
	}
	if summary.TotalPages != 1 {
		t.Errorf("total pages = %d, want 1", summary.TotalPages)
	}

	// Cleanup, then the job is gone.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("DELETE", "/documents/jobs/"+jobID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("cleanup status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/documents/jobs/"+jobID+"/result", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("result after cleanup = %d, want 404", rec.Code)
	}
}

func TestResultBeforeCompletionIsNotReady(t *testing.T) {
	router, store := newTestRouter(t, 10<<20)

	job := store.Create() // queued, nothing processing it

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/documents/jobs/"+job.ID+"/result", nil))
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	if kind := decodeErrorKind(t, rec.Body); kind != "not_ready" {
		t.Errorf("error kind = %q, want not_ready", kind)
	}
}

func TestUnknownJobIsNotFound(t *testing.T) {
	router, _ := newTestRouter(t, 10<<20)

	for _, path := range []string{
		"/documents/jobs/no-such-job/status",
		"/documents/jobs/no-such-job/result",
	} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s = %d, want 404", path, rec.Code)
		}
	}
}

func TestCleanupIsIdempotent(t *testing.T) {
	router, _ := newTestRouter(t, 10<<20)

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("DELETE", "/documents/jobs/no-such-job", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("cleanup attempt %d = %d, want 200", i+1, rec.Code)
		}
	}
}

func TestSummarizeSync(t *testing.T) {
	router, store := newTestRouter(t, 10<<20)

	body, contentType := multipartUpload(t, "note.pdf", []byte("%PDF-1.4 tiny"))
	req := httptest.NewRequest("POST", "/documents/summarize/sync", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("sync status = %d: %s", rec.Code, rec.Body)
	}
	var summary document.DocumentSummary
	if err := json.NewDecoder(rec.Body).Decode(&summary); err != nil {
		t.Fatalf("decoding summary: %v", err)
	}
	if summary.ExecutiveSummary != "Leave accrues monthly." {
		t.Errorf("executive summary = %q", summary.ExecutiveSummary)
	}

	// The sync path does no job bookkeeping.
	if store.Len() != 0 {
		t.Errorf("sync path created %d jobs", store.Len())
	}
}

func TestArchiveDisabled(t *testing.T) {
	router, _ := newTestRouter(t, 10<<20)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/documents/archive", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("archive endpoint = %d, want 404 when unconfigured", rec.Code)
	}
}
