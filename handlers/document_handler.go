package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/hrdesk/docsum/archive"
	"github.com/hrdesk/docsum/extractor"
	"github.com/hrdesk/docsum/jobstore"
	"github.com/hrdesk/docsum/llm_service"
	"github.com/hrdesk/docsum/pipeline"
)

// Error kinds surfaced in API responses.
const (
	kindValidation = "validation_error"
	kindUnreadable = "unreadable_document"
	kindProvider   = "provider_error"
	kindRejected   = "provider_rejected"
	kindNotFound   = "not_found"
	kindNotReady   = "not_ready"
	kindInternal   = "internal_error"
)

type apiError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error apiError `json:"error"`
}

type DocumentHandler struct {
	orchestrator *pipeline.Orchestrator
	store        *jobstore.Store
	archive      *archive.Store
	logger       *slog.Logger
	maxBytes     int64
}

func NewDocumentHandler(orch *pipeline.Orchestrator, store *jobstore.Store, arc *archive.Store, logger *slog.Logger, maxBytes int64) *DocumentHandler {
	return &DocumentHandler{
		orchestrator: orch,
		store:        store,
		archive:      arc,
		logger:       logger,
		maxBytes:     maxBytes,
	}
}

// Submit accepts a multipart upload, validates it synchronously, and starts
// the pipeline in the background. The response carries only the job id;
// everything else is observed through status/result polling.
func (h *DocumentHandler) Submit(w http.ResponseWriter, r *http.Request) {
	data, docKind, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	jobID := h.orchestrator.Submit(data, docKind)
	h.logger.Info("Accepted document for summarization",
		slog.String("job_id", jobID),
		slog.Int("size", len(data)))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"job_id": jobID})
}

// SummarizeSync is the blocking variant for small documents: same pipeline,
// no job bookkeeping.
func (h *DocumentHandler) SummarizeSync(w http.ResponseWriter, r *http.Request) {
	data, docKind, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	summary, err := h.orchestrator.RunSync(r.Context(), data, docKind)
	if err != nil {
		h.logger.Error("Synchronous summarization failed", slog.String("error", err.Error()))
		writeStageError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}

func (h *DocumentHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["id"]

	job, err := h.store.Get(jobID)
	if err != nil {
		writeJSONError(w, kindNotFound, "unknown job id", http.StatusNotFound)
		return
	}

	response := map[string]interface{}{
		"job_id": job.ID,
		"status": job.Status,
	}
	if job.Progress != "" {
		response["progress"] = job.Progress
	}
	if job.Error != nil {
		response["error"] = job.Error
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func (h *DocumentHandler) GetResult(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["id"]

	result, err := h.store.Result(jobID)
	if err != nil {
		switch {
		case errors.Is(err, jobstore.ErrNotFound):
			writeJSONError(w, kindNotFound, "unknown job id", http.StatusNotFound)
		case errors.Is(err, jobstore.ErrNotReady):
			writeJSONError(w, kindNotReady, "job has not completed yet", http.StatusConflict)
		default:
			writeJSONError(w, kindProvider, err.Error(), http.StatusUnprocessableEntity)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// Cleanup removes the job and its buffered data. Idempotent: unknown ids
// acknowledge the same way.
func (h *DocumentHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["id"]
	h.store.Delete(jobID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "deleted", "job_id": jobID})
}

// ListArchive returns recently archived summaries when the archive is
// configured.
func (h *DocumentHandler) ListArchive(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		writeJSONError(w, kindNotFound, "summary archive is not configured", http.StatusNotFound)
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	entries, err := h.archive.Recent(r.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to list archived summaries", slog.String("error", err.Error()))
		writeJSONError(w, kindInternal, "failed to list archived summaries", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"summaries": entries,
		"count":     len(entries),
	})
}

// readUpload parses the multipart form and runs the synchronous validation
// gate: supported extension, size cap, non-empty content, PDF magic bytes.
// Rejections here never create a job.
func (h *DocumentHandler) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, pipeline.DocumentKind, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+1<<20)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeJSONError(w, kindValidation, "failed to parse multipart form", http.StatusBadRequest)
		return nil, "", false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSONError(w, kindValidation, "missing file field", http.StatusBadRequest)
		return nil, "", false
	}
	defer file.Close()

	var docKind pipeline.DocumentKind
	switch strings.ToLower(filepath.Ext(header.Filename)) {
	case ".pdf":
		docKind = pipeline.KindPDF
	case ".doc", ".docx":
		docKind = pipeline.KindWord
	default:
		writeJSONError(w, kindValidation, "only PDF and Word documents are supported", http.StatusBadRequest)
		return nil, "", false
	}

	if header.Size > h.maxBytes {
		writeJSONError(w, kindValidation, "file size too large", http.StatusBadRequest)
		return nil, "", false
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(file, h.maxBytes+1)); err != nil {
		writeJSONError(w, kindInternal, "failed to read file", http.StatusInternalServerError)
		return nil, "", false
	}

	data := buf.Bytes()
	if int64(len(data)) > h.maxBytes {
		writeJSONError(w, kindValidation, "file size too large", http.StatusBadRequest)
		return nil, "", false
	}
	if len(data) == 0 {
		writeJSONError(w, kindValidation, "file is empty", http.StatusBadRequest)
		return nil, "", false
	}
	if docKind == pipeline.KindPDF && !bytes.HasPrefix(data, []byte("%PDF-")) {
		writeJSONError(w, kindValidation, "file is not a valid PDF", http.StatusBadRequest)
		return nil, "", false
	}

	return data, docKind, true
}

func writeStageError(w http.ResponseWriter, err error) {
	var unreadable *extractor.UnreadableError
	if errors.As(err, &unreadable) {
		writeJSONError(w, kindUnreadable, "document could not be read", http.StatusBadRequest)
		return
	}

	var rejected *llm_service.RejectedError
	if errors.As(err, &rejected) {
		writeJSONError(w, kindRejected, "summarization provider rejected the request", http.StatusUnprocessableEntity)
		return
	}

	var providerErr *llm_service.ProviderError
	if errors.As(err, &providerErr) {
		writeJSONError(w, kindProvider, "summarization provider unavailable", http.StatusBadGateway)
		return
	}

	writeJSONError(w, kindInternal, "summarization failed", http.StatusInternalServerError)
}

func writeJSONError(w http.ResponseWriter, kind, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Error: apiError{Kind: kind, Message: message}})
}
