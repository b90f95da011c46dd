// Package pipeline sequences extraction, chunking, fan-out summarization
// and merging, and keeps the job store current while doing so.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hrdesk/docsum/archive"
	"github.com/hrdesk/docsum/chunker"
	"github.com/hrdesk/docsum/document"
	"github.com/hrdesk/docsum/extractor"
	"github.com/hrdesk/docsum/jobstore"
	"github.com/hrdesk/docsum/llm_service"
	"github.com/hrdesk/docsum/merge"
	"github.com/hrdesk/docsum/summarizer"
)

// Pipeline stage names recorded on failed jobs.
const (
	StageExtract   = "extract"
	StageSummarize = "summarize"
)

// DocumentKind selects the extraction path for an upload.
type DocumentKind string

const (
	KindPDF  DocumentKind = "pdf"
	KindWord DocumentKind = "word"
)

type Config struct {
	ContextBudgetWords int
	OverlapWords       int
	ConcurrencyLimit   int
	JobTimeout         time.Duration
}

// Extractor is the extraction boundary; *extractor.Extractor satisfies it.
type Extractor interface {
	ExtractPDF(data []byte) ([]document.TextBlock, int, error)
	ExtractWord(data []byte) ([]document.TextBlock, int, error)
}

type Orchestrator struct {
	extractor  Extractor
	summarizer *summarizer.ChunkSummarizer
	merger     *merge.Merger
	store      *jobstore.Store
	logger     *slog.Logger
	cfg        Config

	// One slot per in-flight provider call, shared across all jobs so
	// many simultaneous users cannot oversubscribe the provider.
	slots chan struct{}

	archive *archive.Store
}

// WithArchive enables persisting completed summaries. A nil store leaves
// archiving off.
func (o *Orchestrator) WithArchive(store *archive.Store) *Orchestrator {
	o.archive = store
	return o
}

func New(ext Extractor, sum *summarizer.ChunkSummarizer, merger *merge.Merger, store *jobstore.Store, logger *slog.Logger, cfg Config) *Orchestrator {
	if cfg.ConcurrencyLimit < 1 {
		cfg.ConcurrencyLimit = 1
	}
	return &Orchestrator{
		extractor:  ext,
		summarizer: sum,
		merger:     merger,
		store:      store,
		logger:     logger,
		cfg:        cfg,
		slots:      make(chan struct{}, cfg.ConcurrencyLimit),
	}
}

// Submit creates a job and runs the pipeline in the background. The caller
// gets the job id back immediately and observes everything else through the
// store. Input validation is the caller's, done before a job exists.
func (o *Orchestrator) Submit(data []byte, kind DocumentKind) string {
	job := o.store.Create()

	go func() {
		ctx := context.Background()
		if o.cfg.JobTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, o.cfg.JobTimeout)
			defer cancel()
		}
		o.runJob(ctx, job.ID, data, kind)
	}()

	return job.ID
}

func (o *Orchestrator) runJob(ctx context.Context, jobID string, data []byte, kind DocumentKind) {
	o.store.MarkProcessing(jobID)

	summary, stage, err := o.run(ctx, jobID, data, kind)
	if err != nil {
		o.logger.Error("Pipeline failed",
			slog.String("job_id", jobID),
			slog.String("stage", stage),
			slog.String("error", err.Error()))
		o.store.Fail(jobID, stage, clientMessage(stage, err))
		return
	}

	o.store.Complete(jobID, summary)

	if o.archive != nil {
		if err := o.archive.Save(ctx, jobID, *summary); err != nil {
			// Archiving is best-effort; the job already completed.
			o.logger.Warn("Failed to archive summary",
				slog.String("job_id", jobID),
				slog.String("error", err.Error()))
		}
	}

	o.logger.Info("Pipeline completed",
		slog.String("job_id", jobID),
		slog.Int("total_pages", summary.TotalPages),
		slog.Int64("processing_ms", summary.ProcessingMS))
}

// RunSync executes the same pipeline without job bookkeeping, for the
// blocking endpoint used on small documents.
func (o *Orchestrator) RunSync(ctx context.Context, data []byte, kind DocumentKind) (*document.DocumentSummary, error) {
	summary, stage, err := o.run(ctx, "", data, kind)
	if err != nil {
		return nil, fmt.Errorf("%s stage: %w", stage, err)
	}
	return summary, nil
}

// run is the shared pipeline body. jobID may be empty (sync path); progress
// updates against an empty or deleted id are no-ops in the store.
func (o *Orchestrator) run(ctx context.Context, jobID string, data []byte, kind DocumentKind) (*document.DocumentSummary, string, error) {
	started := time.Now()

	var blocks []document.TextBlock
	var totalPages int
	var err error

	switch kind {
	case KindWord:
		blocks, totalPages, err = o.extractor.ExtractWord(data)
	default:
		blocks, totalPages, err = o.extractor.ExtractPDF(data)
	}
	if err != nil {
		return nil, StageExtract, err
	}

	chunks := chunker.Chunk(blocks, o.cfg.ContextBudgetWords, o.cfg.OverlapWords)

	results, err := o.summarizeAll(ctx, jobID, chunks)
	if err != nil {
		// Whatever chunks did finish are dropped with the slice; a
		// partial summary with missing sections would mislead.
		return nil, StageSummarize, err
	}

	summary := o.merger.Merge(results, totalPages)
	summary.Keywords = summarizer.ExtractKeywords(allNarrative(blocks))
	summary.Model = o.summarizer.Model()
	summary.ProcessingMS = time.Since(started).Milliseconds()

	return &summary, "", nil
}

// summarizeAll fans the chunks out to the provider, at most the process-wide
// slot count in flight at once. Completion order is arbitrary; each result
// lands in its chunk's slice position, so the merger sees chunk order.
func (o *Orchestrator) summarizeAll(ctx context.Context, jobID string, chunks []document.Chunk) ([]document.ChunkResult, error) {
	profile := summarizer.DefaultProfile()
	results := make([]document.ChunkResult, len(chunks))

	var mu sync.Mutex
	done := 0

	g, gctx := errgroup.WithContext(ctx)
	for _, chunk := range chunks {
		chunk := chunk
		g.Go(func() error {
			select {
			case o.slots <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			defer func() { <-o.slots }()

			result, err := o.summarizer.SummarizeChunk(gctx, chunk, profile)
			if err != nil {
				return err
			}
			results[chunk.Index] = result

			mu.Lock()
			done++
			o.store.SetProgress(jobID, fmt.Sprintf("processing: chunk %d/%d", done, len(chunks)))
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func allNarrative(blocks []document.TextBlock) string {
	var text string
	for _, b := range blocks {
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

// clientMessage maps pipeline failures to the structured detail surfaced to
// clients, keeping provider internals out of API responses.
func clientMessage(stage string, err error) string {
	var unreadable *extractor.UnreadableError
	if errors.As(err, &unreadable) {
		return unreadable.Error()
	}

	var providerErr *llm_service.ProviderError
	if errors.As(err, &providerErr) {
		return fmt.Sprintf("summarization provider unavailable after %d attempts", providerErr.Attempts)
	}

	var rejected *llm_service.RejectedError
	if errors.As(err, &rejected) {
		return "summarization provider rejected the request"
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return "processing timed out"
	}

	return fmt.Sprintf("%s stage failed", stage)
}
