// Package jobstore tracks asynchronous summarization jobs: creation,
// progress, terminal state and eventual eviction. The store is an explicit
// value handed to whoever needs it, not package-level state.
package jobstore

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hrdesk/docsum/document"
)

type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

var (
	// ErrNotFound reports an unknown or already-evicted job id.
	ErrNotFound = errors.New("job not found")
	// ErrNotReady reports a result request against a job that has not
	// completed yet.
	ErrNotReady = errors.New("job result not ready")
)

// JobError is the client-visible failure detail: which pipeline stage
// failed and a human-readable message, never raw provider internals.
type JobError struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

type Job struct {
	ID          string                    `json:"job_id"`
	Status      JobStatus                 `json:"status"`
	Progress    string                    `json:"progress,omitempty"`
	Result      *document.DocumentSummary `json:"result,omitempty"`
	Error       *JobError                 `json:"error,omitempty"`
	CreatedAt   time.Time                 `json:"created_at"`
	CompletedAt time.Time                 `json:"completed_at,omitempty"`
}

type Store struct {
	mu     sync.RWMutex
	jobs   map[string]*Job
	clock  TimeProvider
	logger *slog.Logger

	cleanupTicker *time.Ticker
	stopCleanup   chan struct{}
}

func New(logger *slog.Logger) *Store {
	return &Store{
		jobs:   make(map[string]*Job),
		clock:  &realTimeProvider{},
		logger: logger,
	}
}

// Create registers a new queued job and returns its id. The caller gets
// the id back immediately; the pipeline mutates the job from there.
func (s *Store) Create() *Job {
	job := &Job{
		ID:        uuid.NewString(),
		Status:    StatusQueued,
		CreatedAt: s.clock.Now(),
	}

	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	return job
}

// Get returns a snapshot of the job, so callers never observe a half-written
// update from the pipeline goroutine.
func (s *Store) Get(jobID string) (Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return Job{}, ErrNotFound
	}
	return *job, nil
}

// Result returns the completed summary, ErrNotReady while the job is still
// queued or processing, and ErrNotFound for unknown, failed-and-evicted or
// cleaned-up jobs. A failed job reports its recorded error.
func (s *Store) Result(jobID string) (*document.DocumentSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return nil, ErrNotFound
	}

	switch job.Status {
	case StatusCompleted:
		return job.Result, nil
	case StatusFailed:
		return nil, fmt.Errorf("job failed at stage %s: %s", job.Error.Stage, job.Error.Message)
	default:
		return nil, ErrNotReady
	}
}

// MarkProcessing moves a queued job to processing. Updates against deleted
// jobs are silent no-ops: a job cleaned up mid-flight must not crash the
// pipeline goroutine still working on it.
func (s *Store) MarkProcessing(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if job, exists := s.jobs[jobID]; exists && job.Status == StatusQueued {
		job.Status = StatusProcessing
		job.Progress = "extracting"
	}
}

func (s *Store) SetProgress(jobID, progress string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if job, exists := s.jobs[jobID]; exists && job.Status == StatusProcessing {
		job.Progress = progress
	}
}

// Complete attaches the final summary and stamps completion time.
func (s *Store) Complete(jobID string, result *document.DocumentSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[jobID]
	if !exists || job.Status != StatusProcessing {
		return
	}
	job.Status = StatusCompleted
	job.Progress = ""
	job.Result = result
	job.CompletedAt = s.clock.Now()
}

// Fail records the failing stage and cause. Any partial results the
// pipeline buffered are the pipeline's to discard; the store only ever
// holds complete summaries.
func (s *Store) Fail(jobID, stage, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[jobID]
	if !exists || job.Status == StatusCompleted || job.Status == StatusFailed {
		return
	}
	job.Status = StatusFailed
	job.Progress = ""
	job.Error = &JobError{Stage: stage, Message: message}
	job.CompletedAt = s.clock.Now()
}

// Delete removes the job and any buffered data. Idempotent: deleting an
// unknown id is not an error.
func (s *Store) Delete(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, jobID)
}

// Len reports the number of tracked jobs.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

// StartCleanup starts a goroutine that periodically evicts terminal jobs
// older than threshold, bounding memory when clients never call cleanup.
// Queued and processing jobs are never evicted by the sweep.
func (s *Store) StartCleanup(threshold, cleanupInterval time.Duration) {
	s.stopCleanup = make(chan struct{})
	s.cleanupTicker = time.NewTicker(cleanupInterval)

	go func() {
		for {
			select {
			case <-s.cleanupTicker.C:
				s.performCleanup(threshold)
			case <-s.stopCleanup:
				s.cleanupTicker.Stop()
				return
			}
		}
	}()
}

func (s *Store) StopCleanup() {
	if s.stopCleanup != nil {
		close(s.stopCleanup)
	}
}

func (s *Store) performCleanup(threshold time.Duration) {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	for jobID, job := range s.jobs {
		if job.Status != StatusCompleted && job.Status != StatusFailed {
			continue
		}
		if now.Sub(job.CompletedAt) > threshold {
			delete(s.jobs, jobID)
			s.logger.Debug("Evicted expired job", slog.String("job_id", jobID))
		}
	}
}
