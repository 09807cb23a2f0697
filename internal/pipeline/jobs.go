package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"
)

// JobStatus represents the state of an extraction job.
type JobStatus string

const (
	StatusQueued      JobStatus = "queued"
	StatusFetching    JobStatus = "fetching"
	StatusParsing     JobStatus = "parsing"
	StatusFiltering   JobStatus = "filtering"
	StatusNormalizing JobStatus = "normalizing"
	StatusStoring     JobStatus = "storing"
	StatusCompleted   JobStatus = "completed"
	StatusFailed      JobStatus = "failed"
	StatusSkipped     JobStatus = "skipped"
	StatusDupSkipped  JobStatus = "duplicate_skipped"
)

// Terminal reports whether no further transitions follow s.
func (s JobStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusSkipped, StatusDupSkipped:
		return true
	}
	return false
}

// Job tracks the state of a single document extraction.
type Job struct {
	mu sync.Mutex

	ID    string `json:"job_id"`
	DocID string `json:"doc_id"`

	Status   JobStatus `json:"status"`
	Phase    string    `json:"phase"`
	Filename string    `json:"filename"`
	Title    string    `json:"title"`
	ArxivID  string    `json:"arxiv_id,omitempty"`

	// Outline is an explicit canonical title list supplied by the caller.
	Outline []string `json:"outline,omitempty"`
	// Force reprocesses even when the content hash is already stored.
	Force bool `json:"force"`

	Progress Progress `json:"progress"`

	ContentHash   string    `json:"content_hash,omitempty"`
	ExistingDocID string    `json:"existing_doc_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	// Internal: not serialized.
	fileData []byte
	pdfData  []byte
	errors   []string
}

// Progress tracks processing progress.
type Progress struct {
	SectionsFound      int      `json:"sections_found"`
	SectionsKept       int      `json:"sections_kept"`
	SectionsNormalized int      `json:"sections_normalized"`
	OutlineMode        string   `json:"outline_mode,omitempty"`
	Errors             []string `json:"errors"`
}

// NewJob returns a queued job with a fresh ID.
func NewJob(docID, filename string) *Job {
	now := time.Now()
	return &Job{
		ID:        NewID(),
		DocID:     docID,
		Status:    StatusQueued,
		Phase:     "queued",
		Filename:  filename,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Len returns the number of tracked jobs.
func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Cleanup removes finished jobs whose last update is older than the TTL.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		expired := job.Status.Terminal() && now.Sub(job.UpdatedAt) > s.ttl
		job.mu.Unlock()
		if expired {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// GetStatus returns the current status.
func (j *Job) GetStatus() JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.Status
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// SetSectionCounts records how many sections were found and kept.
func (j *Job) SetSectionCounts(found, kept int, mode string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.SectionsFound = found
	j.Progress.SectionsKept = kept
	j.Progress.OutlineMode = mode
	j.UpdatedAt = time.Now()
}

// IncrSectionsNormalized atomically increments normalized sections.
func (j *Job) IncrSectionsNormalized() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.SectionsNormalized++
	j.UpdatedAt = time.Now()
}

// SetContentHash records the source hash used for dedup.
func (j *Job) SetContentHash(hash string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ContentHash = hash
}

// SetTitle records the detected document title.
func (j *Job) SetTitle(title string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Title = title
	j.UpdatedAt = time.Now()
}

// SetExistingDocID records the stored document a duplicate matched.
func (j *Job) SetExistingDocID(docID string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ExistingDocID = docID
}

// SetFileData sets the raw source bytes for processing.
func (j *Job) SetFileData(data []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.fileData = data
}

// FileData returns the raw source bytes.
func (j *Job) FileData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fileData
}

// SetPDFData sets the reference rendering used for the outline.
func (j *Job) SetPDFData(data []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.pdfData = data
}

// PDFData returns the reference rendering, if any.
func (j *Job) PDFData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.pdfData
}

// release drops the payloads once a job has finished.
func (j *Job) release() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.fileData = nil
	j.pdfData = nil
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID            string    `json:"job_id"`
	DocID         string    `json:"doc_id"`
	Status        JobStatus `json:"status"`
	Phase         string    `json:"phase"`
	Filename      string    `json:"filename"`
	Title         string    `json:"title"`
	ArxivID       string    `json:"arxiv_id,omitempty"`
	ContentHash   string    `json:"content_hash,omitempty"`
	ExistingDocID string    `json:"existing_doc_id,omitempty"`
	Progress      Progress  `json:"progress"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := append([]string{}, j.Progress.Errors...)
	return JobSnapshot{
		ID:            j.ID,
		DocID:         j.DocID,
		Status:        j.Status,
		Phase:         j.Phase,
		Filename:      j.Filename,
		Title:         j.Title,
		ArxivID:       j.ArxivID,
		ContentHash:   j.ContentHash,
		ExistingDocID: j.ExistingDocID,
		Progress: Progress{
			SectionsFound:      j.Progress.SectionsFound,
			SectionsKept:       j.Progress.SectionsKept,
			SectionsNormalized: j.Progress.SectionsNormalized,
			OutlineMode:        j.Progress.OutlineMode,
			Errors:             errs,
		},
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
