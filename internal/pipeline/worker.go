package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/texgest/internal/arxiv"
	"github.com/dgallion1/texgest/internal/latex"
	"github.com/dgallion1/texgest/internal/parser"
	"github.com/dgallion1/texgest/internal/store"
)

// Worker processes a single document job.
type Worker struct {
	processor  *Processor
	store      *store.Store
	arxiv      *arxiv.Client
	stats      *ProcessingStats
	log        *slog.Logger
	docTimeout time.Duration
	dedup      bool

	// backoff is Backoff outside of tests.
	backoff func(int) time.Duration
}

func NewWorker(processor *Processor, st *store.Store, ax *arxiv.Client, stats *ProcessingStats, log *slog.Logger, docTimeout time.Duration, dedup bool) *Worker {
	if log == nil {
		log = slog.Default()
	}
	return &Worker{
		processor:  processor,
		store:      st,
		arxiv:      ax,
		stats:      stats,
		log:        log,
		docTimeout: docTimeout,
		dedup:      dedup,
		backoff:    Backoff,
	}
}

// Process runs the full extraction pipeline for a job under the per-document
// time budget.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "doc_id", job.DocID)
	defer job.release()

	if w.docTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.docTimeout)
		defer cancel()
	}
	start := time.Now()

	// Phase 1: Fetch
	if job.ArxivID != "" {
		job.SetStatus(StatusFetching, "fetching")
		if err := w.fetch(ctx, job, log); err != nil {
			w.finish(job, log, "fetching", err)
			return
		}
	}

	data := job.FileData()
	job.SetContentHash(ContentHashHex(data))

	// Phase 2: Dedup check
	if w.dedup && !job.Force && w.store != nil {
		existing, err := w.store.FindByHash(ctx, job.ContentHash)
		switch {
		case err == nil:
			log.Info("duplicate document, skipping", "existing_doc_id", existing.DocID)
			job.SetExistingDocID(existing.DocID)
			job.SetStatus(StatusDupSkipped, "dedup")
			w.outcome(StatusDupSkipped)
			return
		case !errors.Is(err, store.ErrNotFound):
			log.Warn("dedup check failed, proceeding", "error", err)
		}
	}

	// Phase 3: Extract structure
	res, err := w.processor.Process(ctx, Input{
		Filename: job.Filename,
		Data:     data,
		PDF:      job.PDFData(),
		Outline:  job.Outline,
		Title:    job.Title,
	}, Hooks{
		Stage:   func(s JobStatus) { job.SetStatus(s, string(s)) },
		Section: job.IncrSectionsNormalized,
	})
	if err != nil {
		w.finish(job, log, job.Snapshot().Phase, err)
		return
	}
	job.SetTitle(res.Title)
	job.SetSectionCounts(res.Flat.Len(), res.Sections.Len(), res.OutlineMode)
	log.Info("extracted sections",
		"format", res.Format,
		"outline_mode", res.OutlineMode,
		"found", res.Flat.Len(),
		"kept", res.Sections.Len(),
	)

	// Phase 4: Store
	job.SetStatus(StatusStoring, "storing")
	total := time.Since(start).Milliseconds()
	res.Timings["total"] = total
	if w.store != nil {
		rec := &store.Record{
			DocID:       job.DocID,
			Title:       res.Title,
			Format:      res.Format,
			Filename:    job.Filename,
			ContentHash: job.ContentHash,
			OutlineMode: res.OutlineMode,
			Outline:     res.Outline,
			Sections:    res.Sections,
			Timings:     res.Timings,
		}
		if err := w.store.Put(ctx, rec); err != nil {
			w.finish(job, log, "storing", fmt.Errorf("store: %w", err))
			return
		}
	}

	if w.stats != nil {
		w.stats.Record(res.Timings)
	}
	job.SetStatus(StatusCompleted, "done")
	w.outcome(StatusCompleted)
	log.Info("document complete", "duration_ms", total)
}

// fetch downloads the e-print source and, unless an explicit outline was
// given, the reference PDF.
func (w *Worker) fetch(ctx context.Context, job *Job, log *slog.Logger) error {
	if w.arxiv == nil {
		return errors.New("arxiv client not configured")
	}
	src, pdf, err := FetchArxiv(ctx, w.arxiv, job.ArxivID, len(job.Outline) == 0, w.backoff, log)
	if err != nil {
		return err
	}
	job.SetFileData(src)
	job.SetPDFData(pdf)
	return nil
}

// FetchArxiv downloads the source bundle for id and optionally its rendered
// PDF, retrying transient failures with wait between attempts.
func FetchArxiv(ctx context.Context, ax *arxiv.Client, id string, withPDF bool, wait func(int) time.Duration, log *slog.Logger) (src, pdf []byte, err error) {
	if wait == nil {
		wait = Backoff
	}
	if log == nil {
		log = slog.Default()
	}
	onRetry := func(attempt int, err error) {
		log.Warn("retryable fetch error", "arxiv_id", id, "attempt", attempt, "error", err)
	}
	src, err = withRetry(ctx, wait, onRetry, func() ([]byte, error) {
		return ax.Source(ctx, id)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("source: %w", err)
	}
	if !withPDF {
		return src, nil, nil
	}
	pdf, err = withRetry(ctx, wait, onRetry, func() ([]byte, error) {
		return ax.PDF(ctx, id)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("pdf: %w", err)
	}
	return src, pdf, nil
}

func (w *Worker) finish(job *Job, log *slog.Logger, phase string, err error) {
	status := Classify(err)
	job.AddError(fmt.Sprintf("%s: %s", phase, err))
	job.SetStatus(status, phase)
	w.outcome(status)
	if status == StatusSkipped {
		log.Warn("document skipped", "phase", phase, "error", err)
		return
	}
	log.Error("document failed", "phase", phase, "error", err)
}

func (w *Worker) outcome(status JobStatus) {
	if w.stats != nil {
		w.stats.Outcome(status)
	}
}

// Classify maps a processing error to the job's terminal status. Documents
// without structure or that exhaust their time budget are skipped; anything
// else, including an unavailable reference outline, fails the job.
func Classify(err error) JobStatus {
	switch {
	case errors.Is(err, parser.ErrNoStructure),
		errors.Is(err, latex.ErrMatchTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return StatusSkipped
	}
	return StatusFailed
}
