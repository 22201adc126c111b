package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sanskar-502/Bajaj-Cloud/internal/data/repos"
	"github.com/sanskar-502/Bajaj-Cloud/internal/domain"
	"github.com/sanskar-502/Bajaj-Cloud/internal/modules/ingestion/pipeline"
	"github.com/sanskar-502/Bajaj-Cloud/internal/observability"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/ctxutil"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/dbctx"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/logger"
)

var (
	ErrQueueFull   = errors.New("ingest queue full")
	ErrPoolStopped = errors.New("ingest pool stopped")
)

type Processor interface {
	Process(ctx context.Context, path string, documentID string) (*pipeline.Result, error)
}

// CacheInvalidator retires cached answers after the searchable content of
// documentID changed.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, documentID string) error
}

// Job is one uploaded file waiting to be ingested. The pool owns Path once
// the job is handed to Enqueue and removes it when done.
type Job struct {
	DocumentID string
	Path       string
	Source     domain.DocumentSource
	// Ctx carries trace data into the job; its cancellation is ignored.
	Ctx context.Context
}

type Config struct {
	Concurrency int
	QueueSize   int
	JobTimeout  time.Duration
}

type Pool struct {
	log      *logger.Logger
	proc     Processor
	statuses repos.DocumentStatusRepo
	answers  CacheInvalidator
	cfg      Config

	queue   chan Job
	mu      sync.Mutex
	stopped bool
	started bool
	wg      sync.WaitGroup
}

// NewPool builds the ingest pool. answers may be nil when no answer cache is configured.
func NewPool(baseLog *logger.Logger, proc Processor, statuses repos.DocumentStatusRepo, answers CacheInvalidator, cfg Config) *Pool {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 1
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 15 * time.Minute
	}
	return &Pool{
		log:      baseLog.With("component", "IngestWorker"),
		proc:     proc,
		statuses: statuses,
		answers:  answers,
		cfg:      cfg,
		queue:    make(chan Job, cfg.QueueSize),
	}
}

func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.stopped {
		return
	}
	p.started = true
	p.log.Info("Starting ingest worker pool", "concurrency", p.cfg.Concurrency, "queue_size", p.cfg.QueueSize)
	for i := 0; i < p.cfg.Concurrency; i++ {
		p.wg.Add(1)
		go p.runLoop(i + 1)
	}
}

// Enqueue hands job to the pool without blocking. On failure the job's file
// is removed and the document is marked FAILED before the error is returned.
func (p *Pool) Enqueue(job Job) error {
	p.mu.Lock()
	var err error
	if p.stopped {
		err = ErrPoolStopped
	} else {
		select {
		case p.queue <- job:
			observability.Current().SetQueueDepth(len(p.queue))
		default:
			err = ErrQueueFull
		}
	}
	p.mu.Unlock()

	if err != nil {
		p.log.Warn("Ingest job rejected", "document_id", job.DocumentID, "error", err)
		p.removeFile(job)
		p.markFailed(job, err)
	}
	return err
}

// Stop refuses new jobs and waits for queued ones to finish or ctx to end.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		close(p.queue)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		p.log.Info("Ingest worker pool stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) runLoop(workerID int) {
	defer p.wg.Done()
	for job := range p.queue {
		observability.Current().SetQueueDepth(len(p.queue))
		p.run(workerID, job)
	}
	p.log.Debug("Worker loop stopped", "worker_id", workerID)
}

func (p *Pool) run(workerID int, job Job) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctxutil.Detached(job.Ctx), p.cfg.JobTimeout)
	defer cancel()
	defer p.removeFile(job)

	var (
		res *pipeline.Result
		err error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				p.log.Error("Ingest job panic",
					"worker_id", workerID,
					"document_id", job.DocumentID,
					"panic", r,
				)
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		res, err = p.proc.Process(ctx, job.Path, job.DocumentID)
	}()

	source := string(job.Source)
	if err != nil {
		p.log.Error("Ingest job failed",
			"worker_id", workerID,
			"document_id", job.DocumentID,
			"error", err,
		)
		p.markFailed(job, err)
		// a failed job may have upserted some batches before erroring
		p.invalidate(job)
		observability.Current().ObserveIngestJob(source, "failed", 0, time.Since(start))
		return
	}

	if err := p.statuses.MarkReady(dbctx.New(ctx), job.DocumentID, &res.Document, res.ChunkCount); err != nil {
		p.log.Error("MarkReady failed", "document_id", job.DocumentID, "error", err)
	}
	p.invalidate(job)
	observability.Current().ObserveIngestJob(source, "ready", res.ChunkCount, time.Since(start))
	p.log.Info("Ingest job done",
		"worker_id", workerID,
		"document_id", job.DocumentID,
		"chunks", res.ChunkCount,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

func (p *Pool) markFailed(job Job, cause error) {
	// The job context may already be past its deadline.
	ctx, cancel := context.WithTimeout(ctxutil.Detached(job.Ctx), 10*time.Second)
	defer cancel()
	if err := p.statuses.MarkFailed(dbctx.New(ctx), job.DocumentID, cause.Error()); err != nil {
		p.log.Error("MarkFailed failed", "document_id", job.DocumentID, "error", err)
	}
}

func (p *Pool) invalidate(job Job) {
	if p.answers == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctxutil.Detached(job.Ctx), 10*time.Second)
	defer cancel()
	if err := p.answers.Invalidate(ctx, job.DocumentID); err != nil {
		p.log.Warn("Answer cache invalidation failed", "document_id", job.DocumentID, "error", err)
	}
}

func (p *Pool) removeFile(job Job) {
	if job.Path == "" {
		return
	}
	if err := os.Remove(job.Path); err != nil && !os.IsNotExist(err) {
		p.log.Warn("Temp file cleanup failed", "path", job.Path, "error", err)
	}
}
