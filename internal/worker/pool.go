// Package worker implements a bounded worker pool that derives catalog
// metadata from committed storage events.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mtiwari1/chunkvault/internal/hasher"
	"github.com/mtiwari1/chunkvault/internal/storage"
)

// Job represents one committed mutation to process.
// Contains a context.Context for cancellation and deadline propagation.
// Seq is opaque to the pool and copied to the Result so the consumer can
// restore commit order.
type Job struct {
	Ctx   context.Context
	Seq   uint64
	Event storage.Event
}

// Result holds the outcome of processing a single job. Content is nil for
// events that carry no content (tag updates and deletes).
type Result struct {
	Seq     uint64
	Event   storage.Event
	Content *hasher.Metadata
	Err     error
}

// Pool manages a fixed set of worker goroutines that process Jobs from a channel
// and emit Results to another channel.
type Pool struct {
	workers int
	jobs    chan Job
	results chan Result
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	logger  *slog.Logger

	mu           sync.RWMutex // guards closed against sends on a closed jobs channel
	closed       bool
	shutdownOnce sync.Once
}

// NewPool creates a pool with the given number of workers.
// Call Start() to launch the goroutines.
func NewPool(workers int, logger *slog.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		workers: workers,
		jobs:    make(chan Job, workers*2), // small buffer for backpressure
		results: make(chan Result, workers*2),
		ctx:     ctx,
		cancel:  cancel,
		logger:  logger,
	}
}

// Start launches worker goroutines. Each reads from the jobs channel until it is
// closed or the context is cancelled.
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Submit enqueues a job. It blocks if the jobs channel buffer is full (backpressure).
// Returns false once the pool has been shut down or aborted.
func (p *Pool) Submit(job Job) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed || p.ctx.Err() != nil {
		return false
	}
	select {
	case p.jobs <- job:
		return true
	case <-p.ctx.Done():
		return false
	}
}

// Results returns the read-only results channel for the consumer.
func (p *Pool) Results() <-chan Result {
	return p.results
}

// Shutdown closes the jobs channel, waits for all workers to finish,
// then closes the results channel. Safe to call more than once.
func (p *Pool) Shutdown() {
	p.shutdownOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.jobs) // signal workers to drain and exit
		p.mu.Unlock()
		p.wg.Wait()
		close(p.results)
		p.cancel()
	})
}

// Abort cancels in-flight work without draining the queue.
func (p *Pool) Abort() {
	p.cancel()
}

// worker is the goroutine body. It processes jobs until the channel is closed
// or the context is cancelled.
func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case job, ok := <-p.jobs:
			if !ok {
				p.logger.Debug("worker exiting", slog.Int("worker_id", id))
				return
			}
			p.results <- p.process(id, job)

		case <-p.ctx.Done():
			p.logger.Info("worker cancelled", slog.Int("worker_id", id))
			return
		}
	}
}

// process handles a single job and respects the job's context.
func (p *Pool) process(workerID int, job Job) Result {
	ctx := job.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	ev := job.Event

	if err := ctx.Err(); err != nil {
		return Result{Seq: job.Seq, Event: ev, Err: fmt.Errorf("job cancelled before processing: %w", err)}
	}

	// Only uploads and new versions change content.
	if ev.Kind != storage.EventUploaded && ev.Kind != storage.EventVersionCreated {
		return Result{Seq: job.Seq, Event: ev}
	}

	start := time.Now()
	meta, err := hasher.ComputeMetadata(ev.Name, ev.Metadata.FileType, ev.Content)
	latency := time.Since(start)

	if ctx.Err() != nil {
		p.logger.Warn("job context cancelled during processing",
			slog.Int("worker_id", workerID),
			slog.String("file", ev.Name),
		)
		return Result{Seq: job.Seq, Event: ev, Err: fmt.Errorf("job cancelled during processing: %w", ctx.Err())}
	}
	if err != nil {
		p.logger.Error("processing failed",
			slog.Int("worker_id", workerID),
			slog.String("file", ev.Name),
			slog.Duration("latency", latency),
			slog.String("error", err.Error()),
		)
		return Result{Seq: job.Seq, Event: ev, Err: err}
	}

	p.logger.Debug("processing completed",
		slog.Int("worker_id", workerID),
		slog.String("file", ev.Name),
		slog.Uint64("version", ev.Metadata.CurrentVersion),
		slog.Duration("latency", latency),
		slog.String("hash", meta.Hash),
		slog.String("mime_type", meta.MimeType),
	)
	return Result{Seq: job.Seq, Event: ev, Content: meta}
}
