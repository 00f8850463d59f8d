package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/deckscan/deckscan/internal/common"
)

// Job names one document for processing. Data wins when set; otherwise the
// worker reads Path. Filename defaults to the base of Path.
type Job struct {
	Filename string
	Path     string
	Data     []byte
}

// Failure records why one document did not produce a usable record.
type Failure struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

// BatchStats sums up one run. Total = Processed + Failed + Skipped.
type BatchStats struct {
	Total     int           `json:"total"`
	Processed int           `json:"processed"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
	Elapsed   time.Duration `json:"elapsed"`
	Failures  []Failure     `json:"failures,omitempty"`
}

// Batch drives a bounded worker pool over a finite set of jobs.
// Document-level failures are recorded and the run continues; auth and
// quota errors cancel the remaining work and propagate.
type Batch struct {
	proc        *Processor
	logger      *slog.Logger
	workers     int
	deckTimeout time.Duration
}

type BatchOption func(*Batch)

func WithWorkers(n int) BatchOption {
	return func(b *Batch) {
		if n > 0 {
			b.workers = n
		}
	}
}

func WithDeckTimeout(d time.Duration) BatchOption {
	return func(b *Batch) {
		b.deckTimeout = d
	}
}

func NewBatch(proc *Processor, logger *slog.Logger, opts ...BatchOption) *Batch {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Batch{
		proc:        proc,
		logger:      logger,
		workers:     4,
		deckTimeout: 3 * time.Minute,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Run processes every job and reports per-document outcomes. The returned
// error is non-nil only when the run as a whole failed: an auth or quota
// error from the model, or cancellation of ctx.
func (b *Batch) Run(ctx context.Context, jobs []Job) (BatchStats, error) {
	start := time.Now()
	stats := BatchStats{Total: len(jobs)}
	if len(jobs) == 0 {
		return stats, ctx.Err()
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	workers := b.workers
	if workers > len(jobs) {
		workers = len(jobs)
	}
	b.logger.Info("batch.start", "jobs", len(jobs), "workers", workers)

	var (
		mu    sync.Mutex
		fatal error
	)
	ch := make(chan Job)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for job := range ch {
				b.runJob(runCtx, cancel, job, workerID, &mu, &stats, &fatal)
			}
		}(i + 1)
	}

	go func() {
		defer close(ch)
		for i, job := range jobs {
			select {
			case ch <- job:
			case <-runCtx.Done():
				mu.Lock()
				stats.Skipped += len(jobs) - i
				mu.Unlock()
				return
			}
		}
	}()

	wg.Wait()
	stats.Elapsed = time.Since(start)

	if fatal != nil {
		b.logger.Error("batch.aborted",
			"processed", stats.Processed,
			"failed", stats.Failed,
			"skipped", stats.Skipped,
			"err", fatal,
		)
		return stats, fatal
	}
	if err := ctx.Err(); err != nil {
		return stats, err
	}

	b.logger.Info("batch.done",
		"processed", stats.Processed,
		"failed", stats.Failed,
		"skipped", stats.Skipped,
		"elapsed_ms", stats.Elapsed.Milliseconds(),
	)
	return stats, nil
}

func (b *Batch) runJob(runCtx context.Context, abort context.CancelFunc, job Job, workerID int, mu *sync.Mutex, stats *BatchStats, fatal *error) {
	if runCtx.Err() != nil {
		mu.Lock()
		stats.Skipped++
		mu.Unlock()
		return
	}

	filename := job.Filename
	if filename == "" {
		filename = filepath.Base(job.Path)
	}

	data, err := loadJob(job)
	if err != nil {
		b.logger.Warn("batch.read_failed", "worker_id", workerID, "path", job.Path, "error", err)
		b.fail(mu, stats, filename, err.Error())
		return
	}

	deckCtx := runCtx
	if b.deckTimeout > 0 {
		var cancelDeck context.CancelFunc
		deckCtx, cancelDeck = context.WithTimeout(runCtx, b.deckTimeout)
		defer cancelDeck()
	}

	_, err = b.proc.ProcessDeck(deckCtx, filename, data)
	switch {
	case err == nil:
		mu.Lock()
		stats.Processed++
		mu.Unlock()
	case common.IsRunFatal(err):
		mu.Lock()
		stats.Failed++
		stats.Failures = append(stats.Failures, Failure{Filename: filename, Reason: failReason(err)})
		if *fatal == nil {
			*fatal = err
		}
		mu.Unlock()
		abort()
	case runCtx.Err() != nil:
		mu.Lock()
		stats.Skipped++
		mu.Unlock()
	case errors.Is(err, context.DeadlineExceeded):
		b.fail(mu, stats, filename, "timed out after "+b.deckTimeout.String())
	default:
		b.fail(mu, stats, filename, failReason(err))
	}
}

func (b *Batch) fail(mu *sync.Mutex, stats *BatchStats, filename, reason string) {
	mu.Lock()
	stats.Failed++
	stats.Failures = append(stats.Failures, Failure{Filename: filename, Reason: reason})
	mu.Unlock()
}

func loadJob(job Job) ([]byte, error) {
	if job.Data != nil {
		return job.Data, nil
	}
	return os.ReadFile(job.Path)
}
