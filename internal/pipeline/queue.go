package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/deckscan/deckscan/internal/common"
)

// Queue is the long-lived counterpart of Batch: the daemon and the
// directory watcher enqueue decks as they appear, a fixed pool of workers
// drains them. Unlike a batch run, a run-fatal model error cannot abort the
// process; it is logged and the queue keeps accepting work.
type Queue struct {
	proc    *Processor
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type QueueOption func(*Queue)

func WithQueueWorkers(n int) QueueOption {
	return func(q *Queue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) QueueOption {
	return func(q *Queue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithQueueDeckTimeout(d time.Duration) QueueOption {
	return func(q *Queue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewQueue(proc *Processor, logger *slog.Logger, opts ...QueueOption) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &Queue{
		proc:    proc,
		logger:  logger,
		workers: 4,
		timeout: 3 * time.Minute,
		ch:      make(chan Job, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *Queue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("queue.worker.started", "worker_id", workerID)

				for job := range q.ch {
					q.process(job, workerID)
				}

				q.logger.Info("queue.worker.stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *Queue) process(job Job, workerID int) {
	filename := job.Filename
	if filename == "" {
		filename = filepath.Base(job.Path)
	}

	data, err := loadJob(job)
	if err != nil {
		q.logger.Warn("queue.read_failed", "worker_id", workerID, "path", job.Path, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()

	_, err = q.proc.ProcessDeck(ctx, filename, data)
	switch {
	case err == nil:
		q.logger.Info("queue.deck.ok", "worker_id", workerID, "filename", filename)
	case common.IsRunFatal(err):
		q.logger.Error("queue.deck.fatal", "worker_id", workerID, "filename", filename, "err", err)
	default:
		q.logger.Warn("queue.deck.failed", "worker_id", workerID, "filename", filename, "err", err)
	}
}

// Enqueue hands a deck to the pool, blocking when the buffer is full.
// Decks offered after Shutdown are dropped.
func (q *Queue) Enqueue(_ context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("queue.closed", "filename", job.Filename, "path", job.Path)
		return nil
	}
	select {
	case q.ch <- job:
	default:
		q.logger.Warn("queue.full", "filename", job.Filename, "path", job.Path)
		q.ch <- job
	}
	return nil
}

// Shutdown stops intake and waits for in-flight decks, up to ctx.
func (q *Queue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("queue.shutdown.interrupted")
	case <-done:
		q.logger.Info("queue.shutdown.complete")
	}
}
