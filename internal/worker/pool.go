// Package worker runs post-processing jobs off the ingestion path. The
// pool is partitioned: jobs for the same chat always land on the same
// worker, so per-chat FIFO order holds without any global lock.
package worker

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/groupmind-tgbot-go/internal/middleware"
)

// Job is one unit of background work, keyed by the chat it belongs to.
type Job struct {
	ChatID int64
	Run    func(ctx context.Context) error
}

// Pool is a fixed set of workers, each draining its own bounded queue.
type Pool struct {
	queues   []chan Job
	inflight sync.WaitGroup
	metrics  *middleware.Metrics
	logger   *logrus.Logger
}

// NewPool creates a pool of workers, each with a bounded queue of
// queueSize jobs.
func NewPool(workers, queueSize int, metrics *middleware.Metrics, logger *logrus.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}

	queues := make([]chan Job, workers)
	for i := range queues {
		queues[i] = make(chan Job, queueSize)
	}

	return &Pool{
		queues:  queues,
		metrics: metrics,
		logger:  logger,
	}
}

// Start launches the workers. They exit when ctx is cancelled; callers
// that need every accepted job to finish must Wait before cancelling.
func (p *Pool) Start(ctx context.Context) {
	for i, queue := range p.queues {
		go p.run(ctx, i, queue)
	}
}

// Enqueue hands a job to the worker owning the job's chat, blocking until
// that worker's queue has room or ctx is cancelled.
func (p *Pool) Enqueue(ctx context.Context, job Job) error {
	idx := int(uint64(job.ChatID) % uint64(len(p.queues)))

	p.inflight.Add(1)
	select {
	case p.queues[idx] <- job:
		return nil
	case <-ctx.Done():
		p.inflight.Done()
		return ctx.Err()
	}
}

// Wait blocks until every enqueued job has been processed.
func (p *Pool) Wait() {
	p.inflight.Wait()
}

func (p *Pool) run(ctx context.Context, id int, queue chan Job) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-queue:
			p.process(ctx, id, job)
		}
	}
}

// process runs one job. Failures are logged and discarded; the in-flight
// counter is decremented either way so Wait never hangs on a failed job.
func (p *Pool) process(ctx context.Context, id int, job Job) {
	defer p.inflight.Done()
	defer func() {
		if r := recover(); r != nil {
			p.metrics.RecordJobProcessed("panic")
			p.logger.WithFields(logrus.Fields{
				"worker":  id,
				"chat_id": job.ChatID,
				"panic":   r,
			}).Error("Background job panicked")
		}
	}()

	if err := job.Run(ctx); err != nil {
		p.metrics.RecordJobProcessed("error")
		p.logger.WithError(err).WithFields(logrus.Fields{
			"worker":  id,
			"chat_id": job.ChatID,
		}).Error("Background job failed")
		return
	}

	p.metrics.RecordJobProcessed("success")
}
