package jobqueue

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/corvid-review/corvid/internal/pr"
)

// Handler processes one job. A returned error is treated as a retryable
// failure unless the delivery has exhausted its retries, in which case the
// pool dead-letters it instead of calling Handler again.
type Handler func(ctx context.Context, job pr.Job) error

// PoolConfig configures a WorkerPool.
type PoolConfig struct {
	WorkerCount int
	MaxRetries  int
	Logger      *log.Logger
}

// WorkerPool drains a MessageBroker with a bounded set of concurrent
// workers. The errgroup bounds concurrency and propagates the first worker
// error; the WaitGroup lets Stop block until in-flight jobs drain.
type WorkerPool struct {
	broker     MessageBroker
	handler    Handler
	workers    int
	maxRetries int
	logger     *log.Logger

	cancel context.CancelFunc
	group  *errgroup.Group
	done   sync.WaitGroup

	processed atomic.Int64
	failed    atomic.Int64
	dlqed     atomic.Int64
	active    atomic.Int64
}

// NewWorkerPool constructs a WorkerPool draining broker with handler.
func NewWorkerPool(broker MessageBroker, handler Handler, cfg PoolConfig) *WorkerPool {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 1
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &WorkerPool{
		broker:     broker,
		handler:    handler,
		workers:    cfg.WorkerCount,
		maxRetries: cfg.MaxRetries,
		logger:     cfg.Logger,
	}
}

// Start spawns the configured number of worker goroutines. It returns
// immediately; call Stop (or cancel the context passed to Start) to shut
// down. Safe to call once; a second call is a no-op.
func (p *WorkerPool) Start(ctx context.Context) {
	if p.cancel != nil {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	group, groupCtx := errgroup.WithContext(runCtx)
	p.group = group

	for i := 0; i < p.workers; i++ {
		workerID := fmt.Sprintf("worker-%d", i)
		p.done.Add(1)
		group.Go(func() error {
			defer p.done.Done()
			p.run(groupCtx, workerID)
			return nil
		})
	}
}

// Stop cancels all workers and waits for them to drain their current job.
func (p *WorkerPool) Stop() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	p.done.Wait()
}

// Wait blocks until every worker has returned, propagating the first
// non-nil error any worker returned (workers never return an error
// themselves today; Wait exists so callers running the pool as the main
// loop of the `corvid worker` command have something to block on).
func (p *WorkerPool) Wait() error {
	if p.group == nil {
		return nil
	}
	return p.group.Wait()
}

func (p *WorkerPool) run(ctx context.Context, workerID string) {
	p.log("worker started", "worker", workerID)
	for {
		if ctx.Err() != nil {
			p.log("worker shutting down", "worker", workerID)
			return
		}

		delivery, err := p.broker.Consume(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.log("consume error", "worker", workerID, "error", err)
			continue
		}
		if delivery == nil {
			continue
		}

		p.active.Add(1)
		p.process(ctx, workerID, delivery)
		p.active.Add(-1)
	}
}

func (p *WorkerPool) process(ctx context.Context, workerID string, delivery *Delivery) {
	start := time.Now()
	err := p.handler(ctx, delivery.Job)
	duration := time.Since(start)

	if err == nil {
		p.processed.Add(1)
		if ackErr := p.broker.Ack(ctx, delivery.ID); ackErr != nil {
			p.log("ack failed", "worker", workerID, "job", delivery.Job.ID, "error", ackErr)
		}
		p.log("job processed", "worker", workerID, "job", delivery.Job.ID, "duration", duration)
		return
	}

	if delivery.DeliveryAttempt < p.maxRetries {
		p.failed.Add(1)
		p.log("job failed, will retry", "worker", workerID, "job", delivery.Job.ID,
			"attempt", delivery.DeliveryAttempt, "max_retries", p.maxRetries, "error", err)
		if nackErr := p.broker.Nack(ctx, delivery); nackErr != nil {
			p.log("nack failed", "worker", workerID, "job", delivery.Job.ID, "error", nackErr)
		}
		return
	}

	p.dlqed.Add(1)
	p.log("job exhausted retries, dead-lettering", "worker", workerID, "job", delivery.Job.ID, "error", err)
	if dlqErr := p.broker.DeadLetter(ctx, delivery, err); dlqErr != nil {
		// Ack anyway: the message is not preserved, but leaving it pending
		// would wedge the stream on every redelivery of an unprocessable job.
		p.log("dead-letter failed; acking without preserving the job", "worker", workerID, "job", delivery.Job.ID, "error", dlqErr)
		if ackErr := p.broker.Ack(ctx, delivery.ID); ackErr != nil {
			p.log("ack after failed dead-letter also failed", "worker", workerID, "job", delivery.Job.ID, "error", ackErr)
		}
	}
}

// Counters reports the pool's lifetime processed/failed/dlq/active-worker
// counts.
type Counters struct {
	Processed     int64
	Failed        int64
	DLQed         int64
	ActiveWorkers int64
}

// Counters returns a snapshot of the pool's lifetime counters.
func (p *WorkerPool) Counters() Counters {
	return Counters{
		Processed:     p.processed.Load(),
		Failed:        p.failed.Load(),
		DLQed:         p.dlqed.Load(),
		ActiveWorkers: p.active.Load(),
	}
}

func (p *WorkerPool) log(msg string, kvs ...any) {
	if p.logger == nil {
		return
	}
	p.logger.Info(msg, kvs...)
}
