package jobqueue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/corvid-review/corvid/internal/pr"
)

// MemoryBroker is an in-process MessageBroker fake used by worker pool and
// webhook tests and by the service wiring when no Redis broker is configured,
// where a single process both publishes and consumes without a real Redis
// instance.
type MemoryBroker struct {
	mu         sync.Mutex
	cond       *sync.Cond
	pending    []*Delivery
	inFlight   map[string]*Delivery
	dlq        []*DLQEnvelope
	maxRetries int
}

// NewMemoryBroker returns an empty MemoryBroker.
func NewMemoryBroker(maxRetries int) *MemoryBroker {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	b := &MemoryBroker{
		inFlight:   map[string]*Delivery{},
		maxRetries: maxRetries,
	}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Publish implements MessageBroker.
func (b *MemoryBroker) Publish(_ context.Context, job pr.Job) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := uuid.NewString()
	b.pending = append(b.pending, &Delivery{ID: id, Job: job, DeliveryAttempt: 1})
	b.cond.Signal()
	return id, nil
}

// Consume implements MessageBroker. It blocks until a message is pending or
// ctx is cancelled.
func (b *MemoryBroker) Consume(ctx context.Context) (*Delivery, error) {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			b.mu.Lock()
			b.cond.Broadcast()
			b.mu.Unlock()
		case <-done:
		}
	}()
	defer close(done)

	b.mu.Lock()
	defer b.mu.Unlock()
	for len(b.pending) == 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		b.cond.Wait()
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	d := b.pending[0]
	b.pending = b.pending[1:]
	b.inFlight[d.ID] = d
	return d, nil
}

// Ack implements MessageBroker.
func (b *MemoryBroker) Ack(_ context.Context, messageID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.inFlight, messageID)
	return nil
}

// DeadLetter implements MessageBroker.
func (b *MemoryBroker) DeadLetter(_ context.Context, delivery *Delivery, cause error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.inFlight, delivery.ID)
	b.dlq = append(b.dlq, &DLQEnvelope{
		QueueEnvelope: QueueEnvelope{
			PREvent:     delivery.Job.Event,
			Priority:    delivery.Job.Priority,
			PublishedAt: delivery.Job.ReceivedAt,
		},
		DLQInfo: DLQInfo{
			OriginalMessageID:    delivery.ID,
			Error:                cause.Error(),
			OriginalSubscription: "memory",
			FailedAt:             time.Now(),
		},
	})
	return nil
}

// Nack implements MessageBroker: puts delivery back on the pending list
// with its attempt count incremented, simulating a nacked Redis Streams
// entry becoming claimable again.
func (b *MemoryBroker) Nack(_ context.Context, delivery *Delivery) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.inFlight, delivery.ID)
	delivery.DeliveryAttempt++
	delivery.Job.DeliveryAttempt = delivery.DeliveryAttempt
	b.pending = append(b.pending, delivery)
	b.cond.Signal()
	return nil
}

// Stats implements MessageBroker.
func (b *MemoryBroker) Stats(_ context.Context) (Stats, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{
		Depth:     len(b.pending),
		InFlight:  len(b.inFlight),
		DLQDepth:  len(b.dlq),
		Timestamp: time.Now(),
	}, nil
}

// MaxRetries reports the configured retry ceiling.
func (b *MemoryBroker) MaxRetries() int { return b.maxRetries }

// DLQEntries returns a snapshot of dead-lettered envelopes, for tests.
func (b *MemoryBroker) DLQEntries() []*DLQEnvelope {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*DLQEnvelope, len(b.dlq))
	copy(out, b.dlq)
	return out
}
