package jobqueue

import (
	"context"

	"github.com/corvid-review/corvid/internal/pr"
)

// MessageBroker is the capability the webhook ingress publishes onto and
// the worker pool consumes from. The Redis Streams adapter (RedisBroker) is
// the reference implementation; a MemoryBroker fake satisfies the same
// interface for tests and for a single-process serve/worker run without Redis.
type MessageBroker interface {
	// Publish enqueues job, assigning it a priority-routing message id.
	Publish(ctx context.Context, job pr.Job) (messageID string, err error)

	// Consume blocks (subject to ctx) until a message is available and
	// returns it unacknowledged. The caller must Ack or DeadLetter it.
	Consume(ctx context.Context) (*Delivery, error)

	// Ack acknowledges successful processing of the delivery with the given
	// message id, removing it from the pending entries list.
	Ack(ctx context.Context, messageID string) error

	// Nack returns delivery to circulation for redelivery, incrementing its
	// delivery attempt count, when delivery_attempt < max_retries the
	// broker redelivers. The Redis adapter is a no-op: an unacked entry already sits in
	// the consumer group's pending entries list and is redelivered by a
	// claim sweep; the in-memory fake requeues explicitly.
	Nack(ctx context.Context, delivery *Delivery) error

	// DeadLetter republishes delivery onto the dead-letter stream with
	// _dlq_info attached, then acks the original message so it is not
	// redelivered.
	DeadLetter(ctx context.Context, delivery *Delivery, cause error) error

	// Stats reports current queue depth, in-flight, and DLQ depth.
	Stats(ctx context.Context) (Stats, error)
}
