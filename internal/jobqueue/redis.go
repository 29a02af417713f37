package jobqueue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/corvid-review/corvid/internal/corverr"
	"github.com/corvid-review/corvid/internal/pr"
)

// RedisBroker is the reference MessageBroker adapter: a Redis Stream for
// the review queue, a consumer group per deployment, and a second stream
// for dead-lettered jobs. One RedisBroker is shared by every worker in a
// process; consumer identity (the "name" argument to XReadGroup) is unique
// per worker so Redis can track per-consumer pending entries.
type RedisBroker struct {
	client        *redis.Client
	stream        string
	dlqStream     string
	consumerGroup string
	consumerName  string
	maxRetries    int
	blockFor      time.Duration
}

// RedisBrokerConfig configures a RedisBroker.
type RedisBrokerConfig struct {
	Stream        string
	DLQStream     string
	ConsumerGroup string
	ConsumerName  string
	MaxRetries    int
	BlockFor      time.Duration
}

// NewRedisBroker wraps an already-connected redis.Client. It creates the
// consumer group on the review stream if it doesn't already exist (Redis
// returns BUSYGROUP for a group that already exists, which is not an
// error here).
func NewRedisBroker(ctx context.Context, client *redis.Client, cfg RedisBrokerConfig) (*RedisBroker, error) {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BlockFor <= 0 {
		cfg.BlockFor = 5 * time.Second
	}
	if cfg.ConsumerName == "" {
		cfg.ConsumerName = uuid.NewString()
	}

	b := &RedisBroker{
		client:        client,
		stream:        cfg.Stream,
		dlqStream:     cfg.DLQStream,
		consumerGroup: cfg.ConsumerGroup,
		consumerName:  cfg.ConsumerName,
		maxRetries:    cfg.MaxRetries,
		blockFor:      cfg.BlockFor,
	}

	err := client.XGroupCreateMkStream(ctx, b.stream, b.consumerGroup, "0").Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		var busy bool
		if err.Error() == "BUSYGROUP Consumer Group name already exists" {
			busy = true
		}
		if !busy {
			return nil, fmt.Errorf("jobqueue: creating consumer group %q on stream %q: %w", b.consumerGroup, b.stream, err)
		}
	}
	return b, nil
}

// Publish implements MessageBroker.
func (b *RedisBroker) Publish(ctx context.Context, job pr.Job) (string, error) {
	data, err := marshalEnvelope(job)
	if err != nil {
		return "", fmt.Errorf("jobqueue: marshal job %q: %w", job.ID, err)
	}
	id, err := b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: b.stream,
		Values: map[string]any{"job_id": job.ID, "payload": string(data)},
	}).Result()
	if err != nil {
		return "", corverr.New(corverr.Transport, fmt.Errorf("publishing job %q: %w", job.ID, err))
	}
	return id, nil
}

// Consume implements MessageBroker. It blocks for up to blockFor waiting
// for a new entry and returns (nil, nil) when none arrives (redis.Nil), a
// "nothing ready" result the worker pool's poll loop treats as a no-op
// iteration rather than a hard failure.
func (b *RedisBroker) Consume(ctx context.Context) (*Delivery, error) {
	res, err := b.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    b.consumerGroup,
		Consumer: b.consumerName,
		Streams:  []string{b.stream, ">"},
		Count:    1,
		Block:    b.blockFor,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, corverr.New(corverr.Transport, fmt.Errorf("reading from review stream: %w", err))
	}
	if len(res) == 0 || len(res[0].Messages) == 0 {
		return nil, nil
	}

	msg := res[0].Messages[0]
	payload, _ := msg.Values["payload"].(string)
	env, err := unmarshalEnvelope([]byte(payload))
	if err != nil {
		return nil, corverr.New(corverr.Parse, fmt.Errorf("decoding message %q: %w", msg.ID, err))
	}

	jobID, _ := msg.Values["job_id"].(string)
	attempt := b.deliveryAttempt(ctx, msg.ID)

	return &Delivery{
		ID: msg.ID,
		Job: pr.Job{
			ID:              jobID,
			Event:           env.PREvent,
			Priority:        env.Priority,
			ReceivedAt:      env.PublishedAt,
			DeliveryAttempt: attempt,
		},
		DeliveryAttempt: attempt,
	}, nil
}

// deliveryAttempt looks up how many times messageID has been delivered via
// XPENDING (the count already includes the delivery in hand), returning 1 if
// the lookup fails (treat as first delivery rather than blocking consumption
// on a non-essential read).
func (b *RedisBroker) deliveryAttempt(ctx context.Context, messageID string) int {
	ext, err := b.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: b.stream,
		Group:  b.consumerGroup,
		Start:  messageID,
		End:    messageID,
		Count:  1,
	}).Result()
	if err != nil || len(ext) == 0 || ext[0].RetryCount < 1 {
		return 1
	}
	return int(ext[0].RetryCount)
}

// Ack implements MessageBroker.
func (b *RedisBroker) Ack(ctx context.Context, messageID string) error {
	if err := b.client.XAck(ctx, b.stream, b.consumerGroup, messageID).Err(); err != nil {
		return corverr.New(corverr.Transport, fmt.Errorf("acking message %q: %w", messageID, err))
	}
	return nil
}

// Nack implements MessageBroker. The entry is left unacked in the consumer
// group's pending entries list; it becomes reclaimable once its idle time
// exceeds the pool's claim threshold, which a periodic XAutoClaim sweep
// (run alongside the worker pool) redelivers to a live consumer.
func (b *RedisBroker) Nack(_ context.Context, _ *Delivery) error {
	return nil
}

// DeadLetter implements MessageBroker: republish with _dlq_info attached,
// then ack the original so it is not redelivered.
func (b *RedisBroker) DeadLetter(ctx context.Context, delivery *Delivery, cause error) error {
	env := QueueEnvelope{
		PREvent:     delivery.Job.Event,
		Priority:    delivery.Job.Priority,
		PublishedAt: delivery.Job.ReceivedAt,
	}
	dlq := DLQEnvelope{
		QueueEnvelope: env,
		DLQInfo: DLQInfo{
			OriginalMessageID:    delivery.ID,
			Error:                cause.Error(),
			OriginalSubscription: b.consumerGroup,
			FailedAt:             time.Now().UTC(),
		},
	}
	data, err := marshalDLQ(dlq)
	if err != nil {
		return fmt.Errorf("jobqueue: marshal dlq envelope: %w", err)
	}

	if err := b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: b.dlqStream,
		Values: map[string]any{"job_id": delivery.Job.ID, "payload": string(data)},
	}).Err(); err != nil {
		return corverr.New(corverr.Transport, fmt.Errorf("dead-lettering job %q: %w", delivery.Job.ID, err))
	}

	return b.Ack(ctx, delivery.ID)
}

// Stats implements MessageBroker.
func (b *RedisBroker) Stats(ctx context.Context) (Stats, error) {
	depth, err := b.client.XLen(ctx, b.stream).Result()
	if err != nil {
		return Stats{}, corverr.New(corverr.Transport, fmt.Errorf("reading stream length: %w", err))
	}
	dlqDepth, err := b.client.XLen(ctx, b.dlqStream).Result()
	if err != nil {
		return Stats{}, corverr.New(corverr.Transport, fmt.Errorf("reading dlq stream length: %w", err))
	}
	pending, err := b.client.XPending(ctx, b.stream, b.consumerGroup).Result()
	inFlight := 0
	if err == nil && pending != nil {
		inFlight = int(pending.Count)
	}
	return Stats{
		Depth:     int(depth),
		InFlight:  inFlight,
		DLQDepth:  int(dlqDepth),
		Timestamp: time.Now(),
	}, nil
}

// MaxRetries reports the configured retry ceiling. The worker pool does not
// read it; the pool takes its own ceiling from PoolConfig.MaxRetries.
func (b *RedisBroker) MaxRetries() int { return b.maxRetries }
