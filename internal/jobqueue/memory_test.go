package jobqueue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBroker_PublishConsumeAck(t *testing.T) {
	t.Parallel()

	b := NewMemoryBroker(3)
	job := testJob("job-ack")

	id, err := b.Publish(context.Background(), job)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	stats, err := b.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Depth)

	delivery, err := b.Consume(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, delivery.DeliveryAttempt)

	stats, err = b.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Depth)
	assert.Equal(t, 1, stats.InFlight)

	require.NoError(t, b.Ack(context.Background(), delivery.ID))

	stats, err = b.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.InFlight)
}

func TestMemoryBroker_NackIncrementsAttemptAndRequeues(t *testing.T) {
	t.Parallel()

	b := NewMemoryBroker(3)
	_, err := b.Publish(context.Background(), testJob("job-nack"))
	require.NoError(t, err)

	delivery, err := b.Consume(context.Background())
	require.NoError(t, err)
	require.NoError(t, b.Nack(context.Background(), delivery))

	redelivered, err := b.Consume(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, redelivered.DeliveryAttempt)
	assert.Equal(t, 2, redelivered.Job.DeliveryAttempt)
}

func TestMemoryBroker_DeadLetterEnvelopeFields(t *testing.T) {
	t.Parallel()

	b := NewMemoryBroker(3)
	_, err := b.Publish(context.Background(), testJob("job-dlq"))
	require.NoError(t, err)

	delivery, err := b.Consume(context.Background())
	require.NoError(t, err)

	require.NoError(t, b.DeadLetter(context.Background(), delivery, errors.New("callback failed")))

	entries := b.DLQEntries()
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, delivery.ID, e.DLQInfo.OriginalMessageID)
	assert.Equal(t, "callback failed", e.DLQInfo.Error)
	assert.Equal(t, "memory", e.DLQInfo.OriginalSubscription)
	assert.WithinDuration(t, time.Now(), e.DLQInfo.FailedAt, time.Second)
	assert.Equal(t, "o", e.QueueEnvelope.PREvent.RepoOwner)

	stats, err := b.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.DLQDepth)
	assert.Equal(t, 0, stats.InFlight)
}

func TestMemoryBroker_ConsumeRespectsContextCancellation(t *testing.T) {
	t.Parallel()

	b := NewMemoryBroker(3)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := b.Consume(ctx)
	assert.Error(t, err)
}

func TestMemoryBroker_DefaultMaxRetries(t *testing.T) {
	t.Parallel()

	b := NewMemoryBroker(0)
	assert.Equal(t, 3, b.MaxRetries())
}
