// Package jobqueue implements the MessageBroker capability: the review
// queue a webhook ingress publishes onto and the job runtime's worker pool
// consumes from, with at-least-once delivery, a bounded retry policy, and a
// dead-letter stream for jobs that exhaust their retries.
package jobqueue

import (
	"encoding/json"
	"time"

	"github.com/corvid-review/corvid/internal/pr"
)

// QueueEnvelope is the wire format a publisher writes and a worker reads:
// the PREvent plus routing/priority metadata, marshaled as UTF-8 JSON onto
// the broker.
type QueueEnvelope struct {
	PREvent     pr.PREvent `json:"pr_event"`
	Priority    int        `json:"priority"`
	PublishedAt time.Time  `json:"published_at"`
}

// DLQInfo is appended to a QueueEnvelope's JSON when a job is dead-lettered:
// the same JSON as the original plus a _dlq_info object.
type DLQInfo struct {
	OriginalMessageID   string    `json:"original_message_id"`
	Error               string    `json:"error"`
	OriginalSubscription string   `json:"original_subscription"`
	FailedAt            time.Time `json:"failed_at"`
}

// DLQEnvelope is the dead-letter stream's wire format.
type DLQEnvelope struct {
	QueueEnvelope
	DLQInfo DLQInfo `json:"_dlq_info"`
}

// Delivery is one message claimed off the broker: the decoded job plus
// enough broker-native bookkeeping (message id, delivery count) for the
// worker pool to Ack, retry, or dead-letter it.
type Delivery struct {
	ID              string
	Job             pr.Job
	DeliveryAttempt int
}

// Stats mirrors internal/tui's QueueStatusMsg shape exactly so the CLI's
// dashboard wiring can copy these fields across without translation.
type Stats struct {
	Depth     int
	InFlight  int
	DLQDepth  int
	Timestamp time.Time
}

func marshalEnvelope(job pr.Job) ([]byte, error) {
	env := QueueEnvelope{PREvent: job.Event, Priority: job.Priority, PublishedAt: job.ReceivedAt}
	return json.Marshal(env)
}

func unmarshalEnvelope(data []byte) (QueueEnvelope, error) {
	var env QueueEnvelope
	err := json.Unmarshal(data, &env)
	return env, err
}

func marshalDLQ(dlq DLQEnvelope) ([]byte, error) {
	return json.Marshal(dlq)
}
