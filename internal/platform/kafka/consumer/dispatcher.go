package consumer

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DeadLetterer parks a message that exhausted its retries.
type DeadLetterer interface {
	DeadLetter(ctx context.Context, msg *Message, cause error, attempts int) error
}

// RetryPolicy bounds redelivery of nacked messages.
type RetryPolicy struct {
	MaxAttempts int
	BackoffBase time.Duration
	BackoffMax  time.Duration
}

// Backoff is the delay before redelivering after the given attempt.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if p.BackoffBase <= 0 || attempt <= 0 {
		return 0
	}
	d := p.BackoffBase
	for i := 1; i < attempt; i++ {
		d *= 2
		if p.BackoffMax > 0 && d >= p.BackoffMax {
			return p.BackoffMax
		}
	}
	if p.BackoffMax > 0 && d > p.BackoffMax {
		return p.BackoffMax
	}
	return d
}

// PartitionOutcome is what the consumer must do after a partition batch.
// Indices refer to the batch passed to Dispatch; -1 means none.
type PartitionOutcome struct {
	// CommitThrough is the last message whose offset can be committed.
	CommitThrough int
	// RewindTo is the message the partition must be rewound to.
	RewindTo int
	// Backoff delays the next poll after a rewind.
	Backoff time.Duration
	// DeadLettered counts messages parked in this batch.
	DeadLettered int
}

// Dispatcher applies a handler to an ordered batch from one partition.
// Processing stops at the first message that must be redelivered, so later
// messages are never committed ahead of an earlier failure.
type Dispatcher struct {
	handler  Handler
	attempts AttemptTracker
	dlq      DeadLetterer
	policy   RetryPolicy
	metrics  *Metrics
	logger   *slog.Logger
}

// NewDispatcher wires a dispatcher. A nil dlq disables dead-lettering and
// retries forever.
func NewDispatcher(handler Handler, attempts AttemptTracker, dlq DeadLetterer, policy RetryPolicy, metrics *Metrics, logger *slog.Logger) *Dispatcher {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 5
	}
	return &Dispatcher{
		handler:  handler,
		attempts: attempts,
		dlq:      dlq,
		policy:   policy,
		metrics:  metrics,
		logger:   logger,
	}
}

// Dispatch handles the batch in order.
func (d *Dispatcher) Dispatch(ctx context.Context, batch []*Message) PartitionOutcome {
	out := PartitionOutcome{CommitThrough: -1, RewindTo: -1}
	for i, msg := range batch {
		if ctx.Err() != nil {
			out.RewindTo = i
			return out
		}

		res := d.invoke(ctx, msg)
		if res.Disposition == Acked {
			d.clear(ctx, msg)
			d.metrics.observe(msg.Topic, "acked")
			out.CommitThrough = i
			continue
		}

		attempt, err := d.attempts.Fail(ctx, msg)
		if err != nil {
			// Without a count the record can neither be parked nor bounded; retry.
			d.logger.ErrorContext(ctx, "failed to track delivery attempt",
				"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "error", err)
			attempt = 1
		}

		if d.dlq != nil && attempt >= d.policy.MaxAttempts {
			if err := d.dlq.DeadLetter(ctx, msg, res.Err, attempt); err != nil {
				d.logger.ErrorContext(ctx, "failed to dead-letter message",
					"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "error", err)
				d.metrics.observe(msg.Topic, "retried")
				out.RewindTo = i
				out.Backoff = d.policy.Backoff(attempt)
				return out
			}
			d.logger.WarnContext(ctx, "message dead-lettered",
				"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset,
				"attempts", attempt, "error", res.Err)
			d.clear(ctx, msg)
			d.metrics.observe(msg.Topic, "dead_lettered")
			out.DeadLettered++
			out.CommitThrough = i
			continue
		}

		d.logger.WarnContext(ctx, "message nacked, will redeliver",
			"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset,
			"attempt", attempt, "error", res.Err)
		d.metrics.observe(msg.Topic, "retried")
		out.RewindTo = i
		out.Backoff = d.policy.Backoff(attempt)
		return out
	}
	return out
}

func (d *Dispatcher) invoke(ctx context.Context, msg *Message) (res Result) {
	defer func() {
		if rec := recover(); rec != nil {
			res = Nack(fmt.Errorf("handler panic: %v", rec))
		}
	}()
	return d.handler.Handle(ctx, msg)
}

func (d *Dispatcher) clear(ctx context.Context, msg *Message) {
	if err := d.attempts.Clear(ctx, msg); err != nil {
		d.logger.WarnContext(ctx, "failed to clear delivery attempts",
			"topic", msg.Topic, "offset", msg.Offset, "error", err)
	}
}
