package producer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"clubreg/internal/platform/kafka/consumer"
	"clubreg/pkg/events"

	"github.com/twmb/franz-go/pkg/kgo"
)

const (
	HeaderEventType = "x-event-type"
	HeaderError     = "x-error"
	HeaderAttempts  = "x-attempts"
	HeaderOrigin    = "x-origin"
)

// Producer publishes event envelopes keyed by aggregate so every event about
// one aggregate lands on the same partition in order.
type Producer struct {
	client *kgo.Client
	logger *slog.Logger
}

// New connects a synchronous producer.
func New(brokers []string, logger *slog.Logger) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.RecordPartitioner(kgo.StickyKeyPartitioner(nil)),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return &Producer{client: client, logger: logger}, nil
}

// Publish writes one envelope and waits for the broker ack.
func (p *Producer) Publish(ctx context.Context, topic string, env events.Envelope) error {
	value, err := env.Marshal()
	if err != nil {
		return err
	}
	return p.PublishRaw(ctx, topic, []byte(env.AggregateID), value, map[string]string{
		HeaderEventType: string(env.Type),
	})
}

// PublishRaw writes a pre-encoded record.
func (p *Producer) PublishRaw(ctx context.Context, topic string, key, value []byte, headers map[string]string) error {
	rec := &kgo.Record{Topic: topic, Key: key, Value: value}
	for k, v := range headers {
		rec.Headers = append(rec.Headers, kgo.RecordHeader{Key: k, Value: []byte(v)})
	}
	if err := p.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("produce to %s: %w", topic, err)
	}
	return nil
}

// DeadLetter parks a message on <topic>.dlq with its failure context.
func (p *Producer) DeadLetter(ctx context.Context, msg *consumer.Message, cause error, attempts int) error {
	headers := make(map[string]string, len(msg.Headers)+3)
	for k, v := range msg.Headers {
		headers[k] = v
	}
	if cause != nil {
		headers[HeaderError] = cause.Error()
	}
	headers[HeaderAttempts] = strconv.Itoa(attempts)
	headers[HeaderOrigin] = fmt.Sprintf("%s/%d/%d", msg.Topic, msg.Partition, msg.Offset)

	return p.PublishRaw(ctx, events.DeadLetterTopic(msg.Topic), msg.Key, msg.Value, headers)
}

// Ping checks broker connectivity.
func (p *Producer) Ping(ctx context.Context) error {
	return p.client.Ping(ctx)
}

// Close flushes pending records and disconnects.
func (p *Producer) Close() {
	p.client.Close()
}

// LogOnly stands in for a broker in development: it logs what would have
// been published and never fails.
type LogOnly struct {
	logger *slog.Logger
}

func NewLogOnly(logger *slog.Logger) *LogOnly {
	return &LogOnly{logger: logger}
}

func (l *LogOnly) Publish(ctx context.Context, topic string, env events.Envelope) error {
	l.logger.InfoContext(ctx, "event published (no broker configured)",
		"topic", topic,
		"event_type", env.Type,
		"aggregate_id", env.AggregateID,
		"event_id", env.ID,
	)
	return nil
}

func (l *LogOnly) PublishRaw(ctx context.Context, topic string, key, _ []byte, headers map[string]string) error {
	l.logger.InfoContext(ctx, "record published (no broker configured)",
		"topic", topic,
		"key", string(key),
		"event_type", headers[HeaderEventType],
	)
	return nil
}
