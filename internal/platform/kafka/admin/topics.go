package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"clubreg/pkg/events"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// EnsureTopics creates each topic and its dead-letter topic if missing.
func EnsureTopics(ctx context.Context, brokers []string, partitions int32, replicationFactor int16, logger *slog.Logger, topics ...string) error {
	cl, err := kgo.NewClient(kgo.SeedBrokers(brokers...))
	if err != nil {
		return fmt.Errorf("create admin client: %w", err)
	}
	defer cl.Close()

	all := make([]string, 0, len(topics)*2)
	for _, t := range topics {
		all = append(all, t, events.DeadLetterTopic(t))
	}

	resp, err := kadm.NewClient(cl).CreateTopics(ctx, partitions, replicationFactor, nil, all...)
	if err != nil {
		return fmt.Errorf("create topics: %w", err)
	}
	for _, r := range resp.Sorted() {
		if r.Err != nil && !errors.Is(r.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", r.Topic, r.Err)
		}
		if r.Err == nil {
			logger.InfoContext(ctx, "topic created", "topic", r.Topic, "partitions", partitions)
		}
	}
	return nil
}
