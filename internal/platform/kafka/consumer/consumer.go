package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Config configures a group consumer.
type Config struct {
	Brokers []string
	Group   string
	Topics  []string
	// Workers bounds how many partitions are processed concurrently.
	Workers int
}

// Consumer polls a consumer group and commits offsets only after the handler
// acks. Partitions are processed in parallel; records within a partition are
// processed in order.
type Consumer struct {
	client     *kgo.Client
	dispatcher *Dispatcher
	pool       *ants.Pool
	logger     *slog.Logger
}

// New connects a group consumer. The dispatcher decides commit and rewind.
func New(cfg Config, dispatcher *Dispatcher, logger *slog.Logger) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if cfg.Group == "" {
		return nil, errors.New("consumer group is required")
	}
	if dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.Group),
		kgo.ConsumeTopics(cfg.Topics...),
		kgo.DisableAutoCommit(),
		kgo.BlockRebalanceOnPoll(),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer: %w", err)
	}

	pool, err := ants.NewPool(cfg.Workers)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("create worker pool: %w", err)
	}

	return &Consumer{
		client:     client,
		dispatcher: dispatcher,
		pool:       pool,
		logger:     logger,
	}, nil
}

// Run polls until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			c.client.AllowRebalance()
			return nil
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			c.logger.ErrorContext(ctx, "fetch error",
				"topic", topic, "partition", partition, "error", err)
		})

		backoff := c.processFetches(ctx, fetches)
		c.client.AllowRebalance()

		if backoff > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
		}
	}
}

func (c *Consumer) processFetches(ctx context.Context, fetches kgo.Fetches) time.Duration {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		commits  []*kgo.Record
		rewinds  = make(map[string]map[int32]kgo.EpochOffset)
		maxDelay time.Duration
	)

	fetches.EachPartition(func(p kgo.FetchTopicPartition) {
		if len(p.Records) == 0 {
			return
		}
		records := p.Records
		work := func() {
			defer wg.Done()
			out := c.dispatcher.Dispatch(ctx, toMessages(records))

			mu.Lock()
			defer mu.Unlock()
			if out.CommitThrough >= 0 {
				commits = append(commits, records[out.CommitThrough])
			}
			if out.RewindTo >= 0 {
				rec := records[out.RewindTo]
				if rewinds[rec.Topic] == nil {
					rewinds[rec.Topic] = make(map[int32]kgo.EpochOffset)
				}
				rewinds[rec.Topic][rec.Partition] = kgo.EpochOffset{Epoch: rec.LeaderEpoch, Offset: rec.Offset}
			}
			if out.Backoff > maxDelay {
				maxDelay = out.Backoff
			}
		}

		wg.Add(1)
		if err := c.pool.Submit(work); err != nil {
			c.logger.WarnContext(ctx, "worker pool rejected partition, processing inline",
				"topic", p.Topic, "partition", p.Partition, "error", err)
			work()
		}
	})
	wg.Wait()

	if len(commits) > 0 {
		if err := c.client.CommitRecords(context.WithoutCancel(ctx), commits...); err != nil {
			c.logger.ErrorContext(ctx, "offset commit failed", "error", err)
		}
	}
	if len(rewinds) > 0 {
		c.client.SetOffsets(rewinds)
	}
	return maxDelay
}

// Close releases the worker pool and leaves the group.
func (c *Consumer) Close() {
	c.pool.Release()
	c.client.Close()
}

func toMessages(records []*kgo.Record) []*Message {
	out := make([]*Message, len(records))
	for i, rec := range records {
		var headers map[string]string
		if len(rec.Headers) > 0 {
			headers = make(map[string]string, len(rec.Headers))
			for _, h := range rec.Headers {
				headers[h.Key] = string(h.Value)
			}
		}
		out[i] = &Message{
			Topic:       rec.Topic,
			Partition:   rec.Partition,
			Offset:      rec.Offset,
			LeaderEpoch: rec.LeaderEpoch,
			Key:         rec.Key,
			Value:       rec.Value,
			Headers:     headers,
			Timestamp:   rec.Timestamp,
		}
	}
	return out
}
