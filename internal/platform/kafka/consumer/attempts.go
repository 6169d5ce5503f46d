package consumer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// AttemptTracker counts failed deliveries of a record across redeliveries.
type AttemptTracker interface {
	// Fail records a failed attempt and returns the total so far.
	Fail(ctx context.Context, msg *Message) (int, error)
	// Clear forgets the record once it is committed.
	Clear(ctx context.Context, msg *Message) error
}

func attemptKey(group string, msg *Message) string {
	return fmt.Sprintf("consumer:attempts:%s:%s:%d:%d", group, msg.Topic, msg.Partition, msg.Offset)
}

// MemoryAttempts is a process-local tracker. Counts reset on restart.
type MemoryAttempts struct {
	mu     sync.Mutex
	group  string
	counts map[string]int
}

func NewMemoryAttempts(group string) *MemoryAttempts {
	return &MemoryAttempts{group: group, counts: make(map[string]int)}
}

func (m *MemoryAttempts) Fail(_ context.Context, msg *Message) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := attemptKey(m.group, msg)
	m.counts[key]++
	return m.counts[key], nil
}

func (m *MemoryAttempts) Clear(_ context.Context, msg *Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.counts, attemptKey(m.group, msg))
	return nil
}

// RedisAttempts shares counts across consumer instances of one group, so a
// record that keeps failing after a rebalance is still dead-lettered.
type RedisAttempts struct {
	client redis.UniversalClient
	group  string
	ttl    time.Duration
}

func NewRedisAttempts(client redis.UniversalClient, group string, ttl time.Duration) *RedisAttempts {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisAttempts{client: client, group: group, ttl: ttl}
}

func (r *RedisAttempts) Fail(ctx context.Context, msg *Message) (int, error) {
	key := attemptKey(r.group, msg)
	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("track attempt: %w", err)
	}
	return int(incr.Val()), nil
}

func (r *RedisAttempts) Clear(ctx context.Context, msg *Message) error {
	if err := r.client.Del(ctx, attemptKey(r.group, msg)).Err(); err != nil {
		return fmt.Errorf("clear attempts: %w", err)
	}
	return nil
}
