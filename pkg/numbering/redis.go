// pkg/numbering/redis.go

package numbering

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey holds the invoice sequence.
const DefaultRedisKey = "invoicer:invoice_seq"

// RedisCounter is an atomic counter backed by INCR. The key is seeded once from
// the last persisted invoice so an existing history keeps counting upward.
type RedisCounter struct {
	rdb    *redis.Client
	key    string
	source LastNumberSource
}

func NewRedisCounter(rdb *redis.Client, key string, src LastNumberSource) *RedisCounter {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisCounter{rdb: rdb, key: key, source: src}
}

func (c *RedisCounter) Next(ctx context.Context) (int64, error) {
	if err := c.seed(ctx); err != nil {
		return 0, err
	}
	n, err := c.rdb.Incr(ctx, c.key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis incr %s: %w", c.key, err)
	}
	return n, nil
}

func (c *RedisCounter) seed(ctx context.Context) error {
	exists, err := c.rdb.Exists(ctx, c.key).Result()
	if err != nil {
		return fmt.Errorf("redis exists %s: %w", c.key, err)
	}
	if exists == 1 || c.source == nil {
		return nil
	}
	number, err := c.source.LastInvoiceNumber(ctx)
	if err != nil {
		return fmt.Errorf("read last invoice number: %w", err)
	}
	// SETNX keeps a concurrent seeder from resetting a counter already in use.
	if err := c.rdb.SetNX(ctx, c.key, ParseSuffix(number), 0).Err(); err != nil {
		return fmt.Errorf("redis setnx %s: %w", c.key, err)
	}
	return nil
}
