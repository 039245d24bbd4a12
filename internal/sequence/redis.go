package sequence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "seq:"

var observeScript = redis.NewScript(`
local cur = tonumber(redis.call('GET', KEYS[1]) or '0')
local n = tonumber(ARGV[1])
if n > cur then
  redis.call('SET', KEYS[1], n)
  return n
end
return cur
`)

// RedisCounter stores one integer key per prefix and relies on INCR for atomicity.
type RedisCounter struct {
	client redis.UniversalClient
}

func NewRedisCounter(client redis.UniversalClient) *RedisCounter {
	return &RedisCounter{client: client}
}

// DialRedis parses a redis:// URL and verifies the server answers.
func DialRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("sequence: parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("sequence: ping: %w", err)
	}
	return client, nil
}

func (c *RedisCounter) Increment(ctx context.Context, prefix string) (int64, error) {
	return c.client.Incr(ctx, redisKeyPrefix+prefix).Result()
}

func (c *RedisCounter) Peek(ctx context.Context, prefix string) (int64, error) {
	n, err := c.client.Get(ctx, redisKeyPrefix+prefix).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

func (c *RedisCounter) Observe(ctx context.Context, prefix string, n int64) error {
	return observeScript.Run(ctx, c.client, []string{redisKeyPrefix + prefix}, n).Err()
}

// Ready pings the server.
func (c *RedisCounter) Ready(ctx context.Context) error { return c.client.Ping(ctx).Err() }
