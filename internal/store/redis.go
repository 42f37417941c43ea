package store

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis wraps redis client.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to redis with short timeouts. An empty addr yields a nil
// wrapper, which every method treats as "redis disabled".
func NewRedis(addr string) *Redis {
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	})
	return &Redis{Client: client}
}

// Healthy verifies redis connectivity.
func (r *Redis) Healthy(ctx context.Context) bool {
	if r == nil || r.Client == nil {
		return false
	}
	return r.Client.Ping(ctx).Err() == nil
}

// Raw returns the underlying client, or nil when redis is disabled.
func (r *Redis) Raw() *redis.Client {
	if r == nil {
		return nil
	}
	return r.Client
}

func (r *Redis) Close() error {
	if r == nil || r.Client == nil {
		return nil
	}
	return r.Client.Close()
}

// SummaryCache stores generated meeting summaries under a key prefix.
type SummaryCache struct {
	client *redis.Client
	prefix string
}

// NewSummaryCache returns nil when redis is disabled.
func NewSummaryCache(r *Redis) *SummaryCache {
	if r == nil || r.Client == nil {
		return nil
	}
	return &SummaryCache{client: r.Client, prefix: "club:summary:"}
}

// Get returns the cached summary and whether it was present. A nil cache
// always misses.
func (s *SummaryCache) Get(ctx context.Context, key string) (string, bool, error) {
	if s == nil {
		return "", false, nil
	}
	v, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *SummaryCache) Set(ctx context.Context, key, summary string, ttl time.Duration) error {
	if s == nil {
		return nil
	}
	return s.client.Set(ctx, s.prefix+key, summary, ttl).Err()
}
