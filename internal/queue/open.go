package queue

import (
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendNATS   = "nats"
)

// Open builds the queue for backend. The returned close func releases the
// backend connection, if any.
func Open(backend string, rdb *redis.Client, natsURL string, log *zap.Logger) (Queue, func(), error) {
	switch backend {
	case BackendMemory, "":
		return NewInMemory(256), func() {}, nil
	case BackendRedis:
		if rdb == nil {
			return nil, nil, errors.New("redis queue requires REDIS_ADDR")
		}
		return NewRedisQueue(rdb, ""), func() {}, nil
	case BackendNATS:
		q, err := DialNATS(natsURL, "", log)
		if err != nil {
			return nil, nil, fmt.Errorf("connect nats: %w", err)
		}
		return q, q.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown queue backend %q", backend)
}
