package locking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/vsinha/mes/pkg/config"
	"github.com/vsinha/mes/pkg/domain/errs"
)

const retryInterval = 100 * time.Millisecond

// RedisLocker hands out locks shared by every process using the same Redis
type RedisLocker struct {
	client *redislock.Client
	logger logrus.FieldLogger
}

// Connect opens a Redis client and checks it answers
func Connect(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: "",
		DB:       0,
		PoolSize: 20,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Address, err)
	}
	return rdb, nil
}

func NewRedisLocker(rdb *redis.Client, logger logrus.FieldLogger) *RedisLocker {
	return &RedisLocker{client: redislock.New(rdb), logger: logger}
}

// Obtain retries every 100ms until ctx ends
func (l *RedisLocker) Obtain(ctx context.Context, key string, ttl time.Duration) (Lock, error) {
	lock, err := l.client.Obtain(ctx, key, ttl, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(retryInterval),
	})
	if errors.Is(err, redislock.ErrNotObtained) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		l.logger.WithFields(logrus.Fields{"module": "locking", "key": key}).Warn("could not obtain redis lock")
		return nil, errs.Conflict("ObtainLock", "lock %s is held by another worker", key)
	}
	if err != nil {
		config.LogError(l.logger, "locking", "Obtain", key, err)
		return nil, errs.Wrap("ObtainLock", err)
	}
	return lock, nil
}
