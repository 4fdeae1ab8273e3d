package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"schedule-monitor/internal/domain/repository"
	"schedule-monitor/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	lockKeyPrefix     = "schedule-monitor:lock:"
	lockRetryInterval = 100 * time.Millisecond
)

// releaseScript deletes the lock only while it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisDateLocker serializes schedule updates across processes sharing one store
type RedisDateLocker struct {
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

// NewRedisClient creates a client and checks the connection
func NewRedisClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return client, nil
}

// NewRedisDateLocker creates a lease based date locker. A lease expires after
// ttl so a crashed holder cannot block a date forever.
func NewRedisDateLocker(client *redis.Client, ttl time.Duration, logger logger.Logger) repository.DateLocker {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &RedisDateLocker{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// Lock polls until the lease for date is acquired or ctx is done
func (l *RedisDateLocker) Lock(ctx context.Context, date string) (func(), error) {
	key := lockKeyPrefix + date
	token := uuid.NewString()

	ticker := time.NewTicker(lockRetryInterval)
	defer ticker.Stop()

	for {
		acquired, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if acquired {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		err := releaseScript.Run(ctx, l.client, []string{key}, token).Err()
		if err != nil && !errors.Is(err, redis.Nil) {
			l.logger.Warn("Failed to release lock", "key", key, "error", err)
		}
	}, nil
}
