package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"abo/internal/logger"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	// DefaultTTL bounds how long a crashed holder blocks a key.
	DefaultTTL = 30 * time.Second

	// DefaultPollInterval is the wait between acquisition attempts.
	DefaultPollInterval = 50 * time.Millisecond

	keyPrefix = "abo:lock:"
)

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker holds per-key locks in Redis, shared by all processes using
// the same server.
type RedisLocker struct {
	client       *redis.Client
	ttl          time.Duration
	pollInterval time.Duration
	log          zerolog.Logger
}

// NewRedisLocker connects to the Redis server at url (redis://...).
func NewRedisLocker(ctx context.Context, url string) (*RedisLocker, error) {
	const op = "NewRedisLocker"

	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse Redis URL: %w", op, err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%s: failed to connect to Redis: %w", op, err)
	}

	l := NewRedisLockerWithClient(client)
	l.log.Info().Str("addr", opt.Addr).Msg("Connected to Redis")
	return l, nil
}

// NewRedisLockerWithClient wraps an existing client.
func NewRedisLockerWithClient(client *redis.Client) *RedisLocker {
	return &RedisLocker{
		client:       client,
		ttl:          DefaultTTL,
		pollInterval: DefaultPollInterval,
		log:          logger.WithComponent("redis-lock"),
	}
}

// Lock polls until key is acquired or ctx is done.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	const op = "Lock"

	redisKey := keyPrefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("%s: %s: %w", op, key, err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%s: %s: %w", op, key, ctx.Err())
		case <-ticker.C:
		}
	}

	l.log.Debug().Str("key", key).Msg("Lock acquired")

	return func() {
		// The caller's ctx may already be canceled; release regardless.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		err := releaseScript.Run(releaseCtx, l.client, []string{redisKey}, token).Err()
		if err != nil && !errors.Is(err, redis.Nil) {
			l.log.Warn().Err(err).Str("key", key).Msg("Failed to release lock")
			return
		}
		l.log.Debug().Str("key", key).Msg("Lock released")
	}, nil
}

// Close closes the Redis connection.
func (l *RedisLocker) Close() error {
	return l.client.Close()
}
