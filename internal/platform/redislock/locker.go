// Package redislock implements store.KeyLocker on Redis so that reviews of the
// same card are serialized across server processes.
package redislock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-fsrs/internal/store"
	goredis "github.com/redis/go-redis/v9"
)

// ErrLockLost is returned on release when the lock expired and may have been
// taken by another holder.
var ErrLockLost = errors.New("lock expired before release")

// releaseScript deletes the key only while it still holds the caller's token.
var releaseScript = goredis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Options tunes a Locker. Zero fields take the defaults below.
type Options struct {
	// Prefix is prepended to every lock key.
	Prefix string
	// TTL bounds how long a crashed holder can block a key.
	TTL time.Duration
	// RetryInterval is the wait between acquisition attempts.
	RetryInterval time.Duration
}

const (
	defaultPrefix        = "scry:lock:"
	defaultTTL           = 10 * time.Second
	defaultRetryInterval = 25 * time.Millisecond
)

// Locker is a store.KeyLocker backed by Redis SET NX PX.
type Locker struct {
	client goredis.UniversalClient
	opts   Options
	logger *slog.Logger
}

var _ store.KeyLocker = (*Locker)(nil)

// New creates a Locker on client.
func New(client goredis.UniversalClient, opts Options, logger *slog.Logger) *Locker {
	if client == nil {
		panic("redis client cannot be nil")
	}
	if opts.Prefix == "" {
		opts.Prefix = defaultPrefix
	}
	if opts.TTL <= 0 {
		opts.TTL = defaultTTL
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = defaultRetryInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Locker{
		client: client,
		opts:   opts,
		logger: logger.With(slog.String("component", "redis_locker")),
	}
}

// Lock implements store.KeyLocker.Lock
func (l *Locker) Lock(ctx context.Context, key string) (store.UnlockFunc, error) {
	// The token identifies this holder to the release script.
	token := uuid.NewString()
	redisKey := l.opts.Prefix + key

	ticker := time.NewTicker(l.opts.RetryInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.opts.TTL).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %s: %w", store.ErrLockNotAcquired, key, ctx.Err())
			}
			return nil, fmt.Errorf("redis lock %s: %w", key, err)
		}
		if ok {
			return l.unlockFunc(redisKey, token), nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %w", store.ErrLockNotAcquired, key, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (l *Locker) unlockFunc(redisKey, token string) store.UnlockFunc {
	var (
		once   sync.Once
		result error
	)
	return func(ctx context.Context) error {
		once.Do(func() {
			released, err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Int64()
			switch {
			case err != nil:
				result = fmt.Errorf("redis unlock %s: %w", redisKey, err)
			case released == 0:
				l.logger.Warn("lock expired before release", slog.String("key", redisKey))
				result = fmt.Errorf("%w: %s", ErrLockLost, redisKey)
			}
		})
		return result
	}
}

// NewClient connects to the Redis server at addr and verifies it with a ping.
func NewClient(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
