package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// compare-and-delete so a holder never releases a lock it lost to expiry
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisClient interface {
	redis.Scripter
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// RedisLocker is a single-instance Redis lock (SET NX PX). The lease bounds
// how long a crashed holder can block others.
type RedisLocker struct {
	rdb     redisClient
	prefix  string
	lease   time.Duration
	retry   time.Duration
	maxWait time.Duration
}

type RedisOption func(*RedisLocker)

func WithLease(d time.Duration) RedisOption {
	return func(l *RedisLocker) { l.lease = d }
}

func WithMaxWait(d time.Duration) RedisOption {
	return func(l *RedisLocker) { l.maxWait = d }
}

func NewRedisLocker(rdb redisClient, prefix string, opts ...RedisOption) *RedisLocker {
	l := &RedisLocker{
		rdb:     rdb,
		prefix:  prefix,
		lease:   60 * time.Second,
		retry:   50 * time.Millisecond,
		maxWait: 45 * time.Second,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	k := l.prefix + key
	token := uuid.NewString()

	ctx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()

	for {
		ok, err := l.rdb.SetNX(ctx, k, token, l.lease).Result()
		if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
			return nil, err
		}
		if ok {
			return func() {
				releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_ = releaseScript.Run(releaseCtx, l.rdb, []string{k}, token).Err()
			}, nil
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil, errors.Join(ErrNotAcquired, ctx.Err())
		}
	}
}
