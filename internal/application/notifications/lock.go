package notifications

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RunLock is the advisory mutual-exclusion lock around engine runs.
// Acquisition is check-then-skip: a held lock means "another run is in
// progress, do nothing", never "wait".
type RunLock interface {
	// TryAcquire returns ok=false when the lock is held elsewhere. On
	// success the release func must be called, even if the run fails.
	TryAcquire(ctx context.Context) (ok bool, release func(), err error)
}

const (
	lockKey = "wkd:notif:cron:lock"
	lockTTL = 5 * time.Minute
)

// RedisRunLock implements RunLock with SET NX and a TTL. The TTL is the
// dead-man's switch: a crashed run frees the lock after five minutes.
type RedisRunLock struct {
	Rdb *redis.Client
	Key string
	TTL time.Duration
}

func (l *RedisRunLock) key() string {
	if l.Key != "" {
		return l.Key
	}
	return lockKey
}

func (l *RedisRunLock) ttl() time.Duration {
	if l.TTL > 0 {
		return l.TTL
	}
	return lockTTL
}

func (l *RedisRunLock) TryAcquire(ctx context.Context) (bool, func(), error) {
	ok, err := l.Rdb.SetNX(ctx, l.key(), 1, l.ttl()).Result()
	if err != nil {
		return false, nil, err
	}
	if !ok {
		return false, nil, nil
	}
	release := func() {
		l.Rdb.Del(context.Background(), l.key())
	}
	return true, release, nil
}
