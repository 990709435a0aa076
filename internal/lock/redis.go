package lock

import (
	"context"
	"log/slog"
	"time"

	"pulsecall/pkg/utils"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisLocker is a Locker shared across API instances.
//
// The lock TTL bounds how long a crashed holder can block a key; it must
// exceed the slowest webhook handling path. Acquisition spins with
// exponential backoff until Wait elapses.
type RedisLocker struct {
	Client *redis.Client
	Prefix string
	TTL    time.Duration
	Wait   time.Duration
	Log    *slog.Logger
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	ttl := l.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	full := l.Prefix + key
	token := uuid.NewString()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 25 * time.Millisecond
	bo.MaxInterval = 500 * time.Millisecond
	bo.MaxElapsedTime = l.Wait
	if bo.MaxElapsedTime <= 0 {
		bo.MaxElapsedTime = 10 * time.Second
	}

	op := func() error {
		ok, err := utils.TryLock(ctx, l.Client, full, token, ttl)
		if err != nil {
			return backoff.Permanent(err)
		}
		if !ok {
			return ErrNotAcquired
		}
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return nil, err
	}

	return func() {
		// Release must outlive a cancelled request context.
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		released, err := utils.Unlock(rctx, l.Client, full, token)
		if err != nil || !released {
			log := l.Log
			if log == nil {
				log = slog.Default()
			}
			log.Warn("redis lock release failed", "key", full, "released", released, "err", err)
		}
	}, nil
}
