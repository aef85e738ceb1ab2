package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// MinTTL is the shortest lease NewRedis accepts. Leases are not renewed, so
// a create request must finish inside one; handlers bound Create by it.
const MinTTL = 10 * time.Second

// ErrNotAcquired is returned when a Redis lock could not be taken before
// the wait deadline.
var ErrNotAcquired = errors.New("lock not acquired")

// releaseScript deletes the key only if it still holds our token, so a
// lock that expired and was re-taken by someone else is left alone.
var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// RedisConfig tunes the distributed lock.
type RedisConfig struct {
	Prefix string        // key namespace, e.g. "lock:booking"
	TTL    time.Duration // lease; bounds how long a crashed holder blocks others, at least MinTTL
	Wait   time.Duration // how long Lock keeps retrying before ErrNotAcquired
	Retry  time.Duration // pause between attempts
}

// Redis is a lease based lock shared by every instance talking to the same
// Redis server.
type Redis struct {
	rdb *redis.Client
	cfg RedisConfig
	log zerolog.Logger
}

// NewRedis builds a Redis lock, filling unset durations with defaults and
// raising a TTL below MinTTL to MinTTL.
func NewRedis(rdb *redis.Client, cfg RedisConfig, log zerolog.Logger) *Redis {
	if cfg.Prefix == "" {
		cfg.Prefix = "lock:booking"
	}
	if cfg.TTL < MinTTL {
		cfg.TTL = MinTTL
	}
	if cfg.Wait <= 0 {
		cfg.Wait = 5 * time.Second
	}
	if cfg.Retry <= 0 {
		cfg.Retry = 25 * time.Millisecond
	}
	return &Redis{rdb: rdb, cfg: cfg, log: log.With().Str("component", "lock").Logger()}
}

// Lock takes every key with SET NX PX, in sorted order. On failure the keys
// already taken are released.
func (r *Redis) Lock(ctx context.Context, keys ...string) (func(), error) {
	keys = normalize(keys)
	token := uuid.NewString()

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Wait)
	defer cancel()

	held := make([]string, 0, len(keys))
	for _, k := range keys {
		key := r.cfg.Prefix + ":" + k
		if err := r.acquire(ctx, key, token); err != nil {
			r.release(held, token)
			return nil, err
		}
		held = append(held, key)
	}
	return func() { r.release(held, token) }, nil
}

func (r *Redis) acquire(ctx context.Context, key, token string) error {
	for {
		ok, err := r.rdb.SetNX(ctx, key, token, r.cfg.TTL).Result()
		if err != nil {
			if ctx.Err() != nil {
				return ErrNotAcquired
			}
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ErrNotAcquired
		case <-time.After(r.cfg.Retry):
		}
	}
}

func (r *Redis) release(keys []string, token string) {
	// The caller's context may already be cancelled; releasing must still
	// happen.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for i := len(keys) - 1; i >= 0; i-- {
		if err := releaseScript.Run(ctx, r.rdb, []string{keys[i]}, token).Err(); err != nil {
			// The lease still expires on its own after TTL.
			r.log.Warn().Err(err).Str("key", keys[i]).Msg("lock release failed")
		}
	}
}
