package redisad

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"school_reviews/internal/adapters/observability"
)

// KV keeps each review collection under its own redis string key, with no expiry.
type KV struct {
	c      redis.UniversalClient
	prefix string
}

func New(addr, pass string, db int) *KV {
	return NewWithClient(redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db}), "")
}

// NewWithClient wraps an existing client; prefix is prepended to every key.
func NewWithClient(c redis.UniversalClient, prefix string) *KV {
	return &KV{c: c, prefix: prefix}
}

func (r *KV) Ping(ctx context.Context) error { return r.c.Ping(ctx).Err() }

func (r *KV) Close() error { return r.c.Close() }

func (r *KV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := r.c.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		observability.ObserveKV("redis", "miss")
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	observability.ObserveKV("redis", "hit")
	return v, true, nil
}

func (r *KV) Set(ctx context.Context, key string, value []byte) error {
	observability.ObserveKV("redis", "set")
	return r.c.Set(ctx, r.prefix+key, value, 0).Err()
}

func (r *KV) Del(ctx context.Context, key string) error {
	observability.ObserveKV("redis", "del")
	return r.c.Del(ctx, r.prefix+key).Err()
}
