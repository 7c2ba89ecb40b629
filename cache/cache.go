// Package cache is a read-through cache for single documents looked up by id.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Cache interface {
	// Get decodes the cached value for key into dst and reports whether it was present.
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, val any) error
	Delete(ctx context.Context, keys ...string) error
}

func UserKey(id primitive.ObjectID) string {
	return "user:" + id.Hex()
}

func EventKey(id primitive.ObjectID) string {
	return "event:" + id.Hex()
}

// Redis stores JSON-encoded values with a fixed TTL.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects to addr and pings it.
func NewRedis(ctx context.Context, addr string, db int, ttl time.Duration) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "ping redis %s", addr)
	}
	return &Redis{client: client, ttl: ttl}, nil
}

func (r *Redis) Get(ctx context.Context, key string, dst any) (bool, error) {
	payload, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "get %s", key)
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		return false, errors.Wrapf(err, "decode %s", key)
	}
	return true, nil
}

func (r *Redis) Set(ctx context.Context, key string, val any) error {
	payload, err := json.Marshal(val)
	if err != nil {
		return errors.Wrapf(err, "encode %s", key)
	}
	if err := r.client.Set(ctx, key, payload, r.ttl).Err(); err != nil {
		return errors.Wrapf(err, "set %s", key)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return errors.Wrap(err, "delete keys")
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

// Nop is used when no Redis address is configured.
type Nop struct{}

func (Nop) Get(context.Context, string, any) (bool, error) { return false, nil }
func (Nop) Set(context.Context, string, any) error         { return nil }
func (Nop) Delete(context.Context, ...string) error        { return nil }
