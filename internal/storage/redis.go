package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisKV keeps values as plain Redis strings.
type RedisKV struct {
	client *redis.Client
}

// NewRedisKV wraps an existing client
func NewRedisKV(client *redis.Client) *RedisKV {
	return &RedisKV{client: client}
}

// DialRedis connects to addr and verifies the connection with PING.
func DialRedis(ctx context.Context, addr string, db int) (*RedisKV, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	return NewRedisKV(client), nil
}

// Get returns the value stored under key.
func (r *RedisKV) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("redis_get_failed: %w", err)
	}
	return value, true, nil
}

// Set stores value under key without expiry.
func (r *RedisKV) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis_set_failed: %w", err)
	}
	return nil
}

// Delete removes key.
func (r *RedisKV) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis_del_failed: %w", err)
	}
	return nil
}

// Ping checks server connectivity.
func (r *RedisKV) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the client.
func (r *RedisKV) Close() error {
	return r.client.Close()
}
