package library

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix     = "biblioflow:kv:"
	redisChannelPrefix = "biblioflow:changes:"
)

// RedisStorage shares local state between machines through Redis. Writes
// publish on a per-key channel that Watch subscribes to.
type RedisStorage struct {
	rdb *redis.Client
}

// NewRedisClient creates and pings a Redis client with optional password auth.
func NewRedisClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connect redis %s: %w", addr, err)
	}
	return rdb, nil
}

func NewRedisStorage(rdb *redis.Client) *RedisStorage {
	return &RedisStorage{rdb: rdb}
}

func (s *RedisStorage) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.rdb.Get(ctx, redisKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %q: %w", key, err)
	}
	return val, true, nil
}

func (s *RedisStorage) Set(ctx context.Context, key, value string) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, redisKeyPrefix+key, value, 0)
		pipe.Publish(ctx, redisChannelPrefix+key, "set")
		return nil
	})
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

func (s *RedisStorage) Delete(ctx context.Context, key string) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, redisKeyPrefix+key)
		pipe.Publish(ctx, redisChannelPrefix+key, "delete")
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

func (s *RedisStorage) Watch(ctx context.Context, key string) (<-chan struct{}, error) {
	sub := s.rdb.Subscribe(ctx, redisChannelPrefix+key)
	// Wait for the subscription confirmation so no publish is missed.
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("watch %q: %w", key, err)
	}

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-msgs:
				if !ok {
					return
				}
				notify(out)
			}
		}
	}()
	return out, nil
}

func (s *RedisStorage) Close() error { return s.rdb.Close() }
