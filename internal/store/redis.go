package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcncl/jsonbrowse/internal/config"
	"github.com/mcncl/jsonbrowse/internal/errors"
)

// redisPrefix namespaces document keys in a shared database.
const redisPrefix = "jsonbrowse:doc:"

// Redis stores documents as plain string values.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects to the server in cfg and checks it answers.
func NewRedis(ctx context.Context, cfg config.RedisConfig, ttl time.Duration) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.NewStorageError(fmt.Sprintf("failed to reach redis at %s", cfg.Addr), err)
	}
	return NewRedisWithClient(client, ttl), nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := r.client.Get(ctx, redisPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.NewStorageError(fmt.Sprintf("failed to read document %q", key), err)
	}
	return data, true, nil
}

func (r *Redis) Put(ctx context.Context, key string, data []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	// A zero expiration keeps the value forever.
	if err := r.client.Set(ctx, redisPrefix+key, data, r.ttl).Err(); err != nil {
		return errors.NewStorageError(fmt.Sprintf("failed to write document %q", key), err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, redisPrefix+key).Err(); err != nil {
		return errors.NewStorageError(fmt.Sprintf("failed to delete document %q", key), err)
	}
	return nil
}

func (r *Redis) List(ctx context.Context) ([]string, error) {
	var keys []string
	iter := r.client.Scan(ctx, 0, redisPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), redisPrefix))
	}
	if err := iter.Err(); err != nil {
		return nil, errors.NewStorageError("failed to list documents", err)
	}
	sort.Strings(keys)
	return keys, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

var _ Store = (*Redis)(nil)
