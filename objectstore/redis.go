package objectstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions configures the redis backend.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// redisClient is the subset of the redis client used by the store.
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// NewRedis creates a store that keeps each object under the redis key "<bucket>/<key>".
func NewRedis(opts RedisOptions) Store {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return &redisStore{client: client}
}

type redisStore struct {
	client redisClient
}

func (s *redisStore) Get(ctx context.Context, bucket string, key string) (data []byte, err error) {
	data, err = s.client.Get(ctx, redisKey(bucket, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		data = nil
		err = fmt.Errorf("redis %s: %w", redisKey(bucket, key), ErrNotFound)
		return
	}
	if err != nil {
		err = fmt.Errorf("failed to get redis %s: %w", redisKey(bucket, key), err)
	}
	return
}

func (s *redisStore) Put(ctx context.Context, bucket string, key string, data []byte) (err error) {
	if err = s.client.Set(ctx, redisKey(bucket, key), data, 0).Err(); err != nil {
		err = fmt.Errorf("failed to set redis %s: %w", redisKey(bucket, key), err)
	}
	return
}

func redisKey(bucket string, key string) string {
	return bucket + "/" + key
}
