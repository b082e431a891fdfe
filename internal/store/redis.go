package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/joelkehle/discovery-assessment/internal/assessment"
)

const (
	redisKeyPrefix  = "assessment:session:"
	DefaultRedisTTL = 72 * time.Hour
)

// RedisStore keeps each context as a JSON value that expires after ttl of
// inactivity.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(ctx context.Context, addr, password string, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return newRedisStore(client, ttl), nil
}

func newRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultRedisTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func redisKey(id string) string {
	return redisKeyPrefix + id
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Save(ctx context.Context, c assessment.Context) (string, error) {
	c = ensureID(c)
	body, err := encode(c)
	if err != nil {
		return "", err
	}
	if err := s.client.Set(ctx, redisKey(c.ID), body, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("save session %s: %w", c.ID, err)
	}
	return c.ID, nil
}

func (s *RedisStore) Load(ctx context.Context, id string) (assessment.Context, error) {
	b, err := s.client.Get(ctx, redisKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return assessment.Context{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return assessment.Context{}, fmt.Errorf("load session %s: %w", id, err)
	}
	// Reading a session keeps it alive.
	if err := s.client.Expire(ctx, redisKey(id), s.ttl).Err(); err != nil {
		return assessment.Context{}, fmt.Errorf("refresh session %s: %w", id, err)
	}
	return decode(b)
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	n, err := s.client.Del(ctx, redisKey(id)).Result()
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
