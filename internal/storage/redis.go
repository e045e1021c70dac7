package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	rdb "github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "login-front:attempt:"

// RedisStore keeps attempts in Redis so every replica can complete a login
// started on another one. Redis expires keys itself.
type RedisStore struct {
	client *rdb.Client
	now    func() time.Time
}

var _ AttemptStore = (*RedisStore)(nil)

// NewRedisStore connects to Redis and checks the connection
func NewRedisStore(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	client := rdb.NewClient(&rdb.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}

	return &RedisStore{client: client, now: time.Now}, nil
}

func redisKey(id string) string {
	return redisKeyPrefix + id
}

func (s *RedisStore) Put(ctx context.Context, attempt Attempt) error {
	ttl := ttlUntil(attempt.ExpiresAt, s.now())
	if !attempt.ExpiresAt.IsZero() && ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(attempt)
	if err != nil {
		return fmt.Errorf("marshaling attempt: %w", err)
	}

	ok, err := s.client.SetNX(ctx, redisKey(attempt.ID), data, ttl).Result()
	if err != nil {
		return fmt.Errorf("storing attempt: %w", err)
	}
	if !ok {
		return ErrAttemptExists
	}
	return nil
}

// Take uses GETDEL so only one caller sees the attempt
func (s *RedisStore) Take(ctx context.Context, id string) (Attempt, error) {
	data, err := s.client.GetDel(ctx, redisKey(id)).Bytes()
	if errors.Is(err, rdb.Nil) {
		return Attempt{}, ErrAttemptNotFound
	}
	if err != nil {
		return Attempt{}, fmt.Errorf("taking attempt: %w", err)
	}

	var attempt Attempt
	if err := json.Unmarshal(data, &attempt); err != nil {
		return Attempt{}, fmt.Errorf("unmarshaling attempt: %w", err)
	}
	if attempt.Expired(s.now()) {
		return Attempt{}, ErrAttemptNotFound
	}
	return attempt, nil
}

// CleanupExpired is a no-op, keys carry their own TTL
func (s *RedisStore) CleanupExpired(context.Context) (int, error) {
	return 0, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
