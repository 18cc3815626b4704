package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisOpTimeout = 3 * time.Second

	// defaultSessionTTL is the idle lifetime of a session's keys. It stands
	// in for the browser closing the tab: every write refreshes it.
	defaultSessionTTL = 24 * time.Hour
)

// RedisStore is a redis-backed Store for one session. Keys are namespaced
// as sess:<id>:<key> and expire together after the session idle TTL.
type RedisStore struct {
	client    *redis.Client
	sessionID string
	ttl       time.Duration
}

// RedisFactory hands out redis-backed session stores sharing one client.
type RedisFactory struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisFactory creates a factory of redis session stores. A non-positive
// ttl falls back to the default session idle TTL.
func NewRedisFactory(client *redis.Client, ttl time.Duration) *RedisFactory {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &RedisFactory{client: client, ttl: ttl}
}

func (f *RedisFactory) For(sessionID string) Store {
	return &RedisStore{client: f.client, sessionID: sessionID, ttl: f.ttl}
}

func (s *RedisStore) key(key string) string {
	return fmt.Sprintf("sess:%s:%s", s.sessionID, key)
}

func (s *RedisStore) Put(key string, value []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := s.client.Set(ctx, s.key(key), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("session put %q: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Get(key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	v, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			// Fail open: an unreadable entry is a cache miss, never a crash.
			slog.Warn("session store read failed", "key", key, "error", err)
		}
		return nil, false
	}
	return v, true
}

func (s *RedisStore) Delete(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("session delete %q: %w", key, err)
	}
	return nil
}
