package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"unheard/internal/observability"

	"github.com/redis/go-redis/v9"
)

// Store is a JSON cache over Redis. A Store with a nil client caches
// nothing: reads miss and writes succeed.
type Store struct {
	rdb *redis.Client
}

// NewStore wraps rdb, which may be nil.
func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// Enabled reports whether a Redis client is attached.
func (s *Store) Enabled() bool {
	return s != nil && s.rdb != nil
}

// GetJSON attempts to get the key from Redis and unmarshal into dest.
// Returns (true, nil) if found and unmarshaled, (false, nil) if not found.
func (s *Store) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	ctx, span := observability.TraceRedisOperation(ctx, "get")
	defer span.End()

	b, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(b, dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON marshals v and sets the key with TTL.
func (s *Store) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	ctx, span := observability.TraceRedisOperation(ctx, "set")
	defer span.End()

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, key, b, ttl).Err()
}

// Aside tries Redis first, on miss it calls fetch (which must populate dest),
// then stores the result with ttl. Cache failures fall through to fetch and
// are only logged.
func (s *Store) Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	found, err := s.GetJSON(ctx, key, dest)
	if err != nil {
		observability.GlobalLogger.WarnContext(ctx, "cache read failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	if found {
		return nil
	}

	if err := fetch(); err != nil {
		return err
	}

	if err := s.SetJSON(ctx, key, dest, ttl); err != nil {
		observability.GlobalLogger.WarnContext(ctx, "cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	return nil
}

// Invalidate deletes keys, best-effort.
func (s *Store) Invalidate(ctx context.Context, keys ...string) {
	if !s.Enabled() || len(keys) == 0 {
		return
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		observability.GlobalLogger.WarnContext(ctx, "cache invalidate failed", slog.Any("keys", keys), slog.String("error", err.Error()))
	}
}
