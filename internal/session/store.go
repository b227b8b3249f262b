// Package session records revoked session ids so signed-out tokens stop
// working before they expire.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "session:revoked:"

// Store is implemented by RedisStore and NoopStore.
type Store interface {
	Revoke(ctx context.Context, sessionID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, sessionID string) (bool, error)
}

type RedisStore struct {
	rdb    *redis.Client
	logger *zap.Logger
}

func NewRedisStore(rdb *redis.Client, logger *zap.Logger) *RedisStore {
	return &RedisStore{rdb: rdb, logger: logger}
}

// Revoke marks sessionID revoked until ttl elapses. A non-positive ttl means
// the token has already expired and nothing is stored.
func (s *RedisStore) Revoke(ctx context.Context, sessionID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := s.rdb.Set(ctx, keyPrefix+sessionID, 1, ttl).Err(); err != nil {
		s.logger.Error("Failed to revoke session", zap.String("session_id", sessionID), zap.Error(err))
		return err
	}
	return nil
}

func (s *RedisStore) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	err := s.rdb.Get(ctx, keyPrefix+sessionID).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// NoopStore is used when Redis is not configured: sign-out succeeds but
// tokens stay valid until they expire.
type NoopStore struct{}

func (NoopStore) Revoke(ctx context.Context, sessionID string, ttl time.Duration) error {
	return nil
}

func (NoopStore) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	return false, nil
}
