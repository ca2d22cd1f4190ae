package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisStore persists the session as a JSON value under a single Redis key.
type RedisStore struct {
	client *redis.Client
	key    string
	cfg    *RedisConfig
	logger zerolog.Logger
}

// NewRedisStore creates a store backed by Redis. No connection is made
// until the first call.
func NewRedisStore(cfg *RedisConfig, logger zerolog.Logger) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &RedisStore{
		client: client,
		key:    cfg.Prefix + "session",
		cfg:    cfg,
		logger: logger.With().Str("component", "redis-store").Logger(),
	}
}

// Ping checks that Redis is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Load(ctx context.Context) (Session, bool, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, fmt.Errorf("load session: %w", err)
	}

	sess, err := decodeSession(data)
	if err != nil {
		// A corrupt slot is treated as logged out.
		s.logger.Warn().Err(err).Str("key", s.key).Msg("discarding unreadable session")
		return Session{}, false, nil
	}
	return sess, true, nil
}

func (s *RedisStore) Save(ctx context.Context, sess Session) error {
	data, err := encodeSession(sess)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key, data, s.cfg.TTL).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	s.logger.Debug().Str("identity", sess.Identity).Msg("session saved")
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Close releases the Redis connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
