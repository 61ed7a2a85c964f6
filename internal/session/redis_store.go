package session

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps session state in Redis so sessions survive restarts and
// can be shared between server instances.
type RedisStore struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedisStore(client redis.Cmdable, prefix string, ttl time.Duration, logger *slog.Logger) *RedisStore {
	logger.Debug("Initializing redis session store", "prefix", prefix, "ttl", ttl)
	return &RedisStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		logger: logger,
	}
}

func (s *RedisStore) key(id string) string {
	return s.prefix + "session:" + id
}

func (s *RedisStore) Save(ctx context.Context, state State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal session state: %w", err)
	}

	if err := s.client.Set(ctx, s.key(state.ID), data, s.ttl).Err(); err != nil {
		s.logger.Error("Failed to save session state", "session_id", state.ID, "error", err)
		return fmt.Errorf("failed to save session state: %w", err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, id string) (State, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if stderrors.Is(err, redis.Nil) {
			return State{}, ErrStateNotFound
		}
		s.logger.Error("Failed to load session state", "session_id", id, "error", err)
		return State{}, fmt.Errorf("failed to load session state: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, fmt.Errorf("failed to decode session state: %w", err)
	}
	return state, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		s.logger.Error("Failed to delete session state", "session_id", id, "error", err)
		return fmt.Errorf("failed to delete session state: %w", err)
	}
	return nil
}
