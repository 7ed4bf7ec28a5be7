// Package persist mirrors the store's state to durable storage. The
// caller invokes Save and Load at UI-lifecycle boundaries; the core
// never persists on its own.
package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/opendoor-ai/chatcore/internal/cache/redis"
	"github.com/opendoor-ai/chatcore/internal/store"
)

const defaultKey = "chatcore:state"

// RedisStore persists store snapshots as a JSON blob in Redis.
type RedisStore struct {
	redis *redis.Client
	key   string
}

// NewRedisStore creates a RedisStore. An empty key uses the default.
func NewRedisStore(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = defaultKey
	}
	return &RedisStore{redis: client, key: key}
}

// Save writes the snapshot, replacing any previous one.
func (s *RedisStore) Save(ctx context.Context, state store.State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if err := s.redis.Set(ctx, s.key, string(data), 0); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return nil
}

// Load returns the persisted snapshot. The second return value is false
// when nothing has been saved yet.
func (s *RedisStore) Load(ctx context.Context) (store.State, bool, error) {
	data, err := s.redis.Get(ctx, s.key)
	if err != nil {
		if errors.Is(err, redis.ErrMiss) {
			return store.State{}, false, nil
		}
		return store.State{}, false, fmt.Errorf("read state: %w", err)
	}

	var state store.State
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return store.State{}, false, fmt.Errorf("unmarshal state: %w", err)
	}
	return state, true, nil
}

// Clear removes the persisted snapshot.
func (s *RedisStore) Clear(ctx context.Context) error {
	return s.redis.Delete(ctx, s.key)
}
