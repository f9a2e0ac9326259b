package identity

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Store persists the resolved participant id per client context so reloads
// reuse the same identity.
type Store interface {
	Get(ctx context.Context, clientKey string) (string, error)
	Put(ctx context.Context, clientKey, userID string) error
}

// RedisStore keeps resolved ids in Redis without expiry; a study identity
// must survive the whole study window.
type RedisStore struct {
	client *redis.Client
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) key(clientKey string) string {
	return "quiz:user:" + clientKey
}

func (s *RedisStore) Get(ctx context.Context, clientKey string) (string, error) {
	val, err := s.client.Get(ctx, s.key(clientKey)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get stored id: %w", err)
	}
	return val, nil
}

func (s *RedisStore) Put(ctx context.Context, clientKey, userID string) error {
	return s.client.Set(ctx, s.key(clientKey), userID, 0).Err()
}

// MemoryStore is an in-memory Store for tests and offline runs.
type MemoryStore struct {
	mu  sync.RWMutex
	ids map[string]string
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{ids: make(map[string]string)}
}

func (s *MemoryStore) Get(_ context.Context, clientKey string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ids[clientKey], nil
}

func (s *MemoryStore) Put(_ context.Context, clientKey, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids[clientKey] = userID
	return nil
}
