package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Redis keys for the pending queue and its dead-letter list.
const (
	redisKey     = "message_queue"
	redisDeadKey = "message_queue:dead"
)

// Store persists the queue contents. The whole queue is saved as one document:
// queues here are small (hundreds of entries at most) and a single writer
// drains them.
type Store interface {
	Load(ctx context.Context) ([]Entry, error)
	Save(ctx context.Context, entries []Entry) error
	LoadDead(ctx context.Context) ([]Entry, error)
	SaveDead(ctx context.Context, entries []Entry) error
}

// RedisStore keeps queue state as JSON blobs.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed queue store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Load(ctx context.Context) ([]Entry, error) {
	return s.load(ctx, redisKey)
}

func (s *RedisStore) Save(ctx context.Context, entries []Entry) error {
	return s.save(ctx, redisKey, entries)
}

func (s *RedisStore) LoadDead(ctx context.Context) ([]Entry, error) {
	return s.load(ctx, redisDeadKey)
}

func (s *RedisStore) SaveDead(ctx context.Context, entries []Entry) error {
	return s.save(ctx, redisDeadKey, entries)
}

func (s *RedisStore) load(ctx context.Context, key string) ([]Entry, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return entries, nil
}

func (s *RedisStore) save(ctx context.Context, key string, entries []Entry) error {
	if len(entries) == 0 {
		if err := s.client.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("clear %s: %w", key, err)
		}
		return nil
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := s.client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// MemoryStore is an in-process Store for tests.
type MemoryStore struct {
	mu      sync.Mutex
	pending []Entry
	dead    []Entry
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) Load(ctx context.Context) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.pending...), nil
}

func (s *MemoryStore) Save(ctx context.Context, entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append([]Entry(nil), entries...)
	return nil
}

func (s *MemoryStore) LoadDead(ctx context.Context) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.dead...), nil
}

func (s *MemoryStore) SaveDead(ctx context.Context, entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dead = append([]Entry(nil), entries...)
	return nil
}
