package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisKey is where the counters persist across restarts.
const redisKey = "message_stats"

// Snapshot is the send-volume counters at a point in time.
type Snapshot struct {
	DailyCount int       `json:"daily_count"`
	TotalCount int       `json:"total_count"`
	LastReset  time.Time `json:"last_reset"`
}

// Store persists counter snapshots.
type Store interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
}

// RedisStore keeps the snapshot as a JSON blob under a fixed key.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed snapshot store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Load returns the persisted snapshot, or nil when none exists yet.
func (s *RedisStore) Load(ctx context.Context) (*Snapshot, error) {
	data, err := s.client.Get(ctx, redisKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load message stats: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal message stats: %w", err)
	}
	return &snap, nil
}

func (s *RedisStore) Save(ctx context.Context, snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal message stats: %w", err)
	}
	if err := s.client.Set(ctx, redisKey, data, 0).Err(); err != nil {
		return fmt.Errorf("save message stats: %w", err)
	}
	return nil
}

// MemoryStore is an in-process Store for tests and single-node setups.
type MemoryStore struct {
	mu   sync.Mutex
	snap *Snapshot
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) Load(ctx context.Context) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap == nil {
		return nil, nil
	}
	cp := *s.snap
	return &cp, nil
}

func (s *MemoryStore) Save(ctx context.Context, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = &snap
	return nil
}

// Tracker counts outbound messages against a daily soft limit. The daily
// counter resets lazily on the first operation after local midnight; the total
// counter survives resets. Safe for concurrent use.
type Tracker struct {
	mu        sync.Mutex
	store     Store
	snap      Snapshot
	loaded    bool
	softLimit int
	now       func() time.Time
}

// NewTracker creates a Tracker over the given store. softLimit <= 0 disables
// the limit check.
func NewTracker(store Store, softLimit int) *Tracker {
	return &Tracker{
		store:     store,
		softLimit: softLimit,
		now:       time.Now,
	}
}

// ensureCurrent loads the persisted snapshot on first use and rolls the daily
// counter when the local day has changed since the last reset.
// Caller must hold mu.
func (t *Tracker) ensureCurrent(ctx context.Context) error {
	if !t.loaded {
		snap, err := t.store.Load(ctx)
		if err != nil {
			return err
		}
		if snap != nil {
			t.snap = *snap
		}
		if t.snap.LastReset.IsZero() {
			t.snap.LastReset = t.now()
		}
		t.loaded = true
	}

	now := t.now()
	ly, lm, ld := t.snap.LastReset.Local().Date()
	ny, nm, nd := now.Local().Date()
	if ly != ny || lm != nm || ld != nd {
		t.snap.DailyCount = 0
		t.snap.LastReset = now
		return t.store.Save(ctx, t.snap)
	}
	return nil
}

// Record counts one sent message.
func (t *Tracker) Record(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.ensureCurrent(ctx); err != nil {
		return err
	}
	t.snap.DailyCount++
	t.snap.TotalCount++
	return t.store.Save(ctx, t.snap)
}

// Read returns the current counters, applying the lazy daily reset first.
func (t *Tracker) Read(ctx context.Context) (Snapshot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.ensureCurrent(ctx); err != nil {
		return Snapshot{}, err
	}
	return t.snap, nil
}

// OverSoftLimit reports whether today's sends have reached the soft limit.
// Sends are never blocked by it; callers surface a warning instead.
func (t *Tracker) OverSoftLimit(ctx context.Context) (bool, error) {
	if t.softLimit <= 0 {
		return false, nil
	}
	snap, err := t.Read(ctx)
	if err != nil {
		return false, err
	}
	return snap.DailyCount >= t.softLimit, nil
}

// SoftLimit returns the configured daily soft limit.
func (t *Tracker) SoftLimit() int { return t.softLimit }
