package stats

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// SnapshotStore keeps the most recent Stats so readers do not each run five queries.
type SnapshotStore interface {
	Save(ctx context.Context, s Stats) error
	// Load returns ok=false when nothing fresh is cached.
	Load(ctx context.Context) (s Stats, ok bool, err error)
}

// RedisSnapshotStore caches the snapshot as JSON under one key with a TTL.
type RedisSnapshotStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisSnapshotStore creates a store. ttl should exceed the poll interval.
func NewRedisSnapshotStore(client *redis.Client, key string, ttl time.Duration) *RedisSnapshotStore {
	if key == "" {
		key = "stats:dashboard"
	}
	return &RedisSnapshotStore{client: client, key: key, ttl: ttl}
}

// Save stores s.
func (r *RedisSnapshotStore) Save(ctx context.Context, s Stats) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key, payload, r.ttl).Err()
}

// Load reads the cached snapshot.
func (r *RedisSnapshotStore) Load(ctx context.Context) (Stats, bool, error) {
	payload, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Stats{}, false, nil
	}
	if err != nil {
		return Stats{}, false, err
	}
	var s Stats
	if err := json.Unmarshal(payload, &s); err != nil {
		return Stats{}, false, err
	}
	return s, true, nil
}

// MemorySnapshotStore is the in-process fallback when Redis is unavailable.
type MemorySnapshotStore struct {
	mu  sync.RWMutex
	ttl time.Duration
	s   Stats
	set time.Time
	now func() time.Time
}

// NewMemorySnapshotStore creates an empty store.
func NewMemorySnapshotStore(ttl time.Duration) *MemorySnapshotStore {
	return &MemorySnapshotStore{ttl: ttl, now: time.Now}
}

// Save stores s.
func (m *MemorySnapshotStore) Save(_ context.Context, s Stats) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s = s
	m.set = m.now()
	return nil
}

// Load reads the snapshot if it has not expired.
func (m *MemorySnapshotStore) Load(context.Context) (Stats, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.set.IsZero() || (m.ttl > 0 && m.now().Sub(m.set) > m.ttl) {
		return Stats{}, false, nil
	}
	return m.s, true, nil
}
