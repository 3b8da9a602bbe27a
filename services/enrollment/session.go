package enrollment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/sahilchouksey/enrollment-api/utils/cache"
)

// SessionStore keeps one snapshot per browser session
type SessionStore interface {
	// Load returns ErrSessionNotFound for unknown or expired sessions
	Load(ctx context.Context, id string) (*Snapshot, error)
	Save(ctx context.Context, id string, snap *Snapshot) error
	// TryLock returns ErrSessionBusy while another operation holds the session
	TryLock(ctx context.Context, id string) (unlock func(), err error)
}

// Sweeper is implemented by stores that need periodic eviction of idle sessions
type Sweeper interface {
	Sweep(now time.Time) int
}

type memorySession struct {
	data    []byte
	savedAt time.Time
}

// MemorySessionStore keeps sessions in process memory.
// Snapshots are stored serialized so callers never share them.
type MemorySessionStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	clock    func() time.Time
	sessions map[string]memorySession
	locks    map[string]struct{}
}

// NewMemorySessionStore creates a store whose sessions expire ttl after their last save
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{
		ttl:      ttl,
		clock:    time.Now,
		sessions: make(map[string]memorySession),
		locks:    make(map[string]struct{}),
	}
}

// Load implements SessionStore
func (m *MemorySessionStore) Load(_ context.Context, id string) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok || m.expired(s, m.clock()) {
		return nil, ErrSessionNotFound
	}

	snap := new(Snapshot)
	if err := json.Unmarshal(s.data, snap); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", id, err)
	}
	return snap, nil
}

// Save implements SessionStore
func (m *MemorySessionStore) Save(_ context.Context, id string, snap *Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode session %s: %w", id, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[id] = memorySession{data: data, savedAt: m.clock()}
	return nil
}

// TryLock implements SessionStore
func (m *MemorySessionStore) TryLock(_ context.Context, id string) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, held := m.locks[id]; held {
		return nil, ErrSessionBusy
	}
	m.locks[id] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.locks, id)
			m.mu.Unlock()
		})
	}, nil
}

// Sweep drops expired sessions that are not locked and returns how many were removed
func (m *MemorySessionStore) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, s := range m.sessions {
		if _, held := m.locks[id]; held {
			continue
		}
		if m.expired(s, now) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored sessions, expired ones included
func (m *MemorySessionStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *MemorySessionStore) expired(s memorySession, now time.Time) bool {
	return m.ttl > 0 && now.Sub(s.savedAt) > m.ttl
}

const (
	redisSessionPrefix = "enrollment:session:"
	redisLockPrefix    = "enrollment:lock:"
)

// RedisSessionStore keeps sessions in Redis with a sliding TTL
type RedisSessionStore struct {
	cache   *cache.RedisCache
	ttl     time.Duration
	lockTTL time.Duration
}

// NewRedisSessionStore creates a Redis backed session store.
// Locks expire after lockTTL so a crashed process cannot wedge a session.
func NewRedisSessionStore(redisCache *cache.RedisCache, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{
		cache:   redisCache,
		ttl:     ttl,
		lockTTL: 5 * time.Minute,
	}
}

// Load implements SessionStore
func (r *RedisSessionStore) Load(ctx context.Context, id string) (*Snapshot, error) {
	snap := new(Snapshot)
	if err := r.cache.GetJSON(ctx, redisSessionPrefix+id, snap); err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}
	return snap, nil
}

// Save implements SessionStore
func (r *RedisSessionStore) Save(ctx context.Context, id string, snap *Snapshot) error {
	if err := r.cache.SetJSON(ctx, redisSessionPrefix+id, snap, r.ttl); err != nil {
		return fmt.Errorf("failed to save session %s: %w", id, err)
	}
	return nil
}

// TryLock implements SessionStore with SETNX and an owner token
func (r *RedisSessionStore) TryLock(ctx context.Context, id string) (func(), error) {
	key := redisLockPrefix + id
	token := uuid.NewString()

	ok, err := r.cache.SetNX(ctx, key, token, r.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to lock session %s: %w", id, err)
	}
	if !ok {
		return nil, ErrSessionBusy
	}

	return func() {
		// released with a fresh context; the request may already be gone
		ctx := context.Background()
		// a lock that expired and was taken by another request stays in place
		if _, err := r.cache.DeleteIfEquals(ctx, key, token); err != nil {
			log.Warnf("failed to unlock session %s: %v", id, err)
		}
	}, nil
}
