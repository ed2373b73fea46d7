package store

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// KV is the minimal expiring byte store the cache backend runs on.
// Implementations must be byte-for-byte transparent: Get returns exactly the
// value previously passed to Set for the key, and must be safe for
// concurrent use.
type KV interface {
	// Get returns (value, true, nil) on hit and (nil, false, nil) on a miss
	// or an expired entry. I/O failures return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores the value. A non-positive ttl deletes the key, which is how
	// the cache backend expires records immediately.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Del removes keys, ignoring ones that do not exist.
	Del(ctx context.Context, keys ...string) error

	Close() error
}

// MemoryKV is an in-process KV with per-entry expiry. The time source is
// injectable so expiry behavior is testable without sleeping.
type MemoryKV struct {
	mu      sync.RWMutex
	clock   clockwork.Clock
	entries map[string]memoryEntry
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryKV creates an empty in-memory store on the real clock.
func NewMemoryKV() *MemoryKV {
	return NewMemoryKVWithClock(clockwork.NewRealClock())
}

// NewMemoryKVWithClock creates an in-memory store on the given time source.
func NewMemoryKVWithClock(clock clockwork.Clock) *MemoryKV {
	return &MemoryKV{clock: clock, entries: make(map[string]memoryEntry)}
}

func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok || !m.clock.Now().Before(e.expiresAt) {
		return nil, false, nil
	}
	val := make([]byte, len(e.value))
	copy(val, e.value)
	return val, true, nil
}

func (m *MemoryKV) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ttl <= 0 {
		delete(m.entries, key)
		return nil
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	m.entries[key] = memoryEntry{value: stored, expiresAt: m.clock.Now().Add(ttl)}
	return nil
}

func (m *MemoryKV) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.entries, k)
	}
	return nil
}

func (m *MemoryKV) Close() error { return nil }
