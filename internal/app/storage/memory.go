package storage

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryStorage is an in-process LocalStorage. Values are lost on restart.
type MemoryStorage struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStorage returns an empty MemoryStorage.
func NewMemoryStorage(ttl time.Duration) *MemoryStorage {
	return &MemoryStorage{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func memoryKey(owner, key string) string {
	return owner + "\x00" + key
}

func (m *MemoryStorage) Get(_ context.Context, owner, key string) ([]byte, error) {
	m.mu.RLock()
	entry, ok := m.entries[memoryKey(owner, key)]
	m.mu.RUnlock()

	if !ok || (!entry.expiresAt.IsZero() && !m.now().Before(entry.expiresAt)) {
		return nil, ErrNotFound
	}

	out := make([]byte, len(entry.value))
	copy(out, entry.value)
	return out, nil
}

func (m *MemoryStorage) Set(_ context.Context, owner, key string, value []byte) error {
	entry := memoryEntry{value: append([]byte(nil), value...)}
	if m.ttl > 0 {
		entry.expiresAt = m.now().Add(m.ttl)
	}

	m.mu.Lock()
	m.entries[memoryKey(owner, key)] = entry
	m.mu.Unlock()
	return nil
}

func (m *MemoryStorage) Delete(_ context.Context, owner, key string) error {
	m.mu.Lock()
	delete(m.entries, memoryKey(owner, key))
	m.mu.Unlock()
	return nil
}

func (m *MemoryStorage) Close() error { return nil }
