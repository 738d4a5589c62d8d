package core

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process implementation of the Memory interface.
// Entries with a TTL expire lazily on read and are swept by Cleanup.
type MemoryStore struct {
	mu     sync.RWMutex
	store  map[string]memoryEntry
	logger Logger
	now    func() time.Time
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		store:  make(map[string]memoryEntry),
		logger: &NoOpLogger{},
		now:    time.Now,
	}
}

// SetLogger configures the logger for this memory store
func (m *MemoryStore) SetLogger(logger Logger) {
	if logger != nil {
		m.logger = logger
	}
}

// Get retrieves a value. A missing or expired key yields "" and no error.
func (m *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	entry, exists := m.store[key]
	m.mu.RUnlock()

	if !exists {
		m.logger.Debug("Memory miss", map[string]interface{}{
			"operation": "memory_get",
			"key":       key,
		})
		return "", nil
	}

	if entry.expired(m.now()) {
		m.logger.Debug("Memory entry expired", map[string]interface{}{
			"operation":  "memory_get",
			"key":        key,
			"expired_at": entry.expiresAt.Format(time.RFC3339),
		})
		return "", nil
	}

	return entry.value, nil
}

// Set stores a value with an optional TTL (zero means no expiry)
func (m *MemoryStore) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = m.now().Add(ttl)
	}

	m.mu.Lock()
	m.store[key] = entry
	m.mu.Unlock()

	m.logger.Debug("Memory set", map[string]interface{}{
		"operation": "memory_set",
		"key":       key,
		"ttl":       ttl.String(),
	})
	return nil
}

// Delete removes a value
func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	_, existed := m.store[key]
	delete(m.store, key)
	m.mu.Unlock()

	m.logger.Debug("Memory delete", map[string]interface{}{
		"operation": "memory_delete",
		"key":       key,
		"existed":   existed,
	})
	return nil
}

// Exists reports whether a live (unexpired) key is present
func (m *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.store[key]
	if !ok {
		return false, nil
	}
	return !entry.expired(m.now()), nil
}

// Cleanup removes expired entries and returns how many were dropped
func (m *MemoryStore) Cleanup() int {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for k, e := range m.store {
		if e.expired(now) {
			delete(m.store, k)
			removed++
		}
	}
	if removed > 0 {
		m.logger.Debug("Memory cleanup", map[string]interface{}{
			"operation": "memory_cleanup",
			"removed":   removed,
		})
	}
	return removed
}

// StartCleanup sweeps expired entries every interval until ctx is done.
func (m *MemoryStore) StartCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Cleanup()
			}
		}
	}()
}
