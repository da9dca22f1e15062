package store

import (
	"context"
	"slices"
	"sync"
	"time"
)

var _ Store = (*Memory)(nil)

// Memory is an in-process [Store]. When the cache holds maxEntries buffers,
// storing a new key evicts the oldest entry.
type Memory struct {
	mu         sync.Mutex
	entries    map[string]Entry
	passwords  map[string]string
	maxEntries int
	now        func() time.Time
}

// MemoryOption configures a [Memory] store.
type MemoryOption func(*Memory)

// WithClock replaces time.Now for StoredAt timestamps.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) { m.now = now }
}

// NewMemory creates an empty store. maxEntries <= 0 means unbounded.
func NewMemory(maxEntries int, opts ...MemoryOption) *Memory {
	m := &Memory{
		entries:    make(map[string]Entry),
		passwords:  make(map[string]string),
		maxEntries: maxEntries,
		now:        time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Put implements [Cache].
func (m *Memory) Put(_ context.Context, key string, buf []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[key]; !exists && m.maxEntries > 0 && len(m.entries) >= m.maxEntries {
		m.evictOldest()
	}
	m.entries[key] = Entry{Buffer: slices.Clone(buf), StoredAt: m.now()}
	return nil
}

// evictOldest must be called with mu held.
func (m *Memory) evictOldest() {
	var (
		oldestKey string
		oldest    time.Time
		found     bool
	)
	for k, e := range m.entries {
		if !found || e.StoredAt.Before(oldest) {
			oldestKey, oldest, found = k, e.StoredAt, true
		}
	}
	if found {
		delete(m.entries, oldestKey)
	}
}

// Get implements [Cache]. The returned buffer is a copy.
func (m *Memory) Get(_ context.Context, key string) (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return Entry{Buffer: slices.Clone(e.Buffer), StoredAt: e.StoredAt}, nil
}

// Delete implements [Cache].
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// Len returns the number of cached buffers.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// SetPassword implements [PasswordStore].
func (m *Memory) SetPassword(_ context.Context, conversationID, password string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.passwords[conversationID] = password
	return nil
}

// Password implements [PasswordStore].
func (m *Memory) Password(_ context.Context, conversationID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.passwords[conversationID]
	if !ok {
		return "", ErrNotFound
	}
	return p, nil
}

// DeletePassword implements [PasswordStore].
func (m *Memory) DeletePassword(_ context.Context, conversationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.passwords, conversationID)
	return nil
}

// Purge implements [Store].
func (m *Memory) Purge(_ context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k, e := range m.entries {
		if e.StoredAt.Before(cutoff) {
			delete(m.entries, k)
			n++
		}
	}
	return n, nil
}

// Ping implements [Store]; the memory store is always reachable.
func (m *Memory) Ping(context.Context) error { return nil }

// Close implements [Store].
func (m *Memory) Close() {}
