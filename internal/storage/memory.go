package storage

import (
	"context"
	"sync"
	"time"
)

// MemoryKV is a process-local KV used by tests and ephemeral sessions.
type MemoryKV struct {
	mu       sync.Mutex
	values   map[string]string
	sections map[string]cachedSections
}

type cachedSections struct {
	payload   []byte
	fetchedAt time.Time
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{
		values:   make(map[string]string),
		sections: make(map[string]cachedSections),
	}
}

func (m *MemoryKV) Get(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *MemoryKV) Set(key, value string) error {
	return m.SetMany(map[string]string{key: value})
}

func (m *MemoryKV) SetMany(pairs map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range pairs {
		m.values[k] = v
	}
	return nil
}

func (m *MemoryKV) Delete(keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

func (m *MemoryKV) SaveSections(_ context.Context, userID string, payload []byte, fetchedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sections[userID] = cachedSections{payload: append([]byte(nil), payload...), fetchedAt: fetchedAt}
	return nil
}

func (m *MemoryKV) LoadSections(_ context.Context, userID string) ([]byte, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.sections[userID]
	if !ok {
		return nil, time.Time{}, ErrNotFound
	}
	return append([]byte(nil), c.payload...), c.fetchedAt, nil
}
