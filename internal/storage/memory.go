package storage

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// Memory is an in-process medium. With a non-zero quota it refuses writes
// that would grow the stored keys and values past quota bytes.
type Memory struct {
	mu     sync.RWMutex
	data   map[string][]byte
	size   int64
	quota  int64
	closed bool
}

func NewMemory(quota int64) *Memory {
	return &Memory{data: make(map[string][]byte), quota: quota}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, false, ErrClosed
	}
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(v), true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	next := m.size + int64(len(value))
	if old, ok := m.data[key]; ok {
		next -= int64(len(old))
	} else {
		next += int64(len(key))
	}
	if m.quota > 0 && next > m.quota {
		return fmt.Errorf("set %s: %w (%d of %d bytes)", key, ErrQuotaExceeded, next, m.quota)
	}
	m.data[key] = slices.Clone(value)
	m.size = next
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if old, ok := m.data[key]; ok {
		m.size -= int64(len(key) + len(old))
		delete(m.data, key)
	}
	return nil
}

func (m *Memory) Keys(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys, nil
}

// Size returns the bytes counted against the quota.
func (m *Memory) Size() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.size
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
