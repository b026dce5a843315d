package mocks

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/godilite/review-insights/pkg/cache"
)

// MockCacher is a mock implementation of the cache interface for testing
// the handler layer. Without function overrides it behaves like an
// in-memory JSON cache.
type MockCacher struct {
	GetFunc   func(ctx context.Context, key string, dest any) error
	SetFunc   func(ctx context.Context, key string, value any, expiration time.Duration) error
	CloseFunc func() error

	mu   sync.Mutex
	data map[string][]byte
	sets int
}

// Get implements the cache interface
func (m *MockCacher) Get(ctx context.Context, key string, dest any) error {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key, dest)
	}
	m.mu.Lock()
	raw, ok := m.data[key]
	m.mu.Unlock()
	if !ok {
		return cache.ErrMiss
	}
	return json.Unmarshal(raw, dest)
}

// Set implements the cache interface
func (m *MockCacher) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value, expiration)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = make(map[string][]byte)
	}
	m.data[key] = raw
	m.sets++
	return nil
}

// Close implements the cache interface
func (m *MockCacher) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// Keys returns the keys stored through the default Set.
func (m *MockCacher) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	return keys
}

// Sets returns how many values were stored through the default Set.
func (m *MockCacher) Sets() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sets
}
