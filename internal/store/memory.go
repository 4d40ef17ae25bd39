package store

import (
	"context"
	"sync"
)

// MemoryBackend is a concurrency-safe in-process backend. It does not
// survive restarts and is meant for tests and CACHE_BACKEND=memory.
type MemoryBackend struct {
	mu sync.RWMutex

	// key: region identifier, value: serialized forecast
	data map[string][]byte
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		data: make(map[string][]byte),
	}
}

// Put stores a copy of value under key, replacing any previous value.
func (b *MemoryBackend) Put(_ context.Context, key string, value []byte) error {
	v := make([]byte, len(value))
	copy(v, value)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[key] = v
	return nil
}

// Get returns a copy of the value stored under key.
func (b *MemoryBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	v, ok := b.data[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

// Keys lists the stored keys in no particular order.
func (b *MemoryBackend) Keys() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	keys := make([]string, 0, len(b.data))
	for k := range b.data {
		keys = append(keys, k)
	}
	return keys
}

func (b *MemoryBackend) Close() error { return nil }
