package testutil

import (
	"context"
	"sync"
)

// MemoryNavigator is an in-memory location holding a search string.
type MemoryNavigator struct {
	mu       sync.Mutex
	search   string
	Replaced []string
}

// NewMemoryNavigator creates a navigator positioned at search.
func NewMemoryNavigator(search string) *MemoryNavigator {
	return &MemoryNavigator{search: search}
}

// Search returns the current search string.
func (n *MemoryNavigator) Search() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.search
}

// Replace swaps the current search string and records the call.
func (n *MemoryNavigator) Replace(search string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.search = search
	n.Replaced = append(n.Replaced, search)
	return nil
}

// MemoryKV is a map-backed key/value store.
type MemoryKV struct {
	mu   sync.Mutex
	data map[string][]byte
}

// NewMemoryKV creates an empty store.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: map[string][]byte{}}
}

// Get returns the value for key; ok is false when absent.
func (kv *MemoryKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	v, ok := kv.data[key]
	return append([]byte(nil), v...), ok, nil
}

// Put stores value under key.
func (kv *MemoryKV) Put(_ context.Context, key string, value []byte) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	kv.data[key] = append([]byte(nil), value...)
	return nil
}

// Delete removes key.
func (kv *MemoryKV) Delete(_ context.Context, key string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	delete(kv.data, key)
	return nil
}
