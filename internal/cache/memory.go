package cache

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rotisserie/eris"
)

// DefaultMaxEntries bounds the in-process cache when no size is configured.
const DefaultMaxEntries = 4096

// Memory is an in-process LRU backend. The underlying LRU is internally
// locked, so Load and Store are atomic per key.
type Memory struct {
	lru *lru.Cache[string, Entry]
}

// NewMemory creates a Memory backend holding at most maxEntries entries.
func NewMemory(maxEntries int) (*Memory, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	l, err := lru.New[string, Entry](maxEntries)
	if err != nil {
		return nil, eris.Wrap(err, "cache: create lru")
	}
	return &Memory{lru: l}, nil
}

// Load implements Backend.
func (m *Memory) Load(_ context.Context, key string) (Entry, bool, error) {
	e, ok := m.lru.Get(key)
	return e, ok, nil
}

// Store implements Backend.
func (m *Memory) Store(_ context.Context, key string, e Entry) error {
	m.lru.Add(key, e)
	return nil
}

// Len returns the number of entries held.
func (m *Memory) Len() int {
	return m.lru.Len()
}
