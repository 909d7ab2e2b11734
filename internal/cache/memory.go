package cache

import (
	"context"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Memory is a size-bounded LRU backend for single-process runs. TTLs are
// ignored; stale entries leave through eviction or invalidation.
type Memory struct {
	lru *lru.Cache[string, []byte]
}

func NewMemory(size int) (*Memory, error) {
	if size < 1 {
		size = 1
	}
	c, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, err
	}
	return &Memory{lru: c}, nil
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	return m.lru.Get(key)
}

func (m *Memory) Set(_ context.Context, key string, value []byte, _ time.Duration) {
	m.lru.Add(key, value)
}

func (m *Memory) Delete(_ context.Context, keys ...string) {
	for _, k := range keys {
		m.lru.Remove(k)
	}
}

func (m *Memory) DeletePrefix(_ context.Context, prefix string) {
	for _, k := range m.lru.Keys() {
		if strings.HasPrefix(k, prefix) {
			m.lru.Remove(k)
		}
	}
}
