package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const memorySessionSize = 256

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemorySessionStore 进程内会话状态（expirable LRU）
type MemorySessionStore struct {
	lru *expirable.LRU[string, memoryEntry]
	now func() time.Time
}

// NewMemorySessionStore 创建进程内会话存储，maxTTL 为整体淘汰上限
func NewMemorySessionStore(size int, maxTTL time.Duration) *MemorySessionStore {
	if size <= 0 {
		size = memorySessionSize
	}
	return &MemorySessionStore{
		lru: expirable.NewLRU[string, memoryEntry](size, nil, maxTTL),
		now: time.Now,
	}
}

// Get 读取会话值，单项已过期时视为不存在
func (s *MemorySessionStore) Get(_ context.Context, key string) (string, bool, error) {
	entry, ok := s.lru.Get(key)
	if !ok {
		return "", false, nil
	}
	if !entry.expiresAt.IsZero() && !s.now().Before(entry.expiresAt) {
		s.lru.Remove(key)
		return "", false, nil
	}
	return entry.value, true, nil
}

// Set 写入会话值
func (s *MemorySessionStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}
	s.lru.Add(key, entry)
	return nil
}

// Del 删除会话值
func (s *MemorySessionStore) Del(_ context.Context, key string) error {
	s.lru.Remove(key)
	return nil
}
