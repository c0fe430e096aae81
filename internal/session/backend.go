package session

import (
	"context"
	"sync"
	"time"

	"car-showcase/internal/identity"
)

// Backend 会话存储：sid → 身份提供方会话。找不到时返回 (nil, nil)。
type Backend interface {
	Get(ctx context.Context, sid string) (*identity.Session, error)
	Put(ctx context.Context, sid string, s *identity.Session, ttl time.Duration) error
	Del(ctx context.Context, sid string) error
}

// MemoryBackend 进程内存实现，开发和测试用（没配 redis 时的兜底）
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[string]memEntry
}

type memEntry struct {
	sess     *identity.Session
	deadline time.Time
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: map[string]memEntry{}}
}

func (m *MemoryBackend) Get(_ context.Context, sid string) (*identity.Session, error) {
	m.mu.RLock()
	e, ok := m.entries[sid]
	m.mu.RUnlock()
	if !ok || time.Now().After(e.deadline) {
		return nil, nil
	}
	return e.sess, nil
}

func (m *MemoryBackend) Put(_ context.Context, sid string, s *identity.Session, ttl time.Duration) error {
	m.mu.Lock()
	m.entries[sid] = memEntry{sess: s, deadline: time.Now().Add(ttl)}
	m.mu.Unlock()
	return nil
}

func (m *MemoryBackend) Del(_ context.Context, sid string) error {
	m.mu.Lock()
	delete(m.entries, sid)
	m.mu.Unlock()
	return nil
}
