package cache

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type memoryEntry struct {
	ownerID   primitive.ObjectID
	expiresAt time.Time
}

// MemoryHostCache 는 Redis 가 없을 때 쓰는 프로세스 로컬 캐시다.
// 다른 프로세스의 무효화는 받지 못하므로 TTL 을 짧게 둔다.
type MemoryHostCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryHostCache(ttl time.Duration) *MemoryHostCache {
	return &MemoryHostCache{entries: make(map[string]memoryEntry), ttl: ttl, now: time.Now}
}

func (c *MemoryHostCache) Get(_ context.Context, host string) (primitive.ObjectID, bool, error) {
	c.mu.RLock()
	e, ok := c.entries[host]
	c.mu.RUnlock()
	if !ok || c.now().After(e.expiresAt) {
		return primitive.NilObjectID, false, nil
	}
	return e.ownerID, true, nil
}

func (c *MemoryHostCache) Set(_ context.Context, host string, ownerID primitive.ObjectID) error {
	c.mu.Lock()
	c.entries[host] = memoryEntry{ownerID: ownerID, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
	return nil
}

func (c *MemoryHostCache) Invalidate(_ context.Context, hosts ...string) error {
	c.mu.Lock()
	for _, h := range hosts {
		delete(c.entries, h)
	}
	c.mu.Unlock()
	return nil
}

// LocalBatchLock 은 단일 프로세스 안에서만 유효하다.
type LocalBatchLock struct {
	mu   sync.Mutex
	held map[primitive.ObjectID]struct{}
}

func NewLocalBatchLock() *LocalBatchLock {
	return &LocalBatchLock{held: make(map[primitive.ObjectID]struct{})}
}

func (l *LocalBatchLock) Acquire(_ context.Context, ownerID primitive.ObjectID) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[ownerID]; ok {
		return nil, ErrLockHeld
	}
	l.held[ownerID] = struct{}{}
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, ownerID)
			l.mu.Unlock()
		})
	}, nil
}
