package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"users-service/entities"
)

// UserCache holds single-user lookups. Users are never updated, so an entry
// stays valid until the table is recreated and the cache flushed. A cache
// must be shared with every process that can recreate the table.
type UserCache interface {
	Get(ctx context.Context, id uint) (*entities.User, bool)
	Set(ctx context.Context, user *entities.User) error
	Flush(ctx context.Context) error
	Stats() map[string]interface{}
}

type cachedUser struct {
	User     entities.User
	CachedAt time.Time
}

// NoopUserCache caches nothing. It is the default when no shared cache is
// configured, since recreate_db cannot reach another process's memory.
type NoopUserCache struct {
	misses atomic.Uint64
}

func NewNoopUserCache() *NoopUserCache {
	return &NoopUserCache{}
}

func (nc *NoopUserCache) Get(_ context.Context, _ uint) (*entities.User, bool) {
	nc.misses.Add(1)
	return nil, false
}

func (nc *NoopUserCache) Set(_ context.Context, _ *entities.User) error { return nil }

func (nc *NoopUserCache) Flush(_ context.Context) error { return nil }

func (nc *NoopUserCache) Stats() map[string]interface{} {
	return map[string]interface{}{
		"backend": "none",
		"misses":  nc.misses.Load(),
	}
}

// MemoryUserCache is an in-process UserCache, selected with USER_CACHE=memory.
// Only a recreate_db run inside the same process flushes it.
type MemoryUserCache struct {
	mu     sync.RWMutex
	users  map[uint]cachedUser
	hits   uint64
	misses uint64
}

func NewMemoryUserCache() *MemoryUserCache {
	return &MemoryUserCache{
		users: make(map[uint]cachedUser),
	}
}

func (mc *MemoryUserCache) Get(_ context.Context, id uint) (*entities.User, bool) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	entry, ok := mc.users[id]
	if !ok {
		mc.misses++
		return nil, false
	}
	mc.hits++
	user := entry.User
	return &user, true
}

func (mc *MemoryUserCache) Set(_ context.Context, user *entities.User) error {
	if user == nil || user.ID == 0 {
		return nil
	}
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.users[user.ID] = cachedUser{User: *user, CachedAt: time.Now()}
	return nil
}

// Flush drops every cached user. Counters are kept.
func (mc *MemoryUserCache) Flush(_ context.Context) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.users = make(map[uint]cachedUser)
	return nil
}

func (mc *MemoryUserCache) Stats() map[string]interface{} {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	return map[string]interface{}{
		"backend": "memory",
		"entries": len(mc.users),
		"hits":    mc.hits,
		"misses":  mc.misses,
	}
}
