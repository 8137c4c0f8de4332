package profile

import (
	"context"
	"sync"
	"time"

	"github.com/rushteam/feedrank/core"
)

// CachedBuilder 在 Builder 前加一层短期内存缓存，采用 LRU 策略控制大小。
// 缓存的画像只是性能优化，行为上报时通过 Invalidate 立即丢弃。
type CachedBuilder struct {
	source Source

	mu              sync.RWMutex
	entries         map[string]*cacheEntry
	gens            map[string]*generation
	maxSize         int
	ttl             time.Duration
	cleanupInterval time.Duration
	cleanupTicker   *time.Ticker
	stopCleanup     chan struct{}
	closeOnce       sync.Once
}

// generation 记录用户画像的失效次数。构建开始前读取，写入时不一致则放弃写入，
// 防止 Invalidate 之前开始的构建把旧画像写回缓存。
type generation struct {
	n        uint64
	bumpedAt time.Time
}

type cacheEntry struct {
	profile    *core.UserProfile
	expireTime time.Time
	accessTime time.Time
}

// NewCachedBuilder 创建带缓存的画像构建器。ttl <= 0 时默认 30 秒。
func NewCachedBuilder(source Source, maxSize int, ttl time.Duration) *CachedBuilder {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if maxSize <= 0 {
		maxSize = 10000
	}
	c := &CachedBuilder{
		source:          source,
		entries:         make(map[string]*cacheEntry),
		gens:            make(map[string]*generation),
		maxSize:         maxSize,
		ttl:             ttl,
		cleanupInterval: time.Minute,
		stopCleanup:     make(chan struct{}),
	}

	// 启动清理协程
	c.cleanupTicker = time.NewTicker(c.cleanupInterval)
	go c.cleanup()

	return c
}

func (c *CachedBuilder) cleanup() {
	for {
		select {
		case <-c.cleanupTicker.C:
			c.cleanExpired()
		case <-c.stopCleanup:
			c.cleanupTicker.Stop()
			return
		}
	}
}

func (c *CachedBuilder) cleanExpired() {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	for userID, entry := range c.entries {
		if now.After(entry.expireTime) {
			delete(c.entries, userID)
		}
	}
	for len(c.entries) > c.maxSize {
		c.evictLRU()
	}
	// 进行中的构建不会超过一个 ttl，更早的失效记录不再需要
	for userID, g := range c.gens {
		if now.Sub(g.bumpedAt) > c.ttl {
			delete(c.gens, userID)
		}
	}
}

// evictLRU 删除最久未访问的条目，调用方需持有写锁。
func (c *CachedBuilder) evictLRU() {
	var (
		oldestKey  string
		oldestTime time.Time
		first      = true
	)
	for key, entry := range c.entries {
		if first || entry.accessTime.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.accessTime
			first = false
		}
	}
	if !first {
		delete(c.entries, oldestKey)
	}
}

// Build 命中缓存直接返回，否则委托给底层 Source 并写入缓存。
func (c *CachedBuilder) Build(ctx context.Context, userID string) (*core.UserProfile, error) {
	if p, ok := c.get(userID); ok {
		return p, nil
	}
	gen := c.currentGen(userID)
	p, err := c.source.Build(ctx, userID)
	if err != nil {
		return nil, err
	}
	c.set(userID, p, gen)
	return p, nil
}

func (c *CachedBuilder) currentGen(userID string) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if g, ok := c.gens[userID]; ok {
		return g.n
	}
	return 0
}

func (c *CachedBuilder) get(userID string) (*core.UserProfile, bool) {
	c.mu.RLock()
	entry, ok := c.entries[userID]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	now := time.Now()
	if now.After(entry.expireTime) {
		return nil, false
	}
	c.mu.Lock()
	entry.accessTime = now
	c.mu.Unlock()
	return entry.profile, true
}

func (c *CachedBuilder) set(userID string, p *core.UserProfile, gen uint64) {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	var cur uint64
	if g, ok := c.gens[userID]; ok {
		cur = g.n
	}
	if cur != gen {
		return
	}

	if _, exists := c.entries[userID]; !exists && len(c.entries) >= c.maxSize {
		c.evictLRU()
	}
	c.entries[userID] = &cacheEntry{
		profile:    p,
		expireTime: now.Add(c.ttl),
		accessTime: now,
	}
}

// Invalidate 丢弃用户的缓存画像，并让进行中的构建结果不再写入缓存。
func (c *CachedBuilder) Invalidate(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, userID)
	g, ok := c.gens[userID]
	if !ok {
		g = &generation{}
		c.gens[userID] = g
	}
	g.n++
	g.bumpedAt = time.Now()
}

// Len 返回当前缓存条目数。
func (c *CachedBuilder) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close 停止清理协程
func (c *CachedBuilder) Close() {
	c.closeOnce.Do(func() { close(c.stopCleanup) })
}

var _ Source = (*CachedBuilder)(nil)
