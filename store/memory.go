package store

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rushteam/feedrank/core"
)

// MemoryFeedCache 是内存实现的 FeedCache，单实例部署使用。
//
// 每个用户一个 bucket，bucket 内的分页表是不可变快照（copy-on-write）：
//   - Get 只做原子读，不加锁，不会被写阻塞
//   - Set / InvalidateUser 在 bucket 级互斥后替换快照
//   - InvalidateUser 递增 generation，之前读取 generation 的写入会被丢弃
type MemoryFeedCache struct {
	ttl   time.Duration
	users sync.Map // userID -> *userBucket
	now   func() time.Time
	clean *time.Ticker
	stop  chan struct{}
	once  sync.Once
}

type userBucket struct {
	mu            sync.Mutex // 只串行化写
	gen           atomic.Uint64
	invalidatedAt atomic.Int64 // 最近一次失效的 UnixNano
	pages         atomic.Pointer[map[int]*core.CachedPage]
}

func newUserBucket() *userBucket {
	b := &userBucket{}
	empty := make(map[int]*core.CachedPage)
	b.pages.Store(&empty)
	return b
}

// NewMemoryFeedCache 创建内存缓存，ttl <= 0 时使用 core.FeedCacheTTL。
func NewMemoryFeedCache(ttl time.Duration) *MemoryFeedCache {
	if ttl <= 0 {
		ttl = core.FeedCacheTTL
	}
	c := &MemoryFeedCache{
		ttl:   ttl,
		now:   time.Now,
		clean: time.NewTicker(10 * time.Second),
		stop:  make(chan struct{}),
	}
	go c.cleanup()
	return c
}

func (c *MemoryFeedCache) Name() string { return "memory" }

func (c *MemoryFeedCache) bucket(userID string) *userBucket {
	if b, ok := c.users.Load(userID); ok {
		return b.(*userBucket)
	}
	b, _ := c.users.LoadOrStore(userID, newUserBucket())
	return b.(*userBucket)
}

// lockBucket 锁住用户当前的 bucket；若加锁期间 bucket 被清理协程移除则重试。
func (c *MemoryFeedCache) lockBucket(userID string) *userBucket {
	for {
		b := c.bucket(userID)
		b.mu.Lock()
		if cur, ok := c.users.Load(userID); ok && cur.(*userBucket) == b {
			return b
		}
		b.mu.Unlock()
	}
}

// Get 只有 now < createdAt + ttl 才返回缓存页，过期则剔除并视为未命中。
func (c *MemoryFeedCache) Get(ctx context.Context, userID string, offset int) ([]*core.Item, bool, error) {
	v, ok := c.users.Load(userID)
	if !ok {
		return nil, false, nil
	}
	b := v.(*userBucket)
	page, ok := (*b.pages.Load())[offset]
	if !ok {
		return nil, false, nil
	}
	if page.Expired(c.now(), c.ttl) {
		c.evict(b, offset, page)
		return nil, false, nil
	}
	return core.CloneItems(page.Items), true, nil
}

// evict 仅当快照里仍是同一页时才删除，避免误删刚写入的新页。
func (c *MemoryFeedCache) evict(b *userBucket, offset int, page *core.CachedPage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	cur := *b.pages.Load()
	if cur[offset] != page {
		return
	}
	next := make(map[int]*core.CachedPage, len(cur))
	for k, p := range cur {
		if k != offset {
			next[k] = p
		}
	}
	b.pages.Store(&next)
}

func (c *MemoryFeedCache) Set(ctx context.Context, userID string, offset int, page []*core.Item, generation uint64) error {
	b := c.lockBucket(userID)
	defer b.mu.Unlock()

	if b.gen.Load() != generation {
		// 计算期间发生过失效，丢弃旧结果
		return nil
	}
	cur := *b.pages.Load()
	next := make(map[int]*core.CachedPage, len(cur)+1)
	for k, p := range cur {
		next[k] = p
	}
	next[offset] = &core.CachedPage{Items: core.CloneItems(page), CreatedAt: c.now()}
	b.pages.Store(&next)
	return nil
}

// InvalidateUser 删除用户所有 offset 的缓存页。返回后任何 Get 都不会再读到旧页。
func (c *MemoryFeedCache) InvalidateUser(ctx context.Context, userID string) error {
	b := c.lockBucket(userID)
	defer b.mu.Unlock()

	b.gen.Add(1)
	b.invalidatedAt.Store(c.now().UnixNano())
	empty := make(map[int]*core.CachedPage)
	b.pages.Store(&empty)
	return nil
}

func (c *MemoryFeedCache) Generation(ctx context.Context, userID string) (uint64, error) {
	v, ok := c.users.Load(userID)
	if !ok {
		return 0, nil
	}
	return v.(*userBucket).gen.Load(), nil
}

// Len 返回未过期的缓存页数量。
func (c *MemoryFeedCache) Len() int {
	now := c.now()
	n := 0
	c.users.Range(func(_, v any) bool {
		for _, p := range *v.(*userBucket).pages.Load() {
			if !p.Expired(now, c.ttl) {
				n++
			}
		}
		return true
	})
	return n
}

func (c *MemoryFeedCache) Close() error {
	c.once.Do(func() { close(c.stop) })
	return nil
}

func (c *MemoryFeedCache) cleanup() {
	for {
		select {
		case <-c.clean.C:
			c.cleanExpired()
		case <-c.stop:
			c.clean.Stop()
			return
		}
	}
}

// cleanExpired 清理过期页并删除空 bucket。
// 最近一个 ttl 内失效过的 bucket 保留，进行中的请求仍受 generation 保护；
// 请求远短于 ttl，更早的失效记录不再需要。
func (c *MemoryFeedCache) cleanExpired() {
	now := c.now()
	c.users.Range(func(k, v any) bool {
		b := v.(*userBucket)
		b.mu.Lock()
		cur := *b.pages.Load()
		next := make(map[int]*core.CachedPage, len(cur))
		for off, p := range cur {
			if !p.Expired(now, c.ttl) {
				next[off] = p
			}
		}
		if len(next) != len(cur) {
			b.pages.Store(&next)
		}
		if len(next) == 0 && (b.gen.Load() == 0 || now.Sub(time.Unix(0, b.invalidatedAt.Load())) > c.ttl) {
			c.users.Delete(k)
		}
		b.mu.Unlock()
		return true
	})
}

var _ core.FeedCache = (*MemoryFeedCache)(nil)
