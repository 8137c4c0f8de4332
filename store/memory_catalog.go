package store

import (
	"context"
	"sort"
	"sync"

	"github.com/rushteam/feedrank/core"
)

// MemoryCatalog 是内存实现的视频目录。
type MemoryCatalog struct {
	mu     sync.RWMutex
	videos map[string]*core.Video
}

func NewMemoryCatalog(videos ...*core.Video) *MemoryCatalog {
	c := &MemoryCatalog{videos: make(map[string]*core.Video)}
	c.Put(videos...)
	return c
}

// Put 写入或覆盖视频。
func (c *MemoryCatalog) Put(videos ...*core.Video) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, v := range videos {
		if v == nil || v.ID == "" {
			continue
		}
		cp := *v
		c.videos[v.ID] = &cp
	}
}

// QueryTrending 按播放量降序，播放量相同按 ID 升序，保证结果稳定。
func (c *MemoryCatalog) QueryTrending(ctx context.Context, limit int) ([]*core.Video, error) {
	c.mu.RLock()
	out := make([]*core.Video, 0, len(c.videos))
	for _, v := range c.videos {
		cp := *v
		out = append(out, &cp)
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].ViewCount != out[j].ViewCount {
			return out[i].ViewCount > out[j].ViewCount
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var _ core.Catalog = (*MemoryCatalog)(nil)
