package recall

import (
	"context"
	"fmt"

	"github.com/rushteam/feedrank/core"
)

// Trending 是热门候选召回：按播放量降序从 Catalog 读取 limit × Multiplier 个视频。
// 这里不做缓存，缓存统一在 FeedCache 中处理。
type Trending struct {
	Catalog core.Catalog

	// Multiplier 候选集放大倍数，默认 core.CandidateMultiplier
	Multiplier int
}

func NewTrending(catalog core.Catalog) *Trending {
	return &Trending{Catalog: catalog, Multiplier: core.CandidateMultiplier}
}

func (r *Trending) Name() string { return "recall.trending" }

// Size 返回 limit 对应的候选集大小。
func (r *Trending) Size(limit int) int {
	m := r.Multiplier
	if m <= 0 {
		m = core.CandidateMultiplier
	}
	return limit * m
}

// Recall 返回候选视频，顺序即热门顺序。
func (r *Trending) Recall(ctx context.Context, limit int) ([]*core.Video, error) {
	if r.Catalog == nil {
		return nil, fmt.Errorf("recall.trending: catalog not configured")
	}
	videos, err := r.Catalog.QueryTrending(ctx, r.Size(limit))
	if err != nil {
		return nil, fmt.Errorf("recall.trending: %w", err)
	}
	return videos, nil
}

// Popular 直接按热门顺序取 n 个视频，降级链路使用。
func (r *Trending) Popular(ctx context.Context, n int) ([]*core.Video, error) {
	if r.Catalog == nil {
		return nil, fmt.Errorf("recall.trending: catalog not configured")
	}
	return r.Catalog.QueryTrending(ctx, n)
}
