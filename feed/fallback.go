package feed

import (
	"context"
	"time"

	"github.com/rushteam/feedrank/core"
	"github.com/rushteam/feedrank/metrics"
	"github.com/rushteam/feedrank/pkg/logger"
	"github.com/rushteam/feedrank/rank"
	"github.com/rushteam/feedrank/rerank"
)

// fallback 返回按热度排序的降级结果：分数统一为 0.5，理由只有 "Trending"。
// 降级结果不写缓存，恢复后的下一次请求会重新计算。
// 已拉到的候选足够覆盖这一页时直接复用，否则重新查询热门视频。
func (e *Engine) fallback(
	ctx context.Context,
	log *logger.Logger,
	start time.Time,
	reason string,
	cause error,
	candidates []*core.Video,
	limit, offset int,
	exclude []string,
) []*core.Item {
	metrics.RecordFallback(reason)
	log.Warn("feed degraded to popularity fallback", "reason", reason, "error", cause)

	excluded := core.NewRecommendContext("", limit, offset, exclude)
	need := offset + limit + len(excluded.Exclude)

	if len(candidates) < need {
		qctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.deadline)
		videos, err := e.trending.Popular(qctx, need)
		cancel()
		if err != nil {
			log.Error("fallback popularity query failed", "error", err)
		} else {
			candidates = videos
		}
	}

	items := make([]*core.Item, 0, len(candidates))
	for _, v := range candidates {
		if v == nil || excluded.IsExcluded(v.ID) {
			continue
		}
		it := core.NewItem(v)
		it.Score = core.NeutralScore
		it.AddReason(rank.ReasonTrending)
		items = append(items, it)
	}

	metrics.RecordFeed(metrics.OutcomeFallback, time.Since(start))
	return rerank.Slice(items, offset, limit)
}
