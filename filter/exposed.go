package filter

import (
	"context"
	"time"

	"github.com/rushteam/feedrank/core"
)

// SkippedFilter 过滤用户最近主动跳过的视频。
// 数据来自请求携带的行为历史（rctx.History），不额外查询存储。
// Window 限定只看最近一段时间内的跳过；<= 0 表示历史中的所有跳过都生效。
type SkippedFilter struct {
	Window time.Duration

	// Now 时钟，默认 time.Now
	Now func() time.Time
}

func (f *SkippedFilter) Name() string {
	return "filter.skipped"
}

func (f *SkippedFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}
	if rctx == nil {
		return false, nil
	}

	var since time.Time
	if f.Window > 0 {
		now := time.Now()
		if f.Now != nil {
			now = f.Now()
		}
		since = now.Add(-f.Window)
	}

	for _, b := range rctx.History {
		if b.VideoID != item.VideoID || b.Action != core.ActionSkip {
			continue
		}
		if since.IsZero() || !b.Timestamp.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

var _ Filter = (*SkippedFilter)(nil)
