package filter

import (
	"context"

	"github.com/rushteam/feedrank/core"
)

// ExcludeFilter 过滤调用方在请求中显式排除的视频。
type ExcludeFilter struct{}

func (f *ExcludeFilter) Name() string {
	return "filter.exclude"
}

func (f *ExcludeFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}
	return rctx.IsExcluded(item.VideoID), nil
}

var _ Filter = (*ExcludeFilter)(nil)
