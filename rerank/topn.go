package rerank

import (
	"context"

	"github.com/rushteam/feedrank/core"
	"github.com/rushteam/feedrank/pipeline"
)

// Page 是分页截断节点，返回 [offset, offset+limit) 区间。
// 分页参数取自 RecommendContext；offset 超出范围时返回空页。
//
// 候选集大小为 2×limit，因此 offset >= 2×limit 的请求总是得到空页。
type Page struct{}

func (n *Page) Name() string {
	return "rerank.page"
}

func (n *Page) Kind() pipeline.Kind {
	return pipeline.KindPostProcess
}

func (n *Page) Process(
	_ context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if rctx == nil {
		return items, nil
	}
	return Slice(items, rctx.Offset, rctx.Limit), nil
}

// Slice 截取 [offset, offset+limit)，limit <= 0 时不截断尾部。
func Slice(items []*core.Item, offset, limit int) []*core.Item {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []*core.Item{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}

var _ pipeline.Node = (*Page)(nil)
