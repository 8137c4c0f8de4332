package rank

import (
	"context"

	"github.com/rushteam/feedrank/core"
	"github.com/rushteam/feedrank/pipeline"
)

// ScoreNode 是打分排序 Node：对每个候选计算综合分、分项与推荐理由，并按分数降序排列。
// 输入 items 需带 Video（由编排层用 core.NewItem 包装候选）。
type ScoreNode struct {
	Scorer *Scorer
}

func (n *ScoreNode) Name() string        { return "rank.composite" }
func (n *ScoreNode) Kind() pipeline.Kind { return pipeline.KindRank }

func (n *ScoreNode) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	videos := make([]*core.Video, 0, len(items))
	for _, it := range items {
		if it == nil || it.Video == nil {
			continue
		}
		videos = append(videos, it.Video)
	}
	return n.Scorer.ScoreAll(ctx, rctx, videos)
}

// 确保 ScoreNode 实现 pipeline.Node
var _ pipeline.Node = (*ScoreNode)(nil)
