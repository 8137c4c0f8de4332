package pipeline

import (
	"context"
	"fmt"

	"github.com/rushteam/feedrank/core"
)

// Pipeline 把 Feed 打分逻辑拆成可组合的 Node 链：Filter → Rank → ReRank → PostProcess。
type Pipeline struct {
	Nodes []Node
}

// Run 依次执行各 Node。每个 Node 之前检查 ctx，超时后立即返回，由调用方走降级。
func (p *Pipeline) Run(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	cur := items
	for _, node := range p.Nodes {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("pipeline %s: %w", node.Name(), err)
		}
		next, err := node.Process(ctx, rctx, cur)
		if err != nil {
			return nil, fmt.Errorf("pipeline %s: %w", node.Name(), err)
		}
		cur = next
	}
	return cur, nil
}

// Names 返回各 Node 名称，用于日志。
func (p *Pipeline) Names() []string {
	names := make([]string, 0, len(p.Nodes))
	for _, n := range p.Nodes {
		names = append(names, n.Name())
	}
	return names
}
