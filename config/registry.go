package config

import (
	"fmt"

	"github.com/rushteam/feedrank/pipeline"
)

// ValidatePipeline 校验 pipeline 配置：节点类型均已注册；排除过滤、综合打分、分页节点
// 各恰好一个，排除过滤在打分之前，分页是最后一个节点。
// 有未支持类型时返回包含已支持列表的错误。
func ValidatePipeline(cfg pipeline.Config, factory *pipeline.NodeFactory) error {
	if len(cfg.Nodes) == 0 {
		return fmt.Errorf("pipeline %q has no nodes", cfg.Name)
	}
	pos := map[string][]int{}
	for i, nc := range cfg.Nodes {
		if !factory.Has(nc.Type) {
			return fmt.Errorf("unsupported node type %q (supported: %v)", nc.Type, factory.Types())
		}
		pos[nc.Type] = append(pos[nc.Type], i)
	}
	for _, typ := range []string{TypeExclude, TypeComposite, TypePage} {
		if n := len(pos[typ]); n != 1 {
			return fmt.Errorf("pipeline %q must contain exactly one %s node, got %d", cfg.Name, typ, n)
		}
	}
	if pos[TypeExclude][0] > pos[TypeComposite][0] {
		return fmt.Errorf("pipeline %q: %s must come before %s", cfg.Name, TypeExclude, TypeComposite)
	}
	if pos[TypePage][0] != len(cfg.Nodes)-1 {
		return fmt.Errorf("pipeline %q: %s must be the last node", cfg.Name, TypePage)
	}
	return nil
}

// BuildPipeline 校验并构建 pipeline。
func BuildPipeline(cfg pipeline.Config, deps Deps) (*pipeline.Pipeline, error) {
	factory := DefaultFactory(deps)
	if err := ValidatePipeline(cfg, factory); err != nil {
		return nil, err
	}
	return cfg.BuildPipeline(factory)
}
