package config

import (
	"fmt"
	"time"

	"github.com/rushteam/feedrank/core"
	"github.com/rushteam/feedrank/filter"
	"github.com/rushteam/feedrank/pipeline"
	"github.com/rushteam/feedrank/pkg/conv"
	"github.com/rushteam/feedrank/pkg/logger"
	"github.com/rushteam/feedrank/rank"
	"github.com/rushteam/feedrank/rerank"
)

// 内置 Node 类型。
const (
	TypeExclude   = "filter.exclude"
	TypeBlacklist = "filter.blacklist"
	TypeSkipped   = "filter.skipped"
	TypeComposite = "rank.composite"
	TypeDiversity = "rerank.diversity"
	TypePage      = "rerank.page"
)

// Deps 是构建 Node 时需要的运行时依赖。
type Deps struct {
	Log                  core.BehaviorLog
	CollaborativeTimeout time.Duration
	Logger               *logger.Logger
}

// DefaultFactory 返回一个包含所有内置 Node 的默认工厂。
func DefaultFactory(deps Deps) *pipeline.NodeFactory {
	factory := pipeline.NewNodeFactory()

	// 注册 Filter Nodes
	factory.Register(TypeExclude, func(map[string]interface{}) (pipeline.Node, error) {
		return &filter.FilterNode{Filters: []filter.Filter{&filter.ExcludeFilter{}}, Logger: deps.Logger}, nil
	})
	factory.Register(TypeBlacklist, func(config map[string]interface{}) (pipeline.Node, error) {
		return buildBlacklistNode(config, deps)
	})
	factory.Register(TypeSkipped, func(config map[string]interface{}) (pipeline.Node, error) {
		return buildSkippedNode(config, deps)
	})

	// 注册 Rank Nodes
	factory.Register(TypeComposite, func(config map[string]interface{}) (pipeline.Node, error) {
		return buildCompositeNode(config, deps)
	})

	// 注册 ReRank Nodes
	factory.Register(TypeDiversity, buildDiversityNode)
	factory.Register(TypePage, func(map[string]interface{}) (pipeline.Node, error) {
		return &rerank.Page{}, nil
	})

	return factory
}

func buildBlacklistNode(config map[string]interface{}, deps Deps) (pipeline.Node, error) {
	ids := conv.SliceAnyToString(config["video_ids"])
	return &filter.FilterNode{
		Filters: []filter.Filter{filter.NewBlacklistFilter(ids)},
		Logger:  deps.Logger,
	}, nil
}

func buildSkippedNode(config map[string]interface{}, deps Deps) (pipeline.Node, error) {
	window, err := conv.ConfigGetDuration(config, "window", 0)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", TypeSkipped, err)
	}
	return &filter.FilterNode{
		Filters: []filter.Filter{&filter.SkippedFilter{Window: window}},
		Logger:  deps.Logger,
	}, nil
}

// buildCompositeNode 构建综合打分节点。配置示例：
//
//	weights:    {trending: 0.2, category: 0.25, ...}
//	thresholds: {trending: 0.7, ...}
//	concurrency: 8
//	rules:
//	  - tag: "Local Favorite"
//	    expr: 'breakdown.location > 0.9 && breakdown.engagement > 0.5'
func buildCompositeNode(config map[string]interface{}, deps Deps) (pipeline.Node, error) {
	if deps.Log == nil {
		return nil, fmt.Errorf("%s: behavior log is required", TypeComposite)
	}
	scorer := rank.NewScorer(deps.Log)
	scorer.Logger = deps.Logger
	scorer.Collaborative.Logger = deps.Logger
	if deps.CollaborativeTimeout > 0 {
		scorer.Collaborative.Timeout = deps.CollaborativeTimeout
	}

	if m, ok := conv.TypeAssert[map[string]interface{}](config["weights"]); ok {
		w, err := weightsFromMap(scorer.Weights, conv.MapToFloat64(m))
		if err != nil {
			return nil, err
		}
		scorer.Weights = w
	}
	if err := scorer.Weights.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", TypeComposite, err)
	}

	if m, ok := conv.TypeAssert[map[string]interface{}](config["thresholds"]); ok {
		t, err := thresholdsFromMap(scorer.Thresholds, conv.MapToFloat64(m))
		if err != nil {
			return nil, err
		}
		scorer.Thresholds = t
	}

	if n := conv.ConfigGetInt64(config, "concurrency", 0); n > 0 {
		scorer.Concurrency = int(n)
	}
	scorer.TagTrendingLeader = conv.ConfigGet(config, "trending_leader", true)

	rules, err := rulesFromConfig(config["rules"])
	if err != nil {
		return nil, err
	}
	scorer.Rules = rules

	return &rank.ScoreNode{Scorer: scorer}, nil
}

func weightsFromMap(w rank.Weights, m map[string]float64) (rank.Weights, error) {
	for k, v := range m {
		switch k {
		case "trending":
			w.Trending = v
		case "category":
			w.Category = v
		case "location":
			w.Location = v
		case "engagement":
			w.Engagement = v
		case "recency":
			w.Recency = v
		case "collaborative":
			w.Collaborative = v
		default:
			return w, fmt.Errorf("%s: unknown weight %q", TypeComposite, k)
		}
	}
	return w, nil
}

func thresholdsFromMap(t rank.Thresholds, m map[string]float64) (rank.Thresholds, error) {
	for k, v := range m {
		switch k {
		case "trending":
			t.Trending = v
		case "category":
			t.Category = v
		case "location":
			t.Location = v
		case "engagement":
			t.Engagement = v
		case "recency":
			t.Recency = v
		default:
			return t, fmt.Errorf("%s: unknown threshold %q", TypeComposite, k)
		}
	}
	return t, nil
}

func rulesFromConfig(v interface{}) ([]rank.ReasonRule, error) {
	raw, ok := conv.TypeAssert[[]interface{}](v)
	if !ok {
		return nil, nil
	}
	rules := make([]rank.ReasonRule, 0, len(raw))
	for i, r := range raw {
		m, ok := conv.TypeAssert[map[string]interface{}](r)
		if !ok {
			return nil, fmt.Errorf("%s: rule %d is not a map", TypeComposite, i)
		}
		tag := conv.ConfigGet[string](m, "tag", "")
		expr := conv.ConfigGet[string](m, "expr", "")
		if tag == "" || expr == "" {
			return nil, fmt.Errorf("%s: rule %d needs tag and expr", TypeComposite, i)
		}
		rule, err := rank.NewReasonRule(tag, expr)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", TypeComposite, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func buildDiversityNode(config map[string]interface{}) (pipeline.Node, error) {
	mode := conv.ConfigGet[string](config, "mode", string(rerank.ByAttribute))
	d, err := rerank.NewDiversity(rerank.DiversityMode(mode))
	if err != nil {
		return nil, err
	}
	if n := conv.ConfigGetInt64(config, "max_occurrences", 0); n > 0 {
		d.MaxOccurrences = int(n)
	}
	if p, ok := conv.ToFloat64(config["penalty"]); ok {
		if p < 0 {
			return nil, fmt.Errorf("%s: penalty must be non-negative", TypeDiversity)
		}
		d.Penalty = p
	}
	return d, nil
}
