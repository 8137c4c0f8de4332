package rerank

import (
	"context"
	"fmt"
	"sort"

	"github.com/rushteam/feedrank/core"
	"github.com/rushteam/feedrank/pipeline"
)

// DiversityMode 决定多样性计数器的 key。
type DiversityMode string

const (
	// ByAttribute 按类别、地域分别计数，同一类别 / 地域出现过多时降权
	ByAttribute DiversityMode = "by_attribute"

	// ByItem 按视频 ID 计数。候选不重复时不会触发惩罚
	ByItem DiversityMode = "by_item"
)

const (
	// DefaultMaxOccurrences 同一维度允许的出现次数，超过即惩罚
	DefaultMaxOccurrences = 2

	// DefaultPenalty 每个超限维度的扣分
	DefaultPenalty = 0.1
)

// Diversity 是多样性 ReRank：按排序顺序遍历，同一类别 / 地域的第 3 个及之后的视频，
// 每个超限维度扣 Penalty 分，Breakdown.Diversity = 1 - 总扣分，最后按调整后的分数稳定重排。
// 分数只会降低或不变。
type Diversity struct {
	Mode           DiversityMode
	MaxOccurrences int
	Penalty        float64
}

// NewDiversity 创建默认配置的多样性重排。
func NewDiversity(mode DiversityMode) (*Diversity, error) {
	switch mode {
	case "":
		mode = ByAttribute
	case ByAttribute, ByItem:
	default:
		return nil, fmt.Errorf("rerank: unknown diversity mode %q", mode)
	}
	return &Diversity{
		Mode:           mode,
		MaxOccurrences: DefaultMaxOccurrences,
		Penalty:        DefaultPenalty,
	}, nil
}

func (n *Diversity) Name() string {
	return "rerank.diversity"
}

func (n *Diversity) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *Diversity) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}

	maxOcc := n.MaxOccurrences
	if maxOcc <= 0 {
		maxOcc = DefaultMaxOccurrences
	}
	penalty := n.Penalty
	if penalty < 0 {
		penalty = 0
	}

	categories := make(map[string]int, 16)
	locations := make(map[string]int, 16)
	out := make([]*core.Item, 0, len(items))

	for _, it := range items {
		if it == nil {
			continue
		}
		catKey, locKey := n.keys(it)

		total := 0.0
		if catKey != "" {
			categories[catKey]++
			if categories[catKey] > maxOcc {
				total += penalty
			}
		}
		if locKey != "" {
			locations[locKey]++
			if locations[locKey] > maxOcc {
				total += penalty
			}
		}

		it.Score -= total
		it.Breakdown.Diversity = 1 - total
		out = append(out, it)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out, nil
}

func (n *Diversity) keys(it *core.Item) (category, location string) {
	if n.Mode == ByItem {
		return it.VideoID, it.VideoID
	}
	if it.Video == nil {
		return "", ""
	}
	return it.Video.Category, it.Video.Location
}

var _ pipeline.Node = (*Diversity)(nil)
