package core

// Breakdown 是各子分数（惩罚前，均在 0-1 之间）。
type Breakdown struct {
	Trending      float64 `json:"trending"`
	Engagement    float64 `json:"engagement"`
	Relevance     float64 `json:"relevance"`
	Recency       float64 `json:"recency"`
	Diversity     float64 `json:"diversity"`
	Collaborative float64 `json:"collaborative"`

	// Category / Location 是 Relevance 的两个组成部分，保留用于解释。
	Category float64 `json:"category"`
	Location float64 `json:"location"`
}

// Item 是推荐链路中的统一承载结构（即 VideoScore）：视频、分数、分项、推荐理由。
// Score 用于排序决策，经过多样性惩罚后可能小于 0，不做截断。
type Item struct {
	VideoID   string    `json:"videoId"`
	Score     float64   `json:"score"`
	Reasons   []string  `json:"reasons"`
	Breakdown Breakdown `json:"breakdown"`

	// Video 是打分时使用的候选视频，不参与序列化。
	Video *Video `json:"-"`
}

func NewItem(v *Video) *Item {
	it := &Item{
		Reasons:   make([]string, 0, 2),
		Breakdown: Breakdown{Diversity: 1},
		Video:     v,
	}
	if v != nil {
		it.VideoID = v.ID
	}
	return it
}

// AddReason 追加推荐理由，重复的理由只保留首次出现。
func (it *Item) AddReason(reason string) {
	if reason == "" {
		return
	}
	for _, r := range it.Reasons {
		if r == reason {
			return
		}
	}
	it.Reasons = append(it.Reasons, reason)
}

// HasReason 判断是否已包含某个推荐理由。
func (it *Item) HasReason(reason string) bool {
	for _, r := range it.Reasons {
		if r == reason {
			return true
		}
	}
	return false
}

// Clone 返回深拷贝，缓存读写时使用，避免调用方修改共享数据。
func (it *Item) Clone() *Item {
	if it == nil {
		return nil
	}
	out := *it
	out.Reasons = append([]string(nil), it.Reasons...)
	return &out
}

// CloneItems 深拷贝一页结果。
func CloneItems(items []*Item) []*Item {
	if items == nil {
		return nil
	}
	out := make([]*Item, 0, len(items))
	for _, it := range items {
		out = append(out, it.Clone())
	}
	return out
}
