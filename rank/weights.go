package rank

import (
	"fmt"
	"math"
)

// Weights 是综合分的线性权重表。默认值之和为 1。
type Weights struct {
	Trending      float64 `yaml:"trending" json:"trending"`
	Category      float64 `yaml:"category" json:"category"`
	Location      float64 `yaml:"location" json:"location"`
	Engagement    float64 `yaml:"engagement" json:"engagement"`
	Recency       float64 `yaml:"recency" json:"recency"`
	Collaborative float64 `yaml:"collaborative" json:"collaborative"`
}

// DefaultWeights 返回默认权重。
func DefaultWeights() Weights {
	return Weights{
		Trending:      0.20,
		Category:      0.25,
		Location:      0.20,
		Engagement:    0.20,
		Recency:       0.10,
		Collaborative: 0.05,
	}
}

// Sum 返回权重之和。
func (w Weights) Sum() float64 {
	return w.Trending + w.Category + w.Location + w.Engagement + w.Recency + w.Collaborative
}

// Validate 要求权重非负且总和为 1（允许 1e-6 误差）。
func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"trending": w.Trending, "category": w.Category, "location": w.Location,
		"engagement": w.Engagement, "recency": w.Recency, "collaborative": w.Collaborative,
	} {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("weight %s must be non-negative, got %v", name, v)
		}
	}
	if math.Abs(w.Sum()-1) > 1e-6 {
		return fmt.Errorf("weights must sum to 1, got %.6f", w.Sum())
	}
	return nil
}

// Thresholds 是打推荐理由的阈值（严格大于才打标）。
type Thresholds struct {
	Trending   float64 `yaml:"trending" json:"trending"`
	Category   float64 `yaml:"category" json:"category"`
	Location   float64 `yaml:"location" json:"location"`
	Engagement float64 `yaml:"engagement" json:"engagement"`
	Recency    float64 `yaml:"recency" json:"recency"`
}

// DefaultThresholds 返回默认阈值。
func DefaultThresholds() Thresholds {
	return Thresholds{
		Trending:   0.7,
		Category:   0.7,
		Location:   0.7,
		Engagement: 0.8,
		Recency:    0.9,
	}
}

// 子分数常量。
const (
	// DefaultCategoryScore 画像中没有该类别时的匹配分
	DefaultCategoryScore = 0.3
	// DefaultLocationScore 画像中没有该地域时的匹配分
	DefaultLocationScore = 0.3
	// NoLocationScore 视频没有地域信息时的匹配分
	NoLocationScore = 0.5

	// TrendingDecayHours 热度衰减时间常数（小时）
	TrendingDecayHours = 48.0
	// RecencyDecayDays 新鲜度衰减时间常数（天）
	RecencyDecayDays = 7.0

	// EngagementScale 互动率放大倍数
	EngagementScale = 10.0
)

// 推荐理由
const (
	ReasonTrending       = "Trending"
	ReasonHighEngagement = "High Engagement"
	ReasonNew            = "New"
)
