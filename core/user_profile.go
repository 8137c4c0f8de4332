package core

import "time"

// UserProfile 是由行为日志推导出的用户画像。
//
// 它不是数据源，只是行为日志的一个投影：
//   - 偏好分数由行为权重累加后按维度最大值归一化
//   - 缓存的画像仅用于加速，随时可以丢弃重建
//
// 设计要点：
//
//	维度              作用
//	类别偏好          Relevance 打分（权重最高）
//	地域偏好          Relevance 打分
//	平均观看时长      观测 / 后续策略
//	互动率            观测 / 后续策略
type UserProfile struct {
	UserID string `json:"userId"`

	// key: category / location，value: 归一化分数（skip 可能导致负值）
	PreferredCategories map[string]float64 `json:"preferredCategories"`
	PreferredLocations  map[string]float64 `json:"preferredLocations"`

	AvgWatchTimeSeconds float64   `json:"avgWatchTimeSeconds"`
	EngagementRate      float64   `json:"engagementRate"`
	LastActive          time.Time `json:"lastActive"`
}

// 冷启动默认值。
const (
	ColdStartAvgWatchTimeSeconds = 30
	ColdStartEngagementRate      = 0.1
)

// NewUserProfile 创建一个冷启动画像：空偏好、默认观看时长与互动率。
func NewUserProfile(userID string) *UserProfile {
	return &UserProfile{
		UserID:              userID,
		PreferredCategories: make(map[string]float64),
		PreferredLocations:  make(map[string]float64),
		AvgWatchTimeSeconds: ColdStartAvgWatchTimeSeconds,
		EngagementRate:      ColdStartEngagementRate,
	}
}

// Category 返回类别偏好分数，不存在时返回 false。
func (p *UserProfile) Category(name string) (float64, bool) {
	if p == nil || p.PreferredCategories == nil {
		return 0, false
	}
	v, ok := p.PreferredCategories[name]
	return v, ok
}

// Location 返回地域偏好分数，不存在时返回 false。
func (p *UserProfile) Location(name string) (float64, bool) {
	if p == nil || p.PreferredLocations == nil {
		return 0, false
	}
	v, ok := p.PreferredLocations[name]
	return v, ok
}
