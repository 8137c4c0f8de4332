// Package profile 从行为日志推导用户画像。
package profile

import (
	"context"
	"fmt"
	"math"

	"github.com/rushteam/feedrank/core"
)

// ActionWeights 是各行为对类别/地域偏好的贡献权重。skip 为负，表示反向信号。
var ActionWeights = map[core.Action]float64{
	core.ActionWatchComplete: 1.0,
	core.ActionShare:         0.9,
	core.ActionLike:          0.8,
	core.ActionComment:       0.7,
	core.ActionView:          0.3,
	core.ActionSkip:          -0.5,
}

// Source 是画像来源，Builder 与 CachedBuilder 都实现该接口。
type Source interface {
	Build(ctx context.Context, userID string) (*core.UserProfile, error)
}

// Builder 通过重放最近的行为构建画像。
type Builder struct {
	Log core.BehaviorLog

	// SampleSize 读取的最近行为条数，默认 core.ProfileSampleSize
	SampleSize int
}

func NewBuilder(log core.BehaviorLog) *Builder {
	return &Builder{Log: log, SampleSize: core.ProfileSampleSize}
}

// Build 读取用户最近的行为并聚合成画像；没有任何行为时返回冷启动画像。
func (b *Builder) Build(ctx context.Context, userID string) (*core.UserProfile, error) {
	size := b.SampleSize
	if size <= 0 {
		size = core.ProfileSampleSize
	}
	behaviors, err := b.Log.QueryByUser(ctx, userID, size)
	if err != nil {
		return nil, fmt.Errorf("profile: query behaviors: %w", err)
	}
	return Aggregate(userID, behaviors), nil
}

// Aggregate 是纯函数：同样的行为列表总是得到同样的画像。
// behaviors 需按时间倒序排列，LastActive 取第一条。
func Aggregate(userID string, behaviors []core.Behavior) *core.UserProfile {
	p := core.NewUserProfile(userID)
	if len(behaviors) == 0 {
		return p
	}

	var (
		totalWatch float64
		engaged    int
	)
	for _, bh := range behaviors {
		w := ActionWeights[bh.Action]
		if bh.Category != "" {
			p.PreferredCategories[bh.Category] += w
		}
		if bh.Location != "" {
			p.PreferredLocations[bh.Location] += w
		}
		totalWatch += bh.WatchTimeSeconds
		if bh.Action.IsEngagement() {
			engaged++
		}
		if bh.Timestamp.After(p.LastActive) {
			p.LastActive = bh.Timestamp
		}
	}

	normalize(p.PreferredCategories)
	normalize(p.PreferredLocations)

	n := float64(len(behaviors))
	p.AvgWatchTimeSeconds = totalWatch / n
	p.EngagementRate = float64(engaged) / n
	return p
}

// normalize 按维度最大值归一化，除数下限为 1。
func normalize(m map[string]float64) {
	maxVal := 1.0
	for _, v := range m {
		maxVal = math.Max(maxVal, v)
	}
	for k, v := range m {
		m[k] = v / maxVal
	}
}

var _ Source = (*Builder)(nil)
