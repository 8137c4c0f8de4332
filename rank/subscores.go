package rank

import (
	"math"
	"time"

	"github.com/rushteam/feedrank/core"
)

// 以下子分数都是纯函数，便于单测与复现。

// TrendingScore = avg(log10(views+1)/5, log10(likes+1)/3, log10(shares+1)/2) × exp(-hours/48)，上限 1。
func TrendingScore(v *core.Video, now time.Time) float64 {
	views := math.Log10(float64(nonNeg(v.ViewCount))+1) / 5
	likes := math.Log10(float64(nonNeg(v.LikeCount))+1) / 3
	shares := math.Log10(float64(nonNeg(v.ShareCount))+1) / 2
	base := (views + likes + shares) / 3
	return math.Min(base*TrendingDecay(hoursSince(v.CreatedAt, now)), 1)
}

// TrendingDecay 热度时间衰减因子。
func TrendingDecay(hours float64) float64 {
	return math.Exp(-math.Max(hours, 0) / TrendingDecayHours)
}

// EngagementScore = clip((likeRate×0.5 + commentRate×0.3 + shareRate×0.2) × 10, 0, 1)，
// 各 rate 的分母为 max(views, 1)。
func EngagementScore(v *core.Video) float64 {
	views := math.Max(float64(v.ViewCount), 1)
	likeRate := float64(nonNeg(v.LikeCount)) / views
	commentRate := float64(nonNeg(v.CommentCount)) / views
	shareRate := float64(nonNeg(v.ShareCount)) / views
	return clip((likeRate*0.5+commentRate*0.3+shareRate*0.2)*EngagementScale, 0, 1)
}

// RecencyScore = exp(-days/7)。
func RecencyScore(v *core.Video, now time.Time) float64 {
	return Recency(hoursSince(v.CreatedAt, now) / 24)
}

// Recency 按天数计算新鲜度：Recency(0) = 1，Recency(7) = e^-1。
func Recency(days float64) float64 {
	return math.Exp(-math.Max(days, 0) / RecencyDecayDays)
}

// CategoryMatch 返回画像中的类别偏好，缺失时为 0.3。
func CategoryMatch(p *core.UserProfile, v *core.Video) float64 {
	if s, ok := p.Category(v.Category); ok {
		return s
	}
	return DefaultCategoryScore
}

// LocationMatch 返回画像中的地域偏好，缺失时为 0.3；视频无地域时为 0.5。
func LocationMatch(p *core.UserProfile, v *core.Video) float64 {
	if !v.HasLocation() {
		return NoLocationScore
	}
	if s, ok := p.Location(v.Location); ok {
		return s
	}
	return DefaultLocationScore
}

func hoursSince(t, now time.Time) float64 {
	if t.IsZero() {
		return 0
	}
	return math.Max(now.Sub(t).Hours(), 0)
}

func nonNeg(n int64) int64 {
	if n < 0 {
		return 0
	}
	return n
}

func clip(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
