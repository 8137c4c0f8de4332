package rank

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/feedrank/core"
	"github.com/rushteam/feedrank/pkg/dsl"
	"github.com/rushteam/feedrank/pkg/logger"
)

// ReasonRule 是可配置的推荐理由：表达式为真时追加 Tag。
type ReasonRule struct {
	Tag  string
	Expr *dsl.Expr
}

// NewReasonRule 编译一条规则。
func NewReasonRule(tag, expr string) (ReasonRule, error) {
	e, err := dsl.Compile(expr)
	if err != nil {
		return ReasonRule{}, fmt.Errorf("reason rule %q: %w", tag, err)
	}
	return ReasonRule{Tag: tag, Expr: e}, nil
}

// Scorer 是多因子加权打分器。
//
// 综合分 = Σ weight × subscore，六个子分数：
//
//	Trending       热度（播放/点赞/分享的对数均值 × 48 小时衰减）
//	Category       类别偏好匹配
//	Location       地域偏好匹配
//	Engagement     互动率
//	Recency        新鲜度（7 天衰减）
//	Collaborative  相似用户点赞比例
//
// 对同样的 (视频, 画像, 历史, 行为日志状态, 时间) 输入，输出完全一致。
type Scorer struct {
	Weights       Weights
	Thresholds    Thresholds
	Collaborative *Collaborative
	Rules         []ReasonRule

	// Concurrency 并发打分的候选数上限，默认 8
	Concurrency int

	// TagTrendingLeader 为 true 时本批热度第一的候选即使未过阈值也打 "Trending"
	TagTrendingLeader bool

	// Now 时钟，默认 time.Now
	Now func() time.Time

	Logger *logger.Logger
}

// NewScorer 使用默认权重与阈值创建打分器。
func NewScorer(log core.BehaviorLog) *Scorer {
	return &Scorer{
		Weights:       DefaultWeights(),
		Thresholds:    DefaultThresholds(),
		Collaborative: &Collaborative{Log: log},
		Concurrency:   8,
		Now:           time.Now,

		TagTrendingLeader: true,
	}
}

func (s *Scorer) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Score 对单个候选打分（包含两步协同过滤查询）。
func (s *Scorer) Score(ctx context.Context, v *core.Video, p *core.UserProfile, history []core.Behavior) *core.Item {
	userID := ""
	if p != nil {
		userID = p.UserID
	}
	n := s.resolve(ctx, userID, history)
	return s.score(ctx, v, p, n, nil, s.now())
}

// ScoreAll 对所有候选打分并按综合分降序返回（同分保持输入顺序）。
// 相似用户在一次请求内只查询一次；ctx 超时时返回错误，由调用方降级。
func (s *Scorer) ScoreAll(ctx context.Context, rctx *core.RecommendContext, videos []*core.Video) ([]*core.Item, error) {
	if len(videos) == 0 {
		return []*core.Item{}, nil
	}
	now := s.now()
	n := s.resolve(ctx, rctx.UserID, rctx.History)

	items := make([]*core.Item, len(videos))
	g, gctx := errgroup.WithContext(ctx)
	limit := s.Concurrency
	if limit <= 0 {
		limit = 8
	}
	g.SetLimit(limit)
	for i, v := range videos {
		i, v := i, v
		g.Go(func() error {
			items[i] = s.score(gctx, v, rctx.Profile, n, rctx, now)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("rank: %w", err)
	}

	if s.TagTrendingLeader {
		s.tagTrendingLeader(items)
	}
	SortByScore(items)
	return items, nil
}

func (s *Scorer) resolve(ctx context.Context, userID string, history []core.Behavior) *Neighbors {
	if s.Collaborative == nil {
		return &Neighbors{}
	}
	return s.Collaborative.Resolve(ctx, userID, history)
}

func (s *Scorer) score(ctx context.Context, v *core.Video, p *core.UserProfile, n *Neighbors, rctx *core.RecommendContext, now time.Time) *core.Item {
	if p == nil {
		p = core.NewUserProfile("")
	}
	it := core.NewItem(v)

	trending := TrendingScore(v, now)
	category := CategoryMatch(p, v)
	location := LocationMatch(p, v)
	engagement := EngagementScore(v)
	recency := RecencyScore(v, now)
	collab := core.NeutralScore
	if s.Collaborative != nil {
		collab = s.Collaborative.Score(ctx, n, v.ID)
	}

	w := s.Weights
	it.Score = w.Trending*trending +
		w.Category*category +
		w.Location*location +
		w.Engagement*engagement +
		w.Recency*recency +
		w.Collaborative*collab

	it.Breakdown = core.Breakdown{
		Trending:      trending,
		Engagement:    engagement,
		Relevance:     relevance(w, category, location),
		Recency:       recency,
		Diversity:     1,
		Collaborative: collab,
		Category:      category,
		Location:      location,
	}

	th := s.Thresholds
	if trending > th.Trending {
		it.AddReason(ReasonTrending)
	}
	if category > th.Category {
		it.AddReason(v.Category)
	}
	if location > th.Location && v.HasLocation() {
		it.AddReason(v.Location)
	}
	if engagement > th.Engagement {
		it.AddReason(ReasonHighEngagement)
	}
	if recency > th.Recency {
		it.AddReason(ReasonNew)
	}
	s.applyRules(it, rctx)
	return it
}

func (s *Scorer) applyRules(it *core.Item, rctx *core.RecommendContext) {
	for _, r := range s.Rules {
		ok, err := r.Expr.Evaluate(it, rctx)
		if err != nil {
			logger.OrNop(s.Logger).Debug("reason rule failed", "tag", r.Tag, "expr", r.Expr.String(), "error", err)
			continue
		}
		if ok {
			it.AddReason(r.Tag)
		}
	}
}

// tagTrendingLeader 给本批热度最高（且 > 0）的候选补打 "Trending"，即使未过阈值。
// 并列第一时不打标。
func (s *Scorer) tagTrendingLeader(items []*core.Item) {
	var (
		leader *core.Item
		tied   bool
	)
	for _, it := range items {
		if it == nil || it.Breakdown.Trending <= 0 {
			continue
		}
		switch {
		case leader == nil || it.Breakdown.Trending > leader.Breakdown.Trending:
			leader, tied = it, false
		case it.Breakdown.Trending == leader.Breakdown.Trending:
			tied = true
		}
	}
	if leader != nil && !tied && !leader.HasReason(ReasonTrending) {
		// 热度标签放在最前
		leader.Reasons = append([]string{ReasonTrending}, leader.Reasons...)
	}
}

// relevance 是类别与地域匹配按各自权重的加权平均。
func relevance(w Weights, category, location float64) float64 {
	total := w.Category + w.Location
	if total <= 0 {
		return 0
	}
	return (w.Category*category + w.Location*location) / total
}

// SortByScore 按综合分降序稳定排序。
func SortByScore(items []*core.Item) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Score > items[j].Score
	})
}
