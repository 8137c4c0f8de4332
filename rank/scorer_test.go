package rank

import (
	"context"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/rushteam/feedrank/core"
	"github.com/rushteam/feedrank/store"
)

func newTestScorer(log core.BehaviorLog) *Scorer {
	s := NewScorer(log)
	s.Now = func() time.Time { return testNow }
	return s
}

func like(user, video string, at time.Time) core.Behavior {
	return core.Behavior{UserID: user, VideoID: video, Action: core.ActionLike, Timestamp: at}
}

// A 和 B 都点赞了 V1、V2，只有 B 点赞了 V3。
func scenarioBLog(t *testing.T) *store.MemoryBehaviorLog {
	t.Helper()
	ctx := context.Background()
	log := store.NewMemoryBehaviorLog()
	for i, b := range []core.Behavior{
		like("A", "V1", testNow.Add(-5*time.Hour)),
		like("A", "V2", testNow.Add(-4*time.Hour)),
		like("B", "V1", testNow.Add(-3*time.Hour)),
		like("B", "V2", testNow.Add(-2*time.Hour)),
		like("B", "V3", testNow.Add(-1*time.Hour)),
	} {
		if err := log.Append(ctx, b); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	return log
}

func TestScorer_CollaborativeScenarioB(t *testing.T) {
	ctx := context.Background()
	log := scenarioBLog(t)
	s := newTestScorer(log)

	history, _ := log.QueryByUser(ctx, "A", core.HistorySize)
	p := core.NewUserProfile("A")
	v3 := &core.Video{ID: "V3", Category: "music", CreatedAt: testNow.Add(-time.Hour)}

	it := s.Score(ctx, v3, p, history)
	if it.Breakdown.Collaborative <= 0 {
		t.Fatalf("collaborative = %v, want > 0", it.Breakdown.Collaborative)
	}
	if it.Breakdown.Collaborative <= core.NeutralScore {
		t.Errorf("collaborative = %v, want > neutral since B is a similar user", it.Breakdown.Collaborative)
	}
	if it.Breakdown.Collaborative != 1 {
		t.Errorf("collaborative = %v, want 1 (1 of 1 similar users liked V3)", it.Breakdown.Collaborative)
	}

	// 对 A 未点赞、B 也未点赞的视频，比例为 0
	v4 := &core.Video{ID: "V4", CreatedAt: testNow}
	if got := s.Score(ctx, v4, p, history).Breakdown.Collaborative; got != 0 {
		t.Errorf("collaborative(V4) = %v, want 0", got)
	}
}

func TestScorer_CollaborativeNeutral(t *testing.T) {
	ctx := context.Background()
	log := scenarioBLog(t)
	s := newTestScorer(log)
	v := &core.Video{ID: "V3", CreatedAt: testNow}

	// 没有点赞历史
	if got := s.Score(ctx, v, core.NewUserProfile("Z"), nil).Breakdown.Collaborative; got != core.NeutralScore {
		t.Errorf("no likes: collaborative = %v, want 0.5", got)
	}

	// 有点赞但没有相似用户
	history := []core.Behavior{like("Z", "V-unknown", testNow)}
	if got := s.Score(ctx, v, core.NewUserProfile("Z"), history).Breakdown.Collaborative; got != core.NeutralScore {
		t.Errorf("no similar users: collaborative = %v, want 0.5", got)
	}
}

type slowLog struct {
	core.BehaviorLog
	delay time.Duration
}

func (s *slowLog) QueryUsersWhoActedOn(ctx context.Context, videoIDs []string, action core.Action, excludeUserID string, limit int) ([]string, error) {
	select {
	case <-time.After(s.delay):
		return s.BehaviorLog.QueryUsersWhoActedOn(ctx, videoIDs, action, excludeUserID, limit)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestScorer_CollaborativeTimeoutDegrades(t *testing.T) {
	ctx := context.Background()
	log := &slowLog{BehaviorLog: scenarioBLog(t), delay: time.Second}
	s := newTestScorer(log)
	s.Collaborative.Timeout = 5 * time.Millisecond

	history := []core.Behavior{like("A", "V1", testNow), like("A", "V2", testNow)}
	start := time.Now()
	it := s.Score(ctx, &core.Video{ID: "V3", CreatedAt: testNow}, core.NewUserProfile("A"), history)
	if it.Breakdown.Collaborative != core.NeutralScore {
		t.Errorf("collaborative = %v, want neutral on timeout", it.Breakdown.Collaborative)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Errorf("collaborative lookup not time-boxed: took %v", time.Since(start))
	}
}

func TestScorer_CompositeAndReasons(t *testing.T) {
	ctx := context.Background()
	s := newTestScorer(store.NewMemoryBehaviorLog())

	p := core.NewUserProfile("u")
	p.PreferredCategories["music"] = 1
	p.PreferredLocations["Hanoi"] = 0.8

	v := &core.Video{
		ID: "v1", Category: "music", Location: "Hanoi",
		ViewCount: 100, LikeCount: 20, CommentCount: 5, ShareCount: 5,
		CreatedAt: testNow.Add(-30 * time.Minute),
	}
	it := s.Score(ctx, v, p, nil)

	trending := TrendingScore(v, testNow)
	engagement := EngagementScore(v)
	recency := RecencyScore(v, testNow)
	want := 0.20*trending + 0.25*1 + 0.20*0.8 + 0.20*engagement + 0.10*recency + 0.05*0.5
	if math.Abs(it.Score-want) > 1e-12 {
		t.Errorf("Score = %v, want %v", it.Score, want)
	}
	if it.Breakdown.Diversity != 1 {
		t.Errorf("Diversity = %v, want 1 before re-ranking", it.Breakdown.Diversity)
	}
	if math.Abs(it.Breakdown.Relevance-(0.25*1+0.20*0.8)/0.45) > 1e-12 {
		t.Errorf("Relevance = %v", it.Breakdown.Relevance)
	}

	// engagement = (0.2*0.5+0.05*0.3+0.05*0.2)*10 = 1.25 → 1
	wantReasons := []string{"music", "Hanoi", ReasonHighEngagement, ReasonNew}
	if !reflect.DeepEqual(it.Reasons, wantReasons) {
		t.Errorf("Reasons = %v, want %v", it.Reasons, wantReasons)
	}
}

func TestScorer_Deterministic(t *testing.T) {
	ctx := context.Background()
	log := scenarioBLog(t)
	s := newTestScorer(log)

	p := core.NewUserProfile("A")
	p.PreferredCategories["music"] = 0.6
	history, _ := log.QueryByUser(ctx, "A", core.HistorySize)
	v := &core.Video{ID: "V3", Category: "music", ViewCount: 321, LikeCount: 12, CreatedAt: testNow.Add(-50 * time.Hour)}

	first := s.Score(ctx, v, p, history)
	for i := 0; i < 20; i++ {
		again := s.Score(ctx, v, p, history)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs: %+v vs %+v", i, again, first)
		}
	}
}

func TestScorer_ScoreAllSortedAndLeaderTagged(t *testing.T) {
	ctx := context.Background()
	s := newTestScorer(store.NewMemoryBehaviorLog())

	videos := make([]*core.Video, 0, 10)
	for i := 0; i < 9; i++ {
		videos = append(videos, &core.Video{ID: string(rune('a' + i)), Category: "misc", CreatedAt: testNow.Add(-time.Hour)})
	}
	c := &core.Video{ID: "C", Category: "misc", ViewCount: 1000, LikeCount: 100, ShareCount: 10, CreatedAt: testNow.Add(-time.Hour)}
	videos = append(videos, c)

	rctx := core.NewRecommendContext("new-user", 20, 0, nil)
	rctx.Profile = core.NewUserProfile("new-user")

	items, err := s.ScoreAll(ctx, rctx, videos)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 10 {
		t.Fatalf("len = %d", len(items))
	}
	if items[0].VideoID != "C" {
		t.Fatalf("top = %s, want C", items[0].VideoID)
	}
	if !items[0].HasReason(ReasonTrending) {
		t.Errorf("C reasons = %v, want Trending", items[0].Reasons)
	}
	for i := 1; i < len(items); i++ {
		if items[i-1].Score < items[i].Score {
			t.Fatalf("not sorted at %d", i)
		}
		if items[i].HasReason(ReasonTrending) {
			t.Errorf("%s tagged Trending with zero counts", items[i].VideoID)
		}
	}
}

func TestScorer_TrendingLeaderDisabled(t *testing.T) {
	s := newTestScorer(store.NewMemoryBehaviorLog())
	s.TagTrendingLeader = false

	videos := []*core.Video{
		{ID: "a", Category: "misc", CreatedAt: testNow.Add(-time.Hour)},
		{ID: "C", Category: "misc", ViewCount: 1000, LikeCount: 100, ShareCount: 10, CreatedAt: testNow.Add(-time.Hour)},
	}
	rctx := core.NewRecommendContext("new-user", 20, 0, nil)
	rctx.Profile = core.NewUserProfile("new-user")

	items, err := s.ScoreAll(context.Background(), rctx, videos)
	if err != nil {
		t.Fatal(err)
	}
	if items[0].VideoID != "C" {
		t.Fatalf("top = %s, want C", items[0].VideoID)
	}
	if items[0].Breakdown.Trending > s.Thresholds.Trending {
		t.Fatalf("trending = %v, fixture must stay below threshold", items[0].Breakdown.Trending)
	}
	if items[0].HasReason(ReasonTrending) {
		t.Errorf("C reasons = %v, want no Trending below threshold", items[0].Reasons)
	}
}

func TestScorer_ScoreAllHonorsDeadline(t *testing.T) {
	s := newTestScorer(store.NewMemoryBehaviorLog())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rctx := core.NewRecommendContext("u", 10, 0, nil)
	if _, err := s.ScoreAll(ctx, rctx, []*core.Video{{ID: "v"}}); err == nil {
		t.Error("ScoreAll() on canceled context returned no error")
	}
}

func TestScorer_ReasonRules(t *testing.T) {
	ctx := context.Background()
	s := newTestScorer(store.NewMemoryBehaviorLog())
	rule, err := NewReasonRule("Music Pick", `video.category == "music" && breakdown.category <= 0.3`)
	if err != nil {
		t.Fatal(err)
	}
	s.Rules = []ReasonRule{rule}

	it := s.Score(ctx, &core.Video{ID: "v", Category: "music", CreatedAt: testNow.Add(-48 * time.Hour)}, core.NewUserProfile("u"), nil)
	if !it.HasReason("Music Pick") {
		t.Errorf("Reasons = %v, want rule tag", it.Reasons)
	}

	if _, err := NewReasonRule("broken", `video.category ==`); err == nil {
		t.Error("invalid rule compiled")
	}
}
