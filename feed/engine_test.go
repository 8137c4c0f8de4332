package feed

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rushteam/feedrank/core"
	"github.com/rushteam/feedrank/profile"
	"github.com/rushteam/feedrank/rank"
	"github.com/rushteam/feedrank/recall"
	"github.com/rushteam/feedrank/rerank"
	"github.com/rushteam/feedrank/store"
	"github.com/rushteam/feedrank/tracker"
)

type env struct {
	log     *store.MemoryBehaviorLog
	catalog *store.MemoryCatalog
	cache   *store.MemoryFeedCache
	engine  *Engine
}

func newEnv(t *testing.T, videos []*core.Video, mutate func(*Options)) *env {
	t.Helper()
	log := store.NewMemoryBehaviorLog()
	catalog := store.NewMemoryCatalog(videos...)
	cache := store.NewMemoryFeedCache(time.Minute)
	t.Cleanup(func() { _ = cache.Close() })

	p, err := NewDefaultPipeline(rank.NewScorer(log), rerank.ByAttribute)
	if err != nil {
		t.Fatal(err)
	}
	opts := Options{
		Profiles: profile.NewBuilder(log),
		Trending: recall.NewTrending(catalog),
		History:  recall.NewUserHistory(log),
		Pipeline: p,
		Cache:    cache,
		Deadline: time.Second,
	}
	if mutate != nil {
		mutate(&opts)
	}
	e, err := NewEngine(opts)
	if err != nil {
		t.Fatal(err)
	}
	return &env{log: log, catalog: catalog, cache: cache, engine: e}
}

// scenarioA 返回 10 个候选：只有 C 有播放 / 点赞 / 分享。
func scenarioA() []*core.Video {
	now := time.Now()
	videos := make([]*core.Video, 0, 10)
	for i := 0; i < 9; i++ {
		videos = append(videos, &core.Video{
			ID:        fmt.Sprintf("v%d", i),
			Category:  fmt.Sprintf("cat%d", i%3),
			CreatedAt: now.Add(-time.Hour),
		})
	}
	videos = append(videos, &core.Video{
		ID: "C", Category: "cat0", CreatedAt: now.Add(-time.Hour),
		ViewCount: 1000, LikeCount: 100, ShareCount: 10,
	})
	return videos
}

func ids(items []*core.Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.VideoID)
	}
	return out
}

func TestNewEngine_RequiresDependencies(t *testing.T) {
	if _, err := NewEngine(Options{}); err == nil {
		t.Error("NewEngine(empty) returned no error")
	}
}

func TestGetPersonalizedFeed_ScenarioA(t *testing.T) {
	e := newEnv(t, scenarioA(), nil)
	items := e.engine.GetPersonalizedFeed(context.Background(), "new-user", 20, 0, nil)

	if len(items) != 10 {
		t.Fatalf("len = %d, want 10: %v", len(items), ids(items))
	}
	if items[0].VideoID != "C" {
		t.Fatalf("top = %s, want C (%v)", items[0].VideoID, ids(items))
	}
	if !items[0].HasReason(rank.ReasonTrending) {
		t.Errorf("C reasons = %v, want Trending", items[0].Reasons)
	}
	for i := 1; i < len(items); i++ {
		if items[i-1].Score < items[i].Score {
			t.Errorf("not sorted at %d", i)
		}
	}
}

func TestGetPersonalizedFeed_CachesPage(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, scenarioA(), nil)

	first := e.engine.GetPersonalizedFeed(ctx, "u", 5, 0, nil)
	cached, ok, err := e.cache.Get(ctx, "u", 0)
	if err != nil || !ok {
		t.Fatalf("page not cached: ok=%v err=%v", ok, err)
	}
	if len(cached) != len(first) {
		t.Errorf("cached %d items, returned %d", len(cached), len(first))
	}

	second := e.engine.GetPersonalizedFeed(ctx, "u", 5, 0, nil)
	if fmt.Sprint(ids(first)) != fmt.Sprint(ids(second)) {
		t.Errorf("cached page differs: %v vs %v", ids(second), ids(first))
	}
}

func TestGetPersonalizedFeed_ScenarioC(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, scenarioA(), nil)
	tr := tracker.New(e.log, e.cache, nil)

	_ = e.engine.GetPersonalizedFeed(ctx, "U", 5, 0, nil)
	gen, _ := e.cache.Generation(ctx, "U")

	// 换成一页可识别的缓存，确认缓存命中
	stale := []*core.Item{core.NewItem(&core.Video{ID: "stale"})}
	if err := e.cache.Set(ctx, "U", 0, stale, gen); err != nil {
		t.Fatal(err)
	}
	if got := e.engine.GetPersonalizedFeed(ctx, "U", 5, 0, nil); len(got) != 1 || got[0].VideoID != "stale" {
		t.Fatalf("expected cache hit, got %v", ids(got))
	}

	if err := tr.Track(ctx, core.Behavior{UserID: "U", VideoID: "X", Action: core.ActionSkip}); err != nil {
		t.Fatal(err)
	}
	got := e.engine.GetPersonalizedFeed(ctx, "U", 5, 0, nil)
	for _, it := range got {
		if it.VideoID == "stale" {
			t.Fatal("served a page cached before the tracked behavior")
		}
	}
	if len(got) != 5 {
		t.Errorf("len = %d, want 5", len(got))
	}
}

func TestGetPersonalizedFeed_Pagination(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, scenarioA(), nil)

	p0 := e.engine.GetPersonalizedFeed(ctx, "u", 3, 0, nil)
	p1 := e.engine.GetPersonalizedFeed(ctx, "u", 3, 3, nil)
	if len(p0) != 3 || len(p1) != 3 {
		t.Fatalf("page sizes = %d, %d", len(p0), len(p1))
	}
	seen := map[string]bool{}
	for _, it := range append(p0, p1...) {
		if seen[it.VideoID] {
			t.Errorf("duplicate %s across pages", it.VideoID)
		}
		seen[it.VideoID] = true
	}

	// 候选集为 2×limit，超出范围返回空页
	if got := e.engine.GetPersonalizedFeed(ctx, "u", 3, 6, nil); len(got) != 0 {
		t.Errorf("offset past candidates = %v, want empty", ids(got))
	}
}

func TestGetPersonalizedFeed_Exclude(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, scenarioA(), nil)

	items := e.engine.GetPersonalizedFeed(ctx, "u", 20, 0, []string{"C", "v1"})
	for _, it := range items {
		if it.VideoID == "C" || it.VideoID == "v1" {
			t.Errorf("excluded %s returned", it.VideoID)
		}
	}
	if len(items) != 8 {
		t.Errorf("len = %d, want 8", len(items))
	}
	if _, ok, _ := e.cache.Get(ctx, "u", 0); ok {
		t.Error("request with exclude list was cached")
	}
}

type failingProfiles struct{ err error }

func (f failingProfiles) Build(context.Context, string) (*core.UserProfile, error) {
	return nil, f.err
}

type slowProfiles struct{}

func (slowProfiles) Build(ctx context.Context, userID string) (*core.UserProfile, error) {
	select {
	case <-time.After(time.Second):
		return core.NewUserProfile(userID), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func assertFallback(t *testing.T, items []*core.Item, want []string) {
	t.Helper()
	if fmt.Sprint(ids(items)) != fmt.Sprint(want) {
		t.Fatalf("fallback = %v, want %v", ids(items), want)
	}
	for _, it := range items {
		if it.Score != core.NeutralScore {
			t.Errorf("%s score = %v, want 0.5", it.VideoID, it.Score)
		}
		if len(it.Reasons) != 1 || it.Reasons[0] != rank.ReasonTrending {
			t.Errorf("%s reasons = %v, want [Trending]", it.VideoID, it.Reasons)
		}
	}
}

func TestGetPersonalizedFeed_FallbackOnFetchError(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, scenarioA(), func(o *Options) {
		o.Profiles = failingProfiles{err: core.ErrBehaviorLogUnavailable}
	})

	// 热门顺序：C 在前，其余按 ID
	items := e.engine.GetPersonalizedFeed(ctx, "u", 3, 0, []string{"v0"})
	assertFallback(t, items, []string{"C", "v1", "v2"})

	items = e.engine.GetPersonalizedFeed(ctx, "u", 3, 3, nil)
	assertFallback(t, items, []string{"v2", "v3", "v4"})

	if _, ok, _ := e.cache.Get(ctx, "u", 0); ok {
		t.Error("fallback page was cached")
	}
}

func TestGetPersonalizedFeed_FallbackOnDeadline(t *testing.T) {
	e := newEnv(t, scenarioA(), func(o *Options) {
		o.Profiles = slowProfiles{}
		o.Deadline = 20 * time.Millisecond
	})

	start := time.Now()
	items := e.engine.GetPersonalizedFeed(context.Background(), "u", 2, 0, nil)
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("deadline not enforced: %v", elapsed)
	}
	assertFallback(t, items, []string{"C", "v0"})
}

type brokenCatalog struct{}

func (brokenCatalog) QueryTrending(context.Context, int) ([]*core.Video, error) {
	return nil, errors.New("catalog down")
}

func TestGetPersonalizedFeed_NoCandidatesAnywhere(t *testing.T) {
	e := newEnv(t, nil, func(o *Options) {
		o.Trending = recall.NewTrending(brokenCatalog{})
	})
	items := e.engine.GetPersonalizedFeed(context.Background(), "u", 5, 0, nil)
	if items == nil || len(items) != 0 {
		t.Errorf("items = %v, want empty non-nil", items)
	}
}

// brokenCache 的读写都失败，只有 Generation 正常。
type brokenCache struct {
	*store.MemoryFeedCache
}

func (brokenCache) Get(context.Context, string, int) ([]*core.Item, bool, error) {
	return nil, false, core.ErrCacheUnavailable
}

func (brokenCache) Set(context.Context, string, int, []*core.Item, uint64) error {
	return core.ErrCacheUnavailable
}

func TestGetPersonalizedFeed_CacheErrorIsMiss(t *testing.T) {
	e := newEnv(t, scenarioA(), func(o *Options) {
		mem := store.NewMemoryFeedCache(time.Minute)
		t.Cleanup(func() { _ = mem.Close() })
		o.Cache = brokenCache{MemoryFeedCache: mem}
	})
	items := e.engine.GetPersonalizedFeed(context.Background(), "u", 4, 0, nil)
	if len(items) != 4 {
		t.Fatalf("len = %d, want 4", len(items))
	}
	if items[0].VideoID != "C" {
		t.Errorf("top = %s, want C", items[0].VideoID)
	}
}

func TestNormalizePage(t *testing.T) {
	tests := []struct {
		limit, offset         int
		wantLimit, wantOffset int
	}{
		{0, 0, core.DefaultLimit, 0},
		{500, -3, core.MaxLimit, 0},
		{7, 14, 7, 14},
	}
	for _, tt := range tests {
		l, o := normalizePage(tt.limit, tt.offset)
		if l != tt.wantLimit || o != tt.wantOffset {
			t.Errorf("normalizePage(%d, %d) = %d, %d", tt.limit, tt.offset, l, o)
		}
	}
}
