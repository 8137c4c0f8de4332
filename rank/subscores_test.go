package rank

import (
	"math"
	"testing"
	"time"

	"github.com/rushteam/feedrank/core"
)

var testNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func TestRecency(t *testing.T) {
	if got := Recency(0); got != 1.0 {
		t.Errorf("Recency(0) = %v, want 1", got)
	}
	if got := Recency(7); math.Abs(got-math.Exp(-1)) > 1e-12 {
		t.Errorf("Recency(7) = %v, want %v", got, math.Exp(-1))
	}
	if got := Recency(7); math.Abs(got-0.368) > 0.001 {
		t.Errorf("Recency(7) = %v, want ≈0.368", got)
	}

	v := &core.Video{CreatedAt: testNow.Add(-7 * 24 * time.Hour)}
	if got := RecencyScore(v, testNow); math.Abs(got-math.Exp(-1)) > 1e-9 {
		t.Errorf("RecencyScore(7 days) = %v", got)
	}
}

func TestTrendingScore_MonotonicInAge(t *testing.T) {
	prev := math.Inf(1)
	for h := 0; h <= 24*30; h += 3 {
		v := &core.Video{ViewCount: 50000, LikeCount: 3000, ShareCount: 400, CreatedAt: testNow.Add(-time.Duration(h) * time.Hour)}
		got := TrendingScore(v, testNow)
		if got > prev {
			t.Fatalf("trending increased with age at %dh: %v > %v", h, got, prev)
		}
		if got < 0 || got > 1 {
			t.Fatalf("trending out of range at %dh: %v", h, got)
		}
		prev = got
	}
}

func TestTrendingScore_Values(t *testing.T) {
	v := &core.Video{ViewCount: 1000, LikeCount: 100, ShareCount: 10, CreatedAt: testNow.Add(-time.Hour)}
	want := (math.Log10(1001)/5 + math.Log10(101)/3 + math.Log10(11)/2) / 3 * math.Exp(-1.0/48)
	if got := TrendingScore(v, testNow); math.Abs(got-want) > 1e-12 {
		t.Errorf("TrendingScore() = %v, want %v", got, want)
	}

	huge := &core.Video{ViewCount: 1e12, LikeCount: 1e10, ShareCount: 1e9, CreatedAt: testNow}
	if got := TrendingScore(huge, testNow); got != 1 {
		t.Errorf("TrendingScore() not clipped: %v", got)
	}

	if got := TrendingScore(&core.Video{CreatedAt: testNow}, testNow); got != 0 {
		t.Errorf("TrendingScore(zero counts) = %v", got)
	}
}

func TestEngagementScore(t *testing.T) {
	tests := []struct {
		name string
		v    core.Video
		want float64
	}{
		{"zero views", core.Video{}, 0},
		{"typical", core.Video{ViewCount: 1000, LikeCount: 20, CommentCount: 10, ShareCount: 5}, (0.02*0.5 + 0.01*0.3 + 0.005*0.2) * 10},
		{"clipped", core.Video{ViewCount: 10, LikeCount: 10, CommentCount: 10, ShareCount: 10}, 1},
		{"likes without views use floor 1", core.Video{LikeCount: 1}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EngagementScore(&tt.v); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("EngagementScore() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatchScores(t *testing.T) {
	p := core.NewUserProfile("u")
	p.PreferredCategories["music"] = 0.9
	p.PreferredLocations["Hanoi"] = -0.2

	if got := CategoryMatch(p, &core.Video{Category: "music"}); got != 0.9 {
		t.Errorf("CategoryMatch(music) = %v", got)
	}
	if got := CategoryMatch(p, &core.Video{Category: "news"}); got != DefaultCategoryScore {
		t.Errorf("CategoryMatch(absent) = %v", got)
	}
	if got := LocationMatch(p, &core.Video{Location: "Hanoi"}); got != -0.2 {
		t.Errorf("LocationMatch(Hanoi) = %v", got)
	}
	if got := LocationMatch(p, &core.Video{Location: "Paris"}); got != DefaultLocationScore {
		t.Errorf("LocationMatch(absent) = %v", got)
	}
	if got := LocationMatch(p, &core.Video{}); got != NoLocationScore {
		t.Errorf("LocationMatch(no location) = %v", got)
	}
}
