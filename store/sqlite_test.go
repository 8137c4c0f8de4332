package store

import (
	"context"
	"testing"
	"time"

	"github.com/rushteam/feedrank/core"
)

func TestSQLiteStore_BehaviorLog(t *testing.T) {
	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	defer s.Close()

	behaviorLogCases(t, s)
}

func TestSQLiteStore_Catalog(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	created := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	videos := []*core.Video{
		{ID: "v1", Category: "music", ViewCount: 5, CreatedAt: created},
		{ID: "v2", Category: "sports", Location: "Hanoi", ViewCount: 50, LikeCount: 3, CreatedAt: created},
	}
	for _, v := range videos {
		if err := s.UpsertVideo(ctx, v); err != nil {
			t.Fatalf("UpsertVideo() error = %v", err)
		}
	}
	// 覆盖更新
	videos[0].ViewCount = 500
	_ = s.UpsertVideo(ctx, videos[0])

	got, err := s.QueryTrending(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != "v1" || got[0].ViewCount != 500 {
		t.Fatalf("QueryTrending() = %+v", got)
	}
	if got[1].Location != "Hanoi" || got[1].LikeCount != 3 || !got[1].CreatedAt.Equal(created) {
		t.Errorf("fields lost: %+v", got[1])
	}
}
