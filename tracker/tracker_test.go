package tracker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rushteam/feedrank/core"
	"github.com/rushteam/feedrank/store"
)

type recordingInvalidator struct {
	mu    sync.Mutex
	users []string
}

func (r *recordingInvalidator) Invalidate(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = append(r.users, userID)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []core.Behavior
}

func (p *recordingPublisher) Publish(_ context.Context, b core.Behavior) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, b)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type brokenLog struct {
	core.BehaviorLog
}

func (brokenLog) Append(context.Context, core.Behavior) error {
	return errors.New("disk full")
}

func item(id string) *core.Item {
	return core.NewItem(&core.Video{ID: id})
}

func TestTrack_InvalidatesEveryOffset(t *testing.T) {
	ctx := context.Background()
	log := store.NewMemoryBehaviorLog()
	cache := store.NewMemoryFeedCache(time.Minute)
	defer cache.Close()
	profiles := &recordingInvalidator{}

	for _, off := range []int{0, 20, 40} {
		if err := cache.Set(ctx, "u1", off, []*core.Item{item("v")}, 0); err != nil {
			t.Fatal(err)
		}
	}
	_ = cache.Set(ctx, "u2", 0, []*core.Item{item("v")}, 0)

	tr := New(log, cache, profiles)
	if err := tr.Track(ctx, core.Behavior{UserID: "u1", VideoID: "v", Action: core.ActionLike}); err != nil {
		t.Fatal(err)
	}

	for _, off := range []int{0, 20, 40} {
		if _, ok, _ := cache.Get(ctx, "u1", off); ok {
			t.Errorf("offset %d still cached", off)
		}
	}
	if _, ok, _ := cache.Get(ctx, "u2", 0); !ok {
		t.Error("other user's page was invalidated")
	}
	if len(profiles.users) != 1 || profiles.users[0] != "u1" {
		t.Errorf("profile invalidations = %v", profiles.users)
	}
	if log.Len() != 1 {
		t.Errorf("log len = %d, want 1", log.Len())
	}
}

func TestTrack_DefaultsTimestampAndPublishes(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	log := store.NewMemoryBehaviorLog()
	pub := &recordingPublisher{}

	tr := New(log, nil, nil)
	tr.Now = func() time.Time { return now }
	tr.Publisher = pub

	if err := tr.Track(ctx, core.Behavior{UserID: "u", VideoID: "v", Action: core.ActionView, WatchTimeSeconds: 12}); err != nil {
		t.Fatal(err)
	}
	got, _ := log.QueryByUser(ctx, "u", 10)
	if len(got) != 1 || !got[0].Timestamp.Equal(now) {
		t.Fatalf("stored = %+v", got)
	}
	if len(pub.events) != 1 || pub.events[0].VideoID != "v" {
		t.Errorf("published = %+v", pub.events)
	}
}

func TestTrack_InvalidInput(t *testing.T) {
	tr := New(store.NewMemoryBehaviorLog(), nil, nil)
	tests := []struct {
		name string
		b    core.Behavior
	}{
		{"missing user", core.Behavior{VideoID: "v", Action: core.ActionLike}},
		{"missing video", core.Behavior{UserID: "u", Action: core.ActionLike}},
		{"missing action", core.Behavior{UserID: "u", VideoID: "v"}},
		{"unknown action", core.Behavior{UserID: "u", VideoID: "v", Action: "dislike"}},
		{"watch percentage", core.Behavior{UserID: "u", VideoID: "v", Action: core.ActionView, WatchPercentage: 120}},
		{"negative watch time", core.Behavior{UserID: "u", VideoID: "v", Action: core.ActionView, WatchTimeSeconds: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tr.Track(context.Background(), tt.b)
			if err == nil {
				t.Fatal("Track() returned no error")
			}
			if !errors.Is(err, core.ErrInvalidBehavior) {
				t.Errorf("error %v is not ErrInvalidBehavior", err)
			}
			if !core.IsInvalidInput(err) {
				t.Errorf("IsInvalidInput(%v) = false", err)
			}
		})
	}
}

func TestTrack_AppendFailureSwallowed(t *testing.T) {
	ctx := context.Background()
	cache := store.NewMemoryFeedCache(time.Minute)
	defer cache.Close()
	_ = cache.Set(ctx, "u", 0, []*core.Item{item("v")}, 0)
	pub := &recordingPublisher{}

	tr := New(brokenLog{}, cache, nil)
	tr.Publisher = pub
	if err := tr.Track(ctx, core.Behavior{UserID: "u", VideoID: "v", Action: core.ActionShare}); err != nil {
		t.Fatalf("Track() = %v, want nil", err)
	}
	if _, ok, _ := cache.Get(ctx, "u", 0); ok {
		t.Error("cache not invalidated after append failure")
	}
	if len(pub.events) != 0 {
		t.Error("failed event was published")
	}
}

func TestNewKafkaPublisher_Config(t *testing.T) {
	if _, err := NewKafkaPublisher(KafkaConfig{Topic: "t"}); err == nil {
		t.Error("missing brokers accepted")
	}
	if _, err := NewKafkaPublisher(KafkaConfig{Brokers: []string{"localhost:9092"}}); err == nil {
		t.Error("missing topic accepted")
	}
	if _, err := NewKafkaPublisher(KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "t", Compression: "brotli"}); err == nil {
		t.Error("unknown compression accepted")
	}
}

func TestNewRecord(t *testing.T) {
	r, err := newRecord("behaviors", core.Behavior{UserID: "u1", VideoID: "v", Action: core.ActionLike})
	if err != nil {
		t.Fatal(err)
	}
	if r.Topic != "behaviors" || string(r.Key) != "u1" {
		t.Errorf("record = %+v", r)
	}
	if len(r.Value) == 0 {
		t.Error("empty value")
	}
}
