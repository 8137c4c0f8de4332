// Package tracker 接收用户行为：校验、写入行为日志，并在返回前让该用户的所有缓存失效。
package tracker

import (
	"context"
	"time"

	"github.com/rushteam/feedrank/core"
	"github.com/rushteam/feedrank/metrics"
	"github.com/rushteam/feedrank/pkg/logger"
)

// 上报结果，用于打点。
const (
	resultAccepted     = "accepted"
	resultInvalid      = "invalid"
	resultAppendFailed = "append_failed"
)

// ProfileInvalidator 丢弃用户的画像缓存（profile.CachedBuilder 实现该接口）。
type ProfileInvalidator interface {
	Invalidate(userID string)
}

// Publisher 把已接受的行为转发到下游（例如 Kafka），失败只记录日志。
type Publisher interface {
	Publish(ctx context.Context, b core.Behavior) error
	Close() error
}

// Tracker 是行为上报入口。
//
// 只有输入非法时 Track 才返回错误；写日志 / 转发 / 失效缓存的失败都只记录日志。
// 缓存失效在 Track 返回前同步完成，之后的 Feed 请求不会读到旧页。
type Tracker struct {
	Log       core.BehaviorLog
	Cache     core.FeedCache
	Profiles  ProfileInvalidator
	Publisher Publisher
	Logger    *logger.Logger

	// Now 时钟，默认 time.Now
	Now func() time.Time
}

// New 创建 Tracker，cache / profiles 可以为 nil。
func New(log core.BehaviorLog, cache core.FeedCache, profiles ProfileInvalidator) *Tracker {
	return &Tracker{
		Log:      log,
		Cache:    cache,
		Profiles: profiles,
		Now:      time.Now,
	}
}

func (t *Tracker) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

// Track 记录一条行为。
func (t *Tracker) Track(ctx context.Context, b core.Behavior) error {
	log := logger.OrNop(t.Logger)

	if err := Validate(&b); err != nil {
		metrics.RecordTracked(string(b.Action), resultInvalid)
		log.Debug("behavior rejected", "user_id", b.UserID, "video_id", b.VideoID, "error", err)
		return err
	}
	if b.Timestamp.IsZero() {
		b.Timestamp = t.now()
	}

	result := resultAccepted
	if err := t.Log.Append(ctx, b); err != nil {
		result = resultAppendFailed
		log.Warn("append behavior failed", "user_id", b.UserID, "video_id", b.VideoID, "action", b.Action, "error", err)
	} else if t.Publisher != nil {
		if err := t.Publisher.Publish(ctx, b); err != nil {
			log.Warn("publish behavior failed", "user_id", b.UserID, "error", err)
		}
	}

	t.invalidate(ctx, b.UserID)
	metrics.RecordTracked(string(b.Action), result)
	return nil
}

// invalidate 丢弃用户的全部 Feed 缓存页与画像缓存。
func (t *Tracker) invalidate(ctx context.Context, userID string) {
	if t.Profiles != nil {
		t.Profiles.Invalidate(userID)
	}
	if t.Cache == nil {
		return
	}
	if err := t.Cache.InvalidateUser(ctx, userID); err != nil {
		metrics.RecordCacheError("invalidate")
		logger.OrNop(t.Logger).Warn("invalidate feed cache failed", "user_id", userID, "cache", t.Cache.Name(), "error", err)
		return
	}
	metrics.CacheInvalidationsTotal.Inc()
}
