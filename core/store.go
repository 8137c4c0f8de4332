package core

import (
	"context"
	"time"
)

// BehaviorLog 是行为日志的领域接口（只追加 + 查询）。
//
// 实现：
//   - store.MemoryBehaviorLog（测试 / 开发）
//   - store.SQLiteStore（单机持久化）
//   - store.BreakerBehaviorLog（熔断包装，任意实现均可）
type BehaviorLog interface {
	// Append 追加一条行为
	Append(ctx context.Context, b Behavior) error

	// QueryByUser 按时间倒序返回用户最近的 limit 条行为
	QueryByUser(ctx context.Context, userID string, limit int) ([]Behavior, error)

	// QueryUsersWhoActedOn 返回对 videoIDs 中任意视频做过 action 的其他用户（去重，最多 limit 个）
	QueryUsersWhoActedOn(ctx context.Context, videoIDs []string, action Action, excludeUserID string, limit int) ([]string, error)

	// CountUsersWhoActedOn 统计 userIDs 中对 videoID 做过 action 的用户数
	CountUsersWhoActedOn(ctx context.Context, videoID string, userIDs []string, action Action) (int, error)
}

// Catalog 是视频目录的领域接口。
type Catalog interface {
	// QueryTrending 按播放量降序返回 limit 个视频
	QueryTrending(ctx context.Context, limit int) ([]*Video, error)
}

// FeedCache 是 Feed 分页缓存的领域接口。
//
// 约定：
//   - key 为 (userID, offset)，TTL 固定
//   - InvalidateUser 删除该用户所有 offset 的缓存
//   - Generation 在每次 InvalidateUser 后递增；Set 只有在 generation 未变化时才写入，
//     防止失效前开始计算的请求在失效后回写旧结果
//   - 任何错误都等价于未命中，调用方继续计算
type FeedCache interface {
	Name() string
	Get(ctx context.Context, userID string, offset int) ([]*Item, bool, error)
	Set(ctx context.Context, userID string, offset int, page []*Item, generation uint64) error
	InvalidateUser(ctx context.Context, userID string) error
	Generation(ctx context.Context, userID string) (uint64, error)
	Close() error
}

// CachedPage 是缓存中的一页结果。
type CachedPage struct {
	Items     []*Item   `json:"items"`
	CreatedAt time.Time `json:"createdAt"`
}

// Expired 判断缓存页是否过期：只有 now < createdAt + ttl 才有效。
func (p *CachedPage) Expired(now time.Time, ttl time.Duration) bool {
	return !now.Before(p.CreatedAt.Add(ttl))
}
