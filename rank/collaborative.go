package rank

import (
	"context"
	"errors"
	"time"

	"github.com/rushteam/feedrank/core"
	"github.com/rushteam/feedrank/metrics"
	"github.com/rushteam/feedrank/pkg/logger"
)

// Collaborative 是轻量的 User-CF 子分数（u2u → u2i 工程拆分）：
//  1. 用户点赞集合 L（来自请求携带的行为历史）
//  2. 相似用户 = 点赞过 L 中任意视频的其他用户（最多 Limit 个）
//  3. 子分数 = 相似用户中点赞过候选视频的比例
//
// L 为空或找不到相似用户时返回中性值 0.5。
// 每次查询都有独立的短超时，超时或出错同样降级为 0.5，不影响整个请求。
type Collaborative struct {
	Log core.BehaviorLog

	// Timeout 单次查询超时，默认 core.CollaborativeTimeout
	Timeout time.Duration

	// Limit 相似用户上限，默认 core.SimilarUsersLimit
	Limit int

	Logger *logger.Logger
}

// Neighbors 是一次请求内解析出的相似用户，所有候选共享。
type Neighbors struct {
	// Liked 为空表示用户没有点赞，子分数恒为中性值
	Liked []string
	Users []string

	// Degraded 表示相似用户查询失败 / 超时
	Degraded bool
}

// Neutral 表示这批相似用户不足以给出判断。
func (n *Neighbors) Neutral() bool {
	return n == nil || n.Degraded || len(n.Liked) == 0 || len(n.Users) == 0
}

func (c *Collaborative) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return core.CollaborativeTimeout
}

func (c *Collaborative) limit() int {
	if c.Limit > 0 {
		return c.Limit
	}
	return core.SimilarUsersLimit
}

// Resolve 执行第一步查询：找出相似用户。
func (c *Collaborative) Resolve(ctx context.Context, userID string, history []core.Behavior) *Neighbors {
	n := &Neighbors{Liked: core.LikedVideos(history)}
	if len(n.Liked) == 0 || c.Log == nil {
		return n
	}

	qctx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()

	users, err := c.Log.QueryUsersWhoActedOn(qctx, n.Liked, core.ActionLike, userID, c.limit())
	if err != nil {
		n.Degraded = true
		c.degraded("similar_users", err)
		return n
	}
	n.Users = users
	return n
}

// Score 执行第二步查询：相似用户中点赞过 videoID 的比例。
func (c *Collaborative) Score(ctx context.Context, n *Neighbors, videoID string) float64 {
	if n.Neutral() || c.Log == nil {
		return core.NeutralScore
	}

	qctx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()

	count, err := c.Log.CountUsersWhoActedOn(qctx, videoID, n.Users, core.ActionLike)
	if err != nil {
		c.degraded("count", err)
		return core.NeutralScore
	}
	return float64(count) / float64(len(n.Users))
}

func (c *Collaborative) degraded(step string, err error) {
	reason := "error"
	if errors.Is(err, context.DeadlineExceeded) {
		reason = "timeout"
	}
	metrics.RecordCollaborativeDegraded(reason)
	logger.OrNop(c.Logger).Debug("collaborative subscore degraded", "step", step, "reason", reason, "error", err)
}
