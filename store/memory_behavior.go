package store

import (
	"context"
	"sort"
	"sync"

	"github.com/rushteam/feedrank/core"
)

// MemoryBehaviorLog 是内存实现的行为日志，用于测试/开发/原型。
// 只追加，进程重启后数据丢失。
type MemoryBehaviorLog struct {
	mu        sync.RWMutex
	behaviors []core.Behavior
	byUser    map[string][]int // userID -> behaviors 下标（追加顺序）
}

func NewMemoryBehaviorLog() *MemoryBehaviorLog {
	return &MemoryBehaviorLog{
		byUser: make(map[string][]int),
	}
}

func (m *MemoryBehaviorLog) Append(ctx context.Context, b core.Behavior) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.behaviors = append(m.behaviors, b)
	m.byUser[b.UserID] = append(m.byUser[b.UserID], len(m.behaviors)-1)
	return nil
}

// QueryByUser 按时间倒序返回，时间相同时后写入的在前。
func (m *MemoryBehaviorLog) QueryByUser(ctx context.Context, userID string, limit int) ([]core.Behavior, error) {
	m.mu.RLock()
	idx := m.byUser[userID]
	out := make([]core.Behavior, 0, len(idx))
	for i := len(idx) - 1; i >= 0; i-- {
		out = append(out, m.behaviors[idx[i]])
	}
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// QueryUsersWhoActedOn 从最新的行为开始扫描，返回最先遇到的 limit 个不同用户。
func (m *MemoryBehaviorLog) QueryUsersWhoActedOn(ctx context.Context, videoIDs []string, action core.Action, excludeUserID string, limit int) ([]string, error) {
	if len(videoIDs) == 0 {
		return nil, nil
	}
	videos := toSet(videoIDs)

	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]struct{})
	out := make([]string, 0)
	for i := len(m.behaviors) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		b := m.behaviors[i]
		if b.Action != action || b.UserID == excludeUserID {
			continue
		}
		if _, ok := videos[b.VideoID]; !ok {
			continue
		}
		if _, ok := seen[b.UserID]; ok {
			continue
		}
		seen[b.UserID] = struct{}{}
		out = append(out, b.UserID)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *MemoryBehaviorLog) CountUsersWhoActedOn(ctx context.Context, videoID string, userIDs []string, action core.Action) (int, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}
	users := toSet(userIDs)

	m.mu.RLock()
	defer m.mu.RUnlock()

	counted := make(map[string]struct{})
	for _, b := range m.behaviors {
		if b.VideoID != videoID || b.Action != action {
			continue
		}
		if _, ok := users[b.UserID]; ok {
			counted[b.UserID] = struct{}{}
		}
	}
	return len(counted), nil
}

// Len 返回行为总数。
func (m *MemoryBehaviorLog) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.behaviors)
}

func toSet(ids []string) map[string]struct{} {
	s := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

var _ core.BehaviorLog = (*MemoryBehaviorLog)(nil)
