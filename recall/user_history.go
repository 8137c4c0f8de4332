package recall

import (
	"context"
	"fmt"

	"github.com/rushteam/feedrank/core"
)

// UserHistory 读取用户最近的行为（按时间倒序），供协同过滤打分使用。
type UserHistory struct {
	Log core.BehaviorLog

	// Size 读取条数，默认 core.HistorySize
	Size int
}

func NewUserHistory(log core.BehaviorLog) *UserHistory {
	return &UserHistory{Log: log, Size: core.HistorySize}
}

func (r *UserHistory) Name() string { return "recall.user_history" }

func (r *UserHistory) Recall(ctx context.Context, userID string) ([]core.Behavior, error) {
	if r.Log == nil || userID == "" {
		return nil, nil
	}
	size := r.Size
	if size <= 0 {
		size = core.HistorySize
	}
	history, err := r.Log.QueryByUser(ctx, userID, size)
	if err != nil {
		return nil, fmt.Errorf("recall.user_history: %w", err)
	}
	return history, nil
}
