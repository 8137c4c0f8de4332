package core

import "time"

// Action 是用户对视频的交互类型。
type Action string

const (
	ActionView          Action = "view"
	ActionLike          Action = "like"
	ActionShare         Action = "share"
	ActionComment       Action = "comment"
	ActionSkip          Action = "skip"
	ActionWatchComplete Action = "watch_complete"
)

// Valid 判断是否为已知的行为类型。
func (a Action) Valid() bool {
	switch a {
	case ActionView, ActionLike, ActionShare, ActionComment, ActionSkip, ActionWatchComplete:
		return true
	}
	return false
}

// IsEngagement 表示主动互动（点赞/分享/评论），用于计算用户互动率。
func (a Action) IsEngagement() bool {
	return a == ActionLike || a == ActionShare || a == ActionComment
}

// Behavior 是一条用户行为事件（只追加，不修改、不删除）。
//
// 行为日志是用户画像的唯一数据源：画像随时可以通过重放该用户的行为重新计算。
type Behavior struct {
	UserID           string    `json:"userId" validate:"required"`
	VideoID          string    `json:"videoId" validate:"required"`
	Action           Action    `json:"action" validate:"required,oneof=view like share comment skip watch_complete"`
	WatchTimeSeconds float64   `json:"watchTime" validate:"gte=0"`
	WatchPercentage  float64   `json:"watchPercentage" validate:"gte=0,lte=100"`
	Timestamp        time.Time `json:"timestamp"`
	Location         string    `json:"location,omitempty"`
	Category         string    `json:"category,omitempty"`
}
