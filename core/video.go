package core

import "time"

// Video 是从视频目录（Catalog）读取的候选视频。
type Video struct {
	ID           string    `json:"id"`
	Category     string    `json:"category"`
	Location     string    `json:"location,omitempty"` // 为空表示视频没有地理信息
	CreatedAt    time.Time `json:"createdAt"`
	ViewCount    int64     `json:"viewCount"`
	LikeCount    int64     `json:"likeCount"`
	CommentCount int64     `json:"commentCount"`
	ShareCount   int64     `json:"shareCount"`
}

// HasLocation 表示视频是否带地理位置。
func (v *Video) HasLocation() bool {
	return v != nil && v.Location != ""
}
