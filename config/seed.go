package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rushteam/feedrank/core"
)

type seedVideo struct {
	ID        string    `yaml:"id"`
	Category  string    `yaml:"category"`
	Location  string    `yaml:"location"`
	CreatedAt time.Time `yaml:"created_at"`
	Views     int64     `yaml:"views"`
	Likes     int64     `yaml:"likes"`
	Comments  int64     `yaml:"comments"`
	Shares    int64     `yaml:"shares"`
}

// LoadVideos 读取视频种子文件：
//
//	videos:
//	  - id: v1
//	    category: music
//	    created_at: 2026-05-01T12:00:00Z
//	    views: 1000
func LoadVideos(path string) ([]*core.Video, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	var doc struct {
		Videos []seedVideo `yaml:"videos"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	videos := make([]*core.Video, 0, len(doc.Videos))
	for i, v := range doc.Videos {
		if v.ID == "" {
			return nil, fmt.Errorf("seed video %d: id is required", i)
		}
		videos = append(videos, &core.Video{
			ID:           v.ID,
			Category:     v.Category,
			Location:     v.Location,
			CreatedAt:    v.CreatedAt,
			ViewCount:    v.Views,
			LikeCount:    v.Likes,
			CommentCount: v.Comments,
			ShareCount:   v.Shares,
		})
	}
	return videos, nil
}
