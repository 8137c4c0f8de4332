package core

// RecommendContext 承载一次 Feed 请求的用户、画像、历史和分页信息，贯穿整个 Pipeline 透传。
type RecommendContext struct {
	UserID string

	// Profile 是本次请求使用的用户画像（冷启动时为默认画像）
	Profile *UserProfile

	// History 是用户最近的行为（按时间倒序），协同过滤打分从中取点赞集合
	History []Behavior

	Limit  int
	Offset int

	// Exclude 是调用方要求排除的视频 ID
	Exclude map[string]struct{}

	// Params 请求级参数，例如 device_type、scene 等，供 DSL 规则使用
	Params map[string]any
}

// NewRecommendContext 创建请求上下文，exclude 转成集合便于过滤。
func NewRecommendContext(userID string, limit, offset int, exclude []string) *RecommendContext {
	rctx := &RecommendContext{
		UserID:  userID,
		Limit:   limit,
		Offset:  offset,
		Exclude: make(map[string]struct{}, len(exclude)),
		Params:  make(map[string]any),
	}
	for _, id := range exclude {
		if id != "" {
			rctx.Exclude[id] = struct{}{}
		}
	}
	return rctx
}

// IsExcluded 判断视频是否在排除列表中。
func (rctx *RecommendContext) IsExcluded(videoID string) bool {
	if rctx == nil || rctx.Exclude == nil {
		return false
	}
	_, ok := rctx.Exclude[videoID]
	return ok
}

// LikedVideos 返回历史中点赞过的视频集合（按首次出现顺序）。
func (rctx *RecommendContext) LikedVideos() []string {
	if rctx == nil {
		return nil
	}
	return LikedVideos(rctx.History)
}

// LikedVideos 从行为列表中提取点赞过的视频（去重，保持顺序）。
func LikedVideos(history []Behavior) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, b := range history {
		if b.Action != ActionLike {
			continue
		}
		if _, ok := seen[b.VideoID]; ok {
			continue
		}
		seen[b.VideoID] = struct{}{}
		out = append(out, b.VideoID)
	}
	return out
}
