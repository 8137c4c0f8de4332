package core

import "time"

// 引擎默认参数。
const (
	// ProfileSampleSize 构建画像时读取的最近行为条数
	ProfileSampleSize = 200

	// HistorySize Feed 请求并发拉取的最近行为条数
	HistorySize = 100

	// SimilarUsersLimit 协同过滤最多考虑的相似用户数
	SimilarUsersLimit = 100

	// CandidateMultiplier 候选集大小 = limit × CandidateMultiplier
	CandidateMultiplier = 2

	// FeedCacheTTL Feed 缓存页的固定有效期
	FeedCacheTTL = 60 * time.Second

	// PipelineTimeout 整个打分链路（拉取 + 打分 + 重排）的超时
	PipelineTimeout = 150 * time.Millisecond

	// CollaborativeTimeout 单个候选协同过滤查询的超时
	CollaborativeTimeout = 40 * time.Millisecond

	// NeutralScore 降级结果与协同过滤缺省值
	NeutralScore = 0.5

	// DefaultLimit 请求未指定 limit 时的默认值
	DefaultLimit = 20

	// MaxLimit limit 上限
	MaxLimit = 100
)
