// Package feedrank 是个性化短视频 Feed 排序引擎。
//
// 设计要点：
// - Pipeline-first: 缓存未命中后的打分链路由 Node 串联（Filter → Rank → ReRank → PostProcess）
// - 行为日志是唯一数据源：画像随时可以通过重放行为重建，缓存只是加速
// - 永不向调用方报错：拉取失败或超时退化为按热度排序的降级结果
//
// 入口：feed.NewEngine 构造引擎，tracker.New 构造行为上报，server.New 暴露 HTTP 接口。
package feedrank

import "github.com/rushteam/feedrank/pipeline"

// 轻量 facade：便于直接 import "feedrank" 使用核心抽象。
type Pipeline = pipeline.Pipeline
type Node = pipeline.Node
type Kind = pipeline.Kind

const (
	KindFilter      = pipeline.KindFilter
	KindRank        = pipeline.KindRank
	KindReRank      = pipeline.KindReRank
	KindPostProcess = pipeline.KindPostProcess
)
