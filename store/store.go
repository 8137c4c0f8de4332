package store

// 注意：此包只包含实现，接口定义在 core 包。
// 使用 core.BehaviorLog、core.Catalog 和 core.FeedCache 接口。
//
// 示例：
//   var log core.BehaviorLog = NewMemoryBehaviorLog()
//   var cache core.FeedCache = NewMemoryFeedCache(core.FeedCacheTTL)
