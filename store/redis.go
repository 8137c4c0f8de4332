package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rushteam/feedrank/core"
)

// RedisFeedCache 是 Redis 实现的 FeedCache，多实例部署时共享缓存。
//
// key 布局（Prefix 默认 "feed"）：
//   - {prefix}:page:{userID}:{offset}  缓存页（JSON），带 TTL
//   - {prefix}:idx:{userID}            该用户所有缓存页 key 的集合，用于按用户失效
//   - {prefix}:gen:{userID}            generation 计数器
type RedisFeedCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisFeedCache 创建 Redis 缓存。连接按需建立，Redis 暂不可用时读写返回错误，
// 由调用方当作未命中处理，恢复后自动重连。
func NewRedisFeedCache(addr string, db int, ttl time.Duration) *RedisFeedCache {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	return NewRedisFeedCacheWithClient(client, ttl)
}

// NewRedisFeedCacheWithClient 使用已有的客户端。
func NewRedisFeedCacheWithClient(client *redis.Client, ttl time.Duration) *RedisFeedCache {
	if ttl <= 0 {
		ttl = core.FeedCacheTTL
	}
	return &RedisFeedCache{client: client, prefix: "feed", ttl: ttl, now: time.Now}
}

func (r *RedisFeedCache) Name() string { return "redis" }

func (r *RedisFeedCache) pageKey(userID string, offset int) string {
	return r.prefix + ":page:" + userID + ":" + strconv.Itoa(offset)
}

func (r *RedisFeedCache) indexKey(userID string) string {
	return r.prefix + ":idx:" + userID
}

func (r *RedisFeedCache) genKey(userID string) string {
	return r.prefix + ":gen:" + userID
}

func (r *RedisFeedCache) Get(ctx context.Context, userID string, offset int) ([]*core.Item, bool, error) {
	key := r.pageKey(userID, offset)
	data, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, core.WrapDomainError(core.ModuleCache, core.ErrorCodeUnavailable, "cache: redis get", err)
	}

	var page core.CachedPage
	if err := json.Unmarshal(data, &page); err != nil {
		_ = r.client.Del(ctx, key).Err()
		return nil, false, fmt.Errorf("cache: decode page: %w", err)
	}
	// Redis 的过期精度为秒级，这里再按 createdAt 校验一次
	if page.Expired(r.now(), r.ttl) {
		_ = r.client.Del(ctx, key).Err()
		return nil, false, nil
	}
	return page.Items, true, nil
}

var errStaleGeneration = errors.New("cache: stale generation")

// Set 通过 WATCH generation 实现 check-and-set：失效发生在读取 generation 之后时写入被放弃。
func (r *RedisFeedCache) Set(ctx context.Context, userID string, offset int, page []*core.Item, generation uint64) error {
	data, err := json.Marshal(core.CachedPage{Items: page, CreatedAt: r.now()})
	if err != nil {
		return fmt.Errorf("cache: encode page: %w", err)
	}
	genKey := r.genKey(userID)
	pageKey := r.pageKey(userID, offset)
	idxKey := r.indexKey(userID)

	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, genKey).Uint64()
		if err != nil && err != redis.Nil {
			return err
		}
		if cur != generation {
			return errStaleGeneration
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, pageKey, data, r.ttl)
			pipe.SAdd(ctx, idxKey, pageKey)
			pipe.Expire(ctx, idxKey, r.ttl)
			return nil
		})
		return err
	}, genKey)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, errStaleGeneration), errors.Is(err, redis.TxFailedErr):
		return nil
	default:
		return core.WrapDomainError(core.ModuleCache, core.ErrorCodeUnavailable, "cache: redis set", err)
	}
}

// InvalidateUser 先递增 generation 再删除索引中的所有页：
// 递增之后的写入都会因 generation 不匹配被放弃，递增之前完成的写入一定已进入索引。
func (r *RedisFeedCache) InvalidateUser(ctx context.Context, userID string) error {
	if err := r.client.Incr(ctx, r.genKey(userID)).Err(); err != nil {
		return core.WrapDomainError(core.ModuleCache, core.ErrorCodeUnavailable, "cache: redis incr", err)
	}
	idxKey := r.indexKey(userID)
	keys, err := r.client.SMembers(ctx, idxKey).Result()
	if err != nil {
		return core.WrapDomainError(core.ModuleCache, core.ErrorCodeUnavailable, "cache: redis smembers", err)
	}
	keys = append(keys, idxKey)
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return core.WrapDomainError(core.ModuleCache, core.ErrorCodeUnavailable, "cache: redis del", err)
	}
	return nil
}

func (r *RedisFeedCache) Generation(ctx context.Context, userID string) (uint64, error) {
	gen, err := r.client.Get(ctx, r.genKey(userID)).Uint64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, core.WrapDomainError(core.ModuleCache, core.ErrorCodeUnavailable, "cache: redis get generation", err)
	}
	return gen, nil
}

// Ping 检查 Redis 连通性，用于健康检查。
func (r *RedisFeedCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisFeedCache) Close() error {
	return r.client.Close()
}

// 确保 RedisFeedCache 实现了 core.FeedCache 接口
var _ core.FeedCache = (*RedisFeedCache)(nil)
