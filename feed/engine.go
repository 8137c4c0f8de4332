// Package feed 是 Feed 编排层：缓存探测、并发拉取、Pipeline 打分与降级。
package feed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/feedrank/core"
	"github.com/rushteam/feedrank/filter"
	"github.com/rushteam/feedrank/metrics"
	"github.com/rushteam/feedrank/pipeline"
	"github.com/rushteam/feedrank/pkg/logger"
	"github.com/rushteam/feedrank/profile"
	"github.com/rushteam/feedrank/rank"
	"github.com/rushteam/feedrank/recall"
	"github.com/rushteam/feedrank/rerank"
)

// 降级原因，用于打点。
const (
	fallbackFetch    = "fetch"
	fallbackDeadline = "deadline"
	fallbackPipeline = "pipeline"
)

// Options 是 Engine 的依赖。Profiles / Trending / Pipeline 必填，其余可选。
type Options struct {
	Profiles profile.Source
	Trending *recall.Trending
	History  *recall.UserHistory
	Pipeline *pipeline.Pipeline

	// Cache 为 nil 时不缓存
	Cache core.FeedCache

	// Deadline 拉取 + 打分 + 重排的总时限，默认 core.PipelineTimeout
	Deadline time.Duration

	Logger *logger.Logger
}

// Engine 是个性化 Feed 引擎，进程启动时构造一次，注入到请求处理层。
// 除共享的 FeedCache 外没有跨请求的可变状态，可并发使用。
type Engine struct {
	profiles profile.Source
	trending *recall.Trending
	history  *recall.UserHistory
	pipeline *pipeline.Pipeline
	cache    core.FeedCache
	deadline time.Duration
	log      *logger.Logger
}

// NewEngine 校验依赖并创建引擎。
func NewEngine(opts Options) (*Engine, error) {
	if opts.Profiles == nil {
		return nil, errors.New("feed: profile source is required")
	}
	if opts.Trending == nil {
		return nil, errors.New("feed: trending recall is required")
	}
	if opts.Pipeline == nil || len(opts.Pipeline.Nodes) == 0 {
		return nil, errors.New("feed: pipeline is required")
	}
	deadline := opts.Deadline
	if deadline <= 0 {
		deadline = core.PipelineTimeout
	}
	return &Engine{
		profiles: opts.Profiles,
		trending: opts.Trending,
		history:  opts.History,
		pipeline: opts.Pipeline,
		cache:    opts.Cache,
		deadline: deadline,
		log:      logger.OrNop(opts.Logger),
	}, nil
}

// NewDefaultPipeline 构建标准链路：排除过滤 → 综合打分 → 多样性重排 → 分页。
func NewDefaultPipeline(scorer *rank.Scorer, mode rerank.DiversityMode) (*pipeline.Pipeline, error) {
	if scorer == nil {
		return nil, errors.New("feed: scorer is required")
	}
	diversity, err := rerank.NewDiversity(mode)
	if err != nil {
		return nil, err
	}
	return &pipeline.Pipeline{
		Nodes: []pipeline.Node{
			filter.NewFilterNode(&filter.ExcludeFilter{}),
			&rank.ScoreNode{Scorer: scorer},
			diversity,
			&rerank.Page{},
		},
	}, nil
}

// fetched 是三路并发拉取的结果。
type fetched struct {
	profile    *core.UserProfile
	candidates []*core.Video
	history    []core.Behavior
}

// GetPersonalizedFeed 返回 [offset, offset+limit) 这一页推荐结果，永不返回错误：
// 拉取失败或超时时退化为按热度排序的降级结果。
func (e *Engine) GetPersonalizedFeed(ctx context.Context, userID string, limit, offset int, exclude []string) []*core.Item {
	start := time.Now()
	limit, offset = normalizePage(limit, offset)
	log := e.log.With("user_id", userID, "limit", limit, "offset", offset)

	// 排除列表不在缓存 key 中，带排除列表的请求不读也不写缓存
	cacheable := e.cache != nil && len(exclude) == 0
	var generation uint64
	if cacheable {
		gen, err := e.cache.Generation(ctx, userID)
		if err != nil {
			metrics.RecordCacheError("generation")
			log.Warn("feed cache generation failed", "cache", e.cache.Name(), "error", err)
			cacheable = false
		} else {
			generation = gen
			if page, ok := e.probe(ctx, log, userID, offset); ok {
				metrics.RecordFeed(metrics.OutcomeCacheHit, time.Since(start))
				return rerank.Slice(page, 0, limit)
			}
		}
	}

	dctx, cancel := context.WithTimeout(ctx, e.deadline)
	defer cancel()

	data, err := e.fetch(dctx, userID, limit)
	if err != nil {
		return e.fallback(ctx, log, start, fallbackReason(err, fallbackFetch), err, data.candidates, limit, offset, exclude)
	}

	rctx := core.NewRecommendContext(userID, limit, offset, exclude)
	rctx.Profile = data.profile
	rctx.History = data.history

	items := make([]*core.Item, 0, len(data.candidates))
	for _, v := range data.candidates {
		if v != nil {
			items = append(items, core.NewItem(v))
		}
	}

	page, err := e.pipeline.Run(dctx, rctx, items)
	if err != nil {
		return e.fallback(ctx, log, start, fallbackReason(err, fallbackPipeline), err, data.candidates, limit, offset, exclude)
	}

	if cacheable {
		if err := e.cache.Set(ctx, userID, offset, page, generation); err != nil {
			metrics.RecordCacheError("set")
			log.Warn("feed cache write failed", "cache", e.cache.Name(), "error", err)
		}
	}
	metrics.RecordFeed(metrics.OutcomeComputed, time.Since(start))
	log.Debug("feed computed", "candidates", len(items), "returned", len(page), "elapsed", time.Since(start))
	return page
}

// probe 读缓存，任何错误都视为未命中。
func (e *Engine) probe(ctx context.Context, log *logger.Logger, userID string, offset int) ([]*core.Item, bool) {
	page, ok, err := e.cache.Get(ctx, userID, offset)
	if err != nil {
		metrics.RecordCacheError("get")
		log.Warn("feed cache read failed", "cache", e.cache.Name(), "error", err)
		return nil, false
	}
	return page, ok
}

// fetch 并发拉取画像、候选与行为历史，任意一路失败即返回错误。
// 失败时已经拿到的候选仍然返回，降级链路可以直接复用。
func (e *Engine) fetch(ctx context.Context, userID string, limit int) (fetched, error) {
	var (
		out        fetched
		candidates []*core.Video
	)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		p, err := e.profiles.Build(gctx, userID)
		if err != nil {
			return fmt.Errorf("profile: %w", err)
		}
		out.profile = p
		return nil
	})
	g.Go(func() error {
		videos, err := e.trending.Recall(gctx, limit)
		if err != nil {
			return err
		}
		candidates = videos
		return nil
	})
	g.Go(func() error {
		if e.history == nil {
			return nil
		}
		h, err := e.history.Recall(gctx, userID)
		if err != nil {
			return err
		}
		out.history = h
		return nil
	})

	err := g.Wait()
	out.candidates = candidates
	if err == nil {
		// 某一路忽略了 ctx 时，以总时限为准
		err = ctx.Err()
	}
	if out.profile == nil && err == nil {
		out.profile = core.NewUserProfile(userID)
	}
	return out, err
}

func fallbackReason(err error, otherwise string) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return fallbackDeadline
	}
	return otherwise
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = core.DefaultLimit
	}
	if limit > core.MaxLimit {
		limit = core.MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
