// Command feedserver 启动个性化 Feed 服务。
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rushteam/feedrank/config"
	"github.com/rushteam/feedrank/core"
	"github.com/rushteam/feedrank/feed"
	"github.com/rushteam/feedrank/pkg/logger"
	"github.com/rushteam/feedrank/profile"
	"github.com/rushteam/feedrank/recall"
	"github.com/rushteam/feedrank/server"
	"github.com/rushteam/feedrank/store"
	"github.com/rushteam/feedrank/tracker"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("feedserver exited", "error", err)
	}
}

// backend 是打开的存储：行为日志 + 视频目录。
type backend struct {
	behaviors core.BehaviorLog
	catalog   core.Catalog
	seed      func(ctx context.Context, videos []*core.Video) error
	ping      func(ctx context.Context) error
	closer    io.Closer
}

func openStore(cfg config.StoreConfig) (*backend, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		s, err := store.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &backend{
			behaviors: s,
			catalog:   s,
			seed: func(ctx context.Context, videos []*core.Video) error {
				for _, v := range videos {
					if err := s.UpsertVideo(ctx, v); err != nil {
						return err
					}
				}
				return nil
			},
			ping:   s.Ping,
			closer: s,
		}, nil
	default:
		catalog := store.NewMemoryCatalog()
		return &backend{
			behaviors: store.NewMemoryBehaviorLog(),
			catalog:   catalog,
			seed: func(_ context.Context, videos []*core.Video) error {
				catalog.Put(videos...)
				return nil
			},
		}, nil
	}
}

// openCache 打开 Feed 缓存。Redis 启动时不可用只记录告警，缓存读写失败按未命中处理。
func openCache(ctx context.Context, cfg config.CacheConfig, log *logger.Logger) (core.FeedCache, server.HealthCheck) {
	if cfg.Backend == config.BackendRedis {
		c := store.NewRedisFeedCache(cfg.RedisAddr, cfg.RedisDB, cfg.TTL)
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := c.Ping(pingCtx); err != nil {
			log.Warn("redis unavailable, serving without feed cache until it recovers", "addr", cfg.RedisAddr, "error", err)
		}
		return c, c.Ping
	}
	return store.NewMemoryFeedCache(cfg.TTL), nil
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	be, err := openStore(cfg.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	if be.closer != nil {
		defer be.closer.Close()
	}
	if cfg.Store.SeedVideos != "" {
		videos, err := config.LoadVideos(cfg.Store.SeedVideos)
		if err != nil {
			return err
		}
		if err := be.seed(ctx, videos); err != nil {
			return fmt.Errorf("seed catalog: %w", err)
		}
		log.Info("catalog seeded", "videos", len(videos))
	}

	behaviors := store.NewBreakerBehaviorLog(be.behaviors, cfg.Store.Breaker, log)
	catalog := store.NewBreakerCatalog(be.catalog, cfg.Store.Breaker, log)

	cache, cachePing := openCache(ctx, cfg.Cache, log)
	defer cache.Close()

	profiles := profile.NewCachedBuilder(profile.NewBuilder(behaviors), cfg.Engine.ProfileCacheSize, cfg.Engine.ProfileCacheTTL)
	defer profiles.Close()

	pipe, err := config.BuildPipeline(cfg.Pipeline, config.Deps{
		Log:                  behaviors,
		CollaborativeTimeout: cfg.Engine.CollaborativeTimeout,
		Logger:               log,
	})
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}

	engine, err := feed.NewEngine(feed.Options{
		Profiles: profiles,
		Trending: recall.NewTrending(catalog),
		History:  recall.NewUserHistory(behaviors),
		Pipeline: pipe,
		Cache:    cache,
		Deadline: cfg.Engine.Deadline,
		Logger:   log,
	})
	if err != nil {
		return err
	}

	tr := tracker.New(behaviors, cache, profiles)
	tr.Logger = log
	if cfg.Kafka.Enabled {
		pub, err := tracker.NewKafkaPublisher(cfg.Kafka.KafkaConfig)
		if err != nil {
			return err
		}
		pub.Logger = log
		tr.Publisher = pub
		defer pub.Close()
	}

	srv := server.New(engine, tr, log)
	if be.ping != nil {
		srv.AddHealthCheck("store", be.ping)
	}
	if cachePing != nil {
		srv.AddOptionalHealthCheck("cache", cachePing)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(cfg.Server.Addr) }()

	log.Info("feedserver started",
		"addr", cfg.Server.Addr,
		"store", cfg.Store.Backend,
		"cache", cache.Name(),
		"pipeline", pipe.Names(),
	)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
