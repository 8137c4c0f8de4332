// Package server 以 HTTP（gin）暴露 Feed 与行为上报接口。
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rushteam/feedrank/core"
	"github.com/rushteam/feedrank/pkg/logger"
)

// FeedService 由 feed.Engine 实现。
type FeedService interface {
	GetPersonalizedFeed(ctx context.Context, userID string, limit, offset int, exclude []string) []*core.Item
}

// BehaviorTracker 由 tracker.Tracker 实现。
type BehaviorTracker interface {
	Track(ctx context.Context, b core.Behavior) error
}

// HealthCheck 检查一个依赖是否可用。
type HealthCheck func(ctx context.Context) error

// Server 持有路由与依赖。
type Server struct {
	feed    FeedService
	tracker BehaviorTracker
	checks  map[string]HealthCheck
	soft    map[string]bool
	log     *logger.Logger

	router *gin.Engine
	http   *http.Server
}

// New 创建 Server 并注册路由。
func New(feed FeedService, tracker BehaviorTracker, log *logger.Logger) *Server {
	s := &Server{
		feed:    feed,
		tracker: tracker,
		checks:  make(map[string]HealthCheck),
		soft:    make(map[string]bool),
		log:     logger.OrNop(log),
	}
	s.router = s.routes()
	return s
}

// AddHealthCheck 注册 /healthz 检查项，失败时返回 503。
func (s *Server) AddHealthCheck(name string, check HealthCheck) {
	s.checks[name] = check
	delete(s.soft, name)
}

// AddOptionalHealthCheck 注册可降级的检查项：失败只标记 degraded，仍返回 200。
func (s *Server) AddOptionalHealthCheck(name string, check HealthCheck) {
	s.checks[name] = check
	s.soft[name] = true
}

// Handler 返回 http.Handler，测试中直接使用。
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger(s.log))

	r.GET("/healthz", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.POST("/feed", s.handleFeed)
	r.POST("/behavior", s.handleBehavior)
	return r
}

// ListenAndServe 阻塞直到 Shutdown 被调用或监听失败。
func (s *Server) ListenAndServe(addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.log.Info("http server listening", "addr", addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown 优雅关闭。
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}
