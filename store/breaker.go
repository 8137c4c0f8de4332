package store

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/rushteam/feedrank/core"
	"github.com/rushteam/feedrank/pkg/logger"
)

// BreakerConfig 配置熔断器行为。
type BreakerConfig struct {
	// Name 熔断器名称（日志 / 监控）
	Name string `yaml:"name"`

	// FailureThreshold 连续失败多少次后打开熔断
	FailureThreshold uint32 `yaml:"failure_threshold"`

	// Timeout 打开状态持续多久后进入半开
	Timeout time.Duration `yaml:"timeout"`

	// MaxRequests 半开状态允许通过的请求数
	MaxRequests uint32 `yaml:"max_requests"`
}

func (c BreakerConfig) withDefaults(name string) BreakerConfig {
	if c.Name == "" {
		c.Name = name
	}
	if c.FailureThreshold == 0 {
		c.FailureThreshold = 5
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.MaxRequests == 0 {
		c.MaxRequests = 1
	}
	return c
}

func newBreaker(cfg BreakerConfig, log *logger.Logger) *gobreaker.CircuitBreaker[any] {
	return gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
		// 调用方自己的 ctx 超时或取消不算依赖故障
		IsSuccessful: func(err error) bool {
			var ce *callerError
			return err == nil || errors.Is(err, context.Canceled) || errors.As(err, &ce)
		},
	})
}

// callerError 标记由调用方 ctx 结束导致的失败，熔断器不计入失败次数。
type callerError struct{ err error }

func (e *callerError) Error() string { return e.err.Error() }
func (e *callerError) Unwrap() error { return e.err }

// execute 经由熔断器调用 fn；熔断打开时返回 unavailable 错误而不触达底层存储。
// ctx 已结束时直接返回，不经过熔断器。
func execute[T any](ctx context.Context, cb *gobreaker.CircuitBreaker[any], unavailable *core.DomainError, fn func() (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	v, err := cb.Execute(func() (any, error) {
		r, err := fn()
		if err != nil && ctx.Err() != nil {
			return r, &callerError{err: err}
		}
		return r, err
	})
	if err != nil {
		var ce *callerError
		if errors.As(err, &ce) {
			return zero, ce.err
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, core.WrapDomainError(unavailable.Module, unavailable.Code, unavailable.Message, err)
		}
		return zero, err
	}
	out, _ := v.(T)
	return out, nil
}

// BreakerBehaviorLog 为任意 BehaviorLog 加熔断保护，依赖故障时快速失败，由上层降级。
// 读写各用一个熔断器，查询故障不会阻断行为写入。
type BreakerBehaviorLog struct {
	next  core.BehaviorLog
	read  *gobreaker.CircuitBreaker[any]
	write *gobreaker.CircuitBreaker[any]
}

func NewBreakerBehaviorLog(next core.BehaviorLog, cfg BreakerConfig, log *logger.Logger) *BreakerBehaviorLog {
	cfg = cfg.withDefaults("behavior_log")
	log = logger.OrNop(log)
	writeCfg := cfg
	writeCfg.Name = cfg.Name + "_append"
	return &BreakerBehaviorLog{
		next:  next,
		read:  newBreaker(cfg, log),
		write: newBreaker(writeCfg, log),
	}
}

func (b *BreakerBehaviorLog) Append(ctx context.Context, bh core.Behavior) error {
	_, err := execute(ctx, b.write, core.ErrBehaviorLogUnavailable, func() (struct{}, error) {
		return struct{}{}, b.next.Append(ctx, bh)
	})
	return err
}

func (b *BreakerBehaviorLog) QueryByUser(ctx context.Context, userID string, limit int) ([]core.Behavior, error) {
	return execute(ctx, b.read, core.ErrBehaviorLogUnavailable, func() ([]core.Behavior, error) {
		return b.next.QueryByUser(ctx, userID, limit)
	})
}

func (b *BreakerBehaviorLog) QueryUsersWhoActedOn(ctx context.Context, videoIDs []string, action core.Action, excludeUserID string, limit int) ([]string, error) {
	return execute(ctx, b.read, core.ErrBehaviorLogUnavailable, func() ([]string, error) {
		return b.next.QueryUsersWhoActedOn(ctx, videoIDs, action, excludeUserID, limit)
	})
}

func (b *BreakerBehaviorLog) CountUsersWhoActedOn(ctx context.Context, videoID string, userIDs []string, action core.Action) (int, error) {
	return execute(ctx, b.read, core.ErrBehaviorLogUnavailable, func() (int, error) {
		return b.next.CountUsersWhoActedOn(ctx, videoID, userIDs, action)
	})
}

// State 返回查询熔断器当前状态。
func (b *BreakerBehaviorLog) State() gobreaker.State {
	return b.read.State()
}

// AppendState 返回写入熔断器当前状态。
func (b *BreakerBehaviorLog) AppendState() gobreaker.State {
	return b.write.State()
}

// BreakerCatalog 为 Catalog 加熔断保护。
type BreakerCatalog struct {
	next core.Catalog
	cb   *gobreaker.CircuitBreaker[any]
}

func NewBreakerCatalog(next core.Catalog, cfg BreakerConfig, log *logger.Logger) *BreakerCatalog {
	cfg = cfg.withDefaults("catalog")
	return &BreakerCatalog{next: next, cb: newBreaker(cfg, logger.OrNop(log))}
}

func (b *BreakerCatalog) QueryTrending(ctx context.Context, limit int) ([]*core.Video, error) {
	return execute(ctx, b.cb, core.ErrCatalogUnavailable, func() ([]*core.Video, error) {
		return b.next.QueryTrending(ctx, limit)
	})
}

// State 返回熔断器当前状态。
func (b *BreakerCatalog) State() gobreaker.State {
	return b.cb.State()
}

var (
	_ core.BehaviorLog = (*BreakerBehaviorLog)(nil)
	_ core.Catalog     = (*BreakerCatalog)(nil)
)
