package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/feedrank/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once
)

// initCELEnv 初始化 CEL 环境，定义变量
func initCELEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("item", cel.DynType),
		cel.Variable("breakdown", cel.DynType),
		cel.Variable("video", cel.DynType),
		cel.Variable("rctx", cel.DynType),
	)
}

// getCELEnv 获取或创建 CEL 环境
func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = initCELEnv()
	})
	return celEnv, celEnvErr
}

// Expr 是编译好的布尔表达式，使用 CEL (Common Expression Language) 语法，可并发复用。
//
// 可用变量：
//   - item.score / item.video_id / item.reasons
//   - breakdown.trending / engagement / relevance / recency / collaborative / category / location
//   - video.category / video.location / video.views / video.likes / video.comments / video.shares / video.age_hours
//   - rctx.user_id / rctx.params
//
// 示例：
//   - `breakdown.collaborative > 0.8`
//   - `video.category == "music" && breakdown.recency > 0.5`
//   - `"hot" in rctx.params && item.score > 0.6`
type Expr struct {
	src string
	prg cel.Program
}

// Compile 编译表达式，要求结果类型为 bool。
func Compile(expr string) (*Expr, error) {
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", issues.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %w", err)
	}
	return &Expr{src: expr, prg: prg}, nil
}

// String 返回原始表达式。
func (e *Expr) String() string { return e.src }

// Evaluate 对单个打分结果求值。
func (e *Expr) Evaluate(item *core.Item, rctx *core.RecommendContext) (bool, error) {
	out, _, err := e.prg.Eval(buildInput(item, rctx))
	if err != nil {
		return false, fmt.Errorf("eval error: %w", err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression must return boolean, got %T", out.Value())
	}
	return result, nil
}

// buildInput 构建 CEL 表达式的输入数据
func buildInput(item *core.Item, rctx *core.RecommendContext) map[string]interface{} {
	bd := item.Breakdown
	breakdown := map[string]interface{}{
		"trending":      bd.Trending,
		"engagement":    bd.Engagement,
		"relevance":     bd.Relevance,
		"recency":       bd.Recency,
		"diversity":     bd.Diversity,
		"collaborative": bd.Collaborative,
		"category":      bd.Category,
		"location":      bd.Location,
	}

	video := map[string]interface{}{}
	if v := item.Video; v != nil {
		video = map[string]interface{}{
			"id":       v.ID,
			"category": v.Category,
			"location": v.Location,
			"views":    v.ViewCount,
			"likes":    v.LikeCount,
			"comments": v.CommentCount,
			"shares":   v.ShareCount,
		}
		if !v.CreatedAt.IsZero() {
			video["created_unix"] = v.CreatedAt.Unix()
		}
	}

	reasons := make([]interface{}, 0, len(item.Reasons))
	for _, r := range item.Reasons {
		reasons = append(reasons, r)
	}

	rc := map[string]interface{}{
		"user_id": "",
		"params":  map[string]interface{}{},
	}
	if rctx != nil {
		rc["user_id"] = rctx.UserID
		if rctx.Params != nil {
			rc["params"] = rctx.Params
		}
	}

	return map[string]interface{}{
		"item": map[string]interface{}{
			"video_id": item.VideoID,
			"score":    item.Score,
			"reasons":  reasons,
		},
		"breakdown": breakdown,
		"video":     video,
		"rctx":      rc,
	}
}
