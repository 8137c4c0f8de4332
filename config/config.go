// Package config 加载服务配置（YAML），并把 pipeline 节点配置构建成 Node。
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rushteam/feedrank/core"
	"github.com/rushteam/feedrank/pipeline"
	"github.com/rushteam/feedrank/store"
	"github.com/rushteam/feedrank/tracker"
)

// 存储与缓存后端。
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config 是 feedserver 的完整配置。
type Config struct {
	Server   ServerConfig    `yaml:"server"`
	Log      LogConfig       `yaml:"log"`
	Store    StoreConfig     `yaml:"store"`
	Cache    CacheConfig     `yaml:"cache"`
	Kafka    KafkaConfig     `yaml:"kafka"`
	Engine   EngineConfig    `yaml:"engine"`
	Pipeline pipeline.Config `yaml:"pipeline"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LogConfig struct {
	// Mode: dev / prod
	Mode string `yaml:"mode"`
}

type StoreConfig struct {
	// Backend: memory / sqlite
	Backend    string              `yaml:"backend"`
	SQLitePath string              `yaml:"sqlite_path"`
	Breaker    store.BreakerConfig `yaml:"breaker"`

	// SeedVideos 启动时导入目录的视频列表文件（YAML），可选
	SeedVideos string `yaml:"seed_videos"`
}

type CacheConfig struct {
	// Backend: memory / redis
	Backend   string        `yaml:"backend"`
	TTL       time.Duration `yaml:"ttl"`
	RedisAddr string        `yaml:"redis_addr"`
	RedisDB   int           `yaml:"redis_db"`
}

type KafkaConfig struct {
	Enabled             bool `yaml:"enabled"`
	tracker.KafkaConfig `yaml:",inline"`
}

type EngineConfig struct {
	// Deadline 拉取 + 打分 + 重排的总时限
	Deadline time.Duration `yaml:"deadline"`

	// CollaborativeTimeout 协同过滤单次查询超时
	CollaborativeTimeout time.Duration `yaml:"collaborative_timeout"`

	ProfileCacheTTL  time.Duration `yaml:"profile_cache_ttl"`
	ProfileCacheSize int           `yaml:"profile_cache_size"`
}

// Default 返回默认配置：内存存储、内存缓存、标准 pipeline。
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Log:   LogConfig{Mode: "dev"},
		Store: StoreConfig{Backend: BackendMemory, SQLitePath: "feedrank.db"},
		Cache: CacheConfig{
			Backend:   BackendMemory,
			TTL:       core.FeedCacheTTL,
			RedisAddr: "localhost:6379",
		},
		Kafka: KafkaConfig{
			KafkaConfig: tracker.KafkaConfig{Topic: "feedrank.behaviors"},
		},
		Engine: EngineConfig{
			Deadline:             core.PipelineTimeout,
			CollaborativeTimeout: core.CollaborativeTimeout,
			ProfileCacheTTL:      30 * time.Second,
			ProfileCacheSize:     10000,
		},
		Pipeline: DefaultPipeline(),
	}
}

// DefaultPipeline 是标准链路：排除过滤 → 综合打分 → 多样性重排 → 分页。
func DefaultPipeline() pipeline.Config {
	return pipeline.Config{
		Name: "feed",
		Nodes: []pipeline.NodeConfig{
			{Type: TypeExclude},
			{Type: TypeComposite},
			{Type: TypeDiversity, Config: map[string]interface{}{"mode": "by_attribute"}},
			{Type: TypePage},
		},
	}
}

// Load 读取 YAML 文件，未配置的字段保留默认值。
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse 解析 YAML 内容并校验。
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if len(cfg.Pipeline.Nodes) == 0 {
		cfg.Pipeline = DefaultPipeline()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 检查配置的取值范围；pipeline 节点类型由 ValidatePipeline 在构建时检查。
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	switch c.Store.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.Store.SQLitePath == "" {
			errs = append(errs, errors.New("store.sqlite_path is required for sqlite backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.backend %q is not one of memory, sqlite", c.Store.Backend))
	}
	switch c.Cache.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Cache.RedisAddr == "" {
			errs = append(errs, errors.New("cache.redis_addr is required for redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("cache.backend %q is not one of memory, redis", c.Cache.Backend))
	}
	if c.Cache.TTL <= 0 {
		errs = append(errs, errors.New("cache.ttl must be positive"))
	}
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			errs = append(errs, errors.New("kafka.brokers is required when kafka is enabled"))
		}
		if c.Kafka.Topic == "" {
			errs = append(errs, errors.New("kafka.topic is required when kafka is enabled"))
		}
	}
	if c.Engine.Deadline <= 0 {
		errs = append(errs, errors.New("engine.deadline must be positive"))
	}
	if c.Engine.CollaborativeTimeout <= 0 {
		errs = append(errs, errors.New("engine.collaborative_timeout must be positive"))
	}
	if c.Engine.CollaborativeTimeout > c.Engine.Deadline {
		errs = append(errs, errors.New("engine.collaborative_timeout must not exceed engine.deadline"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
