package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/rushteam/feedrank/core"
	"github.com/rushteam/feedrank/pkg/logger"
)

// KafkaConfig Kafka 转发配置
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`

	ClientID    string `yaml:"client_id"`
	Compression string `yaml:"compression"` // gzip, snappy, lz4, zstd
	MaxRetries  int    `yaml:"max_retries"`

	// FlushTimeout 关闭时等待缓冲发送完成的最长时间
	FlushTimeout time.Duration `yaml:"flush_timeout"`
}

// KafkaPublisher 把行为以 JSON 异步写入 Kafka，UserID 作为消息 Key 保证同一用户有序。
type KafkaPublisher struct {
	client       *kgo.Client
	topic        string
	flushTimeout time.Duration
	Logger       *logger.Logger
}

// NewKafkaPublisher 创建 Kafka 转发器。
func NewKafkaPublisher(cfg KafkaConfig) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka: no brokers configured")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka: topic is required")
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "feedrank-tracker"
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.FlushTimeout <= 0 {
		cfg.FlushTimeout = 5 * time.Second
	}

	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ClientID(cfg.ClientID),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.RequiredAcks(kgo.LeaderAck()),
		kgo.DisableIdempotentWrite(),
		kgo.RecordRetries(cfg.MaxRetries),
	}
	switch cfg.Compression {
	case "gzip":
		opts = append(opts, kgo.ProducerBatchCompression(kgo.GzipCompression()))
	case "snappy":
		opts = append(opts, kgo.ProducerBatchCompression(kgo.SnappyCompression()))
	case "lz4":
		opts = append(opts, kgo.ProducerBatchCompression(kgo.Lz4Compression()))
	case "zstd":
		opts = append(opts, kgo.ProducerBatchCompression(kgo.ZstdCompression()))
	case "":
	default:
		return nil, fmt.Errorf("kafka: unknown compression %q", cfg.Compression)
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("kafka: new client: %w", err)
	}
	return &KafkaPublisher{
		client:       client,
		topic:        cfg.Topic,
		flushTimeout: cfg.FlushTimeout,
	}, nil
}

// Publish 异步发送，不等待 broker 确认；发送失败在回调中记录日志。
func (p *KafkaPublisher) Publish(ctx context.Context, b core.Behavior) error {
	record, err := newRecord(p.topic, b)
	if err != nil {
		return err
	}
	// 回调在 Track 返回后才执行，不能绑定请求的 ctx
	p.client.Produce(context.WithoutCancel(ctx), record, func(r *kgo.Record, err error) {
		if err != nil {
			logger.OrNop(p.Logger).Warn("kafka produce failed", "topic", r.Topic, "key", string(r.Key), "error", err)
		}
	})
	return nil
}

// Close 等待缓冲中的消息发送完成后关闭客户端。
func (p *KafkaPublisher) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), p.flushTimeout)
	defer cancel()
	err := p.client.Flush(ctx)
	p.client.Close()
	if err != nil {
		return fmt.Errorf("kafka: flush: %w", err)
	}
	return nil
}

func newRecord(topic string, b core.Behavior) (*kgo.Record, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("kafka: marshal behavior: %w", err)
	}
	return &kgo.Record{
		Topic: topic,
		Key:   []byte(b.UserID),
		Value: data,
	}, nil
}

var _ Publisher = (*KafkaPublisher)(nil)
