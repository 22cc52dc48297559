package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dujiao-next/marketing/internal/config"
	"github.com/dujiao-next/marketing/internal/logger"

	"github.com/IBM/sarama"
)

const defaultSessionTimeout = 10 * time.Second

// MessageHandler 消息处理函数
type MessageHandler func(ctx context.Context, topic string, key, value []byte) error

// Consumer Kafka 消费组，作为应用服务运行
type Consumer struct {
	group   sarama.ConsumerGroup
	topics  []string
	handler MessageHandler

	mu    sync.Mutex
	ready chan struct{}
}

// NewConsumer 创建消费组
func NewConsumer(cfg *config.KafkaConfig, handler MessageHandler) (*Consumer, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("kafka disabled")
	}
	if handler == nil {
		return nil, errors.New("kafka handler is nil")
	}
	if len(cfg.Brokers) == 0 || len(cfg.Topics) == 0 {
		return nil, errors.New("kafka brokers and topics are required")
	}
	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, buildSaramaConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("create consumer group: %w", err)
	}
	logger.Infow("kafka_consumer_initialized",
		"brokers", cfg.Brokers,
		"topics", cfg.Topics,
		"group_id", cfg.GroupID,
	)
	return &Consumer{
		group:   group,
		topics:  cfg.Topics,
		handler: handler,
		ready:   make(chan struct{}),
	}, nil
}

func buildSaramaConfig(cfg *config.KafkaConfig) *sarama.Config {
	sc := sarama.NewConfig()
	sc.Version = sarama.V3_3_0_0
	sc.Consumer.Return.Errors = true
	sc.Consumer.Offsets.Initial = sarama.OffsetOldest
	sc.Consumer.Offsets.AutoCommit.Enable = true
	sc.Consumer.Offsets.AutoCommit.Interval = time.Second

	timeout := defaultSessionTimeout
	if cfg.SessionTimeoutMS > 0 {
		timeout = time.Duration(cfg.SessionTimeoutMS) * time.Millisecond
	}
	sc.Consumer.Group.Session.Timeout = timeout
	sc.Consumer.Group.Heartbeat.Interval = timeout / 3

	switch cfg.RebalanceStrategy {
	case "sticky":
		sc.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategySticky()}
	case "roundrobin":
		sc.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	default:
		sc.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRange()}
	}
	return sc
}

// Name 服务名称
func (c *Consumer) Name() string {
	return "kafka-ingest"
}

// Start 加入消费组，重平衡后自动重新加入，直到 ctx 结束
func (c *Consumer) Start(ctx context.Context) error {
	go c.drainErrors(ctx)
	for {
		// Consume 在重平衡或 ctx 结束时返回
		if err := c.group.Consume(ctx, c.topics, c); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			logger.Errorw("kafka_consume_failed", "error", err)
		}
		if ctx.Err() != nil {
			return nil
		}
		c.mu.Lock()
		c.ready = make(chan struct{})
		c.mu.Unlock()
	}
}

// Stop 关闭消费组
func (c *Consumer) Stop(ctx context.Context) error {
	_ = ctx
	if err := c.group.Close(); err != nil {
		logger.Errorw("kafka_consumer_close_failed", "error", err)
		return err
	}
	logger.Infow("kafka_consumer_closed")
	return nil
}

// Ready 当前会话就绪信号
func (c *Consumer) Ready() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

func (c *Consumer) drainErrors(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-c.group.Errors():
			if !ok {
				return
			}
			logger.Warnw("kafka_consumer_error", "error", err)
		}
	}
}

// Setup 新会话开始（重平衡之后）
func (c *Consumer) Setup(sarama.ConsumerGroupSession) error {
	logger.Infow("kafka_consumer_rebalanced")
	c.mu.Lock()
	close(c.ready)
	c.mu.Unlock()
	return nil
}

// Cleanup 会话结束
func (c *Consumer) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim 处理单个分区的消息
// 处理失败的消息同样确认，避免单条坏消息阻塞分区。
func (c *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok || message == nil {
				return nil
			}
			if err := c.handler(session.Context(), message.Topic, message.Key, message.Value); err != nil {
				logger.Warnw("kafka_message_process_failed",
					"topic", message.Topic,
					"partition", message.Partition,
					"offset", message.Offset,
					"error", err,
				)
			}
			session.MarkMessage(message, "")
		case <-session.Context().Done():
			return nil
		}
	}
}
