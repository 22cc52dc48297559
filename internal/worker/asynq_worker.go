package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/dujiao-next/marketing/internal/logger"
	"github.com/dujiao-next/marketing/internal/provider"
	"github.com/dujiao-next/marketing/internal/queue"
	"github.com/dujiao-next/marketing/internal/service"

	"github.com/hibiken/asynq"
)

// aggregateRunner 聚合执行入口
type aggregateRunner interface {
	Aggregate(ctx context.Context, input service.AggregateInput) (*service.AggregateResult, error)
}

// Consumer 异步任务消费者
type Consumer struct {
	aggregator aggregateRunner
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	if c == nil {
		return &Consumer{}
	}
	return &Consumer{aggregator: c.MarketingAggregator}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskMarketingAggregate, c.handleMarketingAggregate)
}

func (c *Consumer) handleMarketingAggregate(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil || c.aggregator == nil {
		logger.Debugw("worker_marketing_aggregate_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	payload, err := queue.ParseMarketingAggregatePayload(task)
	if err != nil {
		logger.Warnw("worker_marketing_aggregate_unmarshal_failed", "error", err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	input, err := aggregateInputFromPayload(payload)
	if err != nil {
		logger.Warnw("worker_marketing_aggregate_invalid_payload",
			"from", payload.From,
			"to", payload.To,
			"error", err,
		)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	result, err := c.aggregator.Aggregate(ctx, input)
	if err != nil {
		if errors.Is(err, service.ErrStatsRangeInvalid) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		logger.Warnw("worker_marketing_aggregate_failed", "trigger", payload.Trigger, "error", err)
		return err
	}
	logger.Debugw("worker_marketing_aggregate_done",
		"trigger", payload.Trigger,
		"mode", result.Mode,
		"upserted", result.Upserted,
	)
	return nil
}

func aggregateInputFromPayload(payload queue.MarketingAggregatePayload) (service.AggregateInput, error) {
	from, err := service.ParseStatDate(payload.From)
	if err != nil {
		return service.AggregateInput{}, err
	}
	to, err := service.ParseStatDate(payload.To)
	if err != nil {
		return service.AggregateInput{}, err
	}
	return service.AggregateInput{From: from, To: to, TenantID: payload.TenantID}, nil
}
