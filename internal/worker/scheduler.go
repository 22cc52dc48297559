package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dujiao-next/marketing/internal/logger"
	"github.com/dujiao-next/marketing/internal/queue"
	"github.com/dujiao-next/marketing/internal/service"
)

const defaultAggregateInterval = 10 * time.Minute

// AggregateTrigger 触发一次增量聚合
type AggregateTrigger func(ctx context.Context) error

// QueueTrigger 通过队列投递增量聚合，多实例部署时同一周期只执行一次
func QueueTrigger(client *queue.Client, interval time.Duration) AggregateTrigger {
	return func(ctx context.Context) error {
		_, err := client.EnqueueMarketingAggregate(queue.MarketingAggregatePayload{Trigger: queue.TriggerSchedule}, interval)
		if errors.Is(err, queue.ErrDuplicateTask) {
			logger.Debugw("aggregate_scheduler_task_pending")
			return nil
		}
		return err
	}
}

// InlineTrigger 队列未启用时在进程内直接执行
func InlineTrigger(runner aggregateRunner) AggregateTrigger {
	return func(ctx context.Context) error {
		_, err := runner.Aggregate(ctx, service.AggregateInput{})
		return err
	}
}

// Scheduler 增量聚合定时器
type Scheduler struct {
	interval time.Duration
	trigger  AggregateTrigger
	stopOnce sync.Once
	stopped  chan struct{}
}

// AggregateInterval 配置分钟数转为执行间隔
func AggregateInterval(intervalMinutes int) time.Duration {
	if intervalMinutes > 0 {
		return time.Duration(intervalMinutes) * time.Minute
	}
	return defaultAggregateInterval
}

// NewScheduler 创建定时器
func NewScheduler(intervalMinutes int, trigger AggregateTrigger) *Scheduler {
	return &Scheduler{interval: AggregateInterval(intervalMinutes), trigger: trigger, stopped: make(chan struct{})}
}

// Interval 执行间隔
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// Name 服务名称
func (s *Scheduler) Name() string {
	return "aggregate-scheduler"
}

// Start 启动定时循环，阻塞直到 Stop 或 ctx 结束
func (s *Scheduler) Start(ctx context.Context) error {
	if s.trigger == nil {
		return errors.New("aggregate trigger is nil")
	}
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.stopped:
			cancel()
		case <-runCtx.Done():
		}
	}()

	s.runOnce(runCtx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-runCtx.Done():
			return nil
		case <-ticker.C:
			s.runOnce(runCtx)
		}
	}
}

// Stop 停止定时循环
func (s *Scheduler) Stop(ctx context.Context) error {
	_ = ctx
	s.stopOnce.Do(func() { close(s.stopped) })
	return nil
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if err := s.trigger(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Warnw("aggregate_scheduler_trigger_failed", "error", err)
	}
}
