package queue

import (
	"encoding/json"

	"github.com/dujiao-next/marketing/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskMarketingAggregate 营销日统计聚合任务
	TaskMarketingAggregate = constants.TaskMarketingAggregate
)

// 聚合任务触发来源
const (
	TriggerSchedule = "schedule"
	TriggerConsole  = "console"
	TriggerCron     = "cron"
)

// MarketingAggregatePayload 聚合任务载荷
// From/To 为空时按增量模式执行（最近 lookback_hours）。
type MarketingAggregatePayload struct {
	From     string `json:"from,omitempty"` // YYYY-MM-DD
	To       string `json:"to,omitempty"`   // YYYY-MM-DD
	TenantID *uint  `json:"tenant_id,omitempty"`
	Trigger  string `json:"trigger"`
}

// NewMarketingAggregateTask 创建聚合任务
func NewMarketingAggregateTask(payload MarketingAggregatePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskMarketingAggregate, body), nil
}

// ParseMarketingAggregatePayload 解析聚合任务载荷
func ParseMarketingAggregatePayload(task *asynq.Task) (MarketingAggregatePayload, error) {
	var payload MarketingAggregatePayload
	if task == nil || len(task.Payload()) == 0 {
		return payload, nil
	}
	err := json.Unmarshal(task.Payload(), &payload)
	return payload, err
}
