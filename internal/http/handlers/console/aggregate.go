package console

import (
	"errors"
	"strings"
	"time"

	handlershared "github.com/dujiao-next/marketing/internal/http/handlers/shared"
	"github.com/dujiao-next/marketing/internal/http/response"
	"github.com/dujiao-next/marketing/internal/i18n"
	"github.com/dujiao-next/marketing/internal/queue"
	"github.com/dujiao-next/marketing/internal/service"

	"github.com/gin-gonic/gin"
)

// 手动触发的去重窗口
const manualAggregateUniqueTTL = time.Minute

// TriggerAggregate 控制台手动聚合，范围限定为当前租户
func (h *Handler) TriggerAggregate(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}
	h.runAggregate(c, &tenantID, queue.TriggerConsole)
}

// CronAggregate 外部定时器触发的聚合，tenant_id 可选
func (h *Handler) CronAggregate(c *gin.Context) {
	tenantID, ok := handlershared.ParseOptionalUintQuery(c, "tenant_id")
	if !ok {
		return
	}
	h.runAggregate(c, tenantID, queue.TriggerCron)
}

// runAggregate 队列可用时入队，否则同步执行
func (h *Handler) runAggregate(c *gin.Context, tenantID *uint, trigger string) {
	from, to, ok := handlershared.ParseDateRange(c)
	if !ok {
		return
	}

	if h.QueueClient.Enabled() {
		payload := queue.MarketingAggregatePayload{
			From:     strings.TrimSpace(c.Query("from")),
			To:       strings.TrimSpace(c.Query("to")),
			TenantID: tenantID,
			Trigger:  trigger,
		}
		taskID, err := h.QueueClient.EnqueueMarketingAggregate(payload, manualAggregateUniqueTTL)
		locale := i18n.ResolveLocale(c)
		if errors.Is(err, queue.ErrDuplicateTask) {
			response.SuccessWithMsg(c, i18n.T(locale, "msg.aggregate_pending"), gin.H{"queued": false})
			return
		}
		if err != nil {
			respondError(c, response.CodeInternal, "error.aggregate_failed", err)
			return
		}
		requestLog(c).Infow("marketing_aggregate_enqueued", "task_id", taskID, "trigger", trigger)
		response.SuccessWithMsg(c, i18n.T(locale, "msg.aggregate_queued"), gin.H{"queued": true, "task_id": taskID})
		return
	}

	result, err := h.MarketingAggregator.Aggregate(c.Request.Context(), service.AggregateInput{
		From:     from,
		To:       to,
		TenantID: tenantID,
	})
	if err != nil {
		if errors.Is(err, service.ErrStatsRangeInvalid) {
			respondError(c, response.CodeBadRequest, "error.stats_range_invalid", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.aggregate_failed", err)
		return
	}
	response.Success(c, gin.H{"queued": false, "result": result})
}
