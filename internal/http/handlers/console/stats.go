package console

import (
	handlershared "github.com/dujiao-next/marketing/internal/http/handlers/shared"
	"github.com/dujiao-next/marketing/internal/http/response"
	"github.com/dujiao-next/marketing/internal/service"

	"github.com/gin-gonic/gin"
)

// GetSummary 营销汇总（来源/媒介/活动/组合/链接）
func (h *Handler) GetSummary(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}
	from, to, ok := handlershared.ParseDateRange(c)
	if !ok {
		return
	}
	report, err := h.MarketingSummaryService.Summarize(c.Request.Context(), service.SummaryQuery{
		TenantID:     tenantID,
		From:         from,
		To:           to,
		ForceRefresh: handlershared.QueryBool(c, "refresh"),
	})
	if err != nil {
		respondMappedError(c, err, "error.internal")
		return
	}
	response.Success(c, report)
}

// GetLinkStats 单个链接统计与日序列
func (h *Handler) GetLinkStats(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}
	id, ok := handlershared.ParseUintParam(c, "id", "error.link_not_found")
	if !ok {
		return
	}
	from, to, ok := handlershared.ParseDateRange(c)
	if !ok {
		return
	}
	report, err := h.MarketingSummaryService.GetLinkStats(c.Request.Context(), service.LinkStatsQuery{
		TenantID:     tenantID,
		LinkID:       id,
		From:         from,
		To:           to,
		ForceRefresh: handlershared.QueryBool(c, "refresh"),
	})
	if err != nil {
		respondMappedError(c, err, "error.internal")
		return
	}
	response.Success(c, report)
}

// GetOverview 统计概览
func (h *Handler) GetOverview(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}
	from, to, ok := handlershared.ParseDateRange(c)
	if !ok {
		return
	}
	report, err := h.MarketingSummaryService.GetOverview(c.Request.Context(), service.OverviewQuery{
		TenantID: tenantID,
		From:     from,
		To:       to,
	})
	if err != nil {
		respondMappedError(c, err, "error.internal")
		return
	}
	response.Success(c, report)
}
