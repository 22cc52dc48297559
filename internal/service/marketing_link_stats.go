package service

import (
	"context"
	"time"

	"github.com/dujiao-next/marketing/internal/cache"
	"github.com/dujiao-next/marketing/internal/constants"
	"github.com/dujiao-next/marketing/internal/logger"
)

// LinkStatsQuery 链接统计查询
type LinkStatsQuery struct {
	TenantID     uint
	LinkID       uint
	From         *time.Time
	To           *time.Time
	ForceRefresh bool
}

// LinkDailyPoint 链接日统计点
type LinkDailyPoint struct {
	Date        string `json:"date"`
	Visits      int64  `json:"visits"`
	Conversions int64  `json:"conversions"`
}

// LinkStatsReport 链接统计报表
type LinkStatsReport struct {
	LinkID         uint             `json:"link_id"`
	CID            string           `json:"cid"`
	Name           string           `json:"name"`
	Status         string           `json:"status"`
	Provenance     string           `json:"provenance"`
	Visits         int64            `json:"visits"`
	Conversions    int64            `json:"conversions"`
	ConversionRate string           `json:"conversion_rate"`
	Daily          []LinkDailyPoint `json:"daily"`
	DateRange      SummaryDateRange `json:"date_range"`
}

// OverviewQuery 概览查询
type OverviewQuery struct {
	TenantID uint
	From     *time.Time
	To       *time.Time
}

// OverviewMarketing 概览中的营销部分
type OverviewMarketing struct {
	TotalVisits      int64  `json:"total_visits"`
	TotalConversions int64  `json:"total_conversions"`
	ConversionRate   string `json:"conversion_rate"`
	TrackedLinks     int    `json:"tracked_links"`
}

// OverviewLinks 概览中的链接部分
type OverviewLinks struct {
	Active   int64 `json:"active"`
	Archived int64 `json:"archived"`
}

// OverviewReport 统计概览
// 各部分独立降级，某一部分失败时 data_sources 标记为 error。
type OverviewReport struct {
	TenantID    uint              `json:"tenant_id"`
	Campaigns   int64             `json:"campaigns"`
	Marketing   OverviewMarketing `json:"marketing"`
	Links       OverviewLinks     `json:"links"`
	DataSources map[string]string `json:"data_sources"`
	DateRange   SummaryDateRange  `json:"date_range"`
}

const overviewSourceError = "error"

// GetLinkStats 单个链接的统计与日序列
func (s *MarketingSummaryService) GetLinkStats(ctx context.Context, query LinkStatsQuery) (*LinkStatsReport, error) {
	window, err := s.resolveWindow(query.From, query.To)
	if err != nil {
		return nil, err
	}
	link, err := s.linkRepo.GetByID(query.TenantID, query.LinkID)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, ErrCampaignLinkNotFound
	}

	cacheKey := cache.StatsKey(query.TenantID, "link", link.ID, window.fromDate, window.toDate)
	if !query.ForceRefresh {
		var cached LinkStatsReport
		hit, cacheErr := cache.GetJSON(ctx, cacheKey, &cached)
		if cacheErr == nil && hit {
			return &cached, nil
		}
	}

	report := &LinkStatsReport{
		LinkID:    link.ID,
		CID:       link.CID,
		Name:      link.Name,
		Status:    link.Status,
		DateRange: SummaryDateRange{From: window.fromDate, To: window.toDate},
	}

	rows, trusted, err := s.loadTrustedLinkRows(query.TenantID, link.ID, window)
	if err != nil {
		return nil, err
	}
	if trusted {
		report.Provenance = constants.StatsProvenanceAggregated
	} else {
		var campaignIDs []uint
		if link.TargetType == constants.LinkTargetCampaign {
			campaignIDs = []uint{link.TargetID}
		} else {
			// 直播目标的访问不带活动ID，不在聚合范围内
			campaignIDs = []uint{}
		}
		linkID := link.ID
		rows, err = s.computeRawRows(query.TenantID, window, campaignIDs, &linkID)
		if err != nil {
			return nil, err
		}
		report.Provenance = constants.StatsProvenanceRaw
	}

	index := make(map[string]int)
	for day := window.startAt; day.Before(window.endAt); day = day.AddDate(0, 0, 1) {
		date := day.Format(statDateLayout)
		index[date] = len(report.Daily)
		report.Daily = append(report.Daily, LinkDailyPoint{Date: date})
	}
	for _, row := range rows {
		report.Visits += row.Visits
		report.Conversions += row.Conversions
		if i, ok := index[row.Key.StatDate]; ok {
			report.Daily[i].Visits += row.Visits
			report.Daily[i].Conversions += row.Conversions
		}
	}
	report.ConversionRate = formatRate(report.Conversions, report.Visits)
	s.metrics.RecordSummary("link", report.Provenance)

	_ = cache.SetJSON(ctx, cacheKey, report, s.cacheTTL)
	return report, nil
}

func (s *MarketingSummaryService) loadTrustedLinkRows(tenantID, linkID uint, window statsWindow) ([]marketingBucketRow, bool, error) {
	stored, err := s.statRepo.ListByLinkRange(tenantID, linkID, window.fromDate, window.toDate)
	if err != nil {
		return nil, false, err
	}
	if len(stored) == 0 {
		return nil, false, nil
	}
	countRaw := func(startAt, endAt time.Time) (int64, error) {
		return s.eventRepo.CountLinkConversions(linkID, startAt, endAt)
	}
	_, trusted, err := s.checkConsistency(stored, window, countRaw)
	if err != nil || !trusted {
		return nil, false, err
	}
	return statRowsToBuckets(stored), true, nil
}

// GetOverview 统计概览
func (s *MarketingSummaryService) GetOverview(ctx context.Context, query OverviewQuery) (*OverviewReport, error) {
	window, err := s.resolveWindow(query.From, query.To)
	if err != nil {
		return nil, err
	}
	report := &OverviewReport{
		TenantID:    query.TenantID,
		DataSources: map[string]string{},
		DateRange:   SummaryDateRange{From: window.fromDate, To: window.toDate},
	}

	summary, err := s.Summarize(ctx, SummaryQuery{TenantID: query.TenantID, From: &window.startAt, To: query.To})
	if err != nil {
		logger.Warnw("marketing_overview_summary_failed", "tenant_id", query.TenantID, "error", err)
		report.DataSources["marketing"] = overviewSourceError
	} else {
		report.Marketing = OverviewMarketing{
			TotalVisits:      summary.TotalVisits,
			TotalConversions: summary.TotalConversions,
			ConversionRate:   summary.ConversionRate,
			TrackedLinks:     len(summary.ConversionsByLink),
		}
		report.DataSources["marketing"] = summary.Provenance
	}

	counts, err := s.linkRepo.CountByStatus(query.TenantID)
	if err != nil {
		logger.Warnw("marketing_overview_links_failed", "tenant_id", query.TenantID, "error", err)
		report.DataSources["links"] = overviewSourceError
	} else {
		report.Links = OverviewLinks{
			Active:   counts[constants.CampaignLinkStatusActive],
			Archived: counts[constants.CampaignLinkStatusArchived],
		}
		report.DataSources["links"] = constants.StatsProvenanceRaw
	}

	campaigns, err := s.campaignRepo.CountByTenant(query.TenantID)
	if err != nil {
		logger.Warnw("marketing_overview_campaigns_failed", "tenant_id", query.TenantID, "error", err)
		report.DataSources["campaigns"] = overviewSourceError
	} else {
		report.Campaigns = campaigns
		report.DataSources["campaigns"] = constants.StatsProvenanceRaw
	}
	return report, nil
}
