package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dujiao-next/marketing/internal/cache"
	"github.com/dujiao-next/marketing/internal/constants"
	"github.com/dujiao-next/marketing/internal/logger"
	"github.com/dujiao-next/marketing/internal/metrics"
	"github.com/dujiao-next/marketing/internal/models"
	"github.com/dujiao-next/marketing/internal/repository"

	"github.com/shopspring/decimal"
)

const (
	defaultConsistencyRatio   = "0.95"
	defaultBackfillCutoffHour = 10
	defaultSummaryRangeDays   = 30
	defaultSummaryCacheTTL    = 30 * time.Second
	summaryMaxRangeDays       = 366
)

// SummaryOptions 汇总查询配置
type SummaryOptions struct {
	ConsistencyRatio   float64
	BackfillCutoffHour int
	Timezone           string
	CacheTTLSeconds    int
	DefaultRangeDays   int
}

// SummaryQuery 汇总查询输入（日期按 UTC 自然日）
type SummaryQuery struct {
	TenantID     uint
	From         *time.Time
	To           *time.Time
	ForceRefresh bool
}

// SummaryDateRange 日期范围
type SummaryDateRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// SummaryBreakdownItem 单维度统计
type SummaryBreakdownItem struct {
	Value  *string `json:"value"`
	Visits int64   `json:"visits"`
	Count  int64   `json:"count"`
}

// SummaryComboItem source|medium|campaign 组合统计
type SummaryComboItem struct {
	Source   *string `json:"source"`
	Medium   *string `json:"medium"`
	Campaign *string `json:"campaign"`
	Visits   int64   `json:"visits"`
	Count    int64   `json:"count"`
}

// SummaryLinkItem 链接统计
type SummaryLinkItem struct {
	LinkID   uint   `json:"link_id"`
	LinkName string `json:"link_name"`
	Visits   int64  `json:"visits"`
	Count    int64  `json:"count"`
}

// SummaryConsistency 一致性检查明细
type SummaryConsistency struct {
	RawConversions        int64  `json:"raw_conversions"`
	AggregatedConversions int64  `json:"aggregated_conversions"`
	Coverage              string `json:"coverage"`
	HistoricalEnd         string `json:"historical_end,omitempty"`
	HistoricalRaw         int64  `json:"historical_raw"`
	HistoricalAggregated  int64  `json:"historical_aggregated"`
	Decision              string `json:"decision"`
}

// SummaryReport 营销汇总报表
type SummaryReport struct {
	TenantID              uint                   `json:"tenant_id"`
	Provenance            string                 `json:"provenance"`
	TotalVisits           int64                  `json:"total_visits"`
	TotalConversions      int64                  `json:"total_conversions"`
	ConversionRate        string                 `json:"conversion_rate"`
	ConversionsBySource   []SummaryBreakdownItem `json:"conversions_by_source"`
	ConversionsByMedium   []SummaryBreakdownItem `json:"conversions_by_medium"`
	ConversionsByCampaign []SummaryBreakdownItem `json:"conversions_by_campaign"`
	ConversionsByCombo    []SummaryComboItem     `json:"conversions_by_combo"`
	ConversionsByLink     []SummaryLinkItem      `json:"conversions_by_link"`
	Consistency           *SummaryConsistency    `json:"consistency,omitempty"`
	DateRange             SummaryDateRange       `json:"date_range"`
}

// MarketingSummaryService 营销汇总查询服务
// 说明：优先读日统计表，一致性检查不通过时回退到原始记录计算。
type MarketingSummaryService struct {
	campaignRepo repository.CampaignRepository
	linkRepo     repository.CampaignLinkRepository
	eventRepo    repository.MarketingEventRepository
	statRepo     repository.MarketingStatRepository
	metrics      *metrics.Metrics

	ratio            decimal.Decimal
	cutoffHour       int
	location         *time.Location
	cacheTTL         time.Duration
	defaultRangeDays int
	now              func() time.Time
}

// NewMarketingSummaryService 创建汇总查询服务
func NewMarketingSummaryService(
	campaignRepo repository.CampaignRepository,
	linkRepo repository.CampaignLinkRepository,
	eventRepo repository.MarketingEventRepository,
	statRepo repository.MarketingStatRepository,
	options SummaryOptions,
	m *metrics.Metrics,
) *MarketingSummaryService {
	ratio := decimal.RequireFromString(defaultConsistencyRatio)
	if options.ConsistencyRatio > 0 && options.ConsistencyRatio <= 1 {
		ratio = decimal.NewFromFloat(options.ConsistencyRatio)
	}
	cutoffHour := defaultBackfillCutoffHour
	if options.BackfillCutoffHour >= 0 && options.BackfillCutoffHour < 24 {
		cutoffHour = options.BackfillCutoffHour
	}
	location := time.UTC
	if tz := strings.TrimSpace(options.Timezone); tz != "" {
		loaded, err := time.LoadLocation(tz)
		if err != nil {
			logger.Warnw("marketing_summary_timezone_invalid", "timezone", tz, "error", err)
		} else {
			location = loaded
		}
	}
	cacheTTL := defaultSummaryCacheTTL
	if options.CacheTTLSeconds > 0 {
		cacheTTL = time.Duration(options.CacheTTLSeconds) * time.Second
	}
	rangeDays := defaultSummaryRangeDays
	if options.DefaultRangeDays > 0 {
		rangeDays = options.DefaultRangeDays
	}
	return &MarketingSummaryService{
		campaignRepo:     campaignRepo,
		linkRepo:         linkRepo,
		eventRepo:        eventRepo,
		statRepo:         statRepo,
		metrics:          m,
		ratio:            ratio,
		cutoffHour:       cutoffHour,
		location:         location,
		cacheTTL:         cacheTTL,
		defaultRangeDays: rangeDays,
		now:              time.Now,
	}
}

// statsWindow 查询窗口：[startAt, endAt) 以及闭区间日期字符串
type statsWindow struct {
	startAt  time.Time
	endAt    time.Time
	fromDate string
	toDate   string
}

func (s *MarketingSummaryService) resolveWindow(from, to *time.Time) (statsWindow, error) {
	end := utcDayStart(s.now())
	if to != nil {
		end = utcDayStart(*to)
	}
	start := end.AddDate(0, 0, -s.defaultRangeDays)
	if from != nil {
		start = utcDayStart(*from)
	}
	if start.After(end) {
		return statsWindow{}, fmt.Errorf("%w: from after to", ErrStatsRangeInvalid)
	}
	if end.Sub(start) > summaryMaxRangeDays*24*time.Hour {
		return statsWindow{}, fmt.Errorf("%w: range exceeds %d days", ErrStatsRangeInvalid, summaryMaxRangeDays)
	}
	return statsWindow{
		startAt:  start,
		endAt:    end.AddDate(0, 0, 1),
		fromDate: start.Format(statDateLayout),
		toDate:   end.Format(statDateLayout),
	}, nil
}

// Summarize 生成租户营销汇总
func (s *MarketingSummaryService) Summarize(ctx context.Context, query SummaryQuery) (*SummaryReport, error) {
	window, err := s.resolveWindow(query.From, query.To)
	if err != nil {
		return nil, err
	}
	cacheKey := cache.StatsKey(query.TenantID, "summary", window.fromDate, window.toDate)
	if !query.ForceRefresh {
		var cached SummaryReport
		hit, cacheErr := cache.GetJSON(ctx, cacheKey, &cached)
		if cacheErr == nil && hit {
			return &cached, nil
		}
	}

	campaignIDs, err := s.campaignRepo.ListIDsByTenant(query.TenantID)
	if err != nil {
		return nil, err
	}

	report := &SummaryReport{
		TenantID:  query.TenantID,
		DateRange: SummaryDateRange{From: window.fromDate, To: window.toDate},
	}
	rows, consistency, err := s.loadTrustedRows(query.TenantID, window, campaignIDs)
	if err != nil {
		return nil, err
	}
	report.Consistency = consistency
	if rows != nil {
		report.Provenance = constants.StatsProvenanceAggregated
	} else {
		rows, err = s.computeRawRows(query.TenantID, window, campaignIDs, nil)
		if err != nil {
			return nil, err
		}
		report.Provenance = constants.StatsProvenanceRaw
	}

	if err := s.fillBreakdowns(report, query.TenantID, rows); err != nil {
		return nil, err
	}
	s.metrics.RecordSummary("summary", report.Provenance)

	_ = cache.SetJSON(ctx, cacheKey, report, s.cacheTTL)
	return report, nil
}

// loadTrustedRows 返回可信的聚合行；返回 nil 表示需要回退原始计算
func (s *MarketingSummaryService) loadTrustedRows(tenantID uint, window statsWindow, campaignIDs []uint) ([]marketingBucketRow, *SummaryConsistency, error) {
	stored, err := s.statRepo.ListByTenantRange(tenantID, window.fromDate, window.toDate)
	if err != nil {
		return nil, nil, err
	}
	if len(stored) == 0 {
		logger.Debugw("marketing_summary_no_aggregates", "tenant_id", tenantID, "from", window.fromDate, "to", window.toDate)
		return nil, nil, nil
	}
	countRaw := func(startAt, endAt time.Time) (int64, error) {
		return s.eventRepo.CountConversions(startAt, endAt, campaignIDs)
	}
	consistency, trusted, err := s.checkConsistency(stored, window, countRaw)
	if err != nil {
		return nil, nil, err
	}
	if !trusted {
		logger.Warnw("marketing_summary_fallback_raw",
			"tenant_id", tenantID,
			"from", window.fromDate,
			"to", window.toDate,
			"raw_conversions", consistency.RawConversions,
			"aggregated_conversions", consistency.AggregatedConversions,
			"historical_end", consistency.HistoricalEnd,
		)
		return nil, consistency, nil
	}

	return statRowsToBuckets(stored), consistency, nil
}

// checkConsistency 聚合覆盖率达到阈值即可信；否则只看截止点之前的历史子窗口
func (s *MarketingSummaryService) checkConsistency(stored []models.MarketingStatDaily, window statsWindow, countRaw func(startAt, endAt time.Time) (int64, error)) (*SummaryConsistency, bool, error) {
	var aggregated int64
	for _, row := range stored {
		aggregated += row.Conversions
	}
	rawTotal, err := countRaw(window.startAt, window.endAt)
	if err != nil {
		return nil, false, err
	}
	out := &SummaryConsistency{
		RawConversions:        rawTotal,
		AggregatedConversions: aggregated,
		Coverage:              coverageString(aggregated, rawTotal),
	}
	if s.covers(aggregated, rawTotal) {
		out.Decision = "overall_covered"
		return out, true, nil
	}

	histEnd := s.historicalEnd()
	if histEnd.After(window.endAt) {
		histEnd = window.endAt
	}
	if !histEnd.After(window.startAt) {
		out.Decision = "no_historical_window"
		return out, false, nil
	}
	out.HistoricalEnd = histEnd.Format(statDateLayout)

	histRaw, err := countRaw(window.startAt, histEnd)
	if err != nil {
		return nil, false, err
	}
	var histAgg int64
	for _, row := range stored {
		if row.StatDate < out.HistoricalEnd {
			histAgg += row.Conversions
		}
	}
	out.HistoricalRaw = histRaw
	out.HistoricalAggregated = histAgg
	if s.covers(histAgg, histRaw) {
		out.Decision = "historical_covered"
		return out, true, nil
	}
	out.Decision = "insufficient_coverage"
	return out, false, nil
}

// historicalEnd 截止点（昨日 cutoffHour 点，配置时区）所在 UTC 日零点
func (s *MarketingSummaryService) historicalEnd() time.Time {
	local := s.now().In(s.location).AddDate(0, 0, -1)
	cutoff := time.Date(local.Year(), local.Month(), local.Day(), s.cutoffHour, 0, 0, 0, s.location)
	return utcDayStart(cutoff)
}

func (s *MarketingSummaryService) covers(aggregated, raw int64) bool {
	if raw <= 0 {
		return true
	}
	threshold := s.ratio.Mul(decimal.NewFromInt(raw))
	return decimal.NewFromInt(aggregated).GreaterThanOrEqual(threshold)
}

// computeRawRows 直接从原始记录分桶，与聚合任务使用同一套规则
func (s *MarketingSummaryService) computeRawRows(tenantID uint, window statsWindow, campaignIDs []uint, linkID *uint) ([]marketingBucketRow, error) {
	visits, err := s.eventRepo.ListVisits(window.startAt, window.endAt, campaignIDs)
	if err != nil {
		return nil, err
	}
	conversions, err := s.eventRepo.ListConversions(window.startAt, window.endAt, campaignIDs)
	if err != nil {
		return nil, err
	}
	owned := make(map[uint]struct{}, len(campaignIDs))
	for _, id := range campaignIDs {
		owned[id] = struct{}{}
	}
	bucketer := newMarketingBucketer(func(campaignID uint) (uint, bool) {
		_, ok := owned[campaignID]
		return tenantID, ok
	}, &tenantID)
	for _, visit := range visits {
		if linkID != nil && (visit.LinkID == nil || *visit.LinkID != *linkID) {
			continue
		}
		bucketer.addVisit(visit)
	}
	for _, conversion := range conversions {
		if linkID != nil && (conversion.LinkID == nil || *conversion.LinkID != *linkID) {
			continue
		}
		bucketer.addConversion(conversion)
	}
	return bucketer.rows(), nil
}

func (s *MarketingSummaryService) fillBreakdowns(report *SummaryReport, tenantID uint, rows []marketingBucketRow) error {
	bySource := map[string]*SummaryBreakdownItem{}
	byMedium := map[string]*SummaryBreakdownItem{}
	byCampaign := map[string]*SummaryBreakdownItem{}
	byCombo := map[string]*SummaryComboItem{}
	byLink := map[uint]*SummaryLinkItem{}

	for _, row := range rows {
		report.TotalVisits += row.Visits
		report.TotalConversions += row.Conversions
		addBreakdown(bySource, row.Key.UTMSource, row)
		addBreakdown(byMedium, row.Key.UTMMedium, row)
		addBreakdown(byCampaign, row.Key.UTMCampaign, row)

		comboKey := row.Key.UTMSource + "|" + row.Key.UTMMedium + "|" + row.Key.UTMCampaign
		combo, ok := byCombo[comboKey]
		if !ok {
			combo = &SummaryComboItem{
				Source:   stringPtrOrNil(row.Key.UTMSource),
				Medium:   stringPtrOrNil(row.Key.UTMMedium),
				Campaign: stringPtrOrNil(row.Key.UTMCampaign),
			}
			byCombo[comboKey] = combo
		}
		combo.Visits += row.Visits
		combo.Count += row.Conversions

		if row.Key.LinkID != 0 {
			item, ok := byLink[row.Key.LinkID]
			if !ok {
				item = &SummaryLinkItem{LinkID: row.Key.LinkID}
				byLink[row.Key.LinkID] = item
			}
			item.Visits += row.Visits
			item.Count += row.Conversions
		}
	}

	report.ConversionRate = formatRate(report.TotalConversions, report.TotalVisits)
	report.ConversionsBySource = sortedBreakdown(bySource)
	report.ConversionsByMedium = sortedBreakdown(byMedium)
	report.ConversionsByCampaign = sortedBreakdown(byCampaign)

	report.ConversionsByCombo = make([]SummaryComboItem, 0, len(byCombo))
	for _, item := range byCombo {
		report.ConversionsByCombo = append(report.ConversionsByCombo, *item)
	}
	sort.Slice(report.ConversionsByCombo, func(i, j int) bool {
		a, b := report.ConversionsByCombo[i], report.ConversionsByCombo[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if a.Visits != b.Visits {
			return a.Visits > b.Visits
		}
		return comboLabel(a) < comboLabel(b)
	})

	linkIDs := make([]uint, 0, len(byLink))
	for id := range byLink {
		linkIDs = append(linkIDs, id)
	}
	names, err := s.linkRepo.GetNamesByIDs(tenantID, linkIDs)
	if err != nil {
		return err
	}
	report.ConversionsByLink = make([]SummaryLinkItem, 0, len(byLink))
	for id, item := range byLink {
		item.LinkName = names[id]
		if item.LinkName == "" {
			item.LinkName = strconv.FormatUint(uint64(id), 10)
		}
		report.ConversionsByLink = append(report.ConversionsByLink, *item)
	}
	sort.Slice(report.ConversionsByLink, func(i, j int) bool {
		a, b := report.ConversionsByLink[i], report.ConversionsByLink[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if a.Visits != b.Visits {
			return a.Visits > b.Visits
		}
		return a.LinkID < b.LinkID
	})
	return nil
}

// InvalidateTenants 清除租户统计缓存
func (s *MarketingSummaryService) InvalidateTenants(ctx context.Context, tenantIDs []uint) {
	for _, tenantID := range tenantIDs {
		if _, err := cache.InvalidateTenantStats(ctx, tenantID); err != nil {
			logger.Warnw("marketing_stats_cache_invalidate_failed", "tenant_id", tenantID, "error", err)
		}
	}
}

func addBreakdown(target map[string]*SummaryBreakdownItem, value string, row marketingBucketRow) {
	item, ok := target[value]
	if !ok {
		item = &SummaryBreakdownItem{Value: stringPtrOrNil(value)}
		target[value] = item
	}
	item.Visits += row.Visits
	item.Count += row.Conversions
}

func sortedBreakdown(source map[string]*SummaryBreakdownItem) []SummaryBreakdownItem {
	items := make([]SummaryBreakdownItem, 0, len(source))
	for _, item := range source {
		items = append(items, *item)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Count != items[j].Count {
			return items[i].Count > items[j].Count
		}
		if items[i].Visits != items[j].Visits {
			return items[i].Visits > items[j].Visits
		}
		return stringPtrValue(items[i].Value) < stringPtrValue(items[j].Value)
	})
	return items
}

func comboLabel(item SummaryComboItem) string {
	return stringPtrValue(item.Source) + "|" + stringPtrValue(item.Medium) + "|" + stringPtrValue(item.Campaign)
}

// formatRate 转化率百分比，保留两位小数
func formatRate(conversions, visits int64) string {
	if visits <= 0 {
		return "0.00"
	}
	return decimal.NewFromInt(conversions).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(visits)).
		StringFixed(2)
}

func coverageString(aggregated, raw int64) string {
	if raw <= 0 {
		return "1.0000"
	}
	return decimal.NewFromInt(aggregated).Div(decimal.NewFromInt(raw)).StringFixed(4)
}

func statRowsToBuckets(stored []models.MarketingStatDaily) []marketingBucketRow {
	rows := make([]marketingBucketRow, 0, len(stored))
	for _, item := range stored {
		rows = append(rows, marketingBucketRow{Key: bucketKeyOfStat(item), Visits: item.Visits, Conversions: item.Conversions})
	}
	return rows
}
