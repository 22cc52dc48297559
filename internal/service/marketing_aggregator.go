package service

import (
	"context"
	"fmt"
	"time"

	"github.com/dujiao-next/marketing/internal/constants"
	"github.com/dujiao-next/marketing/internal/logger"
	"github.com/dujiao-next/marketing/internal/metrics"
	"github.com/dujiao-next/marketing/internal/models"
	"github.com/dujiao-next/marketing/internal/repository"
)

const defaultAggregateLookback = 24 * time.Hour

// AggregateInput 聚合输入，From/To 均为空时为增量模式
type AggregateInput struct {
	From     *time.Time
	To       *time.Time
	TenantID *uint
}

// AggregateResult 聚合结果
type AggregateResult struct {
	Mode                   string `json:"mode"`
	FromDate               string `json:"from_date"`
	ToDate                 string `json:"to_date"`
	Upserted               int    `json:"upserted"`
	Inserted               int    `json:"inserted"`
	Replaced               int    `json:"replaced"`
	Unchanged              int    `json:"unchanged"`
	ConflictsIgnored       int    `json:"conflicts_ignored"`
	TotalVisits            int    `json:"total_visits"`
	TotalConversions       int    `json:"total_conversions"`
	SkippedVisits          int    `json:"skipped_visits"`
	SkippedConversions     int    `json:"skipped_conversions"`
	VisitsWithoutSessionID int    `json:"visits_without_session_id"`
	DurationMS             int64  `json:"duration_ms"`
}

// StatsCacheInvalidator 聚合完成后清理统计缓存
type StatsCacheInvalidator interface {
	InvalidateTenants(ctx context.Context, tenantIDs []uint)
}

// MarketingAggregator 营销日统计聚合服务
// 说明：按精确键整桶覆盖写入，重叠窗口重复执行结果一致。
type MarketingAggregator struct {
	campaignRepo repository.CampaignRepository
	eventRepo    repository.MarketingEventRepository
	statRepo     repository.MarketingStatRepository
	metrics      *metrics.Metrics
	lookback     time.Duration
	invalidator  StatsCacheInvalidator
	now          func() time.Time
}

// NewMarketingAggregator 创建聚合服务
func NewMarketingAggregator(
	campaignRepo repository.CampaignRepository,
	eventRepo repository.MarketingEventRepository,
	statRepo repository.MarketingStatRepository,
	lookbackHours int,
	m *metrics.Metrics,
) *MarketingAggregator {
	lookback := defaultAggregateLookback
	if lookbackHours > 0 {
		lookback = time.Duration(lookbackHours) * time.Hour
	}
	return &MarketingAggregator{
		campaignRepo: campaignRepo,
		eventRepo:    eventRepo,
		statRepo:     statRepo,
		metrics:      m,
		lookback:     lookback,
		now:          time.Now,
	}
}

// SetInvalidator 设置缓存失效回调
func (s *MarketingAggregator) SetInvalidator(invalidator StatsCacheInvalidator) {
	s.invalidator = invalidator
}

// Aggregate 聚合 [from 当日, to 当日] 的原始事件
func (s *MarketingAggregator) Aggregate(ctx context.Context, input AggregateInput) (*AggregateResult, error) {
	started := time.Now()
	startAt, endAt, mode, err := s.resolveWindow(input)
	if err != nil {
		return nil, err
	}
	result := &AggregateResult{
		Mode:     mode,
		FromDate: startAt.Format(statDateLayout),
		ToDate:   endAt.Add(-time.Nanosecond).Format(statDateLayout),
	}

	err = s.run(ctx, startAt, endAt, input.TenantID, result)
	result.DurationMS = time.Since(started).Milliseconds()
	s.metrics.RecordAggregation(mode, err == nil, time.Since(started), result.Upserted, result.SkippedVisits, result.SkippedConversions)
	if err != nil {
		logger.Errorw("marketing_aggregate_failed",
			"mode", mode,
			"from_date", result.FromDate,
			"to_date", result.ToDate,
			"error", err,
		)
		return nil, err
	}
	logger.Infow("marketing_aggregate_done",
		"mode", mode,
		"from_date", result.FromDate,
		"to_date", result.ToDate,
		"upserted", result.Upserted,
		"inserted", result.Inserted,
		"replaced", result.Replaced,
		"total_visits", result.TotalVisits,
		"total_conversions", result.TotalConversions,
		"skipped_visits", result.SkippedVisits,
		"skipped_conversions", result.SkippedConversions,
		"visits_without_session_id", result.VisitsWithoutSessionID,
		"duration_ms", result.DurationMS,
	)
	return result, nil
}

func (s *MarketingAggregator) resolveWindow(input AggregateInput) (time.Time, time.Time, string, error) {
	mode := constants.AggregateModeIncremental
	to := s.now()
	if input.To != nil {
		to = *input.To
		mode = constants.AggregateModeBackfill
	}
	from := to.Add(-s.lookback)
	if input.From != nil {
		from = *input.From
		mode = constants.AggregateModeBackfill
	}
	if from.After(to) {
		return time.Time{}, time.Time{}, "", fmt.Errorf("%w: from after to", ErrStatsRangeInvalid)
	}
	return utcDayStart(from), utcDayStart(to).AddDate(0, 0, 1), mode, nil
}

func (s *MarketingAggregator) run(ctx context.Context, startAt, endAt time.Time, tenantFilter *uint, result *AggregateResult) error {
	visits, err := s.eventRepo.ListVisits(startAt, endAt, nil)
	if err != nil {
		return fmt.Errorf("list visits: %w", err)
	}
	conversions, err := s.eventRepo.ListConversions(startAt, endAt, nil)
	if err != nil {
		return fmt.Errorf("list conversions: %w", err)
	}

	tenantMap, err := s.campaignRepo.GetTenantMap(collectCampaignIDs(visits, conversions))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTenantLookupFailed, err)
	}

	bucketer := newMarketingBucketer(func(campaignID uint) (uint, bool) {
		tenantID, ok := tenantMap[campaignID]
		return tenantID, ok
	}, tenantFilter)
	for _, visit := range visits {
		bucketer.addVisit(visit)
	}
	for _, conversion := range conversions {
		bucketer.addConversion(conversion)
	}
	result.TotalVisits = bucketer.totalVisits
	result.TotalConversions = bucketer.totalConversions
	result.SkippedVisits = bucketer.skippedVisits
	result.SkippedConversions = bucketer.skippedConversions
	result.VisitsWithoutSessionID = bucketer.visitsWithoutSessionID
	if result.SkippedVisits > 0 || result.SkippedConversions > 0 {
		logger.Warnw("marketing_aggregate_records_skipped",
			"skipped_visits", result.SkippedVisits,
			"skipped_conversions", result.SkippedConversions,
		)
	}

	rows := bucketer.rows()
	if err := s.upsert(ctx, rows, result); err != nil {
		return err
	}

	if s.invalidator != nil {
		s.invalidator.InvalidateTenants(ctx, touchedTenants(rows))
	}
	return nil
}

// upsert 按 (租户, 日期) 批量检查存在性，逐行覆盖或插入
func (s *MarketingAggregator) upsert(ctx context.Context, rows []marketingBucketRow, result *AggregateResult) error {
	type tenantDate struct {
		tenantID uint
		statDate string
	}
	now := s.now()
	var existing map[marketingBucketKey]models.MarketingStatDaily
	var current tenantDate
	for i, row := range rows {
		group := tenantDate{tenantID: row.Key.TenantID, statDate: row.Key.StatDate}
		if i == 0 || group != current {
			if err := ctx.Err(); err != nil {
				return err
			}
			current = group
			stored, err := s.statRepo.ListByTenantDate(group.tenantID, group.statDate)
			if err != nil {
				return fmt.Errorf("load stats %d/%s: %w", group.tenantID, group.statDate, err)
			}
			existing = make(map[marketingBucketKey]models.MarketingStatDaily, len(stored))
			for _, item := range stored {
				existing[bucketKeyOfStat(item)] = item
			}
		}

		if found, ok := existing[row.Key]; ok {
			result.Upserted++
			if found.Visits == row.Visits && found.Conversions == row.Conversions {
				result.Unchanged++
				continue
			}
			if err := s.statRepo.ReplaceCounts(found.ID, row.Visits, row.Conversions, now); err != nil {
				return fmt.Errorf("replace stat %d: %w", found.ID, err)
			}
			result.Replaced++
			continue
		}

		model := row.Key.toModel(row.Visits, row.Conversions, now)
		if err := s.statRepo.Create(&model); err != nil {
			if isUniqueViolation(err) {
				// 并发写入同一键，对方基于同一原始数据计算
				logger.Infow("marketing_aggregate_insert_conflict_ignored",
					"tenant_id", row.Key.TenantID,
					"stat_date", row.Key.StatDate,
					"campaign_id", row.Key.CampaignID,
					"link_id", row.Key.LinkID,
				)
				result.Upserted++
				result.ConflictsIgnored++
				continue
			}
			return fmt.Errorf("insert stat: %w", err)
		}
		result.Upserted++
		result.Inserted++
	}
	return nil
}

func collectCampaignIDs(visits []models.CampaignVisit, conversions []models.CampaignConversion) []uint {
	seen := make(map[uint]struct{})
	ids := make([]uint, 0)
	add := func(id *uint) {
		if id == nil {
			return
		}
		if _, ok := seen[*id]; ok {
			return
		}
		seen[*id] = struct{}{}
		ids = append(ids, *id)
	}
	for _, visit := range visits {
		add(visit.CampaignID)
	}
	for _, conversion := range conversions {
		add(conversion.CampaignID)
	}
	return ids
}

func touchedTenants(rows []marketingBucketRow) []uint {
	seen := make(map[uint]struct{})
	tenants := make([]uint, 0)
	for _, row := range rows {
		if _, ok := seen[row.Key.TenantID]; ok {
			continue
		}
		seen[row.Key.TenantID] = struct{}{}
		tenants = append(tenants, row.Key.TenantID)
	}
	return tenants
}
