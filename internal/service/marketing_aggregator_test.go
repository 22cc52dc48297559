package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dujiao-next/marketing/internal/constants"
	"github.com/dujiao-next/marketing/internal/models"
	"github.com/dujiao-next/marketing/internal/repository"

	"gorm.io/gorm"
)

func setupAggregatorTest(t *testing.T) (*MarketingAggregator, *gorm.DB) {
	t.Helper()
	db := setupMarketingTestDB(t)
	aggregator := NewMarketingAggregator(
		repository.NewCampaignRepository(db),
		repository.NewMarketingEventRepository(db),
		repository.NewMarketingStatRepository(db),
		24,
		nil,
	)
	return aggregator, db
}

func loadStats(t *testing.T, db *gorm.DB) []models.MarketingStatDaily {
	t.Helper()
	var rows []models.MarketingStatDaily
	if err := db.Order("stat_date asc, campaign_id asc, link_id asc, utm_source asc").Find(&rows).Error; err != nil {
		t.Fatalf("load stats failed: %v", err)
	}
	return rows
}

func dayWindow(day time.Time) AggregateInput {
	from := day
	to := day.Add(23 * time.Hour)
	return AggregateInput{From: &from, To: &to}
}

func TestMarketingAggregateIdempotent(t *testing.T) {
	aggregator, db := setupAggregatorTest(t)
	campaign := createTestCampaign(t, db, 1, "idem")
	day := time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC)

	createTestVisit(t, db, 1, &campaign.ID, nil, "email", "s1", day.Add(time.Hour))
	createTestVisit(t, db, 1, &campaign.ID, nil, "email", "s2", day.Add(2*time.Hour))
	createTestConversion(t, db, 1, &campaign.ID, nil, "email", day.Add(3*time.Hour))

	first, err := aggregator.Aggregate(context.Background(), dayWindow(day))
	if err != nil {
		t.Fatalf("first aggregate failed: %v", err)
	}
	if first.Mode != constants.AggregateModeBackfill || first.Inserted != 1 {
		t.Fatalf("unexpected first result: %+v", first)
	}
	before := loadStats(t, db)

	second, err := aggregator.Aggregate(context.Background(), dayWindow(day))
	if err != nil {
		t.Fatalf("second aggregate failed: %v", err)
	}
	if second.Inserted != 0 || second.Unchanged != 1 {
		t.Fatalf("expected unchanged rerun, got %+v", second)
	}
	after := loadStats(t, db)
	if len(before) != len(after) {
		t.Fatalf("row count changed: %d -> %d", len(before), len(after))
	}
	for i := range before {
		if before[i].Visits != after[i].Visits || before[i].Conversions != after[i].Conversions || !before[i].UpdatedAt.Equal(after[i].UpdatedAt) {
			t.Fatalf("row %d changed across reruns: %+v -> %+v", i, before[i], after[i])
		}
	}
	if after[0].Visits != 2 || after[0].Conversions != 1 {
		t.Fatalf("unexpected counts: %+v", after[0])
	}
}

func TestMarketingAggregateReplacesInsteadOfAdding(t *testing.T) {
	aggregator, db := setupAggregatorTest(t)
	campaign := createTestCampaign(t, db, 1, "replace")
	day := time.Date(2026, 2, 4, 0, 0, 0, 0, time.UTC)

	stale := models.MarketingStatDaily{
		TenantID:   1,
		StatDate:   "2026-02-04",
		CampaignID: campaign.ID,
		UTMSource:  "email",
		Visits:     10,
	}
	if err := db.Create(&stale).Error; err != nil {
		t.Fatalf("seed stat failed: %v", err)
	}
	for i := 0; i < 7; i++ {
		createTestVisit(t, db, 1, &campaign.ID, nil, "email", "session-"+string(rune('a'+i)), day.Add(time.Duration(i)*time.Minute))
	}

	result, err := aggregator.Aggregate(context.Background(), dayWindow(day))
	if err != nil {
		t.Fatalf("aggregate failed: %v", err)
	}
	if result.Replaced != 1 {
		t.Fatalf("expected one replaced row, got %+v", result)
	}
	rows := loadStats(t, db)
	if len(rows) != 1 || rows[0].Visits != 7 {
		t.Fatalf("expected visits replaced with 7, got %+v", rows)
	}
}

func TestMarketingAggregateSessionDedup(t *testing.T) {
	aggregator, db := setupAggregatorTest(t)
	campaign := createTestCampaign(t, db, 1, "dedup")
	day := time.Date(2026, 2, 5, 0, 0, 0, 0, time.UTC)

	createTestVisit(t, db, 1, &campaign.ID, nil, "ads", "same", day.Add(time.Hour))
	createTestVisit(t, db, 1, &campaign.ID, nil, "ads", "same", day.Add(2*time.Hour))
	createTestVisit(t, db, 1, &campaign.ID, nil, "social", "", day.Add(time.Hour))
	createTestVisit(t, db, 1, &campaign.ID, nil, "social", "", day.Add(2*time.Hour))

	result, err := aggregator.Aggregate(context.Background(), dayWindow(day))
	if err != nil {
		t.Fatalf("aggregate failed: %v", err)
	}
	if result.VisitsWithoutSessionID != 2 {
		t.Fatalf("expected 2 visits without session, got %d", result.VisitsWithoutSessionID)
	}
	rows := loadStats(t, db)
	counts := map[string]int64{}
	for _, row := range rows {
		counts[row.UTMSource] = row.Visits
	}
	if counts["ads"] != 1 {
		t.Fatalf("expected shared session counted once, got %d", counts["ads"])
	}
	if counts["social"] != 2 {
		t.Fatalf("expected sessionless visits counted separately, got %d", counts["social"])
	}
}

func TestMarketingAggregateSkipsUnresolvableAndFiltersTenant(t *testing.T) {
	aggregator, db := setupAggregatorTest(t)
	tenantA := createTestCampaign(t, db, 1, "tenant-a")
	tenantB := createTestCampaign(t, db, 2, "tenant-b")
	day := time.Date(2026, 2, 6, 0, 0, 0, 0, time.UTC)
	ghost := uint(9999)

	createTestVisit(t, db, 1, &tenantA.ID, nil, "", "a1", day.Add(time.Hour))
	createTestVisit(t, db, 2, &tenantB.ID, nil, "", "b1", day.Add(time.Hour))
	createTestVisit(t, db, 1, &ghost, nil, "", "g1", day.Add(time.Hour))
	createTestVisit(t, db, 1, nil, nil, "", "webinar-only", day.Add(time.Hour))
	createTestConversion(t, db, 1, nil, nil, "", day.Add(time.Hour))
	createTestConversion(t, db, 2, &tenantB.ID, nil, "", day.Add(time.Hour))

	input := dayWindow(day)
	tenantID := uint(1)
	input.TenantID = &tenantID
	result, err := aggregator.Aggregate(context.Background(), input)
	if err != nil {
		t.Fatalf("aggregate failed: %v", err)
	}
	if result.SkippedVisits != 1 || result.SkippedConversions != 1 {
		t.Fatalf("unexpected skipped counts: %+v", result)
	}
	if result.TotalVisits != 1 || result.TotalConversions != 0 {
		t.Fatalf("unexpected totals after tenant filter: %+v", result)
	}
	rows := loadStats(t, db)
	if len(rows) != 1 || rows[0].TenantID != 1 {
		t.Fatalf("expected single tenant-1 row, got %+v", rows)
	}
}

func TestMarketingAggregateWindowCoversWholeDays(t *testing.T) {
	aggregator, db := setupAggregatorTest(t)
	campaign := createTestCampaign(t, db, 1, "window")
	createTestVisit(t, db, 1, &campaign.ID, nil, "", "early", time.Date(2026, 2, 7, 0, 5, 0, 0, time.UTC))
	createTestVisit(t, db, 1, &campaign.ID, nil, "", "late", time.Date(2026, 2, 8, 23, 50, 0, 0, time.UTC))
	createTestVisit(t, db, 1, &campaign.ID, nil, "", "outside", time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC))

	from := time.Date(2026, 2, 7, 18, 0, 0, 0, time.UTC)
	to := time.Date(2026, 2, 8, 1, 0, 0, 0, time.UTC)
	result, err := aggregator.Aggregate(context.Background(), AggregateInput{From: &from, To: &to})
	if err != nil {
		t.Fatalf("aggregate failed: %v", err)
	}
	if result.FromDate != "2026-02-07" || result.ToDate != "2026-02-08" {
		t.Fatalf("unexpected window: %s ~ %s", result.FromDate, result.ToDate)
	}
	if result.TotalVisits != 2 {
		t.Fatalf("expected both in-window days, got %d visits", result.TotalVisits)
	}
}

func TestMarketingAggregateIncrementalDefault(t *testing.T) {
	aggregator, db := setupAggregatorTest(t)
	campaign := createTestCampaign(t, db, 1, "incremental")
	now := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	aggregator.now = func() time.Time { return now }

	createTestVisit(t, db, 1, &campaign.ID, nil, "", "yesterday", now.Add(-20*time.Hour))
	createTestVisit(t, db, 1, &campaign.ID, nil, "", "old", now.Add(-72*time.Hour))

	result, err := aggregator.Aggregate(context.Background(), AggregateInput{})
	if err != nil {
		t.Fatalf("aggregate failed: %v", err)
	}
	if result.Mode != constants.AggregateModeIncremental {
		t.Fatalf("expected incremental mode, got %s", result.Mode)
	}
	if result.FromDate != "2026-02-09" || result.ToDate != "2026-02-10" {
		t.Fatalf("unexpected incremental window: %s ~ %s", result.FromDate, result.ToDate)
	}
	if result.TotalVisits != 1 {
		t.Fatalf("expected only recent visit, got %d", result.TotalVisits)
	}
}

func TestMarketingAggregateRejectsInvertedRange(t *testing.T) {
	aggregator, _ := setupAggregatorTest(t)
	from := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	to := from.Add(-48 * time.Hour)
	_, err := aggregator.Aggregate(context.Background(), AggregateInput{From: &from, To: &to})
	if !errors.Is(err, ErrStatsRangeInvalid) {
		t.Fatalf("expected range error, got %v", err)
	}
}

type failingCampaignRepo struct {
	repository.CampaignRepository
}

func (failingCampaignRepo) GetTenantMap([]uint) (map[uint]uint, error) {
	return nil, errors.New("campaign store down")
}

func TestMarketingAggregateAbortsOnTenantLookupFailure(t *testing.T) {
	db := setupMarketingTestDB(t)
	campaign := createTestCampaign(t, db, 1, "abort")
	day := time.Date(2026, 2, 11, 0, 0, 0, 0, time.UTC)
	createTestVisit(t, db, 1, &campaign.ID, nil, "", "s", day.Add(time.Hour))
	aggregator := NewMarketingAggregator(
		failingCampaignRepo{},
		repository.NewMarketingEventRepository(db),
		repository.NewMarketingStatRepository(db),
		24,
		nil,
	)
	_, err := aggregator.Aggregate(context.Background(), dayWindow(day))
	if !errors.Is(err, ErrTenantLookupFailed) {
		t.Fatalf("expected tenant lookup error, got %v", err)
	}
	if rows := loadStats(t, db); len(rows) != 0 {
		t.Fatalf("expected nothing written, got %d rows", len(rows))
	}
}

// racingStatRepo 模拟并发运行抢先插入
type racingStatRepo struct {
	repository.MarketingStatRepository
}

func (racingStatRepo) ListByTenantDate(uint, string) ([]models.MarketingStatDaily, error) {
	return nil, nil
}

func (racingStatRepo) Create(*models.MarketingStatDaily) error {
	return errors.New("UNIQUE constraint failed: marketing_stats_daily.tenant_id")
}

func TestMarketingAggregateTreatsInsertConflictAsSuccess(t *testing.T) {
	db := setupMarketingTestDB(t)
	campaign := createTestCampaign(t, db, 1, "race")
	day := time.Date(2026, 2, 12, 0, 0, 0, 0, time.UTC)
	createTestVisit(t, db, 1, &campaign.ID, nil, "", "s", day.Add(time.Hour))
	aggregator := NewMarketingAggregator(
		repository.NewCampaignRepository(db),
		repository.NewMarketingEventRepository(db),
		racingStatRepo{},
		24,
		nil,
	)
	result, err := aggregator.Aggregate(context.Background(), dayWindow(day))
	if err != nil {
		t.Fatalf("conflict should be benign: %v", err)
	}
	if result.ConflictsIgnored != 1 || result.Upserted != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

type recordingInvalidator struct {
	tenants []uint
}

func (r *recordingInvalidator) InvalidateTenants(_ context.Context, tenantIDs []uint) {
	r.tenants = append(r.tenants, tenantIDs...)
}

func TestMarketingAggregateInvalidatesTouchedTenants(t *testing.T) {
	aggregator, db := setupAggregatorTest(t)
	invalidator := &recordingInvalidator{}
	aggregator.SetInvalidator(invalidator)
	campaign := createTestCampaign(t, db, 5, "cache")
	day := time.Date(2026, 2, 13, 0, 0, 0, 0, time.UTC)
	createTestConversion(t, db, 5, &campaign.ID, nil, "email", day.Add(time.Hour))

	if _, err := aggregator.Aggregate(context.Background(), dayWindow(day)); err != nil {
		t.Fatalf("aggregate failed: %v", err)
	}
	if len(invalidator.tenants) != 1 || invalidator.tenants[0] != 5 {
		t.Fatalf("expected tenant 5 invalidated, got %v", invalidator.tenants)
	}
}
