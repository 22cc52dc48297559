package service

import (
	"context"
	"errors"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/dujiao-next/marketing/internal/constants"
	"github.com/dujiao-next/marketing/internal/models"
	"github.com/dujiao-next/marketing/internal/repository"

	"gorm.io/gorm"
)

func setupRecorderTest(t *testing.T) (*EventRecorder, *gorm.DB) {
	t.Helper()
	db := setupMarketingTestDB(t)
	resolver := NewAttributionResolver(repository.NewCampaignLinkRepository(db), 24, nil)
	recorder := NewEventRecorder(
		repository.NewCampaignRepository(db),
		repository.NewMarketingEventRepository(db),
		resolver,
		true,
		true,
		nil,
	)
	return recorder, db
}

func TestRecordVisitValidation(t *testing.T) {
	recorder, db := setupRecorderTest(t)
	campaign := createTestCampaign(t, db, 1, "validate")

	if _, err := recorder.RecordVisit(RecordEventInput{CampaignID: campaign.ID, SessionID: "  "}); !errors.Is(err, ErrSessionIDRequired) {
		t.Fatalf("expected ErrSessionIDRequired, got %v", err)
	}
	if _, err := recorder.RecordVisit(RecordEventInput{CampaignID: 9999, SessionID: "s1"}); !errors.Is(err, ErrCampaignNotFound) {
		t.Fatalf("expected ErrCampaignNotFound, got %v", err)
	}
	if _, err := recorder.RecordConversion(RecordEventInput{}); !errors.Is(err, ErrCampaignNotFound) {
		t.Fatalf("expected ErrCampaignNotFound for empty campaign, got %v", err)
	}
}

func TestRecordVisitStoreFailureDegrades(t *testing.T) {
	db := setupMarketingTestDB(t)
	campaign := createTestCampaign(t, db, 1, "degrade")
	recorder := NewEventRecorder(
		repository.NewCampaignRepository(db),
		repository.NewMarketingEventRepository(db),
		NewAttributionResolver(failingLinkRepo{}, 24, nil),
		true,
		true,
		nil,
	)

	result, err := recorder.RecordVisit(RecordEventInput{
		CampaignID: campaign.ID,
		SessionID:  "s1",
		URLCID:     "ABCD1234",
		URLUTM:     UTMParams{Source: strPtr("email")},
	})
	if err != nil {
		t.Fatalf("lookup failure must not block the write: %v", err)
	}
	if result.Attribution.LinkID != nil || stringPtrValue(result.Attribution.UTM.Source) != "email" {
		t.Fatalf("unexpected attribution: %+v", result.Attribution)
	}
	var visit models.CampaignVisit
	if err := db.First(&visit, result.EventID).Error; err != nil {
		t.Fatalf("load visit failed: %v", err)
	}
	if visit.TenantID != 1 || visit.AttributionSource != constants.AttributionSourceURL {
		t.Fatalf("unexpected stored visit: %+v", visit)
	}
}

func TestRecordConversionMarksLatestVisit(t *testing.T) {
	recorder, db := setupRecorderTest(t)
	campaign := createTestCampaign(t, db, 1, "mark")
	base := time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)

	first, err := recorder.RecordVisit(RecordEventInput{CampaignID: campaign.ID, SessionID: "s1", OccurredAt: base})
	if err != nil {
		t.Fatalf("record first visit failed: %v", err)
	}
	second, err := recorder.RecordVisit(RecordEventInput{CampaignID: campaign.ID, SessionID: "s1", OccurredAt: base.Add(time.Minute)})
	if err != nil {
		t.Fatalf("record second visit failed: %v", err)
	}
	conversion, err := recorder.RecordConversion(RecordEventInput{
		CampaignID:  campaign.ID,
		SessionID:   "s1",
		ExternalRef: "form-1",
		OccurredAt:  base.Add(2 * time.Minute),
	})
	if err != nil {
		t.Fatalf("record conversion failed: %v", err)
	}
	if conversion.MarkedVisits != 1 {
		t.Fatalf("expected one visit marked, got %d", conversion.MarkedVisits)
	}

	var visits []models.CampaignVisit
	if err := db.Order("id asc").Find(&visits).Error; err != nil {
		t.Fatalf("load visits failed: %v", err)
	}
	if visits[0].ID != first.EventID || visits[0].ConversionID != nil {
		t.Fatalf("older visit should stay unconverted: %+v", visits[0])
	}
	if visits[1].ID != second.EventID || visits[1].ConversionID == nil || *visits[1].ConversionID != conversion.EventID {
		t.Fatalf("latest visit should reference the conversion: %+v", visits[1])
	}
}

func TestTrackingFlowEndToEnd(t *testing.T) {
	recorder, db := setupRecorderTest(t)
	campaign := createTestCampaign(t, db, 1, "flow")
	link := createTestLink(t, db, 1, "ABCD1234", constants.LinkTargetCampaign, campaign.ID, "email")
	capture := NewTrackingCapture(7)
	landedAt := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)

	// 落地：URL 携带 cid，同时下发追踪令牌
	landing, err := recorder.RecordVisit(RecordEventInput{
		CampaignID: campaign.ID,
		SessionID:  "s1",
		URLCID:     "abcd1234",
		OccurredAt: landedAt,
	})
	if err != nil {
		t.Fatalf("record landing visit failed: %v", err)
	}
	if landing.Attribution.Source != constants.AttributionSourceURL || !equalUintPtr(landing.Attribution.LinkID, &link.ID) {
		t.Fatalf("unexpected landing attribution: %+v", landing.Attribution)
	}
	encoded, err := capture.Encode(capture.Capture("abcd1234", UTMParams{}, campaign.ID, constants.LinkTargetCampaign, landedAt))
	if err != nil {
		t.Fatalf("encode token failed: %v", err)
	}

	// 2 小时后回访：只有令牌
	returnAt := landedAt.Add(2 * time.Hour)
	token, err := capture.Decode(encoded, returnAt)
	if err != nil || token == nil {
		t.Fatalf("decode token failed: token=%v err=%v", token, err)
	}
	returning, err := recorder.RecordVisit(RecordEventInput{CampaignID: campaign.ID, SessionID: "s2", Token: token, OccurredAt: returnAt})
	if err != nil {
		t.Fatalf("record returning visit failed: %v", err)
	}
	attribution := returning.Attribution
	if attribution.Source != constants.AttributionSourceCookie || !equalUintPtr(attribution.LinkID, &link.ID) || stringPtrValue(attribution.UTM.Source) != "email" {
		t.Fatalf("unexpected returning attribution: %+v", attribution)
	}
	if _, err := recorder.RecordConversion(RecordEventInput{CampaignID: campaign.ID, SessionID: "s2", Token: token, OccurredAt: returnAt.Add(5 * time.Minute)}); err != nil {
		t.Fatalf("record conversion failed: %v", err)
	}

	// 30 小时后：超出信任窗口
	lateAt := landedAt.Add(30 * time.Hour)
	lateToken, err := capture.Decode(encoded, lateAt)
	if err != nil || lateToken == nil {
		t.Fatalf("token should still be within ttl: token=%v err=%v", lateToken, err)
	}
	late, err := recorder.RecordVisit(RecordEventInput{CampaignID: campaign.ID, SessionID: "s3", Token: lateToken, OccurredAt: lateAt})
	if err != nil {
		t.Fatalf("record late visit failed: %v", err)
	}
	if late.Attribution.LinkID != nil || late.Attribution.UntrackedReason != constants.UntrackedReasonTrustWindowExpired {
		t.Fatalf("unexpected late attribution: %+v", late.Attribution)
	}

	aggregator := NewMarketingAggregator(
		repository.NewCampaignRepository(db),
		repository.NewMarketingEventRepository(db),
		repository.NewMarketingStatRepository(db),
		24,
		nil,
	)
	day := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	if _, err := aggregator.Aggregate(context.Background(), dayWindow(day)); err != nil {
		t.Fatalf("aggregate failed: %v", err)
	}
	rows := loadStats(t, db)
	if len(rows) != 1 {
		t.Fatalf("expected one bucket, got %+v", rows)
	}
	row := rows[0]
	if row.LinkID != link.ID || row.UTMSource != "email" || row.Visits != 2 || row.Conversions != 1 {
		t.Fatalf("unexpected bucket: %+v", row)
	}
}

func TestRecordWebinarVisitExcludedFromAggregation(t *testing.T) {
	recorder, db := setupRecorderTest(t)
	link := createTestLink(t, db, 3, "WEB12345", constants.LinkTargetWebinar, 77, "youtube")
	day := time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC)

	if _, err := recorder.RecordWebinarVisit(RecordEventInput{WebinarID: 77, SessionID: "s1"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput without tenant, got %v", err)
	}
	if _, err := recorder.RecordWebinarVisit(RecordEventInput{TenantID: 3, WebinarID: 77}); !errors.Is(err, ErrSessionIDRequired) {
		t.Fatalf("expected ErrSessionIDRequired, got %v", err)
	}

	result, err := recorder.RecordWebinarVisit(RecordEventInput{
		TenantID:   3,
		WebinarID:  77,
		SessionID:  "s1",
		URLCID:     "web12345",
		OccurredAt: day.Add(2 * time.Hour),
	})
	if err != nil {
		t.Fatalf("record webinar visit failed: %v", err)
	}
	if result.Attribution.LinkID == nil || *result.Attribution.LinkID != link.ID {
		t.Fatalf("webinar link should be attributed, got %+v", result.Attribution)
	}
	if stringPtrValue(result.Attribution.UTM.Source) != "youtube" {
		t.Fatalf("webinar link utm should be adopted, got %+v", result.Attribution.UTM)
	}

	var visit models.CampaignVisit
	if err := db.First(&visit, result.EventID).Error; err != nil {
		t.Fatalf("load visit failed: %v", err)
	}
	if visit.CampaignID != nil || visit.WebinarID == nil || *visit.WebinarID != 77 || visit.TenantID != 3 {
		t.Fatalf("unexpected stored webinar visit: %+v", visit)
	}

	aggregator := NewMarketingAggregator(
		repository.NewCampaignRepository(db),
		repository.NewMarketingEventRepository(db),
		repository.NewMarketingStatRepository(db),
		24,
		nil,
	)
	aggregated, err := aggregator.Aggregate(context.Background(), dayWindow(day))
	if err != nil {
		t.Fatalf("aggregate failed: %v", err)
	}
	if aggregated.TotalVisits != 0 || aggregated.Upserted != 0 {
		t.Fatalf("webinar traffic must stay out of daily stats: %+v", aggregated)
	}
	if rows := loadStats(t, db); len(rows) != 0 {
		t.Fatalf("expected no stat rows, got %d", len(rows))
	}
}

func TestTruncateStringKeepsRunes(t *testing.T) {
	cases := []struct {
		name  string
		value string
		max   int
		want  string
	}{
		{name: "ascii untouched", value: "  agent ", max: 10, want: "agent"},
		{name: "ascii cut", value: "abcdef", max: 3, want: "abc"},
		{name: "multibyte fits by runes", value: "直播页面", max: 6, want: "直播页面"},
		{name: "multibyte cut on rune boundary", value: "直播页面来源", max: 3, want: "直播页"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := truncateString(tc.value, tc.max)
			if got != tc.want || !utf8.ValidString(got) {
				t.Fatalf("truncate mismatch: got=%q want=%q", got, tc.want)
			}
		})
	}
}
