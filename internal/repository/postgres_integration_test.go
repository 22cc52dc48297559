//go:build integration
// +build integration

package repository

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/dujiao-next/marketing/internal/constants"
	"github.com/dujiao-next/marketing/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupPostgresIntegrationDB 初始化 PostgreSQL 集成测试数据库。
func setupPostgresIntegrationDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := strings.TrimSpace(os.Getenv("TEST_POSTGRES_DSN"))
	if dsn == "" {
		t.Skip("skip postgres integration test: TEST_POSTGRES_DSN is empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open postgres failed: %v", err)
	}

	cleanupModels := models.AllModels()
	_ = db.Migrator().DropTable(cleanupModels...)

	if err := db.AutoMigrate(cleanupModels...); err != nil {
		t.Fatalf("migrate postgres models failed: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Migrator().DropTable(cleanupModels...)
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})

	return db
}

func TestPostgresCampaignLinkKeywordSearch(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	repo := NewCampaignLinkRepository(db)

	link := &models.CampaignLink{
		TenantID:   1,
		CID:        "PGLINK01",
		Name:       "Postgres Newsletter",
		TargetType: constants.LinkTargetCampaign,
		TargetID:   1,
		Status:     constants.CampaignLinkStatusActive,
	}
	if err := repo.Create(link); err != nil {
		t.Fatalf("create link failed: %v", err)
	}

	rows, total, err := repo.List(CampaignLinkListFilter{TenantID: 1, Page: 1, PageSize: 20, Keyword: "newsletter"})
	if err != nil {
		t.Fatalf("list by name failed: %v", err)
	}
	if total != 1 || len(rows) != 1 {
		t.Fatalf("name search want 1 got total=%d len=%d", total, len(rows))
	}

	rows, total, err = repo.List(CampaignLinkListFilter{TenantID: 1, Page: 1, PageSize: 20, Keyword: "pglink"})
	if err != nil {
		t.Fatalf("list by cid failed: %v", err)
	}
	if total != 1 || len(rows) != 1 {
		t.Fatalf("cid search want 1 got total=%d len=%d", total, len(rows))
	}
}

func TestPostgresMarketingEventQueries(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	campaignRepo := NewCampaignRepository(db)
	eventRepo := NewMarketingEventRepository(db)
	statRepo := NewMarketingStatRepository(db)
	now := time.Now().UTC().Truncate(time.Second)

	campaign := &models.Campaign{TenantID: 3, Title: "pg campaign", Status: constants.CampaignStatusActive}
	if err := campaignRepo.Create(campaign); err != nil {
		t.Fatalf("create campaign failed: %v", err)
	}
	campaignID := campaign.ID
	session := "pg-session"

	visit := &models.CampaignVisit{TenantID: 3, CampaignID: &campaignID, SessionID: &session, OccurredAt: now}
	if err := eventRepo.CreateVisit(visit); err != nil {
		t.Fatalf("create visit failed: %v", err)
	}
	conversion := &models.CampaignConversion{TenantID: 3, CampaignID: &campaignID, SessionID: &session, OccurredAt: now.Add(time.Minute)}
	if err := eventRepo.CreateConversion(conversion); err != nil {
		t.Fatalf("create conversion failed: %v", err)
	}
	marked, err := eventRepo.MarkLatestVisitConverted(campaignID, session, conversion.ID, conversion.OccurredAt)
	if err != nil || marked != 1 {
		t.Fatalf("mark visit mismatch: %d %v", marked, err)
	}

	startAt := now.Add(-time.Hour)
	endAt := now.Add(time.Hour)
	visits, err := eventRepo.ListVisits(startAt, endAt, []uint{campaignID})
	if err != nil || len(visits) != 1 {
		t.Fatalf("list visits mismatch: %d %v", len(visits), err)
	}
	total, err := eventRepo.CountConversions(startAt, endAt, []uint{campaignID})
	if err != nil || total != 1 {
		t.Fatalf("count conversions mismatch: %d %v", total, err)
	}

	statDate := now.Format("2006-01-02")
	row := &models.MarketingStatDaily{TenantID: 3, StatDate: statDate, CampaignID: campaignID, Visits: 1, Conversions: 1}
	if err := statRepo.Create(row); err != nil {
		t.Fatalf("create stat failed: %v", err)
	}
	if err := statRepo.Create(&models.MarketingStatDaily{TenantID: 3, StatDate: statDate, CampaignID: campaignID}); err == nil {
		t.Fatalf("duplicate stat bucket should be rejected by postgres unique index")
	}
}
