package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dujiao-next/marketing/internal/constants"
	"github.com/dujiao-next/marketing/internal/models"
	"github.com/dujiao-next/marketing/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupMarketingTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:marketing_service_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Campaign{},
		&models.CampaignLink{},
		&models.CampaignVisit{},
		&models.CampaignConversion{},
		&models.MarketingStatDaily{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return db
}

func createTestCampaign(t *testing.T, db *gorm.DB, tenantID uint, title string) models.Campaign {
	t.Helper()
	campaign := models.Campaign{
		TenantID:   tenantID,
		Title:      title,
		PublicPath: "/" + title,
		Status:     constants.CampaignStatusActive,
	}
	if err := db.Create(&campaign).Error; err != nil {
		t.Fatalf("create campaign failed: %v", err)
	}
	return campaign
}

func createTestLink(t *testing.T, db *gorm.DB, tenantID uint, cid, targetType string, targetID uint, source string) models.CampaignLink {
	t.Helper()
	link := models.CampaignLink{
		TenantID:       tenantID,
		CID:            cid,
		Name:           "link-" + cid,
		TargetType:     targetType,
		TargetID:       targetID,
		LandingVariant: constants.LandingVariantRegister,
		UTMSource:      stringPtrOrNil(source),
		Status:         constants.CampaignLinkStatusActive,
	}
	if err := db.Create(&link).Error; err != nil {
		t.Fatalf("create link failed: %v", err)
	}
	return link
}

func createTestVisit(t *testing.T, db *gorm.DB, tenantID uint, campaignID *uint, linkID *uint, source, session string, at time.Time) models.CampaignVisit {
	t.Helper()
	visit := models.CampaignVisit{
		TenantID:          tenantID,
		CampaignID:        campaignID,
		LinkID:            linkID,
		UTMSource:         stringPtrOrNil(source),
		SessionID:         stringPtrOrNil(session),
		UntrackedReason:   constants.UntrackedReasonNone,
		AttributionSource: constants.AttributionSourceNone,
		OccurredAt:        at,
	}
	if err := db.Create(&visit).Error; err != nil {
		t.Fatalf("create visit failed: %v", err)
	}
	return visit
}

func createTestConversion(t *testing.T, db *gorm.DB, tenantID uint, campaignID *uint, linkID *uint, source string, at time.Time) models.CampaignConversion {
	t.Helper()
	conversion := models.CampaignConversion{
		TenantID:          tenantID,
		CampaignID:        campaignID,
		LinkID:            linkID,
		UTMSource:         stringPtrOrNil(source),
		UntrackedReason:   constants.UntrackedReasonNone,
		AttributionSource: constants.AttributionSourceNone,
		OccurredAt:        at,
	}
	if err := db.Create(&conversion).Error; err != nil {
		t.Fatalf("create conversion failed: %v", err)
	}
	return conversion
}

func strPtr(value string) *string {
	return &value
}

// failingLinkRepo 模拟存储不可用
type failingLinkRepo struct {
	repository.CampaignLinkRepository
}

func (failingLinkRepo) GetActiveByCID(uint, string) (*models.CampaignLink, error) {
	return nil, errors.New("link store unavailable")
}

func (failingLinkRepo) GetActiveByCIDAndTarget(uint, string, string, uint) (*models.CampaignLink, error) {
	return nil, errors.New("link store unavailable")
}
