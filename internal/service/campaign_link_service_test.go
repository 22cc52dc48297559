package service

import (
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dujiao-next/marketing/internal/constants"
	"github.com/dujiao-next/marketing/internal/models"
	"github.com/dujiao-next/marketing/internal/repository"

	"gorm.io/gorm"
)

func newTestLinkService(db *gorm.DB, linkRepo repository.CampaignLinkRepository) *CampaignLinkService {
	if linkRepo == nil {
		linkRepo = repository.NewCampaignLinkRepository(db)
	}
	return NewCampaignLinkService(
		linkRepo,
		repository.NewCampaignRepository(db),
		repository.NewMarketingEventRepository(db),
		"https://events.example.com/",
		3,
	)
}

func TestCampaignLinkCreateBuildsShareURLs(t *testing.T) {
	db := setupMarketingTestDB(t)
	svc := newTestLinkService(db, nil)
	campaign := createTestCampaign(t, db, 1, "spring")

	view, err := svc.Create(CreateCampaignLinkInput{
		TenantID: 1,
		Name:     " Newsletter ",
		TargetID: campaign.ID,
		UTM:      UTMParams{Source: strPtr("Email"), Medium: strPtr("newsletter")},
	})
	if err != nil {
		t.Fatalf("create link failed: %v", err)
	}
	if !ValidateTrackingID(view.CID) {
		t.Fatalf("invalid generated cid: %s", view.CID)
	}
	if view.Name != "Newsletter" || view.TargetType != constants.LinkTargetCampaign || view.LandingVariant != constants.LandingVariantRegister {
		t.Fatalf("unexpected link fields: %+v", view.CampaignLink)
	}
	if stringPtrValue(view.UTMSource) != "email" {
		t.Fatalf("utm should be normalized, got %q", stringPtrValue(view.UTMSource))
	}
	wantShare := "https://events.example.com/event/spring/register?cid=" + view.CID
	if view.ShareURL != wantShare {
		t.Fatalf("unexpected share url: %s", view.ShareURL)
	}
	parsed, err := url.Parse(view.CampaignURL)
	if err != nil {
		t.Fatalf("parse campaign url failed: %v", err)
	}
	query := parsed.Query()
	if query.Get("cid") != view.CID || query.Get("utm_source") != "email" || query.Get("utm_medium") != "newsletter" {
		t.Fatalf("unexpected campaign url query: %s", parsed.RawQuery)
	}
	if query.Has("utm_term") {
		t.Fatalf("empty utm fields should be omitted: %s", parsed.RawQuery)
	}
}

func TestCampaignLinkCreateWebinarTarget(t *testing.T) {
	db := setupMarketingTestDB(t)
	svc := newTestLinkService(db, nil)

	view, err := svc.Create(CreateCampaignLinkInput{
		TenantID:   1,
		Name:       "webinar",
		TargetType: constants.LinkTargetWebinar,
		TargetID:   42,
	})
	if err != nil {
		t.Fatalf("create webinar link failed: %v", err)
	}
	if !strings.HasPrefix(view.ShareURL, "https://events.example.com/webinar/42?cid=") {
		t.Fatalf("unexpected webinar share url: %s", view.ShareURL)
	}
}

func TestCampaignLinkCreateValidation(t *testing.T) {
	db := setupMarketingTestDB(t)
	svc := newTestLinkService(db, nil)
	campaign := createTestCampaign(t, db, 1, "valid")
	other := createTestCampaign(t, db, 2, "foreign")

	cases := []struct {
		name  string
		input CreateCampaignLinkInput
		want  error
	}{
		{name: "empty name", input: CreateCampaignLinkInput{TenantID: 1, TargetID: campaign.ID}, want: ErrLinkNameRequired},
		{name: "bad target type", input: CreateCampaignLinkInput{TenantID: 1, Name: "x", TargetType: "page", TargetID: campaign.ID}, want: ErrLinkTargetInvalid},
		{name: "missing target", input: CreateCampaignLinkInput{TenantID: 1, Name: "x"}, want: ErrLinkTargetInvalid},
		{name: "bad variant", input: CreateCampaignLinkInput{TenantID: 1, Name: "x", TargetID: campaign.ID, LandingVariant: "popup"}, want: ErrLandingVariantInvalid},
		{name: "foreign campaign", input: CreateCampaignLinkInput{TenantID: 1, Name: "x", TargetID: other.ID}, want: ErrCampaignNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Create(tc.input); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

// conflictingLinkRepo 前 N 次创建返回唯一约束冲突
type conflictingLinkRepo struct {
	repository.CampaignLinkRepository
	conflicts int
	attempts  int
}

func (r *conflictingLinkRepo) Create(link *models.CampaignLink) error {
	r.attempts++
	if r.attempts <= r.conflicts {
		return errors.New("UNIQUE constraint failed: campaign_links.tenant_id, campaign_links.cid")
	}
	return r.CampaignLinkRepository.Create(link)
}

func TestCampaignLinkCreateRetriesOnConflict(t *testing.T) {
	db := setupMarketingTestDB(t)
	campaign := createTestCampaign(t, db, 1, "retry")

	repo := &conflictingLinkRepo{CampaignLinkRepository: repository.NewCampaignLinkRepository(db), conflicts: 2}
	svc := newTestLinkService(db, repo)
	if _, err := svc.Create(CreateCampaignLinkInput{TenantID: 1, Name: "retry", TargetID: campaign.ID}); err != nil {
		t.Fatalf("create should succeed after conflicts: %v", err)
	}
	if repo.attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", repo.attempts)
	}

	exhausted := &conflictingLinkRepo{CampaignLinkRepository: repository.NewCampaignLinkRepository(db), conflicts: 10}
	svc = newTestLinkService(db, exhausted)
	if _, err := svc.Create(CreateCampaignLinkInput{TenantID: 1, Name: "retry", TargetID: campaign.ID}); !errors.Is(err, ErrIDGenerateLimit) {
		t.Fatalf("expected ErrIDGenerateLimit, got %v", err)
	}
	if exhausted.attempts != 3 {
		t.Fatalf("expected retry limit 3, got %d", exhausted.attempts)
	}
}

func TestCampaignLinkUpdateLockedAfterConversion(t *testing.T) {
	db := setupMarketingTestDB(t)
	svc := newTestLinkService(db, nil)
	campaign := createTestCampaign(t, db, 1, "lock")
	link := createTestLink(t, db, 1, "LOCK1234", constants.LinkTargetCampaign, campaign.ID, "email")

	variant := constants.LandingVariantSurvey
	view, err := svc.Update(1, link.ID, UpdateCampaignLinkInput{LandingVariant: &variant})
	if err != nil {
		t.Fatalf("update before conversion failed: %v", err)
	}
	if view.LandingVariant != constants.LandingVariantSurvey || view.Locked {
		t.Fatalf("unexpected view: %+v", view)
	}

	createTestConversion(t, db, 1, &campaign.ID, &link.ID, "email", time.Now().UTC())

	if _, err := svc.Update(1, link.ID, UpdateCampaignLinkInput{UTM: &UTMParams{Source: strPtr("ads")}}); !errors.Is(err, ErrLinkLocked) {
		t.Fatalf("expected ErrLinkLocked, got %v", err)
	}
	name := "renamed"
	view, err = svc.Update(1, link.ID, UpdateCampaignLinkInput{Name: &name})
	if err != nil {
		t.Fatalf("rename on locked link failed: %v", err)
	}
	if view.Name != "renamed" || !view.Locked {
		t.Fatalf("unexpected locked view: %+v", view)
	}

	archived, err := svc.Archive(1, link.ID)
	if err != nil {
		t.Fatalf("archive failed: %v", err)
	}
	if archived.Status != constants.CampaignLinkStatusArchived {
		t.Fatalf("expected archived status, got %s", archived.Status)
	}
}

func TestCampaignLinkTenantIsolation(t *testing.T) {
	db := setupMarketingTestDB(t)
	svc := newTestLinkService(db, nil)
	campaign := createTestCampaign(t, db, 1, "iso")
	link := createTestLink(t, db, 1, "ISOL1234", constants.LinkTargetCampaign, campaign.ID, "")

	if _, err := svc.Get(2, link.ID); !errors.Is(err, ErrCampaignLinkNotFound) {
		t.Fatalf("expected not found for other tenant, got %v", err)
	}
	views, total, err := svc.List(repository.CampaignLinkListFilter{TenantID: 2, Page: 1, PageSize: 20})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 0 || len(views) != 0 {
		t.Fatalf("expected empty list for other tenant, got %d", total)
	}
	views, total, err = svc.List(repository.CampaignLinkListFilter{TenantID: 1, Page: 1, PageSize: 20})
	if err != nil || total != 1 || views[0].CID != "ISOL1234" {
		t.Fatalf("unexpected list result: total=%d err=%v", total, err)
	}
}
