package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/dujiao-next/marketing/internal/config"
	"github.com/dujiao-next/marketing/internal/constants"
	"github.com/dujiao-next/marketing/internal/logger"
	"github.com/dujiao-next/marketing/internal/models"
	"github.com/dujiao-next/marketing/internal/repository"
	"github.com/dujiao-next/marketing/internal/service"

	"github.com/google/uuid"
)

type seedCampaign struct {
	Title      string
	PublicPath string
	Links      []seedLink
}

type seedLink struct {
	Name    string
	Variant string
	UTM     service.UTMParams
}

func main() {
	var (
		tenantID   uint
		role       string
		tokenTTL   time.Duration
		demoEvents int
	)
	flag.UintVar(&tenantID, "tenant", 1, "租户ID")
	flag.StringVar(&role, "role", constants.ConsoleRoleAdmin, "控制台令牌角色: viewer, operator, admin")
	flag.DurationVar(&tokenTTL, "token-ttl", 24*time.Hour, "控制台令牌有效期")
	flag.IntVar(&demoEvents, "events", 20, "每条链接写入的演示访问数")
	flag.Parse()

	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}, false); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	campaignRepo := repository.NewCampaignRepository(models.DB)
	linkRepo := repository.NewCampaignLinkRepository(models.DB)
	eventRepo := repository.NewMarketingEventRepository(models.DB)
	linkService := service.NewCampaignLinkService(linkRepo, campaignRepo, eventRepo, cfg.Tracking.PublicBaseURL, cfg.Tracking.LinkCreateMaxRetry)
	resolver := service.NewAttributionResolver(linkRepo, cfg.Tracking.TrustWindowHours, nil)
	recorder := service.NewEventRecorder(campaignRepo, eventRepo, resolver, true, true, nil)

	for _, item := range demoCampaigns() {
		campaign, err := models.EnsureCampaign(tenantID, item.Title, item.PublicPath)
		if err != nil {
			stdLog.Fatalf("Failed to ensure campaign %s: %v", item.PublicPath, err)
		}
		stdLog.Printf("Campaign #%d %s (/%s)", campaign.ID, campaign.Title, campaign.PublicPath)

		for _, link := range item.Links {
			view, err := linkService.Create(service.CreateCampaignLinkInput{
				TenantID:       tenantID,
				Name:           link.Name,
				TargetType:     constants.LinkTargetCampaign,
				TargetID:       campaign.ID,
				LandingVariant: link.Variant,
				UTM:            link.UTM,
			})
			if err != nil {
				stdLog.Printf("Failed to create link %s: %v", link.Name, err)
				continue
			}
			stdLog.Printf("  Link %s cid=%s", view.Name, view.CID)
			stdLog.Printf("    %s", view.CampaignURL)

			visits, conversions := seedEvents(recorder, campaign.ID, view, demoEvents)
			stdLog.Printf("    demo visits=%d conversions=%d", visits, conversions)
		}
	}

	authService := service.NewConsoleAuthService(cfg.JWT)
	token, expiresAt, err := authService.Issue(tenantID, role, tokenTTL)
	if err != nil {
		stdLog.Fatalf("Failed to issue console token: %v", err)
	}
	fmt.Println()
	fmt.Printf("Console token (tenant=%d role=%s, expires %s):\n%s\n", tenantID, role, expiresAt.Format(time.RFC3339), token)
}

// seedEvents 写入演示访问，每三次访问转化一次
func seedEvents(recorder *service.EventRecorder, campaignID uint, link *service.CampaignLinkView, count int) (int, int) {
	visits, conversions := 0, 0
	now := time.Now().UTC()
	for i := 0; i < count; i++ {
		sessionID := uuid.NewString()
		occurredAt := now.Add(-time.Duration(i) * 3 * time.Hour)
		input := service.RecordEventInput{
			CampaignID: campaignID,
			SessionID:  sessionID,
			URLCID:     link.CID,
			URLUTM: service.UTMParams{
				Source:   link.UTMSource,
				Medium:   link.UTMMedium,
				Campaign: link.UTMCampaign,
				Term:     link.UTMTerm,
				Content:  link.UTMContent,
			},
			UserAgent:  "marketing-seed",
			OccurredAt: occurredAt,
			Channel:    "seed",
		}
		if _, err := recorder.RecordVisit(input); err != nil {
			logger.Warnw("seed_visit_failed", "campaign_id", campaignID, "error", err)
			continue
		}
		visits++
		if i%3 != 0 {
			continue
		}
		input.OccurredAt = occurredAt.Add(5 * time.Minute)
		if _, err := recorder.RecordConversion(input); err != nil {
			logger.Warnw("seed_conversion_failed", "campaign_id", campaignID, "error", err)
			continue
		}
		conversions++
	}
	return visits, conversions
}

func demoCampaigns() []seedCampaign {
	return []seedCampaign{
		{
			Title:      "Spring Product Launch",
			PublicPath: "spring-launch",
			Links: []seedLink{
				{Name: "Newsletter", Variant: constants.LandingVariantRegister, UTM: service.UTMParams{
					Source: strPtr("newsletter"), Medium: strPtr("email"), Campaign: strPtr("spring_launch"),
				}},
				{Name: "LinkedIn Ads", Variant: constants.LandingVariantWelcome, UTM: service.UTMParams{
					Source: strPtr("linkedin"), Medium: strPtr("cpc"), Campaign: strPtr("spring_launch"), Content: strPtr("banner_a"),
				}},
			},
		},
		{
			Title:      "Customer Survey 2026",
			PublicPath: "survey-2026",
			Links: []seedLink{
				{Name: "In-app Prompt", Variant: constants.LandingVariantSurvey, UTM: service.UTMParams{
					Source: strPtr("app"), Medium: strPtr("in_app"),
				}},
			},
		},
	}
}

func strPtr(value string) *string {
	return &value
}
