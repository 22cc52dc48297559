package provider

import (
	"github.com/dujiao-next/marketing/internal/authz"
	"github.com/dujiao-next/marketing/internal/cache"
	"github.com/dujiao-next/marketing/internal/config"
	"github.com/dujiao-next/marketing/internal/logger"
	"github.com/dujiao-next/marketing/internal/metrics"
	"github.com/dujiao-next/marketing/internal/models"
	"github.com/dujiao-next/marketing/internal/queue"
	"github.com/dujiao-next/marketing/internal/repository"
	"github.com/dujiao-next/marketing/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client
	Metrics     *metrics.Metrics

	// Repositories
	CampaignRepo       repository.CampaignRepository
	CampaignLinkRepo   repository.CampaignLinkRepository
	MarketingEventRepo repository.MarketingEventRepository
	MarketingStatRepo  repository.MarketingStatRepository

	// Services
	AuthzService            *authz.Service
	ConsoleAuthService      *service.ConsoleAuthService
	TrackingCapture         *service.TrackingCapture
	AttributionResolver     *service.AttributionResolver
	EventRecorder           *service.EventRecorder
	CampaignLinkService     *service.CampaignLinkService
	MarketingSummaryService *service.MarketingSummaryService
	MarketingAggregator     *service.MarketingAggregator
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.NewMetrics(cfg.Metrics.Namespace)
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
		Metrics:     m,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.CampaignRepo = repository.NewCampaignRepository(db)
	c.CampaignLinkRepo = repository.NewCampaignLinkRepository(db)
	c.MarketingEventRepo = repository.NewMarketingEventRepository(db)
	c.MarketingStatRepo = repository.NewMarketingStatRepository(db)
}

func (c *Container) initServices() {
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	cfg := c.Config
	c.ConsoleAuthService = service.NewConsoleAuthService(cfg.JWT)
	if !c.ConsoleAuthService.Configured() {
		logger.Warnw("provider_console_jwt_secret_missing")
	}
	c.TrackingCapture = service.NewTrackingCapture(cfg.Tracking.TokenTTLDays)
	c.AttributionResolver = service.NewAttributionResolver(c.CampaignLinkRepo, cfg.Tracking.TrustWindowHours, c.Metrics)
	c.EventRecorder = service.NewEventRecorder(
		c.CampaignRepo,
		c.MarketingEventRepo,
		c.AttributionResolver,
		cfg.Tracking.RequireVisitSessionID,
		cfg.Tracking.MarkConversionOnVisitID,
		c.Metrics,
	)
	c.CampaignLinkService = service.NewCampaignLinkService(
		c.CampaignLinkRepo,
		c.CampaignRepo,
		c.MarketingEventRepo,
		cfg.Tracking.PublicBaseURL,
		cfg.Tracking.LinkCreateMaxRetry,
	)
	c.MarketingSummaryService = service.NewMarketingSummaryService(
		c.CampaignRepo,
		c.CampaignLinkRepo,
		c.MarketingEventRepo,
		c.MarketingStatRepo,
		service.SummaryOptions{
			ConsistencyRatio:   cfg.Summary.ConsistencyRatio,
			BackfillCutoffHour: cfg.Summary.BackfillCutoffHour,
			Timezone:           cfg.Summary.Timezone,
			CacheTTLSeconds:    cfg.Summary.CacheTTLSeconds,
			DefaultRangeDays:   cfg.Summary.DefaultRangeDays,
		},
		c.Metrics,
	)
	c.MarketingAggregator = service.NewMarketingAggregator(
		c.CampaignRepo,
		c.MarketingEventRepo,
		c.MarketingStatRepo,
		cfg.Aggregation.LookbackHours,
		c.Metrics,
	)
	c.MarketingAggregator.SetInvalidator(c.MarketingSummaryService)
}
