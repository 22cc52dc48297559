package router

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dujiao-next/marketing/internal/authz"
	"github.com/dujiao-next/marketing/internal/cache"
	"github.com/dujiao-next/marketing/internal/config"
	consolehandlers "github.com/dujiao-next/marketing/internal/http/handlers/console"
	publichandlers "github.com/dujiao-next/marketing/internal/http/handlers/public"
	"github.com/dujiao-next/marketing/internal/http/response"
	"github.com/dujiao-next/marketing/internal/logger"
	"github.com/dujiao-next/marketing/internal/models"
	"github.com/dujiao-next/marketing/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按公开/控制台分组）
	publicHandler := publichandlers.New(c)
	consoleHandler := consolehandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "mk"
	}
	trackRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:track", redisPrefix),
		WindowSeconds: cfg.Security.TrackRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.TrackRateLimit.MaxRequests,
		MessageKey:    "error.rate_limited",
		FailOpen:      true,
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(MetricsMiddleware(c.Metrics))
	r.Use(CORSMiddleware(cfg.CORS))

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		// 公开埋点接口
		public := apiV1.Group("/public")
		public.Use(TrackingCaptureMiddleware(c.TrackingCapture, cfg.Tracking))
		{
			public.POST("/session", publicHandler.IssueSession)
			campaigns := public.Group("/campaigns/:campaign_id")
			campaigns.Use(RateLimitMiddleware(cache.Client(), trackRule, KeyByIPAndParam("campaign_id"), c.Metrics))
			{
				campaigns.POST("/visit", publicHandler.RecordVisit)
				campaigns.POST("/conversion", publicHandler.RecordConversion)
			}
			webinars := public.Group("/tenants/:tenant_id/webinars/:webinar_id")
			webinars.Use(RateLimitMiddleware(cache.Client(), trackRule, KeyByIPAndParam("webinar_id"), c.Metrics))
			{
				webinars.POST("/visit", publicHandler.RecordWebinarVisit)
			}
		}

		// 外部定时器
		cron := apiV1.Group("/cron")
		cron.Use(CronAuthMiddleware(cfg.Security.CronSecret))
		{
			cron.GET("/aggregate-marketing-stats", consoleHandler.CronAggregate)
		}

		// 控制台接口
		console := apiV1.Group("/console")
		console.Use(ConsoleJWTMiddleware(c.ConsoleAuthService))
		console.Use(ConsoleRBACMiddleware(c.AuthzService))
		{
			console.GET("/links", consoleHandler.ListLinks)
			console.POST("/links", consoleHandler.CreateLink)
			console.GET("/links/:id", consoleHandler.GetLink)
			console.PATCH("/links/:id", consoleHandler.UpdateLink)
			console.POST("/links/:id/archive", consoleHandler.ArchiveLink)
			console.GET("/links/:id/stats", consoleHandler.GetLinkStats)

			console.GET("/stats/summary", consoleHandler.GetSummary)
			console.GET("/stats/overview", consoleHandler.GetOverview)
			console.POST("/stats/aggregate", consoleHandler.TriggerAggregate)

			console.GET("/authz/roles", consoleHandler.ListRoles)
			console.GET("/authz/permissions", func(ctx *gin.Context) {
				response.Success(ctx, buildConsolePermissionCatalog(r))
			})
		}
	}

	if cfg.Metrics.Enabled {
		path := strings.TrimSpace(cfg.Metrics.Path)
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(c.Metrics.Handler()))
	}

	// 健康检查
	r.GET("/health", func(ctx *gin.Context) {
		status := gin.H{"status": "ok", "database": "ok", "redis": "disabled"}
		if sqlDB, err := models.DB.DB(); err != nil || sqlDB.PingContext(ctx.Request.Context()) != nil {
			status["status"] = "degraded"
			status["database"] = "error"
		}
		if cache.Enabled() {
			status["redis"] = "ok"
			if err := cache.Ping(ctx.Request.Context()); err != nil {
				status["status"] = "degraded"
				status["redis"] = "error"
			}
		}
		ctx.JSON(200, status)
	})

	return r
}

type consolePermissionCatalogItem struct {
	Module     string `json:"module"`
	Method     string `json:"method"`
	Object     string `json:"object"`
	Permission string `json:"permission"`
}

func buildConsolePermissionCatalog(engine *gin.Engine) []consolePermissionCatalogItem {
	if engine == nil {
		return []consolePermissionCatalogItem{}
	}

	routes := engine.Routes()
	seen := make(map[string]struct{}, len(routes))
	items := make([]consolePermissionCatalogItem, 0, len(routes))

	for _, item := range routes {
		method := strings.ToUpper(strings.TrimSpace(item.Method))
		if method == "" || method == "OPTIONS" || method == "HEAD" {
			continue
		}
		if !strings.HasPrefix(item.Path, "/api/v1/console/") {
			continue
		}
		object := authz.NormalizeObject(item.Path)
		permission := method + ":" + object
		if _, exists := seen[permission]; exists {
			continue
		}
		seen[permission] = struct{}{}
		items = append(items, consolePermissionCatalogItem{
			Module:     deriveConsolePermissionModule(object),
			Method:     method,
			Object:     object,
			Permission: permission,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Module == items[j].Module {
			if items[i].Object == items[j].Object {
				return items[i].Method < items[j].Method
			}
			return items[i].Object < items[j].Object
		}
		return items[i].Module < items[j].Module
	})

	return items
}

func deriveConsolePermissionModule(object string) string {
	normalized := strings.TrimPrefix(strings.TrimSpace(object), "/")
	if normalized == "" {
		return "system"
	}
	segments := strings.Split(normalized, "/")
	if len(segments) <= 1 {
		return segments[0]
	}
	if segments[0] != "console" {
		return segments[0]
	}
	return segments[1]
}
