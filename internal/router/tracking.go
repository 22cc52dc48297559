package router

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dujiao-next/marketing/internal/config"
	"github.com/dujiao-next/marketing/internal/constants"
	handlershared "github.com/dujiao-next/marketing/internal/http/handlers/shared"
	"github.com/dujiao-next/marketing/internal/logger"
	"github.com/dujiao-next/marketing/internal/service"

	"github.com/gin-gonic/gin"
)

const defaultSessionTTLMinutes = 30

// TrackingCaptureMiddleware 追踪参数捕获中间件
// 请求带 cid/utm_* 且有活动上下文时重新签发 mk_tracking；已有会话 cookie 续期。
// 入站的旧令牌放进上下文，供归因解析按 cookie 层使用。
func TrackingCaptureMiddleware(capture *service.TrackingCapture, cfg config.TrackingConfig) gin.HandlerFunc {
	sessionTTL := cfg.SessionTTLMinutes
	if sessionTTL <= 0 {
		sessionTTL = defaultSessionTTLMinutes
	}
	return func(c *gin.Context) {
		incoming, _ := c.Cookie(handlershared.TrackingCookieName)
		c.Set(handlershared.TrackingTokenKey, incoming)

		targetID, targetType := trackingTarget(c)
		if targetID > 0 && capture != nil {
			utm := service.UTMFromValues(c.GetQuery)
			token := capture.Capture(c.Query("cid"), utm, targetID, targetType, time.Now())
			if token != nil {
				encoded, err := capture.Encode(token)
				if err != nil {
					logger.Warnw("tracking_cookie_encode_failed", "target_type", targetType, "target_id", targetID, "error", err)
				} else {
					c.SetSameSite(http.SameSiteLaxMode)
					c.SetCookie(handlershared.TrackingCookieName, encoded, capture.MaxAgeSeconds(), "/", cfg.CookieDomain, cfg.CookieSecure, true)
				}
			}
		}

		if sessionID, err := c.Cookie(handlershared.SessionCookieName); err == nil {
			sessionID = strings.TrimSpace(sessionID)
			if sessionID != "" {
				c.Set(handlershared.SessionIDKey, sessionID)
				c.SetSameSite(http.SameSiteLaxMode)
				c.SetCookie(handlershared.SessionCookieName, sessionID, sessionTTL*60, "/", cfg.CookieDomain, cfg.CookieSecure, true)
			}
		}

		c.Next()
	}
}

// trackingTarget 从路由参数识别埋点目标：活动优先，其次直播
func trackingTarget(c *gin.Context) (uint, string) {
	if id, _ := strconv.ParseUint(strings.TrimSpace(c.Param("campaign_id")), 10, 64); id > 0 {
		return uint(id), constants.LinkTargetCampaign
	}
	if id, _ := strconv.ParseUint(strings.TrimSpace(c.Param("webinar_id")), 10, 64); id > 0 {
		return uint(id), constants.LinkTargetWebinar
	}
	return 0, ""
}
