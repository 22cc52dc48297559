package public

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	handlershared "github.com/dujiao-next/marketing/internal/http/handlers/shared"
	"github.com/dujiao-next/marketing/internal/http/response"
	"github.com/dujiao-next/marketing/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const defaultSessionTTLMinutes = 30

// TrackEventRequest 访问/转化上报请求
// URL 上的 cid/utm_* 优先，body 中的同名字段只在 URL 缺省时使用。
type TrackEventRequest struct {
	SessionID   string  `json:"session_id"`
	CID         string  `json:"cid"`
	UTMSource   *string `json:"utm_source"`
	UTMMedium   *string `json:"utm_medium"`
	UTMCampaign *string `json:"utm_campaign"`
	UTMTerm     *string `json:"utm_term"`
	UTMContent  *string `json:"utm_content"`
	Referrer    string  `json:"referrer"`
	ExternalRef string  `json:"external_ref"`
}

func (r TrackEventRequest) field(key string) (string, bool) {
	var value *string
	switch key {
	case "cid":
		if strings.TrimSpace(r.CID) == "" {
			return "", false
		}
		return r.CID, true
	case "utm_source":
		value = r.UTMSource
	case "utm_medium":
		value = r.UTMMedium
	case "utm_campaign":
		value = r.UTMCampaign
	case "utm_term":
		value = r.UTMTerm
	case "utm_content":
		value = r.UTMContent
	}
	if value == nil {
		return "", false
	}
	return *value, true
}

// IssueSession 签发会话 cookie，已有会话时原样续期
func (h *Handler) IssueSession(c *gin.Context) {
	sessionID := c.GetString(handlershared.SessionIDKey)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	ttl := h.Config.Tracking.SessionTTLMinutes
	if ttl <= 0 {
		ttl = defaultSessionTTLMinutes
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(handlershared.SessionCookieName, sessionID, ttl*60, "/", h.Config.Tracking.CookieDomain, h.Config.Tracking.CookieSecure, true)
	response.Success(c, gin.H{"session_id": sessionID, "expires_in": ttl * 60})
}

// RecordVisit 记录落地页访问
func (h *Handler) RecordVisit(c *gin.Context) {
	input, ok := h.buildEventInput(c)
	if !ok {
		return
	}
	result, err := h.EventRecorder.RecordVisit(input)
	if err != nil {
		respondMappedError(c, err, "error.internal")
		return
	}
	response.Success(c, result)
}

// RecordConversion 记录转化
func (h *Handler) RecordConversion(c *gin.Context) {
	input, ok := h.buildEventInput(c)
	if !ok {
		return
	}
	result, err := h.EventRecorder.RecordConversion(input)
	if err != nil {
		respondMappedError(c, err, "error.internal")
		return
	}
	response.Success(c, result)
}

// RecordWebinarVisit 记录直播页访问
func (h *Handler) RecordWebinarVisit(c *gin.Context) {
	tenantID, ok := handlershared.ParseUintParam(c, "tenant_id", "error.tenant_invalid")
	if !ok {
		return
	}
	webinarID, ok := handlershared.ParseUintParam(c, "webinar_id", "error.bad_request")
	if !ok {
		return
	}
	input, ok := h.readEventInput(c, service.RecordEventInput{TenantID: tenantID, WebinarID: webinarID})
	if !ok {
		return
	}
	result, err := h.EventRecorder.RecordWebinarVisit(input)
	if err != nil {
		respondMappedError(c, err, "error.internal")
		return
	}
	response.Success(c, result)
}

func (h *Handler) buildEventInput(c *gin.Context) (service.RecordEventInput, bool) {
	campaignID, ok := handlershared.ParseUintParam(c, "campaign_id", "error.campaign_not_found")
	if !ok {
		return service.RecordEventInput{}, false
	}
	return h.readEventInput(c, service.RecordEventInput{CampaignID: campaignID})
}

// readEventInput 读取请求体、cookie 令牌与会话，补全目标已确定的输入
func (h *Handler) readEventInput(c *gin.Context, target service.RecordEventInput) (service.RecordEventInput, bool) {
	var req TrackEventRequest
	if c.Request.Body != nil {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			respondError(c, response.CodeBadRequest, "error.bad_request", nil)
			return service.RecordEventInput{}, false
		}
	}

	get := func(key string) (string, bool) {
		if value, ok := c.GetQuery(key); ok {
			return value, true
		}
		return req.field(key)
	}
	urlCID, _ := get("cid")

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = c.GetString(handlershared.SessionIDKey)
	}

	now := time.Now().UTC()
	var token *service.TrackingToken
	if raw := c.GetString(handlershared.TrackingTokenKey); raw != "" && h.TrackingCapture != nil {
		decoded, err := h.TrackingCapture.Decode(raw, now)
		if err != nil {
			// 令牌损坏按无令牌处理
			requestLog(c).Debugw("tracking_cookie_invalid",
				"campaign_id", target.CampaignID,
				"webinar_id", target.WebinarID,
				"error", err,
			)
		}
		token = decoded
	}

	referrer := strings.TrimSpace(req.Referrer)
	if referrer == "" {
		referrer = c.Request.Referer()
	}

	target.SessionID = sessionID
	target.URLCID = urlCID
	target.URLUTM = service.UTMFromValues(get)
	target.Token = token
	target.Referrer = referrer
	target.UserAgent = c.Request.UserAgent()
	target.ExternalRef = req.ExternalRef
	target.OccurredAt = now
	target.Channel = service.EventChannelHTTP
	return target, true
}
