package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dujiao-next/marketing/internal/config"
	"github.com/dujiao-next/marketing/internal/constants"
	handlershared "github.com/dujiao-next/marketing/internal/http/handlers/shared"
	"github.com/dujiao-next/marketing/internal/service"

	"github.com/gin-gonic/gin"
)

func findCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, cookie := range cookies {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

func setupTrackingRouter(capture *service.TrackingCapture) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(TrackingCaptureMiddleware(capture, config.TrackingConfig{SessionTTLMinutes: 30}))
	handler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"incoming": c.GetString(handlershared.TrackingTokenKey),
			"session":  c.GetString(handlershared.SessionIDKey),
		})
	}
	r.POST("/campaigns/:campaign_id/visit", handler)
	r.POST("/tenants/:tenant_id/webinars/:webinar_id/visit", handler)
	r.POST("/session", handler)
	return r
}

func TestTrackingCaptureIssuesCookie(t *testing.T) {
	capture := service.NewTrackingCapture(7)
	r := setupTrackingRouter(capture)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/campaigns/12/visit?cid=abcd1234&utm_source=Email", nil)
	r.ServeHTTP(w, req)

	cookie := findCookie(w.Result().Cookies(), handlershared.TrackingCookieName)
	if cookie == nil {
		t.Fatalf("expected tracking cookie to be issued")
	}
	if cookie.MaxAge != capture.MaxAgeSeconds() || !cookie.HttpOnly {
		t.Fatalf("unexpected cookie attributes: %+v", cookie)
	}
	token, err := capture.Decode(cookie.Value, time.Now())
	if err != nil || token == nil {
		t.Fatalf("decode issued cookie failed: token=%v err=%v", token, err)
	}
	if token.CID != "ABCD1234" || token.CampaignID != 12 || token.Source == nil || *token.Source != "email" {
		t.Fatalf("unexpected token: %+v", token)
	}
}

func TestTrackingCaptureIssuesWebinarCookie(t *testing.T) {
	capture := service.NewTrackingCapture(7)
	r := setupTrackingRouter(capture)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/tenants/3/webinars/77/visit?cid=web12345", nil))

	cookie := findCookie(w.Result().Cookies(), handlershared.TrackingCookieName)
	if cookie == nil {
		t.Fatalf("expected tracking cookie for webinar page")
	}
	token, err := capture.Decode(cookie.Value, time.Now())
	if err != nil || token == nil {
		t.Fatalf("decode issued cookie failed: token=%v err=%v", token, err)
	}
	if token.CampaignID != 77 || token.TargetType != constants.LinkTargetWebinar || token.CID != "WEB12345" {
		t.Fatalf("unexpected webinar token: %+v", token)
	}
}

func TestTrackingCaptureSkipsWithoutSignals(t *testing.T) {
	r := setupTrackingRouter(service.NewTrackingCapture(7))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/campaigns/12/visit", nil))
	if cookie := findCookie(w.Result().Cookies(), handlershared.TrackingCookieName); cookie != nil {
		t.Fatalf("did not expect tracking cookie, got %+v", cookie)
	}

	// 没有活动上下文时不签发
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/session?cid=abcd1234", nil))
	if cookie := findCookie(w.Result().Cookies(), handlershared.TrackingCookieName); cookie != nil {
		t.Fatalf("did not expect tracking cookie without campaign, got %+v", cookie)
	}
}

func TestTrackingCaptureRefreshesSession(t *testing.T) {
	r := setupTrackingRouter(service.NewTrackingCapture(7))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/campaigns/12/visit", nil)
	req.AddCookie(&http.Cookie{Name: handlershared.SessionCookieName, Value: "sess-1"})
	req.AddCookie(&http.Cookie{Name: handlershared.TrackingCookieName, Value: "old-token"})
	r.ServeHTTP(w, req)

	cookie := findCookie(w.Result().Cookies(), handlershared.SessionCookieName)
	if cookie == nil || cookie.Value != "sess-1" || cookie.MaxAge != 30*60 {
		t.Fatalf("expected refreshed session cookie, got %+v", cookie)
	}
	body := w.Body.String()
	if !containsAll(body, `"session":"sess-1"`, `"incoming":"old-token"`) {
		t.Fatalf("unexpected context values: %s", body)
	}
}

func containsAll(s string, parts ...string) bool {
	for _, part := range parts {
		if !strings.Contains(s, part) {
			return false
		}
	}
	return true
}
