package shared

import (
	"github.com/dujiao-next/marketing/internal/http/response"

	"github.com/gin-gonic/gin"
)

// 上下文键与 cookie 名称
const (
	TenantIDKey        = "tenant_id"
	ConsoleRoleKey     = "console_role"
	TrackingTokenKey   = "tracking_token_raw"
	SessionIDKey       = "tracking_session_id"
	TrackingCookieName = "mk_tracking"
	SessionCookieName  = "mk_session_id"
)

// GetContextUintWithKeys 从上下文读取 uint 值并统一处理错误响应。
func GetContextUintWithKeys(c *gin.Context, key, invalidKey, typeInvalidKey string) (uint, bool) {
	value, exists := c.Get(key)
	if !exists {
		RespondError(c, response.CodeUnauthorized, "error.unauthorized", nil)
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		if v == 0 {
			RespondError(c, response.CodeBadRequest, invalidKey, nil)
			return 0, false
		}
		return v, true
	case int:
		if v <= 0 {
			RespondError(c, response.CodeBadRequest, invalidKey, nil)
			return 0, false
		}
		return uint(v), true
	case float64:
		if v <= 0 {
			RespondError(c, response.CodeBadRequest, invalidKey, nil)
			return 0, false
		}
		return uint(v), true
	default:
		RespondError(c, response.CodeInternal, typeInvalidKey, nil)
		return 0, false
	}
}

// GetTenantID 读取控制台令牌中的租户
func GetTenantID(c *gin.Context) (uint, bool) {
	return GetContextUintWithKeys(c, TenantIDKey, "error.tenant_invalid", "error.internal")
}
