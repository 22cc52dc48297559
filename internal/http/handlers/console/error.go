package console

import (
	handlershared "github.com/dujiao-next/marketing/internal/http/handlers/shared"
	"github.com/dujiao-next/marketing/internal/http/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func respondError(c *gin.Context, code int, key string, err error) {
	handlershared.RespondError(c, code, key, err)
}

func respondMappedError(c *gin.Context, err error, fallbackKey string) {
	handlershared.RespondMappedError(c, err, handlershared.MarketingErrorRules, response.CodeInternal, fallbackKey)
}

func getTenantID(c *gin.Context) (uint, bool) {
	return handlershared.GetTenantID(c)
}
