package shared

import (
	"strconv"
	"strings"
	"time"

	"github.com/dujiao-next/marketing/internal/http/response"
	"github.com/dujiao-next/marketing/internal/service"

	"github.com/gin-gonic/gin"
)

// ParseUintParam 解析路由中的正整数参数，失败时直接写入响应。
func ParseUintParam(c *gin.Context, name, invalidKey string) (uint, bool) {
	value, err := strconv.ParseUint(strings.TrimSpace(c.Param(name)), 10, 64)
	if err != nil || value == 0 {
		RespondError(c, response.CodeBadRequest, invalidKey, nil)
		return 0, false
	}
	return uint(value), true
}

// ParseOptionalUintQuery 解析可选的正整数查询参数
func ParseOptionalUintQuery(c *gin.Context, name string) (*uint, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, true
	}
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || value == 0 {
		RespondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return nil, false
	}
	id := uint(value)
	return &id, true
}

// ParseDateRange 读取 from/to 查询参数（YYYY-MM-DD 或 RFC3339）
func ParseDateRange(c *gin.Context) (*time.Time, *time.Time, bool) {
	from, err := service.ParseStatDate(c.Query("from"))
	if err != nil {
		RespondError(c, response.CodeBadRequest, "error.date_invalid", nil)
		return nil, nil, false
	}
	to, err := service.ParseStatDate(c.Query("to"))
	if err != nil {
		RespondError(c, response.CodeBadRequest, "error.date_invalid", nil)
		return nil, nil, false
	}
	return from, to, true
}

// QueryBool 读取布尔查询参数，无法解析时视为 false
func QueryBool(c *gin.Context, name string) bool {
	value, err := strconv.ParseBool(strings.TrimSpace(c.Query(name)))
	return err == nil && value
}
