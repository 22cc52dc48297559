package shared

import (
	"errors"

	"github.com/dujiao-next/marketing/internal/http/response"
	"github.com/dujiao-next/marketing/internal/service"

	"github.com/gin-gonic/gin"
)

// MappedError 定义业务错误到接口错误响应的映射关系。
type MappedError struct {
	Target error
	Code   int
	Key    string
}

// RespondMappedError 按规则映射业务错误，未命中时使用兜底响应并记录原始错误。
func RespondMappedError(c *gin.Context, err error, rules []MappedError, fallbackCode int, fallbackKey string) {
	for _, rule := range rules {
		if errors.Is(err, rule.Target) {
			RespondError(c, rule.Code, rule.Key, nil)
			return
		}
	}
	RespondError(c, fallbackCode, fallbackKey, err)
}

// MarketingErrorRules 营销业务错误映射
var MarketingErrorRules = []MappedError{
	{Target: service.ErrCampaignNotFound, Code: response.CodeNotFound, Key: "error.campaign_not_found"},
	{Target: service.ErrCampaignLinkNotFound, Code: response.CodeNotFound, Key: "error.link_not_found"},
	{Target: service.ErrLinkNameRequired, Code: response.CodeBadRequest, Key: "error.link_name_required"},
	{Target: service.ErrLinkTargetInvalid, Code: response.CodeBadRequest, Key: "error.link_target_invalid"},
	{Target: service.ErrLandingVariantInvalid, Code: response.CodeBadRequest, Key: "error.landing_variant_invalid"},
	{Target: service.ErrLinkStatusInvalid, Code: response.CodeBadRequest, Key: "error.link_status_invalid"},
	{Target: service.ErrLinkLocked, Code: response.CodeConflict, Key: "error.link_locked"},
	{Target: service.ErrIDGenerateLimit, Code: response.CodeConflict, Key: "error.link_id_generate_failed"},
	{Target: service.ErrSessionIDRequired, Code: response.CodeBadRequest, Key: "error.session_required"},
	{Target: service.ErrStatsRangeInvalid, Code: response.CodeBadRequest, Key: "error.stats_range_invalid"},
	{Target: service.ErrQueueDisabled, Code: response.CodeBadRequest, Key: "error.queue_disabled"},
	{Target: service.ErrInvalidInput, Code: response.CodeBadRequest, Key: "error.bad_request"},
	{Target: service.ErrForbidden, Code: response.CodeForbidden, Key: "error.forbidden"},
	{Target: service.ErrNotFound, Code: response.CodeNotFound, Key: "error.not_found"},
}
