package service

import "errors"

// 通用业务错误
var (
	ErrNotFound        = errors.New("resource not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrForbidden       = errors.New("forbidden")
	ErrConflict        = errors.New("resource conflict")
	ErrQueueDisabled   = errors.New("queue disabled")
	ErrIDGenerateLimit = errors.New("tracking id generation exhausted")
)

// 推广链接相关错误
var (
	ErrCampaignNotFound      = errors.New("campaign not found")
	ErrCampaignLinkNotFound  = errors.New("campaign link not found")
	ErrLinkNameRequired      = errors.New("link name is required")
	ErrLinkTargetInvalid     = errors.New("link target is invalid")
	ErrLandingVariantInvalid = errors.New("landing variant is invalid")
	ErrLinkStatusInvalid     = errors.New("link status is invalid")
	ErrLinkLocked            = errors.New("link referenced by conversions, only name and status can change")
)

// 事件与统计相关错误
var (
	ErrSessionIDRequired  = errors.New("session id is required")
	ErrStatsRangeInvalid  = errors.New("stats date range is invalid")
	ErrTenantLookupFailed = errors.New("campaign tenant lookup failed")
)
