package constants

// 推广链接状态常量
const (
	CampaignLinkStatusActive   = "active"
	CampaignLinkStatusArchived = "archived"
)

// 推广链接目标类型常量
const (
	LinkTargetCampaign = "campaign"
	LinkTargetWebinar  = "webinar"
)

// 落地页变体常量
const (
	LandingVariantRegister = "register"
	LandingVariantWelcome  = "welcome"
	LandingVariantSurvey   = "survey"
)

// 活动状态常量
const (
	CampaignStatusActive   = "active"
	CampaignStatusArchived = "archived"
)

// 归因未追踪原因常量
const (
	UntrackedReasonNone                = "none"
	UntrackedReasonCampaignMismatch    = "cid_campaign_mismatch"
	UntrackedReasonLinkNotFound        = "cid_link_not_found"
	UntrackedReasonTrustWindowExpired  = "cookie_trust_window_expired"
	UntrackedReasonCookieValidationErr = "cookie_validation_error"
)

// 归因来源常量
const (
	AttributionSourceURL      = "url"
	AttributionSourceCookie   = "cookie"
	AttributionSourceLinkMeta = "link_meta"
	AttributionSourceNone     = "none"
)

// 统计数据来源常量
const (
	StatsProvenanceAggregated = "aggregated"
	StatsProvenanceRaw        = "raw"
)

// 聚合运行模式常量
const (
	AggregateModeIncremental = "incremental"
	AggregateModeBackfill    = "backfill"
)

// 原始事件类型常量
const (
	RawEventKindVisit      = "visit"
	RawEventKindConversion = "conversion"
)

// 控制台角色常量
const (
	ConsoleRoleViewer   = "viewer"
	ConsoleRoleOperator = "operator"
	ConsoleRoleAdmin    = "admin"
)

// 队列名称
const (
	QueueDefault  = "default"
	QueueCritical = "critical"
)

// 异步任务类型
const (
	TaskMarketingAggregate = "marketing:aggregate"
)

// 追踪 Cookie 名称
const (
	TrackingCookieName = "mk_tracking"
	SessionCookieName  = "mk_session_id"
)
