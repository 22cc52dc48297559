package service

import (
	"time"

	"github.com/dujiao-next/marketing/internal/constants"
	"github.com/dujiao-next/marketing/internal/logger"
	"github.com/dujiao-next/marketing/internal/metrics"
	"github.com/dujiao-next/marketing/internal/models"
	"github.com/dujiao-next/marketing/internal/repository"
)

const defaultTrustWindowHours = 24

// ResolveInput 归因解析输入
type ResolveInput struct {
	TenantID   uint
	CampaignID uint
	IsWebinar  bool
	URLCID     string
	URLUTM     UTMParams
	Token      *TrackingToken
	Now        time.Time
}

// AttributionResult 归因解析结果
// UntrackedReason 只用于观测，不参与其他模块的归因判断。
type AttributionResult struct {
	CID             string    `json:"cid"`
	UTM             UTMParams `json:"utm"`
	LinkID          *uint     `json:"link_id"`
	UntrackedReason string    `json:"untracked_reason"`
	Source          string    `json:"source"`
}

// AttributionResolver 按 URL > 令牌 > 链接元数据 的顺序解析归因
type AttributionResolver struct {
	linkRepo    repository.CampaignLinkRepository
	trustWindow time.Duration
	metrics     *metrics.Metrics
}

// NewAttributionResolver 创建归因解析器
func NewAttributionResolver(linkRepo repository.CampaignLinkRepository, trustWindowHours int, m *metrics.Metrics) *AttributionResolver {
	if trustWindowHours <= 0 {
		trustWindowHours = defaultTrustWindowHours
	}
	return &AttributionResolver{
		linkRepo:    linkRepo,
		trustWindow: time.Duration(trustWindowHours) * time.Hour,
		metrics:     m,
	}
}

// TrustWindow 令牌信任窗口
func (r *AttributionResolver) TrustWindow() time.Duration {
	return r.trustWindow
}

// Resolve 解析归因，查库失败只降级不报错
func (r *AttributionResolver) Resolve(input ResolveInput) AttributionResult {
	now := input.Now
	if now.IsZero() {
		now = time.Now()
	}
	targetType := constants.LinkTargetCampaign
	if input.IsWebinar {
		targetType = constants.LinkTargetWebinar
	}

	urlCID := NormalizeTrackingID(input.URLCID)
	urlUTM := NormalizeUTM(input.URLUTM)
	result := AttributionResult{
		UTM:             urlUTM,
		UntrackedReason: constants.UntrackedReasonNone,
		Source:          constants.AttributionSourceNone,
	}

	// 1. URL：URL 中的 UTM 永远优先，链接 UTM 只补空字段
	if urlCID != "" {
		result.CID = urlCID
		link, err := r.linkRepo.GetActiveByCID(input.TenantID, urlCID)
		switch {
		case err != nil:
			r.lookupFailed("url", input, urlCID, err)
		case link == nil:
			result.UntrackedReason = constants.UntrackedReasonLinkNotFound
		case linkMatchesTarget(link, targetType, input.CampaignID):
			result.LinkID = uintPtr(link.ID)
			result.UTM = result.UTM.FillFrom(utmFromColumns(link.UTM()))
		default:
			result.UntrackedReason = constants.UntrackedReasonCampaignMismatch
			result.UTM = result.UTM.FillFrom(utmFromColumns(link.UTM()))
			logger.Debugw("attribution_cid_campaign_mismatch",
				"tenant_id", input.TenantID,
				"campaign_id", input.CampaignID,
				"cid", urlCID,
				"link_id", link.ID,
				"link_target_id", link.TargetID,
			)
		}
	}

	// 2. 令牌：仅在 URL 没有任何追踪信号时使用
	tokenAccepted := false
	if urlCID == "" && urlUTM.IsEmpty() && input.Token != nil {
		tokenAccepted = r.applyToken(&result, input, targetType, now)
	}

	// 3. 链接元数据：仅活动目标，按当前活动范围再查一次
	linkMetaHit := false
	if result.LinkID == nil && result.UTM.IsEmpty() && !input.IsWebinar && urlCID != "" {
		link, err := r.linkRepo.GetActiveByCIDAndTarget(input.TenantID, urlCID, constants.LinkTargetCampaign, input.CampaignID)
		if err != nil {
			r.lookupFailed("link_meta", input, urlCID, err)
		} else if link != nil {
			result.LinkID = uintPtr(link.ID)
			result.UTM = result.UTM.FillFrom(utmFromColumns(link.UTM()))
			linkMetaHit = true
		}
	}

	switch {
	case linkMetaHit:
		result.Source = constants.AttributionSourceLinkMeta
	case urlCID != "" || !urlUTM.IsEmpty():
		result.Source = constants.AttributionSourceURL
	case tokenAccepted:
		result.Source = constants.AttributionSourceCookie
	}

	r.metrics.RecordResolution(result.Source, result.UntrackedReason)
	return result
}

func (r *AttributionResolver) applyToken(result *AttributionResult, input ResolveInput, targetType string, now time.Time) bool {
	token := input.Token
	if token.CapturedAt.IsZero() || token.CapturedAt.After(now.Add(trackingTokenClockSkew)) {
		result.UntrackedReason = constants.UntrackedReasonCookieValidationErr
		logger.Debugw("attribution_token_future_dated",
			"tenant_id", input.TenantID,
			"campaign_id", input.CampaignID,
			"captured_at", token.CapturedAt,
		)
		return false
	}
	if now.Sub(token.CapturedAt) > r.trustWindow {
		result.UntrackedReason = constants.UntrackedReasonTrustWindowExpired
		logger.Debugw("attribution_token_expired",
			"tenant_id", input.TenantID,
			"campaign_id", input.CampaignID,
			"captured_at", token.CapturedAt,
		)
		return false
	}

	var link *models.CampaignLink
	tokenCID := NormalizeTrackingID(token.CID)
	if tokenCID != "" {
		found, err := r.linkRepo.GetActiveByCID(input.TenantID, tokenCID)
		switch {
		case err != nil:
			r.lookupFailed("cookie", input, tokenCID, err)
			result.UntrackedReason = constants.UntrackedReasonCookieValidationErr
			return false
		case found == nil:
			result.UntrackedReason = constants.UntrackedReasonLinkNotFound
			return false
		case !linkMatchesTarget(found, targetType, input.CampaignID):
			result.UntrackedReason = constants.UntrackedReasonCampaignMismatch
			return false
		}
		link = found
	}

	result.CID = tokenCID
	result.UTM = result.UTM.FillFrom(NormalizeUTM(token.UTMParams))
	if link != nil {
		result.LinkID = uintPtr(link.ID)
		result.UTM = result.UTM.FillFrom(utmFromColumns(link.UTM()))
	}
	return true
}

func (r *AttributionResolver) lookupFailed(tier string, input ResolveInput, cid string, err error) {
	r.metrics.RecordLookupError(tier)
	logger.Warnw("attribution_link_lookup_failed",
		"tier", tier,
		"tenant_id", input.TenantID,
		"campaign_id", input.CampaignID,
		"cid", cid,
		"error", err,
	)
}

func linkMatchesTarget(link *models.CampaignLink, targetType string, targetID uint) bool {
	return link.TargetType == targetType && link.TargetID == targetID
}

func utmFromColumns(cols models.UTMColumns) UTMParams {
	return NormalizeUTM(UTMParams{
		Source:   cols.Source,
		Medium:   cols.Medium,
		Campaign: cols.Campaign,
		Term:     cols.Term,
		Content:  cols.Content,
	})
}

func uintPtr(value uint) *uint {
	return &value
}
