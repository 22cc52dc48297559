package service

import (
	"strings"
	"time"

	"github.com/dujiao-next/marketing/internal/constants"
	"github.com/dujiao-next/marketing/internal/logger"
	"github.com/dujiao-next/marketing/internal/metrics"
	"github.com/dujiao-next/marketing/internal/models"
	"github.com/dujiao-next/marketing/internal/repository"
)

const (
	maxSessionIDLength = 128
	maxRefLength       = 1024

	// EventChannelHTTP 公开接口写入
	EventChannelHTTP = "http"
	// EventChannelKafka 消息接入写入
	EventChannelKafka = "kafka"
)

// RecordEventInput 记录访问/转化的输入
// 直播访问没有活动上下文，由 TenantID + WebinarID 定位目标。
type RecordEventInput struct {
	CampaignID  uint
	TenantID    uint
	WebinarID   uint
	SessionID   string
	URLCID      string
	URLUTM      UTMParams
	Token       *TrackingToken
	Referrer    string
	UserAgent   string
	ExternalRef string
	OccurredAt  time.Time
	Channel     string
}

// RecordEventResult 记录结果
type RecordEventResult struct {
	EventID      uint              `json:"event_id"`
	TenantID     uint              `json:"tenant_id"`
	CampaignID   uint              `json:"campaign_id"`
	WebinarID    uint              `json:"webinar_id,omitempty"`
	Attribution  AttributionResult `json:"attribution"`
	MarkedVisits int64             `json:"marked_visits,omitempty"`
}

// EventRecorder 原始事件记录服务
// 归因失败只会降级为未追踪，不会阻断写入。
type EventRecorder struct {
	campaignRepo          repository.CampaignRepository
	eventRepo             repository.MarketingEventRepository
	resolver              *AttributionResolver
	metrics               *metrics.Metrics
	requireVisitSession   bool
	markConversionOnVisit bool
}

// NewEventRecorder 创建事件记录服务
func NewEventRecorder(
	campaignRepo repository.CampaignRepository,
	eventRepo repository.MarketingEventRepository,
	resolver *AttributionResolver,
	requireVisitSession bool,
	markConversionOnVisit bool,
	m *metrics.Metrics,
) *EventRecorder {
	return &EventRecorder{
		campaignRepo:          campaignRepo,
		eventRepo:             eventRepo,
		resolver:              resolver,
		metrics:               m,
		requireVisitSession:   requireVisitSession,
		markConversionOnVisit: markConversionOnVisit,
	}
}

// RecordVisit 记录访问
func (s *EventRecorder) RecordVisit(input RecordEventInput) (*RecordEventResult, error) {
	session := normalizeSessionID(input.SessionID)
	if session == "" && s.requireVisitSession {
		return nil, ErrSessionIDRequired
	}
	campaign, err := s.loadCampaign(input.CampaignID)
	if err != nil {
		return nil, err
	}
	occurredAt := normalizeOccurredAt(input.OccurredAt)
	attribution := s.resolve(campaign, input, occurredAt)

	visit := &models.CampaignVisit{
		TenantID:          campaign.TenantID,
		CampaignID:        uintPtr(campaign.ID),
		LinkID:            attribution.LinkID,
		UTMSource:         attribution.UTM.Source,
		UTMMedium:         attribution.UTM.Medium,
		UTMCampaign:       attribution.UTM.Campaign,
		UTMTerm:           attribution.UTM.Term,
		UTMContent:        attribution.UTM.Content,
		SessionID:         stringPtrOrNil(session),
		UntrackedReason:   attribution.UntrackedReason,
		AttributionSource: attribution.Source,
		Referrer:          truncateString(input.Referrer, maxRefLength),
		UserAgent:         truncateString(input.UserAgent, maxRefLength),
		OccurredAt:        occurredAt,
	}
	if err := s.eventRepo.CreateVisit(visit); err != nil {
		return nil, err
	}
	s.metrics.RecordEvent(constants.RawEventKindVisit, eventChannel(input.Channel))
	return &RecordEventResult{
		EventID:     visit.ID,
		TenantID:    campaign.TenantID,
		CampaignID:  campaign.ID,
		Attribution: attribution,
	}, nil
}

// RecordWebinarVisit 记录直播访问
// 活动ID留空，日聚合不统计这部分流量。
func (s *EventRecorder) RecordWebinarVisit(input RecordEventInput) (*RecordEventResult, error) {
	if input.TenantID == 0 || input.WebinarID == 0 {
		return nil, ErrInvalidInput
	}
	session := normalizeSessionID(input.SessionID)
	if session == "" && s.requireVisitSession {
		return nil, ErrSessionIDRequired
	}
	occurredAt := normalizeOccurredAt(input.OccurredAt)
	attribution := s.resolver.Resolve(ResolveInput{
		TenantID:   input.TenantID,
		CampaignID: input.WebinarID,
		IsWebinar:  true,
		URLCID:     input.URLCID,
		URLUTM:     input.URLUTM,
		Token:      input.Token,
		Now:        occurredAt,
	})

	visit := &models.CampaignVisit{
		TenantID:          input.TenantID,
		WebinarID:         uintPtr(input.WebinarID),
		LinkID:            attribution.LinkID,
		UTMSource:         attribution.UTM.Source,
		UTMMedium:         attribution.UTM.Medium,
		UTMCampaign:       attribution.UTM.Campaign,
		UTMTerm:           attribution.UTM.Term,
		UTMContent:        attribution.UTM.Content,
		SessionID:         stringPtrOrNil(session),
		UntrackedReason:   attribution.UntrackedReason,
		AttributionSource: attribution.Source,
		Referrer:          truncateString(input.Referrer, maxRefLength),
		UserAgent:         truncateString(input.UserAgent, maxRefLength),
		OccurredAt:        occurredAt,
	}
	if err := s.eventRepo.CreateVisit(visit); err != nil {
		return nil, err
	}
	s.metrics.RecordEvent(constants.RawEventKindVisit, eventChannel(input.Channel))
	return &RecordEventResult{
		EventID:     visit.ID,
		TenantID:    input.TenantID,
		WebinarID:   input.WebinarID,
		Attribution: attribution,
	}, nil
}

// RecordConversion 记录转化，并回写同会话最近一次访问
func (s *EventRecorder) RecordConversion(input RecordEventInput) (*RecordEventResult, error) {
	campaign, err := s.loadCampaign(input.CampaignID)
	if err != nil {
		return nil, err
	}
	session := normalizeSessionID(input.SessionID)
	occurredAt := normalizeOccurredAt(input.OccurredAt)
	attribution := s.resolve(campaign, input, occurredAt)

	conversion := &models.CampaignConversion{
		TenantID:          campaign.TenantID,
		CampaignID:        uintPtr(campaign.ID),
		LinkID:            attribution.LinkID,
		UTMSource:         attribution.UTM.Source,
		UTMMedium:         attribution.UTM.Medium,
		UTMCampaign:       attribution.UTM.Campaign,
		UTMTerm:           attribution.UTM.Term,
		UTMContent:        attribution.UTM.Content,
		SessionID:         stringPtrOrNil(session),
		UntrackedReason:   attribution.UntrackedReason,
		AttributionSource: attribution.Source,
		ExternalRef:       truncateString(input.ExternalRef, maxSessionIDLength),
		OccurredAt:        occurredAt,
	}
	if err := s.eventRepo.CreateConversion(conversion); err != nil {
		return nil, err
	}
	s.metrics.RecordEvent(constants.RawEventKindConversion, eventChannel(input.Channel))

	result := &RecordEventResult{
		EventID:     conversion.ID,
		TenantID:    campaign.TenantID,
		CampaignID:  campaign.ID,
		Attribution: attribution,
	}
	if session != "" && s.markConversionOnVisit {
		marked, err := s.eventRepo.MarkLatestVisitConverted(campaign.ID, session, conversion.ID, occurredAt)
		if err != nil {
			// 回写失败不影响转化本身
			logger.Warnw("campaign_visit_mark_converted_failed",
				"campaign_id", campaign.ID,
				"conversion_id", conversion.ID,
				"error", err,
			)
		}
		result.MarkedVisits = marked
	}
	return result, nil
}

func (s *EventRecorder) loadCampaign(campaignID uint) (*models.Campaign, error) {
	if campaignID == 0 {
		return nil, ErrCampaignNotFound
	}
	campaign, err := s.campaignRepo.GetByID(campaignID)
	if err != nil {
		return nil, err
	}
	if campaign == nil {
		return nil, ErrCampaignNotFound
	}
	return campaign, nil
}

func (s *EventRecorder) resolve(campaign *models.Campaign, input RecordEventInput, now time.Time) AttributionResult {
	return s.resolver.Resolve(ResolveInput{
		TenantID:   campaign.TenantID,
		CampaignID: campaign.ID,
		URLCID:     input.URLCID,
		URLUTM:     input.URLUTM,
		Token:      input.Token,
		Now:        now,
	})
}

func normalizeSessionID(raw string) string {
	return truncateString(strings.TrimSpace(raw), maxSessionIDLength)
}

func normalizeOccurredAt(at time.Time) time.Time {
	if at.IsZero() {
		return time.Now().UTC()
	}
	return at.UTC()
}

func eventChannel(channel string) string {
	if channel == "" {
		return EventChannelHTTP
	}
	return channel
}

// truncateString 按字符截断，避免切断多字节字符
func truncateString(value string, max int) string {
	value = strings.TrimSpace(value)
	if len(value) <= max {
		return value
	}
	runes := []rune(value)
	if len(runes) <= max {
		return value
	}
	return string(runes[:max])
}
