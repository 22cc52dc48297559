package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/dujiao-next/marketing/internal/constants"
	"github.com/dujiao-next/marketing/internal/logger"
	"github.com/dujiao-next/marketing/internal/metrics"
	"github.com/dujiao-next/marketing/internal/service"
)

// 消息处理结果
const (
	ResultRecorded = "recorded"
	ResultInvalid  = "invalid"
	ResultRejected = "rejected"
	ResultFailed   = "failed"
)

// EventRecorder 原始事件写入
type EventRecorder interface {
	RecordVisit(input service.RecordEventInput) (*service.RecordEventResult, error)
	RecordConversion(input service.RecordEventInput) (*service.RecordEventResult, error)
	RecordWebinarVisit(input service.RecordEventInput) (*service.RecordEventResult, error)
}

// Handler 把消息转换为访问/转化记录
type Handler struct {
	recorder EventRecorder
	capture  *service.TrackingCapture
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewHandler 创建消息处理器
func NewHandler(recorder EventRecorder, capture *service.TrackingCapture, m *metrics.Metrics) *Handler {
	return &Handler{recorder: recorder, capture: capture, metrics: m, now: time.Now}
}

// Handle 处理单条消息；返回的错误只用于日志，消息总会被确认
func (h *Handler) Handle(ctx context.Context, topic string, key, value []byte) error {
	_ = ctx
	result, err := h.handle(value)
	h.metrics.RecordIngest(topic, result)
	if err != nil {
		return err
	}
	logger.Debugw("ingest_message_recorded", "topic", topic, "key", string(key))
	return nil
}

func (h *Handler) handle(value []byte) (string, error) {
	msg, err := decodeEventMessage(value)
	if err != nil {
		return ResultInvalid, err
	}

	now := h.now()
	input := service.RecordEventInput{
		CampaignID: msg.CampaignID,
		TenantID:   msg.TenantID,
		WebinarID:  msg.WebinarID,
		SessionID:  msg.SessionID,
		URLCID:     msg.CID,
		URLUTM: service.UTMParams{
			Source:   msg.UTMSource,
			Medium:   msg.UTMMedium,
			Campaign: msg.UTMCampaign,
			Term:     msg.UTMTerm,
			Content:  msg.UTMContent,
		},
		Referrer:    msg.Referrer,
		UserAgent:   msg.UserAgent,
		ExternalRef: msg.ExternalRef,
		OccurredAt:  msg.OccurredAt,
		Channel:     service.EventChannelKafka,
	}
	if input.OccurredAt.IsZero() {
		input.OccurredAt = now
	}
	if msg.TrackingToken != "" && h.capture != nil {
		// 令牌损坏时按无令牌处理
		token, tokenErr := h.capture.Decode(msg.TrackingToken, input.OccurredAt)
		if tokenErr != nil {
			logger.Debugw("ingest_tracking_token_invalid",
				"campaign_id", msg.CampaignID,
				"webinar_id", msg.WebinarID,
				"error", tokenErr,
			)
		}
		input.Token = token
	}

	switch {
	case msg.WebinarID > 0:
		_, err = h.recorder.RecordWebinarVisit(input)
	case msg.Kind == constants.RawEventKindVisit:
		_, err = h.recorder.RecordVisit(input)
	default:
		_, err = h.recorder.RecordConversion(input)
	}
	switch {
	case err == nil:
		return ResultRecorded, nil
	case errors.Is(err, service.ErrCampaignNotFound), errors.Is(err, service.ErrSessionIDRequired):
		return ResultRejected, err
	default:
		return ResultFailed, err
	}
}
