package ingest

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/dujiao-next/marketing/internal/constants"
)

var errMessageInvalid = errors.New("ingest message invalid")

// EventMessage 上游投递的原始事件
// tracking_token 为客户端 mk_tracking cookie 的原值；直播访问携带 tenant_id + webinar_id。
type EventMessage struct {
	Kind          string    `json:"kind"`
	CampaignID    uint      `json:"campaign_id"`
	TenantID      uint      `json:"tenant_id"`
	WebinarID     uint      `json:"webinar_id"`
	SessionID     string    `json:"session_id"`
	CID           string    `json:"cid"`
	UTMSource     *string   `json:"utm_source"`
	UTMMedium     *string   `json:"utm_medium"`
	UTMCampaign   *string   `json:"utm_campaign"`
	UTMTerm       *string   `json:"utm_term"`
	UTMContent    *string   `json:"utm_content"`
	TrackingToken string    `json:"tracking_token"`
	Referrer      string    `json:"referrer"`
	UserAgent     string    `json:"user_agent"`
	ExternalRef   string    `json:"external_ref"`
	OccurredAt    time.Time `json:"occurred_at"`
}

func decodeEventMessage(value []byte) (*EventMessage, error) {
	if len(value) == 0 {
		return nil, errMessageInvalid
	}
	var msg EventMessage
	if err := json.Unmarshal(value, &msg); err != nil {
		return nil, errors.Join(errMessageInvalid, err)
	}
	msg.Kind = strings.ToLower(strings.TrimSpace(msg.Kind))
	if msg.Kind != constants.RawEventKindVisit && msg.Kind != constants.RawEventKindConversion {
		return nil, errMessageInvalid
	}
	if msg.WebinarID > 0 {
		// 直播只有访问，没有活动上下文
		if msg.CampaignID != 0 || msg.TenantID == 0 || msg.Kind != constants.RawEventKindVisit {
			return nil, errMessageInvalid
		}
		return &msg, nil
	}
	if msg.CampaignID == 0 {
		return nil, errMessageInvalid
	}
	return &msg, nil
}
