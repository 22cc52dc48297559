package service

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

const (
	defaultTrackingTokenTTLDays = 7
	maxTrackingTokenLength      = 4096

	// 允许的客户端时钟偏差，超过即视为伪造
	trackingTokenClockSkew = 5 * time.Minute
)

var errTrackingTokenMalformed = errors.New("tracking token malformed")

// TrackingToken 客户端保存的追踪快照
// 未签名，读取后所有字段都要重新校验。
type TrackingToken struct {
	CID        string    `json:"cid,omitempty"`
	CampaignID uint      `json:"campaign_id,omitempty"`
	TargetType string    `json:"target_type,omitempty"`
	CapturedAt time.Time `json:"captured_at"`
	UTMParams
}

// TrackingCapture 负责把请求中的追踪参数外置为 cookie 令牌
type TrackingCapture struct {
	ttl time.Duration
}

// NewTrackingCapture 创建追踪捕获器
func NewTrackingCapture(ttlDays int) *TrackingCapture {
	if ttlDays <= 0 {
		ttlDays = defaultTrackingTokenTTLDays
	}
	return &TrackingCapture{ttl: time.Duration(ttlDays) * 24 * time.Hour}
}

// TTL 令牌生命周期
func (c *TrackingCapture) TTL() time.Duration {
	return c.ttl
}

// MaxAgeSeconds cookie Max-Age
func (c *TrackingCapture) MaxAgeSeconds() int {
	return int(c.ttl / time.Second)
}

// Capture 从请求参数构造令牌，没有任何追踪信号时返回 nil
func (c *TrackingCapture) Capture(rawCID string, utm UTMParams, campaignID uint, targetType string, now time.Time) *TrackingToken {
	cid := NormalizeTrackingID(rawCID)
	normalized := NormalizeUTM(utm)
	if cid == "" && normalized.IsEmpty() {
		return nil
	}
	return &TrackingToken{
		CID:        cid,
		CampaignID: campaignID,
		TargetType: strings.TrimSpace(targetType),
		CapturedAt: now.UTC(),
		UTMParams:  normalized,
	}
}

// Encode 序列化为 base64url 字符串
func (c *TrackingCapture) Encode(token *TrackingToken) (string, error) {
	if token == nil {
		return "", errTrackingTokenMalformed
	}
	payload, err := json.Marshal(token)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(payload), nil
}

// Decode 解析令牌；超过 TTL 的令牌视为不存在
func (c *TrackingCapture) Decode(raw string, now time.Time) (*TrackingToken, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if len(raw) > maxTrackingTokenLength {
		return nil, errTrackingTokenMalformed
	}
	payload, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(raw, "="))
	if err != nil {
		return nil, errTrackingTokenMalformed
	}
	var token TrackingToken
	if err := json.Unmarshal(payload, &token); err != nil {
		return nil, errTrackingTokenMalformed
	}
	if token.CapturedAt.IsZero() || token.CapturedAt.After(now.Add(trackingTokenClockSkew)) {
		return nil, errTrackingTokenMalformed
	}
	if now.Sub(token.CapturedAt) > c.ttl {
		return nil, nil
	}
	// cid 保留原值，由归因解析器统一 normalize
	token.CID = strings.TrimSpace(token.CID)
	token.UTMParams = NormalizeUTM(token.UTMParams)
	return &token, nil
}
