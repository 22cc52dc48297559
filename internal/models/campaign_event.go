package models

import "time"

// CampaignVisit 活动访问原始记录
type CampaignVisit struct {
	ID                uint       `gorm:"primarykey" json:"id"`                                         // 主键
	TenantID          uint       `gorm:"not null;index" json:"tenant_id"`                              // 租户ID
	CampaignID        *uint      `gorm:"index:idx_campaign_visit_campaign_time,priority:1" json:"campaign_id"`
	WebinarID         *uint      `gorm:"index" json:"webinar_id"`                                      // 直播ID，直播访问时活动ID为空
	LinkID            *uint      `gorm:"index" json:"link_id"`                                         // 推广链接ID
	UTMSource         *string    `gorm:"type:varchar(200)" json:"utm_source"`                          // utm_source
	UTMMedium         *string    `gorm:"type:varchar(200)" json:"utm_medium"`                          // utm_medium
	UTMCampaign       *string    `gorm:"type:varchar(200)" json:"utm_campaign"`                        // utm_campaign
	UTMTerm           *string    `gorm:"type:varchar(200)" json:"utm_term"`                            // utm_term
	UTMContent        *string    `gorm:"type:varchar(200)" json:"utm_content"`                         // utm_content
	SessionID         *string    `gorm:"type:varchar(128);index" json:"session_id"`                    // 会话ID
	UntrackedReason   string     `gorm:"type:varchar(40);not null;default:'none'" json:"untracked_reason"`
	AttributionSource string     `gorm:"type:varchar(20);not null;default:'none'" json:"attribution_source"`
	Referrer          string     `gorm:"type:varchar(1024)" json:"referrer"`                           // 来源地址
	UserAgent         string     `gorm:"type:varchar(1024)" json:"user_agent"`                         // 客户端UA
	ConversionID      *uint      `json:"conversion_id"`                                                // 转化回写
	ConvertedAt       *time.Time `json:"converted_at"`                                                 // 转化时间
	OccurredAt        time.Time  `gorm:"not null;index:idx_campaign_visit_campaign_time,priority:2" json:"occurred_at"`
	CreatedAt         time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`         // 创建时间
}

// TableName 指定表名
func (CampaignVisit) TableName() string {
	return "campaign_visits"
}

// CampaignConversion 活动转化原始记录
type CampaignConversion struct {
	ID                uint      `gorm:"primarykey" json:"id"`                                          // 主键
	TenantID          uint      `gorm:"not null;index" json:"tenant_id"`                               // 租户ID
	CampaignID        *uint     `gorm:"index:idx_campaign_conversion_campaign_time,priority:1" json:"campaign_id"`
	LinkID            *uint     `gorm:"index" json:"link_id"`                                          // 推广链接ID
	UTMSource         *string   `gorm:"type:varchar(200)" json:"utm_source"`                           // utm_source
	UTMMedium         *string   `gorm:"type:varchar(200)" json:"utm_medium"`                           // utm_medium
	UTMCampaign       *string   `gorm:"type:varchar(200)" json:"utm_campaign"`                         // utm_campaign
	UTMTerm           *string   `gorm:"type:varchar(200)" json:"utm_term"`                             // utm_term
	UTMContent        *string   `gorm:"type:varchar(200)" json:"utm_content"`                          // utm_content
	SessionID         *string   `gorm:"type:varchar(128);index" json:"session_id"`                     // 会话ID
	UntrackedReason   string    `gorm:"type:varchar(40);not null;default:'none'" json:"untracked_reason"`
	AttributionSource string    `gorm:"type:varchar(20);not null;default:'none'" json:"attribution_source"`
	ExternalRef       string    `gorm:"type:varchar(128);index" json:"external_ref"`                   // 外部关联（表单提交ID等）
	OccurredAt        time.Time `gorm:"not null;index:idx_campaign_conversion_campaign_time,priority:2" json:"occurred_at"`
	CreatedAt         time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`          // 创建时间
}

// TableName 指定表名
func (CampaignConversion) TableName() string {
	return "campaign_conversions"
}
