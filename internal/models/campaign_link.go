package models

import "time"

// CampaignLink 推广追踪链接
// 说明：cid 在租户内唯一；链接只归档不物理删除。
type CampaignLink struct {
	ID             uint      `gorm:"primarykey" json:"id"`                                                          // 主键
	TenantID       uint      `gorm:"not null;uniqueIndex:uniq_campaign_link_tenant_cid,priority:1" json:"tenant_id"` // 租户ID
	CID            string    `gorm:"column:cid;type:varchar(16);not null;uniqueIndex:uniq_campaign_link_tenant_cid,priority:2" json:"cid"`
	Name           string    `gorm:"type:varchar(255);not null" json:"name"`                                    // 链接名称
	TargetType     string    `gorm:"type:varchar(20);not null;default:'campaign';index:idx_campaign_link_target" json:"target_type"`
	TargetID       uint      `gorm:"not null;index:idx_campaign_link_target" json:"target_id"`                   // 目标活动/直播ID
	LandingVariant string    `gorm:"type:varchar(20);not null;default:'register'" json:"landing_variant"`        // 落地页变体
	UTMSource      *string   `gorm:"type:varchar(200)" json:"utm_source"`                                        // utm_source
	UTMMedium      *string   `gorm:"type:varchar(200)" json:"utm_medium"`                                        // utm_medium
	UTMCampaign    *string   `gorm:"type:varchar(200)" json:"utm_campaign"`                                      // utm_campaign
	UTMTerm        *string   `gorm:"type:varchar(200)" json:"utm_term"`                                          // utm_term
	UTMContent     *string   `gorm:"type:varchar(200)" json:"utm_content"`                                       // utm_content
	Status         string    `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`             // 状态 active/archived
	CreatedAt      time.Time `gorm:"index;not null;default:CURRENT_TIMESTAMP" json:"created_at"`                 // 创建时间
	UpdatedAt      time.Time `json:"updated_at"`                                                                 // 更新时间
}

// TableName 指定表名
func (CampaignLink) TableName() string {
	return "campaign_links"
}
