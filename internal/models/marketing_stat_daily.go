package models

import "time"

// MarketingStatDaily 营销日统计
// 说明：无链接记为 0，缺失的 UTM 字段记为空串，保证唯一索引在 sqlite/postgres 下一致生效。
type MarketingStatDaily struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	TenantID    uint      `gorm:"not null;uniqueIndex:uniq_marketing_stat_bucket,priority:1;index:idx_marketing_stat_tenant_date,priority:1" json:"tenant_id"`
	StatDate    string    `gorm:"type:varchar(10);not null;uniqueIndex:uniq_marketing_stat_bucket,priority:2;index:idx_marketing_stat_tenant_date,priority:2" json:"stat_date"`
	CampaignID  uint      `gorm:"not null;uniqueIndex:uniq_marketing_stat_bucket,priority:3" json:"campaign_id"`
	LinkID      uint      `gorm:"not null;default:0;uniqueIndex:uniq_marketing_stat_bucket,priority:4" json:"link_id"`
	UTMSource   string    `gorm:"type:varchar(200);not null;default:'';uniqueIndex:uniq_marketing_stat_bucket,priority:5" json:"utm_source"`
	UTMMedium   string    `gorm:"type:varchar(200);not null;default:'';uniqueIndex:uniq_marketing_stat_bucket,priority:6" json:"utm_medium"`
	UTMCampaign string    `gorm:"type:varchar(200);not null;default:'';uniqueIndex:uniq_marketing_stat_bucket,priority:7" json:"utm_campaign"`
	UTMTerm     string    `gorm:"type:varchar(200);not null;default:'';uniqueIndex:uniq_marketing_stat_bucket,priority:8" json:"utm_term"`
	UTMContent  string    `gorm:"type:varchar(200);not null;default:'';uniqueIndex:uniq_marketing_stat_bucket,priority:9" json:"utm_content"`
	Visits      int64     `gorm:"not null;default:0" json:"visits"`      // 去重会话数
	Conversions int64     `gorm:"not null;default:0" json:"conversions"` // 转化数
	CreatedAt   time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName 指定表名
func (MarketingStatDaily) TableName() string {
	return "marketing_stats_daily"
}
