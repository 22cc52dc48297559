package models

import "time"

// Campaign 营销活动（租户归属查询的依据）
type Campaign struct {
	ID         uint      `gorm:"primarykey" json:"id"`                                       // 主键
	TenantID   uint      `gorm:"not null;index" json:"tenant_id"`                            // 租户ID
	Title      string    `gorm:"type:varchar(255);not null" json:"title"`                    // 活动标题
	PublicPath string    `gorm:"type:varchar(255)" json:"public_path"`                       // 公开访问路径
	Status     string    `gorm:"type:varchar(20);not null;default:'active'" json:"status"`   // 状态
	CreatedAt  time.Time `gorm:"index;not null;default:CURRENT_TIMESTAMP" json:"created_at"` // 创建时间
	UpdatedAt  time.Time `json:"updated_at"`                                                 // 更新时间
}

// TableName 指定表名
func (Campaign) TableName() string {
	return "campaigns"
}
