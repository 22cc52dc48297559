package models

import (
	"strings"

	"github.com/dujiao-next/marketing/internal/logger"
)

// EnsureCampaign 按租户 + 公开路径幂等创建活动，已存在时直接返回
func EnsureCampaign(tenantID uint, title, publicPath string) (*Campaign, error) {
	path := strings.Trim(strings.TrimSpace(publicPath), "/")
	var existing Campaign
	err := DB.Where("tenant_id = ? AND public_path = ?", tenantID, path).Limit(1).Find(&existing).Error
	if err != nil {
		return nil, err
	}
	if existing.ID != 0 {
		return &existing, nil
	}

	campaign := Campaign{
		TenantID:   tenantID,
		Title:      strings.TrimSpace(title),
		PublicPath: path,
		Status:     "active",
	}
	if err := DB.Create(&campaign).Error; err != nil {
		return nil, err
	}
	logger.Infow("campaign_seeded", "tenant_id", tenantID, "campaign_id", campaign.ID, "public_path", path)
	return &campaign, nil
}
