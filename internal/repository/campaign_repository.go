package repository

import (
	"errors"

	"github.com/dujiao-next/marketing/internal/models"

	"gorm.io/gorm"
)

// CampaignRepository 活动数据访问接口
type CampaignRepository interface {
	GetByID(id uint) (*models.Campaign, error)
	Create(campaign *models.Campaign) error
	// GetTenantMap 批量查询活动 -> 租户映射，未知活动不出现在结果中
	GetTenantMap(ids []uint) (map[uint]uint, error)
	ListIDsByTenant(tenantID uint) ([]uint, error)
	CountByTenant(tenantID uint) (int64, error)
}

// GormCampaignRepository GORM 活动仓储
type GormCampaignRepository struct {
	db *gorm.DB
}

// NewCampaignRepository 创建活动仓储
func NewCampaignRepository(db *gorm.DB) *GormCampaignRepository {
	return &GormCampaignRepository{db: db}
}

// GetByID 按ID获取活动
func (r *GormCampaignRepository) GetByID(id uint) (*models.Campaign, error) {
	var campaign models.Campaign
	if err := r.db.First(&campaign, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &campaign, nil
}

// Create 创建活动
func (r *GormCampaignRepository) Create(campaign *models.Campaign) error {
	return r.db.Create(campaign).Error
}

// GetTenantMap 批量获取活动所属租户
func (r *GormCampaignRepository) GetTenantMap(ids []uint) (map[uint]uint, error) {
	result := make(map[uint]uint, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	type row struct {
		ID       uint
		TenantID uint
	}
	var rows []row
	if err := r.db.Model(&models.Campaign{}).
		Select("id, tenant_id").
		Where("id IN ?", ids).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, item := range rows {
		result[item.ID] = item.TenantID
	}
	return result, nil
}

// ListIDsByTenant 获取租户下全部活动ID
func (r *GormCampaignRepository) ListIDsByTenant(tenantID uint) ([]uint, error) {
	var ids []uint
	if err := r.db.Model(&models.Campaign{}).
		Where("tenant_id = ?", tenantID).
		Order("id asc").
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	// 空租户必须返回空切片，nil 在事件查询中表示不限范围
	if ids == nil {
		ids = []uint{}
	}
	return ids, nil
}

// CountByTenant 统计租户活动数
func (r *GormCampaignRepository) CountByTenant(tenantID uint) (int64, error) {
	var total int64
	if err := r.db.Model(&models.Campaign{}).Where("tenant_id = ?", tenantID).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}
