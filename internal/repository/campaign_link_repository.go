package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/dujiao-next/marketing/internal/constants"
	"github.com/dujiao-next/marketing/internal/models"

	"gorm.io/gorm"
)

// CampaignLinkRepository 推广链接数据访问接口
type CampaignLinkRepository interface {
	GetByID(tenantID, id uint) (*models.CampaignLink, error)
	GetActiveByCID(tenantID uint, cid string) (*models.CampaignLink, error)
	GetActiveByCIDAndTarget(tenantID uint, cid, targetType string, targetID uint) (*models.CampaignLink, error)
	Create(link *models.CampaignLink) error
	UpdateFields(tenantID, id uint, updates map[string]interface{}) error
	List(filter CampaignLinkListFilter) ([]models.CampaignLink, int64, error)
	GetNamesByIDs(tenantID uint, ids []uint) (map[uint]string, error)
	CountByStatus(tenantID uint) (map[string]int64, error)
}

// CampaignLinkListFilter 推广链接列表过滤
type CampaignLinkListFilter struct {
	TenantID   uint
	Page       int
	PageSize   int
	Status     string
	TargetType string
	TargetID   uint
	Keyword    string
}

// GormCampaignLinkRepository GORM 推广链接仓储
type GormCampaignLinkRepository struct {
	db *gorm.DB
}

// NewCampaignLinkRepository 创建推广链接仓储
func NewCampaignLinkRepository(db *gorm.DB) *GormCampaignLinkRepository {
	return &GormCampaignLinkRepository{db: db}
}

// GetByID 按ID获取租户内链接
func (r *GormCampaignLinkRepository) GetByID(tenantID, id uint) (*models.CampaignLink, error) {
	var link models.CampaignLink
	if err := r.db.Where("tenant_id = ? AND id = ?", tenantID, id).First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &link, nil
}

// GetActiveByCID 按 cid 查询租户内有效链接
func (r *GormCampaignLinkRepository) GetActiveByCID(tenantID uint, cid string) (*models.CampaignLink, error) {
	var link models.CampaignLink
	err := r.db.Where("tenant_id = ? AND cid = ? AND status = ?", tenantID, cid, constants.CampaignLinkStatusActive).
		First(&link).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &link, nil
}

// GetActiveByCIDAndTarget 按 cid + 投放目标查询有效链接
func (r *GormCampaignLinkRepository) GetActiveByCIDAndTarget(tenantID uint, cid, targetType string, targetID uint) (*models.CampaignLink, error) {
	var link models.CampaignLink
	err := r.db.Where("tenant_id = ? AND cid = ? AND status = ? AND target_type = ? AND target_id = ?",
		tenantID, cid, constants.CampaignLinkStatusActive, targetType, targetID).
		First(&link).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &link, nil
}

// Create 创建链接
func (r *GormCampaignLinkRepository) Create(link *models.CampaignLink) error {
	return r.db.Create(link).Error
}

// UpdateFields 更新链接字段
func (r *GormCampaignLinkRepository) UpdateFields(tenantID, id uint, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return r.db.Model(&models.CampaignLink{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Updates(updates).Error
}

// List 分页查询链接
func (r *GormCampaignLinkRepository) List(filter CampaignLinkListFilter) ([]models.CampaignLink, int64, error) {
	query := r.db.Model(&models.CampaignLink{}).Where("tenant_id = ?", filter.TenantID)
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if targetType := strings.TrimSpace(filter.TargetType); targetType != "" {
		query = query.Where("target_type = ?", targetType)
	}
	if filter.TargetID != 0 {
		query = query.Where("target_id = ?", filter.TargetID)
	}
	if keyword := strings.TrimSpace(filter.Keyword); keyword != "" {
		condition, argCount := buildKeywordLikeCondition(r.db, []string{"name", "cid"})
		query = query.Where(condition, repeatLikeArgs("%"+keyword+"%", argCount)...)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var links []models.CampaignLink
	if err := applyPagination(query.Order("id desc"), filter.Page, filter.PageSize).Find(&links).Error; err != nil {
		return nil, 0, err
	}
	return links, total, nil
}

// GetNamesByIDs 批量获取链接名称
func (r *GormCampaignLinkRepository) GetNamesByIDs(tenantID uint, ids []uint) (map[uint]string, error) {
	result := make(map[uint]string, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var links []models.CampaignLink
	if err := r.db.Select("id, name").
		Where("tenant_id = ? AND id IN ?", tenantID, ids).
		Find(&links).Error; err != nil {
		return nil, err
	}
	for _, link := range links {
		result[link.ID] = link.Name
	}
	return result, nil
}

// CountByStatus 按状态统计租户链接数
func (r *GormCampaignLinkRepository) CountByStatus(tenantID uint) (map[string]int64, error) {
	type row struct {
		Status string
		Total  int64
	}
	var rows []row
	if err := r.db.Model(&models.CampaignLink{}).
		Select("status, COUNT(*) AS total").
		Where("tenant_id = ?", tenantID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	result := make(map[string]int64, len(rows))
	for _, item := range rows {
		result[item.Status] = item.Total
	}
	return result, nil
}
