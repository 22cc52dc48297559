package repository

import (
	"time"

	"github.com/dujiao-next/marketing/internal/models"

	"gorm.io/gorm"
)

// MarketingStatRepository 营销日统计数据访问接口
// 说明：只由聚合任务写入，其余模块只读。
type MarketingStatRepository interface {
	ListByTenantDate(tenantID uint, statDate string) ([]models.MarketingStatDaily, error)
	Create(row *models.MarketingStatDaily) error
	ReplaceCounts(id uint, visits, conversions int64, updatedAt time.Time) error
	ListByTenantRange(tenantID uint, fromDate, toDate string) ([]models.MarketingStatDaily, error)
	ListByLinkRange(tenantID, linkID uint, fromDate, toDate string) ([]models.MarketingStatDaily, error)
}

// GormMarketingStatRepository GORM 营销日统计仓储
type GormMarketingStatRepository struct {
	db *gorm.DB
}

// NewMarketingStatRepository 创建营销日统计仓储
func NewMarketingStatRepository(db *gorm.DB) *GormMarketingStatRepository {
	return &GormMarketingStatRepository{db: db}
}

// ListByTenantDate 获取租户某日全部统计行（用于批量存在性检查）
func (r *GormMarketingStatRepository) ListByTenantDate(tenantID uint, statDate string) ([]models.MarketingStatDaily, error) {
	var rows []models.MarketingStatDaily
	if err := r.db.Where("tenant_id = ? AND stat_date = ?", tenantID, statDate).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Create 插入统计行
func (r *GormMarketingStatRepository) Create(row *models.MarketingStatDaily) error {
	return r.db.Create(row).Error
}

// ReplaceCounts 以新值覆盖访问/转化数
func (r *GormMarketingStatRepository) ReplaceCounts(id uint, visits, conversions int64, updatedAt time.Time) error {
	return r.db.Model(&models.MarketingStatDaily{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"visits":      visits,
			"conversions": conversions,
			"updated_at":  updatedAt,
		}).Error
}

// ListByTenantRange 查询租户日期范围内统计行（日期闭区间）
func (r *GormMarketingStatRepository) ListByTenantRange(tenantID uint, fromDate, toDate string) ([]models.MarketingStatDaily, error) {
	var rows []models.MarketingStatDaily
	if err := r.db.Where("tenant_id = ? AND stat_date >= ? AND stat_date <= ?", tenantID, fromDate, toDate).
		Order("stat_date asc, id asc").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListByLinkRange 查询单个链接日期范围内统计行
func (r *GormMarketingStatRepository) ListByLinkRange(tenantID, linkID uint, fromDate, toDate string) ([]models.MarketingStatDaily, error) {
	var rows []models.MarketingStatDaily
	if err := r.db.Where("tenant_id = ? AND link_id = ? AND stat_date >= ? AND stat_date <= ?", tenantID, linkID, fromDate, toDate).
		Order("stat_date asc, id asc").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
