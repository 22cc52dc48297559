package repository

import (
	"time"

	"github.com/dujiao-next/marketing/internal/models"

	"gorm.io/gorm"
)

// MarketingEventRepository 原始访问/转化事件数据访问接口
// 说明：时间窗口统一为 [startAt, endAt)，调用方传入 UTC 时间。
type MarketingEventRepository interface {
	CreateVisit(visit *models.CampaignVisit) error
	CreateConversion(conversion *models.CampaignConversion) error
	MarkLatestVisitConverted(campaignID uint, sessionID string, conversionID uint, convertedAt time.Time) (int64, error)

	// campaignIDs 为 nil 时不按活动范围过滤
	ListVisits(startAt, endAt time.Time, campaignIDs []uint) ([]models.CampaignVisit, error)
	ListConversions(startAt, endAt time.Time, campaignIDs []uint) ([]models.CampaignConversion, error)
	CountConversions(startAt, endAt time.Time, campaignIDs []uint) (int64, error)
	CountConversionsByLink(linkID uint) (int64, error)
	CountLinkConversions(linkID uint, startAt, endAt time.Time) (int64, error)
}

// GormMarketingEventRepository GORM 原始事件仓储
type GormMarketingEventRepository struct {
	db *gorm.DB
}

// NewMarketingEventRepository 创建原始事件仓储
func NewMarketingEventRepository(db *gorm.DB) *GormMarketingEventRepository {
	return &GormMarketingEventRepository{db: db}
}

// CreateVisit 写入访问记录
func (r *GormMarketingEventRepository) CreateVisit(visit *models.CampaignVisit) error {
	return r.db.Create(visit).Error
}

// CreateConversion 写入转化记录
func (r *GormMarketingEventRepository) CreateConversion(conversion *models.CampaignConversion) error {
	return r.db.Create(conversion).Error
}

// MarkLatestVisitConverted 回写同会话最近一次未转化访问
func (r *GormMarketingEventRepository) MarkLatestVisitConverted(campaignID uint, sessionID string, conversionID uint, convertedAt time.Time) (int64, error) {
	var visit models.CampaignVisit
	err := r.db.Select("id").
		Where("campaign_id = ? AND session_id = ? AND converted_at IS NULL", campaignID, sessionID).
		Order("occurred_at desc, id desc").
		Limit(1).
		Find(&visit).Error
	if err != nil {
		return 0, err
	}
	if visit.ID == 0 {
		return 0, nil
	}
	result := r.db.Model(&models.CampaignVisit{}).
		Where("id = ? AND converted_at IS NULL", visit.ID).
		Updates(map[string]interface{}{
			"conversion_id": conversionID,
			"converted_at":  convertedAt,
		})
	return result.RowsAffected, result.Error
}

// ListVisits 查询窗口内带活动ID的访问记录
func (r *GormMarketingEventRepository) ListVisits(startAt, endAt time.Time, campaignIDs []uint) ([]models.CampaignVisit, error) {
	query := r.db.Model(&models.CampaignVisit{}).
		Select("id, campaign_id, link_id, utm_source, utm_medium, utm_campaign, utm_term, utm_content, session_id, occurred_at").
		Where("campaign_id IS NOT NULL AND occurred_at >= ? AND occurred_at < ?", startAt, endAt)
	if campaignIDs != nil {
		if len(campaignIDs) == 0 {
			return []models.CampaignVisit{}, nil
		}
		query = query.Where("campaign_id IN ?", campaignIDs)
	}
	var rows []models.CampaignVisit
	if err := query.Order("id asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListConversions 查询窗口内全部转化记录
func (r *GormMarketingEventRepository) ListConversions(startAt, endAt time.Time, campaignIDs []uint) ([]models.CampaignConversion, error) {
	query := r.db.Model(&models.CampaignConversion{}).
		Select("id, campaign_id, link_id, utm_source, utm_medium, utm_campaign, utm_term, utm_content, session_id, occurred_at").
		Where("occurred_at >= ? AND occurred_at < ?", startAt, endAt)
	if campaignIDs != nil {
		if len(campaignIDs) == 0 {
			return []models.CampaignConversion{}, nil
		}
		query = query.Where("campaign_id IN ?", campaignIDs)
	}
	var rows []models.CampaignConversion
	if err := query.Order("id asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// CountConversions 统计窗口内转化数（走 campaign_id + occurred_at 索引）
func (r *GormMarketingEventRepository) CountConversions(startAt, endAt time.Time, campaignIDs []uint) (int64, error) {
	if campaignIDs != nil && len(campaignIDs) == 0 {
		return 0, nil
	}
	query := r.db.Model(&models.CampaignConversion{}).
		Where("occurred_at >= ? AND occurred_at < ?", startAt, endAt)
	if campaignIDs != nil {
		query = query.Where("campaign_id IN ?", campaignIDs)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// CountConversionsByLink 统计引用某链接的转化数
func (r *GormMarketingEventRepository) CountConversionsByLink(linkID uint) (int64, error) {
	var total int64
	if err := r.db.Model(&models.CampaignConversion{}).
		Where("link_id = ?", linkID).
		Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// CountLinkConversions 统计窗口内某链接的转化数
func (r *GormMarketingEventRepository) CountLinkConversions(linkID uint, startAt, endAt time.Time) (int64, error) {
	var total int64
	if err := r.db.Model(&models.CampaignConversion{}).
		Where("link_id = ? AND occurred_at >= ? AND occurred_at < ?", linkID, startAt, endAt).
		Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}
