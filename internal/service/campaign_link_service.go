package service

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/dujiao-next/marketing/internal/constants"
	"github.com/dujiao-next/marketing/internal/logger"
	"github.com/dujiao-next/marketing/internal/models"
	"github.com/dujiao-next/marketing/internal/repository"
)

const defaultLinkCreateMaxRetry = 8

// CampaignLinkService 推广链接管理服务
type CampaignLinkService struct {
	linkRepo      repository.CampaignLinkRepository
	campaignRepo  repository.CampaignRepository
	eventRepo     repository.MarketingEventRepository
	publicBaseURL string
	maxRetry      int
}

// NewCampaignLinkService 创建推广链接服务
func NewCampaignLinkService(
	linkRepo repository.CampaignLinkRepository,
	campaignRepo repository.CampaignRepository,
	eventRepo repository.MarketingEventRepository,
	publicBaseURL string,
	maxRetry int,
) *CampaignLinkService {
	if maxRetry <= 0 {
		maxRetry = defaultLinkCreateMaxRetry
	}
	return &CampaignLinkService{
		linkRepo:      linkRepo,
		campaignRepo:  campaignRepo,
		eventRepo:     eventRepo,
		publicBaseURL: strings.TrimRight(strings.TrimSpace(publicBaseURL), "/"),
		maxRetry:      maxRetry,
	}
}

// CreateCampaignLinkInput 创建链接输入
type CreateCampaignLinkInput struct {
	TenantID       uint
	Name           string
	TargetType     string
	TargetID       uint
	LandingVariant string
	UTM            UTMParams
}

// UpdateCampaignLinkInput 更新链接输入，nil 字段不修改
type UpdateCampaignLinkInput struct {
	Name           *string
	Status         *string
	LandingVariant *string
	UTM            *UTMParams
}

// CampaignLinkView 链接详情（附带可分享地址）
type CampaignLinkView struct {
	models.CampaignLink
	ShareURL    string `json:"share_url"`
	CampaignURL string `json:"campaign_url"`
	Locked      bool   `json:"locked"`
}

// Create 创建链接，cid 冲突时重新生成
func (s *CampaignLinkService) Create(input CreateCampaignLinkInput) (*CampaignLinkView, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrLinkNameRequired
	}
	targetType := strings.TrimSpace(input.TargetType)
	if targetType == "" {
		targetType = constants.LinkTargetCampaign
	}
	if input.TargetID == 0 || (targetType != constants.LinkTargetCampaign && targetType != constants.LinkTargetWebinar) {
		return nil, ErrLinkTargetInvalid
	}
	variant, err := normalizeLandingVariant(input.LandingVariant)
	if err != nil {
		return nil, err
	}
	var campaign *models.Campaign
	if targetType == constants.LinkTargetCampaign {
		campaign, err = s.loadTenantCampaign(input.TenantID, input.TargetID)
		if err != nil {
			return nil, err
		}
	}

	utm := NormalizeUTM(input.UTM)
	for i := 0; i < s.maxRetry; i++ {
		cid, genErr := GenerateTrackingID()
		if genErr != nil {
			return nil, genErr
		}
		link := &models.CampaignLink{
			TenantID:       input.TenantID,
			CID:            cid,
			Name:           name,
			TargetType:     targetType,
			TargetID:       input.TargetID,
			LandingVariant: variant,
			UTMSource:      utm.Source,
			UTMMedium:      utm.Medium,
			UTMCampaign:    utm.Campaign,
			UTMTerm:        utm.Term,
			UTMContent:     utm.Content,
			Status:         constants.CampaignLinkStatusActive,
		}
		if err := s.linkRepo.Create(link); err != nil {
			if isUniqueViolation(err) {
				logger.Debugw("campaign_link_cid_conflict", "tenant_id", input.TenantID, "cid", cid, "attempt", i+1)
				continue
			}
			return nil, err
		}
		return s.buildView(link, campaign, false), nil
	}
	return nil, ErrIDGenerateLimit
}

// Get 获取链接详情
func (s *CampaignLinkService) Get(tenantID, id uint) (*CampaignLinkView, error) {
	link, err := s.linkRepo.GetByID(tenantID, id)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, ErrCampaignLinkNotFound
	}
	locked, err := s.isLocked(link.ID)
	if err != nil {
		return nil, err
	}
	return s.buildView(link, s.lookupCampaign(link), locked), nil
}

// List 分页列出链接
func (s *CampaignLinkService) List(filter repository.CampaignLinkListFilter) ([]CampaignLinkView, int64, error) {
	links, total, err := s.linkRepo.List(filter)
	if err != nil {
		return nil, 0, err
	}
	campaigns := make(map[uint]*models.Campaign)
	views := make([]CampaignLinkView, 0, len(links))
	for i := range links {
		link := &links[i]
		var campaign *models.Campaign
		if link.TargetType == constants.LinkTargetCampaign {
			cached, ok := campaigns[link.TargetID]
			if !ok {
				cached = s.lookupCampaign(link)
				campaigns[link.TargetID] = cached
			}
			campaign = cached
		}
		views = append(views, *s.buildView(link, campaign, false))
	}
	return views, total, nil
}

// Update 更新链接；已有转化引用时只允许修改名称和状态
func (s *CampaignLinkService) Update(tenantID, id uint, input UpdateCampaignLinkInput) (*CampaignLinkView, error) {
	link, err := s.linkRepo.GetByID(tenantID, id)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, ErrCampaignLinkNotFound
	}

	updates := map[string]interface{}{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrLinkNameRequired
		}
		updates["name"] = name
	}
	if input.Status != nil {
		status := strings.TrimSpace(*input.Status)
		if status != constants.CampaignLinkStatusActive && status != constants.CampaignLinkStatusArchived {
			return nil, ErrLinkStatusInvalid
		}
		updates["status"] = status
	}
	if input.LandingVariant != nil || input.UTM != nil {
		locked, err := s.isLocked(link.ID)
		if err != nil {
			return nil, err
		}
		if locked {
			return nil, ErrLinkLocked
		}
	}
	if input.LandingVariant != nil {
		variant, err := normalizeLandingVariant(*input.LandingVariant)
		if err != nil {
			return nil, err
		}
		updates["landing_variant"] = variant
	}
	if input.UTM != nil {
		utm := NormalizeUTM(*input.UTM)
		updates["utm_source"] = utm.Source
		updates["utm_medium"] = utm.Medium
		updates["utm_campaign"] = utm.Campaign
		updates["utm_term"] = utm.Term
		updates["utm_content"] = utm.Content
	}

	if err := s.linkRepo.UpdateFields(tenantID, id, updates); err != nil {
		return nil, err
	}
	return s.Get(tenantID, id)
}

// Archive 归档链接（不做物理删除）
func (s *CampaignLinkService) Archive(tenantID, id uint) (*CampaignLinkView, error) {
	status := constants.CampaignLinkStatusArchived
	return s.Update(tenantID, id, UpdateCampaignLinkInput{Status: &status})
}

func (s *CampaignLinkService) isLocked(linkID uint) (bool, error) {
	count, err := s.eventRepo.CountConversionsByLink(linkID)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *CampaignLinkService) loadTenantCampaign(tenantID, campaignID uint) (*models.Campaign, error) {
	campaign, err := s.campaignRepo.GetByID(campaignID)
	if err != nil {
		return nil, err
	}
	if campaign == nil || campaign.TenantID != tenantID {
		return nil, ErrCampaignNotFound
	}
	return campaign, nil
}

func (s *CampaignLinkService) lookupCampaign(link *models.CampaignLink) *models.Campaign {
	if link.TargetType != constants.LinkTargetCampaign {
		return nil
	}
	campaign, err := s.loadTenantCampaign(link.TenantID, link.TargetID)
	if err != nil {
		logger.Warnw("campaign_link_target_lookup_failed", "link_id", link.ID, "target_id", link.TargetID, "error", err)
		return nil
	}
	return campaign
}

func (s *CampaignLinkService) buildView(link *models.CampaignLink, campaign *models.Campaign, locked bool) *CampaignLinkView {
	landing := s.landingURL(link, campaign)
	shareParams := url.Values{}
	shareParams.Set("cid", link.CID)
	campaignParams := url.Values{}
	campaignParams.Set("cid", link.CID)
	setQueryValue(campaignParams, "utm_source", link.UTMSource)
	setQueryValue(campaignParams, "utm_medium", link.UTMMedium)
	setQueryValue(campaignParams, "utm_campaign", link.UTMCampaign)
	setQueryValue(campaignParams, "utm_term", link.UTMTerm)
	setQueryValue(campaignParams, "utm_content", link.UTMContent)
	return &CampaignLinkView{
		CampaignLink: *link,
		ShareURL:     landing + "?" + shareParams.Encode(),
		CampaignURL:  landing + "?" + campaignParams.Encode(),
		Locked:       locked,
	}
}

// landingURL 活动：{base}/event{public_path}[/register|/survey]；直播：{base}/webinar/{id}
func (s *CampaignLinkService) landingURL(link *models.CampaignLink, campaign *models.Campaign) string {
	if link.TargetType == constants.LinkTargetWebinar {
		return fmt.Sprintf("%s/webinar/%d", s.publicBaseURL, link.TargetID)
	}
	path := fmt.Sprintf("/%d", link.TargetID)
	if campaign != nil && strings.TrimSpace(campaign.PublicPath) != "" {
		path = "/" + strings.Trim(strings.TrimSpace(campaign.PublicPath), "/")
	}
	switch link.LandingVariant {
	case constants.LandingVariantRegister:
		path += "/register"
	case constants.LandingVariantSurvey:
		path += "/survey"
	}
	return s.publicBaseURL + "/event" + path
}

func normalizeLandingVariant(raw string) (string, error) {
	variant := strings.ToLower(strings.TrimSpace(raw))
	switch variant {
	case "":
		return constants.LandingVariantRegister, nil
	case constants.LandingVariantRegister, constants.LandingVariantWelcome, constants.LandingVariantSurvey:
		return variant, nil
	default:
		return "", ErrLandingVariantInvalid
	}
}

func setQueryValue(values url.Values, key string, value *string) {
	if value == nil || *value == "" {
		return
	}
	values.Set(key, *value)
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
