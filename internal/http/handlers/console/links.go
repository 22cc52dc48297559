package console

import (
	"strconv"

	handlershared "github.com/dujiao-next/marketing/internal/http/handlers/shared"
	"github.com/dujiao-next/marketing/internal/http/response"
	"github.com/dujiao-next/marketing/internal/repository"
	"github.com/dujiao-next/marketing/internal/service"

	"github.com/gin-gonic/gin"
)

// UTMRequest UTM 参数
type UTMRequest struct {
	Source   *string `json:"utm_source"`
	Medium   *string `json:"utm_medium"`
	Campaign *string `json:"utm_campaign"`
	Term     *string `json:"utm_term"`
	Content  *string `json:"utm_content"`
}

func (r UTMRequest) toParams() service.UTMParams {
	return service.UTMParams{
		Source:   r.Source,
		Medium:   r.Medium,
		Campaign: r.Campaign,
		Term:     r.Term,
		Content:  r.Content,
	}
}

// CreateLinkRequest 创建推广链接请求
type CreateLinkRequest struct {
	Name           string `json:"name" binding:"required"`
	TargetType     string `json:"target_type"`
	TargetID       uint   `json:"target_id" binding:"required"`
	LandingVariant string `json:"landing_variant"`
	UTMRequest
}

// UpdateLinkRequest 更新推广链接请求，缺省字段不修改
type UpdateLinkRequest struct {
	Name           *string     `json:"name"`
	Status         *string     `json:"status"`
	LandingVariant *string     `json:"landing_variant"`
	UTM            *UTMRequest `json:"utm"`
}

// ListLinks 推广链接列表
func (h *Handler) ListLinks(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = handlershared.NormalizePagination(page, pageSize)
	targetID, ok := handlershared.ParseOptionalUintQuery(c, "target_id")
	if !ok {
		return
	}

	filter := repository.CampaignLinkListFilter{
		TenantID:   tenantID,
		Page:       page,
		PageSize:   pageSize,
		Status:     c.Query("status"),
		TargetType: c.Query("target_type"),
		Keyword:    c.Query("keyword"),
	}
	if targetID != nil {
		filter.TargetID = *targetID
	}

	links, total, err := h.CampaignLinkService.List(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.SuccessWithPage(c, links, response.BuildPagination(page, pageSize, total))
}

// CreateLink 创建推广链接
func (h *Handler) CreateLink(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}
	var req CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	view, err := h.CampaignLinkService.Create(service.CreateCampaignLinkInput{
		TenantID:       tenantID,
		Name:           req.Name,
		TargetType:     req.TargetType,
		TargetID:       req.TargetID,
		LandingVariant: req.LandingVariant,
		UTM:            req.UTMRequest.toParams(),
	})
	if err != nil {
		respondMappedError(c, err, "error.internal")
		return
	}
	requestLog(c).Infow("campaign_link_created", "tenant_id", tenantID, "link_id", view.ID, "cid", view.CID)
	response.Success(c, view)
}

// GetLink 推广链接详情
func (h *Handler) GetLink(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}
	id, ok := handlershared.ParseUintParam(c, "id", "error.link_not_found")
	if !ok {
		return
	}
	view, err := h.CampaignLinkService.Get(tenantID, id)
	if err != nil {
		respondMappedError(c, err, "error.internal")
		return
	}
	response.Success(c, view)
}

// UpdateLink 更新推广链接
func (h *Handler) UpdateLink(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}
	id, ok := handlershared.ParseUintParam(c, "id", "error.link_not_found")
	if !ok {
		return
	}
	var req UpdateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	input := service.UpdateCampaignLinkInput{
		Name:           req.Name,
		Status:         req.Status,
		LandingVariant: req.LandingVariant,
	}
	if req.UTM != nil {
		utm := req.UTM.toParams()
		input.UTM = &utm
	}
	view, err := h.CampaignLinkService.Update(tenantID, id, input)
	if err != nil {
		respondMappedError(c, err, "error.internal")
		return
	}
	response.Success(c, view)
}

// ArchiveLink 归档推广链接
func (h *Handler) ArchiveLink(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}
	id, ok := handlershared.ParseUintParam(c, "id", "error.link_not_found")
	if !ok {
		return
	}
	view, err := h.CampaignLinkService.Archive(tenantID, id)
	if err != nil {
		respondMappedError(c, err, "error.internal")
		return
	}
	requestLog(c).Infow("campaign_link_archived", "tenant_id", tenantID, "link_id", id)
	response.Success(c, view)
}
