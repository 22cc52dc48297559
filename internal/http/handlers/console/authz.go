package console

import (
	"github.com/dujiao-next/marketing/internal/http/response"

	"github.com/gin-gonic/gin"
)

// ListRoles 列出控制台角色及策略
func (h *Handler) ListRoles(c *gin.Context) {
	roles, err := h.AuthzService.ListRolePolicies()
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.Success(c, roles)
}
