package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jesusartemio-dev/gyscontrol-app-sub002/internal/service"
	"github.com/jesusartemio-dev/gyscontrol-app-sub002/pkg/response"
)

// CatalogHandler 阻碍类型字典与进度节点查询
type CatalogHandler struct {
	catalogSvc service.CatalogService
}

// NewCatalogHandler 创建 CatalogHandler
func NewCatalogHandler(catalogSvc service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogSvc: catalogSvc}
}

// ListBlockerTypes 阻碍类型列表
// GET /api/v1/blocker-types?include_inactive=true
func (h *CatalogHandler) ListBlockerTypes(c *gin.Context) {
	includeInactive := false
	if raw := c.Query("include_inactive"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			response.BadRequest(c, codeBadRequest, "include_inactive 必须为布尔值")
			return
		}
		includeInactive = v
	}

	list, err := h.catalogSvc.ListBlockerTypes(c.Request.Context(), includeInactive)
	if err != nil {
		handleWorkdayError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// GetScheduleNode 进度节点详情（含计划任务与聚合值）
// GET /api/v1/schedule-nodes/:id
func (h *CatalogHandler) GetScheduleNode(c *gin.Context) {
	node, err := h.catalogSvc.GetScheduleNode(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleWorkdayError(c, err)
		return
	}

	response.OK(c, node)
}
