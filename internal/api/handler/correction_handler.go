package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/jesusartemio-dev/gyscontrol-app-sub002/internal/dto"
	"github.com/jesusartemio-dev/gyscontrol-app-sub002/internal/service"
	"github.com/jesusartemio-dev/gyscontrol-app-sub002/pkg/response"
)

// CorrectionHandler 已提交台账的管理员修正
type CorrectionHandler struct {
	correctionSvc service.CorrectionService
}

// NewCorrectionHandler 创建 CorrectionHandler
func NewCorrectionHandler(correctionSvc service.CorrectionService) *CorrectionHandler {
	return &CorrectionHandler{correctionSvc: correctionSvc}
}

// CorrectMemberHours 修正已提交工时
// PUT /api/v1/corrections/members/:id/hours
func (h *CorrectionHandler) CorrectMemberHours(c *gin.Context) {
	var req dto.CorrectMemberHoursRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.correctionSvc.CorrectMemberHours(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		handleWorkdayError(c, err)
		return
	}

	response.OK(c, result)
}

// DeleteTaskCorrection 删除已提交工作日中的任务
// DELETE /api/v1/corrections/tasks/:id
func (h *CorrectionHandler) DeleteTaskCorrection(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.correctionSvc.DeleteTaskCorrection(c.Request.Context(), c.Param("id"), callerID)
	if err != nil {
		handleWorkdayError(c, err)
		return
	}

	response.OK(c, result)
}

// RecomputeNode 从台账重算节点聚合值
// POST /api/v1/schedule-nodes/:id/recompute
func (h *CorrectionHandler) RecomputeNode(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	node, err := h.correctionSvc.RecomputeNode(c.Request.Context(), c.Param("id"), callerID)
	if err != nil {
		handleWorkdayError(c, err)
		return
	}

	response.OK(c, node)
}
