package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/jesusartemio-dev/gyscontrol-app-sub002/internal/dto"
	"github.com/jesusartemio-dev/gyscontrol-app-sub002/internal/service"
	"github.com/jesusartemio-dev/gyscontrol-app-sub002/pkg/response"
)

// ClosingHandler 工作日闭合与审批 HTTP 处理器
type ClosingHandler struct {
	closingSvc service.ClosingService
	reviewSvc  service.ReviewService
}

// NewClosingHandler 创建 ClosingHandler
func NewClosingHandler(closingSvc service.ClosingService, reviewSvc service.ReviewService) *ClosingHandler {
	return &ClosingHandler{closingSvc: closingSvc, reviewSvc: reviewSvc}
}

// CloseWorkday 闭合工作日：校验全部问题后一次性提交工时、阻碍与进度
// POST /api/v1/workdays/:id/close
func (h *ClosingHandler) CloseWorkday(c *gin.Context) {
	var req dto.CloseWorkdayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.closingSvc.CloseWorkday(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		handleWorkdayError(c, err)
		return
	}

	response.OK(c, result)
}

// ReviewWorkday 审批已闭合的工作日
// POST /api/v1/workdays/:id/review
func (h *ClosingHandler) ReviewWorkday(c *gin.Context) {
	var req dto.ReviewWorkdayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.reviewSvc.ReviewWorkday(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		handleWorkdayError(c, err)
		return
	}

	response.OK(c, result)
}
