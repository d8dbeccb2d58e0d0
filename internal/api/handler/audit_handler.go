package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/jesusartemio-dev/gyscontrol-app-sub002/internal/service"
	"github.com/jesusartemio-dev/gyscontrol-app-sub002/pkg/response"
)

// AuditHandler 台账一致性巡检
type AuditHandler struct {
	auditSvc service.AuditService
}

// NewAuditHandler 创建 AuditHandler
func NewAuditHandler(auditSvc service.AuditService) *AuditHandler {
	return &AuditHandler{auditSvc: auditSvc}
}

// RunAudit 立即执行一次巡检
// POST /api/v1/audit/run
func (h *AuditHandler) RunAudit(c *gin.Context) {
	report, err := h.auditSvc.RunAudit(c.Request.Context())
	if err != nil {
		handleWorkdayError(c, err)
		return
	}

	response.OK(c, report)
}

// GetLatestReport 最近一次巡检报告
// GET /api/v1/audit/report
func (h *AuditHandler) GetLatestReport(c *gin.Context) {
	report, err := h.auditSvc.GetLatestReport(c.Request.Context())
	if err != nil {
		handleWorkdayError(c, err)
		return
	}

	response.OK(c, report)
}
