package handler

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/jesusartemio-dev/gyscontrol-app-sub002/internal/dto"
	"github.com/jesusartemio-dev/gyscontrol-app-sub002/internal/service"
)

const (
	xlsxMIME     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	calendarMIME = "text/calendar; charset=utf-8"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportWorkday 导出工作日工时与阻碍（xlsx）
// GET /api/v1/workdays/:id/export
func (h *ExportHandler) ExportWorkday(c *gin.Context) {
	buf, filename, err := h.exportSvc.ExportWorkday(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleWorkdayError(c, err)
		return
	}

	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.QueryEscape(filename))
	c.Data(http.StatusOK, xlsxMIME, buf.Bytes())
}

// ExportCalendar 工作日日历订阅（iCalendar）
// GET /api/v1/calendar/workdays.ics
// 过滤条件与工作日列表一致，分页参数被忽略
func (h *ExportHandler) ExportCalendar(c *gin.Context) {
	var req dto.ListWorkdaysRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err)
		return
	}
	scopeToCrew(c, &req)

	out, err := h.exportSvc.ExportCalendar(c.Request.Context(), &req)
	if err != nil {
		handleWorkdayError(c, err)
		return
	}

	c.Header("Content-Disposition", `inline; filename="workdays.ics"`)
	c.Data(http.StatusOK, calendarMIME, []byte(out))
}
