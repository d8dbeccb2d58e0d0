package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/jesusartemio-dev/gyscontrol-app-sub002/internal/dto"
	"github.com/jesusartemio-dev/gyscontrol-app-sub002/internal/service"
	"github.com/jesusartemio-dev/gyscontrol-app-sub002/pkg/response"
)

// WorkdayHandler 工作日模块 HTTP 处理器
type WorkdayHandler struct {
	workdaySvc service.WorkdayService
}

// NewWorkdayHandler 创建 WorkdayHandler
func NewWorkdayHandler(workdaySvc service.WorkdayService) *WorkdayHandler {
	return &WorkdayHandler{workdaySvc: workdaySvc}
}

// OpenWorkday 开启工作日
// POST /api/v1/workdays
func (h *WorkdayHandler) OpenWorkday(c *gin.Context) {
	var req dto.OpenWorkdayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	workday, err := h.workdaySvc.OpenWorkday(c.Request.Context(), &req, callerID)
	if err != nil {
		handleWorkdayError(c, err)
		return
	}

	response.Created(c, workday)
}

// ListWorkdays 工作日列表
// GET /api/v1/workdays?project_id=&crew_id=&status=&date_from=&date_to=&page=&page_size=
// 班组长未指定 crew_id 时默认只看本班组
func (h *WorkdayHandler) ListWorkdays(c *gin.Context) {
	var req dto.ListWorkdaysRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err)
		return
	}
	scopeToCrew(c, &req)

	list, total, err := h.workdaySvc.ListWorkdays(c.Request.Context(), &req)
	if err != nil {
		handleWorkdayError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// GetWorkday 工作日详情（含任务、成员工时与阻碍）
// GET /api/v1/workdays/:id
func (h *WorkdayHandler) GetWorkday(c *gin.Context) {
	workday, err := h.workdaySvc.GetWorkday(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleWorkdayError(c, err)
		return
	}

	response.OK(c, workday)
}

// DeleteWorkday 删除工作日；已提交的工作日删除后重算受影响节点
// DELETE /api/v1/workdays/:id
func (h *WorkdayHandler) DeleteWorkday(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.workdaySvc.DeleteWorkday(c.Request.Context(), c.Param("id"), callerID); err != nil {
		handleWorkdayError(c, err)
		return
	}

	response.OK(c, nil)
}

// AddBlocker 登记阻碍
// POST /api/v1/workdays/:id/blockers
func (h *WorkdayHandler) AddBlocker(c *gin.Context) {
	var req dto.BlockerInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	blocker, err := h.workdaySvc.AddBlocker(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		handleWorkdayError(c, err)
		return
	}

	response.Created(c, blocker)
}

// RemoveBlocker 删除阻碍
// DELETE /api/v1/blockers/:id
func (h *WorkdayHandler) RemoveBlocker(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.workdaySvc.RemoveBlocker(c.Request.Context(), c.Param("id"), callerID); err != nil {
		handleWorkdayError(c, err)
		return
	}

	response.OK(c, nil)
}
