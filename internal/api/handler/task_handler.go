package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/jesusartemio-dev/gyscontrol-app-sub002/internal/dto"
	"github.com/jesusartemio-dev/gyscontrol-app-sub002/internal/service"
	"github.com/jesusartemio-dev/gyscontrol-app-sub002/pkg/response"
)

// TaskHandler 工作日任务与成员工时 HTTP 处理器
type TaskHandler struct {
	taskSvc service.TaskService
}

// NewTaskHandler 创建 TaskHandler
func NewTaskHandler(taskSvc service.TaskService) *TaskHandler {
	return &TaskHandler{taskSvc: taskSvc}
}

// AddTask 添加任务（计划任务或临时任务二选一）
// POST /api/v1/workdays/:id/tasks
func (h *TaskHandler) AddTask(c *gin.Context) {
	var req dto.AddTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	task, err := h.taskSvc.AddTask(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		handleWorkdayError(c, err)
		return
	}

	response.Created(c, task)
}

// UpdateTask 修改任务
// PATCH /api/v1/tasks/:id
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	var req dto.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	task, err := h.taskSvc.UpdateTask(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		handleWorkdayError(c, err)
		return
	}

	response.OK(c, task)
}

// RemoveTask 删除任务及其成员工时
// DELETE /api/v1/tasks/:id
func (h *TaskHandler) RemoveTask(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.taskSvc.RemoveTask(c.Request.Context(), c.Param("id"), callerID); err != nil {
		handleWorkdayError(c, err)
		return
	}

	response.OK(c, nil)
}

// AddMember 添加任务成员
// POST /api/v1/tasks/:id/members
func (h *TaskHandler) AddMember(c *gin.Context) {
	var req dto.TaskMemberInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	member, err := h.taskSvc.AddMember(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		handleWorkdayError(c, err)
		return
	}

	response.Created(c, member)
}

// RemoveMember 移除任务成员
// DELETE /api/v1/members/:id
func (h *TaskHandler) RemoveMember(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.taskSvc.RemoveMember(c.Request.Context(), c.Param("id"), callerID); err != nil {
		handleWorkdayError(c, err)
		return
	}

	response.OK(c, nil)
}

// SetMemberHours 设置成员工时（0.5 小时步长）
// PUT /api/v1/members/:id/hours
func (h *TaskHandler) SetMemberHours(c *gin.Context) {
	var req dto.SetMemberHoursRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	member, err := h.taskSvc.SetMemberHours(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		handleWorkdayError(c, err)
		return
	}

	response.OK(c, member)
}

// SuggestAllocation 预览默认工时分配
// GET /api/v1/workdays/:id/allocation
func (h *TaskHandler) SuggestAllocation(c *gin.Context) {
	result, err := h.taskSvc.SuggestAllocation(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleWorkdayError(c, err)
		return
	}

	response.OK(c, result)
}

// ApplyDefaultHours 为未填工时的成员写入默认分配
// POST /api/v1/workdays/:id/allocation/apply
func (h *TaskHandler) ApplyDefaultHours(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.taskSvc.ApplyDefaultHours(c.Request.Context(), c.Param("id"), callerID)
	if err != nil {
		handleWorkdayError(c, err)
		return
	}

	response.OK(c, result)
}
