package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jesusartemio-dev/gyscontrol-app-sub002/internal/service"
	"github.com/jesusartemio-dev/gyscontrol-app-sub002/pkg/response"
)

// 工作日模块错误码（20xxx）
const (
	codeBadRequest = 20001

	codeValidation        = 20100
	codeInvalidTaskRef    = 20101
	codeIncompleteHours   = 20102
	codeInvalidBlocker    = 20103
	codeMissingSummary    = 20104
	codeInvalidProgress   = 20105
	codeInvalidHours      = 20106
	codeInvalidMember     = 20107
	codeInvalidNode       = 20108
	codeInvalidWorkDate   = 20109
	codeInvalidDecision   = 20110
	codeCalendarTooLarge  = 20111
	codeWorkdayNotFound   = 20201
	codeTaskNotFound      = 20202
	codeMemberNotFound    = 20203
	codeBlockerNotFound   = 20204
	codeNodeNotFound      = 20205
	codeReportNotFound    = 20206
	codeNotActive         = 20301
	codeInvalidTransition = 20302
	codeDuplicateWorkday  = 20303
	codeDuplicateMember   = 20304
	codeAggregationBusy   = 20305
	codeNotCommitted      = 20306
)

// validationPayload 422 响应体中的问题列表
type validationPayload struct {
	Kinds  []string                  `json:"kinds"`
	Issues []service.ValidationIssue `json:"issues"`
}

// badRequest 请求绑定失败
func badRequest(c *gin.Context, err error) {
	response.ErrorWithDetails(c, http.StatusBadRequest, codeBadRequest, "参数校验失败", err.Error())
}

// handleWorkdayError 将业务错误映射为 HTTP 响应
func handleWorkdayError(c *gin.Context, err error) {
	var ve *service.ValidationError
	if errors.As(err, &ve) {
		response.Unprocessable(c, codeValidation, "闭合校验未通过", validationPayload{Kinds: ve.Kinds(), Issues: ve.Issues})
		return
	}

	switch {
	// ── 404 ──
	case errors.Is(err, service.ErrWorkdayNotFound):
		response.NotFound(c, codeWorkdayNotFound, err.Error())
	case errors.Is(err, service.ErrTaskNotFound):
		response.NotFound(c, codeTaskNotFound, err.Error())
	case errors.Is(err, service.ErrMemberNotFound):
		response.NotFound(c, codeMemberNotFound, err.Error())
	case errors.Is(err, service.ErrBlockerNotFound):
		response.NotFound(c, codeBlockerNotFound, err.Error())
	case errors.Is(err, service.ErrScheduleNodeNotFound):
		response.NotFound(c, codeNodeNotFound, err.Error())
	case errors.Is(err, service.ErrAuditReportNotFound):
		response.NotFound(c, codeReportNotFound, err.Error())

	// ── 409 状态冲突 ──
	case errors.Is(err, service.ErrWorkdayNotActive):
		response.Conflict(c, codeNotActive, err.Error())
	case errors.Is(err, service.ErrInvalidTransition):
		response.Conflict(c, codeInvalidTransition, err.Error())
	case errors.Is(err, service.ErrDuplicateActiveWorkday):
		response.Conflict(c, codeDuplicateWorkday, err.Error())
	case errors.Is(err, service.ErrDuplicateTaskMember):
		response.Conflict(c, codeDuplicateMember, err.Error())
	case errors.Is(err, service.ErrAggregationConflict):
		response.Conflict(c, codeAggregationBusy, service.ErrAggregationConflict.Error())
	case errors.Is(err, service.ErrWorkdayNotCommitted):
		response.Conflict(c, codeNotCommitted, err.Error())

	// ── 422 输入无效 ──
	case errors.Is(err, service.ErrInvalidTaskReference):
		response.Unprocessable(c, codeInvalidTaskRef, err.Error(), nil)
	case errors.Is(err, service.ErrIncompleteHoursAllocation):
		response.Unprocessable(c, codeIncompleteHours, err.Error(), nil)
	case errors.Is(err, service.ErrInvalidBlocker):
		response.Unprocessable(c, codeInvalidBlocker, err.Error(), nil)
	case errors.Is(err, service.ErrMissingClosureSummary):
		response.Unprocessable(c, codeMissingSummary, err.Error(), nil)
	case errors.Is(err, service.ErrInvalidProgressUpdate):
		response.Unprocessable(c, codeInvalidProgress, err.Error(), nil)
	case errors.Is(err, service.ErrInvalidHours):
		response.Unprocessable(c, codeInvalidHours, err.Error(), nil)
	case errors.Is(err, service.ErrInvalidMember):
		response.Unprocessable(c, codeInvalidMember, err.Error(), nil)
	case errors.Is(err, service.ErrInvalidScheduleNode):
		response.Unprocessable(c, codeInvalidNode, err.Error(), nil)

	// ── 400 ──
	case errors.Is(err, service.ErrInvalidWorkDate):
		response.BadRequest(c, codeInvalidWorkDate, err.Error())
	case errors.Is(err, service.ErrInvalidReviewDecision):
		response.BadRequest(c, codeInvalidDecision, err.Error())
	case errors.Is(err, service.ErrCalendarTooLarge):
		response.BadRequest(c, codeCalendarTooLarge, err.Error())

	// ErrPersistenceFailure、ErrExportGenerateFail 及未分类错误
	default:
		_ = c.Error(err)
		response.InternalError(c)
	}
}
