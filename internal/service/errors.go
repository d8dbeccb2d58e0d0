package service

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	pkgerrors "github.com/jesusartemio-dev/gyscontrol-app-sub002/pkg/errors"
)

// ── 工作日模块业务错误 ──

var (
	ErrWorkdayNotFound      = errors.New("工作日不存在")
	ErrTaskNotFound         = errors.New("工作日任务不存在")
	ErrMemberNotFound       = errors.New("任务成员不存在")
	ErrBlockerNotFound      = errors.New("阻碍记录不存在")
	ErrScheduleNodeNotFound = errors.New("进度节点不存在")

	ErrInvalidTaskReference      = errors.New("任务引用无效：必须且只能关联一个计划任务或填写临时任务名称")
	ErrWorkdayNotActive          = errors.New("工作日非 active 状态，不可修改")
	ErrInvalidTransition         = errors.New("工作日状态不允许此操作")
	ErrIncompleteHoursAllocation = errors.New("存在未分配工时的成员")
	ErrInvalidBlocker            = errors.New("阻碍记录无效：类型与描述均不能为空")
	ErrMissingClosureSummary     = errors.New("闭合必须填写当日进展（avance_dia）")
	ErrInvalidProgressUpdate     = errors.New("计划任务完成百分比提交无效")
	ErrAggregationConflict       = errors.New("进度节点正在被其他闭合操作更新，请重试")
	ErrPersistenceFailure        = errors.New("数据持久化失败")

	ErrDuplicateActiveWorkday = errors.New("该项目、班组与日期已存在进行中的工作日")
	ErrInvalidWorkDate        = errors.New("工作日期格式无效，应为 YYYY-MM-DD")
	ErrInvalidScheduleNode    = errors.New("进度节点不存在或不属于该项目")
	ErrInvalidHours           = errors.New("工时必须大于 0 且不超过 24")
	ErrInvalidMember          = errors.New("成员人员 ID 不能为空")
	ErrDuplicateTaskMember    = errors.New("该人员已在此任务中")
	ErrInvalidReviewDecision  = errors.New("审批结论只能为 approve 或 reject")
	ErrWorkdayNotCommitted    = errors.New("工作日尚未提交，请通过常规流程修改")
)

// domainErrors 已分类的业务错误；其余错误一律视为存储层错误
var domainErrors = []error{
	ErrWorkdayNotFound, ErrTaskNotFound, ErrMemberNotFound, ErrBlockerNotFound, ErrScheduleNodeNotFound,
	ErrInvalidTaskReference, ErrWorkdayNotActive, ErrInvalidTransition, ErrIncompleteHoursAllocation,
	ErrInvalidBlocker, ErrMissingClosureSummary, ErrInvalidProgressUpdate, ErrAggregationConflict,
	ErrPersistenceFailure, ErrDuplicateActiveWorkday, ErrInvalidWorkDate, ErrInvalidScheduleNode,
	ErrInvalidHours, ErrInvalidMember, ErrDuplicateTaskMember, ErrInvalidReviewDecision, ErrWorkdayNotCommitted,
}

// ValidationIssue 单条字段级校验问题，携带足够的标识用于前端定位
type ValidationIssue struct {
	Code           string `json:"code"`
	Field          string `json:"field,omitempty"`
	Message        string `json:"message"`
	TaskID         string `json:"task_id,omitempty"`
	MemberID       string `json:"member_id,omitempty"`
	PersonID       string `json:"person_id,omitempty"`
	ScheduleTaskID string `json:"schedule_task_id,omitempty"`

	Err error `json:"-"`
}

// ValidationError 闭合前收集到的全部校验问题；一个不落地返回给调用方
type ValidationError struct {
	Issues []ValidationIssue
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "校验失败"
	}
	msgs := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		msgs = append(msgs, issue.Message)
	}
	return fmt.Sprintf("校验失败（%d 项）: %s", len(e.Issues), strings.Join(msgs, "; "))
}

// Unwrap 返回去重后的哨兵错误，使 errors.Is(err, ErrIncompleteHoursAllocation) 等判断成立
func (e *ValidationError) Unwrap() []error {
	seen := make(map[error]bool)
	var errs []error
	for _, issue := range e.Issues {
		if issue.Err == nil || seen[issue.Err] {
			continue
		}
		seen[issue.Err] = true
		errs = append(errs, issue.Err)
	}
	return errs
}

// Kinds 问题涉及的错误类别（去重）
func (e *ValidationError) Kinds() []string {
	seen := make(map[string]bool)
	var kinds []string
	for _, issue := range e.Issues {
		if seen[issue.Code] {
			continue
		}
		seen[issue.Code] = true
		kinds = append(kinds, issue.Code)
	}
	return kinds
}

// validationIssues 问题收集器
type validationIssues []ValidationIssue

func (v *validationIssues) add(err error, code, field, message string) *ValidationIssue {
	*v = append(*v, ValidationIssue{Code: code, Field: field, Message: message, Err: err})
	return &(*v)[len(*v)-1]
}

func (v validationIssues) err() error {
	if len(v) == 0 {
		return nil
	}
	return &ValidationError{Issues: v}
}

// isDomainError 是否为已分类的业务错误
func isDomainError(err error) bool {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return true
	}
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// storageErr 存储层错误分类：行锁 / 序列化 / 死锁 → ErrAggregationConflict，其余 → ErrPersistenceFailure
func storageErr(err error) error {
	if err == nil || isDomainError(err) {
		return err
	}
	if pkgerrors.IsLockConflict(err) {
		return fmt.Errorf("%w: %w", ErrAggregationConflict, err)
	}
	return fmt.Errorf("%w: %w", ErrPersistenceFailure, err)
}

func isRecordNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
