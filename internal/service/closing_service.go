package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jesusartemio-dev/gyscontrol-app-sub002/internal/dto"
	"github.com/jesusartemio-dev/gyscontrol-app-sub002/internal/model"
	"github.com/jesusartemio-dev/gyscontrol-app-sub002/internal/repository"
	pkgerrors "github.com/jesusartemio-dev/gyscontrol-app-sub002/pkg/errors"
)

// 校验问题编码
const (
	IssueIncompleteHours   = "incomplete_hours_allocation"
	IssueInvalidBlocker    = "invalid_blocker"
	IssueMissingSummary    = "missing_closure_summary"
	IssueInvalidProgress   = "invalid_progress_update"
	IssueInvalidTaskRef    = "invalid_task_reference"
	IssueInvalidHoursRange = "invalid_hours"
)

// ClosingService 工作日闭合编排
type ClosingService interface {
	// CloseWorkday 工时 → 阻碍 → 进度三阶段全部校验通过后一次性原子提交；
	// 校验失败返回 *ValidationError，不落任何数据
	CloseWorkday(ctx context.Context, workdayID string, req *dto.CloseWorkdayRequest, callerID string) (*dto.CloseWorkdayResponse, error)
}

type closingService struct {
	repo       *repository.Repository
	aggregator *ProgressAggregator
	retries    int
	logger     *zap.Logger
	now        func() time.Time
}

// NewClosingService 创建 ClosingService 实例
func NewClosingService(repo *repository.Repository, aggregator *ProgressAggregator, retries int, logger *zap.Logger) ClosingService {
	return &closingService{
		repo:       repo,
		aggregator: aggregator,
		retries:    retries,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// closePlan 校验通过后待写入的内容
type closePlan struct {
	blockers []model.Blocker
	progress []model.ScheduleTask // CompletionPct 已替换为提交值
	warnings []Warning
}

// ════════════════════════════════════════════════════════════
// CloseWorkday
// ════════════════════════════════════════════════════════════

func (s *closingService) CloseWorkday(ctx context.Context, workdayID string, req *dto.CloseWorkdayRequest, callerID string) (*dto.CloseWorkdayResponse, error) {
	// 1. 事务外预校验：绝大多数输入缺陷在此返回，不占用行锁
	w, err := s.repo.Workday.GetByID(ctx, workdayID)
	if err != nil {
		return nil, s.fail(workdayID, notFoundOr(err, ErrWorkdayNotFound))
	}
	if !w.Status.CanTransitionTo(model.WorkdayStatusClosedPendingApproval) {
		return nil, ErrInvalidTransition
	}
	if _, err := s.plan(ctx, s.repo, w, req, callerID); err != nil {
		return nil, s.fail(workdayID, err)
	}

	// 2. 原子提交；聚合冲突时整笔重跑
	var resp *dto.CloseWorkdayResponse
	err = withAggregationRetry(ctx, s.logger, "close_workday", s.retries, func() error {
		resp = nil
		txErr := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
			r, err := s.commit(ctx, tx, workdayID, req, callerID)
			resp = r
			return err
		})
		return storageErr(txErr)
	})
	if err != nil {
		return nil, s.fail(workdayID, err)
	}

	s.logger.Info("工作日已闭合",
		zap.String("workday_id", workdayID),
		zap.String("caller", callerID),
		zap.Int("blockers", len(req.Blockers)),
		zap.Int("progress_updates", len(req.ScheduleTaskUpdates)),
		zap.Int("nodes", len(resp.Nodes)),
		zap.Int("warnings", len(resp.Warnings)),
	)
	return resp, nil
}

// commit 在事务内：锁行 → 复核 → 状态/备注 → 阻碍 → 计划任务百分比 → 节点重算
func (s *closingService) commit(ctx context.Context, tx *repository.Repository, workdayID string, req *dto.CloseWorkdayRequest, callerID string) (*dto.CloseWorkdayResponse, error) {
	w, err := lockWorkday(ctx, tx, workdayID)
	if err != nil {
		return nil, err
	}
	if !w.Status.CanTransitionTo(model.WorkdayStatusClosedPendingApproval) {
		return nil, ErrInvalidTransition
	}

	// 锁内复核：预校验之后可能有并发的登记修改
	plan, err := s.plan(ctx, tx, w, req, callerID)
	if err != nil {
		return nil, err
	}

	// (a)(c) 状态与备注
	now := s.now()
	w.Status = model.WorkdayStatusClosedPendingApproval
	w.AvanceDia = strings.TrimSpace(req.AvanceDia)
	w.PlanSiguiente = strings.TrimSpace(req.PlanSiguiente)
	w.ClosedAt = &now
	w.ClosedBy = ptr(callerID)
	w.SetActor(callerID)
	if err := tx.Workday.Update(ctx, w); err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return nil, ErrInvalidTransition
		}
		return nil, storageErr(err)
	}

	// (b) 阻碍
	if err := tx.Blocker.BatchCreate(ctx, plan.blockers); err != nil {
		return nil, storageErr(err)
	}

	// (d) 计划任务完成百分比
	for i := range plan.progress {
		if err := tx.ScheduleTask.UpdateCompletion(ctx, &plan.progress[i]); err != nil {
			if errors.Is(err, pkgerrors.ErrOptimisticLock) {
				return nil, fmt.Errorf("%w: 计划任务 %s 已被并发修改", ErrAggregationConflict, plan.progress[i].ScheduleTaskID)
			}
			return nil, storageErr(err)
		}
	}

	// (e) 节点重算
	nodeIDs, err := tx.Ledger.NodesOfWorkday(ctx, workdayID)
	if err != nil {
		return nil, storageErr(err)
	}
	nodes, err := s.aggregator.Recompute(ctx, tx, nodeIDs)
	if err != nil {
		return nil, storageErr(err)
	}

	closed, err := tx.Workday.GetByID(ctx, workdayID)
	if err != nil {
		return nil, storageErr(err)
	}
	return &dto.CloseWorkdayResponse{
		Workday:  toWorkdayResponse(closed),
		Nodes:    toNodeAggregates(nodes),
		Warnings: toWarningResponses(plan.warnings),
	}, nil
}

// plan 加载校验所需的字典与计划任务，收集三个阶段的全部问题
func (s *closingService) plan(ctx context.Context, repo *repository.Repository, w *model.Workday, req *dto.CloseWorkdayRequest, callerID string) (*closePlan, error) {
	var typeIDs []string
	for _, b := range req.Blockers {
		if id := strings.TrimSpace(b.BlockerTypeID); id != "" {
			typeIDs = append(typeIDs, id)
		}
	}
	types, err := repo.BlockerType.ListByIDs(ctx, typeIDs)
	if err != nil {
		return nil, storageErr(err)
	}
	typeByID := make(map[string]model.BlockerType, len(types))
	for _, t := range types {
		typeByID[t.BlockerTypeID] = t
	}

	tasks, err := repo.ScheduleTask.ListByIDs(ctx, w.LinkedScheduleTaskIDs())
	if err != nil {
		return nil, storageErr(err)
	}
	taskByID := make(map[string]model.ScheduleTask, len(tasks))
	for _, t := range tasks {
		taskByID[t.ScheduleTaskID] = t
	}

	plan, issues := validateClose(w, req, typeByID, taskByID, callerID)
	if err := issues.err(); err != nil {
		return nil, err
	}
	return plan, nil
}

// validateClose 纯校验：不读写存储
func validateClose(
	w *model.Workday,
	req *dto.CloseWorkdayRequest,
	blockerTypes map[string]model.BlockerType,
	scheduleTasks map[string]model.ScheduleTask,
	callerID string,
) (*closePlan, validationIssues) {
	var issues validationIssues
	plan := &closePlan{}

	// ── 阶段一：工时 ──
	for _, t := range w.Tasks {
		for _, m := range t.Members {
			switch {
			case m.Hours <= 0:
				issue := issues.add(ErrIncompleteHoursAllocation, IssueIncompleteHours, "hours",
					fmt.Sprintf("任务 %s 的成员 %s 未分配工时", t.DisplayName(), m.PersonID))
				issue.TaskID, issue.MemberID, issue.PersonID = t.TaskID, m.MemberID, m.PersonID
			case m.Hours > 24:
				issue := issues.add(ErrInvalidHours, IssueInvalidHoursRange, "hours",
					fmt.Sprintf("任务 %s 的成员 %s 工时 %.1f 超过 24", t.DisplayName(), m.PersonID, m.Hours))
				issue.TaskID, issue.MemberID, issue.PersonID = t.TaskID, m.MemberID, m.PersonID
			}
		}
	}
	plan.warnings = personHourWarnings(assignmentsOf(w))

	// ── 阶段二：阻碍 ──
	for i, b := range req.Blockers {
		field := fmt.Sprintf("blockers[%d]", i)
		typeID := strings.TrimSpace(b.BlockerTypeID)
		description := strings.TrimSpace(b.Description)
		valid := true
		if typeID == "" {
			issues.add(ErrInvalidBlocker, IssueInvalidBlocker, field+".blocker_type_id", "阻碍类型不能为空")
			valid = false
		} else if bt, ok := blockerTypes[typeID]; !ok || !bt.IsActive {
			issues.add(ErrInvalidBlocker, IssueInvalidBlocker, field+".blocker_type_id", "阻碍类型不存在或已停用")
			valid = false
		}
		if description == "" {
			issues.add(ErrInvalidBlocker, IssueInvalidBlocker, field+".description", "阻碍描述不能为空")
			valid = false
		}
		if !valid {
			continue
		}
		blocker := model.Blocker{
			WorkdayID:     w.WorkdayID,
			BlockerTypeID: typeID,
			Description:   description,
			ImpactNote:    strings.TrimSpace(b.ImpactNote),
		}
		blocker.SetActor(callerID)
		plan.blockers = append(plan.blockers, blocker)
	}

	// ── 阶段三：闭合备注与计划任务进度 ──
	if strings.TrimSpace(req.AvanceDia) == "" {
		issues.add(ErrMissingClosureSummary, IssueMissingSummary, "avance_dia", "当日进展不能为空")
	}

	linked := w.LinkedScheduleTaskIDs()
	isLinked := make(map[string]bool, len(linked))
	for _, id := range linked {
		isLinked[id] = true
	}

	submitted := make(map[string]float64, len(req.ScheduleTaskUpdates))
	for i, u := range req.ScheduleTaskUpdates {
		field := fmt.Sprintf("schedule_task_updates[%d]", i)
		id := strings.TrimSpace(u.ScheduleTaskID)
		switch {
		case id == "" || !isLinked[id]:
			issue := issues.add(ErrInvalidProgressUpdate, IssueInvalidProgress, field+".schedule_task_id",
				"提交的计划任务未被本工作日的任务引用")
			issue.ScheduleTaskID = id
		case hasKey(submitted, id):
			issue := issues.add(ErrInvalidProgressUpdate, IssueInvalidProgress, field+".schedule_task_id",
				"同一计划任务重复提交完成百分比")
			issue.ScheduleTaskID = id
		case u.CompletionPct == nil:
			issue := issues.add(ErrInvalidProgressUpdate, IssueInvalidProgress, field+".completion_pct",
				"必须提交完成百分比")
			issue.ScheduleTaskID = id
		case !validPercent(*u.CompletionPct):
			issue := issues.add(ErrInvalidProgressUpdate, IssueInvalidProgress, field+".completion_pct",
				fmt.Sprintf("完成百分比 %v 超出 0-100", *u.CompletionPct))
			issue.ScheduleTaskID = id
		default:
			submitted[id] = *u.CompletionPct
		}
	}

	for _, id := range linked {
		st, exists := scheduleTasks[id]
		if !exists {
			issue := issues.add(ErrInvalidTaskReference, IssueInvalidTaskRef, "tasks", "引用的计划任务已不存在")
			issue.ScheduleTaskID = id
			continue
		}
		pct, ok := submitted[id]
		if !ok {
			if !hasUpdateFor(req.ScheduleTaskUpdates, id) {
				issue := issues.add(ErrInvalidProgressUpdate, IssueInvalidProgress, "schedule_task_updates",
					fmt.Sprintf("计划任务 %s 缺少完成百分比", st.Name))
				issue.ScheduleTaskID = id
			}
			continue
		}
		st.CompletionPct = pct
		st.UpdatedBy = ptr(callerID)
		plan.progress = append(plan.progress, st)
	}

	return plan, issues
}

func (s *closingService) fail(workdayID string, err error) error {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		s.logger.Info("工作日闭合校验未通过",
			zap.String("workday_id", workdayID), zap.Strings("kinds", ve.Kinds()), zap.Int("issues", len(ve.Issues)))
	case errors.Is(err, ErrPersistenceFailure), errors.Is(err, ErrAggregationConflict):
		s.logger.Error("工作日闭合失败，已整体回滚", zap.String("workday_id", workdayID), zap.Error(err))
	}
	return err
}

func validPercent(p float64) bool {
	return !math.IsNaN(p) && p >= 0 && p <= 100
}

func hasKey(m map[string]float64, k string) bool {
	_, ok := m[k]
	return ok
}

// hasUpdateFor 是否已为该计划任务提交过（可能无效的）百分比，避免重复报“缺少”
func hasUpdateFor(updates []dto.ScheduleTaskUpdateInput, id string) bool {
	for _, u := range updates {
		if strings.TrimSpace(u.ScheduleTaskID) == id {
			return true
		}
	}
	return false
}

// notFoundOr gorm 未找到 → notFound，其余按存储错误分类
func notFoundOr(err error, notFound error) error {
	if isRecordNotFound(err) {
		return notFound
	}
	return storageErr(err)
}
