package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/jesusartemio-dev/gyscontrol-app-sub002/internal/allocation"
	"github.com/jesusartemio-dev/gyscontrol-app-sub002/internal/dto"
	"github.com/jesusartemio-dev/gyscontrol-app-sub002/internal/model"
	"github.com/jesusartemio-dev/gyscontrol-app-sub002/internal/repository"
)

// TaskService 工作日任务登记接口
// 所有修改仅在工作日 active 时允许，并在自身短事务内锁定所属工作日行
type TaskService interface {
	// AddTask 添加任务；未指定工时的成员按默认分配预填
	AddTask(ctx context.Context, workdayID string, req *dto.AddTaskRequest, callerID string) (*dto.TaskResponse, error)
	UpdateTask(ctx context.Context, taskID string, req *dto.UpdateTaskRequest, callerID string) (*dto.TaskResponse, error)
	// RemoveTask 删除任务及其成员
	RemoveTask(ctx context.Context, taskID string, callerID string) error
	AddMember(ctx context.Context, taskID string, req *dto.TaskMemberInput, callerID string) (*dto.MemberResponse, error)
	RemoveMember(ctx context.Context, memberID string, callerID string) error
	// SetMemberHours 工时必须在 (0, 24] 区间
	SetMemberHours(ctx context.Context, memberID string, req *dto.SetMemberHoursRequest, callerID string) (*dto.MemberResponse, error)
	// SuggestAllocation 只读预览默认分配
	SuggestAllocation(ctx context.Context, workdayID string) (*dto.AllocationResponse, error)
	// ApplyDefaultHours 将默认分配写入工时为 0 的成员
	ApplyDefaultHours(ctx context.Context, workdayID string, callerID string) (*dto.AllocationResponse, error)
}

type taskService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewTaskService 创建 TaskService 实例
func NewTaskService(repo *repository.Repository, logger *zap.Logger) TaskService {
	return &taskService{repo: repo, logger: logger}
}

// ── AddTask ──

func (s *taskService) AddTask(ctx context.Context, workdayID string, req *dto.AddTaskRequest, callerID string) (*dto.TaskResponse, error) {
	kind, err := model.NewTaskKind(req.ScheduleTaskID, req.AdHocName)
	if err != nil {
		return nil, ErrInvalidTaskReference
	}
	if err := validateMemberInputs(req.Members); err != nil {
		return nil, err
	}

	var created *model.WorkdayTask
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		w, err := lockWorkday(ctx, tx, workdayID)
		if err != nil {
			return err
		}
		if !w.IsActive() {
			return ErrWorkdayNotActive
		}
		if err := checkScheduleTaskRef(ctx, tx, w, kind); err != nil {
			return err
		}

		task := &model.WorkdayTask{WorkdayID: w.WorkdayID, Description: strings.TrimSpace(req.Description)}
		task.SetKind(kind)
		task.SetActor(callerID)
		for _, in := range req.Members {
			member := model.TaskMember{
				PersonID: strings.TrimSpace(in.PersonID),
				Notes:    in.Notes,
			}
			if in.Hours != nil {
				member.Hours = *in.Hours
			} else {
				member.Hours = allocation.SeedHours(taskCountFor(w, member.PersonID, true))
				member.HoursSeeded = true
			}
			member.SetActor(callerID)
			task.Members = append(task.Members, member)
		}

		if err := tx.WorkdayTask.Create(ctx, task); err != nil {
			return storageErr(err)
		}
		if err := reseedPersons(ctx, tx, w.WorkdayID, personsOf(task.Members), callerID); err != nil {
			return err
		}
		if created, err = tx.WorkdayTask.GetByID(ctx, task.TaskID); err != nil {
			return storageErr(err)
		}
		return nil
	})
	if err != nil {
		s.logFailure("添加任务失败", err, zap.String("workday_id", workdayID))
		return nil, err
	}

	resp := toTaskResponse(created)
	return &resp, nil
}

// ── UpdateTask ──

func (s *taskService) UpdateTask(ctx context.Context, taskID string, req *dto.UpdateTaskRequest, callerID string) (*dto.TaskResponse, error) {
	var kind model.TaskKind
	if req.ScheduleTaskID != nil || req.AdHocName != nil {
		k, err := model.NewTaskKind(req.ScheduleTaskID, req.AdHocName)
		if err != nil {
			return nil, ErrInvalidTaskReference
		}
		kind = k
	}

	var updated *model.WorkdayTask
	err := s.withActiveTask(ctx, taskID, func(tx *repository.Repository, w *model.Workday, task *model.WorkdayTask) error {
		if kind != nil {
			if err := checkScheduleTaskRef(ctx, tx, w, kind); err != nil {
				return err
			}
			task.SetKind(kind)
		}
		if req.Description != nil {
			task.Description = strings.TrimSpace(*req.Description)
		}
		task.SetActor(callerID)

		if err := tx.WorkdayTask.Update(ctx, task); err != nil {
			return storageErr(err)
		}
		var err error
		if updated, err = tx.WorkdayTask.GetByID(ctx, taskID); err != nil {
			return storageErr(err)
		}
		return nil
	})
	if err != nil {
		s.logFailure("修改任务失败", err, zap.String("task_id", taskID))
		return nil, err
	}

	resp := toTaskResponse(updated)
	return &resp, nil
}

// ── RemoveTask ──

func (s *taskService) RemoveTask(ctx context.Context, taskID string, callerID string) error {
	err := s.withActiveTask(ctx, taskID, func(tx *repository.Repository, w *model.Workday, task *model.WorkdayTask) error {
		if err := tx.WorkdayTask.Delete(ctx, taskID); err != nil {
			return storageErr(err)
		}
		return reseedPersons(ctx, tx, w.WorkdayID, personsOf(task.Members), callerID)
	})
	if err != nil {
		s.logFailure("删除任务失败", err, zap.String("task_id", taskID))
		return err
	}
	s.logger.Info("任务已删除", zap.String("task_id", taskID), zap.String("caller", callerID))
	return nil
}

// ── 成员 ──

func (s *taskService) AddMember(ctx context.Context, taskID string, req *dto.TaskMemberInput, callerID string) (*dto.MemberResponse, error) {
	if err := validateMemberInputs([]dto.TaskMemberInput{*req}); err != nil {
		return nil, err
	}
	personID := strings.TrimSpace(req.PersonID)

	var member model.TaskMember
	err := s.withActiveTask(ctx, taskID, func(tx *repository.Repository, w *model.Workday, _ *model.WorkdayTask) error {
		exists, err := tx.TaskMember.ExistsInTask(ctx, taskID, personID)
		if err != nil {
			return storageErr(err)
		}
		if exists {
			return ErrDuplicateTaskMember
		}

		member = model.TaskMember{TaskID: taskID, PersonID: personID, Notes: req.Notes}
		if req.Hours != nil {
			member.Hours = *req.Hours
		} else {
			member.Hours = allocation.SeedHours(taskCountFor(w, personID, true))
			member.HoursSeeded = true
		}
		member.SetActor(callerID)
		if err := tx.TaskMember.Create(ctx, &member); err != nil {
			return storageErr(err)
		}
		if err := reseedPersons(ctx, tx, w.WorkdayID, []string{personID}, callerID); err != nil {
			return err
		}
		reloaded, err := tx.TaskMember.GetByID(ctx, member.MemberID)
		if err != nil {
			return storageErr(err)
		}
		member = *reloaded
		return nil
	})
	if err != nil {
		s.logFailure("添加成员失败", err, zap.String("task_id", taskID))
		return nil, err
	}

	resp := toMemberResponse(&member)
	return &resp, nil
}

func (s *taskService) RemoveMember(ctx context.Context, memberID string, callerID string) error {
	err := s.withActiveMember(ctx, memberID, func(tx *repository.Repository, m *model.TaskMember) error {
		if err := tx.TaskMember.Delete(ctx, memberID); err != nil {
			return storageErr(err)
		}
		task, err := tx.WorkdayTask.GetByID(ctx, m.TaskID)
		if err != nil {
			return storageErr(err)
		}
		return reseedPersons(ctx, tx, task.WorkdayID, []string{m.PersonID}, callerID)
	})
	if err != nil {
		s.logFailure("删除成员失败", err, zap.String("member_id", memberID))
		return err
	}
	s.logger.Info("成员已删除", zap.String("member_id", memberID), zap.String("caller", callerID))
	return nil
}

func (s *taskService) SetMemberHours(ctx context.Context, memberID string, req *dto.SetMemberHoursRequest, callerID string) (*dto.MemberResponse, error) {
	if req.Hours == nil || !validMemberHours(*req.Hours) {
		return nil, ErrInvalidHours
	}

	var member *model.TaskMember
	err := s.withActiveMember(ctx, memberID, func(tx *repository.Repository, m *model.TaskMember) error {
		m.Hours = *req.Hours
		m.HoursSeeded = false
		if req.Notes != nil {
			m.Notes = *req.Notes
		}
		m.SetActor(callerID)
		member = m
		return storageErr(tx.TaskMember.UpdateHours(ctx, m))
	})
	if err != nil {
		s.logFailure("设置工时失败", err, zap.String("member_id", memberID))
		return nil, err
	}

	resp := toMemberResponse(member)
	return &resp, nil
}

// ── 默认分配 ──

func (s *taskService) SuggestAllocation(ctx context.Context, workdayID string) (*dto.AllocationResponse, error) {
	w, err := s.repo.Workday.GetByID(ctx, workdayID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkdayNotFound
		}
		s.logger.Error("查询工作日失败", zap.String("workday_id", workdayID), zap.Error(err))
		return nil, storageErr(err)
	}
	return buildAllocationResponse(w, allocation.Suggest(assignmentsOf(w)), 0), nil
}

func (s *taskService) ApplyDefaultHours(ctx context.Context, workdayID string, callerID string) (*dto.AllocationResponse, error) {
	var resp *dto.AllocationResponse
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		w, err := lockWorkday(ctx, tx, workdayID)
		if err != nil {
			return err
		}
		if !w.IsActive() {
			return ErrWorkdayNotActive
		}

		suggestions := allocation.Suggest(assignmentsOf(w))
		applied := 0
		current := make(map[string]allocation.Assignment)
		for _, a := range assignmentsOf(w) {
			current[a.MemberID] = a
		}
		for _, sg := range suggestions {
			if !sg.Seeded || sg.Hours <= 0 {
				continue
			}
			if prev := current[sg.MemberID]; prev.Seeded && prev.Hours == sg.Hours {
				continue
			}
			member := &model.TaskMember{MemberID: sg.MemberID, Hours: sg.Hours, HoursSeeded: true}
			member.SetActor(callerID)
			if err := tx.TaskMember.UpdateHours(ctx, withNotes(w, member)); err != nil {
				return storageErr(err)
			}
			applied++
		}
		resp = buildAllocationResponse(w, suggestions, applied)
		return nil
	})
	if err != nil {
		s.logFailure("写入默认工时失败", err, zap.String("workday_id", workdayID))
		return nil, err
	}
	return resp, nil
}

// ── 内部辅助方法 ──

// withActiveTask 锁定任务所属工作日并确认其 active 后执行 fn
func (s *taskService) withActiveTask(ctx context.Context, taskID string,
	fn func(tx *repository.Repository, w *model.Workday, task *model.WorkdayTask) error) error {
	task, err := s.repo.WorkdayTask.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return storageErr(err)
	}

	return s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		w, err := lockWorkday(ctx, tx, task.WorkdayID)
		if err != nil {
			return err
		}
		if !w.IsActive() {
			return ErrWorkdayNotActive
		}
		// 锁内重读，避免与并发删除交错
		locked, err := tx.WorkdayTask.GetByID(ctx, taskID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTaskNotFound
			}
			return storageErr(err)
		}
		return fn(tx, w, locked)
	})
}

// withActiveMember 锁定成员所属工作日并确认其 active 后执行 fn
func (s *taskService) withActiveMember(ctx context.Context, memberID string,
	fn func(tx *repository.Repository, m *model.TaskMember) error) error {
	member, err := s.repo.TaskMember.GetByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMemberNotFound
		}
		return storageErr(err)
	}

	return s.withActiveTask(ctx, member.TaskID, func(tx *repository.Repository, _ *model.Workday, _ *model.WorkdayTask) error {
		locked, err := tx.TaskMember.GetByID(ctx, memberID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMemberNotFound
			}
			return storageErr(err)
		}
		return fn(tx, locked)
	})
}

func (s *taskService) logFailure(msg string, err error, fields ...zap.Field) {
	fields = append(fields, zap.Error(err))
	if errors.Is(err, ErrPersistenceFailure) || errors.Is(err, ErrAggregationConflict) {
		s.logger.Error(msg, fields...)
		return
	}
	s.logger.Debug(msg, fields...)
}

// validateMemberInputs 新增成员的静态校验：人员非空、同一请求内不重复、显式工时在 [0, 24]
func validateMemberInputs(members []dto.TaskMemberInput) error {
	seen := make(map[string]bool, len(members))
	for _, m := range members {
		personID := strings.TrimSpace(m.PersonID)
		if personID == "" {
			return ErrInvalidMember
		}
		if seen[personID] {
			return ErrDuplicateTaskMember
		}
		seen[personID] = true
		if m.Hours != nil && !allocation.ValidHours(*m.Hours) {
			return ErrInvalidHours
		}
	}
	return nil
}

// checkScheduleTaskRef 计划任务必须存在且属于工作日所在项目
func checkScheduleTaskRef(ctx context.Context, repo *repository.Repository, w *model.Workday, kind model.TaskKind) error {
	scheduled, ok := kind.(model.ScheduledTask)
	if !ok {
		return nil
	}
	st, err := repo.ScheduleTask.GetByID(ctx, scheduled.ScheduleTaskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidTaskReference
		}
		return storageErr(err)
	}
	if st.ScheduleNode != nil && st.ScheduleNode.ProjectID != w.ProjectID {
		return ErrInvalidTaskReference
	}
	return nil
}

// lockWorkday 在事务内对工作日行加锁并加载明细
func lockWorkday(ctx context.Context, tx *repository.Repository, workdayID string) (*model.Workday, error) {
	w, err := tx.Workday.GetByIDForUpdate(ctx, workdayID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkdayNotFound
		}
		return nil, storageErr(err)
	}
	return w, nil
}

// reseedPersons 按人员当前参与的任务数 N，将其默认分配行重算为 SeedHours(N)。
// 显式录入的工时不受影响。
func reseedPersons(ctx context.Context, tx *repository.Repository, workdayID string, personIDs []string, callerID string) error {
	if len(personIDs) == 0 {
		return nil
	}
	w, err := tx.Workday.GetByID(ctx, workdayID)
	if err != nil {
		return storageErr(err)
	}

	affected := make(map[string]bool, len(personIDs))
	for _, p := range personIDs {
		affected[p] = true
	}
	for _, t := range w.Tasks {
		for i := range t.Members {
			m := t.Members[i]
			if !affected[m.PersonID] || !m.HoursSeeded {
				continue
			}
			seed := allocation.SeedHours(taskCountFor(w, m.PersonID, false))
			if m.Hours == seed {
				continue
			}
			m.Hours = seed
			m.SetActor(callerID)
			if err := tx.TaskMember.UpdateHours(ctx, &m); err != nil {
				return storageErr(err)
			}
		}
	}
	return nil
}

func personsOf(members []model.TaskMember) []string {
	out := make([]string, 0, len(members))
	for _, m := range members {
		out = append(out, m.PersonID)
	}
	return out
}

// withNotes 写回成员原有备注，UpdateHours 会整体覆盖 notes 列
func withNotes(w *model.Workday, member *model.TaskMember) *model.TaskMember {
	for _, t := range w.Tasks {
		for _, m := range t.Members {
			if m.MemberID == member.MemberID {
				member.Notes = m.Notes
				return member
			}
		}
	}
	return member
}

func buildAllocationResponse(w *model.Workday, suggestions []allocation.Suggestion, applied int) *dto.AllocationResponse {
	resp := &dto.AllocationResponse{
		WorkdayID: w.WorkdayID,
		Items:     make([]dto.AllocationItem, 0, len(suggestions)),
		Applied:   applied,
	}
	preview := make([]allocation.Assignment, 0, len(suggestions))
	for _, sg := range suggestions {
		resp.Items = append(resp.Items, dto.AllocationItem{
			TaskID:   sg.TaskID,
			MemberID: sg.MemberID,
			PersonID: sg.PersonID,
			Hours:    sg.Hours,
			Seeded:   sg.Seeded,
		})
		preview = append(preview, allocation.Assignment{TaskID: sg.TaskID, PersonID: sg.PersonID, Hours: sg.Hours})
	}
	resp.Warnings = toWarningResponses(personHourWarnings(preview))
	return resp
}
