package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jesusartemio-dev/gyscontrol-app-sub002/internal/model"
)

// WorkdayTaskRepository 工作日任务数据访问接口
type WorkdayTaskRepository interface {
	// Create 创建任务及其 Members
	Create(ctx context.Context, task *model.WorkdayTask) error
	GetByID(ctx context.Context, id string) (*model.WorkdayTask, error)
	ListByWorkday(ctx context.Context, workdayID string) ([]model.WorkdayTask, error)
	Update(ctx context.Context, task *model.WorkdayTask) error
	// Delete 级联删除任务成员
	Delete(ctx context.Context, id string) error
}

// TaskMemberRepository 任务成员工时数据访问接口
type TaskMemberRepository interface {
	Create(ctx context.Context, member *model.TaskMember) error
	GetByID(ctx context.Context, id string) (*model.TaskMember, error)
	ListByTask(ctx context.Context, taskID string) ([]model.TaskMember, error)
	ExistsInTask(ctx context.Context, taskID, personID string) (bool, error)
	UpdateHours(ctx context.Context, member *model.TaskMember) error
	Delete(ctx context.Context, id string) error
}

// ── WorkdayTask Repository 实现 ──

type workdayTaskRepo struct {
	db *gorm.DB
}

func NewWorkdayTaskRepo(db *gorm.DB) WorkdayTaskRepository {
	return &workdayTaskRepo{db: db}
}

func (r *workdayTaskRepo) Create(ctx context.Context, task *model.WorkdayTask) error {
	// 只级联 Members，不回写 ScheduleTask
	return r.db.WithContext(ctx).Omit("ScheduleTask").Create(task).Error
}

func (r *workdayTaskRepo) GetByID(ctx context.Context, id string) (*model.WorkdayTask, error) {
	var task model.WorkdayTask
	err := r.db.WithContext(ctx).
		Preload("ScheduleTask").
		Preload("Members", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, member_id ASC") }).
		Where("task_id = ?", id).
		First(&task).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *workdayTaskRepo) ListByWorkday(ctx context.Context, workdayID string) ([]model.WorkdayTask, error) {
	var tasks []model.WorkdayTask
	err := r.db.WithContext(ctx).
		Preload("ScheduleTask").
		Preload("Members").
		Where("workday_id = ?", workdayID).
		Order("created_at ASC, task_id ASC").
		Find(&tasks).Error
	return tasks, err
}

func (r *workdayTaskRepo) Update(ctx context.Context, task *model.WorkdayTask) error {
	return r.db.WithContext(ctx).
		Model(&model.WorkdayTask{}).
		Where("task_id = ?", task.TaskID).
		Updates(map[string]interface{}{
			"schedule_task_id": task.ScheduleTaskID,
			"ad_hoc_name":      task.AdHocName,
			"description":      task.Description,
			"updated_by":       task.UpdatedBy,
		}).Error
}

func (r *workdayTaskRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", id).Delete(&model.TaskMember{}).Error; err != nil {
			return err
		}
		return tx.Where("task_id = ?", id).Delete(&model.WorkdayTask{}).Error
	})
}

// ── TaskMember Repository 实现 ──

type taskMemberRepo struct {
	db *gorm.DB
}

func NewTaskMemberRepo(db *gorm.DB) TaskMemberRepository {
	return &taskMemberRepo{db: db}
}

func (r *taskMemberRepo) Create(ctx context.Context, member *model.TaskMember) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(member).Error
}

func (r *taskMemberRepo) GetByID(ctx context.Context, id string) (*model.TaskMember, error) {
	var member model.TaskMember
	err := r.db.WithContext(ctx).Where("member_id = ?", id).First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *taskMemberRepo) ListByTask(ctx context.Context, taskID string) ([]model.TaskMember, error) {
	var members []model.TaskMember
	err := r.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("created_at ASC, member_id ASC").
		Find(&members).Error
	return members, err
}

func (r *taskMemberRepo) ExistsInTask(ctx context.Context, taskID, personID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.TaskMember{}).
		Where("task_id = ? AND person_id = ?", taskID, personID).
		Count(&count).Error
	return count > 0, err
}

func (r *taskMemberRepo) UpdateHours(ctx context.Context, member *model.TaskMember) error {
	result := r.db.WithContext(ctx).
		Model(&model.TaskMember{}).
		Where("member_id = ?", member.MemberID).
		Updates(map[string]interface{}{
			"hours":        member.Hours,
			"hours_seeded": member.HoursSeeded,
			"notes":        member.Notes,
			"updated_by":   member.UpdatedBy,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *taskMemberRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("member_id = ?", id).Delete(&model.TaskMember{}).Error
}
