package repository

import (
	"context"
	"sort"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jesusartemio-dev/gyscontrol-app-sub002/internal/model"
	pkgerrors "github.com/jesusartemio-dev/gyscontrol-app-sub002/pkg/errors"
)

// ScheduleNodeRepository 进度计划节点（EDT）数据访问接口
type ScheduleNodeRepository interface {
	Create(ctx context.Context, node *model.ScheduleNode) error
	GetByID(ctx context.Context, id string) (*model.ScheduleNode, error)
	// LockByIDs 按 ID 升序对节点行加 FOR UPDATE NOWAIT；锁不可用时立即返回错误。必须在事务内调用
	LockByIDs(ctx context.Context, ids []string) ([]model.ScheduleNode, error)
	List(ctx context.Context) ([]model.ScheduleNode, error)
	UpdateAggregates(ctx context.Context, id string, actualHours, completionPct float64, at time.Time) error
}

// ScheduleTaskRepository 进度计划任务数据访问接口
type ScheduleTaskRepository interface {
	Create(ctx context.Context, task *model.ScheduleTask) error
	GetByID(ctx context.Context, id string) (*model.ScheduleTask, error)
	ListByIDs(ctx context.Context, ids []string) ([]model.ScheduleTask, error)
	ListByNodes(ctx context.Context, nodeIDs []string) ([]model.ScheduleTask, error)
	List(ctx context.Context) ([]model.ScheduleTask, error)
	// UpdateCompletion 写入提交的完成百分比（乐观锁）
	UpdateCompletion(ctx context.Context, task *model.ScheduleTask) error
	UpdateActualHours(ctx context.Context, id string, hours float64) error
}

// ── ScheduleNode Repository 实现 ──

type scheduleNodeRepo struct {
	db *gorm.DB
}

func NewScheduleNodeRepo(db *gorm.DB) ScheduleNodeRepository {
	return &scheduleNodeRepo{db: db}
}

func (r *scheduleNodeRepo) Create(ctx context.Context, node *model.ScheduleNode) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(node).Error
}

func (r *scheduleNodeRepo) GetByID(ctx context.Context, id string) (*model.ScheduleNode, error) {
	var node model.ScheduleNode
	err := r.db.WithContext(ctx).
		Preload("Tasks", func(db *gorm.DB) *gorm.DB { return db.Order("name ASC") }).
		Where("schedule_node_id = ?", id).
		First(&node).Error
	if err != nil {
		return nil, err
	}
	return &node, nil
}

func (r *scheduleNodeRepo) LockByIDs(ctx context.Context, ids []string) ([]model.ScheduleNode, error) {
	var nodes []model.ScheduleNode
	if len(ids) == 0 {
		return nodes, nil
	}
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "NOWAIT"}).
		Where("schedule_node_id IN ?", sorted).
		Order("schedule_node_id ASC").
		Find(&nodes).Error
	return nodes, err
}

func (r *scheduleNodeRepo) List(ctx context.Context) ([]model.ScheduleNode, error) {
	var nodes []model.ScheduleNode
	err := r.db.WithContext(ctx).Order("project_id ASC, code ASC").Find(&nodes).Error
	return nodes, err
}

func (r *scheduleNodeRepo) UpdateAggregates(ctx context.Context, id string, actualHours, completionPct float64, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&model.ScheduleNode{}).
		Where("schedule_node_id = ?", id).
		Updates(map[string]interface{}{
			"actual_hours":   actualHours,
			"completion_pct": completionPct,
			"recomputed_at":  at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ── ScheduleTask Repository 实现 ──

type scheduleTaskRepo struct {
	db *gorm.DB
}

func NewScheduleTaskRepo(db *gorm.DB) ScheduleTaskRepository {
	return &scheduleTaskRepo{db: db}
}

func (r *scheduleTaskRepo) Create(ctx context.Context, task *model.ScheduleTask) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(task).Error
}

func (r *scheduleTaskRepo) GetByID(ctx context.Context, id string) (*model.ScheduleTask, error) {
	var task model.ScheduleTask
	err := r.db.WithContext(ctx).
		Preload("ScheduleNode").
		Where("schedule_task_id = ?", id).
		First(&task).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *scheduleTaskRepo) ListByIDs(ctx context.Context, ids []string) ([]model.ScheduleTask, error) {
	var tasks []model.ScheduleTask
	if len(ids) == 0 {
		return tasks, nil
	}
	err := r.db.WithContext(ctx).
		Preload("ScheduleNode").
		Where("schedule_task_id IN ?", ids).
		Find(&tasks).Error
	return tasks, err
}

func (r *scheduleTaskRepo) ListByNodes(ctx context.Context, nodeIDs []string) ([]model.ScheduleTask, error) {
	var tasks []model.ScheduleTask
	if len(nodeIDs) == 0 {
		return tasks, nil
	}
	err := r.db.WithContext(ctx).
		Where("schedule_node_id IN ?", nodeIDs).
		Order("schedule_node_id ASC, schedule_task_id ASC").
		Find(&tasks).Error
	return tasks, err
}

func (r *scheduleTaskRepo) List(ctx context.Context) ([]model.ScheduleTask, error) {
	var tasks []model.ScheduleTask
	err := r.db.WithContext(ctx).
		Order("schedule_node_id ASC, schedule_task_id ASC").
		Find(&tasks).Error
	return tasks, err
}

func (r *scheduleTaskRepo) UpdateCompletion(ctx context.Context, task *model.ScheduleTask) error {
	oldVersion := task.Version
	result := r.db.WithContext(ctx).
		Model(&model.ScheduleTask{}).
		Where("schedule_task_id = ? AND version = ?", task.ScheduleTaskID, oldVersion).
		Updates(map[string]interface{}{
			"completion_pct": task.CompletionPct,
			"updated_by":     task.UpdatedBy,
			"version":        oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	task.Version = oldVersion + 1
	return nil
}

func (r *scheduleTaskRepo) UpdateActualHours(ctx context.Context, id string, hours float64) error {
	return r.db.WithContext(ctx).
		Model(&model.ScheduleTask{}).
		Where("schedule_task_id = ?", id).
		Update("actual_hours", hours).Error
}
