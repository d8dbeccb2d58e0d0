package repository

import (
	"context"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jesusartemio-dev/gyscontrol-app-sub002/internal/model"
	pkgerrors "github.com/jesusartemio-dev/gyscontrol-app-sub002/pkg/errors"
)

// WorkdayFilter 工作日列表筛选条件
type WorkdayFilter struct {
	ProjectID string
	CrewID    string
	Status    model.WorkdayStatus
	DateFrom  *datatypes.Date
	DateTo    *datatypes.Date
}

// WorkdayRepository 工作日数据访问接口
type WorkdayRepository interface {
	Create(ctx context.Context, workday *model.Workday) error
	GetByID(ctx context.Context, id string) (*model.Workday, error)
	// GetByIDForUpdate 先对工作日行加 SELECT ... FOR UPDATE，再加载完整明细；必须在事务内调用
	GetByIDForUpdate(ctx context.Context, id string) (*model.Workday, error)
	FindActive(ctx context.Context, projectID, crewID string, date datatypes.Date) (*model.Workday, error)
	List(ctx context.Context, filter WorkdayFilter, offset, limit int) ([]model.Workday, int64, error)
	Update(ctx context.Context, workday *model.Workday) error
	// Delete 级联删除任务成员、任务与阻碍记录
	Delete(ctx context.Context, id string) error
}

type workdayRepo struct {
	db *gorm.DB
}

func NewWorkdayRepo(db *gorm.DB) WorkdayRepository {
	return &workdayRepo{db: db}
}

func (r *workdayRepo) Create(ctx context.Context, workday *model.Workday) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(workday).Error
}

func (r *workdayRepo) GetByID(ctx context.Context, id string) (*model.Workday, error) {
	var workday model.Workday
	err := r.db.WithContext(ctx).
		Preload("ScheduleNode").
		Preload("Tasks", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, task_id ASC") }).
		Preload("Tasks.ScheduleTask").
		Preload("Tasks.Members", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, member_id ASC") }).
		Preload("Blockers", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, blocker_id ASC") }).
		Preload("Blockers.BlockerType").
		Where("workday_id = ?", id).
		First(&workday).Error
	if err != nil {
		return nil, err
	}
	return &workday, nil
}

func (r *workdayRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.Workday, error) {
	var locked model.Workday
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("workday_id").
		Where("workday_id = ?", id).
		First(&locked).Error
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *workdayRepo) FindActive(ctx context.Context, projectID, crewID string, date datatypes.Date) (*model.Workday, error) {
	var workday model.Workday
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND crew_id = ? AND work_date = ? AND status = ?",
			projectID, crewID, date, model.WorkdayStatusActive).
		First(&workday).Error
	if err != nil {
		return nil, err
	}
	return &workday, nil
}

func (r *workdayRepo) List(ctx context.Context, filter WorkdayFilter, offset, limit int) ([]model.Workday, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Workday{})
	if filter.ProjectID != "" {
		query = query.Where("project_id = ?", filter.ProjectID)
	}
	if filter.CrewID != "" {
		query = query.Where("crew_id = ?", filter.CrewID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.DateFrom != nil {
		query = query.Where("work_date >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		query = query.Where("work_date <= ?", *filter.DateTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var workdays []model.Workday
	err := query.
		Order("work_date DESC, created_at DESC").
		Offset(offset).Limit(limit).
		Find(&workdays).Error
	return workdays, total, err
}

func (r *workdayRepo) Update(ctx context.Context, workday *model.Workday) error {
	oldVersion := workday.Version
	result := r.db.WithContext(ctx).
		Model(&model.Workday{}).
		Where("workday_id = ? AND version = ?", workday.WorkdayID, oldVersion).
		Updates(map[string]interface{}{
			"schedule_node_id": workday.ScheduleNodeID,
			"objectives":       workday.Objectives,
			"location":         workday.Location,
			"status":           workday.Status,
			"avance_dia":       workday.AvanceDia,
			"plan_siguiente":   workday.PlanSiguiente,
			"closed_at":        workday.ClosedAt,
			"closed_by":        workday.ClosedBy,
			"reviewed_at":      workday.ReviewedAt,
			"reviewed_by":      workday.ReviewedBy,
			"review_note":      workday.ReviewNote,
			"updated_by":       workday.UpdatedBy,
			"version":          oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	workday.Version = oldVersion + 1
	return nil
}

func (r *workdayRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taskIDs := tx.Model(&model.WorkdayTask{}).Select("task_id").Where("workday_id = ?", id)
		if err := tx.Where("task_id IN (?)", taskIDs).Delete(&model.TaskMember{}).Error; err != nil {
			return err
		}
		if err := tx.Where("workday_id = ?", id).Delete(&model.WorkdayTask{}).Error; err != nil {
			return err
		}
		if err := tx.Where("workday_id = ?", id).Delete(&model.Blocker{}).Error; err != nil {
			return err
		}
		return tx.Where("workday_id = ?", id).Delete(&model.Workday{}).Error
	})
}
