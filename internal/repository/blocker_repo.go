package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jesusartemio-dev/gyscontrol-app-sub002/internal/model"
)

// BlockerRepository 阻碍记录数据访问接口
type BlockerRepository interface {
	Create(ctx context.Context, blocker *model.Blocker) error
	BatchCreate(ctx context.Context, blockers []model.Blocker) error
	GetByID(ctx context.Context, id string) (*model.Blocker, error)
	ListByWorkday(ctx context.Context, workdayID string) ([]model.Blocker, error)
	Delete(ctx context.Context, id string) error
}

// BlockerTypeRepository 阻碍类型字典数据访问接口
type BlockerTypeRepository interface {
	Create(ctx context.Context, bt *model.BlockerType) error
	GetByID(ctx context.Context, id string) (*model.BlockerType, error)
	ListByIDs(ctx context.Context, ids []string) ([]model.BlockerType, error)
	List(ctx context.Context, includeInactive bool) ([]model.BlockerType, error)
}

// ── Blocker Repository 实现 ──

type blockerRepo struct {
	db *gorm.DB
}

func NewBlockerRepo(db *gorm.DB) BlockerRepository {
	return &blockerRepo{db: db}
}

func (r *blockerRepo) Create(ctx context.Context, blocker *model.Blocker) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(blocker).Error
}

func (r *blockerRepo) BatchCreate(ctx context.Context, blockers []model.Blocker) error {
	if len(blockers) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(&blockers).Error
}

func (r *blockerRepo) GetByID(ctx context.Context, id string) (*model.Blocker, error) {
	var blocker model.Blocker
	err := r.db.WithContext(ctx).
		Preload("BlockerType").
		Where("blocker_id = ?", id).
		First(&blocker).Error
	if err != nil {
		return nil, err
	}
	return &blocker, nil
}

func (r *blockerRepo) ListByWorkday(ctx context.Context, workdayID string) ([]model.Blocker, error) {
	var blockers []model.Blocker
	err := r.db.WithContext(ctx).
		Preload("BlockerType").
		Where("workday_id = ?", workdayID).
		Order("created_at ASC, blocker_id ASC").
		Find(&blockers).Error
	return blockers, err
}

func (r *blockerRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("blocker_id = ?", id).Delete(&model.Blocker{}).Error
}

// ── BlockerType Repository 实现 ──

type blockerTypeRepo struct {
	db *gorm.DB
}

func NewBlockerTypeRepo(db *gorm.DB) BlockerTypeRepository {
	return &blockerTypeRepo{db: db}
}

func (r *blockerTypeRepo) Create(ctx context.Context, bt *model.BlockerType) error {
	return r.db.WithContext(ctx).Create(bt).Error
}

func (r *blockerTypeRepo) GetByID(ctx context.Context, id string) (*model.BlockerType, error) {
	var bt model.BlockerType
	err := r.db.WithContext(ctx).Where("blocker_type_id = ?", id).First(&bt).Error
	if err != nil {
		return nil, err
	}
	return &bt, nil
}

func (r *blockerTypeRepo) ListByIDs(ctx context.Context, ids []string) ([]model.BlockerType, error) {
	var types []model.BlockerType
	if len(ids) == 0 {
		return types, nil
	}
	err := r.db.WithContext(ctx).Where("blocker_type_id IN ?", ids).Find(&types).Error
	return types, err
}

func (r *blockerTypeRepo) List(ctx context.Context, includeInactive bool) ([]model.BlockerType, error) {
	var types []model.BlockerType
	query := r.db.WithContext(ctx)
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}
	err := query.Order("code ASC").Find(&types).Error
	return types, err
}
