package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/jesusartemio-dev/gyscontrol-app-sub002/config"
	"github.com/jesusartemio-dev/gyscontrol-app-sub002/internal/dto"
	"github.com/jesusartemio-dev/gyscontrol-app-sub002/internal/model"
	"github.com/jesusartemio-dev/gyscontrol-app-sub002/internal/repository"
)

// WorkdayService 工作日业务接口
type WorkdayService interface {
	// OpenWorkday 开启工作日（初始状态 active）
	OpenWorkday(ctx context.Context, req *dto.OpenWorkdayRequest, callerID string) (*dto.WorkdayResponse, error)
	GetWorkday(ctx context.Context, id string) (*dto.WorkdayResponse, error)
	ListWorkdays(ctx context.Context, req *dto.ListWorkdaysRequest) ([]dto.WorkdayResponse, int64, error)
	// AddBlocker 在 active 工作日上登记阻碍
	AddBlocker(ctx context.Context, workdayID string, req *dto.BlockerInput, callerID string) (*dto.BlockerResponse, error)
	RemoveBlocker(ctx context.Context, blockerID string, callerID string) error
	// DeleteWorkday 管理员删除；已提交工作日删除后在同一事务内重算受影响节点
	DeleteWorkday(ctx context.Context, id string, callerID string) error
}

type workdayService struct {
	cfg        *config.WorkdayConfig
	repo       *repository.Repository
	aggregator *ProgressAggregator
	logger     *zap.Logger
}

// NewWorkdayService 创建 WorkdayService 实例
func NewWorkdayService(cfg *config.WorkdayConfig, repo *repository.Repository, aggregator *ProgressAggregator, logger *zap.Logger) WorkdayService {
	return &workdayService{cfg: cfg, repo: repo, aggregator: aggregator, logger: logger}
}

// ── OpenWorkday ──

func (s *workdayService) OpenWorkday(ctx context.Context, req *dto.OpenWorkdayRequest, callerID string) (*dto.WorkdayResponse, error) {
	date, err := parseWorkDate(req.WorkDate)
	if err != nil {
		return nil, err
	}

	var nodeID *string
	if req.ScheduleNodeID != nil && strings.TrimSpace(*req.ScheduleNodeID) != "" {
		id := strings.TrimSpace(*req.ScheduleNodeID)
		node, err := s.repo.ScheduleNode.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrInvalidScheduleNode
			}
			s.logger.Error("查询进度节点失败", zap.String("schedule_node_id", id), zap.Error(err))
			return nil, storageErr(err)
		}
		if node.ProjectID != req.ProjectID {
			return nil, ErrInvalidScheduleNode
		}
		nodeID = &id
	}

	if s.cfg.RejectDuplicateActive {
		_, err := s.repo.Workday.FindActive(ctx, req.ProjectID, req.CrewID, date)
		if err == nil {
			return nil, ErrDuplicateActiveWorkday
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("查询进行中工作日失败", zap.Error(err))
			return nil, storageErr(err)
		}
	}

	workday := &model.Workday{
		ProjectID:      req.ProjectID,
		CrewID:         req.CrewID,
		WorkDate:       date,
		ScheduleNodeID: nodeID,
		Objectives:     strings.TrimSpace(req.Objectives),
		Location:       strings.TrimSpace(req.Location),
		Status:         model.WorkdayStatusActive,
	}
	workday.SetActor(callerID)

	if err := s.repo.Workday.Create(ctx, workday); err != nil {
		s.logger.Error("创建工作日失败", zap.Error(err))
		return nil, storageErr(err)
	}

	s.logger.Info("工作日已开启",
		zap.String("workday_id", workday.WorkdayID),
		zap.String("project_id", workday.ProjectID),
		zap.String("crew_id", workday.CrewID),
		zap.String("work_date", req.WorkDate),
	)
	return s.GetWorkday(ctx, workday.WorkdayID)
}

// ── 查询 ──

func (s *workdayService) GetWorkday(ctx context.Context, id string) (*dto.WorkdayResponse, error) {
	w, err := s.repo.Workday.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkdayNotFound
		}
		s.logger.Error("查询工作日失败", zap.String("id", id), zap.Error(err))
		return nil, storageErr(err)
	}
	return toWorkdayResponse(w), nil
}

func (s *workdayService) ListWorkdays(ctx context.Context, req *dto.ListWorkdaysRequest) ([]dto.WorkdayResponse, int64, error) {
	filter, err := workdayFilter(req)
	if err != nil {
		return nil, 0, err
	}

	workdays, total, err := s.repo.Workday.List(ctx, filter, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询工作日列表失败", zap.Error(err))
		return nil, 0, storageErr(err)
	}

	list := make([]dto.WorkdayResponse, 0, len(workdays))
	for i := range workdays {
		list = append(list, *toWorkdayResponse(&workdays[i]))
	}
	return list, total, nil
}

// ── 阻碍 ──

func (s *workdayService) AddBlocker(ctx context.Context, workdayID string, req *dto.BlockerInput, callerID string) (*dto.BlockerResponse, error) {
	typeID := strings.TrimSpace(req.BlockerTypeID)
	description := strings.TrimSpace(req.Description)
	if typeID == "" || description == "" {
		return nil, ErrInvalidBlocker
	}

	var created *model.Blocker
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		w, err := lockWorkday(ctx, tx, workdayID)
		if err != nil {
			return err
		}
		if !w.IsActive() {
			return ErrWorkdayNotActive
		}

		bt, err := tx.BlockerType.GetByID(ctx, typeID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvalidBlocker
			}
			return storageErr(err)
		}
		if !bt.IsActive {
			return ErrInvalidBlocker
		}

		blocker := &model.Blocker{
			WorkdayID:     workdayID,
			BlockerTypeID: typeID,
			Description:   description,
			ImpactNote:    strings.TrimSpace(req.ImpactNote),
		}
		blocker.SetActor(callerID)
		if err := tx.Blocker.Create(ctx, blocker); err != nil {
			return storageErr(err)
		}
		blocker.BlockerType = bt
		created = blocker
		return nil
	})
	if err != nil {
		if !isDomainError(err) || errors.Is(err, ErrPersistenceFailure) {
			s.logger.Error("登记阻碍失败", zap.String("workday_id", workdayID), zap.Error(err))
		}
		return nil, err
	}

	resp := toBlockerResponse(created)
	return &resp, nil
}

func (s *workdayService) RemoveBlocker(ctx context.Context, blockerID string, callerID string) error {
	blocker, err := s.repo.Blocker.GetByID(ctx, blockerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBlockerNotFound
		}
		s.logger.Error("查询阻碍失败", zap.String("id", blockerID), zap.Error(err))
		return storageErr(err)
	}

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		w, err := lockWorkday(ctx, tx, blocker.WorkdayID)
		if err != nil {
			return err
		}
		if !w.IsActive() {
			return ErrWorkdayNotActive
		}
		return storageErr(tx.Blocker.Delete(ctx, blockerID))
	})
	if err != nil {
		return err
	}

	s.logger.Info("阻碍已删除", zap.String("blocker_id", blockerID), zap.String("caller", callerID))
	return nil
}

// ── DeleteWorkday ──

func (s *workdayService) DeleteWorkday(ctx context.Context, id string, callerID string) error {
	var recomputed []string
	err := withAggregationRetry(ctx, s.logger, "delete_workday", s.cfg.AggregationRetries, func() error {
		recomputed = nil
		return s.repo.Transaction(ctx, func(tx *repository.Repository) error {
			w, err := lockWorkday(ctx, tx, id)
			if err != nil {
				return err
			}

			var nodes []string
			if w.Status.IsCommitted() {
				if nodes, err = tx.Ledger.NodesOfWorkday(ctx, id); err != nil {
					return storageErr(err)
				}
			}

			if err := tx.Workday.Delete(ctx, id); err != nil {
				return storageErr(err)
			}

			if len(nodes) > 0 {
				if _, err := s.aggregator.Recompute(ctx, tx, nodes); err != nil {
					return storageErr(err)
				}
				recomputed = nodes
			}
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, ErrPersistenceFailure) || errors.Is(err, ErrAggregationConflict) {
			s.logger.Error("删除工作日失败", zap.String("id", id), zap.Error(err))
		}
		return err
	}

	s.logger.Info("工作日已删除",
		zap.String("workday_id", id),
		zap.String("caller", callerID),
		zap.Strings("recomputed_nodes", recomputed),
	)
	return nil
}

// workdayFilter 将列表查询参数转换为仓储过滤条件
func workdayFilter(req *dto.ListWorkdaysRequest) (repository.WorkdayFilter, error) {
	filter := repository.WorkdayFilter{
		ProjectID: req.ProjectID,
		CrewID:    req.CrewID,
		Status:    model.WorkdayStatus(req.Status),
	}
	if req.DateFrom != "" {
		d, err := parseWorkDate(req.DateFrom)
		if err != nil {
			return filter, err
		}
		filter.DateFrom = &d
	}
	if req.DateTo != "" {
		d, err := parseWorkDate(req.DateTo)
		if err != nil {
			return filter, err
		}
		filter.DateTo = &d
	}
	return filter, nil
}

// parseWorkDate 解析 YYYY-MM-DD，统一为 UTC 零点
func parseWorkDate(s string) (datatypes.Date, error) {
	t, err := time.ParseInLocation(dateLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return datatypes.Date{}, ErrInvalidWorkDate
	}
	return datatypes.Date(t), nil
}
