package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/jesusartemio-dev/gyscontrol-app-sub002/internal/dto"
	"github.com/jesusartemio-dev/gyscontrol-app-sub002/internal/model"
	"github.com/jesusartemio-dev/gyscontrol-app-sub002/internal/repository"
)

// CorrectionService 管理员修正已提交台账；每次修正视为新的提交周期，同一事务内重算受影响节点
type CorrectionService interface {
	CorrectMemberHours(ctx context.Context, memberID string, req *dto.CorrectMemberHoursRequest, callerID string) (*dto.CorrectionResponse, error)
	DeleteTaskCorrection(ctx context.Context, taskID string, callerID string) (*dto.CorrectionResponse, error)
	// RecomputeNode 按需从台账重算单个节点
	RecomputeNode(ctx context.Context, nodeID string, callerID string) (*dto.NodeAggregateResponse, error)
}

type correctionService struct {
	repo       *repository.Repository
	aggregator *ProgressAggregator
	retries    int
	logger     *zap.Logger
}

// NewCorrectionService 创建 CorrectionService 实例
func NewCorrectionService(repo *repository.Repository, aggregator *ProgressAggregator, retries int, logger *zap.Logger) CorrectionService {
	return &correctionService{repo: repo, aggregator: aggregator, retries: retries, logger: logger}
}

// ── CorrectMemberHours ──

func (s *correctionService) CorrectMemberHours(ctx context.Context, memberID string, req *dto.CorrectMemberHoursRequest, callerID string) (*dto.CorrectionResponse, error) {
	if req.Hours == nil || !validMemberHours(*req.Hours) {
		return nil, ErrInvalidHours
	}

	member, err := s.repo.TaskMember.GetByID(ctx, memberID)
	if err != nil {
		return nil, notFoundOr(err, ErrMemberNotFound)
	}
	task, err := s.repo.WorkdayTask.GetByID(ctx, member.TaskID)
	if err != nil {
		return nil, notFoundOr(err, ErrTaskNotFound)
	}

	var resp *dto.CorrectionResponse
	err = s.inCommittedWorkday(ctx, "correct_member_hours", task.WorkdayID, func(tx *repository.Repository, _ *model.Workday) error {
		locked, err := tx.TaskMember.GetByID(ctx, memberID)
		if err != nil {
			return notFoundOr(err, ErrMemberNotFound)
		}
		previous := locked.Hours
		locked.Hours = *req.Hours
		locked.HoursSeeded = false
		locked.SetActor(callerID)
		if err := tx.TaskMember.UpdateHours(ctx, locked); err != nil {
			return storageErr(err)
		}

		nodes, err := s.recomputeForTask(ctx, tx, locked.TaskID)
		if err != nil {
			return err
		}

		m := toMemberResponse(locked)
		resp = &dto.CorrectionResponse{Member: &m, Nodes: toNodeAggregates(nodes)}
		s.logger.Info("已提交工时已修正",
			zap.String("member_id", memberID),
			zap.Float64("from", previous),
			zap.Float64("to", locked.Hours),
			zap.String("reason", req.Reason),
			zap.String("caller", callerID),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// ── DeleteTaskCorrection ──

func (s *correctionService) DeleteTaskCorrection(ctx context.Context, taskID string, callerID string) (*dto.CorrectionResponse, error) {
	task, err := s.repo.WorkdayTask.GetByID(ctx, taskID)
	if err != nil {
		return nil, notFoundOr(err, ErrTaskNotFound)
	}

	var resp *dto.CorrectionResponse
	err = s.inCommittedWorkday(ctx, "delete_task_correction", task.WorkdayID, func(tx *repository.Repository, _ *model.Workday) error {
		// 删除前确定受影响节点
		nodeIDs, err := tx.Ledger.NodesOfTask(ctx, taskID)
		if err != nil {
			return storageErr(err)
		}
		if err := tx.WorkdayTask.Delete(ctx, taskID); err != nil {
			return storageErr(err)
		}
		nodes, err := s.aggregator.Recompute(ctx, tx, nodeIDs)
		if err != nil {
			return storageErr(err)
		}
		resp = &dto.CorrectionResponse{Nodes: toNodeAggregates(nodes)}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("已提交任务已删除", zap.String("task_id", taskID), zap.String("caller", callerID))
	return resp, nil
}

// ── RecomputeNode ──

func (s *correctionService) RecomputeNode(ctx context.Context, nodeID string, callerID string) (*dto.NodeAggregateResponse, error) {
	var resp *dto.NodeAggregateResponse
	err := withAggregationRetry(ctx, s.logger, "recompute_node", s.retries, func() error {
		resp = nil
		return storageErr(s.repo.Transaction(ctx, func(tx *repository.Repository) error {
			nodes, err := s.aggregator.Recompute(ctx, tx, []string{nodeID})
			if err != nil {
				return storageErr(err)
			}
			if len(nodes) == 0 {
				return ErrScheduleNodeNotFound
			}
			r := toNodeAggregateResponse(&nodes[0])
			resp = &r
			return nil
		}))
	})
	if err != nil {
		if errors.Is(err, ErrPersistenceFailure) || errors.Is(err, ErrAggregationConflict) {
			s.logger.Error("重算进度节点失败", zap.String("schedule_node_id", nodeID), zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("进度节点已重算", zap.String("schedule_node_id", nodeID), zap.String("caller", callerID))
	return resp, nil
}

// ── 内部辅助方法 ──

// inCommittedWorkday 锁定工作日并确认其已提交（closed_pending_approval / approved）后执行 fn，聚合冲突时重试
func (s *correctionService) inCommittedWorkday(ctx context.Context, op, workdayID string,
	fn func(tx *repository.Repository, w *model.Workday) error) error {
	err := withAggregationRetry(ctx, s.logger, op, s.retries, func() error {
		return storageErr(s.repo.Transaction(ctx, func(tx *repository.Repository) error {
			w, err := lockWorkday(ctx, tx, workdayID)
			if err != nil {
				return err
			}
			if !w.Status.IsCommitted() {
				return ErrWorkdayNotCommitted
			}
			return fn(tx, w)
		}))
	})
	if err != nil && (errors.Is(err, ErrPersistenceFailure) || errors.Is(err, ErrAggregationConflict)) {
		s.logger.Error("台账修正失败", zap.String("op", op), zap.String("workday_id", workdayID), zap.Error(err))
	}
	return err
}

func (s *correctionService) recomputeForTask(ctx context.Context, tx *repository.Repository, taskID string) ([]model.ScheduleNode, error) {
	nodeIDs, err := tx.Ledger.NodesOfTask(ctx, taskID)
	if err != nil {
		return nil, storageErr(err)
	}
	nodes, err := s.aggregator.Recompute(ctx, tx, nodeIDs)
	if err != nil {
		return nil, storageErr(err)
	}
	return nodes, nil
}
