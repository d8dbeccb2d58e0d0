package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jesusartemio-dev/gyscontrol-app-sub002/internal/dto"
	"github.com/jesusartemio-dev/gyscontrol-app-sub002/internal/model"
	"github.com/jesusartemio-dev/gyscontrol-app-sub002/internal/repository"
	pkgerrors "github.com/jesusartemio-dev/gyscontrol-app-sub002/pkg/errors"
)

// 审批结论
const (
	ReviewApprove = "approve"
	ReviewReject  = "reject"
)

// ReviewService 审批（核心状态机之外的 closed_pending_approval → approved / rejected）
type ReviewService interface {
	// ReviewWorkday 驳回时工时退出台账，并在同一事务内重算受影响节点
	ReviewWorkday(ctx context.Context, workdayID string, req *dto.ReviewWorkdayRequest, callerID string) (*dto.CloseWorkdayResponse, error)
}

type reviewService struct {
	repo       *repository.Repository
	aggregator *ProgressAggregator
	retries    int
	logger     *zap.Logger
	now        func() time.Time
}

// NewReviewService 创建 ReviewService 实例
func NewReviewService(repo *repository.Repository, aggregator *ProgressAggregator, retries int, logger *zap.Logger) ReviewService {
	return &reviewService{
		repo:       repo,
		aggregator: aggregator,
		retries:    retries,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *reviewService) ReviewWorkday(ctx context.Context, workdayID string, req *dto.ReviewWorkdayRequest, callerID string) (*dto.CloseWorkdayResponse, error) {
	var target model.WorkdayStatus
	switch req.Decision {
	case ReviewApprove:
		target = model.WorkdayStatusApproved
	case ReviewReject:
		target = model.WorkdayStatusRejected
	default:
		return nil, ErrInvalidReviewDecision
	}

	var resp *dto.CloseWorkdayResponse
	err := withAggregationRetry(ctx, s.logger, "review_workday", s.retries, func() error {
		resp = nil
		return storageErr(s.repo.Transaction(ctx, func(tx *repository.Repository) error {
			w, err := lockWorkday(ctx, tx, workdayID)
			if err != nil {
				return err
			}
			if !w.Status.CanTransitionTo(target) {
				return ErrInvalidTransition
			}

			// 驳回前记录受影响节点；状态变更后这些工时不再计入台账
			var nodeIDs []string
			if target == model.WorkdayStatusRejected {
				if nodeIDs, err = tx.Ledger.NodesOfWorkday(ctx, workdayID); err != nil {
					return storageErr(err)
				}
			}

			now := s.now()
			w.Status = target
			w.ReviewedAt = &now
			w.ReviewedBy = ptr(callerID)
			w.ReviewNote = strings.TrimSpace(req.Note)
			w.SetActor(callerID)
			if err := tx.Workday.Update(ctx, w); err != nil {
				if errors.Is(err, pkgerrors.ErrOptimisticLock) {
					return ErrInvalidTransition
				}
				return storageErr(err)
			}

			nodes, err := s.aggregator.Recompute(ctx, tx, nodeIDs)
			if err != nil {
				return storageErr(err)
			}

			reviewed, err := tx.Workday.GetByID(ctx, workdayID)
			if err != nil {
				return storageErr(err)
			}
			resp = &dto.CloseWorkdayResponse{Workday: toWorkdayResponse(reviewed), Nodes: toNodeAggregates(nodes)}
			return nil
		}))
	})
	if err != nil {
		if errors.Is(err, ErrPersistenceFailure) || errors.Is(err, ErrAggregationConflict) {
			s.logger.Error("审批工作日失败", zap.String("workday_id", workdayID), zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("工作日已审批",
		zap.String("workday_id", workdayID),
		zap.String("decision", req.Decision),
		zap.String("caller", callerID),
	)
	return resp, nil
}
