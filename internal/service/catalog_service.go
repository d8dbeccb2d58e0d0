package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/jesusartemio-dev/gyscontrol-app-sub002/internal/dto"
	"github.com/jesusartemio-dev/gyscontrol-app-sub002/internal/repository"
)

// CatalogService 阻碍类型字典与进度节点只读查询
type CatalogService interface {
	ListBlockerTypes(ctx context.Context, includeInactive bool) ([]dto.BlockerTypeResponse, error)
	GetScheduleNode(ctx context.Context, id string) (*dto.ScheduleNodeResponse, error)
}

type catalogService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewCatalogService 创建 CatalogService 实例
func NewCatalogService(repo *repository.Repository, logger *zap.Logger) CatalogService {
	return &catalogService{repo: repo, logger: logger}
}

func (s *catalogService) ListBlockerTypes(ctx context.Context, includeInactive bool) ([]dto.BlockerTypeResponse, error) {
	types, err := s.repo.BlockerType.List(ctx, includeInactive)
	if err != nil {
		s.logger.Error("查询阻碍类型失败", zap.Error(err))
		return nil, storageErr(err)
	}

	list := make([]dto.BlockerTypeResponse, 0, len(types))
	for _, t := range types {
		list = append(list, dto.BlockerTypeResponse{
			ID:       t.BlockerTypeID,
			Code:     t.Code,
			Name:     t.Name,
			IsActive: t.IsActive,
		})
	}
	return list, nil
}

func (s *catalogService) GetScheduleNode(ctx context.Context, id string) (*dto.ScheduleNodeResponse, error) {
	node, err := s.repo.ScheduleNode.GetByID(ctx, id)
	if err != nil {
		if isRecordNotFound(err) {
			return nil, ErrScheduleNodeNotFound
		}
		s.logger.Error("查询进度节点失败", zap.String("id", id), zap.Error(err))
		return nil, storageErr(err)
	}

	resp := &dto.ScheduleNodeResponse{
		NodeAggregateResponse: toNodeAggregateResponse(node),
		ProjectID:             node.ProjectID,
		Tasks:                 make([]dto.ScheduleTaskResponse, 0, len(node.Tasks)),
	}
	for i := range node.Tasks {
		resp.Tasks = append(resp.Tasks, toScheduleTaskResponse(&node.Tasks[i]))
	}
	return resp, nil
}
