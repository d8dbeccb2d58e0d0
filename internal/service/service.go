package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/jesusartemio-dev/gyscontrol-app-sub002/config"
	"github.com/jesusartemio-dev/gyscontrol-app-sub002/internal/repository"
	"github.com/jesusartemio-dev/gyscontrol-app-sub002/pkg/notify"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Workday    WorkdayService
	Task       TaskService
	Closing    ClosingService
	Review     ReviewService
	Correction CorrectionService
	Catalog    CatalogService
	Export     ExportService
	Audit      AuditService
}

// NewService 创建 Service 聚合
// cache 可为 nil（未启用 Redis 时巡检报告只保留在内存）
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	cache ReportCache,
	notifier notify.Notifier,
	logger *zap.Logger,
) *Service {
	aggregator := NewProgressAggregator(logger)
	retries := cfg.Workday.AggregationRetries

	return &Service{
		Workday:    NewWorkdayService(&cfg.Workday, repo, aggregator, logger),
		Task:       NewTaskService(repo, logger),
		Closing:    NewClosingService(repo, aggregator, retries, logger),
		Review:     NewReviewService(repo, aggregator, retries, logger),
		Correction: NewCorrectionService(repo, aggregator, retries, logger),
		Catalog:    NewCatalogService(repo, logger),
		Export:     NewExportService(repo, logger),
		Audit:      NewAuditService(&cfg.Audit, repo, cache, notifier, logger),
	}
}

// withAggregationRetry 执行 fn；返回 ErrAggregationConflict 时整笔重跑，最多 retries 次
func withAggregationRetry(ctx context.Context, logger *zap.Logger, op string, retries int, fn func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = fn()
		if err == nil || !errors.Is(err, ErrAggregationConflict) || attempt >= retries {
			return err
		}
		if ctx.Err() != nil {
			return err
		}
		logger.Warn("聚合冲突，重试事务",
			zap.String("op", op), zap.Int("attempt", attempt+1), zap.Error(err))
	}
}

// ptr 返回字符串指针；空串返回 nil
func ptr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
