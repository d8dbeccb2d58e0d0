package cronjob

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/jesusartemio-dev/gyscontrol-app-sub002/config"
	"github.com/jesusartemio-dev/gyscontrol-app-sub002/internal/dto"
)

// AuditRunner 执行一次台账一致性巡检
type AuditRunner interface {
	RunAudit(ctx context.Context) (*dto.AuditReport, error)
}

// Auditor 按 cron 表达式周期性执行巡检（秒级字段，6 段）
type Auditor struct {
	scheduler *cron.Cron
	runner    AuditRunner
	spec      string
	runNow    bool
	timeout   time.Duration
	logger    *zap.Logger

	mu      sync.Mutex
	entryID cron.EntryID
	running bool
}

// NewAuditor 创建巡检调度器
func NewAuditor(cfg *config.AuditConfig, runner AuditRunner, logger *zap.Logger) *Auditor {
	return &Auditor{
		scheduler: cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		runner:    runner,
		spec:      cfg.Cron,
		runNow:    cfg.RunOnStart,
		timeout:   10 * time.Minute,
		logger:    logger,
	}
}

// Start 注册任务并启动调度；RunOnStart 时在后台立即执行一次
func (a *Auditor) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running {
		return nil
	}

	id, err := a.scheduler.AddFunc(a.spec, a.runOnce)
	if err != nil {
		return fmt.Errorf("注册巡检任务失败: %w", err)
	}
	a.entryID = id
	a.scheduler.Start()
	a.running = true
	a.logger.Info("台账巡检调度已启动", zap.String("cron", a.spec))

	if a.runNow {
		go a.runOnce()
	}
	return nil
}

// Stop 停止调度并等待正在执行的巡检结束
func (a *Auditor) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.running {
		return
	}
	<-a.scheduler.Stop().Done()
	a.running = false
	a.logger.Info("台账巡检调度已停止")
}

// UpdateSchedule 替换 cron 表达式，格式同 audit.cron
func (a *Auditor) UpdateSchedule(spec string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	id, err := a.scheduler.AddFunc(spec, a.runOnce)
	if err != nil {
		return fmt.Errorf("更新巡检计划失败: %w", err)
	}
	a.scheduler.Remove(a.entryID)
	a.entryID = id
	a.spec = spec
	a.logger.Info("台账巡检计划已更新", zap.String("cron", spec))
	return nil
}

// NextRun 下一次计划执行时间；未启动时为零值
func (a *Auditor) NextRun() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.scheduler.Entry(a.entryID).Next
}

func (a *Auditor) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	started := time.Now()
	report, err := a.runner.RunAudit(ctx)
	if err != nil {
		a.logger.Error("定时巡检失败", zap.Error(err))
		return
	}
	a.logger.Info("定时巡检完成",
		zap.Int("anomalies", len(report.Anomalies)),
		zap.Duration("elapsed", time.Since(started)),
	)
}
