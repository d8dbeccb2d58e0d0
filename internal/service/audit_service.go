package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jesusartemio-dev/gyscontrol-app-sub002/config"
	"github.com/jesusartemio-dev/gyscontrol-app-sub002/internal/allocation"
	"github.com/jesusartemio-dev/gyscontrol-app-sub002/internal/dto"
	"github.com/jesusartemio-dev/gyscontrol-app-sub002/internal/model"
	"github.com/jesusartemio-dev/gyscontrol-app-sub002/internal/repository"
	"github.com/jesusartemio-dev/gyscontrol-app-sub002/pkg/notify"
	"github.com/jesusartemio-dev/gyscontrol-app-sub002/pkg/redis"
)

// ── 巡检异常类别 ──

const (
	AnomalyNodeHoursDrift      = "node_actual_hours_drift"
	AnomalyTaskHoursDrift      = "task_actual_hours_drift"
	AnomalyNodeCompletionDrift = "node_completion_drift"
	AnomalyTaskReference       = "invalid_task_reference"
	AnomalyCommittedZeroHours  = "committed_non_positive_hours"
	AnomalyHoursOutOfRange     = "hours_out_of_range"
	AnomalyPercentOutOfRange   = "completion_pct_out_of_range"
	AnomalyPersonOverFullDay   = "person_over_full_day"
)

// latestReportKey Redis 中最近一次巡检报告的键
const latestReportKey = "audit:report:latest"

var ErrAuditReportNotFound = errors.New("暂无巡检报告")

// ReportCache 巡检报告缓存；pkg/redis.Client 满足该接口
type ReportCache interface {
	SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error
	GetJSON(ctx context.Context, key string, v interface{}) error
}

// AuditService 一致性巡检
//
// 只读、不加锁，结果仅供参考；不会修正任何数据。
// 修正请通过 CorrectionService.RecomputeNode 等管理操作完成。
type AuditService interface {
	RunAudit(ctx context.Context) (*dto.AuditReport, error)
	GetLatestReport(ctx context.Context) (*dto.AuditReport, error)
}

type auditService struct {
	cfg      *config.AuditConfig
	repo     *repository.Repository
	cache    ReportCache
	notifier notify.Notifier
	logger   *zap.Logger

	mu     sync.RWMutex
	latest *dto.AuditReport
}

// NewAuditService 创建 AuditService 实例；cache / notifier 可为 nil
func NewAuditService(cfg *config.AuditConfig, repo *repository.Repository, cache ReportCache, notifier notify.Notifier, logger *zap.Logger) AuditService {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &auditService{cfg: cfg, repo: repo, cache: cache, notifier: notifier, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// RunAudit：重新从台账计算聚合值并与已存储值比对
// ═══════════════════════════════════════════════════════════

func (s *auditService) RunAudit(ctx context.Context) (*dto.AuditReport, error) {
	start := time.Now()
	tolerance := s.cfg.Tolerance
	if tolerance <= 0 {
		tolerance = 0.01
	}

	var snap auditSnapshot
	if err := s.repo.ReadSnapshot(ctx, func(tx *repository.Repository) error {
		return s.collect(ctx, tx, &snap)
	}); err != nil {
		if !errors.Is(err, ErrPersistenceFailure) && !errors.Is(err, ErrAggregationConflict) {
			err = s.storageFail("巡检快照事务失败", err)
		}
		return nil, err
	}
	nodes, tasks := snap.nodes, snap.tasks
	taskHours, scheduledByNode, adHocByNode := snap.taskHours, snap.scheduledByNode, snap.adHocByNode

	report := &dto.AuditReport{
		RunAt:        formatTime(start),
		NodesChecked: len(nodes),
		TasksChecked: len(tasks),
		Anomalies:    []dto.AuditAnomaly{},
	}
	add := func(a dto.AuditAnomaly) { report.Anomalies = append(report.Anomalies, a) }

	// ── 计划任务 ──
	byNode := make(map[string][]int)
	for i := range tasks {
		t := &tasks[i]
		byNode[t.ScheduleNodeID] = append(byNode[t.ScheduleNodeID], i)

		expected := Round2(taskHours[t.ScheduleTaskID])
		if drift(expected, t.ActualHours, tolerance) {
			add(mismatch(AnomalyTaskHoursDrift, "schedule_task", t.ScheduleTaskID, expected, t.ActualHours,
				"计划任务 actual_hours 与台账汇总不一致"))
		}
		if !validPercent(t.CompletionPct) {
			add(valueAnomaly(AnomalyPercentOutOfRange, "schedule_task", t.ScheduleTaskID, t.CompletionPct,
				"计划任务 completion_pct 超出 [0,100]"))
		}
	}

	// ── 进度节点 ──
	for i := range nodes {
		n := &nodes[i]
		expectedHours := Round2(scheduledByNode[n.ScheduleNodeID] + adHocByNode[n.ScheduleNodeID])
		if drift(expectedHours, n.ActualHours, tolerance) {
			add(mismatch(AnomalyNodeHoursDrift, "schedule_node", n.ScheduleNodeID, expectedHours, n.ActualHours,
				"节点 actual_hours 与台账汇总不一致"))
		}

		children := make([]model.ScheduleTask, 0, len(byNode[n.ScheduleNodeID]))
		for _, idx := range byNode[n.ScheduleNodeID] {
			children = append(children, tasks[idx])
		}
		expectedPct := NodeCompletion(children)
		if drift(expectedPct, n.CompletionPct, tolerance) {
			add(mismatch(AnomalyNodeCompletionDrift, "schedule_node", n.ScheduleNodeID, expectedPct, n.CompletionPct,
				"节点 completion_pct 与子任务加权结果不一致"))
		}
		if !validPercent(n.CompletionPct) {
			add(valueAnomaly(AnomalyPercentOutOfRange, "schedule_node", n.ScheduleNodeID, n.CompletionPct,
				"节点 completion_pct 超出 [0,100]"))
		}
	}

	// ── 工作日任务与成员 ──
	for _, r := range snap.refs {
		detail := "任务必须且只能关联计划任务或临时任务名称之一"
		if r.Missing {
			detail = fmt.Sprintf("关联的计划任务 %s 不存在", *r.ScheduleTaskID)
		}
		add(dto.AuditAnomaly{Kind: AnomalyTaskReference, EntityType: "workday_task", EntityID: r.TaskID,
			Detail: fmt.Sprintf("%s（工作日 %s）", detail, r.WorkdayID)})
	}

	for _, m := range snap.nonPositive {
		add(valueAnomaly(AnomalyCommittedZeroHours, "task_member", m.MemberID, m.Hours,
			fmt.Sprintf("已提交工作日 %s 中存在未分配工时的成员", m.WorkdayID)))
	}

	for _, m := range snap.outOfRange {
		add(valueAnomaly(AnomalyHoursOutOfRange, "task_member", m.MemberID, m.Hours,
			fmt.Sprintf("工作日 %s 中成员工时超出 [0,24]", m.WorkdayID)))
	}

	for _, p := range snap.overDay {
		add(valueAnomaly(AnomalyPersonOverFullDay, "person", p.PersonID, p.Hours,
			fmt.Sprintf("工作日 %s 中该人员合计工时超过 9.5", p.WorkdayID)))
	}

	report.DurationMs = time.Since(start).Milliseconds()
	s.store(ctx, report)

	s.logger.Info("一致性巡检完成",
		zap.Int("nodes", report.NodesChecked),
		zap.Int("tasks", report.TasksChecked),
		zap.Int("anomalies", len(report.Anomalies)),
		zap.Int64("duration_ms", report.DurationMs),
	)

	if len(report.Anomalies) > 0 {
		lines := make([]string, 0, len(report.Anomalies))
		for _, a := range report.Anomalies {
			lines = append(lines, fmt.Sprintf("[%s] %s %s: %s", a.Kind, a.EntityType, a.EntityID, a.Detail))
		}
		title := fmt.Sprintf("工时台账巡检发现 %d 项异常", len(report.Anomalies))
		if err := s.notifier.Notify(ctx, title, lines); err != nil {
			s.logger.Warn("巡检通知发送失败", zap.Error(err))
		}
	}
	return report, nil
}

// GetLatestReport 优先读取 Redis，未命中时回退到进程内最近一次结果
func (s *auditService) GetLatestReport(ctx context.Context) (*dto.AuditReport, error) {
	if s.cache != nil {
		var report dto.AuditReport
		err := s.cache.GetJSON(ctx, latestReportKey, &report)
		switch {
		case err == nil:
			return &report, nil
		case errors.Is(err, redis.ErrCacheMiss):
			s.logger.Debug("巡检报告缓存未命中")
		default:
			s.logger.Warn("读取巡检报告缓存失败", zap.Error(err))
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return nil, ErrAuditReportNotFound
	}
	return s.latest, nil
}

func (s *auditService) store(ctx context.Context, report *dto.AuditReport) {
	s.mu.Lock()
	s.latest = report
	s.mu.Unlock()

	if s.cache == nil {
		return
	}
	if err := s.cache.SetJSON(ctx, latestReportKey, report, s.cfg.ReportTTL); err != nil {
		s.logger.Warn("巡检报告写入缓存失败", zap.Error(err))
	}
}

// auditSnapshot 同一只读快照内读取的全部巡检输入
type auditSnapshot struct {
	nodes           []model.ScheduleNode
	tasks           []model.ScheduleTask
	taskHours       map[string]float64
	scheduledByNode map[string]float64
	adHocByNode     map[string]float64
	refs            []repository.TaskReferenceRow
	nonPositive     []repository.MemberHoursRow
	outOfRange      []repository.MemberHoursRow
	overDay         []repository.PersonDayRow
}

func (s *auditService) collect(ctx context.Context, tx *repository.Repository, snap *auditSnapshot) error {
	var err error
	if snap.nodes, err = tx.ScheduleNode.List(ctx); err != nil {
		return s.storageFail("查询进度节点失败", err)
	}
	if snap.tasks, err = tx.ScheduleTask.List(ctx); err != nil {
		return s.storageFail("查询计划任务失败", err)
	}
	if snap.taskHours, err = tx.Ledger.SumByScheduleTask(ctx, nil); err != nil {
		return s.storageFail("汇总计划任务工时失败", err)
	}
	if snap.scheduledByNode, err = tx.Ledger.SumScheduledByNode(ctx, nil); err != nil {
		return s.storageFail("汇总节点工时失败", err)
	}
	if snap.adHocByNode, err = tx.Ledger.SumAdHocByNode(ctx, nil); err != nil {
		return s.storageFail("汇总临时任务工时失败", err)
	}
	if snap.refs, err = tx.Ledger.ListInvalidTaskReferences(ctx); err != nil {
		return s.storageFail("查询任务引用失败", err)
	}
	if snap.nonPositive, err = tx.Ledger.ListCommittedNonPositive(ctx); err != nil {
		return s.storageFail("查询零工时成员失败", err)
	}
	if snap.outOfRange, err = tx.Ledger.ListOutOfRangeHours(ctx, 0, allocation.MaxHoursPerEntry); err != nil {
		return s.storageFail("查询越界工时失败", err)
	}
	if snap.overDay, err = tx.Ledger.ListPersonDayTotalsAbove(ctx, allocation.FullWorkdayHours); err != nil {
		return s.storageFail("查询人员日工时失败", err)
	}
	return nil
}

func (s *auditService) storageFail(msg string, err error) error {
	s.logger.Error(msg, zap.Error(err))
	return storageErr(err)
}

// ── 辅助函数 ──

func drift(expected, actual, tolerance float64) bool {
	return math.Abs(expected-actual) > tolerance
}

func mismatch(kind, entityType, id string, expected, actual float64, detail string) dto.AuditAnomaly {
	e, a := expected, actual
	return dto.AuditAnomaly{Kind: kind, EntityType: entityType, EntityID: id, Expected: &e, Actual: &a, Detail: detail}
}

func valueAnomaly(kind, entityType, id string, actual float64, detail string) dto.AuditAnomaly {
	a := actual
	return dto.AuditAnomaly{Kind: kind, EntityType: entityType, EntityID: id, Actual: &a, Detail: detail}
}
