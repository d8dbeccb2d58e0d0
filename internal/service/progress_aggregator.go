package service

import (
	"context"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/jesusartemio-dev/gyscontrol-app-sub002/internal/model"
	"github.com/jesusartemio-dev/gyscontrol-app-sub002/internal/repository"
)

// ProgressAggregator 由已提交工时台账重新计算进度节点聚合值。
//
// 计算口径（全部从源数据重算，重复执行结果一致）：
//   - ScheduleTask.actual_hours = 关联该计划任务的已提交工时之和
//   - ScheduleNode.actual_hours = 节点下计划任务的已提交工时 + 工作日归属该节点的临时任务工时
//   - ScheduleNode.completion_pct = 子任务完成百分比按 planned_hours 加权平均；
//     计划工时合计为 0 时取算术平均；无子任务为 0。保留两位小数
//
// 节点行按 ID 升序加 FOR UPDATE NOWAIT，同一节点的重算串行化；锁不可用时由调用方映射为 ErrAggregationConflict。
type ProgressAggregator struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewProgressAggregator 创建聚合器
func NewProgressAggregator(logger *zap.Logger) *ProgressAggregator {
	return &ProgressAggregator{logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Recompute 在 repo 所绑定的事务内重算 nodeIDs 对应节点，返回重算后的节点（按 ID 升序）
func (a *ProgressAggregator) Recompute(ctx context.Context, repo *repository.Repository, nodeIDs []string) ([]model.ScheduleNode, error) {
	ids := sortedUnique(nodeIDs)
	if len(ids) == 0 {
		return nil, nil
	}

	nodes, err := repo.ScheduleNode.LockByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(nodes) != len(ids) {
		a.logger.Warn("部分进度节点不存在，跳过重算",
			zap.Strings("requested", ids), zap.Int("found", len(nodes)))
	}
	if len(nodes) == 0 {
		return nil, nil
	}

	lockedIDs := make([]string, 0, len(nodes))
	for _, n := range nodes {
		lockedIDs = append(lockedIDs, n.ScheduleNodeID)
	}

	tasks, err := repo.ScheduleTask.ListByNodes(ctx, lockedIDs)
	if err != nil {
		return nil, err
	}

	// ── 计划任务实际工时 ──
	taskIDs := make([]string, 0, len(tasks))
	for _, t := range tasks {
		taskIDs = append(taskIDs, t.ScheduleTaskID)
	}
	taskHours := map[string]float64{}
	if len(taskIDs) > 0 {
		if taskHours, err = repo.Ledger.SumByScheduleTask(ctx, taskIDs); err != nil {
			return nil, err
		}
	}
	tasksByNode := make(map[string][]model.ScheduleTask, len(nodes))
	for _, t := range tasks {
		actual := Round2(taskHours[t.ScheduleTaskID])
		if actual != Round2(t.ActualHours) {
			if err := repo.ScheduleTask.UpdateActualHours(ctx, t.ScheduleTaskID, actual); err != nil {
				return nil, err
			}
			t.ActualHours = actual
		}
		tasksByNode[t.ScheduleNodeID] = append(tasksByNode[t.ScheduleNodeID], t)
	}

	// ── 节点实际工时与完成度 ──
	scheduled, err := repo.Ledger.SumScheduledByNode(ctx, lockedIDs)
	if err != nil {
		return nil, err
	}
	adHoc, err := repo.Ledger.SumAdHocByNode(ctx, lockedIDs)
	if err != nil {
		return nil, err
	}

	at := a.now()
	for i := range nodes {
		n := &nodes[i]
		actual := Round2(scheduled[n.ScheduleNodeID] + adHoc[n.ScheduleNodeID])
		pct := NodeCompletion(tasksByNode[n.ScheduleNodeID])
		if err := repo.ScheduleNode.UpdateAggregates(ctx, n.ScheduleNodeID, actual, pct, at); err != nil {
			return nil, err
		}
		n.ActualHours = actual
		n.CompletionPct = pct
		n.RecomputedAt = &at
		n.Tasks = tasksByNode[n.ScheduleNodeID]
	}

	a.logger.Debug("进度节点重算完成", zap.Strings("nodes", lockedIDs))
	return nodes, nil
}

// NodeCompletion 节点完成百分比：planned_hours 加权平均，计划工时为 0 时取算术平均
func NodeCompletion(tasks []model.ScheduleTask) float64 {
	if len(tasks) == 0 {
		return 0
	}
	var planned, weighted, sum float64
	for _, t := range tasks {
		planned += t.PlannedHours
		weighted += t.PlannedHours * t.CompletionPct
		sum += t.CompletionPct
	}
	if planned > 0 {
		return Round2(weighted / planned)
	}
	return Round2(sum / float64(len(tasks)))
}

// Round2 保留两位小数
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func sortedUnique(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
