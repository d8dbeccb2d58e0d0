package repository

import (
	"context"

	"gorm.io/gorm"
)

// HoursRow 工时台账分组汇总行
type HoursRow struct {
	RefID string  `gorm:"column:ref_id"`
	Hours float64 `gorm:"column:hours"`
}

// MemberHoursRow 台账中的单条成员工时（用于审计）
type MemberHoursRow struct {
	WorkdayID string  `gorm:"column:workday_id"`
	TaskID    string  `gorm:"column:task_id"`
	MemberID  string  `gorm:"column:member_id"`
	PersonID  string  `gorm:"column:person_id"`
	Hours     float64 `gorm:"column:hours"`
}

// PersonDayRow 单个工作日内某人的工时合计
type PersonDayRow struct {
	WorkdayID string  `gorm:"column:workday_id"`
	PersonID  string  `gorm:"column:person_id"`
	Hours     float64 `gorm:"column:hours"`
}

// TaskReferenceRow 任务引用异常行
type TaskReferenceRow struct {
	TaskID         string  `gorm:"column:task_id"`
	WorkdayID      string  `gorm:"column:workday_id"`
	ScheduleTaskID *string `gorm:"column:schedule_task_id"`
	AdHocName      *string `gorm:"column:ad_hoc_name"`
	Missing        bool    `gorm:"column:missing"`
}

// LedgerRepository 已提交工时台账的只读汇总查询。
// 已提交 = 所属工作日状态为 closed_pending_approval 或 approved
type LedgerRepository interface {
	// SumByScheduleTask 按计划任务汇总已提交工时；ids 为空时汇总全部
	SumByScheduleTask(ctx context.Context, ids []string) (map[string]float64, error)
	// SumScheduledByNode 按节点汇总关联计划任务的已提交工时
	SumScheduledByNode(ctx context.Context, nodeIDs []string) (map[string]float64, error)
	// SumAdHocByNode 按工作日所属节点汇总临时任务的已提交工时
	SumAdHocByNode(ctx context.Context, nodeIDs []string) (map[string]float64, error)
	// NodesOfWorkday 工作日台账涉及的节点（计划任务所属节点 + 工作日自身节点）
	NodesOfWorkday(ctx context.Context, workdayID string) ([]string, error)
	// NodesOfTask 工作日任务所影响的节点
	NodesOfTask(ctx context.Context, taskID string) ([]string, error)

	// ── 审计 ──

	ListCommittedNonPositive(ctx context.Context) ([]MemberHoursRow, error)
	ListOutOfRangeHours(ctx context.Context, min, max float64) ([]MemberHoursRow, error)
	ListPersonDayTotalsAbove(ctx context.Context, limit float64) ([]PersonDayRow, error)
	ListInvalidTaskReferences(ctx context.Context) ([]TaskReferenceRow, error)
}

type ledgerRepo struct {
	db *gorm.DB
}

func NewLedgerRepo(db *gorm.DB) LedgerRepository {
	return &ledgerRepo{db: db}
}

// committedMembers 已提交台账的基础连接
func (r *ledgerRepo) committedMembers(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("task_members AS tm").
		Joins("JOIN workday_tasks wt ON wt.task_id = tm.task_id").
		Joins("JOIN workdays w ON w.workday_id = wt.workday_id").
		Where("w.status IN ?", committedStatuses())
}

func (r *ledgerRepo) SumByScheduleTask(ctx context.Context, ids []string) (map[string]float64, error) {
	query := r.committedMembers(ctx).
		Select("wt.schedule_task_id AS ref_id, COALESCE(SUM(tm.hours), 0) AS hours").
		Where("wt.schedule_task_id IS NOT NULL")
	if len(ids) > 0 {
		query = query.Where("wt.schedule_task_id IN ?", ids)
	}
	var rows []HoursRow
	if err := query.Group("wt.schedule_task_id").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return toHoursMap(rows), nil
}

func (r *ledgerRepo) SumScheduledByNode(ctx context.Context, nodeIDs []string) (map[string]float64, error) {
	query := r.committedMembers(ctx).
		Joins("JOIN schedule_tasks st ON st.schedule_task_id = wt.schedule_task_id").
		Select("st.schedule_node_id AS ref_id, COALESCE(SUM(tm.hours), 0) AS hours")
	if len(nodeIDs) > 0 {
		query = query.Where("st.schedule_node_id IN ?", nodeIDs)
	}
	var rows []HoursRow
	if err := query.Group("st.schedule_node_id").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return toHoursMap(rows), nil
}

func (r *ledgerRepo) SumAdHocByNode(ctx context.Context, nodeIDs []string) (map[string]float64, error) {
	query := r.committedMembers(ctx).
		Select("w.schedule_node_id AS ref_id, COALESCE(SUM(tm.hours), 0) AS hours").
		Where("wt.schedule_task_id IS NULL AND w.schedule_node_id IS NOT NULL")
	if len(nodeIDs) > 0 {
		query = query.Where("w.schedule_node_id IN ?", nodeIDs)
	}
	var rows []HoursRow
	if err := query.Group("w.schedule_node_id").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return toHoursMap(rows), nil
}

func (r *ledgerRepo) NodesOfWorkday(ctx context.Context, workdayID string) ([]string, error) {
	var scheduled []string
	err := r.db.WithContext(ctx).
		Table("workday_tasks AS wt").
		Joins("JOIN schedule_tasks st ON st.schedule_task_id = wt.schedule_task_id").
		Where("wt.workday_id = ?", workdayID).
		Distinct().
		Pluck("st.schedule_node_id", &scheduled).Error
	if err != nil {
		return nil, err
	}

	var own []string
	err = r.db.WithContext(ctx).
		Table("workdays").
		Where("workday_id = ? AND schedule_node_id IS NOT NULL", workdayID).
		Pluck("schedule_node_id", &own).Error
	if err != nil {
		return nil, err
	}
	return uniqueStrings(append(scheduled, own...)), nil
}

func (r *ledgerRepo) NodesOfTask(ctx context.Context, taskID string) ([]string, error) {
	var nodes []string
	err := r.db.WithContext(ctx).
		Table("workday_tasks AS wt").
		Joins("JOIN schedule_tasks st ON st.schedule_task_id = wt.schedule_task_id").
		Where("wt.task_id = ?", taskID).
		Pluck("st.schedule_node_id", &nodes).Error
	if err != nil {
		return nil, err
	}
	if len(nodes) > 0 {
		return nodes, nil
	}

	// 临时任务归属工作日自身节点
	err = r.db.WithContext(ctx).
		Table("workday_tasks AS wt").
		Joins("JOIN workdays w ON w.workday_id = wt.workday_id").
		Where("wt.task_id = ? AND wt.schedule_task_id IS NULL AND w.schedule_node_id IS NOT NULL", taskID).
		Pluck("w.schedule_node_id", &nodes).Error
	return nodes, err
}

func (r *ledgerRepo) ListCommittedNonPositive(ctx context.Context) ([]MemberHoursRow, error) {
	var rows []MemberHoursRow
	err := r.committedMembers(ctx).
		Select("w.workday_id, tm.task_id, tm.member_id, tm.person_id, tm.hours").
		Where("tm.hours <= 0").
		Order("w.workday_id, tm.member_id").
		Scan(&rows).Error
	return rows, err
}

func (r *ledgerRepo) ListOutOfRangeHours(ctx context.Context, min, max float64) ([]MemberHoursRow, error) {
	var rows []MemberHoursRow
	err := r.db.WithContext(ctx).
		Table("task_members AS tm").
		Joins("JOIN workday_tasks wt ON wt.task_id = tm.task_id").
		Select("wt.workday_id, tm.task_id, tm.member_id, tm.person_id, tm.hours").
		Where("tm.hours < ? OR tm.hours > ?", min, max).
		Order("wt.workday_id, tm.member_id").
		Scan(&rows).Error
	return rows, err
}

func (r *ledgerRepo) ListPersonDayTotalsAbove(ctx context.Context, limit float64) ([]PersonDayRow, error) {
	var rows []PersonDayRow
	err := r.committedMembers(ctx).
		Select("w.workday_id, tm.person_id, SUM(tm.hours) AS hours").
		Group("w.workday_id, tm.person_id").
		Having("SUM(tm.hours) > ?", limit).
		Order("w.workday_id, tm.person_id").
		Scan(&rows).Error
	return rows, err
}

func (r *ledgerRepo) ListInvalidTaskReferences(ctx context.Context) ([]TaskReferenceRow, error) {
	var rows []TaskReferenceRow
	err := r.db.WithContext(ctx).
		Table("workday_tasks AS wt").
		Joins("LEFT JOIN schedule_tasks st ON st.schedule_task_id = wt.schedule_task_id").
		Select(`wt.task_id, wt.workday_id, wt.schedule_task_id, wt.ad_hoc_name,
			(wt.schedule_task_id IS NOT NULL AND st.schedule_task_id IS NULL) AS missing`).
		Where(`(wt.schedule_task_id IS NULL AND (wt.ad_hoc_name IS NULL OR TRIM(wt.ad_hoc_name) = ''))
			OR (wt.schedule_task_id IS NOT NULL AND wt.ad_hoc_name IS NOT NULL)
			OR (wt.schedule_task_id IS NOT NULL AND st.schedule_task_id IS NULL)`).
		Order("wt.task_id").
		Scan(&rows).Error
	return rows, err
}

func toHoursMap(rows []HoursRow) map[string]float64 {
	out := make(map[string]float64, len(rows))
	for _, row := range rows {
		out[row.RefID] = row.Hours
	}
	return out
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
