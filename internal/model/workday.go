package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// WorkdayStatus 工作日（Jornada）状态
type WorkdayStatus string

// 工作日状态取值
const (
	WorkdayStatusActive                WorkdayStatus = "active"
	WorkdayStatusClosedPendingApproval WorkdayStatus = "closed_pending_approval"
	WorkdayStatusApproved              WorkdayStatus = "approved"
	WorkdayStatusRejected              WorkdayStatus = "rejected"
)

// workdayTransitions 合法状态迁移表
// active → closed_pending_approval 只能由闭合流程触发；审批结果为终态
var workdayTransitions = map[WorkdayStatus][]WorkdayStatus{
	WorkdayStatusActive:                {WorkdayStatusClosedPendingApproval},
	WorkdayStatusClosedPendingApproval: {WorkdayStatusApproved, WorkdayStatusRejected},
}

// Valid 是否为已知状态
func (s WorkdayStatus) Valid() bool {
	switch s {
	case WorkdayStatusActive, WorkdayStatusClosedPendingApproval, WorkdayStatusApproved, WorkdayStatusRejected:
		return true
	}
	return false
}

// CanTransitionTo 判断能否迁移到 next
func (s WorkdayStatus) CanTransitionTo(next WorkdayStatus) bool {
	for _, allowed := range workdayTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal 是否为终态
func (s WorkdayStatus) IsTerminal() bool {
	return len(workdayTransitions[s]) == 0
}

// IsCommitted 该状态下的工时是否计入台账
func (s WorkdayStatus) IsCommitted() bool {
	return s == WorkdayStatusClosedPendingApproval || s == WorkdayStatusApproved
}

// CommittedStatuses 计入工时台账的状态集合
func CommittedStatuses() []WorkdayStatus {
	return []WorkdayStatus{WorkdayStatusClosedPendingApproval, WorkdayStatusApproved}
}

// Workday 现场工作日，对应 workdays
type Workday struct {
	WorkdayID      string         `gorm:"type:uuid;primaryKey"                       json:"workday_id"`
	ProjectID      string         `gorm:"type:uuid;not null;index:idx_workday_scope" json:"project_id"`
	CrewID         string         `gorm:"type:uuid;not null;index:idx_workday_scope" json:"crew_id"`
	WorkDate       datatypes.Date `gorm:"not null;index:idx_workday_scope"           json:"work_date"`
	ScheduleNodeID *string        `gorm:"type:uuid;index"                            json:"schedule_node_id,omitempty"`
	Objectives     string         `gorm:"type:text"                                  json:"objectives"`
	Location       string         `gorm:"type:varchar(200)"                          json:"location"`
	Status         WorkdayStatus  `gorm:"type:varchar(32);not null;default:'active'" json:"status"`
	AvanceDia      string         `gorm:"type:text"                                  json:"avance_dia"`
	PlanSiguiente  string         `gorm:"type:text"                                  json:"plan_siguiente"`
	ClosedAt       *time.Time     `json:"closed_at,omitempty"`
	ClosedBy       *string        `gorm:"type:uuid"                                  json:"closed_by,omitempty"`
	ReviewedAt     *time.Time     `json:"reviewed_at,omitempty"`
	ReviewedBy     *string        `gorm:"type:uuid"                                  json:"reviewed_by,omitempty"`
	ReviewNote     string         `gorm:"type:varchar(500)"                          json:"review_note,omitempty"`
	VersionedModel

	// 关联
	ScheduleNode *ScheduleNode `gorm:"foreignKey:ScheduleNodeID;references:ScheduleNodeID" json:"schedule_node,omitempty"`
	Tasks        []WorkdayTask `gorm:"foreignKey:WorkdayID"                                json:"tasks,omitempty"`
	Blockers     []Blocker     `gorm:"foreignKey:WorkdayID"                                json:"blockers,omitempty"`
}

func (Workday) TableName() string { return "workdays" }

func (w *Workday) BeforeCreate(_ *gorm.DB) error {
	ensureID(&w.WorkdayID)
	if w.Status == "" {
		w.Status = WorkdayStatusActive
	}
	return nil
}

// IsActive 是否处于可编辑状态
func (w *Workday) IsActive() bool {
	return w.Status == WorkdayStatusActive
}

// Members 返回工作日下全部任务成员
func (w *Workday) Members() []TaskMember {
	var members []TaskMember
	for _, t := range w.Tasks {
		members = append(members, t.Members...)
	}
	return members
}

// LinkedScheduleTaskIDs 返回关联的进度计划任务 ID（去重，保持出现顺序）
func (w *Workday) LinkedScheduleTaskIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, t := range w.Tasks {
		if t.ScheduleTaskID == nil || seen[*t.ScheduleTaskID] {
			continue
		}
		seen[*t.ScheduleTaskID] = true
		ids = append(ids, *t.ScheduleTaskID)
	}
	return ids
}

// HasAdHocTasks 是否存在临时任务
func (w *Workday) HasAdHocTasks() bool {
	for _, t := range w.Tasks {
		if t.ScheduleTaskID == nil {
			return true
		}
	}
	return false
}
