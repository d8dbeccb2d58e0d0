package model

import (
	"time"

	"gorm.io/gorm"
)

// ScheduleNode 进度计划节点（EDT），对应 schedule_nodes
// 由进度计划子系统维护；本服务只回写 actual_hours / completion_pct / recomputed_at
type ScheduleNode struct {
	ScheduleNodeID string     `gorm:"type:uuid;primaryKey"                 json:"schedule_node_id"`
	ProjectID      string     `gorm:"type:uuid;not null;index"             json:"project_id"`
	Code           string     `gorm:"type:varchar(40);not null"            json:"code"`
	Name           string     `gorm:"type:varchar(200);not null"           json:"name"`
	ActualHours    float64    `gorm:"type:numeric(12,2);not null;default:0" json:"actual_hours"`
	CompletionPct  float64    `gorm:"type:numeric(5,2);not null;default:0"  json:"completion_pct"`
	RecomputedAt   *time.Time `json:"recomputed_at,omitempty"`
	BaseModel

	// 关联
	Tasks []ScheduleTask `gorm:"foreignKey:ScheduleNodeID" json:"tasks,omitempty"`
}

func (ScheduleNode) TableName() string { return "schedule_nodes" }

func (n *ScheduleNode) BeforeCreate(_ *gorm.DB) error {
	ensureID(&n.ScheduleNodeID)
	return nil
}

// ScheduleTask 进度计划任务，对应 schedule_tasks
type ScheduleTask struct {
	ScheduleTaskID string  `gorm:"type:uuid;primaryKey"                  json:"schedule_task_id"`
	ScheduleNodeID string  `gorm:"type:uuid;not null;index"              json:"schedule_node_id"`
	Name           string  `gorm:"type:varchar(200);not null"            json:"name"`
	PlannedHours   float64 `gorm:"type:numeric(10,2);not null;default:0" json:"planned_hours"`
	CompletionPct  float64 `gorm:"type:numeric(5,2);not null;default:0"  json:"completion_pct"`
	ActualHours    float64 `gorm:"type:numeric(12,2);not null;default:0" json:"actual_hours"`
	VersionedModel

	// 关联
	ScheduleNode *ScheduleNode `gorm:"foreignKey:ScheduleNodeID;references:ScheduleNodeID" json:"schedule_node,omitempty"`
}

func (ScheduleTask) TableName() string { return "schedule_tasks" }

func (t *ScheduleTask) BeforeCreate(_ *gorm.DB) error {
	ensureID(&t.ScheduleTaskID)
	return nil
}
