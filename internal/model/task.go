package model

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrTaskKindInvalid 任务引用必须且只能是计划任务或临时任务之一
var ErrTaskKindInvalid = errors.New("任务必须关联计划任务或填写临时任务名称（二选一）")

// TaskKind 工作日任务的引用类型：ScheduledTask | AdHocTask
type TaskKind interface {
	isTaskKind()
	String() string
}

// ScheduledTask 关联进度计划（EDT）节点下的计划任务
type ScheduledTask struct {
	ScheduleTaskID string
}

// AdHocTask 未纳入进度计划的临时任务
type AdHocTask struct {
	Name string
}

func (ScheduledTask) isTaskKind() {}
func (AdHocTask) isTaskKind()     {}

func (k ScheduledTask) String() string { return "scheduled:" + k.ScheduleTaskID }
func (k AdHocTask) String() string     { return "ad_hoc:" + k.Name }

// NewTaskKind 由可空的两个字段构造任务引用
func NewTaskKind(scheduleTaskID, adHocName *string) (TaskKind, error) {
	hasRef := scheduleTaskID != nil && strings.TrimSpace(*scheduleTaskID) != ""
	hasName := adHocName != nil && strings.TrimSpace(*adHocName) != ""
	switch {
	case hasRef && !hasName:
		return ScheduledTask{ScheduleTaskID: strings.TrimSpace(*scheduleTaskID)}, nil
	case hasName && !hasRef:
		return AdHocTask{Name: strings.TrimSpace(*adHocName)}, nil
	default:
		return nil, ErrTaskKindInvalid
	}
}

// WorkdayTask 工作日任务，对应 workday_tasks
// schedule_task_id 与 ad_hoc_name 仅通过 SetKind 写入
type WorkdayTask struct {
	TaskID         string  `gorm:"type:uuid;primaryKey"           json:"task_id"`
	WorkdayID      string  `gorm:"type:uuid;not null;index"       json:"workday_id"`
	ScheduleTaskID *string `gorm:"type:uuid;index"                json:"schedule_task_id,omitempty"`
	AdHocName      *string `gorm:"type:varchar(200)"              json:"ad_hoc_name,omitempty"`
	Description    string  `gorm:"type:text"                      json:"description"`
	BaseModel

	// 关联
	ScheduleTask *ScheduleTask `gorm:"foreignKey:ScheduleTaskID;references:ScheduleTaskID" json:"schedule_task,omitempty"`
	Members      []TaskMember  `gorm:"foreignKey:TaskID"                                   json:"members,omitempty"`
}

func (WorkdayTask) TableName() string { return "workday_tasks" }

func (t *WorkdayTask) BeforeCreate(_ *gorm.DB) error {
	ensureID(&t.TaskID)
	return nil
}

// Kind 还原任务引用；数据被绕过 SetKind 改坏时返回错误
func (t *WorkdayTask) Kind() (TaskKind, error) {
	return NewTaskKind(t.ScheduleTaskID, t.AdHocName)
}

// SetKind 写入任务引用，保证两个字段互斥
func (t *WorkdayTask) SetKind(kind TaskKind) {
	switch k := kind.(type) {
	case ScheduledTask:
		id := k.ScheduleTaskID
		t.ScheduleTaskID = &id
		t.AdHocName = nil
	case AdHocTask:
		name := k.Name
		t.AdHocName = &name
		t.ScheduleTaskID = nil
	}
}

// DisplayName 用于导出与日志
func (t *WorkdayTask) DisplayName() string {
	if t.AdHocName != nil {
		return *t.AdHocName
	}
	if t.ScheduleTask != nil {
		return t.ScheduleTask.Name
	}
	if t.ScheduleTaskID != nil {
		return *t.ScheduleTaskID
	}
	return ""
}

// TaskMember 任务成员工时，对应 task_members
type TaskMember struct {
	MemberID string  `gorm:"type:uuid;primaryKey"                            json:"member_id"`
	TaskID   string  `gorm:"type:uuid;not null;uniqueIndex:uk_task_person"   json:"task_id"`
	PersonID string  `gorm:"type:uuid;not null;uniqueIndex:uk_task_person"   json:"person_id"`
	Hours    float64 `gorm:"type:numeric(4,1);not null;default:0"            json:"hours"`
	Notes    string  `gorm:"type:varchar(500)"                               json:"notes,omitempty"`

	// HoursSeeded 工时来自默认分配；显式录入后清除
	HoursSeeded bool `gorm:"not null;default:false" json:"hours_seeded"`
	BaseModel
}

func (TaskMember) TableName() string { return "task_members" }

func (m *TaskMember) BeforeCreate(_ *gorm.DB) error {
	ensureID(&m.MemberID)
	return nil
}
