package dto

// ── 工作日（Jornada）模块 DTO ──

// OpenWorkdayRequest 开启工作日请求
type OpenWorkdayRequest struct {
	ProjectID      string  `json:"project_id"       binding:"required,uuid"`
	CrewID         string  `json:"crew_id"          binding:"required,uuid"`
	WorkDate       string  `json:"work_date"        binding:"required,datetime=2006-01-02"`
	ScheduleNodeID *string `json:"schedule_node_id" binding:"omitempty,uuid"`
	Objectives     string  `json:"objectives"       binding:"max=2000"`
	Location       string  `json:"location"         binding:"max=200"`
}

// ListWorkdaysRequest 工作日列表查询参数
type ListWorkdaysRequest struct {
	ProjectID string `form:"project_id" binding:"omitempty,uuid"`
	CrewID    string `form:"crew_id"    binding:"omitempty,uuid"`
	Status    string `form:"status"     binding:"omitempty,oneof=active closed_pending_approval approved rejected"`
	DateFrom  string `form:"date_from"  binding:"omitempty,datetime=2006-01-02"`
	DateTo    string `form:"date_to"    binding:"omitempty,datetime=2006-01-02"`
	PaginationRequest
}

// TaskMemberInput 任务成员工时输入；Hours 为空时按默认分配填充
type TaskMemberInput struct {
	PersonID string   `json:"person_id" binding:"required,uuid"`
	Hours    *float64 `json:"hours"     binding:"omitempty,half_hour"`
	Notes    string   `json:"notes"     binding:"max=500"`
}

// AddTaskRequest 添加任务请求：schedule_task_id 与 ad_hoc_name 二选一
type AddTaskRequest struct {
	ScheduleTaskID *string           `json:"schedule_task_id" binding:"omitempty,uuid"`
	AdHocName      *string           `json:"ad_hoc_name"      binding:"omitempty,max=200"`
	Description    string            `json:"description"      binding:"max=2000"`
	Members        []TaskMemberInput `json:"members"          binding:"omitempty,dive"`
}

// UpdateTaskRequest 修改任务请求；引用字段同时为空时保持原引用
type UpdateTaskRequest struct {
	ScheduleTaskID *string `json:"schedule_task_id" binding:"omitempty,uuid"`
	AdHocName      *string `json:"ad_hoc_name"      binding:"omitempty,max=200"`
	Description    *string `json:"description"      binding:"omitempty,max=2000"`
}

// SetMemberHoursRequest 设置成员工时
type SetMemberHoursRequest struct {
	Hours *float64 `json:"hours" binding:"required,half_hour"`
	Notes *string  `json:"notes" binding:"omitempty,max=500"`
}

// BlockerInput 阻碍记录输入
type BlockerInput struct {
	BlockerTypeID string `json:"blocker_type_id" binding:"max=64"`
	Description   string `json:"description"     binding:"max=2000"`
	ImpactNote    string `json:"impact_note"     binding:"max=2000"`
}

// ScheduleTaskUpdateInput 闭合时提交的计划任务完成百分比
type ScheduleTaskUpdateInput struct {
	ScheduleTaskID string   `json:"schedule_task_id"`
	CompletionPct  *float64 `json:"completion_pct"`
}

// CloseWorkdayRequest 闭合工作日请求（工时 → 阻碍 → 进度 三阶段一次提交）
type CloseWorkdayRequest struct {
	AvanceDia           string                    `json:"avance_dia"            binding:"max=4000"`
	PlanSiguiente       string                    `json:"plan_siguiente"        binding:"max=4000"`
	Blockers            []BlockerInput            `json:"blockers"              binding:"omitempty,dive"`
	ScheduleTaskUpdates []ScheduleTaskUpdateInput `json:"schedule_task_updates"`
}

// ReviewWorkdayRequest 审批请求
type ReviewWorkdayRequest struct {
	Decision string `json:"decision" binding:"required,oneof=approve reject"`
	Note     string `json:"note"     binding:"max=500"`
}

// CorrectMemberHoursRequest 管理员修正已提交工时
type CorrectMemberHoursRequest struct {
	Hours  *float64 `json:"hours"  binding:"required,half_hour"`
	Reason string   `json:"reason" binding:"required,min=2,max=500"`
}

// ── 响应 ──

// WorkdayResponse 工作日详情
type WorkdayResponse struct {
	ID             string            `json:"id"`
	ProjectID      string            `json:"project_id"`
	CrewID         string            `json:"crew_id"`
	WorkDate       string            `json:"work_date"`
	ScheduleNodeID *string           `json:"schedule_node_id,omitempty"`
	Objectives     string            `json:"objectives"`
	Location       string            `json:"location"`
	Status         string            `json:"status"`
	AvanceDia      string            `json:"avance_dia,omitempty"`
	PlanSiguiente  string            `json:"plan_siguiente,omitempty"`
	ClosedAt       *string           `json:"closed_at,omitempty"`
	ClosedBy       *string           `json:"closed_by,omitempty"`
	ReviewedAt     *string           `json:"reviewed_at,omitempty"`
	ReviewedBy     *string           `json:"reviewed_by,omitempty"`
	ReviewNote     string            `json:"review_note,omitempty"`
	TotalHours     float64           `json:"total_hours"`
	Version        int               `json:"version"`
	Tasks          []TaskResponse    `json:"tasks,omitempty"`
	Blockers       []BlockerResponse `json:"blockers,omitempty"`
	CreatedAt      string            `json:"created_at"`
	UpdatedAt      string            `json:"updated_at"`
}

// TaskResponse 工作日任务
type TaskResponse struct {
	ID               string           `json:"id"`
	WorkdayID        string           `json:"workday_id"`
	Kind             string           `json:"kind"` // scheduled | ad_hoc
	ScheduleTaskID   *string          `json:"schedule_task_id,omitempty"`
	ScheduleTaskName string           `json:"schedule_task_name,omitempty"`
	AdHocName        *string          `json:"ad_hoc_name,omitempty"`
	Description      string           `json:"description"`
	TotalHours       float64          `json:"total_hours"`
	Members          []MemberResponse `json:"members"`
}

// MemberResponse 任务成员工时
type MemberResponse struct {
	ID       string  `json:"id"`
	TaskID   string  `json:"task_id"`
	PersonID string  `json:"person_id"`
	Hours    float64 `json:"hours"`
	Notes    string  `json:"notes,omitempty"`

	// HoursSeeded 工时为默认分配值，人员任务变化时会被重算
	HoursSeeded bool `json:"hours_seeded"`
}

// BlockerResponse 阻碍记录
type BlockerResponse struct {
	ID              string `json:"id"`
	WorkdayID       string `json:"workday_id"`
	BlockerTypeID   string `json:"blocker_type_id"`
	BlockerTypeCode string `json:"blocker_type_code,omitempty"`
	BlockerTypeName string `json:"blocker_type_name,omitempty"`
	Description     string `json:"description"`
	ImpactNote      string `json:"impact_note,omitempty"`
	CreatedAt       string `json:"created_at"`
}

// BlockerTypeResponse 阻碍类型
type BlockerTypeResponse struct {
	ID       string `json:"id"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
}

// NodeAggregateResponse 进度节点聚合值
type NodeAggregateResponse struct {
	ScheduleNodeID string  `json:"schedule_node_id"`
	Code           string  `json:"code"`
	Name           string  `json:"name"`
	ActualHours    float64 `json:"actual_hours"`
	CompletionPct  float64 `json:"completion_pct"`
	RecomputedAt   *string `json:"recomputed_at,omitempty"`
}

// ScheduleTaskResponse 计划任务
type ScheduleTaskResponse struct {
	ID             string  `json:"id"`
	ScheduleNodeID string  `json:"schedule_node_id"`
	Name           string  `json:"name"`
	PlannedHours   float64 `json:"planned_hours"`
	CompletionPct  float64 `json:"completion_pct"`
	ActualHours    float64 `json:"actual_hours"`
}

// ScheduleNodeResponse 进度节点详情
type ScheduleNodeResponse struct {
	NodeAggregateResponse
	ProjectID string                 `json:"project_id"`
	Tasks     []ScheduleTaskResponse `json:"tasks"`
}

// WarningResponse 非阻断提示
type WarningResponse struct {
	Code     string  `json:"code"`
	Message  string  `json:"message"`
	PersonID string  `json:"person_id,omitempty"`
	Hours    float64 `json:"hours,omitempty"`
}

// CloseWorkdayResponse 闭合结果
type CloseWorkdayResponse struct {
	Workday  *WorkdayResponse        `json:"workday"`
	Nodes    []NodeAggregateResponse `json:"nodes"`
	Warnings []WarningResponse       `json:"warnings,omitempty"`
}

// AllocationItem 单条默认分配建议
type AllocationItem struct {
	TaskID   string  `json:"task_id"`
	MemberID string  `json:"member_id"`
	PersonID string  `json:"person_id"`
	Hours    float64 `json:"hours"`
	Seeded   bool    `json:"seeded"`
}

// AllocationResponse 默认工时分配（预览或已写入）
type AllocationResponse struct {
	WorkdayID string            `json:"workday_id"`
	Items     []AllocationItem  `json:"items"`
	Applied   int               `json:"applied"`
	Warnings  []WarningResponse `json:"warnings,omitempty"`
}

// CorrectionResponse 管理员修正结果
type CorrectionResponse struct {
	Member *MemberResponse         `json:"member,omitempty"`
	Nodes  []NodeAggregateResponse `json:"nodes"`
}
