package service

import (
	"time"

	"github.com/jesusartemio-dev/gyscontrol-app-sub002/internal/dto"
	"github.com/jesusartemio-dev/gyscontrol-app-sub002/internal/model"
)

// ── model → dto 转换 ──

const dateLayout = "2006-01-02"

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func formatDate(w *model.Workday) string {
	return time.Time(w.WorkDate).Format(dateLayout)
}

func toWorkdayResponse(w *model.Workday) *dto.WorkdayResponse {
	resp := &dto.WorkdayResponse{
		ID:             w.WorkdayID,
		ProjectID:      w.ProjectID,
		CrewID:         w.CrewID,
		WorkDate:       formatDate(w),
		ScheduleNodeID: w.ScheduleNodeID,
		Objectives:     w.Objectives,
		Location:       w.Location,
		Status:         string(w.Status),
		AvanceDia:      w.AvanceDia,
		PlanSiguiente:  w.PlanSiguiente,
		ClosedAt:       formatTimePtr(w.ClosedAt),
		ClosedBy:       w.ClosedBy,
		ReviewedAt:     formatTimePtr(w.ReviewedAt),
		ReviewedBy:     w.ReviewedBy,
		ReviewNote:     w.ReviewNote,
		Version:        w.Version,
		CreatedAt:      formatTime(w.CreatedAt),
		UpdatedAt:      formatTime(w.UpdatedAt),
	}
	for i := range w.Tasks {
		task := toTaskResponse(&w.Tasks[i])
		resp.TotalHours += task.TotalHours
		resp.Tasks = append(resp.Tasks, task)
	}
	resp.TotalHours = Round2(resp.TotalHours)
	for i := range w.Blockers {
		resp.Blockers = append(resp.Blockers, toBlockerResponse(&w.Blockers[i]))
	}
	return resp
}

func toTaskResponse(t *model.WorkdayTask) dto.TaskResponse {
	resp := dto.TaskResponse{
		ID:             t.TaskID,
		WorkdayID:      t.WorkdayID,
		Kind:           "ad_hoc",
		ScheduleTaskID: t.ScheduleTaskID,
		AdHocName:      t.AdHocName,
		Description:    t.Description,
		Members:        make([]dto.MemberResponse, 0, len(t.Members)),
	}
	if t.ScheduleTaskID != nil {
		resp.Kind = "scheduled"
	}
	if t.ScheduleTask != nil {
		resp.ScheduleTaskName = t.ScheduleTask.Name
	}
	for i := range t.Members {
		resp.TotalHours += t.Members[i].Hours
		resp.Members = append(resp.Members, toMemberResponse(&t.Members[i]))
	}
	resp.TotalHours = Round2(resp.TotalHours)
	return resp
}

func toMemberResponse(m *model.TaskMember) dto.MemberResponse {
	return dto.MemberResponse{
		ID:       m.MemberID,
		TaskID:   m.TaskID,
		PersonID: m.PersonID,
		Hours:    m.Hours,
		Notes:    m.Notes,

		HoursSeeded: m.HoursSeeded,
	}
}

func toBlockerResponse(b *model.Blocker) dto.BlockerResponse {
	resp := dto.BlockerResponse{
		ID:            b.BlockerID,
		WorkdayID:     b.WorkdayID,
		BlockerTypeID: b.BlockerTypeID,
		Description:   b.Description,
		ImpactNote:    b.ImpactNote,
		CreatedAt:     formatTime(b.CreatedAt),
	}
	if b.BlockerType != nil {
		resp.BlockerTypeCode = b.BlockerType.Code
		resp.BlockerTypeName = b.BlockerType.Name
	}
	return resp
}

func toNodeAggregateResponse(n *model.ScheduleNode) dto.NodeAggregateResponse {
	return dto.NodeAggregateResponse{
		ScheduleNodeID: n.ScheduleNodeID,
		Code:           n.Code,
		Name:           n.Name,
		ActualHours:    n.ActualHours,
		CompletionPct:  n.CompletionPct,
		RecomputedAt:   formatTimePtr(n.RecomputedAt),
	}
}

func toNodeAggregates(nodes []model.ScheduleNode) []dto.NodeAggregateResponse {
	out := make([]dto.NodeAggregateResponse, 0, len(nodes))
	for i := range nodes {
		out = append(out, toNodeAggregateResponse(&nodes[i]))
	}
	return out
}

func toScheduleTaskResponse(t *model.ScheduleTask) dto.ScheduleTaskResponse {
	return dto.ScheduleTaskResponse{
		ID:             t.ScheduleTaskID,
		ScheduleNodeID: t.ScheduleNodeID,
		Name:           t.Name,
		PlannedHours:   t.PlannedHours,
		CompletionPct:  t.CompletionPct,
		ActualHours:    t.ActualHours,
	}
}

func toWarningResponses(warnings []Warning) []dto.WarningResponse {
	if len(warnings) == 0 {
		return nil
	}
	out := make([]dto.WarningResponse, 0, len(warnings))
	for _, w := range warnings {
		out = append(out, dto.WarningResponse{
			Code:     w.Code,
			Message:  w.Message,
			PersonID: w.PersonID,
			Hours:    w.Hours,
		})
	}
	return out
}
