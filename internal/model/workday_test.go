package model

import (
	"errors"
	"testing"
)

func TestWorkdayStatus_Transitions(t *testing.T) {
	tests := []struct {
		from, to WorkdayStatus
		want     bool
	}{
		{WorkdayStatusActive, WorkdayStatusClosedPendingApproval, true},
		{WorkdayStatusActive, WorkdayStatusApproved, false},
		{WorkdayStatusActive, WorkdayStatusRejected, false},
		{WorkdayStatusClosedPendingApproval, WorkdayStatusApproved, true},
		{WorkdayStatusClosedPendingApproval, WorkdayStatusRejected, true},
		{WorkdayStatusClosedPendingApproval, WorkdayStatusActive, false},
		{WorkdayStatusApproved, WorkdayStatusActive, false},
		{WorkdayStatusRejected, WorkdayStatusClosedPendingApproval, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
			t.Errorf("%s → %s: 期望 %v，实际 %v", tt.from, tt.to, tt.want, got)
		}
	}

	if !WorkdayStatusApproved.IsTerminal() || !WorkdayStatusRejected.IsTerminal() {
		t.Error("approved / rejected 应为终态")
	}
	if WorkdayStatusActive.IsTerminal() {
		t.Error("active 不应为终态")
	}
	if WorkdayStatus("draft").Valid() {
		t.Error("未知状态不应通过校验")
	}
}

func TestWorkdayStatus_IsCommitted(t *testing.T) {
	if WorkdayStatusActive.IsCommitted() || WorkdayStatusRejected.IsCommitted() {
		t.Error("active / rejected 的工时不计入台账")
	}
	if !WorkdayStatusClosedPendingApproval.IsCommitted() || !WorkdayStatusApproved.IsCommitted() {
		t.Error("待审批与已审批的工时应计入台账")
	}
}

func strPtr(s string) *string { return &s }

func TestNewTaskKind(t *testing.T) {
	tests := []struct {
		name    string
		ref     *string
		adHoc   *string
		want    TaskKind
		wantErr bool
	}{
		{"scheduled", strPtr("st-1"), nil, ScheduledTask{ScheduleTaskID: "st-1"}, false},
		{"ad hoc", nil, strPtr(" cleanup "), AdHocTask{Name: "cleanup"}, false},
		{"both", strPtr("st-1"), strPtr("cleanup"), nil, true},
		{"neither", nil, nil, nil, true},
		{"blank values count as missing", strPtr("  "), strPtr(""), nil, true},
		{"blank ref with name", strPtr(""), strPtr("cleanup"), AdHocTask{Name: "cleanup"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewTaskKind(tt.ref, tt.adHoc)
			if tt.wantErr {
				if !errors.Is(err, ErrTaskKindInvalid) {
					t.Fatalf("期望 ErrTaskKindInvalid，实际 %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("不应报错: %v", err)
			}
			if got != tt.want {
				t.Errorf("期望 %v，实际 %v", tt.want, got)
			}
		})
	}
}

func TestWorkdayTask_SetKindKeepsFieldsExclusive(t *testing.T) {
	task := &WorkdayTask{}

	task.SetKind(ScheduledTask{ScheduleTaskID: "st-1"})
	if task.ScheduleTaskID == nil || *task.ScheduleTaskID != "st-1" || task.AdHocName != nil {
		t.Fatalf("计划任务引用写入错误: %+v", task)
	}

	task.SetKind(AdHocTask{Name: "cleanup"})
	if task.AdHocName == nil || *task.AdHocName != "cleanup" || task.ScheduleTaskID != nil {
		t.Fatalf("临时任务引用写入错误: %+v", task)
	}

	kind, err := task.Kind()
	if err != nil {
		t.Fatalf("Kind 不应报错: %v", err)
	}
	if _, ok := kind.(AdHocTask); !ok {
		t.Errorf("期望 AdHocTask，实际 %T", kind)
	}
}

func TestWorkday_LinkedScheduleTaskIDs(t *testing.T) {
	w := &Workday{Tasks: []WorkdayTask{
		{ScheduleTaskID: strPtr("st-1")},
		{AdHocName: strPtr("cleanup")},
		{ScheduleTaskID: strPtr("st-2")},
		{ScheduleTaskID: strPtr("st-1")},
	}}
	ids := w.LinkedScheduleTaskIDs()
	if len(ids) != 2 || ids[0] != "st-1" || ids[1] != "st-2" {
		t.Errorf("期望 [st-1 st-2]，实际 %v", ids)
	}
	if !w.HasAdHocTasks() {
		t.Error("应检测到临时任务")
	}
}
