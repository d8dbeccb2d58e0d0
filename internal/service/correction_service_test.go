package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/jesusartemio-dev/gyscontrol-app-sub002/internal/dto"
	"github.com/jesusartemio-dev/gyscontrol-app-sub002/internal/model"
)

func TestCorrectionService_CorrectMemberHours(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.closedWorkday(t)

	var target model.TaskMember
	for _, task := range env.reloadWorkday(t, id).Tasks {
		for _, m := range task.Members {
			if m.Hours == 4.0 {
				target = m
			}
		}
	}

	resp, err := env.svc.Correction.CorrectMemberHours(ctx, target.MemberID, &dto.CorrectMemberHoursRequest{
		Hours:  f64(6),
		Reason: "补录加班",
	}, env.callerID)
	if err != nil {
		t.Fatalf("期望修正成功，实际: %v", err)
	}
	if resp.Member == nil || resp.Member.Hours != 6 {
		t.Errorf("期望成员工时 6，实际 %+v", resp.Member)
	}
	if len(resp.Nodes) != 1 || !almostEqual(resp.Nodes[0].ActualHours, 11.5) {
		t.Errorf("期望节点工时 11.5，实际 %+v", resp.Nodes)
	}
	if task := env.reloadTask(t); !almostEqual(task.ActualHours, 10.5) {
		t.Errorf("期望计划任务工时 10.5，实际 %v", task.ActualHours)
	}

	for _, h := range []float64{0, 24.5} {
		_, err := env.svc.Correction.CorrectMemberHours(ctx, target.MemberID, &dto.CorrectMemberHoursRequest{Hours: f64(h), Reason: "错误"}, env.callerID)
		if !errors.Is(err, ErrInvalidHours) {
			t.Errorf("工时 %v 期望 ErrInvalidHours，实际: %v", h, err)
		}
	}
}

func TestCorrectionService_RequiresCommitted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.openWorkday(t, true)
	task := env.addScheduledTask(t, id, members(4))

	_, err := env.svc.Correction.CorrectMemberHours(ctx, task.Members[0].ID, &dto.CorrectMemberHoursRequest{Hours: f64(5), Reason: "修正"}, env.callerID)
	if !errors.Is(err, ErrWorkdayNotCommitted) {
		t.Errorf("期望 ErrWorkdayNotCommitted，实际: %v", err)
	}
	if _, err := env.svc.Correction.DeleteTaskCorrection(ctx, task.ID, env.callerID); !errors.Is(err, ErrWorkdayNotCommitted) {
		t.Errorf("期望 ErrWorkdayNotCommitted，实际: %v", err)
	}
	if _, err := env.svc.Correction.CorrectMemberHours(ctx, uuid.NewString(), &dto.CorrectMemberHoursRequest{Hours: f64(5), Reason: "修正"}, env.callerID); !errors.Is(err, ErrMemberNotFound) {
		t.Errorf("期望 ErrMemberNotFound，实际: %v", err)
	}
}

func TestCorrectionService_DeleteTaskCorrection(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.closedWorkday(t)

	var adHocID string
	for _, task := range env.reloadWorkday(t, id).Tasks {
		if task.ScheduleTaskID == nil {
			adHocID = task.TaskID
		}
	}

	resp, err := env.svc.Correction.DeleteTaskCorrection(ctx, adHocID, env.callerID)
	if err != nil {
		t.Fatalf("期望删除成功，实际: %v", err)
	}
	if len(resp.Nodes) != 1 || !almostEqual(resp.Nodes[0].ActualHours, 8.5) {
		t.Errorf("期望节点工时 8.5，实际 %+v", resp.Nodes)
	}
	if _, err := env.svc.Correction.DeleteTaskCorrection(ctx, adHocID, env.callerID); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("期望 ErrTaskNotFound，实际: %v", err)
	}
}

func TestCorrectionService_RecomputeNode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.closedWorkday(t)

	// 绕过聚合器直接改坏节点
	err := env.db.Model(&model.ScheduleNode{}).
		Where("schedule_node_id = ?", env.node.ScheduleNodeID).
		Updates(map[string]interface{}{"actual_hours": 99, "completion_pct": 1}).Error
	if err != nil {
		t.Fatalf("改写节点失败: %v", err)
	}

	resp, err := env.svc.Correction.RecomputeNode(ctx, env.node.ScheduleNodeID, env.callerID)
	if err != nil {
		t.Fatalf("期望重算成功，实际: %v", err)
	}
	if !almostEqual(resp.ActualHours, 9.5) || !almostEqual(resp.CompletionPct, 60) {
		t.Errorf("期望恢复为 9.5 / 60，实际 %v / %v", resp.ActualHours, resp.CompletionPct)
	}

	if _, err := env.svc.Correction.RecomputeNode(ctx, uuid.NewString(), env.callerID); !errors.Is(err, ErrScheduleNodeNotFound) {
		t.Errorf("期望 ErrScheduleNodeNotFound，实际: %v", err)
	}
}
