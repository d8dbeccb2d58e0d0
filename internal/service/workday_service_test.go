package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/jesusartemio-dev/gyscontrol-app-sub002/internal/dto"
	"github.com/jesusartemio-dev/gyscontrol-app-sub002/internal/model"
)

// ── OpenWorkday ──

func TestWorkdayService_OpenWorkday(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	w, err := env.svc.Workday.OpenWorkday(ctx, &dto.OpenWorkdayRequest{
		ProjectID:      env.projectID,
		CrewID:         env.crewID,
		WorkDate:       testWorkDate,
		ScheduleNodeID: strPtr(env.node.ScheduleNodeID),
		Objectives:     "  开挖  ",
	}, env.callerID)
	if err != nil {
		t.Fatalf("期望开启成功，实际: %v", err)
	}
	if w.Status != string(model.WorkdayStatusActive) {
		t.Errorf("期望状态 active，实际 %s", w.Status)
	}
	if w.WorkDate != testWorkDate {
		t.Errorf("期望日期 %s，实际 %s", testWorkDate, w.WorkDate)
	}
	if w.Objectives != "开挖" {
		t.Errorf("期望目标去除空白，实际 %q", w.Objectives)
	}
	if w.ScheduleNodeID == nil || *w.ScheduleNodeID != env.node.ScheduleNodeID {
		t.Error("期望记录工作日节点")
	}
}

func TestWorkdayService_OpenWorkday_Errors(t *testing.T) {
	env := newTestEnv(t)
	env.openWorkday(t, false)

	tests := []struct {
		name    string
		req     *dto.OpenWorkdayRequest
		wantErr error
	}{
		{
			name:    "同一项目班组日期重复",
			req:     &dto.OpenWorkdayRequest{ProjectID: env.projectID, CrewID: env.crewID, WorkDate: testWorkDate},
			wantErr: ErrDuplicateActiveWorkday,
		},
		{
			name:    "日期格式错误",
			req:     &dto.OpenWorkdayRequest{ProjectID: env.projectID, CrewID: env.crewID, WorkDate: "02/03/2026"},
			wantErr: ErrInvalidWorkDate,
		},
		{
			name: "节点不存在",
			req: &dto.OpenWorkdayRequest{ProjectID: env.projectID, CrewID: uuid.NewString(), WorkDate: testWorkDate,
				ScheduleNodeID: strPtr(uuid.NewString())},
			wantErr: ErrInvalidScheduleNode,
		},
		{
			name: "节点属于其他项目",
			req: &dto.OpenWorkdayRequest{ProjectID: uuid.NewString(), CrewID: env.crewID, WorkDate: testWorkDate,
				ScheduleNodeID: strPtr(env.node.ScheduleNodeID)},
			wantErr: ErrInvalidScheduleNode,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.Workday.OpenWorkday(context.Background(), tt.req, env.callerID)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("期望 %v，实际: %v", tt.wantErr, err)
			}
		})
	}
}

func TestWorkdayService_OpenWorkday_AfterClose(t *testing.T) {
	env := newTestEnv(t)
	env.closedWorkday(t)

	// 仅 active 工作日参与重复判断
	if _, err := env.svc.Workday.OpenWorkday(context.Background(), &dto.OpenWorkdayRequest{
		ProjectID: env.projectID, CrewID: env.crewID, WorkDate: testWorkDate,
	}, env.callerID); err != nil {
		t.Errorf("期望闭合后可再次开启，实际: %v", err)
	}
}

// ── 查询 ──

func TestWorkdayService_GetAndList(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	closed := env.closedWorkday(t)
	other := env.openWorkday(t, false)

	got, err := env.svc.Workday.GetWorkday(ctx, closed)
	if err != nil {
		t.Fatalf("期望查询成功，实际: %v", err)
	}
	if len(got.Tasks) != 2 || len(got.Blockers) != 1 {
		t.Errorf("期望 2 个任务 1 条阻碍，实际 %d / %d", len(got.Tasks), len(got.Blockers))
	}

	if _, err := env.svc.Workday.GetWorkday(ctx, uuid.NewString()); !errors.Is(err, ErrWorkdayNotFound) {
		t.Errorf("期望 ErrWorkdayNotFound，实际: %v", err)
	}

	list, total, err := env.svc.Workday.ListWorkdays(ctx, &dto.ListWorkdaysRequest{
		ProjectID: env.projectID,
		Status:    string(model.WorkdayStatusActive),
	})
	if err != nil {
		t.Fatalf("期望列表查询成功，实际: %v", err)
	}
	if total != 1 || len(list) != 1 || list[0].ID != other {
		t.Errorf("期望仅返回 active 工作日 %s，实际 total=%d", other, total)
	}

	_, total, err = env.svc.Workday.ListWorkdays(ctx, &dto.ListWorkdaysRequest{
		DateFrom: testWorkDate,
		DateTo:   testWorkDate,
	})
	if err != nil || total != 2 {
		t.Errorf("期望按日期筛选返回 2 条，实际 %d / %v", total, err)
	}

	if _, _, err := env.svc.Workday.ListWorkdays(ctx, &dto.ListWorkdaysRequest{DateFrom: "bad"}); !errors.Is(err, ErrInvalidWorkDate) {
		t.Errorf("期望 ErrInvalidWorkDate，实际: %v", err)
	}
}

// ── 阻碍 ──

func TestWorkdayService_Blockers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.openWorkday(t, false)

	tests := []struct {
		name  string
		input dto.BlockerInput
	}{
		{"类型为空", dto.BlockerInput{Description: "下雨"}},
		{"描述为空", dto.BlockerInput{BlockerTypeID: env.weather.BlockerTypeID, Description: "  "}},
		{"类型已停用", dto.BlockerInput{BlockerTypeID: env.retired.BlockerTypeID, Description: "下雨"}},
		{"类型不存在", dto.BlockerInput{BlockerTypeID: uuid.NewString(), Description: "下雨"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := tt.input
			if _, err := env.svc.Workday.AddBlocker(ctx, id, &input, env.callerID); !errors.Is(err, ErrInvalidBlocker) {
				t.Errorf("期望 ErrInvalidBlocker，实际: %v", err)
			}
		})
	}

	b, err := env.svc.Workday.AddBlocker(ctx, id, &dto.BlockerInput{
		BlockerTypeID: env.weather.BlockerTypeID,
		Description:   "上午降雨",
		ImpactNote:    "延误两小时",
	}, env.callerID)
	if err != nil {
		t.Fatalf("期望登记成功，实际: %v", err)
	}
	if b.BlockerTypeCode != "weather" {
		t.Errorf("期望返回类型编码 weather，实际 %q", b.BlockerTypeCode)
	}

	if err := env.svc.Workday.RemoveBlocker(ctx, b.ID, env.callerID); err != nil {
		t.Fatalf("期望删除成功，实际: %v", err)
	}
	if err := env.svc.Workday.RemoveBlocker(ctx, b.ID, env.callerID); !errors.Is(err, ErrBlockerNotFound) {
		t.Errorf("期望 ErrBlockerNotFound，实际: %v", err)
	}
}

func TestWorkdayService_AddBlocker_NotActive(t *testing.T) {
	env := newTestEnv(t)
	id := env.closedWorkday(t)

	_, err := env.svc.Workday.AddBlocker(context.Background(), id, &dto.BlockerInput{
		BlockerTypeID: env.weather.BlockerTypeID,
		Description:   "补录",
	}, env.callerID)
	if !errors.Is(err, ErrWorkdayNotActive) {
		t.Errorf("期望 ErrWorkdayNotActive，实际: %v", err)
	}
}

// ── DeleteWorkday ──

func TestWorkdayService_DeleteWorkday_RecomputesCommitted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.closedWorkday(t)

	if err := env.svc.Workday.DeleteWorkday(ctx, id, env.callerID); err != nil {
		t.Fatalf("期望删除成功，实际: %v", err)
	}
	if _, err := env.repo.Workday.GetByID(ctx, id); !isRecordNotFound(err) {
		t.Errorf("期望工作日已删除，实际: %v", err)
	}
	if node := env.reloadNode(t); node.ActualHours != 0 {
		t.Errorf("期望节点工时回到 0，实际 %v", node.ActualHours)
	}
	if task := env.reloadTask(t); task.ActualHours != 0 {
		t.Errorf("期望计划任务工时回到 0，实际 %v", task.ActualHours)
	}
	if err := env.svc.Workday.DeleteWorkday(ctx, id, env.callerID); !errors.Is(err, ErrWorkdayNotFound) {
		t.Errorf("期望 ErrWorkdayNotFound，实际: %v", err)
	}
}
