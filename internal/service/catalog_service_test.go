package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestCatalogService_ListBlockerTypes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	active, err := env.svc.Catalog.ListBlockerTypes(ctx, false)
	if err != nil {
		t.Fatalf("期望查询成功，实际: %v", err)
	}
	if len(active) != 1 || active[0].Code != "weather" {
		t.Errorf("期望仅返回启用类型，实际 %+v", active)
	}

	all, err := env.svc.Catalog.ListBlockerTypes(ctx, true)
	if err != nil {
		t.Fatalf("期望查询成功，实际: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("期望包含停用类型共 2 条，实际 %d", len(all))
	}
}

func TestCatalogService_GetScheduleNode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.closedWorkday(t)

	node, err := env.svc.Catalog.GetScheduleNode(ctx, env.node.ScheduleNodeID)
	if err != nil {
		t.Fatalf("期望查询成功，实际: %v", err)
	}
	if node.ProjectID != env.projectID || len(node.Tasks) != 1 {
		t.Errorf("期望节点含 1 个计划任务，实际 %+v", node)
	}
	if !almostEqual(node.ActualHours, 9.5) || !almostEqual(node.Tasks[0].ActualHours, 8.5) {
		t.Errorf("期望节点 9.5 / 任务 8.5，实际 %v / %v", node.ActualHours, node.Tasks[0].ActualHours)
	}

	if _, err := env.svc.Catalog.GetScheduleNode(ctx, uuid.NewString()); !errors.Is(err, ErrScheduleNodeNotFound) {
		t.Errorf("期望 ErrScheduleNodeNotFound，实际: %v", err)
	}
}
