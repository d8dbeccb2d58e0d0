package cronjob

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/jesusartemio-dev/gyscontrol-app-sub002/config"
	"github.com/jesusartemio-dev/gyscontrol-app-sub002/internal/dto"
)

type fakeRunner struct {
	calls chan struct{}
	err   error
}

func (f *fakeRunner) RunAudit(context.Context) (*dto.AuditReport, error) {
	f.calls <- struct{}{}
	if f.err != nil {
		return nil, f.err
	}
	return &dto.AuditReport{}, nil
}

func TestAuditor_RunOnStart(t *testing.T) {
	runner := &fakeRunner{calls: make(chan struct{}, 1)}
	// 每年 1 月 1 日，测试期间不会被调度触发
	cfg := &config.AuditConfig{Cron: "0 0 0 1 1 *", RunOnStart: true}
	a := NewAuditor(cfg, runner, zap.NewNop())

	if err := a.Start(); err != nil {
		t.Fatalf("期望启动成功，实际: %v", err)
	}
	defer a.Stop()

	select {
	case <-runner.calls:
	case <-time.After(3 * time.Second):
		t.Fatal("期望启动后立即执行一次巡检")
	}
	if a.NextRun().IsZero() {
		t.Error("期望已计算下一次执行时间")
	}
	// 重复启动无副作用
	if err := a.Start(); err != nil {
		t.Errorf("重复启动不应报错，实际: %v", err)
	}
}

func TestAuditor_Scheduled(t *testing.T) {
	runner := &fakeRunner{calls: make(chan struct{}, 4), err: errors.New("boom")}
	a := NewAuditor(&config.AuditConfig{Cron: "* * * * * *"}, runner, zap.NewNop())

	if err := a.Start(); err != nil {
		t.Fatalf("期望启动成功，实际: %v", err)
	}
	defer a.Stop()

	select {
	case <-runner.calls:
	case <-time.After(3 * time.Second):
		t.Fatal("期望按秒级计划触发巡检")
	}
}

func TestAuditor_InvalidSpec(t *testing.T) {
	runner := &fakeRunner{calls: make(chan struct{}, 1)}

	a := NewAuditor(&config.AuditConfig{Cron: "every day"}, runner, zap.NewNop())
	if err := a.Start(); err == nil {
		a.Stop()
		t.Fatal("期望非法 cron 表达式启动失败")
	}

	b := NewAuditor(&config.AuditConfig{Cron: "0 30 2 * * *"}, runner, zap.NewNop())
	if err := b.Start(); err != nil {
		t.Fatalf("期望启动成功，实际: %v", err)
	}
	defer b.Stop()
	if err := b.UpdateSchedule("0 30 2 * *"); err == nil {
		t.Error("期望 5 段表达式被拒绝")
	}
	if err := b.UpdateSchedule("0 0 3 * * *"); err != nil {
		t.Errorf("期望更新成功，实际: %v", err)
	}
}
