package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/jesusartemio-dev/gyscontrol-app-sub002/config"
	"github.com/jesusartemio-dev/gyscontrol-app-sub002/internal/dto"
	"github.com/jesusartemio-dev/gyscontrol-app-sub002/internal/model"
	"github.com/jesusartemio-dev/gyscontrol-app-sub002/internal/repository"
	"github.com/jesusartemio-dev/gyscontrol-app-sub002/pkg/notify"
)

// ── 测试环境：SQLite 内存库 + 真实 Repository ──

const testWorkDate = "2026-03-02"

type testEnv struct {
	db   *gorm.DB
	repo *repository.Repository
	svc  *Service

	projectID string
	crewID    string
	callerID  string

	node    model.ScheduleNode // 计划工时 40 的单任务节点
	task    model.ScheduleTask
	weather model.BlockerType
	retired model.BlockerType // 已停用
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:  gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },

		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("打开测试数据库失败: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("获取连接池失败: %v", err)
	}
	// 内存库只存在于单个连接中
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	err = db.AutoMigrate(
		&model.ScheduleNode{}, &model.ScheduleTask{}, &model.BlockerType{},
		&model.Workday{}, &model.WorkdayTask{}, &model.TaskMember{}, &model.Blocker{},
	)
	if err != nil {
		t.Fatalf("建表失败: %v", err)
	}
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)
	repo := repository.NewRepository(db)
	cfg := &config.Config{
		Workday: config.WorkdayConfig{RejectDuplicateActive: true, AggregationRetries: 1},
		Audit:   config.AuditConfig{Tolerance: 0.01, ReportTTL: time.Hour},
	}

	env := &testEnv{
		db:        db,
		repo:      repo,
		svc:       NewService(cfg, repo, nil, notify.Noop{}, zap.NewNop()),
		projectID: uuid.NewString(),
		crewID:    uuid.NewString(),
		callerID:  uuid.NewString(),
	}

	ctx := context.Background()
	env.node = model.ScheduleNode{ProjectID: env.projectID, Code: "1.1", Name: "基础开挖"}
	if err := repo.ScheduleNode.Create(ctx, &env.node); err != nil {
		t.Fatalf("创建进度节点失败: %v", err)
	}
	env.task = model.ScheduleTask{ScheduleNodeID: env.node.ScheduleNodeID, Name: "开挖", PlannedHours: 40}
	if err := repo.ScheduleTask.Create(ctx, &env.task); err != nil {
		t.Fatalf("创建计划任务失败: %v", err)
	}

	env.weather = model.BlockerType{Code: "weather", Name: "天气", IsActive: true}
	if err := repo.BlockerType.Create(ctx, &env.weather); err != nil {
		t.Fatalf("创建阻碍类型失败: %v", err)
	}
	env.retired = model.BlockerType{Code: "retired", Name: "已停用类型", IsActive: true}
	if err := repo.BlockerType.Create(ctx, &env.retired); err != nil {
		t.Fatalf("创建阻碍类型失败: %v", err)
	}
	// bool 零值会被 default:true 覆盖，需单独更新
	if err := db.Model(&env.retired).Update("is_active", false).Error; err != nil {
		t.Fatalf("停用阻碍类型失败: %v", err)
	}
	env.retired.IsActive = false
	return env
}

// ── 数据构造辅助 ──

func f64(v float64) *float64 { return &v }

func strPtr(s string) *string { return &s }

func (e *testEnv) openWorkday(t *testing.T, withNode bool) string {
	t.Helper()
	req := &dto.OpenWorkdayRequest{
		ProjectID:  e.projectID,
		CrewID:     e.crewID,
		WorkDate:   testWorkDate,
		Objectives: "完成基础开挖",
		Location:   "A 区",
	}
	if withNode {
		req.ScheduleNodeID = strPtr(e.node.ScheduleNodeID)
	}
	w, err := e.svc.Workday.OpenWorkday(context.Background(), req, e.callerID)
	if err != nil {
		t.Fatalf("开启工作日失败: %v", err)
	}
	return w.ID
}

func members(hours ...float64) []dto.TaskMemberInput {
	out := make([]dto.TaskMemberInput, 0, len(hours))
	for _, h := range hours {
		out = append(out, dto.TaskMemberInput{PersonID: uuid.NewString(), Hours: f64(h)})
	}
	return out
}

func (e *testEnv) addScheduledTask(t *testing.T, workdayID string, in []dto.TaskMemberInput) *dto.TaskResponse {
	t.Helper()
	task, err := e.svc.Task.AddTask(context.Background(), workdayID, &dto.AddTaskRequest{
		ScheduleTaskID: strPtr(e.task.ScheduleTaskID),
		Description:    "开挖作业",
		Members:        in,
	}, e.callerID)
	if err != nil {
		t.Fatalf("添加计划任务失败: %v", err)
	}
	return task
}

func (e *testEnv) addAdHocTask(t *testing.T, workdayID, name string, in []dto.TaskMemberInput) *dto.TaskResponse {
	t.Helper()
	task, err := e.svc.Task.AddTask(context.Background(), workdayID, &dto.AddTaskRequest{
		AdHocName: strPtr(name),
		Members:   in,
	}, e.callerID)
	if err != nil {
		t.Fatalf("添加临时任务失败: %v", err)
	}
	return task
}

func (e *testEnv) closeRequest(pct float64) *dto.CloseWorkdayRequest {
	return &dto.CloseWorkdayRequest{
		AvanceDia:     "完成 A 区开挖",
		PlanSiguiente: "B 区开挖",
		Blockers: []dto.BlockerInput{
			{BlockerTypeID: e.weather.BlockerTypeID, Description: "上午降雨停工两小时"},
		},
		ScheduleTaskUpdates: []dto.ScheduleTaskUpdateInput{
			{ScheduleTaskID: e.task.ScheduleTaskID, CompletionPct: f64(pct)},
		},
	}
}

// closedWorkday 构造标准场景并闭合：计划任务 4.0 + 4.5，临时任务 1.0，完成 60%
func (e *testEnv) closedWorkday(t *testing.T) string {
	t.Helper()
	id := e.openWorkday(t, true)
	e.addScheduledTask(t, id, members(4.0, 4.5))
	e.addAdHocTask(t, id, "清理现场", members(1.0))
	if _, err := e.svc.Closing.CloseWorkday(context.Background(), id, e.closeRequest(60), e.callerID); err != nil {
		t.Fatalf("闭合工作日失败: %v", err)
	}
	return id
}

func (e *testEnv) reloadNode(t *testing.T) *model.ScheduleNode {
	t.Helper()
	node, err := e.repo.ScheduleNode.GetByID(context.Background(), e.node.ScheduleNodeID)
	if err != nil {
		t.Fatalf("查询进度节点失败: %v", err)
	}
	return node
}

func (e *testEnv) reloadTask(t *testing.T) *model.ScheduleTask {
	t.Helper()
	task, err := e.repo.ScheduleTask.GetByID(context.Background(), e.task.ScheduleTaskID)
	if err != nil {
		t.Fatalf("查询计划任务失败: %v", err)
	}
	return task
}

func (e *testEnv) reloadWorkday(t *testing.T, id string) *model.Workday {
	t.Helper()
	w, err := e.repo.Workday.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("查询工作日失败: %v", err)
	}
	return w
}

func almostEqual(a, b float64) bool {
	d := a - b
	return d < 1e-6 && d > -1e-6
}
