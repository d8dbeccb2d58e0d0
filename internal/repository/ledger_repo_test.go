package repository

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/jesusartemio-dev/gyscontrol-app-sub002/internal/model"
)

// ── 测试数据：SQLite 内存库 ──

type ledgerFixture struct {
	db    *gorm.DB
	repo  *Repository
	nodeA model.ScheduleNode
	nodeB model.ScheduleNode
	taskA model.ScheduleTask // 属于 nodeA
	taskB model.ScheduleTask // 属于 nodeB
}

func openLedgerDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("打开测试数据库失败: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("获取连接池失败: %v", err)
	}
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

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()
	db := openLedgerDB(t)
	ctx := context.Background()
	f := &ledgerFixture{db: db, repo: NewRepository(db)}

	projectID := uuid.NewString()
	f.nodeA = model.ScheduleNode{ProjectID: projectID, Code: "1.1", Name: "基础"}
	f.nodeB = model.ScheduleNode{ProjectID: projectID, Code: "1.2", Name: "结构"}
	for _, n := range []*model.ScheduleNode{&f.nodeA, &f.nodeB} {
		if err := f.repo.ScheduleNode.Create(ctx, n); err != nil {
			t.Fatalf("创建节点失败: %v", err)
		}
	}
	f.taskA = model.ScheduleTask{ScheduleNodeID: f.nodeA.ScheduleNodeID, Name: "开挖", PlannedHours: 40}
	f.taskB = model.ScheduleTask{ScheduleNodeID: f.nodeB.ScheduleNodeID, Name: "浇筑", PlannedHours: 20}
	for _, st := range []*model.ScheduleTask{&f.taskA, &f.taskB} {
		if err := f.repo.ScheduleTask.Create(ctx, st); err != nil {
			t.Fatalf("创建计划任务失败: %v", err)
		}
	}
	return f
}

// workday 创建指定状态的工作日；node 为空表示不关联节点
func (f *ledgerFixture) workday(t *testing.T, status model.WorkdayStatus, node string) *model.Workday {
	t.Helper()
	w := &model.Workday{
		ProjectID: f.nodeA.ProjectID,
		CrewID:    uuid.NewString(),
		WorkDate:  datatypes.Date(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)),
		Status:    status,
	}
	if node != "" {
		w.ScheduleNodeID = &node
	}
	if err := f.repo.Workday.Create(context.Background(), w); err != nil {
		t.Fatalf("创建工作日失败: %v", err)
	}
	return w
}

// task 在工作日下创建任务；scheduleTaskID 为空时为临时任务
func (f *ledgerFixture) task(t *testing.T, workdayID, scheduleTaskID string, hours ...float64) *model.WorkdayTask {
	t.Helper()
	task := &model.WorkdayTask{WorkdayID: workdayID}
	if scheduleTaskID != "" {
		task.SetKind(model.ScheduledTask{ScheduleTaskID: scheduleTaskID})
	} else {
		task.SetKind(model.AdHocTask{Name: "清理现场"})
	}
	for _, h := range hours {
		task.Members = append(task.Members, model.TaskMember{PersonID: uuid.NewString(), Hours: h})
	}
	if err := f.repo.WorkdayTask.Create(context.Background(), task); err != nil {
		t.Fatalf("创建任务失败: %v", err)
	}
	return task
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

// ── 汇总 ──

func TestLedgerRepo_SumsOnlyCommitted(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	closed := f.workday(t, model.WorkdayStatusClosedPendingApproval, f.nodeA.ScheduleNodeID)
	f.task(t, closed.WorkdayID, f.taskA.ScheduleTaskID, 4, 4.5)
	f.task(t, closed.WorkdayID, "", 1)

	approved := f.workday(t, model.WorkdayStatusApproved, "")
	f.task(t, approved.WorkdayID, f.taskB.ScheduleTaskID, 2)

	active := f.workday(t, model.WorkdayStatusActive, f.nodeA.ScheduleNodeID)
	f.task(t, active.WorkdayID, f.taskA.ScheduleTaskID, 8)
	f.task(t, active.WorkdayID, "", 3)

	rejected := f.workday(t, model.WorkdayStatusRejected, f.nodeB.ScheduleNodeID)
	f.task(t, rejected.WorkdayID, f.taskB.ScheduleTaskID, 5)

	byTask, err := f.repo.Ledger.SumByScheduleTask(ctx, nil)
	if err != nil {
		t.Fatalf("SumByScheduleTask 失败: %v", err)
	}
	if !near(byTask[f.taskA.ScheduleTaskID], 8.5) || !near(byTask[f.taskB.ScheduleTaskID], 2) {
		t.Errorf("期望计划任务工时 8.5 / 2，实际 %v", byTask)
	}

	filtered, err := f.repo.Ledger.SumByScheduleTask(ctx, []string{f.taskB.ScheduleTaskID})
	if err != nil {
		t.Fatalf("SumByScheduleTask 失败: %v", err)
	}
	if len(filtered) != 1 || !near(filtered[f.taskB.ScheduleTaskID], 2) {
		t.Errorf("期望仅返回指定计划任务，实际 %v", filtered)
	}

	scheduled, err := f.repo.Ledger.SumScheduledByNode(ctx, nil)
	if err != nil {
		t.Fatalf("SumScheduledByNode 失败: %v", err)
	}
	if !near(scheduled[f.nodeA.ScheduleNodeID], 8.5) || !near(scheduled[f.nodeB.ScheduleNodeID], 2) {
		t.Errorf("期望节点计划工时 8.5 / 2，实际 %v", scheduled)
	}

	adHoc, err := f.repo.Ledger.SumAdHocByNode(ctx, []string{f.nodeA.ScheduleNodeID, f.nodeB.ScheduleNodeID})
	if err != nil {
		t.Fatalf("SumAdHocByNode 失败: %v", err)
	}
	if len(adHoc) != 1 || !near(adHoc[f.nodeA.ScheduleNodeID], 1) {
		t.Errorf("期望仅 nodeA 有 1 小时临时工时，实际 %v", adHoc)
	}
}

func TestLedgerRepo_AdHocWithoutNode(t *testing.T) {
	f := newLedgerFixture(t)
	w := f.workday(t, model.WorkdayStatusApproved, "")
	f.task(t, w.WorkdayID, "", 6)

	adHoc, err := f.repo.Ledger.SumAdHocByNode(context.Background(), nil)
	if err != nil {
		t.Fatalf("SumAdHocByNode 失败: %v", err)
	}
	if len(adHoc) != 0 {
		t.Errorf("未关联节点的临时任务不应计入任何节点，实际 %v", adHoc)
	}
}

// ── 影响范围 ──

func TestLedgerRepo_NodesOfWorkdayAndTask(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	w := f.workday(t, model.WorkdayStatusActive, f.nodeA.ScheduleNodeID)
	scheduled := f.task(t, w.WorkdayID, f.taskB.ScheduleTaskID, 2)
	again := f.task(t, w.WorkdayID, f.taskB.ScheduleTaskID, 1)
	adHoc := f.task(t, w.WorkdayID, "", 1)

	nodes, err := f.repo.Ledger.NodesOfWorkday(ctx, w.WorkdayID)
	if err != nil {
		t.Fatalf("NodesOfWorkday 失败: %v", err)
	}
	if len(nodes) != 2 {
		t.Errorf("期望去重后 2 个节点，实际 %v", nodes)
	}

	for _, tc := range []struct {
		name string
		task string
		want string
	}{
		{"计划任务", scheduled.TaskID, f.nodeB.ScheduleNodeID},
		{"重复计划任务", again.TaskID, f.nodeB.ScheduleNodeID},
		{"临时任务归属工作日节点", adHoc.TaskID, f.nodeA.ScheduleNodeID},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := f.repo.Ledger.NodesOfTask(ctx, tc.task)
			if err != nil {
				t.Fatalf("NodesOfTask 失败: %v", err)
			}
			if len(got) != 1 || got[0] != tc.want {
				t.Errorf("期望 [%s]，实际 %v", tc.want, got)
			}
		})
	}

	bare := f.workday(t, model.WorkdayStatusActive, "")
	orphan := f.task(t, bare.WorkdayID, "", 1)
	got, err := f.repo.Ledger.NodesOfTask(ctx, orphan.TaskID)
	if err != nil || len(got) != 0 {
		t.Errorf("期望无节点，实际 %v / %v", got, err)
	}
}

// ── 审计查询 ──

func TestLedgerRepo_AuditQueries(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	closed := f.workday(t, model.WorkdayStatusClosedPendingApproval, f.nodeA.ScheduleNodeID)
	task := f.task(t, closed.WorkdayID, f.taskA.ScheduleTaskID, 0, 30)
	active := f.workday(t, model.WorkdayStatusActive, "")
	f.task(t, active.WorkdayID, "", 0)

	nonPositive, err := f.repo.Ledger.ListCommittedNonPositive(ctx)
	if err != nil {
		t.Fatalf("ListCommittedNonPositive 失败: %v", err)
	}
	if len(nonPositive) != 1 || nonPositive[0].TaskID != task.TaskID {
		t.Errorf("期望仅已提交工作日的 1 条零工时，实际 %+v", nonPositive)
	}

	outOfRange, err := f.repo.Ledger.ListOutOfRangeHours(ctx, 0, 24)
	if err != nil {
		t.Fatalf("ListOutOfRangeHours 失败: %v", err)
	}
	if len(outOfRange) != 1 || !near(outOfRange[0].Hours, 30) {
		t.Errorf("期望 1 条越界工时，实际 %+v", outOfRange)
	}

	// 同一人在同一工作日两个任务合计 10
	person := uuid.NewString()
	for _, h := range []float64{6, 4} {
		wt := f.task(t, closed.WorkdayID, "")
		m := &model.TaskMember{TaskID: wt.TaskID, PersonID: person, Hours: h}
		if err := f.repo.TaskMember.Create(ctx, m); err != nil {
			t.Fatalf("创建成员失败: %v", err)
		}
	}
	totals, err := f.repo.Ledger.ListPersonDayTotalsAbove(ctx, 9.5)
	if err != nil {
		t.Fatalf("ListPersonDayTotalsAbove 失败: %v", err)
	}
	found := false
	for _, row := range totals {
		if row.PersonID == person {
			found = near(row.Hours, 10)
		}
	}
	if !found {
		t.Errorf("期望人员合计 10 被检出，实际 %+v", totals)
	}

	// 绕过 SetKind 写坏引用
	broken := f.task(t, active.WorkdayID, "", 1)
	if err := f.db.Model(&model.WorkdayTask{}).Where("task_id = ?", broken.TaskID).Update("ad_hoc_name", nil).Error; err != nil {
		t.Fatalf("改写任务失败: %v", err)
	}
	dangling := f.task(t, active.WorkdayID, uuid.NewString(), 1)

	refs, err := f.repo.Ledger.ListInvalidTaskReferences(ctx)
	if err != nil {
		t.Fatalf("ListInvalidTaskReferences 失败: %v", err)
	}
	got := make(map[string]bool)
	for _, r := range refs {
		got[r.TaskID] = r.Missing
	}
	if missing, ok := got[broken.TaskID]; !ok || missing {
		t.Errorf("期望检出空引用任务，实际 %+v", refs)
	}
	if missing, ok := got[dangling.TaskID]; !ok || !missing {
		t.Errorf("期望检出悬空计划任务引用，实际 %+v", refs)
	}
	if len(refs) != 2 {
		t.Errorf("期望 2 条引用异常，实际 %d", len(refs))
	}
}

// ── 只读快照 ──

func TestRepository_ReadSnapshot(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	var nodes []model.ScheduleNode
	err := f.repo.ReadSnapshot(ctx, func(tx *Repository) error {
		var err error
		nodes, err = tx.ScheduleNode.List(ctx)
		return err
	})
	if err != nil {
		t.Fatalf("期望快照读取成功，实际: %v", err)
	}
	if len(nodes) != 2 {
		t.Errorf("期望读到 2 个节点，实际 %d", len(nodes))
	}

	boom := errors.New("boom")
	if err := f.repo.ReadSnapshot(ctx, func(*Repository) error { return boom }); !errors.Is(err, boom) {
		t.Errorf("期望透传 fn 的错误，实际: %v", err)
	}
}

// ── 乐观锁 ──

func TestWorkdayRepo_OptimisticLock(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	w := f.workday(t, model.WorkdayStatusActive, "")

	stale := *w
	w.Objectives = "第一次修改"
	if err := f.repo.Workday.Update(ctx, w); err != nil {
		t.Fatalf("首次更新失败: %v", err)
	}
	if w.Version != 2 {
		t.Errorf("期望版本号递增为 2，实际 %d", w.Version)
	}

	stale.Objectives = "过期修改"
	if err := f.repo.Workday.Update(ctx, &stale); err == nil {
		t.Error("期望过期版本更新失败")
	}
}
