package repository

import (
	"context"
	"database/sql"

	"gorm.io/gorm"

	"github.com/jesusartemio-dev/gyscontrol-app-sub002/internal/model"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db *gorm.DB

	Workday      WorkdayRepository
	WorkdayTask  WorkdayTaskRepository
	TaskMember   TaskMemberRepository
	Blocker      BlockerRepository
	BlockerType  BlockerTypeRepository
	ScheduleNode ScheduleNodeRepository
	ScheduleTask ScheduleTaskRepository
	Ledger       LedgerRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:           db,
		Workday:      NewWorkdayRepo(db),
		WorkdayTask:  NewWorkdayTaskRepo(db),
		TaskMember:   NewTaskMemberRepo(db),
		Blocker:      NewBlockerRepo(db),
		BlockerType:  NewBlockerTypeRepo(db),
		ScheduleNode: NewScheduleNodeRepo(db),
		ScheduleTask: NewScheduleTaskRepo(db),
		Ledger:       NewLedgerRepo(db),
	}
}

// WithTx 返回绑定到事务的 Repository 聚合
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return NewRepository(tx)
}

// Transaction 在单个数据库事务内执行 fn；fn 返回错误或 panic 时整体回滚。
// 在已处于事务中的聚合上调用时使用 SAVEPOINT 嵌套。
func (r *Repository) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(r.WithTx(tx))
	})
}

// ReadSnapshot 在只读事务内执行 fn，fn 内的多次查询看到同一快照。
// postgres 使用 REPEATABLE READ，不加行锁，不阻塞写事务；sqlite 事务本身即串行化。
func (r *Repository) ReadSnapshot(ctx context.Context, fn func(tx *Repository) error) error {
	run := func(tx *gorm.DB) error { return fn(r.WithTx(tx)) }
	if r.db.Dialector.Name() != "postgres" {
		return r.db.WithContext(ctx).Transaction(run)
	}
	return r.db.WithContext(ctx).Transaction(run, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
}

// committedStatuses 计入工时台账的状态（string 形式，便于 IN 查询）
func committedStatuses() []string {
	statuses := model.CommittedStatuses()
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}
