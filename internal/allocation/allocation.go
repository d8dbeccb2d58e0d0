// Package allocation 工时默认分配（纯函数，不读写任何持久化状态）。
//
// 规则：一个完整工作日固定为 9.5 小时；某成员在同一工作日参与 N 个任务时，
// 每个任务的建议值为 9.5/N 按 0.5 小时步长四舍五入。已有非零工时的条目保持不变。
// 结果只是预填值，调用方可随时覆盖。
package allocation

import "math"

const (
	// FullWorkdayHours 一个完整工作日的工时
	FullWorkdayHours = 9.5
	// HourStep 工时录入步长
	HourStep = 0.5
	// MaxHoursPerEntry 单条工时上限
	MaxHoursPerEntry = 24.0
)

// RoundToStep 按步长四舍五入（.5 远离零）
func RoundToStep(v, step float64) float64 {
	if step <= 0 {
		return v
	}
	return math.Round(v/step) * step
}

// SeedHours 成员参与 taskCount 个任务时，每个任务的建议工时。
// taskCount < 1 时无定义，返回 0。
func SeedHours(taskCount int) float64 {
	if taskCount < 1 {
		return 0
	}
	return RoundToStep(FullWorkdayHours/float64(taskCount), HourStep)
}

// Assignment 一条（任务, 成员）工时记录
type Assignment struct {
	TaskID   string
	MemberID string
	PersonID string
	Hours    float64
	// Seeded 已有工时来自默认分配，可被重新计算
	Seeded bool
}

// Suggestion 建议工时
type Suggestion struct {
	TaskID   string  `json:"task_id"`
	MemberID string  `json:"member_id"`
	PersonID string  `json:"person_id"`
	Hours    float64 `json:"hours"`
	// Seeded 为 true 表示该值来自默认分配；false 表示保留了已有工时
	Seeded bool `json:"seeded"`
}

// Suggest 为一个工作日内的全部记录生成默认工时。
// 任务数按成员在不同任务上的出现次数统计；输出顺序与输入一致。
// 工时为 0 或来自默认分配的记录按 SeedHours(N) 重算，其余保留。
func Suggest(assignments []Assignment) []Suggestion {
	tasksPerPerson := make(map[string]map[string]bool)
	for _, a := range assignments {
		if tasksPerPerson[a.PersonID] == nil {
			tasksPerPerson[a.PersonID] = make(map[string]bool)
		}
		tasksPerPerson[a.PersonID][a.TaskID] = true
	}

	out := make([]Suggestion, 0, len(assignments))
	for _, a := range assignments {
		s := Suggestion{TaskID: a.TaskID, MemberID: a.MemberID, PersonID: a.PersonID}
		if a.Hours > 0 && !a.Seeded {
			s.Hours = a.Hours
		} else {
			s.Hours = SeedHours(len(tasksPerPerson[a.PersonID]))
			s.Seeded = true
		}
		out = append(out, s)
	}
	return out
}

// TotalsByPerson 汇总每个成员在工作日内的总工时
func TotalsByPerson(assignments []Assignment) map[string]float64 {
	totals := make(map[string]float64)
	for _, a := range assignments {
		totals[a.PersonID] += a.Hours
	}
	return totals
}

// ExceedsFullDay 总工时是否超过完整工作日（仅用于提示，不阻断）
func ExceedsFullDay(total float64) bool {
	return total > FullWorkdayHours
}

// ValidHours 单条工时是否在 [0, 24] 区间内
func ValidHours(h float64) bool {
	return h >= 0 && h <= MaxHoursPerEntry && !math.IsNaN(h)
}

// IsStepMultiple 是否为步长整数倍
func IsStepMultiple(h float64) bool {
	q := h / HourStep
	return math.Abs(q-math.Round(q)) < 1e-9
}
