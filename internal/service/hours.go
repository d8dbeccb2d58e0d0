package service

import (
	"fmt"
	"sort"

	"github.com/jesusartemio-dev/gyscontrol-app-sub002/internal/allocation"
	"github.com/jesusartemio-dev/gyscontrol-app-sub002/internal/model"
)

// WarningPersonOverFullDay 某人当日总工时超过完整工作日
const WarningPersonOverFullDay = "person_hours_exceed_full_day"

// Warning 非阻断提示
type Warning struct {
	Code     string
	Message  string
	PersonID string
	Hours    float64
}

// assignmentsOf 将工作日下的成员工时展开为分配记录
func assignmentsOf(w *model.Workday) []allocation.Assignment {
	var out []allocation.Assignment
	for _, t := range w.Tasks {
		for _, m := range t.Members {
			out = append(out, allocation.Assignment{
				TaskID:   t.TaskID,
				MemberID: m.MemberID,
				PersonID: m.PersonID,
				Hours:    m.Hours,
				Seeded:   m.HoursSeeded,
			})
		}
	}
	return out
}

// personHourWarnings 超过 9.5 小时的人员提示，按 PersonID 排序
func personHourWarnings(assignments []allocation.Assignment) []Warning {
	totals := allocation.TotalsByPerson(assignments)
	persons := make([]string, 0, len(totals))
	for p := range totals {
		persons = append(persons, p)
	}
	sort.Strings(persons)

	var warnings []Warning
	for _, p := range persons {
		total := Round2(totals[p])
		if !allocation.ExceedsFullDay(total) {
			continue
		}
		warnings = append(warnings, Warning{
			Code:     WarningPersonOverFullDay,
			Message:  fmt.Sprintf("人员 %s 当日合计 %.1f 小时，超过 %.1f 小时", p, total, allocation.FullWorkdayHours),
			PersonID: p,
			Hours:    total,
		})
	}
	return warnings
}

// validMemberHours 成员工时是否在 (0, 24] 区间
func validMemberHours(h float64) bool {
	return h > 0 && allocation.ValidHours(h)
}

// taskCountFor 人员在工作日中参与的任务数（含 extraTask 时额外加一）
func taskCountFor(w *model.Workday, personID string, extraTask bool) int {
	count := 0
	for _, t := range w.Tasks {
		for _, m := range t.Members {
			if m.PersonID == personID {
				count++
				break
			}
		}
	}
	if extraTask {
		count++
	}
	return count
}
