package allocation

import "testing"

func TestSeedHours(t *testing.T) {
	tests := []struct {
		taskCount int
		want      float64
	}{
		{1, 9.5},
		{2, 5.0}, // 4.75 → 5.0
		{3, 3.0}, // 3.1666 → 3.0
		{4, 2.5}, // 2.375 → 2.5
		{5, 2.0}, // 1.9 → 2.0
		{19, 0.5},
		{0, 0},
		{-1, 0},
	}
	for _, tt := range tests {
		if got := SeedHours(tt.taskCount); got != tt.want {
			t.Errorf("SeedHours(%d) = %v，期望 %v", tt.taskCount, got, tt.want)
		}
	}
}

func TestSuggest_SeedsZeroHoursByTaskCount(t *testing.T) {
	in := []Assignment{
		{TaskID: "t1", MemberID: "m1", PersonID: "p1"},
		{TaskID: "t2", MemberID: "m2", PersonID: "p1"},
		{TaskID: "t3", MemberID: "m3", PersonID: "p1"},
		{TaskID: "t1", MemberID: "m4", PersonID: "p2"},
	}

	got := Suggest(in)
	if len(got) != 4 {
		t.Fatalf("期望 4 条建议，实际 %d", len(got))
	}
	for _, s := range got[:3] {
		if s.Hours != 3.0 || !s.Seeded {
			t.Errorf("p1 在 3 个任务上应建议 3.0，实际 %+v", s)
		}
	}
	if got[3].Hours != 9.5 || !got[3].Seeded {
		t.Errorf("p2 只有 1 个任务应建议 9.5，实际 %+v", got[3])
	}
}

func TestSuggest_KeepsExistingHours(t *testing.T) {
	in := []Assignment{
		{TaskID: "t1", MemberID: "m1", PersonID: "p1", Hours: 6},
		{TaskID: "t2", MemberID: "m2", PersonID: "p1"},
	}

	got := Suggest(in)
	if got[0].Hours != 6 || got[0].Seeded {
		t.Errorf("已有工时应保持不变，实际 %+v", got[0])
	}
	if got[1].Hours != 5.0 || !got[1].Seeded {
		t.Errorf("零工时条目应按 2 个任务播种 5.0，实际 %+v", got[1])
	}
}

func TestSuggest_ReseedsSeededHours(t *testing.T) {
	// 前两条是早先按 1、2 个任务播种的值
	in := []Assignment{
		{TaskID: "t1", MemberID: "m1", PersonID: "p1", Hours: 9.5, Seeded: true},
		{TaskID: "t2", MemberID: "m2", PersonID: "p1", Hours: 5.0, Seeded: true},
		{TaskID: "t3", MemberID: "m3", PersonID: "p1"},
	}
	var total float64
	for _, s := range Suggest(in) {
		if s.Hours != 3.0 || !s.Seeded {
			t.Errorf("默认分配条目应统一按 3 个任务重算为 3.0，实际 %+v", s)
		}
		total += s.Hours
	}
	if total != 9.0 {
		t.Errorf("期望合计 9.0，实际 %v", total)
	}
}

func TestSuggest_SamePersonTwiceOnOneTaskCountsOnce(t *testing.T) {
	in := []Assignment{
		{TaskID: "t1", MemberID: "m1", PersonID: "p1"},
		{TaskID: "t1", MemberID: "m2", PersonID: "p1"},
	}
	for _, s := range Suggest(in) {
		if s.Hours != 9.5 {
			t.Errorf("同一任务重复出现不应增加任务数，实际 %v", s.Hours)
		}
	}
}

func TestTotalsByPerson(t *testing.T) {
	totals := TotalsByPerson([]Assignment{
		{PersonID: "p1", Hours: 4},
		{PersonID: "p1", Hours: 6},
		{PersonID: "p2", Hours: 1},
	})
	if totals["p1"] != 10 || totals["p2"] != 1 {
		t.Errorf("汇总错误: %v", totals)
	}
	if !ExceedsFullDay(totals["p1"]) {
		t.Error("10 小时应超过完整工作日")
	}
	if ExceedsFullDay(9.5) {
		t.Error("9.5 小时不应视为超出")
	}
}

func TestValidHoursAndStep(t *testing.T) {
	cases := []struct {
		h         float64
		valid     bool
		isHalfHrs bool
	}{
		{0, true, true},
		{0.5, true, true},
		{0.3, true, false},
		{24, true, true},
		{24.5, false, true},
		{-1, false, true},
	}
	for _, c := range cases {
		if ValidHours(c.h) != c.valid {
			t.Errorf("ValidHours(%v) 期望 %v", c.h, c.valid)
		}
		if IsStepMultiple(c.h) != c.isHalfHrs {
			t.Errorf("IsStepMultiple(%v) 期望 %v", c.h, c.isHalfHrs)
		}
	}
}
