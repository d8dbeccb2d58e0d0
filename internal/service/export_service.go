package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/jesusartemio-dev/gyscontrol-app-sub002/internal/dto"
	"github.com/jesusartemio-dev/gyscontrol-app-sub002/internal/model"
	"github.com/jesusartemio-dev/gyscontrol-app-sub002/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
	ErrCalendarTooLarge   = errors.New("日历范围内工作日过多，请缩小查询条件")
)

// ExportService 导出业务接口
//
// 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response。
// 工作簿包含两个 Sheet：
//   - "工时"：每个任务成员一行（任务、类型、计划任务、人员、工时、备注），末尾为合计
//   - "阻碍"：每条阻碍一行
//
// 日历导出为 iCalendar 格式，每个工作日一个全天事件。
type ExportService interface {
	ExportWorkday(ctx context.Context, workdayID string) (*bytes.Buffer, string, error)
	ExportCalendar(ctx context.Context, req *dto.ListWorkdaysRequest) (string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

const (
	hoursSheet    = "工时"
	blockersSheet = "阻碍"
)

// ═══════════════════════════════════════════════════════════
// ExportWorkday：导出单个工作日的工时与阻碍
// ═══════════════════════════════════════════════════════════

func (s *exportService) ExportWorkday(ctx context.Context, workdayID string) (*bytes.Buffer, string, error) {
	w, err := s.repo.Workday.GetByID(ctx, workdayID)
	if err != nil {
		if isRecordNotFound(err) {
			return nil, "", ErrWorkdayNotFound
		}
		s.logger.Error("查询工作日失败", zap.String("id", workdayID), zap.Error(err))
		return nil, "", storageErr(err)
	}

	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(hoursSheet)
	if err != nil {
		s.logger.Error("创建 Sheet 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")
	if _, err := f.NewSheet(blockersSheet); err != nil {
		s.logger.Error("创建 Sheet 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	writeHoursSheet(f, w, headerStyle)
	writeBlockersSheet(f, w, headerStyle)

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("jornada_%s_%s.xlsx", formatDate(w), shortID(w.WorkdayID))
	return buf, filename, nil
}

func writeHoursSheet(f *excelize.File, w *model.Workday, headerStyle int) {
	f.SetColWidth(hoursSheet, "A", "A", 32)
	f.SetColWidth(hoursSheet, "B", "B", 10)
	f.SetColWidth(hoursSheet, "C", "D", 38)
	f.SetColWidth(hoursSheet, "E", "E", 8)
	f.SetColWidth(hoursSheet, "F", "F", 40)

	f.SetCellValue(hoursSheet, "A1", fmt.Sprintf("工作日 %s（%s）", formatDate(w), w.Status))
	f.MergeCell(hoursSheet, "A1", "F1")
	f.SetCellStyle(hoursSheet, "A1", "A1", headerStyle)

	headers := []string{"任务", "类型", "计划任务", "人员", "工时", "备注"}
	for i, h := range headers {
		f.SetCellValue(hoursSheet, cell(colName(i), 2), h)
	}

	row := 3
	var total float64
	for i := range w.Tasks {
		t := &w.Tasks[i]
		kind, ref := "临时", ""
		if t.ScheduleTaskID != nil {
			kind, ref = "计划", *t.ScheduleTaskID
		}
		for _, m := range t.Members {
			f.SetCellValue(hoursSheet, cell("A", row), t.DisplayName())
			f.SetCellValue(hoursSheet, cell("B", row), kind)
			f.SetCellValue(hoursSheet, cell("C", row), ref)
			f.SetCellValue(hoursSheet, cell("D", row), m.PersonID)
			f.SetCellValue(hoursSheet, cell("E", row), m.Hours)
			f.SetCellValue(hoursSheet, cell("F", row), m.Notes)
			total += m.Hours
			row++
		}
	}

	f.SetCellValue(hoursSheet, cell("D", row), "合计")
	f.SetCellValue(hoursSheet, cell("E", row), Round2(total))
}

func writeBlockersSheet(f *excelize.File, w *model.Workday, headerStyle int) {
	f.SetColWidth(blockersSheet, "A", "A", 16)
	f.SetColWidth(blockersSheet, "B", "C", 48)

	headers := []string{"类型", "描述", "影响"}
	for i, h := range headers {
		f.SetCellValue(blockersSheet, cell(colName(i), 1), h)
	}
	f.SetCellStyle(blockersSheet, "A1", "C1", headerStyle)

	row := 2
	for _, b := range w.Blockers {
		typeName := b.BlockerTypeID
		if b.BlockerType != nil {
			typeName = b.BlockerType.Name
		}
		f.SetCellValue(blockersSheet, cell("A", row), typeName)
		f.SetCellValue(blockersSheet, cell("B", row), b.Description)
		f.SetCellValue(blockersSheet, cell("C", row), b.ImpactNote)
		row++
	}
}

// ═══════════════════════════════════════════════════════════
// ExportCalendar：按列表过滤条件导出工作日日历
// ═══════════════════════════════════════════════════════════

// calendarMaxEvents 单次日历导出的工作日上限
const calendarMaxEvents = 500

func (s *exportService) ExportCalendar(ctx context.Context, req *dto.ListWorkdaysRequest) (string, error) {
	filter, err := workdayFilter(req)
	if err != nil {
		return "", err
	}

	workdays, total, err := s.repo.Workday.List(ctx, filter, 0, calendarMaxEvents)
	if err != nil {
		s.logger.Error("查询工作日列表失败", zap.Error(err))
		return "", storageErr(err)
	}
	if total > calendarMaxEvents {
		return "", ErrCalendarTooLarge
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//gyscontrol//jornadas//ES")
	cal.SetXWRCalName("Jornadas de campo")

	now := time.Now().UTC()
	for i := range workdays {
		w := &workdays[i]
		day := time.Time(w.WorkDate)

		ev := cal.AddEvent(w.WorkdayID + "@gyscontrol")
		ev.SetDtStampTime(now)
		ev.SetModifiedAt(w.UpdatedAt.UTC())
		ev.SetAllDayStartAt(day)
		ev.SetAllDayEndAt(day.AddDate(0, 0, 1))
		ev.SetSummary(calendarSummary(w))
		if w.Location != "" {
			ev.SetLocation(w.Location)
		}
		if w.Objectives != "" {
			ev.SetDescription(w.Objectives)
		}
		ev.SetProperty(ics.ComponentPropertyStatus, calendarStatus(w.Status))
	}
	return cal.Serialize(), nil
}

func calendarSummary(w *model.Workday) string {
	summary := fmt.Sprintf("工作日 [%s]", w.Status)
	if obj := strings.TrimSpace(w.Objectives); obj != "" {
		if r := []rune(obj); len(r) > 60 {
			obj = string(r[:60]) + "…"
		}
		summary += " " + obj
	}
	return summary
}

// calendarStatus 驳回的工作日标记为 CANCELLED，其余在审或在办为 TENTATIVE
func calendarStatus(st model.WorkdayStatus) string {
	switch st {
	case model.WorkdayStatusApproved:
		return "CONFIRMED"
	case model.WorkdayStatusRejected:
		return "CANCELLED"
	default:
		return "TENTATIVE"
	}
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
