package dto

// ── 排课时段 DTO ──

// CreateSlotRequest 创建时段请求
// start_time / end_time 格式 HH:MM 或 HH:MM:SS，由自定义 clock 规则校验
type CreateSlotRequest struct {
	SubjectID   int64  `json:"subject_id"   binding:"required,min=1"`
	TeacherID   int64  `json:"teacher_id"   binding:"required,min=1"`
	ClassroomID *int64 `json:"classroom_id" binding:"omitempty,min=1"`
	DayOfWeek   int    `json:"day_of_week"  binding:"required,min=1,max=5"`
	StartTime   string `json:"start_time"   binding:"required,clock"`
	EndTime     string `json:"end_time"     binding:"required,clock"`
	MaxCapacity int    `json:"max_capacity" binding:"required,min=1"`
	Notes       string `json:"notes"        binding:"omitempty,max=500"`
}

// SlotResponse 时段信息响应
type SlotResponse struct {
	ID                int64              `json:"id"`
	Subject           SubjectResponse    `json:"subject"`
	Teacher           TeacherBrief       `json:"teacher"`
	Classroom         *ClassroomResponse `json:"classroom,omitempty"`
	DayOfWeek         int                `json:"day_of_week"`
	DayName           string             `json:"day_name"`
	StartTime         string             `json:"start_time"` // "09:00"
	EndTime           string             `json:"end_time"`
	MaxCapacity       int                `json:"max_capacity"`
	CurrentEnrollment int                `json:"current_enrollment"`
	SeatsLeft         int                `json:"seats_left"`
	Notes             string             `json:"notes,omitempty"`
}

// TeacherBrief 教师简要信息（嵌入时段响应）
type TeacherBrief struct {
	ID       int64  `json:"id"`
	FullName string `json:"full_name"`
}

var dayNames = [...]string{"", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}

// DayName 返回 1-5 对应的星期名称，越界返回空串
func DayName(day int) string {
	if day < 1 || day >= len(dayNames) {
		return ""
	}
	return dayNames[day]
}
