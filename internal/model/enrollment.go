package model

import "time"

// Enrollment 选课记录表 — 对应 enrollments
// 仅由选课事务创建，创建后不再更新
type Enrollment struct {
	EnrollmentID int64     `gorm:"column:enrollment_id;primaryKey;autoIncrement" json:"enrollment_id"`
	StudentID    int64     `gorm:"not null"                                      json:"student_id"`
	SlotID       int64     `gorm:"not null"                                      json:"slot_id"`
	SubjectID    int64     `gorm:"not null"                                      json:"subject_id"` // 冗余自 slot，支撑 (student_id, subject_id) 唯一约束
	EnrolledAt   time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"            json:"enrolled_at"`

	// 关联
	Slot *Slot `gorm:"foreignKey:SlotID;references:SlotID" json:"slot,omitempty"`
}

// TableName 指定表名
func (Enrollment) TableName() string { return "enrollments" }
