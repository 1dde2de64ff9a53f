package dto

// ── 选课 DTO ──

// EnrollRequest 选课请求（学生身份取自 Token）
type EnrollRequest struct {
	SlotID int64 `json:"slot_id" binding:"required,min=1"`
}

// EnrollmentResponse 选课记录响应
type EnrollmentResponse struct {
	ID         int64         `json:"id"`
	StudentID  int64         `json:"student_id"`
	SlotID     int64         `json:"slot_id"`
	SubjectID  int64         `json:"subject_id"`
	EnrolledAt string        `json:"enrolled_at"`
	Slot       *SlotResponse `json:"slot,omitempty"`
}
