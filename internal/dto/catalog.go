package dto

// ── 科目 / 教室 / 教师 DTO ──

// CreateSubjectRequest 创建科目请求
type CreateSubjectRequest struct {
	Code string `json:"code" binding:"required,min=1,max=50"`
	Name string `json:"name" binding:"required,min=1,max=200"`
}

// CreateClassroomRequest 创建教室请求
type CreateClassroomRequest struct {
	Code     string `json:"code"     binding:"required,min=1,max=50"`
	Capacity int    `json:"capacity" binding:"required,min=1"`
}

// CreateTeacherRequest 创建教师账号请求（同时创建登录用户）
type CreateTeacherRequest struct {
	FullName   string `json:"full_name"  binding:"required,min=2,max=150"`
	Email      string `json:"email"      binding:"required,email,max=150"`
	Password   string `json:"password"   binding:"required,min=8,max=64"`
	Department string `json:"department" binding:"omitempty,max=100"`
}

// SubjectResponse 科目信息
type SubjectResponse struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// ClassroomResponse 教室信息
type ClassroomResponse struct {
	ID       int64  `json:"id"`
	Code     string `json:"code"`
	Capacity int    `json:"capacity"`
}

// TeacherResponse 教师信息
type TeacherResponse struct {
	ID         int64  `json:"id"`
	UserID     int64  `json:"user_id"`
	FullName   string `json:"full_name"`
	Email      string `json:"email"`
	Department string `json:"department,omitempty"`
}
