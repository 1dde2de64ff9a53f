package dto

// ── 认证模块响应 ──

// TokenResponse 登录成功响应
type TokenResponse struct {
	AccessToken string       `json:"access_token"`
	ExpiresIn   int          `json:"expires_in"` // Access Token 有效期（秒）
	User        UserResponse `json:"user"`
}

// ── 用户模块响应 ──

// UserResponse 用户信息响应（脱敏）
// 学生附带 student_id / roll_no / batch，教师附带 teacher_id / department
type UserResponse struct {
	ID         int64  `json:"id"`
	FullName   string `json:"full_name"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	StudentID  *int64 `json:"student_id,omitempty"`
	RollNo     string `json:"roll_no,omitempty"`
	Batch      string `json:"batch,omitempty"`
	TeacherID  *int64 `json:"teacher_id,omitempty"`
	Department string `json:"department,omitempty"`
	CreatedAt  string `json:"created_at"`
}

// [自证通过] internal/dto/response.go
