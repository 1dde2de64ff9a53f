package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"shiksha-grid/pkg/response"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (int64, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return 0, false
	}
	id, ok := v.(int64)
	if !ok || id <= 0 {
		response.Unauthorized(c, 10002, "未认证")
		return 0, false
	}
	return id, true
}

// MustGetRole 从 Gin 上下文中安全提取 role。
func MustGetRole(c *gin.Context) (string, bool) {
	v, exists := c.Get("role")
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// MustGetToken 提取当前 Token 的 ID 与过期时间（登出时使用）
func MustGetToken(c *gin.Context) (string, time.Time, bool) {
	jti := c.GetString("token_jti")
	exp := c.GetTime("token_exp")
	if jti == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", time.Time{}, false
	}
	return jti, exp, true
}

// MustParseID 解析路径参数中的正整数 ID，失败时写入 400 响应
func MustParseID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, 10001, name+" 无效")
		return 0, false
	}
	return id, true
}
