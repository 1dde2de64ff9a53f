package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"shiksha-grid/internal/dto"
	"shiksha-grid/internal/service"
	"shiksha-grid/pkg/response"
)

// TeacherHandler 教师模块 HTTP 处理器
type TeacherHandler struct {
	teacherSvc service.TeacherService
	slotSvc    service.SlotService
}

// NewTeacherHandler 创建 TeacherHandler
func NewTeacherHandler(teacherSvc service.TeacherService, slotSvc service.SlotService) *TeacherHandler {
	return &TeacherHandler{teacherSvc: teacherSvc, slotSvc: slotSvc}
}

// ListTeachers 获取教师列表
// GET /api/v1/teachers
func (h *TeacherHandler) ListTeachers(c *gin.Context) {
	list, err := h.teacherSvc.List(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, gin.H{"list": list})
}

// CreateTeacher 创建教师账号
// POST /api/v1/teachers
func (h *TeacherHandler) CreateTeacher(c *gin.Context) {
	var req dto.CreateTeacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	teacher, err := h.teacherSvc.Create(c.Request.Context(), &req)
	if err != nil {
		h.handleTeacherError(c, err)
		return
	}

	response.Created(c, teacher)
}

// MySlots 当前教师的授课时段
// GET /api/v1/teachers/me/slots
func (h *TeacherHandler) MySlots(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	list, err := h.slotSvc.ListForTeacherUser(c.Request.Context(), userID)
	if err != nil {
		h.handleTeacherError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// TeacherSlots 指定教师的授课时段
// GET /api/v1/teachers/:id/slots
func (h *TeacherHandler) TeacherSlots(c *gin.Context) {
	teacherID, ok := MustParseID(c, "id")
	if !ok {
		return
	}

	list, err := h.slotSvc.ListForTeacher(c.Request.Context(), teacherID)
	if err != nil {
		h.handleTeacherError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

func (h *TeacherHandler) handleTeacherError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrEmailExists):
		response.Conflict(c, 13001, "邮箱已被注册")
	case errors.Is(err, service.ErrTeacherNotFound):
		response.NotFound(c, 13002, "教师不存在")
	default:
		response.InternalError(c)
	}
}
