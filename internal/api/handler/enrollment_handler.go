package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"shiksha-grid/internal/dto"
	"shiksha-grid/internal/service"
	"shiksha-grid/pkg/response"
)

// EnrollmentHandler 选课模块 HTTP 处理器
type EnrollmentHandler struct {
	enrollSvc service.EnrollmentService
}

// NewEnrollmentHandler 创建 EnrollmentHandler
func NewEnrollmentHandler(enrollSvc service.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollSvc: enrollSvc}
}

// Enroll 当前学生选课
// POST /api/v1/enrollments
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	var req dto.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	studentID, ok := resolveStudent(c, h.enrollSvc)
	if !ok {
		return
	}

	record, err := h.enrollSvc.Enroll(c.Request.Context(), studentID, req.SlotID)
	if err != nil {
		handleEnrollmentError(c, err)
		return
	}

	response.Created(c, record)
}

// MyEnrollments 当前学生的选课列表
// GET /api/v1/enrollments/me
func (h *EnrollmentHandler) MyEnrollments(c *gin.Context) {
	studentID, ok := resolveStudent(c, h.enrollSvc)
	if !ok {
		return
	}

	list, err := h.enrollSvc.ListForStudent(c.Request.Context(), studentID)
	if err != nil {
		handleEnrollmentError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// StudentEnrollments 指定学生的选课列表
// GET /api/v1/students/:id/enrollments
func (h *EnrollmentHandler) StudentEnrollments(c *gin.Context) {
	studentID, ok := MustParseID(c, "id")
	if !ok {
		return
	}

	list, err := h.enrollSvc.ListForStudent(c.Request.Context(), studentID)
	if err != nil {
		handleEnrollmentError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// resolveStudent 解析登录用户对应的学生档案，失败时已写入响应
func resolveStudent(c *gin.Context, enrollSvc service.EnrollmentService) (int64, bool) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return 0, false
	}
	studentID, err := enrollSvc.StudentIDForUser(c.Request.Context(), userID)
	if err != nil {
		handleEnrollmentError(c, err)
		return 0, false
	}
	return studentID, true
}

func handleEnrollmentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSlotNotFound):
		response.NotFound(c, 15001, "时段不存在")
	case errors.Is(err, service.ErrStudentNotFound):
		response.NotFound(c, 15002, "学生档案不存在")
	case errors.Is(err, service.ErrDuplicateSubject):
		response.Conflict(c, 15003, "已选过该科目的其他时段")
	case errors.Is(err, service.ErrTimeConflict):
		response.Conflict(c, 15004, "与已选时段时间冲突")
	case errors.Is(err, service.ErrSlotFull):
		response.Conflict(c, 15005, "时段已满")
	case service.IsRetryable(err):
		response.ServiceUnavailable(c, 15006, "选课繁忙，请稍后重试")
	default:
		response.InternalError(c)
	}
}
