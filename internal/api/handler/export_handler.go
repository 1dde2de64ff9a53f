package handler

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"shiksha-grid/internal/service"
	"shiksha-grid/pkg/response"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	icsContentType  = "text/calendar; charset=utf-8"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
	enrollSvc service.EnrollmentService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService, enrollSvc service.EnrollmentService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc, enrollSvc: enrollSvc}
}

// ExportTimetable 导出周课表
// GET /api/v1/slots/export
func (h *ExportHandler) ExportTimetable(c *gin.Context) {
	buf, filename, err := h.exportSvc.ExportTimetable(c.Request.Context())
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	response.Attachment(c, filename, xlsxContentType, buf.Bytes())
}

// ExportMyCalendar 导出当前学生的日历
// GET /api/v1/enrollments/me/calendar?from=2026-01-05&weeks=16
func (h *ExportHandler) ExportMyCalendar(c *gin.Context) {
	from := time.Now()
	if s := c.Query("from"); s != "" {
		t, err := time.ParseInLocation("2006-01-02", s, time.Local)
		if err != nil {
			response.BadRequest(c, 10001, "from 格式应为 YYYY-MM-DD")
			return
		}
		from = t
	}

	weeks := 0
	if s := c.Query("weeks"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > 52 {
			response.BadRequest(c, 10001, "weeks 必须在 1-52 之间")
			return
		}
		weeks = n
	}

	studentID, ok := resolveStudent(c, h.enrollSvc)
	if !ok {
		return
	}

	data, filename, err := h.exportSvc.ExportStudentCalendar(c.Request.Context(), studentID, from, weeks)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	response.Attachment(c, filename, icsContentType, data)
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrExportNoSlots):
		response.NotFound(c, 16101, "暂无排课时段")
	case errors.Is(err, service.ErrExportNoEnrollment):
		response.NotFound(c, 16102, "暂无选课记录")
	case errors.Is(err, service.ErrStudentNotFound):
		response.NotFound(c, 16103, "学生档案不存在")
	default:
		response.InternalError(c)
	}
}
