package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"shiksha-grid/internal/dto"
	"shiksha-grid/internal/service"
	"shiksha-grid/pkg/response"
)

// SlotHandler 时段模块 HTTP 处理器
type SlotHandler struct {
	slotSvc service.SlotService
}

// NewSlotHandler 创建 SlotHandler
func NewSlotHandler(slotSvc service.SlotService) *SlotHandler {
	return &SlotHandler{slotSvc: slotSvc}
}

// ListSlots 获取全部时段
// GET /api/v1/slots
func (h *SlotHandler) ListSlots(c *gin.Context) {
	list, err := h.slotSvc.List(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, gin.H{"list": list})
}

// GetSlot 获取时段详情
// GET /api/v1/slots/:id
func (h *SlotHandler) GetSlot(c *gin.Context) {
	id, ok := MustParseID(c, "id")
	if !ok {
		return
	}

	slot, err := h.slotSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleSlotError(c, err)
		return
	}

	response.OK(c, slot)
}

// Timetable 按星期与开始时间分组的周课表
// GET /api/v1/slots/timetable
func (h *SlotHandler) Timetable(c *gin.Context) {
	tt, err := h.slotSvc.GetTimetable(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, tt)
}

// CreateSlot 创建时段
// POST /api/v1/slots
func (h *SlotHandler) CreateSlot(c *gin.Context) {
	var req dto.CreateSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, 10001, "参数校验失败", err.Error())
		return
	}

	slot, err := h.slotSvc.Create(c.Request.Context(), &req)
	if err != nil {
		h.handleSlotError(c, err)
		return
	}

	response.Created(c, slot)
}

func (h *SlotHandler) handleSlotError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSlotNotFound):
		response.NotFound(c, 14001, "时段不存在")
	case errors.Is(err, service.ErrInvalidTimeRange):
		response.BadRequest(c, 14002, "结束时间必须晚于开始时间")
	case errors.Is(err, service.ErrInvalidClock):
		response.BadRequest(c, 14003, "时间格式无效")
	case errors.Is(err, service.ErrInvalidDay):
		response.BadRequest(c, 14004, "day_of_week 必须在 1-5 之间")
	case errors.Is(err, service.ErrInvalidCapacity):
		response.BadRequest(c, 14005, "max_capacity 必须大于 0")
	case errors.Is(err, service.ErrSubjectNotFound):
		response.BadRequest(c, 14006, "科目不存在")
	case errors.Is(err, service.ErrTeacherNotFound):
		response.BadRequest(c, 14007, "教师不存在")
	case errors.Is(err, service.ErrClassroomNotFound):
		response.BadRequest(c, 14008, "教室不存在")
	default:
		response.InternalError(c)
	}
}
