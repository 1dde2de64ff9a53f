package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"shiksha-grid/internal/dto"
	"shiksha-grid/internal/service"
	"shiksha-grid/pkg/response"
)

// CatalogHandler 科目与教室 HTTP 处理器
type CatalogHandler struct {
	catalogSvc service.CatalogService
}

// NewCatalogHandler 创建 CatalogHandler
func NewCatalogHandler(catalogSvc service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogSvc: catalogSvc}
}

// ListSubjects 获取科目列表
// GET /api/v1/subjects
func (h *CatalogHandler) ListSubjects(c *gin.Context) {
	list, err := h.catalogSvc.ListSubjects(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, gin.H{"list": list})
}

// CreateSubject 创建科目
// POST /api/v1/subjects
func (h *CatalogHandler) CreateSubject(c *gin.Context) {
	var req dto.CreateSubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	subject, err := h.catalogSvc.CreateSubject(c.Request.Context(), &req)
	if err != nil {
		h.handleCatalogError(c, err)
		return
	}

	response.Created(c, subject)
}

// ListClassrooms 获取教室列表
// GET /api/v1/classrooms
func (h *CatalogHandler) ListClassrooms(c *gin.Context) {
	list, err := h.catalogSvc.ListClassrooms(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, gin.H{"list": list})
}

// CreateClassroom 创建教室
// POST /api/v1/classrooms
func (h *CatalogHandler) CreateClassroom(c *gin.Context) {
	var req dto.CreateClassroomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	room, err := h.catalogSvc.CreateClassroom(c.Request.Context(), &req)
	if err != nil {
		h.handleCatalogError(c, err)
		return
	}

	response.Created(c, room)
}

func (h *CatalogHandler) handleCatalogError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSubjectCodeExists):
		response.Conflict(c, 12001, "科目代码已存在")
	case errors.Is(err, service.ErrClassroomCodeExists):
		response.Conflict(c, 12002, "教室代码已存在")
	default:
		response.InternalError(c)
	}
}
