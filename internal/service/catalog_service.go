package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"shiksha-grid/internal/dto"
	"shiksha-grid/internal/model"
	"shiksha-grid/internal/repository"
	pkgerrors "shiksha-grid/pkg/errors"
)

// ── 科目 / 教室业务错误 ──

var (
	ErrSubjectNotFound     = errors.New("科目不存在")
	ErrSubjectCodeExists   = errors.New("科目代码已存在")
	ErrClassroomNotFound   = errors.New("教室不存在")
	ErrClassroomCodeExists = errors.New("教室代码已存在")
)

// CatalogService 科目与教室目录业务接口
// 科目、教室创建后不可变，只提供创建与查询
type CatalogService interface {
	CreateSubject(ctx context.Context, req *dto.CreateSubjectRequest) (*dto.SubjectResponse, error)
	ListSubjects(ctx context.Context) ([]dto.SubjectResponse, error)
	CreateClassroom(ctx context.Context, req *dto.CreateClassroomRequest) (*dto.ClassroomResponse, error)
	ListClassrooms(ctx context.Context) ([]dto.ClassroomResponse, error)
}

type catalogService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewCatalogService 创建 CatalogService 实例
func NewCatalogService(repo *repository.Repository, logger *zap.Logger) CatalogService {
	return &catalogService{repo: repo, logger: logger}
}

func (s *catalogService) CreateSubject(ctx context.Context, req *dto.CreateSubjectRequest) (*dto.SubjectResponse, error) {
	code := strings.TrimSpace(req.Code)

	if _, err := s.repo.Subject.GetByCode(ctx, code); err == nil {
		return nil, ErrSubjectCodeExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	subject := &model.Subject{Code: code, Name: strings.TrimSpace(req.Name)}
	if err := s.repo.Subject.Create(ctx, subject); err != nil {
		// 并发创建时由唯一约束兜底
		if pkgerrors.IsUniqueViolation(err, "uk_subjects_code") {
			return nil, ErrSubjectCodeExists
		}
		s.logger.Error("创建科目失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("科目已创建", zap.Int64("subject_id", subject.SubjectID), zap.String("code", subject.Code))
	resp := toSubjectResponse(subject)
	return &resp, nil
}

func (s *catalogService) ListSubjects(ctx context.Context) ([]dto.SubjectResponse, error) {
	subjects, err := s.repo.Subject.List(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]dto.SubjectResponse, 0, len(subjects))
	for i := range subjects {
		result = append(result, toSubjectResponse(&subjects[i]))
	}
	return result, nil
}

func (s *catalogService) CreateClassroom(ctx context.Context, req *dto.CreateClassroomRequest) (*dto.ClassroomResponse, error) {
	code := strings.TrimSpace(req.Code)

	if _, err := s.repo.Classroom.GetByCode(ctx, code); err == nil {
		return nil, ErrClassroomCodeExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	classroom := &model.Classroom{Code: code, Capacity: req.Capacity}
	if err := s.repo.Classroom.Create(ctx, classroom); err != nil {
		if pkgerrors.IsUniqueViolation(err, "uk_classrooms_code") {
			return nil, ErrClassroomCodeExists
		}
		s.logger.Error("创建教室失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("教室已创建", zap.Int64("classroom_id", classroom.ClassroomID), zap.String("code", classroom.Code))
	resp := toClassroomResponse(classroom)
	return &resp, nil
}

func (s *catalogService) ListClassrooms(ctx context.Context) ([]dto.ClassroomResponse, error) {
	classrooms, err := s.repo.Classroom.List(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]dto.ClassroomResponse, 0, len(classrooms))
	for i := range classrooms {
		result = append(result, toClassroomResponse(&classrooms[i]))
	}
	return result, nil
}
