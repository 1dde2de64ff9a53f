package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"shiksha-grid/internal/dto"
	"shiksha-grid/internal/model"
	"shiksha-grid/internal/repository"
	pkgerrors "shiksha-grid/pkg/errors"
)

var ErrTeacherNotFound = errors.New("教师不存在")

// TeacherService 教师账号业务接口
type TeacherService interface {
	// Create 在同一事务内创建登录用户（role=teacher）与教师档案
	Create(ctx context.Context, req *dto.CreateTeacherRequest) (*dto.TeacherResponse, error)
	List(ctx context.Context) ([]dto.TeacherResponse, error)
}

type teacherService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewTeacherService 创建 TeacherService 实例
func NewTeacherService(repo *repository.Repository, logger *zap.Logger) TeacherService {
	return &teacherService{repo: repo, logger: logger}
}

func (s *teacherService) Create(ctx context.Context, req *dto.CreateTeacherRequest) (*dto.TeacherResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if _, err := s.repo.User.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return nil, err
	}

	var teacher *model.Teacher
	err = s.repo.Tx.Transaction(ctx, func(tx *repository.Repository) error {
		user := &model.User{
			FullName:     strings.TrimSpace(req.FullName),
			Email:        email,
			PasswordHash: string(hash),
			Role:         model.RoleTeacher,
		}
		if err := tx.User.Create(ctx, user); err != nil {
			return err
		}
		teacher = &model.Teacher{
			UserID:     user.UserID,
			Department: strings.TrimSpace(req.Department),
		}
		if err := tx.Teacher.Create(ctx, teacher); err != nil {
			return err
		}
		teacher.User = user
		return nil
	})
	if err != nil {
		if pkgerrors.IsUniqueViolation(err, "uk_users_email") {
			return nil, ErrEmailExists
		}
		s.logger.Error("创建教师失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("教师已创建", zap.Int64("teacher_id", teacher.TeacherID), zap.String("email", email))
	resp := toTeacherResponse(teacher)
	return &resp, nil
}

func (s *teacherService) List(ctx context.Context) ([]dto.TeacherResponse, error) {
	teachers, err := s.repo.Teacher.List(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]dto.TeacherResponse, 0, len(teachers))
	for i := range teachers {
		result = append(result, toTeacherResponse(&teachers[i]))
	}
	return result, nil
}
