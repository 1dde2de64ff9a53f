package repository

import (
	"context"

	"gorm.io/gorm"

	"shiksha-grid/internal/model"
)

// TeacherRepository 教师档案数据访问接口
type TeacherRepository interface {
	Create(ctx context.Context, teacher *model.Teacher) error
	GetByID(ctx context.Context, id int64) (*model.Teacher, error)
	GetByUserID(ctx context.Context, userID int64) (*model.Teacher, error)
	List(ctx context.Context) ([]model.Teacher, error)
}

type teacherRepo struct {
	db *gorm.DB
}

// NewTeacherRepo 创建 TeacherRepository 实例
func NewTeacherRepo(db *gorm.DB) TeacherRepository {
	return &teacherRepo{db: db}
}

func (r *teacherRepo) Create(ctx context.Context, teacher *model.Teacher) error {
	return r.db.WithContext(ctx).Create(teacher).Error
}

func (r *teacherRepo) GetByID(ctx context.Context, id int64) (*model.Teacher, error) {
	var teacher model.Teacher
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("teacher_id = ?", id).
		First(&teacher).Error
	if err != nil {
		return nil, err
	}
	return &teacher, nil
}

func (r *teacherRepo) GetByUserID(ctx context.Context, userID int64) (*model.Teacher, error) {
	var teacher model.Teacher
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("user_id = ?", userID).
		First(&teacher).Error
	if err != nil {
		return nil, err
	}
	return &teacher, nil
}

func (r *teacherRepo) List(ctx context.Context) ([]model.Teacher, error) {
	var teachers []model.Teacher
	err := r.db.WithContext(ctx).
		Preload("User").
		Order("teacher_id ASC").
		Find(&teachers).Error
	return teachers, err
}
