package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"shiksha-grid/internal/model"
)

// StudentRepository 学生档案数据访问接口
type StudentRepository interface {
	Create(ctx context.Context, student *model.Student) error
	GetByID(ctx context.Context, id int64) (*model.Student, error)
	GetByUserID(ctx context.Context, userID int64) (*model.Student, error)
	// GetByIDForUpdate 使用 SELECT ... FOR UPDATE 锁定学生行，串行化同一学生的选课
	GetByIDForUpdate(ctx context.Context, id int64) (*model.Student, error)
}

type studentRepo struct {
	db *gorm.DB
}

// NewStudentRepo 创建 StudentRepository 实例
func NewStudentRepo(db *gorm.DB) StudentRepository {
	return &studentRepo{db: db}
}

func (r *studentRepo) Create(ctx context.Context, student *model.Student) error {
	return r.db.WithContext(ctx).Create(student).Error
}

func (r *studentRepo) GetByID(ctx context.Context, id int64) (*model.Student, error) {
	var student model.Student
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("student_id = ?", id).
		First(&student).Error
	if err != nil {
		return nil, err
	}
	return &student, nil
}

func (r *studentRepo) GetByUserID(ctx context.Context, userID int64) (*model.Student, error) {
	var student model.Student
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&student).Error
	if err != nil {
		return nil, err
	}
	return &student, nil
}

// GetByIDForUpdate 必须在 Transactor 提供的事务 Repository 上调用
func (r *studentRepo) GetByIDForUpdate(ctx context.Context, id int64) (*model.Student, error) {
	var student model.Student
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("student_id = ?", id).
		First(&student).Error
	if err != nil {
		return nil, err
	}
	return &student, nil
}
