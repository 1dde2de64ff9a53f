package repository

import (
	"context"

	"gorm.io/gorm"

	"shiksha-grid/internal/model"
)

// EnrollmentRepository 选课记录数据访问接口
type EnrollmentRepository interface {
	Create(ctx context.Context, enrollment *model.Enrollment) error
	// ListByStudent 返回学生全部有效选课，附带时段（冲突检查的输入）
	ListByStudent(ctx context.Context, studentID int64) ([]model.Enrollment, error)
	CountBySlot(ctx context.Context, slotID int64) (int64, error)
}

type enrollmentRepo struct {
	db *gorm.DB
}

// NewEnrollmentRepo 创建 EnrollmentRepository 实例
func NewEnrollmentRepo(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepo{db: db}
}

func (r *enrollmentRepo) Create(ctx context.Context, enrollment *model.Enrollment) error {
	return r.db.WithContext(ctx).Create(enrollment).Error
}

func (r *enrollmentRepo) ListByStudent(ctx context.Context, studentID int64) ([]model.Enrollment, error) {
	var enrollments []model.Enrollment
	err := r.db.WithContext(ctx).
		Preload("Slot").
		Preload("Slot.Subject").
		Preload("Slot.Teacher").Preload("Slot.Teacher.User").
		Preload("Slot.Classroom").
		Where("student_id = ?", studentID).
		Order("enrolled_at ASC, enrollment_id ASC").
		Find(&enrollments).Error
	return enrollments, err
}

func (r *enrollmentRepo) CountBySlot(ctx context.Context, slotID int64) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&model.Enrollment{}).
		Where("slot_id = ?", slotID).
		Count(&total).Error
	return total, err
}
