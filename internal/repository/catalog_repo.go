package repository

import (
	"context"

	"gorm.io/gorm"

	"shiksha-grid/internal/model"
)

// SubjectRepository 科目数据访问接口
type SubjectRepository interface {
	Create(ctx context.Context, subject *model.Subject) error
	GetByID(ctx context.Context, id int64) (*model.Subject, error)
	GetByCode(ctx context.Context, code string) (*model.Subject, error)
	List(ctx context.Context) ([]model.Subject, error)
}

// ClassroomRepository 教室数据访问接口
type ClassroomRepository interface {
	Create(ctx context.Context, classroom *model.Classroom) error
	GetByID(ctx context.Context, id int64) (*model.Classroom, error)
	GetByCode(ctx context.Context, code string) (*model.Classroom, error)
	List(ctx context.Context) ([]model.Classroom, error)
}

// ── Subject Repository 实现 ──

type subjectRepo struct {
	db *gorm.DB
}

func NewSubjectRepo(db *gorm.DB) SubjectRepository {
	return &subjectRepo{db: db}
}

func (r *subjectRepo) Create(ctx context.Context, subject *model.Subject) error {
	return r.db.WithContext(ctx).Create(subject).Error
}

func (r *subjectRepo) GetByID(ctx context.Context, id int64) (*model.Subject, error) {
	var subject model.Subject
	if err := r.db.WithContext(ctx).Where("subject_id = ?", id).First(&subject).Error; err != nil {
		return nil, err
	}
	return &subject, nil
}

func (r *subjectRepo) GetByCode(ctx context.Context, code string) (*model.Subject, error) {
	var subject model.Subject
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&subject).Error; err != nil {
		return nil, err
	}
	return &subject, nil
}

func (r *subjectRepo) List(ctx context.Context) ([]model.Subject, error) {
	var subjects []model.Subject
	err := r.db.WithContext(ctx).Order("code ASC").Find(&subjects).Error
	return subjects, err
}

// ── Classroom Repository 实现 ──

type classroomRepo struct {
	db *gorm.DB
}

func NewClassroomRepo(db *gorm.DB) ClassroomRepository {
	return &classroomRepo{db: db}
}

func (r *classroomRepo) Create(ctx context.Context, classroom *model.Classroom) error {
	return r.db.WithContext(ctx).Create(classroom).Error
}

func (r *classroomRepo) GetByID(ctx context.Context, id int64) (*model.Classroom, error) {
	var classroom model.Classroom
	if err := r.db.WithContext(ctx).Where("classroom_id = ?", id).First(&classroom).Error; err != nil {
		return nil, err
	}
	return &classroom, nil
}

func (r *classroomRepo) GetByCode(ctx context.Context, code string) (*model.Classroom, error) {
	var classroom model.Classroom
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&classroom).Error; err != nil {
		return nil, err
	}
	return &classroom, nil
}

func (r *classroomRepo) List(ctx context.Context) ([]model.Classroom, error) {
	var classrooms []model.Classroom
	err := r.db.WithContext(ctx).Order("code ASC").Find(&classrooms).Error
	return classrooms, err
}
