package repository

import (
	"context"
	"coursehub_backend/internal/model"

	"gorm.io/gorm"
)

type EnrollmentRepository struct {
	DB *gorm.DB
}

func NewEnrollmentRepository(db *gorm.DB) *EnrollmentRepository {
	return &EnrollmentRepository{DB: db}
}

func (r *EnrollmentRepository) Find(ctx context.Context, userID, courseID uint) (*model.Enrollment, error) {
	var e model.Enrollment
	err := r.DB.WithContext(ctx).Where("user_id = ? AND course_id = ?", userID, courseID).First(&e).Error
	return &e, err
}

func (r *EnrollmentRepository) FindByID(ctx context.Context, id uint) (*model.Enrollment, error) {
	var e model.Enrollment
	err := r.DB.WithContext(ctx).First(&e, id).Error
	return &e, err
}

func (r *EnrollmentRepository) Create(ctx context.Context, e *model.Enrollment) error {
	return r.DB.WithContext(ctx).Create(e).Error
}

func (r *EnrollmentRepository) UpdateStatus(ctx context.Context, id uint, status model.EnrollmentStatus) error {
	return r.DB.WithContext(ctx).Model(&model.Enrollment{}).
		Where("id = ?", id).
		Update("status", status).
		Error
}
