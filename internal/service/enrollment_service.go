package service

import (
	"context"
	"coursehub_backend/internal/model"
	"coursehub_backend/internal/repository"
	"coursehub_backend/internal/util"
	"coursehub_backend/pkg/logger"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type SetEnrollmentStatusRequest struct {
	Status model.EnrollmentStatus `json:"status" binding:"required,oneof=active suspended completed"`
}

type EnrollmentService struct {
	Repo       *repository.EnrollmentRepository
	CourseRepo *repository.CourseRepository
	Now        func() time.Time
}

func NewEnrollmentService(repo *repository.EnrollmentRepository, courseRepo *repository.CourseRepository) *EnrollmentService {
	return &EnrollmentService{Repo: repo, CourseRepo: courseRepo, Now: time.Now}
}

// Enroll 选课，重复选课返回冲突
func (s *EnrollmentService) Enroll(ctx context.Context, courseID, userID uint) (*model.Enrollment, error) {
	if _, err := s.CourseRepo.FindCourse(ctx, courseID); err != nil {
		return nil, util.NotFoundOr(err)
	}

	_, err := s.Repo.Find(ctx, userID, courseID)
	if err == nil {
		return nil, util.ErrAlreadyEnrolled
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	enrollment := &model.Enrollment{
		UserID:     userID,
		CourseID:   courseID,
		Status:     model.EnrollmentActive,
		EnrolledAt: s.Now(),
	}
	if err := s.Repo.Create(ctx, enrollment); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, util.ErrAlreadyEnrolled
		}
		return nil, err
	}
	logger.Log.Info("User enrolled", zap.Uint("userID", userID), zap.Uint("courseID", courseID))
	return enrollment, nil
}

func (s *EnrollmentService) Get(ctx context.Context, courseID, userID uint) (*model.Enrollment, error) {
	enrollment, err := s.Repo.Find(ctx, userID, courseID)
	if err != nil {
		return nil, util.NotFoundOr(err)
	}
	return enrollment, nil
}

func (s *EnrollmentService) SetStatus(ctx context.Context, enrollmentID uint, status model.EnrollmentStatus) (*model.Enrollment, error) {
	if !status.Valid() {
		return nil, util.Validationf("unknown enrollment status %q", status)
	}
	enrollment, err := s.Repo.FindByID(ctx, enrollmentID)
	if err != nil {
		return nil, util.NotFoundOr(err)
	}
	if err := s.Repo.UpdateStatus(ctx, enrollment.ID, status); err != nil {
		return nil, err
	}
	enrollment.Status = status
	return enrollment, nil
}
