package service

import (
	"context"
	"coursehub_backend/internal/model"
	"coursehub_backend/internal/repository"
	"coursehub_backend/internal/util"
	"coursehub_backend/pkg/logger"
	"coursehub_backend/pkg/monitoring"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type SetPublishStatusRequest struct {
	Status    model.PublishStatus `json:"status" binding:"required,oneof=draft scheduled published"`
	ReleaseAt *time.Time          `json:"releaseAt"`
}

type ReleaseReport struct {
	Lessons  int64 `json:"lessons"`
	Chapters int64 `json:"chapters"`
}

// ReleaseService owns the draft/scheduled/published lifecycle of lessons and chapters.
type ReleaseService struct {
	DB         *gorm.DB
	CourseRepo *repository.CourseRepository
	Now        func() time.Time
}

func NewReleaseService(db *gorm.DB, courseRepo *repository.CourseRepository) *ReleaseService {
	return &ReleaseService{DB: db, CourseRepo: courseRepo, Now: time.Now}
}

func checkPublishRequest(from model.PublishStatus, req SetPublishStatusRequest) error {
	if !from.CanTransition(req.Status) {
		return util.ErrInvalidTransition
	}
	if req.Status == model.PublishScheduled && req.ReleaseAt == nil {
		return util.Validationf("releaseAt is required when scheduling")
	}
	return nil
}

func (s *ReleaseService) SetLessonStatus(ctx context.Context, lessonID uint, req SetPublishStatusRequest) (*model.Lesson, error) {
	lesson, err := s.CourseRepo.FindLesson(ctx, lessonID)
	if err != nil {
		return nil, util.NotFoundOr(err)
	}
	if err := checkPublishRequest(lesson.Status, req); err != nil {
		return nil, err
	}
	if err := s.CourseRepo.UpdateLessonStatus(ctx, lesson.ID, req.Status, req.ReleaseAt); err != nil {
		return nil, err
	}
	lesson.Status = req.Status
	lesson.ReleaseAt = req.ReleaseAt
	return lesson, nil
}

func (s *ReleaseService) SetChapterStatus(ctx context.Context, chapterID uint, req SetPublishStatusRequest) (*model.Chapter, error) {
	chapter, err := s.CourseRepo.FindChapter(ctx, chapterID)
	if err != nil {
		return nil, util.NotFoundOr(err)
	}
	if err := checkPublishRequest(chapter.Status, req); err != nil {
		return nil, err
	}
	if err := s.CourseRepo.UpdateChapterStatus(ctx, chapter.ID, req.Status, req.ReleaseAt); err != nil {
		return nil, err
	}
	chapter.Status = req.Status
	chapter.ReleaseAt = req.ReleaseAt
	return chapter, nil
}

// ProcessScheduledReleases 将到期的定时课时与章节改为已发布，由定时任务调用
func (s *ReleaseService) ProcessScheduledReleases(ctx context.Context) (*ReleaseReport, error) {
	now := s.Now()
	report := &ReleaseReport{}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.CourseRepo.WithTx(tx)
		var err error
		if report.Chapters, err = repo.PublishDueChapters(ctx, now); err != nil {
			return err
		}
		report.Lessons, err = repo.PublishDueLessons(ctx, now)
		return err
	})
	if err != nil {
		logger.Log.Error("Scheduled release failed", zap.Error(err))
		return nil, err
	}

	if report.Lessons > 0 || report.Chapters > 0 {
		monitoring.ScheduledReleases.WithLabelValues("lesson").Add(float64(report.Lessons))
		monitoring.ScheduledReleases.WithLabelValues("chapter").Add(float64(report.Chapters))
		logger.Log.Info("Scheduled content released",
			zap.Int64("lessons", report.Lessons),
			zap.Int64("chapters", report.Chapters))
	}
	return report, nil
}
