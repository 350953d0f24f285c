package service

import (
	"context"
	"coursehub_backend/internal/config"
	"coursehub_backend/internal/model"
	"coursehub_backend/internal/repository"
	"coursehub_backend/internal/util"
	"coursehub_backend/pkg/logger"
	"coursehub_backend/pkg/tracing"
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type SubmitAssignmentRequest struct {
	Content string `json:"content" binding:"required,max=65535"`
	FileURL string `json:"fileUrl" binding:"omitempty,max=512"`
}

type GradeSubmissionRequest struct {
	Status   model.SubmissionStatus `json:"status" binding:"required,oneof=graded returned"`
	Grade    *int                   `json:"grade" binding:"omitempty,min=0"`
	Feedback string                 `json:"feedback" binding:"max=65535"`
}

type AssignmentSubmitResult struct {
	Submission   *model.AssignmentSubmission `json:"submission"`
	Late         bool                        `json:"late"`
	Resubmission bool                        `json:"resubmission"`
	PointsDelta  int                         `json:"pointsDelta"`
	Balance      int                         `json:"balance"`
}

type AssignmentService struct {
	DB             *gorm.DB
	AssignmentRepo *repository.AssignmentRepository
	CourseRepo     *repository.CourseRepository
	Access         *LessonAccessService
	Ledger         *LedgerService
	Guard          *SubmissionGuard
	Storage        *StorageService
	Rules          *Rules
	Now            func() time.Time
}

func NewAssignmentService(
	db *gorm.DB,
	assignmentRepo *repository.AssignmentRepository,
	courseRepo *repository.CourseRepository,
	access *LessonAccessService,
	ledger *LedgerService,
	guard *SubmissionGuard,
	storage *StorageService,
	rules *Rules,
) *AssignmentService {
	return &AssignmentService{
		DB:             db,
		AssignmentRepo: assignmentRepo,
		CourseRepo:     courseRepo,
		Access:         access,
		Ledger:         ledger,
		Guard:          guard,
		Storage:        storage,
		Rules:          rules,
		Now:            time.Now,
	}
}

// resubmitCost: graded work costs more to reopen than work still waiting for review.
func resubmitCost(status model.SubmissionStatus, rewards config.RewardsConfig) int {
	if status == model.SubmissionGraded {
		return rewards.ResubmitGradedFee
	}
	return rewards.ResubmitPendingFee
}

// Submit 提交或重新提交作业
//
// 首次按时提交奖励积分，首次逾期提交、重新提交需要扣除积分；余额不足时不做任何修改。
func (s *AssignmentService) Submit(ctx context.Context, assignmentID, userID uint, req SubmitAssignmentRequest) (*AssignmentSubmitResult, error) {
	ctx, span := tracing.StartSpan(ctx, "Assignment.Submit", userID)
	defer span.End()

	release, err := s.Guard.Acquire(ctx, "assignment", userID, assignmentID)
	if err != nil {
		return nil, err
	}
	defer release()

	assignment, err := s.AssignmentRepo.FindByID(ctx, assignmentID)
	if err != nil {
		return nil, util.NotFoundOr(err)
	}
	if _, err := s.Access.RequireOpen(ctx, assignment.LessonID, userID); err != nil {
		return nil, err
	}

	rewards := s.Rules.Rewards()
	now := s.Now()
	result := &AssignmentSubmitResult{}
	var event *model.PointEvent

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.AssignmentRepo.WithTx(tx)

		existing, err := repo.FindSubmission(ctx, userID, assignmentID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err == nil {
			if !existing.Status.CanTransition(model.SubmissionPending) {
				return util.ErrInvalidTransition
			}
			cost := resubmitCost(existing.Status, rewards)
			rows, err := repo.UpdateSubmissionIf(ctx, existing.ID, existing.Status, existing.SubmissionCount, map[string]interface{}{
				"content":          req.Content,
				"file_url":         req.FileURL,
				"status":           model.SubmissionPending,
				"submission_count": existing.SubmissionCount + 1,
				"submitted_at":     now,
				"grade":            nil,
				"graded_by":        nil,
				"graded_at":        nil,
			})
			if err != nil {
				return err
			}
			if rows == 0 {
				return util.ErrStaleState
			}
			event, err = s.Ledger.Apply(ctx, tx, PointChange{
				UserID:  userID,
				Delta:   -cost,
				Reason:  model.ReasonAssignmentResubmit,
				RefType: "assignment",
				RefID:   assignmentID,
				Note:    fmt.Sprintf("resubmit after %s", existing.Status),
			})
			if err != nil {
				return err
			}
			result.Resubmission = true
			result.Submission, err = repo.FindSubmissionByID(ctx, existing.ID)
			return err
		}

		sub := &model.AssignmentSubmission{
			UserID:          userID,
			AssignmentID:    assignmentID,
			Content:         req.Content,
			FileURL:         req.FileURL,
			Status:          model.SubmissionPending,
			SubmissionCount: 1,
			SubmittedAt:     now,
		}
		if err := repo.CreateSubmission(ctx, sub); err != nil {
			return err
		}

		change := PointChange{UserID: userID, RefType: "assignment", RefID: assignmentID}
		if assignment.IsLate(now) {
			result.Late = true
			change.Delta = -rewards.AssignmentLateFee
			change.Reason = model.ReasonAssignmentLateFee
		} else {
			change.Delta = rewards.AssignmentOnTimeBonus
			change.Reason = model.ReasonAssignmentOnTime
		}
		// 扣费失败会回滚上面创建的提交记录
		if event, err = s.Ledger.Apply(ctx, tx, change); err != nil {
			return err
		}
		result.Submission = sub
		return nil
	})
	if err != nil {
		if errors.Is(err, util.ErrInsufficientPoints) {
			logger.Log.Info("Assignment submit rejected: insufficient points",
				zap.Uint("userID", userID),
				zap.Uint("assignmentID", assignmentID))
		}
		return nil, err
	}

	s.Ledger.Record(event)
	if event != nil {
		result.PointsDelta = event.Delta
	}
	if result.Balance, err = s.Ledger.Balance(ctx, userID); err != nil {
		return nil, err
	}
	return result, nil
}

// Grade moves a pending submission to graded or returned. Instructors may only grade their
// own courses.
func (s *AssignmentService) Grade(ctx context.Context, submissionID, graderID uint, role model.UserRole, req GradeSubmissionRequest) (*model.AssignmentSubmission, error) {
	sub, err := s.AssignmentRepo.FindSubmissionByID(ctx, submissionID)
	if err != nil {
		return nil, util.NotFoundOr(err)
	}
	assignment, err := s.AssignmentRepo.FindByID(ctx, sub.AssignmentID)
	if err != nil {
		return nil, util.NotFoundOr(err)
	}

	if role != model.RoleAdmin {
		lesson, err := s.CourseRepo.FindLesson(ctx, assignment.LessonID)
		if err != nil {
			return nil, util.NotFoundOr(err)
		}
		course, err := s.CourseRepo.FindCourse(ctx, lesson.CourseID)
		if err != nil {
			return nil, util.NotFoundOr(err)
		}
		if course.InstructorID != graderID {
			return nil, util.ErrForbidden
		}
	}

	if !req.Status.Valid() || req.Status == model.SubmissionPending {
		return nil, util.Validationf("status must be graded or returned")
	}
	if !sub.Status.CanTransition(req.Status) {
		return nil, util.ErrInvalidTransition
	}
	if req.Status == model.SubmissionGraded && req.Grade == nil {
		return nil, util.Validationf("grade is required when status is graded")
	}
	if req.Grade != nil && assignment.Points > 0 && *req.Grade > assignment.Points {
		return nil, util.Validationf("grade must not exceed %d", assignment.Points)
	}

	now := s.Now()
	rows, err := s.AssignmentRepo.UpdateSubmissionIf(ctx, sub.ID, sub.Status, sub.SubmissionCount, map[string]interface{}{
		"status":    req.Status,
		"grade":     req.Grade,
		"feedback":  req.Feedback,
		"graded_by": graderID,
		"graded_at": now,
	})
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, util.ErrStaleState
	}

	logger.Log.Info("Submission graded",
		zap.Uint("submissionID", sub.ID),
		zap.Uint("graderID", graderID),
		zap.String("status", string(req.Status)))
	return s.AssignmentRepo.FindSubmissionByID(ctx, sub.ID)
}

// UploadAttachment 上传作业附件，返回可在提交时引用的地址
func (s *AssignmentService) UploadAttachment(ctx context.Context, assignmentID, userID uint, file *multipart.FileHeader) (string, error) {
	if file.Size > util.MaxUploadBytes {
		return "", util.Validationf("file exceeds %d bytes", util.MaxUploadBytes)
	}
	assignment, err := s.AssignmentRepo.FindByID(ctx, assignmentID)
	if err != nil {
		return "", util.NotFoundOr(err)
	}
	if _, err := s.Access.RequireOpen(ctx, assignment.LessonID, userID); err != nil {
		return "", err
	}

	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	mimeType, err := util.ValidateAttachment(file.Filename, src)
	if err != nil {
		return "", err
	}
	if _, err := src.Seek(0, 0); err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	key := fmt.Sprintf("assignments/%d/%d/%s%s", assignmentID, userID, uuid.NewString(), ext)
	return s.Storage.Upload(ctx, key, src, file.Size, mimeType)
}
