package repository

import (
	"context"
	"coursehub_backend/internal/model"

	"gorm.io/gorm"
)

type AssignmentRepository struct {
	DB *gorm.DB
}

func NewAssignmentRepository(db *gorm.DB) *AssignmentRepository {
	return &AssignmentRepository{DB: db}
}

func (r *AssignmentRepository) WithTx(tx *gorm.DB) *AssignmentRepository {
	return &AssignmentRepository{DB: tx}
}

func (r *AssignmentRepository) FindByID(ctx context.Context, id uint) (*model.Assignment, error) {
	var a model.Assignment
	err := r.DB.WithContext(ctx).First(&a, id).Error
	return &a, err
}

func (r *AssignmentRepository) FindByLessons(ctx context.Context, lessonIDs []uint) ([]model.Assignment, error) {
	var list []model.Assignment
	if len(lessonIDs) == 0 {
		return list, nil
	}
	err := r.DB.WithContext(ctx).Where("lesson_id IN ?", lessonIDs).Find(&list).Error
	return list, err
}

// SubmittedAssignmentIDs 返回用户已提交过的作业集合
func (r *AssignmentRepository) SubmittedAssignmentIDs(ctx context.Context, userID uint, assignmentIDs []uint) (map[uint]bool, error) {
	submitted := make(map[uint]bool)
	if len(assignmentIDs) == 0 {
		return submitted, nil
	}
	var ids []uint
	err := r.DB.WithContext(ctx).Model(&model.AssignmentSubmission{}).
		Where("user_id = ? AND assignment_id IN ?", userID, assignmentIDs).
		Pluck("assignment_id", &ids).Error
	for _, id := range ids {
		submitted[id] = true
	}
	return submitted, err
}

func (r *AssignmentRepository) FindSubmission(ctx context.Context, userID, assignmentID uint) (*model.AssignmentSubmission, error) {
	var sub model.AssignmentSubmission
	err := r.DB.WithContext(ctx).Where("user_id = ? AND assignment_id = ?", userID, assignmentID).First(&sub).Error
	return &sub, err
}

func (r *AssignmentRepository) FindSubmissionByID(ctx context.Context, id uint) (*model.AssignmentSubmission, error) {
	var sub model.AssignmentSubmission
	err := r.DB.WithContext(ctx).First(&sub, id).Error
	return &sub, err
}

func (r *AssignmentRepository) CreateSubmission(ctx context.Context, sub *model.AssignmentSubmission) error {
	return r.DB.WithContext(ctx).Create(sub).Error
}

// UpdateSubmissionIf applies updates only while the row still has the expected status and
// submission count, so two concurrent resubmits cannot both be charged.
func (r *AssignmentRepository) UpdateSubmissionIf(ctx context.Context, id uint, status model.SubmissionStatus, count int, updates map[string]interface{}) (int64, error) {
	res := r.DB.WithContext(ctx).Model(&model.AssignmentSubmission{}).
		Where("id = ? AND status = ? AND submission_count = ?", id, status, count).
		Updates(updates)
	return res.RowsAffected, res.Error
}
