package repository

import (
	"context"
	"coursehub_backend/internal/model"
	"errors"
	"time"

	"gorm.io/gorm"
)

type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

func (r *ProgressRepository) WithTx(tx *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: tx}
}

func (r *ProgressRepository) Find(ctx context.Context, userID, lessonID uint) (*model.LessonProgress, error) {
	var p model.LessonProgress
	err := r.DB.WithContext(ctx).Where("user_id = ? AND lesson_id = ?", userID, lessonID).First(&p).Error
	return &p, err
}

// CompletedLessonIDs 返回用户在给定课时中已完成的集合
func (r *ProgressRepository) CompletedLessonIDs(ctx context.Context, userID uint, lessonIDs []uint) (map[uint]bool, error) {
	done := make(map[uint]bool)
	if len(lessonIDs) == 0 {
		return done, nil
	}
	var ids []uint
	err := r.DB.WithContext(ctx).Model(&model.LessonProgress{}).
		Where("user_id = ? AND lesson_id IN ? AND completed = ?", userID, lessonIDs, true).
		Pluck("lesson_id", &ids).Error
	for _, id := range ids {
		done[id] = true
	}
	return done, err
}

// MarkCompleted flips the progress row to completed and reports whether this call made
// the false->true transition. Re-marking a completed lesson returns false.
func (r *ProgressRepository) MarkCompleted(ctx context.Context, userID, lessonID uint, now time.Time) (bool, error) {
	db := r.DB.WithContext(ctx)

	var p model.LessonProgress
	err := db.Where("user_id = ? AND lesson_id = ?", userID, lessonID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		p = model.LessonProgress{UserID: userID, LessonID: lessonID, Completed: true, CompletedAt: &now}
		if err := db.Create(&p).Error; err != nil {
			return false, err
		}
		return true, nil
	}
	if err != nil {
		return false, err
	}
	if p.Completed {
		return false, nil
	}

	res := db.Model(&model.LessonProgress{}).
		Where("id = ? AND completed = ?", p.ID, false).
		Updates(map[string]interface{}{"completed": true, "completed_at": now})
	return res.RowsAffected == 1, res.Error
}
