package repository

import (
	"context"
	"coursehub_backend/internal/model"

	"gorm.io/gorm"
)

type QuizRepository struct {
	DB *gorm.DB
}

func NewQuizRepository(db *gorm.DB) *QuizRepository {
	return &QuizRepository{DB: db}
}

func (r *QuizRepository) WithTx(tx *gorm.DB) *QuizRepository {
	return &QuizRepository{DB: tx}
}

// FindWithQuestions 查询测验及其按顺序排列的题目
func (r *QuizRepository) FindWithQuestions(ctx context.Context, id uint) (*model.Quiz, error) {
	var quiz model.Quiz
	err := r.DB.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, id ASC")
		}).
		First(&quiz, id).Error
	return &quiz, err
}

func (r *QuizRepository) FindRequiredByLessons(ctx context.Context, lessonIDs []uint) ([]model.Quiz, error) {
	var quizzes []model.Quiz
	if len(lessonIDs) == 0 {
		return quizzes, nil
	}
	err := r.DB.WithContext(ctx).
		Where("lesson_id IN ? AND required = ?", lessonIDs, true).
		Find(&quizzes).Error
	return quizzes, err
}

func (r *QuizRepository) FindSubmission(ctx context.Context, userID, quizID uint) (*model.QuizSubmission, error) {
	var sub model.QuizSubmission
	err := r.DB.WithContext(ctx).Where("user_id = ? AND quiz_id = ?", userID, quizID).First(&sub).Error
	return &sub, err
}

// ScoresByQuiz 返回用户在给定测验上的最新得分
func (r *QuizRepository) ScoresByQuiz(ctx context.Context, userID uint, quizIDs []uint) (map[uint]int, error) {
	scores := make(map[uint]int)
	if len(quizIDs) == 0 {
		return scores, nil
	}
	var subs []model.QuizSubmission
	err := r.DB.WithContext(ctx).
		Select("quiz_id", "score").
		Where("user_id = ? AND quiz_id IN ?", userID, quizIDs).
		Find(&subs).Error
	for _, s := range subs {
		scores[s.QuizID] = s.Score
	}
	return scores, err
}

func (r *QuizRepository) CreateSubmission(ctx context.Context, sub *model.QuizSubmission) error {
	return r.DB.WithContext(ctx).Create(sub).Error
}

// UpdateRetake rewrites a submission only if nobody retook it since prevAttempts was read.
func (r *QuizRepository) UpdateRetake(ctx context.Context, sub *model.QuizSubmission, prevAttempts int) (int64, error) {
	res := r.DB.WithContext(ctx).Model(&model.QuizSubmission{}).
		Where("id = ? AND attempts = ?", sub.ID, prevAttempts).
		Updates(map[string]interface{}{
			"score":           sub.Score,
			"correct_answers": sub.CorrectAnswers,
			"total_questions": sub.TotalQuestions,
			"points_earned":   sub.PointsEarned,
			"answers":         sub.Answers,
			"attempts":        sub.Attempts,
		})
	return res.RowsAffected, res.Error
}
