package service

import (
	"context"
	"coursehub_backend/internal/model"
	"coursehub_backend/internal/repository"
	"coursehub_backend/internal/util"
	"coursehub_backend/pkg/logger"
	"coursehub_backend/pkg/monitoring"
	"coursehub_backend/pkg/tracing"
	"errors"
	"math"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type SubmitQuizRequest struct {
	Answers []model.QuizAnswer `json:"answers" binding:"required,dive"`
}

// QuizGrade is the outcome of scoring one answer set.
type QuizGrade struct {
	Score          int `json:"score"`
	CorrectAnswers int `json:"correctAnswers"`
	TotalQuestions int `json:"totalQuestions"`
	PointsEarned   int `json:"pointsEarned"`
}

type QuizResult struct {
	QuizGrade
	SubmissionID uint `json:"submissionId"`
	Attempts     int  `json:"attempts"`
	Retake       bool `json:"retake"`
	PointsDelta  int  `json:"pointsDelta"`
	Passed       bool `json:"passed"`
	Balance      int  `json:"balance"`
}

type QuizView struct {
	Quiz       *model.Quiz           `json:"quiz"`
	Submission *model.QuizSubmission `json:"submission,omitempty"`
	CanRetake  bool                  `json:"canRetake"`
	PassScore  int                   `json:"passScore"`
}

type QuizService struct {
	DB       *gorm.DB
	QuizRepo *repository.QuizRepository
	Access   *LessonAccessService
	Ledger   *LedgerService
	Guard    *SubmissionGuard
	Rules    *Rules
}

func NewQuizService(db *gorm.DB, quizRepo *repository.QuizRepository, access *LessonAccessService, ledger *LedgerService, guard *SubmissionGuard, rules *Rules) *QuizService {
	return &QuizService{
		DB:       db,
		QuizRepo: quizRepo,
		Access:   access,
		Ledger:   ledger,
		Guard:    guard,
		Rules:    rules,
	}
}

// GradeQuiz scores answers against the quiz. Every question must be answered exactly once
// with an option that exists.
func GradeQuiz(quiz *model.Quiz, answers []model.QuizAnswer) (QuizGrade, error) {
	total := len(quiz.Questions)
	if total == 0 {
		return QuizGrade{}, util.Validationf("quiz has no questions")
	}
	if len(answers) != total {
		return QuizGrade{}, util.ErrIncompleteAnswers
	}

	questions := make(map[uint]*model.QuizQuestion, total)
	for i := range quiz.Questions {
		questions[quiz.Questions[i].ID] = &quiz.Questions[i]
	}

	seen := make(map[uint]bool, total)
	correct := 0
	for _, a := range answers {
		q, ok := questions[a.QuestionID]
		if !ok {
			return QuizGrade{}, util.Validationf("question %d does not belong to this quiz", a.QuestionID)
		}
		if seen[a.QuestionID] {
			return QuizGrade{}, util.Validationf("question %d answered more than once", a.QuestionID)
		}
		seen[a.QuestionID] = true
		if a.SelectedOption < 0 || a.SelectedOption >= len(q.Options) {
			return QuizGrade{}, util.Validationf("option %d out of range for question %d", a.SelectedOption, a.QuestionID)
		}
		if a.SelectedOption == q.CorrectIndex {
			correct++
		}
	}

	return QuizGrade{
		Score:          int(math.Round(float64(correct) / float64(total) * 100)),
		CorrectAnswers: correct,
		TotalQuestions: total,
		// 按答对题数比例计分
		PointsEarned: int(math.Round(float64(correct) * (float64(quiz.Points) / float64(total)))),
	}, nil
}

// canRetake: only required quizzes below the pass mark may be taken again.
func canRetake(quiz *model.Quiz, sub *model.QuizSubmission, passScore int) bool {
	return quiz.Required && !sub.Passed(passScore)
}

func (s *QuizService) loadForUser(ctx context.Context, quizID, userID uint) (*model.Quiz, error) {
	quiz, err := s.QuizRepo.FindWithQuestions(ctx, quizID)
	if err != nil {
		return nil, util.NotFoundOr(err)
	}
	if _, err := s.Access.RequireOpen(ctx, quiz.LessonID, userID); err != nil {
		return nil, err
	}
	return quiz, nil
}

// Submit 提交测验：首次提交按得分发放积分，必修且未通过的测验可重考，积分按差值调整
func (s *QuizService) Submit(ctx context.Context, quizID, userID uint, answers []model.QuizAnswer) (*QuizResult, error) {
	ctx, span := tracing.StartSpan(ctx, "Quiz.Submit", userID)
	defer span.End()

	release, err := s.Guard.Acquire(ctx, "quiz", userID, quizID)
	if err != nil {
		return nil, err
	}
	defer release()

	quiz, err := s.loadForUser(ctx, quizID, userID)
	if err != nil {
		return nil, err
	}
	grade, err := GradeQuiz(quiz, answers)
	if err != nil {
		return nil, err
	}

	passScore := s.Rules.Rewards().QuizPassScore
	result := &QuizResult{QuizGrade: grade, Passed: grade.Score >= passScore}
	var event *model.PointEvent

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.QuizRepo.WithTx(tx)

		existing, err := repo.FindSubmission(ctx, userID, quizID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			sub := &model.QuizSubmission{
				UserID:         userID,
				QuizID:         quizID,
				Score:          grade.Score,
				CorrectAnswers: grade.CorrectAnswers,
				TotalQuestions: grade.TotalQuestions,
				PointsEarned:   grade.PointsEarned,
				Answers:        answers,
				Attempts:       1,
			}
			if err := repo.CreateSubmission(ctx, sub); err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return util.ErrQuizAlreadySubmitted
				}
				return err
			}
			result.SubmissionID = sub.ID
			result.Attempts = sub.Attempts
			if grade.PointsEarned == 0 {
				return nil
			}
			event, err = s.Ledger.Apply(ctx, tx, PointChange{
				UserID:  userID,
				Delta:   grade.PointsEarned,
				Reason:  model.ReasonQuizReward,
				RefType: "quiz",
				RefID:   quizID,
			})
			return err
		}
		if err != nil {
			return err
		}

		if !canRetake(quiz, existing, passScore) {
			return util.ErrQuizAlreadySubmitted
		}

		prevAttempts := existing.Attempts
		delta := grade.PointsEarned - existing.PointsEarned
		existing.Score = grade.Score
		existing.CorrectAnswers = grade.CorrectAnswers
		existing.TotalQuestions = grade.TotalQuestions
		existing.PointsEarned = grade.PointsEarned
		existing.Answers = answers
		existing.Attempts = prevAttempts + 1

		rows, err := repo.UpdateRetake(ctx, existing, prevAttempts)
		if err != nil {
			return err
		}
		if rows == 0 {
			return util.ErrStaleState
		}
		result.SubmissionID = existing.ID
		result.Attempts = existing.Attempts
		result.Retake = true

		event, err = s.Ledger.ApplyClamped(ctx, tx, PointChange{
			UserID:  userID,
			Delta:   delta,
			Reason:  model.ReasonQuizRetake,
			RefType: "quiz",
			RefID:   quizID,
		})
		return err
	})

	kind := "first"
	if result.Retake {
		kind = "retake"
	}
	if err != nil {
		monitoring.QuizSubmissions.WithLabelValues(kind, "rejected").Inc()
		return nil, err
	}
	outcome := "failed"
	if result.Passed {
		outcome = "passed"
	}
	monitoring.QuizSubmissions.WithLabelValues(kind, outcome).Inc()

	s.Ledger.Record(event)
	if event != nil {
		result.PointsDelta = event.Delta
	}
	if result.Balance, err = s.Ledger.Balance(ctx, userID); err != nil {
		return nil, err
	}

	logger.Log.Info("Quiz submitted",
		zap.Uint("userID", userID),
		zap.Uint("quizID", quizID),
		zap.Int("score", result.Score),
		zap.Int("attempts", result.Attempts),
		zap.Int("pointsDelta", result.PointsDelta))
	return result, nil
}

// GetForLearner returns the quiz without answer keys plus the learner's own submission.
func (s *QuizService) GetForLearner(ctx context.Context, quizID, userID uint) (*QuizView, error) {
	quiz, err := s.loadForUser(ctx, quizID, userID)
	if err != nil {
		return nil, err
	}
	passScore := s.Rules.Rewards().QuizPassScore
	view := &QuizView{Quiz: quiz, CanRetake: true, PassScore: passScore}

	sub, err := s.QuizRepo.FindSubmission(ctx, userID, quizID)
	switch {
	case err == nil:
		view.Submission = sub
		view.CanRetake = canRetake(quiz, sub, passScore)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}
	return view, nil
}

func (s *QuizService) GetSubmission(ctx context.Context, quizID, userID uint) (*model.QuizSubmission, error) {
	sub, err := s.QuizRepo.FindSubmission(ctx, userID, quizID)
	if err != nil {
		return nil, util.NotFoundOr(err)
	}
	return sub, nil
}

