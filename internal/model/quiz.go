package model

import (
	"gorm.io/datatypes"
)

// swagger:model Quiz
type Quiz struct {
	BaseModel
	LessonID  uint           `gorm:"index;not null" json:"lessonId"`
	Title     string         `gorm:"size:255;not null" json:"title"`
	Points    int            `gorm:"default:0" json:"points"` // 全部答对可获得的总积分
	Required  bool           `gorm:"default:false" json:"required"`
	Questions []QuizQuestion `gorm:"foreignKey:QuizID" json:"questions,omitempty"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

type QuizQuestion struct {
	BaseModel
	QuizID       uint                        `gorm:"index;not null" json:"quizId"`
	Position     int                         `gorm:"default:0" json:"position"`
	Prompt       string                      `gorm:"type:text;not null" json:"prompt"`
	Options      datatypes.JSONSlice[string] `json:"options"`
	CorrectIndex int                         `json:"-"`
}

func (QuizQuestion) TableName() string {
	return "quiz_questions"
}

// QuizAnswer is one selected option for one question.
type QuizAnswer struct {
	QuestionID     uint `json:"questionId" binding:"required"`
	SelectedOption int  `json:"selectedOption" binding:"min=0"`
}

type QuizSubmission struct {
	BaseModel
	UserID         uint                            `gorm:"uniqueIndex:idx_quiz_submission_user_quiz;not null" json:"userId"`
	QuizID         uint                            `gorm:"uniqueIndex:idx_quiz_submission_user_quiz;not null" json:"quizId"`
	Score          int                             `gorm:"default:0" json:"score"` // 0-100
	CorrectAnswers int                             `gorm:"default:0" json:"correctAnswers"`
	TotalQuestions int                             `gorm:"default:0" json:"totalQuestions"`
	PointsEarned   int                             `gorm:"default:0" json:"pointsEarned"`
	Answers        datatypes.JSONSlice[QuizAnswer] `json:"answers"`
	Attempts       int                             `gorm:"default:1" json:"attempts"`
}

func (QuizSubmission) TableName() string {
	return "quiz_submissions"
}

// Passed compares against the configured pass mark.
func (s *QuizSubmission) Passed(passScore int) bool {
	return s.Score >= passScore
}
