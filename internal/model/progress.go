package model

import "time"

type LessonProgress struct {
	BaseModel
	UserID      uint       `gorm:"uniqueIndex:idx_progress_user_lesson;not null" json:"userId"`
	LessonID    uint       `gorm:"uniqueIndex:idx_progress_user_lesson;not null" json:"lessonId"`
	Completed   bool       `gorm:"default:false" json:"completed"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

func (LessonProgress) TableName() string {
	return "lesson_progress"
}
