package model

import (
	"time"
)

// swagger:model Course
type Course struct {
	BaseModel
	Title        string    `gorm:"size:255;not null" json:"title"`
	Slug         string    `gorm:"size:255;uniqueIndex" json:"slug"`
	Description  string    `gorm:"type:text" json:"description"`
	InstructorID uint      `gorm:"index" json:"instructorId"`
	Chapters     []Chapter `gorm:"foreignKey:CourseID" json:"chapters,omitempty"`
}

func (Course) TableName() string {
	return "courses"
}

type Chapter struct {
	BaseModel
	CourseID  uint          `gorm:"index;not null" json:"courseId"`
	Title     string        `gorm:"size:255;not null" json:"title"`
	Position  int           `gorm:"default:0" json:"position"`
	Status    PublishStatus `gorm:"size:20;default:'draft'" json:"status"`
	ReleaseAt *time.Time    `json:"releaseAt,omitempty"`
	Lessons   []Lesson      `gorm:"foreignKey:ChapterID" json:"lessons,omitempty"`
}

func (Chapter) TableName() string {
	return "chapters"
}

func (c *Chapter) ReleasePending(now time.Time) bool {
	return releasePending(c.Status, c.ReleaseAt, now)
}

// swagger:model Lesson
type Lesson struct {
	BaseModel
	CourseID    uint          `gorm:"index;not null" json:"courseId"`
	ChapterID   uint          `gorm:"index;not null" json:"chapterId"`
	Chapter     *Chapter      `gorm:"foreignKey:ChapterID" json:"chapter,omitempty"`
	Title       string        `gorm:"size:255;not null" json:"title"`
	Content     string        `gorm:"type:text" json:"content,omitempty"`
	VideoURL    string        `gorm:"size:255" json:"videoUrl,omitempty"`
	Position    int           `gorm:"default:0" json:"position"`
	Status      PublishStatus `gorm:"size:20;default:'draft'" json:"status"`
	ReleaseAt   *time.Time    `json:"releaseAt,omitempty"`
	Assignments []Assignment  `gorm:"foreignKey:LessonID" json:"assignments,omitempty"`
	Quizzes     []Quiz        `gorm:"foreignKey:LessonID" json:"quizzes,omitempty"`
}

func (Lesson) TableName() string {
	return "lessons"
}

func (l *Lesson) ReleasePending(now time.Time) bool {
	return releasePending(l.Status, l.ReleaseAt, now)
}
