package model

import "time"

type EnrollmentStatus string

const (
	EnrollmentActive    EnrollmentStatus = "active"
	EnrollmentSuspended EnrollmentStatus = "suspended"
	EnrollmentCompleted EnrollmentStatus = "completed"
)

func (s EnrollmentStatus) Valid() bool {
	switch s {
	case EnrollmentActive, EnrollmentSuspended, EnrollmentCompleted:
		return true
	}
	return false
}

type Enrollment struct {
	BaseModel
	UserID     uint             `gorm:"uniqueIndex:idx_enrollment_user_course;not null" json:"userId"`
	CourseID   uint             `gorm:"uniqueIndex:idx_enrollment_user_course;not null" json:"courseId"`
	Status     EnrollmentStatus `gorm:"size:20;default:'active'" json:"status"`
	EnrolledAt time.Time        `json:"enrolledAt"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}

// EarlyUnlock lets one user into a scheduled lesson or chapter before its release time.
// Exactly one of LessonID / ChapterID is set.
type EarlyUnlock struct {
	BaseModel
	UserID    uint  `gorm:"index;not null" json:"userId"`
	LessonID  *uint `gorm:"index" json:"lessonId,omitempty"`
	ChapterID *uint `gorm:"index" json:"chapterId,omitempty"`
	GrantedBy uint  `json:"grantedBy"`
}

func (EarlyUnlock) TableName() string {
	return "early_unlocks"
}
