package model

import "time"

// swagger:model Assignment
type Assignment struct {
	BaseModel
	LessonID     uint       `gorm:"index;not null" json:"lessonId"`
	Title        string     `gorm:"size:255;not null" json:"title"`
	Instructions string     `gorm:"type:text" json:"instructions"`
	Points       int        `gorm:"default:0" json:"points"`
	DueDate      *time.Time `json:"dueDate,omitempty"`
}

func (Assignment) TableName() string {
	return "assignments"
}

// IsLate reports whether a submission at t misses the due date. No due date never is.
func (a *Assignment) IsLate(t time.Time) bool {
	return a.DueDate != nil && t.After(*a.DueDate)
}

type SubmissionStatus string

const (
	SubmissionPending  SubmissionStatus = "pending"
	SubmissionGraded   SubmissionStatus = "graded"
	SubmissionReturned SubmissionStatus = "returned"
)

// pending -> pending is a resubmission before grading.
var submissionTransitions = map[SubmissionStatus][]SubmissionStatus{
	SubmissionPending:  {SubmissionGraded, SubmissionReturned, SubmissionPending},
	SubmissionGraded:   {SubmissionPending},
	SubmissionReturned: {SubmissionPending},
}

func (s SubmissionStatus) Valid() bool {
	_, ok := submissionTransitions[s]
	return ok
}

func (s SubmissionStatus) CanTransition(to SubmissionStatus) bool {
	return transitionAllowed(submissionTransitions, s, to)
}

type AssignmentSubmission struct {
	BaseModel
	UserID          uint             `gorm:"uniqueIndex:idx_submission_user_assignment;not null" json:"userId"`
	AssignmentID    uint             `gorm:"uniqueIndex:idx_submission_user_assignment;not null" json:"assignmentId"`
	Content         string           `gorm:"type:text" json:"content"`
	FileURL         string           `gorm:"size:512" json:"fileUrl,omitempty"`
	Status          SubmissionStatus `gorm:"size:20;default:'pending'" json:"status"`
	SubmissionCount int              `gorm:"default:0" json:"submissionCount"`
	SubmittedAt     time.Time        `json:"submittedAt"`
	Grade           *int             `json:"grade,omitempty"`
	Feedback        string           `gorm:"type:text" json:"feedback,omitempty"`
	GradedBy        *uint            `json:"gradedBy,omitempty"`
	GradedAt        *time.Time       `json:"gradedAt,omitempty"`
}

func (AssignmentSubmission) TableName() string {
	return "assignment_submissions"
}
