package model

import "time"

type PointReason string

const (
	ReasonLessonCompleted    PointReason = "lesson_completed"
	ReasonQuizReward         PointReason = "quiz_reward"
	ReasonQuizRetake         PointReason = "quiz_retake_adjustment"
	ReasonAssignmentOnTime   PointReason = "assignment_on_time_bonus"
	ReasonAssignmentLateFee  PointReason = "assignment_late_fee"
	ReasonAssignmentResubmit PointReason = "assignment_resubmit_fee"
	ReasonBlogPublishFee     PointReason = "blog_publish_fee"
	ReasonAdminAdjustment    PointReason = "admin_adjustment"
)

// PointEvent is one append-only ledger row. A user's balance is the sum of Delta.
type PointEvent struct {
	ID           uint        `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt    time.Time   `gorm:"index" json:"createdAt"`
	UserID       uint        `gorm:"index;not null" json:"userId"`
	Delta        int         `gorm:"not null" json:"delta"`
	BalanceAfter int         `gorm:"not null" json:"balanceAfter"`
	Reason       PointReason `gorm:"size:40;index;not null" json:"reason"`
	RefType      string      `gorm:"size:40" json:"refType,omitempty"`
	RefID        uint        `json:"refId,omitempty"`
	Note         string      `gorm:"size:255" json:"note,omitempty"`
}

func (PointEvent) TableName() string {
	return "point_events"
}
