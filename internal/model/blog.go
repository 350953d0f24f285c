package model

import (
	"time"

	"gorm.io/datatypes"
)

type BlogStatus string

const (
	BlogPending   BlogStatus = "pending"
	BlogApproved  BlogStatus = "approved"
	BlogPublished BlogStatus = "published"
	BlogRejected  BlogStatus = "rejected"
)

var blogTransitions = map[BlogStatus][]BlogStatus{
	BlogPending:  {BlogApproved, BlogRejected, BlogPending},
	BlogApproved: {BlogPublished},
	BlogRejected: {BlogPending},
}

func (s BlogStatus) Valid() bool {
	switch s {
	case BlogPending, BlogApproved, BlogPublished, BlogRejected:
		return true
	}
	return false
}

func (s BlogStatus) CanTransition(to BlogStatus) bool {
	return transitionAllowed(blogTransitions, s, to)
}

// Reviewed is true once an admin has acted on the post.
func (s BlogStatus) Reviewed() bool {
	return s == BlogApproved || s == BlogPublished
}

type BlogFeatureKind string

const (
	FeatureImage BlogFeatureKind = "image"
	FeatureVideo BlogFeatureKind = "video"
	FeatureCode  BlogFeatureKind = "code"
	FeatureLink  BlogFeatureKind = "link"
)

type BlogFeature struct {
	Kind  BlogFeatureKind `json:"kind" validate:"required,oneof=image video code link"`
	Value string          `json:"value" validate:"required,max=4096"`
}

// swagger:model Blog
type Blog struct {
	BaseModel
	AuthorID    uint                             `gorm:"index;not null" json:"authorId"`
	Title       string                           `gorm:"size:255;not null" json:"title"`
	Slug        string                           `gorm:"size:300;uniqueIndex" json:"slug"`
	Content     string                           `gorm:"type:text" json:"content"`
	Features    datatypes.JSONSlice[BlogFeature] `json:"features"`
	IsDraft     bool                             `gorm:"not null" json:"isDraft"`
	Status      BlogStatus                       `gorm:"size:20;default:'pending'" json:"status"`
	PointsSpent int                              `gorm:"default:0" json:"pointsSpent"`
	SubmittedAt *time.Time                       `json:"submittedAt,omitempty"` // 首次提交审核的时间，计费只发生在这一刻
	ReviewedBy  *uint                            `json:"reviewedBy,omitempty"`
	ReviewNote  string                           `gorm:"type:text" json:"reviewNote,omitempty"`
	ReviewedAt  *time.Time                       `json:"reviewedAt,omitempty"`
	PublishedAt *time.Time                       `json:"publishedAt,omitempty"`
}

func (Blog) TableName() string {
	return "blogs"
}
