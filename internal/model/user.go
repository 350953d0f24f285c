package model

import (
	"time"
)

type UserRole string

const (
	RoleUser       UserRole = "user"
	RoleInstructor UserRole = "instructor"
	RoleAdmin      UserRole = "admin"
)

func (r UserRole) Valid() bool {
	switch r {
	case RoleUser, RoleInstructor, RoleAdmin:
		return true
	}
	return false
}

// swagger:model User
type User struct {
	BaseModel
	Name      string     `gorm:"size:100;not null" json:"name"`
	Email     string     `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Password  string     `gorm:"size:100;not null" json:"-"`
	Role      UserRole   `gorm:"size:20;default:'user'" json:"role"`
	Points    int        `gorm:"not null;default:0" json:"points"` // 物化余额，真实来源是 point_events
	Disabled  bool       `gorm:"default:false" json:"disabled"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
}

func (User) TableName() string {
	return "users"
}
