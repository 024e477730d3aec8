package models

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string

const (
	RoleStudent  UserRole = "Student"
	RoleStaff    UserRole = "Staff"
	RoleDeptHead UserRole = "Dept Head"
	RoleAdmin    UserRole = "Admin"
)

// IsLearner reports whether the role is subject to progression gating and
// attempt recording. Every other role gets preview-only evaluation.
func (r UserRole) IsLearner() bool {
	return r == RoleStudent
}

type User struct {
	ID       string   `json:"id" gorm:"primaryKey;size:255"`
	FullName string   `json:"full_name" gorm:"not null;size:100"`
	Email    string   `json:"email" gorm:"uniqueIndex;not null;size:255"`
	Role     UserRole `json:"role" gorm:"not null;size:20;index"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (User) TableName() string {
	return "users"
}

// Principal is the authenticated identity the routing layer resolves before the
// engine runs. Session issuance lives outside this service; we only consume it.
type Principal struct {
	UserID string   `json:"user_id"`
	Role   UserRole `json:"role"`
}
