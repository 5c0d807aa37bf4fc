package models

import (
	"time"
)

type UserRole string

const (
	RoleDriver  UserRole = "driver"
	RoleLoader  UserRole = "loader"
	RoleManager UserRole = "manager"
	RoleAdmin   UserRole = "admin"
)

type User struct {
	ID        string   `json:"id" gorm:"primaryKey;size:36"`
	Name      string   `json:"name" gorm:"size:100;not null"`
	Email     string   `json:"email" gorm:"size:255;uniqueIndex" validate:"omitempty,email"`
	Role      UserRole `json:"role" gorm:"size:20;default:driver" validate:"omitempty,user_role"`
	CompanyID string   `json:"company_id" gorm:"size:36;index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CanCompleteAssessments is the capability gate for entering the mobile flow.
func (u *User) CanCompleteAssessments() bool {
	switch u.Role {
	case RoleDriver, RoleLoader, RoleAdmin:
		return true
	}
	return false
}

// CanReviewOverrides reports whether the user may approve or deny overrides.
func (u *User) CanReviewOverrides() bool {
	return u.Role == RoleManager || u.Role == RoleAdmin
}

func (User) TableName() string {
	return "users"
}
