package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// User is a login identity. Business data never hangs off a user directly;
// it belongs to an Organization the user is a member of.
type User struct {
	gorm.Model
	Email        string `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string `json:"-" gorm:"not null"`
	FullName     string `json:"fullName"`
	Status       string `json:"status" gorm:"default:'active'"`
}

// Profile carries per-user preferences. Exactly one row exists per user.
type Profile struct {
	ID                    uint      `json:"id" gorm:"primaryKey"`
	UserID                uint      `json:"userId" gorm:"uniqueIndex;not null"`
	DisplayName           string    `json:"displayName"`
	Phone                 string    `json:"phone"`
	DefaultOrganizationID uint      `json:"defaultOrganizationId"`
	CreatedAt             time.Time `json:"createdAt"`
	UpdatedAt             time.Time `json:"updatedAt"`
}

// UserResponse is the public shape of a user.
type UserResponse struct {
	ID       uint   `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Status   string `json:"status"`
}

func (u User) Response() UserResponse {
	return UserResponse{ID: u.ID, Email: u.Email, FullName: u.FullName, Status: u.Status}
}
