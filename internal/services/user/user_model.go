package user

import (
	"strings"
	"time"
)

type User struct {
	ID           string    `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	DisplayName  *string   `db:"display_name" json:"displayName"`
	IsAdmin      bool      `db:"is_admin" json:"isAdmin"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// RegisterRequest captures payload for creating an account
type RegisterRequest struct {
	Username    string  `json:"username" validate:"required,min=3,max=32,username"`
	Password    string  `json:"password" validate:"required,min=12,max=128"`
	DisplayName *string `json:"displayName,omitempty" validate:"omitempty,min=1,max=120"`
}

// LoginRequest captures payload for password login
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ChangePasswordRequest captures payload for the change-password flow
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=12,max=128"`
}

// NormalizeUsername trims and lowercases a username.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
