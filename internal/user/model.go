package user

import (
	"time"

	"github.com/google/uuid"
)

// Roles understood by the authorization middleware.
const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

// User is a console account. PasswordHash never leaves the service layer.
type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        *string   `json:"phone,omitempty"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CreateInput is the payload for registering a user.
type CreateInput struct {
	Name     string  `json:"name" validate:"required,min=1,max=200"`
	Email    string  `json:"email" validate:"required,email"`
	Phone    *string `json:"phone" validate:"omitempty,min=4,max=20"`
	Password string  `json:"password" validate:"required,min=8,max=128"`
	Role     string  `json:"role" validate:"required,oneof=admin staff"`
}

// UpdateInput is the payload for editing a user. Nil fields are left
// unchanged.
type UpdateInput struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=200"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Phone    *string `json:"phone" validate:"omitempty,min=4,max=20"`
	Password *string `json:"password" validate:"omitempty,min=8,max=128"`
	Role     *string `json:"role" validate:"omitempty,oneof=admin staff"`
	Active   *bool   `json:"active"`
}

// ListFilter narrows and orders user listings.
type ListFilter struct {
	Search string
	Role   string
	Sort   string
	Order  string
	Limit  int
	Offset int
}
