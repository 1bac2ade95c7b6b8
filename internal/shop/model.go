package shop

import (
	"time"

	"github.com/google/uuid"
)

// Shop is a billing location. Each shop owns its own invoice number
// sequence.
type Shop struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Address       *string   `json:"address,omitempty"`
	Phone         *string   `json:"phone,omitempty"`
	Email         *string   `json:"email,omitempty"`
	GSTIN         *string   `json:"gstin,omitempty"`
	State         *string   `json:"state,omitempty"`
	InvoicePrefix string    `json:"invoice_prefix"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CreateInput is the payload for registering a shop.
type CreateInput struct {
	Name          string  `json:"name" validate:"required,min=1,max=200"`
	Address       *string `json:"address" validate:"omitempty,max=500"`
	Phone         *string `json:"phone" validate:"omitempty,min=4,max=20"`
	Email         *string `json:"email" validate:"omitempty,email"`
	GSTIN         *string `json:"gstin" validate:"omitempty,len=15"`
	State         *string `json:"state" validate:"omitempty,max=64"`
	InvoicePrefix *string `json:"invoice_prefix" validate:"omitempty,min=1,max=8"`
}

// UpdateInput is the payload for editing a shop. Nil fields are left
// unchanged.
type UpdateInput struct {
	Name          *string `json:"name" validate:"omitempty,min=1,max=200"`
	Address       *string `json:"address" validate:"omitempty,max=500"`
	Phone         *string `json:"phone" validate:"omitempty,min=4,max=20"`
	Email         *string `json:"email" validate:"omitempty,email"`
	GSTIN         *string `json:"gstin" validate:"omitempty,len=15"`
	State         *string `json:"state" validate:"omitempty,max=64"`
	InvoicePrefix *string `json:"invoice_prefix" validate:"omitempty,min=1,max=8"`
}

// ListFilter narrows and orders shop listings.
type ListFilter struct {
	Search string
	Sort   string
	Order  string
	Limit  int
	Offset int
}
