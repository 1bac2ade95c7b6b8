package customer

import (
	"time"

	"github.com/google/uuid"
)

// Customer is a billing customer belonging to a shop.
type Customer struct {
	ID        uuid.UUID `json:"id"`
	ShopID    uuid.UUID `json:"shop_id"`
	Name      string    `json:"name"`
	Phone     *string   `json:"phone,omitempty"`
	Email     *string   `json:"email,omitempty"`
	Address   *string   `json:"address,omitempty"`
	GSTIN     *string   `json:"gstin,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateInput is the payload for registering a customer.
type CreateInput struct {
	ShopID  string  `json:"shop_id" validate:"required,uuid"`
	Name    string  `json:"name" validate:"required,min=1,max=200"`
	Phone   *string `json:"phone" validate:"omitempty,min=4,max=20"`
	Email   *string `json:"email" validate:"omitempty,email"`
	Address *string `json:"address" validate:"omitempty,max=500"`
	GSTIN   *string `json:"gstin" validate:"omitempty,len=15"`
}

// UpdateInput is the payload for editing a customer. Nil fields are left
// unchanged.
type UpdateInput struct {
	Name    *string `json:"name" validate:"omitempty,min=1,max=200"`
	Phone   *string `json:"phone" validate:"omitempty,min=4,max=20"`
	Email   *string `json:"email" validate:"omitempty,email"`
	Address *string `json:"address" validate:"omitempty,max=500"`
	GSTIN   *string `json:"gstin" validate:"omitempty,len=15"`
}

// ListFilter narrows and orders customer listings.
type ListFilter struct {
	ShopID *uuid.UUID
	Search string
	Sort   string
	Order  string
	Limit  int
	Offset int
}
