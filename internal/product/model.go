package product

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ashwin275/billing-api/internal/billing"
)

// Product is a catalog entry owned by a shop. TaxRate is the total GST
// percentage; CGST and SGST each take half of it.
type Product struct {
	ID            uuid.UUID       `json:"id"`
	ShopID        uuid.UUID       `json:"shop_id"`
	Name          string          `json:"name"`
	SKU           *string         `json:"sku,omitempty"`
	HSNCode       *string         `json:"hsn_code,omitempty"`
	Description   *string         `json:"description,omitempty"`
	RetailRate    decimal.Decimal `json:"retail_rate"`
	WholesaleRate decimal.Decimal `json:"wholesale_rate"`
	PurchaseRate  decimal.Decimal `json:"purchase_rate"`
	TaxRate       decimal.Decimal `json:"tax_rate"`
	CessRate      decimal.Decimal `json:"cess_rate"`
	StockQuantity decimal.Decimal `json:"stock_quantity"`
	Unit          string          `json:"unit"`
	Active        bool            `json:"active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Pricing projects the product into the shape the invoice calculator consumes.
func (p Product) Pricing() billing.ProductPricing {
	half := p.TaxRate.Div(decimal.NewFromInt(2))
	hsn := ""
	if p.HSNCode != nil {
		hsn = *p.HSNCode
	}
	return billing.ProductPricing{
		ID:            p.ID.String(),
		Name:          p.Name,
		HSNCode:       hsn,
		Unit:          p.Unit,
		RetailRate:    p.RetailRate,
		WholesaleRate: p.WholesaleRate,
		CGSTPercent:   half,
		SGSTPercent:   half,
	}
}

// CreateInput is the payload for adding a product.
type CreateInput struct {
	ShopID        string  `json:"shop_id" validate:"required,uuid"`
	Name          string  `json:"name" validate:"required,min=1,max=200"`
	SKU           *string `json:"sku" validate:"omitempty,max=64"`
	HSNCode       *string `json:"hsn_code" validate:"omitempty,max=10"`
	Description   *string `json:"description" validate:"omitempty,max=1000"`
	RetailRate    float64 `json:"retail_rate" validate:"gte=0"`
	WholesaleRate float64 `json:"wholesale_rate" validate:"gte=0"`
	PurchaseRate  float64 `json:"purchase_rate" validate:"gte=0"`
	TaxRate       float64 `json:"tax_rate" validate:"gte=0,lte=100"`
	CessRate      float64 `json:"cess_rate" validate:"gte=0,lte=100"`
	StockQuantity float64 `json:"stock_quantity" validate:"gte=0"`
	Unit          string  `json:"unit" validate:"omitempty,max=16"`
}

// UpdateInput is the payload for editing a product. Nil fields are left
// unchanged.
type UpdateInput struct {
	Name          *string  `json:"name" validate:"omitempty,min=1,max=200"`
	SKU           *string  `json:"sku" validate:"omitempty,max=64"`
	HSNCode       *string  `json:"hsn_code" validate:"omitempty,max=10"`
	Description   *string  `json:"description" validate:"omitempty,max=1000"`
	RetailRate    *float64 `json:"retail_rate" validate:"omitempty,gte=0"`
	WholesaleRate *float64 `json:"wholesale_rate" validate:"omitempty,gte=0"`
	PurchaseRate  *float64 `json:"purchase_rate" validate:"omitempty,gte=0"`
	TaxRate       *float64 `json:"tax_rate" validate:"omitempty,gte=0,lte=100"`
	CessRate      *float64 `json:"cess_rate" validate:"omitempty,gte=0,lte=100"`
	StockQuantity *float64 `json:"stock_quantity" validate:"omitempty,gte=0"`
	Unit          *string  `json:"unit" validate:"omitempty,max=16"`
	Active        *bool    `json:"active"`
}

// ListFilter narrows and orders product listings.
type ListFilter struct {
	ShopID     *uuid.UUID
	Search     string
	ActiveOnly bool
	Sort       string
	Order      string
	Limit      int
	Offset     int
}
