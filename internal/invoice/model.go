package invoice

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ashwin275/billing-api/internal/billing"
)

// Status is the invoice lifecycle state. Invoices are never deleted; a
// mistaken invoice is voided so the numbering sequence stays unbroken.
type Status string

const (
	StatusDraft  Status = "draft"
	StatusIssued Status = "issued"
	StatusVoid   Status = "void"
)

// Invoice is a stored invoice with its computed totals.
type Invoice struct {
	ID                 uuid.UUID        `json:"id"`
	ShopID             uuid.UUID        `json:"shop_id"`
	CustomerID         *uuid.UUID       `json:"customer_id,omitempty"`
	Number             string           `json:"number"`
	Status             Status           `json:"status"`
	SaleType           billing.SaleKind `json:"sale_type"`
	BillType           billing.BillKind `json:"bill_type"`
	PaymentMode        *string          `json:"payment_mode,omitempty"`
	PaymentStatus      string           `json:"payment_status"`
	Notes              *string          `json:"notes,omitempty"`
	Subtotal           decimal.Decimal  `json:"subtotal"`
	DiscountTotal      decimal.Decimal  `json:"discount_total"`
	AdditionalDiscount decimal.Decimal  `json:"additional_discount"`
	TaxableTotal       decimal.Decimal  `json:"taxable_total"`
	TaxTotal           decimal.Decimal  `json:"tax_total"`
	RoundOff           decimal.Decimal  `json:"round_off"`
	GrandTotal         decimal.Decimal  `json:"grand_total"`
	IssuedAt           *time.Time       `json:"issued_at,omitempty"`
	VoidedAt           *time.Time       `json:"voided_at,omitempty"`
	CreatedBy          *uuid.UUID       `json:"created_by,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
	Items              []Item           `json:"items,omitempty"`
}

// Item is one stored invoice line. ProductName, rate and tax rate are
// snapshots taken at pricing time so later catalog edits never change an
// invoice.
type Item struct {
	ID             uuid.UUID            `json:"id"`
	InvoiceID      uuid.UUID            `json:"invoice_id"`
	ProductID      *uuid.UUID           `json:"product_id,omitempty"`
	ProductName    string               `json:"product_name"`
	HSNCode        *string              `json:"hsn_code,omitempty"`
	Quantity       decimal.Decimal      `json:"quantity"`
	Unit           string               `json:"unit"`
	Rate           decimal.Decimal      `json:"rate"`
	DiscountKind   billing.DiscountKind `json:"discount_kind,omitempty"`
	DiscountValue  decimal.Decimal      `json:"discount_value"`
	DiscountAmount decimal.Decimal      `json:"discount_amount"`
	TaxableAmount  decimal.Decimal      `json:"taxable_amount"`
	TaxRate        decimal.Decimal      `json:"tax_rate"`
	TaxAmount      decimal.Decimal      `json:"tax_amount"`
	LineTotal      decimal.Decimal      `json:"line_total"`
	Position       int                  `json:"position"`
}

// ItemInput is one requested invoice line.
type ItemInput struct {
	ProductID     string  `json:"product_id" validate:"required,uuid"`
	Quantity      float64 `json:"quantity" validate:"gt=0"`
	DiscountValue float64 `json:"discount_value" validate:"gte=0"`
	DiscountKind  string  `json:"discount_kind" validate:"omitempty,oneof=PERCENTAGE AMOUNT"`
}

// CreateInput is the payload for creating a draft invoice.
type CreateInput struct {
	ShopID                  string      `json:"shop_id" validate:"required,uuid"`
	CustomerID              *string     `json:"customer_id" validate:"omitempty,uuid"`
	SaleType                string      `json:"sale_type" validate:"required,oneof=RETAIL WHOLESALE"`
	BillType                string      `json:"bill_type" validate:"required,oneof=GST NON_GST"`
	Items                   []ItemInput `json:"items" validate:"required,min=1,dive"`
	AdditionalDiscountValue float64     `json:"additional_discount_value" validate:"gte=0"`
	AdditionalDiscountKind  string      `json:"additional_discount_kind" validate:"omitempty,oneof=PERCENTAGE AMOUNT"`
	AutoRoundOff            bool        `json:"auto_round_off"`
	PaymentMode             *string     `json:"payment_mode" validate:"omitempty,max=32"`
	Notes                   *string     `json:"notes" validate:"omitempty,max=1000"`
}

// ListFilter narrows and orders invoice listings.
type ListFilter struct {
	ShopID     *uuid.UUID
	CustomerID *uuid.UUID
	Status     string
	From       *time.Time
	To         *time.Time
	Sort       string
	Order      string
	Limit      int
	Offset     int
}
