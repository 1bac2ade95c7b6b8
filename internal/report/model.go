package report

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Range bounds a report query. From is inclusive, To exclusive.
type Range struct {
	ShopID *uuid.UUID
	From   time.Time
	To     time.Time
}

// Overview is the dashboard headline block.
type Overview struct {
	InvoiceCount  int             `json:"invoice_count"`
	CustomerCount int             `json:"customer_count"`
	SalesTotal    decimal.Decimal `json:"sales_total"`
	TaxTotal      decimal.Decimal `json:"tax_total"`
	AvgInvoice    decimal.Decimal `json:"avg_invoice"`
	UnpaidTotal   decimal.Decimal `json:"unpaid_total"`
}

// SalesByDay is one row of the daily sales summary. GrossTotal is the
// item value before any discount; SalesTotal is the invoiced grand total.
type SalesByDay struct {
	Day           time.Time       `json:"day"`
	Invoices      int             `json:"invoices"`
	GrossTotal    decimal.Decimal `json:"gross_total"`
	DiscountTotal decimal.Decimal `json:"discount_total"`
	TaxTotal      decimal.Decimal `json:"tax_total"`
	SalesTotal    decimal.Decimal `json:"sales_total"`
}

// TopProduct is one row of the best-sellers report.
type TopProduct struct {
	ProductID   *uuid.UUID      `json:"product_id,omitempty"`
	ProductName string          `json:"product_name"`
	Quantity    decimal.Decimal `json:"quantity"`
	SalesTotal  decimal.Decimal `json:"sales_total"`
}

// TopCustomer is one row of the top-customers report.
type TopCustomer struct {
	CustomerID   uuid.UUID       `json:"customer_id"`
	CustomerName string          `json:"customer_name"`
	Invoices     int             `json:"invoices"`
	SalesTotal   decimal.Decimal `json:"sales_total"`
}

// TaxBracket is one row of the GST summary, grouped by tax rate.
type TaxBracket struct {
	TaxRate       decimal.Decimal `json:"tax_rate"`
	TaxableAmount decimal.Decimal `json:"taxable_amount"`
	CGSTAmount    decimal.Decimal `json:"cgst_amount"`
	SGSTAmount    decimal.Decimal `json:"sgst_amount"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
}
