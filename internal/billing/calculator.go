// Package billing implements the invoice pricing arithmetic. Everything in
// this package is pure: same inputs produce the same priced breakdown, with
// no I/O and no dependence on clock or locale.
package billing

import "github.com/shopspring/decimal"

// SaleKind selects which product rate prices a line.
type SaleKind string

// BillKind controls whether GST applies to the invoice.
type BillKind string

// DiscountKind distinguishes percentage discounts from flat amounts.
type DiscountKind string

const (
	SaleRetail    SaleKind = "RETAIL"
	SaleWholesale SaleKind = "WHOLESALE"

	BillGST    BillKind = "GST"
	BillNonGST BillKind = "NON_GST"

	DiscountPercentage DiscountKind = "PERCENTAGE"
	DiscountAmount     DiscountKind = "AMOUNT"
)

// LineItem is one invoice line as entered by the user, already passed
// through the Amount/Quantity parsing boundary.
type LineItem struct {
	ProductID     string
	Quantity      decimal.Decimal
	DiscountValue decimal.Decimal
	DiscountKind  DiscountKind
}

// ProductPricing is the catalog snapshot a line resolves against.
type ProductPricing struct {
	ID            string
	Name          string
	HSNCode       string
	Unit          string
	RetailRate    decimal.Decimal
	WholesaleRate decimal.Decimal
	CGSTPercent   decimal.Decimal
	SGSTPercent   decimal.Decimal
}

// Settings are the invoice-level knobs that apply across all lines.
type Settings struct {
	SaleKind                SaleKind
	BillKind                BillKind
	AdditionalDiscountValue decimal.Decimal
	AdditionalDiscountKind  DiscountKind
	AutoRoundOff            bool
}

// PricedLineItem is the fully priced form of a line item. It is never
// mutated after Compute returns it.
type PricedLineItem struct {
	ProductID      string
	ProductName    string
	HSNCode        string
	Unit           string
	Quantity       decimal.Decimal
	UnitPrice      decimal.Decimal
	ItemSubtotal   decimal.Decimal
	DiscountKind   DiscountKind
	DiscountValue  decimal.Decimal
	DiscountAmount decimal.Decimal
	LineTotal      decimal.Decimal
	CGSTRate       decimal.Decimal
	SGSTRate       decimal.Decimal
	CGSTAmount     decimal.Decimal
	SGSTAmount     decimal.Decimal
	TaxAmount      decimal.Decimal
	TotalPrice     decimal.Decimal
}

// Totals aggregates the priced lines into invoice-level figures.
type Totals struct {
	ItemsBeforeDiscount      decimal.Decimal
	ItemDiscounts            decimal.Decimal
	Subtotal                 decimal.Decimal
	TotalTax                 decimal.Decimal
	AdditionalDiscountAmount decimal.Decimal
	RoundOff                 decimal.Decimal
	GrandTotal               decimal.Decimal
}

// Result pairs the ordered priced lines with the aggregate totals.
type Result struct {
	Lines  []PricedLineItem
	Totals Totals
}

// Compute prices every line item against the catalog and settings and
// aggregates the invoice totals.
//
// Lines whose ProductID has no catalog entry are dropped without error;
// callers that consider an unresolved reference a failure must check the
// catalog before calling. An AMOUNT discount is a flat deduction per line,
// not per unit, while a PERCENTAGE discount scales with the line subtotal.
// A discount larger than the subtotal leaves the line total negative.
func Compute(items []LineItem, catalog []ProductPricing, settings Settings) Result {
	byID := make(map[string]ProductPricing, len(catalog))
	for _, p := range catalog {
		byID[p.ID] = p
	}

	lines := make([]PricedLineItem, 0, len(items))
	totals := Totals{
		ItemsBeforeDiscount:      decimal.Zero,
		ItemDiscounts:            decimal.Zero,
		Subtotal:                 decimal.Zero,
		TotalTax:                 decimal.Zero,
		AdditionalDiscountAmount: decimal.Zero,
		RoundOff:                 decimal.Zero,
		GrandTotal:               decimal.Zero,
	}

	for _, item := range items {
		product, ok := byID[item.ProductID]
		if !ok {
			continue
		}

		unitPrice := product.RetailRate
		if settings.SaleKind == SaleWholesale {
			unitPrice = product.WholesaleRate
		}
		itemSubtotal := unitPrice.Mul(item.Quantity)

		discountAmount := item.DiscountValue
		if item.DiscountKind == DiscountPercentage {
			discountAmount = itemSubtotal.Mul(item.DiscountValue).Shift(-2)
		}
		lineTotal := itemSubtotal.Sub(discountAmount)

		cgstRate := decimal.Zero
		sgstRate := decimal.Zero
		if settings.BillKind == BillGST {
			cgstRate = product.CGSTPercent
			sgstRate = product.SGSTPercent
		}
		cgstAmount := lineTotal.Mul(cgstRate).Shift(-2)
		sgstAmount := lineTotal.Mul(sgstRate).Shift(-2)
		taxAmount := cgstAmount.Add(sgstAmount)

		lines = append(lines, PricedLineItem{
			ProductID:      product.ID,
			ProductName:    product.Name,
			HSNCode:        product.HSNCode,
			Unit:           product.Unit,
			Quantity:       item.Quantity,
			UnitPrice:      unitPrice,
			ItemSubtotal:   itemSubtotal,
			DiscountKind:   item.DiscountKind,
			DiscountValue:  item.DiscountValue,
			DiscountAmount: discountAmount,
			LineTotal:      lineTotal,
			CGSTRate:       cgstRate,
			SGSTRate:       sgstRate,
			CGSTAmount:     cgstAmount,
			SGSTAmount:     sgstAmount,
			TaxAmount:      taxAmount,
			TotalPrice:     lineTotal.Add(taxAmount),
		})

		totals.ItemsBeforeDiscount = totals.ItemsBeforeDiscount.Add(itemSubtotal)
		totals.ItemDiscounts = totals.ItemDiscounts.Add(discountAmount)
		totals.Subtotal = totals.Subtotal.Add(lineTotal)
		totals.TotalTax = totals.TotalTax.Add(taxAmount)
	}

	if settings.AdditionalDiscountValue.IsPositive() {
		if settings.AdditionalDiscountKind == DiscountPercentage {
			totals.AdditionalDiscountAmount = totals.Subtotal.Mul(settings.AdditionalDiscountValue).Shift(-2)
		} else {
			totals.AdditionalDiscountAmount = settings.AdditionalDiscountValue
		}
	}

	grand := totals.Subtotal.Sub(totals.AdditionalDiscountAmount).Add(totals.TotalTax)
	if settings.AutoRoundOff {
		rounded := grand.RoundBank(0)
		totals.RoundOff = rounded.Sub(grand)
		grand = rounded
	}
	totals.GrandTotal = grand

	return Result{Lines: lines, Totals: totals}
}
