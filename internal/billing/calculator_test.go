package billing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func gstSettings() Settings {
	return Settings{SaleKind: SaleRetail, BillKind: BillGST}
}

func TestComputeEmptyItems(t *testing.T) {
	res := Compute(nil, nil, gstSettings())

	require.Empty(t, res.Lines)
	require.True(t, res.Totals.Subtotal.IsZero())
	require.True(t, res.Totals.TotalTax.IsZero())
	require.True(t, res.Totals.GrandTotal.IsZero())
}

func TestComputePercentageDiscountScalesWithSubtotal(t *testing.T) {
	catalog := []ProductPricing{{ID: "p1", RetailRate: dec("100")}}
	items := []LineItem{{ProductID: "p1", Quantity: dec("3"), DiscountValue: dec("10"), DiscountKind: DiscountPercentage}}

	res := Compute(items, catalog, gstSettings())

	require.Len(t, res.Lines, 1)
	line := res.Lines[0]
	require.True(t, line.ItemSubtotal.Equal(dec("300")), "subtotal = %s", line.ItemSubtotal)
	require.True(t, line.DiscountAmount.Equal(dec("30")), "discount = %s", line.DiscountAmount)
	require.True(t, line.LineTotal.Equal(dec("270")), "line total = %s", line.LineTotal)
}

func TestComputeAmountDiscountIsFlatPerLine(t *testing.T) {
	catalog := []ProductPricing{{ID: "p1", RetailRate: dec("50")}}
	items := []LineItem{{ProductID: "p1", Quantity: dec("5"), DiscountValue: dec("20"), DiscountKind: DiscountAmount}}

	res := Compute(items, catalog, gstSettings())

	require.Len(t, res.Lines, 1)
	line := res.Lines[0]
	require.True(t, line.ItemSubtotal.Equal(dec("250")))
	require.True(t, line.DiscountAmount.Equal(dec("20")), "flat discount must not multiply by quantity, got %s", line.DiscountAmount)
	require.True(t, line.LineTotal.Equal(dec("230")))
}

func TestComputeNonGSTBillZeroesTax(t *testing.T) {
	catalog := []ProductPricing{{ID: "p1", RetailRate: dec("100"), CGSTPercent: dec("9"), SGSTPercent: dec("9")}}
	items := []LineItem{{ProductID: "p1", Quantity: dec("1")}}

	res := Compute(items, catalog, Settings{SaleKind: SaleRetail, BillKind: BillNonGST})

	require.Len(t, res.Lines, 1)
	require.True(t, res.Lines[0].TaxAmount.IsZero())
	require.True(t, res.Totals.TotalTax.IsZero())
	require.True(t, res.Totals.GrandTotal.Equal(dec("100")))
}

func TestComputeWholesaleUsesWholesaleRate(t *testing.T) {
	catalog := []ProductPricing{{ID: "p1", RetailRate: dec("100"), WholesaleRate: dec("80")}}
	items := []LineItem{{ProductID: "p1", Quantity: dec("2")}}

	res := Compute(items, catalog, Settings{SaleKind: SaleWholesale, BillKind: BillNonGST})

	require.True(t, res.Lines[0].UnitPrice.Equal(dec("80")))
	require.True(t, res.Lines[0].ItemSubtotal.Equal(dec("160")))
}

func TestComputeAutoRoundOff(t *testing.T) {
	catalog := []ProductPricing{{ID: "p1", RetailRate: dec("123.456")}}
	items := []LineItem{{ProductID: "p1", Quantity: dec("1")}}

	off := Compute(items, catalog, Settings{SaleKind: SaleRetail, BillKind: BillNonGST})
	require.True(t, off.Totals.GrandTotal.Equal(dec("123.456")))
	require.True(t, off.Totals.RoundOff.IsZero())

	on := Compute(items, catalog, Settings{SaleKind: SaleRetail, BillKind: BillNonGST, AutoRoundOff: true})
	require.True(t, on.Totals.GrandTotal.Equal(dec("123")), "grand total = %s", on.Totals.GrandTotal)
	require.True(t, on.Totals.RoundOff.Equal(dec("-0.456")))
}

func TestComputeRoundOffHalfToEven(t *testing.T) {
	catalog := []ProductPricing{
		{ID: "half-up-even", RetailRate: dec("122.5")},
		{ID: "half-up-odd", RetailRate: dec("123.5")},
	}
	settings := Settings{SaleKind: SaleRetail, BillKind: BillNonGST, AutoRoundOff: true}

	even := Compute([]LineItem{{ProductID: "half-up-even", Quantity: dec("1")}}, catalog, settings)
	require.True(t, even.Totals.GrandTotal.Equal(dec("122")), "122.5 rounds to even 122, got %s", even.Totals.GrandTotal)

	odd := Compute([]LineItem{{ProductID: "half-up-odd", Quantity: dec("1")}}, catalog, settings)
	require.True(t, odd.Totals.GrandTotal.Equal(dec("124")), "123.5 rounds to even 124, got %s", odd.Totals.GrandTotal)
}

func TestComputeDropsUnresolvedProductReferences(t *testing.T) {
	catalog := []ProductPricing{{ID: "known", RetailRate: dec("10")}}
	items := []LineItem{
		{ProductID: "known", Quantity: dec("1")},
		{ProductID: "missing", Quantity: dec("4")},
	}

	res := Compute(items, catalog, Settings{SaleKind: SaleRetail, BillKind: BillNonGST})

	require.Len(t, res.Lines, 1)
	require.Equal(t, "known", res.Lines[0].ProductID)
	require.True(t, res.Totals.GrandTotal.Equal(dec("10")))
}

func TestComputeDiscountMayExceedSubtotal(t *testing.T) {
	catalog := []ProductPricing{{ID: "p1", RetailRate: dec("10")}}
	items := []LineItem{{ProductID: "p1", Quantity: dec("1"), DiscountValue: dec("25"), DiscountKind: DiscountAmount}}

	res := Compute(items, catalog, Settings{SaleKind: SaleRetail, BillKind: BillNonGST})

	require.True(t, res.Lines[0].LineTotal.Equal(dec("-15")), "line total is not floored at zero")
	require.True(t, res.Totals.GrandTotal.Equal(dec("-15")))
}

func TestComputeAdditionalDiscount(t *testing.T) {
	catalog := []ProductPricing{{ID: "p1", RetailRate: dec("100")}}
	items := []LineItem{{ProductID: "p1", Quantity: dec("2")}}

	pct := Compute(items, catalog, Settings{
		SaleKind:                SaleRetail,
		BillKind:                BillNonGST,
		AdditionalDiscountValue: dec("10"),
		AdditionalDiscountKind:  DiscountPercentage,
	})
	require.True(t, pct.Totals.AdditionalDiscountAmount.Equal(dec("20")))
	require.True(t, pct.Totals.GrandTotal.Equal(dec("180")))

	flat := Compute(items, catalog, Settings{
		SaleKind:                SaleRetail,
		BillKind:                BillNonGST,
		AdditionalDiscountValue: dec("15"),
		AdditionalDiscountKind:  DiscountAmount,
	})
	require.True(t, flat.Totals.AdditionalDiscountAmount.Equal(dec("15")))
	require.True(t, flat.Totals.GrandTotal.Equal(dec("185")))

	zero := Compute(items, catalog, Settings{
		SaleKind:               SaleRetail,
		BillKind:               BillNonGST,
		AdditionalDiscountKind: DiscountAmount,
	})
	require.True(t, zero.Totals.AdditionalDiscountAmount.IsZero())
}

func TestComputeIdempotent(t *testing.T) {
	catalog := []ProductPricing{{ID: "p1", RetailRate: dec("99.99"), CGSTPercent: dec("6"), SGSTPercent: dec("6")}}
	items := []LineItem{{ProductID: "p1", Quantity: dec("7"), DiscountValue: dec("3.5"), DiscountKind: DiscountPercentage}}
	settings := Settings{SaleKind: SaleRetail, BillKind: BillGST, AutoRoundOff: true}

	first := Compute(items, catalog, settings)
	second := Compute(items, catalog, settings)

	require.Equal(t, len(first.Lines), len(second.Lines))
	for i := range first.Lines {
		require.True(t, first.Lines[i].TotalPrice.Equal(second.Lines[i].TotalPrice))
	}
	require.True(t, first.Totals.GrandTotal.Equal(second.Totals.GrandTotal))
	require.True(t, first.Totals.RoundOff.Equal(second.Totals.RoundOff))
}

func TestComputeEndToEndTwoItems(t *testing.T) {
	catalog := []ProductPricing{
		{ID: "a", Name: "Item A", RetailRate: dec("100"), CGSTPercent: dec("9"), SGSTPercent: dec("9")},
		{ID: "b", Name: "Item B", RetailRate: dec("50"), CGSTPercent: dec("5"), SGSTPercent: dec("5")},
	}
	items := []LineItem{
		{ProductID: "a", Quantity: dec("2"), DiscountValue: dec("10"), DiscountKind: DiscountPercentage},
		{ProductID: "b", Quantity: dec("1"), DiscountValue: dec("5"), DiscountKind: DiscountAmount},
	}

	res := Compute(items, catalog, gstSettings())

	require.Len(t, res.Lines, 2)

	a := res.Lines[0]
	require.True(t, a.ItemSubtotal.Equal(dec("200")))
	require.True(t, a.DiscountAmount.Equal(dec("20")))
	require.True(t, a.LineTotal.Equal(dec("180")))
	require.True(t, a.TaxAmount.Equal(dec("32.4")), "tax = %s", a.TaxAmount)
	require.True(t, a.TotalPrice.Equal(dec("212.4")))

	b := res.Lines[1]
	require.True(t, b.ItemSubtotal.Equal(dec("50")))
	require.True(t, b.DiscountAmount.Equal(dec("5")))
	require.True(t, b.LineTotal.Equal(dec("45")))
	require.True(t, b.TaxAmount.Equal(dec("4.5")))
	require.True(t, b.TotalPrice.Equal(dec("49.5")))

	require.True(t, res.Totals.ItemsBeforeDiscount.Equal(dec("250")))
	require.True(t, res.Totals.ItemDiscounts.Equal(dec("25")))
	require.True(t, res.Totals.Subtotal.Equal(dec("225")))
	require.True(t, res.Totals.TotalTax.Equal(dec("36.9")))
	require.True(t, res.Totals.GrandTotal.Equal(dec("261.9")))
}
