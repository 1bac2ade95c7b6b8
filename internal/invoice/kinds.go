package invoice

import "github.com/ashwin275/billing-api/internal/billing"

func saleKind(s string) billing.SaleKind {
	if s == string(billing.SaleWholesale) {
		return billing.SaleWholesale
	}
	return billing.SaleRetail
}

func billKind(s string) billing.BillKind {
	if s == string(billing.BillNonGST) {
		return billing.BillNonGST
	}
	return billing.BillGST
}

func discountKind(s string) billing.DiscountKind {
	if s == string(billing.DiscountPercentage) {
		return billing.DiscountPercentage
	}
	return billing.DiscountAmount
}
