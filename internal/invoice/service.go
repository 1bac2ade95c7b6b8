package invoice

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ashwin275/billing-api/internal/billing"
	"github.com/ashwin275/billing-api/internal/common"
	"github.com/ashwin275/billing-api/internal/events"
)

// Store is the persistence surface the service depends on.
type Store interface {
	Create(ctx context.Context, inv Invoice) (Invoice, error)
	ReplaceDraft(ctx context.Context, inv Invoice) (Invoice, error)
	GetByID(ctx context.Context, id uuid.UUID) (Invoice, error)
	List(ctx context.Context, f ListFilter) ([]Invoice, int, error)
	MarkIssued(ctx context.Context, id uuid.UUID) (Invoice, error)
	MarkVoid(ctx context.Context, id uuid.UUID) (Invoice, error)
	MarkPaid(ctx context.Context, id uuid.UUID, mode string) (Invoice, error)
}

// Catalog loads pricing snapshots for the requested product ids. Products
// that do not exist are absent from the result.
type Catalog interface {
	Catalog(ctx context.Context, ids []uuid.UUID) ([]billing.ProductPricing, error)
}

// Stock adjusts product stock when invoices are issued or voided.
type Stock interface {
	AdjustStock(ctx context.Context, id uuid.UUID, delta decimal.Decimal) error
}

// Enqueuer schedules background delivery of issued invoices.
type Enqueuer interface {
	EnqueueInvoiceEmail(ctx context.Context, invoiceID string) error
}

// Service implements the invoice workflow: price, persist, issue, void.
type Service struct {
	Store    Store
	Products Catalog
	Stock    Stock
	Bus      *events.Bus
	Jobs     Enqueuer
	Logger   zerolog.Logger
}

// Create validates the request, prices it against the current catalog and
// persists a draft. Unlike the pricing function, which drops unresolved
// product references, the API rejects them so a typo cannot silently
// shrink an invoice.
func (s *Service) Create(ctx context.Context, in CreateInput, createdBy *uuid.UUID) (Invoice, error) {
	inv, err := s.price(ctx, in)
	if err != nil {
		return Invoice{}, err
	}
	inv.CreatedBy = createdBy

	stored, err := s.Store.Create(ctx, inv)
	if err != nil {
		return Invoice{}, mapRepoError(err)
	}
	if s.Bus != nil {
		s.Bus.Publish(ctx, events.TopicInvoiceCreated, stored.ID.String(), map[string]any{
			"shop_id":     stored.ShopID.String(),
			"number":      stored.Number,
			"grand_total": stored.GrandTotal.String(),
		})
	}
	s.Logger.Info().Str("invoice_id", stored.ID.String()).Str("number", stored.Number).Msg("invoice created")
	return stored, nil
}

// Update reprices a draft invoice from scratch. Totals are never patched
// in place.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in CreateInput) (Invoice, error) {
	inv, err := s.price(ctx, in)
	if err != nil {
		return Invoice{}, err
	}
	inv.ID = id

	stored, err := s.Store.ReplaceDraft(ctx, inv)
	if err != nil {
		return Invoice{}, mapRepoError(err)
	}
	return stored, nil
}

// Get fetches an invoice with its items.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Invoice, error) {
	inv, err := s.Store.GetByID(ctx, id)
	if err != nil {
		return Invoice{}, mapRepoError(err)
	}
	return inv, nil
}

// List returns a page of invoices and the total count.
func (s *Service) List(ctx context.Context, f ListFilter) ([]Invoice, int, error) {
	out, total, err := s.Store.List(ctx, f)
	if err != nil {
		return nil, 0, mapRepoError(err)
	}
	return out, total, nil
}

// Issue finalizes a draft: stock is decremented, the event is emitted and
// email delivery is scheduled.
func (s *Service) Issue(ctx context.Context, id uuid.UUID) (Invoice, error) {
	inv, err := s.Store.MarkIssued(ctx, id)
	if err != nil {
		return Invoice{}, mapRepoError(err)
	}
	full, err := s.Store.GetByID(ctx, id)
	if err != nil {
		return Invoice{}, mapRepoError(err)
	}
	if s.Stock != nil {
		for _, it := range full.Items {
			if it.ProductID == nil {
				continue
			}
			if err := s.Stock.AdjustStock(ctx, *it.ProductID, it.Quantity.Neg()); err != nil {
				s.Logger.Error().Err(err).Str("product_id", it.ProductID.String()).Msg("decrement stock")
			}
		}
	}
	if s.Bus != nil {
		s.Bus.Publish(ctx, events.TopicInvoiceIssued, inv.ID.String(), map[string]any{
			"shop_id": inv.ShopID.String(),
			"number":  inv.Number,
		})
	}
	if s.Jobs != nil {
		if err := s.Jobs.EnqueueInvoiceEmail(ctx, inv.ID.String()); err != nil {
			s.Logger.Error().Err(err).Str("invoice_id", inv.ID.String()).Msg("enqueue invoice email")
		}
	}
	return full, nil
}

// Void cancels an invoice. Stock consumed by an issued invoice is restored.
func (s *Service) Void(ctx context.Context, id uuid.UUID) (Invoice, error) {
	before, err := s.Store.GetByID(ctx, id)
	if err != nil {
		return Invoice{}, mapRepoError(err)
	}
	inv, err := s.Store.MarkVoid(ctx, id)
	if err != nil {
		return Invoice{}, mapRepoError(err)
	}
	if s.Stock != nil && before.IssuedAt != nil {
		for _, it := range before.Items {
			if it.ProductID == nil {
				continue
			}
			if err := s.Stock.AdjustStock(ctx, *it.ProductID, it.Quantity); err != nil {
				s.Logger.Error().Err(err).Str("product_id", it.ProductID.String()).Msg("restore stock")
			}
		}
	}
	if s.Bus != nil {
		s.Bus.Publish(ctx, events.TopicInvoiceVoided, inv.ID.String(), map[string]any{
			"shop_id": inv.ShopID.String(),
			"number":  inv.Number,
		})
	}
	return inv, nil
}

// Pay records payment against an issued invoice.
func (s *Service) Pay(ctx context.Context, id uuid.UUID, mode string) (Invoice, error) {
	inv, err := s.Store.MarkPaid(ctx, id, mode)
	if err != nil {
		return Invoice{}, mapRepoError(err)
	}
	return inv, nil
}

// price validates the input, loads the catalog snapshot and computes the
// invoice via the pure pricing function.
func (s *Service) price(ctx context.Context, in CreateInput) (Invoice, error) {
	if err := common.Validate(in); err != nil {
		return Invoice{}, err
	}
	shopID, err := uuid.Parse(in.ShopID)
	if err != nil {
		return Invoice{}, common.NewAppError("VALIDATION_ERROR", "invalid shop_id", http.StatusUnprocessableEntity, err)
	}
	var customerID *uuid.UUID
	if in.CustomerID != nil {
		parsed, err := uuid.Parse(*in.CustomerID)
		if err != nil {
			return Invoice{}, common.NewAppError("VALIDATION_ERROR", "invalid customer_id", http.StatusUnprocessableEntity, err)
		}
		customerID = &parsed
	}

	productIDs := make([]uuid.UUID, 0, len(in.Items))
	lineItems := make([]billing.LineItem, 0, len(in.Items))
	for _, item := range in.Items {
		pid, err := uuid.Parse(item.ProductID)
		if err != nil {
			return Invoice{}, common.NewAppError("VALIDATION_ERROR", "invalid product_id", http.StatusUnprocessableEntity, err)
		}
		qty, err := billing.Quantity(item.Quantity)
		if err != nil {
			return Invoice{}, common.NewAppError("VALIDATION_ERROR", "invalid quantity", http.StatusUnprocessableEntity, err)
		}
		disc, err := billing.Amount(item.DiscountValue)
		if err != nil {
			return Invoice{}, common.NewAppError("VALIDATION_ERROR", "invalid discount value", http.StatusUnprocessableEntity, err)
		}
		kind := billing.DiscountAmount
		if item.DiscountKind == string(billing.DiscountPercentage) {
			kind = billing.DiscountPercentage
		}
		productIDs = append(productIDs, pid)
		lineItems = append(lineItems, billing.LineItem{
			ProductID:     pid.String(),
			Quantity:      qty,
			DiscountValue: disc,
			DiscountKind:  kind,
		})
	}

	catalog, err := s.Products.Catalog(ctx, productIDs)
	if err != nil {
		return Invoice{}, fmt.Errorf("load catalog: %w", err)
	}
	known := make(map[string]struct{}, len(catalog))
	for _, p := range catalog {
		known[p.ID] = struct{}{}
	}
	missing := []string{}
	for _, li := range lineItems {
		if _, ok := known[li.ProductID]; !ok {
			missing = append(missing, li.ProductID)
		}
	}
	if len(missing) > 0 {
		return Invoice{}, &common.AppError{
			Code:       "UNKNOWN_PRODUCT",
			Message:    "one or more products do not exist",
			HTTPStatus: http.StatusUnprocessableEntity,
			Details:    map[string]any{"product_ids": missing},
		}
	}

	addDisc, err := billing.Amount(in.AdditionalDiscountValue)
	if err != nil {
		return Invoice{}, common.NewAppError("VALIDATION_ERROR", "invalid additional discount", http.StatusUnprocessableEntity, err)
	}
	addKind := billing.DiscountAmount
	if in.AdditionalDiscountKind == string(billing.DiscountPercentage) {
		addKind = billing.DiscountPercentage
	}
	settings := billing.Settings{
		SaleKind:                saleKind(in.SaleType),
		BillKind:                billKind(in.BillType),
		AdditionalDiscountValue: addDisc,
		AdditionalDiscountKind:  addKind,
		AutoRoundOff:            in.AutoRoundOff,
	}

	res := billing.Compute(lineItems, catalog, settings)

	items := make([]Item, 0, len(res.Lines))
	for _, line := range res.Lines {
		pid, err := uuid.Parse(line.ProductID)
		if err != nil {
			return Invoice{}, fmt.Errorf("parse priced product id: %w", err)
		}
		productID := pid
		var hsn *string
		if line.HSNCode != "" {
			h := line.HSNCode
			hsn = &h
		}
		unit := line.Unit
		if unit == "" {
			unit = "pcs"
		}
		items = append(items, Item{
			ProductID:      &productID,
			ProductName:    line.ProductName,
			HSNCode:        hsn,
			Quantity:       line.Quantity,
			Unit:           unit,
			Rate:           line.UnitPrice,
			DiscountKind:   line.DiscountKind,
			DiscountValue:  line.DiscountValue,
			DiscountAmount: line.DiscountAmount,
			TaxableAmount:  line.LineTotal,
			TaxRate:        line.CGSTRate.Add(line.SGSTRate),
			TaxAmount:      line.TaxAmount,
			LineTotal:      line.TotalPrice,
		})
	}

	return Invoice{
		ShopID:             shopID,
		CustomerID:         customerID,
		SaleType:           settings.SaleKind,
		BillType:           settings.BillKind,
		PaymentMode:        in.PaymentMode,
		Notes:              in.Notes,
		Subtotal:           res.Totals.Subtotal,
		DiscountTotal:      res.Totals.ItemDiscounts,
		AdditionalDiscount: res.Totals.AdditionalDiscountAmount,
		TaxableTotal:       res.Totals.Subtotal.Sub(res.Totals.AdditionalDiscountAmount),
		TaxTotal:           res.Totals.TotalTax,
		RoundOff:           res.Totals.RoundOff,
		GrandTotal:         res.Totals.GrandTotal,
		Items:              items,
	}, nil
}

func mapRepoError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return common.NewAppError("INVOICE_NOT_FOUND", "invoice not found", http.StatusNotFound, err)
	case errors.Is(err, ErrNotDraft):
		return common.NewAppError("INVOICE_NOT_DRAFT", "only draft invoices can be modified", http.StatusConflict, err)
	case errors.Is(err, ErrNotIssued):
		return common.NewAppError("INVOICE_NOT_ISSUED", "invoice is not issued", http.StatusConflict, err)
	case errors.Is(err, ErrAlreadyVoid):
		return common.NewAppError("INVOICE_ALREADY_VOID", "invoice is already void", http.StatusConflict, err)
	default:
		return err
	}
}
