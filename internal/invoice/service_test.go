package invoice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ashwin275/billing-api/internal/billing"
	"github.com/ashwin275/billing-api/internal/common"
	"github.com/ashwin275/billing-api/internal/events"
)

type fakeStore struct {
	invoices map[uuid.UUID]Invoice
	seq      int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{invoices: map[uuid.UUID]Invoice{}}
}

func (f *fakeStore) Create(_ context.Context, inv Invoice) (Invoice, error) {
	f.seq++
	inv.ID = uuid.New()
	inv.Number = "INV-" + uuid.NewString()[:6]
	inv.Status = StatusDraft
	inv.PaymentStatus = "unpaid"
	inv.CreatedAt = time.Now()
	for i := range inv.Items {
		inv.Items[i].ID = uuid.New()
		inv.Items[i].InvoiceID = inv.ID
		inv.Items[i].Position = i
	}
	f.invoices[inv.ID] = inv
	return inv, nil
}

func (f *fakeStore) ReplaceDraft(_ context.Context, inv Invoice) (Invoice, error) {
	existing, ok := f.invoices[inv.ID]
	if !ok {
		return Invoice{}, ErrNotFound
	}
	if existing.Status != StatusDraft {
		return Invoice{}, ErrNotDraft
	}
	inv.Number = existing.Number
	inv.Status = existing.Status
	inv.PaymentStatus = existing.PaymentStatus
	f.invoices[inv.ID] = inv
	return inv, nil
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (Invoice, error) {
	inv, ok := f.invoices[id]
	if !ok {
		return Invoice{}, ErrNotFound
	}
	return inv, nil
}

func (f *fakeStore) List(_ context.Context, _ ListFilter) ([]Invoice, int, error) {
	out := make([]Invoice, 0, len(f.invoices))
	for _, inv := range f.invoices {
		out = append(out, inv)
	}
	return out, len(out), nil
}

func (f *fakeStore) MarkIssued(_ context.Context, id uuid.UUID) (Invoice, error) {
	inv, ok := f.invoices[id]
	if !ok {
		return Invoice{}, ErrNotFound
	}
	if inv.Status != StatusDraft {
		return Invoice{}, ErrNotDraft
	}
	now := time.Now()
	inv.Status = StatusIssued
	inv.IssuedAt = &now
	f.invoices[id] = inv
	return inv, nil
}

func (f *fakeStore) MarkVoid(_ context.Context, id uuid.UUID) (Invoice, error) {
	inv, ok := f.invoices[id]
	if !ok {
		return Invoice{}, ErrNotFound
	}
	if inv.Status == StatusVoid {
		return Invoice{}, ErrAlreadyVoid
	}
	now := time.Now()
	inv.Status = StatusVoid
	inv.VoidedAt = &now
	f.invoices[id] = inv
	return inv, nil
}

func (f *fakeStore) MarkPaid(_ context.Context, id uuid.UUID, mode string) (Invoice, error) {
	inv, ok := f.invoices[id]
	if !ok {
		return Invoice{}, ErrNotFound
	}
	if inv.Status != StatusIssued {
		return Invoice{}, ErrNotIssued
	}
	inv.PaymentStatus = "paid"
	inv.PaymentMode = &mode
	f.invoices[id] = inv
	return inv, nil
}

type fakeCatalog struct {
	products map[uuid.UUID]billing.ProductPricing
}

func (f *fakeCatalog) Catalog(_ context.Context, ids []uuid.UUID) ([]billing.ProductPricing, error) {
	out := []billing.ProductPricing{}
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeStock struct {
	deltas map[uuid.UUID]decimal.Decimal
}

func (f *fakeStock) AdjustStock(_ context.Context, id uuid.UUID, delta decimal.Decimal) error {
	if f.deltas == nil {
		f.deltas = map[uuid.UUID]decimal.Decimal{}
	}
	f.deltas[id] = f.deltas[id].Add(delta)
	return nil
}

type fakeEnqueuer struct {
	enqueued []string
}

func (f *fakeEnqueuer) EnqueueInvoiceEmail(_ context.Context, invoiceID string) error {
	f.enqueued = append(f.enqueued, invoiceID)
	return nil
}

func fixture() (*Service, *fakeStore, *fakeStock, *fakeEnqueuer, uuid.UUID, uuid.UUID) {
	pa := uuid.New()
	pb := uuid.New()
	catalog := &fakeCatalog{products: map[uuid.UUID]billing.ProductPricing{
		pa: {
			ID: pa.String(), Name: "Item A", Unit: "pcs",
			RetailRate:  decimal.RequireFromString("100"),
			CGSTPercent: decimal.RequireFromString("9"),
			SGSTPercent: decimal.RequireFromString("9"),
		},
		pb: {
			ID: pb.String(), Name: "Item B", Unit: "pcs",
			RetailRate:  decimal.RequireFromString("50"),
			CGSTPercent: decimal.RequireFromString("5"),
			SGSTPercent: decimal.RequireFromString("5"),
		},
	}}
	store := newFakeStore()
	stock := &fakeStock{}
	jobs := &fakeEnqueuer{}
	svc := &Service{
		Store:    store,
		Products: catalog,
		Stock:    stock,
		Bus:      &events.Bus{Logger: zerolog.Nop()},
		Jobs:     jobs,
		Logger:   zerolog.Nop(),
	}
	return svc, store, stock, jobs, pa, pb
}

func twoItemInput(shopID string, pa, pb uuid.UUID) CreateInput {
	return CreateInput{
		ShopID:   shopID,
		SaleType: "RETAIL",
		BillType: "GST",
		Items: []ItemInput{
			{ProductID: pa.String(), Quantity: 2, DiscountValue: 10, DiscountKind: "PERCENTAGE"},
			{ProductID: pb.String(), Quantity: 1, DiscountValue: 5, DiscountKind: "AMOUNT"},
		},
	}
}

func TestCreateComputesTotals(t *testing.T) {
	svc, _, _, _, pa, pb := fixture()

	inv, err := svc.Create(context.Background(), twoItemInput(uuid.NewString(), pa, pb), nil)
	require.NoError(t, err)

	require.Equal(t, StatusDraft, inv.Status)
	require.Len(t, inv.Items, 2)
	require.True(t, inv.Subtotal.Equal(decimal.RequireFromString("225")), "subtotal = %s", inv.Subtotal)
	require.True(t, inv.TaxTotal.Equal(decimal.RequireFromString("36.9")), "tax = %s", inv.TaxTotal)
	require.True(t, inv.GrandTotal.Equal(decimal.RequireFromString("261.9")), "grand = %s", inv.GrandTotal)

	a := inv.Items[0]
	require.Equal(t, "Item A", a.ProductName)
	require.True(t, a.TaxableAmount.Equal(decimal.RequireFromString("180")))
	require.True(t, a.TaxRate.Equal(decimal.RequireFromString("18")))
	require.True(t, a.LineTotal.Equal(decimal.RequireFromString("212.4")))
}

func TestCreateRejectsUnknownProduct(t *testing.T) {
	svc, _, _, _, pa, _ := fixture()
	ghost := uuid.New()

	in := CreateInput{
		ShopID:   uuid.NewString(),
		SaleType: "RETAIL",
		BillType: "GST",
		Items: []ItemInput{
			{ProductID: pa.String(), Quantity: 1},
			{ProductID: ghost.String(), Quantity: 1},
		},
	}
	_, err := svc.Create(context.Background(), in, nil)
	require.Error(t, err)

	var appErr *common.AppError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, "UNKNOWN_PRODUCT", appErr.Code)
	require.Equal(t, 422, appErr.HTTPStatus)
}

func TestCreateValidation(t *testing.T) {
	svc, _, _, _, _, _ := fixture()

	_, err := svc.Create(context.Background(), CreateInput{ShopID: "nope"}, nil)
	require.Error(t, err)
	require.True(t, common.IsAppError(err))
}

func TestUpdateReprices(t *testing.T) {
	svc, _, _, _, pa, pb := fixture()
	shopID := uuid.NewString()

	inv, err := svc.Create(context.Background(), twoItemInput(shopID, pa, pb), nil)
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), inv.ID, CreateInput{
		ShopID:   shopID,
		SaleType: "RETAIL",
		BillType: "NON_GST",
		Items:    []ItemInput{{ProductID: pa.String(), Quantity: 1}},
	})
	require.NoError(t, err)
	require.True(t, updated.TaxTotal.IsZero())
	require.True(t, updated.GrandTotal.Equal(decimal.RequireFromString("100")))
	require.Len(t, updated.Items, 1)
}

func TestUpdateRejectsIssuedInvoice(t *testing.T) {
	svc, _, _, _, pa, pb := fixture()
	shopID := uuid.NewString()

	inv, err := svc.Create(context.Background(), twoItemInput(shopID, pa, pb), nil)
	require.NoError(t, err)
	_, err = svc.Issue(context.Background(), inv.ID)
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), inv.ID, twoItemInput(shopID, pa, pb))
	var appErr *common.AppError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, "INVOICE_NOT_DRAFT", appErr.Code)
}

func TestIssueDecrementsStockAndEnqueuesEmail(t *testing.T) {
	svc, _, stock, jobs, pa, pb := fixture()

	inv, err := svc.Create(context.Background(), twoItemInput(uuid.NewString(), pa, pb), nil)
	require.NoError(t, err)

	issued, err := svc.Issue(context.Background(), inv.ID)
	require.NoError(t, err)
	require.Equal(t, StatusIssued, issued.Status)

	require.True(t, stock.deltas[pa].Equal(decimal.RequireFromString("-2")))
	require.True(t, stock.deltas[pb].Equal(decimal.RequireFromString("-1")))
	require.Equal(t, []string{inv.ID.String()}, jobs.enqueued)
}

func TestVoidIssuedRestoresStock(t *testing.T) {
	svc, _, stock, _, pa, pb := fixture()

	inv, err := svc.Create(context.Background(), twoItemInput(uuid.NewString(), pa, pb), nil)
	require.NoError(t, err)
	_, err = svc.Issue(context.Background(), inv.ID)
	require.NoError(t, err)

	voided, err := svc.Void(context.Background(), inv.ID)
	require.NoError(t, err)
	require.Equal(t, StatusVoid, voided.Status)

	require.True(t, stock.deltas[pa].IsZero(), "issued then voided nets to zero")
	require.True(t, stock.deltas[pb].IsZero())
}

func TestVoidDraftLeavesStockAlone(t *testing.T) {
	svc, _, stock, _, pa, pb := fixture()

	inv, err := svc.Create(context.Background(), twoItemInput(uuid.NewString(), pa, pb), nil)
	require.NoError(t, err)

	_, err = svc.Void(context.Background(), inv.ID)
	require.NoError(t, err)
	require.Empty(t, stock.deltas)
}

func TestPayRequiresIssuedInvoice(t *testing.T) {
	svc, _, _, _, pa, pb := fixture()

	inv, err := svc.Create(context.Background(), twoItemInput(uuid.NewString(), pa, pb), nil)
	require.NoError(t, err)

	_, err = svc.Pay(context.Background(), inv.ID, "cash")
	var appErr *common.AppError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, "INVOICE_NOT_ISSUED", appErr.Code)

	_, err = svc.Issue(context.Background(), inv.ID)
	require.NoError(t, err)
	paid, err := svc.Pay(context.Background(), inv.ID, "cash")
	require.NoError(t, err)
	require.Equal(t, "paid", paid.PaymentStatus)
}
