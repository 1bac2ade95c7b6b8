package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ashwin275/billing-api/internal/billing"
	"github.com/ashwin275/billing-api/internal/common"
	"github.com/ashwin275/billing-api/internal/customer"
	"github.com/ashwin275/billing-api/internal/invoice"
	"github.com/ashwin275/billing-api/internal/report"
	"github.com/ashwin275/billing-api/internal/shop"
)

type fakeInvoices struct {
	inv invoice.Invoice
	err error
}

func (f *fakeInvoices) Get(_ context.Context, _ uuid.UUID) (invoice.Invoice, error) {
	return f.inv, f.err
}

type fakeShops struct {
	sh shop.Shop
}

func (f *fakeShops) Get(_ context.Context, _ uuid.UUID) (shop.Shop, error) {
	return f.sh, nil
}

type fakeCustomers struct {
	cust customer.Customer
}

func (f *fakeCustomers) Get(_ context.Context, _ uuid.UUID) (customer.Customer, error) {
	return f.cust, nil
}

type fakeWarmer struct {
	overviewCalls int
	salesCalls    int
	topCalls      int
}

func (f *fakeWarmer) DefaultRange(days int) report.Range {
	to := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	return report.Range{From: to.AddDate(0, 0, -days), To: to}
}

func (f *fakeWarmer) Overview(_ context.Context, _ report.Range) (report.Overview, error) {
	f.overviewCalls++
	return report.Overview{}, nil
}

func (f *fakeWarmer) SalesByDay(_ context.Context, _ report.Range) ([]report.SalesByDay, error) {
	f.salesCalls++
	return nil, nil
}

func (f *fakeWarmer) TopProducts(_ context.Context, _ report.Range, _ int) ([]report.TopProduct, error) {
	f.topCalls++
	return nil, nil
}

func emailFixture(t *testing.T) (*Handlers, *common.InMemoryEmail) {
	t.Helper()
	renderer, err := invoice.NewRenderer()
	require.NoError(t, err)

	customerID := uuid.New()
	shopID := uuid.New()
	email := "asha@example.com"
	inv := invoice.Invoice{
		ID:            uuid.New(),
		ShopID:        shopID,
		CustomerID:    &customerID,
		Number:        "INV-000042",
		Status:        invoice.StatusIssued,
		SaleType:      billing.SaleRetail,
		BillType:      billing.BillGST,
		PaymentStatus: "unpaid",
		GrandTotal:    decimal.RequireFromString("212.4"),
	}

	outbox := &common.InMemoryEmail{}
	h := &Handlers{
		Invoices:  &fakeInvoices{inv: inv},
		Shops:     &fakeShops{sh: shop.Shop{ID: shopID, Name: "Kerala Traders"}},
		Customers: &fakeCustomers{cust: customer.Customer{ID: customerID, Name: "Asha", Email: &email}},
		Renderer:  renderer,
		Email:     outbox,
		Logger:    zerolog.Nop(),
	}
	return h, outbox
}

func TestHandleInvoiceEmailSends(t *testing.T) {
	h, outbox := emailFixture(t)

	task, err := NewInvoiceEmailTask(uuid.NewString())
	require.NoError(t, err)
	require.NoError(t, h.HandleInvoiceEmail(context.Background(), task))

	require.Len(t, outbox.Outbox, 1)
	sent := outbox.Outbox[0]
	require.Equal(t, "asha@example.com", sent.To)
	require.Equal(t, "Invoice INV-000042 from Kerala Traders", sent.Subject)
	require.Contains(t, sent.HTML, "INV-000042")
	require.Contains(t, sent.HTML, "212.40")
}

func TestHandleInvoiceEmailSkipsWalkIn(t *testing.T) {
	h, outbox := emailFixture(t)
	h.Invoices.(*fakeInvoices).inv.CustomerID = nil

	task, err := NewInvoiceEmailTask(uuid.NewString())
	require.NoError(t, err)
	require.NoError(t, h.HandleInvoiceEmail(context.Background(), task))
	require.Empty(t, outbox.Outbox)
}

func TestHandleInvoiceEmailSkipsCustomerWithoutEmail(t *testing.T) {
	h, outbox := emailFixture(t)
	h.Customers.(*fakeCustomers).cust.Email = nil

	task, err := NewInvoiceEmailTask(uuid.NewString())
	require.NoError(t, err)
	require.NoError(t, h.HandleInvoiceEmail(context.Background(), task))
	require.Empty(t, outbox.Outbox)
}

func TestHandleInvoiceEmailBadPayloadNotRetried(t *testing.T) {
	h, _ := emailFixture(t)

	err := h.HandleInvoiceEmail(context.Background(), asynq.NewTask(TypeInvoiceEmail, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)

	err = h.HandleInvoiceEmail(context.Background(), asynq.NewTask(TypeInvoiceEmail, []byte(`{"invoice_id":"not-a-uuid"}`)))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleReportWarm(t *testing.T) {
	warmer := &fakeWarmer{}
	h := &Handlers{Reports: warmer, Logger: zerolog.Nop()}

	task, err := NewReportWarmTask(7)
	require.NoError(t, err)
	require.NoError(t, h.HandleReportWarm(context.Background(), task))

	require.Equal(t, 1, warmer.overviewCalls)
	require.Equal(t, 1, warmer.salesCalls)
	require.Equal(t, 1, warmer.topCalls)
}

func TestWorkerStartBlocksUntilShutdown(t *testing.T) {
	mr := miniredis.RunT(t)
	h, _ := emailFixture(t)
	w := NewWorker(asynq.RedisClientOpt{Addr: mr.Addr()}, h, zerolog.Nop())

	started := make(chan error, 1)
	go func() { started <- w.Start() }()

	select {
	case err := <-started:
		t.Fatalf("start returned before shutdown: %v", err)
	case <-time.After(200 * time.Millisecond):
	}

	w.Shutdown()
	select {
	case err := <-started:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("start did not return after shutdown")
	}
}

func TestWorkerShutdownIdempotent(t *testing.T) {
	mr := miniredis.RunT(t)
	h, _ := emailFixture(t)
	w := NewWorker(asynq.RedisClientOpt{Addr: mr.Addr()}, h, zerolog.Nop())

	started := make(chan error, 1)
	go func() { started <- w.Start() }()
	time.Sleep(100 * time.Millisecond)

	w.Shutdown()
	w.Shutdown()
	require.NoError(t, <-started)
}
