package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/ashwin275/billing-api/internal/common"
	"github.com/ashwin275/billing-api/internal/customer"
	"github.com/ashwin275/billing-api/internal/invoice"
	"github.com/ashwin275/billing-api/internal/report"
	"github.com/ashwin275/billing-api/internal/shop"
)

// InvoiceSource loads invoices for email delivery.
type InvoiceSource interface {
	Get(ctx context.Context, id uuid.UUID) (invoice.Invoice, error)
}

// ShopSource loads the issuing shop.
type ShopSource interface {
	Get(ctx context.Context, id uuid.UUID) (shop.Shop, error)
}

// CustomerSource loads the billed customer.
type CustomerSource interface {
	Get(ctx context.Context, id uuid.UUID) (customer.Customer, error)
}

// ReportWarmer precomputes dashboard reports.
type ReportWarmer interface {
	DefaultRange(days int) report.Range
	Overview(ctx context.Context, r report.Range) (report.Overview, error)
	SalesByDay(ctx context.Context, r report.Range) ([]report.SalesByDay, error)
	TopProducts(ctx context.Context, r report.Range, limit int) ([]report.TopProduct, error)
}

// Handlers processes background tasks. Missing invoices or customers
// without an email are terminal conditions, not retryable failures.
type Handlers struct {
	Invoices  InvoiceSource
	Shops     ShopSource
	Customers CustomerSource
	Reports   ReportWarmer
	Renderer  *invoice.Renderer
	Email     common.EmailSender
	Logger    zerolog.Logger
}

// HandleInvoiceEmail renders the invoice and mails it to the customer.
func (h *Handlers) HandleInvoiceEmail(ctx context.Context, t *asynq.Task) error {
	var payload InvoiceEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", asynq.SkipRetry)
	}
	id, err := uuid.Parse(payload.InvoiceID)
	if err != nil {
		return fmt.Errorf("invalid invoice id %q: %w", payload.InvoiceID, asynq.SkipRetry)
	}
	inv, err := h.Invoices.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("load invoice: %w", err)
	}
	if inv.CustomerID == nil {
		h.Logger.Info().Str("invoice_id", payload.InvoiceID).Msg("no customer on invoice, skipping email")
		return nil
	}
	cust, err := h.Customers.Get(ctx, *inv.CustomerID)
	if err != nil {
		return fmt.Errorf("load customer: %w", err)
	}
	if cust.Email == nil || *cust.Email == "" {
		h.Logger.Info().Str("invoice_id", payload.InvoiceID).Msg("customer has no email, skipping")
		return nil
	}
	sh, err := h.Shops.Get(ctx, inv.ShopID)
	if err != nil {
		return fmt.Errorf("load shop: %w", err)
	}
	html, err := h.Renderer.Render(inv, sh, &cust)
	if err != nil {
		return fmt.Errorf("render invoice: %w", err)
	}
	subject := fmt.Sprintf("Invoice %s from %s", inv.Number, sh.Name)
	if err := h.Email.Send(*cust.Email, subject, string(html)); err != nil {
		return fmt.Errorf("send invoice email: %w", err)
	}
	h.Logger.Info().Str("invoice_id", payload.InvoiceID).Str("to", *cust.Email).Msg("invoice emailed")
	return nil
}

// HandleReportWarm precomputes the default dashboard reports so the first
// morning request hits a warm cache.
func (h *Handlers) HandleReportWarm(ctx context.Context, t *asynq.Task) error {
	var payload ReportWarmPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", asynq.SkipRetry)
	}
	days := payload.Days
	if days <= 0 {
		days = 30
	}
	rng := h.Reports.DefaultRange(days)
	if _, err := h.Reports.Overview(ctx, rng); err != nil {
		return fmt.Errorf("warm overview: %w", err)
	}
	if _, err := h.Reports.SalesByDay(ctx, rng); err != nil {
		return fmt.Errorf("warm sales: %w", err)
	}
	if _, err := h.Reports.TopProducts(ctx, rng, 10); err != nil {
		return fmt.Errorf("warm top products: %w", err)
	}
	h.Logger.Info().Int("days", days).Msg("report cache warmed")
	return nil
}

// Worker wraps the asynq server and scheduler.
type Worker struct {
	server    *asynq.Server
	scheduler *asynq.Scheduler
	mux       *asynq.ServeMux
	logger    zerolog.Logger

	done     chan struct{}
	stopOnce sync.Once
}

// NewWorker builds the asynq server with the task handlers registered and
// a nightly report warm scheduled.
func NewWorker(redisOpt asynq.RedisConnOpt, h *Handlers, logger zerolog.Logger) *Worker {
	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 5,
		Queues:      map[string]int{"default": 1},
	})
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeInvoiceEmail, h.HandleInvoiceEmail)
	mux.HandleFunc(TypeReportWarm, h.HandleReportWarm)

	scheduler := asynq.NewScheduler(redisOpt, nil)
	return &Worker{
		server:    server,
		scheduler: scheduler,
		mux:       mux,
		logger:    logger,
		done:      make(chan struct{}),
	}
}

// Start runs the server and scheduler and blocks until Shutdown is called.
func (w *Worker) Start() error {
	warm, err := NewReportWarmTask(30)
	if err != nil {
		return err
	}
	if _, err := w.scheduler.Register("0 6 * * *", warm); err != nil {
		return fmt.Errorf("register report warm schedule: %w", err)
	}
	if err := w.scheduler.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	if err := w.server.Start(w.mux); err != nil {
		w.scheduler.Shutdown()
		return fmt.Errorf("start server: %w", err)
	}
	w.logger.Info().Msg("worker started")
	<-w.done
	return nil
}

// Shutdown stops the scheduler, drains in-flight tasks and unblocks Start.
func (w *Worker) Shutdown() {
	w.stopOnce.Do(func() {
		w.scheduler.Shutdown()
		w.server.Shutdown()
		close(w.done)
	})
}
