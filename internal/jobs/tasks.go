// Package jobs defines the background tasks processed by the worker
// binary: invoice email delivery and report cache warming.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// Task type names routed through asynq.
const (
	TypeInvoiceEmail = "invoice:email"
	TypeReportWarm   = "report:warm"
)

// InvoiceEmailPayload carries the invoice to deliver.
type InvoiceEmailPayload struct {
	InvoiceID string `json:"invoice_id"`
}

// ReportWarmPayload selects the report range to precompute.
type ReportWarmPayload struct {
	Days int `json:"days"`
}

// NewInvoiceEmailTask builds the email delivery task.
func NewInvoiceEmailTask(invoiceID string) (*asynq.Task, error) {
	payload, err := json.Marshal(InvoiceEmailPayload{InvoiceID: invoiceID})
	if err != nil {
		return nil, fmt.Errorf("marshal invoice email payload: %w", err)
	}
	return asynq.NewTask(TypeInvoiceEmail, payload, asynq.MaxRetry(5)), nil
}

// NewReportWarmTask builds the cache warming task.
func NewReportWarmTask(days int) (*asynq.Task, error) {
	payload, err := json.Marshal(ReportWarmPayload{Days: days})
	if err != nil {
		return nil, fmt.Errorf("marshal report warm payload: %w", err)
	}
	return asynq.NewTask(TypeReportWarm, payload, asynq.MaxRetry(2)), nil
}

// Enqueuer wraps an asynq client for the API side.
type Enqueuer struct {
	Client *asynq.Client
}

// EnqueueInvoiceEmail schedules delivery of an issued invoice.
func (e *Enqueuer) EnqueueInvoiceEmail(ctx context.Context, invoiceID string) error {
	task, err := NewInvoiceEmailTask(invoiceID)
	if err != nil {
		return err
	}
	if _, err := e.Client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("enqueue %s: %w", TypeInvoiceEmail, err)
	}
	return nil
}
