package invoice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when no invoice matches the given id.
var ErrNotFound = errors.New("invoice not found")

// ErrNotDraft is returned when an operation needs a draft invoice.
var ErrNotDraft = errors.New("invoice is not a draft")

// ErrAlreadyVoid is returned when voiding an already void invoice.
var ErrAlreadyVoid = errors.New("invoice is already void")

// ErrNotIssued is returned when an operation needs an issued invoice.
var ErrNotIssued = errors.New("invoice is not issued")

var sortColumns = map[string]string{
	"number":      "number",
	"grand_total": "grand_total",
	"created_at":  "created_at",
	"issued_at":   "issued_at",
}

// Repository provides persistence for invoices. Money columns travel as
// text so numeric values survive the round trip without float conversion.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository builds an invoice repository over the pool.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const invoiceColumns = `id, shop_id, customer_id, number, status, sale_type, bill_type,
	payment_mode, payment_status, notes,
	subtotal::text, discount_total::text, additional_discount::text, taxable_total::text,
	tax_total::text, round_off::text, grand_total::text,
	issued_at, voided_at, created_by, created_at, updated_at`

const itemColumns = `id, invoice_id, product_id, product_name, hsn_code, quantity::text, unit,
	rate::text, discount_kind, discount_value::text, discount_amount::text,
	taxable_amount::text, tax_rate::text, tax_amount::text, line_total::text, position`

func parseDecimals(pairs map[*decimal.Decimal]string) error {
	for dst, src := range pairs {
		d, err := decimal.NewFromString(src)
		if err != nil {
			return fmt.Errorf("parse numeric %q: %w", src, err)
		}
		*dst = d
	}
	return nil
}

func scanInvoice(row pgx.Row) (Invoice, error) {
	var (
		inv                                                       Invoice
		status, saleType, billType                                string
		subtotal, discount, addDiscount, taxable, tax, roundOff   string
		grand                                                     string
	)
	err := row.Scan(&inv.ID, &inv.ShopID, &inv.CustomerID, &inv.Number, &status, &saleType, &billType,
		&inv.PaymentMode, &inv.PaymentStatus, &inv.Notes,
		&subtotal, &discount, &addDiscount, &taxable, &tax, &roundOff, &grand,
		&inv.IssuedAt, &inv.VoidedAt, &inv.CreatedBy, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return Invoice{}, err
	}
	inv.Status = Status(status)
	inv.SaleType = saleKind(saleType)
	inv.BillType = billKind(billType)
	if err := parseDecimals(map[*decimal.Decimal]string{
		&inv.Subtotal:           subtotal,
		&inv.DiscountTotal:      discount,
		&inv.AdditionalDiscount: addDiscount,
		&inv.TaxableTotal:       taxable,
		&inv.TaxTotal:           tax,
		&inv.RoundOff:           roundOff,
		&inv.GrandTotal:         grand,
	}); err != nil {
		return Invoice{}, err
	}
	return inv, nil
}

func scanItem(row pgx.Row) (Item, error) {
	var (
		it                                     Item
		kind                                   *string
		qty, rate, dVal, dAmt, taxable, taxRate string
		taxAmt, lineTotal                      string
	)
	err := row.Scan(&it.ID, &it.InvoiceID, &it.ProductID, &it.ProductName, &it.HSNCode, &qty, &it.Unit,
		&rate, &kind, &dVal, &dAmt, &taxable, &taxRate, &taxAmt, &lineTotal, &it.Position)
	if err != nil {
		return Item{}, err
	}
	if kind != nil {
		it.DiscountKind = discountKind(*kind)
	}
	if err := parseDecimals(map[*decimal.Decimal]string{
		&it.Quantity:       qty,
		&it.Rate:           rate,
		&it.DiscountValue:  dVal,
		&it.DiscountAmount: dAmt,
		&it.TaxableAmount:  taxable,
		&it.TaxRate:        taxRate,
		&it.TaxAmount:      taxAmt,
		&it.LineTotal:      lineTotal,
	}); err != nil {
		return Item{}, err
	}
	return it, nil
}

// Create persists a draft invoice inside one transaction, pulling the next
// per-shop invoice number from the shop's sequence.
func (r *Repository) Create(ctx context.Context, inv Invoice) (Invoice, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return Invoice{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		seq    int64
		prefix string
	)
	err = tx.QueryRow(ctx, `
		UPDATE shops SET invoice_seq = invoice_seq + 1, updated_at = now()
		WHERE id = $1
		RETURNING invoice_seq, invoice_prefix`, inv.ShopID,
	).Scan(&seq, &prefix)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invoice{}, fmt.Errorf("shop %s: %w", inv.ShopID, ErrNotFound)
		}
		return Invoice{}, fmt.Errorf("next invoice number: %w", err)
	}
	number := fmt.Sprintf("%s-%06d", prefix, seq)

	stored, err := scanInvoice(tx.QueryRow(ctx, `
		INSERT INTO invoices (shop_id, customer_id, number, status, sale_type, bill_type,
			payment_mode, payment_status, notes,
			subtotal, discount_total, additional_discount, taxable_total,
			tax_total, round_off, grand_total, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9,
			$10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING `+invoiceColumns,
		inv.ShopID, inv.CustomerID, number, StatusDraft, string(inv.SaleType), string(inv.BillType),
		inv.PaymentMode, "unpaid", inv.Notes,
		inv.Subtotal.String(), inv.DiscountTotal.String(), inv.AdditionalDiscount.String(),
		inv.TaxableTotal.String(), inv.TaxTotal.String(), inv.RoundOff.String(),
		inv.GrandTotal.String(), inv.CreatedBy,
	))
	if err != nil {
		return Invoice{}, fmt.Errorf("insert invoice: %w", err)
	}

	stored.Items, err = insertItems(ctx, tx, stored.ID, inv.Items)
	if err != nil {
		return Invoice{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Invoice{}, fmt.Errorf("commit tx: %w", err)
	}
	return stored, nil
}

func insertItems(ctx context.Context, tx pgx.Tx, invoiceID uuid.UUID, items []Item) ([]Item, error) {
	out := make([]Item, 0, len(items))
	for i, it := range items {
		var kind *string
		if it.DiscountKind != "" {
			s := string(it.DiscountKind)
			kind = &s
		}
		stored, err := scanItem(tx.QueryRow(ctx, `
			INSERT INTO invoice_items (invoice_id, product_id, product_name, hsn_code, quantity,
				unit, rate, discount_kind, discount_value, discount_amount,
				taxable_amount, tax_rate, tax_amount, line_total, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
			RETURNING `+itemColumns,
			invoiceID, it.ProductID, it.ProductName, it.HSNCode, it.Quantity.String(),
			it.Unit, it.Rate.String(), kind, it.DiscountValue.String(), it.DiscountAmount.String(),
			it.TaxableAmount.String(), it.TaxRate.String(), it.TaxAmount.String(),
			it.LineTotal.String(), i,
		))
		if err != nil {
			return nil, fmt.Errorf("insert invoice item: %w", err)
		}
		out = append(out, stored)
	}
	return out, nil
}

// ReplaceDraft rewrites a draft invoice's header totals and items. The row
// is locked so a concurrent issue cannot race the rewrite.
func (r *Repository) ReplaceDraft(ctx context.Context, inv Invoice) (Invoice, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return Invoice{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var status string
	err = tx.QueryRow(ctx, `SELECT status FROM invoices WHERE id = $1 FOR UPDATE`, inv.ID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invoice{}, ErrNotFound
		}
		return Invoice{}, fmt.Errorf("lock invoice: %w", err)
	}
	if Status(status) != StatusDraft {
		return Invoice{}, ErrNotDraft
	}

	stored, err := scanInvoice(tx.QueryRow(ctx, `
		UPDATE invoices SET customer_id = $1, sale_type = $2, bill_type = $3,
			payment_mode = $4, notes = $5,
			subtotal = $6, discount_total = $7, additional_discount = $8,
			taxable_total = $9, tax_total = $10, round_off = $11, grand_total = $12,
			updated_at = now()
		WHERE id = $13
		RETURNING `+invoiceColumns,
		inv.CustomerID, string(inv.SaleType), string(inv.BillType),
		inv.PaymentMode, inv.Notes,
		inv.Subtotal.String(), inv.DiscountTotal.String(), inv.AdditionalDiscount.String(),
		inv.TaxableTotal.String(), inv.TaxTotal.String(), inv.RoundOff.String(),
		inv.GrandTotal.String(), inv.ID,
	))
	if err != nil {
		return Invoice{}, fmt.Errorf("update invoice: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM invoice_items WHERE invoice_id = $1`, inv.ID); err != nil {
		return Invoice{}, fmt.Errorf("clear invoice items: %w", err)
	}
	stored.Items, err = insertItems(ctx, tx, inv.ID, inv.Items)
	if err != nil {
		return Invoice{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Invoice{}, fmt.Errorf("commit tx: %w", err)
	}
	return stored, nil
}

// GetByID fetches an invoice with its items.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Invoice, error) {
	inv, err := scanInvoice(r.db.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invoice{}, ErrNotFound
		}
		return Invoice{}, fmt.Errorf("get invoice: %w", err)
	}

	rows, err := r.db.Query(ctx, `SELECT `+itemColumns+` FROM invoice_items WHERE invoice_id = $1 ORDER BY position`, id)
	if err != nil {
		return Invoice{}, fmt.Errorf("get invoice items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return Invoice{}, fmt.Errorf("scan invoice item: %w", err)
		}
		inv.Items = append(inv.Items, it)
	}
	if err := rows.Err(); err != nil {
		return Invoice{}, fmt.Errorf("iterate invoice items: %w", err)
	}
	return inv, nil
}

// List returns a filtered page of invoices (without items) plus the total
// match count.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]Invoice, int, error) {
	where := []string{"1=1"}
	args := []any{}
	idx := 1
	add := func(cond string, v any) {
		where = append(where, fmt.Sprintf(cond, idx))
		args = append(args, v)
		idx++
	}
	if f.ShopID != nil {
		add("shop_id = $%d", *f.ShopID)
	}
	if f.CustomerID != nil {
		add("customer_id = $%d", *f.CustomerID)
	}
	if s := strings.TrimSpace(f.Status); s != "" {
		add("status = $%d", s)
	}
	if f.From != nil {
		add("created_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("created_at < $%d", *f.To)
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM invoices WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count invoices: %w", err)
	}

	col, ok := sortColumns[f.Sort]
	if !ok {
		col = "created_at"
	}
	dir := "DESC"
	if strings.EqualFold(f.Order, "asc") {
		dir = "ASC"
	}
	query := fmt.Sprintf(`SELECT %s FROM invoices WHERE %s ORDER BY %s %s LIMIT $%d OFFSET $%d`,
		invoiceColumns, cond, col, dir, idx, idx+1)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	out := make([]Invoice, 0, f.Limit)
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan invoice: %w", err)
		}
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate invoices: %w", err)
	}
	return out, total, nil
}

// MarkIssued transitions a draft invoice to issued.
func (r *Repository) MarkIssued(ctx context.Context, id uuid.UUID) (Invoice, error) {
	inv, err := scanInvoice(r.db.QueryRow(ctx, `
		UPDATE invoices SET status = $1, issued_at = now(), updated_at = now()
		WHERE id = $2 AND status = $3
		RETURNING `+invoiceColumns,
		StatusIssued, id, StatusDraft,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invoice{}, r.classifyMissing(ctx, id, ErrNotDraft)
		}
		return Invoice{}, fmt.Errorf("issue invoice: %w", err)
	}
	return inv, nil
}

// MarkVoid transitions a draft or issued invoice to void.
func (r *Repository) MarkVoid(ctx context.Context, id uuid.UUID) (Invoice, error) {
	inv, err := scanInvoice(r.db.QueryRow(ctx, `
		UPDATE invoices SET status = $1, voided_at = now(), updated_at = now()
		WHERE id = $2 AND status <> $1
		RETURNING `+invoiceColumns,
		StatusVoid, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invoice{}, r.classifyMissing(ctx, id, ErrAlreadyVoid)
		}
		return Invoice{}, fmt.Errorf("void invoice: %w", err)
	}
	return inv, nil
}

// MarkPaid updates payment fields on an issued invoice.
func (r *Repository) MarkPaid(ctx context.Context, id uuid.UUID, mode string) (Invoice, error) {
	inv, err := scanInvoice(r.db.QueryRow(ctx, `
		UPDATE invoices SET payment_status = 'paid', payment_mode = $1, updated_at = now()
		WHERE id = $2 AND status = $3
		RETURNING `+invoiceColumns,
		mode, id, StatusIssued,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invoice{}, r.classifyMissing(ctx, id, ErrNotIssued)
		}
		return Invoice{}, fmt.Errorf("mark paid: %w", err)
	}
	return inv, nil
}

func (r *Repository) classifyMissing(ctx context.Context, id uuid.UUID, stateErr error) error {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM invoices WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check invoice: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return stateErr
}
