package report

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Queries is the SQL surface behind the report service. Only issued
// invoices count toward sales figures.
type Queries interface {
	Overview(ctx context.Context, r Range) (Overview, error)
	SalesByDay(ctx context.Context, r Range) ([]SalesByDay, error)
	TopProducts(ctx context.Context, r Range, limit int) ([]TopProduct, error)
	TopCustomers(ctx context.Context, r Range, limit int) ([]TopCustomer, error)
	TaxSummary(ctx context.Context, r Range) ([]TaxBracket, error)
}

// PGQueries implements Queries over Postgres.
type PGQueries struct {
	DB *pgxpool.Pool
}

var _ Queries = (*PGQueries)(nil)

func rangeArgs(r Range) (cond string, args []any) {
	cond = `i.status = 'issued' AND i.created_at >= $1 AND i.created_at < $2`
	args = []any{r.From, r.To}
	if r.ShopID != nil {
		cond += ` AND i.shop_id = $3`
		args = append(args, *r.ShopID)
	}
	return cond, args
}

func parseDec(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

// Overview aggregates headline figures for the range.
func (q *PGQueries) Overview(ctx context.Context, r Range) (Overview, error) {
	cond, args := rangeArgs(r)
	var (
		out                     Overview
		sales, tax, avg, unpaid string
	)
	err := q.DB.QueryRow(ctx, `
		SELECT count(*),
			count(DISTINCT i.customer_id) FILTER (WHERE i.customer_id IS NOT NULL),
			COALESCE(sum(i.grand_total), 0)::text,
			COALESCE(sum(i.tax_total), 0)::text,
			COALESCE(avg(i.grand_total), 0)::text,
			COALESCE(sum(i.grand_total) FILTER (WHERE i.payment_status <> 'paid'), 0)::text
		FROM invoices i WHERE `+cond, args...,
	).Scan(&out.InvoiceCount, &out.CustomerCount, &sales, &tax, &avg, &unpaid)
	if err != nil {
		return Overview{}, fmt.Errorf("overview: %w", err)
	}
	if out.SalesTotal, err = parseDec(sales); err != nil {
		return Overview{}, err
	}
	if out.TaxTotal, err = parseDec(tax); err != nil {
		return Overview{}, err
	}
	if out.AvgInvoice, err = parseDec(avg); err != nil {
		return Overview{}, err
	}
	if out.UnpaidTotal, err = parseDec(unpaid); err != nil {
		return Overview{}, err
	}
	return out, nil
}

// SalesByDay groups issued invoices by calendar day.
func (q *PGQueries) SalesByDay(ctx context.Context, r Range) ([]SalesByDay, error) {
	cond, args := rangeArgs(r)
	rows, err := q.DB.Query(ctx, `
		SELECT date_trunc('day', i.created_at) AS day,
			count(*),
			COALESCE(sum(i.subtotal + i.discount_total), 0)::text,
			COALESCE(sum(i.discount_total + i.additional_discount), 0)::text,
			COALESCE(sum(i.tax_total), 0)::text,
			COALESCE(sum(i.grand_total), 0)::text
		FROM invoices i WHERE `+cond+`
		GROUP BY day ORDER BY day`, args...)
	if err != nil {
		return nil, fmt.Errorf("sales by day: %w", err)
	}
	defer rows.Close()

	out := []SalesByDay{}
	for rows.Next() {
		var (
			row                         SalesByDay
			gross, discount, tax, sales string
		)
		if err := rows.Scan(&row.Day, &row.Invoices, &gross, &discount, &tax, &sales); err != nil {
			return nil, fmt.Errorf("scan sales row: %w", err)
		}
		if row.GrossTotal, err = parseDec(gross); err != nil {
			return nil, err
		}
		if row.DiscountTotal, err = parseDec(discount); err != nil {
			return nil, err
		}
		if row.TaxTotal, err = parseDec(tax); err != nil {
			return nil, err
		}
		if row.SalesTotal, err = parseDec(sales); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// TopProducts ranks products by sales amount within the range.
func (q *PGQueries) TopProducts(ctx context.Context, r Range, limit int) ([]TopProduct, error) {
	cond, args := rangeArgs(r)
	args = append(args, limit)
	rows, err := q.DB.Query(ctx, fmt.Sprintf(`
		SELECT it.product_id, it.product_name,
			COALESCE(sum(it.quantity), 0)::text,
			COALESCE(sum(it.line_total), 0)::text
		FROM invoice_items it
		JOIN invoices i ON i.id = it.invoice_id
		WHERE %s
		GROUP BY it.product_id, it.product_name
		ORDER BY sum(it.line_total) DESC
		LIMIT $%d`, cond, len(args)), args...)
	if err != nil {
		return nil, fmt.Errorf("top products: %w", err)
	}
	defer rows.Close()

	out := []TopProduct{}
	for rows.Next() {
		var (
			row        TopProduct
			qty, sales string
		)
		if err := rows.Scan(&row.ProductID, &row.ProductName, &qty, &sales); err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		if row.Quantity, err = parseDec(qty); err != nil {
			return nil, err
		}
		if row.SalesTotal, err = parseDec(sales); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// TopCustomers ranks customers by sales amount within the range.
func (q *PGQueries) TopCustomers(ctx context.Context, r Range, limit int) ([]TopCustomer, error) {
	cond, args := rangeArgs(r)
	args = append(args, limit)
	rows, err := q.DB.Query(ctx, fmt.Sprintf(`
		SELECT c.id, c.name, count(*),
			COALESCE(sum(i.grand_total), 0)::text
		FROM invoices i
		JOIN customers c ON c.id = i.customer_id
		WHERE %s
		GROUP BY c.id, c.name
		ORDER BY sum(i.grand_total) DESC
		LIMIT $%d`, cond, len(args)), args...)
	if err != nil {
		return nil, fmt.Errorf("top customers: %w", err)
	}
	defer rows.Close()

	out := []TopCustomer{}
	for rows.Next() {
		var (
			row   TopCustomer
			sales string
		)
		if err := rows.Scan(&row.CustomerID, &row.CustomerName, &row.Invoices, &sales); err != nil {
			return nil, fmt.Errorf("scan customer row: %w", err)
		}
		if row.SalesTotal, err = parseDec(sales); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// TaxSummary groups issued GST invoice lines by tax rate. The CGST and
// SGST halves split the line tax evenly.
func (q *PGQueries) TaxSummary(ctx context.Context, r Range) ([]TaxBracket, error) {
	cond, args := rangeArgs(r)
	rows, err := q.DB.Query(ctx, `
		SELECT it.tax_rate::text,
			COALESCE(sum(it.taxable_amount), 0)::text,
			COALESCE(sum(it.tax_amount), 0)::text
		FROM invoice_items it
		JOIN invoices i ON i.id = it.invoice_id
		WHERE `+cond+` AND i.bill_type = 'GST'
		GROUP BY it.tax_rate ORDER BY it.tax_rate`, args...)
	if err != nil {
		return nil, fmt.Errorf("tax summary: %w", err)
	}
	defer rows.Close()

	two := decimal.NewFromInt(2)
	out := []TaxBracket{}
	for rows.Next() {
		var rate, taxable, tax string
		if err := rows.Scan(&rate, &taxable, &tax); err != nil {
			return nil, fmt.Errorf("scan tax row: %w", err)
		}
		var row TaxBracket
		if row.TaxRate, err = parseDec(rate); err != nil {
			return nil, err
		}
		if row.TaxableAmount, err = parseDec(taxable); err != nil {
			return nil, err
		}
		if row.TaxAmount, err = parseDec(tax); err != nil {
			return nil, err
		}
		row.CGSTAmount = row.TaxAmount.Div(two)
		row.SGSTAmount = row.TaxAmount.Div(two)
		out = append(out, row)
	}
	return out, rows.Err()
}
