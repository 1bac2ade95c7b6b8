package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when no product matches the given id.
var ErrNotFound = errors.New("product not found")

// ErrDuplicateSKU is returned when a SKU is already registered for the shop.
var ErrDuplicateSKU = errors.New("product sku already registered for shop")

var sortColumns = map[string]string{
	"name":        "name",
	"retail_rate": "retail_rate",
	"created_at":  "created_at",
	"updated_at":  "updated_at",
}

// Repository provides persistence for products. Money columns travel as
// text so numeric values survive the round trip without float conversion.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository builds a product repository over the pool.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const productColumns = `id, shop_id, name, sku, hsn_code, description,
	retail_rate::text, wholesale_rate::text, purchase_rate::text,
	tax_rate::text, cess_rate::text, stock_quantity::text,
	unit, active, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var (
		p                                                  Product
		retail, wholesale, purchase, tax, cess, stockQty string
	)
	err := row.Scan(&p.ID, &p.ShopID, &p.Name, &p.SKU, &p.HSNCode, &p.Description,
		&retail, &wholesale, &purchase, &tax, &cess, &stockQty,
		&p.Unit, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Product{}, err
	}
	for _, pair := range []struct {
		dst *decimal.Decimal
		src string
	}{
		{&p.RetailRate, retail},
		{&p.WholesaleRate, wholesale},
		{&p.PurchaseRate, purchase},
		{&p.TaxRate, tax},
		{&p.CessRate, cess},
		{&p.StockQuantity, stockQty},
	} {
		d, err := decimal.NewFromString(pair.src)
		if err != nil {
			return Product{}, fmt.Errorf("parse numeric %q: %w", pair.src, err)
		}
		*pair.dst = d
	}
	return p, nil
}

// Create inserts a product and returns the stored row.
func (r *Repository) Create(ctx context.Context, shopID uuid.UUID, in CreateInput, rates RateSet) (Product, error) {
	unit := in.Unit
	if strings.TrimSpace(unit) == "" {
		unit = "pcs"
	}
	row := r.db.QueryRow(ctx, `
		INSERT INTO products (shop_id, name, sku, hsn_code, description,
			retail_rate, wholesale_rate, purchase_rate, tax_rate, cess_rate,
			stock_quantity, unit)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING `+productColumns,
		shopID, in.Name, in.SKU, in.HSNCode, in.Description,
		rates.Retail.String(), rates.Wholesale.String(), rates.Purchase.String(),
		rates.Tax.String(), rates.Cess.String(), rates.Stock.String(), unit,
	)
	p, err := scanProduct(row)
	if err != nil {
		if isUniqueViolation(err) {
			return Product{}, ErrDuplicateSKU
		}
		return Product{}, fmt.Errorf("insert product: %w", err)
	}
	return p, nil
}

// GetByID fetches a single product.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Product, error) {
	row := r.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// GetByIDs fetches multiple products in one query. Missing ids are simply
// absent from the result.
func (r *Repository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.db.Query(ctx, `SELECT `+productColumns+` FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}
	defer rows.Close()

	out := make([]Product, 0, len(ids))
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return out, nil
}

// List returns a filtered page of products plus the total match count.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]Product, int, error) {
	where := []string{"1=1"}
	args := []any{}
	idx := 1
	if f.ShopID != nil {
		where = append(where, fmt.Sprintf("shop_id = $%d", idx))
		args = append(args, *f.ShopID)
		idx++
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR sku ILIKE $%d OR hsn_code ILIKE $%d)", idx, idx, idx))
		args = append(args, "%"+s+"%")
		idx++
	}
	if f.ActiveOnly {
		where = append(where, "active")
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM products WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	col, ok := sortColumns[f.Sort]
	if !ok {
		col = "created_at"
	}
	dir := "DESC"
	if strings.EqualFold(f.Order, "asc") {
		dir = "ASC"
	}
	query := fmt.Sprintf(`SELECT %s FROM products WHERE %s ORDER BY %s %s LIMIT $%d OFFSET $%d`,
		productColumns, cond, col, dir, idx, idx+1)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	out := make([]Product, 0, f.Limit)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate products: %w", err)
	}
	return out, total, nil
}

// Update applies the non-nil fields and returns the updated row.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, in UpdateInput, rates RateUpdates) (Product, error) {
	sets := []string{"updated_at = now()"}
	args := []any{}
	idx := 1
	assign := func(col string, v any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, idx))
		args = append(args, v)
		idx++
	}
	if in.Name != nil {
		assign("name", *in.Name)
	}
	if in.SKU != nil {
		assign("sku", *in.SKU)
	}
	if in.HSNCode != nil {
		assign("hsn_code", *in.HSNCode)
	}
	if in.Description != nil {
		assign("description", *in.Description)
	}
	if rates.Retail != nil {
		assign("retail_rate", rates.Retail.String())
	}
	if rates.Wholesale != nil {
		assign("wholesale_rate", rates.Wholesale.String())
	}
	if rates.Purchase != nil {
		assign("purchase_rate", rates.Purchase.String())
	}
	if rates.Tax != nil {
		assign("tax_rate", rates.Tax.String())
	}
	if rates.Cess != nil {
		assign("cess_rate", rates.Cess.String())
	}
	if rates.Stock != nil {
		assign("stock_quantity", rates.Stock.String())
	}
	if in.Unit != nil {
		assign("unit", *in.Unit)
	}
	if in.Active != nil {
		assign("active", *in.Active)
	}

	query := fmt.Sprintf(`UPDATE products SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), idx, productColumns)
	args = append(args, id)

	p, err := scanProduct(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		if isUniqueViolation(err) {
			return Product{}, ErrDuplicateSKU
		}
		return Product{}, fmt.Errorf("update product: %w", err)
	}
	return p, nil
}

// AdjustStock decrements stock for a sold quantity. Stock may go negative;
// oversell is reported, not blocked.
func (r *Repository) AdjustStock(ctx context.Context, id uuid.UUID, delta decimal.Decimal) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE products SET stock_quantity = stock_quantity + $1::numeric, updated_at = now() WHERE id = $2`,
		delta.String(), id)
	if err != nil {
		return fmt.Errorf("adjust stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete deactivates a product. Rows are kept because invoice items
// reference them.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `UPDATE products SET active = FALSE, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deactivate product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RateSet carries validated decimal rates for an insert.
type RateSet struct {
	Retail    decimal.Decimal
	Wholesale decimal.Decimal
	Purchase  decimal.Decimal
	Tax       decimal.Decimal
	Cess      decimal.Decimal
	Stock     decimal.Decimal
}

// RateUpdates carries optional decimal rates for an update.
type RateUpdates struct {
	Retail    *decimal.Decimal
	Wholesale *decimal.Decimal
	Purchase  *decimal.Decimal
	Tax       *decimal.Decimal
	Cess      *decimal.Decimal
	Stock     *decimal.Decimal
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
