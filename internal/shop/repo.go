package shop

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when no shop matches the given id.
var ErrNotFound = errors.New("shop not found")

var sortColumns = map[string]string{
	"name":       "name",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

// Repository provides persistence for shops.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository builds a shop repository over the pool.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const shopColumns = `id, name, address, phone, email, gstin, state, invoice_prefix, created_at, updated_at`

func scanShop(row pgx.Row) (Shop, error) {
	var s Shop
	err := row.Scan(&s.ID, &s.Name, &s.Address, &s.Phone, &s.Email, &s.GSTIN, &s.State, &s.InvoicePrefix, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

// Create inserts a shop and returns the stored row.
func (r *Repository) Create(ctx context.Context, in CreateInput) (Shop, error) {
	prefix := "INV"
	if in.InvoicePrefix != nil {
		prefix = *in.InvoicePrefix
	}
	row := r.db.QueryRow(ctx, `
		INSERT INTO shops (name, address, phone, email, gstin, state, invoice_prefix)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+shopColumns,
		in.Name, in.Address, in.Phone, in.Email, in.GSTIN, in.State, prefix,
	)
	s, err := scanShop(row)
	if err != nil {
		return Shop{}, fmt.Errorf("insert shop: %w", err)
	}
	return s, nil
}

// GetByID fetches a single shop.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Shop, error) {
	row := r.db.QueryRow(ctx, `SELECT `+shopColumns+` FROM shops WHERE id = $1`, id)
	s, err := scanShop(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Shop{}, ErrNotFound
		}
		return Shop{}, fmt.Errorf("get shop: %w", err)
	}
	return s, nil
}

// List returns a filtered page of shops plus the total match count.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]Shop, int, error) {
	where := []string{"1=1"}
	args := []any{}
	idx := 1
	if s := strings.TrimSpace(f.Search); s != "" {
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR gstin ILIKE $%d)", idx, idx))
		args = append(args, "%"+s+"%")
		idx++
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM shops WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count shops: %w", err)
	}

	col, ok := sortColumns[f.Sort]
	if !ok {
		col = "created_at"
	}
	dir := "DESC"
	if strings.EqualFold(f.Order, "asc") {
		dir = "ASC"
	}
	query := fmt.Sprintf(`SELECT %s FROM shops WHERE %s ORDER BY %s %s LIMIT $%d OFFSET $%d`,
		shopColumns, cond, col, dir, idx, idx+1)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list shops: %w", err)
	}
	defer rows.Close()

	out := make([]Shop, 0, f.Limit)
	for rows.Next() {
		s, err := scanShop(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan shop: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate shops: %w", err)
	}
	return out, total, nil
}

// Update applies the non-nil fields and returns the updated row.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (Shop, error) {
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
	if in.Address != nil {
		assign("address", *in.Address)
	}
	if in.Phone != nil {
		assign("phone", *in.Phone)
	}
	if in.Email != nil {
		assign("email", *in.Email)
	}
	if in.GSTIN != nil {
		assign("gstin", *in.GSTIN)
	}
	if in.State != nil {
		assign("state", *in.State)
	}
	if in.InvoicePrefix != nil {
		assign("invoice_prefix", *in.InvoicePrefix)
	}

	query := fmt.Sprintf(`UPDATE shops SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), idx, shopColumns)
	args = append(args, id)

	s, err := scanShop(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Shop{}, ErrNotFound
		}
		return Shop{}, fmt.Errorf("update shop: %w", err)
	}
	return s, nil
}

// Delete removes a shop.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM shops WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete shop: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
