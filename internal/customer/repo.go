package customer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when no customer matches the given id.
var ErrNotFound = errors.New("customer not found")

// ErrDuplicatePhone is returned when a phone number is already registered
// for the shop.
var ErrDuplicatePhone = errors.New("customer phone already registered for shop")

var sortColumns = map[string]string{
	"name":       "name",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

// Repository provides persistence for customers.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository builds a customer repository over the pool.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const customerColumns = `id, shop_id, name, phone, email, address, gstin, created_at, updated_at`

func scanCustomer(row pgx.Row) (Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.ShopID, &c.Name, &c.Phone, &c.Email, &c.Address, &c.GSTIN, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// Create inserts a customer and returns the stored row.
func (r *Repository) Create(ctx context.Context, shopID uuid.UUID, in CreateInput) (Customer, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO customers (shop_id, name, phone, email, address, gstin)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+customerColumns,
		shopID, in.Name, in.Phone, in.Email, in.Address, in.GSTIN,
	)
	c, err := scanCustomer(row)
	if err != nil {
		if isUniqueViolation(err) {
			return Customer{}, ErrDuplicatePhone
		}
		return Customer{}, fmt.Errorf("insert customer: %w", err)
	}
	return c, nil
}

// GetByID fetches a single customer.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Customer, error) {
	row := r.db.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id)
	c, err := scanCustomer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Customer{}, ErrNotFound
		}
		return Customer{}, fmt.Errorf("get customer: %w", err)
	}
	return c, nil
}

// List returns a filtered page of customers plus the total match count.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]Customer, int, error) {
	where := []string{"1=1"}
	args := []any{}
	idx := 1
	if f.ShopID != nil {
		where = append(where, fmt.Sprintf("shop_id = $%d", idx))
		args = append(args, *f.ShopID)
		idx++
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR phone ILIKE $%d OR email ILIKE $%d)", idx, idx, idx))
		args = append(args, "%"+s+"%")
		idx++
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM customers WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count customers: %w", err)
	}

	col, ok := sortColumns[f.Sort]
	if !ok {
		col = "created_at"
	}
	dir := "DESC"
	if strings.EqualFold(f.Order, "asc") {
		dir = "ASC"
	}
	query := fmt.Sprintf(`SELECT %s FROM customers WHERE %s ORDER BY %s %s LIMIT $%d OFFSET $%d`,
		customerColumns, cond, col, dir, idx, idx+1)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	out := make([]Customer, 0, f.Limit)
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan customer: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate customers: %w", err)
	}
	return out, total, nil
}

// Update applies the non-nil fields of in and returns the updated row.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (Customer, error) {
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
	if in.Phone != nil {
		assign("phone", *in.Phone)
	}
	if in.Email != nil {
		assign("email", *in.Email)
	}
	if in.Address != nil {
		assign("address", *in.Address)
	}
	if in.GSTIN != nil {
		assign("gstin", *in.GSTIN)
	}

	query := fmt.Sprintf(`UPDATE customers SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), idx, customerColumns)
	args = append(args, id)

	c, err := scanCustomer(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Customer{}, ErrNotFound
		}
		if isUniqueViolation(err) {
			return Customer{}, ErrDuplicatePhone
		}
		return Customer{}, fmt.Errorf("update customer: %w", err)
	}
	return c, nil
}

// Delete removes a customer.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete customer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
