package customer

import (
	"context"
	"database/sql"
	"fmt"
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const customerColumns = `
        id, COALESCE(auth_user_id, ''), email, COALESCE(full_name, ''),
        COALESCE(stripe_customer_id, ''), accepts_marketing, created_at, updated_at`

func (r *PostgresRepository) UpsertByEmail(ctx context.Context, c Customer) (Customer, error) {
	row := r.db.QueryRowContext(ctx, `
        INSERT INTO customers (auth_user_id, email, full_name, accepts_marketing, created_at, updated_at)
        VALUES ($1, $2, NULLIF($3, ''), $4, $5, $5)
        ON CONFLICT (email) DO UPDATE
        SET auth_user_id = EXCLUDED.auth_user_id,
            full_name = COALESCE(EXCLUDED.full_name, customers.full_name),
            accepts_marketing = EXCLUDED.accepts_marketing,
            updated_at = EXCLUDED.updated_at
        RETURNING `+customerColumns,
		nullIfEmpty(c.AuthUserID), c.Email, c.FullName, c.AcceptsMarketing, c.CreatedAt)
	return scanCustomer(row)
}

func (r *PostgresRepository) SetStripeCustomerID(ctx context.Context, id int64, stripeCustomerID string) error {
	_, err := r.db.ExecContext(ctx, `
        UPDATE customers SET stripe_customer_id = $1, updated_at = NOW()
        WHERE id = $2 AND stripe_customer_id IS NULL`,
		stripeCustomerID, id)
	if err != nil {
		return fmt.Errorf("set stripe customer id for customer %d: %w", id, err)
	}
	return nil
}

func (r *PostgresRepository) FindByAuthUserID(ctx context.Context, authUserID string) (Customer, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT `+customerColumns+`
        FROM customers
        WHERE auth_user_id = $1`,
		authUserID)
	return scanCustomer(row)
}

func scanCustomer(row *sql.Row) (Customer, error) {
	var c Customer
	err := row.Scan(
		&c.ID, &c.AuthUserID, &c.Email, &c.FullName,
		&c.StripeCustomerID, &c.AcceptsMarketing, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return Customer{}, ErrNotFound
	}
	if err != nil {
		return Customer{}, fmt.Errorf("scan customer: %w", err)
	}
	return c, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
