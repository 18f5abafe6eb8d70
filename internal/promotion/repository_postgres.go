package promotion

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

const promotionColumns = `id, code, COALESCE(description, ''), type, value,
       COALESCE(currency_code, ''), COALESCE(stripe_coupon_id, ''),
       usage_limit, usage_limit_per_customer, starts_at, ends_at, is_active`

func (r *PostgresRepository) FindByCode(ctx context.Context, code string) (Promotion, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+promotionColumns+` FROM promotions WHERE code = $1`, code)
	return scanPromotion(row)
}

func (r *PostgresRepository) FindBest(ctx context.Context) (Promotion, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+promotionColumns+`
         FROM promotions
         WHERE is_active = TRUE AND stripe_coupon_id IS NOT NULL
         ORDER BY value DESC
         LIMIT 1`)
	return scanPromotion(row)
}

func (r *PostgresRepository) CountRedemptions(ctx context.Context, promotionID int64) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM promotion_redemptions WHERE promotion_id = $1`, promotionID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count redemptions for promotion %d: %w", promotionID, err)
	}
	return n, nil
}

func (r *PostgresRepository) CountPaidOrdersByClientIP(ctx context.Context, clientIP, code string) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM orders
         WHERE client_ip = $1 AND promotion_code = $2 AND financial_status = 'paid'`,
		clientIP, code,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count paid orders for ip %s: %w", clientIP, err)
	}
	return n, nil
}

func (r *PostgresRepository) InsertRedemption(ctx context.Context, promotionID int64, orderID string) error {
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO promotion_redemptions (promotion_id, order_id, redeemed_at)
        VALUES ($1, $2, NOW())
        ON CONFLICT (order_id) DO NOTHING`,
		promotionID, orderID)
	if err != nil {
		return fmt.Errorf("insert redemption for promotion %d: %w", promotionID, err)
	}
	return nil
}

func scanPromotion(row *sql.Row) (Promotion, error) {
	var p Promotion
	var usageLimit, usageLimitPerCustomer sql.NullInt64
	var startsAt, endsAt sql.NullTime
	err := row.Scan(
		&p.ID, &p.Code, &p.Description, &p.Type, &p.Value,
		&p.CurrencyCode, &p.StripeCouponID,
		&usageLimit, &usageLimitPerCustomer, &startsAt, &endsAt, &p.IsActive,
	)
	if err == sql.ErrNoRows {
		return Promotion{}, ErrNotFound
	}
	if err != nil {
		return Promotion{}, fmt.Errorf("scan promotion: %w", err)
	}
	if usageLimit.Valid {
		p.UsageLimit = &usageLimit.Int64
	}
	if usageLimitPerCustomer.Valid {
		p.UsageLimitPerCustomer = &usageLimitPerCustomer.Int64
	}
	if startsAt.Valid {
		p.StartsAt = &startsAt.Time
	}
	if endsAt.Valid {
		p.EndsAt = &endsAt.Time
	}
	return p, nil
}
