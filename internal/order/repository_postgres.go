package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// UniqueViolation reports the violated constraint name when err is a
// Postgres unique-constraint error. The idempotency-key and order-number
// constraints are both handled through this.
func UniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return pgErr.ConstraintName, true
	}
	return "", false
}

const orderColumns = `id, order_number, idempotency_key, COALESCE(cart_hash, ''),
       auth_user_id, customer_id, status, financial_status, fulfillment_status,
       COALESCE(stripe_checkout_session_id, ''), COALESCE(stripe_checkout_session_url, ''),
       COALESCE(stripe_payment_status, ''),
       email, COALESCE(phone_number, ''), accepts_marketing,
       COALESCE(shipping_method, ''),
       COALESCE(promotion_id, 0), COALESCE(promotion_code, ''),
       locale, COALESCE(client_ip, ''),
       subtotal_price, discount_total, tax_total, shipping_total,
       additional_fees_total, total_price, refunded_total, currency_code,
       created_at, updated_at`

func (r *PostgresRepository) CreateWithLines(ctx context.Context, o Order, lines []Line) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin order transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
        INSERT INTO orders (
            id, order_number, idempotency_key, cart_hash,
            auth_user_id, customer_id, status, financial_status, fulfillment_status,
            email, phone_number, accepts_marketing,
            shipping_full_name, shipping_company, shipping_address_line_1, shipping_address_line_2,
            shipping_city, shipping_region_name, shipping_region_code, shipping_zip,
            shipping_country_name, shipping_country_code,
            billing_address_matches_shipping_address,
            billing_full_name, billing_company, billing_address_line_1, billing_address_line_2,
            billing_city, billing_region_name, billing_region_code, billing_zip,
            billing_country_name, billing_country_code,
            shipping_method,
            promotion_id, promotion_code, promotion_type, promotion_value, promotion_currency_code,
            locale, client_ip,
            subtotal_price, discount_total, tax_total, shipping_total,
            additional_fees_total, total_price, refunded_total, currency_code,
            created_at, updated_at
        ) VALUES (
            $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,
            $11,$12,$13,$14,$15,$16,$17,$18,$19,$20,
            $21,$22,$23,$24,$25,$26,$27,$28,$29,$30,
            $31,$32,$33,$34,$35,$36,$37,$38,$39,$40,
            $41,$42,$43,$44,$45,$46,$47,$48,$49,$50,
            $51
        )`,
		o.ID, o.OrderNumber, o.IdempotencyKey, o.CartHash,
		o.AuthUserID, o.CustomerID, o.Status, o.FinancialStatus, o.FulfillmentStatus,
		o.Email, nullIfEmpty(o.PhoneNumber), o.AcceptsMarketing,
		o.ShippingAddress.FullName, nullIfEmpty(o.ShippingAddress.Company),
		o.ShippingAddress.Line1, nullIfEmpty(o.ShippingAddress.Line2),
		o.ShippingAddress.City, nullIfEmpty(o.ShippingAddress.RegionName),
		nullIfEmpty(o.ShippingAddress.RegionCode), o.ShippingAddress.Zip,
		nullIfEmpty(o.ShippingAddress.CountryName), nullIfEmpty(o.ShippingAddress.CountryCode),
		o.BillingAddressMatchesShippingAddress,
		o.BillingAddress.FullName, nullIfEmpty(o.BillingAddress.Company),
		o.BillingAddress.Line1, nullIfEmpty(o.BillingAddress.Line2),
		o.BillingAddress.City, nullIfEmpty(o.BillingAddress.RegionName),
		nullIfEmpty(o.BillingAddress.RegionCode), o.BillingAddress.Zip,
		nullIfEmpty(o.BillingAddress.CountryName), nullIfEmpty(o.BillingAddress.CountryCode),
		nullIfEmpty(o.ShippingMethod),
		o.PromotionID, nullIfEmpty(o.PromotionCode), nullIfEmpty(o.PromotionType),
		o.PromotionValue, nullIfEmpty(o.PromotionCurrencyCode),
		o.Locale, nullIfEmpty(o.ClientIP),
		o.SubtotalPrice, o.DiscountTotal, o.TaxTotal, o.ShippingTotal,
		o.AdditionalFeesTotal, o.TotalPrice, o.RefundedTotal, o.CurrencyCode,
		o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, line := range lines {
		_, err = tx.ExecContext(ctx, `
            INSERT INTO order_products (
                order_id, product_variant_id, product_variant_name, product_variant_sku,
                product_variant_image_url, product_variant_image_alt_text,
                quantity, price, created_at, updated_at
            ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			o.ID, line.ProductVariantID, line.Name, nullIfEmpty(line.SKU),
			nullIfEmpty(line.ImageURL), nullIfEmpty(line.ImageAltText),
			line.Quantity, line.Price, o.CreatedAt, o.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert order line for variant %s: %w", line.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit order transaction: %w", err)
	}
	return nil
}

func (r *PostgresRepository) FindPendingByIdempotencyKey(ctx context.Context, authUserID, key string) (Order, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT `+orderColumns+`
        FROM orders
        WHERE auth_user_id = $1 AND idempotency_key = $2
          AND status = 'pending' AND financial_status = 'pending'
          AND fulfillment_status = 'unfulfilled'`,
		authUserID, key)
	return scanOrder(row)
}

func (r *PostgresRepository) FindBySessionID(ctx context.Context, sessionID string) (Order, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT `+orderColumns+`
        FROM orders
        WHERE stripe_checkout_session_id = $1`,
		sessionID)
	return scanOrder(row)
}

func (r *PostgresRepository) UpdateSession(ctx context.Context, orderID, sessionID, sessionURL, paymentStatus string) error {
	_, err := r.db.ExecContext(ctx, `
        UPDATE orders
        SET stripe_checkout_session_id = $1,
            stripe_checkout_session_url = $2,
            stripe_payment_status = $3,
            updated_at = now() AT TIME ZONE 'utc'
        WHERE id = $4`,
		sessionID, sessionURL, paymentStatus, orderID)
	if err != nil {
		return fmt.Errorf("link session to order %s: %w", orderID, err)
	}
	return nil
}

func (r *PostgresRepository) MarkPaid(ctx context.Context, orderID string, p MarkPaidParams) error {
	_, err := r.db.ExecContext(ctx, `
        UPDATE orders
        SET status = 'paid', financial_status = 'paid',
            stripe_payment_status = $1,
            shipping_full_name = $2, shipping_address_line_1 = $3, shipping_address_line_2 = $4,
            shipping_city = $5, shipping_region_code = $6, shipping_zip = $7, shipping_country_code = $8,
            billing_address_matches_shipping_address = $9,
            billing_full_name = $10, billing_address_line_1 = $11, billing_address_line_2 = $12,
            billing_city = $13, billing_region_code = $14, billing_zip = $15, billing_country_code = $16,
            subtotal_price = $17, discount_total = $18, tax_total = $19, shipping_total = $20,
            total_price = $21,
            paid_at = $22, updated_at = $22
        WHERE id = $23`,
		p.PaymentStatus,
		p.ShippingAddress.FullName, p.ShippingAddress.Line1, nullIfEmpty(p.ShippingAddress.Line2),
		p.ShippingAddress.City, nullIfEmpty(p.ShippingAddress.RegionCode),
		p.ShippingAddress.Zip, nullIfEmpty(p.ShippingAddress.CountryCode),
		p.BillingAddressMatchesShippingAddress,
		p.BillingAddress.FullName, p.BillingAddress.Line1, nullIfEmpty(p.BillingAddress.Line2),
		p.BillingAddress.City, nullIfEmpty(p.BillingAddress.RegionCode),
		p.BillingAddress.Zip, nullIfEmpty(p.BillingAddress.CountryCode),
		p.SubtotalPrice, p.DiscountTotal, p.TaxTotal, p.ShippingTotal,
		p.TotalPrice,
		p.PaidAt, orderID)
	if err != nil {
		return fmt.Errorf("mark order %s paid: %w", orderID, err)
	}
	return nil
}

func (r *PostgresRepository) MarkCancelledBySession(ctx context.Context, sessionID, paymentStatus string, at time.Time) (Order, error) {
	row := r.db.QueryRowContext(ctx, `
        UPDATE orders
        SET status = 'cancelled', financial_status = 'voided',
            stripe_payment_status = $1, cancelled_at = $2, updated_at = $2
        WHERE stripe_checkout_session_id = $3
        RETURNING `+orderColumns,
		paymentStatus, at, sessionID)
	return scanOrder(row)
}

func (r *PostgresRepository) ApplyRefund(ctx context.Context, orderID string, amountRefunded int64, fullyRefunded bool, at time.Time) error {
	query := `
        UPDATE orders
        SET financial_status = $1, refunded_total = $2, refunded_at = $3, updated_at = $3
        WHERE id = $4`
	status := FinancialPartiallyRefunded
	if fullyRefunded {
		status = FinancialRefunded
		query = `
        UPDATE orders
        SET status = 'refunded', financial_status = $1, refunded_total = $2, refunded_at = $3, updated_at = $3
        WHERE id = $4`
	}
	if _, err := r.db.ExecContext(ctx, query, status, amountRefunded, at, orderID); err != nil {
		return fmt.Errorf("apply refund to order %s: %w", orderID, err)
	}
	return nil
}

func (r *PostgresRepository) CountPendingByClientIP(ctx context.Context, clientIP string, since time.Time) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `
        SELECT COUNT(*) FROM orders
        WHERE financial_status = 'pending' AND client_ip = $1 AND created_at >= $2`,
		clientIP, since,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count pending orders for ip %s: %w", clientIP, err)
	}
	return n, nil
}

func scanOrder(row *sql.Row) (Order, error) {
	var o Order
	var customerID, promotionID sql.NullInt64
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.IdempotencyKey, &o.CartHash,
		&o.AuthUserID, &customerID, &o.Status, &o.FinancialStatus, &o.FulfillmentStatus,
		&o.StripeCheckoutSessionID, &o.StripeCheckoutSessionURL, &o.StripePaymentStatus,
		&o.Email, &o.PhoneNumber, &o.AcceptsMarketing,
		&o.ShippingMethod,
		&promotionID, &o.PromotionCode,
		&o.Locale, &o.ClientIP,
		&o.SubtotalPrice, &o.DiscountTotal, &o.TaxTotal, &o.ShippingTotal,
		&o.AdditionalFeesTotal, &o.TotalPrice, &o.RefundedTotal, &o.CurrencyCode,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, fmt.Errorf("scan order: %w", err)
	}
	if customerID.Valid {
		o.CustomerID = &customerID.Int64
	}
	if promotionID.Valid && promotionID.Int64 != 0 {
		o.PromotionID = &promotionID.Int64
	}
	return o, nil
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
