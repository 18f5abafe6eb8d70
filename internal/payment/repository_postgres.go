package payment

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const paymentColumns = `
        id, order_id, transaction_id, amount, amount_refunded, currency_code,
        status, COALESCE(card_brand, ''), COALESCE(card_last4, ''),
        COALESCE(receipt_url, ''), COALESCE(failure_code, ''),
        COALESCE(failure_message, ''), created_at, updated_at`

func (r *PostgresRepository) InsertIfAbsent(ctx context.Context, p Payment) (Payment, bool, error) {
	res, err := r.db.ExecContext(ctx, `
        INSERT INTO payments (
            order_id, transaction_id, amount, amount_refunded, currency_code,
            status, card_brand, card_last4, receipt_url, created_at, updated_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
        ON CONFLICT (transaction_id) DO NOTHING`,
		p.OrderID, p.TransactionID, p.Amount, p.AmountRefunded, p.CurrencyCode,
		string(p.Status), nullIfEmpty(p.CardBrand), nullIfEmpty(p.CardLast4),
		nullIfEmpty(p.ReceiptURL), p.CreatedAt)
	if err != nil {
		return Payment{}, false, fmt.Errorf("insert payment %s: %w", p.TransactionID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Payment{}, false, fmt.Errorf("insert payment %s: %w", p.TransactionID, err)
	}
	stored, err := r.FindByTransactionID(ctx, p.TransactionID)
	if err != nil {
		return Payment{}, false, err
	}
	return stored, n > 0, nil
}

func (r *PostgresRepository) FindByTransactionID(ctx context.Context, transactionID string) (Payment, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT `+paymentColumns+`
        FROM payments
        WHERE transaction_id = $1`,
		transactionID)
	return scanPayment(row)
}

func (r *PostgresRepository) ApplyRefund(ctx context.Context, paymentID int64, amountRefunded int64, status Status, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
        UPDATE payments
        SET amount_refunded = $1, status = $2, updated_at = $3
        WHERE id = $4`,
		amountRefunded, string(status), at, paymentID)
	if err != nil {
		return fmt.Errorf("apply refund to payment %d: %w", paymentID, err)
	}
	return nil
}

func (r *PostgresRepository) InsertRefundIfAbsent(ctx context.Context, rf Refund) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
        INSERT INTO refunds (payment_id, stripe_refund_id, amount, reason, created_at)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (stripe_refund_id) DO NOTHING`,
		rf.PaymentID, rf.StripeRefundID, rf.Amount, nullIfEmpty(rf.Reason), rf.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("insert refund %s: %w", rf.StripeRefundID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert refund %s: %w", rf.StripeRefundID, err)
	}
	return n > 0, nil
}

func (r *PostgresRepository) MarkFailed(ctx context.Context, transactionID, failureCode, failureMessage string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
        UPDATE payments
        SET status = $1, failure_code = $2, failure_message = $3, updated_at = $4
        WHERE transaction_id = $5`,
		string(StatusFailed), nullIfEmpty(failureCode), nullIfEmpty(failureMessage), at, transactionID)
	if err != nil {
		return fmt.Errorf("mark payment %s failed: %w", transactionID, err)
	}
	return nil
}

func scanPayment(row *sql.Row) (Payment, error) {
	var p Payment
	err := row.Scan(
		&p.ID, &p.OrderID, &p.TransactionID, &p.Amount, &p.AmountRefunded,
		&p.CurrencyCode, &p.Status, &p.CardBrand, &p.CardLast4,
		&p.ReceiptURL, &p.FailureCode, &p.FailureMessage,
		&p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return Payment{}, ErrNotFound
	}
	if err != nil {
		return Payment{}, fmt.Errorf("scan payment: %w", err)
	}
	return p, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
