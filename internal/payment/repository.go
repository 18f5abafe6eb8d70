package payment

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("payment not found")

// Repository persists payments and refunds. Insert operations are
// idempotent on the provider-assigned ids so replayed webhook events
// never produce duplicate rows.
type Repository interface {
	// InsertIfAbsent writes p unless a payment with the same transaction
	// id already exists. It returns the stored row either way; inserted
	// reports whether this call created it.
	InsertIfAbsent(ctx context.Context, p Payment) (stored Payment, inserted bool, err error)

	FindByTransactionID(ctx context.Context, transactionID string) (Payment, error)

	// ApplyRefund updates the running refunded amount and status on the
	// payment row.
	ApplyRefund(ctx context.Context, paymentID int64, amountRefunded int64, status Status, at time.Time) error

	// InsertRefundIfAbsent writes a refund row unless one with the same
	// provider refund id exists. inserted reports whether a row was
	// created.
	InsertRefundIfAbsent(ctx context.Context, r Refund) (inserted bool, err error)

	MarkFailed(ctx context.Context, transactionID, failureCode, failureMessage string, at time.Time) error
}
