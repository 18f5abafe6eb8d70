package order

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("order not found")
)

// MarkPaidParams carries everything the reconciler learned from a
// completed payment session.
type MarkPaidParams struct {
	PaymentStatus                        string
	ShippingAddress                      Address
	BillingAddress                       Address
	BillingAddressMatchesShippingAddress bool
	SubtotalPrice                        int64
	DiscountTotal                        int64
	TaxTotal                             int64
	ShippingTotal                        int64
	TotalPrice                           int64
	PaidAt                               time.Time
}

// Repository persists orders and their line snapshots.
type Repository interface {
	// CreateWithLines inserts the order and all of its lines in one
	// transaction; either everything commits or nothing does.
	CreateWithLines(ctx context.Context, o Order, lines []Line) error
	// FindPendingByIdempotencyKey returns the owner's pending order with
	// this idempotency key, or ErrNotFound. This is the checkout
	// short-circuit; the unique constraint on the key is the guarantee.
	FindPendingByIdempotencyKey(ctx context.Context, authUserID, key string) (Order, error)
	// FindBySessionID locates an order by its payment-session reference.
	FindBySessionID(ctx context.Context, sessionID string) (Order, error)
	// UpdateSession links a freshly created payment session to the order.
	UpdateSession(ctx context.Context, orderID, sessionID, sessionURL, paymentStatus string) error
	// MarkPaid applies the paid transition with the session-reported
	// amounts and address snapshots.
	MarkPaid(ctx context.Context, orderID string, p MarkPaidParams) error
	// MarkCancelledBySession cancels the order linked to the session and
	// returns it (for cart re-stamping), or ErrNotFound.
	MarkCancelledBySession(ctx context.Context, sessionID, paymentStatus string, at time.Time) (Order, error)
	// ApplyRefund records the refunded total and moves the financial
	// status; a full refund also moves the order status.
	ApplyRefund(ctx context.Context, orderID string, amountRefunded int64, fullyRefunded bool, at time.Time) error
	// CountPendingByClientIP counts pending orders created from this IP
	// since the cutoff (per-IP pending-session abuse limit).
	CountPendingByClientIP(ctx context.Context, clientIP string, since time.Time) (int64, error)
}
