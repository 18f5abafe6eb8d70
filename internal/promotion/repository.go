package promotion

import (
	"context"
	"errors"
)

var (
	// ErrNotFound covers an unknown code, an inactive promotion, and a
	// promotion with no processor coupon linkage: none of them can be
	// attached to a payment session.
	ErrNotFound = errors.New("promotion not found")
)

// Repository provides promotion lookups and the usage counts the
// validator needs.
type Repository interface {
	// FindByCode returns the promotion with this exact code, or ErrNotFound.
	FindByCode(ctx context.Context, code string) (Promotion, error)
	// FindBest returns the highest-value active promotion with a processor
	// coupon linkage, or ErrNotFound when none exists.
	FindBest(ctx context.Context) (Promotion, error)
	// CountRedemptions counts recorded redemptions of the promotion.
	CountRedemptions(ctx context.Context, promotionID int64) (int64, error)
	// CountPaidOrdersByClientIP counts paid orders bearing this promotion
	// code that came from the given client IP. This approximates a
	// per-customer cap using IP as a proxy; shared IPs over-count.
	CountPaidOrdersByClientIP(ctx context.Context, clientIP, code string) (int64, error)
	// InsertRedemption records that an order redeemed the promotion.
	// At most one redemption per order; replays are no-ops.
	InsertRedemption(ctx context.Context, promotionID int64, orderID string) error
}
