package cart

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound means the owner has no cart row at all.
	ErrNotFound = errors.New("cart not found")
)

// Checkout loads at most this many lines; a cart larger than this is not a
// realistic storefront cart.
const MaxCheckoutLines = 500

// Repository provides access to carts and their lines.
type Repository interface {
	// FindByOwner returns the owner's cart or ErrNotFound.
	FindByOwner(ctx context.Context, authUserID string) (Cart, error)
	// Lines returns up to limit lines joined with current variant pricing
	// and the variant's primary image.
	Lines(ctx context.Context, cartID string, limit int) ([]Line, error)
	// ClearLines deletes every line of the cart.
	ClearLines(ctx context.Context, cartID string) error
	// Touch re-stamps the cart's updatedAt. Called after purchase or
	// session expiry so the next idempotency key differs.
	Touch(ctx context.Context, authUserID string, at time.Time) error
}
