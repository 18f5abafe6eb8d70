// Package customer keeps the buyer directory. Rows are keyed by email
// and upserted at checkout time so guest and returning purchases fold
// into one record. The Stripe customer id is stored after the first
// session so later checkouts reuse it.
package customer

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("customer not found")

type Customer struct {
	ID               int64     `json:"id"`
	AuthUserID       string    `json:"authUserId"`
	Email            string    `json:"email"`
	FullName         string    `json:"fullName"`
	StripeCustomerID string    `json:"stripeCustomerId"`
	AcceptsMarketing bool      `json:"acceptsMarketing"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

type Repository interface {
	// UpsertByEmail inserts or refreshes the row for c.Email and returns
	// the stored record, including any Stripe customer id saved earlier.
	UpsertByEmail(ctx context.Context, c Customer) (Customer, error)

	SetStripeCustomerID(ctx context.Context, id int64, stripeCustomerID string) error

	FindByAuthUserID(ctx context.Context, authUserID string) (Customer, error)
}
