package billing

import (
	"context"

	stripe "github.com/stripe/stripe-go/v76"
)

// SessionLine is one purchasable line forwarded to the hosted payment page.
type SessionLine struct {
	PriceID  string
	Quantity int64
}

// SessionParams describes the hosted checkout session to create for an
// order that was just written.
type SessionParams struct {
	OrderID          string
	CustomerID       string // Stripe customer id, may be empty
	CustomerEmail    string
	CouponID         string // Stripe coupon id, may be empty
	SuccessURL       string
	CancelURL        string
	Lines            []SessionLine
	AllowedCountries []string
}

// Gateway is the payment-processor surface the checkout pipeline and the
// webhook reconciler depend on. It is constructed once at startup with the
// credentials resolved from configuration; nothing reads the environment
// after that.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, p SessionParams) (*stripe.CheckoutSession, error)
	RetrieveCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error)
	// RetrieveChargeForPaymentIntent resolves the latest charge of a
	// payment intent, expanded in a single API call.
	RetrieveChargeForPaymentIntent(ctx context.Context, paymentIntentID string) (*stripe.Charge, error)
	// RetrieveChargeWithRefunds loads a charge with its refund list.
	RetrieveChargeWithRefunds(ctx context.Context, chargeID string) (*stripe.Charge, error)
	CreateCustomer(ctx context.Context, email string, metadata map[string]string) (*stripe.Customer, error)
}
