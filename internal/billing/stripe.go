package billing

import (
	"context"
	"fmt"

	stripe "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// StripeGateway implements Gateway on top of the official Stripe SDK.
type StripeGateway struct {
	api *client.API
}

var _ Gateway = (*StripeGateway)(nil)

// NewStripeGateway builds a gateway bound to a single secret key. The key
// (test or live) is decided once by configuration at process start.
func NewStripeGateway(secretKey string) *StripeGateway {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeGateway{api: api}
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, p SessionParams) (*stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Params:            stripe.Params{Context: ctx},
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(p.SuccessURL),
		CancelURL:         stripe.String(p.CancelURL),
		ClientReferenceID: stripe.String(p.OrderID),
		BillingAddressCollection: stripe.String(
			string(stripe.CheckoutSessionBillingAddressCollectionRequired),
		),
	}
	if p.CustomerID != "" {
		params.Customer = stripe.String(p.CustomerID)
	} else if p.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(p.CustomerEmail)
	}
	if len(p.AllowedCountries) > 0 {
		params.ShippingAddressCollection = &stripe.CheckoutSessionShippingAddressCollectionParams{
			AllowedCountries: stripe.StringSlice(p.AllowedCountries),
		}
	}
	for _, line := range p.Lines {
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			Price:    stripe.String(line.PriceID),
			Quantity: stripe.Int64(line.Quantity),
		})
	}
	if p.CouponID != "" {
		params.Discounts = []*stripe.CheckoutSessionDiscountParams{
			{Coupon: stripe.String(p.CouponID)},
		}
	}
	params.AddMetadata("order_id", p.OrderID)

	sess, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return sess, nil
}

func (g *StripeGateway) RetrieveCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{Params: stripe.Params{Context: ctx}}
	sess, err := g.api.CheckoutSessions.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("retrieve checkout session %s: %w", id, err)
	}
	return sess, nil
}

func (g *StripeGateway) RetrieveChargeForPaymentIntent(ctx context.Context, paymentIntentID string) (*stripe.Charge, error) {
	params := &stripe.PaymentIntentParams{Params: stripe.Params{Context: ctx}}
	params.AddExpand("latest_charge")
	intent, err := g.api.PaymentIntents.Get(paymentIntentID, params)
	if err != nil {
		return nil, fmt.Errorf("retrieve payment intent %s: %w", paymentIntentID, err)
	}
	if intent.LatestCharge == nil {
		return nil, fmt.Errorf("payment intent %s has no charge", paymentIntentID)
	}
	return intent.LatestCharge, nil
}

func (g *StripeGateway) RetrieveChargeWithRefunds(ctx context.Context, chargeID string) (*stripe.Charge, error) {
	params := &stripe.ChargeParams{Params: stripe.Params{Context: ctx}}
	params.AddExpand("refunds")
	charge, err := g.api.Charges.Get(chargeID, params)
	if err != nil {
		return nil, fmt.Errorf("retrieve charge %s: %w", chargeID, err)
	}
	return charge, nil
}

func (g *StripeGateway) CreateCustomer(ctx context.Context, email string, metadata map[string]string) (*stripe.Customer, error) {
	params := &stripe.CustomerParams{
		Params: stripe.Params{Context: ctx},
		Email:  stripe.String(email),
	}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	cust, err := g.api.Customers.New(params)
	if err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}
	return cust, nil
}
