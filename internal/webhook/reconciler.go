package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	stripe "github.com/stripe/stripe-go/v76"

	"github.com/aurelle/shop-backend/internal/billing"
	"github.com/aurelle/shop-backend/internal/cart"
	"github.com/aurelle/shop-backend/internal/order"
	"github.com/aurelle/shop-backend/internal/payment"
	"github.com/aurelle/shop-backend/internal/promotion"
)

// Reconciler applies verified payment-processor events to local state.
// Every step is idempotent: orders are only moved forward, payment and
// refund inserts dedupe on processor ids, so replaying an event is safe.
type Reconciler struct {
	orders   order.Repository
	payments payment.Repository
	promos   promotion.Repository
	carts    *cart.Service
	gateway  billing.Gateway
	now      func() time.Time
}

func NewReconciler(
	orders order.Repository,
	payments payment.Repository,
	promos promotion.Repository,
	carts *cart.Service,
	gateway billing.Gateway,
) *Reconciler {
	return &Reconciler{
		orders:   orders,
		payments: payments,
		promos:   promos,
		carts:    carts,
		gateway:  gateway,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// HandleEvent dispatches one verified event. Unhandled event types are
// not an error; the ledger still records them.
func (r *Reconciler) HandleEvent(ctx context.Context, event stripe.Event) error {
	switch event.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return fmt.Errorf("parse session from event %s: %w", event.ID, err)
		}
		return r.sessionCompleted(ctx, &sess)
	case "checkout.session.expired":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return fmt.Errorf("parse session from event %s: %w", event.ID, err)
		}
		return r.sessionExpired(ctx, &sess)
	case "charge.refunded":
		var ch stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &ch); err != nil {
			return fmt.Errorf("parse charge from event %s: %w", event.ID, err)
		}
		return r.chargeRefunded(ctx, &ch)
	case "charge.failed":
		var ch stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &ch); err != nil {
			return fmt.Errorf("parse charge from event %s: %w", event.ID, err)
		}
		return r.chargeFailed(ctx, &ch)
	default:
		log.Printf("webhook event %s type %s ignored", event.ID, event.Type)
		return nil
	}
}

func (r *Reconciler) sessionCompleted(ctx context.Context, sess *stripe.CheckoutSession) error {
	o, err := r.orders.FindBySessionID(ctx, sess.ID)
	if errors.Is(err, order.ErrNotFound) {
		// Session from another environment sharing the webhook endpoint.
		log.Printf("completed session %s matches no order, skipping", sess.ID)
		return nil
	}
	if err != nil {
		return err
	}
	if o.Status == order.StatusPaid {
		return nil
	}

	if err := r.recordPayment(ctx, o, sess); err != nil {
		return err
	}

	shipping, billingAddr := sessionAddresses(sess)
	params := order.MarkPaidParams{
		PaymentStatus:                        string(sess.PaymentStatus),
		ShippingAddress:                      shipping,
		BillingAddress:                       billingAddr,
		BillingAddressMatchesShippingAddress: billingAddr.Equal(shipping),
		SubtotalPrice:                        sess.AmountSubtotal,
		TotalPrice:                           sess.AmountTotal,
		PaidAt:                               r.now(),
	}
	if sess.TotalDetails != nil {
		params.DiscountTotal = sess.TotalDetails.AmountDiscount
		params.TaxTotal = sess.TotalDetails.AmountTax
		params.ShippingTotal = sess.TotalDetails.AmountShipping
	}
	if err := r.orders.MarkPaid(ctx, o.ID, params); err != nil {
		return err
	}

	if o.PromotionID != nil {
		if err := r.promos.InsertRedemption(ctx, *o.PromotionID, o.ID); err != nil {
			log.Printf("record redemption for order %s: %v", o.OrderNumber, err)
		}
	}

	r.clearPurchasedCart(ctx, o)
	return nil
}

// recordPayment fetches the charge behind the session's payment intent
// and writes the payment row. Missing charge details degrade to a bare
// payment record rather than failing the reconciliation.
func (r *Reconciler) recordPayment(ctx context.Context, o order.Order, sess *stripe.CheckoutSession) error {
	if sess.PaymentIntent == nil {
		log.Printf("session %s has no payment intent, skipping payment record", sess.ID)
		return nil
	}

	p := payment.Payment{
		OrderID:       o.ID,
		TransactionID: sess.PaymentIntent.ID,
		Amount:        sess.AmountTotal,
		CurrencyCode:  string(sess.Currency),
		Status:        payment.StatusSucceeded,
		CreatedAt:     r.now(),
	}
	ch, err := r.gateway.RetrieveChargeForPaymentIntent(ctx, sess.PaymentIntent.ID)
	if err != nil {
		log.Printf("retrieve charge for intent %s: %v", sess.PaymentIntent.ID, err)
	} else if ch != nil {
		p.Amount = ch.Amount
		p.ReceiptURL = ch.ReceiptURL
		if ch.PaymentMethodDetails != nil && ch.PaymentMethodDetails.Card != nil {
			p.CardBrand = string(ch.PaymentMethodDetails.Card.Brand)
			p.CardLast4 = ch.PaymentMethodDetails.Card.Last4
		}
	}

	_, _, err = r.payments.InsertIfAbsent(ctx, p)
	return err
}

// clearPurchasedCart empties the buyer's cart only when its contents
// still match what was ordered. A cart edited mid-payment is left alone;
// it just gets re-stamped so the old idempotency key dies.
func (r *Reconciler) clearPurchasedCart(ctx context.Context, o order.Order) {
	c, err := r.carts.Repo().FindByOwner(ctx, o.AuthUserID)
	if errors.Is(err, cart.ErrNotFound) {
		return
	}
	if err != nil {
		log.Printf("load cart for order %s: %v", o.OrderNumber, err)
		return
	}

	lines, err := r.carts.Repo().Lines(ctx, c.ID, cart.MaxCheckoutLines)
	if err != nil {
		log.Printf("load cart lines for order %s: %v", o.OrderNumber, err)
		return
	}

	if cart.Fingerprint(o.AuthUserID, lines) == o.CartHash {
		if err := r.carts.ClearAfterPurchase(ctx, c); err != nil {
			log.Printf("clear cart for order %s: %v", o.OrderNumber, err)
		}
		return
	}
	if err := r.carts.Touch(ctx, o.AuthUserID); err != nil {
		log.Printf("touch cart for order %s: %v", o.OrderNumber, err)
	}
}

func (r *Reconciler) sessionExpired(ctx context.Context, sess *stripe.CheckoutSession) error {
	o, err := r.orders.MarkCancelledBySession(ctx, sess.ID, string(sess.PaymentStatus), r.now())
	if errors.Is(err, order.ErrNotFound) {
		log.Printf("expired session %s matches no order, skipping", sess.ID)
		return nil
	}
	if err != nil {
		return err
	}
	// Contents stay; the key derived from the old cart state must not.
	if err := r.carts.Touch(ctx, o.AuthUserID); err != nil {
		log.Printf("touch cart for cancelled order %s: %v", o.OrderNumber, err)
	}
	return nil
}

func (r *Reconciler) chargeRefunded(ctx context.Context, ch *stripe.Charge) error {
	if ch.PaymentIntent == nil {
		log.Printf("refunded charge %s has no payment intent, skipping", ch.ID)
		return nil
	}

	p, err := r.payments.FindByTransactionID(ctx, ch.PaymentIntent.ID)
	if errors.Is(err, payment.ErrNotFound) {
		log.Printf("refunded charge %s matches no payment, skipping", ch.ID)
		return nil
	}
	if err != nil {
		return err
	}

	// The event payload truncates the refund list; fetch the full set.
	full, err := r.gateway.RetrieveChargeWithRefunds(ctx, ch.ID)
	if err != nil {
		return fmt.Errorf("retrieve refunds for charge %s: %w", ch.ID, err)
	}
	if full.Refunds != nil {
		for _, rf := range full.Refunds.Data {
			_, err := r.payments.InsertRefundIfAbsent(ctx, payment.Refund{
				PaymentID:      p.ID,
				StripeRefundID: rf.ID,
				Amount:         rf.Amount,
				Reason:         string(rf.Reason),
				CreatedAt:      time.Unix(rf.Created, 0).UTC(),
			})
			if err != nil {
				return err
			}
		}
	}

	status := payment.StatusPartiallyRefunded
	if ch.Refunded {
		status = payment.StatusRefunded
	}
	if err := r.payments.ApplyRefund(ctx, p.ID, ch.AmountRefunded, status, r.now()); err != nil {
		return err
	}
	return r.orders.ApplyRefund(ctx, p.OrderID, ch.AmountRefunded, ch.Refunded, r.now())
}

func (r *Reconciler) chargeFailed(ctx context.Context, ch *stripe.Charge) error {
	if ch.PaymentIntent == nil {
		log.Printf("failed charge %s has no payment intent, skipping", ch.ID)
		return nil
	}
	return r.payments.MarkFailed(ctx, ch.PaymentIntent.ID, ch.FailureCode, ch.FailureMessage, r.now())
}

// sessionAddresses maps the session's shipping and billing blocks onto
// order address snapshots.
func sessionAddresses(sess *stripe.CheckoutSession) (shipping, billingAddr order.Address) {
	if sess.ShippingDetails != nil {
		shipping = toAddress(sess.ShippingDetails.Name, sess.ShippingDetails.Address)
	}
	if sess.CustomerDetails != nil {
		billingAddr = toAddress(sess.CustomerDetails.Name, sess.CustomerDetails.Address)
	}
	return shipping, billingAddr
}

func toAddress(name string, a *stripe.Address) order.Address {
	if a == nil {
		return order.Address{FullName: name}
	}
	return order.Address{
		FullName:    name,
		Line1:       a.Line1,
		Line2:       a.Line2,
		City:        a.City,
		RegionCode:  a.State,
		Zip:         a.PostalCode,
		CountryCode: a.Country,
	}
}
