package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aurelle/shop-backend/internal/billing"
	"github.com/aurelle/shop-backend/internal/cart"
	"github.com/aurelle/shop-backend/internal/customer"
	"github.com/aurelle/shop-backend/internal/order"
	"github.com/aurelle/shop-backend/internal/promotion"
	"github.com/aurelle/shop-backend/internal/tax"
)

// ErrTooManyPending means this client IP has hit the pending-order cap
// for the day. Abandoned sessions expire on their own; until then new
// checkouts from the same IP are refused.
var ErrTooManyPending = errors.New("too many pending orders")

// Request is one checkout attempt. The cart itself is loaded server-side
// from the authenticated owner; the request carries contact data, the
// address snapshots written onto the order, and an optional promotion
// code. The shipping country and region also drive tax resolution.
type Request struct {
	AuthUserID  string
	IsAnonymous bool

	Email            string
	PhoneNumber      string
	AcceptsMarketing bool

	ShippingAddress                      order.Address
	BillingAddress                       order.Address
	BillingAddressMatchesShippingAddress bool
	ShippingMethod                       string

	PromotionCode string
	Locale        string
	ClientIP      string
}

// Result carries the order and the payment page the buyer is sent to.
// Reused is true when an identical pending checkout already existed.
type Result struct {
	Order  order.Order
	URL    string
	Reused bool
}

// Options is the static configuration of the pipeline.
type Options struct {
	SuccessURL       string
	CancelURL        string
	CurrencyCode     string
	AllowedCountries []string
	MaxPendingPerIP  int
}

// Service runs the checkout pipeline: resolve the cart, derive the
// idempotency key, price the cart, write the pending order and open a
// hosted payment session for it.
type Service struct {
	carts     *cart.Service
	promos    *promotion.Service
	taxes     *tax.Service
	orders    order.Repository
	customers customer.Repository
	gateway   billing.Gateway
	opts      Options
	now       func() time.Time
}

func NewService(
	carts *cart.Service,
	promos *promotion.Service,
	taxes *tax.Service,
	orders order.Repository,
	customers customer.Repository,
	gateway billing.Gateway,
	opts Options,
) *Service {
	return &Service{
		carts:     carts,
		promos:    promos,
		taxes:     taxes,
		orders:    orders,
		customers: customers,
		gateway:   gateway,
		opts:      opts,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Checkout executes one checkout attempt end to end.
func (s *Service) Checkout(ctx context.Context, req Request) (Result, error) {
	c, lines, err := s.carts.ResolveForCheckout(ctx, req.AuthUserID)
	if err != nil {
		return Result{}, err
	}

	fingerprint := cart.Fingerprint(req.AuthUserID, lines)
	key := cart.IdempotencyKey(req.AuthUserID, fingerprint, c.UpdatedAt)

	existing, err := s.orders.FindPendingByIdempotencyKey(ctx, req.AuthUserID, key)
	if err == nil {
		return s.resumePending(ctx, existing, lines, req)
	}
	if !errors.Is(err, order.ErrNotFound) {
		return Result{}, err
	}

	if s.opts.MaxPendingPerIP > 0 && req.ClientIP != "" {
		since := s.now().Add(-24 * time.Hour)
		pending, err := s.orders.CountPendingByClientIP(ctx, req.ClientIP, since)
		if err != nil {
			return Result{}, err
		}
		if pending >= int64(s.opts.MaxPendingPerIP) {
			return Result{}, ErrTooManyPending
		}
	}

	promo, err := s.promos.Validate(ctx, req.PromotionCode, req.ClientIP)
	if err != nil {
		return Result{}, err
	}

	rates, err := s.taxes.ResolveForDestination(ctx, req.ShippingAddress.CountryName, req.ShippingAddress.RegionName)
	if err != nil {
		return Result{}, err
	}

	totals, err := ComputeTotals(lines, promo, tax.TotalMilliPercent(rates))
	if err != nil {
		return Result{}, err
	}

	o, err := s.buildOrder(req, key, fingerprint, promo, totals)
	if err != nil {
		return Result{}, err
	}
	orderLines := snapshotLines(lines)

	if err := s.createOrder(ctx, &o, orderLines); err != nil {
		var raced order.Order
		if isIdempotencyKeyViolation(err) {
			// Lost the insert race to a concurrent identical checkout;
			// resume that order instead.
			raced, err = s.orders.FindPendingByIdempotencyKey(ctx, req.AuthUserID, key)
			if err != nil {
				return Result{}, err
			}
			return s.resumePending(ctx, raced, lines, req)
		}
		return Result{}, err
	}

	url, err := s.openSession(ctx, &o, lines, req)
	if err != nil {
		return Result{}, err
	}
	return Result{Order: o, URL: url}, nil
}

// resumePending returns the session of an already pending identical
// checkout, opening a fresh session if the previous attempt died before
// one was linked.
func (s *Service) resumePending(ctx context.Context, o order.Order, lines []cart.Line, req Request) (Result, error) {
	if o.StripeCheckoutSessionURL != "" {
		return Result{Order: o, URL: o.StripeCheckoutSessionURL, Reused: true}, nil
	}
	url, err := s.openSession(ctx, &o, lines, req)
	if err != nil {
		return Result{}, err
	}
	return Result{Order: o, URL: url, Reused: true}, nil
}

func (s *Service) buildOrder(req Request, key, fingerprint string, promo *promotion.Promotion, totals Totals) (order.Order, error) {
	now := s.now()
	number, err := NewOrderNumber(now)
	if err != nil {
		return order.Order{}, err
	}

	// Billing mirrors shipping when the buyer said so; the processor's
	// session-reported addresses overwrite both at payment time.
	billingAddr := req.BillingAddress
	if req.BillingAddressMatchesShippingAddress {
		billingAddr = req.ShippingAddress
	}

	o := order.Order{
		ID:                                   uuid.NewString(),
		OrderNumber:                          number,
		IdempotencyKey:                       key,
		CartHash:                             fingerprint,
		AuthUserID:                           req.AuthUserID,
		Status:                               order.StatusPending,
		FinancialStatus:                      order.FinancialPending,
		FulfillmentStatus:                    order.FulfillmentUnfulfilled,
		Email:                                req.Email,
		PhoneNumber:                          req.PhoneNumber,
		AcceptsMarketing:                     req.AcceptsMarketing,
		ShippingAddress:                      req.ShippingAddress,
		BillingAddress:                       billingAddr,
		BillingAddressMatchesShippingAddress: req.BillingAddressMatchesShippingAddress,
		ShippingMethod:                       req.ShippingMethod,
		Locale:                               req.Locale,
		ClientIP:                             req.ClientIP,
		SubtotalPrice:                        totals.Subtotal,
		DiscountTotal:                        totals.Discount,
		TaxTotal:                             totals.Tax,
		TotalPrice:                           totals.Total,
		CurrencyCode:                         s.opts.CurrencyCode,
		CreatedAt:                            now,
		UpdatedAt:                            now,
	}
	// A promotion that yields no discount leaves no trace on the order.
	if promo != nil && totals.Discount > 0 {
		o.PromotionID = &promo.ID
		o.PromotionCode = promo.Code
		o.PromotionType = string(promo.Type)
		o.PromotionValue = promo.Value
		o.PromotionCurrencyCode = promo.CurrencyCode
	}
	return o, nil
}

// createOrder inserts the order, regenerating the order number once if
// the random part collides.
func (s *Service) createOrder(ctx context.Context, o *order.Order, lines []order.Line) error {
	err := s.orders.CreateWithLines(ctx, *o, lines)
	if err == nil {
		return nil
	}
	if constraint, ok := order.UniqueViolation(err); ok && strings.Contains(constraint, "order_number") {
		number, genErr := NewOrderNumber(s.now())
		if genErr != nil {
			return genErr
		}
		log.Printf("order number collision on %s, retrying with %s", o.OrderNumber, number)
		o.OrderNumber = number
		return s.orders.CreateWithLines(ctx, *o, lines)
	}
	return err
}

func (s *Service) openSession(ctx context.Context, o *order.Order, lines []cart.Line, req Request) (string, error) {
	stripeCustomerID, err := s.ensureCustomer(ctx, o, req)
	if err != nil {
		// A missing customer record must not block the purchase.
		log.Printf("ensure customer for order %s: %v", o.OrderNumber, err)
	}

	sessionLines := make([]billing.SessionLine, 0, len(lines))
	for _, l := range lines {
		sessionLines = append(sessionLines, billing.SessionLine{
			PriceID:  l.Variant.StripePriceID,
			Quantity: l.Quantity,
		})
	}

	params := billing.SessionParams{
		OrderID:          o.ID,
		CustomerID:       stripeCustomerID,
		CustomerEmail:    req.Email,
		SuccessURL:       s.opts.SuccessURL,
		CancelURL:        s.opts.CancelURL,
		Lines:            sessionLines,
		AllowedCountries: s.opts.AllowedCountries,
	}
	if o.PromotionID != nil {
		coupon, err := s.couponForOrder(ctx, *o)
		if err != nil {
			return "", err
		}
		params.CouponID = coupon
	}

	sess, err := s.gateway.CreateCheckoutSession(ctx, params)
	if err != nil {
		return "", fmt.Errorf("create checkout session for order %s: %w", o.OrderNumber, err)
	}

	if err := s.orders.UpdateSession(ctx, o.ID, sess.ID, sess.URL, string(sess.PaymentStatus)); err != nil {
		return "", err
	}
	o.StripeCheckoutSessionID = sess.ID
	o.StripeCheckoutSessionURL = sess.URL
	o.StripePaymentStatus = string(sess.PaymentStatus)
	return sess.URL, nil
}

// couponForOrder resolves the processor coupon id for the order's
// promotion snapshot.
func (s *Service) couponForOrder(ctx context.Context, o order.Order) (string, error) {
	promo, err := s.promos.Validate(ctx, o.PromotionCode, "")
	if err != nil {
		return "", err
	}
	if promo == nil {
		return "", nil
	}
	return promo.StripeCouponID, nil
}

// ensureCustomer upserts the buyer record and makes sure it carries a
// processor customer id. Anonymous sessions skip the directory entirely.
func (s *Service) ensureCustomer(ctx context.Context, o *order.Order, req Request) (string, error) {
	if req.IsAnonymous {
		return "", nil
	}

	cust, err := s.customers.UpsertByEmail(ctx, customer.Customer{
		AuthUserID:       req.AuthUserID,
		Email:            req.Email,
		FullName:         req.ShippingAddress.FullName,
		AcceptsMarketing: req.AcceptsMarketing,
		CreatedAt:        s.now(),
	})
	if err != nil {
		return "", err
	}
	o.CustomerID = &cust.ID

	if cust.StripeCustomerID != "" {
		return cust.StripeCustomerID, nil
	}
	created, err := s.gateway.CreateCustomer(ctx, req.Email, map[string]string{"auth_user_id": req.AuthUserID})
	if err != nil {
		return "", err
	}
	if err := s.customers.SetStripeCustomerID(ctx, cust.ID, created.ID); err != nil {
		return "", err
	}
	return created.ID, nil
}

func snapshotLines(lines []cart.Line) []order.Line {
	out := make([]order.Line, 0, len(lines))
	for _, l := range lines {
		variantID := l.Variant.ID
		out = append(out, order.Line{
			ProductVariantID: &variantID,
			Name:             l.Variant.Name,
			SKU:              l.Variant.SKU,
			ImageURL:         l.Variant.ImageURL,
			ImageAltText:     l.Variant.ImageAltText,
			Quantity:         l.Quantity,
			Price:            l.EffectiveUnitPrice(),
		})
	}
	return out
}

func isIdempotencyKeyViolation(err error) bool {
	constraint, ok := order.UniqueViolation(err)
	return ok && strings.Contains(constraint, "idempotency_key")
}
