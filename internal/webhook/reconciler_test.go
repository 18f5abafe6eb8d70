package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	stripe "github.com/stripe/stripe-go/v76"

	"github.com/aurelle/shop-backend/internal/billing"
	"github.com/aurelle/shop-backend/internal/cart"
	"github.com/aurelle/shop-backend/internal/order"
	"github.com/aurelle/shop-backend/internal/payment"
	"github.com/aurelle/shop-backend/internal/promotion"
)

type fakeOrders struct {
	bySession map[string]order.Order
	paid      map[string]order.MarkPaidParams
	cancelled []string
	refunds   map[string]int64
	findErr   error
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{
		bySession: map[string]order.Order{},
		paid:      map[string]order.MarkPaidParams{},
		refunds:   map[string]int64{},
	}
}

func (f *fakeOrders) CreateWithLines(ctx context.Context, o order.Order, lines []order.Line) error {
	return nil
}

func (f *fakeOrders) FindPendingByIdempotencyKey(ctx context.Context, authUserID, key string) (order.Order, error) {
	return order.Order{}, order.ErrNotFound
}

func (f *fakeOrders) FindBySessionID(ctx context.Context, sessionID string) (order.Order, error) {
	if f.findErr != nil {
		return order.Order{}, f.findErr
	}
	o, ok := f.bySession[sessionID]
	if !ok {
		return order.Order{}, order.ErrNotFound
	}
	return o, nil
}

func (f *fakeOrders) UpdateSession(ctx context.Context, orderID, sessionID, sessionURL, paymentStatus string) error {
	return nil
}

func (f *fakeOrders) MarkPaid(ctx context.Context, orderID string, p order.MarkPaidParams) error {
	f.paid[orderID] = p
	return nil
}

func (f *fakeOrders) MarkCancelledBySession(ctx context.Context, sessionID, paymentStatus string, at time.Time) (order.Order, error) {
	o, ok := f.bySession[sessionID]
	if !ok {
		return order.Order{}, order.ErrNotFound
	}
	f.cancelled = append(f.cancelled, o.ID)
	return o, nil
}

func (f *fakeOrders) ApplyRefund(ctx context.Context, orderID string, amountRefunded int64, fullyRefunded bool, at time.Time) error {
	f.refunds[orderID] = amountRefunded
	return nil
}

func (f *fakeOrders) CountPendingByClientIP(ctx context.Context, clientIP string, since time.Time) (int64, error) {
	return 0, nil
}

type fakePayments struct {
	byTxn     map[string]payment.Payment
	refundIDs map[string]bool
	failed    []string
	refunded  map[int64]int64
}

func newFakePayments() *fakePayments {
	return &fakePayments{
		byTxn:     map[string]payment.Payment{},
		refundIDs: map[string]bool{},
		refunded:  map[int64]int64{},
	}
}

func (f *fakePayments) InsertIfAbsent(ctx context.Context, p payment.Payment) (payment.Payment, bool, error) {
	if stored, ok := f.byTxn[p.TransactionID]; ok {
		return stored, false, nil
	}
	p.ID = int64(len(f.byTxn) + 1)
	f.byTxn[p.TransactionID] = p
	return p, true, nil
}

func (f *fakePayments) FindByTransactionID(ctx context.Context, transactionID string) (payment.Payment, error) {
	p, ok := f.byTxn[transactionID]
	if !ok {
		return payment.Payment{}, payment.ErrNotFound
	}
	return p, nil
}

func (f *fakePayments) ApplyRefund(ctx context.Context, paymentID int64, amountRefunded int64, status payment.Status, at time.Time) error {
	f.refunded[paymentID] = amountRefunded
	return nil
}

func (f *fakePayments) InsertRefundIfAbsent(ctx context.Context, r payment.Refund) (bool, error) {
	if f.refundIDs[r.StripeRefundID] {
		return false, nil
	}
	f.refundIDs[r.StripeRefundID] = true
	return true, nil
}

func (f *fakePayments) MarkFailed(ctx context.Context, transactionID, failureCode, failureMessage string, at time.Time) error {
	f.failed = append(f.failed, transactionID)
	return nil
}

type fakePromos struct {
	redemptions map[string]int64 // order id -> promotion id
}

func newFakePromos() *fakePromos {
	return &fakePromos{redemptions: map[string]int64{}}
}

func (f *fakePromos) FindByCode(ctx context.Context, code string) (promotion.Promotion, error) {
	return promotion.Promotion{}, promotion.ErrNotFound
}

func (f *fakePromos) FindBest(ctx context.Context) (promotion.Promotion, error) {
	return promotion.Promotion{}, promotion.ErrNotFound
}

func (f *fakePromos) CountRedemptions(ctx context.Context, promotionID int64) (int64, error) {
	return 0, nil
}

func (f *fakePromos) CountPaidOrdersByClientIP(ctx context.Context, clientIP, code string) (int64, error) {
	return 0, nil
}

func (f *fakePromos) InsertRedemption(ctx context.Context, promotionID int64, orderID string) error {
	f.redemptions[orderID] = promotionID
	return nil
}

type recordingCartRepo struct {
	cart    cart.Cart
	lines   []cart.Line
	cleared bool
	touched bool
}

func (f *recordingCartRepo) FindByOwner(ctx context.Context, authUserID string) (cart.Cart, error) {
	return f.cart, nil
}

func (f *recordingCartRepo) Lines(ctx context.Context, cartID string, limit int) ([]cart.Line, error) {
	return f.lines, nil
}

func (f *recordingCartRepo) ClearLines(ctx context.Context, cartID string) error {
	f.cleared = true
	return nil
}

func (f *recordingCartRepo) Touch(ctx context.Context, authUserID string, at time.Time) error {
	f.touched = true
	return nil
}

type stubGateway struct {
	charge *stripe.Charge
}

func (g *stubGateway) CreateCheckoutSession(ctx context.Context, p billing.SessionParams) (*stripe.CheckoutSession, error) {
	return nil, errors.New("not implemented")
}

func (g *stubGateway) RetrieveCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error) {
	return nil, errors.New("not implemented")
}

func (g *stubGateway) RetrieveChargeForPaymentIntent(ctx context.Context, paymentIntentID string) (*stripe.Charge, error) {
	return g.charge, nil
}

func (g *stubGateway) RetrieveChargeWithRefunds(ctx context.Context, chargeID string) (*stripe.Charge, error) {
	return g.charge, nil
}

func (g *stubGateway) CreateCustomer(ctx context.Context, email string, metadata map[string]string) (*stripe.Customer, error) {
	return nil, errors.New("not implemented")
}

func pendingOrder(sessionID string) order.Order {
	return order.Order{
		ID:                      "o1",
		OrderNumber:             "B-6789BCDFGH-2025JUN01",
		AuthUserID:              "u1",
		CartHash:                "",
		Status:                  order.StatusPending,
		FinancialStatus:         order.FinancialPending,
		StripeCheckoutSessionID: sessionID,
	}
}

func completedSessionEvent(t *testing.T, sessionID string) stripe.Event {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"id":              sessionID,
		"payment_status":  "paid",
		"amount_subtotal": 1800,
		"amount_total":    2034,
		"currency":        "cad",
		"payment_intent":  map[string]any{"id": "pi_1"},
		"total_details":   map[string]any{"amount_tax": 234},
		"customer_details": map[string]any{
			"name": "Ada Buyer",
			"address": map[string]any{
				"line1": "1 Main St", "city": "Toronto", "state": "ON",
				"postal_code": "M1M 1M1", "country": "CA",
			},
		},
		"shipping_details": map[string]any{
			"name": "Ada Buyer",
			"address": map[string]any{
				"line1": "1 Main St", "city": "Toronto", "state": "ON",
				"postal_code": "M1M 1M1", "country": "CA",
			},
		},
	})
	if err != nil {
		t.Fatalf("marshal session: %v", err)
	}
	return stripe.Event{
		ID:   "evt_1",
		Type: "checkout.session.completed",
		Data: &stripe.EventData{Raw: raw},
	}
}

func testReconciler(orders *fakeOrders, payments *fakePayments, cartRepo *recordingCartRepo, gw *stubGateway) *Reconciler {
	return NewReconciler(orders, payments, newFakePromos(), cart.NewService(cartRepo), gw)
}

func TestSessionCompleted_MarksPaidAndRecordsPayment(t *testing.T) {
	orders := newFakeOrders()
	o := pendingOrder("cs_1")
	// cart hash matches an empty-line fingerprint only if set accordingly;
	// use a cart whose lines reproduce the ordered contents
	lines := []cart.Line{{ID: "l1", Quantity: 2, Variant: cart.Variant{ID: "v1", Price: 500, IsActive: true, IsVisible: true}}}
	o.CartHash = cart.Fingerprint("u1", lines)
	orders.bySession["cs_1"] = o

	payments := newFakePayments()
	cartRepo := &recordingCartRepo{cart: cart.Cart{ID: "c1", AuthUserID: "u1"}, lines: lines}
	gw := &stubGateway{charge: &stripe.Charge{
		ID:         "ch_1",
		Amount:     2034,
		ReceiptURL: "https://receipt.example",
		PaymentMethodDetails: &stripe.ChargePaymentMethodDetails{
			Card: &stripe.ChargePaymentMethodDetailsCard{Brand: "visa", Last4: "4242"},
		},
	}}

	rec := testReconciler(orders, payments, cartRepo, gw)
	if err := rec.HandleEvent(context.Background(), completedSessionEvent(t, "cs_1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	params, ok := orders.paid["o1"]
	if !ok {
		t.Fatal("order was not marked paid")
	}
	if params.TaxTotal != 234 || params.TotalPrice != 2034 {
		t.Errorf("unexpected paid params: %+v", params)
	}
	if !params.BillingAddressMatchesShippingAddress {
		t.Error("identical addresses must compare equal")
	}

	p, err := payments.FindByTransactionID(context.Background(), "pi_1")
	if err != nil {
		t.Fatalf("payment was not recorded: %v", err)
	}
	if p.CardBrand != "visa" || p.CardLast4 != "4242" {
		t.Errorf("unexpected payment card snapshot: %+v", p)
	}

	if !cartRepo.cleared {
		t.Error("matching cart must be cleared after purchase")
	}
}

func TestSessionCompleted_ChangedCartIsKept(t *testing.T) {
	orders := newFakeOrders()
	o := pendingOrder("cs_1")
	o.CartHash = "hash-of-what-was-ordered"
	orders.bySession["cs_1"] = o

	cartRepo := &recordingCartRepo{
		cart:  cart.Cart{ID: "c1", AuthUserID: "u1"},
		lines: []cart.Line{{ID: "l9", Quantity: 1, Variant: cart.Variant{ID: "v9", Price: 100}}},
	}
	rec := testReconciler(orders, newFakePayments(), cartRepo, &stubGateway{})

	if err := rec.HandleEvent(context.Background(), completedSessionEvent(t, "cs_1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cartRepo.cleared {
		t.Error("a cart edited after checkout must not be cleared")
	}
	if !cartRepo.touched {
		t.Error("the edited cart must still be re-stamped")
	}
}

func TestSessionCompleted_AlreadyPaidIsNoOp(t *testing.T) {
	orders := newFakeOrders()
	o := pendingOrder("cs_1")
	o.Status = order.StatusPaid
	orders.bySession["cs_1"] = o

	payments := newFakePayments()
	rec := testReconciler(orders, payments, &recordingCartRepo{}, &stubGateway{})

	if err := rec.HandleEvent(context.Background(), completedSessionEvent(t, "cs_1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(orders.paid) != 0 {
		t.Error("an already paid order must not be marked paid again")
	}
	if len(payments.byTxn) != 0 {
		t.Error("no payment row may be written for a replay")
	}
}

func TestSessionCompleted_UnknownSessionIsSkipped(t *testing.T) {
	rec := testReconciler(newFakeOrders(), newFakePayments(), &recordingCartRepo{}, &stubGateway{})
	if err := rec.HandleEvent(context.Background(), completedSessionEvent(t, "cs_unknown")); err != nil {
		t.Fatalf("unknown session must not error: %v", err)
	}
}

func TestSessionExpired_CancelsOrderAndRestampsCart(t *testing.T) {
	orders := newFakeOrders()
	orders.bySession["cs_1"] = pendingOrder("cs_1")
	cartRepo := &recordingCartRepo{cart: cart.Cart{ID: "c1", AuthUserID: "u1"}}
	rec := testReconciler(orders, newFakePayments(), cartRepo, &stubGateway{})

	raw, _ := json.Marshal(map[string]any{"id": "cs_1", "payment_status": "unpaid"})
	event := stripe.Event{ID: "evt_2", Type: "checkout.session.expired", Data: &stripe.EventData{Raw: raw}}
	if err := rec.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(orders.cancelled) != 1 || orders.cancelled[0] != "o1" {
		t.Errorf("order was not cancelled: %v", orders.cancelled)
	}
	if cartRepo.cleared {
		t.Error("expiry must not clear the cart")
	}
	if !cartRepo.touched {
		t.Error("expiry must re-stamp the cart")
	}
}

func TestChargeRefunded_FullRefund(t *testing.T) {
	orders := newFakeOrders()
	payments := newFakePayments()
	payments.byTxn["pi_1"] = payment.Payment{ID: 7, OrderID: "o1", TransactionID: "pi_1", Amount: 2034}

	gw := &stubGateway{charge: &stripe.Charge{
		ID:             "ch_1",
		Refunded:       true,
		AmountRefunded: 2034,
		Refunds: &stripe.RefundList{Data: []*stripe.Refund{
			{ID: "re_1", Amount: 2034, Created: time.Now().Unix()},
		}},
	}}
	rec := testReconciler(orders, payments, &recordingCartRepo{}, gw)

	raw, _ := json.Marshal(map[string]any{
		"id": "ch_1", "refunded": true, "amount_refunded": 2034,
		"payment_intent": map[string]any{"id": "pi_1"},
	})
	event := stripe.Event{ID: "evt_3", Type: "charge.refunded", Data: &stripe.EventData{Raw: raw}}
	if err := rec.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !payments.refundIDs["re_1"] {
		t.Error("refund row was not recorded")
	}
	if payments.refunded[7] != 2034 {
		t.Errorf("payment refunded amount = %d, want 2034", payments.refunded[7])
	}
	if orders.refunds["o1"] != 2034 {
		t.Errorf("order refunded amount = %d, want 2034", orders.refunds["o1"])
	}
}

func TestChargeFailed_MarksPayment(t *testing.T) {
	payments := newFakePayments()
	rec := testReconciler(newFakeOrders(), payments, &recordingCartRepo{}, &stubGateway{})

	raw, _ := json.Marshal(map[string]any{
		"id": "ch_1", "failure_code": "card_declined",
		"payment_intent": map[string]any{"id": "pi_1"},
	})
	event := stripe.Event{ID: "evt_4", Type: "charge.failed", Data: &stripe.EventData{Raw: raw}}
	if err := rec.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(payments.failed) != 1 || payments.failed[0] != "pi_1" {
		t.Errorf("payment was not marked failed: %v", payments.failed)
	}
}
