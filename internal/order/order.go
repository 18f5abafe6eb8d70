package order

import "time"

// Status is the order's lifecycle state. Transitions: pending → paid or
// cancelled; paid → refunded. Partial refunds leave the status at paid.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusCancelled Status = "cancelled"
	StatusRefunded  Status = "refunded"
	StatusFulfilled Status = "fulfilled"
)

// FinancialStatus tracks money movement independently of fulfillment.
type FinancialStatus string

const (
	FinancialPending           FinancialStatus = "pending"
	FinancialAuthorized        FinancialStatus = "authorized"
	FinancialPaid              FinancialStatus = "paid"
	FinancialPartiallyPaid     FinancialStatus = "partially_paid"
	FinancialRefunded          FinancialStatus = "refunded"
	FinancialPartiallyRefunded FinancialStatus = "partially_refunded"
	FinancialVoided            FinancialStatus = "voided"
	FinancialFailed            FinancialStatus = "failed"
)

// FulfillmentStatus tracks shipment progress.
type FulfillmentStatus string

const (
	FulfillmentUnfulfilled FulfillmentStatus = "unfulfilled"
	FulfillmentPartial     FulfillmentStatus = "partial"
	FulfillmentFulfilled   FulfillmentStatus = "fulfilled"
	FulfillmentReturned    FulfillmentStatus = "returned"
	FulfillmentCancelled   FulfillmentStatus = "cancelled"
)

// Address is one postal address snapshot on an order.
type Address struct {
	FullName    string `json:"fullName"`
	Company     string `json:"company,omitempty"`
	Line1       string `json:"addressLine1"`
	Line2       string `json:"addressLine2,omitempty"`
	City        string `json:"city"`
	RegionName  string `json:"regionName,omitempty"`
	RegionCode  string `json:"regionCode,omitempty"`
	Zip         string `json:"zip"`
	CountryName string `json:"countryName,omitempty"`
	CountryCode string `json:"countryCode,omitempty"`
}

// Equal compares the fields the payment processor reports back, which is
// how "billing matches shipping" is decided after payment.
func (a Address) Equal(b Address) bool {
	return a.FullName == b.FullName &&
		a.Line1 == b.Line1 &&
		a.Line2 == b.Line2 &&
		a.City == b.City &&
		a.RegionCode == b.RegionCode &&
		a.Zip == b.Zip &&
		a.CountryCode == b.CountryCode
}

// Order is the immutable record of a checkout attempt. Identity fields
// (id, order number, idempotency key, owner) never change; statuses,
// monetary totals and timestamps are mutated only by the webhook
// reconciler or explicit expiry. All amounts are integer minor-currency
// units.
type Order struct {
	ID          string `json:"id"`
	OrderNumber string `json:"orderNumber"`
	// IdempotencyKey is unique: at most one order per
	// (owner, cart fingerprint, cart version) triple.
	IdempotencyKey string `json:"idempotencyKey"`
	CartHash       string `json:"cartHash"`
	AuthUserID     string `json:"authUserId"`
	CustomerID     *int64 `json:"customerId,omitempty"`

	Status            Status            `json:"status"`
	FinancialStatus   FinancialStatus   `json:"financialStatus"`
	FulfillmentStatus FulfillmentStatus `json:"fulfillmentStatus"`

	StripeCheckoutSessionID  string `json:"stripeCheckoutSessionId,omitempty"`
	StripeCheckoutSessionURL string `json:"stripeCheckoutSessionUrl,omitempty"`
	StripePaymentStatus      string `json:"stripePaymentStatus,omitempty"`

	Email            string `json:"email"`
	PhoneNumber      string `json:"phoneNumber,omitempty"`
	AcceptsMarketing bool   `json:"acceptsMarketing"`

	ShippingAddress                      Address `json:"shippingAddress"`
	BillingAddress                       Address `json:"billingAddress"`
	BillingAddressMatchesShippingAddress bool    `json:"billingAddressMatchesShippingAddress"`
	// ShippingMethod is the buyer's chosen method. It does not price the
	// order; shipping charges are settled by the payment processor.
	ShippingMethod string `json:"shippingMethod,omitempty"`

	PromotionID           *int64 `json:"promotionId,omitempty"`
	PromotionCode         string `json:"promotionCode,omitempty"`
	PromotionType         string `json:"promotionType,omitempty"`
	PromotionValue        int64  `json:"promotionValue,omitempty"`
	PromotionCurrencyCode string `json:"promotionCurrencyCode,omitempty"`

	Locale   string `json:"locale"`
	ClientIP string `json:"clientIp,omitempty"`

	SubtotalPrice       int64  `json:"subtotalPrice"`
	DiscountTotal       int64  `json:"discountTotal"`
	TaxTotal            int64  `json:"taxTotal"`
	ShippingTotal       int64  `json:"shippingTotal"`
	AdditionalFeesTotal int64  `json:"additionalFeesTotal"`
	TotalPrice          int64  `json:"totalPrice"`
	RefundedTotal       int64  `json:"refundedTotal"`
	CurrencyCode        string `json:"currencyCode"`

	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	PaidAt      *time.Time `json:"paidAt,omitempty"`
	FulfilledAt *time.Time `json:"fulfilledAt,omitempty"`
	CancelledAt *time.Time `json:"cancelledAt,omitempty"`
	RefundedAt  *time.Time `json:"refundedAt,omitempty"`
}

// Line is a denormalized order line: a snapshot of the variant's display
// data and unit price at purchase time. Never updated after creation; the
// line total is generated by the database as quantity * price.
type Line struct {
	ID               int64   `json:"id"`
	OrderID          string  `json:"orderId"`
	ProductVariantID *string `json:"productVariantId,omitempty"`
	Name             string  `json:"productVariantName"`
	SKU              string  `json:"productVariantSku,omitempty"`
	ImageURL         string  `json:"productVariantImageUrl,omitempty"`
	ImageAltText     string  `json:"productVariantImageAltText,omitempty"`
	Quantity         int64   `json:"quantity"`
	Price            int64   `json:"price"`
	TotalPrice       int64   `json:"totalPrice"`
}
