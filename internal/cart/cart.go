package cart

import "time"

// Cart is the per-user cart row. A cart is created lazily on first item
// add and never hard-deleted; clearing it removes lines only. UpdatedAt
// changes whenever the contents change, including after an order is placed,
// so a stale idempotency key can never match again.
type Cart struct {
	ID         string    `json:"id"`
	CustomerID *int64    `json:"customerId,omitempty"`
	AuthUserID string    `json:"authUserId"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Variant is the read-only product-variant view joined into cart lines.
// Only active and visible variants are purchasable.
type Variant struct {
	ID                 string `json:"id"`
	StripeProductID    string `json:"stripeProductId"`
	StripePriceID      string `json:"stripePriceId"`
	Name               string `json:"name"`
	SKU                string `json:"sku"`
	Price              int64  `json:"price"`
	DiscountPrice      *int64 `json:"discountPrice,omitempty"`
	InventoryQuantity  int64  `json:"inventoryQuantity"`
	IsShippingRequired bool   `json:"isShippingRequired"`
	IsActive           bool   `json:"isActive"`
	IsVisible          bool   `json:"isVisible"`
	ImageURL           string `json:"imageUrl,omitempty"`
	ImageAltText       string `json:"imageAltText,omitempty"`
}

// Line is one cart line with its current variant pricing snapshot.
type Line struct {
	ID       string  `json:"id"`
	Quantity int64   `json:"quantity"`
	Variant  Variant `json:"productVariant"`
}

// EffectiveUnitPrice returns the discount price when one is set and does
// not exceed the list price, else the list price.
func (l Line) EffectiveUnitPrice() int64 {
	if l.Variant.DiscountPrice != nil && *l.Variant.DiscountPrice <= l.Variant.Price {
		return *l.Variant.DiscountPrice
	}
	return l.Variant.Price
}
