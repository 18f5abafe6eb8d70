// Package product serves the storefront catalog: products and their
// purchasable variants. The surface is read-only; catalog writes happen
// through the merchandising pipeline, not this API.
package product

import "time"

// Product groups the variants sold under one listing.
type Product struct {
	ID          string    `json:"id"`
	Slug        string    `json:"slug"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	IsActive    bool      `json:"isActive"`
	IsVisible   bool      `json:"isVisible"`
	Variants    []Variant `json:"variants"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Variant is one sellable SKU. Prices are integer minor-currency units;
// DiscountPrice, when set, is the price actually charged.
type Variant struct {
	ID                string `json:"id"`
	SKU               string `json:"sku"`
	Name              string `json:"name"`
	Price             int64  `json:"price"`
	DiscountPrice     *int64 `json:"discountPrice,omitempty"`
	InventoryQuantity int64  `json:"inventoryQuantity"`
	IsActive          bool   `json:"isActive"`
	IsVisible         bool   `json:"isVisible"`
	ImageURL          string `json:"imageUrl,omitempty"`
	ImageAltText      string `json:"imageAltText,omitempty"`
}
