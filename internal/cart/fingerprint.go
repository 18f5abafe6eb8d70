package cart

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// fingerprintLine is the normalized form a cart line takes inside the
// fingerprint. Field order matters: it fixes the serialized layout.
type fingerprintLine struct {
	ID                 string `json:"id"`
	Price              int64  `json:"price"`
	DiscountPrice      *int64 `json:"discountPrice"`
	StripePriceID      string `json:"stripePriceId"`
	StripeProductID    string `json:"stripeProductId"`
	IsShippingRequired bool   `json:"isShippingRequired"`
	Quantity           int64  `json:"quantity"`
}

// Fingerprint hashes the normalized cart contents together with the owner.
// Lines are sorted by variant id, so any iteration order of the same
// multiset of lines produces the same digest. This is the basis for
// detecting "cart changed since last checkout attempt".
func Fingerprint(authUserID string, lines []Line) string {
	normalized := make([]fingerprintLine, 0, len(lines))
	for _, l := range lines {
		normalized = append(normalized, fingerprintLine{
			ID:                 l.Variant.ID,
			Price:              l.Variant.Price,
			DiscountPrice:      l.Variant.DiscountPrice,
			StripePriceID:      l.Variant.StripePriceID,
			StripeProductID:    l.Variant.StripeProductID,
			IsShippingRequired: l.Variant.IsShippingRequired,
			Quantity:           l.Quantity,
		})
	}
	sort.Slice(normalized, func(i, j int) bool {
		return normalized[i].ID < normalized[j].ID
	})

	raw, _ := json.Marshal(struct {
		AuthUserID string            `json:"authUserId"`
		Items      []fingerprintLine `json:"items"`
	}{AuthUserID: authUserID, Items: normalized})

	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// IdempotencyKey derives the checkout deduplication key. The cart's
// last-modified timestamp is part of the digest on purpose: after a
// purchase the cart is cleared and re-stamped, so an identical future cart
// still yields a fresh key instead of colliding with the finished order.
func IdempotencyKey(authUserID, fingerprint string, cartUpdatedAt time.Time) string {
	raw := fmt.Sprintf("%s:%s:%s", authUserID, fingerprint, cartUpdatedAt.UTC().Format(time.RFC3339Nano))
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
