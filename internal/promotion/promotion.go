package promotion

import "time"

// Type discriminates how a promotion's value is applied.
type Type string

const (
	TypePercentage  Type = "percentage"
	TypeFixedAmount Type = "fixed_amount"
)

// Promotion is a discount code. Once redeemed against it is treated as
// immutable; the redemption count is always derived by counting redemption
// and order records, never stored on the row.
type Promotion struct {
	ID                    int64      `json:"id"`
	Code                  string     `json:"code"`
	Description           string     `json:"description,omitempty"`
	Type                  Type       `json:"type"`
	Value                 int64      `json:"value"`
	CurrencyCode          string     `json:"currencyCode,omitempty"`
	StripeCouponID        string     `json:"stripeCouponId,omitempty"`
	UsageLimit            *int64     `json:"usageLimit,omitempty"`
	UsageLimitPerCustomer *int64     `json:"usageLimitPerCustomer,omitempty"`
	StartsAt              *time.Time `json:"startsAt,omitempty"`
	EndsAt                *time.Time `json:"endsAt,omitempty"`
	IsActive              bool       `json:"isActive"`
}

// WithinWindow reports whether now falls inside the validity window. A nil
// bound is open-ended on that side.
func (p Promotion) WithinWindow(now time.Time) bool {
	if p.StartsAt != nil && now.Before(*p.StartsAt) {
		return false
	}
	if p.EndsAt != nil && now.After(*p.EndsAt) {
		return false
	}
	return true
}
