// Package payment records the money movements reported by the billing
// provider. A payment row is written once per Stripe transaction and
// updated as refunds or failures arrive; refunds are tracked as child
// rows keyed by the provider's refund id.
package payment

import "time"

type Status string

const (
	StatusSucceeded         Status = "succeeded"
	StatusFailed            Status = "failed"
	StatusRefunded          Status = "refunded"
	StatusPartiallyRefunded Status = "partially_refunded"
)

type Payment struct {
	ID             int64     `json:"id"`
	OrderID        string    `json:"orderId"`
	TransactionID  string    `json:"transactionId"`
	Amount         int64     `json:"amount"`
	AmountRefunded int64     `json:"amountRefunded"`
	CurrencyCode   string    `json:"currencyCode"`
	Status         Status    `json:"status"`
	CardBrand      string    `json:"cardBrand"`
	CardLast4      string    `json:"cardLast4"`
	ReceiptURL     string    `json:"receiptUrl"`
	FailureCode    string    `json:"failureCode"`
	FailureMessage string    `json:"failureMessage"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type Refund struct {
	ID             int64     `json:"id"`
	PaymentID      int64     `json:"paymentId"`
	StripeRefundID string    `json:"stripeRefundId"`
	Amount         int64     `json:"amount"`
	Reason         string    `json:"reason"`
	CreatedAt      time.Time `json:"createdAt"`
}
