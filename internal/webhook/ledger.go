package webhook

import (
	"context"
	"time"
)

// Ledger is the durable record of received webhook events. Claiming an
// event is the dedupe point: the first writer wins, and a concurrent
// delivery of the same event id must lose. A later redelivery may win
// again if the event is still unprocessed and its previous claim has
// gone stale, so a failed reconciliation can be completed by a retry.
type Ledger interface {
	// Claim stores the event, or re-claims an existing unprocessed row
	// whose last claim is older than the claim window. claimed reports
	// whether this call owns the event.
	Claim(ctx context.Context, eventID, eventType string, payload []byte, receivedAt time.Time) (claimed bool, err error)

	// MarkProcessed flips the processed flag once reconciliation finished.
	MarkProcessed(ctx context.Context, eventID string, at time.Time) error
}
