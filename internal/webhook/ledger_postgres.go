package webhook

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// claimWindow is how long a claim on an unprocessed event stays
// exclusive. It must exceed the reconcile timeout so a concurrent
// duplicate delivery cannot re-run side effects mid-flight, while a
// processor redelivery after a failed reconciliation can re-claim the
// row and complete the work.
const claimWindow = 5 * time.Minute

type PostgresLedger struct {
	db *sql.DB
}

func NewPostgresLedger(db *sql.DB) *PostgresLedger {
	return &PostgresLedger{db: db}
}

func (l *PostgresLedger) Claim(ctx context.Context, eventID, eventType string, payload []byte, receivedAt time.Time) (bool, error) {
	res, err := l.db.ExecContext(ctx, `
        INSERT INTO stripe_webhook_events (id, type, payload, processed, received_at)
        VALUES ($1, $2, $3, FALSE, $4)
        ON CONFLICT (id) DO NOTHING`,
		eventID, eventType, payload, receivedAt)
	if err != nil {
		return false, fmt.Errorf("claim webhook event %s: %w", eventID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim webhook event %s: %w", eventID, err)
	}
	if n > 0 {
		return true, nil
	}

	// The row exists. Processed rows stay claimed forever; an unprocessed
	// row can be re-claimed once its last claim is outside the window, so
	// a redelivery can finish what an earlier failed attempt left behind.
	res, err = l.db.ExecContext(ctx, `
        UPDATE stripe_webhook_events
        SET received_at = $1
        WHERE id = $2 AND processed = FALSE AND received_at < $3`,
		receivedAt, eventID, receivedAt.Add(-claimWindow))
	if err != nil {
		return false, fmt.Errorf("reclaim webhook event %s: %w", eventID, err)
	}
	n, err = res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reclaim webhook event %s: %w", eventID, err)
	}
	return n > 0, nil
}

func (l *PostgresLedger) MarkProcessed(ctx context.Context, eventID string, at time.Time) error {
	_, err := l.db.ExecContext(ctx, `
        UPDATE stripe_webhook_events
        SET processed = TRUE, processed_at = $1
        WHERE id = $2`,
		at, eventID)
	if err != nil {
		return fmt.Errorf("mark webhook event %s processed: %w", eventID, err)
	}
	return nil
}
