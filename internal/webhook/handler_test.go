package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	stripe "github.com/stripe/stripe-go/v76"
)

const testWebhookSecret = "whsec_test"

type memoryLedger struct {
	mu        sync.Mutex
	claimedAt map[string]time.Time
	processed map[string]bool
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{claimedAt: map[string]time.Time{}, processed: map[string]bool{}}
}

func (l *memoryLedger) Claim(ctx context.Context, eventID, eventType string, payload []byte, receivedAt time.Time) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.processed[eventID] {
		return false, nil
	}
	if at, ok := l.claimedAt[eventID]; ok && receivedAt.Sub(at) < claimWindow {
		return false, nil
	}
	l.claimedAt[eventID] = receivedAt
	return true, nil
}

func (l *memoryLedger) MarkProcessed(ctx context.Context, eventID string, at time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.processed[eventID] = true
	return nil
}

func signPayload(t *testing.T, payload []byte) string {
	t.Helper()
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func eventPayload(t *testing.T, id string) []byte {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"id":          id,
		"type":        "payment_intent.created",
		"api_version": stripe.APIVersion,
		"data":        map[string]any{"object": map[string]any{"id": "pi_1"}},
	})
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return raw
}

func sessionEventPayload(t *testing.T, id, sessionID string) []byte {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"id":          id,
		"type":        "checkout.session.completed",
		"api_version": stripe.APIVersion,
		"data":        map[string]any{"object": map[string]any{"id": sessionID, "payment_status": "paid"}},
	})
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return raw
}

func webhookTestApp(h *Handler) *fiber.App {
	app := fiber.New()
	h.RegisterPublicRoutes(app)
	return app
}

func postEvent(t *testing.T, app *fiber.App, payload []byte, signature string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/v1/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.StatusCode, decoded
}

func testHandler(ledger Ledger) *Handler {
	rec := testReconciler(newFakeOrders(), newFakePayments(), &recordingCartRepo{}, &stubGateway{})
	return NewHandler(ledger, rec, testWebhookSecret, false)
}

func TestReceive_ValidSignatureIsAcknowledged(t *testing.T) {
	ledger := newMemoryLedger()
	h := testHandler(ledger)
	app := webhookTestApp(h)

	payload := eventPayload(t, "evt_1")
	status, body := postEvent(t, app, payload, signPayload(t, payload))
	if status != fiber.StatusOK {
		t.Fatalf("status = %d, want 200 (body %v)", status, body)
	}
	if body["received"] != true {
		t.Errorf("unexpected body: %v", body)
	}

	h.Wait()
	if !ledger.processed["evt_1"] {
		t.Error("event was not marked processed after reconciliation")
	}
}

func TestReceive_InvalidSignatureRejected(t *testing.T) {
	h := testHandler(newMemoryLedger())
	app := webhookTestApp(h)

	payload := eventPayload(t, "evt_1")
	status, _ := postEvent(t, app, payload, "t=1,v1=deadbeef")
	if status != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400", status)
	}
}

func TestReceive_MissingSignatureRejected(t *testing.T) {
	h := testHandler(newMemoryLedger())
	app := webhookTestApp(h)

	payload := eventPayload(t, "evt_1")
	status, _ := postEvent(t, app, payload, "")
	if status != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400", status)
	}
}

func TestReceive_DuplicateDeliveryShortCircuits(t *testing.T) {
	ledger := newMemoryLedger()
	h := testHandler(ledger)
	app := webhookTestApp(h)

	payload := eventPayload(t, "evt_1")
	sig := signPayload(t, payload)

	if status, _ := postEvent(t, app, payload, sig); status != fiber.StatusOK {
		t.Fatalf("first delivery status = %d, want 200", status)
	}
	status, body := postEvent(t, app, payload, sig)
	if status != fiber.StatusOK {
		t.Fatalf("duplicate delivery status = %d, want 200", status)
	}
	if body["duplicate"] != true {
		t.Errorf("duplicate delivery must be flagged, got %v", body)
	}
	h.Wait()
}

func TestReceive_RedeliveryCompletesFailedEvent(t *testing.T) {
	ledger := newMemoryLedger()
	orders := newFakeOrders()
	orders.findErr = errors.New("connection reset")
	rec := testReconciler(orders, newFakePayments(), &recordingCartRepo{}, &stubGateway{})
	h := NewHandler(ledger, rec, testWebhookSecret, false)
	app := webhookTestApp(h)

	payload := sessionEventPayload(t, "evt_1", "cs_1")
	if status, _ := postEvent(t, app, payload, signPayload(t, payload)); status != fiber.StatusOK {
		t.Fatalf("first delivery status = %d, want 200", status)
	}
	h.Wait()
	if ledger.processed["evt_1"] {
		t.Fatal("failed reconciliation must leave the event unprocessed")
	}

	// The processor redelivers after the claim window; the retry must
	// re-claim the row and finish the work.
	orders.findErr = nil
	h.now = func() time.Time { return time.Now().UTC().Add(claimWindow + time.Minute) }
	status, body := postEvent(t, app, payload, signPayload(t, payload))
	if status != fiber.StatusOK {
		t.Fatalf("redelivery status = %d, want 200", status)
	}
	if body["duplicate"] == true {
		t.Fatal("stale unprocessed event must not short-circuit as a duplicate")
	}
	h.Wait()
	if !ledger.processed["evt_1"] {
		t.Error("redelivery did not complete the event")
	}
}

func TestReceive_SenderIPAllowlist(t *testing.T) {
	rec := testReconciler(newFakeOrders(), newFakePayments(), &recordingCartRepo{}, &stubGateway{})
	h := NewHandler(newMemoryLedger(), rec, testWebhookSecret, true)
	app := webhookTestApp(h)

	// httptest requests originate from 0.0.0.0, never on the allowlist
	payload := eventPayload(t, "evt_1")
	status, _ := postEvent(t, app, payload, signPayload(t, payload))
	if status != fiber.StatusForbidden {
		t.Fatalf("status = %d, want 403", status)
	}
}
