package webhook

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	stripe "github.com/stripe/stripe-go/v76"
	stripewebhook "github.com/stripe/stripe-go/v76/webhook"
)

// stripeWebhookIPs is Stripe's published list of webhook sender
// addresses. Checked only when IP verification is enabled; signature
// verification is the real gate either way.
var stripeWebhookIPs = []string{
	"3.18.12.63", "3.130.192.231", "13.235.14.237", "13.235.122.149",
	"18.211.135.69", "35.154.171.200", "52.15.183.38", "54.88.130.119",
	"54.88.130.237", "54.187.174.169", "54.187.205.235", "54.187.216.72",
}

// reconcileTimeout bounds one event's background reconciliation.
const reconcileTimeout = 30 * time.Second

type Handler struct {
	ledger     Ledger
	reconciler *Reconciler
	secret     string
	allowedIPs map[string]struct{} // nil disables the check
	wg         sync.WaitGroup
	now        func() time.Time
}

func NewHandler(ledger Ledger, reconciler *Reconciler, secret string, verifySenderIP bool) *Handler {
	h := &Handler{
		ledger:     ledger,
		reconciler: reconciler,
		secret:     secret,
		now:        func() time.Time { return time.Now().UTC() },
	}
	if verifySenderIP {
		h.allowedIPs = make(map[string]struct{}, len(stripeWebhookIPs))
		for _, ip := range stripeWebhookIPs {
			h.allowedIPs[ip] = struct{}{}
		}
	}
	return h
}

func (h *Handler) RegisterPublicRoutes(app *fiber.App) {
	app.Post("/api/v1/webhooks/stripe", h.receive)
}

// Wait blocks until every in-flight reconciliation finished. Called
// during graceful shutdown, after the listener stopped accepting.
func (h *Handler) Wait() {
	h.wg.Wait()
}

func (h *Handler) receive(c *fiber.Ctx) error {
	if h.allowedIPs != nil {
		if _, ok := h.allowedIPs[c.IP()]; !ok {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": "Forbidden"})
		}
	}

	// The signature covers the exact bytes sent; the body must not go
	// through a JSON round trip before verification.
	payload := c.Body()
	event, err := stripewebhook.ConstructEvent(payload, c.Get("Stripe-Signature"), h.secret)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid signature"})
	}

	claimed, err := h.ledger.Claim(c.Context(), event.ID, string(event.Type), payload, h.now())
	if err != nil {
		log.Printf("claim webhook event %s: %v", event.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Event not recorded"})
	}
	if !claimed {
		return c.JSON(fiber.Map{"received": true, "duplicate": true})
	}

	// Acknowledge as soon as the event is durably claimed; reconciliation
	// runs on a tracked goroutine so shutdown can drain it.
	h.wg.Add(1)
	go h.reconcile(event)

	return c.JSON(fiber.Map{"received": true})
}

func (h *Handler) reconcile(event stripe.Event) {
	defer h.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), reconcileTimeout)
	defer cancel()

	if err := h.reconciler.HandleEvent(ctx, event); err != nil {
		// Left unprocessed; a later redelivery re-claims the row and
		// retries the work.
		log.Printf("reconcile webhook event %s: %v", event.ID, err)
		return
	}
	if err := h.ledger.MarkProcessed(ctx, event.ID, h.now()); err != nil {
		log.Printf("mark webhook event %s processed: %v", event.ID, err)
	}
}
