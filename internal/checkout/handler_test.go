package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"

	"github.com/aurelle/shop-backend/internal/turnstile"
)

type allowAllVerifier struct{}

func (allowAllVerifier) Verify(ctx context.Context, token, remoteIP string) error { return nil }

type rejectVerifier struct{}

func (rejectVerifier) Verify(ctx context.Context, token, remoteIP string) error {
	return turnstile.ErrRejected
}

func testApp(h *Handler) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub":   "u1",
			"email": "buyer@example.com",
		})
		c.Locals("user", tok)
		return c.Next()
	})
	h.RegisterProtectedRoutes(app)
	return app
}

func postCheckout(t *testing.T, app *fiber.App, body map[string]any) (int, map[string]any) {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest("POST", "/api/v1/checkout", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")

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

func checkoutBody() map[string]any {
	return map[string]any{
		"email": "buyer@example.com",
		"shippingAddress": map[string]any{
			"fullName":     "Ada Buyer",
			"addressLine1": "100 Front St W",
			"city":         "Toronto",
			"regionName":   "Ontario",
			"regionCode":   "ON",
			"zip":          "M5J 1E3",
			"countryName":  "Canada",
			"countryCode":  "CA",
		},
		"billingAddressMatchesShippingAddress": true,
		"shippingMethod":                       "standard",
		"turnstileToken":                       "tok",
	}
}

func TestCheckoutHandler_Created(t *testing.T) {
	orders := newFakeOrderRepo()
	svc := testService(orders, &fakeGateway{})
	app := testApp(NewHandler(svc, allowAllVerifier{}))

	status, body := postCheckout(t, app, checkoutBody())
	if status != fiber.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %v)", status, body)
	}
	if body["success"] != true || body["url"] == "" {
		t.Errorf("unexpected body: %v", body)
	}

	o := orders.created[0]
	if o.ShippingAddress.Line1 != "100 Front St W" || o.ShippingAddress.City != "Toronto" || o.ShippingAddress.Zip != "M5J 1E3" {
		t.Errorf("shipping snapshot not written at creation: %+v", o.ShippingAddress)
	}
	if !o.BillingAddressMatchesShippingAddress {
		t.Error("billing match flag not written at creation")
	}
}

func TestCheckoutHandler_MissingCaptchaToken(t *testing.T) {
	svc := testService(newFakeOrderRepo(), &fakeGateway{})
	app := testApp(NewHandler(svc, allowAllVerifier{}))

	body := checkoutBody()
	delete(body, "turnstileToken")
	status, _ := postCheckout(t, app, body)
	if status != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400", status)
	}
}

func TestCheckoutHandler_IncompleteShippingAddress(t *testing.T) {
	svc := testService(newFakeOrderRepo(), &fakeGateway{})
	app := testApp(NewHandler(svc, allowAllVerifier{}))

	body := checkoutBody()
	body["shippingAddress"] = map[string]any{"fullName": "Ada Buyer", "countryName": "Canada"}
	status, resp := postCheckout(t, app, body)
	if status != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 (body %v)", status, resp)
	}
}

func TestCheckoutHandler_BillingAddressRequiredWithoutMatchFlag(t *testing.T) {
	svc := testService(newFakeOrderRepo(), &fakeGateway{})
	app := testApp(NewHandler(svc, allowAllVerifier{}))

	body := checkoutBody()
	body["billingAddressMatchesShippingAddress"] = false
	status, _ := postCheckout(t, app, body)
	if status != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400", status)
	}
}

func TestCheckoutHandler_MissingShippingMethod(t *testing.T) {
	svc := testService(newFakeOrderRepo(), &fakeGateway{})
	app := testApp(NewHandler(svc, allowAllVerifier{}))

	body := checkoutBody()
	delete(body, "shippingMethod")
	status, _ := postCheckout(t, app, body)
	if status != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400", status)
	}
}

func TestCheckoutHandler_CaptchaRejected(t *testing.T) {
	svc := testService(newFakeOrderRepo(), &fakeGateway{})
	app := testApp(NewHandler(svc, rejectVerifier{}))

	body := checkoutBody()
	body["turnstileToken"] = "bad"
	status, _ := postCheckout(t, app, body)
	if status != fiber.StatusForbidden {
		t.Fatalf("status = %d, want 403", status)
	}
}

func TestCheckoutHandler_InvalidPromotionCode(t *testing.T) {
	svc := testService(newFakeOrderRepo(), &fakeGateway{})
	app := testApp(NewHandler(svc, allowAllVerifier{}))

	body := checkoutBody()
	body["promotionCode"] = "NOPE"
	status, resp := postCheckout(t, app, body)
	if status != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 (body %v)", status, resp)
	}
}
